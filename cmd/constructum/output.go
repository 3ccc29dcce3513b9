package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/krushilnaik/constructum-mk2/internal/client"
	"github.com/krushilnaik/constructum-mk2/internal/dependency"
	"github.com/krushilnaik/constructum-mk2/internal/model"
)

const timeLayout = "2006-01-02 15:04:05"

func printJSON(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error marshaling JSON: %v\n", err)
		return
	}
	fmt.Println(string(data))
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n-3] + "..."
	}
	return s
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func printProjectTable(p *model.Project) {
	fmt.Printf("ID:          %s\n", p.ID)
	fmt.Printf("Name:        %s\n", p.Name)
	fmt.Printf("Status:      %s\n", p.Status)
	if p.Description != "" {
		fmt.Printf("Description: %s\n", p.Description)
	}
	if p.OwnerID != "" {
		fmt.Printf("Owner:       %s\n", p.OwnerID)
	}
	fmt.Printf("Dates:       %s .. %s\n", orDash(p.StartDate), orDash(p.EndDate))
	if !p.CreatedAt.IsZero() {
		fmt.Printf("Created At:  %s\n", p.CreatedAt.Format(timeLayout))
	}
	if !p.UpdatedAt.IsZero() {
		fmt.Printf("Updated At:  %s\n", p.UpdatedAt.Format(timeLayout))
	}
}

func printProjectListTable(projects []*model.Project) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tSTART\tEND\tNAME")
	for _, p := range projects {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", p.ID, p.Status, orDash(p.StartDate), orDash(p.EndDate), truncate(p.Name, 50))
	}
	w.Flush()
	fmt.Printf("\n%d projects\n", len(projects))
}

func printTaskTable(t *model.Task) {
	fmt.Printf("ID:          %s\n", t.ID)
	fmt.Printf("Project:     %s\n", t.ProjectID)
	fmt.Printf("Name:        %s\n", t.Name)
	fmt.Printf("Type:        %s\n", t.Type)
	if t.ParentID != "" {
		fmt.Printf("Parent:      %s\n", t.ParentID)
	}
	fmt.Printf("Dates:       %s .. %s\n", orDash(t.StartDate), orDash(t.EndDate))
	fmt.Printf("Duration:    %d days\n", t.DurationDays)
	fmt.Printf("Progress:    %d%%\n", t.Progress)
	if t.CrewSize > 0 {
		fmt.Printf("Crew:        %d\n", t.CrewSize)
	}
	if t.IsCritical {
		fmt.Printf("Critical:    yes\n")
	}
	if len(t.DependsOn) > 0 {
		fmt.Printf("Depends On:  %v\n", t.DependsOn)
	}
	if t.Description != "" {
		fmt.Printf("Description: %s\n", t.Description)
	}
	fmt.Printf("Sort Order:  %d\n", t.SortOrder)
	if !t.UpdatedAt.IsZero() {
		fmt.Printf("Updated At:  %s\n", t.UpdatedAt.Format(timeLayout))
	}
}

func printTaskListTable(tasks []*model.Task, total int) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTYPE\tSTART\tEND\tPROGRESS\tNAME")
	for _, t := range tasks {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d%%\t%s\n",
			t.ID,
			t.Type,
			orDash(t.StartDate),
			orDash(t.EndDate),
			t.Progress,
			truncate(t.Name, 50),
		)
	}
	w.Flush()
	fmt.Printf("\n%d tasks (%d total)\n", len(tasks), total)
}

func printMoveResult(res *client.MoveResult, preview bool) {
	verb := "Moved"
	if preview {
		verb = "Would move"
	}
	if res.Task != nil {
		fmt.Printf("%s %s to %s .. %s\n", verb, res.Task.ID, orDash(res.Task.StartDate), orDash(res.Task.EndDate))
	}
	if len(res.Adjustments) == 0 {
		fmt.Println("No successors affected.")
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  TASK\tNEW START\tNEW END")
	for _, a := range res.Adjustments {
		fmt.Fprintf(w, "  %s\t%s\t%s\n", a.TaskID, a.NewStartDate, orDash(a.NewEndDate))
	}
	w.Flush()
}

func printDependencyTable(deps []*model.Dependency) {
	if len(deps) == 0 {
		fmt.Println("No dependencies.")
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTYPE\tPREDECESSOR\tSUCCESSOR")
	for _, d := range deps {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", d.ID, d.Type, d.PredecessorID, d.SuccessorID)
	}
	w.Flush()
}

func printViolations(vs []dependency.Violation) {
	if len(vs) == 0 {
		fmt.Println("All constraints satisfied.")
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TYPE\tPREDECESSOR\tDATE\tSUCCESSOR\tDATE")
	for _, v := range vs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", v.Type, v.PredecessorID, v.PredecessorAt, v.SuccessorID, v.SuccessorAt)
	}
	w.Flush()
	fmt.Printf("\n%d violated constraints\n", len(vs))
}

func printTodos(todos []*model.TodoItem) {
	if len(todos) == 0 {
		fmt.Println("No todo items.")
		return
	}
	for _, td := range todos {
		mark := " "
		if td.Completed {
			mark = "x"
		}
		fmt.Printf("[%s] %s  %s\n", mark, td.Content, td.ID)
	}
}

func printEvents(evts []*model.Event) {
	if len(evts) == 0 {
		fmt.Println("No events.")
		return
	}
	for _, e := range evts {
		who := e.Actor
		if who == "" {
			who = "-"
		}
		fmt.Printf("[%s] %s %s\n", e.CreatedAt.Format(timeLayout), who, e.Topic)
	}
}
