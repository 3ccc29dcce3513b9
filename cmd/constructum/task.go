package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/krushilnaik/constructum-mk2/internal/client"
	"github.com/krushilnaik/constructum-mk2/internal/model"
)

var taskCmd = &cobra.Command{
	Use:     "task",
	Short:   "Manage the tasks of a project",
	GroupID: "schedule",
}

var taskCreateCmd = &cobra.Command{
	Use:   "create <project-id> <name>",
	Short: "Create a task",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		req := &client.CreateTaskRequest{Name: args[1]}
		req.Description, _ = cmd.Flags().GetString("description")
		req.StartDate, _ = cmd.Flags().GetString("start")
		req.EndDate, _ = cmd.Flags().GetString("end")
		req.DurationDays, _ = cmd.Flags().GetInt("duration")
		req.ParentID, _ = cmd.Flags().GetString("parent")
		req.CrewSize, _ = cmd.Flags().GetInt("crew")
		req.Progress, _ = cmd.Flags().GetInt("progress")
		req.IsCritical, _ = cmd.Flags().GetBool("critical")
		req.Color, _ = cmd.Flags().GetString("color")
		typ, _ := cmd.Flags().GetString("type")
		req.Type = model.TaskType(typ)
		if cmd.Flags().Changed("sort-order") {
			v, _ := cmd.Flags().GetInt("sort-order")
			req.SortOrder = &v
		}

		t, err := apiClient.CreateTask(context.Background(), args[0], req)
		if err != nil {
			return fmt.Errorf("creating task: %w", err)
		}
		if jsonOutput {
			printJSON(t)
		} else {
			printTaskTable(t)
		}
		return nil
	},
}

var taskListCmd = &cobra.Command{
	Use:   "list <project-id>",
	Short: "List the tasks of a project in row order",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req := &client.ListTasksRequest{ProjectID: args[0]}
		req.ParentID, _ = cmd.Flags().GetString("parent")
		req.Types, _ = cmd.Flags().GetStringSlice("type")
		req.Search, _ = cmd.Flags().GetString("search")
		req.Limit, _ = cmd.Flags().GetInt("limit")
		req.Offset, _ = cmd.Flags().GetInt("offset")

		resp, err := apiClient.ListTasks(context.Background(), req)
		if err != nil {
			return fmt.Errorf("listing tasks: %w", err)
		}
		if jsonOutput {
			printJSON(resp)
		} else {
			printTaskListTable(resp.Tasks, resp.Total)
		}
		return nil
	},
}

var taskShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a task with its todo items",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		t, err := apiClient.GetTask(ctx, args[0])
		if client.IsNotFound(err) {
			return fmt.Errorf("no task %q", args[0])
		}
		if err != nil {
			return fmt.Errorf("getting task: %w", err)
		}
		todos, err := apiClient.ListTodos(ctx, t.ID)
		if err != nil {
			return fmt.Errorf("listing todos: %w", err)
		}
		if jsonOutput {
			printJSON(struct {
				*model.Task
				Todos []*model.TodoItem `json:"todos"`
			}{t, todos})
			return nil
		}
		printTaskTable(t)
		if len(todos) > 0 {
			fmt.Println()
			fmt.Println("Todos:")
			printTodos(todos)
		}
		return nil
	},
}

var taskUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Update a task; changing its dates cascades to successors",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		patch := taskPatchFromFlags(cmd)
		t, err := apiClient.UpdateTask(context.Background(), args[0], patch)
		if err != nil {
			return fmt.Errorf("updating task: %w", err)
		}
		if jsonOutput {
			printJSON(t)
		} else {
			printTaskTable(t)
		}
		return nil
	},
}

// taskPatchFromFlags sets only the fields whose flags were given, so an
// explicit empty value clears a date or parent.
func taskPatchFromFlags(cmd *cobra.Command) *model.TaskPatch {
	p := &model.TaskPatch{}
	str := func(name string, dst **string) {
		if cmd.Flags().Changed(name) {
			v, _ := cmd.Flags().GetString(name)
			*dst = &v
		}
	}
	num := func(name string, dst **int) {
		if cmd.Flags().Changed(name) {
			v, _ := cmd.Flags().GetInt(name)
			*dst = &v
		}
	}
	str("name", &p.Name)
	str("description", &p.Description)
	str("start", &p.StartDate)
	str("end", &p.EndDate)
	str("parent", &p.ParentID)
	str("color", &p.Color)
	num("duration", &p.DurationDays)
	num("crew", &p.CrewSize)
	num("progress", &p.Progress)
	if cmd.Flags().Changed("type") {
		v, _ := cmd.Flags().GetString("type")
		tt := model.TaskType(v)
		p.Type = &tt
	}
	if cmd.Flags().Changed("critical") {
		v, _ := cmd.Flags().GetBool("critical")
		p.IsCritical = &v
	}
	return p
}

var taskDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := apiClient.DeleteTask(context.Background(), args[0]); err != nil {
			return fmt.Errorf("deleting task: %w", err)
		}
		fmt.Printf("Deleted task %s\n", args[0])
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{taskCreateCmd, taskUpdateCmd} {
		c.Flags().StringP("description", "d", "", "task description")
		c.Flags().String("start", "", "start date (YYYY-MM-DD)")
		c.Flags().String("end", "", "end date (YYYY-MM-DD)")
		c.Flags().Int("duration", 0, "duration in days")
		c.Flags().String("parent", "", "parent task id")
		c.Flags().StringP("type", "t", "", "task type (task, summary, sub_summary)")
		c.Flags().Int("crew", 0, "crew size")
		c.Flags().Int("progress", 0, "percent complete")
		c.Flags().Bool("critical", false, "on the critical path")
		c.Flags().String("color", "", "bar color")
	}
	taskCreateCmd.Flags().Int("sort-order", 0, "row position (default: after the last row)")
	taskUpdateCmd.Flags().String("name", "", "task name")

	taskListCmd.Flags().String("parent", "", "only children of this task")
	taskListCmd.Flags().StringSliceP("type", "t", nil, "filter by task type")
	taskListCmd.Flags().String("search", "", "case-insensitive name search")
	taskListCmd.Flags().Int("limit", 0, "maximum number of tasks (0 = all)")
	taskListCmd.Flags().Int("offset", 0, "offset for pagination")

	taskCmd.AddCommand(taskCreateCmd)
	taskCmd.AddCommand(taskListCmd)
	taskCmd.AddCommand(taskShowCmd)
	taskCmd.AddCommand(taskUpdateCmd)
	taskCmd.AddCommand(taskDeleteCmd)
}
