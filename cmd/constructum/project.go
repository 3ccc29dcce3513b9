package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/krushilnaik/constructum-mk2/internal/client"
	"github.com/krushilnaik/constructum-mk2/internal/model"
)

var projectCmd = &cobra.Command{
	Use:     "project",
	Short:   "Manage projects",
	GroupID: "schedule",
}

var projectCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		description, _ := cmd.Flags().GetString("description")
		start, _ := cmd.Flags().GetString("start")
		end, _ := cmd.Flags().GetString("end")
		status, _ := cmd.Flags().GetString("status")
		owner, _ := cmd.Flags().GetString("owner")
		if owner == "" {
			owner = actor
		}

		p, err := apiClient.CreateProject(context.Background(), &client.CreateProjectRequest{
			Name:        args[0],
			Description: description,
			OwnerID:     owner,
			StartDate:   start,
			EndDate:     end,
			Status:      model.ProjectStatus(status),
		})
		if err != nil {
			return fmt.Errorf("creating project: %w", err)
		}
		if jsonOutput {
			printJSON(p)
		} else {
			printProjectTable(p)
		}
		return nil
	},
}

var projectListCmd = &cobra.Command{
	Use:   "list",
	Short: "List projects",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		req := &client.ListProjectsRequest{}
		req.OwnerID, _ = cmd.Flags().GetString("owner")
		req.Status, _ = cmd.Flags().GetString("status")
		req.Limit, _ = cmd.Flags().GetInt("limit")
		req.Offset, _ = cmd.Flags().GetInt("offset")

		projects, err := apiClient.ListProjects(context.Background(), req)
		if err != nil {
			return fmt.Errorf("listing projects: %w", err)
		}
		if jsonOutput {
			printJSON(projects)
		} else {
			printProjectListTable(projects)
		}
		return nil
	},
}

var projectShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := apiClient.GetProject(context.Background(), args[0])
		if err != nil {
			return fmt.Errorf("getting project: %w", err)
		}
		if jsonOutput {
			printJSON(p)
		} else {
			printProjectTable(p)
		}
		return nil
	},
}

var projectUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Update a project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req := &client.UpdateProjectRequest{}
		if cmd.Flags().Changed("name") {
			v, _ := cmd.Flags().GetString("name")
			req.Name = &v
		}
		if cmd.Flags().Changed("description") {
			v, _ := cmd.Flags().GetString("description")
			req.Description = &v
		}
		if cmd.Flags().Changed("start") {
			v, _ := cmd.Flags().GetString("start")
			req.StartDate = &v
		}
		if cmd.Flags().Changed("end") {
			v, _ := cmd.Flags().GetString("end")
			req.EndDate = &v
		}
		if cmd.Flags().Changed("status") {
			v, _ := cmd.Flags().GetString("status")
			st := model.ProjectStatus(v)
			req.Status = &st
		}

		p, err := apiClient.UpdateProject(context.Background(), args[0], req)
		if err != nil {
			return fmt.Errorf("updating project: %w", err)
		}
		if jsonOutput {
			printJSON(p)
		} else {
			printProjectTable(p)
		}
		return nil
	},
}

var projectDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a project with all its tasks",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := apiClient.DeleteProject(context.Background(), args[0]); err != nil {
			return fmt.Errorf("deleting project: %w", err)
		}
		fmt.Printf("Deleted project %s\n", args[0])
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{projectCreateCmd, projectUpdateCmd} {
		c.Flags().StringP("description", "d", "", "project description")
		c.Flags().String("start", "", "start date (YYYY-MM-DD)")
		c.Flags().String("end", "", "end date (YYYY-MM-DD)")
		c.Flags().StringP("status", "s", "", "status (planning, active, on_hold, completed)")
	}
	projectCreateCmd.Flags().String("owner", "", "owner id (default: --actor)")
	projectUpdateCmd.Flags().String("name", "", "project name")

	projectListCmd.Flags().String("owner", "", "filter by owner")
	projectListCmd.Flags().StringP("status", "s", "", "filter by status")
	projectListCmd.Flags().Int("limit", 50, "maximum number of projects")
	projectListCmd.Flags().Int("offset", 0, "offset for pagination")

	projectCmd.AddCommand(projectCreateCmd)
	projectCmd.AddCommand(projectListCmd)
	projectCmd.AddCommand(projectShowCmd)
	projectCmd.AddCommand(projectUpdateCmd)
	projectCmd.AddCommand(projectDeleteCmd)
}
