package main

import (
	"context"
	"fmt"
	"slices"

	"github.com/spf13/cobra"
)

var viewCmd = &cobra.Command{
	Use:     "view",
	Short:   "Show or change your saved chart view",
	GroupID: "views",
}

var viewShowCmd = &cobra.Command{
	Use:   "show <project-id>",
	Short: "Show the collapsed rows of your view",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := apiClient.GetView(context.Background(), args[0])
		if err != nil {
			return fmt.Errorf("getting view: %w", err)
		}
		if jsonOutput {
			printJSON(v)
			return nil
		}
		if len(v.Collapsed) == 0 {
			fmt.Println("Nothing collapsed.")
		}
		for _, id := range v.Collapsed {
			fmt.Printf("collapsed: %s\n", id)
		}
		if v.Selected != "" {
			fmt.Printf("selected:  %s\n", v.Selected)
		}
		return nil
	},
}

var viewCollapseCmd = &cobra.Command{
	Use:   "collapse <project-id> <task-id>...",
	Short: "Collapse rows in your view",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return editView(args[0], func(collapsed []string) []string {
			for _, id := range args[1:] {
				if !slices.Contains(collapsed, id) {
					collapsed = append(collapsed, id)
				}
			}
			return collapsed
		})
	},
}

var viewExpandCmd = &cobra.Command{
	Use:   "expand <project-id> [task-id]...",
	Short: "Expand rows in your view (all rows when none are given)",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return editView(args[0], func(collapsed []string) []string {
			if len(args) == 1 {
				return []string{}
			}
			return slices.DeleteFunc(collapsed, func(id string) bool {
				return slices.Contains(args[1:], id)
			})
		})
	},
}

func editView(projectID string, edit func([]string) []string) error {
	ctx := context.Background()
	v, err := apiClient.GetView(ctx, projectID)
	if err != nil {
		return fmt.Errorf("getting view: %w", err)
	}
	v.Collapsed = edit(v.Collapsed)
	saved, err := apiClient.PutView(ctx, projectID, v)
	if err != nil {
		return fmt.Errorf("saving view: %w", err)
	}
	if jsonOutput {
		printJSON(saved)
	} else {
		fmt.Printf("%d rows collapsed\n", len(saved.Collapsed))
	}
	return nil
}

func init() {
	viewCmd.AddCommand(viewShowCmd)
	viewCmd.AddCommand(viewCollapseCmd)
	viewCmd.AddCommand(viewExpandCmd)
}
