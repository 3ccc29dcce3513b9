package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/krushilnaik/constructum-mk2/internal/client"
)

var reorderCmd = &cobra.Command{
	Use:   "reorder <project-id> <task-id> <row>",
	Short: "Move a task to another visible row",
	Long: `Move a task to the given zero-based row of the visible chart. Rows
hidden under a collapsed parent travel with it.`,
	GroupID: "schedule",
	Args:    cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		var to int
		if _, err := fmt.Sscanf(args[2], "%d", &to); err != nil {
			return fmt.Errorf("invalid row %q: %w", args[2], err)
		}
		collapsed, _ := cmd.Flags().GetStringSlice("collapsed")

		res, err := apiClient.Reorder(context.Background(), args[0], &client.ReorderRequest{
			TaskID:    args[1],
			To:        to,
			Collapsed: collapsed,
		})
		if err != nil {
			return fmt.Errorf("reordering: %w", err)
		}
		if jsonOutput {
			printJSON(res)
			return nil
		}
		if !res.Changed {
			fmt.Println("Already in place.")
			return nil
		}
		fmt.Printf("Moved %s to row %d (%d rows renumbered)\n", args[1], res.Index, len(res.Updates))
		return nil
	},
}

func init() {
	reorderCmd.Flags().StringSlice("collapsed", nil, "collapsed task ids (default: your saved view)")
}
