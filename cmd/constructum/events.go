package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var eventsCmd = &cobra.Command{
	Use:     "events <task-id>",
	Short:   "Show the recorded history of a task",
	GroupID: "views",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		evts, err := apiClient.GetEvents(context.Background(), args[0])
		if err != nil {
			return fmt.Errorf("getting events: %w", err)
		}
		if jsonOutput {
			printJSON(evts)
		} else {
			printEvents(evts)
		}
		return nil
	},
}
