package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/krushilnaik/constructum-mk2/internal/client"
)

var moveCmd = &cobra.Command{
	Use:   "move <task-id>",
	Short: "Set or shift a task's dates and cascade to successors",
	Long: `Set a task's dates with --start/--end, or shift both by --shift days.
Finish-to-start successors that would start on or before the new end date
are pushed to the day after it.`,
	GroupID: "schedule",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := datesFromFlags(cmd)
		if err != nil {
			return err
		}
		res, err := apiClient.SetDates(context.Background(), args[0], req)
		if err != nil {
			return fmt.Errorf("moving task: %w", err)
		}
		if jsonOutput {
			printJSON(res)
		} else {
			printMoveResult(res, false)
		}
		return nil
	},
}

var cascadeCmd = &cobra.Command{
	Use:     "cascade <task-id>",
	Short:   "Preview the cascade of a date change without writing it",
	GroupID: "views",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := datesFromFlags(cmd)
		if err != nil {
			return err
		}
		res, err := sched.PreviewCascade(context.Background(), args[0], req)
		if err != nil {
			return fmt.Errorf("previewing cascade: %w", err)
		}
		if jsonOutput {
			printJSON(res)
		} else {
			printMoveResult(res, true)
		}
		return nil
	},
}

func datesFromFlags(cmd *cobra.Command) (*client.DatesRequest, error) {
	req := &client.DatesRequest{}
	req.ShiftDays, _ = cmd.Flags().GetInt("shift")
	if cmd.Flags().Changed("start") {
		v, _ := cmd.Flags().GetString("start")
		req.StartDate = &v
	}
	if cmd.Flags().Changed("end") {
		v, _ := cmd.Flags().GetString("end")
		req.EndDate = &v
	}
	hasDates := req.StartDate != nil || req.EndDate != nil
	switch {
	case req.ShiftDays != 0 && hasDates:
		return nil, fmt.Errorf("--shift cannot be combined with --start or --end")
	case req.ShiftDays == 0 && !hasDates:
		return nil, fmt.Errorf("one of --shift, --start or --end is required")
	}
	return req, nil
}

func init() {
	for _, c := range []*cobra.Command{moveCmd, cascadeCmd} {
		c.Flags().Int("shift", 0, "shift both dates by this many days")
		c.Flags().String("start", "", "new start date (YYYY-MM-DD)")
		c.Flags().String("end", "", "new end date (YYYY-MM-DD)")
	}
}
