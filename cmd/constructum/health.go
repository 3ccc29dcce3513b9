package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:     "health",
	Short:   "Ping the server over the selected transport",
	GroupID: "system",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		timeout, _ := cmd.Flags().GetDuration("timeout")
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		began := time.Now()
		status, err := sched.Health(ctx)
		if err != nil {
			return fmt.Errorf("%s health: %w", transport, err)
		}
		latency := time.Since(began).Round(time.Millisecond)

		if jsonOutput {
			printJSON(struct {
				Status    string `json:"status"`
				Transport string `json:"transport"`
				LatencyMS int64  `json:"latency_ms"`
			}{status, transport, latency.Milliseconds()})
		} else {
			fmt.Printf("%s via %s in %s\n", status, transport, latency)
		}
		if status != "ok" {
			return fmt.Errorf("server reports %q", status)
		}
		return nil
	},
}

func init() {
	healthCmd.Flags().Duration("timeout", 5*time.Second, "give up after this long")
}
