package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/krushilnaik/constructum-mk2/internal/client"
)

var depCmd = &cobra.Command{
	Use:     "dep",
	Short:   "Manage task dependencies",
	GroupID: "schedule",
}

var depAddCmd = &cobra.Command{
	Use:   "add <project-id> <predecessor-id> <successor-id>",
	Short: "Link two tasks (FS, SS, FF or SF)",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		depType, _ := cmd.Flags().GetString("type")
		cascadeNow, _ := cmd.Flags().GetBool("cascade")

		dep, err := apiClient.AddDependency(context.Background(), args[0], &client.AddDependencyRequest{
			PredecessorID: args[1],
			SuccessorID:   args[2],
			Type:          depType,
			Cascade:       cascadeNow,
		})
		if err != nil {
			return fmt.Errorf("adding dependency: %w", err)
		}

		if jsonOutput {
			printJSON(dep)
		} else {
			fmt.Printf("ID:           %s\n", dep.ID)
			fmt.Printf("Type:         %s (%s)\n", dep.Type, dep.Type.Label())
			fmt.Printf("Predecessor:  %s\n", dep.PredecessorID)
			fmt.Printf("Successor:    %s\n", dep.SuccessorID)
		}
		return nil
	},
}

var depRemoveCmd = &cobra.Command{
	Use:     "remove <project-id> <predecessor-id> <successor-id>",
	Aliases: []string{"rm"},
	Short:   "Remove the dependency between two tasks",
	Args:    cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := apiClient.RemoveDependency(context.Background(), args[0], args[1], args[2]); err != nil {
			return fmt.Errorf("removing dependency: %w", err)
		}
		fmt.Printf("Removed %s -> %s\n", args[1], args[2])
		return nil
	},
}

var depListCmd = &cobra.Command{
	Use:   "list <project-id>",
	Short: "List the dependencies of a project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := apiClient.ListDependencies(context.Background(), args[0])
		if err != nil {
			return fmt.Errorf("listing dependencies: %w", err)
		}
		if jsonOutput {
			printJSON(deps)
		} else {
			printDependencyTable(deps)
		}
		return nil
	},
}

var violationsCmd = &cobra.Command{
	Use:     "violations <project-id>",
	Short:   "List dependencies whose constraint is not met",
	GroupID: "views",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		vs, err := apiClient.Violations(context.Background(), args[0])
		if err != nil {
			return fmt.Errorf("checking constraints: %w", err)
		}
		if jsonOutput {
			printJSON(vs)
		} else {
			printViolations(vs)
		}
		if len(vs) > 0 {
			failOnViolation, _ := cmd.Flags().GetBool("fail")
			if failOnViolation {
				return fmt.Errorf("%d violated constraints", len(vs))
			}
		}
		return nil
	},
}

func init() {
	depAddCmd.Flags().StringP("type", "t", "FS", "constraint type (FS, SS, FF, SF)")
	depAddCmd.Flags().Bool("cascade", false, "push the successor forward immediately if the link is violated")
	violationsCmd.Flags().Bool("fail", false, "exit non-zero when any constraint is violated")

	depCmd.AddCommand(depAddCmd)
	depCmd.AddCommand(depRemoveCmd)
	depCmd.AddCommand(depListCmd)
}
