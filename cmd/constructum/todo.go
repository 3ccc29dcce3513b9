package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/krushilnaik/constructum-mk2/internal/client"
	"github.com/krushilnaik/constructum-mk2/internal/model"
)

var todoCmd = &cobra.Command{
	Use:     "todo",
	Short:   "Manage a task's checklist",
	GroupID: "schedule",
}

var todoListCmd = &cobra.Command{
	Use:   "list <task-id>",
	Short: "List todo items",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		todos, err := apiClient.ListTodos(context.Background(), args[0])
		if err != nil {
			return fmt.Errorf("listing todos: %w", err)
		}
		if jsonOutput {
			printJSON(todos)
		} else {
			printTodos(todos)
		}
		return nil
	},
}

var todoAddCmd = &cobra.Command{
	Use:   "add <task-id> <text>...",
	Short: "Add a todo item",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		td, err := apiClient.AddTodo(context.Background(), args[0], strings.Join(args[1:], " "))
		if err != nil {
			return fmt.Errorf("adding todo: %w", err)
		}
		printTodo(td)
		return nil
	},
}

var todoDoneCmd = &cobra.Command{
	Use:   "done <todo-id>",
	Short: "Mark a todo item complete",
	Args:  cobra.ExactArgs(1),
	RunE:  setCompleted(true),
}

var todoUndoCmd = &cobra.Command{
	Use:   "undo <todo-id>",
	Short: "Mark a todo item incomplete",
	Args:  cobra.ExactArgs(1),
	RunE:  setCompleted(false),
}

var todoEditCmd = &cobra.Command{
	Use:   "edit <todo-id> <text>...",
	Short: "Change the text of a todo item",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		content := strings.Join(args[1:], " ")
		td, err := apiClient.UpdateTodo(context.Background(), args[0], &client.UpdateTodoRequest{Content: &content})
		if err != nil {
			return fmt.Errorf("updating todo: %w", err)
		}
		printTodo(td)
		return nil
	},
}

var todoDeleteCmd = &cobra.Command{
	Use:   "delete <todo-id>",
	Short: "Delete a todo item",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := apiClient.DeleteTodo(context.Background(), args[0]); err != nil {
			return fmt.Errorf("deleting todo: %w", err)
		}
		fmt.Printf("Deleted %s\n", args[0])
		return nil
	},
}

func setCompleted(done bool) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		td, err := apiClient.UpdateTodo(context.Background(), args[0], &client.UpdateTodoRequest{Completed: &done})
		if err != nil {
			return fmt.Errorf("updating todo: %w", err)
		}
		printTodo(td)
		return nil
	}
}

func printTodo(td *model.TodoItem) {
	if jsonOutput {
		printJSON(td)
		return
	}
	printTodos([]*model.TodoItem{td})
}

func init() {
	todoCmd.AddCommand(todoListCmd)
	todoCmd.AddCommand(todoAddCmd)
	todoCmd.AddCommand(todoDoneCmd)
	todoCmd.AddCommand(todoUndoCmd)
	todoCmd.AddCommand(todoEditCmd)
	todoCmd.AddCommand(todoDeleteCmd)
}
