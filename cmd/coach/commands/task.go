package commands

import (
	"fmt"
	"strings"

	"github.com/jpkmiller/coach/internal/logger"
	"github.com/jpkmiller/coach/internal/models"
	"github.com/jpkmiller/coach/internal/task"
	"github.com/spf13/cobra"
)

// NewTaskCmd groups the task operations.
func NewTaskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Work with the task tree",
	}
	cmd.AddCommand(newTaskListCmd())
	cmd.AddCommand(newTaskAddCmd())
	cmd.AddCommand(newTaskDoneCmd())
	cmd.AddCommand(newTaskBreakCmd())
	return cmd
}

func printTaskTree(tasks []*models.Task, depth int) {
	for _, t := range tasks {
		marker := "[ ]"
		if t.Completed {
			marker = "[x]"
		}
		due := ""
		if t.DueDate != nil {
			due = "  due " + t.DueDate.Format("2006-01-02")
		}
		fmt.Printf("%s%s %s (%s)%s\n", strings.Repeat("  ", depth), marker, t.Title, t.ID, due)
		printTaskTree(t.SubTasks, depth+1)
	}
}

func newTaskListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print the task tree",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, zapLogger, err := buildApp(cmd.Context())
			if err != nil {
				return err
			}
			defer func() {
				_ = a.Close()
				_ = logger.Sync(zapLogger)
			}()

			printTaskTree(a.Tasks.Tasks(), 0)
			return nil
		},
	}
}

func newTaskAddCmd() *cobra.Command {
	var parentID string

	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Add a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, zapLogger, err := buildApp(ctx)
			if err != nil {
				return err
			}
			defer func() {
				_ = a.Close()
				_ = logger.Sync(zapLogger)
			}()

			id := a.Tasks.Add(ctx, task.AddRequest{
				Title:    args[0],
				Priority: models.PriorityMedium,
			}, parentID)
			if id == "" {
				return fmt.Errorf("parent task %s not found", parentID)
			}
			fmt.Println(id)
			return nil
		},
	}

	cmd.Flags().StringVar(&parentID, "parent", "", "Parent task id")
	return cmd
}

func newTaskDoneCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "done <task-id>",
		Short: "Mark a task as completed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, zapLogger, err := buildApp(ctx)
			if err != nil {
				return err
			}
			defer func() {
				_ = a.Close()
				_ = logger.Sync(zapLogger)
			}()

			completed := true
			if !a.Tasks.Update(ctx, args[0], task.Updates{Completed: &completed}) {
				return fmt.Errorf("task %s not found", args[0])
			}
			return nil
		},
	}
}

func newTaskBreakCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "break <task-id>",
		Short: "Break a task into generated subtasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, zapLogger, err := buildApp(ctx)
			if err != nil {
				return err
			}
			defer func() {
				_ = a.Close()
				_ = logger.Sync(zapLogger)
			}()

			if !a.Tasks.BreakIntoSubtasks(ctx, args[0]) {
				return fmt.Errorf("could not generate subtasks for %s", args[0])
			}
			printTaskTree([]*models.Task{a.Tasks.Get(args[0])}, 0)
			return nil
		},
	}
}
