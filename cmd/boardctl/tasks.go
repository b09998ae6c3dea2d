package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/gosuda/agileboard/internal/client"
	"github.com/gosuda/agileboard/internal/domain"
	"github.com/gosuda/agileboard/internal/render"
)

func taskFieldFlags(fs *pflag.FlagSet) {
	fs.String("title", "", "task title")
	fs.String("description", "", "task description")
	fs.String("priority", "", "low, medium or high")
	fs.String("due", "", "due date (YYYY-MM-DD)")
	fs.String("assignee", "", "assignee: user ID, member email, or \"me\"")
}

// resolveAssignee turns a user ID, member email or "me" into a user ID.
func resolveAssignee(ctx context.Context, c *client.Client, projectID uuid.UUID, ref string) (*uuid.UUID, error) {
	if ref == "me" {
		me, err := c.Me(ctx)
		if err != nil {
			return nil, err
		}
		return &me.ID, nil
	}
	if id, err := uuid.Parse(ref); err == nil {
		return &id, nil
	}

	members, err := c.ListMembers(ctx, projectID)
	if err != nil {
		return nil, err
	}
	email := domain.NormalizeEmail(ref)
	for _, m := range members {
		if m.User != nil && domain.NormalizeEmail(m.User.Email) == email {
			id := m.UserID
			return &id, nil
		}
	}
	return nil, fmt.Errorf("no project member with email %q", ref)
}

// applyTaskFlags copies the flags the user set onto in.
func applyTaskFlags(ctx context.Context, cmd *cobra.Command, c *client.Client, projectID uuid.UUID, in *client.TaskInput) error {
	fs := cmd.Flags()
	if fs.Changed("title") {
		in.Title, _ = fs.GetString("title")
	}
	if fs.Changed("description") {
		in.Description, _ = fs.GetString("description")
	}
	if fs.Changed("priority") {
		raw, _ := fs.GetString("priority")
		p, err := domain.ParseTaskPriority(raw)
		if err != nil {
			return err
		}
		in.Priority = p
	}
	if fs.Changed("due") {
		raw, _ := fs.GetString("due")
		if raw == "" {
			in.DueDate = nil
		} else {
			d, err := domain.ParseDate(raw)
			if err != nil {
				return fmt.Errorf("invalid --due %q: %w", raw, err)
			}
			in.DueDate = &d
		}
	}
	if fs.Changed("assignee") {
		raw, _ := fs.GetString("assignee")
		if raw == "" {
			in.AssignedToID = nil
		} else {
			id, err := resolveAssignee(ctx, c, projectID, raw)
			if err != nil {
				return err
			}
			in.AssignedToID = id
		}
	}
	return nil
}

func (a *app) taskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Create, show, edit and delete tasks",
	}
	cmd.AddCommand(a.taskCreateCmd(), a.taskShowCmd(), a.taskEditCmd(), a.taskDeleteCmd())
	return cmd
}

func (a *app) taskCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a task in the to-do column",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := a.withTimeout(cmd.Context())
			defer cancel()

			b, c, err := a.loadBoard(ctx)
			if err != nil {
				return err
			}
			var in client.TaskInput
			if err := applyTaskFlags(ctx, cmd, c, b.ProjectID(), &in); err != nil {
				return err
			}
			if strings.TrimSpace(in.Title) == "" {
				return errors.New("--title is required")
			}
			task, err := b.Create(ctx, in)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, task.ID)
			return nil
		},
	}
	taskFieldFlags(cmd.Flags())
	return cmd
}

func (a *app) taskShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show TASK",
		Short: "Show a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.withTimeout(cmd.Context())
			defer cancel()

			b, _, err := a.loadBoard(ctx)
			if err != nil {
				return err
			}
			task, err := resolveTask(b.Snapshot(), args[0])
			if err != nil {
				return err
			}
			return render.Task(a.out, task)
		},
	}
}

func (a *app) taskEditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edit TASK",
		Short: "Change a task's fields; unset flags keep their value",
		Long: "Change a task's fields. Flags that are not given keep the current value; " +
			"pass an empty --due or --assignee to clear it.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.withTimeout(cmd.Context())
			defer cancel()

			b, c, err := a.loadBoard(ctx)
			if err != nil {
				return err
			}
			task, err := resolveTask(b.Snapshot(), args[0])
			if err != nil {
				return err
			}
			in := client.InputFromTask(task)
			if err := applyTaskFlags(ctx, cmd, c, b.ProjectID(), &in); err != nil {
				return err
			}
			if _, err := b.Update(ctx, task.ID, in); err != nil {
				return err
			}
			updated, _ := b.Task(task.ID)
			return render.Task(a.out, updated)
		},
	}
	taskFieldFlags(cmd.Flags())
	return cmd
}

func (a *app) taskDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete TASK",
		Short: "Delete a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.withTimeout(cmd.Context())
			defer cancel()

			b, _, err := a.loadBoard(ctx)
			if err != nil {
				return err
			}
			task, err := resolveTask(b.Snapshot(), args[0])
			if err != nil {
				return err
			}
			if err := b.Delete(ctx, task.ID); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "deleted %s\n", render.ShortID(task.ID.String()))
			return nil
		},
	}
}
