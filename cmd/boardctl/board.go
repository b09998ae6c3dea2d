package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/gosuda/agileboard/internal/board"
	"github.com/gosuda/agileboard/internal/domain"
	"github.com/gosuda/agileboard/internal/render"
)

var (
	errNoSuchTask    = errors.New("no task matches")
	errAmbiguousTask = errors.New("task reference is ambiguous")
)

// resolveTask finds a task by full ID or unique ID prefix.
func resolveTask(tasks []*domain.Task, ref string) (*domain.Task, error) {
	ref = strings.ToLower(strings.TrimSpace(ref))
	if ref == "" {
		return nil, fmt.Errorf("%w: empty reference", errNoSuchTask)
	}
	if id, err := uuid.Parse(ref); err == nil {
		for _, t := range tasks {
			if t.ID == id {
				return t, nil
			}
		}
		return nil, fmt.Errorf("%w %q", errNoSuchTask, ref)
	}

	var match *domain.Task
	for _, t := range tasks {
		if strings.HasPrefix(t.ID.String(), ref) {
			if match != nil {
				return nil, fmt.Errorf("%w: %q", errAmbiguousTask, ref)
			}
			match = t
		}
	}
	if match == nil {
		return nil, fmt.Errorf("%w %q", errNoSuchTask, ref)
	}
	return match, nil
}

func (a *app) projectsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "projects",
		Short: "List your projects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.authedClient()
			if err != nil {
				return err
			}
			ctx, cancel := a.withTimeout(cmd.Context())
			defer cancel()

			projects, err := c.ListProjects(ctx)
			if err != nil {
				return err
			}
			return render.Projects(a.out, projects)
		},
	}

	create := &cobra.Command{
		Use:   "create NAME",
		Short: "Create a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.authedClient()
			if err != nil {
				return err
			}
			desc, _ := cmd.Flags().GetString("description")
			ctx, cancel := a.withTimeout(cmd.Context())
			defer cancel()

			p, err := c.CreateProject(ctx, args[0], desc)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, p.ID)
			return nil
		},
	}
	create.Flags().String("description", "", "project description")
	cmd.AddCommand(create)
	return cmd
}

func (a *app) boardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "board",
		Short: "Show the Kanban board",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := a.withTimeout(cmd.Context())
			defer cancel()

			b, _, err := a.loadBoard(ctx)
			if err != nil {
				return err
			}
			return render.Kanban(a.out, b.Columns())
		},
	}
}

func (a *app) backlogCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backlog",
		Short: "List tasks by priority and due date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := a.withTimeout(cmd.Context())
			defer cancel()

			b, _, err := a.loadBoard(ctx)
			if err != nil {
				return err
			}
			return render.Backlog(a.out, b.Backlog())
		},
	}
}

// report prints the outcome of a move. A rollback is returned as an error so
// the exit status reflects it.
func (a *app) report(task *domain.Task, res board.Result) error {
	switch res.Outcome {
	case board.OutcomeNoop:
		fmt.Fprintf(a.out, "%s already in %s\n", render.ShortID(task.ID.String()), res.Change.Previous)
	case board.OutcomeConfirmed:
		fmt.Fprintf(a.out, "%s %s: %s -> %s\n", render.ShortID(task.ID.String()), render.Title(task.Title),
			res.Change.Previous, res.Change.Pending)
	case board.OutcomeRolledBack:
		return fmt.Errorf("move of %s rejected, still in %s: %w",
			render.ShortID(task.ID.String()), res.Change.Previous, res.Cause)
	}
	return nil
}

func (a *app) moveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "move TASK STATUS",
		Short: "Move a task to a column (to-do, in-progress, done)",
		Args:  cobra.ExactArgs(2),
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
			res, err := b.Move(ctx, task.ID, domain.TaskStatus(args[1]))
			if err != nil {
				return err
			}
			return a.report(task, res)
		},
	}
}

func (a *app) dropCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "drop TASK TARGET",
		Short: "Drop a task onto a column or onto another task",
		Long: "Drop TASK onto TARGET. TARGET is a column (to-do, in-progress, done) " +
			"or another task, in which case TASK joins that task's column.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.withTimeout(cmd.Context())
			defer cancel()

			b, _, err := a.loadBoard(ctx)
			if err != nil {
				return err
			}
			tasks := b.Snapshot()
			task, err := resolveTask(tasks, args[0])
			if err != nil {
				return err
			}
			target := args[1]
			if !domain.TaskStatus(target).Valid() {
				if t, refErr := resolveTask(tasks, target); refErr == nil {
					target = t.ID.String()
				}
			}
			res, err := b.Drop(ctx, task.ID, target)
			if err != nil {
				return err
			}
			return a.report(task, res)
		},
	}
}

func (a *app) watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Stream live board changes until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			b, c, err := a.loadBoard(ctx)
			if err != nil {
				return err
			}
			events, err := c.SubscribeBoard(ctx, b.ProjectID())
			if err != nil {
				return err
			}
			if err := render.Kanban(a.out, b.Columns()); err != nil {
				return err
			}
			for ev := range events {
				b.ApplyEvent(ev)
				if err := render.Event(a.out, ev); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func (a *app) inviteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "invite EMAIL",
		Short: "Invite someone to the project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.authedClient()
			if err != nil {
				return err
			}
			projectID, err := a.projectID()
			if err != nil {
				return err
			}
			ctx, cancel := a.withTimeout(cmd.Context())
			defer cancel()

			inv, err := c.Invite(ctx, projectID, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "invited %s (expires %s)\n", inv.Email, inv.ExpiresAt.Format("2006-01-02"))
			return nil
		},
	}
}

func (a *app) invitationsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "invitations",
		Short: "List invitations addressed to you",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.authedClient()
			if err != nil {
				return err
			}
			ctx, cancel := a.withTimeout(cmd.Context())
			defer cancel()

			invs, err := c.MyInvitations(ctx)
			if err != nil {
				return err
			}
			for _, inv := range invs {
				fmt.Fprintf(a.out, "%s\tproject %s\texpires %s\n", inv.Token, inv.ProjectID, inv.ExpiresAt.Format("2006-01-02"))
			}
			return nil
		},
	}
}

func (a *app) acceptCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "accept TOKEN",
		Short: "Accept an invitation and join its project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.authedClient()
			if err != nil {
				return err
			}
			ctx, cancel := a.withTimeout(cmd.Context())
			defer cancel()

			m, err := c.AcceptInvitation(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "joined project %s\n", m.ProjectID)
			return nil
		},
	}
}
