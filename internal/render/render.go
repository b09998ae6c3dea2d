// Package render writes board views as plain-text tables.
package render

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/gosuda/agileboard/internal/board"
	"github.com/gosuda/agileboard/internal/domain"
)

const (
	shortIDLen  = 8
	maxTitleLen = 40
	empty       = "-"
)

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

// Kanban writes the columns side by side, one task per cell.
func Kanban(w io.Writer, cols []board.Column) error {
	tw := newTable(w)

	headers := make([]string, len(cols))
	rows := 0
	for i, col := range cols {
		headers[i] = fmt.Sprintf("%s (%d)", strings.ToUpper(string(col.Status)), len(col.Tasks))
		rows = max(rows, len(col.Tasks))
	}
	fmt.Fprintln(tw, strings.Join(headers, "\t"))

	cells := make([]string, len(cols))
	for r := range rows {
		for i, col := range cols {
			cells[i] = ""
			if r < len(col.Tasks) {
				t := col.Tasks[r]
				cells[i] = ShortID(t.ID.String()) + " " + Title(t.Title)
			}
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	return tw.Flush()
}

// Backlog writes one row per task in the given order.
func Backlog(w io.Writer, tasks []*domain.Task) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tPRIORITY\tDUE\tSTATUS\tASSIGNEE\tTITLE")
	for _, t := range tasks {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			ShortID(t.ID.String()), t.Priority, due(t), t.Status, assignee(t), Title(t.Title))
	}
	return tw.Flush()
}

// Task writes the details of a single task.
func Task(w io.Writer, t *domain.Task) error {
	tw := newTable(w)
	fmt.Fprintf(tw, "ID:\t%s\n", t.ID)
	fmt.Fprintf(tw, "Title:\t%s\n", t.Title)
	fmt.Fprintf(tw, "Status:\t%s\n", t.Status)
	fmt.Fprintf(tw, "Priority:\t%s\n", t.Priority)
	fmt.Fprintf(tw, "Due:\t%s\n", due(t))
	fmt.Fprintf(tw, "Assignee:\t%s\n", assignee(t))
	if d := strings.TrimSpace(t.Description); d != "" {
		fmt.Fprintf(tw, "Description:\t%s\n", strings.ReplaceAll(d, "\n", " "))
	}
	return tw.Flush()
}

// Projects writes a project list.
func Projects(w io.Writer, projects []*domain.Project) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tNAME\tDESCRIPTION")
	for _, p := range projects {
		desc := p.Description
		if desc == "" {
			desc = empty
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", p.ID, Title(p.Name), Title(desc))
	}
	return tw.Flush()
}

// Event writes a one-line description of a live board event.
func Event(w io.Writer, ev domain.BoardEvent) error {
	var err error
	switch {
	case ev.Task == nil:
		_, err = fmt.Fprintf(w, "%s %s\n", ev.Type, ShortID(ev.TaskID.String()))
	case ev.Type == domain.BoardEventTaskMoved:
		_, err = fmt.Fprintf(w, "%s %s %q -> %s\n", ev.Type, ShortID(ev.TaskID.String()), Title(ev.Task.Title), ev.Task.Status)
	default:
		_, err = fmt.Fprintf(w, "%s %s %q\n", ev.Type, ShortID(ev.TaskID.String()), Title(ev.Task.Title))
	}
	return err
}

// Title flattens a title to one line and truncates long ones.
func Title(title string) string {
	title = strings.ReplaceAll(title, "\r", " ")
	title = strings.ReplaceAll(title, "\n", " ")
	title = strings.ReplaceAll(title, "\t", " ")
	if strings.TrimSpace(title) == "" {
		return "(untitled)"
	}
	if r := []rune(title); len(r) > maxTitleLen {
		return string(r[:maxTitleLen-1]) + "…"
	}
	return title
}

func ShortID(id string) string {
	if len(id) > shortIDLen {
		return id[:shortIDLen]
	}
	return id
}

func due(t *domain.Task) string {
	if t.DueDate == nil {
		return empty
	}
	return t.DueDate.String()
}

func assignee(t *domain.Task) string {
	switch {
	case t.AssignedTo != nil && t.AssignedTo.Name != "":
		return t.AssignedTo.Name
	case t.AssignedTo != nil:
		return t.AssignedTo.Email
	case t.AssignedToID != nil:
		return ShortID(t.AssignedToID.String())
	default:
		return empty
	}
}
