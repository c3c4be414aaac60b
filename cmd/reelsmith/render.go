package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"reelsmith/internal/events"
	"reelsmith/internal/workflow"
)

var titleCaser = cases.Title(language.English)

// displayName turns a snake_case phase or workflow name into a label.
func displayName(name string) string {
	return titleCaser.String(strings.ReplaceAll(name, "_", " "))
}

func colorEnabled() bool {
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}

func statusLabel(status workflow.Status) string {
	label := string(status)
	if !colorEnabled() {
		return label
	}
	switch status {
	case workflow.StatusCompleted:
		return text.FgGreen.Sprint(label)
	case workflow.StatusFailed:
		return text.FgRed.Sprint(label)
	case workflow.StatusCancelled:
		return text.FgYellow.Sprint(label)
	case workflow.StatusRunning:
		return text.FgCyan.Sprint(label)
	default:
		return label
	}
}

func formatCost(cost float64) string {
	return fmt.Sprintf("$%.2f", cost)
}

func formatProgress(snapshot workflow.Snapshot) string {
	return fmt.Sprintf("%d/%d", snapshot.PhasesCompleted, snapshot.TotalPhases)
}

func formatAge(created time.Time) string {
	if created.IsZero() {
		return "-"
	}
	age := time.Since(created).Round(time.Second)
	if age < 0 {
		age = 0
	}
	return age.String()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func workflowRows(snapshots []workflow.Snapshot) [][]string {
	rows := make([][]string, 0, len(snapshots))
	for _, snapshot := range snapshots {
		rows = append(rows, []string{
			shortID(snapshot.ID),
			displayName(string(snapshot.Type)),
			snapshot.Topic,
			statusLabel(snapshot.Status),
			formatProgress(snapshot),
			formatCost(snapshot.CostUSD),
			formatAge(snapshot.CreatedAt),
		})
	}
	return rows
}

func renderWorkflowTable(snapshots []workflow.Snapshot) string {
	return renderTable(
		[]string{"ID", "Type", "Topic", "Status", "Phases", "Cost", "Age"},
		workflowRows(snapshots),
		4, 5,
	)
}

func renderPhaseTable(snapshot workflow.Snapshot) string {
	rows := make([][]string, 0, len(snapshot.Phases))
	for _, p := range snapshot.Phases {
		detail := p.Error
		if p.Barrier && detail == "" {
			detail = "barrier"
		}
		rows = append(rows, []string{
			displayName(p.Name),
			statusLabel(p.Status),
			formatCost(p.CostUSD),
			detail,
		})
	}
	return renderTable([]string{"Phase", "Status", "Cost", "Detail"}, rows, 2)
}

// formatEvent renders one stream event as a log-style line.
func formatEvent(evt events.Event) string {
	var b strings.Builder
	b.WriteString(evt.Timestamp.Local().Format("15:04:05"))
	b.WriteByte(' ')
	b.WriteString(shortID(evt.WorkflowID))
	b.WriteByte(' ')
	b.WriteString(string(evt.Kind))
	if evt.PhaseName != "" {
		fmt.Fprintf(&b, " [%s]", evt.PhaseName)
	}
	if evt.Progress != nil {
		fmt.Fprintf(&b, " %.0f%%", *evt.Progress)
	}
	if evt.CostDelta != nil {
		fmt.Fprintf(&b, " +$%.3f", *evt.CostDelta)
	}
	if evt.Message != "" {
		b.WriteString(" ")
		b.WriteString(evt.Message)
	}
	return b.String()
}
