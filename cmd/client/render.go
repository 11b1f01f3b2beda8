package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/atinyakov/JobTracker/internal/client/board"
	"github.com/atinyakov/JobTracker/internal/models"
	"github.com/olekukonko/tablewriter"
)

// renderBoard prints the four columns side by side.
func renderBoard(w io.Writer, g board.Grouping) {
	table := tablewriter.NewWriter(w)

	header := make([]any, len(models.Statuses))
	rows := 0
	for i, s := range models.Statuses {
		header[i] = fmt.Sprintf("%s (%d)", s, len(g.Column(s)))
		rows = max(rows, len(g.Column(s)))
	}
	table.Header(header...)

	for r := 0; r < rows; r++ {
		cells := make([]any, len(models.Statuses))
		for i, s := range models.Statuses {
			col := g.Column(s)
			if r < len(col) {
				cells[i] = card(col[r])
			} else {
				cells[i] = ""
			}
		}
		table.Append(cells...)
	}
	table.Render()

	if n := len(g.Unmatched); n > 0 {
		fmt.Fprintf(w, "%d record(s) with an unknown status are not shown\n", n)
	}
}

func card(a models.Application) string {
	return "#" + strconv.FormatInt(a.ID, 10) + " " + a.Company + " (" + a.Position + ")"
}

// renderStats prints per-status counts.
func renderStats(w io.Writer, s *models.Stats) {
	table := tablewriter.NewWriter(w)
	table.Header("Status", "Count")
	for _, st := range models.Statuses {
		table.Append(string(st), strconv.Itoa(s.ByStatus[st]))
	}
	table.Append("Total", strconv.Itoa(s.Total))
	table.Render()
}
