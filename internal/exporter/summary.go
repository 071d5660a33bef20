package exporter

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"
)

// SummaryRow is one stage line of the run summary
type SummaryRow struct {
	Stage    string
	Outcome  string
	Read     int
	Skipped  int
	Filtered int
	Dropped  int
	Kept     int
}

var summaryHeader = []string{"stage", "outcome", "read", "skipped", "filtered", "dropped", "kept"}

// WriteSummary renders rows as an aligned markdown table. Text columns are
// left aligned and counts right aligned, measured in display width.
func WriteSummary(w io.Writer, rows []SummaryRow) error {
	table := [][]string{summaryHeader}
	for _, r := range rows {
		table = append(table, []string{
			r.Stage,
			r.Outcome,
			strconv.Itoa(r.Read),
			strconv.Itoa(r.Skipped),
			strconv.Itoa(r.Filtered),
			strconv.Itoa(r.Dropped),
			strconv.Itoa(r.Kept),
		})
	}

	widths := make([]int, len(summaryHeader))
	for _, row := range table {
		for i, cell := range row {
			if width := runewidth.StringWidth(cell); width > widths[i] {
				widths[i] = width
			}
		}
	}
	for i := range widths {
		if widths[i] < 3 {
			widths[i] = 3
		}
	}

	var sb strings.Builder
	for r, row := range table {
		sb.WriteString("|")
		for i, cell := range row {
			sb.WriteString(" ")
			if i < 2 {
				sb.WriteString(runewidth.FillRight(cell, widths[i]))
			} else {
				sb.WriteString(runewidth.FillLeft(cell, widths[i]))
			}
			sb.WriteString(" |")
		}
		sb.WriteString("\n")

		if r == 0 {
			sb.WriteString("|")
			for _, width := range widths {
				sb.WriteString(" " + strings.Repeat("-", width) + " |")
			}
			sb.WriteString("\n")
		}
	}

	if _, err := io.WriteString(w, sb.String()); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}
	return nil
}
