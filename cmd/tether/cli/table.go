// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true)
	runningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	exitedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	failedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
)

// Table collects rows and writes them with aligned columns. Cells may
// carry escape sequences; widths are measured on visible text.
type Table struct {
	header []string
	rows   [][]string

	// MaxWidth truncates the last column so rows fit. Zero disables it.
	MaxWidth int
}

// NewTable returns a table with the given column headers.
func NewTable(header ...string) *Table {
	return &Table{header: header}
}

// Append adds a row. Missing cells are blank and extra cells dropped.
func (t *Table) Append(cells ...string) {
	row := make([]string, len(t.header))
	copy(row, cells)
	t.rows = append(t.rows, row)
}

// Render writes the table. styled selects bold headers; plain output
// is for pipes.
func (t *Table) Render(w io.Writer, styled bool) error {
	widths := make([]int, len(t.header))
	for i, title := range t.header {
		widths[i] = ansi.StringWidth(title)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			widths[i] = max(widths[i], ansi.StringWidth(cell))
		}
	}

	header := make([]string, len(t.header))
	for i, title := range t.header {
		header[i] = title
		if styled {
			header[i] = headerStyle.Render(title)
		}
	}
	if err := t.writeRow(w, header, widths); err != nil {
		return err
	}
	for _, row := range t.rows {
		if err := t.writeRow(w, row, widths); err != nil {
			return err
		}
	}
	return nil
}

func (t *Table) writeRow(w io.Writer, cells []string, widths []int) error {
	var line strings.Builder
	for i, cell := range cells {
		if i == len(cells)-1 {
			if t.MaxWidth > 0 {
				remaining := max(t.MaxWidth-ansi.StringWidth(line.String()), 1)
				cell = ansi.Truncate(cell, remaining, "…")
			}
			line.WriteString(cell)
			break
		}
		line.WriteString(cell)
		line.WriteString(strings.Repeat(" ", widths[i]-ansi.StringWidth(cell)+2))
	}
	_, err := fmt.Fprintln(w, strings.TrimRight(line.String(), " "))
	return err
}

// StateLabel renders a session state, colored when styled: running in
// green, a clean exit in gray, a failed exit in red.
func StateLabel(state string, exitCode int, styled bool) string {
	label := state
	style := runningStyle
	if state != "running" {
		label = fmt.Sprintf("%s(%d)", state, exitCode)
		style = exitedStyle
		if exitCode != 0 {
			style = failedStyle
		}
	}
	if !styled {
		return label
	}
	return style.Render(label)
}
