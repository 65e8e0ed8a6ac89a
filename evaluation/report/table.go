/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package report renders evaluation results as markdown tables.
package report

import (
	"bytes"
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"
)

// newTable creates a table writer with the formatting shared by every report.
func newTable(headers []string, w io.Writer) *tablewriter.Table {
	cfg := tablewriter.Config{
		Header: tw.CellConfig{
			Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			Formatting: tw.CellFormatting{AutoFormat: tw.Off},
		},
		Row: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignLeft},
		},
		MaxWidth: 100,
		Behavior: tw.Behavior{TrimSpace: tw.Off},
	}
	return tablewriter.NewTable(w,
		tablewriter.WithConfig(cfg),
		tablewriter.WithHeader(headers),
		tablewriter.WithRenderer(renderer.NewBlueprint()),
		tablewriter.WithRendition(tw.Rendition{
			Symbols: tw.NewSymbols(tw.StyleMarkdown),
			Borders: tw.Border{
				Left:   tw.On,
				Top:    tw.Off,
				Right:  tw.On,
				Bottom: tw.Off,
			},
		}),
		tablewriter.WithRowAutoWrap(tw.WrapNone),
	)
}

// Section is a titled markdown table.
type Section struct {
	Title   string
	Headers []string
	Rows    [][]string
}

// String renders the section as a "## Title" heading followed by the table.
func (s Section) String() string {
	var buf bytes.Buffer
	table := newTable(s.Headers, &buf)
	for _, row := range s.Rows {
		_ = table.Append(row)
	}
	_ = table.Render()

	if s.Title == "" {
		return buf.String()
	}
	return fmt.Sprintf("## %s\n\n%s", s.Title, buf.String())
}

// Write renders sections to w separated by blank lines.
func Write(w io.Writer, sections ...Section) error {
	for i, s := range sections {
		if i > 0 {
			if _, err := io.WriteString(w, "\n"); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, s.String()); err != nil {
			return err
		}
	}
	return nil
}

// Score formats a value on the 0-5 rubric scale, e.g. "4.25 / 5.0".
func Score(v, maxScore float64) string {
	return fmt.Sprintf("%.2f / %.1f", v, maxScore)
}
