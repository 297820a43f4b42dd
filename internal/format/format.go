// Package format renders process graphs, resolutions and journal entries as
// terminal, Markdown or CSV tables.
package format

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// Mode selects how a table is rendered.
type Mode int

const (
	ASCII    Mode = iota // box-drawn terminal table
	Markdown             // GitHub-flavoured Markdown
	CSV                  // comma-separated values, header first
)

var modeNames = map[Mode]string{ASCII: "ascii", Markdown: "markdown", CSV: "csv"}

func (m Mode) String() string {
	if n, ok := modeNames[m]; ok {
		return n
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// ParseMode maps "ascii", "markdown" (or "md") and "csv" to a Mode. An empty
// string is ASCII.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "ascii", "table":
		return ASCII, nil
	case "markdown", "md":
		return Markdown, nil
	case "csv":
		return CSV, nil
	}
	return ASCII, fmt.Errorf("unknown table format %q (want ascii, markdown or csv)", s)
}

// ColumnAlign is the horizontal alignment of a column.
type ColumnAlign int

const (
	AlignDefault ColumnAlign = iota
	AlignLeft
	AlignCenter
	AlignRight
)

// ColumnConfig formats one column. Number is 1-based; MaxWidth 0 means no
// limit.
type ColumnConfig struct {
	Number   int
	Align    ColumnAlign
	MaxWidth int
}

// TableBuilder collects a header, rows and an optional footer, then renders
// them in the Mode chosen at creation.
type TableBuilder interface {
	Header(cols ...string)
	// Row appends a data row. Values are rendered with fmt.Sprint.
	Row(vals ...any)
	Footer(vals ...any)
	Columns(cfgs ...ColumnConfig)
	Len() int
	String() string
}

// NewTable returns a TableBuilder that renders in the given Mode.
func NewTable(m Mode) TableBuilder {
	w := table.NewWriter()
	if m == ASCII {
		w.SetStyle(table.StyleLight)
	}
	return &prettyTable{w: w, mode: m}
}

type prettyTable struct {
	w    table.Writer
	mode Mode
	rows int
}

func (t *prettyTable) Header(cols ...string) {
	hdr := make(table.Row, 0, len(cols))
	for _, c := range cols {
		hdr = append(hdr, c)
	}
	t.w.AppendHeader(hdr)
}

func (t *prettyTable) Row(vals ...any) {
	t.w.AppendRow(table.Row(vals))
	t.rows++
}

func (t *prettyTable) Footer(vals ...any) {
	t.w.AppendFooter(table.Row(vals))
}

func (t *prettyTable) Len() int { return t.rows }

func (t *prettyTable) Columns(cfgs ...ColumnConfig) {
	out := make([]table.ColumnConfig, 0, len(cfgs))
	for _, c := range cfgs {
		out = append(out, table.ColumnConfig{
			Number:   c.Number,
			Align:    align(c.Align),
			WidthMax: c.MaxWidth,
		})
	}
	t.w.SetColumnConfigs(out)
}

func (t *prettyTable) String() string {
	switch t.mode {
	case Markdown:
		return t.w.RenderMarkdown()
	case CSV:
		return t.w.RenderCSV()
	default:
		return t.w.Render()
	}
}

func align(a ColumnAlign) text.Align {
	switch a {
	case AlignLeft:
		return text.AlignLeft
	case AlignCenter:
		return text.AlignCenter
	case AlignRight:
		return text.AlignRight
	}
	return text.AlignDefault
}
