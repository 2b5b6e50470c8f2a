package formatter

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// TableFormatter formats output as aligned text tables.
type TableFormatter struct {
	// MaxWidth truncates long cells (0 = no limit).
	MaxWidth int
}

// NewTableFormatter creates a new table formatter.
func NewTableFormatter() *TableFormatter {
	return &TableFormatter{MaxWidth: 60}
}

// Name returns the formatter name.
func (f *TableFormatter) Name() string {
	return "table"
}

// Format writes t as a table.
func (f *TableFormatter) Format(w io.Writer, v any, t Table) error {
	if len(t.Rows) == 0 {
		fmt.Fprintln(w, "No records found.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	if len(t.Header) > 0 {
		headers := make([]string, len(t.Header))
		for i, h := range t.Header {
			headers[i] = strings.ToUpper(h)
		}
		fmt.Fprintln(tw, strings.Join(headers, "\t"))
	}

	for _, row := range t.Rows {
		cells := make([]string, len(row))
		for i, cell := range row {
			cells[i] = f.cell(cell)
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}

	return tw.Flush()
}

func (f *TableFormatter) cell(s string) string {
	if s == "" {
		return "-"
	}
	s = strings.ReplaceAll(s, "\n", " ")
	if f.MaxWidth > 3 && len(s) > f.MaxWidth {
		s = s[:f.MaxWidth-3] + "..."
	}
	return s
}

func init() {
	Register(NewTableFormatter())
}
