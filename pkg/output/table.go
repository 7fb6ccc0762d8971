// Package output renders operator status for humans and for scripts.
package output

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
)

// TableWriter accumulates rows and renders them as aligned columns.
type TableWriter struct {
	writer     *tabwriter.Writer
	headers    []string
	rows       [][]string
	separator  string
	showBorder bool
}

// NewTableTo creates a table writer that outputs to w.
func NewTableTo(w io.Writer) *TableWriter {
	return &TableWriter{
		writer:     tabwriter.NewWriter(w, 0, 0, 2, ' ', 0),
		separator:  "-",
		showBorder: true,
	}
}

// WithHeaders sets the column headers.
func (t *TableWriter) WithHeaders(headers ...string) *TableWriter {
	t.headers = headers
	return t
}

// WithBorder controls the separator lines above and below the headers.
func (t *TableWriter) WithBorder(show bool) *TableWriter {
	t.showBorder = show
	return t
}

// AddRow adds one row. Empty cells render as "-".
func (t *TableWriter) AddRow(values ...string) *TableWriter {
	row := make([]string, len(values))
	for i, v := range values {
		if v == "" {
			v = "-"
		}
		row[i] = v
	}
	t.rows = append(t.rows, row)
	return t
}

// Render writes the table and flushes.
func (t *TableWriter) Render() error {
	if len(t.headers) > 0 {
		if t.showBorder {
			width := 0
			for _, h := range t.headers {
				width += len(h) + 4
			}
			fmt.Fprintln(t.writer, strings.Repeat(t.separator, width))
		}
		fmt.Fprintln(t.writer, strings.Join(t.headers, "\t"))
		if t.showBorder {
			seps := make([]string, len(t.headers))
			for i, h := range t.headers {
				seps[i] = strings.Repeat(t.separator, len(h))
			}
			fmt.Fprintln(t.writer, strings.Join(seps, "\t"))
		}
	}

	for _, row := range t.rows {
		fmt.Fprintln(t.writer, strings.Join(row, "\t"))
	}
	return t.writer.Flush()
}

// KeyValueTable renders data as a two column table sorted by key.
func KeyValueTable(w io.Writer, data map[string]string) error {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	table := NewTableTo(w).WithHeaders("KEY", "VALUE")
	for _, k := range keys {
		table.AddRow(k, data[k])
	}
	return table.Render()
}
