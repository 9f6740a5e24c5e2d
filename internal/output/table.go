package output

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// Table lines up rows under a header for text output. The last column is
// never padded.
type Table struct {
	headers []string
	rows    [][]string
}

// NewTable starts a table with the given column headers.
func NewTable(headers ...string) *Table {
	return &Table{headers: headers}
}

// AddRow appends a row. Missing trailing cells render empty.
func (t *Table) AddRow(cells ...string) {
	t.rows = append(t.rows, cells)
}

// Render writes the header, a dashed rule under each header and the rows.
func (t *Table) Render(w io.Writer) error {
	if len(t.headers) == 0 && len(t.rows) == 0 {
		return nil
	}

	cols := len(t.headers)
	for _, row := range t.rows {
		cols = max(cols, len(row))
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if len(t.headers) > 0 {
		rule := make([]string, len(t.headers))
		for i, h := range t.headers {
			rule[i] = strings.Repeat("-", len(h))
		}
		if err := writeCells(tw, t.headers, cols); err != nil {
			return err
		}
		if err := writeCells(tw, rule, cols); err != nil {
			return err
		}
	}
	for _, row := range t.rows {
		if err := writeCells(tw, row, cols); err != nil {
			return err
		}
	}
	return tw.Flush()
}

func writeCells(w io.Writer, cells []string, cols int) error {
	line := make([]string, cols)
	copy(line, cells)
	_, err := fmt.Fprintln(w, strings.Join(line, "\t"))
	return err
}
