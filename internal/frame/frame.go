// Package frame implements the tabular result frame returned by queries.
package frame

import (
	"sort"
	"strings"
)

// Row is one result record keyed by column name.
type Row map[string]any

// Frame is an ordered set of columns over a sequence of rows.
// A column may appear more than once (projection preserves duplicates);
// duplicate columns read the same underlying cell.
type Frame struct {
	columns []string
	// preferred is the canonical column order the frame was built with.
	// Projection resolves against it too, so an empty frame still maps
	// requested names to their canonical spelling.
	preferred []string
	rows      []Row
}

// New creates an empty frame with the given column headers.
func New(columns []string) *Frame {
	return &Frame{columns: append([]string(nil), columns...)}
}

// FromRows builds a frame over rows. Column order follows preferred for keys
// present in any row, then any remaining keys alphabetically, so every row in
// one fetch shares a consistent column superset.
func FromRows(rows []Row, preferred []string) *Frame {
	present := map[string]bool{}
	for _, r := range rows {
		for k := range r {
			present[k] = true
		}
	}

	var columns []string
	seen := map[string]bool{}
	for _, col := range preferred {
		if present[col] && !seen[col] {
			columns = append(columns, col)
			seen[col] = true
		}
	}

	var extra []string
	for k := range present {
		if !seen[k] {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	columns = append(columns, extra...)

	return &Frame{
		columns:   columns,
		preferred: append([]string(nil), preferred...),
		rows:      rows,
	}
}

// Columns returns the column headers in order, duplicates included.
func (f *Frame) Columns() []string {
	return f.columns
}

// NumRows returns the number of rows.
func (f *Frame) NumRows() int {
	return len(f.rows)
}

// Values returns row i's cells in column order. Cells for columns absent
// from the row are nil.
func (f *Frame) Values(i int) []any {
	out := make([]any, len(f.columns))
	for j, col := range f.columns {
		if v, ok := f.rows[i][col]; ok {
			out[j] = v
		}
	}
	return out
}

// Records returns all rows as maps keyed by column name.
func (f *Frame) Records() []map[string]any {
	out := make([]map[string]any, len(f.rows))
	for i, r := range f.rows {
		rec := make(map[string]any, len(f.columns))
		for _, col := range f.columns {
			rec[col] = r[col]
		}
		out[i] = rec
	}
	return out
}

// Project applies a column selection. Requested names are lower-cased and
// resolved case-insensitively against the frame's columns first, then the
// preferred order it was built with; a match keeps the canonical spelling,
// so the output schema is stable whether or not any rows arrived. Names
// with no match become null-filled columns under the lower-cased name.
// Order and duplicates are preserved exactly as requested. A frame with
// zero rows keeps just the projected headers.
func (f *Frame) Project(requested []string) *Frame {
	canonical := make(map[string]string, len(f.columns)+len(f.preferred))
	for _, col := range f.columns {
		lowered := strings.ToLower(col)
		if _, ok := canonical[lowered]; !ok {
			canonical[lowered] = col
		}
	}
	for _, col := range f.preferred {
		lowered := strings.ToLower(col)
		if _, ok := canonical[lowered]; !ok {
			canonical[lowered] = col
		}
	}

	columns := make([]string, len(requested))
	for i, name := range requested {
		lowered := strings.ToLower(name)
		if col, ok := canonical[lowered]; ok {
			columns[i] = col
		} else {
			columns[i] = lowered
		}
	}

	return &Frame{columns: columns, preferred: f.preferred, rows: f.rows}
}
