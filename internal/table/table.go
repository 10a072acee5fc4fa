package table

import (
	"strconv"
	"strings"
)

// Row maps column names to cell values. Missing columns read as empty.
type Row map[string]string

// Get returns the value for column and whether the row carries it.
func (r Row) Get(column string) (string, bool) {
	v, ok := r[column]
	return v, ok
}

// Table is an ordered header plus rows.
type Table struct {
	Header []string
	Rows   []Row
}

// New returns an empty table with a copy of header.
func New(header []string) *Table {
	return &Table{Header: append([]string(nil), header...)}
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// HasColumn reports whether column is part of the header.
func (t *Table) HasColumn(column string) bool {
	for _, c := range t.Header {
		if c == column {
			return true
		}
	}
	return false
}

// Append adds a row to the table.
func (t *Table) Append(row Row) {
	t.Rows = append(t.Rows, row)
}

// Values returns row's cells in header order, with empty strings for columns
// the row lacks.
func (t *Table) Values(row Row) []string {
	values := make([]string, len(t.Header))
	for i, column := range t.Header {
		values[i] = row[column]
	}
	return values
}

// Key returns a full-row identity key over the table header. Two rows share a
// key exactly when every column holds the same value.
func (t *Table) Key(row Row) string {
	var b strings.Builder
	for _, column := range t.Header {
		v := row[column]
		b.WriteString(strconv.Itoa(len(v)))
		b.WriteByte(':')
		b.WriteString(v)
	}
	return b.String()
}

// UnionHeader merges headers keeping first-seen column order.
func UnionHeader(headers ...[]string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, header := range headers {
		for _, column := range header {
			if _, ok := seen[column]; ok {
				continue
			}
			seen[column] = struct{}{}
			out = append(out, column)
		}
	}
	return out
}
