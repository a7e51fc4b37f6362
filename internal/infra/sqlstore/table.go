package sqlstore

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// RowSource is the part of *sql.Rows the materializer needs.
type RowSource interface {
	Columns() ([]string, error)
	Next() bool
	Scan(dest ...any) error
	Err() error
}

type columnTyper interface {
	ColumnTypes() ([]*sql.ColumnType, error)
}

// Column describes one result column. Source holds the name the database
// returned when the column had to be renamed.
type Column struct {
	Name   string `json:"name"`
	Source string `json:"source,omitempty"`
	Type   string `json:"type,omitempty"`
}

// Table is a materialized result set.
type Table struct {
	Columns   []Column `json:"columns"`
	Rows      [][]any  `json:"rows"`
	Truncated bool     `json:"truncated,omitempty"`
}

// RowCount returns the number of rows.
func (t *Table) RowCount() int {
	return len(t.Rows)
}

// ColumnIndex returns the index of the named column, ignoring case, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if strings.EqualFold(c.Name, name) {
			return i
		}
	}
	return -1
}

// UniqueColumnNames makes column names unique ignoring case. The first
// occurrence keeps its name; later ones get a counter suffix starting at 2
// ("Cliente", "Cliente2", "Cliente3"), skipping any suffix already taken.
// When there is nothing to rename the input slice is returned as is and
// renamed is false.
func UniqueColumnNames(names []string) (out []string, renamed bool) {
	seen := make(map[string]struct{}, len(names))
	for _, n := range names {
		key := strings.ToLower(n)
		if _, dup := seen[key]; dup {
			renamed = true
			break
		}
		seen[key] = struct{}{}
	}
	if !renamed {
		return names, false
	}

	taken := make(map[string]struct{}, len(names))
	for _, n := range names {
		taken[strings.ToLower(n)] = struct{}{}
	}
	used := make(map[string]struct{}, len(names))
	counters := make(map[string]int, len(names))

	out = make([]string, len(names))
	for i, n := range names {
		key := strings.ToLower(n)
		if _, dup := used[key]; !dup {
			used[key] = struct{}{}
			out[i] = n
			continue
		}
		next := counters[key]
		if next == 0 {
			next = 2
		}
		for {
			candidate := n + strconv.Itoa(next)
			ck := strings.ToLower(candidate)
			_, isTaken := taken[ck]
			_, isUsed := used[ck]
			next++
			if !isTaken && !isUsed {
				used[ck] = struct{}{}
				out[i] = candidate
				break
			}
		}
		counters[key] = next
	}
	return out, true
}

// Materialize reads every row of rs. Duplicate column names are renamed
// instead of failing. maxRows <= 0 means no limit; when the limit is hit the
// table is marked truncated.
func Materialize(rs RowSource, maxRows int) (*Table, error) {
	names, err := rs.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}

	unique, renamed := UniqueColumnNames(names)
	cols := make([]Column, len(names))
	for i := range names {
		cols[i] = Column{Name: unique[i]}
		if renamed && unique[i] != names[i] {
			cols[i].Source = names[i]
		}
	}
	if ct, ok := rs.(columnTyper); ok {
		if types, err := ct.ColumnTypes(); err == nil && len(types) == len(cols) {
			for i, t := range types {
				cols[i].Type = t.DatabaseTypeName()
			}
		}
	}

	table := &Table{Columns: cols, Rows: make([][]any, 0)}
	for rs.Next() {
		if maxRows > 0 && len(table.Rows) >= maxRows {
			table.Truncated = true
			break
		}
		values := make([]any, len(cols))
		dest := make([]any, len(cols))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rs.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		for i, v := range values {
			values[i] = normalizeValue(v)
		}
		table.Rows = append(table.Rows, values)
	}
	if err := rs.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}
	return table, nil
}

// normalizeValue turns textual []byte values into strings so they encode as
// text rather than base64.
func normalizeValue(v any) any {
	if b, ok := v.([]byte); ok && utf8.Valid(b) {
		return string(b)
	}
	return v
}
