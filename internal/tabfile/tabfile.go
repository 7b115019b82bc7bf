// Package tabfile reads and writes the tabular artifacts the pipeline
// exchanges with upstream systems and human reviewers. All cells are
// string-typed; nothing here infers types. Failures are distinguishable:
// ErrNotFound, ErrLocked, or a SchemaError naming the missing columns.
package tabfile

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

var (
	ErrNotFound = errors.New("source file not found")
	ErrLocked   = errors.New("source file locked")
)

// SchemaError reports required columns absent from a source table.
type SchemaError struct {
	Name    string
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s: missing required columns: %s", e.Name, strings.Join(e.Missing, ", "))
}

// Table is an in-memory string-cell table with a named header row.
type Table struct {
	Name   string
	Header []string
	Rows   [][]string

	cols map[string]int
}

func New(name string, header []string) *Table {
	t := &Table{Name: name, Header: append([]string(nil), header...)}
	t.indexHeader()
	return t
}

func (t *Table) indexHeader() {
	t.cols = make(map[string]int, len(t.Header))
	for i, h := range t.Header {
		t.cols[strings.TrimSpace(h)] = i
	}
}

func (t *Table) Append(row []string) {
	padded := make([]string, len(t.Header))
	copy(padded, row)
	t.Rows = append(t.Rows, padded)
}

func (t *Table) Len() int { return len(t.Rows) }

// Col returns the index of a named column, -1 when absent.
func (t *Table) Col(name string) int {
	idx, ok := t.cols[name]
	if !ok {
		return -1
	}
	return idx
}

// Get reads a named cell from a row, empty string when out of range.
func (t *Table) Get(row []string, name string) string {
	idx := t.Col(name)
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// Require validates the table against a schema descriptor before any
// transformation touches it.
func (t *Table) Require(columns []string) error {
	var missing []string
	for _, c := range columns {
		if t.Col(c) < 0 {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return &SchemaError{Name: t.Name, Missing: missing}
	}
	return nil
}

// ReadCSV loads an entire CSV export as strings.
func ReadCSV(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, classifyOpenErr(path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err == io.EOF {
		return New(path, nil), nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: read header: %w", path, err)
	}

	t := New(path, header)
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: read row: %w", path, err)
		}
		t.Append(record)
	}
	return t, nil
}

func classifyOpenErr(path string, err error) error {
	if os.IsNotExist(err) {
		return fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	if os.IsPermission(err) {
		return fmt.Errorf("%s: %w", path, ErrLocked)
	}
	return fmt.Errorf("%s: %w", path, err)
}
