package features

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ReferenceTable is the historical dataset used once at startup to derive
// median fallbacks. It is column oriented and never mutated after loading.
type ReferenceTable struct {
	columns map[string][]string
	order   []string
	rows    int
}

// LoadReferenceTable reads a CSV file with a header row.
func LoadReferenceTable(path string) (*ReferenceTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open reference data: %w", err)
	}
	defer f.Close()

	table, err := ReadReferenceTable(f)
	if err != nil {
		return nil, fmt.Errorf("read reference data %s: %w", path, err)
	}
	return table, nil
}

// ReadReferenceTable parses CSV content from r.
func ReadReferenceTable(r io.Reader) (*ReferenceTable, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, errors.New("empty file, no header row")
	}
	if err != nil {
		return nil, err
	}

	table := &ReferenceTable{
		columns: make(map[string][]string, len(header)),
		order:   make([]string, 0, len(header)),
	}
	for i, name := range header {
		// excel exports prepend a BOM to the first header cell
		if i == 0 {
			name = strings.TrimPrefix(name, "\ufeff")
		}
		header[i] = name
		if _, dup := table.columns[name]; dup {
			continue
		}
		table.columns[name] = nil
		table.order = append(table.order, name)
	}

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(record) != len(header) {
			return nil, fmt.Errorf("row %d has %d fields, header has %d", table.rows+2, len(record), len(header))
		}
		seen := make(map[string]bool, len(header))
		for i, name := range header {
			if seen[name] {
				continue
			}
			seen[name] = true
			table.columns[name] = append(table.columns[name], record[i])
		}
		table.rows++
	}

	return table, nil
}

// NewReferenceTable builds a table from in-memory columns. Every column must
// have the same length.
func NewReferenceTable(columns map[string][]string) (*ReferenceTable, error) {
	table := &ReferenceTable{columns: make(map[string][]string, len(columns))}
	rows := -1
	for name, values := range columns {
		if rows >= 0 && len(values) != rows {
			return nil, fmt.Errorf("column %q has %d rows, expected %d", name, len(values), rows)
		}
		rows = len(values)
		table.columns[name] = append([]string(nil), values...)
		table.order = append(table.order, name)
	}
	if rows > 0 {
		table.rows = rows
	}
	return table, nil
}

// Column returns the raw cells of a column. Lookups are case sensitive.
func (t *ReferenceTable) Column(name string) ([]string, bool) {
	values, ok := t.columns[name]
	return values, ok
}

// Columns returns the column names in file order.
func (t *ReferenceTable) Columns() []string {
	return append([]string(nil), t.order...)
}

// Rows returns the number of data rows.
func (t *ReferenceTable) Rows() int {
	return t.rows
}
