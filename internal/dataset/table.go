// Package dataset loads tabular data points and projects their columns onto
// the feature slots a clustering run compares.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"antclust/internal/similarity"
)

var ErrColumnNotFound = errors.New("column not found")

type LoadOptions struct {
	// Header treats the first record as column names.
	Header bool
	// LabelColumn names (or indexes) an optional ground-truth column that is
	// kept as text and excluded from the numeric rows.
	LabelColumn string
	Comma       rune
}

// Table holds the numeric columns of a dataset. Columns keep their original
// positions; the ground-truth column, if any, is zero in Rows.
type Table struct {
	Header      []string
	Rows        [][]float64
	Truth       []string
	labelColumn int
}

func LoadFile(path string, opts LoadOptions) (Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return Table{}, err
	}
	defer f.Close()

	table, err := Load(f, opts)
	if err != nil {
		return Table{}, fmt.Errorf("load %s: %w", path, err)
	}
	return table, nil
}

func Load(in io.Reader, opts LoadOptions) (Table, error) {
	reader := csv.NewReader(in)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	if opts.Comma != 0 {
		reader.Comma = opts.Comma
	}

	table := Table{labelColumn: -1}
	width := -1
	rowIndex := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Table{}, fmt.Errorf("read csv row %d: %w", rowIndex+1, err)
		}
		if blankRecord(record) {
			continue
		}

		if opts.Header && table.Header == nil {
			table.Header = trimAll(record)
			width = len(record)
			if opts.LabelColumn != "" {
				idx, err := table.ColumnIndex(opts.LabelColumn)
				if err != nil {
					return Table{}, fmt.Errorf("label column: %w", err)
				}
				table.labelColumn = idx
			}
			continue
		}

		if width < 0 {
			width = len(record)
			if opts.LabelColumn != "" {
				idx, err := strconv.Atoi(strings.TrimSpace(opts.LabelColumn))
				if err != nil || idx < 0 || idx >= width {
					return Table{}, fmt.Errorf("label column: %w: %s", ErrColumnNotFound, opts.LabelColumn)
				}
				table.labelColumn = idx
			}
		}
		if len(record) != width {
			return Table{}, fmt.Errorf("csv row %d has %d fields, want %d", rowIndex+1, len(record), width)
		}

		row := make([]float64, width)
		for col, field := range record {
			field = strings.TrimSpace(field)
			if col == table.labelColumn {
				table.Truth = append(table.Truth, field)
				continue
			}
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return Table{}, fmt.Errorf("csv row %d column %d: parse %q: %w", rowIndex+1, col, field, err)
			}
			row[col] = v
		}
		table.Rows = append(table.Rows, row)
		rowIndex++
	}
	return table, nil
}

// ColumnIndex resolves a column by header name or by zero-based position.
func (t Table) ColumnIndex(column string) (int, error) {
	column = strings.TrimSpace(column)
	for i, name := range t.Header {
		if name == column {
			return i, nil
		}
	}
	if idx, err := strconv.Atoi(column); err == nil {
		width := len(t.Header)
		if width == 0 && len(t.Rows) > 0 {
			width = len(t.Rows[0])
		}
		if idx >= 0 && idx < width {
			return idx, nil
		}
	}
	return 0, fmt.Errorf("%w: %s", ErrColumnNotFound, column)
}

// Project builds one feature vector per row. Each group lists the columns
// that make up one feature slot, in slot order.
func (t Table) Project(groups [][]string) ([][]similarity.Value, error) {
	indexes := make([][]int, len(groups))
	for g, columns := range groups {
		if len(columns) == 0 {
			return nil, fmt.Errorf("feature %d has no columns", g)
		}
		indexes[g] = make([]int, len(columns))
		for k, column := range columns {
			idx, err := t.ColumnIndex(column)
			if err != nil {
				return nil, fmt.Errorf("feature %d: %w", g, err)
			}
			if idx == t.labelColumn {
				return nil, fmt.Errorf("feature %d: column %s is the label column", g, column)
			}
			indexes[g][k] = idx
		}
	}

	out := make([][]similarity.Value, len(t.Rows))
	for r, row := range t.Rows {
		gene := make([]similarity.Value, len(indexes))
		for g, cols := range indexes {
			v := make(similarity.Value, len(cols))
			for k, idx := range cols {
				v[k] = row[idx]
			}
			gene[g] = v
		}
		out[r] = gene
	}
	return out, nil
}

func blankRecord(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}

func trimAll(record []string) []string {
	out := make([]string, len(record))
	for i, field := range record {
		out[i] = strings.TrimSpace(field)
	}
	return out
}
