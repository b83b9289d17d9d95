package rowsio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/JonMunkholm/gridcore/internal/core"
)

// MaxHeaderSearchRows bounds how many leading blank rows may precede the
// header row.
const MaxHeaderSearchRows = 10

// ErrNoHeader is returned when a CSV document has no header row.
var ErrNoHeader = errors.New("csv has no header row")

// Dataset is a decoded rows document: the rows plus the field names in
// document order.
type Dataset struct {
	Rows   []core.Row
	Fields []string
}

// Options control decoding.
type Options struct {
	// IDField names the field that holds row ids. Rows without one are
	// numbered from 1 in document order.
	IDField string
}

// ReadCSV decodes a CSV document whose first non-blank row is the header.
// Blank rows are skipped and ragged rows are tolerated. Columns whose
// non-empty cells all parse as numbers become float64; empty cells are nil.
func ReadCSV(r io.Reader, opts Options) (Dataset, error) {
	cr := csv.NewReader(NewReader(r))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	records, err := cr.ReadAll()
	if err != nil {
		return Dataset{}, fmt.Errorf("read csv: %w", err)
	}

	headerIdx := findHeader(records)
	if headerIdx < 0 {
		return Dataset{}, ErrNoHeader
	}
	header := cleanHeader(records[headerIdx])

	body := make([][]string, 0, len(records)-headerIdx-1)
	for _, rec := range records[headerIdx+1:] {
		if isEmptyRow(rec) {
			continue
		}
		for i := range rec {
			rec[i] = core.CleanCell(rec[i])
		}
		body = append(body, rec)
	}

	idCol := slices.Index(header, opts.IDField)
	ds := Dataset{Rows: make([]core.Row, 0, len(body))}
	numeric := make([]bool, len(header))
	for c, name := range header {
		numeric[c] = columnIsNumeric(body, c)
		if c != idCol {
			ds.Fields = append(ds.Fields, name)
		}
	}

	for i, rec := range body {
		row := core.Row{ID: strconv.Itoa(i + 1), Fields: make(map[string]any, len(header))}
		for c, name := range header {
			cell := ""
			if c < len(rec) {
				cell = rec[c]
			}
			if c == idCol {
				if cell != "" {
					row.ID = cell
				}
				continue
			}
			switch {
			case cell == "":
				row.Fields[name] = nil
			case numeric[c]:
				n, _ := strconv.ParseFloat(cell, 64)
				row.Fields[name] = n
			default:
				row.Fields[name] = cell
			}
		}
		ds.Rows = append(ds.Rows, row)
	}
	return ds, nil
}

func findHeader(records [][]string) int {
	for i := 0; i < len(records) && i < MaxHeaderSearchRows; i++ {
		if !isEmptyRow(records[i]) {
			return i
		}
	}
	return -1
}

// cleanHeader strips export artifacts from header names. Blank names become
// column_N and repeated names get a numeric suffix so every field is unique.
func cleanHeader(rec []string) []string {
	header := make([]string, len(rec))
	seen := make(map[string]int, len(rec))
	for i, h := range rec {
		name := core.CleanCell(h)
		if name == "" {
			name = "column_" + strconv.Itoa(i+1)
		}
		seen[name]++
		if n := seen[name]; n > 1 {
			name += "_" + strconv.Itoa(n)
		}
		header[i] = name
	}
	return header
}

func isEmptyRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func columnIsNumeric(records [][]string, c int) bool {
	found := false
	for _, rec := range records {
		if c >= len(rec) || rec[c] == "" {
			continue
		}
		if _, err := strconv.ParseFloat(rec[c], 64); err != nil {
			return false
		}
		found = true
	}
	return found
}
