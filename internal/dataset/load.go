package dataset

import (
	"bytes"
	"encoding/csv"
	"io"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"
)

// ErrUnsupportedFormat is returned for uploads that are neither CSV nor XLSX.
var ErrUnsupportedFormat = errors.New("unsupported file format: upload a .csv or .xlsx file")

// ErrNoHeader is returned when the input has no header row.
var ErrNoHeader = errors.New("file has no header row")

var headerLookup = buildHeaderLookup()

// Load parses an uploaded file, choosing the reader by extension.
func Load(filename string, r io.Reader) (*Table, error) {
	var (
		t   *Table
		err error
	)
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv", ".txt":
		t, err = ReadCSV(r)
	case ".xlsx", ".xlsm":
		t, err = ReadXLSX(r)
	default:
		return nil, errors.Wrapf(ErrUnsupportedFormat, "%q", filename)
	}
	if err != nil {
		return nil, err
	}
	t.Source = filepath.Base(filename)
	return t, nil
}

// ReadCSV parses comma separated input. Semicolon separated files are
// detected from the header row.
func ReadCSV(r io.Reader) (*Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "read csv")
	}

	records, err := readDelimited(data, ',')
	if err != nil {
		return nil, err
	}
	if len(records) > 0 && len(records[0]) == 1 && strings.Contains(records[0][0], ";") {
		records, err = readDelimited(data, ';')
		if err != nil {
			return nil, err
		}
	}
	if len(records) == 0 {
		return nil, ErrNoHeader
	}
	return FromRecords(records[0], records[1:])
}

func readDelimited(data []byte, comma rune) ([][]string, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = comma
	reader.FieldsPerRecord = -1 // Allow variable fields
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	var records [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			if _, ok := err.(*csv.ParseError); ok {
				// skip malformed rows
				continue
			}
			return nil, errors.Wrap(err, "parse csv")
		}
		records = append(records, record)
	}
	return records, nil
}

// ReadXLSX parses the first sheet of an Office Open XML workbook.
func ReadXLSX(r io.Reader) (*Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, errors.Wrap(err, "open xlsx")
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, errors.New("workbook has no sheets")
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, errors.Wrapf(err, "read sheet %q", sheetName)
	}
	if len(rows) == 0 {
		return nil, ErrNoHeader
	}
	return FromRecords(rows[0], rows[1:])
}

// FromRecords maps a header row and data rows onto a table. Headers are
// matched to known columns ignoring case, spaces, dashes and underscores;
// unknown columns are ignored. Numeric cells are clipped to their column
// bounds and unparsable cells become missing.
func FromRecords(header []string, rows [][]string) (*Table, error) {
	if len(header) == 0 {
		return nil, ErrNoHeader
	}

	var (
		columns []Column
		indexes []int
	)
	seen := make(map[Column]bool)
	for i, h := range header {
		col, ok := ParseColumn(h)
		if !ok || seen[col] {
			continue
		}
		seen[col] = true
		columns = append(columns, col)
		indexes = append(indexes, i)
	}

	encounters := make([]Encounter, 0, len(rows))
	for _, record := range rows {
		if isBlankRecord(record) {
			continue
		}
		e := NewEncounter()
		for j, col := range columns {
			idx := indexes[j]
			raw := ""
			if idx < len(record) {
				raw = strings.TrimSpace(record[idx])
			}
			if IsNumeric(col) {
				e.SetNumber(col, parseNumber(col, raw))
			} else {
				e.SetText(col, raw)
			}
		}
		encounters = append(encounters, e)
	}

	return NewTable(columns, encounters), nil
}

func parseNumber(col Column, raw string) float64 {
	if raw == "" {
		return math.NaN()
	}
	if col == Readmission30Day {
		switch strings.ToLower(raw) {
		case "true", "yes", "y":
			return 1
		case "false", "no", "n":
			return 0
		}
	}

	v, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", ""), 64)
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
		return math.NaN()
	}
	if col == TotalCost && v <= 0 {
		return math.NaN()
	}
	if col == Readmission30Day {
		if v > 0 {
			return 1
		}
		return 0
	}
	return ColumnBounds[col].Clip(v)
}

// ParseColumn matches a header or query name to a known column, ignoring
// case, spaces, dashes and underscores.
func ParseColumn(name string) (Column, bool) {
	col, ok := headerLookup[canonicalHeader(name)]
	return col, ok
}

func canonicalHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	h = strings.ToLower(strings.TrimSpace(h))
	return strings.NewReplacer(" ", "", "_", "", "-", "", ".", "").Replace(h)
}

func buildHeaderLookup() map[string]Column {
	lookup := make(map[string]Column, len(AllColumns))
	for _, c := range AllColumns {
		lookup[canonicalHeader(string(c))] = c
	}
	return lookup
}

func isBlankRecord(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func cellString(e *Encounter, col Column) string {
	if IsNumeric(col) {
		v := e.Number(col)
		if math.IsNaN(v) {
			return ""
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return strings.TrimSpace(e.Text(col))
}
