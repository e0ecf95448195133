package dataset

import (
	"bytes"
	"math"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"
)

const exportSheet = "Encounters"

// WriteXLSX renders the present columns of t as a workbook with a styled,
// frozen header row.
func WriteXLSX(t *Table) ([]byte, error) {
	f := excelize.NewFile()
	// WriteTo needs the file open, so Close runs on each return path.

	index, err := f.NewSheet(exportSheet)
	if err != nil {
		f.Close()
		return nil, errors.Wrap(err, "create sheet")
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		f.Close()
		return nil, errors.Wrap(err, "create header style")
	}

	var columns []Column
	if t != nil {
		columns = t.Columns
	}
	for i, col := range columns {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			f.Close()
			return nil, errors.Wrap(err, "header cell")
		}
		if err := f.SetCellValue(exportSheet, cell, string(col)); err != nil {
			f.Close()
			return nil, errors.Wrapf(err, "set header %s", cell)
		}
		if err := f.SetCellStyle(exportSheet, cell, cell, headerStyle); err != nil {
			f.Close()
			return nil, errors.Wrap(err, "set header style")
		}
		name, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			f.Close()
			return nil, errors.Wrap(err, "column name")
		}
		width := 14.0
		if col == PatientFeedback {
			width = 60
		}
		if err := f.SetColWidth(exportSheet, name, name, width); err != nil {
			f.Close()
			return nil, errors.Wrap(err, "set column width")
		}
	}

	for r := 0; r < t.Len(); r++ {
		row := &t.Rows[r]
		for i, col := range columns {
			var value any
			if IsNumeric(col) {
				v := row.Number(col)
				if math.IsNaN(v) {
					continue
				}
				value = v
			} else {
				value = row.Text(col)
			}
			cell, err := excelize.CoordinatesToCellName(i+1, r+2)
			if err != nil {
				f.Close()
				return nil, errors.Wrap(err, "data cell")
			}
			if err := f.SetCellValue(exportSheet, cell, value); err != nil {
				f.Close()
				return nil, errors.Wrapf(err, "set cell %s", cell)
			}
		}
	}

	if err := f.SetPanes(exportSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		f.Close()
		return nil, errors.Wrap(err, "freeze header")
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		f.Close()
		return nil, errors.Wrap(err, "write workbook")
	}
	if err := f.Close(); err != nil {
		return nil, errors.Wrap(err, "close workbook")
	}
	return buf.Bytes(), nil
}
