/*
spreadsheet.go - Generic xlsx export

PURPOSE:
  Renders a shaped result set (detail, aggregated, or mixed) to a single
  spreadsheet sheet: header row of column labels in selection order, data
  rows, optionally a trailing totals row.

TOTALS ROW:
  For each column id in the caller's sum list, sums the numeric values
  across data rows - sentinel rows never count, and in mixed reports the
  trailing summary section is excluded so nothing is double-counted. The
  first cell reads "TOTAL"; non-summed columns stay empty.

FILENAME:
  Derived from the template name when one is set, otherwise a default.

SEE ALSO:
  - csv.go: Same row model serialized as CSV
*/
package export

import (
	"bytes"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/fleetwash/report-engine/engine"
	"github.com/shopspring/decimal"
)

const defaultSheetName = "Report"

// ReportOptions tunes a generic export.
type ReportOptions struct {
	// TemplateName seeds the filename; empty falls back to a default.
	TemplateName string

	// SumColumns lists column ids to total in a trailing totals row.
	// Empty means no totals row.
	SumColumns []engine.ColumnID
}

// ReportFilename derives the xlsx filename from the template name.
func ReportFilename(templateName string) string {
	name := strings.TrimSpace(templateName)
	if name == "" {
		name = "report-export"
	}
	name = strings.ReplaceAll(name, " ", "-")
	return name + ".xlsx"
}

// WriteWorkbook renders the result set into an xlsx workbook and returns
// its bytes. Refuses empty results.
func WriteWorkbook(reg *engine.Registry, rs *engine.ResultSet, opts ReportOptions) ([]byte, error) {
	table, err := reportTable(reg, rs, opts)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(defaultSheetName)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})

	for rowIdx, row := range table {
		for colIdx, cell := range row {
			name, err := excelize.CoordinatesToCellName(colIdx+1, rowIdx+1)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(defaultSheetName, name, cell); err != nil {
				return nil, err
			}
			if rowIdx == 0 {
				f.SetCellStyle(defaultSheetName, name, name, headerStyle)
			}
		}
	}

	for i := range table[0] {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return nil, err
		}
		f.SetColWidth(defaultSheetName, col, col, 15)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteWorkbookTo is a convenience for handlers streaming the file.
func WriteWorkbookTo(buf *bytes.Buffer, reg *engine.Registry, rs *engine.ResultSet, opts ReportOptions) error {
	b, err := WriteWorkbook(reg, rs, opts)
	if err != nil {
		return err
	}
	_, err = buf.Write(b)
	return err
}

// =============================================================================
// TOTALS
// =============================================================================

// totalsRow sums the requested columns over the result's data rows. Data
// rows are detail rows when a detail section exists; for pure aggregated
// reports the summary rows are the data. Sentinel rows never count.
func totalsRow(rs *engine.ResultSet, sumColumns []engine.ColumnID) []string {
	wanted := make(map[engine.ColumnID]bool, len(sumColumns))
	for _, id := range sumColumns {
		wanted[id] = true
	}

	sums := make(map[engine.ColumnID]decimal.Decimal, len(sumColumns))
	for _, row := range rs.Rows {
		if !isDataRow(rs.Shape, row.Kind) {
			continue
		}
		for id := range wanted {
			v, ok := row.Values[id]
			if !ok || !v.IsNumber {
				continue
			}
			sums[id] = sums[id].Add(v.Number)
		}
	}

	line := make([]string, len(rs.Columns))
	for i, id := range rs.Columns {
		if i == 0 {
			line[i] = "TOTAL"
			continue
		}
		if wanted[id] {
			line[i] = sums[id].String()
		}
	}
	return line
}

func isDataRow(shape engine.ReportShape, kind engine.RowKind) bool {
	switch kind {
	case engine.RowDetail:
		return true
	case engine.RowSummary:
		// Only the data rows of a purely aggregated report; the summary
		// tail of a mixed report would double-count the detail section.
		return shape == engine.ShapeAggregated
	default:
		return false
	}
}
