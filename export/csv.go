/*
Package export renders shaped report results and invoice groups to files.

PURPOSE:
  The final serialization layer: CSV for the invoice import, xlsx (and
  CSV) for generic reports. Output is deterministic for identical input -
  regression suites diff exported bytes.

KEY CONCEPTS IN THIS FILE (csv.go):
  - Invoice CSV: header row first, one data row per work-log line item,
    standard RFC 4180 quoting (encoding/csv handles commas, quotes and
    newlines)
  - Filename convention: invoice-export-<end-date:yyyy-MM-dd>.csv
  - Empty exports are refused with ErrEmptyResult, never a zero-row file

SEE ALSO:
  - spreadsheet.go: Generic xlsx export with the totals row
  - invoice/group.go: Produces the tables serialized here
*/
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/fleetwash/report-engine/engine"
	"github.com/fleetwash/report-engine/invoice"
)

// =============================================================================
// INVOICE CSV
// =============================================================================

// InvoiceFilename builds the export filename from the billing period end.
func InvoiceFilename(endDate time.Time) string {
	return fmt.Sprintf("invoice-export-%s.csv", endDate.Format("2006-01-02"))
}

// WriteInvoiceCSV renders invoice groups through the column mapping and
// serializes them. Group order and within-group order are preserved.
// Refuses to write an empty export.
func WriteInvoiceCSV(w io.Writer, groups []*invoice.Group, cols []invoice.ColumnMapping) error {
	if len(groups) == 0 {
		return engine.ErrEmptyResult
	}
	return WriteTable(w, invoice.Render(groups, cols))
}

// =============================================================================
// TABLE SERIALIZATION
// =============================================================================

// WriteTable serializes a rendered table as CSV. encoding/csv applies
// standard escaping: fields containing commas, quotes, or newlines are
// wrapped in double quotes with internal quotes doubled.
func WriteTable(w io.Writer, table [][]string) error {
	cw := csv.NewWriter(w)
	for _, row := range table {
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadTable parses a CSV stream back into rows. The export round-trip
// tests rely on this; it is also handy for import tooling.
func ReadTable(r io.Reader) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	return cr.ReadAll()
}

// =============================================================================
// GENERIC REPORT CSV
// =============================================================================

// WriteReportCSV serializes a shaped result set as CSV: header row of
// column labels in selection order, data rows, optionally a trailing
// totals row. Refuses empty results.
func WriteReportCSV(w io.Writer, reg *engine.Registry, rs *engine.ResultSet, opts ReportOptions) error {
	table, err := reportTable(reg, rs, opts)
	if err != nil {
		return err
	}
	return WriteTable(w, table)
}

func reportTable(reg *engine.Registry, rs *engine.ResultSet, opts ReportOptions) ([][]string, error) {
	if len(rs.Rows) == 0 {
		return nil, engine.ErrEmptyResult
	}

	table := make([][]string, 0, len(rs.Rows)+2)
	header := make([]string, len(rs.Columns))
	for i, id := range rs.Columns {
		if def, ok := reg.ByID(id); ok {
			header[i] = def.Label
		} else {
			header[i] = string(id)
		}
	}
	table = append(table, header)

	for _, row := range rs.Rows {
		line := make([]string, len(rs.Columns))
		if row.Kind == engine.RowSentinel {
			table = append(table, line)
			continue
		}
		for i, id := range rs.Columns {
			line[i] = row.Values[id].Render()
		}
		table = append(table, line)
	}

	if len(opts.SumColumns) > 0 {
		table = append(table, totalsRow(rs, opts.SumColumns))
	}
	return table, nil
}
