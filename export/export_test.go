package export_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/fleetwash/report-engine/engine"
	"github.com/fleetwash/report-engine/export"
	"github.com/fleetwash/report-engine/invoice"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func dec(s string) decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return d
}

func washRow(id, client, location string, d time.Time, qty, rate string) engine.WorkLogRow {
	row := engine.WorkLogRow{
		ID:           id,
		Date:         d,
		ClientID:     client,
		ClientName:   client,
		LocationID:   location,
		LocationName: location,
		WorkTypeName: "Truck",
		RateType:     engine.RatePerUnit,
		Frequency:    "Weekly",
		Terms:        "Net 30",
		Quantity:     dec(qty),
	}
	if rate != "" {
		r := dec(rate)
		row.Rate = &r
	}
	return row
}

func buildResult(t *testing.T, cols []engine.ColumnID, rows []engine.WorkLogRow) (*engine.Registry, *engine.ResultSet) {
	t.Helper()
	reg := engine.NewRegistry()
	rs, err := engine.NewShaper(reg).Build(cols, rows)
	require.NoError(t, err)
	return reg, rs
}

// =============================================================================
// INVOICE CSV
// =============================================================================

func TestWriteInvoiceCSV_RoundTrip(t *testing.T) {
	// GIVEN: Two invoice groups
	// WHEN: Writing CSV and parsing it back
	// THEN: The parsed table equals the rendered table cell for cell

	rows := []engine.WorkLogRow{
		washRow("wl-1", "Acme Trucking", "North Yard", time.Date(2026, time.January, 5, 0, 0, 0, 0, time.UTC), "6", "42.50"),
		washRow("wl-2", "Acme Trucking", "South Yard", time.Date(2026, time.January, 6, 0, 0, 0, 0, time.UTC), "9", "45.00"),
	}
	groups := invoice.BuildGroups(rows, 1001)
	cols := invoice.DefaultColumns()

	var buf bytes.Buffer
	require.NoError(t, export.WriteInvoiceCSV(&buf, groups, cols))

	parsed, err := export.ReadTable(&buf)
	require.NoError(t, err)
	assert.Equal(t, invoice.Render(groups, cols), parsed)
}

func TestWriteInvoiceCSV_EscapesCommasInNames(t *testing.T) {
	// Client names with commas must survive the CSV round trip.
	row := washRow("wl-1", "Smith, Jones & Co", "Yard", time.Date(2026, time.January, 5, 0, 0, 0, 0, time.UTC), "1", "10.00")
	groups := invoice.BuildGroups([]engine.WorkLogRow{row}, 1001)

	var buf bytes.Buffer
	require.NoError(t, export.WriteInvoiceCSV(&buf, groups, invoice.DefaultColumns()))

	parsed, err := export.ReadTable(&buf)
	require.NoError(t, err)
	assert.Equal(t, "Smith, Jones & Co", parsed[1][1])
}

func TestWriteInvoiceCSV_RefusesEmptyExport(t *testing.T) {
	var buf bytes.Buffer
	err := export.WriteInvoiceCSV(&buf, nil, invoice.DefaultColumns())
	assert.ErrorIs(t, err, engine.ErrEmptyResult)
	assert.Zero(t, buf.Len(), "nothing must be written on refusal")
}

func TestInvoiceFilename(t *testing.T) {
	friday := time.Date(2026, time.January, 9, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "invoice-export-2026-01-09.csv", export.InvoiceFilename(friday))
}

// =============================================================================
// REPORT CSV
// =============================================================================

func TestWriteReportCSV_DetailWithTotals(t *testing.T) {
	// GIVEN: A detail report over two rows
	// WHEN: Exporting with line_total in the sum list
	// THEN: Header row of labels, data rows, and a TOTAL row summing
	//       only the requested column

	rows := []engine.WorkLogRow{
		washRow("wl-1", "Acme", "North", time.Date(2026, time.January, 5, 0, 0, 0, 0, time.UTC), "6", "42.50"),
		washRow("wl-2", "Acme", "South", time.Date(2026, time.January, 6, 0, 0, 0, 0, time.UTC), "9", "45.00"),
	}
	cols := []engine.ColumnID{engine.ColClient, engine.ColQuantity, engine.ColLineTotal}
	reg, rs := buildResult(t, cols, rows)

	var buf bytes.Buffer
	err := export.WriteReportCSV(&buf, reg, rs, export.ReportOptions{
		SumColumns: []engine.ColumnID{engine.ColLineTotal},
	})
	require.NoError(t, err)

	table, err := export.ReadTable(&buf)
	require.NoError(t, err)
	require.Len(t, table, 4) // header + 2 rows + totals

	assert.Equal(t, []string{"Client", "Quantity", "Line Total"}, table[0])
	assert.Equal(t, []string{"Acme", "6", "255"}, table[1])
	assert.Equal(t, []string{"Acme", "9", "405"}, table[2])

	totals := table[3]
	assert.Equal(t, "TOTAL", totals[0])
	assert.Equal(t, "", totals[1], "unrequested columns stay blank")
	assert.Equal(t, "660", totals[2])
}

func TestWriteReportCSV_MixedShapeSentinelRow(t *testing.T) {
	// GIVEN: A mixed report (detail + aggregate columns)
	// WHEN: Exporting
	// THEN: A blank separator row sits between detail and summary
	//       sections, and totals count the detail section only

	rows := []engine.WorkLogRow{
		washRow("wl-1", "Acme", "North", time.Date(2026, time.January, 5, 0, 0, 0, 0, time.UTC), "6", "42.50"),
		washRow("wl-2", "Acme", "North", time.Date(2026, time.January, 6, 0, 0, 0, 0, time.UTC), "4", "42.50"),
	}
	cols := []engine.ColumnID{engine.ColClient, engine.ColQuantity, engine.ColTotalQuantity}
	reg, rs := buildResult(t, cols, rows)
	require.Equal(t, engine.ShapeMixed, rs.Shape)

	var buf bytes.Buffer
	err := export.WriteReportCSV(&buf, reg, rs, export.ReportOptions{
		SumColumns: []engine.ColumnID{engine.ColQuantity},
	})
	require.NoError(t, err)

	table, err := export.ReadTable(&buf)
	require.NoError(t, err)
	// header, 2 detail, separator, 1 summary, totals
	require.Len(t, table, 6)
	assert.Equal(t, []string{"", "", ""}, table[3], "separator row is blank")

	totals := table[5]
	assert.Equal(t, "TOTAL", totals[0])
	assert.Equal(t, "10", totals[1], "summary section must not double-count")
}

func TestWriteReportCSV_RefusesEmptyResult(t *testing.T) {
	reg, rs := buildResult(t, []engine.ColumnID{engine.ColClient}, nil)
	var buf bytes.Buffer
	err := export.WriteReportCSV(&buf, reg, rs, export.ReportOptions{})
	assert.ErrorIs(t, err, engine.ErrEmptyResult)
}

func TestTotals_PureAggregatedSumsSummaryRows(t *testing.T) {
	// In a purely aggregated report the summary rows ARE the data.
	rows := []engine.WorkLogRow{
		washRow("wl-1", "Acme", "North", time.Date(2026, time.January, 5, 0, 0, 0, 0, time.UTC), "6", "42.50"),
		washRow("wl-2", "Beta", "South", time.Date(2026, time.January, 6, 0, 0, 0, 0, time.UTC), "9", "45.00"),
	}
	cols := []engine.ColumnID{engine.ColTotalQuantity, engine.ColWashCount}
	reg, rs := buildResult(t, cols, rows)
	require.Equal(t, engine.ShapeAggregated, rs.Shape)

	var buf bytes.Buffer
	err := export.WriteReportCSV(&buf, reg, rs, export.ReportOptions{
		SumColumns: []engine.ColumnID{engine.ColWashCount},
	})
	require.NoError(t, err)

	table, err := export.ReadTable(&buf)
	require.NoError(t, err)
	totals := table[len(table)-1]
	assert.Equal(t, "TOTAL", totals[0])
	assert.Equal(t, "2", totals[1])
}

// =============================================================================
// SPREADSHEET
// =============================================================================

func TestWriteWorkbook_HeaderAndCells(t *testing.T) {
	rows := []engine.WorkLogRow{
		washRow("wl-1", "Acme", "North", time.Date(2026, time.January, 5, 0, 0, 0, 0, time.UTC), "6", "42.50"),
	}
	cols := []engine.ColumnID{engine.ColClient, engine.ColLineTotal}
	reg, rs := buildResult(t, cols, rows)

	data, err := export.WriteWorkbook(reg, rs, export.ReportOptions{TemplateName: "Weekly Billing"})
	require.NoError(t, err)
	require.NotEmpty(t, data)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	a1, err := f.GetCellValue("Report", "A1")
	require.NoError(t, err)
	assert.Equal(t, "Client", a1)

	b2, err := f.GetCellValue("Report", "B2")
	require.NoError(t, err)
	assert.Equal(t, "255", b2)
}

func TestWriteWorkbook_RefusesEmptyResult(t *testing.T) {
	reg, rs := buildResult(t, []engine.ColumnID{engine.ColClient}, nil)
	_, err := export.WriteWorkbook(reg, rs, export.ReportOptions{})
	assert.ErrorIs(t, err, engine.ErrEmptyResult)
}

func TestReportFilename(t *testing.T) {
	assert.Equal(t, "Weekly-Billing.xlsx", export.ReportFilename("Weekly Billing"))
	assert.Equal(t, "report-export.xlsx", export.ReportFilename(""))
	assert.Equal(t, "report-export.xlsx", export.ReportFilename("   "))
}
