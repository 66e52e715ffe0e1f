package api_test

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetwash/report-engine/api"
	"github.com/fleetwash/report-engine/engine"
	"github.com/fleetwash/report-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

type testServer struct {
	store   *sqlite.Store
	handler *api.Handler
	router  http.Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	logger := zerolog.Nop()
	h := api.NewHandler(store)
	return &testServer{store: store, handler: h, router: api.NewRouter(h, &logger)}
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), "body: %s", rec.Body.String())
	return out
}

func (ts *testServer) loadScenario(t *testing.T, id string) {
	t.Helper()
	rec := ts.do(t, http.MethodPost, "/api/scenarios/load", map[string]string{"scenario_id": id})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

// =============================================================================
// COLUMN CATALOG
// =============================================================================

func TestAPI_ListColumns(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodGet, "/api/columns", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	cols := decode[[]api.ColumnDTO](t, rec)
	byID := map[string]api.ColumnDTO{}
	for _, c := range cols {
		byID[c.ID] = c
	}

	client, ok := byID["client"]
	require.True(t, ok)
	assert.Equal(t, "Client", client.Label)
	assert.False(t, client.Aggregate)

	total, ok := byID["total_amount"]
	require.True(t, ok)
	assert.True(t, total.Aggregate)
}

// =============================================================================
// TEMPLATES
// =============================================================================

func TestAPI_TemplateCRUD(t *testing.T) {
	ts := newTestServer(t)

	// Save
	rec := ts.do(t, http.MethodPost, "/api/templates", map[string]any{
		"template_name": "Weekly Billing",
		"description":   "route summary",
		"shared":        true,
		"config": map[string]any{
			"columns": []string{"client", "quantity"},
			"sorting": []map[string]string{{"field": "date", "direction": "desc"}},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[api.TemplateDTO](t, rec)
	require.NotEmpty(t, created.ID)
	assert.Equal(t, "Weekly Billing", created.Name)
	assert.Equal(t, []string{"client", "quantity"}, created.Config.Columns)

	// List
	rec = ts.do(t, http.MethodGet, "/api/templates", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]api.TemplateDTO](t, rec), 1)

	// Get
	rec = ts.do(t, http.MethodGet, "/api/templates/"+created.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// Delete, then the id is gone
	rec = ts.do(t, http.MethodDelete, "/api/templates/"+created.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = ts.do(t, http.MethodGet, "/api/templates/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAPI_SaveTemplateValidation(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/templates", map[string]any{
		"config": map[string]any{"columns": []string{"client"}},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "template_name is required")

	rec = ts.do(t, http.MethodPost, "/api/templates", map[string]any{
		"template_name": "Bad",
		"config":        map[string]any{"report_type": "payroll", "columns": []string{"client"}},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPI_DeleteSystemTemplateRefused(t *testing.T) {
	ts := newTestServer(t)
	require.NoError(t, ts.store.SaveTemplate(context.Background(), engine.Template{
		ID: "tpl-sys", Name: "Built-in", ReportType: engine.ReportWorkLogs,
		Config:    engine.ReportConfig{Columns: []engine.ColumnID{engine.ColClient}},
		IsSystem:  true,
		CreatedAt: time.Now().UTC(),
	}))

	rec := ts.do(t, http.MethodDelete, "/api/templates/tpl-sys", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/templates/tpl-sys", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

// =============================================================================
// REPORT RUNS
// =============================================================================

func TestAPI_RunReport(t *testing.T) {
	// GIVEN: The weekly route demo data
	// WHEN: Running an inline detail configuration
	// THEN: Rows come back shaped, labeled and priced

	ts := newTestServer(t)
	ts.loadScenario(t, "weekly-route")

	rec := ts.do(t, http.MethodPost, "/api/reports/run", map[string]any{
		"config": map[string]any{
			"columns": []string{"client", "quantity", "line_total"},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	result := decode[api.ReportResultDTO](t, rec)
	assert.Equal(t, "detail", result.Shape)
	assert.Equal(t, []string{"Client", "Quantity", "Line Total"}, result.Columns)
	require.Equal(t, 4, result.Total)
	assert.Equal(t, "detail", result.Rows[0].Kind)
	assert.Equal(t, []string{"Acme Trucking", "6", "255"}, result.Rows[0].Cells)
}

func TestAPI_RunReportByTemplate(t *testing.T) {
	ts := newTestServer(t)
	ts.loadScenario(t, "weekly-route")

	rec := ts.do(t, http.MethodPost, "/api/templates", map[string]any{
		"template_name": "Totals",
		"config":        map[string]any{"columns": []string{"client", "total_amount", "wash_count"}},
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	tpl := decode[api.TemplateDTO](t, rec)

	rec = ts.do(t, http.MethodPost, "/api/reports/run", map[string]any{"template_id": tpl.ID})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	result := decode[api.ReportResultDTO](t, rec)
	assert.Equal(t, "aggregated", result.Shape)
	require.Equal(t, 1, result.Total, "one client, one summary row")
	assert.Equal(t, "summary", result.Rows[0].Kind)

	// The run bumps the template's usage metadata.
	rec = ts.do(t, http.MethodGet, "/api/templates/"+tpl.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decode[api.TemplateDTO](t, rec).UseCount)
}

func TestAPI_RunReportErrors(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/reports/run", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "no config and no template id")

	rec = ts.do(t, http.MethodPost, "/api/reports/run", map[string]any{"template_id": "missing"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/reports/run", map[string]any{
		"config": map[string]any{"columns": []string{"retired_column"}},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "an all-stale selection has no columns left")
}

// =============================================================================
// PREVIEW
// =============================================================================

func TestAPI_PreviewFlow(t *testing.T) {
	ts := newTestServer(t)
	ts.loadScenario(t, "weekly-route")

	rec := ts.do(t, http.MethodPost, "/api/reports/preview", map[string]any{
		"config": map[string]any{"columns": []string{"client", "quantity"}},
	})
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	ack := decode[api.PreviewResponse](t, rec)
	assert.Equal(t, uint64(1), ack.Token)

	// The debounced run needs its window plus execution time.
	deadline := time.Now().Add(3 * time.Second)
	var page api.PreviewPageDTO
	for {
		rec = ts.do(t, http.MethodGet, "/api/reports/preview", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		page = decode[api.PreviewPageDTO](t, rec)
		if page.Token == ack.Token || time.Now().After(deadline) {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}

	require.Equal(t, ack.Token, page.Token, "preview never completed")
	require.Empty(t, page.Error)
	assert.Equal(t, 4, page.Total)
	assert.Len(t, page.Rows, 4)

	rec = ts.do(t, http.MethodGet, "/api/reports/preview?offset=2&limit=1", nil)
	page = decode[api.PreviewPageDTO](t, rec)
	assert.Equal(t, 4, page.Total, "total reflects the full cached result")
	assert.Len(t, page.Rows, 1)
}

func TestAPI_PreviewBeforeAnySubmission(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodGet, "/api/reports/preview", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	page := decode[api.PreviewPageDTO](t, rec)
	assert.Zero(t, page.Token)
	assert.Empty(t, page.Rows)
}

// =============================================================================
// EXPORTS
// =============================================================================

func TestAPI_ExportReportCSV(t *testing.T) {
	ts := newTestServer(t)
	ts.loadScenario(t, "weekly-route")

	rec := ts.do(t, http.MethodPost, "/api/reports/export", map[string]any{
		"config": map[string]any{"columns": []string{"client", "quantity", "line_total"}},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), ".csv")

	records, err := csv.NewReader(rec.Body).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 6, "header, four detail rows, totals")
	assert.Equal(t, []string{"Client", "Quantity", "Line Total"}, records[0])
	assert.Equal(t, "TOTAL", records[5][0])
}

func TestAPI_ExportReportXLSX(t *testing.T) {
	ts := newTestServer(t)
	ts.loadScenario(t, "weekly-route")

	rec := ts.do(t, http.MethodPost, "/api/reports/export?format=xlsx", map[string]any{
		"config": map[string]any{"columns": []string{"client", "quantity"}},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Disposition"), ".xlsx")
	assert.NotEmpty(t, rec.Body.Bytes())
}

func TestAPI_ExportInvoices(t *testing.T) {
	// GIVEN: A week of work across two locations of one client
	// WHEN: Exporting invoices
	// THEN: One invoice per location, numbered from the start number,
	//       named after the billing Friday

	ts := newTestServer(t)
	ts.loadScenario(t, "weekly-route")

	rec := ts.do(t, http.MethodPost, "/api/invoices/export", map[string]any{
		"start_number": "1001",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "invoice-export-2026-01-09.csv")

	records, err := csv.NewReader(rec.Body).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 5, "header plus four line items")
	assert.Equal(t, "InvoiceNo", records[0][0])
	assert.Equal(t, "1001", records[1][0])
	assert.Equal(t, "Acme Trucking", records[1][1])
	assert.Equal(t, "255.00", records[1][11])
	assert.Equal(t, "", records[2][1], "customer prints on the first row only")
	assert.Equal(t, "1002", records[4][0], "second location opens the next invoice")
}

func TestAPI_ExportInvoicesEmptySelection(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodPost, "/api/invoices/export", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// MASTER DATA AND WORK LOGS
// =============================================================================

func TestAPI_MasterDataCreateAndList(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/clients", map[string]string{
		"id": "cl-1", "name": "Acme Trucking", "terms": "Net 30",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = ts.do(t, http.MethodPost, "/api/clients", map[string]string{"name": "No ID"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/clients", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	clients := decode[[]map[string]string](t, rec)
	require.Len(t, clients, 1)
	assert.Equal(t, "Acme Trucking", clients[0]["name"])
}

func TestAPI_LocationsFilteredByClient(t *testing.T) {
	ts := newTestServer(t)
	ts.loadScenario(t, "mixed-billing")

	rec := ts.do(t, http.MethodGet, "/api/locations?client_id=cl-delta", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	locs := decode[[]map[string]string](t, rec)
	require.Len(t, locs, 1)
	assert.Equal(t, "Central Hub", locs[0]["name"])
}

func TestAPI_WorkLogValidation(t *testing.T) {
	ts := newTestServer(t)
	ts.loadScenario(t, "weekly-route")

	base := map[string]string{
		"employee_id": "emp-maria", "client_id": "cl-acme",
		"location_id": "loc-acme-north", "work_type_id": "wt-truck",
	}

	t.Run("bad date rejected", func(t *testing.T) {
		req := map[string]string{"date": "01/05/2026"}
		for k, v := range base {
			req[k] = v
		}
		rec := ts.do(t, http.MethodPost, "/api/work-logs", req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing references rejected", func(t *testing.T) {
		rec := ts.do(t, http.MethodPost, "/api/work-logs", map[string]string{"date": "2026-01-05"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("quantity defaults to one", func(t *testing.T) {
		req := map[string]string{"date": "2026-01-12"}
		for k, v := range base {
			req[k] = v
		}
		rec := ts.do(t, http.MethodPost, "/api/work-logs", req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		created := decode[map[string]string](t, rec)
		assert.Equal(t, "1", created["quantity"])
		assert.NotEmpty(t, created["id"])
	})
}

func TestAPI_ListWorkLogsByDateRange(t *testing.T) {
	ts := newTestServer(t)
	ts.loadScenario(t, "weekly-route")

	rec := ts.do(t, http.MethodGet, "/api/work-logs?from=2026-01-05&to=2026-01-05", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	logs := decode[[]map[string]string](t, rec)
	require.Len(t, logs, 2)
	for _, l := range logs {
		assert.Equal(t, "2026-01-05", l["date"])
	}
}

func TestAPI_SetRateAffectsPricing(t *testing.T) {
	ts := newTestServer(t)
	ts.loadScenario(t, "weekly-route")

	rec := ts.do(t, http.MethodPost, "/api/rates", map[string]string{
		"client_id": "cl-acme", "location_id": "loc-acme-north",
		"work_type_id": "wt-truck", "frequency": "Weekly", "rate": "50.00",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = ts.do(t, http.MethodPost, "/api/reports/run", map[string]any{
		"config": map[string]any{
			"columns": []string{"client", "line_total"},
			"filters": []map[string]any{{"field": "id", "operator": "eq", "value": "wl-wr-1"}},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	result := decode[api.ReportResultDTO](t, rec)
	require.Equal(t, 1, result.Total)
	assert.Equal(t, "300", result.Rows[0].Cells[1], "6 trucks at the new 50.00 rate")
}

// =============================================================================
// SCENARIOS
// =============================================================================

func TestAPI_Scenarios(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/scenarios", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]api.ScenarioDTO](t, rec)
	require.Len(t, list, 2)

	rec = ts.do(t, http.MethodPost, "/api/scenarios/load", map[string]string{"scenario_id": "bogus"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// =============================================================================
// USAGE FLUSHER
// =============================================================================

func TestUsageFlusher_BatchesAndFlushes(t *testing.T) {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.SaveTemplate(context.Background(), engine.Template{
		ID: "tpl-1", Name: "Mine", ReportType: engine.ReportWorkLogs,
		Config:    engine.ReportConfig{Columns: []engine.ColumnID{engine.ColClient}},
		CreatedAt: time.Now().UTC(),
	}))

	logger := zerolog.Nop()
	f := api.NewUsageFlusher(store, logger)
	f.Note("tpl-1")
	f.Note("tpl-1")
	f.Note("tpl-1")
	f.Flush()

	got, err := store.GetTemplate(context.Background(), "tpl-1")
	require.NoError(t, err)
	assert.Equal(t, 3, got.UseCount)
}

func TestUsageFlusher_StopDrainsPending(t *testing.T) {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.SaveTemplate(context.Background(), engine.Template{
		ID: "tpl-1", Name: "Mine", ReportType: engine.ReportWorkLogs,
		Config:    engine.ReportConfig{Columns: []engine.ColumnID{engine.ColClient}},
		CreatedAt: time.Now().UTC(),
	}))

	logger := zerolog.Nop()
	f := api.NewUsageFlusher(store, logger)
	f.Start()
	f.Note("tpl-1")
	f.Stop()

	got, err := store.GetTemplate(context.Background(), "tpl-1")
	require.NoError(t, err)
	assert.Equal(t, 1, got.UseCount)
}

// Interface check: the store backs both the entity and template sides.
var _ engine.Store = (*sqlite.Store)(nil)
var _ engine.TemplateStore = (*sqlite.Store)(nil)
