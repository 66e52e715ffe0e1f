/*
handlers.go - HTTP API handlers for the report builder

PURPOSE:
  Exposes the report and invoice engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Columns:
    GET    /api/columns                  Selectable column catalog

  Templates:
    GET    /api/templates                List saved templates
    POST   /api/templates                Save a template
    GET    /api/templates/{id}          Get a template
    DELETE /api/templates/{id}          Delete a template

  Reports:
    POST   /api/reports/run              Run a report (inline or template)
    POST   /api/reports/preview          Submit a debounced preview
    GET    /api/reports/preview          Page the latest applied preview
    POST   /api/reports/export           Export csv or xlsx

  Invoices:
    POST   /api/invoices/export          QuickBooks invoice CSV

  Master data:
    GET/POST /api/clients /api/locations /api/work-types /api/employees
    GET/POST /api/work-logs
    POST     /api/rates

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Store: Database access
  - Registry/Executor/Shaper: the report pipeline
  - Templates: persistence + resolution
  - Usage: background use-count flusher

REQUEST FLOW:
  1. Parse HTTP request
  2. Validate input
  3. Call domain logic (executor, shaper, invoice grouping)
  4. Serialize response
  5. Handle errors

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input, empty exports
  - 404: Resource not found
  - 409: Conflict (protected template)
  - 502: Upstream fetch failures
  - 500: Internal errors

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - usage.go: Template usage flusher
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fleetwash/report-engine/engine"
	"github.com/fleetwash/report-engine/export"
	"github.com/fleetwash/report-engine/factory"
	"github.com/fleetwash/report-engine/invoice"
	"github.com/fleetwash/report-engine/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store     *sqlite.Store
	Registry  *engine.Registry
	Executor  *engine.Executor
	Shaper    *engine.Shaper
	Templates *engine.TemplateManager
	Configs   *factory.ConfigFactory
	Usage     *UsageFlusher

	// One debounced preview session per client session id.
	mu       sync.Mutex
	previews map[string]*engine.PreviewSession
}

// NewHandler creates a new handler with the given store.
func NewHandler(store *sqlite.Store) *Handler {
	reg := engine.NewRegistry()
	return &Handler{
		Store:     store,
		Registry:  reg,
		Executor:  engine.NewExecutor(store),
		Shaper:    engine.NewShaper(reg),
		Templates: engine.NewTemplateManager(store, reg),
		Configs:   factory.NewConfigFactory(),
		previews:  make(map[string]*engine.PreviewSession),
	}
}

// =============================================================================
// COLUMN CATALOG
// =============================================================================

// ListColumns returns the selectable column catalog.
func (h *Handler) ListColumns(w http.ResponseWriter, r *http.Request) {
	defs := h.Registry.List()
	dtos := make([]ColumnDTO, len(defs))
	for i, d := range defs {
		dtos[i] = ColumnDTO{
			ID:        string(d.ID),
			Label:     d.Label,
			Category:  d.Category,
			Aggregate: d.Aggregate,
			Advanced:  d.Advanced,
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// TEMPLATE HANDLERS
// =============================================================================

// ListTemplates returns all saved templates.
func (h *Handler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := h.Templates.List(r.Context())
	if err != nil {
		writeDomainError(w, "Failed to list templates", err)
		return
	}
	dtos := make([]TemplateDTO, len(templates))
	for i, t := range templates {
		dtos[i] = h.toTemplateDTO(t)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// SaveTemplate snapshots a configuration under a new template.
func (h *Handler) SaveTemplate(w http.ResponseWriter, r *http.Request) {
	var req SaveTemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "template_name is required", nil)
		return
	}

	cfg, err := h.Configs.FromJSON(req.Config)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid report configuration", err)
		return
	}

	t, err := h.Templates.Save(r.Context(), req.Name, req.Description, req.CreatedBy, req.Shared, cfg)
	if err != nil {
		writeDomainError(w, "Failed to save template", err)
		return
	}
	writeJSON(w, http.StatusCreated, h.toTemplateDTO(t))
}

// GetTemplate returns a single template.
func (h *Handler) GetTemplate(w http.ResponseWriter, r *http.Request) {
	id := engine.TemplateID(chi.URLParam(r, "id"))
	t, _, err := h.Templates.Resolve(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to get template", err)
		return
	}
	writeJSON(w, http.StatusOK, h.toTemplateDTO(t))
}

// DeleteTemplate deletes a template. System templates are refused.
func (h *Handler) DeleteTemplate(w http.ResponseWriter, r *http.Request) {
	id := engine.TemplateID(chi.URLParam(r, "id"))
	if err := h.Templates.Delete(r.Context(), id); err != nil {
		if engine.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "Template not found", nil)
			return
		}
		if engine.IsClientError(err) {
			writeError(w, http.StatusConflict, "System templates cannot be deleted", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete template", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *Handler) toTemplateDTO(t engine.Template) TemplateDTO {
	dto := TemplateDTO{
		ID:          string(t.ID),
		Name:        t.Name,
		Description: t.Description,
		ReportType:  string(t.ReportType),
		CreatedBy:   t.CreatedBy,
		IsSystem:    t.IsSystem,
		Shared:      t.Shared,
		UseCount:    t.UseCount,
	}
	if !t.CreatedAt.IsZero() {
		dto.CreatedAt = t.CreatedAt.Format(time.RFC3339)
	}
	if t.LastUsedAt != nil {
		dto.LastUsedAt = t.LastUsedAt.Format(time.RFC3339)
	}
	dto.Config.ReportType = string(t.Config.ReportType)
	for _, c := range t.Config.Columns {
		dto.Config.Columns = append(dto.Config.Columns, string(c))
	}
	for _, f := range t.Config.Filters {
		dto.Config.Filters = append(dto.Config.Filters, factory.FilterJSON{
			Field: f.Field, Operator: string(f.Op), Value: f.Value,
		})
	}
	for _, s := range t.Config.Sorting {
		dto.Config.Sorting = append(dto.Config.Sorting, factory.SortJSON{
			Field: s.Field, Direction: string(s.Direction),
		})
	}
	return dto
}

// =============================================================================
// REPORT HANDLERS
// =============================================================================

// resolveConfig turns a run request into a validated configuration.
// An inline config wins over a template id. Template configs are
// normalized against the live registry, so columns removed since the
// template was saved degrade silently instead of failing the run.
func (h *Handler) resolveConfig(r *http.Request, req RunReportRequest) (engine.ReportConfig, engine.TemplateID, error) {
	var cfg engine.ReportConfig
	var tplID engine.TemplateID

	switch {
	case req.Config != nil:
		parsed, err := h.Configs.FromJSON(*req.Config)
		if err != nil {
			return engine.ReportConfig{}, "", err
		}
		cfg = parsed.Normalize(h.Registry)
	case req.TemplateID != "":
		tplID = engine.TemplateID(req.TemplateID)
		_, resolved, err := h.Templates.Resolve(r.Context(), tplID)
		if err != nil {
			return engine.ReportConfig{}, "", err
		}
		cfg = resolved
	default:
		return engine.ReportConfig{}, "", engine.ErrNoColumns
	}

	if err := cfg.Validate(h.Registry); err != nil {
		return engine.ReportConfig{}, "", err
	}
	return cfg, tplID, nil
}

// RunReport executes a report and returns the shaped result as JSON.
func (h *Handler) RunReport(w http.ResponseWriter, r *http.Request) {
	var req RunReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	cfg, tplID, err := h.resolveConfig(r, req)
	if err != nil {
		writeDomainError(w, "Invalid report configuration", err)
		return
	}

	rows, err := h.Executor.Run(r.Context(), cfg, engine.RunOptions{Limit: req.Limit})
	if err != nil {
		writeDomainError(w, "Failed to run report", err)
		return
	}
	rs, err := h.Shaper.Build(cfg.Columns, rows)
	if err != nil {
		writeDomainError(w, "Failed to shape report", err)
		return
	}

	h.noteUse(tplID)
	writeJSON(w, http.StatusOK, h.toResultDTO(rs))
}

// SubmitPreview feeds a configuration into the client's debounced
// preview session and acknowledges with the submission token.
func (h *Handler) SubmitPreview(w http.ResponseWriter, r *http.Request) {
	var req RunReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	cfg, _, err := h.resolveConfig(r, req)
	if err != nil {
		writeDomainError(w, "Invalid report configuration", err)
		return
	}

	session := h.previewSession(previewSessionID(r))
	// Detached context: the debounced run outlives this request.
	token := session.Submit(context.Background(), cfg)
	writeJSON(w, http.StatusAccepted, PreviewResponse{Token: token})
}

// GetPreview pages the latest applied preview result. Paging is pure
// slicing of cached rows; no query runs here.
func (h *Handler) GetPreview(w http.ResponseWriter, r *http.Request) {
	session := h.previewSession(previewSessionID(r))
	rs, token, err := session.Current()

	dto := PreviewPageDTO{Token: token}
	if err != nil {
		dto.Error = err.Error()
		writeJSON(w, http.StatusOK, dto)
		return
	}
	if rs == nil {
		writeJSON(w, http.StatusOK, dto)
		return
	}

	offset := queryInt(r, "offset", 0)
	limit := queryInt(r, "limit", engine.DefaultPreviewLimit)

	dto.Shape = rs.Shape.String()
	dto.Columns = columnLabels(h.Registry, rs.Columns)
	dto.Total = len(rs.Rows)
	dto.Rows = h.toRowDTOs(rs.Columns, session.Page(offset, limit))
	writeJSON(w, http.StatusOK, dto)
}

func (h *Handler) previewSession(id string) *engine.PreviewSession {
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.previews[id]
	if !ok {
		s = engine.NewPreviewSession(h.Executor, h.Shaper)
		h.previews[id] = s
	}
	return s
}

func previewSessionID(r *http.Request) string {
	if id := r.Header.Get("X-Preview-Session"); id != "" {
		return id
	}
	return "default"
}

// ExportReport streams a report as csv or xlsx (?format=, default csv).
func (h *Handler) ExportReport(w http.ResponseWriter, r *http.Request) {
	var req RunReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	cfg, tplID, err := h.resolveConfig(r, req)
	if err != nil {
		writeDomainError(w, "Invalid report configuration", err)
		return
	}

	rows, err := h.Executor.Run(r.Context(), cfg, engine.RunOptions{})
	if err != nil {
		writeDomainError(w, "Failed to run report", err)
		return
	}
	rs, err := h.Shaper.Build(cfg.Columns, rows)
	if err != nil {
		writeDomainError(w, "Failed to shape report", err)
		return
	}

	templateName := ""
	if tplID != "" {
		if t, _, terr := h.Templates.Resolve(r.Context(), tplID); terr == nil {
			templateName = t.Name
		}
	}
	opts := export.ReportOptions{
		TemplateName: templateName,
		SumColumns:   sumColumns(h.Registry, rs.Columns),
	}

	switch r.URL.Query().Get("format") {
	case "xlsx":
		data, err := export.WriteWorkbook(h.Registry, rs, opts)
		if err != nil {
			writeDomainError(w, "Failed to export report", err)
			return
		}
		h.noteUse(tplID)
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.ReportFilename(templateName)))
		w.Write(data)
	default:
		var buf bytes.Buffer
		if err := export.WriteReportCSV(&buf, h.Registry, rs, opts); err != nil {
			writeDomainError(w, "Failed to export report", err)
			return
		}
		h.noteUse(tplID)
		filename := export.ReportFilename(templateName)
		filename = filename[:len(filename)-len(".xlsx")] + ".csv"
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
		w.Write(buf.Bytes())
	}
}

// sumColumns picks the columns worth totaling: every money or quantity
// column present in the selection.
func sumColumns(reg *engine.Registry, cols []engine.ColumnID) []engine.ColumnID {
	wanted := map[engine.ColumnID]bool{
		engine.ColQuantity:      true,
		engine.ColLineTotal:     true,
		engine.ColTotalQuantity: true,
		engine.ColTotalAmount:   true,
	}
	var out []engine.ColumnID
	for _, id := range cols {
		if wanted[id] {
			out = append(out, id)
		}
	}
	return out
}

func (h *Handler) noteUse(id engine.TemplateID) {
	if id == "" {
		return
	}
	if h.Usage != nil {
		h.Usage.Note(id)
		return
	}
	h.Templates.RecordUse(context.Background(), id)
}

// =============================================================================
// INVOICE HANDLERS
// =============================================================================

// ExportInvoices groups the selected work logs into invoices and
// streams the QuickBooks import CSV.
func (h *Handler) ExportInvoices(w http.ResponseWriter, r *http.Request) {
	var req ExportInvoicesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	cfg, err := h.Configs.FromJSON(factory.ConfigJSON{
		ReportType: string(engine.ReportInvoice),
		Filters:    req.Filters,
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid filters", err)
		return
	}

	rows, err := h.Executor.Run(r.Context(), cfg, engine.RunOptions{})
	if err != nil {
		writeDomainError(w, "Failed to fetch work logs", err)
		return
	}

	groups := invoice.BuildGroups(rows, invoice.ParseStartNumber(req.StartNumber))
	var buf bytes.Buffer
	if err := export.WriteInvoiceCSV(&buf, groups, invoice.DefaultColumns()); err != nil {
		writeDomainError(w, "Nothing to export", err)
		return
	}

	filename := export.InvoiceFilename(invoice.LatestFriday(groups))
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Write(buf.Bytes())
}

// =============================================================================
// MASTER DATA HANDLERS
// =============================================================================

// ListEntity returns a generic list handler for one master-data entity.
func (h *Handler) ListEntity(entity engine.Entity) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := engine.Query{Sort: []engine.Sort{{Field: "id", Direction: engine.SortAsc}}}
		if clientID := r.URL.Query().Get("client_id"); clientID != "" && entity == engine.EntityLocations {
			q.Filters = append(q.Filters, engine.Filter{Field: "client_id", Op: engine.OpEq, Value: clientID})
		}
		records, err := h.Store.Query(r.Context(), entity, q)
		if err != nil {
			writeDomainError(w, fmt.Sprintf("Failed to list %s", entity), err)
			return
		}
		writeJSON(w, http.StatusOK, records)
	}
}

// CreateEntity returns a generic create handler for one master-data entity.
func (h *Handler) CreateEntity(entity engine.Entity) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var rec engine.Record
		if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body", err)
			return
		}
		if rec.Str("id") == "" {
			writeError(w, http.StatusBadRequest, "id is required", nil)
			return
		}
		created, err := h.Store.Insert(r.Context(), entity, rec)
		if err != nil {
			writeDomainError(w, fmt.Sprintf("Failed to create %s", entity), err)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	}
}

// ListWorkLogs lists work logs, optionally filtered by client and date range.
func (h *Handler) ListWorkLogs(w http.ResponseWriter, r *http.Request) {
	q := engine.Query{Sort: []engine.Sort{
		{Field: "date", Direction: engine.SortAsc},
		{Field: "id", Direction: engine.SortAsc},
	}}
	if clientID := r.URL.Query().Get("client_id"); clientID != "" {
		q.Filters = append(q.Filters, engine.Filter{Field: "client_id", Op: engine.OpEq, Value: clientID})
	}
	from, to := r.URL.Query().Get("from"), r.URL.Query().Get("to")
	if from != "" && to != "" {
		q.Filters = append(q.Filters, engine.Filter{Field: "date", Op: engine.OpBetween, Value: []any{from, to}})
	}

	records, err := h.Store.Query(r.Context(), engine.EntityWorkLogs, q)
	if err != nil {
		writeDomainError(w, "Failed to list work logs", err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

// CreateWorkLog records one unit of billable work.
func (h *Handler) CreateWorkLog(w http.ResponseWriter, r *http.Request) {
	var req WorkLogDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if _, err := time.Parse("2006-01-02", req.Date); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
		return
	}
	if req.EmployeeID == "" || req.ClientID == "" || req.LocationID == "" || req.WorkTypeID == "" {
		writeError(w, http.StatusBadRequest, "employee_id, client_id, location_id and work_type_id are required", nil)
		return
	}
	if req.ID == "" {
		req.ID = fmt.Sprintf("wl-%d", time.Now().UnixNano())
	}
	if req.Quantity == "" {
		req.Quantity = "1"
	}

	rec := engine.Record{
		"id":           req.ID,
		"employee_id":  req.EmployeeID,
		"client_id":    req.ClientID,
		"location_id":  req.LocationID,
		"work_type_id": req.WorkTypeID,
		"date":         req.Date,
		"frequency":    req.Frequency,
		"identifier":   req.Identifier,
		"quantity":     req.Quantity,
	}
	created, err := h.Store.Insert(r.Context(), engine.EntityWorkLogs, rec)
	if err != nil {
		writeDomainError(w, "Failed to create work log", err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// SetRate upserts a rate configuration.
func (h *Handler) SetRate(w http.ResponseWriter, r *http.Request) {
	var req RateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ClientID == "" || req.LocationID == "" || req.WorkTypeID == "" || req.Rate == "" {
		writeError(w, http.StatusBadRequest, "client_id, location_id, work_type_id and rate are required", nil)
		return
	}

	id := fmt.Sprintf("rate-%d", time.Now().UnixNano())
	if err := h.Store.SetRate(r.Context(), id, req.ClientID, req.LocationID, req.WorkTypeID, req.Frequency, req.Rate); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to set rate", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

func (h *Handler) toResultDTO(rs *engine.ResultSet) ReportResultDTO {
	return ReportResultDTO{
		Shape:   rs.Shape.String(),
		Columns: columnLabels(h.Registry, rs.Columns),
		Rows:    h.toRowDTOs(rs.Columns, rs.Rows),
		Total:   len(rs.Rows),
	}
}

func (h *Handler) toRowDTOs(cols []engine.ColumnID, rows []engine.ResultRow) []ReportRowDTO {
	dtos := make([]ReportRowDTO, len(rows))
	for i, row := range rows {
		kind := "detail"
		switch row.Kind {
		case engine.RowSummary:
			kind = "summary"
		case engine.RowSentinel:
			kind = "separator"
		}
		cells := make([]string, len(cols))
		if row.Kind != engine.RowSentinel {
			for j, id := range cols {
				cells[j] = row.Values[id].Render()
			}
		}
		dtos[i] = ReportRowDTO{Kind: kind, Cells: cells}
	}
	return dtos
}

func columnLabels(reg *engine.Registry, cols []engine.ColumnID) []string {
	labels := make([]string, len(cols))
	for i, id := range cols {
		if def, ok := reg.ByID(id); ok {
			labels[i] = def.Label
		} else {
			labels[i] = string(id)
		}
	}
	return labels
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps the engine's error taxonomy onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	switch {
	case engine.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case errors.Is(err, engine.ErrEmptyResult):
		writeError(w, http.StatusBadRequest, message, err)
	case engine.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	case engine.IsFetchFailure(err):
		writeError(w, http.StatusBadGateway, message, err)
	default:
		writeError(w, http.StatusInternalServerError, message, err)
	}
}
