/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

TYPES:
  Columns:
    ColumnDTO

  Templates:
    TemplateDTO, SaveTemplateRequest (wraps factory.ConfigJSON)

  Reports:
    RunReportRequest, ReportResultDTO, ReportRowDTO, PreviewResponse

  Invoices:
    ExportInvoicesRequest

  Master data:
    ClientDTO, LocationDTO, WorkTypeDTO, EmployeeDTO, WorkLogDTO, RateRequest

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/config.go: ConfigJSON type
*/
package api

import (
	"github.com/fleetwash/report-engine/factory"
)

// =============================================================================
// COLUMN CATALOG
// =============================================================================

// ColumnDTO describes one selectable report column.
type ColumnDTO struct {
	ID        string `json:"id"`
	Label     string `json:"label"`
	Category  string `json:"category"`
	Aggregate bool   `json:"aggregate"`
	Advanced  bool   `json:"advanced"`
}

// =============================================================================
// TEMPLATES
// =============================================================================

// TemplateDTO represents a saved report template in API responses.
type TemplateDTO struct {
	ID          string             `json:"id"`
	Name        string             `json:"template_name"`
	Description string             `json:"description,omitempty"`
	ReportType  string             `json:"report_type"`
	Config      factory.ConfigJSON `json:"config"`
	CreatedBy   string             `json:"created_by,omitempty"`
	IsSystem    bool               `json:"is_system_template"`
	Shared      bool               `json:"shared"`
	UseCount    int                `json:"use_count"`
	LastUsedAt  string             `json:"last_used_at,omitempty"`
	CreatedAt   string             `json:"created_at,omitempty"`
}

// SaveTemplateRequest is the request to save a template.
type SaveTemplateRequest struct {
	Name        string             `json:"template_name"`
	Description string             `json:"description"`
	CreatedBy   string             `json:"created_by"`
	Shared      bool               `json:"shared"`
	Config      factory.ConfigJSON `json:"config"`
}

// =============================================================================
// REPORTS
// =============================================================================

// RunReportRequest is the request to run (or preview, or export) a report.
// Either an inline config or a template id may be given; inline wins.
type RunReportRequest struct {
	TemplateID string              `json:"template_id,omitempty"`
	Config     *factory.ConfigJSON `json:"config,omitempty"`
	Limit      int                 `json:"limit,omitempty"`
}

// ReportRowDTO is one rendered result row.
type ReportRowDTO struct {
	Kind  string   `json:"kind"` // "detail", "summary" or "separator"
	Cells []string `json:"cells"`
}

// ReportResultDTO is the shaped result of a report run.
type ReportResultDTO struct {
	Shape   string         `json:"shape"`
	Columns []string       `json:"columns"`
	Rows    []ReportRowDTO `json:"rows"`
	Total   int            `json:"total_rows"`
}

// PreviewResponse acknowledges a preview submission.
type PreviewResponse struct {
	Token uint64 `json:"token"`
}

// PreviewPageDTO is a page of the most recently applied preview result.
type PreviewPageDTO struct {
	Token   uint64         `json:"token"`
	Shape   string         `json:"shape,omitempty"`
	Columns []string       `json:"columns,omitempty"`
	Rows    []ReportRowDTO `json:"rows"`
	Total   int            `json:"total_rows"`
	Error   string         `json:"error,omitempty"`
}

// =============================================================================
// INVOICES
// =============================================================================

// ExportInvoicesRequest selects the work logs to invoice.
type ExportInvoicesRequest struct {
	// StartNumber seeds sequential invoice numbering; blank or invalid
	// falls back to the default.
	StartNumber string               `json:"start_number,omitempty"`
	Filters     []factory.FilterJSON `json:"filters,omitempty"`
}

// =============================================================================
// MASTER DATA
// =============================================================================

// ClientDTO represents a client in API responses.
type ClientDTO struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	ParentCompany string `json:"parent_company,omitempty"`
	Terms         string `json:"terms,omitempty"`
}

// LocationDTO represents a serviced location.
type LocationDTO struct {
	ID       string `json:"id"`
	ClientID string `json:"client_id"`
	Name     string `json:"name"`
}

// WorkTypeDTO represents a billable work type.
type WorkTypeDTO struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	RateType string `json:"rate_type"`
}

// EmployeeDTO represents an employee.
type EmployeeDTO struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

// WorkLogDTO represents one logged unit of work.
type WorkLogDTO struct {
	ID         string `json:"id,omitempty"`
	EmployeeID string `json:"employee_id"`
	ClientID   string `json:"client_id"`
	LocationID string `json:"location_id"`
	WorkTypeID string `json:"work_type_id"`
	Date       string `json:"date"` // yyyy-MM-dd
	Frequency  string `json:"frequency,omitempty"`
	Identifier string `json:"identifier,omitempty"`
	Quantity   string `json:"quantity,omitempty"`
}

// RateRequest upserts a rate configuration.
type RateRequest struct {
	ClientID   string `json:"client_id"`
	LocationID string `json:"location_id"`
	WorkTypeID string `json:"work_type_id"`
	Frequency  string `json:"frequency"`
	Rate       string `json:"rate"`
}

// ErrorResponse is the standard error payload.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
