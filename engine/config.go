/*
config.go - Serializable report configuration

PURPOSE:
  ReportConfig is the unit of persistence and execution: which columns,
  which filters, what ordering, and what kind of report. Templates store
  a JSON snapshot of this shape; the executor consumes it directly.

STALE TEMPLATES:
  Templates are never structurally validated at save time. A template may
  reference columns that were later removed from the registry; Normalize
  silently drops unknown ids so old templates degrade gracefully instead
  of failing.

FILTERS:
  Filters reference raw entity attributes (client_id, employee_id, date),
  not registry columns. The executor validates them against the queried
  entity's field set.

SEE ALSO:
  - template.go: Persists configurations
  - query.go: Executes them
  - factory/config.go: JSON parsing with defaults
*/
package engine

import (
	"fmt"
)

// =============================================================================
// REPORT TYPE
// =============================================================================

type ReportType string

const (
	ReportWorkLogs ReportType = "work_logs" // generic detail/aggregate report
	ReportInvoice  ReportType = "invoice"   // QuickBooks invoice export shape
)

// =============================================================================
// FILTERS AND SORTING
// =============================================================================

type FilterOp string

const (
	OpEq      FilterOp = "eq"      // equality
	OpIn      FilterOp = "in"      // set membership
	OpBetween FilterOp = "between" // inclusive two-element range
)

// Filter is one backend predicate. Value shape depends on Op:
//
//	OpEq:      scalar (string)
//	OpIn:      []string
//	OpBetween: [2]any / []any with exactly two elements, both bounds inclusive
type Filter struct {
	Field string   `json:"field"`
	Op    FilterOp `json:"operator"`
	Value any      `json:"value"`
}

// Bounds returns the two inclusive bounds of a between filter.
func (f Filter) Bounds() (lo, hi any, err error) {
	vs, ok := f.Value.([]any)
	if !ok || len(vs) != 2 {
		return nil, nil, &FilterError{Field: f.Field, Op: f.Op, Reason: "between requires exactly two bounds"}
	}
	return vs[0], vs[1], nil
}

// Members returns the member list of an in filter.
func (f Filter) Members() ([]string, error) {
	switch vs := f.Value.(type) {
	case []string:
		return vs, nil
	case []any:
		out := make([]string, 0, len(vs))
		for _, v := range vs {
			out = append(out, fmt.Sprintf("%v", v))
		}
		return out, nil
	}
	return nil, &FilterError{Field: f.Field, Op: f.Op, Reason: "in requires a list value"}
}

type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

type Sort struct {
	Field     string        `json:"field"`
	Direction SortDirection `json:"direction"`
}

// =============================================================================
// REPORT CONFIGURATION
// =============================================================================

// ReportConfig is the serializable shape of a report. Column order is
// significant for display and export. The UI caps sorting at two entries;
// the executor supports an arbitrary list.
type ReportConfig struct {
	ReportType ReportType `json:"report_type"`
	Columns    []ColumnID `json:"columns"`
	Filters    []Filter   `json:"filters,omitempty"`
	Sorting    []Sort     `json:"sorting,omitempty"`
}

// Normalize drops column ids that no longer resolve in the registry.
// Stale template references degrade to the surviving selection; an
// all-stale selection surfaces later as ErrNoColumns.
func (c ReportConfig) Normalize(reg *Registry) ReportConfig {
	out := c
	out.Columns = nil
	for _, id := range c.Columns {
		if reg.Known(id) {
			out.Columns = append(out.Columns, id)
		}
	}
	return out
}

// Validate checks the configuration is executable. Unknown columns must
// already have been dropped by Normalize.
func (c ReportConfig) Validate(reg *Registry) error {
	if len(c.Columns) == 0 {
		return ErrNoColumns
	}
	for _, id := range c.Columns {
		if !reg.Known(id) {
			return fmt.Errorf("column %q: %w", id, ErrNoColumns)
		}
	}
	for _, f := range c.Filters {
		switch f.Op {
		case OpEq, OpIn, OpBetween:
		default:
			return &FilterError{Field: f.Field, Op: f.Op, Reason: "unsupported operator"}
		}
		if f.Field == "" {
			return &FilterError{Field: f.Field, Op: f.Op, Reason: "missing field"}
		}
	}
	for _, s := range c.Sorting {
		if s.Direction != SortAsc && s.Direction != SortDesc {
			return &FilterError{Field: s.Field, Op: "sort", Reason: "direction must be asc or desc"}
		}
	}
	return nil
}
