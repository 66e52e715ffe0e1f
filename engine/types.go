/*
Package engine provides the core report building engine.

PURPOSE:
  This package contains the domain types and algorithms for assembling
  ad-hoc reports over wash-service work logs: a typed column registry,
  a serializable report configuration, a query/filter executor over a
  generic store contract, and the aggregation engine that shapes the
  result set (detail, aggregated, or mixed).

KEY CONCEPTS IN THIS FILE (types.go):
  - WorkLogRow: One billable unit of work with its references resolved
  - Record: The raw, schema-less row shape returned by the store
  - Value: A rendered cell (text or decimal number, possibly empty)
  - ResultSet: The shaped output of a report run

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal for quantities and rates - money is
     never held in float64
  2. Type Safety: Strong typing for column and entity identifiers
  3. Nullability: A missing rate means "needs rate review", not zero

SEE ALSO:
  - registry.go: Column definitions and the registry
  - query.go: Executor producing WorkLogRow slices
  - aggregate.go: Report shaping and grouped aggregates
*/
package engine

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type ColumnID string
type TemplateID string

// Entity names the logical collections reachable through the store contract.
type Entity string

const (
	EntityWorkLogs  Entity = "work_logs"
	EntityClients   Entity = "clients"
	EntityLocations Entity = "locations"
	EntityWorkTypes Entity = "work_types"
	EntityEmployees Entity = "employees"
	EntityTemplates Entity = "report_templates"
)

// =============================================================================
// RATE TYPES
// =============================================================================

// RateType describes how a work type is priced.
type RateType string

const (
	RateHourly  RateType = "hourly"
	RatePerUnit RateType = "per_unit"
)

// =============================================================================
// WORK-LOG ROW - One billable unit of work, references resolved
// =============================================================================

// WorkLogRow is the row shape the executor hands to the aggregation and
// invoice engines. Foreign references (client, location, work type,
// employee) are already resolved to display names, and the rate is already
// resolved by the persistence layer. A nil Rate means the row needs rate
// review and must render as blank, never as zero.
type WorkLogRow struct {
	ID           string
	Date         time.Time
	EmployeeID   string
	EmployeeName string

	ClientID      string
	ClientName    string
	ParentCompany string // empty when the client has no parent company
	Terms         string // payment terms, e.g. "Net 30"

	LocationID   string
	LocationName string

	WorkTypeID   string
	WorkTypeName string
	RateType     RateType
	Frequency    string // e.g. "weekly", "2x/week", "monthly"

	Identifier string // asset tag or unit identifier
	Quantity   decimal.Decimal
	Rate       *decimal.Decimal
}

// LineTotal returns quantity * rate rounded to 2 decimal places.
// Returns (zero, false) when the rate is unresolved.
func (r WorkLogRow) LineTotal() (decimal.Decimal, bool) {
	if r.Rate == nil {
		return decimal.Zero, false
	}
	return r.Quantity.Mul(*r.Rate).Round(2), true
}

// =============================================================================
// RECORD - Schema-less row returned by the generic store contract
// =============================================================================

// Record is the raw row shape the store returns. The executor decodes
// records into WorkLogRow immediately; nothing downstream touches maps.
type Record map[string]any

func (r Record) Str(key string) string {
	if v, ok := r[key].(string); ok {
		return v
	}
	return ""
}

func (r Record) Time(key string) time.Time {
	switch v := r[key].(type) {
	case time.Time:
		return v
	case string:
		if t, err := time.Parse("2006-01-02", v); err == nil {
			return t
		}
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return t
		}
	}
	return time.Time{}
}

func (r Record) Decimal(key string) decimal.Decimal {
	switch v := r[key].(type) {
	case decimal.Decimal:
		return v
	case string:
		if d, err := decimal.NewFromString(v); err == nil {
			return d
		}
	case float64:
		return decimal.NewFromFloat(v)
	case int64:
		return decimal.NewFromInt(v)
	case int:
		return decimal.NewFromInt(int64(v))
	}
	return decimal.Zero
}

// NullDecimal returns nil when the key is absent, nil, or unparseable.
func (r Record) NullDecimal(key string) *decimal.Decimal {
	v, ok := r[key]
	if !ok || v == nil {
		return nil
	}
	switch d := v.(type) {
	case decimal.Decimal:
		return &d
	case *decimal.Decimal:
		return d
	case string:
		if d == "" {
			return nil
		}
		if parsed, err := decimal.NewFromString(d); err == nil {
			return &parsed
		}
	case float64:
		parsed := decimal.NewFromFloat(d)
		return &parsed
	}
	return nil
}

// =============================================================================
// VALUE - A single rendered cell
// =============================================================================

// Value is a tagged cell value. Numeric values keep their decimal form so
// exports can sum them without re-parsing text.
type Value struct {
	Text     string
	Number   decimal.Decimal
	IsNumber bool
	Empty    bool
}

func TextValue(s string) Value {
	return Value{Text: s, Empty: s == ""}
}

func NumberValue(d decimal.Decimal) Value {
	return Value{Number: d, IsNumber: true}
}

func EmptyValue() Value {
	return Value{Empty: true}
}

// Render returns the display string for the cell.
func (v Value) Render() string {
	if v.Empty {
		return ""
	}
	if v.IsNumber {
		return v.Number.String()
	}
	return v.Text
}

// =============================================================================
// RESULT SET - Shaped output of a report run
// =============================================================================

// ReportShape classifies a report from its selected columns.
type ReportShape int

const (
	ShapeDetail ReportShape = iota
	ShapeAggregated
	ShapeMixed
)

func (s ReportShape) String() string {
	switch s {
	case ShapeDetail:
		return "detail"
	case ShapeAggregated:
		return "aggregated"
	case ShapeMixed:
		return "mixed"
	default:
		return "unknown"
	}
}

// RowKind distinguishes data rows from structural rows in a result set.
type RowKind int

const (
	RowDetail RowKind = iota
	RowSummary
	RowSentinel // separator between detail and summary sections
)

type ResultRow struct {
	Kind   RowKind
	Values map[ColumnID]Value
}

// ResultSet is the output of the aggregation engine. Columns preserves the
// configuration's selection order; Rows holds detail rows first, then (for
// mixed reports) one sentinel row followed by the summary section.
type ResultSet struct {
	Shape   ReportShape
	Columns []ColumnID
	Rows    []ResultRow
}

// DetailRows returns only the detail section.
func (rs *ResultSet) DetailRows() []ResultRow {
	var out []ResultRow
	for _, r := range rs.Rows {
		if r.Kind == RowDetail {
			out = append(out, r)
		}
	}
	return out
}

// SummaryRows returns only the summary section.
func (rs *ResultSet) SummaryRows() []ResultRow {
	var out []ResultRow
	for _, r := range rs.Rows {
		if r.Kind == RowSummary {
			out = append(out, r)
		}
	}
	return out
}
