/*
registry.go - Static catalog of reportable fields

PURPOSE:
  Defines every column a report can select, tagged detail/aggregate, with
  a category for UI grouping use and a resolver that extracts the value
  from a WorkLogRow. The registry is resolved once at startup into an
  immutable lookup table; a column id either resolves or it doesn't -
  there are no runtime "column not found" surprises past configuration
  normalization.

CONTRACT:
  List()  -> ordered []ColumnDef (catalog order, stable)
  ByID(id) -> (ColumnDef, bool)

  Read-only after construction. Used for classification (aggregate vs
  detail) and display labeling only - query construction goes through raw
  entity field names, never through the registry.

COLUMN KINDS:
  Detail columns carry a Resolve func (WorkLogRow -> Value).
  Aggregate columns carry an Agg spec (sum/count/avg over a numeric field).
  Dimension columns are the detail columns eligible as summary group keys.

SEE ALSO:
  - config.go: References columns by id
  - aggregate.go: Consumes Agg specs and Dimension flags
*/
package engine

import "github.com/shopspring/decimal"

// =============================================================================
// COLUMN DEFINITION
// =============================================================================

// AggKind is the aggregate computation a summary column performs.
type AggKind int

const (
	AggNone AggKind = iota
	AggSum
	AggCount
	AggAvg
)

// AggSpec binds an aggregate kind to the numeric field it computes over.
// Field returns nil for rows that must be excluded (unresolved rates);
// averages exclude nil rows from both numerator and denominator.
type AggSpec struct {
	Kind  AggKind
	Field func(WorkLogRow) *decimal.Decimal
}

// ColumnDef is an immutable registry entry.
type ColumnDef struct {
	ID        ColumnID
	Label     string
	Category  string
	Aggregate bool
	Advanced  bool // hidden by default in the builder UI
	Dimension bool // eligible as a summary grouping key

	// QuickBooksKey maps this column onto the invoice export field
	// vocabulary, when such a mapping exists.
	QuickBooksKey string

	Resolve func(WorkLogRow) Value // detail columns only
	Agg     AggSpec                // aggregate columns only
}

// =============================================================================
// REGISTRY
// =============================================================================

// Registry is the immutable column lookup table.
type Registry struct {
	order []ColumnID
	byID  map[ColumnID]ColumnDef
}

// List returns all column definitions in catalog order.
func (r *Registry) List() []ColumnDef {
	out := make([]ColumnDef, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}

// ByID looks up a column definition.
func (r *Registry) ByID(id ColumnID) (ColumnDef, bool) {
	def, ok := r.byID[id]
	return def, ok
}

// Known reports whether id resolves in the registry.
func (r *Registry) Known(id ColumnID) bool {
	_, ok := r.byID[id]
	return ok
}

func newRegistry(defs []ColumnDef) *Registry {
	r := &Registry{byID: make(map[ColumnID]ColumnDef, len(defs))}
	for _, d := range defs {
		if _, dup := r.byID[d.ID]; dup {
			panic("duplicate column id: " + string(d.ID))
		}
		r.order = append(r.order, d.ID)
		r.byID[d.ID] = d
	}
	return r
}

// =============================================================================
// CATALOG
// =============================================================================

// Column ids. These are the only keys configurations, filters on display
// columns, and sort specs use to reference a column.
const (
	ColEmployee      ColumnID = "employee"
	ColDate          ColumnID = "date"
	ColClient        ColumnID = "client"
	ColParentCompany ColumnID = "parent_company"
	ColLocation      ColumnID = "location"
	ColWorkType      ColumnID = "work_type"
	ColFrequency     ColumnID = "frequency"
	ColIdentifier    ColumnID = "identifier"
	ColTerms         ColumnID = "terms"
	ColRateType      ColumnID = "rate_type"
	ColQuantity      ColumnID = "quantity"
	ColRate          ColumnID = "rate"
	ColLineTotal     ColumnID = "line_total"

	ColTotalQuantity ColumnID = "total_quantity"
	ColTotalAmount   ColumnID = "total_amount"
	ColWashCount     ColumnID = "wash_count"
	ColAverageRate   ColumnID = "average_rate"
	ColAverageQty    ColumnID = "average_quantity"
)

func quantityField(r WorkLogRow) *decimal.Decimal {
	q := r.Quantity
	return &q
}

func rateField(r WorkLogRow) *decimal.Decimal {
	return r.Rate
}

func lineTotalField(r WorkLogRow) *decimal.Decimal {
	total, ok := r.LineTotal()
	if !ok {
		return nil
	}
	return &total
}

// NewRegistry builds the column catalog. Call once at startup.
func NewRegistry() *Registry {
	return newRegistry([]ColumnDef{
		{ID: ColEmployee, Label: "Employee", Category: "people", Dimension: true,
			Resolve: func(r WorkLogRow) Value { return TextValue(r.EmployeeName) }},
		{ID: ColDate, Label: "Date", Category: "work", Dimension: true,
			Resolve: func(r WorkLogRow) Value { return TextValue(r.Date.Format("2006-01-02")) }},
		{ID: ColClient, Label: "Client", Category: "billing", Dimension: true,
			QuickBooksKey: "customer",
			Resolve:       func(r WorkLogRow) Value { return TextValue(r.ClientName) }},
		{ID: ColParentCompany, Label: "Parent Company", Category: "billing", Advanced: true, Dimension: true,
			Resolve: func(r WorkLogRow) Value { return TextValue(r.ParentCompany) }},
		{ID: ColLocation, Label: "Location", Category: "billing", Dimension: true,
			Resolve: func(r WorkLogRow) Value { return TextValue(r.LocationName) }},
		{ID: ColWorkType, Label: "Work Type", Category: "work", Dimension: true,
			Resolve: func(r WorkLogRow) Value { return TextValue(r.WorkTypeName) }},
		{ID: ColFrequency, Label: "Frequency", Category: "work", Advanced: true, Dimension: true,
			Resolve: func(r WorkLogRow) Value { return TextValue(r.Frequency) }},
		{ID: ColIdentifier, Label: "Identifier", Category: "work",
			QuickBooksKey: "description",
			Resolve:       func(r WorkLogRow) Value { return TextValue(r.Identifier) }},
		{ID: ColTerms, Label: "Terms", Category: "billing", Advanced: true,
			QuickBooksKey: "terms",
			Resolve:       func(r WorkLogRow) Value { return TextValue(r.Terms) }},
		{ID: ColRateType, Label: "Rate Type", Category: "billing", Advanced: true,
			Resolve: func(r WorkLogRow) Value { return TextValue(string(r.RateType)) }},
		{ID: ColQuantity, Label: "Quantity", Category: "work",
			QuickBooksKey: "quantity",
			Resolve:       func(r WorkLogRow) Value { return NumberValue(r.Quantity) }},
		{ID: ColRate, Label: "Rate", Category: "billing",
			QuickBooksKey: "rate",
			Resolve: func(r WorkLogRow) Value {
				if r.Rate == nil {
					return EmptyValue()
				}
				return NumberValue(*r.Rate)
			}},
		{ID: ColLineTotal, Label: "Line Total", Category: "billing",
			QuickBooksKey: "amount",
			Resolve: func(r WorkLogRow) Value {
				total, ok := r.LineTotal()
				if !ok {
					return EmptyValue()
				}
				return NumberValue(total)
			}},

		{ID: ColTotalQuantity, Label: "Total Quantity", Category: "summary", Aggregate: true,
			Agg: AggSpec{Kind: AggSum, Field: quantityField}},
		{ID: ColTotalAmount, Label: "Total Amount", Category: "summary", Aggregate: true,
			Agg: AggSpec{Kind: AggSum, Field: lineTotalField}},
		{ID: ColWashCount, Label: "Wash Count", Category: "summary", Aggregate: true,
			Agg: AggSpec{Kind: AggCount}},
		{ID: ColAverageRate, Label: "Average Rate", Category: "summary", Aggregate: true,
			Agg: AggSpec{Kind: AggAvg, Field: rateField}},
		{ID: ColAverageQty, Label: "Average Quantity", Category: "summary", Aggregate: true, Advanced: true,
			Agg: AggSpec{Kind: AggAvg, Field: quantityField}},
	})
}
