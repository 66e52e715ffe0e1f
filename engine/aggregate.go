/*
aggregate.go - Report shaping and grouped aggregates

PURPOSE:
  Classifies a report as detail, aggregated, or mixed from its selected
  columns, and computes grouped sum/count/average values for the summary
  section.

SHAPES:
  detail     - no selected column is aggregate; one output row per work log
  aggregated - every selected column is aggregate; summary rows only
  mixed      - both present; detail section, then one sentinel row, then
               the summary section

GROUPING:
  The summary grouping key is derived from the dimension columns present
  in the selection (e.g. client+location when both are selected). With no
  dimension column selected, the whole result set is one group. Groups
  are enumerated in first-seen row order, which is deterministic because
  the executor's row order is.

NULL HANDLING:
  Sums skip rows whose numeric field is unresolved (nil rate). Averages
  exclude nil rows from both numerator and denominator - a null is never
  treated as zero. Count counts rows.

EDGE CASE:
  An empty row set yields zero rows - never a synthetic zero-valued
  summary row. (Exports may separately request a totals row.)

SEE ALSO:
  - registry.go: AggSpec and Dimension flags
  - export/: Rendering of the shaped result
*/
package engine

import (
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SHAPER
// =============================================================================

// Shaper turns resolved row sets into shaped result sets.
type Shaper struct {
	Registry *Registry
}

func NewShaper(reg *Registry) *Shaper {
	return &Shaper{Registry: reg}
}

// Classify partitions the selection and returns the report shape.
func (s *Shaper) Classify(columns []ColumnID) (detail, aggregate []ColumnID, shape ReportShape) {
	for _, id := range columns {
		def, ok := s.Registry.ByID(id)
		if !ok {
			continue
		}
		if def.Aggregate {
			aggregate = append(aggregate, id)
		} else {
			detail = append(detail, id)
		}
	}
	switch {
	case len(aggregate) == 0:
		shape = ShapeDetail
	case len(detail) == 0:
		shape = ShapeAggregated
	default:
		shape = ShapeMixed
	}
	return detail, aggregate, shape
}

// Build produces the shaped result set for a configuration's selection.
// The configuration must already be normalized against the registry.
func (s *Shaper) Build(columns []ColumnID, rows []WorkLogRow) (*ResultSet, error) {
	if len(columns) == 0 {
		return nil, ErrNoColumns
	}
	detailCols, aggCols, shape := s.Classify(columns)

	rs := &ResultSet{Shape: shape, Columns: columns}
	if len(rows) == 0 {
		return rs, nil
	}

	if shape == ShapeDetail || shape == ShapeMixed {
		for _, row := range rows {
			rs.Rows = append(rs.Rows, s.detailRow(detailCols, row))
		}
	}

	if shape == ShapeAggregated || shape == ShapeMixed {
		if shape == ShapeMixed {
			rs.Rows = append(rs.Rows, ResultRow{Kind: RowSentinel, Values: map[ColumnID]Value{}})
		}
		for _, g := range s.groupRows(detailCols, rows) {
			rs.Rows = append(rs.Rows, s.summaryRow(detailCols, aggCols, g))
		}
	}
	return rs, nil
}

func (s *Shaper) detailRow(detailCols []ColumnID, row WorkLogRow) ResultRow {
	values := make(map[ColumnID]Value, len(detailCols))
	for _, id := range detailCols {
		def, _ := s.Registry.ByID(id)
		values[id] = def.Resolve(row)
	}
	return ResultRow{Kind: RowDetail, Values: values}
}

// =============================================================================
// GROUPING
// =============================================================================

type rowGroup struct {
	key  string
	keys map[ColumnID]Value // dimension values identifying the group
	rows []WorkLogRow
}

// groupRows buckets rows by the selected dimension columns, preserving
// first-seen order. With no dimension selected, everything is one group.
func (s *Shaper) groupRows(detailCols []ColumnID, rows []WorkLogRow) []*rowGroup {
	var dims []ColumnID
	for _, id := range detailCols {
		if def, ok := s.Registry.ByID(id); ok && def.Dimension {
			dims = append(dims, id)
		}
	}

	var order []*rowGroup
	index := make(map[string]*rowGroup)
	for _, row := range rows {
		keys := make(map[ColumnID]Value, len(dims))
		parts := make([]string, 0, len(dims))
		for _, id := range dims {
			def, _ := s.Registry.ByID(id)
			v := def.Resolve(row)
			keys[id] = v
			parts = append(parts, v.Render())
		}
		key := strings.Join(parts, "\x1f")

		g, ok := index[key]
		if !ok {
			g = &rowGroup{key: key, keys: keys}
			index[key] = g
			order = append(order, g)
		}
		g.rows = append(g.rows, row)
	}
	return order
}

func (s *Shaper) summaryRow(detailCols, aggCols []ColumnID, g *rowGroup) ResultRow {
	values := make(map[ColumnID]Value, len(detailCols)+len(aggCols))
	// Dimension key values identify the group; other detail columns stay empty.
	for id, v := range g.keys {
		values[id] = v
	}
	for _, id := range aggCols {
		def, _ := s.Registry.ByID(id)
		values[id] = computeAggregate(def.Agg, g.rows)
	}
	return ResultRow{Kind: RowSummary, Values: values}
}

// =============================================================================
// AGGREGATE COMPUTATION
// =============================================================================

func computeAggregate(spec AggSpec, rows []WorkLogRow) Value {
	switch spec.Kind {
	case AggCount:
		return NumberValue(decimal.NewFromInt(int64(len(rows))))
	case AggSum:
		sum := decimal.Zero
		for _, row := range rows {
			if v := spec.Field(row); v != nil {
				sum = sum.Add(*v)
			}
		}
		return NumberValue(sum)
	case AggAvg:
		sum := decimal.Zero
		n := 0
		for _, row := range rows {
			if v := spec.Field(row); v != nil {
				sum = sum.Add(*v)
				n++
			}
		}
		if n == 0 {
			return EmptyValue()
		}
		return NumberValue(sum.Div(decimal.NewFromInt(int64(n))))
	default:
		return EmptyValue()
	}
}
