/*
query.go - Query & Filter Executor

PURPOSE:
  Translates a ReportConfig into backend queries, resolves foreign
  references (client, location, work type, employee) into the WorkLogRow
  shape, and guarantees a deterministic row order so preview pagination is
  stable across identical requests.

FILTER FIELDS:
  Filters and sorts reference raw work_log attributes, not registry
  columns. The allowed field set is validated here; anything else is an
  ErrInvalidFilter, surfaced before the backend is touched.

DETERMINISM:
  Every query gets a trailing ascending sort on the row id. Two requests
  with identical configuration therefore see identical row order, which
  the preview layer relies on for client-local pagination.

FAILURE MODE:
  Any backend error is propagated as a *FetchError naming the entity.
  The caller decides whether to show a partial or empty state.

SEE ALSO:
  - store.go: The generic query contract
  - aggregate.go: Consumes the executor's row sets
*/
package engine

import (
	"context"
)

// =============================================================================
// EXECUTOR
// =============================================================================

// workLogFields is the set of raw attributes filters and sorts may
// reference on the work_logs entity.
var workLogFields = map[string]bool{
	"id":           true,
	"employee_id":  true,
	"client_id":    true,
	"location_id":  true,
	"work_type_id": true,
	"date":         true,
	"frequency":    true,
	"identifier":   true,
	"quantity":     true,
}

// Executor turns configurations into resolved work-log row sets.
type Executor struct {
	Store Store
}

func NewExecutor(store Store) *Executor {
	return &Executor{Store: store}
}

// RunOptions tunes one execution.
type RunOptions struct {
	// Limit caps the number of work-log rows fetched (preview mode).
	// Zero means unlimited.
	Limit int
}

// Run fetches and resolves the work-log rows a configuration selects.
// Rows come back in deterministic order: the configured sorts, ties
// broken by row id ascending.
func (e *Executor) Run(ctx context.Context, cfg ReportConfig, opts RunOptions) ([]WorkLogRow, error) {
	for _, f := range cfg.Filters {
		if !workLogFields[f.Field] {
			return nil, &FilterError{Field: f.Field, Op: f.Op, Reason: "unknown work_log field"}
		}
	}
	for _, s := range cfg.Sorting {
		if !workLogFields[s.Field] {
			return nil, &FilterError{Field: s.Field, Op: "sort", Reason: "unknown work_log field"}
		}
	}

	sorts := append([]Sort{}, cfg.Sorting...)
	sorts = append(sorts, Sort{Field: "id", Direction: SortAsc})

	records, err := e.Store.Query(ctx, EntityWorkLogs, Query{
		Filters: cfg.Filters,
		Sort:    sorts,
		Limit:   opts.Limit,
	})
	if err != nil {
		return nil, &FetchError{Entity: EntityWorkLogs, Err: err}
	}
	if len(records) == 0 {
		return nil, nil
	}

	refs, err := e.loadReferences(ctx)
	if err != nil {
		return nil, err
	}

	rows := make([]WorkLogRow, 0, len(records))
	for _, rec := range records {
		rows = append(rows, refs.resolve(rec))
	}
	return rows, nil
}

// =============================================================================
// REFERENCE RESOLUTION
// =============================================================================

type references struct {
	clients   map[string]Record
	locations map[string]Record
	workTypes map[string]Record
	employees map[string]Record
}

func (e *Executor) loadReferences(ctx context.Context) (*references, error) {
	refs := &references{}
	for _, load := range []struct {
		entity Entity
		into   *map[string]Record
	}{
		{EntityClients, &refs.clients},
		{EntityLocations, &refs.locations},
		{EntityWorkTypes, &refs.workTypes},
		{EntityEmployees, &refs.employees},
	} {
		records, err := e.Store.Query(ctx, load.entity, Query{})
		if err != nil {
			return nil, &FetchError{Entity: load.entity, Err: err}
		}
		m := make(map[string]Record, len(records))
		for _, rec := range records {
			m[rec.Str("id")] = rec
		}
		*load.into = m
	}
	return refs, nil
}

// resolve maps a raw work_log record into the resolved row shape. Missing
// references resolve to empty names rather than failing: a deleted client
// should not take historical reports down with it.
func (r *references) resolve(rec Record) WorkLogRow {
	row := WorkLogRow{
		ID:         rec.Str("id"),
		Date:       rec.Time("date"),
		EmployeeID: rec.Str("employee_id"),
		ClientID:   rec.Str("client_id"),
		LocationID: rec.Str("location_id"),
		WorkTypeID: rec.Str("work_type_id"),
		Frequency:  rec.Str("frequency"),
		Identifier: rec.Str("identifier"),
		Quantity:   rec.Decimal("quantity"),
		Rate:       rec.NullDecimal("rate"),
	}
	if c, ok := r.clients[row.ClientID]; ok {
		row.ClientName = c.Str("name")
		row.ParentCompany = c.Str("parent_company")
		row.Terms = c.Str("terms")
	}
	if l, ok := r.locations[row.LocationID]; ok {
		row.LocationName = l.Str("name")
	}
	if w, ok := r.workTypes[row.WorkTypeID]; ok {
		row.WorkTypeName = w.Str("name")
		row.RateType = RateType(w.Str("rate_type"))
	}
	if emp, ok := r.employees[row.EmployeeID]; ok {
		row.EmployeeName = emp.Str("name")
	}
	return row
}
