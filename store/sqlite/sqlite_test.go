package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetwash/report-engine/engine"
	"github.com/fleetwash/report-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func seedMasterData(t *testing.T, s *sqlite.Store) {
	t.Helper()
	ctx := context.Background()
	for _, row := range []struct {
		entity engine.Entity
		rec    engine.Record
	}{
		{engine.EntityClients, engine.Record{"id": "cl-acme", "name": "Acme Trucking", "parent_company": "Acme Holdings", "terms": "Net 15"}},
		{engine.EntityClients, engine.Record{"id": "cl-beta", "name": "Beta Freight", "parent_company": "", "terms": "Net 30"}},
		{engine.EntityLocations, engine.Record{"id": "loc-north", "client_id": "cl-acme", "name": "North Yard"}},
		{engine.EntityWorkTypes, engine.Record{"id": "wt-truck", "name": "Truck", "rate_type": "per_unit"}},
		{engine.EntityEmployees, engine.Record{"id": "emp-1", "name": "Maria Lopez", "email": "maria@example.com"}},
	} {
		_, err := s.Insert(ctx, row.entity, row.rec)
		require.NoError(t, err)
	}
}

func seedWorkLog(t *testing.T, s *sqlite.Store, id, client, date, frequency, qty string) {
	t.Helper()
	_, err := s.Insert(context.Background(), engine.EntityWorkLogs, engine.Record{
		"id": id, "employee_id": "emp-1", "client_id": client, "location_id": "loc-north",
		"work_type_id": "wt-truck", "date": date, "frequency": frequency, "identifier": "", "quantity": qty,
	})
	require.NoError(t, err)
}

// =============================================================================
// ENTITY CRUD
// =============================================================================

func TestStore_InsertAndQuery(t *testing.T) {
	// GIVEN: A fresh in-memory database
	// WHEN: Inserting master data and querying it back
	// THEN: Records round-trip with their contract fields

	s := newStore(t)
	seedMasterData(t, s)

	got, err := s.Query(context.Background(), engine.EntityClients, engine.Query{
		Sort: []engine.Sort{{Field: "id", Direction: engine.SortAsc}},
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Acme Trucking", got[0].Str("name"))
	assert.Equal(t, "Acme Holdings", got[0].Str("parent_company"))
	assert.Equal(t, "Net 15", got[0].Str("terms"))
}

func TestStore_QueryFilters(t *testing.T) {
	s := newStore(t)
	seedMasterData(t, s)
	seedWorkLog(t, s, "wl-1", "cl-acme", "2026-01-05", "1x/week", "6")
	seedWorkLog(t, s, "wl-2", "cl-beta", "2026-01-06", "1x/week", "9")
	seedWorkLog(t, s, "wl-3", "cl-acme", "2026-01-08", "1x/week", "4")
	ctx := context.Background()

	t.Run("eq", func(t *testing.T) {
		got, err := s.Query(ctx, engine.EntityWorkLogs, engine.Query{
			Filters: []engine.Filter{{Field: "client_id", Op: engine.OpEq, Value: "cl-beta"}},
		})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "wl-2", got[0].Str("id"))
	})

	t.Run("in", func(t *testing.T) {
		got, err := s.Query(ctx, engine.EntityWorkLogs, engine.Query{
			Filters: []engine.Filter{{Field: "id", Op: engine.OpIn, Value: []string{"wl-1", "wl-3"}}},
		})
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})

	t.Run("empty in matches nothing", func(t *testing.T) {
		got, err := s.Query(ctx, engine.EntityWorkLogs, engine.Query{
			Filters: []engine.Filter{{Field: "id", Op: engine.OpIn, Value: []string{}}},
		})
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("between on date is inclusive", func(t *testing.T) {
		got, err := s.Query(ctx, engine.EntityWorkLogs, engine.Query{
			Filters: []engine.Filter{{Field: "date", Op: engine.OpBetween, Value: []any{"2026-01-05", "2026-01-06"}}},
			Sort:    []engine.Sort{{Field: "date", Direction: engine.SortAsc}},
		})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "wl-1", got[0].Str("id"))
		assert.Equal(t, "wl-2", got[1].Str("id"))
	})

	t.Run("unknown filter field rejected", func(t *testing.T) {
		_, err := s.Query(ctx, engine.EntityWorkLogs, engine.Query{
			Filters: []engine.Filter{{Field: "created_at; DROP TABLE work_logs", Op: engine.OpEq, Value: "x"}},
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, engine.ErrInvalidFilter)
	})
}

func TestStore_QueryLimitAndOffset(t *testing.T) {
	s := newStore(t)
	seedMasterData(t, s)
	for _, id := range []string{"wl-1", "wl-2", "wl-3"} {
		seedWorkLog(t, s, id, "cl-acme", "2026-01-05", "1x/week", "1")
	}
	ctx := context.Background()
	sort := []engine.Sort{{Field: "id", Direction: engine.SortAsc}}

	got, err := s.Query(ctx, engine.EntityWorkLogs, engine.Query{Sort: sort, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = s.Query(ctx, engine.EntityWorkLogs, engine.Query{Sort: sort, Offset: 2})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "wl-3", got[0].Str("id"))
}

func TestStore_UnknownEntity(t *testing.T) {
	s := newStore(t)
	_, err := s.Query(context.Background(), "vehicles", engine.Query{})
	assert.ErrorIs(t, err, engine.ErrUnknownEntity)
	_, err = s.Insert(context.Background(), "vehicles", engine.Record{"id": "v-1"})
	assert.ErrorIs(t, err, engine.ErrUnknownEntity)
}

func TestStore_UpdateAndDelete(t *testing.T) {
	s := newStore(t)
	seedMasterData(t, s)
	ctx := context.Background()

	_, err := s.Update(ctx, engine.EntityClients, "cl-acme", engine.Record{"terms": "Net 45"})
	require.NoError(t, err)
	got, err := s.Query(ctx, engine.EntityClients, engine.Query{
		Filters: []engine.Filter{{Field: "id", Op: engine.OpEq, Value: "cl-acme"}},
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Net 45", got[0].Str("terms"))
	assert.Equal(t, "Acme Trucking", got[0].Str("name"), "untouched fields survive a partial update")

	_, err = s.Update(ctx, engine.EntityClients, "missing", engine.Record{"terms": "Net 45"})
	assert.ErrorIs(t, err, engine.ErrEntityNotFound)

	require.NoError(t, s.Delete(ctx, engine.EntityClients, "cl-beta"))
	assert.ErrorIs(t, s.Delete(ctx, engine.EntityClients, "cl-beta"), engine.ErrEntityNotFound)
}

// =============================================================================
// RATE RESOLUTION
// =============================================================================

func TestStore_WorkLogRateResolution(t *testing.T) {
	// GIVEN: A rate configured for one (client, location, work type, frequency)
	// WHEN: Querying work logs
	// THEN: Matching logs carry the rate; unmatched logs carry none

	s := newStore(t)
	seedMasterData(t, s)
	ctx := context.Background()
	require.NoError(t, s.SetRate(ctx, "rate-1", "cl-acme", "loc-north", "wt-truck", "1x/week", "42.50"))
	seedWorkLog(t, s, "wl-matched", "cl-acme", "2026-01-05", "1x/week", "6")
	seedWorkLog(t, s, "wl-unmatched", "cl-acme", "2026-01-05", "2x/week", "6")

	got, err := s.Query(ctx, engine.EntityWorkLogs, engine.Query{
		Sort: []engine.Sort{{Field: "id", Direction: engine.SortAsc}},
	})
	require.NoError(t, err)
	require.Len(t, got, 2)

	matched, unmatched := got[0], got[1]
	assert.Equal(t, "42.50", matched.Str("rate"))
	_, present := unmatched["rate"]
	assert.False(t, present, "a missing rate must stay absent, not become zero")
}

func TestStore_SetRateUpserts(t *testing.T) {
	s := newStore(t)
	seedMasterData(t, s)
	ctx := context.Background()

	require.NoError(t, s.SetRate(ctx, "rate-1", "cl-acme", "loc-north", "wt-truck", "1x/week", "42.50"))
	require.NoError(t, s.SetRate(ctx, "rate-2", "cl-acme", "loc-north", "wt-truck", "1x/week", "45.00"))
	seedWorkLog(t, s, "wl-1", "cl-acme", "2026-01-05", "1x/week", "6")

	got, err := s.Query(ctx, engine.EntityWorkLogs, engine.Query{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "45.00", got[0].Str("rate"), "last write wins for the same combination")
}

// =============================================================================
// TEMPLATE STORE
// =============================================================================

func TestStore_TemplateLifecycle(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	tpl := engine.Template{
		ID:          "tpl-1",
		Name:        "Weekly Billing",
		Description: "route summary",
		ReportType:  engine.ReportWorkLogs,
		Config: engine.ReportConfig{
			ReportType: engine.ReportWorkLogs,
			Columns:    []engine.ColumnID{engine.ColClient, engine.ColQuantity},
			Filters:    []engine.Filter{{Field: "client_id", Op: engine.OpEq, Value: "cl-acme"}},
		},
		CreatedBy: "maria",
		Shared:    true,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, s.SaveTemplate(ctx, tpl))

	got, err := s.GetTemplate(ctx, "tpl-1")
	require.NoError(t, err)
	assert.Equal(t, "Weekly Billing", got.Name)
	assert.True(t, got.Shared)
	assert.Equal(t, tpl.Config.Columns, got.Config.Columns)
	require.Len(t, got.Config.Filters, 1)
	assert.Equal(t, engine.OpEq, got.Config.Filters[0].Op)

	list, err := s.ListTemplates(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, s.DeleteTemplate(ctx, "tpl-1"))
	_, err = s.GetTemplate(ctx, "tpl-1")
	assert.ErrorIs(t, err, engine.ErrTemplateNotFound)
	assert.ErrorIs(t, s.DeleteTemplate(ctx, "tpl-1"), engine.ErrTemplateNotFound)
}

func TestStore_RecordUse(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	require.NoError(t, s.SaveTemplate(ctx, engine.Template{
		ID: "tpl-1", Name: "Mine", ReportType: engine.ReportWorkLogs,
		Config:    engine.ReportConfig{Columns: []engine.ColumnID{engine.ColClient}},
		CreatedAt: time.Now().UTC(),
	}))

	used := time.Date(2026, time.January, 9, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.RecordUse(ctx, "tpl-1", used))
	require.NoError(t, s.RecordUse(ctx, "tpl-1", used.Add(time.Hour)))

	got, err := s.GetTemplate(ctx, "tpl-1")
	require.NoError(t, err)
	assert.Equal(t, 2, got.UseCount)
	require.NotNil(t, got.LastUsedAt)
	assert.Equal(t, used.Add(time.Hour), got.LastUsedAt.UTC())

	assert.ErrorIs(t, s.RecordUse(ctx, "missing", used), engine.ErrTemplateNotFound)
}

func TestStore_ListTemplatesOrderedByCreation(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	base := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"tpl-b", "tpl-a", "tpl-c"} {
		require.NoError(t, s.SaveTemplate(ctx, engine.Template{
			ID: engine.TemplateID(id), Name: id, ReportType: engine.ReportWorkLogs,
			Config:    engine.ReportConfig{Columns: []engine.ColumnID{engine.ColClient}},
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}))
	}

	list, err := s.ListTemplates(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, engine.TemplateID("tpl-b"), list[0].ID)
	assert.Equal(t, engine.TemplateID("tpl-a"), list[1].ID)
	assert.Equal(t, engine.TemplateID("tpl-c"), list[2].ID)
}
