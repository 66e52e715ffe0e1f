// Package store provides Store implementations.
package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fleetwash/report-engine/engine"
	"github.com/shopspring/decimal"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory implements engine.Store over in-process maps. Filter and sort
// semantics match the SQLite store: eq / in / between (both bounds
// inclusive), multi-key ordering with the caller's trailing id tiebreak.
type Memory struct {
	mu        sync.RWMutex
	records   map[engine.Entity][]engine.Record
	nextID    int
	templates []engine.Template
}

func NewMemory() *Memory {
	return &Memory{records: make(map[engine.Entity][]engine.Record)}
}

// Seed loads records without store-assigned ids, for test fixtures.
func (m *Memory) Seed(entity engine.Entity, records ...engine.Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rec := range records {
		m.records[entity] = append(m.records[entity], cloneRecord(rec))
	}
}

func (m *Memory) Query(_ context.Context, entity engine.Entity, q engine.Query) ([]engine.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	all, ok := m.records[entity]
	if !ok {
		if _, known := knownEntities[entity]; !known {
			return nil, engine.ErrUnknownEntity
		}
	}

	var matched []engine.Record
	for _, rec := range all {
		keep := true
		for _, f := range q.Filters {
			match, err := matches(rec, f)
			if err != nil {
				return nil, err
			}
			if !match {
				keep = false
				break
			}
		}
		if keep {
			matched = append(matched, cloneRecord(rec))
		}
	}

	if len(q.Sort) > 0 {
		sort.SliceStable(matched, func(i, j int) bool {
			return less(matched[i], matched[j], q.Sort)
		})
	}

	offset := q.Offset
	if offset < 0 {
		offset = 0
	}
	if offset >= len(matched) {
		return nil, nil
	}
	matched = matched[offset:]
	if q.Limit > 0 && q.Limit < len(matched) {
		matched = matched[:q.Limit]
	}
	return matched, nil
}

func (m *Memory) Insert(_ context.Context, entity engine.Entity, rec engine.Record) (engine.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := cloneRecord(rec)
	if stored.Str("id") == "" {
		m.nextID++
		stored["id"] = fmt.Sprintf("%s-%d", entity, m.nextID)
	}
	m.records[entity] = append(m.records[entity], stored)
	return cloneRecord(stored), nil
}

func (m *Memory) Update(_ context.Context, entity engine.Entity, id string, rec engine.Record) (engine.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, existing := range m.records[entity] {
		if existing.Str("id") == id {
			stored := cloneRecord(rec)
			stored["id"] = id
			m.records[entity][i] = stored
			return cloneRecord(stored), nil
		}
	}
	return nil, engine.ErrEntityNotFound
}

func (m *Memory) Delete(_ context.Context, entity engine.Entity, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	records := m.records[entity]
	for i, existing := range records {
		if existing.Str("id") == id {
			m.records[entity] = append(records[:i], records[i+1:]...)
			return nil
		}
	}
	return engine.ErrEntityNotFound
}

var knownEntities = map[engine.Entity]struct{}{
	engine.EntityWorkLogs:  {},
	engine.EntityClients:   {},
	engine.EntityLocations: {},
	engine.EntityWorkTypes: {},
	engine.EntityEmployees: {},
	engine.EntityTemplates: {},
}

// =============================================================================
// FILTER EVALUATION
// =============================================================================

func matches(rec engine.Record, f engine.Filter) (bool, error) {
	actual := fieldString(rec, f.Field)
	switch f.Op {
	case engine.OpEq:
		return compareValues(actual, fmt.Sprintf("%v", f.Value)) == 0, nil
	case engine.OpIn:
		members, err := f.Members()
		if err != nil {
			return false, err
		}
		for _, m := range members {
			if compareValues(actual, m) == 0 {
				return true, nil
			}
		}
		return false, nil
	case engine.OpBetween:
		lo, hi, err := f.Bounds()
		if err != nil {
			return false, err
		}
		loS, hiS := fmt.Sprintf("%v", lo), fmt.Sprintf("%v", hi)
		return compareValues(actual, loS) >= 0 && compareValues(actual, hiS) <= 0, nil
	default:
		return false, &engine.FilterError{Field: f.Field, Op: f.Op, Reason: "unsupported operator"}
	}
}

func less(a, b engine.Record, sorts []engine.Sort) bool {
	for _, s := range sorts {
		cmp := compareValues(fieldString(a, s.Field), fieldString(b, s.Field))
		if cmp == 0 {
			continue
		}
		if s.Direction == engine.SortDesc {
			return cmp > 0
		}
		return cmp < 0
	}
	return false
}

// fieldString normalizes a record value for comparison. Dates normalize
// to yyyy-MM-dd so string ordering matches chronological ordering.
func fieldString(rec engine.Record, field string) string {
	switch v := rec[field].(type) {
	case nil:
		return ""
	case time.Time:
		return v.Format("2006-01-02")
	case decimal.Decimal:
		return v.String()
	case string:
		return v
	default:
		return fmt.Sprintf("%v", v)
	}
}

// compareValues compares numerically when both sides parse as decimals,
// lexically otherwise.
func compareValues(a, b string) int {
	ad, aerr := decimal.NewFromString(a)
	bd, berr := decimal.NewFromString(b)
	if aerr == nil && berr == nil {
		return ad.Cmp(bd)
	}
	return strings.Compare(a, b)
}

func cloneRecord(rec engine.Record) engine.Record {
	out := make(engine.Record, len(rec))
	for k, v := range rec {
		out[k] = v
	}
	return out
}

// =============================================================================
// TEMPLATE STORE
// =============================================================================

// SaveTemplate implements engine.TemplateStore.
func (m *Memory) SaveTemplate(_ context.Context, t engine.Template) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.templates = append(m.templates, t)
	return nil
}

// GetTemplate implements engine.TemplateStore.
func (m *Memory) GetTemplate(_ context.Context, id engine.TemplateID) (engine.Template, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, t := range m.templates {
		if t.ID == id {
			return t, nil
		}
	}
	return engine.Template{}, engine.ErrTemplateNotFound
}

// ListTemplates implements engine.TemplateStore.
func (m *Memory) ListTemplates(_ context.Context) ([]engine.Template, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]engine.Template{}, m.templates...), nil
}

// DeleteTemplate implements engine.TemplateStore.
func (m *Memory) DeleteTemplate(_ context.Context, id engine.TemplateID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, t := range m.templates {
		if t.ID == id {
			m.templates = append(m.templates[:i], m.templates[i+1:]...)
			return nil
		}
	}
	return engine.ErrTemplateNotFound
}

// RecordUse implements engine.TemplateStore.
func (m *Memory) RecordUse(_ context.Context, id engine.TemplateID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.templates {
		if m.templates[i].ID == id {
			m.templates[i].UseCount++
			ts := at
			m.templates[i].LastUsedAt = &ts
			return nil
		}
	}
	return engine.ErrTemplateNotFound
}
