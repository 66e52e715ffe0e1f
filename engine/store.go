/*
store.go - Persistence contract consumed by the engine

PURPOSE:
  Defines the interface between the engine and the backing store. The
  engine only ever issues generic entity queries; it never sees SQL. Rate
  resolution for work-log rows happens inside the store (a work_logs
  record arrives with rate and rate_type already attached, or with a null
  rate meaning "needs rate review").

QUERY CONTRACT:
  Query(ctx, entity, q) -> []Record | error

  Filters support eq / in / between (between inclusive on both bounds,
  including date fields). Sorting is an ordered list; implementations
  MUST break ties by a stable secondary key (the row id) so identical
  configurations paginate identically across requests.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: Production SQLite
  - engine/store/memory.go:  In-memory for tests and dev

SEE ALSO:
  - query.go: The executor built on this contract
  - template.go: TemplateStore for report templates
*/
package engine

import (
	"context"
	"time"
)

// =============================================================================
// GENERIC QUERY CONTRACT
// =============================================================================

// Query carries the predicate/ordering/windowing of one entity fetch.
// Limit <= 0 means no limit; Offset < 0 is treated as 0.
type Query struct {
	Filters []Filter
	Sort    []Sort
	Limit   int
	Offset  int
}

// Store is the generic persistence collaborator.
type Store interface {
	// Query fetches records for an entity. Failures must be wrapped so
	// the engine can classify them (see FetchError).
	Query(ctx context.Context, entity Entity, q Query) ([]Record, error)

	// Insert persists one record for an entity and returns it with any
	// store-assigned fields filled in.
	Insert(ctx context.Context, entity Entity, rec Record) (Record, error)

	// Update replaces the record with the given id.
	Update(ctx context.Context, entity Entity, id string, rec Record) (Record, error)

	// Delete removes the record with the given id.
	Delete(ctx context.Context, entity Entity, id string) error
}

// =============================================================================
// TEMPLATE STORE
// =============================================================================

// Template is the persisted report template record.
type Template struct {
	ID          TemplateID
	Name        string
	Description string
	ReportType  ReportType
	Config      ReportConfig
	CreatedBy   string
	IsSystem    bool
	Shared      bool
	UseCount    int
	LastUsedAt  *time.Time
	CreatedAt   time.Time
}

// TemplateStore persists report templates. RecordUse is best-effort:
// callers must treat its failure as non-fatal and never block an export
// on it.
type TemplateStore interface {
	SaveTemplate(ctx context.Context, t Template) error
	GetTemplate(ctx context.Context, id TemplateID) (Template, error)
	ListTemplates(ctx context.Context) ([]Template, error)
	DeleteTemplate(ctx context.Context, id TemplateID) error

	// RecordUse increments use_count and stamps last_used_at.
	RecordUse(ctx context.Context, id TemplateID, at time.Time) error
}
