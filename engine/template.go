/*
template.go - Report template lifecycle

PURPOSE:
  A template is a named snapshot of a ReportConfig plus usage metadata.
  Saving never validates the configuration against the current registry;
  resolution at run time silently drops column ids that no longer exist,
  so stale templates keep working with their surviving columns.

USE COUNT:
  Running a template bumps use_count / last_used_at. The bump is
  best-effort: it must never block or fail a report run, so callers route
  it through the background usage flusher (api/usage.go) or ignore the
  error.

SEE ALSO:
  - store.go: Template and TemplateStore definitions
  - config.go: Normalize, the stale-column behavior
*/
package engine

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// TemplateManager mediates template persistence and resolution.
type TemplateManager struct {
	Store    TemplateStore
	Registry *Registry
}

func NewTemplateManager(store TemplateStore, reg *Registry) *TemplateManager {
	return &TemplateManager{Store: store, Registry: reg}
}

// Save snapshots the current configuration under a new template. The
// configuration is stored as-is - no structural validation against the
// registry, by contract.
func (m *TemplateManager) Save(ctx context.Context, name, description, createdBy string, shared bool, cfg ReportConfig) (Template, error) {
	t := Template{
		ID:          TemplateID(uuid.NewString()),
		Name:        name,
		Description: description,
		ReportType:  cfg.ReportType,
		Config:      cfg,
		CreatedBy:   createdBy,
		Shared:      shared,
		CreatedAt:   time.Now().UTC(),
	}
	if err := m.Store.SaveTemplate(ctx, t); err != nil {
		return Template{}, err
	}
	return t, nil
}

// Resolve loads a template and returns its configuration normalized
// against the current registry (stale columns dropped).
func (m *TemplateManager) Resolve(ctx context.Context, id TemplateID) (Template, ReportConfig, error) {
	t, err := m.Store.GetTemplate(ctx, id)
	if err != nil {
		return Template{}, ReportConfig{}, err
	}
	return t, t.Config.Normalize(m.Registry), nil
}

// List returns all templates.
func (m *TemplateManager) List(ctx context.Context) ([]Template, error) {
	return m.Store.ListTemplates(ctx)
}

// Delete removes a template. System templates are protected.
func (m *TemplateManager) Delete(ctx context.Context, id TemplateID) error {
	t, err := m.Store.GetTemplate(ctx, id)
	if err != nil {
		return err
	}
	if t.IsSystem {
		return &FilterError{Field: "template", Op: "delete", Reason: "system templates cannot be deleted"}
	}
	return m.Store.DeleteTemplate(ctx, id)
}

// RecordUse bumps usage metadata, swallowing failures. Safe to call
// inline; exports must not fail because a counter didn't persist.
func (m *TemplateManager) RecordUse(ctx context.Context, id TemplateID) {
	_ = m.Store.RecordUse(ctx, id, time.Now().UTC())
}
