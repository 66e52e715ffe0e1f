/*
Package factory provides JSON to Go report configuration conversion.

PURPOSE:
  Converts persisted JSON report configurations into engine.ReportConfig
  values. Templates store their configuration as JSON, so the shape here
  is the durable contract: old snapshots must keep parsing as the engine
  evolves.

JSON SCHEMA:
  {
    "report_type": "work_logs",
    "columns": ["client", "location", "quantity", "total_amount"],
    "filters": [
      {"field": "client_id", "operator": "eq", "value": "cl-1"},
      {"field": "date", "operator": "between",
       "value": ["2024-01-01", "2024-01-31"]}
    ],
    "sorting": [{"field": "date", "direction": "desc"}]
  }

KEY FEATURES:
  - Sets sensible defaults (report type, operator, sort direction)
  - Tolerates unknown column ids: they survive parsing and are dropped by
    Normalize at run time, so stale templates degrade instead of failing

SEE ALSO:
  - engine/config.go: ReportConfig and Normalize
  - engine/template.go: Template resolution
*/
package factory

import (
	"encoding/json"
	"fmt"

	"github.com/fleetwash/report-engine/engine"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// ConfigJSON is the JSON representation of a report configuration.
type ConfigJSON struct {
	ReportType string       `json:"report_type,omitempty"`
	Columns    []string     `json:"columns"`
	Filters    []FilterJSON `json:"filters,omitempty"`
	Sorting    []SortJSON   `json:"sorting,omitempty"`
}

type FilterJSON struct {
	Field    string `json:"field"`
	Operator string `json:"operator,omitempty"`
	Value    any    `json:"value"`
}

type SortJSON struct {
	Field     string `json:"field"`
	Direction string `json:"direction,omitempty"`
}

// =============================================================================
// FACTORY
// =============================================================================

type ConfigFactory struct{}

func NewConfigFactory() *ConfigFactory {
	return &ConfigFactory{}
}

// Parse converts a JSON configuration string into a ReportConfig,
// applying defaults. Unknown column ids are kept: the engine drops them
// at resolution time against the live registry.
func (f *ConfigFactory) Parse(configJSON string) (engine.ReportConfig, error) {
	var raw ConfigJSON
	if err := json.Unmarshal([]byte(configJSON), &raw); err != nil {
		return engine.ReportConfig{}, fmt.Errorf("invalid report configuration: %w", err)
	}
	return f.FromJSON(raw)
}

// FromJSON converts the decoded JSON shape, applying defaults.
func (f *ConfigFactory) FromJSON(raw ConfigJSON) (engine.ReportConfig, error) {
	cfg := engine.ReportConfig{
		ReportType: engine.ReportType(raw.ReportType),
	}
	if cfg.ReportType == "" {
		cfg.ReportType = engine.ReportWorkLogs
	}
	switch cfg.ReportType {
	case engine.ReportWorkLogs, engine.ReportInvoice:
	default:
		return engine.ReportConfig{}, fmt.Errorf("unknown report type %q", raw.ReportType)
	}

	for _, c := range raw.Columns {
		cfg.Columns = append(cfg.Columns, engine.ColumnID(c))
	}

	for _, fj := range raw.Filters {
		op := engine.FilterOp(fj.Operator)
		if op == "" {
			op = engine.OpEq
		}
		cfg.Filters = append(cfg.Filters, engine.Filter{
			Field: fj.Field,
			Op:    op,
			Value: fj.Value,
		})
	}

	for _, sj := range raw.Sorting {
		dir := engine.SortDirection(sj.Direction)
		if dir == "" {
			dir = engine.SortAsc
		}
		cfg.Sorting = append(cfg.Sorting, engine.Sort{Field: sj.Field, Direction: dir})
	}

	return cfg, nil
}

// Marshal renders a configuration back to its JSON snapshot form.
func (f *ConfigFactory) Marshal(cfg engine.ReportConfig) (string, error) {
	raw := ConfigJSON{ReportType: string(cfg.ReportType)}
	for _, c := range cfg.Columns {
		raw.Columns = append(raw.Columns, string(c))
	}
	for _, fl := range cfg.Filters {
		raw.Filters = append(raw.Filters, FilterJSON{Field: fl.Field, Operator: string(fl.Op), Value: fl.Value})
	}
	for _, s := range cfg.Sorting {
		raw.Sorting = append(raw.Sorting, SortJSON{Field: s.Field, Direction: string(s.Direction)})
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
