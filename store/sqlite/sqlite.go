/*
Package sqlite provides a SQLite-backed implementation of the storage contracts.

PURPOSE:
  Implements engine.Store (the generic entity query contract) and
  engine.TemplateStore using SQLite. In production, the same patterns
  apply to PostgreSQL - only minor SQL dialect differences.

QUERY CONTRACT:
  Query(entity, filters, sort, limit, offset) builds a parameterized
  SELECT from a per-entity whitelist. Filter fields that are not in the
  whitelist are rejected before any SQL runs. BETWEEN is inclusive on
  both bounds (dates are stored as yyyy-MM-dd TEXT, so lexical ordering
  matches chronological ordering).

RATE RESOLUTION:
  work_logs rows come back with their rate already resolved via a LEFT
  JOIN onto rate_configurations keyed by
  (client_id, location_id, work_type_id, frequency). No matching rate
  configuration leaves the rate NULL, which the engine surfaces as
  "needs rate review".

KEY TABLES:
  clients, locations, work_types, employees: master data
  rate_configurations:                       resolved pricing
  work_logs:                                 billable units of work
  report_templates:                          saved configurations + usage

DECIMALS:
  Quantities and rates are stored as TEXT and parsed with
  shopspring/decimal. Money never round-trips through float64.

WAL MODE:
  SQLite is opened with WAL for better concurrency: multiple readers
  don't block, single writer at a time.

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - engine/store.go: Contract definitions
  - engine/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/fleetwash/report-engine/engine"
	"github.com/fleetwash/report-engine/factory"
)

// Store implements engine.Store and engine.TemplateStore using SQLite.
type Store struct {
	db      *sql.DB
	mu      sync.RWMutex
	configs *factory.ConfigFactory
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Writes are serialized behind the store mutex anyway, and a single
	// connection keeps ":memory:" databases from fragmenting per-conn.
	db.SetMaxOpenConns(1)

	store := &Store{db: db, configs: factory.NewConfigFactory()}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Master data
	CREATE TABLE IF NOT EXISTS clients (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		parent_company TEXT NOT NULL DEFAULT '',
		terms TEXT NOT NULL DEFAULT 'Net 30',
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS locations (
		id TEXT PRIMARY KEY,
		client_id TEXT NOT NULL,
		name TEXT NOT NULL,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_locations_client ON locations(client_id);

	CREATE TABLE IF NOT EXISTS work_types (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		rate_type TEXT NOT NULL DEFAULT 'per_unit',
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS employees (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT,
		created_at TEXT NOT NULL
	);

	-- Resolved pricing for (client, location, work type, frequency)
	CREATE TABLE IF NOT EXISTS rate_configurations (
		id TEXT PRIMARY KEY,
		client_id TEXT NOT NULL,
		location_id TEXT NOT NULL,
		work_type_id TEXT NOT NULL,
		frequency TEXT NOT NULL DEFAULT '',
		rate TEXT NOT NULL,
		created_at TEXT NOT NULL,
		UNIQUE(client_id, location_id, work_type_id, frequency)
	);
	CREATE INDEX IF NOT EXISTS idx_rates_lookup
		ON rate_configurations(client_id, location_id, work_type_id, frequency);

	-- Billable units of work
	CREATE TABLE IF NOT EXISTS work_logs (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		client_id TEXT NOT NULL,
		location_id TEXT NOT NULL,
		work_type_id TEXT NOT NULL,
		date TEXT NOT NULL,
		frequency TEXT NOT NULL DEFAULT '',
		identifier TEXT NOT NULL DEFAULT '',
		quantity TEXT NOT NULL DEFAULT '1',
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_work_logs_date ON work_logs(date);
	CREATE INDEX IF NOT EXISTS idx_work_logs_client_location_date
		ON work_logs(client_id, location_id, date);
	CREATE INDEX IF NOT EXISTS idx_work_logs_employee ON work_logs(employee_id);

	-- Saved report templates
	CREATE TABLE IF NOT EXISTS report_templates (
		id TEXT PRIMARY KEY,
		template_name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		report_type TEXT NOT NULL,
		config_json TEXT NOT NULL,
		created_by TEXT NOT NULL DEFAULT '',
		is_system_template INTEGER NOT NULL DEFAULT 0,
		shared INTEGER NOT NULL DEFAULT 0,
		use_count INTEGER NOT NULL DEFAULT 0,
		last_used_at TEXT,
		created_at TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// ENTITY METADATA - Per-entity SQL whitelist
// =============================================================================

type entityMeta struct {
	baseSelect string
	// fields maps contract field names to SQL column expressions usable
	// in WHERE and ORDER BY.
	fields map[string]string
	// table/columns drive the generic writes.
	table   string
	columns []string
	scan    func(*sql.Rows) (engine.Record, error)
}

var workLogSelect = `
	SELECT w.id, w.employee_id, w.client_id, w.location_id, w.work_type_id,
	       w.date, w.frequency, w.identifier, w.quantity, rc.rate
	FROM work_logs w
	LEFT JOIN rate_configurations rc
	  ON rc.client_id = w.client_id
	 AND rc.location_id = w.location_id
	 AND rc.work_type_id = w.work_type_id
	 AND rc.frequency = w.frequency`

var entities = map[engine.Entity]entityMeta{
	engine.EntityWorkLogs: {
		baseSelect: workLogSelect,
		fields: map[string]string{
			"id":           "w.id",
			"employee_id":  "w.employee_id",
			"client_id":    "w.client_id",
			"location_id":  "w.location_id",
			"work_type_id": "w.work_type_id",
			"date":         "w.date",
			"frequency":    "w.frequency",
			"identifier":   "w.identifier",
			"quantity":     "w.quantity",
		},
		table:   "work_logs",
		columns: []string{"id", "employee_id", "client_id", "location_id", "work_type_id", "date", "frequency", "identifier", "quantity"},
		scan:    scanWorkLog,
	},
	engine.EntityClients: {
		baseSelect: `SELECT id, name, parent_company, terms FROM clients`,
		fields:     map[string]string{"id": "id", "name": "name", "parent_company": "parent_company", "terms": "terms"},
		table:      "clients",
		columns:    []string{"id", "name", "parent_company", "terms"},
		scan:       scanStrings("id", "name", "parent_company", "terms"),
	},
	engine.EntityLocations: {
		baseSelect: `SELECT id, client_id, name FROM locations`,
		fields:     map[string]string{"id": "id", "client_id": "client_id", "name": "name"},
		table:      "locations",
		columns:    []string{"id", "client_id", "name"},
		scan:       scanStrings("id", "client_id", "name"),
	},
	engine.EntityWorkTypes: {
		baseSelect: `SELECT id, name, rate_type FROM work_types`,
		fields:     map[string]string{"id": "id", "name": "name", "rate_type": "rate_type"},
		table:      "work_types",
		columns:    []string{"id", "name", "rate_type"},
		scan:       scanStrings("id", "name", "rate_type"),
	},
	engine.EntityEmployees: {
		baseSelect: `SELECT id, name, COALESCE(email, '') FROM employees`,
		fields:     map[string]string{"id": "id", "name": "name", "email": "email"},
		table:      "employees",
		columns:    []string{"id", "name", "email"},
		scan:       scanStrings("id", "name", "email"),
	},
}

func scanStrings(keys ...string) func(*sql.Rows) (engine.Record, error) {
	return func(rows *sql.Rows) (engine.Record, error) {
		vals := make([]sql.NullString, len(keys))
		ptrs := make([]any, len(keys))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		rec := make(engine.Record, len(keys))
		for i, k := range keys {
			rec[k] = vals[i].String
		}
		return rec, nil
	}
}

func scanWorkLog(rows *sql.Rows) (engine.Record, error) {
	var id, employeeID, clientID, locationID, workTypeID, date, frequency, identifier, quantity string
	var rate sql.NullString
	if err := rows.Scan(&id, &employeeID, &clientID, &locationID, &workTypeID,
		&date, &frequency, &identifier, &quantity, &rate); err != nil {
		return nil, err
	}
	rec := engine.Record{
		"id":           id,
		"employee_id":  employeeID,
		"client_id":    clientID,
		"location_id":  locationID,
		"work_type_id": workTypeID,
		"date":         date,
		"frequency":    frequency,
		"identifier":   identifier,
		"quantity":     quantity,
	}
	if rate.Valid {
		rec["rate"] = rate.String
	}
	return rec, nil
}

// =============================================================================
// GENERIC QUERY
// =============================================================================

// Query implements engine.Store.
func (s *Store) Query(ctx context.Context, entity engine.Entity, q engine.Query) ([]engine.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	meta, ok := entities[entity]
	if !ok {
		return nil, engine.ErrUnknownEntity
	}

	sqlStr, args, err := buildQuery(meta, q)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", entity, err)
	}
	defer rows.Close()

	var out []engine.Record
	for rows.Next() {
		rec, err := meta.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", entity, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func buildQuery(meta entityMeta, q engine.Query) (string, []any, error) {
	var sb strings.Builder
	sb.WriteString(meta.baseSelect)
	var args []any

	var predicates []string
	for _, f := range q.Filters {
		col, ok := meta.fields[f.Field]
		if !ok {
			return "", nil, &engine.FilterError{Field: f.Field, Op: f.Op, Reason: "field not filterable"}
		}
		switch f.Op {
		case engine.OpEq:
			predicates = append(predicates, col+" = ?")
			args = append(args, fmt.Sprintf("%v", f.Value))
		case engine.OpIn:
			members, err := f.Members()
			if err != nil {
				return "", nil, err
			}
			if len(members) == 0 {
				predicates = append(predicates, "1 = 0")
				continue
			}
			placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(members)), ", ")
			predicates = append(predicates, col+" IN ("+placeholders+")")
			for _, m := range members {
				args = append(args, m)
			}
		case engine.OpBetween:
			lo, hi, err := f.Bounds()
			if err != nil {
				return "", nil, err
			}
			// SQL BETWEEN is inclusive on both bounds, which is the contract.
			predicates = append(predicates, col+" BETWEEN ? AND ?")
			args = append(args, fmt.Sprintf("%v", lo), fmt.Sprintf("%v", hi))
		default:
			return "", nil, &engine.FilterError{Field: f.Field, Op: f.Op, Reason: "unsupported operator"}
		}
	}
	if len(predicates) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(predicates, " AND "))
	}

	if len(q.Sort) > 0 {
		var orders []string
		for _, srt := range q.Sort {
			col, ok := meta.fields[srt.Field]
			if !ok {
				return "", nil, &engine.FilterError{Field: srt.Field, Op: "sort", Reason: "field not sortable"}
			}
			dir := "ASC"
			if srt.Direction == engine.SortDesc {
				dir = "DESC"
			}
			orders = append(orders, col+" "+dir)
		}
		sb.WriteString(" ORDER BY ")
		sb.WriteString(strings.Join(orders, ", "))
	}

	if q.Limit > 0 {
		sb.WriteString(fmt.Sprintf(" LIMIT %d", q.Limit))
		if q.Offset > 0 {
			sb.WriteString(fmt.Sprintf(" OFFSET %d", q.Offset))
		}
	} else if q.Offset > 0 {
		sb.WriteString(fmt.Sprintf(" LIMIT -1 OFFSET %d", q.Offset))
	}

	return sb.String(), args, nil
}

// =============================================================================
// GENERIC WRITES
// =============================================================================

// Insert implements engine.Store.
func (s *Store) Insert(ctx context.Context, entity engine.Entity, rec engine.Record) (engine.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	meta, ok := entities[entity]
	if !ok {
		return nil, engine.ErrUnknownEntity
	}

	now := time.Now().UTC().Format(time.RFC3339)
	cols := append([]string{}, meta.columns...)
	cols = append(cols, "created_at")

	args := make([]any, 0, len(cols))
	for _, c := range meta.columns {
		args = append(args, rec.Str(c))
	}
	args = append(args, now)

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		meta.table, strings.Join(cols, ", "), placeholders)
	if _, err := s.db.ExecContext(ctx, stmt, args...); err != nil {
		return nil, fmt.Errorf("insert %s: %w", entity, err)
	}
	return rec, nil
}

// Update implements engine.Store.
func (s *Store) Update(ctx context.Context, entity engine.Entity, id string, rec engine.Record) (engine.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	meta, ok := entities[entity]
	if !ok {
		return nil, engine.ErrUnknownEntity
	}

	var sets []string
	var args []any
	for _, c := range meta.columns {
		if c == "id" {
			continue
		}
		if _, present := rec[c]; !present {
			continue
		}
		sets = append(sets, c+" = ?")
		args = append(args, rec.Str(c))
	}
	if len(sets) == 0 {
		return rec, nil
	}
	args = append(args, id)

	stmt := fmt.Sprintf("UPDATE %s SET %s WHERE id = ?", meta.table, strings.Join(sets, ", "))
	res, err := s.db.ExecContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("update %s: %w", entity, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, engine.ErrEntityNotFound
	}
	rec["id"] = id
	return rec, nil
}

// Delete implements engine.Store.
func (s *Store) Delete(ctx context.Context, entity engine.Entity, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	meta, ok := entities[entity]
	if !ok {
		return engine.ErrUnknownEntity
	}
	res, err := s.db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = ?", meta.table), id)
	if err != nil {
		return fmt.Errorf("delete %s: %w", entity, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return engine.ErrEntityNotFound
	}
	return nil
}

// SetRate upserts a rate configuration for a
// (client, location, work type, frequency) combination.
func (s *Store) SetRate(ctx context.Context, id, clientID, locationID, workTypeID, frequency, rate string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO rate_configurations (id, client_id, location_id, work_type_id, frequency, rate, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(client_id, location_id, work_type_id, frequency)
		DO UPDATE SET rate = excluded.rate`,
		id, clientID, locationID, workTypeID, frequency, rate, now)
	if err != nil {
		return fmt.Errorf("set rate: %w", err)
	}
	return nil
}

// =============================================================================
// TEMPLATE STORE
// =============================================================================

// SaveTemplate implements engine.TemplateStore.
func (s *Store) SaveTemplate(ctx context.Context, t engine.Template) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	configJSON, err := s.configs.Marshal(t.Config)
	if err != nil {
		return fmt.Errorf("marshal template config: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO report_templates
			(id, template_name, description, report_type, config_json,
			 created_by, is_system_template, shared, use_count, last_used_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(t.ID), t.Name, t.Description, string(t.ReportType), configJSON,
		t.CreatedBy, boolInt(t.IsSystem), boolInt(t.Shared), t.UseCount,
		nullTime(t.LastUsedAt), t.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("save template: %w", err)
	}
	return nil
}

// GetTemplate implements engine.TemplateStore.
func (s *Store) GetTemplate(ctx context.Context, id engine.TemplateID) (engine.Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, template_name, description, report_type, config_json,
		       created_by, is_system_template, shared, use_count, last_used_at, created_at
		FROM report_templates WHERE id = ?`, string(id))
	t, err := s.scanTemplate(row.Scan)
	if err == sql.ErrNoRows {
		return engine.Template{}, engine.ErrTemplateNotFound
	}
	return t, err
}

// ListTemplates implements engine.TemplateStore.
func (s *Store) ListTemplates(ctx context.Context) ([]engine.Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, template_name, description, report_type, config_json,
		       created_by, is_system_template, shared, use_count, last_used_at, created_at
		FROM report_templates ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()

	var out []engine.Template
	for rows.Next() {
		t, err := s.scanTemplate(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// DeleteTemplate implements engine.TemplateStore.
func (s *Store) DeleteTemplate(ctx context.Context, id engine.TemplateID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM report_templates WHERE id = ?`, string(id))
	if err != nil {
		return fmt.Errorf("delete template: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return engine.ErrTemplateNotFound
	}
	return nil
}

// RecordUse implements engine.TemplateStore. Best-effort by contract:
// callers ignore the error.
func (s *Store) RecordUse(ctx context.Context, id engine.TemplateID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE report_templates
		SET use_count = use_count + 1, last_used_at = ?
		WHERE id = ?`, at.Format(time.RFC3339), string(id))
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return engine.ErrTemplateNotFound
	}
	return nil
}

func (s *Store) scanTemplate(scan func(...any) error) (engine.Template, error) {
	var t engine.Template
	var id, reportType, configJSON, createdAt string
	var isSystem, shared int
	var lastUsed sql.NullString
	if err := scan(&id, &t.Name, &t.Description, &reportType, &configJSON,
		&t.CreatedBy, &isSystem, &shared, &t.UseCount, &lastUsed, &createdAt); err != nil {
		return engine.Template{}, err
	}

	t.ID = engine.TemplateID(id)
	t.ReportType = engine.ReportType(reportType)
	t.IsSystem = isSystem != 0
	t.Shared = shared != 0
	if ts, err := time.Parse(time.RFC3339, createdAt); err == nil {
		t.CreatedAt = ts
	}
	if lastUsed.Valid {
		if ts, err := time.Parse(time.RFC3339, lastUsed.String); err == nil {
			t.LastUsedAt = &ts
		}
	}

	cfg, err := s.configs.Parse(configJSON)
	if err != nil {
		return engine.Template{}, fmt.Errorf("template %s: %w", id, err)
	}
	t.Config = cfg
	return t, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(time.RFC3339)
}
