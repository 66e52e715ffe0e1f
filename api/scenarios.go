/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the database with realistic
	data for testing and demos. Each scenario creates clients, locations,
	work types, employees, rates, and work logs that demonstrate specific
	billing shapes.

AVAILABLE SCENARIOS:

	weekly-route:   One client, two locations, weekly and 2x/week washes
	mixed-billing:  Parent companies, hourly janitorial and EPA charges

HOW SCENARIOS WORK:
 1. Create master data (clients, locations, work types, employees)
 2. Configure rates per (client, location, work type, frequency)
 3. Log a week of work ending on a billing Friday

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "weekly-route"}

ADDING NEW SCENARIOS:
 1. Add to 'scenarios' slice with ID, name, description
 2. Create loader function: loadXxxScenario(ctx, h)
 3. Add case to LoadScenario handler

NOTE:

	Scenarios insert rows with fixed ids; loading the same scenario twice
	fails on the primary key. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: Master data handlers used by the loaders
*/
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/fleetwash/report-engine/engine"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

// ScenarioDTO describes one loadable demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LoadScenarioRequest selects a scenario to load.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

var scenarios = []ScenarioDTO{
	{
		ID:          "weekly-route",
		Name:        "Weekly Route",
		Description: "One client, two locations, weekly and 2x/week truck washes",
	},
	{
		ID:          "mixed-billing",
		Name:        "Mixed Billing",
		Description: "Parent companies, hourly janitorial, and EPA charges",
	},
}

// =============================================================================
// HANDLERS
// =============================================================================

// ListScenarios returns available demo scenarios.
// GET /api/scenarios
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// LoadScenario loads a demo scenario into the database.
// POST /api/scenarios/load
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	ctx := r.Context()
	var err error
	switch req.ScenarioID {
	case "weekly-route":
		err = h.loadWeeklyRouteScenario(ctx)
	case "mixed-billing":
		err = h.loadMixedBillingScenario(ctx)
	default:
		writeError(w, http.StatusNotFound, "Unknown scenario", nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load scenario", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "loaded",
		"scenario": req.ScenarioID,
	})
}

// =============================================================================
// LOADERS
// =============================================================================

type seedRow struct {
	entity engine.Entity
	rec    engine.Record
}

func (h *Handler) seed(ctx context.Context, rows []seedRow) error {
	for _, s := range rows {
		if _, err := h.Store.Insert(ctx, s.entity, s.rec); err != nil {
			return err
		}
	}
	return nil
}

// loadWeeklyRouteScenario: one client with two locations on a weekly
// route. Work logs span Mon-Thu of a week ending Friday 2026-01-09.
func (h *Handler) loadWeeklyRouteScenario(ctx context.Context) error {
	rows := []seedRow{
		{engine.EntityClients, engine.Record{"id": "cl-acme", "name": "Acme Trucking", "parent_company": "", "terms": "Net 30"}},
		{engine.EntityLocations, engine.Record{"id": "loc-acme-north", "client_id": "cl-acme", "name": "North Yard"}},
		{engine.EntityLocations, engine.Record{"id": "loc-acme-south", "client_id": "cl-acme", "name": "South Yard"}},
		{engine.EntityWorkTypes, engine.Record{"id": "wt-truck", "name": "Truck", "rate_type": string(engine.RatePerUnit)}},
		{engine.EntityWorkTypes, engine.Record{"id": "wt-trailer", "name": "Trailer", "rate_type": string(engine.RatePerUnit)}},
		{engine.EntityEmployees, engine.Record{"id": "emp-maria", "name": "Maria Lopez", "email": "maria@example.com"}},
	}
	if err := h.seed(ctx, rows); err != nil {
		return err
	}

	rates := []struct{ id, loc, wt, freq, rate string }{
		{"rate-wr-1", "loc-acme-north", "wt-truck", "Weekly", "42.50"},
		{"rate-wr-2", "loc-acme-north", "wt-trailer", "2x/week", "31.00"},
		{"rate-wr-3", "loc-acme-south", "wt-truck", "Weekly", "45.00"},
	}
	for _, rt := range rates {
		if err := h.Store.SetRate(ctx, rt.id, "cl-acme", rt.loc, rt.wt, rt.freq, rt.rate); err != nil {
			return err
		}
	}

	logs := []struct{ id, loc, wt, date, freq, qty string }{
		{"wl-wr-1", "loc-acme-north", "wt-truck", "2026-01-05", "Weekly", "6"},
		{"wl-wr-2", "loc-acme-north", "wt-trailer", "2026-01-05", "2x/week", "3"},
		{"wl-wr-3", "loc-acme-north", "wt-trailer", "2026-01-08", "2x/week", "3"},
		{"wl-wr-4", "loc-acme-south", "wt-truck", "2026-01-07", "Weekly", "9"},
	}
	workLogs := make([]seedRow, 0, len(logs))
	for _, l := range logs {
		workLogs = append(workLogs, seedRow{engine.EntityWorkLogs, engine.Record{
			"id": l.id, "employee_id": "emp-maria", "client_id": "cl-acme",
			"location_id": l.loc, "work_type_id": l.wt,
			"date": l.date, "frequency": l.freq, "identifier": "", "quantity": l.qty,
		}})
	}
	return h.seed(ctx, workLogs)
}

// loadMixedBillingScenario: two clients under a shared parent company,
// hourly janitorial work and an EPA compliance charge.
func (h *Handler) loadMixedBillingScenario(ctx context.Context) error {
	rows := []seedRow{
		{engine.EntityClients, engine.Record{"id": "cl-delta", "name": "Delta Freight", "parent_company": "Delta Holdings", "terms": "Net 15"}},
		{engine.EntityClients, engine.Record{"id": "cl-delta-air", "name": "Delta Air Cargo", "parent_company": "Delta Holdings", "terms": "Net 45"}},
		{engine.EntityLocations, engine.Record{"id": "loc-delta-hub", "client_id": "cl-delta", "name": "Central Hub"}},
		{engine.EntityLocations, engine.Record{"id": "loc-delta-air", "client_id": "cl-delta-air", "name": "Airport Ramp"}},
		{engine.EntityWorkTypes, engine.Record{"id": "wt-jani", "name": "Janitorial", "rate_type": string(engine.RateHourly)}},
		{engine.EntityWorkTypes, engine.Record{"id": "wt-epa", "name": "EPA Charges", "rate_type": string(engine.RatePerUnit)}},
		{engine.EntityWorkTypes, engine.Record{"id": "wt-van", "name": "Van", "rate_type": string(engine.RatePerUnit)}},
		{engine.EntityEmployees, engine.Record{"id": "emp-jordan", "name": "Jordan Reyes", "email": "jordan@example.com"}},
	}
	if err := h.seed(ctx, rows); err != nil {
		return err
	}

	rates := []struct{ id, client, loc, wt, freq, rate string }{
		{"rate-mb-1", "cl-delta", "loc-delta-hub", "wt-jani", "", "28.00"},
		{"rate-mb-2", "cl-delta", "loc-delta-hub", "wt-epa", "", "15.00"},
		{"rate-mb-3", "cl-delta-air", "loc-delta-air", "wt-van", "2x/month", "22.75"},
	}
	for _, rt := range rates {
		if err := h.Store.SetRate(ctx, rt.id, rt.client, rt.loc, rt.wt, rt.freq, rt.rate); err != nil {
			return err
		}
	}

	logs := []struct{ id, client, loc, wt, date, freq, qty string }{
		{"wl-mb-1", "cl-delta", "loc-delta-hub", "wt-jani", "2026-01-06", "", "4.5"},
		{"wl-mb-2", "cl-delta", "loc-delta-hub", "wt-epa", "2026-01-06", "", "1"},
		{"wl-mb-3", "cl-delta-air", "loc-delta-air", "wt-van", "2026-01-07", "2x/month", "12"},
	}
	workLogs := make([]seedRow, 0, len(logs))
	for _, l := range logs {
		workLogs = append(workLogs, seedRow{engine.EntityWorkLogs, engine.Record{
			"id": l.id, "employee_id": "emp-jordan", "client_id": l.client,
			"location_id": l.loc, "work_type_id": l.wt,
			"date": l.date, "frequency": l.freq, "identifier": "", "quantity": l.qty,
		}})
	}
	return h.seed(ctx, workLogs)
}
