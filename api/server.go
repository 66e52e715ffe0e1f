/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. RequestLogger: Request-scoped zerolog logger + access line
  2. Recoverer:     Panic recovery (500 instead of crash)
  3. RequestID:     Unique ID per request for tracing
  4. CORS:          Cross-origin requests for frontend

ROUTE GROUPS:
  /api/columns          Column catalog
  /api/templates/*      Report template CRUD
  /api/reports/*        Run, preview and export reports
  /api/invoices/*       QuickBooks invoice export
  /api/clients etc.     Master data
  /api/work-logs        Work-log ingestion and listing
  /api/scenarios/*      Demo data loaders

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/fleetwash/report-engine/engine"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, logger *zerolog.Logger) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Preview-Session"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Get("/columns", h.ListColumns)

		// Template routes
		r.Route("/templates", func(r chi.Router) {
			r.Get("/", h.ListTemplates)
			r.Post("/", h.SaveTemplate)
			r.Get("/{id}", h.GetTemplate)
			r.Delete("/{id}", h.DeleteTemplate)
		})

		// Report routes
		r.Route("/reports", func(r chi.Router) {
			r.Post("/run", h.RunReport)
			r.Post("/preview", h.SubmitPreview)
			r.Get("/preview", h.GetPreview)
			r.Post("/export", h.ExportReport)
		})

		// Invoice routes
		r.Route("/invoices", func(r chi.Router) {
			r.Post("/export", h.ExportInvoices)
		})

		// Master data routes
		r.Route("/clients", func(r chi.Router) {
			r.Get("/", h.ListEntity(engine.EntityClients))
			r.Post("/", h.CreateEntity(engine.EntityClients))
		})
		r.Route("/locations", func(r chi.Router) {
			r.Get("/", h.ListEntity(engine.EntityLocations))
			r.Post("/", h.CreateEntity(engine.EntityLocations))
		})
		r.Route("/work-types", func(r chi.Router) {
			r.Get("/", h.ListEntity(engine.EntityWorkTypes))
			r.Post("/", h.CreateEntity(engine.EntityWorkTypes))
		})
		r.Route("/employees", func(r chi.Router) {
			r.Get("/", h.ListEntity(engine.EntityEmployees))
			r.Post("/", h.CreateEntity(engine.EntityEmployees))
		})

		// Work log routes
		r.Route("/work-logs", func(r chi.Router) {
			r.Get("/", h.ListWorkLogs)
			r.Post("/", h.CreateWorkLog)
		})

		// Rate routes
		r.Post("/rates", h.SetRate)

		// Scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Post("/load", h.LoadScenario)
		})
	})

	return r
}
