// Package http exposes the reports as a JSON API.
package http

import (
	"context"
	"net/http"
	"time"

	"backoffice/internal/amqp"
	"backoffice/internal/core"
	"backoffice/internal/log"
	"backoffice/internal/middleware/trace"
	"backoffice/internal/report"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Reports is the service surface the handlers call.
type Reports interface {
	Aggregate(ctx context.Context, q report.AggregateQuery) (core.Aggregate, error)
	Series(ctx context.Context, q report.SeriesQuery) (core.Series, error)
	Drilldown(ctx context.Context, q report.DrilldownQuery) ([]core.LineItem, error)
	SaveRecord(ctx context.Context, rec core.RawRecord) (core.Date, error)
	DeleteRecord(ctx context.Context, date core.Date) error

	Families(ctx context.Context) ([]core.Family, error)
	Family(ctx context.Context, id int64) (core.Family, error)
	SaveFamily(ctx context.Context, f core.Family) (int64, error)
	DeleteFamily(ctx context.Context, id int64) error
	Comparison(ctx context.Context, familyID int64) (core.Comparison, error)
	ComparisonOverview(ctx context.Context) ([]core.Comparison, error)
	Quote(ctx context.Context, familyID int64, quantities map[string]string) (core.Quote, error)

	RequestExport(ctx context.Context, msg *amqp.ExportRequestMessage) (string, error)
}

type Server struct {
	http.Server
	handler *Handler
	trace   *trace.Middleware
}

// NewServer builds the API server listening on addr.
func NewServer(addr string, reports Reports, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Discard()
	}
	h := NewHandler(reports)
	tm := trace.NewMiddleware(logger)
	s := &Server{handler: h, trace: tm}
	s.Server = http.Server{
		Addr:              addr,
		Handler:           NewRouter(h, tm),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// NewRouter mounts the API under /api/v1.
func NewRouter(h *Handler, tm *trace.Middleware) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(tm.Middleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/healthz", h.Health)

		r.Get("/aggregate", h.Aggregate)
		r.Get("/aggregate.xlsx", h.AggregateWorkbook)
		r.Get("/series", h.Series)
		r.Get("/drilldown", h.Drilldown)
		r.Put("/records", h.SaveRecord)
		r.Delete("/records/{date}", h.DeleteRecord)

		r.Get("/families", h.ListFamilies)
		r.Post("/families", h.SaveFamily)
		r.Get("/families/overview", h.ComparisonOverview)
		r.Get("/families/{id}", h.GetFamily)
		r.Put("/families/{id}", h.SaveFamily)
		r.Delete("/families/{id}", h.DeleteFamily)
		r.Get("/families/{id}/comparison", h.Comparison)
		r.Get("/families/{id}/comparison.xlsx", h.ComparisonWorkbook)
		r.Post("/families/{id}/quote", h.Quote)
		r.Post("/families/{id}/quote.xlsx", h.QuoteWorkbook)

		r.Post("/exports", h.RequestExport)
	})
	return r
}

// Metrics returns the request counters.
func (s *Server) Metrics() trace.Metrics {
	return s.trace.GetMetrics()
}
