package http

import (
	"fmt"
	"net/http"
	"strings"

	"backoffice/internal/amqp"
	"backoffice/internal/core"
	"backoffice/internal/export"
	"backoffice/internal/log"
	"backoffice/internal/report"

	"github.com/go-chi/chi/v5"
)

// Handler serves the API. Request-scoped loggers come from the trace
// middleware through the context.
type Handler struct {
	reports Reports
}

func NewHandler(reports Reports) *Handler {
	return &Handler{reports: reports}
}

func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (h *Handler) aggregate(r *http.Request) (core.Aggregate, error) {
	v := r.URL.Query()
	q := aggregateQuery{rangeQuery: parseRange(v), Q: v.Get("q")}
	if err := validateStruct(q); err != nil {
		return core.Aggregate{}, err
	}
	start, end, err := q.dates()
	if err != nil {
		return core.Aggregate{}, err
	}
	return h.reports.Aggregate(r.Context(), report.AggregateQuery{Start: start, End: end, NameFilter: q.Q})
}

func (h *Handler) Aggregate(w http.ResponseWriter, r *http.Request) {
	agg, err := h.aggregate(r)
	if err != nil {
		writeError(w, r, log.OpAggregate, err)
		return
	}
	writeJSON(w, http.StatusOK, agg)
}

func (h *Handler) AggregateWorkbook(w http.ResponseWriter, r *http.Request) {
	agg, err := h.aggregate(r)
	if err != nil {
		writeError(w, r, log.OpAggregate, err)
		return
	}
	wb, err := export.AggregateWorkbook(agg)
	if err != nil {
		writeError(w, r, log.OpExport, err)
		return
	}
	name := fmt.Sprintf("aggregate-%s-%s.xlsx", agg.Start, agg.End)
	writeWorkbook(w, r, log.OpExport, name, wb)
}

func (h *Handler) Series(w http.ResponseWriter, r *http.Request) {
	v := r.URL.Query()
	q := seriesQuery{rangeQuery: parseRange(v), Granularity: strings.ToLower(strings.TrimSpace(v.Get("granularity")))}
	if err := validateStruct(q); err != nil {
		writeError(w, r, log.OpSeries, err)
		return
	}
	start, end, err := q.dates()
	if err != nil {
		writeError(w, r, log.OpSeries, err)
		return
	}
	granularity, err := core.ParseGranularity(q.Granularity)
	if err != nil {
		writeError(w, r, log.OpSeries, err)
		return
	}
	s, err := h.reports.Series(r.Context(), report.SeriesQuery{Start: start, End: end, Granularity: granularity})
	if err != nil {
		writeError(w, r, log.OpSeries, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func (h *Handler) Drilldown(w http.ResponseWriter, r *http.Request) {
	v := r.URL.Query()
	q := drilldownQuery{rangeQuery: parseRange(v), Category: v.Get("category"), Name: v.Get("name")}
	if err := validateStruct(q); err != nil {
		writeError(w, r, log.OpDrilldown, err)
		return
	}
	start, end, err := q.dates()
	if err != nil {
		writeError(w, r, log.OpDrilldown, err)
		return
	}
	category, err := core.ParseCategory(q.Category)
	if err != nil {
		writeError(w, r, log.OpDrilldown, err)
		return
	}
	items, err := h.reports.Drilldown(r.Context(), report.DrilldownQuery{
		Start: start, End: end, Category: category, Name: q.Name,
	})
	if err != nil {
		writeError(w, r, log.OpDrilldown, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"category": category, "name": q.Name, "items": items})
}

func (h *Handler) SaveRecord(w http.ResponseWriter, r *http.Request) {
	var req recordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, log.OpUpsert, err)
		return
	}
	date, err := h.reports.SaveRecord(r.Context(), req.raw())
	if err != nil {
		writeError(w, r, log.OpUpsert, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"date": date})
}

func (h *Handler) DeleteRecord(w http.ResponseWriter, r *http.Request) {
	date, err := core.ParseDate(chi.URLParam(r, "date"))
	if err != nil {
		writeError(w, r, log.OpDelete, err)
		return
	}
	if err := h.reports.DeleteRecord(r.Context(), date); err != nil {
		writeError(w, r, log.OpDelete, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListFamilies(w http.ResponseWriter, r *http.Request) {
	families, err := h.reports.Families(r.Context())
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"families": families})
}

func (h *Handler) GetFamily(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	f, err := h.reports.Family(r.Context(), id)
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

// SaveFamily creates a family (POST /families) or replaces one
// (PUT /families/{id}).
func (h *Handler) SaveFamily(w http.ResponseWriter, r *http.Request) {
	var id int64
	status := http.StatusCreated
	if chi.URLParam(r, "id") != "" {
		var err error
		if id, err = pathID(r); err != nil {
			writeError(w, r, log.OpUpsert, err)
			return
		}
		status = http.StatusOK
	}
	var req familyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, log.OpUpsert, err)
		return
	}
	saved, err := h.reports.SaveFamily(r.Context(), core.Family{
		ID: id, Name: strings.TrimSpace(req.Name), Rows: req.Rows, Suppliers: req.Suppliers,
	})
	if err != nil {
		writeError(w, r, log.OpUpsert, err)
		return
	}
	writeJSON(w, status, map[string]any{"id": saved})
}

func (h *Handler) DeleteFamily(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, log.OpDelete, err)
		return
	}
	if err := h.reports.DeleteFamily(r.Context(), id); err != nil {
		writeError(w, r, log.OpDelete, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ComparisonOverview(w http.ResponseWriter, r *http.Request) {
	overview, err := h.reports.ComparisonOverview(r.Context())
	if err != nil {
		writeError(w, r, log.OpComparison, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"comparisons": overview})
}

func (h *Handler) comparison(r *http.Request) (core.Comparison, error) {
	id, err := pathID(r)
	if err != nil {
		return core.Comparison{}, err
	}
	return h.reports.Comparison(r.Context(), id)
}

func (h *Handler) Comparison(w http.ResponseWriter, r *http.Request) {
	c, err := h.comparison(r)
	if err != nil {
		writeError(w, r, log.OpComparison, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) ComparisonWorkbook(w http.ResponseWriter, r *http.Request) {
	c, err := h.comparison(r)
	if err != nil {
		writeError(w, r, log.OpComparison, err)
		return
	}
	wb, err := export.ComparisonWorkbook(c)
	if err != nil {
		writeError(w, r, log.OpExport, err)
		return
	}
	writeWorkbook(w, r, log.OpExport, fmt.Sprintf("comparison-%d.xlsx", c.FamilyID), wb)
}

func (h *Handler) quote(w http.ResponseWriter, r *http.Request) (core.Quote, error) {
	id, err := pathID(r)
	if err != nil {
		return core.Quote{}, err
	}
	var req quoteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return core.Quote{}, err
	}
	return h.reports.Quote(r.Context(), id, flexMap(req.Quantities))
}

func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	q, err := h.quote(w, r)
	if err != nil {
		writeError(w, r, log.OpQuote, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (h *Handler) QuoteWorkbook(w http.ResponseWriter, r *http.Request) {
	q, err := h.quote(w, r)
	if err != nil {
		writeError(w, r, log.OpQuote, err)
		return
	}
	wb, err := export.QuoteWorkbook(q)
	if err != nil {
		writeError(w, r, log.OpExport, err)
		return
	}
	writeWorkbook(w, r, log.OpExport, fmt.Sprintf("quote-%d.xlsx", q.FamilyID), wb)
}

// RequestExport queues an asynchronous export and answers 202 with the
// request id.
func (h *Handler) RequestExport(w http.ResponseWriter, r *http.Request) {
	var req exportRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, log.OpExport, err)
		return
	}
	msg := amqp.NewExportRequestMessage(amqp.ExportKind(req.Kind))
	msg.Start = req.Start
	msg.End = req.End
	msg.Filter = strings.TrimSpace(req.Filter)
	msg.FamilyID = req.FamilyID
	if len(req.Quantities) > 0 {
		msg.Quantities = flexMap(req.Quantities)
	}
	id, err := h.reports.RequestExport(r.Context(), msg)
	if err != nil {
		writeError(w, r, log.OpExport, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"id": id, "kind": msg.Kind})
}
