package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	"client-report-card/internal/config"
	"client-report-card/internal/logging"
	"client-report-card/internal/metrics"
	"client-report-card/internal/model"
	"client-report-card/internal/pipeline"
	"client-report-card/pkg/utils"
)

// HistoryStore is the data access the report handlers need.
type HistoryStore interface {
	FetchHistory(ctx context.Context, q model.HistoryQuery) ([]model.RawRecord, error)
	Ping(ctx context.Context) (time.Duration, error)
}

// ReportResponse is the body of GET /api.
type ReportResponse struct {
	URL     string                   `json:"url"`
	Count   int                      `json:"count"`
	Records []model.NormalizedRecord `json:"records"`
}

// AggregateResponse is the body of GET /api/aggregate.
type AggregateResponse struct {
	Count   int                      `json:"count"`
	Records []model.AggregatedRecord `json:"records"`
}

type HealthResponse struct {
	Status    string  `json:"status"`
	LatencyMS float64 `json:"latency_ms"`
	Error     string  `json:"error,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type ReportHandler struct {
	store   HistoryStore
	limits  config.ReportConfig
	metrics *metrics.Metrics
}

// NewReportHandler wires the handlers to a store. m may be nil.
func NewReportHandler(store HistoryStore, limits config.ReportConfig, m *metrics.Metrics) *ReportHandler {
	return &ReportHandler{store: store, limits: limits, metrics: m}
}

// Report decodes the history of one site
// @Summary Site report
// @Description Decode every stored response for one site, newest first
// @Tags reports
// @Produce json
// @Param url query string true "Site URL"
// @Param type query string false "History type"
// @Param action query string false "History action"
// @Param status query string false "History status"
// @Param from query string false "Start of window (unix seconds or RFC3339)"
// @Param to query string false "End of window (unix seconds or RFC3339)"
// @Param limit query int false "Maximum rows"
// @Param summary query string false "Projection: full or count"
// @Success 200 {object} ReportResponse
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api [get]
func (h *ReportHandler) Report(w http.ResponseWriter, r *http.Request) {
	q, proj, err := h.parseQuery(r, true)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	records, _, err := pipeline.Run(r.Context(), h.source(q), pipeline.Options{Projection: proj, Metrics: h.metrics})
	if err != nil {
		h.failed(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ReportResponse{URL: q.URL, Count: len(records), Records: records})
}

// Aggregate sums numeric response fields per site
// @Summary Aggregated report
// @Description Sum numeric response fields of every matching record per site URL
// @Tags reports
// @Produce json
// @Param url query string false "Site URL (all sites when absent)"
// @Param type query string false "History type"
// @Param action query string false "History action"
// @Param status query string false "History status"
// @Param from query string false "Start of window (unix seconds or RFC3339)"
// @Param to query string false "End of window (unix seconds or RFC3339)"
// @Param limit query int false "Maximum rows"
// @Param summary query string false "Projection: full or count"
// @Success 200 {object} AggregateResponse
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/aggregate [get]
func (h *ReportHandler) Aggregate(w http.ResponseWriter, r *http.Request) {
	q, proj, err := h.parseQuery(r, false)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	records, _, err := pipeline.Report(r.Context(), h.source(q), pipeline.Options{Projection: proj, Metrics: h.metrics})
	if err != nil {
		h.failed(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, AggregateResponse{Count: len(records), Records: records})
}

// Health pings the database
// @Summary Health check
// @Tags health
// @Produce json
// @Success 200 {object} HealthResponse
// @Failure 503 {object} HealthResponse
// @Router /api/health [get]
func (h *ReportHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	d, err := h.store.Ping(ctx)
	resp := HealthResponse{Status: "ok", LatencyMS: float64(d.Microseconds()) / 1000}
	if err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Msg("database ping failed")
		resp.Status = "unavailable"
		resp.Error = "database unreachable"
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *ReportHandler) source(q model.HistoryQuery) pipeline.Source {
	return func(ctx context.Context) ([]model.RawRecord, error) {
		return h.store.FetchHistory(ctx, q)
	}
}

func (h *ReportHandler) parseQuery(r *http.Request, requireURL bool) (model.HistoryQuery, pipeline.Projection, error) {
	params := r.URL.Query()

	q := model.HistoryQuery{
		URL:    params.Get("url"),
		Type:   params.Get("type"),
		Action: params.Get("action"),
		Status: params.Get("status"),
	}
	if requireURL && q.URL == "" {
		return q, 0, errors.New("URL parameter is required")
	}

	var err error
	if q.Limit, err = utils.ParseLimit(params.Get("limit"), h.limits.DefaultLimit, h.limits.MaxLimit); err != nil {
		return q, 0, fmt.Errorf("invalid limit parameter: %w", err)
	}
	if q.From, err = utils.ParseTime(params.Get("from")); err != nil {
		return q, 0, fmt.Errorf("invalid from parameter: %w", err)
	}
	if q.To, err = utils.ParseTime(params.Get("to")); err != nil {
		return q, 0, fmt.Errorf("invalid to parameter: %w", err)
	}
	if !q.From.IsZero() && !q.To.IsZero() && q.To.Before(q.From) {
		return q, 0, errors.New("to must not be before from")
	}

	proj, ok := pipeline.ParseProjection(params.Get("summary"))
	if !ok {
		return q, 0, fmt.Errorf("invalid summary parameter %q", params.Get("summary"))
	}

	if err := config.Validator().Struct(q); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return q, 0, fmt.Errorf("invalid %s parameter", queryName(verrs[0].Field()))
		}
		return q, 0, fmt.Errorf("invalid query: %w", err)
	}
	return q, proj, nil
}

func queryName(field string) string {
	switch field {
	case "URL":
		return "url"
	case "Type":
		return "type"
	case "Action":
		return "action"
	case "Status":
		return "status"
	}
	return field
}

func (h *ReportHandler) failed(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, context.Canceled) {
		// Client went away; nobody reads the response.
		return
	}
	logging.Ctx(r.Context()).Error().Err(err).Str("query", r.URL.RawQuery).Msg("report failed")
	writeError(w, http.StatusInternalServerError, errors.New("failed to load history"))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		logging.Error().Err(err).Msg("encode response")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"failed to encode response"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, ErrorResponse{Error: err.Error()})
}
