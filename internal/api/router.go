package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "client-report-card/docs"
	"client-report-card/internal/api/handler"
	"client-report-card/internal/config"
	"client-report-card/internal/metrics"
	"client-report-card/pkg/router"
)

// Deps are the collaborators the HTTP surface is built from.
type Deps struct {
	Store    handler.HistoryStore
	Config   *config.Config
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
}

// NewRouter builds the full HTTP surface: report routes under the
// configured base path, /metrics and /swagger/*.
func NewRouter(d Deps) *router.Router {
	r := router.New(router.Options{
		CORSOrigins: d.Config.Server.CORSOrigins,
		RateLimit:   d.Config.Server.RateLimit,
		Observer:    d.Metrics.ObserveHTTP,
	})

	h := handler.NewReportHandler(d.Store, d.Config.Report, d.Metrics)
	if base := d.Config.Server.BasePath; base != "" && base != "/" {
		r.Group(base, func(g *router.Router) { RegisterRoutes(g, h) })
	} else {
		RegisterRoutes(r, h)
	}

	gatherer := d.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	r.GET("/swagger/*", router.HandlerFunc(httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
		httpSwagger.DeepLinking(true),
	)))
	r.GET("/", func(w http.ResponseWriter, req *http.Request) {
		http.Redirect(w, req, "/swagger/index.html", http.StatusFound)
	})
	return r
}

func RegisterRoutes(r *router.Router, h *handler.ReportHandler) {
	r.GET("/api", h.Report)
	r.GET("/api/aggregate", h.Aggregate)
	r.GET("/api/health", h.Health)
}
