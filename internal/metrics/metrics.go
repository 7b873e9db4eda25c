package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
)

const (
	OutcomeSucceeded = "succeeded"
	OutcomeFailed    = "failed"
)

type Metrics struct {
	registry *prometheus.Registry

	ScrapeOutcomes *prometheus.CounterVec
	SeasonsScraped prometheus.Counter
	SolverRequests prometheus.Counter
	SolverRetries  prometheus.Counter
	JobsEnqueued   prometheus.Counter
}

func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		ScrapeOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tracker_scrapes_total",
			Help: "Completed tracker scrape jobs by outcome.",
		}, []string{"outcome"}),
		SeasonsScraped: factory.NewCounter(prometheus.CounterOpts{
			Name: "tracker_seasons_scraped_total",
			Help: "Season records produced by the scrape orchestrator.",
		}),
		SolverRequests: factory.NewCounter(prometheus.CounterOpts{
			Name: "solver_requests_total",
			Help: "Requests issued to the anti-bot solver, including retries.",
		}),
		SolverRetries: factory.NewCounter(prometheus.CounterOpts{
			Name: "solver_retries_total",
			Help: "Solver requests that failed with a retryable error.",
		}),
		JobsEnqueued: factory.NewCounter(prometheus.CounterOpts{
			Name: "scrape_jobs_enqueued_total",
			Help: "Tracker scrape jobs handed to the job queue.",
		}),
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

var Module = fx.Provide(New)
