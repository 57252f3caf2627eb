package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/grantgenius/grantgenius-backend/internal/pkg/apperror"
)

// Metrics набор счётчиков сервиса. Регистрируются в переданном реестре,
// в тестах можно использовать отдельный prometheus.NewRegistry().
type Metrics struct {
	HTTPRequests      *prometheus.CounterVec
	HTTPDuration      *prometheus.HistogramVec
	Generations       *prometheus.CounterVec
	GenerationSeconds prometheus.Histogram
	ProposalWrites    *prometheus.CounterVec
}

// New создаёт и регистрирует метрики.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "grantgenius",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "grantgenius",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		Generations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "grantgenius",
			Name:      "proposal_generations_total",
			Help:      "Draft generation calls by outcome.",
		}, []string{"outcome"}),
		GenerationSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "grantgenius",
			Name:      "proposal_generation_seconds",
			Help:      "Latency of the external draft generation call.",
			Buckets:   []float64{1, 5, 10, 20, 30, 45, 60, 90, 120},
		}),
		ProposalWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "grantgenius",
			Name:      "proposal_writes_total",
			Help:      "Proposal writes by kind (autosave, update) and outcome (ok, conflict, error).",
		}, []string{"kind", "outcome"}),
	}

	reg.MustRegister(m.HTTPRequests, m.HTTPDuration, m.Generations, m.GenerationSeconds, m.ProposalWrites)
	return m
}

// ObserveHTTP фиксирует завершённый HTTP запрос.
func (m *Metrics) ObserveHTTP(route, method string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(route, method).Observe(elapsed.Seconds())
}

// ObserveGeneration фиксирует вызов генератора.
func (m *Metrics) ObserveGeneration(err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.GenerationSeconds.Observe(elapsed.Seconds())
	m.Generations.WithLabelValues(outcome(err)).Inc()
}

// ObserveWrite фиксирует запись заявки.
func (m *Metrics) ObserveWrite(kind string, err error) {
	if m == nil {
		return
	}
	m.ProposalWrites.WithLabelValues(kind, outcome(err)).Inc()
}

// outcome метка результата; конфликт версий считается отдельно от ошибок.
func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case apperror.IsConflict(err):
		return "conflict"
	default:
		return "error"
	}
}
