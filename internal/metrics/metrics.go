// Package metrics holds the Prometheus collectors for runs, credits and HTTP.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "persona_agent"

// Metrics is safe to use as a nil pointer; every method is then a no-op.
type Metrics struct {
	gatherer prometheus.Gatherer

	runsTotal      *prometheus.CounterVec
	phaseDuration  *prometheus.HistogramVec
	creditsUsed    prometheus.Gauge
	creditsLimit   prometheus.Gauge
	castsIngested  prometheus.Counter
	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
	queueOutcomes  *prometheus.CounterVec
	llmTokensTotal *prometheus.CounterVec
}

// New registers the collectors on reg. Pass prometheus.NewRegistry() in tests
// to keep them isolated from the default registry.
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		gatherer: reg,
		runsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Ingestion and persona runs by outcome",
		}, []string{"phase", "status", "reason"}),
		phaseDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "phase_duration_seconds",
			Help:      "Time spent in each orchestrator state",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 14), // 10ms to ~80s
		}, []string{"phase", "state"}),
		creditsUsed: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "credits_used",
			Help:      "Farcaster API credits consumed today",
		}),
		creditsLimit: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "credits_limit",
			Help:      "Daily Farcaster API credit limit",
		}),
		castsIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "casts_ingested_total",
			Help:      "Casts upserted by ingestion runs",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status",
		}, []string{"method", "endpoint", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
		queueOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queue_messages_total",
			Help:      "Queue messages by task type and outcome",
		}, []string{"task", "outcome"}),
		llmTokensTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_tokens_total",
			Help:      "Language model tokens consumed",
		}, []string{"model", "direction"}),
	}

	reg.MustRegister(
		m.runsTotal,
		m.phaseDuration,
		m.creditsUsed,
		m.creditsLimit,
		m.castsIngested,
		m.httpRequests,
		m.httpDuration,
		m.queueOutcomes,
		m.llmTokensTotal,
	)
	return m
}

func (m *Metrics) RecordRun(phase, status, reason string) {
	if m == nil {
		return
	}
	m.runsTotal.WithLabelValues(phase, status, reason).Inc()
}

func (m *Metrics) ObserveState(phase, state string, d time.Duration) {
	if m == nil {
		return
	}
	m.phaseDuration.WithLabelValues(phase, state).Observe(d.Seconds())
}

func (m *Metrics) SetCredits(used, limit int) {
	if m == nil {
		return
	}
	m.creditsUsed.Set(float64(used))
	m.creditsLimit.Set(float64(limit))
}

func (m *Metrics) AddCastsIngested(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.castsIngested.Add(float64(n))
}

func (m *Metrics) RecordQueueMessage(task, outcome string) {
	if m == nil {
		return
	}
	m.queueOutcomes.WithLabelValues(task, outcome).Inc()
}

func (m *Metrics) AddLLMTokens(model string, prompt, completion int) {
	if m == nil {
		return
	}
	m.llmTokensTotal.WithLabelValues(model, "prompt").Add(float64(prompt))
	m.llmTokensTotal.WithLabelValues(model, "completion").Add(float64(completion))
}

// Middleware records request counts and latency per route template.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unknown"
		}
		method := c.Request.Method
		m.httpRequests.WithLabelValues(method, endpoint, strconv.Itoa(c.Writer.Status())).Inc()
		m.httpDuration.WithLabelValues(method, endpoint).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	if m != nil {
		h = promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
	}
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
