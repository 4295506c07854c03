// Package metrics exposes Prometheus collectors for the bot.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MimeLyc/subtitle-bot/internal/jobs"
	"github.com/MimeLyc/subtitle-bot/pkg/log"
)

const (
	Namespace = "subtitle_bot"

	subsystemJobs     = "jobs"
	subsystemPipeline = "pipeline"
	subsystemQuota    = "quota"
	subsystemLLM      = "llm"
	subsystemUsers    = "users"
)

// Metrics holds every collector on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	startTime prometheus.Gauge

	jobsTotal      *prometheus.CounterVec
	stageDuration  *prometheus.HistogramVec
	stageFailures  *prometheus.CounterVec
	quotaDecisions *prometheus.CounterVec
	llmTokens      *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}
	m.registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{Namespace: Namespace}))
	m.registry.MustRegister(collectors.NewGoCollector())

	m.startTime = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      "start_timestamp_seconds",
		Help:      "The time the bot started.",
	})
	m.startTime.SetToCurrentTime()
	m.registry.MustRegister(m.startTime)

	m.jobsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: subsystemJobs,
		Name:      "total",
		Help:      "Media jobs by lifecycle status.",
	}, []string{"status"})
	m.registry.MustRegister(m.jobsTotal)

	m.stageDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: Namespace,
		Subsystem: subsystemPipeline,
		Name:      "stage_duration_seconds",
		Help:      "Time spent reaching each pipeline stage.",
		Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
	}, []string{"stage"})
	m.registry.MustRegister(m.stageDuration)

	m.stageFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: subsystemPipeline,
		Name:      "failures_total",
		Help:      "Pipeline failures by error kind.",
	}, []string{"kind"})
	m.registry.MustRegister(m.stageFailures)

	m.quotaDecisions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: subsystemQuota,
		Name:      "decisions_total",
		Help:      "Upload admission decisions.",
	}, []string{"decision"})
	m.registry.MustRegister(m.quotaDecisions)

	m.llmTokens = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: subsystemLLM,
		Name:      "tokens_total",
		Help:      "Tokens exchanged with the translation backend.",
	}, []string{"model", "direction"})
	m.registry.MustRegister(m.llmTokens)

	return m
}

type errorLogger struct{}

func (errorLogger) Println(v ...interface{}) {
	log.Warn("metrics handler error: %v", v)
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		ErrorLog: errorLogger{},
	})
}

// JobChanged counts accepted and finished jobs. It satisfies jobs.Observer.
func (m *Metrics) JobChanged(job jobs.Job) {
	if m == nil {
		return
	}
	switch job.Status {
	case jobs.StatusPending, jobs.StatusSuccess, jobs.StatusFailed:
		m.jobsTotal.With(prometheus.Labels{"status": string(job.Status)}).Inc()
	}
}

func (m *Metrics) ObserveStage(stage string, elapsed time.Duration) {
	if m != nil {
		m.stageDuration.With(prometheus.Labels{"stage": stage}).Observe(elapsed.Seconds())
	}
}

func (m *Metrics) ObserveFailure(kind string) {
	if m != nil {
		m.stageFailures.With(prometheus.Labels{"kind": kind}).Inc()
	}
}

func (m *Metrics) ObserveQuotaDecision(allowed bool) {
	if m == nil {
		return
	}
	decision := "rejected"
	if allowed {
		decision = "admitted"
	}
	m.quotaDecisions.With(prometheus.Labels{"decision": decision}).Inc()
}

func (m *Metrics) ObserveLLMTokens(model string, prompt, completion int) {
	if m == nil {
		return
	}
	m.llmTokens.With(prometheus.Labels{"model": model, "direction": "sent"}).Add(float64(prompt))
	m.llmTokens.With(prometheus.Labels{"model": model, "direction": "received"}).Add(float64(completion))
}

// TrackUsers exposes the size of the user table.
func (m *Metrics) TrackUsers(count func() int) {
	if m == nil || count == nil {
		return
	}
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: Namespace,
		Subsystem: subsystemUsers,
		Name:      "tracked",
		Help:      "User records currently held in memory.",
	}, func() float64 { return float64(count()) }))
}
