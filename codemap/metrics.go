package codemap

import (
	prom "github.com/prometheus/client_golang/prometheus"
)

// Failure reasons reported to Recorder.IncFailure.
const (
	FailureExhausted   = "exhausted"
	FailureOutOfMemory = "out_of_memory"
	FailureInvalidCode = "invalid_code"
)

// Recorder receives registry events.
type Recorder interface {
	IncRegistered()
	IncRetrieved()
	IncFailure(reason string)
	IncCleared(n int)
	SetLive(n int)
}

// NoopRecorder discards all events.
type NoopRecorder struct{}

func (NoopRecorder) IncRegistered()    {}
func (NoopRecorder) IncRetrieved()     {}
func (NoopRecorder) IncFailure(string) {}
func (NoopRecorder) IncCleared(int)    {}
func (NoopRecorder) SetLive(int)       {}

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	registered prom.Counter
	retrieved  prom.Counter
	failures   *prom.CounterVec
	cleared    prom.Counter
	live       prom.Gauge
}

var (
	_ Recorder = NoopRecorder{}
	_ Recorder = (*PrometheusRecorder)(nil)
)

// NewPrometheusRecorder constructs the metrics and registers them with reg.
// A nil reg gets a private registry.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{}
	pr.registered = prom.NewCounter(prom.CounterOpts{
		Namespace: "errbridge",
		Subsystem: "codemap",
		Name:      "registered_total",
		Help:      "Errors exchanged for a mapped code",
	})
	pr.retrieved = prom.NewCounter(prom.CounterOpts{
		Namespace: "errbridge",
		Subsystem: "codemap",
		Name:      "retrieved_total",
		Help:      "Mapped codes exchanged back for their error",
	})
	pr.failures = prom.NewCounterVec(prom.CounterOpts{
		Namespace: "errbridge",
		Subsystem: "codemap",
		Name:      "failures_total",
		Help:      "Register and retrieve failures by reason",
	}, []string{"reason"})
	pr.cleared = prom.NewCounter(prom.CounterOpts{
		Namespace: "errbridge",
		Subsystem: "codemap",
		Name:      "cleared_total",
		Help:      "Entries destroyed by thread clears and close",
	})
	pr.live = prom.NewGauge(prom.GaugeOpts{
		Namespace: "errbridge",
		Subsystem: "codemap",
		Name:      "live_entries",
		Help:      "Entries currently held by the registry",
	})
	reg.MustRegister(pr.registered, pr.retrieved, pr.failures, pr.cleared, pr.live)
	return pr
}

func (p *PrometheusRecorder) IncRegistered() {
	if p == nil || p.registered == nil {
		return
	}
	p.registered.Inc()
}

func (p *PrometheusRecorder) IncRetrieved() {
	if p == nil || p.retrieved == nil {
		return
	}
	p.retrieved.Inc()
}

func (p *PrometheusRecorder) IncFailure(reason string) {
	if p == nil || p.failures == nil {
		return
	}
	p.failures.WithLabelValues(reason).Inc()
}

func (p *PrometheusRecorder) IncCleared(n int) {
	if p == nil || p.cleared == nil {
		return
	}
	p.cleared.Add(float64(n))
}

func (p *PrometheusRecorder) SetLive(n int) {
	if p == nil || p.live == nil {
		return
	}
	p.live.Set(float64(n))
}
