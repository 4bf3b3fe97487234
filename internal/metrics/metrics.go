// Package metrics records invocation statistics with prometheus.
package metrics

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "lambdahost"

// Label names
const (
	KindLabel   = "kind"
	StatusLabel = "status"
)

// StatusError labels invocations that produced no response.
const StatusError = "error"

// KindUnknown labels events that matched no gateway shape.
const KindUnknown = "unknown"

// Metrics groups the collectors of one handler.
type Metrics struct {
	Invocations   *prometheus.CounterVec
	Duration      *prometheus.HistogramVec
	AsyncTimeouts prometheus.Counter
	RejectedPaths prometheus.Counter
	ColdStarts    prometheus.Counter
}

// New creates the collectors and registers them on reg. A nil reg uses a private registry.
// Collectors already registered on reg are reused.
func New(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	m := &Metrics{
		Invocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invocations_total",
			Help:      "Lambda invocations handled, by event kind and response status.",
		}, []string{KindLabel, StatusLabel}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "invocation_duration_seconds",
			Help:      "Time spent handling an invocation, by event kind.",
			Buckets:   prometheus.DefBuckets,
		}, []string{KindLabel}),
		AsyncTimeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "async_timeouts_total",
			Help:      "Asynchronous requests that did not complete before the timeout.",
		}),
		RejectedPaths: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rejected_paths_total",
			Help:      "Requests rejected by the path validator.",
		}),
		ColdStarts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cold_starts_total",
			Help:      "Framework initializations.",
		}),
	}

	var err error
	m.Invocations, err = register(reg, m.Invocations)
	if err != nil {
		return nil, err
	}
	m.Duration, err = register(reg, m.Duration)
	if err != nil {
		return nil, err
	}
	m.AsyncTimeouts, err = register(reg, m.AsyncTimeouts)
	if err != nil {
		return nil, err
	}
	m.RejectedPaths, err = register(reg, m.RejectedPaths)
	if err != nil {
		return nil, err
	}
	m.ColdStarts, err = register(reg, m.ColdStarts)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// ObserveInvocation records one finished invocation. A status of 0 means no response was produced.
func (m *Metrics) ObserveInvocation(kind string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	label := StatusError
	if status > 0 {
		label = strconv.Itoa(status)
	}
	m.Invocations.WithLabelValues(kind, label).Inc()
	m.Duration.WithLabelValues(kind).Observe(elapsed.Seconds())
}

// AsyncTimeout records an asynchronous request that timed out.
func (m *Metrics) AsyncTimeout() {
	if m != nil {
		m.AsyncTimeouts.Inc()
	}
}

// RejectedPath records a request rejected by the path validator.
func (m *Metrics) RejectedPath() {
	if m != nil {
		m.RejectedPaths.Inc()
	}
}

// ColdStart records a framework initialization.
func (m *Metrics) ColdStart() {
	if m != nil {
		m.ColdStarts.Inc()
	}
}

// Sample is one counter value.
type Sample struct {
	Name   string
	Labels string
	Value  float64
}

// Counters gathers the lambdahost counters registered on g, in gather order
// (sorted by name, then labels).
func Counters(g prometheus.Gatherer) ([]Sample, error) {
	families, err := g.Gather()
	if err != nil {
		return nil, fmt.Errorf("failed to gather metrics: %w", err)
	}

	var samples []Sample
	for _, mf := range families {
		if !strings.HasPrefix(mf.GetName(), namespace+"_") {
			continue
		}
		for _, m := range mf.GetMetric() {
			c := m.GetCounter()
			if c == nil {
				continue
			}
			labels := make([]string, 0, len(m.GetLabel()))
			for _, l := range m.GetLabel() {
				labels = append(labels, l.GetName()+"="+l.GetValue())
			}
			samples = append(samples, Sample{
				Name:   mf.GetName(),
				Labels: strings.Join(labels, ","),
				Value:  c.GetValue(),
			})
		}
	}
	return samples, nil
}
