// Package telemetry records dispatch-loop metrics in a private Prometheus
// registry. The node has no HTTP surface, so the registry is exported as a
// node_exporter textfile when the session ends.
package telemetry

import (
	"fmt"
	"strconv"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/morezero/echo-node/pkg/message"
)

const (
	namespace    = "echo_node"
	devVersion   = "0.0.0-dev"
	outcomeOK    = "ok"
	outcomeError = "error"
	logPrefix    = "telemetry:metrics"
)

// Metrics holds the collectors for one node session.
type Metrics struct {
	Registry *prometheus.Registry

	requests  *prometheus.CounterVec
	replies   *prometheus.CounterVec
	errors    *prometheus.CounterVec
	malformed prometheus.Counter
	duration  prometheus.Histogram
	buildInfo *prometheus.GaugeVec
}

// New creates and registers the collectors.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "Decoded requests by body type.",
			},
			[]string{"type"},
		),
		replies: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "replies_total",
				Help:      "Replies written, by request type and outcome.",
			},
			[]string{"type", "outcome"},
		),
		errors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "error_replies_total",
				Help:      "Error replies by error code.",
			},
			[]string{"code"},
		),
		malformed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "malformed_total",
			Help:      "Input lines dropped because they could not be decoded.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dispatch_duration_seconds",
			Help:      "Time from decoded request to flushed reply.",
			// 10µs .. ~160ms
			Buckets: prometheus.ExponentialBuckets(0.00001, 2, 15),
		}),
		buildInfo: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "build_info",
				Help:      "Build info (constant 1, labeled by semantic version).",
			},
			[]string{"version"},
		),
	}
	m.Registry.MustRegister(m.requests, m.replies, m.errors, m.malformed, m.duration, m.buildInfo)
	return m
}

// ObserveRequest counts a decoded request.
func (m *Metrics) ObserveRequest(req *message.Envelope) {
	m.requests.WithLabelValues(req.Body.Type).Inc()
}

// ObserveReply counts the reply written for req and the time it took.
func (m *Metrics) ObserveReply(req, reply *message.Envelope, elapsed time.Duration) {
	outcome := outcomeOK
	if reply.Body.Type == message.TypeError {
		outcome = outcomeError
		var code int
		if err := reply.Body.Payload.Get("code", &code); err == nil {
			m.errors.WithLabelValues(strconv.Itoa(code)).Inc()
		}
	}
	m.replies.WithLabelValues(req.Body.Type, outcome).Inc()
	m.duration.Observe(elapsed.Seconds())
}

// ObserveMalformed counts a dropped input line.
func (m *Metrics) ObserveMalformed() {
	m.malformed.Inc()
}

// SetBuildInfo records the build version, normalised to semantic version form.
func (m *Metrics) SetBuildInfo(version string) {
	m.buildInfo.WithLabelValues(NormalizeVersion(version)).Set(1)
}

// NormalizeVersion parses version leniently ("v1.2", "1.2.3-rc.1") and returns
// its canonical form, or 0.0.0-dev when it is not a semantic version.
func NormalizeVersion(version string) string {
	v, err := semver.NewVersion(version)
	if err != nil {
		return devVersion
	}
	return v.String()
}

// WriteTextfile writes every collected metric to path in the text exposition format.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.Registry); err != nil {
		return fmt.Errorf("%s - write %s: %w", logPrefix, path, err)
	}
	return nil
}
