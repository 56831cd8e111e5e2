package metrics

import (
	"runtime"
	"runtime/debug"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Escalation phases recorded by the termination counter.
const (
	PhaseGraceful = "graceful"
	PhaseForceful = "forceful"
)

var (
	registry = prometheus.NewRegistry()

	sessionsStarted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "runny",
		Name:      "sessions_started_total",
		Help:      "Total number of supervised sessions started.",
	})

	sessionsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "runny",
		Name:      "sessions_active",
		Help:      "Number of sessions currently running.",
	})

	terminations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "runny",
		Name:      "terminations_total",
		Help:      "Termination signals sent, labelled by escalation phase.",
	}, []string{"phase"})

	sessionExits = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "runny",
		Name:      "session_exits_total",
		Help:      "Session exits by published exit code.",
	}, []string{"code"})

	sessionDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "runny",
		Name:      "session_duration_seconds",
		Help:      "Wall-clock lifetime of sessions in seconds.",
		Buckets:   prometheus.ExponentialBuckets(0.01, 4, 10),
	})

	buildInfo = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "runny",
		Name:      "build_info",
		Help:      "Build metadata for the running runny binary.",
	}, []string{"go_version", "vcs", "vcs_revision", "vcs_time", "vcs_modified"})

	buildInfoOnce sync.Once
)

func init() {
	registry.MustRegister(sessionsStarted, sessionsActive, terminations, sessionExits, sessionDuration, buildInfo)
}

// Registry returns the Prometheus registry containing all runny metrics.
func Registry() *prometheus.Registry {
	return registry
}

// SessionStarted records a freshly spawned session.
func SessionStarted() {
	sessionsStarted.Inc()
	sessionsActive.Inc()
}

// SessionExited records a published exit result and the session lifetime.
func SessionExited(code int, lifetime time.Duration) {
	sessionsActive.Dec()
	sessionExits.WithLabelValues(strconv.Itoa(code)).Inc()
	sessionDuration.Observe(lifetime.Seconds())
}

// TerminationSignaled counts a delivered escalation phase.
func TerminationSignaled(phase string) {
	if phase == "" {
		return
	}
	terminations.WithLabelValues(phase).Inc()
}

// EmitBuildInfo publishes build metadata about the running binary.
func EmitBuildInfo() {
	buildInfoOnce.Do(func() {
		labels := prometheus.Labels{
			"go_version":   runtime.Version(),
			"vcs":          "",
			"vcs_revision": "",
			"vcs_time":     "",
			"vcs_modified": "",
		}
		if info, ok := debug.ReadBuildInfo(); ok {
			if info.GoVersion != "" {
				labels["go_version"] = info.GoVersion
			}
			for _, setting := range info.Settings {
				switch setting.Key {
				case "vcs":
					labels["vcs"] = setting.Value
				case "vcs.revision":
					labels["vcs_revision"] = setting.Value
				case "vcs.time":
					labels["vcs_time"] = setting.Value
				case "vcs.modified":
					labels["vcs_modified"] = setting.Value
				}
			}
		}
		buildInfo.With(labels).Set(1)
	})
}
