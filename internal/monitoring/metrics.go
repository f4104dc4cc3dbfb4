package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the controller's Prometheus collectors. All methods are
// safe to call on a nil *Metrics, which records nothing.
type Metrics struct {
	registry *prometheus.Registry

	framesCaptured  prometheus.Counter
	framesDropped   prometheus.Counter
	captureMisses   prometheus.Counter
	positionsFound  prometheus.Counter
	commandsSent    *prometheus.CounterVec
	echoFailures    prometheus.Counter
	safetyCollapses prometheus.Counter
	ticks           *prometheus.CounterVec
	missedTicks     prometheus.Counter
	tickLatency     prometheus.Histogram
	driverConnected prometheus.Gauge
}

// NewMetrics creates a Metrics instance with its own registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		framesCaptured: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "edumag_frames_captured_total",
			Help: "Frames read from the camera and processed",
		}),
		framesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "edumag_frames_dropped_total",
			Help: "Processed frames overwritten before the control loop read them",
		}),
		captureMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "edumag_capture_misses_total",
			Help: "Camera reads that returned no frame",
		}),
		positionsFound: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "edumag_positions_found_total",
			Help: "Processed frames in which the marker was located",
		}),
		commandsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "edumag_driver_commands_total",
			Help: "Commands sent to the coil driver by result",
		}, []string{"result"}),
		echoFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "edumag_driver_echo_failures_total",
			Help: "Commands abandoned after exhausting echo attempts",
		}),
		safetyCollapses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "edumag_safety_collapses_total",
			Help: "Current requests collapsed to zero for exceeding the hardware ceiling",
		}),
		ticks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "edumag_session_ticks_total",
			Help: "Control loop ticks by session kind",
		}, []string{"session"}),
		missedTicks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "edumag_session_missed_ticks_total",
			Help: "Ticks that overran the tick interval",
		}),
		tickLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "edumag_session_tick_seconds",
			Help:    "Time spent handling one control loop tick",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		}),
		driverConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "edumag_driver_connected",
			Help: "1 while the coil driver serial link is open",
		}),
	}
	m.registry.MustRegister(
		m.framesCaptured, m.framesDropped, m.captureMisses, m.positionsFound,
		m.commandsSent, m.echoFailures, m.safetyCollapses,
		m.ticks, m.missedTicks, m.tickLatency, m.driverConnected,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) FrameCaptured() {
	if m != nil {
		m.framesCaptured.Inc()
	}
}

func (m *Metrics) FrameDropped() {
	if m != nil {
		m.framesDropped.Inc()
	}
}

func (m *Metrics) CaptureMissed() {
	if m != nil {
		m.captureMisses.Inc()
	}
}

func (m *Metrics) PositionFound() {
	if m != nil {
		m.positionsFound.Inc()
	}
}

// CommandSent records one driver round trip; err == nil counts as "ok".
func (m *Metrics) CommandSent(err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.commandsSent.WithLabelValues(result).Inc()
}

func (m *Metrics) EchoFailed() {
	if m != nil {
		m.echoFailures.Inc()
	}
}

func (m *Metrics) SafetyCollapsed() {
	if m != nil {
		m.safetyCollapses.Inc()
	}
}

func (m *Metrics) Tick(session string, seconds float64) {
	if m == nil {
		return
	}
	m.ticks.WithLabelValues(session).Inc()
	m.tickLatency.Observe(seconds)
}

func (m *Metrics) TickMissed() {
	if m != nil {
		m.missedTicks.Inc()
	}
}

func (m *Metrics) SetDriverConnected(connected bool) {
	if m == nil {
		return
	}
	if connected {
		m.driverConnected.Set(1)
	} else {
		m.driverConnected.Set(0)
	}
}
