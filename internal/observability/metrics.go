package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Session metrics
	activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "voice_assistant_active_sessions",
		Help: "Number of active assistant sessions",
	})

	totalSessions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voice_assistant_sessions_total",
		Help: "Total number of assistant sessions",
	})

	sessionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "voice_assistant_session_duration_seconds",
		Help:    "Duration of assistant sessions in seconds",
		Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
	})

	// Aggregation metrics
	utterancesFlushed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voice_assistant_utterances_flushed_total",
		Help: "Total utterances flushed from the text aggregator",
	}, []string{"trigger"}) // trigger: "length", "punctuation", "timeout", "manual"

	fragmentsDeduplicated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voice_assistant_fragments_deduplicated_total",
		Help: "Text fragments dropped as duplicates",
	})

	// Synthesis metrics
	synthesisRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voice_assistant_synthesis_requests_total",
		Help: "Total number of synthesis attempts",
	}, []string{"status"})

	synthesisLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "voice_assistant_synthesis_latency_seconds",
		Help:    "End-to-end synthesis latency in seconds",
		Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.0, 5.0},
	})

	fallbackInvocations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voice_assistant_fallback_invocations_total",
		Help: "Times the local fallback synthesizer was used",
	})

	// Playback metrics
	queueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "voice_assistant_playback_queue_depth",
		Help: "Clips waiting in the playback queue",
	})

	clipsPlayed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voice_assistant_clips_total",
		Help: "Audio clips by final state",
	}, []string{"state"}) // state: "finished" or "cancelled"

	// Tool metrics
	toolCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voice_assistant_tool_calls_total",
		Help: "Tool calls dispatched by the bridge",
	}, []string{"tool", "status"})

	// Error metrics
	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voice_assistant_errors_total",
		Help: "Total number of errors",
	}, []string{"type", "component"})

	// Circuit breaker metrics
	circuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "voice_assistant_circuit_breaker_state",
		Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
	}, []string{"service"})
)

// Metrics tracks metrics for a single session
type Metrics struct {
	sessionID      string
	startTime      time.Time
	synthStartTime time.Time
	mu             sync.Mutex
}

// NewSessionMetrics creates a new metrics tracker for a session
func NewSessionMetrics(sessionID string) *Metrics {
	return &Metrics{
		sessionID: sessionID,
		startTime: time.Now(),
	}
}

// RecordSessionStart records the start of a session
func (m *Metrics) RecordSessionStart() {
	activeSessions.Inc()
	totalSessions.Inc()
}

// RecordSessionEnd records the end of a session
func (m *Metrics) RecordSessionEnd() {
	activeSessions.Dec()
	sessionDuration.Observe(time.Since(m.startTime).Seconds())
}

// RecordFlush records an utterance leaving the aggregator
func (m *Metrics) RecordFlush(trigger string) {
	utterancesFlushed.WithLabelValues(trigger).Inc()
}

// RecordDuplicateFragment records a dropped duplicate fragment
func (m *Metrics) RecordDuplicateFragment() {
	fragmentsDeduplicated.Inc()
}

// RecordSynthesisStart records the start of a synthesis attempt
func (m *Metrics) RecordSynthesisStart() {
	m.mu.Lock()
	m.synthStartTime = time.Now()
	m.mu.Unlock()
}

// RecordSynthesisEnd records the end of a synthesis attempt
func (m *Metrics) RecordSynthesisEnd(success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.synthStartTime.IsZero() {
		synthesisLatency.Observe(time.Since(m.synthStartTime).Seconds())
	}

	status := "success"
	if !success {
		status = "error"
	}
	synthesisRequests.WithLabelValues(status).Inc()
}

// RecordFallback records a local fallback invocation
func (m *Metrics) RecordFallback() {
	fallbackInvocations.Inc()
}

// RecordQueueDepth records the current playback queue depth
func (m *Metrics) RecordQueueDepth(depth int) {
	queueDepth.Set(float64(depth))
}

// RecordClip records a clip reaching a terminal state
func (m *Metrics) RecordClip(state string) {
	clipsPlayed.WithLabelValues(state).Inc()
}

// RecordToolCall records a tool call result
func (m *Metrics) RecordToolCall(tool string, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	toolCalls.WithLabelValues(tool, status).Inc()
}

// RecordError records an error
func (m *Metrics) RecordError(errorType, component string) {
	errorsTotal.WithLabelValues(errorType, component).Inc()
}

// UpdateCircuitBreakerState updates circuit breaker state metric
func UpdateCircuitBreakerState(service string, state int) {
	circuitBreakerState.WithLabelValues(service).Set(float64(state))
}
