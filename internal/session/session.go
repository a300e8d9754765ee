// Package session owns one WebSocket conversation with an AI client:
// it feeds streamed text into the aggregator, routes tool calls through
// the bridge, and drives the speech pipeline.
package session

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/deliverit/voice-assistant/internal/aggregator"
	"github.com/deliverit/voice-assistant/internal/config"
	"github.com/deliverit/voice-assistant/internal/observability"
	"github.com/deliverit/voice-assistant/internal/speech"
	"github.com/deliverit/voice-assistant/internal/tools"
)

// dedupCapacity bounds the per-session duplicate-message window.
const dedupCapacity = 256

// toolCallTimeout bounds one commerce round trip.
const toolCallTimeout = 30 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for development
	},
}

// Deps are the collaborators shared across sessions. Each session builds
// its own aggregator and pipeline on top of them.
type Deps struct {
	Synth    speech.Synthesizer
	Fetch    speech.Fetcher
	Decode   speech.Decoder
	Sink     speech.Sink
	Fallback speech.Fallback
	Commerce tools.Commerce
}

// inboundEvent is the envelope for client-to-server messages.
type inboundEvent struct {
	Event string      `json:"event"`
	Text  string      `json:"text,omitempty"`
	Call  *tools.Call `json:"call,omitempty"`
}

// outboundEvent is the envelope for server-to-client messages.
type outboundEvent struct {
	Event    string              `json:"event"`
	Message  string              `json:"message,omitempty"`
	Response *tools.Response     `json:"response,omitempty"`
	Products []tools.ProductView `json:"products,omitempty"`
}

// Session is one live assistant conversation.
type Session struct {
	id   string
	conn *websocket.Conn

	agg      *aggregator.Aggregator
	pipeline *speech.Pipeline
	bridge   *tools.Bridge
	dedup    *messageSet

	logger  zerolog.Logger
	metrics *observability.Metrics

	writeMu sync.Mutex
	dedupMu sync.Mutex
	seq     atomic.Uint64

	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
}

// Handler returns the HTTP handler for the /session WebSocket endpoint.
func Handler(cfg *config.Config, deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger := observability.GetLogger()
			logger.Error().Err(err).Msg("WebSocket upgrade failed")
			return
		}

		s := New(conn, cfg, deps)
		s.Run()
	}
}

// New builds a session with its own aggregator and delivery pipeline.
func New(conn *websocket.Conn, cfg *config.Config, deps Deps) *Session {
	id := observability.NewCorrelationID()
	logger := observability.WithCorrelationID(id)
	metrics := observability.NewSessionMetrics(id)

	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		id:      id,
		conn:    conn,
		dedup:   newMessageSet(dedupCapacity),
		logger:  logger,
		metrics: metrics,
		ctx:     ctx,
		cancel:  cancel,
	}

	s.pipeline = speech.New(
		speech.Config{
			RetryAttempts:  cfg.RetryAttempts,
			InitialBackoff: cfg.InitialBackoff(),
			SSMLEnabled:    cfg.SSMLEnabled,
		},
		deps.Synth, deps.Fetch, deps.Decode, deps.Sink, deps.Fallback,
		logger, metrics,
	)

	s.agg = aggregator.New(
		aggregator.Config{
			FlushTimeout: cfg.FlushTimeout(),
			MaxLength:    cfg.MaxBufferLength,
			HistorySize:  cfg.SpokenHistorySize,
		},
		func(u aggregator.Utterance, trigger string) {
			metrics.RecordFlush(trigger)
			s.pipeline.Speak(speech.Request{Seq: u.Seq, Text: u.Text})
		},
		logger,
	)

	s.bridge = tools.NewBridge(deps.Commerce, logger, metrics)
	return s
}

// Run drives the session read loop until the client disconnects. Any
// still-buffered text is flushed on the way out so trailing fragments
// are not lost.
func (s *Session) Run() {
	s.metrics.RecordSessionStart()
	s.logger.Info().Msg("Session started")

	defer s.Close()

	for {
		_, payload, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Warn().Err(err).Msg("Session closed unexpectedly")
			} else {
				s.logger.Info().Msg("Session closed")
			}
			return
		}

		var event inboundEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			s.logger.Warn().Err(err).Msg("Invalid message payload")
			s.sendError("invalid message payload")
			continue
		}

		// Only AI content is deduplicated. Control events like interrupt
		// and reset are byte-identical every time and must always fire.
		if event.Event == "text" || event.Event == "tool_call" {
			s.dedupMu.Lock()
			duplicate := s.dedup.Seen(payload)
			s.dedupMu.Unlock()
			if duplicate {
				s.logger.Debug().Msg("Dropping duplicate message")
				s.metrics.RecordDuplicateFragment()
				continue
			}
		}

		s.handleEvent(event)
	}
}

// Close flushes remaining text, tears down the pipeline, and releases
// the connection. Idempotent.
func (s *Session) Close() {
	s.once.Do(func() {
		s.agg.Flush()
		s.cancel()
		s.pipeline.Close()
		s.conn.Close()
		s.metrics.RecordSessionEnd()
		s.logger.Info().Msg("Session ended")
	})
}

func (s *Session) handleEvent(event inboundEvent) {
	switch event.Event {
	case "text":
		s.agg.Append(event.Text)

	case "tool_call":
		if event.Call == nil {
			s.sendError("tool_call event missing call")
			return
		}
		// Commerce round trips must not block the read loop, or an
		// interrupt arriving mid-call would queue behind it.
		go s.handleToolCall(*event.Call)

	case "flush":
		s.agg.Flush()

	case "interrupt":
		s.logger.Debug().Msg("Interrupting speech")
		s.pipeline.Interrupt()
		s.agg.Clear()
		s.send(outboundEvent{Event: "status", Message: "interrupted"})

	case "reset":
		s.logger.Info().Msg("Resetting session")
		s.pipeline.Interrupt()
		s.agg.Reset()
		s.dedupMu.Lock()
		s.dedup.Clear()
		s.dedupMu.Unlock()
		s.send(outboundEvent{Event: "status", Message: "reset"})

	default:
		s.logger.Warn().Str("event", event.Event).Msg("Unknown event")
		s.sendError("unknown event: " + event.Event)
	}
}

// handleToolCall dispatches one tool call and speaks its confirmation.
// A spoken outcome supersedes any in-flight speech, matching the flow
// where the tool result is the assistant's next turn.
func (s *Session) handleToolCall(call tools.Call) {
	ctx, cancel := context.WithTimeout(s.ctx, toolCallTimeout)
	defer cancel()

	outcome := s.bridge.Dispatch(ctx, call)

	s.send(outboundEvent{Event: "tool_response", Response: &outcome.Response})
	if len(outcome.Products) > 0 {
		s.send(outboundEvent{Event: "products", Products: outcome.Products})
	}

	if outcome.Utterance != "" {
		s.pipeline.Interrupt()
		s.agg.Clear()
		s.pipeline.Speak(speech.Request{Seq: s.seq.Add(1), Text: outcome.Utterance})
	}
}

func (s *Session) send(event outboundEvent) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.conn.WriteJSON(event); err != nil {
		s.logger.Warn().Err(err).Str("event", event.Event).Msg("Failed to write event")
	}
}

func (s *Session) sendError(message string) {
	s.send(outboundEvent{Event: "error", Message: message})
}
