// Package aggregator accumulates streamed text fragments from the
// conversational AI into coherent utterances and decides when an utterance
// is complete enough to hand to the speech delivery pipeline.
package aggregator

import (
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Flush triggers, reported for observability.
const (
	TriggerLength      = "length"
	TriggerPunctuation = "punctuation"
	TriggerTimeout     = "timeout"
	TriggerManual      = "manual"
)

// terminalPunctuation matches a fragment that ends a sentence.
var terminalPunctuation = regexp.MustCompile(`[.!?]$`)

// Utterance is one complete unit of text destined for speech synthesis,
// tagged with a monotonically increasing arrival-order token.
type Utterance struct {
	Seq  uint64
	Text string
}

// FlushFunc receives each composed utterance, in arrival order.
type FlushFunc func(u Utterance, trigger string)

// Config controls aggregation behaviour.
type Config struct {
	// FlushTimeout is the idle debounce: a pending flush fires this long
	// after the last append.
	FlushTimeout time.Duration

	// MaxLength forces an immediate flush when the joined buffer exceeds it.
	MaxLength int

	// HistorySize is the capacity of the spoken-utterance dedup window.
	HistorySize int
}

// DefaultConfig returns the aggregation defaults.
func DefaultConfig() Config {
	return Config{
		FlushTimeout: 500 * time.Millisecond,
		MaxLength:    500,
		HistorySize:  10,
	}
}

// Aggregator buffers text fragments until a flush trigger fires.
// All state is owned by the aggregator; the debounce timer callback
// synchronizes through the same mutex as Append, so flushes never race.
type Aggregator struct {
	mu        sync.Mutex
	fragments []string
	history   *History
	timer     *time.Timer
	seq       uint64

	cfg     Config
	onFlush FlushFunc
	logger  zerolog.Logger
}

// New creates an aggregator that hands composed utterances to onFlush.
func New(cfg Config, onFlush FlushFunc, logger zerolog.Logger) *Aggregator {
	if cfg.FlushTimeout <= 0 {
		cfg.FlushTimeout = DefaultConfig().FlushTimeout
	}
	if cfg.MaxLength <= 0 {
		cfg.MaxLength = DefaultConfig().MaxLength
	}
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = DefaultConfig().HistorySize
	}
	return &Aggregator{
		history: NewHistory(cfg.HistorySize),
		cfg:     cfg,
		onFlush: onFlush,
		logger:  logger,
	}
}

// Append adds a text fragment to the buffer. Empty fragments, fragments
// equal to the most recently spoken utterance, and fragments already
// buffered verbatim are silently dropped. A fragment that pushes the
// joined buffer past MaxLength, or that ends with sentence-terminal
// punctuation, flushes synchronously before Append returns; otherwise
// the idle flush timer is re-armed.
func (a *Aggregator) Append(fragment string) {
	fragment = strings.TrimSpace(fragment)
	if fragment == "" {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if last, ok := a.history.Last(); ok && last == fragment {
		a.logger.Debug().Str("fragment", fragment).Msg("Dropping fragment equal to last spoken utterance")
		return
	}
	for _, f := range a.fragments {
		if f == fragment {
			a.logger.Debug().Str("fragment", fragment).Msg("Dropping fragment already buffered")
			return
		}
	}

	a.fragments = append(a.fragments, fragment)

	joined := strings.Join(a.fragments, " ")
	switch {
	case len(joined) > a.cfg.MaxLength:
		a.flushLocked(TriggerLength)
	case terminalPunctuation.MatchString(fragment):
		a.flushLocked(TriggerPunctuation)
	default:
		a.rearmLocked()
	}
}

// Flush finalizes the buffer immediately, cancelling any pending timer.
// Returns the composed utterance and true if anything was emitted.
func (a *Aggregator) Flush() (Utterance, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.flushLocked(TriggerManual)
}

// Clear discards all buffered fragments and cancels any pending flush
// without emitting anything.
func (a *Aggregator) Clear() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cancelTimerLocked()
	a.fragments = nil
}

// Reset clears the buffer and forgets the spoken history. Used on
// session reset so a new conversation can repeat earlier utterances.
func (a *Aggregator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cancelTimerLocked()
	a.fragments = nil
	a.history.Clear()
}

// Pending returns the number of buffered, unflushed fragments.
func (a *Aggregator) Pending() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.fragments)
}

// LastSpoken returns the most recently flushed utterance text.
func (a *Aggregator) LastSpoken() (string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.history.Last()
}

func (a *Aggregator) rearmLocked() {
	a.cancelTimerLocked()
	a.timer = time.AfterFunc(a.cfg.FlushTimeout, func() {
		a.mu.Lock()
		defer a.mu.Unlock()
		a.flushLocked(TriggerTimeout)
	})
}

// cancelTimerLocked stops a pending deferred flush; safe when none is armed.
func (a *Aggregator) cancelTimerLocked() {
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
}

func (a *Aggregator) flushLocked(trigger string) (Utterance, bool) {
	a.cancelTimerLocked()

	if len(a.fragments) == 0 {
		return Utterance{}, false
	}

	composed := strings.TrimSpace(strings.Join(a.fragments, " "))
	a.fragments = nil

	if composed == "" {
		return Utterance{}, false
	}
	if a.history.Contains(composed) {
		a.logger.Debug().Str("text", composed).Msg("Suppressing already-spoken utterance at flush")
		return Utterance{}, false
	}

	a.history.Add(composed)
	a.seq++
	u := Utterance{Seq: a.seq, Text: composed}

	a.logger.Debug().
		Uint64("seq", u.Seq).
		Str("trigger", trigger).
		Int("chars", len(composed)).
		Msg("Flushing utterance")

	if a.onFlush != nil {
		a.onFlush(u, trigger)
	}
	return u, true
}
