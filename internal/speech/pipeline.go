// Package speech converts completed utterances into audible output:
// synthesis with retry and local fallback, ordered playback through a
// single-clip-at-a-time queue, and immediate interruption.
package speech

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/deliverit/voice-assistant/internal/observability"
	"github.com/deliverit/voice-assistant/internal/resilience"
	"github.com/rs/zerolog"
)

// markupTags matches SSML/HTML-style markup for stripping.
var markupTags = regexp.MustCompile(`<[^>]*>`)

// Config controls delivery behaviour.
type Config struct {
	// RetryAttempts is the total number of synthesis attempts before the
	// pipeline degrades to the local fallback.
	RetryAttempts int

	// InitialBackoff is the wait after the first failed attempt; each
	// subsequent wait doubles.
	InitialBackoff time.Duration

	// SSMLEnabled passes markup tags through to the provider instead of
	// stripping them. The fallback always receives plain text.
	SSMLEnabled bool
}

// DefaultConfig returns the delivery defaults.
func DefaultConfig() Config {
	return Config{
		RetryAttempts:  3,
		InitialBackoff: 1 * time.Second,
	}
}

// Request is one utterance handed to the pipeline.
type Request struct {
	Seq  uint64
	Text string
}

// Pipeline owns the synthesis path and the playback queue. Utterances are
// delivered in hand-off order by a single worker; at most one clip plays
// at any instant.
type Pipeline struct {
	cfg      Config
	synth    Synthesizer
	fetch    Fetcher
	decode   Decoder
	sink     Sink
	fallback Fallback

	logger  zerolog.Logger
	metrics *observability.Metrics

	mu            sync.Mutex
	queue         []*Clip
	current       *Clip
	currentCancel context.CancelFunc
	speaking      bool
	drainGen      uint64

	requests chan Request
	ctx      context.Context
	cancel   context.CancelFunc
	workerWG sync.WaitGroup
}

// New creates a pipeline and starts its delivery worker.
func New(cfg Config, synth Synthesizer, fetch Fetcher, decode Decoder, sink Sink, fallback Fallback, logger zerolog.Logger, metrics *observability.Metrics) *Pipeline {
	if cfg.RetryAttempts < 1 {
		cfg.RetryAttempts = DefaultConfig().RetryAttempts
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = DefaultConfig().InitialBackoff
	}
	if metrics == nil {
		metrics = observability.NewSessionMetrics("")
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Pipeline{
		cfg:      cfg,
		synth:    synth,
		fetch:    fetch,
		decode:   decode,
		sink:     sink,
		fallback: fallback,
		logger:   logger,
		metrics:  metrics,
		requests: make(chan Request, 32),
		ctx:      ctx,
		cancel:   cancel,
	}

	p.workerWG.Add(1)
	go p.deliveryWorker()
	return p
}

// Speak hands an utterance to the delivery worker. It never blocks and
// never returns an error: all failure paths end in the local fallback or
// a logged error.
func (p *Pipeline) Speak(req Request) {
	select {
	case p.requests <- req:
	case <-p.ctx.Done():
	default:
		p.logger.Warn().Uint64("seq", req.Seq).Msg("Delivery queue full, dropping utterance")
		p.metrics.RecordError("delivery_queue_full", "speech")
	}
}

// StopCurrent stops and releases the currently playing clip, if any, and
// marks the pipeline as not speaking. Queued clips are untouched; playback
// resumes only when a new enqueue triggers processing. Safe to call when
// nothing is playing.
func (p *Pipeline) StopCurrent() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.currentCancel != nil {
		p.currentCancel()
	}
	p.speaking = false
}

// ClearQueue discards all not-yet-played clips without stopping whatever
// is currently playing.
func (p *Pipeline) ClearQueue() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clearQueueLocked()
}

// Interrupt performs a hard interruption: stop the current clip, then
// discard the queue, atomically with respect to the playback loop. Callers
// superseding old speech must interrupt before enqueueing anything new.
func (p *Pipeline) Interrupt() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clearQueueLocked()
	if p.currentCancel != nil {
		p.currentCancel()
	}
	p.speaking = false
}

// IsSpeaking reports whether the playback drain is active.
func (p *Pipeline) IsSpeaking() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.speaking
}

// QueueDepth returns the number of clips awaiting playback.
func (p *Pipeline) QueueDepth() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}

// Close interrupts playback and stops the delivery worker.
func (p *Pipeline) Close() {
	p.Interrupt()
	p.cancel()
	p.workerWG.Wait()
}

func (p *Pipeline) clearQueueLocked() {
	for _, clip := range p.queue {
		clip.setState(ClipCancelled)
		clip.audio.Close()
		p.metrics.RecordClip("cancelled")
	}
	p.queue = nil
	p.metrics.RecordQueueDepth(0)
}

func (p *Pipeline) deliveryWorker() {
	defer p.workerWG.Done()
	for {
		select {
		case req := <-p.requests:
			p.deliver(p.ctx, req)
		case <-p.ctx.Done():
			return
		}
	}
}

// deliver runs one utterance end to end: strip, synthesize with retry,
// fetch, decode, enqueue. On exhausting retries it fires the fallback
// exactly once. It never propagates an error.
func (p *Pipeline) deliver(ctx context.Context, req Request) {
	text := req.Text
	if !p.cfg.SSMLEnabled {
		text = StripMarkup(text)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}

	// The output sink must be running before the network round trip so
	// the clip can start without an audible gap.
	if err := p.sink.Resume(); err != nil {
		p.logger.Warn().Err(err).Msg("Failed to resume audio sink")
		p.metrics.RecordError("sink_resume", "speech")
	}

	p.metrics.RecordSynthesisStart()

	var lastErr error
	for attempt := 1; attempt <= p.cfg.RetryAttempts; attempt++ {
		audio, err := p.renderOnce(ctx, text)
		if err == nil {
			p.metrics.RecordSynthesisEnd(true)
			p.enqueue(&Clip{Seq: req.Seq, Text: text, audio: audio})
			return
		}
		lastErr = err

		p.logger.Warn().
			Err(err).
			Int("attempt", attempt).
			Int("max_attempts", p.cfg.RetryAttempts).
			Msg("Synthesis attempt failed")

		if attempt < p.cfg.RetryAttempts {
			backoff := resilience.CalculateBackoff(attempt-1, p.cfg.InitialBackoff, 30*time.Second, 2.0)
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
		}
	}

	// Retries exhausted: degrade to the local synthesizer. Fire and
	// forget, never queued, never retried.
	p.metrics.RecordSynthesisEnd(false)
	p.metrics.RecordFallback()
	p.logger.Error().
		Err(lastErr).
		Uint64("seq", req.Seq).
		Msg("Synthesis failed after retries, using local fallback")
	if p.fallback != nil {
		p.fallback.Say(StripMarkup(req.Text))
	}
}

// renderOnce performs one synthesize-fetch-decode round trip.
func (p *Pipeline) renderOnce(ctx context.Context, text string) (Audio, error) {
	url, err := p.synth.Render(ctx, text)
	if err != nil {
		p.metrics.RecordError("synthesis", "speech")
		return nil, err
	}

	data, err := p.fetch.Fetch(ctx, url)
	if err != nil {
		p.metrics.RecordError("transport", "speech")
		return nil, err
	}

	audio, err := p.decode.Decode(data)
	if err != nil {
		p.metrics.RecordError("decode", "speech")
		return nil, err
	}
	return audio, nil
}

// enqueue appends a clip and starts queue processing when idle.
func (p *Pipeline) enqueue(clip *Clip) {
	p.mu.Lock()
	defer p.mu.Unlock()

	clip.setState(ClipQueued)
	p.queue = append(p.queue, clip)
	p.metrics.RecordQueueDepth(len(p.queue))

	if !p.speaking {
		p.speaking = true
		p.drainGen++
		go p.processQueue(p.drainGen)
	}
}

// processQueue drains the playback queue one clip at a time, waiting for
// each clip to finish before starting the next. Stops mark the pipeline
// idle themselves, so a Speak arriving while a cancelled clip is still
// unwinding starts a fresh drain instead of being lost; this loop exits
// as soon as it is no longer the owning drain.
func (p *Pipeline) processQueue(gen uint64) {
	for {
		p.mu.Lock()
		if !p.speaking || p.drainGen != gen {
			p.mu.Unlock()
			return
		}
		if len(p.queue) == 0 {
			p.speaking = false
			p.current = nil
			p.currentCancel = nil
			p.mu.Unlock()
			return
		}

		clip := p.queue[0]
		p.queue = p.queue[1:]
		p.metrics.RecordQueueDepth(len(p.queue))

		// Guard against a stale current clip surviving a queue race.
		if p.currentCancel != nil {
			p.currentCancel()
		}

		playCtx, cancel := context.WithCancel(context.Background())
		p.current = clip
		p.currentCancel = cancel
		clip.setState(ClipPlaying)
		p.mu.Unlock()

		err := p.sink.Play(playCtx, clip.audio)
		cancel()
		clip.audio.Close()

		p.mu.Lock()
		if p.current == clip {
			p.current = nil
			p.currentCancel = nil
		}
		p.mu.Unlock()

		if err != nil {
			clip.setState(ClipCancelled)
			p.metrics.RecordClip("cancelled")
			if errors.Is(err, context.Canceled) {
				// The stop that cancelled us already marked the pipeline
				// idle; the next enqueue starts a fresh drain.
				return
			}
			p.logger.Error().Err(err).Uint64("seq", clip.Seq).Msg("Playback failed, continuing with next clip")
			p.metrics.RecordError("playback", "speech")
			continue
		}

		clip.setState(ClipFinished)
		p.metrics.RecordClip("finished")
	}
}

// StripMarkup removes all <...> tags from text.
func StripMarkup(text string) string {
	return strings.TrimSpace(markupTags.ReplaceAllString(text, ""))
}
