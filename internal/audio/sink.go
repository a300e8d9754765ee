package audio

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/deliverit/voice-assistant/internal/speech"
	"github.com/faiface/beep"
	"github.com/faiface/beep/speaker"
)

// sinkSampleRate is the fixed speaker rate; clips are resampled to it.
const sinkSampleRate = beep.SampleRate(44100)

// SpeakerSink plays decoded clips through the system speaker. The speaker
// is a process-wide resource; one sink instance is shared by all sessions.
type SpeakerSink struct {
	mu          sync.Mutex
	initialized bool
}

// NewSpeakerSink creates an uninitialized speaker sink. The speaker is
// opened lazily on the first Resume so construction never touches audio
// hardware.
func NewSpeakerSink() *SpeakerSink {
	return &SpeakerSink{}
}

// Resume ensures the speaker is open and running. Idempotent.
func (s *SpeakerSink) Resume() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized {
		return nil
	}
	if err := speaker.Init(sinkSampleRate, sinkSampleRate.N(time.Second/10)); err != nil {
		return fmt.Errorf("failed to open speaker: %w", err)
	}
	s.initialized = true
	return nil
}

// Play blocks until the clip finishes or ctx is cancelled. Cancellation
// stops output immediately and returns ctx.Err().
func (s *SpeakerSink) Play(ctx context.Context, a speech.Audio) error {
	buf, ok := a.(*Buffer)
	if !ok {
		return fmt.Errorf("speaker sink requires a decoded buffer, got %T", a)
	}

	if err := s.Resume(); err != nil {
		return err
	}

	streamer := beep.Resample(4, buf.Format().SampleRate, sinkSampleRate, buf.Streamer())

	done := make(chan struct{})
	speaker.Play(beep.Seq(streamer, beep.Callback(func() {
		close(done)
	})))

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		speaker.Clear()
		return ctx.Err()
	}
}

// NopSink is a sink for headless deployments and tests: it consumes a
// clip's duration in wall-clock time without touching audio hardware.
type NopSink struct{}

// NewNopSink creates a no-op sink
func NewNopSink() *NopSink {
	return &NopSink{}
}

// Resume is a no-op
func (n *NopSink) Resume() error { return nil }

// Play sleeps for the clip's duration or until cancelled
func (n *NopSink) Play(ctx context.Context, a speech.Audio) error {
	select {
	case <-time.After(a.Duration()):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
