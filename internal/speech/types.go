package speech

import (
	"context"
	"sync/atomic"
	"time"
)

// Synthesizer requests speech synthesis from a remote provider and returns
// a URL to the rendered audio clip.
type Synthesizer interface {
	Render(ctx context.Context, text string) (string, error)
}

// Fetcher retrieves the rendered audio resource.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Audio is a decoded, playable audio buffer.
type Audio interface {
	Duration() time.Duration
	Close() error
}

// Decoder turns fetched bytes into a playable buffer.
type Decoder interface {
	Decode(data []byte) (Audio, error)
}

// Sink is the shared audio output. Play blocks until the clip finishes
// naturally or ctx is cancelled; cancellation stops output immediately.
type Sink interface {
	Resume() error
	Play(ctx context.Context, a Audio) error
}

// Fallback is the locally available, degraded-but-always-available speech
// path. Say is fire-and-forget: no retries, no queue, best effort.
type Fallback interface {
	Say(text string)
}

// ClipState tracks a clip through its lifecycle.
type ClipState int32

const (
	ClipQueued ClipState = iota
	ClipPlaying
	ClipFinished
	ClipCancelled
)

func (s ClipState) String() string {
	switch s {
	case ClipQueued:
		return "queued"
	case ClipPlaying:
		return "playing"
	case ClipFinished:
		return "finished"
	case ClipCancelled:
		return "cancelled"
	}
	return "unknown"
}

// Clip is a decoded audio buffer bound to one utterance, owned by the
// pipeline from creation until playback ends.
type Clip struct {
	Seq   uint64
	Text  string
	audio Audio
	state atomic.Int32
}

// State returns the clip's lifecycle state.
func (c *Clip) State() ClipState { return ClipState(c.state.Load()) }

func (c *Clip) setState(s ClipState) { c.state.Store(int32(s)) }
