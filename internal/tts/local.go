package tts

import (
	"os/exec"
	"runtime"

	"github.com/rs/zerolog"
)

// LocalSynthesizer is the degraded-but-always-available speech path: it
// shells out to the operating system's speech synthesizer. Fire and
// forget; no retries, no queueing, no completion callback.
type LocalSynthesizer struct {
	binary string
	args   []string
	logger zerolog.Logger
}

// NewLocalSynthesizer picks the platform synthesizer: say on macOS,
// espeak elsewhere.
func NewLocalSynthesizer(logger zerolog.Logger) *LocalSynthesizer {
	binary := "espeak"
	if runtime.GOOS == "darwin" {
		binary = "say"
	}
	return &LocalSynthesizer{
		binary: binary,
		logger: logger,
	}
}

// Say speaks text best-effort. The caller strips markup first.
func (l *LocalSynthesizer) Say(text string) {
	if text == "" {
		return
	}

	args := append(l.args, text)
	cmd := exec.Command(l.binary, args...)
	if err := cmd.Start(); err != nil {
		l.logger.Warn().Err(err).Str("binary", l.binary).Msg("Local speech synthesizer unavailable")
		return
	}
	l.logger.Info().Str("binary", l.binary).Int("chars", len(text)).Msg("Speaking via local fallback")

	// Reap the process without waiting on it.
	go func() {
		if err := cmd.Wait(); err != nil {
			l.logger.Debug().Err(err).Msg("Local synthesizer exited with error")
		}
	}()
}
