// Package audio decodes fetched clip bytes into playable buffers and
// plays them through the shared speaker sink.
package audio

import (
	"bytes"
	"io"
	"time"

	"github.com/deliverit/voice-assistant/internal/speech"
	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/wav"
)

// Buffer is a decoded clip: a seekable sample stream plus its format.
type Buffer struct {
	streamer beep.StreamSeekCloser
	format   beep.Format
}

// Duration returns the playable length of the buffer
func (b *Buffer) Duration() time.Duration {
	return b.format.SampleRate.D(b.streamer.Len())
}

// Close releases the underlying stream
func (b *Buffer) Close() error {
	return b.streamer.Close()
}

// Streamer exposes the sample stream for the sink
func (b *Buffer) Streamer() beep.StreamSeekCloser {
	return b.streamer
}

// Format exposes the stream format for resampling
func (b *Buffer) Format() beep.Format {
	return b.format
}

// ClipDecoder implements speech.Decoder. It sniffs the container (RIFF
// header means WAV, otherwise MP3) and decodes accordingly.
type ClipDecoder struct{}

// NewClipDecoder creates a decoder
func NewClipDecoder() *ClipDecoder {
	return &ClipDecoder{}
}

// Decode turns raw bytes into a playable buffer. Malformed audio is a
// DecodeError.
func (d *ClipDecoder) Decode(data []byte) (speech.Audio, error) {
	var (
		streamer beep.StreamSeekCloser
		format   beep.Format
		err      error
	)

	reader := io.NopCloser(bytes.NewReader(data))
	if bytes.HasPrefix(data, []byte("RIFF")) {
		streamer, format, err = wav.Decode(reader)
	} else {
		streamer, format, err = mp3.Decode(reader)
	}
	if err != nil {
		return nil, &speech.DecodeError{Err: err}
	}

	return &Buffer{streamer: streamer, format: format}, nil
}
