package speech

import (
	"errors"
	"fmt"
)

// SynthesisError means the synthesis provider returned an error response
// or omitted the audio resource reference.
type SynthesisError struct {
	Provider string
	Status   int
	Message  string
}

func (e *SynthesisError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s synthesis failed: status %d: %s", e.Provider, e.Status, e.Message)
	}
	return fmt.Sprintf("%s synthesis failed: %s", e.Provider, e.Message)
}

// TransportError means fetching the rendered audio resource failed.
type TransportError struct {
	URL    string
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("audio fetch failed for %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("audio fetch failed for %s: status %d", e.URL, e.Status)
}

func (e *TransportError) Unwrap() error { return e.Err }

// DecodeError means the fetched bytes were not valid audio.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string { return fmt.Sprintf("audio decode failed: %v", e.Err) }

func (e *DecodeError) Unwrap() error { return e.Err }

// IsSynthesisError reports whether err is a SynthesisError.
func IsSynthesisError(err error) bool {
	var target *SynthesisError
	return errors.As(err, &target)
}

// IsTransportError reports whether err is a TransportError.
func IsTransportError(err error) bool {
	var target *TransportError
	return errors.As(err, &target)
}

// IsDecodeError reports whether err is a DecodeError.
func IsDecodeError(err error) bool {
	var target *DecodeError
	return errors.As(err, &target)
}
