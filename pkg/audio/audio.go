// Package audio provides the audio capture abstraction for dictation
// sessions.
//
// A [Source] acquires a [Track]: an owned handle over a mono PCM16 frame
// stream with an explicit release lifecycle and a mute flag. The capture
// device itself is an external collaborator; this package models it so the
// session transport can hold the track as an owned resource with explicit
// acquire/release rather than ambient global state.
package audio

import (
	"errors"
	"io"
	"sync"
)

// ErrMediaAccess is returned when no capture stream can be acquired:
// permission denied, no device, or an exhausted source.
var ErrMediaAccess = errors.New("audio: media access denied or unavailable")

// frameSize is the capture chunk size in bytes (20 ms of 24 kHz mono PCM16).
const frameSize = 960

// Source acquires audio tracks. Implementations wrap a capture device or, in
// tests, a canned stream.
type Source interface {
	// Acquire opens the capture stream and returns a live Track. Fails with
	// an error wrapping [ErrMediaAccess] when no stream is available.
	Acquire() (*Track, error)
}

// Track is a live capture stream handle. Frames delivers raw PCM16 chunks
// until the track is stopped or the underlying stream ends. Enabled state
// gates delivery: frames read while the track is muted are dropped.
type Track struct {
	frames chan []byte

	mu      sync.Mutex
	enabled bool
	stopped bool
	stop    chan struct{}
}

func newTrack() *Track {
	return &Track{
		frames:  make(chan []byte, 16),
		enabled: true,
		stop:    make(chan struct{}),
	}
}

// Frames returns the channel delivering captured PCM16 chunks. The channel
// is closed when the track stops or the stream ends.
func (t *Track) Frames() <-chan []byte { return t.frames }

// Enabled reports whether the track is currently unmuted.
func (t *Track) Enabled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.enabled
}

// SetEnabled flips the mute gate. Disabled tracks keep capturing but drop
// frames, mirroring how a muted media track stays live.
func (t *Track) SetEnabled(enabled bool) {
	t.mu.Lock()
	t.enabled = enabled
	t.mu.Unlock()
}

// Stop releases the capture stream. Idempotent.
func (t *Track) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return
	}
	t.stopped = true
	close(t.stop)
}

// deliver forwards one frame unless the track is muted or stopped. Reports
// whether the track is still live.
func (t *Track) deliver(frame []byte) bool {
	t.mu.Lock()
	enabled, stopped := t.enabled, t.stopped
	t.mu.Unlock()
	if stopped {
		return false
	}
	if !enabled {
		return true
	}
	select {
	case t.frames <- frame:
		return true
	case <-t.stop:
		return false
	}
}

// ReaderSource is a [Source] that streams PCM16 from an io.Reader, e.g. a
// raw capture pipe or a recorded file. A nil reader yields ErrMediaAccess.
type ReaderSource struct {
	R io.Reader
}

// Acquire implements [Source]. It starts a goroutine that chunks the reader
// into frames; the track's Frames channel closes on EOF or Stop.
func (s *ReaderSource) Acquire() (*Track, error) {
	if s.R == nil {
		return nil, ErrMediaAccess
	}

	t := newTrack()
	go func() {
		defer close(t.frames)
		buf := make([]byte, frameSize)
		for {
			n, err := s.R.Read(buf)
			if n > 0 {
				frame := make([]byte, n)
				copy(frame, buf[:n])
				if !t.deliver(frame) {
					return
				}
			}
			if err != nil {
				return
			}
		}
	}()
	return t, nil
}
