// Package mock provides audio test doubles for the [audio.Source] interface.
package mock

import (
	"bytes"

	"github.com/drdevinhopkins/scribbler/pkg/audio"
)

// Source is an [audio.Source] whose Acquire behaviour is scripted by tests.
type Source struct {
	// Err, when non-nil, is returned from Acquire instead of a track.
	Err error

	// Frames are concatenated and delivered on the acquired track. The
	// track's frame channel closes once they are drained.
	Frames [][]byte

	// Acquired counts Acquire calls.
	Acquired int
}

// Acquire implements [audio.Source].
func (s *Source) Acquire() (*audio.Track, error) {
	s.Acquired++
	if s.Err != nil {
		return nil, s.Err
	}
	rs := &audio.ReaderSource{R: bytes.NewReader(bytes.Join(s.Frames, nil))}
	return rs.Acquire()
}
