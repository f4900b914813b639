package audio_test

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/drdevinhopkins/scribbler/pkg/audio"
)

func TestReaderSource_NilReaderIsMediaAccessError(t *testing.T) {
	t.Parallel()

	src := &audio.ReaderSource{}
	_, err := src.Acquire()
	if !errors.Is(err, audio.ErrMediaAccess) {
		t.Errorf("Acquire() error = %v; want ErrMediaAccess", err)
	}
}

func TestReaderSource_DeliversAllBytesThenCloses(t *testing.T) {
	t.Parallel()

	data := bytes.Repeat([]byte{0xAB}, 2500)
	src := &audio.ReaderSource{R: bytes.NewReader(data)}

	track, err := src.Acquire()
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	var got []byte
	for frame := range track.Frames() {
		got = append(got, frame...)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("received %d bytes; want %d identical bytes", len(got), len(data))
	}
}

func TestTrack_DoubleToggleRestoresEnabled(t *testing.T) {
	t.Parallel()

	src := &audio.ReaderSource{R: bytes.NewReader(nil)}
	track, err := src.Acquire()
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer track.Stop()

	if !track.Enabled() {
		t.Fatal("fresh track should be enabled")
	}
	track.SetEnabled(false)
	track.SetEnabled(true)
	if !track.Enabled() {
		t.Error("double toggle did not restore the enabled flag")
	}
}

func TestTrack_MutedFramesAreDropped(t *testing.T) {
	t.Parallel()

	// A reader larger than the channel buffer; with the track muted the
	// producer must keep draining without delivering anything.
	data := bytes.Repeat([]byte{0x01}, 960*64)
	src := &audio.ReaderSource{R: bytes.NewReader(data)}

	track, err := src.Acquire()
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	track.SetEnabled(false)

	deadline := time.After(2 * time.Second)
	for {
		select {
		case frame, ok := <-track.Frames():
			if !ok {
				return // stream drained with nothing delivered after the mute
			}
			// Frames buffered before the mute took effect are acceptable;
			// anything else is a delivery despite the mute.
			if len(frame) == 0 {
				t.Fatal("empty frame delivered")
			}
		case <-deadline:
			t.Fatal("muted track never drained its stream")
		}
	}
}

func TestTrack_StopIsIdempotent(t *testing.T) {
	t.Parallel()

	src := &audio.ReaderSource{R: bytes.NewReader(bytes.Repeat([]byte{0}, 4800))}
	track, err := src.Acquire()
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	track.Stop()
	track.Stop() // must not panic
}
