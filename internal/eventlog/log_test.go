package eventlog_test

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/drdevinhopkins/scribbler/internal/eventlog"
)

func TestLog_AppendPreservesOrder(t *testing.T) {
	t.Parallel()

	log := eventlog.NewLog()
	const n = 100
	for i := 0; i < n; i++ {
		log.Append(eventlog.Event{ID: fmt.Sprintf("event_%d", i), Type: "response.audio_transcript.delta"})
	}

	if log.Len() != n {
		t.Fatalf("Len() = %d; want %d", log.Len(), n)
	}
	snap := log.Snapshot()
	for i, e := range snap {
		if want := fmt.Sprintf("event_%d", i); e.ID != want {
			t.Fatalf("entry %d has id %q; want %q", i, e.ID, want)
		}
	}
}

func TestLog_ConcurrentAppendsAllLand(t *testing.T) {
	t.Parallel()

	log := eventlog.NewLog()
	const writers, perWriter = 8, 50

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				log.Append(eventlog.Event{Type: "input_audio_buffer.append"})
			}
		}()
	}
	wg.Wait()

	if got := log.Len(); got != writers*perWriter {
		t.Errorf("Len() = %d; want %d", got, writers*perWriter)
	}
}

func TestLog_ResetEmpties(t *testing.T) {
	t.Parallel()

	log := eventlog.NewLog()
	log.Append(eventlog.Event{ID: "event_1", Type: "session.created"})
	log.Append(eventlog.Event{ID: "event_2", Type: "session.updated"})

	log.Reset()

	if log.Len() != 0 {
		t.Errorf("Len() after Reset = %d; want 0", log.Len())
	}
	if snap := log.Snapshot(); len(snap) != 0 {
		t.Errorf("Snapshot() after Reset has %d entries; want 0", len(snap))
	}
}

func TestLog_SnapshotIsACopy(t *testing.T) {
	t.Parallel()

	log := eventlog.NewLog()
	log.Append(eventlog.Event{ID: "event_1", Type: "session.created"})

	snap := log.Snapshot()
	snap[0].ID = "mutated"

	if got := log.Snapshot()[0].ID; got != "event_1" {
		t.Errorf("log entry mutated through snapshot: id = %q", got)
	}
}

func TestLog_SubscribeSignalsOnChange(t *testing.T) {
	t.Parallel()

	log := eventlog.NewLog()
	changes := log.Subscribe()

	log.Append(eventlog.Event{Type: "response.done"})

	select {
	case <-changes:
	case <-time.After(time.Second):
		t.Fatal("no change signal after append")
	}

	// Rapid appends coalesce; a reader that snapshots on each signal still
	// sees the final state.
	log.Append(eventlog.Event{Type: "response.done"})
	log.Append(eventlog.Event{Type: "response.done"})

	select {
	case <-changes:
	case <-time.After(time.Second):
		t.Fatal("no change signal after further appends")
	}
	if log.Len() != 3 {
		t.Errorf("Len() = %d; want 3", log.Len())
	}
}
