package notes_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/drdevinhopkins/scribbler/internal/eventlog"
	"github.com/drdevinhopkins/scribbler/internal/notes"
	"github.com/drdevinhopkins/scribbler/internal/notes/mock"
)

// appendResponse appends a response.done event carrying the given text.
func appendResponse(log *eventlog.Log, text string) {
	log.Append(eventlog.Event{
		ID:   eventlog.NewClientID(),
		Type: eventlog.TypeResponseDone,
		Payload: map[string]any{
			"response": map[string]any{
				"output": []any{
					map[string]any{
						"type": "message",
						"content": []any{
							map[string]any{"type": "text", "text": text},
						},
					},
				},
			},
		},
	})
}

// statusTypes extracts the clinical_note.* event types from a snapshot.
func statusTypes(log *eventlog.Log) []string {
	var out []string
	for _, e := range log.Snapshot() {
		if strings.HasPrefix(e.Type, "clinical_note.") {
			out = append(out, e.Type)
		}
	}
	return out
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func startPipeline(t *testing.T, gen notes.Generator, log *eventlog.Log, opts ...notes.PipelineOption) *notes.Pipeline {
	t.Helper()
	p := notes.NewPipeline(gen, log, opts...)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go p.Run(ctx)
	return p
}

func TestPipeline_GeneratesNoteFromDictation(t *testing.T) {
	t.Parallel()

	log := eventlog.NewLog()
	gen := &mock.Generator{Note: "ID: 52M\n\nCHIEF CONCERN: headache"}
	p := startPipeline(t, gen, log)

	appendResponse(log, "Patient reports headache.")

	waitFor(t, func() bool { return p.Note() != "" }, "note never produced")

	if got := p.Note(); got != gen.Note {
		t.Errorf("Note() = %q; want %q", got, gen.Note)
	}
	calls := gen.Calls()
	if len(calls) != 1 || calls[0] != "Patient reports headache." {
		t.Errorf("generator calls = %v", calls)
	}

	types := statusTypes(log)
	if len(types) != 2 || types[0] != notes.TypeProcessingStart || types[1] != notes.TypeSuccess {
		t.Errorf("status events = %v; want [processing_start success]", types)
	}
}

func TestPipeline_IdenticalTextTriggersOnce(t *testing.T) {
	t.Parallel()

	log := eventlog.NewLog()
	gen := &mock.Generator{Note: "note"}
	p := startPipeline(t, gen, log)

	appendResponse(log, "Same dictation.")
	waitFor(t, func() bool { return p.Note() == "note" }, "note never produced")

	// An unrelated event changes the log but not the dictation text.
	log.Append(eventlog.Event{ID: "event_x", Type: "session.updated", Payload: map[string]any{}})
	time.Sleep(50 * time.Millisecond)

	if calls := gen.Calls(); len(calls) != 1 {
		t.Errorf("generator called %d times for one distinct text; want 1", len(calls))
	}
}

func TestPipeline_MarkerAdvancesOnFailure(t *testing.T) {
	t.Parallel()

	log := eventlog.NewLog()
	gen := &mock.Generator{Err: errors.New("completion backend unavailable")}
	p := startPipeline(t, gen, log)

	appendResponse(log, "Doomed dictation.")
	waitFor(t, func() bool { return p.LastError() != "" }, "failure never surfaced")

	// Identical text again: the marker advanced, so no retry happens.
	log.Append(eventlog.Event{ID: "event_x", Type: "session.updated", Payload: map[string]any{}})
	time.Sleep(50 * time.Millisecond)

	if calls := gen.Calls(); len(calls) != 1 {
		t.Errorf("failed input retried: %d calls; want 1", len(calls))
	}
	if p.Note() != "" {
		t.Errorf("Note() = %q; failure must not write note content", p.Note())
	}

	types := statusTypes(log)
	if len(types) != 2 || types[1] != notes.TypeError {
		t.Fatalf("status events = %v; want [processing_start error]", types)
	}

	// New text after the failure triggers a fresh attempt.
	appendResponse(log, "Recovered dictation.")
	waitFor(t, func() bool { return len(gen.Calls()) == 2 }, "new text never triggered")
}

func TestPipeline_ErrorEventTruncatesInput(t *testing.T) {
	t.Parallel()

	log := eventlog.NewLog()
	gen := &mock.Generator{Err: errors.New("boom")}
	startPipeline(t, gen, log)

	long := strings.Repeat("long dictation text ", 30) // well over 200 chars
	appendResponse(log, long)

	waitFor(t, func() bool {
		types := statusTypes(log)
		return len(types) > 0 && types[len(types)-1] == notes.TypeError
	}, "error event never appended")

	var errEvent eventlog.Event
	for _, e := range log.Snapshot() {
		if e.Type == notes.TypeError {
			errEvent = e
		}
	}
	input, _ := errEvent.Payload["input"].(string)
	if len(input) != 200 {
		t.Errorf("error event carries %d chars of input; want exactly 200", len(input))
	}
	if msg, _ := errEvent.Payload["message"].(string); msg != "boom" {
		t.Errorf("error message = %q; want boom", msg)
	}
}

func TestPipeline_ErrorEventTruncationKeepsRunesIntact(t *testing.T) {
	t.Parallel()

	log := eventlog.NewLog()
	gen := &mock.Generator{Err: errors.New("boom")}
	startPipeline(t, gen, log)

	// Byte 200 lands in the middle of the two-byte "é", as in accented
	// clinical text ("Hôpital général juif", French patient names).
	long := strings.Repeat("a", 199) + "état précaire"
	appendResponse(log, long)

	waitFor(t, func() bool {
		types := statusTypes(log)
		return len(types) > 0 && types[len(types)-1] == notes.TypeError
	}, "error event never appended")

	var errEvent eventlog.Event
	for _, e := range log.Snapshot() {
		if e.Type == notes.TypeError {
			errEvent = e
		}
	}
	input, _ := errEvent.Payload["input"].(string)
	if !utf8.ValidString(input) {
		t.Fatalf("error event input is not valid UTF-8: %q", input)
	}
	if want := strings.Repeat("a", 199); input != want {
		t.Errorf("error event input = %d bytes; want 199 with the split rune dropped", len(input))
	}
}

func TestPipeline_SuccessReplacesPreviousNote(t *testing.T) {
	t.Parallel()

	log := eventlog.NewLog()
	gen := &mock.Generator{Note: "first note"}
	p := startPipeline(t, gen, log)

	appendResponse(log, "First dictation.")
	waitFor(t, func() bool { return p.Note() == "first note" }, "first note never produced")

	gen.Note = "second note"
	appendResponse(log, "More dictation.")
	waitFor(t, func() bool { return p.Note() == "second note" }, "second note never produced")

	if calls := gen.Calls(); len(calls) != 2 {
		t.Fatalf("generator called %d times; want 2", len(calls))
	}
	// The second attempt submits the full accumulated text, not the delta.
	if got := gen.Calls()[1]; got != "First dictation.\nMore dictation." {
		t.Errorf("second submission = %q", got)
	}
}

func TestPipeline_SingleInFlightCoalescesTriggers(t *testing.T) {
	t.Parallel()

	log := eventlog.NewLog()
	gen := &mock.Generator{Note: "note", Block: make(chan struct{})}
	startPipeline(t, gen, log)

	appendResponse(log, "First.")
	waitFor(t, func() bool { return len(gen.Calls()) == 1 }, "first attempt never started")

	// Log changes while the attempt is in flight; they must defer, not spawn.
	appendResponse(log, "Second.")
	appendResponse(log, "Third.")
	time.Sleep(50 * time.Millisecond)
	if calls := gen.Calls(); len(calls) != 1 {
		t.Fatalf("concurrent attempts started: %d calls", len(calls))
	}

	close(gen.Block)
	waitFor(t, func() bool { return len(gen.Calls()) == 2 }, "deferred trigger never fired")

	// The coalesced follow-up sees the final stable text.
	if got := gen.Calls()[1]; got != "First.\nSecond.\nThird." {
		t.Errorf("coalesced submission = %q", got)
	}
}

func TestPipeline_TimeoutBoundsAttempt(t *testing.T) {
	t.Parallel()

	log := eventlog.NewLog()
	gen := &mock.Generator{Note: "never", Block: make(chan struct{})}
	p := startPipeline(t, gen, log, notes.WithTimeout(30*time.Millisecond))

	appendResponse(log, "Slow dictation.")

	waitFor(t, func() bool { return p.LastError() != "" }, "timeout never surfaced")
	if !strings.Contains(p.LastError(), context.DeadlineExceeded.Error()) {
		t.Errorf("LastError() = %q; want a deadline error", p.LastError())
	}
}
