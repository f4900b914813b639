package session_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/drdevinhopkins/scribbler/internal/eventlog"
	"github.com/drdevinhopkins/scribbler/internal/notes"
	notesmock "github.com/drdevinhopkins/scribbler/internal/notes/mock"
	"github.com/drdevinhopkins/scribbler/internal/session"
	"github.com/drdevinhopkins/scribbler/pkg/audio"
	"github.com/drdevinhopkins/scribbler/pkg/realtime"
)

// Full dictation flow through the real components: audio streamed from a
// reader, transport appending to the log, views projecting the dictation,
// pipeline producing the note.
func TestDictationFlow_AudioToNote(t *testing.T) {
	t.Parallel()

	srv := startRealtimeServer(t, func(conn *websocket.Conn, _ *http.Request) {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()

		// Wait for the configuration event, then for the first audio chunk.
		for {
			frame := readFrame(t, conn)
			if frame["type"] == "input_audio_buffer.append" {
				break
			}
		}

		// Respond the way the remote endpoint would: a completed input
		// transcription followed by the dictation text.
		write := func(v map[string]any) {
			data, _ := json.Marshal(v)
			_ = conn.Write(ctx, websocket.MessageText, data)
		}
		write(map[string]any{
			"event_id":   "event_t1",
			"type":       eventlog.TypeTranscriptionCompleted,
			"transcript": "Patient reports chest pain.",
		})
		write(map[string]any{
			"event_id": "event_r1",
			"type":     eventlog.TypeResponseDone,
			"response": map[string]any{
				"output": []any{
					map[string]any{
						"type": "message",
						"content": []any{
							map[string]any{"type": "text", "text": "Patient reports chest pain."},
						},
					},
				},
			},
		})
		<-conn.CloseRead(context.Background()).Done()
	})

	log := eventlog.NewLog()
	client := realtime.NewClient(realtime.WithBaseURL(wsURL(srv)))
	source := &audio.ReaderSource{R: bytes.NewReader(make([]byte, 4096))}
	tr := session.NewTransport(client, &tokenStub{}, source, log)

	gen := &notesmock.Generator{Note: "ID: adult patient\nChief Concern: chest pain"}
	pipeline := notes.NewPipeline(gen, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go pipeline.Run(ctx)

	if err := tr.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	waitFor(t, func() bool { return strings.Contains(pipeline.Note(), "Chief Concern") }, "note never generated")

	entries := eventlog.Transcript(log.Snapshot())
	if len(entries) != 1 || entries[0].Text != "Patient reports chest pain." {
		t.Errorf("transcript = %+v; want the completed transcription", entries)
	}
	if calls := gen.Calls(); len(calls) != 1 || calls[0] != "Patient reports chest pain." {
		t.Errorf("generator calls = %q; want the accumulated dictation", calls)
	}

	if err := tr.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}
