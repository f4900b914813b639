package eventlog

import "strings"

// Event types the views project on.
const (
	TypeTranscriptionCompleted = "conversation.item.input_audio_transcription.completed"
	TypeResponseDone           = "response.done"
)

// Entry is one row of the transcript view.
type Entry struct {
	ID        string
	Text      string
	Timestamp string
}

// Transcript projects completed input transcriptions from a log snapshot,
// preserving encounter order. Events without a transcript field are skipped.
func Transcript(events []Event) []Entry {
	var out []Entry
	for _, e := range events {
		if e.Type != TypeTranscriptionCompleted {
			continue
		}
		text, ok := e.Payload["transcript"].(string)
		if !ok || text == "" {
			continue
		}
		out = append(out, Entry{ID: e.ID, Text: text, Timestamp: e.Timestamp})
	}
	return out
}

// Dictation accumulates all response text from completed model responses in
// a log snapshot. Within one response, text parts of a message item are
// joined with single spaces and items with single spaces; across responses
// the texts are joined with newlines.
//
// A response.done event missing the expected nested structure contributes
// nothing rather than raising an error.
func Dictation(events []Event) string {
	var b strings.Builder
	for _, e := range events {
		if e.Type != TypeResponseDone {
			continue
		}
		text := responseText(e)
		if text == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(text)
	}
	return b.String()
}

// responseText extracts the concatenated text content of one response.done
// event. Returns "" when the payload does not have the expected shape.
func responseText(e Event) string {
	resp, ok := e.Payload["response"].(map[string]any)
	if !ok {
		return ""
	}
	output, ok := resp["output"].([]any)
	if !ok {
		return ""
	}

	var items []string
	for _, rawItem := range output {
		item, ok := rawItem.(map[string]any)
		if !ok || item["type"] != "message" {
			continue
		}
		content, ok := item["content"].([]any)
		if !ok {
			continue
		}
		var parts []string
		for _, rawPart := range content {
			part, ok := rawPart.(map[string]any)
			if !ok || part["type"] != "text" {
				continue
			}
			if text, ok := part["text"].(string); ok && text != "" {
				parts = append(parts, text)
			}
		}
		if len(parts) > 0 {
			items = append(items, strings.Join(parts, " "))
		}
	}
	return strings.Join(items, " ")
}

// DebugEntries renders every event for the raw event view, collapsing
// consecutive streaming "delta" events: only the first event of each *.delta
// type in the snapshot is kept per pass. This is a rendering-pass fold over
// the snapshot; the underlying log is never mutated.
func DebugEntries(events []Event) []Event {
	var out []Event
	seenDelta := make(map[string]bool)
	for _, e := range events {
		if strings.HasSuffix(e.Type, "delta") {
			if seenDelta[e.Type] {
				continue
			}
			seenDelta[e.Type] = true
		}
		out = append(out, e)
	}
	return out
}
