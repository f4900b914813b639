// Package eventlog provides the append-only event log that backs a dictation
// session, together with the pure view projections derived from it.
//
// Every message that crosses the realtime control channel — inbound model and
// transcription events, outbound configuration and user events, and the note
// pipeline's own status events — is recorded as an [Event]. The log only ever
// grows for the lifetime of one session; starting a new session resets it.
// All UI-facing state (transcript, dictation text, debug entries) is computed
// from a log snapshot by the projection functions in views.go.
package eventlog

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ServerIDPrefix is the reserved prefix the remote endpoint uses for the
// event ids it generates. Client-synthesized ids never carry it, so an
// event's origin can be inferred from its id shape alone.
const ServerIDPrefix = "event_"

// Event is one immutable, timestamped, typed message in the log.
//
// Payload holds the type-specific fields of the underlying JSON object
// (everything except event_id, type and timestamp). It is free-form: only
// the consumers that care about a specific event type inspect it, and they
// skip events whose nested shape does not match.
type Event struct {
	// ID uniquely identifies the event. Synthesized via [NewClientID] when
	// the originator did not supply one.
	ID string

	// Type is the event type discriminator, e.g. "response.done" or
	// "session.update".
	Type string

	// Timestamp is a wall-clock string assigned at first observation. It is
	// client-side bookkeeping only and is never transmitted to the remote
	// endpoint.
	Timestamp string

	// Payload carries the remaining fields of the event object.
	Payload map[string]any
}

// NewClientID returns a fresh client-originated event id. The "evt_" prefix
// deliberately differs from [ServerIDPrefix].
func NewClientID() string {
	return "evt_" + uuid.NewString()
}

// FromClient reports whether the event originated on this side of the
// control channel, inferred from the id shape.
func (e Event) FromClient() bool {
	return e.ID != "" && !strings.HasPrefix(e.ID, ServerIDPrefix)
}

// Stamp returns a copy of e with Timestamp set to now, unless a timestamp is
// already present.
func (e Event) Stamp(now time.Time) Event {
	if e.Timestamp == "" {
		e.Timestamp = now.Format(time.TimeOnly)
	}
	return e
}

// wireEvent is the JSON shape of an event on the control channel. The local
// timestamp is intentionally absent: the remote endpoint must not see it.
type wireEvent map[string]any

// MarshalWire encodes the event for transmission on the control channel.
func (e Event) MarshalWire() ([]byte, error) {
	w := make(wireEvent, len(e.Payload)+2)
	for k, v := range e.Payload {
		w[k] = v
	}
	if e.ID != "" {
		w["event_id"] = e.ID
	}
	w["type"] = e.Type
	return json.Marshal(w)
}

// ParseEvent decodes a control-channel JSON message into an Event. Unknown
// fields are preserved in Payload. An error is returned only when data is not
// a JSON object at all.
func ParseEvent(data []byte) (Event, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return Event{}, err
	}

	e := Event{Payload: raw}
	if id, ok := raw["event_id"].(string); ok {
		e.ID = id
		delete(raw, "event_id")
	}
	if typ, ok := raw["type"].(string); ok {
		e.Type = typ
		delete(raw, "type")
	}
	if ts, ok := raw["timestamp"].(string); ok {
		e.Timestamp = ts
		delete(raw, "timestamp")
	}
	return e, nil
}
