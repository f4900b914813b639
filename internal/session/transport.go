// Package session owns the lifecycle of one realtime dictation session.
//
// The [Transport] ties together the audio track, the realtime control
// channel, and the event log: Start acquires the microphone track and
// negotiates a session, every inbound control-channel message is appended to
// the log in arrival order, and captured audio is pumped to the remote
// endpoint until Stop releases everything. At most one session is active at
// a time; starting a new one resets the log.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/drdevinhopkins/scribbler/internal/eventlog"
	"github.com/drdevinhopkins/scribbler/internal/observe"
	"github.com/drdevinhopkins/scribbler/pkg/audio"
	"github.com/drdevinhopkins/scribbler/pkg/realtime"
)

// State is the session lifecycle state.
type State string

const (
	StateInactive    State = "inactive"
	StateNegotiating State = "negotiating"
	StateActive      State = "active"
)

// ErrChannelUnavailable indicates a send was attempted with no open control
// channel. It is logged and the message dropped; it never aborts the caller.
var ErrChannelUnavailable = errors.New("session: no open control channel")

// ErrAlreadyActive is returned from Start when a session is already running.
var ErrAlreadyActive = errors.New("session: a session is already active")

// ErrNotStarted is returned from Stop when no session was started.
var ErrNotStarted = errors.New("session: no active session")

// DefaultInstructions is the fixed system prompt constraining the remote
// model to verbatim transcription correction only.
const DefaultInstructions = `You are a highly accurate and reliable AI medical scribe tasked with transcribing a healthcare provider's dictation.
Your top priority is fidelity to the transcription — you must only include information explicitly stated by the patient or provider. Do not infer, assume, or generate any additional details.
Make corrections to the following transcript for grammar & punctuation and make minor edits for a formal, professional tone.
Remove filler words and phrases.
Use the names of people, places and institutions related to the Jewish General Hospital in Montreal, Quebec, Canada. Use medication names and medical terminology in a Canadian context.`

// Config holds the session.update parameters sent when the channel opens.
type Config struct {
	// Instructions is the transcription-correction system prompt.
	// Defaults to [DefaultInstructions].
	Instructions string

	// TranscriptionModel selects the input audio transcription model.
	TranscriptionModel string

	// Language is the transcription language code.
	Language string

	// TurnDetectionType and TurnDetectionEagerness configure the remote
	// turn-detection policy.
	TurnDetectionType      string
	TurnDetectionEagerness string
}

func (c Config) withDefaults() Config {
	if c.Instructions == "" {
		c.Instructions = DefaultInstructions
	}
	if c.TranscriptionModel == "" {
		c.TranscriptionModel = "gpt-4o-mini-transcribe"
	}
	if c.Language == "" {
		c.Language = "en"
	}
	if c.TurnDetectionType == "" {
		c.TurnDetectionType = "semantic_vad"
	}
	if c.TurnDetectionEagerness == "" {
		c.TurnDetectionEagerness = "auto"
	}
	return c
}

// TokenSource supplies ephemeral session credentials.
// [realtime.TokenClient] is the production implementation.
type TokenSource interface {
	Create(ctx context.Context) (*realtime.SessionToken, error)
}

// Option is a functional option for NewTransport.
type Option func(*Transport)

// WithMetrics wires observability instruments into the transport.
func WithMetrics(m *observe.Metrics) Option {
	return func(t *Transport) { t.metrics = m }
}

// WithConfig overrides the default session.update parameters.
func WithConfig(cfg Config) Option {
	return func(t *Transport) { t.cfg = cfg }
}

// Transport owns the audio track and the control channel for one session.
// All exported methods are safe for concurrent use.
type Transport struct {
	client  *realtime.Client
	tokens  TokenSource
	source  audio.Source
	log     *eventlog.Log
	cfg     Config
	metrics *observe.Metrics

	mu        sync.Mutex
	state     State
	sess      *realtime.Session
	track     *audio.Track
	muted     bool
	startedAt time.Time
	recvDone  chan struct{}
}

// NewTransport creates a Transport appending to log. The microphone source,
// token source, and realtime client are owned collaborators released on Stop.
func NewTransport(client *realtime.Client, tokens TokenSource, source audio.Source, log *eventlog.Log, opts ...Option) *Transport {
	t := &Transport{
		client: client,
		tokens: tokens,
		source: source,
		log:    log,
		state:  StateInactive,
	}
	for _, o := range opts {
		o(t)
	}
	t.cfg = t.cfg.withDefaults()
	return t
}

// State returns the current lifecycle state.
func (t *Transport) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Muted reports whether the microphone track is currently muted.
func (t *Transport) Muted() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.muted
}

// Log returns the event log this transport appends to.
func (t *Transport) Log() *eventlog.Log { return t.log }

// Start acquires the microphone track, negotiates a session, resets the
// event log, and sends the initial session.update configuration event the
// moment the channel is open.
//
// Failures surface as errors wrapping [audio.ErrMediaAccess] (microphone
// unavailable) or [realtime.ErrNegotiation] (handshake failed); both leave
// the transport inactive and retryable.
func (t *Transport) Start(ctx context.Context) error {
	t.mu.Lock()
	if t.state != StateInactive {
		t.mu.Unlock()
		return ErrAlreadyActive
	}
	t.state = StateNegotiating
	t.mu.Unlock()

	fail := func(err error) error {
		t.mu.Lock()
		t.state = StateInactive
		t.mu.Unlock()
		return err
	}

	track, err := t.source.Acquire()
	if err != nil {
		return fail(fmt.Errorf("session: acquire microphone: %w", err))
	}

	tok, err := t.tokens.Create(ctx)
	if err != nil {
		track.Stop()
		return fail(fmt.Errorf("session: obtain credential: %w", err))
	}

	sess, err := t.client.Connect(ctx, tok.ClientSecret.Value)
	if err != nil {
		track.Stop()
		return fail(fmt.Errorf("session: connect: %w", err))
	}

	recvDone := make(chan struct{})

	t.mu.Lock()
	t.sess = sess
	t.track = track
	t.muted = false
	t.state = StateActive
	t.startedAt = time.Now()
	t.recvDone = recvDone
	t.mu.Unlock()

	// New session: the log starts empty, then immediately records the
	// configuration event on its way out.
	t.log.Reset()
	t.SendEvent(ctx, t.configurationEvent())

	go t.receiveLoop(sess, recvDone)
	go t.pumpAudio(sess, track)

	if t.metrics != nil {
		t.metrics.SessionStarted(ctx)
	}
	slog.Info("session started", "model", t.client.Model())
	return nil
}

// Stop closes the control channel, stops the microphone track, releases the
// session, and clears the mute state. Returns [ErrNotStarted] when no
// session is active. It waits for the inbound loop to finish so that no
// event is appended after Stop returns.
func (t *Transport) Stop() error {
	t.mu.Lock()
	if t.state != StateActive {
		t.mu.Unlock()
		return ErrNotStarted
	}
	sess := t.sess
	track := t.track
	recvDone := t.recvDone
	startedAt := t.startedAt
	t.sess = nil
	t.track = nil
	t.muted = false
	t.state = StateInactive
	t.mu.Unlock()

	track.Stop()
	_ = sess.Close()
	<-recvDone

	if t.metrics != nil {
		t.metrics.SessionStopped(context.Background(), time.Since(startedAt))
	}
	slog.Info("session stopped", "duration", time.Since(startedAt))
	return nil
}

// ToggleMute flips the enabled flag on the microphone track. No effect when
// no track exists.
func (t *Transport) ToggleMute() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.track == nil {
		return
	}
	enabled := !t.track.Enabled()
	t.track.SetEnabled(enabled)
	t.muted = !enabled
}

// SendEvent transmits e on the control channel and appends it to the log.
//
// The event is assigned a client id if it has none, transmitted first (the
// remote endpoint must not see the local timestamp field), then stamped and
// appended. With no open channel the event is dropped with a logged error —
// nothing is appended and the caller is not aborted.
func (t *Transport) SendEvent(ctx context.Context, e eventlog.Event) {
	t.mu.Lock()
	sess := t.sess
	t.mu.Unlock()

	if sess == nil {
		slog.Error("failed to send event", "type", e.Type, "err", ErrChannelUnavailable)
		return
	}

	if e.ID == "" {
		e.ID = eventlog.NewClientID()
	}

	if err := sess.Send(ctx, e); err != nil {
		slog.Error("failed to send event", "type", e.Type, "err", err)
		return
	}

	e = e.Stamp(time.Now())

	// A concurrent Stop may have released the session while the send was in
	// flight; once the transport reports inactive the log must not grow.
	t.mu.Lock()
	if t.sess != sess {
		t.mu.Unlock()
		return
	}
	t.log.Append(e)
	t.mu.Unlock()

	if t.metrics != nil {
		t.metrics.EventAppended(ctx, e.Type, "client")
	}
}

// SendText composes a user text message followed by a generation trigger,
// both through SendEvent.
func (t *Transport) SendText(ctx context.Context, text string) {
	t.SendEvent(ctx, eventlog.Event{
		Type: "conversation.item.create",
		Payload: map[string]any{
			"item": map[string]any{
				"type": "message",
				"role": "user",
				"content": []any{
					map[string]any{"type": "input_text", "text": text},
				},
			},
		},
	})
	t.SendEvent(ctx, eventlog.Event{Type: "response.create"})
}

// configurationEvent builds the session.update event that switches the
// remote session into transcription-only dictation mode.
func (t *Transport) configurationEvent() eventlog.Event {
	return eventlog.Event{
		Type: "session.update",
		Payload: map[string]any{
			"session": map[string]any{
				"modalities":          []any{"text"},
				"instructions":        t.cfg.Instructions,
				"output_audio_format": "pcm16",
				"input_audio_transcription": map[string]any{
					"model":    t.cfg.TranscriptionModel,
					"language": t.cfg.Language,
				},
				"turn_detection": map[string]any{
					"type":      t.cfg.TurnDetectionType,
					"eagerness": t.cfg.TurnDetectionEagerness,
				},
			},
		},
	}
}

// receiveLoop appends every inbound event in arrival order, stamping a local
// timestamp when the remote endpoint did not supply one.
func (t *Transport) receiveLoop(sess *realtime.Session, done chan<- struct{}) {
	defer close(done)
	for evt := range sess.Events() {
		evt = evt.Stamp(time.Now())
		t.log.Append(evt)
		if t.metrics != nil {
			t.metrics.EventAppended(context.Background(), evt.Type, "server")
		}
	}
	if err := sess.Err(); err != nil {
		slog.Warn("control channel closed", "err", err)
	}
}

// pumpAudio forwards captured PCM16 frames to the remote endpoint until the
// track or the session ends.
func (t *Transport) pumpAudio(sess *realtime.Session, track *audio.Track) {
	for frame := range track.Frames() {
		if err := sess.SendAudio(frame); err != nil {
			if !errors.Is(err, realtime.ErrSessionClosed) {
				slog.Warn("audio send failed", "err", err)
			}
			return
		}
	}
}
