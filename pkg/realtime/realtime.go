// Package realtime implements the client side of the OpenAI Realtime control
// channel.
//
// A [Client] dials the Realtime WebSocket endpoint with a short-lived bearer
// credential and returns a [Session]: a bidirectional event channel that
// delivers every inbound JSON event in arrival order and transmits outbound
// events and base64-encoded PCM16 audio chunks. The session performs no
// interpretation of event semantics; that is the event log's and the views'
// concern.
package realtime

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/coder/websocket"

	"github.com/drdevinhopkins/scribbler/internal/eventlog"
)

const (
	defaultModel   = "gpt-4o-mini-realtime-preview"
	defaultBaseURL = "wss://api.openai.com/v1/realtime"
)

// ErrNegotiation is wrapped by all session-establishment failures: token
// endpoint errors, a rejected dial, or a malformed handshake response.
var ErrNegotiation = errors.New("realtime: session negotiation failed")

// ErrSessionClosed is returned when sending on a closed session.
var ErrSessionClosed = errors.New("realtime: session closed")

// Option is a functional option for configuring a Client.
type Option func(*Client)

// WithModel sets the Realtime model requested at dial time.
func WithModel(model string) Option {
	return func(c *Client) { c.model = model }
}

// WithBaseURL overrides the base WebSocket URL. Primarily used in tests to
// point at a local mock server.
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = url }
}

// Client dials Realtime sessions.
type Client struct {
	model   string
	baseURL string
}

// NewClient creates a Client with the given options.
func NewClient(opts ...Option) *Client {
	c := &Client{
		model:   defaultModel,
		baseURL: defaultBaseURL,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Model returns the Realtime model this client requests.
func (c *Client) Model() string { return c.model }

// Connect establishes a Realtime session authorized by the given ephemeral
// credential. The returned Session is live: its receive loop is already
// delivering inbound events on [Session.Events].
func (c *Client) Connect(ctx context.Context, credential string) (*Session, error) {
	wsURL := fmt.Sprintf("%s?model=%s", c.baseURL, c.model)

	conn, _, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{
		HTTPHeader: http.Header{
			"Authorization": []string{"Bearer " + credential},
			"OpenAI-Beta":   []string{"realtime=v1"},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: dial: %v", ErrNegotiation, err)
	}

	sessCtx, cancel := context.WithCancel(context.Background())
	s := &Session{
		conn:   conn,
		events: make(chan eventlog.Event, 64),
		ctx:    sessCtx,
		cancel: cancel,
	}
	go s.receiveLoop()
	return s, nil
}

// Session is one live control-channel connection.
type Session struct {
	conn   *websocket.Conn
	events chan eventlog.Event

	mu     sync.Mutex
	errVal error
	closed bool

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

// Events returns the channel on which inbound events arrive, in the exact
// order the transport delivered them. Closed when the session ends.
func (s *Session) Events() <-chan eventlog.Event { return s.events }

// Send marshals e for the wire and transmits it. The event's local timestamp
// is never part of the wire payload.
func (s *Session) Send(ctx context.Context, e eventlog.Event) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	s.mu.Unlock()

	data, err := e.MarshalWire()
	if err != nil {
		return fmt.Errorf("realtime: marshal event: %w", err)
	}
	return s.conn.Write(ctx, websocket.MessageText, data)
}

// SendAudio delivers a raw PCM16 chunk as an input_audio_buffer.append event.
func (s *Session) SendAudio(chunk []byte) error {
	return s.Send(s.ctx, eventlog.Event{
		Type: "input_audio_buffer.append",
		Payload: map[string]any{
			"audio": base64.StdEncoding.EncodeToString(chunk),
		},
	})
}

// Err returns the first error that terminated the receive loop, if any.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errVal
}

// Close terminates the session and releases the connection. Idempotent.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	s.conn.Close(websocket.StatusNormalClosure, "session closed")
	return nil
}

// receiveLoop reads control-channel messages, parses them, and delivers them
// in arrival order. It owns the events channel and closes it on exit.
// Messages that are not JSON objects are dropped.
func (s *Session) receiveLoop() {
	defer s.closeOnce.Do(func() { close(s.events) })

	for {
		_, data, err := s.conn.Read(s.ctx)
		if err != nil {
			if s.ctx.Err() == nil {
				s.setErr(err)
			}
			return
		}

		evt, err := eventlog.ParseEvent(data)
		if err != nil {
			continue
		}

		select {
		case s.events <- evt:
		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Session) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.errVal == nil {
		s.errVal = err
	}
}
