package realtime

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultSessionsURL = "https://api.openai.com/v1/realtime/sessions"

// ClientSecret is the short-lived credential object returned by the session
// creation endpoint. Only the nested value is needed to authorize a dial.
type ClientSecret struct {
	Value     string `json:"value"`
	ExpiresAt int64  `json:"expires_at"`
}

// SessionToken is the session-creation response. The raw body is retained so
// the token HTTP endpoint can proxy it to callers unchanged.
type SessionToken struct {
	ClientSecret ClientSecret `json:"client_secret"`

	raw json.RawMessage
}

// Raw returns the unmodified response body.
func (t *SessionToken) Raw() json.RawMessage { return t.raw }

// TokenOption configures a TokenClient.
type TokenOption func(*TokenClient)

// WithSessionsURL overrides the session-creation endpoint. Used in tests.
func WithSessionsURL(url string) TokenOption {
	return func(c *TokenClient) { c.sessionsURL = url }
}

// WithVoice sets the voice requested for the session.
func WithVoice(voice string) TokenOption {
	return func(c *TokenClient) { c.voice = voice }
}

// WithHTTPClient overrides the HTTP client used for token requests.
func WithHTTPClient(hc *http.Client) TokenOption {
	return func(c *TokenClient) { c.http = hc }
}

// TokenClient obtains short-lived session credentials from the provider's
// session-creation endpoint using the long-lived API key. The API key never
// leaves the server side; only the ephemeral credential is handed out.
type TokenClient struct {
	apiKey      string
	model       string
	voice       string
	sessionsURL string
	http        *http.Client
}

// NewTokenClient creates a TokenClient for the given API key and model.
func NewTokenClient(apiKey, model string, opts ...TokenOption) *TokenClient {
	c := &TokenClient{
		apiKey:      apiKey,
		model:       model,
		voice:       "verse",
		sessionsURL: defaultSessionsURL,
		http:        &http.Client{Timeout: 15 * time.Second},
	}
	if c.model == "" {
		c.model = defaultModel
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Create requests a new ephemeral session credential. Non-2xx responses and
// bodies without a client secret fail with an error wrapping [ErrNegotiation].
func (c *TokenClient) Create(ctx context.Context) (*SessionToken, error) {
	body, err := json.Marshal(map[string]string{
		"model": c.model,
		"voice": c.voice,
	})
	if err != nil {
		return nil, fmt.Errorf("realtime: marshal session request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.sessionsURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("realtime: build session request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNegotiation, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrNegotiation, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: sessions endpoint returned %d", ErrNegotiation, resp.StatusCode)
	}

	tok := &SessionToken{raw: data}
	if err := json.Unmarshal(data, tok); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrNegotiation, err)
	}
	if tok.ClientSecret.Value == "" {
		return nil, fmt.Errorf("%w: response has no client secret", ErrNegotiation)
	}
	return tok, nil
}
