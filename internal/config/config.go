// Package config provides the configuration schema and loader for the
// Scribbler dictation server.
package config

import "time"

// LogLevel controls log verbosity for the Scribbler server.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Config is the root configuration structure for Scribbler.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader];
// secrets may additionally be supplied through environment variables.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Realtime RealtimeConfig `yaml:"realtime"`
	Notes    NotesConfig    `yaml:"notes"`
	Auth     AuthConfig     `yaml:"auth"`
}

// ServerConfig holds network and logging settings for the Scribbler server.
type ServerConfig struct {
	// ListenAddr is the TCP address the server listens on (e.g., ":8080").
	ListenAddr string `yaml:"listen_addr" env:"SCRIBBLER_LISTEN_ADDR"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level" env:"SCRIBBLER_LOG_LEVEL"`

	// TLS configures TLS for the server. When nil, the server runs plain HTTP.
	TLS *TLSConfig `yaml:"tls"`
}

// TLSConfig holds TLS certificate paths for enabling HTTPS.
type TLSConfig struct {
	// CertFile is the path to the PEM-encoded TLS certificate.
	CertFile string `yaml:"cert_file"`

	// KeyFile is the path to the PEM-encoded TLS private key.
	KeyFile string `yaml:"key_file"`
}

// RealtimeConfig holds settings for the realtime dictation session: the
// credential used to mint ephemeral session tokens and the session.update
// parameters applied when a session opens.
type RealtimeConfig struct {
	// APIKey authenticates against the realtime provider. Required for the
	// /token endpoint and for server-side sessions.
	APIKey string `yaml:"api_key" env:"OPENAI_API_KEY"`

	// Model is the realtime conversation model.
	Model string `yaml:"model"`

	// Voice selects the session voice profile requested at token creation.
	Voice string `yaml:"voice"`

	// BaseURL overrides the realtime websocket endpoint. Leave empty for the
	// provider default.
	BaseURL string `yaml:"base_url"`

	// SessionsURL overrides the session-creation REST endpoint.
	SessionsURL string `yaml:"sessions_url"`

	// Transcription configures input audio transcription.
	Transcription TranscriptionConfig `yaml:"transcription"`

	// TurnDetection configures the remote turn-detection policy.
	TurnDetection TurnDetectionConfig `yaml:"turn_detection"`
}

// TranscriptionConfig selects the input audio transcription model.
type TranscriptionConfig struct {
	// Model is the transcription model (e.g., "gpt-4o-mini-transcribe").
	Model string `yaml:"model"`

	// Language is the transcription language code (e.g., "en").
	Language string `yaml:"language"`
}

// TurnDetectionConfig configures remote voice activity turn detection.
type TurnDetectionConfig struct {
	// Type selects the detection strategy (e.g., "semantic_vad").
	Type string `yaml:"type"`

	// Eagerness tunes how quickly a turn is considered finished.
	Eagerness string `yaml:"eagerness"`
}

// NotesConfig holds settings for the dictation-to-note backend.
type NotesConfig struct {
	// Provider selects the completion backend: "openai" or any provider name
	// supported by the anyllm generator ("anthropic", "gemini", "ollama", ...).
	Provider string `yaml:"provider"`

	// APIKey authenticates against the note provider. When empty, the
	// realtime API key is reused for the "openai" provider.
	APIKey string `yaml:"api_key" env:"NOTES_API_KEY"`

	// Model is the completion model (e.g., "gpt-4o-mini").
	Model string `yaml:"model"`

	// BaseURL overrides the provider's default API endpoint.
	BaseURL string `yaml:"base_url"`

	// Timeout bounds a single note generation attempt. Zero means the
	// pipeline default.
	Timeout time.Duration `yaml:"timeout"`
}

// AuthConfig configures bearer token verification for the note endpoint.
type AuthConfig struct {
	// VerifyURL is the external identity provider's token verification
	// endpoint. When empty, the note endpoint runs unauthenticated and a
	// warning is logged at startup.
	VerifyURL string `yaml:"verify_url" env:"AUTH_VERIFY_URL"`
}
