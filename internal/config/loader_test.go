package config_test

import (
	"strings"
	"testing"
	"time"

	"github.com/drdevinhopkins/scribbler/internal/config"
)

func TestLoadFromReader_FullConfig(t *testing.T) {
	yml := `
server:
  listen_addr: ":9090"
  log_level: debug
realtime:
  api_key: sk-yaml
  model: gpt-4o-mini-realtime-preview
  voice: verse
  transcription:
    model: gpt-4o-mini-transcribe
    language: en
  turn_detection:
    type: semantic_vad
    eagerness: auto
notes:
  provider: openai
  model: gpt-4o-mini
  timeout: 45s
auth:
  verify_url: https://id.example.com/verify
`
	cfg, err := config.LoadFromReader(strings.NewReader(yml))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}

	if cfg.Server.ListenAddr != ":9090" || cfg.Server.LogLevel != config.LogDebug {
		t.Errorf("server config = %+v", cfg.Server)
	}
	if cfg.Realtime.APIKey != "sk-yaml" || cfg.Realtime.Transcription.Model != "gpt-4o-mini-transcribe" {
		t.Errorf("realtime config = %+v", cfg.Realtime)
	}
	if cfg.Realtime.TurnDetection.Type != "semantic_vad" {
		t.Errorf("turn detection = %+v", cfg.Realtime.TurnDetection)
	}
	if cfg.Notes.Timeout != 45*time.Second {
		t.Errorf("notes.timeout = %s; want 45s", cfg.Notes.Timeout)
	}
	if cfg.Auth.VerifyURL != "https://id.example.com/verify" {
		t.Errorf("auth config = %+v", cfg.Auth)
	}
}

func TestLoadFromReader_DefaultsApplied(t *testing.T) {
	cfg, err := config.LoadFromReader(strings.NewReader("realtime:\n  api_key: sk-x\n"))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}

	if cfg.Server.ListenAddr != ":8080" {
		t.Errorf("default listen_addr = %q; want :8080", cfg.Server.ListenAddr)
	}
	if cfg.Server.LogLevel != config.LogInfo {
		t.Errorf("default log_level = %q; want info", cfg.Server.LogLevel)
	}
	if cfg.Notes.Provider != "openai" {
		t.Errorf("default notes.provider = %q; want openai", cfg.Notes.Provider)
	}
	if cfg.Notes.APIKey != "sk-x" {
		t.Errorf("notes.api_key = %q; want realtime key fallback", cfg.Notes.APIKey)
	}
}

func TestLoadFromReader_EnvOverridesYAML(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-env")
	t.Setenv("SCRIBBLER_LISTEN_ADDR", ":7070")

	cfg, err := config.LoadFromReader(strings.NewReader("realtime:\n  api_key: sk-yaml\n"))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if cfg.Realtime.APIKey != "sk-env" {
		t.Errorf("realtime.api_key = %q; want the environment value", cfg.Realtime.APIKey)
	}
	if cfg.Server.ListenAddr != ":7070" {
		t.Errorf("server.listen_addr = %q; want the environment value", cfg.Server.ListenAddr)
	}
}

func TestLoadFromReader_UnknownFieldRejected(t *testing.T) {
	_, err := config.LoadFromReader(strings.NewReader("server:\n  listne_addr: ':8080'\n"))
	if err == nil {
		t.Fatal("misspelled field accepted")
	}
}

func TestValidate_CollectsAllFailures(t *testing.T) {
	cfg := &config.Config{
		Server: config.ServerConfig{
			LogLevel: "loud",
			TLS:      &config.TLSConfig{CertFile: "cert.pem"},
		},
		Notes: config.NotesConfig{Provider: "openai", Timeout: -time.Second},
	}

	err := config.Validate(cfg)
	if err == nil {
		t.Fatal("invalid config passed validation")
	}
	msg := err.Error()
	for _, want := range []string{"log_level", "cert_file", "timeout"} {
		if !strings.Contains(msg, want) {
			t.Errorf("joined error %q does not mention %s", msg, want)
		}
	}
}
