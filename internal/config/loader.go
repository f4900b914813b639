package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	env "github.com/caarlos0/env/v6"
	"gopkg.in/yaml.v3"
)

// ValidNoteProviders lists known note generation backends. Used by
// [Validate] to warn about unrecognised provider names.
var ValidNoteProviders = []string{
	"openai", "anthropic", "gemini", "ollama", "deepseek", "mistral", "groq", "llamacpp",
}

// Load reads the YAML configuration file at path, applies environment
// variable overrides, and returns a validated [Config]. A missing file is
// not an error; the configuration then comes from the environment alone.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return LoadFromReader(nil)
	}
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies environment variable
// overrides, and validates the result. A nil reader skips the YAML stage.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	if r != nil {
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("config: decode yaml: %w", err)
		}
	}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: parse environment: %w", err)
	}
	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults fills in the values a minimal config may omit.
func applyDefaults(cfg *Config) {
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = ":8080"
	}
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = LogInfo
	}
	if cfg.Notes.Provider == "" {
		cfg.Notes.Provider = "openai"
	}
	if cfg.Notes.APIKey == "" {
		cfg.Notes.APIKey = cfg.Realtime.APIKey
	}
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if tls := cfg.Server.TLS; tls != nil {
		if tls.CertFile == "" || tls.KeyFile == "" {
			errs = append(errs, errors.New("server.tls requires both cert_file and key_file"))
		}
	}

	if cfg.Realtime.APIKey == "" {
		slog.Warn("realtime.api_key is empty; session token creation will fail")
	}

	if !slices.Contains(ValidNoteProviders, cfg.Notes.Provider) {
		slog.Warn("unknown note provider name — may be a typo or third-party provider",
			"name", cfg.Notes.Provider,
			"known", ValidNoteProviders,
		)
	}
	if cfg.Notes.Timeout < 0 {
		errs = append(errs, fmt.Errorf("notes.timeout %s must not be negative", cfg.Notes.Timeout))
	}

	if cfg.Auth.VerifyURL == "" {
		slog.Warn("auth.verify_url is empty; the note endpoint will run unauthenticated")
	}

	return errors.Join(errs...)
}
