// Command scribbler is the main entry point for the Scribbler dictation
// server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"

	"github.com/drdevinhopkins/scribbler/internal/config"
	"github.com/drdevinhopkins/scribbler/internal/health"
	"github.com/drdevinhopkins/scribbler/internal/httpapi"
	"github.com/drdevinhopkins/scribbler/internal/notes"
	notesanyllm "github.com/drdevinhopkins/scribbler/internal/notes/anyllm"
	notesopenai "github.com/drdevinhopkins/scribbler/internal/notes/openai"
	"github.com/drdevinhopkins/scribbler/internal/observe"
	"github.com/drdevinhopkins/scribbler/pkg/realtime"
)

// version is stamped at build time via -ldflags.
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	dictatePath := flag.String("dictate", "", "raw PCM16 audio file; run one terminal dictation session instead of the HTTP server")
	flag.Parse()

	// ── Environment ───────────────────────────────────────────────────────────
	// A local .env is optional; real deployments set variables directly.
	_ = godotenv.Load()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "scribbler: %v\n", err)
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("scribbler starting",
		"version", version,
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Observability ─────────────────────────────────────────────────────────
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    "scribbler",
		ServiceVersion: version,
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(sctx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	metrics, err := observe.NewMetrics(otel.GetMeterProvider())
	if err != nil {
		slog.Error("failed to create metrics", "err", err)
		return 1
	}

	// ── Note generator ────────────────────────────────────────────────────────
	gen, err := buildGenerator(cfg.Notes)
	if err != nil {
		slog.Error("failed to build note generator", "err", err)
		return 1
	}
	slog.Info("note generator ready", "provider", cfg.Notes.Provider, "model", cfg.Notes.Model)

	// ── Token client ──────────────────────────────────────────────────────────
	var tokenOpts []realtime.TokenOption
	if cfg.Realtime.Voice != "" {
		tokenOpts = append(tokenOpts, realtime.WithVoice(cfg.Realtime.Voice))
	}
	if cfg.Realtime.SessionsURL != "" {
		tokenOpts = append(tokenOpts, realtime.WithSessionsURL(cfg.Realtime.SessionsURL))
	}
	tokens := realtime.NewTokenClient(cfg.Realtime.APIKey, cfg.Realtime.Model, tokenOpts...)

	// ── Dictation mode ────────────────────────────────────────────────────────
	if *dictatePath != "" {
		if err := runDictate(ctx, cfg, metrics, gen, tokens, *dictatePath); err != nil {
			slog.Error("dictation session failed", "err", err)
			return 1
		}
		return 0
	}

	// ── HTTP API ──────────────────────────────────────────────────────────────
	checkers := []health.Checker{
		staticKeyChecker("realtime_credentials", cfg.Realtime.APIKey),
		staticKeyChecker("notes_credentials", cfg.Notes.APIKey),
	}

	apiOpts := []httpapi.Option{
		httpapi.WithHealth(health.New(checkers...)),
		httpapi.WithMetrics(metrics),
	}
	if cfg.Auth.VerifyURL != "" {
		apiOpts = append(apiOpts, httpapi.WithVerifier(httpapi.NewIdentityVerifier(cfg.Auth.VerifyURL)))
	}
	api := httpapi.NewServer(tokens, gen, apiOpts...)

	srv := &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// ── Run / shutdown ────────────────────────────────────────────────────────
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("server ready — press Ctrl+C to shut down")
		var err error
		if tls := cfg.Server.TLS; tls != nil {
			err = srv.ListenAndServeTLS(tls.CertFile, tls.KeyFile)
		} else {
			err = srv.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutdown signal received, stopping…")
		sctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(sctx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// buildGenerator constructs the configured note generation backend. The
// "openai" provider uses the native SDK; everything else goes through the
// any-llm-go bridge.
func buildGenerator(cfg config.NotesConfig) (notes.Generator, error) {
	if cfg.Provider == "openai" {
		var opts []notesopenai.Option
		if cfg.BaseURL != "" {
			opts = append(opts, notesopenai.WithBaseURL(cfg.BaseURL))
		}
		if cfg.Timeout > 0 {
			opts = append(opts, notesopenai.WithTimeout(cfg.Timeout))
		}
		return notesopenai.New(cfg.APIKey, cfg.Model, opts...)
	}

	model := cfg.Model
	if model == "" {
		model = notes.DefaultModel
	}
	var opts []anyllmlib.Option
	if cfg.APIKey != "" {
		opts = append(opts, anyllmlib.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, anyllmlib.WithBaseURL(cfg.BaseURL))
	}
	return notesanyllm.New(cfg.Provider, model, opts...)
}

// newRealtimeClient builds the realtime websocket client from configuration.
func newRealtimeClient(cfg config.RealtimeConfig) *realtime.Client {
	var opts []realtime.Option
	if cfg.Model != "" {
		opts = append(opts, realtime.WithModel(cfg.Model))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, realtime.WithBaseURL(cfg.BaseURL))
	}
	return realtime.NewClient(opts...)
}

// staticKeyChecker reports readiness failure while the named credential is
// missing from the configuration.
func staticKeyChecker(name, key string) health.Checker {
	var err error
	if key == "" {
		err = errors.New("credential not configured")
	}
	return health.StaticChecker(name, err)
}

// ── Logger ─────────────────────────────────────────────────────────────────────

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
