package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/drdevinhopkins/scribbler/internal/config"
	"github.com/drdevinhopkins/scribbler/internal/eventlog"
	"github.com/drdevinhopkins/scribbler/internal/notes"
	"github.com/drdevinhopkins/scribbler/internal/observe"
	"github.com/drdevinhopkins/scribbler/internal/session"
	"github.com/drdevinhopkins/scribbler/pkg/audio"
)

// runDictate drives a single dictation session from the terminal instead of
// serving HTTP. Audio is streamed from a raw PCM16 file, line commands on
// stdin control the session, and the generated clinical note is printed when
// the session stops.
func runDictate(ctx context.Context, cfg *config.Config, metrics *observe.Metrics, gen notes.Generator, tokens session.TokenSource, audioPath string) error {
	f, err := os.Open(audioPath)
	if err != nil {
		return fmt.Errorf("open audio file: %w", err)
	}
	defer f.Close()

	log := eventlog.NewLog()
	tr := session.NewTransport(newRealtimeClient(cfg.Realtime), tokens, &audio.ReaderSource{R: f}, log,
		session.WithMetrics(metrics),
		session.WithConfig(session.Config{
			TranscriptionModel:     cfg.Realtime.Transcription.Model,
			Language:               cfg.Realtime.Transcription.Language,
			TurnDetectionType:      cfg.Realtime.TurnDetection.Type,
			TurnDetectionEagerness: cfg.Realtime.TurnDetection.Eagerness,
		}),
	)

	pipeOpts := []notes.PipelineOption{notes.WithPipelineMetrics(metrics)}
	if cfg.Notes.Timeout > 0 {
		pipeOpts = append(pipeOpts, notes.WithTimeout(cfg.Notes.Timeout))
	}
	pipeline := notes.NewPipeline(gen, log, pipeOpts...)

	pctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go pipeline.Run(pctx)

	if err := tr.Start(ctx); err != nil {
		return err
	}

	fmt.Println("session started; commands: mute | text <message> | note | stop")
	sc := bufio.NewScanner(os.Stdin)
loop:
	for ctx.Err() == nil && sc.Scan() {
		cmd, rest, _ := strings.Cut(strings.TrimSpace(sc.Text()), " ")
		switch cmd {
		case "":
		case "mute":
			tr.ToggleMute()
			fmt.Printf("muted: %v\n", tr.Muted())
		case "text":
			tr.SendText(ctx, rest)
		case "note":
			fmt.Println(pipeline.Note())
		case "stop":
			break loop
		default:
			fmt.Printf("unknown command %q\n", cmd)
		}
	}

	if err := tr.Stop(); err != nil {
		return err
	}

	for _, entry := range eventlog.Transcript(log.Snapshot()) {
		fmt.Printf("[%s] %s\n", entry.Timestamp, entry.Text)
	}
	if note := pipeline.Note(); note != "" {
		fmt.Printf("\n%s\n", note)
	} else if msg := pipeline.LastError(); msg != "" {
		slog.Error("no note generated", "err", msg)
	}
	return nil
}
