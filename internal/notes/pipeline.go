package notes

import (
	"context"
	"log/slog"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/drdevinhopkins/scribbler/internal/eventlog"
	"github.com/drdevinhopkins/scribbler/internal/observe"
)

// Status event types the pipeline appends to the event log.
const (
	TypeProcessingStart = "clinical_note.processing_start"
	TypeSuccess         = "clinical_note.success"
	TypeError           = "clinical_note.error"
)

// errInputLimit bounds the dictation excerpt carried in a clinical_note.error
// payload. Failed inputs never enter the log in full.
const errInputLimit = 200

// DefaultTimeout bounds a single note generation attempt.
const DefaultTimeout = 60 * time.Second

// PipelineOption is a functional option for NewPipeline.
type PipelineOption func(*Pipeline)

// WithTimeout overrides the per-attempt generation timeout.
func WithTimeout(d time.Duration) PipelineOption {
	return func(p *Pipeline) { p.timeout = d }
}

// WithPipelineMetrics wires observability instruments into the pipeline.
func WithPipelineMetrics(m *observe.Metrics) PipelineOption {
	return func(p *Pipeline) { p.metrics = m }
}

// Pipeline watches an event log and submits the accumulated dictation text
// for note generation whenever it changes.
//
// A last-processed marker de-duplicates submissions: a generation attempt
// starts only when the accumulated text is non-empty and differs from the
// marker. The marker advances on success AND on failure, so a failed input
// is never retried until the dictation itself changes. At most one attempt
// is in flight; log changes during an attempt coalesce into a single re-check
// once it reaches a terminal state.
//
// Progress is recorded in the same log as clinical_note.* status events.
// All exported methods are safe for concurrent use.
type Pipeline struct {
	gen     Generator
	log     *eventlog.Log
	timeout time.Duration
	metrics *observe.Metrics

	mu            sync.Mutex
	lastProcessed string
	note          string
	lastErr       string
}

// NewPipeline creates a Pipeline generating notes with gen from the
// dictation accumulated in log. Call Run to start watching.
func NewPipeline(gen Generator, log *eventlog.Log, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		gen:     gen,
		log:     log,
		timeout: DefaultTimeout,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Note returns the current clinical note. Each successful generation
// replaces it wholly.
func (p *Pipeline) Note() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.note
}

// LastError returns the failure message of the most recent failed attempt,
// or "" when the last attempt succeeded. It is kept separate from the note
// so an error never masquerades as note content.
func (p *Pipeline) LastError() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastErr
}

// Run watches the log until ctx is cancelled, generating a note after every
// change that yields new dictation text. It blocks; run it in a goroutine.
func (p *Pipeline) Run(ctx context.Context) {
	changes := p.log.Subscribe()
	// Dictation appended before the subscription took effect is swept here;
	// everything after it signals the channel.
	p.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-changes:
			p.sweep(ctx)
		}
	}
}

// sweep processes pending dictation until the accumulated text is stable.
// Attempts run sequentially, so text appended mid-attempt is picked up by
// the next iteration rather than spawning a concurrent request.
func (p *Pipeline) sweep(ctx context.Context) {
	for ctx.Err() == nil {
		text := eventlog.Dictation(p.log.Snapshot())

		p.mu.Lock()
		pending := text != "" && text != p.lastProcessed
		p.mu.Unlock()

		if !pending {
			return
		}
		p.attempt(ctx, text)
	}
}

// attempt runs one bounded generation call for text and records the outcome.
func (p *Pipeline) attempt(ctx context.Context, text string) {
	actx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()
	p.appendStatus(eventlog.Event{
		Type: TypeProcessingStart,
		Payload: map[string]any{
			"input_length": len(text),
			"timestamp":    start.UTC().Format(time.RFC3339),
		},
	})

	note, err := p.gen.Generate(actx, text)

	// The marker advances regardless of outcome so an unchanged input is
	// not resubmitted in a loop.
	p.mu.Lock()
	p.lastProcessed = text
	if err != nil {
		p.lastErr = err.Error()
	} else {
		p.note = note
		p.lastErr = ""
	}
	p.mu.Unlock()

	if err != nil {
		p.appendStatus(eventlog.Event{
			Type: TypeError,
			Payload: map[string]any{
				"message": err.Error(),
				"input":   truncate(text, errInputLimit),
			},
		})
		if p.metrics != nil {
			p.metrics.NoteAttempt(ctx, "error", time.Since(start))
		}
		slog.Error("clinical note generation failed", "err", err, "input_length", len(text))
		return
	}

	p.appendStatus(eventlog.Event{
		Type: TypeSuccess,
		Payload: map[string]any{
			"input_length":  len(text),
			"output_length": len(note),
		},
	})
	if p.metrics != nil {
		p.metrics.NoteAttempt(ctx, "ok", time.Since(start))
	}
	slog.Info("clinical note generated", "input_length", len(text), "output_length", len(note))
}

// appendStatus stamps and appends a locally originated status event.
func (p *Pipeline) appendStatus(e eventlog.Event) {
	e.ID = eventlog.NewClientID()
	e = e.Stamp(time.Now())
	p.log.Append(e)
	if p.metrics != nil {
		p.metrics.EventAppended(context.Background(), e.Type, "client")
	}
}

// truncate shortens s to at most n bytes without splitting a UTF-8 rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
