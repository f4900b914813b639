// Package mock provides a notes.Generator test double.
package mock

import (
	"context"
	"sync"

	"github.com/drdevinhopkins/scribbler/internal/notes"
)

// Generator is a configurable in-memory notes.Generator.
type Generator struct {
	// Note is returned from Generate when Err is nil.
	Note string

	// Err, when set, is returned from every Generate call.
	Err error

	// Block, when set, makes Generate wait for a receive on it (or ctx
	// cancellation) before returning. Used to test in-flight behaviour.
	Block chan struct{}

	mu    sync.Mutex
	calls []string
}

var _ notes.Generator = (*Generator)(nil)

// Generate implements notes.Generator.
func (g *Generator) Generate(ctx context.Context, dictation string) (string, error) {
	g.mu.Lock()
	g.calls = append(g.calls, dictation)
	g.mu.Unlock()

	if g.Block != nil {
		select {
		case <-g.Block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if g.Err != nil {
		return "", g.Err
	}
	return g.Note, nil
}

// Calls returns the dictation inputs Generate was called with, in order.
func (g *Generator) Calls() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.calls...)
}
