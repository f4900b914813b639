// Package notes turns accumulated dictation text into a structured clinical
// note.
//
// The [Generator] interface abstracts the remote completion backend; the
// openai and anyllm subpackages provide production implementations and mock
// provides a test double. [Pipeline] watches the event log and submits the
// accumulated dictation automatically, recording its progress as
// clinical_note.* status events in the same log.
package notes

import "context"

// Completion parameters shared by all generator backends. The low temperature
// keeps the note deterministic and faithful to the dictation.
const (
	Temperature = 0.1
	MaxTokens   = 2000
)

// DefaultModel is the completion model used when none is configured.
const DefaultModel = "gpt-4o-mini"

// Generator produces a structured clinical note from raw dictation text.
// Implementations must honour ctx cancellation and deadlines.
type Generator interface {
	Generate(ctx context.Context, dictation string) (string, error)
}

// GeneratorFunc adapts a function to the Generator interface.
type GeneratorFunc func(ctx context.Context, dictation string) (string, error)

// Generate implements Generator.
func (f GeneratorFunc) Generate(ctx context.Context, dictation string) (string, error) {
	return f(ctx, dictation)
}
