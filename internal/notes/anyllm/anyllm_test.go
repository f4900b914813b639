package anyllm_test

import (
	"testing"

	anyllmlib "github.com/mozilla-ai/any-llm-go"

	"github.com/drdevinhopkins/scribbler/internal/notes/anyllm"
)

func TestNew_EmptyProviderName(t *testing.T) {
	t.Parallel()

	if _, err := anyllm.New("", "gpt-4o-mini"); err == nil {
		t.Error("New accepted an empty provider name")
	}
}

func TestNew_EmptyModel(t *testing.T) {
	t.Parallel()

	if _, err := anyllm.New("openai", ""); err == nil {
		t.Error("New accepted an empty model")
	}
}

func TestNew_UnsupportedProvider(t *testing.T) {
	t.Parallel()

	if _, err := anyllm.New("carrier-pigeon", "gpt-4o-mini"); err == nil {
		t.Error("New accepted an unsupported provider")
	}
}

func TestNew_KnownProviders(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"openai", "anthropic", "gemini", "ollama", "mistral", "groq"} {
		g, err := anyllm.New(name, "some-model", anyllmlib.WithAPIKey("test-key"))
		if err != nil {
			t.Errorf("New(%q) failed: %v", name, err)
			continue
		}
		if g == nil {
			t.Errorf("New(%q) returned nil generator", name)
		}
	}
}

func TestNew_ProviderNameCaseInsensitive(t *testing.T) {
	t.Parallel()

	if _, err := anyllm.New("OpenAI", "gpt-4o-mini", anyllmlib.WithAPIKey("test-key")); err != nil {
		t.Errorf("mixed-case provider name rejected: %v", err)
	}
}
