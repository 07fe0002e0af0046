// Package llmtest provides a scriptable in-memory Client for tests.
package llmtest

import (
	"context"
	"sync"

	"promptune/internal/llm"
)

// ConverseCall records one Converse invocation.
type ConverseCall struct {
	System      string
	History     []llm.Turn
	Temperature float64
}

// StructuredCall records one GenerateStructured invocation.
type StructuredCall struct {
	Prompt      string
	System      string
	Temperature float64
}

// Fake is a Client whose behavior is supplied by function fields. Every
// invocation is recorded so tests can assert on the exact system prompts
// and per-persona histories the core sent.
type Fake struct {
	mu sync.Mutex

	ConverseFunc           func(ctx context.Context, system string, history []llm.Turn, temperature float64) (string, error)
	GenerateStructuredFunc func(ctx context.Context, prompt string, schema any, system string, temperature float64) ([]byte, error)

	ConverseCalls   []ConverseCall
	StructuredCalls []StructuredCall
}

var _ llm.Client = (*Fake)(nil)

func (f *Fake) Converse(ctx context.Context, system string, history []llm.Turn, temperature float64) (string, error) {
	f.mu.Lock()
	recorded := make([]llm.Turn, len(history))
	copy(recorded, history)
	f.ConverseCalls = append(f.ConverseCalls, ConverseCall{
		System:      system,
		History:     recorded,
		Temperature: temperature,
	})
	f.mu.Unlock()

	if f.ConverseFunc == nil {
		return "", nil
	}
	return f.ConverseFunc(ctx, system, history, temperature)
}

func (f *Fake) GenerateStructured(ctx context.Context, prompt string, schema any, system string, temperature float64) ([]byte, error) {
	f.mu.Lock()
	f.StructuredCalls = append(f.StructuredCalls, StructuredCall{
		Prompt:      prompt,
		System:      system,
		Temperature: temperature,
	})
	f.mu.Unlock()

	if f.GenerateStructuredFunc == nil {
		return []byte(`{}`), nil
	}
	return f.GenerateStructuredFunc(ctx, prompt, schema, system, temperature)
}
