package tuning

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"promptune/internal/llm/llmtest"
)

func isWriterPrompt(prompt string) bool {
	return strings.Contains(prompt, "expert prompt engineer")
}

func isCritiquePrompt(prompt string) bool {
	return strings.Contains(prompt, "quality reviewer")
}

func TestRefinePassesFirstCycle(t *testing.T) {
	fake := &llmtest.Fake{
		GenerateStructuredFunc: func(_ context.Context, prompt string, _ any, _ string, _ float64) ([]byte, error) {
			switch {
			case isWriterPrompt(prompt):
				return json.Marshal(writerOutput{SystemPrompt: "Improved prompt."})
			case isCritiquePrompt(prompt):
				return json.Marshal(critiqueOutput{Feedback: "Looks good.", Pass: true})
			}
			t.Fatalf("unexpected prompt: %s", prompt)
			return nil, nil
		},
	}
	r := NewRefiner(fake)

	got, err := r.Refine(context.Background(), "CONTEXT")
	require.NoError(t, err)
	assert.Equal(t, "Improved prompt.", got)
	assert.Len(t, fake.StructuredCalls, 2)
}

func TestRefineRevisesOnCritiqueFeedback(t *testing.T) {
	writerCalls := 0
	fake := &llmtest.Fake{
		GenerateStructuredFunc: func(_ context.Context, prompt string, _ any, _ string, _ float64) ([]byte, error) {
			switch {
			case isWriterPrompt(prompt):
				writerCalls++
				if writerCalls == 1 {
					return json.Marshal(writerOutput{SystemPrompt: "First draft."})
				}
				// The revision request carries the prior draft and the
				// critique's feedback.
				assert.Contains(t, prompt, "PREVIOUS ATTEMPT:\nFirst draft.")
				assert.Contains(t, prompt, "CRITIQUE FEEDBACK:\nToo vague.")
				return json.Marshal(writerOutput{SystemPrompt: "Second draft."})
			case isCritiquePrompt(prompt):
				if strings.Contains(prompt, "Second draft.") {
					return json.Marshal(critiqueOutput{Feedback: "Good.", Pass: true})
				}
				return json.Marshal(critiqueOutput{Feedback: "Too vague.", Pass: false})
			}
			t.Fatalf("unexpected prompt: %s", prompt)
			return nil, nil
		},
	}
	r := NewRefiner(fake)

	got, err := r.Refine(context.Background(), "CONTEXT")
	require.NoError(t, err)
	assert.Equal(t, "Second draft.", got)
	assert.Equal(t, 2, writerCalls)
}

func TestRefineReturnsLastDraftWhenCritiqueNeverPasses(t *testing.T) {
	writerCalls := 0
	fake := &llmtest.Fake{
		GenerateStructuredFunc: func(_ context.Context, prompt string, _ any, _ string, _ float64) ([]byte, error) {
			if isWriterPrompt(prompt) {
				writerCalls++
				return json.Marshal(writerOutput{SystemPrompt: "Draft."})
			}
			return json.Marshal(critiqueOutput{Feedback: "Still no.", Pass: false})
		},
	}
	r := NewRefiner(fake, WithMaxCycles(2))

	got, err := r.Refine(context.Background(), "CONTEXT")
	require.NoError(t, err)
	assert.Equal(t, "Draft.", got)
	assert.Equal(t, 2, writerCalls)
}

func TestRefineRejectsEmptyDraft(t *testing.T) {
	fake := &llmtest.Fake{
		GenerateStructuredFunc: func(_ context.Context, prompt string, _ any, _ string, _ float64) ([]byte, error) {
			return json.Marshal(writerOutput{})
		},
	}
	r := NewRefiner(fake)

	_, err := r.Refine(context.Background(), "CONTEXT")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty prompt")
}
