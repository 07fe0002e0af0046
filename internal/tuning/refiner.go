package tuning

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"promptune/internal/llm"
)

// DefaultMaxCritiqueCycles bounds the Writer/Critique loop.
const DefaultMaxCritiqueCycles = 3

// writerOutput is the Writer's structured-output contract.
type writerOutput struct {
	SystemPrompt string `json:"system_prompt"`
}

// critiqueOutput is the Critique's structured-output contract: an
// independent pass/fail judgment plus rationale.
type critiqueOutput struct {
	Feedback string `json:"feedback"`
	Pass     bool   `json:"pass"`
}

// Refiner runs the Writer/Critique loop that turns failure evidence into
// a replacement system prompt. If the critique never passes within the
// cycle budget, the last draft is returned as-is; the loop must never
// block on a perfect prompt.
type Refiner struct {
	client              llm.Client
	logger              *zap.Logger
	writerTemperature   float64
	critiqueTemperature float64
	maxCycles           int
}

// RefinerOption configures a Refiner.
type RefinerOption func(*Refiner)

// WithMaxCycles overrides the Writer/Critique cycle budget.
func WithMaxCycles(n int) RefinerOption {
	return func(r *Refiner) { r.maxCycles = n }
}

// WithRefinerTemperatures sets the Writer and Critique temperatures. The
// Writer runs warm for variety, the Critique cool for consistency.
func WithRefinerTemperatures(writer, critique float64) RefinerOption {
	return func(r *Refiner) {
		r.writerTemperature = writer
		r.critiqueTemperature = critique
	}
}

// WithRefinerLogger sets the logger.
func WithRefinerLogger(l *zap.Logger) RefinerOption {
	return func(r *Refiner) { r.logger = l }
}

// NewRefiner creates a Refiner backed by the given capability client.
func NewRefiner(client llm.Client, opts ...RefinerOption) *Refiner {
	r := &Refiner{
		client:              client,
		logger:              zap.NewNop(),
		writerTemperature:   0.7,
		critiqueTemperature: 0.3,
		maxCycles:           DefaultMaxCritiqueCycles,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Refine drafts a replacement system prompt from the context package and
// self-reviews it until the critique passes or the cycle budget runs
// out, in which case the last draft wins.
func (r *Refiner) Refine(ctx context.Context, contextPackage string) (string, error) {
	basePrompt := buildWriterPrompt(contextPackage)

	var (
		currentDraft     string
		critiqueFeedback string
	)

	for cycle := 1; cycle <= r.maxCycles; cycle++ {
		writerInput := basePrompt
		if currentDraft != "" {
			writerInput = fmt.Sprintf(`%s

PREVIOUS ATTEMPT:
%s

CRITIQUE FEEDBACK:
%s

Please revise the prompt to address the critique feedback.`, basePrompt, currentDraft, critiqueFeedback)
		}

		raw, err := r.client.GenerateStructured(ctx, writerInput, writerOutput{}, "", r.writerTemperature)
		if err != nil {
			return "", fmt.Errorf("writer step failed at cycle %d: %w", cycle, err)
		}
		var draft writerOutput
		if err := json.Unmarshal(raw, &draft); err != nil {
			return "", fmt.Errorf("failed to parse writer response at cycle %d: %w", cycle, err)
		}
		if draft.SystemPrompt == "" {
			return "", fmt.Errorf("writer returned an empty prompt at cycle %d", cycle)
		}
		currentDraft = draft.SystemPrompt

		raw, err = r.client.GenerateStructured(ctx, buildCritiquePrompt(contextPackage, currentDraft), critiqueOutput{}, "", r.critiqueTemperature)
		if err != nil {
			return "", fmt.Errorf("critique step failed at cycle %d: %w", cycle, err)
		}
		var critique critiqueOutput
		if err := json.Unmarshal(raw, &critique); err != nil {
			return "", fmt.Errorf("failed to parse critique response at cycle %d: %w", cycle, err)
		}

		if critique.Pass {
			r.logger.Info("writer/critique cycle passed", zap.Int("cycles", cycle))
			return currentDraft, nil
		}
		critiqueFeedback = critique.Feedback
		r.logger.Debug("critique requested revision",
			zap.Int("cycle", cycle),
			zap.String("feedback", critique.Feedback))
	}

	r.logger.Warn("critique cycle budget exhausted, returning latest draft",
		zap.Int("max_cycles", r.maxCycles))
	return currentDraft, nil
}

func buildWriterPrompt(contextPackage string) string {
	return fmt.Sprintf(`You are an expert prompt engineer specializing in conversational AI for debt collection.

Your task is to create an improved system prompt for a debt collection voice agent based on the following context:

%s

INSTRUCTIONS:
1. Analyze the failed evaluations to identify patterns and weaknesses
2. Understand what caused low scores in Task Completion and Conversation Efficiency
3. Create a new system prompt that addresses these weaknesses
4. The new prompt should be clear, comprehensive, and actionable
5. Focus on empathy, compliance, efficiency, and goal achievement
6. Include specific behavioral guidelines based on the failure patterns

Generate a complete, ready-to-use system prompt that will perform better than the current one.`, contextPackage)
}

func buildCritiquePrompt(contextPackage, draft string) string {
	return fmt.Sprintf(`You are a senior AI quality reviewer for conversational agents.

Your task is to evaluate the following system prompt for a debt collection agent.

CONTEXT PACKAGE:
%s

PROPOSED SYSTEM PROMPT:
%s

EVALUATION CRITERIA:
1. Does it address the specific failures identified in the context?
2. Is it clear, specific, and actionable?
3. Does it include appropriate empathy and compliance guidelines?
4. Does it provide concrete behavioral instructions?
5. Is it likely to improve both Task Completion and Conversation Efficiency?

Provide constructive feedback and indicate whether this prompt is acceptable (pass=true) or needs revision (pass=false).`, contextPackage, draft)
}
