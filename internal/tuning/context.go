package tuning

import (
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"
	"go.uber.org/zap"

	"promptune/internal/models"
)

// transcriptExcerptLines bounds the excerpt per failure: 10 messages,
// five agent/debtor exchanges.
const transcriptExcerptLines = 10

// DefaultContextTokenBudget caps the size of a context package.
const DefaultContextTokenBudget = 6000

const improvementGuidelines = `
IMPROVEMENT GUIDELINES:
- Focus on addressing the specific weaknesses identified in the evaluations
- Enhance empathy and rapport-building techniques
- Improve goal-oriented dialogue flow
- Reduce repetitive or irrelevant responses
- Maintain compliance and professionalism
- Provide clear, actionable instructions for the agent
`

// FailureCase bundles a below-target evaluation with its scenario for
// context-package rendering. Scenario may be nil when the scenario
// record has gone missing; the evidence is still usable without it.
type FailureCase struct {
	Scenario   *models.Scenario
	Evaluation models.Evaluation
}

// ContextBuilder renders the failure evidence handed to the Writer. The
// transcript excerpt bound keeps each case small; the token budget stops
// the package growing without limit as scenario counts rise.
type ContextBuilder struct {
	tokenBudget int
	countTokens func(string) int
	logger      *zap.Logger
}

// NewContextBuilder creates a builder with the given token budget
// (<= 0 means DefaultContextTokenBudget). Token counts come from the
// cl100k_base encoding, with a bytes/4 estimate as fallback when the
// encoding is unavailable.
func NewContextBuilder(tokenBudget int, logger *zap.Logger) *ContextBuilder {
	if tokenBudget <= 0 {
		tokenBudget = DefaultContextTokenBudget
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	countTokens := func(s string) int { return len(s) / 4 }
	if encoding, err := tiktoken.GetEncoding(tiktoken.MODEL_CL100K_BASE); err == nil {
		countTokens = func(s string) int { return len(encoding.Encode(s, nil, nil)) }
	} else {
		logger.Warn("token encoding unavailable, using byte estimate", zap.Error(err))
	}

	return &ContextBuilder{
		tokenBudget: tokenBudget,
		countTokens: countTokens,
		logger:      logger,
	}
}

// Build assembles the context package: current prompt, target score, and
// per-failure evidence (scores, analysis, transcript excerpt). At least
// one failure case is always included; further cases are dropped once
// the token budget is reached.
func (b *ContextBuilder) Build(currentPromptText string, targetScore float64, failures []FailureCase) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "CURRENT SYSTEM PROMPT:\n%s\n\nTARGET SCORE: %v\n\n", currentPromptText, targetScore)
	sb.WriteString("FAILED EVALUATIONS:\n\n")

	used := b.countTokens(sb.String())
	included := 0
	for i, failure := range failures {
		section := renderFailure(i+1, failure)
		cost := b.countTokens(section)
		if included > 0 && used+cost > b.tokenBudget {
			b.logger.Debug("context token budget reached",
				zap.Int("included", included),
				zap.Int("dropped", len(failures)-included))
			break
		}
		sb.WriteString(section)
		used += cost
		included++
	}

	sb.WriteString(improvementGuidelines)
	return sb.String()
}

func renderFailure(index int, failure FailureCase) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "--- Evaluation %d ---\n", index)
	if failure.Scenario != nil {
		fmt.Fprintf(&sb, "Scenario: %s\n", failure.Scenario.Title)
		fmt.Fprintf(&sb, "Scenario Objective: %s\n", failure.Scenario.Objective)
	}

	eval := failure.Evaluation
	if eval.Scores != nil {
		fmt.Fprintf(&sb, "Scores: Task Completion=%d, Conversation Efficiency=%d, Average=%.1f\n",
			eval.Scores.TaskCompletion, eval.Scores.ConversationEfficiency, eval.Scores.Average())
	}
	analysis := eval.EvaluatorAnalysis
	if analysis == "" {
		analysis = "N/A"
	}
	fmt.Fprintf(&sb, "Evaluator Analysis: %s\n", analysis)

	sb.WriteString("Transcript Excerpt (first 5 exchanges):\n")
	excerpt := eval.Transcript
	if len(excerpt) > transcriptExcerptLines {
		excerpt = excerpt[:transcriptExcerptLines]
	}
	for _, msg := range excerpt {
		fmt.Fprintf(&sb, "  %s: %s\n", msg.Speaker.Label(), msg.Message)
	}
	sb.WriteString("\n")
	return sb.String()
}
