// Package evaluate scores finished transcripts with an LLM judge and
// orchestrates the simulate-then-judge workflow behind a persisted
// evaluation record.
package evaluate

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"promptune/internal/llm"
	"promptune/internal/models"
)

const judgeSystemInstruction = "You are an expert conversation analyst specializing in debt collection call quality assessment. Be objective, fair, and data-driven in your evaluations."

const noAnalysisPlaceholder = "No analysis provided."

// Result is the judge's verdict on one transcript.
type Result struct {
	Scores   models.EvaluationScores
	Analysis string
}

// judgeOutput is the structured-output contract sent to the judge.
type judgeOutput struct {
	Scores struct {
		TaskCompletion         int `json:"task_completion"`
		ConversationEfficiency int `json:"conversation_efficiency"`
	} `json:"scores"`
	EvaluatorAnalysis string `json:"evaluator_analysis"`
}

// Evaluator issues a single structured-output request per transcript.
// It never retries; an unparseable response is the caller's problem.
type Evaluator struct {
	client      llm.Client
	logger      *zap.Logger
	temperature float64
}

// EvaluatorOption configures an Evaluator.
type EvaluatorOption func(*Evaluator)

// WithJudgeTemperature overrides the judge sampling temperature. The
// default is low (0.2) for scoring consistency.
func WithJudgeTemperature(t float64) EvaluatorOption {
	return func(e *Evaluator) { e.temperature = t }
}

// WithEvaluatorLogger sets the logger.
func WithEvaluatorLogger(l *zap.Logger) EvaluatorOption {
	return func(e *Evaluator) { e.logger = l }
}

// NewEvaluator creates an Evaluator backed by the given judge capability.
func NewEvaluator(client llm.Client, opts ...EvaluatorOption) *Evaluator {
	e := &Evaluator{
		client:      client,
		logger:      zap.NewNop(),
		temperature: 0.2,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate scores a transcript against the debtor's objective. Missing
// fields in the judge's response default to zero scores and a
// placeholder analysis; a response that is not the expected structure is
// a hard failure.
func (e *Evaluator) Evaluate(ctx context.Context, transcript models.Transcript, objective string) (*Result, error) {
	prompt := buildEvaluationPrompt(transcript, objective)

	raw, err := e.client.GenerateStructured(ctx, prompt, judgeOutput{}, judgeSystemInstruction, e.temperature)
	if err != nil {
		return nil, fmt.Errorf("transcript evaluation failed: %w", err)
	}

	var out judgeOutput
	if err := json.Unmarshal(raw, &out); err != nil {
		e.logger.Error("unparseable judge response", zap.ByteString("raw", raw))
		return nil, fmt.Errorf("failed to parse evaluation response: %w", err)
	}

	scores := models.EvaluationScores{
		TaskCompletion:         out.Scores.TaskCompletion,
		ConversationEfficiency: out.Scores.ConversationEfficiency,
	}
	if err := models.Validate(scores); err != nil {
		return nil, fmt.Errorf("judge returned out-of-range scores: %w", err)
	}

	analysis := out.EvaluatorAnalysis
	if analysis == "" {
		analysis = noAnalysisPlaceholder
	}

	e.logger.Info("transcript evaluated",
		zap.Int("task_completion", scores.TaskCompletion),
		zap.Int("conversation_efficiency", scores.ConversationEfficiency))

	return &Result{Scores: scores, Analysis: analysis}, nil
}

func buildEvaluationPrompt(transcript models.Transcript, objective string) string {
	return fmt.Sprintf(`You are a conversation analyst. Your task is to evaluate the following debt collection call transcript.

DEBTOR'S OBJECTIVE: %s
AGENT'S GOAL: To collect the debt or arrange a payment plan in a compliant and efficient manner.

TRANSCRIPT:
%s

Analyze the transcript and provide:
1. TASK COMPLETION SCORE (0-100): How well did the agent move towards their goal? Consider:
   - Did they successfully collect payment or arrange a payment plan?
   - Did they maintain compliance with regulations?
   - Did they handle objections effectively?
   - Did they achieve a concrete outcome?

2. CONVERSATION EFFICIENCY SCORE (0-100): How efficient was the agent's communication? Consider:
   - Was the dialogue relevant and on-topic?
   - Did they avoid unnecessary repetition?
   - Were they concise yet complete?
   - Did they waste time with irrelevant questions?

3. EVALUATOR ANALYSIS: Provide a brief qualitative analysis (2-4 sentences) highlighting:
   - Key strengths of the agent's approach
   - Main areas for improvement
   - How well they handled the specific debtor's objective and personality

Be objective and data-driven in your scoring.`, objective, transcript.Format())
}
