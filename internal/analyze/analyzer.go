// Package analyze scores completed collection calls. A call's
// transcript goes through one structured-output request producing five
// risk matrices for the collector; the watcher attaches them to the
// call record.
package analyze

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"promptune/internal/llm"
	"promptune/internal/models"
)

const riskSystemInstruction = `You are an advanced AI agent tasked with analyzing customer debt collection call transcripts and producing structured risk scores based on deep linguistic and behavioral analysis. Identify, define, and quantify the following risk matrices for each transcript, producing a score between 1 and 100 for each. Higher scores always indicate a more favorable (lower risk) state for the lender/collector.

### Matrices to Output

1. Loan Recovery Score
- Definition: Probability (1-100) of successful loan repayment by the customer inferred from transcript signals.
- Signals to Consider: explicit or implicit agreement to pay; commitment level (specific dates, positive intent); excuses or delays (vague responses, avoidance); historical reliability if referenced; signs of distress or negative sentiment.

2. Willingness-to-Pay Score
- Definition: Strength (1-100) of customer's willingness, intent, and openness to settling the debt soon.
- Signals to Consider: positive affirmations ("I will pay", "Let's settle", "How can I pay?"); negotiation, plan requests; cooperative tone versus avoidance/hostility; clarity of payment plan acceptance.

3. Escalation Risk Score
- Definition: Risk (1-100, reverse scale) that this interaction requires escalation (legal, supervisor intervention, hard recovery).
- Signals to Consider: aggressive, abusive, or frustrated language; threats, legal warnings, refusal; persistent avoidance; repeated delay tactics.

4. Customer Sentiment Score
- Definition: Aggregate customer sentiment throughout the call (1-100: 100 = strongly positive, 1 = strongly negative).
- Signals to Consider: sentiment detected in all customer utterances; politeness, apology, cooperation; negative language, anger, sadness, stress.

5. Promise-to-Pay Reliability Index
- Definition: Score (1-100) estimating likelihood that any explicit payment promises made are genuine and reliable.
- Signals to Consider: specific vs. vague commitments ("Friday" vs. "soon"); past references to fulfilled promises; consistency in responses; avoidance or changes in statement.

Instructions:
- Input: raw transcript of the customer debt collection call.
- Output: a structured set of five risk matrices, each score normalized to between 1 and 100 (100 showing very low risk for collector/lender).
- Base each score on linguistic cues, behavioral signals, sentiment, negotiation patterns, historical references (if present), and explicit/implicit statements found anywhere in the transcript.
- Do NOT describe the scoring logic in your output. Only provide the structured five-part matrix.`

// riskOutput is the structured-output contract. The display-name keys
// are what the model is instructed to produce; storage uses the
// snake_case form on models.RiskScores.
type riskOutput struct {
	LoanRecovery            float64 `json:"Loan Recovery Score"`
	WillingnessToPay        float64 `json:"Willingness-to-Pay Score"`
	EscalationRisk          float64 `json:"Escalation Risk Score"`
	CustomerSentiment       float64 `json:"Customer Sentiment Score"`
	PromiseToPayReliability float64 `json:"Promise-to-Pay Reliability Index"`
}

// ErrEmptyTranscript is returned when there is nothing to score.
var ErrEmptyTranscript = errors.New("empty transcript")

// Analyzer issues one structured-output request per transcript. It
// never retries; the watcher treats any failure as non-fatal.
type Analyzer struct {
	client      llm.Client
	logger      *zap.Logger
	temperature float64
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithTemperature overrides the sampling temperature. The default is
// low (0.2) for scoring consistency.
func WithTemperature(t float64) Option {
	return func(a *Analyzer) { a.temperature = t }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(a *Analyzer) { a.logger = l }
}

// NewAnalyzer creates an Analyzer backed by the given capability.
func NewAnalyzer(client llm.Client, opts ...Option) *Analyzer {
	a := &Analyzer{
		client:      client,
		logger:      zap.NewNop(),
		temperature: 0.2,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze scores a call transcript. Scores the model omits come back
// as zero rather than failing the analysis.
func (a *Analyzer) Analyze(ctx context.Context, transcript models.Transcript) (*models.RiskScores, error) {
	if len(transcript) == 0 {
		return nil, ErrEmptyTranscript
	}

	raw, err := a.client.GenerateStructured(ctx, transcript.Format(), riskOutput{}, riskSystemInstruction, a.temperature)
	if err != nil {
		return nil, fmt.Errorf("transcript analysis failed: %w", err)
	}

	var out riskOutput
	if err := json.Unmarshal(raw, &out); err != nil {
		a.logger.Error("unparseable analysis response", zap.ByteString("raw", raw))
		return nil, fmt.Errorf("failed to parse analysis response: %w", err)
	}

	scores := models.RiskScores{
		LoanRecovery:            out.LoanRecovery,
		WillingnessToPay:        out.WillingnessToPay,
		EscalationRisk:          out.EscalationRisk,
		CustomerSentiment:       out.CustomerSentiment,
		PromiseToPayReliability: out.PromiseToPayReliability,
	}

	a.logger.Info("transcript analyzed",
		zap.Float64("loan_recovery", scores.LoanRecovery),
		zap.Float64("willingness_to_pay", scores.WillingnessToPay),
		zap.Float64("escalation_risk", scores.EscalationRisk),
		zap.Float64("customer_sentiment", scores.CustomerSentiment),
		zap.Float64("promise_to_pay_reliability", scores.PromiseToPayReliability))

	return &scores, nil
}
