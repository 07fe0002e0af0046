package evaluate

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"promptune/internal/models"
	"promptune/internal/simulate"
	"promptune/internal/store"
)

// Orchestrator runs one persisted evaluation end to end: load the prompt,
// scenario and personality, simulate the call, judge the transcript, and
// record the outcome. It is the unit of work the API layer hands off as a
// background task and the tuning controller runs inline.
type Orchestrator struct {
	store     store.Store
	simulator *simulate.Simulator
	evaluator *Evaluator
	logger    *zap.Logger
}

// NewOrchestrator wires the orchestration pipeline.
func NewOrchestrator(st store.Store, sim *simulate.Simulator, eval *Evaluator, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{store: st, simulator: sim, evaluator: eval, logger: logger}
}

// Run drives the evaluation identified by resultID through
// RUNNING -> COMPLETED|FAILED. On failure the record carries the error
// message and the error is also returned so inline callers can abort.
func (o *Orchestrator) Run(ctx context.Context, resultID, promptID, scenarioID string) error {
	if err := o.run(ctx, resultID, promptID, scenarioID); err != nil {
		o.logger.Error("evaluation failed",
			zap.String("evaluation_id", resultID),
			zap.Error(err))
		if updateErr := o.store.UpdateEvaluationStatus(ctx, resultID, models.StatusFailed, err.Error()); updateErr != nil {
			o.logger.Error("failed to record evaluation failure",
				zap.String("evaluation_id", resultID),
				zap.Error(updateErr))
		}
		return err
	}
	return nil
}

func (o *Orchestrator) run(ctx context.Context, resultID, promptID, scenarioID string) error {
	if err := o.store.UpdateEvaluationStatus(ctx, resultID, models.StatusRunning, ""); err != nil {
		return fmt.Errorf("failed to mark evaluation running: %w", err)
	}

	prompt, err := o.store.GetPrompt(ctx, promptID)
	if err != nil {
		return fmt.Errorf("prompt not found: %s: %w", promptID, err)
	}
	scenario, err := o.store.GetScenario(ctx, scenarioID)
	if err != nil {
		return fmt.Errorf("scenario not found: %s: %w", scenarioID, err)
	}
	personality, err := o.store.GetPersonality(ctx, scenario.PersonalityID)
	if err != nil {
		return fmt.Errorf("personality not found: %s: %w", scenario.PersonalityID, err)
	}

	o.logger.Info("starting evaluation",
		zap.String("evaluation_id", resultID),
		zap.String("prompt", prompt.Name),
		zap.String("scenario", scenario.Title),
		zap.String("personality", personality.Name))

	transcript, err := o.simulator.Simulate(ctx,
		prompt.PromptText,
		personality.SystemPrompt,
		scenario.Objective,
		personality.Name,
		personality.Amount)
	if err != nil {
		return err
	}

	result, err := o.evaluator.Evaluate(ctx, transcript, scenario.Objective)
	if err != nil {
		return err
	}

	if err := o.store.CompleteEvaluation(ctx, resultID, transcript, result.Scores, result.Analysis); err != nil {
		return fmt.Errorf("failed to record evaluation result: %w", err)
	}

	o.logger.Info("evaluation completed",
		zap.String("evaluation_id", resultID),
		zap.Int("messages", len(transcript)),
		zap.Float64("average", result.Scores.Average()))

	return nil
}
