package tuning

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"promptune/internal/evaluate"
	"promptune/internal/models"
	"promptune/internal/store"
)

// Controller is the top-level tuning state machine. One Run drives one
// tuning loop record through PENDING -> RUNNING -> COMPLETED|FAILED:
// each iteration evaluates every weighted scenario against the current
// candidate prompt, aggregates the scores, and either stops at target or
// refines the prompt for the next round. Iterations execute strictly
// sequentially, as do the scenario evaluations inside one, so the shared
// capability rate limit is respected.
type Controller struct {
	store          store.Store
	orchestrator   *evaluate.Orchestrator
	refiner        *Refiner
	contextBuilder *ContextBuilder
	logger         *zap.Logger
}

// NewController wires the tuning pipeline.
func NewController(st store.Store, orch *evaluate.Orchestrator, refiner *Refiner, cb *ContextBuilder, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cb == nil {
		cb = NewContextBuilder(0, logger)
	}
	return &Controller{
		store:          st,
		orchestrator:   orch,
		refiner:        refiner,
		contextBuilder: cb,
		logger:         logger,
	}
}

// Run executes the tuning loop identified by loopID to a terminal state.
// Any propagated error marks the loop FAILED with the message attached;
// iterations already recorded are retained, never rolled back.
func (c *Controller) Run(ctx context.Context, loopID string) error {
	loop, err := c.store.GetTuningLoop(ctx, loopID)
	if err != nil {
		return fmt.Errorf("tuning loop not found: %s: %w", loopID, err)
	}

	if err := c.run(ctx, loop); err != nil {
		message := fmt.Sprintf("Error in tuning loop: %s", err)
		c.logger.Error("tuning loop failed", zap.String("loop_id", loopID), zap.Error(err))
		if updateErr := c.store.UpdateTuningLoopStatus(ctx, loopID, models.StatusFailed, message); updateErr != nil {
			c.logger.Error("failed to record tuning loop failure",
				zap.String("loop_id", loopID),
				zap.Error(updateErr))
		}
		return err
	}
	return nil
}

func (c *Controller) run(ctx context.Context, loop *models.TuningLoop) error {
	cfg := loop.Config
	if err := c.store.UpdateTuningLoopStatus(ctx, loop.ID, models.StatusRunning, ""); err != nil {
		return fmt.Errorf("failed to mark tuning loop running: %w", err)
	}

	currentPromptID := loop.InitialPromptID
	bestPromptID := loop.InitialPromptID
	bestScore := 0.0

	for iteration := 1; iteration <= cfg.MaxIterations; iteration++ {
		c.logger.Info("tuning iteration starting",
			zap.String("loop_id", loop.ID),
			zap.Int("iteration", iteration),
			zap.Int("max_iterations", cfg.MaxIterations))

		evaluationIDs := make([]string, 0, len(cfg.ScenarioWeights))
		for _, sw := range cfg.ScenarioWeights {
			evalID, err := c.store.CreateEvaluation(ctx, currentPromptID, sw.ScenarioID)
			if err != nil {
				return fmt.Errorf("failed to create evaluation: %w", err)
			}
			if err := c.orchestrator.Run(ctx, evalID, currentPromptID, sw.ScenarioID); err != nil {
				return err
			}
			evaluationIDs = append(evaluationIDs, evalID)
		}

		evals := make([]models.Evaluation, 0, len(evaluationIDs))
		for _, id := range evaluationIDs {
			eval, err := c.store.GetEvaluation(ctx, id)
			if err != nil {
				return fmt.Errorf("evaluation not found: %s: %w", id, err)
			}
			evals = append(evals, *eval)
		}

		weightedScore, err := WeightedAverage(evals, cfg.ScenarioWeights)
		if err != nil {
			return err
		}

		if err := c.store.AppendTuningIteration(ctx, loop.ID, models.TuningIteration{
			IterationNumber: iteration,
			PromptID:        currentPromptID,
			EvaluationIDs:   evaluationIDs,
			WeightedScore:   weightedScore,
		}); err != nil {
			return fmt.Errorf("failed to record iteration: %w", err)
		}

		// Strict > keeps the earlier candidate on an exact tie.
		if weightedScore > bestScore {
			bestScore = weightedScore
			bestPromptID = currentPromptID
		}

		c.logger.Info("tuning iteration complete",
			zap.String("loop_id", loop.ID),
			zap.Int("iteration", iteration),
			zap.Float64("weighted_score", weightedScore),
			zap.Float64("best_score", bestScore))

		if weightedScore >= cfg.TargetScore {
			c.logger.Info("target score reached",
				zap.String("loop_id", loop.ID),
				zap.Float64("target", cfg.TargetScore),
				zap.Float64("score", weightedScore))
			return c.complete(ctx, loop.ID, bestPromptID)
		}

		if iteration < cfg.MaxIterations {
			newPromptID, err := c.refineCandidate(ctx, loop.ID, iteration, currentPromptID, cfg, evals)
			if err != nil {
				return err
			}
			currentPromptID = newPromptID
		}
	}

	// Exhausting the budget is a normal termination; the best candidate
	// seen becomes the final prompt.
	c.logger.Info("iteration budget exhausted",
		zap.String("loop_id", loop.ID),
		zap.Float64("best_score", bestScore))
	return c.complete(ctx, loop.ID, bestPromptID)
}

func (c *Controller) complete(ctx context.Context, loopID, finalPromptID string) error {
	if err := c.store.SetTuningLoopFinalPrompt(ctx, loopID, finalPromptID); err != nil {
		return fmt.Errorf("failed to set final prompt: %w", err)
	}
	if err := c.store.UpdateTuningLoopStatus(ctx, loopID, models.StatusCompleted, ""); err != nil {
		return fmt.Errorf("failed to mark tuning loop completed: %w", err)
	}
	return nil
}

// refineCandidate builds the failure context for this iteration and runs
// the Writer/Critique loop, persisting the improved prompt as a new
// record for the next iteration.
func (c *Controller) refineCandidate(ctx context.Context, loopID string, iteration int, currentPromptID string, cfg models.TuningConfig, evals []models.Evaluation) (string, error) {
	// Evaluations individually below target drive the refinement. When
	// the aggregate misses target but no single scenario does, fall back
	// to all of them rather than refining on an empty context.
	failing := make([]models.Evaluation, 0, len(evals))
	for _, eval := range evals {
		if eval.Scores != nil && eval.Scores.Average() < cfg.TargetScore {
			failing = append(failing, eval)
		}
	}
	if len(failing) == 0 {
		failing = evals
	}

	failures := make([]FailureCase, 0, len(failing))
	for _, eval := range failing {
		scenario, err := c.store.GetScenario(ctx, eval.ScenarioID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return "", fmt.Errorf("failed to load scenario %s: %w", eval.ScenarioID, err)
		}
		failures = append(failures, FailureCase{Scenario: scenario, Evaluation: eval})
	}

	currentPrompt, err := c.store.GetPrompt(ctx, currentPromptID)
	if err != nil {
		return "", fmt.Errorf("current prompt not found: %s: %w", currentPromptID, err)
	}

	contextPackage := c.contextBuilder.Build(currentPrompt.PromptText, cfg.TargetScore, failures)
	improved, err := c.refiner.Refine(ctx, contextPackage)
	if err != nil {
		return "", err
	}

	name := fmt.Sprintf("Tuned-AI-Iter%d-%s", iteration, shortID(loopID))
	version := fmt.Sprintf("Auto-generated from tuning loop iteration %d", iteration)
	newPromptID, err := c.store.InsertPrompt(ctx, name, improved, version)
	if err != nil {
		return "", fmt.Errorf("failed to persist improved prompt: %w", err)
	}

	c.logger.Info("improved prompt created",
		zap.String("loop_id", loopID),
		zap.Int("iteration", iteration),
		zap.String("prompt_id", newPromptID))

	return newPromptID, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
