// Package tuning implements the closed-loop prompt optimization
// pipeline: weighted multi-scenario aggregation, the Writer/Critique
// refinement sub-loop, and the top-level tuning controller.
package tuning

import (
	"fmt"
	"math"

	"promptune/internal/models"
)

// WeightedAverage combines completed evaluations into one fitness number
// in [0,100]. Each evaluation contributes its per-scenario average
// weighted by its scenario's importance; the result is rounded to two
// decimals. Zero total weight yields 0.0.
//
// Every evaluation must be COMPLETED with scores and have a weight
// mapping; anything else is an error, never silently skipped.
func WeightedAverage(evals []models.Evaluation, weights []models.ScenarioWeight) (float64, error) {
	weightByScenario := make(map[string]int, len(weights))
	for _, sw := range weights {
		weightByScenario[sw.ScenarioID] = sw.Weight
	}

	var (
		totalWeighted float64
		totalWeight   int
	)
	for _, eval := range evals {
		if eval.Status != models.StatusCompleted {
			return 0, fmt.Errorf("evaluation %s is not completed", eval.ID)
		}
		if eval.Scores == nil {
			return 0, fmt.Errorf("evaluation %s has no scores", eval.ID)
		}
		weight, ok := weightByScenario[eval.ScenarioID]
		if !ok {
			return 0, fmt.Errorf("no weight found for scenario %s", eval.ScenarioID)
		}
		totalWeighted += eval.Scores.Average() * float64(weight)
		totalWeight += weight
	}

	if totalWeight == 0 {
		return 0.0, nil
	}
	return math.Round(totalWeighted/float64(totalWeight)*100) / 100, nil
}
