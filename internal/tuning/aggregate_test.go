package tuning

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"promptune/internal/models"
)

func completedEval(id, scenarioID string, task, efficiency int) models.Evaluation {
	return models.Evaluation{
		ID:         id,
		ScenarioID: scenarioID,
		Status:     models.StatusCompleted,
		Scores: &models.EvaluationScores{
			TaskCompletion:         task,
			ConversationEfficiency: efficiency,
		},
	}
}

func TestWeightedAverage(t *testing.T) {
	evals := []models.Evaluation{
		completedEval("e1", "s1", 80, 70), // average 75, weight 4
		completedEval("e2", "s2", 60, 80), // average 70, weight 2
	}
	weights := []models.ScenarioWeight{
		{ScenarioID: "s1", Weight: 4},
		{ScenarioID: "s2", Weight: 2},
	}

	got, err := WeightedAverage(evals, weights)
	require.NoError(t, err)
	// (75*4 + 70*2) / 6 = 73.333..., rounded to two decimals.
	assert.InDelta(t, 73.33, got, 1e-9)
}

func TestWeightedAverageEmptyInput(t *testing.T) {
	got, err := WeightedAverage(nil, nil)
	require.NoError(t, err)
	assert.Zero(t, got)
}

func TestWeightedAverageRejectsIncompleteEvaluation(t *testing.T) {
	evals := []models.Evaluation{
		{ID: "e1", ScenarioID: "s1", Status: models.StatusRunning},
	}
	weights := []models.ScenarioWeight{{ScenarioID: "s1", Weight: 1}}

	_, err := WeightedAverage(evals, weights)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not completed")
}

func TestWeightedAverageRejectsMissingScores(t *testing.T) {
	evals := []models.Evaluation{
		{ID: "e1", ScenarioID: "s1", Status: models.StatusCompleted},
	}
	weights := []models.ScenarioWeight{{ScenarioID: "s1", Weight: 1}}

	_, err := WeightedAverage(evals, weights)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no scores")
}

func TestWeightedAverageRejectsMissingWeight(t *testing.T) {
	evals := []models.Evaluation{
		completedEval("e1", "s1", 80, 70),
	}

	_, err := WeightedAverage(evals, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no weight found for scenario s1")
}
