package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateEvaluationScores(t *testing.T) {
	assert.NoError(t, Validate(EvaluationScores{TaskCompletion: 0, ConversationEfficiency: 100}))
	assert.Error(t, Validate(EvaluationScores{TaskCompletion: 101}))
	assert.Error(t, Validate(EvaluationScores{TaskCompletion: -1}))
}

func TestValidateTuningConfig(t *testing.T) {
	valid := TuningConfig{
		TargetScore:     85,
		MaxIterations:   3,
		ScenarioWeights: []ScenarioWeight{{ScenarioID: "s1", Weight: 3}},
	}
	assert.NoError(t, Validate(valid))

	tooManyIterations := valid
	tooManyIterations.MaxIterations = 11
	assert.Error(t, Validate(tooManyIterations))

	noScenarios := valid
	noScenarios.ScenarioWeights = nil
	assert.Error(t, Validate(noScenarios))

	badWeight := valid
	badWeight.ScenarioWeights = []ScenarioWeight{{ScenarioID: "s1", Weight: 6}}
	assert.Error(t, Validate(badWeight))
}

func TestStatusTerminal(t *testing.T) {
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusRunning.Terminal())
	assert.True(t, StatusCompleted.Terminal())
	assert.True(t, StatusFailed.Terminal())
}

func TestEvaluationScoresAverage(t *testing.T) {
	s := EvaluationScores{TaskCompletion: 75, ConversationEfficiency: 70}
	assert.InDelta(t, 72.5, s.Average(), 1e-9)
}
