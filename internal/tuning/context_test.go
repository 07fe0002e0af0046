package tuning

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"promptune/internal/models"
)

func failureCase(title string, messages int) FailureCase {
	transcript := make(models.Transcript, 0, messages)
	for i := 0; i < messages; i++ {
		speaker := models.SpeakerAgent
		if i%2 == 1 {
			speaker = models.SpeakerDebtor
		}
		transcript = append(transcript, models.TranscriptMessage{
			Speaker: speaker,
			Message: fmt.Sprintf("message %d", i),
		})
	}
	return FailureCase{
		Scenario: &models.Scenario{Title: title, Objective: "Avoid paying."},
		Evaluation: models.Evaluation{
			Status:            models.StatusCompleted,
			Scores:            &models.EvaluationScores{TaskCompletion: 40, ConversationEfficiency: 50},
			EvaluatorAnalysis: "Agent lost control of the call.",
			Transcript:        transcript,
		},
	}
}

func TestBuildIncludesPromptTargetAndFailure(t *testing.T) {
	b := NewContextBuilder(0, nil)

	got := b.Build("Be firm but fair.", 80, []FailureCase{failureCase("Angry debtor", 4)})

	assert.Contains(t, got, "CURRENT SYSTEM PROMPT:\nBe firm but fair.")
	assert.Contains(t, got, "TARGET SCORE: 80")
	assert.Contains(t, got, "Scenario: Angry debtor")
	assert.Contains(t, got, "Scores: Task Completion=40, Conversation Efficiency=50, Average=45.0")
	assert.Contains(t, got, "Evaluator Analysis: Agent lost control of the call.")
	assert.Contains(t, got, "AGENT: message 0")
	assert.Contains(t, got, "IMPROVEMENT GUIDELINES:")
}

func TestBuildTruncatesTranscriptExcerpt(t *testing.T) {
	b := NewContextBuilder(0, nil)

	got := b.Build("prompt", 80, []FailureCase{failureCase("Long call", 30)})

	assert.Contains(t, got, "message 9")
	assert.NotContains(t, got, "message 10")
}

func TestBuildAlwaysKeepsFirstFailure(t *testing.T) {
	// A budget of one token is smaller than any rendered failure; the
	// first case must survive regardless.
	b := NewContextBuilder(1, nil)

	got := b.Build("prompt", 80, []FailureCase{
		failureCase("First", 4),
		failureCase("Second", 4),
	})

	assert.Contains(t, got, "Scenario: First")
	assert.NotContains(t, got, "Scenario: Second")
}

func TestBuildHandlesMissingScenarioAndAnalysis(t *testing.T) {
	b := NewContextBuilder(0, nil)

	got := b.Build("prompt", 80, []FailureCase{{
		Evaluation: models.Evaluation{
			Status: models.StatusCompleted,
			Scores: &models.EvaluationScores{TaskCompletion: 10, ConversationEfficiency: 20},
		},
	}})

	require.False(t, strings.Contains(got, "Scenario:"))
	assert.Contains(t, got, "Evaluator Analysis: N/A")
}
