package models

import "time"

// EvaluationScores holds the two judge scores for a finished transcript.
// Both are on a 0-100 scale.
type EvaluationScores struct {
	TaskCompletion         int `json:"task_completion" validate:"min=0,max=100"`
	ConversationEfficiency int `json:"conversation_efficiency" validate:"min=0,max=100"`
}

// Average is the per-scenario score used by the weighted aggregator and
// by failed-evaluation selection.
func (s EvaluationScores) Average() float64 {
	return float64(s.TaskCompletion+s.ConversationEfficiency) / 2.0
}

// Evaluation is the persisted record of one simulate-then-judge run for a
// prompt/scenario pair. Scores and transcript are set exactly when the
// status reaches COMPLETED.
type Evaluation struct {
	ID                string            `json:"id"`
	PromptID          string            `json:"prompt_id" validate:"required"`
	ScenarioID        string            `json:"scenario_id" validate:"required"`
	Status            Status            `json:"status"`
	Transcript        Transcript        `json:"transcript,omitempty"`
	Scores            *EvaluationScores `json:"scores,omitempty"`
	EvaluatorAnalysis string            `json:"evaluator_analysis,omitempty"`
	ErrorMessage      string            `json:"error_message,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	CompletedAt       *time.Time        `json:"completed_at,omitempty"`
}
