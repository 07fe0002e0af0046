package models

import "time"

// ScenarioWeight maps a scenario to its relative importance in the
// weighted aggregate. Weights are always in [1,5].
type ScenarioWeight struct {
	ScenarioID string `json:"scenario_id" validate:"required"`
	Weight     int    `json:"weight" validate:"min=1,max=5"`
}

// TuningConfig is the fixed configuration of one tuning run.
type TuningConfig struct {
	TargetScore     float64          `json:"target_score" validate:"min=0,max=100"`
	MaxIterations   int              `json:"max_iterations" validate:"min=1,max=10"`
	ScenarioWeights []ScenarioWeight `json:"scenario_weights" validate:"required,min=1,dive"`
}

// TuningIteration is one completed round of the tuning loop. Records are
// append-only; an iteration is never mutated after it is recorded.
type TuningIteration struct {
	IterationNumber int      `json:"iteration_number" validate:"min=1"`
	PromptID        string   `json:"prompt_id" validate:"required"`
	EvaluationIDs   []string `json:"evaluation_ids" validate:"required,min=1"`
	WeightedScore   float64  `json:"weighted_score" validate:"min=0,max=100"`
}

// TuningLoop is the persisted record of a full tuning run. The iterations
// list grows monotonically and never exceeds MaxIterations; FinalPromptID
// is set exactly once, at completion.
type TuningLoop struct {
	ID              string            `json:"id"`
	InitialPromptID string            `json:"initial_prompt_id" validate:"required"`
	Status          Status            `json:"status"`
	Config          TuningConfig      `json:"config"`
	Iterations      []TuningIteration `json:"iterations"`
	FinalPromptID   string            `json:"final_prompt_id,omitempty"`
	ErrorMessage    string            `json:"error_message,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	CompletedAt     *time.Time        `json:"completed_at,omitempty"`
}
