// Package store is the persistence collaborator: a document store keyed
// by opaque string ids, with one record kind per collection. "Not found"
// is a distinguishable outcome from other errors.
package store

import (
	"context"
	"errors"

	"promptune/internal/models"
)

// ErrNotFound is returned when a referenced document does not exist.
var ErrNotFound = errors.New("document not found")

// Store is the narrow persistence contract the core depends on. Writes
// are atomic per document; the store is the only shared resource between
// concurrent runs.
type Store interface {
	// Prompts
	InsertPrompt(ctx context.Context, name, promptText, version string) (string, error)
	GetPrompt(ctx context.Context, id string) (*models.Prompt, error)
	ListPrompts(ctx context.Context) ([]models.Prompt, error)

	// Personalities
	InsertPersonality(ctx context.Context, p models.Personality) (string, error)
	GetPersonality(ctx context.Context, id string) (*models.Personality, error)
	ListPersonalities(ctx context.Context) ([]models.Personality, error)

	// Scenarios
	InsertScenario(ctx context.Context, s models.Scenario) (string, error)
	GetScenario(ctx context.Context, id string) (*models.Scenario, error)
	UpdateScenario(ctx context.Context, s models.Scenario) error
	ListScenarios(ctx context.Context) ([]models.Scenario, error)

	// Evaluations
	CreateEvaluation(ctx context.Context, promptID, scenarioID string) (string, error)
	GetEvaluation(ctx context.Context, id string) (*models.Evaluation, error)
	UpdateEvaluationStatus(ctx context.Context, id string, status models.Status, errorMessage string) error
	CompleteEvaluation(ctx context.Context, id string, transcript models.Transcript, scores models.EvaluationScores, analysis string) error

	// Tuning loops
	CreateTuningLoop(ctx context.Context, initialPromptID string, cfg models.TuningConfig) (string, error)
	GetTuningLoop(ctx context.Context, id string) (*models.TuningLoop, error)
	UpdateTuningLoopStatus(ctx context.Context, id string, status models.Status, errorMessage string) error
	AppendTuningIteration(ctx context.Context, id string, iteration models.TuningIteration) error
	SetTuningLoopFinalPrompt(ctx context.Context, id, promptID string) error

	// Calls
	InsertCall(ctx context.Context, call models.CallRecord) (string, error)
	GetCall(ctx context.Context, id string) (*models.CallRecord, error)
	ListCalls(ctx context.Context) ([]models.CallRecord, error)
	CompleteCallByRoom(ctx context.Context, roomName, transcriptFile string) (bool, error)
	SetCallRiskScores(ctx context.Context, roomName string, scores models.RiskScores) (bool, error)
}
