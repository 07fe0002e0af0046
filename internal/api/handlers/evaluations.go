package handlers

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"promptune/internal/models"
	"promptune/internal/store"
)

// EvaluationRunner runs one simulate-and-judge pipeline to completion,
// persisting the outcome under the given evaluation id.
type EvaluationRunner interface {
	Run(ctx context.Context, resultID, promptID, scenarioID string) error
}

// CreateEvaluationRequest is the payload for triggering a single
// evaluation.
type CreateEvaluationRequest struct {
	PromptID   string `json:"prompt_id" validate:"required"`
	ScenarioID string `json:"scenario_id" validate:"required"`
}

// HandleCreateEvaluation creates a pending evaluation record and kicks
// off the pipeline in the background. The response carries the id to
// poll; referenced records are checked before any work starts.
func HandleCreateEvaluation(st store.Store, runner EvaluationRunner, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateEvaluationRequest
		if !decode(w, r, &req) {
			return
		}
		if _, err := st.GetPrompt(r.Context(), req.PromptID); err != nil {
			notFound(w, err, "prompt not found")
			return
		}
		if _, err := st.GetScenario(r.Context(), req.ScenarioID); err != nil {
			notFound(w, err, "scenario not found")
			return
		}
		id, err := st.CreateEvaluation(r.Context(), req.PromptID, req.ScenarioID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		// Detached from the request context; the run outlives the
		// response.
		go func() {
			if err := runner.Run(context.Background(), id, req.PromptID, req.ScenarioID); err != nil {
				logger.Error("evaluation run failed", zap.String("evaluation_id", id), zap.Error(err))
			}
		}()

		writeJSON(w, http.StatusAccepted, map[string]string{
			"id":     id,
			"status": string(models.StatusPending),
		})
	}
}

// HandleGetEvaluation returns the evaluation record, whatever its
// current status.
func HandleGetEvaluation(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		evaluation, err := st.GetEvaluation(r.Context(), r.PathValue("id"))
		if err != nil {
			notFound(w, err, "evaluation not found")
			return
		}
		writeJSON(w, http.StatusOK, evaluation)
	}
}
