package handlers

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"promptune/internal/models"
	"promptune/internal/store"
)

// TuningRunner drives one tuning loop to a terminal status.
type TuningRunner interface {
	Run(ctx context.Context, loopID string) error
}

// CreateTuningLoopRequest is the payload for starting a tuning loop.
type CreateTuningLoopRequest struct {
	InitialPromptID string                  `json:"initial_prompt_id" validate:"required"`
	TargetScore     float64                 `json:"target_score" validate:"min=0,max=100"`
	MaxIterations   int                     `json:"max_iterations" validate:"min=1,max=10"`
	ScenarioWeights []models.ScenarioWeight `json:"scenario_weights" validate:"required,min=1,dive"`
}

// HandleCreateTuningLoop creates a pending tuning loop and starts it in
// the background. Every referenced prompt and scenario must exist before
// the loop is accepted.
func HandleCreateTuningLoop(st store.Store, runner TuningRunner, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateTuningLoopRequest
		if !decode(w, r, &req) {
			return
		}
		if _, err := st.GetPrompt(r.Context(), req.InitialPromptID); err != nil {
			notFound(w, err, "prompt not found")
			return
		}
		for _, sw := range req.ScenarioWeights {
			if _, err := st.GetScenario(r.Context(), sw.ScenarioID); err != nil {
				notFound(w, err, "scenario not found: "+sw.ScenarioID)
				return
			}
		}
		id, err := st.CreateTuningLoop(r.Context(), req.InitialPromptID, models.TuningConfig{
			TargetScore:     req.TargetScore,
			MaxIterations:   req.MaxIterations,
			ScenarioWeights: req.ScenarioWeights,
		})
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		go func() {
			if err := runner.Run(context.Background(), id); err != nil {
				logger.Error("tuning loop failed", zap.String("loop_id", id), zap.Error(err))
			}
		}()

		writeJSON(w, http.StatusAccepted, map[string]string{
			"id":     id,
			"status": string(models.StatusPending),
		})
	}
}

// HandleGetTuningLoop returns the loop record with its iteration history.
func HandleGetTuningLoop(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		loop, err := st.GetTuningLoop(r.Context(), r.PathValue("id"))
		if err != nil {
			notFound(w, err, "tuning loop not found")
			return
		}
		writeJSON(w, http.StatusOK, loop)
	}
}
