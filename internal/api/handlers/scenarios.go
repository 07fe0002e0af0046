package handlers

import (
	"net/http"

	"promptune/internal/models"
	"promptune/internal/store"
)

// CreateScenarioRequest is the payload for registering a test scenario.
type CreateScenarioRequest struct {
	PersonalityID string `json:"personality_id" validate:"required"`
	Title         string `json:"title" validate:"required"`
	Objective     string `json:"objective" validate:"required"`
	Backstory     string `json:"backstory"`
	Weight        int    `json:"weight" validate:"min=1,max=5"`
}

// UpdateScenarioRequest is the payload for editing a scenario.
type UpdateScenarioRequest struct {
	Backstory *string `json:"backstory"`
	Weight    *int    `json:"weight" validate:"omitempty,min=1,max=5"`
}

// HandleCreateScenario registers a new scenario. The referenced
// personality must exist.
func HandleCreateScenario(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateScenarioRequest
		if !decode(w, r, &req) {
			return
		}
		if _, err := st.GetPersonality(r.Context(), req.PersonalityID); err != nil {
			notFound(w, err, "personality not found")
			return
		}
		id, err := st.InsertScenario(r.Context(), models.Scenario{
			PersonalityID: req.PersonalityID,
			Title:         req.Title,
			Objective:     req.Objective,
			Backstory:     req.Backstory,
			Weight:        req.Weight,
		})
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"id": id})
	}
}

// HandleGetScenario returns one scenario by id.
func HandleGetScenario(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scenario, err := st.GetScenario(r.Context(), r.PathValue("id"))
		if err != nil {
			notFound(w, err, "scenario not found")
			return
		}
		writeJSON(w, http.StatusOK, scenario)
	}
}

// HandleUpdateScenario patches a scenario's backstory or weight.
func HandleUpdateScenario(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req UpdateScenarioRequest
		if !decode(w, r, &req) {
			return
		}
		scenario, err := st.GetScenario(r.Context(), r.PathValue("id"))
		if err != nil {
			notFound(w, err, "scenario not found")
			return
		}
		if req.Backstory != nil {
			scenario.Backstory = *req.Backstory
		}
		if req.Weight != nil {
			scenario.Weight = *req.Weight
		}
		if err := st.UpdateScenario(r.Context(), *scenario); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, scenario)
	}
}

// HandleListScenarios lists all scenarios.
func HandleListScenarios(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scenarios, err := st.ListScenarios(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, scenarios)
	}
}
