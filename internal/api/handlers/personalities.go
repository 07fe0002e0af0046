package handlers

import (
	"net/http"

	"promptune/internal/models"
	"promptune/internal/store"
)

// CreatePersonalityRequest is the payload for registering a debtor
// persona.
type CreatePersonalityRequest struct {
	Name         string   `json:"name" validate:"required"`
	SystemPrompt string   `json:"system_prompt" validate:"required"`
	Amount       *float64 `json:"amount" validate:"omitempty,min=0"`
}

// HandleCreatePersonality registers a new debtor persona.
func HandleCreatePersonality(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreatePersonalityRequest
		if !decode(w, r, &req) {
			return
		}
		id, err := st.InsertPersonality(r.Context(), models.Personality{
			Name:         req.Name,
			SystemPrompt: req.SystemPrompt,
			Amount:       req.Amount,
		})
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"id": id})
	}
}

// HandleGetPersonality returns one persona by id.
func HandleGetPersonality(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		personality, err := st.GetPersonality(r.Context(), r.PathValue("id"))
		if err != nil {
			notFound(w, err, "personality not found")
			return
		}
		writeJSON(w, http.StatusOK, personality)
	}
}

// HandleListPersonalities lists all personas.
func HandleListPersonalities(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		personalities, err := st.ListPersonalities(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, personalities)
	}
}
