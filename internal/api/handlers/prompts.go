package handlers

import (
	"net/http"

	"promptune/internal/store"
)

// CreatePromptRequest is the payload for registering an agent prompt.
type CreatePromptRequest struct {
	Name       string `json:"name" validate:"required"`
	PromptText string `json:"prompt_text" validate:"required"`
	Version    string `json:"version"`
}

// HandleCreatePrompt registers a new agent system prompt.
func HandleCreatePrompt(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreatePromptRequest
		if !decode(w, r, &req) {
			return
		}
		id, err := st.InsertPrompt(r.Context(), req.Name, req.PromptText, req.Version)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"id": id})
	}
}

// HandleGetPrompt returns one prompt by id.
func HandleGetPrompt(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		prompt, err := st.GetPrompt(r.Context(), r.PathValue("id"))
		if err != nil {
			notFound(w, err, "prompt not found")
			return
		}
		writeJSON(w, http.StatusOK, prompt)
	}
}

// HandleListPrompts lists all prompts.
func HandleListPrompts(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		prompts, err := st.ListPrompts(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, prompts)
	}
}
