// Package handlers implements the HTTP trigger surface: CRUD for
// prompts, personas and scenarios, and the endpoints that hand
// evaluations and tuning loops off as background work.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"promptune/internal/models"
	"promptune/internal/store"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// decode parses the request body into v and validates it. Invalid input
// is rejected here, before any background work is started.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	if err := models.Validate(v); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

// notFound translates store.ErrNotFound into a 404, everything else into
// a 500.
func notFound(w http.ResponseWriter, err error, message string) {
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, message)
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}
