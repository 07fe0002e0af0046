package handlers

import (
	"net/http"
	"os"
	"path/filepath"

	"promptune/internal/models"
	"promptune/internal/store"
)

// transcriptResponse is the call record plus its parsed conversation.
type transcriptResponse struct {
	models.CallRecord
	Transcript models.Transcript `json:"transcript"`
}

// HandleGetTranscript returns the parsed transcript and risk scores for
// a call. The transcript file is read from dir on every request; the
// store only holds the filename.
func HandleGetTranscript(st store.Store, dir string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		call, err := st.GetCall(r.Context(), r.PathValue("id"))
		if err != nil {
			notFound(w, err, "call not found")
			return
		}
		if call.TranscriptFile == "" {
			writeError(w, http.StatusNotFound, "no transcript available; call may still be in progress")
			return
		}

		raw, err := os.ReadFile(filepath.Join(dir, call.TranscriptFile))
		if err != nil {
			if os.IsNotExist(err) {
				writeError(w, http.StatusNotFound, "transcript file not found: "+call.TranscriptFile)
				return
			}
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		transcript, err := models.ParseSessionTranscript(raw)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to parse transcript file")
			return
		}

		writeJSON(w, http.StatusOK, transcriptResponse{CallRecord: *call, Transcript: transcript})
	}
}
