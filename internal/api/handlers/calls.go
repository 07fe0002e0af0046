package handlers

import (
	"context"
	"net/http"

	"promptune/internal/dialer"
	"promptune/internal/models"
	"promptune/internal/store"
)

// CallDialer places one outbound call and returns its record.
type CallDialer interface {
	Dial(ctx context.Context, req dialer.Request) (*models.CallRecord, error)
}

// HandleCreateCall places an outbound collection call. Returns 503 when
// no dialer is configured.
func HandleCreateCall(d CallDialer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if d == nil {
			writeError(w, http.StatusServiceUnavailable, "dialer not configured")
			return
		}
		var req dialer.Request
		if !decode(w, r, &req) {
			return
		}
		record, err := d.Dial(r.Context(), req)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusCreated, record)
	}
}

// HandleListCalls lists all recorded calls.
func HandleListCalls(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		calls, err := st.ListCalls(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, calls)
	}
}
