// Package api wires the HTTP routes to their handlers.
package api

import (
	"net/http"

	"go.uber.org/zap"

	h "promptune/internal/api/handlers"
	"promptune/internal/middleware"
	"promptune/internal/store"
)

// Deps carries everything the routes need. Dialer may be nil when
// telephony is not configured; the calls endpoint then responds 503.
// TranscriptsDir is where the telephony agent drops transcript files.
type Deps struct {
	Store          store.Store
	Evaluations    h.EvaluationRunner
	Tuning         h.TuningRunner
	Dialer         h.CallDialer
	TranscriptsDir string
	Logger         *zap.Logger
}

// NewRouter builds the full route table wrapped in request logging.
func NewRouter(d Deps) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /up", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	// Prompts
	mux.Handle("POST /prompts", h.HandleCreatePrompt(d.Store))
	mux.Handle("GET /prompts", h.HandleListPrompts(d.Store))
	mux.Handle("GET /prompts/{id}", h.HandleGetPrompt(d.Store))

	// Personalities
	mux.Handle("POST /personalities", h.HandleCreatePersonality(d.Store))
	mux.Handle("GET /personalities", h.HandleListPersonalities(d.Store))
	mux.Handle("GET /personalities/{id}", h.HandleGetPersonality(d.Store))

	// Scenarios
	mux.Handle("POST /scenarios", h.HandleCreateScenario(d.Store))
	mux.Handle("GET /scenarios", h.HandleListScenarios(d.Store))
	mux.Handle("GET /scenarios/{id}", h.HandleGetScenario(d.Store))
	mux.Handle("PATCH /scenarios/{id}", h.HandleUpdateScenario(d.Store))

	// Evaluations
	mux.Handle("POST /evaluations", h.HandleCreateEvaluation(d.Store, d.Evaluations, d.Logger))
	mux.Handle("GET /evaluations/{id}", h.HandleGetEvaluation(d.Store))

	// Tuning loops
	mux.Handle("POST /tuning", h.HandleCreateTuningLoop(d.Store, d.Tuning, d.Logger))
	mux.Handle("GET /tuning/{id}", h.HandleGetTuningLoop(d.Store))

	// Outbound calls
	mux.Handle("POST /calls", h.HandleCreateCall(d.Dialer))
	mux.Handle("GET /calls", h.HandleListCalls(d.Store))
	mux.Handle("GET /transcripts/{id}", h.HandleGetTranscript(d.Store, d.TranscriptsDir))
	mux.Handle("GET /countries", h.HandleListCountries())

	return middleware.Logging(d.Logger, mux)
}
