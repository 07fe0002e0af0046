package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"promptune/internal/models"
	"promptune/internal/store"
)

// recordingRunner signals when the background handoff happened.
type recordingRunner struct {
	ran chan []string
}

func newRecordingRunner() *recordingRunner {
	return &recordingRunner{ran: make(chan []string, 1)}
}

type evalRunnerFunc func(ctx context.Context, resultID, promptID, scenarioID string) error

func (f evalRunnerFunc) Run(ctx context.Context, resultID, promptID, scenarioID string) error {
	return f(ctx, resultID, promptID, scenarioID)
}

type tuningRunnerFunc func(ctx context.Context, loopID string) error

func (f tuningRunnerFunc) Run(ctx context.Context, loopID string) error {
	return f(ctx, loopID)
}

type env struct {
	store          *store.Memory
	server         *httptest.Server
	evals          *recordingRunner
	loops          *recordingRunner
	transcriptsDir string
}

func newEnv(t *testing.T) *env {
	t.Helper()
	st := store.NewMemory()
	evals := newRecordingRunner()
	loops := newRecordingRunner()
	dir := t.TempDir()

	router := NewRouter(Deps{
		Store: st,
		Evaluations: evalRunnerFunc(func(_ context.Context, resultID, promptID, scenarioID string) error {
			evals.ran <- []string{resultID, promptID, scenarioID}
			return nil
		}),
		Tuning: tuningRunnerFunc(func(_ context.Context, loopID string) error {
			loops.ran <- []string{loopID}
			return nil
		}),
		TranscriptsDir: dir,
		Logger:         zap.NewNop(),
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &env{store: st, server: srv, evals: evals, loops: loops, transcriptsDir: dir}
}

func (e *env) post(t *testing.T, path string, body any) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(e.server.URL+path, "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	return resp
}

func (e *env) get(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := http.Get(e.server.URL + path)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func (e *env) createPrompt(t *testing.T) string {
	t.Helper()
	resp := e.post(t, "/prompts", map[string]string{
		"name":        "Baseline",
		"prompt_text": "Be firm but fair with {name}.",
		"version":     "v1",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var out map[string]string
	decodeBody(t, resp, &out)
	return out["id"]
}

func (e *env) createScenario(t *testing.T) string {
	t.Helper()
	resp := e.post(t, "/personalities", map[string]any{
		"name":          "Rahul",
		"system_prompt": "You are Rahul.",
		"amount":        5000,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var persona map[string]string
	decodeBody(t, resp, &persona)

	resp = e.post(t, "/scenarios", map[string]any{
		"personality_id": persona["id"],
		"title":          "Reluctant payer",
		"objective":      "Delay payment.",
		"weight":         3,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var scenario map[string]string
	decodeBody(t, resp, &scenario)
	return scenario["id"]
}

func TestPromptEndpoints(t *testing.T) {
	e := newEnv(t)
	id := e.createPrompt(t)

	resp := e.get(t, "/prompts/"+id)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var prompt models.Prompt
	decodeBody(t, resp, &prompt)
	assert.Equal(t, "Baseline", prompt.Name)

	resp = e.get(t, "/prompts/missing")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	resp = e.post(t, "/prompts", map[string]string{"name": "no text"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestScenarioEndpoints(t *testing.T) {
	e := newEnv(t)
	id := e.createScenario(t)

	resp := e.post(t, "/scenarios", map[string]any{
		"personality_id": "missing",
		"title":          "x",
		"objective":      "y",
		"weight":         1,
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	req, err := http.NewRequest(http.MethodPatch, e.server.URL+"/scenarios/"+id,
		bytes.NewReader([]byte(`{"weight":5,"backstory":"Lost his job."}`)))
	require.NoError(t, err)
	patchResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, patchResp.StatusCode)
	var updated models.Scenario
	decodeBody(t, patchResp, &updated)
	assert.Equal(t, 5, updated.Weight)
	assert.Equal(t, "Lost his job.", updated.Backstory)
}

func TestCreateEvaluationHandsOffBackgroundRun(t *testing.T) {
	e := newEnv(t)
	promptID := e.createPrompt(t)
	scenarioID := e.createScenario(t)

	resp := e.post(t, "/evaluations", map[string]string{
		"prompt_id":   promptID,
		"scenario_id": scenarioID,
	})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	var out map[string]string
	decodeBody(t, resp, &out)
	assert.NotEmpty(t, out["id"])
	assert.Equal(t, "PENDING", out["status"])

	select {
	case args := <-e.evals.ran:
		assert.Equal(t, []string{out["id"], promptID, scenarioID}, args)
	case <-time.After(2 * time.Second):
		t.Fatal("evaluation runner was never invoked")
	}

	// The record is pollable immediately.
	getResp := e.get(t, "/evaluations/"+out["id"])
	require.Equal(t, http.StatusOK, getResp.StatusCode)
	var eval models.Evaluation
	decodeBody(t, getResp, &eval)
	assert.Equal(t, models.StatusPending, eval.Status)
}

func TestCreateEvaluationRejectsUnknownReferences(t *testing.T) {
	e := newEnv(t)
	promptID := e.createPrompt(t)

	resp := e.post(t, "/evaluations", map[string]string{
		"prompt_id":   promptID,
		"scenario_id": "missing",
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	select {
	case <-e.evals.ran:
		t.Fatal("runner must not start for a rejected request")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestCreateTuningLoopHandsOffBackgroundRun(t *testing.T) {
	e := newEnv(t)
	promptID := e.createPrompt(t)
	scenarioID := e.createScenario(t)

	resp := e.post(t, "/tuning", map[string]any{
		"initial_prompt_id": promptID,
		"target_score":      85,
		"max_iterations":    3,
		"scenario_weights":  []map[string]any{{"scenario_id": scenarioID, "weight": 3}},
	})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	var out map[string]string
	decodeBody(t, resp, &out)
	require.NotEmpty(t, out["id"])

	select {
	case args := <-e.loops.ran:
		assert.Equal(t, []string{out["id"]}, args)
	case <-time.After(2 * time.Second):
		t.Fatal("tuning runner was never invoked")
	}

	getResp := e.get(t, "/tuning/"+out["id"])
	require.Equal(t, http.StatusOK, getResp.StatusCode)
	var loop models.TuningLoop
	decodeBody(t, getResp, &loop)
	assert.Equal(t, promptID, loop.InitialPromptID)
	assert.InDelta(t, 85.0, loop.Config.TargetScore, 1e-9)
}

func TestCreateTuningLoopValidation(t *testing.T) {
	e := newEnv(t)
	promptID := e.createPrompt(t)
	scenarioID := e.createScenario(t)

	cases := []map[string]any{
		// No scenarios.
		{"initial_prompt_id": promptID, "target_score": 85, "max_iterations": 3, "scenario_weights": []any{}},
		// Iterations over the cap.
		{"initial_prompt_id": promptID, "target_score": 85, "max_iterations": 11,
			"scenario_weights": []map[string]any{{"scenario_id": scenarioID, "weight": 3}}},
		// Weight out of range.
		{"initial_prompt_id": promptID, "target_score": 85, "max_iterations": 3,
			"scenario_weights": []map[string]any{{"scenario_id": scenarioID, "weight": 6}}},
	}
	for i, body := range cases {
		resp := e.post(t, "/tuning", body)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, fmt.Sprintf("case %d", i))
		resp.Body.Close()
	}
}

func TestCreateCallWithoutDialer(t *testing.T) {
	e := newEnv(t)

	resp := e.post(t, "/calls", map[string]any{
		"name":         "Rahul",
		"phone_number": "9876543210",
		"country_code": "+91",
		"amount":       12500.50,
	})
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	resp.Body.Close()

	listResp := e.get(t, "/calls")
	require.Equal(t, http.StatusOK, listResp.StatusCode)
	var calls []models.CallRecord
	decodeBody(t, listResp, &calls)
	assert.Empty(t, calls)
}

func TestGetTranscript(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	id, err := e.store.InsertCall(ctx, models.CallRecord{
		RoomName:    "outbound-0123456789",
		Name:        "Rahul",
		PhoneNumber: "9876543210",
		CountryCode: "+91",
		Amount:      12500.50,
	})
	require.NoError(t, err)

	file := "transcript_outbound-0123456789_20250101_153000.json"
	raw := []byte(`{"items": [
		{"type": "message", "role": "assistant", "content": ["Hello, am I speaking with Rahul?"]},
		{"type": "message", "role": "user", "content": ["Yes. I will pay on Friday."]}
	]}`)
	require.NoError(t, os.WriteFile(filepath.Join(e.transcriptsDir, file), raw, 0o644))

	matched, err := e.store.CompleteCallByRoom(ctx, "outbound-0123456789", file)
	require.NoError(t, err)
	require.True(t, matched)
	matched, err = e.store.SetCallRiskScores(ctx, "outbound-0123456789", models.RiskScores{
		LoanRecovery:            82,
		WillingnessToPay:        88,
		EscalationRisk:          75,
		CustomerSentiment:       70,
		PromiseToPayReliability: 65,
	})
	require.NoError(t, err)
	require.True(t, matched)

	resp := e.get(t, "/transcripts/"+id)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out struct {
		models.CallRecord
		Transcript models.Transcript `json:"transcript"`
	}
	decodeBody(t, resp, &out)

	assert.Equal(t, "completed", out.Status)
	require.Len(t, out.Transcript, 2)
	assert.Equal(t, models.SpeakerAgent, out.Transcript[0].Speaker)
	assert.Equal(t, "Hello, am I speaking with Rahul?", out.Transcript[0].Message)
	require.NotNil(t, out.RiskScores)
	assert.InDelta(t, 82.0, out.RiskScores.LoanRecovery, 1e-9)
}

func TestGetTranscriptNotAvailable(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	resp := e.get(t, "/transcripts/missing")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	// Call exists but the telephony agent has not dropped a file yet.
	id, err := e.store.InsertCall(ctx, models.CallRecord{
		RoomName:    "outbound-0123456789",
		Name:        "Rahul",
		PhoneNumber: "9876543210",
		CountryCode: "+91",
	})
	require.NoError(t, err)

	resp = e.get(t, "/transcripts/"+id)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	// Record points at a file that is gone from disk.
	matched, err := e.store.CompleteCallByRoom(ctx, "outbound-0123456789", "transcript_outbound-0123456789_20250101_153000.json")
	require.NoError(t, err)
	require.True(t, matched)

	resp = e.get(t, "/transcripts/"+id)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestGetTranscriptUnparseableFile(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	id, err := e.store.InsertCall(ctx, models.CallRecord{
		RoomName:    "outbound-0123456789",
		Name:        "Rahul",
		PhoneNumber: "9876543210",
		CountryCode: "+91",
	})
	require.NoError(t, err)

	file := "transcript_outbound-0123456789_20250101_153000.json"
	require.NoError(t, os.WriteFile(filepath.Join(e.transcriptsDir, file), []byte(`{"items": [`), 0o644))
	matched, err := e.store.CompleteCallByRoom(ctx, "outbound-0123456789", file)
	require.NoError(t, err)
	require.True(t, matched)

	resp := e.get(t, "/transcripts/"+id)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	resp.Body.Close()
}

func TestListCountries(t *testing.T) {
	e := newEnv(t)

	resp := e.get(t, "/countries")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out struct {
		Countries []struct {
			Code string `json:"code"`
			Name string `json:"name"`
			Flag string `json:"flag"`
			ISO  string `json:"iso"`
		} `json:"countries"`
	}
	decodeBody(t, resp, &out)

	require.NotEmpty(t, out.Countries)
	codes := make(map[string]string, len(out.Countries))
	for _, c := range out.Countries {
		assert.NotEmpty(t, c.Name)
		assert.NotEmpty(t, c.Flag)
		assert.NotEmpty(t, c.ISO)
		codes[c.ISO] = c.Code
	}
	assert.Equal(t, "+91", codes["IN"])
	assert.Equal(t, "+1", codes["US"])
}
