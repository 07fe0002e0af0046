package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"promptune/internal/models"
)

// Memory is an in-process Store. It is the default backend for tests and
// single-node development runs; all methods are safe for concurrent use.
type Memory struct {
	mu            sync.RWMutex
	prompts       map[string]models.Prompt
	personalities map[string]models.Personality
	scenarios     map[string]models.Scenario
	evaluations   map[string]models.Evaluation
	tuningLoops   map[string]models.TuningLoop
	calls         map[string]models.CallRecord
	now           func() time.Time
}

var _ Store = (*Memory)(nil)

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		prompts:       make(map[string]models.Prompt),
		personalities: make(map[string]models.Personality),
		scenarios:     make(map[string]models.Scenario),
		evaluations:   make(map[string]models.Evaluation),
		tuningLoops:   make(map[string]models.TuningLoop),
		calls:         make(map[string]models.CallRecord),
		now:           time.Now,
	}
}

func (m *Memory) InsertPrompt(_ context.Context, name, promptText, version string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := uuid.NewString()
	m.prompts[id] = models.Prompt{
		ID:         id,
		Name:       name,
		PromptText: promptText,
		Version:    version,
		CreatedAt:  m.now(),
	}
	return id, nil
}

func (m *Memory) GetPrompt(_ context.Context, id string) (*models.Prompt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.prompts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (m *Memory) ListPrompts(_ context.Context) ([]models.Prompt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.Prompt, 0, len(m.prompts))
	for _, p := range m.prompts {
		out = append(out, p)
	}
	return out, nil
}

func (m *Memory) InsertPersonality(_ context.Context, p models.Personality) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p.ID = uuid.NewString()
	p.CreatedAt = m.now()
	m.personalities[p.ID] = p
	return p.ID, nil
}

func (m *Memory) GetPersonality(_ context.Context, id string) (*models.Personality, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.personalities[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (m *Memory) ListPersonalities(_ context.Context) ([]models.Personality, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.Personality, 0, len(m.personalities))
	for _, p := range m.personalities {
		out = append(out, p)
	}
	return out, nil
}

func (m *Memory) InsertScenario(_ context.Context, s models.Scenario) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s.ID = uuid.NewString()
	s.CreatedAt = m.now()
	m.scenarios[s.ID] = s
	return s.ID, nil
}

func (m *Memory) GetScenario(_ context.Context, id string) (*models.Scenario, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.scenarios[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &s, nil
}

func (m *Memory) UpdateScenario(_ context.Context, s models.Scenario) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.scenarios[s.ID]
	if !ok {
		return ErrNotFound
	}
	s.CreatedAt = existing.CreatedAt
	m.scenarios[s.ID] = s
	return nil
}

func (m *Memory) ListScenarios(_ context.Context) ([]models.Scenario, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.Scenario, 0, len(m.scenarios))
	for _, s := range m.scenarios {
		out = append(out, s)
	}
	return out, nil
}

func (m *Memory) CreateEvaluation(_ context.Context, promptID, scenarioID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := uuid.NewString()
	m.evaluations[id] = models.Evaluation{
		ID:         id,
		PromptID:   promptID,
		ScenarioID: scenarioID,
		Status:     models.StatusPending,
		CreatedAt:  m.now(),
	}
	return id, nil
}

func (m *Memory) GetEvaluation(_ context.Context, id string) (*models.Evaluation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.evaluations[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := e
	out.Transcript = append(models.Transcript(nil), e.Transcript...)
	return &out, nil
}

func (m *Memory) UpdateEvaluationStatus(_ context.Context, id string, status models.Status, errorMessage string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.evaluations[id]
	if !ok {
		return ErrNotFound
	}
	e.Status = status
	e.ErrorMessage = errorMessage
	if status.Terminal() {
		now := m.now()
		e.CompletedAt = &now
	}
	m.evaluations[id] = e
	return nil
}

func (m *Memory) CompleteEvaluation(_ context.Context, id string, transcript models.Transcript, scores models.EvaluationScores, analysis string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.evaluations[id]
	if !ok {
		return ErrNotFound
	}
	now := m.now()
	e.Status = models.StatusCompleted
	e.Transcript = append(models.Transcript(nil), transcript...)
	e.Scores = &scores
	e.EvaluatorAnalysis = analysis
	e.CompletedAt = &now
	m.evaluations[id] = e
	return nil
}

func (m *Memory) CreateTuningLoop(_ context.Context, initialPromptID string, cfg models.TuningConfig) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := uuid.NewString()
	m.tuningLoops[id] = models.TuningLoop{
		ID:              id,
		InitialPromptID: initialPromptID,
		Status:          models.StatusPending,
		Config:          cfg,
		CreatedAt:       m.now(),
	}
	return id, nil
}

func (m *Memory) GetTuningLoop(_ context.Context, id string) (*models.TuningLoop, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	l, ok := m.tuningLoops[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := l
	out.Iterations = append([]models.TuningIteration(nil), l.Iterations...)
	return &out, nil
}

func (m *Memory) UpdateTuningLoopStatus(_ context.Context, id string, status models.Status, errorMessage string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, ok := m.tuningLoops[id]
	if !ok {
		return ErrNotFound
	}
	l.Status = status
	l.ErrorMessage = errorMessage
	if status.Terminal() {
		now := m.now()
		l.CompletedAt = &now
	}
	m.tuningLoops[id] = l
	return nil
}

func (m *Memory) AppendTuningIteration(_ context.Context, id string, iteration models.TuningIteration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, ok := m.tuningLoops[id]
	if !ok {
		return ErrNotFound
	}
	l.Iterations = append(l.Iterations, iteration)
	m.tuningLoops[id] = l
	return nil
}

func (m *Memory) SetTuningLoopFinalPrompt(_ context.Context, id, promptID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, ok := m.tuningLoops[id]
	if !ok {
		return ErrNotFound
	}
	l.FinalPromptID = promptID
	m.tuningLoops[id] = l
	return nil
}

func (m *Memory) InsertCall(_ context.Context, call models.CallRecord) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	call.CallID = uuid.NewString()
	call.CreatedAt = m.now()
	if call.Status == "" {
		call.Status = "initiated"
	}
	m.calls[call.CallID] = call
	return call.CallID, nil
}

func (m *Memory) GetCall(_ context.Context, id string) (*models.CallRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.calls[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

func (m *Memory) ListCalls(_ context.Context) ([]models.CallRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.CallRecord, 0, len(m.calls))
	for _, c := range m.calls {
		out = append(out, c)
	}
	return out, nil
}

func (m *Memory) CompleteCallByRoom(_ context.Context, roomName, transcriptFile string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, c := range m.calls {
		if c.RoomName != roomName {
			continue
		}
		now := m.now()
		c.Status = "completed"
		c.TranscriptFile = transcriptFile
		c.CompletedAt = &now
		m.calls[id] = c
		return true, nil
	}
	return false, nil
}

func (m *Memory) SetCallRiskScores(_ context.Context, roomName string, scores models.RiskScores) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, c := range m.calls {
		if c.RoomName != roomName {
			continue
		}
		c.RiskScores = &scores
		m.calls[id] = c
		return true, nil
	}
	return false, nil
}
