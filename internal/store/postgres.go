package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"promptune/internal/models"
)

// Document kinds, one per collection.
const (
	kindPrompt      = "prompt"
	kindPersonality = "personality"
	kindScenario    = "scenario"
	kindEvaluation  = "evaluation"
	kindTuningLoop  = "tuning_loop"
	kindCall        = "call"
)

// Postgres stores each record as a JSONB document in a single table keyed
// by (kind, id). Read-modify-write updates run inside a transaction with
// a row lock, which is what makes per-document writes atomic.
type Postgres struct {
	db  *sql.DB
	sb  sq.StatementBuilderType
	now func() time.Time
}

var _ Store = (*Postgres)(nil)

// OpenPostgres connects to the given Postgres URL and ensures the
// documents table exists.
func OpenPostgres(ctx context.Context, url string) (*Postgres, error) {
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	p := &Postgres{
		db:  db,
		sb:  sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
		now: time.Now,
	}
	if err := p.ensureSchema(ctx); err != nil {
		return nil, err
	}
	return p, nil
}

// Close releases the underlying connection pool.
func (p *Postgres) Close() error {
	return p.db.Close()
}

func (p *Postgres) ensureSchema(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS documents (
			kind TEXT NOT NULL,
			id   TEXT NOT NULL,
			doc  JSONB NOT NULL,
			PRIMARY KEY (kind, id)
		)`)
	if err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}

func (p *Postgres) insert(ctx context.Context, kind, id string, doc any) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal %s document: %w", kind, err)
	}
	query, args, err := p.sb.Insert("documents").
		Columns("kind", "id", "doc").
		Values(kind, id, raw).
		ToSql()
	if err != nil {
		return err
	}
	_, err = p.db.ExecContext(ctx, query, args...)
	return err
}

func (p *Postgres) get(ctx context.Context, kind, id string, out any) error {
	query, args, err := p.sb.Select("doc").
		From("documents").
		Where(sq.Eq{"kind": kind, "id": id}).
		ToSql()
	if err != nil {
		return err
	}
	var raw []byte
	if err := p.db.QueryRowContext(ctx, query, args...).Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	return json.Unmarshal(raw, out)
}

func (p *Postgres) list(ctx context.Context, kind string) ([][]byte, error) {
	query, args, err := p.sb.Select("doc").
		From("documents").
		Where(sq.Eq{"kind": kind}).
		OrderBy("doc->>'created_at'").
		ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs [][]byte
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		docs = append(docs, raw)
	}
	return docs, rows.Err()
}

// mutate applies fn to a single document inside a transaction, holding a
// row lock for the duration of the read-modify-write.
func (p *Postgres) mutate(ctx context.Context, kind, id string, fn func(raw []byte) (any, error)) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query, args, err := p.sb.Select("doc").
		From("documents").
		Where(sq.Eq{"kind": kind, "id": id}).
		Suffix("FOR UPDATE").
		ToSql()
	if err != nil {
		return err
	}
	var raw []byte
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}

	updated, err := fn(raw)
	if err != nil {
		return err
	}
	next, err := json.Marshal(updated)
	if err != nil {
		return fmt.Errorf("failed to marshal updated %s document: %w", kind, err)
	}

	query, args, err = p.sb.Update("documents").
		Set("doc", next).
		Where(sq.Eq{"kind": kind, "id": id}).
		ToSql()
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return err
	}
	return tx.Commit()
}

func (p *Postgres) InsertPrompt(ctx context.Context, name, promptText, version string) (string, error) {
	id := uuid.NewString()
	doc := models.Prompt{
		ID:         id,
		Name:       name,
		PromptText: promptText,
		Version:    version,
		CreatedAt:  p.now(),
	}
	return id, p.insert(ctx, kindPrompt, id, doc)
}

func (p *Postgres) GetPrompt(ctx context.Context, id string) (*models.Prompt, error) {
	var out models.Prompt
	if err := p.get(ctx, kindPrompt, id, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (p *Postgres) ListPrompts(ctx context.Context) ([]models.Prompt, error) {
	docs, err := p.list(ctx, kindPrompt)
	if err != nil {
		return nil, err
	}
	out := make([]models.Prompt, 0, len(docs))
	for _, raw := range docs {
		var rec models.Prompt
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func (p *Postgres) InsertPersonality(ctx context.Context, rec models.Personality) (string, error) {
	rec.ID = uuid.NewString()
	rec.CreatedAt = p.now()
	return rec.ID, p.insert(ctx, kindPersonality, rec.ID, rec)
}

func (p *Postgres) GetPersonality(ctx context.Context, id string) (*models.Personality, error) {
	var out models.Personality
	if err := p.get(ctx, kindPersonality, id, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (p *Postgres) ListPersonalities(ctx context.Context) ([]models.Personality, error) {
	docs, err := p.list(ctx, kindPersonality)
	if err != nil {
		return nil, err
	}
	out := make([]models.Personality, 0, len(docs))
	for _, raw := range docs {
		var rec models.Personality
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func (p *Postgres) InsertScenario(ctx context.Context, rec models.Scenario) (string, error) {
	rec.ID = uuid.NewString()
	rec.CreatedAt = p.now()
	return rec.ID, p.insert(ctx, kindScenario, rec.ID, rec)
}

func (p *Postgres) GetScenario(ctx context.Context, id string) (*models.Scenario, error) {
	var out models.Scenario
	if err := p.get(ctx, kindScenario, id, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (p *Postgres) UpdateScenario(ctx context.Context, rec models.Scenario) error {
	return p.mutate(ctx, kindScenario, rec.ID, func(raw []byte) (any, error) {
		var existing models.Scenario
		if err := json.Unmarshal(raw, &existing); err != nil {
			return nil, err
		}
		rec.CreatedAt = existing.CreatedAt
		return rec, nil
	})
}

func (p *Postgres) ListScenarios(ctx context.Context) ([]models.Scenario, error) {
	docs, err := p.list(ctx, kindScenario)
	if err != nil {
		return nil, err
	}
	out := make([]models.Scenario, 0, len(docs))
	for _, raw := range docs {
		var rec models.Scenario
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func (p *Postgres) CreateEvaluation(ctx context.Context, promptID, scenarioID string) (string, error) {
	id := uuid.NewString()
	doc := models.Evaluation{
		ID:         id,
		PromptID:   promptID,
		ScenarioID: scenarioID,
		Status:     models.StatusPending,
		CreatedAt:  p.now(),
	}
	return id, p.insert(ctx, kindEvaluation, id, doc)
}

func (p *Postgres) GetEvaluation(ctx context.Context, id string) (*models.Evaluation, error) {
	var out models.Evaluation
	if err := p.get(ctx, kindEvaluation, id, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (p *Postgres) UpdateEvaluationStatus(ctx context.Context, id string, status models.Status, errorMessage string) error {
	return p.mutate(ctx, kindEvaluation, id, func(raw []byte) (any, error) {
		var e models.Evaluation
		if err := json.Unmarshal(raw, &e); err != nil {
			return nil, err
		}
		e.Status = status
		e.ErrorMessage = errorMessage
		if status.Terminal() {
			now := p.now()
			e.CompletedAt = &now
		}
		return e, nil
	})
}

func (p *Postgres) CompleteEvaluation(ctx context.Context, id string, transcript models.Transcript, scores models.EvaluationScores, analysis string) error {
	return p.mutate(ctx, kindEvaluation, id, func(raw []byte) (any, error) {
		var e models.Evaluation
		if err := json.Unmarshal(raw, &e); err != nil {
			return nil, err
		}
		now := p.now()
		e.Status = models.StatusCompleted
		e.Transcript = transcript
		e.Scores = &scores
		e.EvaluatorAnalysis = analysis
		e.CompletedAt = &now
		return e, nil
	})
}

func (p *Postgres) CreateTuningLoop(ctx context.Context, initialPromptID string, cfg models.TuningConfig) (string, error) {
	id := uuid.NewString()
	doc := models.TuningLoop{
		ID:              id,
		InitialPromptID: initialPromptID,
		Status:          models.StatusPending,
		Config:          cfg,
		CreatedAt:       p.now(),
	}
	return id, p.insert(ctx, kindTuningLoop, id, doc)
}

func (p *Postgres) GetTuningLoop(ctx context.Context, id string) (*models.TuningLoop, error) {
	var out models.TuningLoop
	if err := p.get(ctx, kindTuningLoop, id, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (p *Postgres) UpdateTuningLoopStatus(ctx context.Context, id string, status models.Status, errorMessage string) error {
	return p.mutate(ctx, kindTuningLoop, id, func(raw []byte) (any, error) {
		var l models.TuningLoop
		if err := json.Unmarshal(raw, &l); err != nil {
			return nil, err
		}
		l.Status = status
		l.ErrorMessage = errorMessage
		if status.Terminal() {
			now := p.now()
			l.CompletedAt = &now
		}
		return l, nil
	})
}

func (p *Postgres) AppendTuningIteration(ctx context.Context, id string, iteration models.TuningIteration) error {
	return p.mutate(ctx, kindTuningLoop, id, func(raw []byte) (any, error) {
		var l models.TuningLoop
		if err := json.Unmarshal(raw, &l); err != nil {
			return nil, err
		}
		l.Iterations = append(l.Iterations, iteration)
		return l, nil
	})
}

func (p *Postgres) SetTuningLoopFinalPrompt(ctx context.Context, id, promptID string) error {
	return p.mutate(ctx, kindTuningLoop, id, func(raw []byte) (any, error) {
		var l models.TuningLoop
		if err := json.Unmarshal(raw, &l); err != nil {
			return nil, err
		}
		l.FinalPromptID = promptID
		return l, nil
	})
}

func (p *Postgres) InsertCall(ctx context.Context, call models.CallRecord) (string, error) {
	call.CallID = uuid.NewString()
	call.CreatedAt = p.now()
	if call.Status == "" {
		call.Status = "initiated"
	}
	return call.CallID, p.insert(ctx, kindCall, call.CallID, call)
}

func (p *Postgres) GetCall(ctx context.Context, id string) (*models.CallRecord, error) {
	var out models.CallRecord
	if err := p.get(ctx, kindCall, id, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (p *Postgres) ListCalls(ctx context.Context) ([]models.CallRecord, error) {
	docs, err := p.list(ctx, kindCall)
	if err != nil {
		return nil, err
	}
	out := make([]models.CallRecord, 0, len(docs))
	for _, raw := range docs {
		var rec models.CallRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// callIDByRoom resolves a call document id from its room name. The
// empty id with a nil error means no call matched.
func (p *Postgres) callIDByRoom(ctx context.Context, roomName string) (string, error) {
	query, args, err := p.sb.Select("id").
		From("documents").
		Where(sq.Eq{"kind": kindCall}).
		Where(sq.Expr("doc->>'room_name' = ?", roomName)).
		ToSql()
	if err != nil {
		return "", err
	}
	var id string
	if err := p.db.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", err
	}
	return id, nil
}

func (p *Postgres) CompleteCallByRoom(ctx context.Context, roomName, transcriptFile string) (bool, error) {
	id, err := p.callIDByRoom(ctx, roomName)
	if err != nil || id == "" {
		return false, err
	}

	err = p.mutate(ctx, kindCall, id, func(raw []byte) (any, error) {
		var c models.CallRecord
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, err
		}
		now := p.now()
		c.Status = "completed"
		c.TranscriptFile = transcriptFile
		c.CompletedAt = &now
		return c, nil
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

func (p *Postgres) SetCallRiskScores(ctx context.Context, roomName string, scores models.RiskScores) (bool, error) {
	id, err := p.callIDByRoom(ctx, roomName)
	if err != nil || id == "" {
		return false, err
	}

	err = p.mutate(ctx, kindCall, id, func(raw []byte) (any, error) {
		var c models.CallRecord
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, err
		}
		c.RiskScores = &scores
		return c, nil
	})
	if err != nil {
		return false, err
	}
	return true, nil
}
