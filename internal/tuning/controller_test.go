package tuning

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"promptune/internal/evaluate"
	"promptune/internal/llm"
	"promptune/internal/llm/llmtest"
	"promptune/internal/models"
	"promptune/internal/simulate"
	"promptune/internal/store"
)

// judgeScript returns judge verdicts in sequence, one per evaluation,
// repeating the last entry once the script runs out.
func judgeScript(scores ...[2]int) func(prompt string) ([]byte, error) {
	i := 0
	return func(prompt string) ([]byte, error) {
		pair := scores[min(i, len(scores)-1)]
		i++
		return []byte(fmt.Sprintf(
			`{"scores":{"task_completion":%d,"conversation_efficiency":%d},"evaluator_analysis":"analysis"}`,
			pair[0], pair[1])), nil
	}
}

type fixture struct {
	store      *store.Memory
	controller *Controller
	loopID     string
	promptID   string
}

// newFixture assembles a controller over the in-memory store with one
// personality and the given scenarios, all weighted per cfg.
func newFixture(t *testing.T, cfg models.TuningConfig, judge func(prompt string) ([]byte, error)) *fixture {
	t.Helper()
	ctx := context.Background()
	st := store.NewMemory()

	promptID, err := st.InsertPrompt(ctx, "Baseline", "You are a collection agent.", "v1")
	require.NoError(t, err)
	personalityID, err := st.InsertPersonality(ctx, models.Personality{
		Name:         "Rahul",
		SystemPrompt: "You are Rahul, a reluctant debtor.",
	})
	require.NoError(t, err)

	for i := range cfg.ScenarioWeights {
		scenarioID, err := st.InsertScenario(ctx, models.Scenario{
			PersonalityID: personalityID,
			Title:         fmt.Sprintf("Scenario %d", i+1),
			Objective:     "Avoid paying.",
			Weight:        cfg.ScenarioWeights[i].Weight,
		})
		require.NoError(t, err)
		cfg.ScenarioWeights[i].ScenarioID = scenarioID
	}

	loopID, err := st.CreateTuningLoop(ctx, promptID, cfg)
	require.NoError(t, err)

	convClient := &llmtest.Fake{
		ConverseFunc: func(_ context.Context, _ string, _ []llm.Turn, _ float64) (string, error) {
			return "Alright, goodbye.", nil
		},
	}
	structClient := &llmtest.Fake{
		GenerateStructuredFunc: func(_ context.Context, prompt string, _ any, _ string, _ float64) ([]byte, error) {
			switch {
			case isWriterPrompt(prompt):
				return json.Marshal(writerOutput{SystemPrompt: "Refined prompt."})
			case isCritiquePrompt(prompt):
				return json.Marshal(critiqueOutput{Feedback: "ok", Pass: true})
			default:
				return judge(prompt)
			}
		},
	}

	simulator := simulate.New(convClient)
	evaluator := evaluate.NewEvaluator(structClient)
	orchestrator := evaluate.NewOrchestrator(st, simulator, evaluator, nil)
	refiner := NewRefiner(structClient)
	controller := NewController(st, orchestrator, refiner, nil, nil)

	return &fixture{store: st, controller: controller, loopID: loopID, promptID: promptID}
}

func TestRunCompletesWhenTargetReachedFirstIteration(t *testing.T) {
	cfg := models.TuningConfig{
		TargetScore:   80,
		MaxIterations: 3,
		ScenarioWeights: []models.ScenarioWeight{
			{Weight: 4},
			{Weight: 2},
		},
	}
	fx := newFixture(t, cfg, judgeScript([2]int{90, 90}))

	require.NoError(t, fx.controller.Run(context.Background(), fx.loopID))

	loop, err := fx.store.GetTuningLoop(context.Background(), fx.loopID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, loop.Status)
	assert.Equal(t, fx.promptID, loop.FinalPromptID)
	require.Len(t, loop.Iterations, 1)
	assert.InDelta(t, 90.0, loop.Iterations[0].WeightedScore, 1e-9)
	require.NotNil(t, loop.CompletedAt)

	// Target hit in round one means no refined prompt was created.
	prompts, err := fx.store.ListPrompts(context.Background())
	require.NoError(t, err)
	assert.Len(t, prompts, 1)
}

func TestRunExhaustsBudgetAndKeepsBestPrompt(t *testing.T) {
	cfg := models.TuningConfig{
		TargetScore:     95,
		MaxIterations:   2,
		ScenarioWeights: []models.ScenarioWeight{{Weight: 1}},
	}
	// Iteration one scores 75, iteration two ties it; strict improvement
	// tracking keeps the earlier candidate.
	fx := newFixture(t, cfg, judgeScript([2]int{80, 70}))

	require.NoError(t, fx.controller.Run(context.Background(), fx.loopID))

	loop, err := fx.store.GetTuningLoop(context.Background(), fx.loopID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, loop.Status)
	require.Len(t, loop.Iterations, 2)
	assert.Equal(t, fx.promptID, loop.FinalPromptID)

	// The refined candidate exists as its own record with the generated
	// naming scheme.
	prompts, err := fx.store.ListPrompts(context.Background())
	require.NoError(t, err)
	require.Len(t, prompts, 2)
	var tuned *models.Prompt
	for i := range prompts {
		if prompts[i].ID != fx.promptID {
			tuned = &prompts[i]
		}
	}
	require.NotNil(t, tuned)
	assert.True(t, strings.HasPrefix(tuned.Name, "Tuned-AI-Iter1-"), tuned.Name)
	assert.Equal(t, "Auto-generated from tuning loop iteration 1", tuned.Version)
	assert.Equal(t, "Refined prompt.", tuned.PromptText)
	assert.Equal(t, tuned.ID, loop.Iterations[1].PromptID)
}

func TestRunPicksImprovedCandidate(t *testing.T) {
	cfg := models.TuningConfig{
		TargetScore:     95,
		MaxIterations:   2,
		ScenarioWeights: []models.ScenarioWeight{{Weight: 1}},
	}
	// The refined prompt scores higher, so it wins the final slot.
	fx := newFixture(t, cfg, judgeScript([2]int{60, 60}, [2]int{80, 80}))

	require.NoError(t, fx.controller.Run(context.Background(), fx.loopID))

	loop, err := fx.store.GetTuningLoop(context.Background(), fx.loopID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, loop.Status)
	require.Len(t, loop.Iterations, 2)
	assert.NotEqual(t, fx.promptID, loop.FinalPromptID)
	assert.Equal(t, loop.Iterations[1].PromptID, loop.FinalPromptID)
}

func TestRunMarksLoopFailedOnEvaluationError(t *testing.T) {
	cfg := models.TuningConfig{
		TargetScore:     80,
		MaxIterations:   2,
		ScenarioWeights: []models.ScenarioWeight{{Weight: 1}},
	}
	fx := newFixture(t, cfg, func(string) ([]byte, error) {
		return nil, fmt.Errorf("judge unavailable")
	})

	err := fx.controller.Run(context.Background(), fx.loopID)
	require.Error(t, err)

	loop, getErr := fx.store.GetTuningLoop(context.Background(), fx.loopID)
	require.NoError(t, getErr)
	assert.Equal(t, models.StatusFailed, loop.Status)
	assert.True(t, strings.HasPrefix(loop.ErrorMessage, "Error in tuning loop: "), loop.ErrorMessage)
	require.NotNil(t, loop.CompletedAt)
}

func TestRunUnknownLoop(t *testing.T) {
	fx := newFixture(t, models.TuningConfig{
		TargetScore:     80,
		MaxIterations:   1,
		ScenarioWeights: []models.ScenarioWeight{{Weight: 1}},
	}, judgeScript([2]int{90, 90}))

	err := fx.controller.Run(context.Background(), "no-such-loop")
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrNotFound)
}
