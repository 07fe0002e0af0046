// Package server assembles the service: storage, capability clients,
// the evaluation and tuning pipelines, the transcript watcher and the
// HTTP API.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"promptune/internal/analyze"
	"promptune/internal/api"
	"promptune/internal/api/handlers"
	"promptune/internal/config"
	"promptune/internal/dialer"
	"promptune/internal/evaluate"
	"promptune/internal/llm"
	"promptune/internal/simulate"
	"promptune/internal/store"
	"promptune/internal/tuning"
	"promptune/internal/watcher"
)

// Server owns the process lifecycle: one HTTP listener plus the
// transcript watcher goroutine.
type Server struct {
	cfg     *config.Config
	logger  *zap.Logger
	http    *http.Server
	watcher *watcher.Watcher
	closer  func() error

	watcherCancel context.CancelFunc
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}
	zcfg := zap.NewProductionConfig()
	if cfg.Environment == "development" {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	return zcfg.Build()
}

// New wires every collaborator from configuration. A single rate
// limiter paces all provider traffic in the process.
func New(ctx context.Context, cfg *config.Config) (*Server, error) {
	logger, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}

	var st store.Store
	closer := func() error { return nil }
	if cfg.PostgresURL != "" {
		pg, err := store.OpenPostgres(ctx, cfg.PostgresURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open postgres: %w", err)
		}
		st = pg
		closer = pg.Close
		logger.Info("using postgres store")
	} else {
		st = store.NewMemory()
		logger.Info("using in-memory store")
	}

	limiter := llm.FixedDelay(cfg.RateLimitDelay)
	agentClient := llm.NewGeminiClient(cfg.GeminiAPIKey, cfg.AgentModel,
		llm.WithLimiter(limiter), llm.WithLogger(logger))
	judgeClient := llm.NewGeminiClient(cfg.GeminiAPIKey, cfg.JudgeModel,
		llm.WithLimiter(limiter), llm.WithLogger(logger))

	simulator := simulate.New(agentClient,
		simulate.WithTemperatures(cfg.AgentTemperature, cfg.DebtorTemperature),
		simulate.WithLogger(logger))
	evaluator := evaluate.NewEvaluator(judgeClient,
		evaluate.WithJudgeTemperature(cfg.JudgeTemperature),
		evaluate.WithEvaluatorLogger(logger))
	orchestrator := evaluate.NewOrchestrator(st, simulator, evaluator, logger)

	refiner := tuning.NewRefiner(judgeClient,
		tuning.WithMaxCycles(cfg.MaxCritiqueCycles),
		tuning.WithRefinerLogger(logger))
	contextBuilder := tuning.NewContextBuilder(cfg.ContextTokenBudget, logger)
	controller := tuning.NewController(st, orchestrator, refiner, contextBuilder, logger)

	var d handlers.CallDialer
	if cfg.TwilioAccountSID != "" && cfg.TwilioAuthToken != "" {
		d = dialer.New(cfg.TwilioAccountSID, cfg.TwilioAuthToken,
			cfg.TwilioPhoneNumber, cfg.TwilioVoiceURL, st, logger)
	}

	router := api.NewRouter(api.Deps{
		Store:          st,
		Evaluations:    orchestrator,
		Tuning:         controller,
		Dialer:         d,
		TranscriptsDir: cfg.TranscriptsDir,
		Logger:         logger,
	})

	if err := os.MkdirAll(cfg.TranscriptsDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create transcripts dir: %w", err)
	}

	analyzer := analyze.NewAnalyzer(judgeClient, analyze.WithLogger(logger))

	return &Server{
		cfg:     cfg,
		logger:  logger,
		http:    &http.Server{Addr: ":" + cfg.Port, Handler: router},
		watcher: watcher.New(cfg.TranscriptsDir, st, analyzer, logger),
		closer:  closer,
	}, nil
}

// Start runs the watcher and the HTTP listener. Blocks until the
// listener stops.
func (s *Server) Start() error {
	watchCtx, cancel := context.WithCancel(context.Background())
	s.watcherCancel = cancel
	go func() {
		if err := s.watcher.Run(watchCtx); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error("watcher stopped", zap.Error(err))
		}
	}()

	s.logger.Info("listening", zap.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the listener, the watcher and the store.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.watcherCancel != nil {
		s.watcherCancel()
	}
	err := s.http.Shutdown(ctx)
	if cerr := s.closer(); err == nil {
		err = cerr
	}
	_ = s.logger.Sync()
	return err
}
