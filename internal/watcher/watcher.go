// Package watcher tails the transcripts directory, marks outbound
// calls completed when their transcript file lands and hands the
// transcript to the risk analyzer.
package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"promptune/internal/models"
	"promptune/internal/store"
)

// transcriptPattern matches filenames like
// transcript_outbound-0123456789_20250101_153000.json and captures the
// room name.
var transcriptPattern = regexp.MustCompile(`^transcript_(.+?)_\d{8}_\d{6}\.json$`)

// RiskAnalyzer scores a completed call transcript.
type RiskAnalyzer interface {
	Analyze(ctx context.Context, transcript models.Transcript) (*models.RiskScores, error)
}

// Watcher reacts to transcript files appearing in a directory. A nil
// analyzer disables post-call scoring.
type Watcher struct {
	dir      string
	store    store.Store
	analyzer RiskAnalyzer
	logger   *zap.Logger
}

// New builds a Watcher over dir.
func New(dir string, st store.Store, analyzer RiskAnalyzer, logger *zap.Logger) *Watcher {
	return &Watcher{dir: dir, store: st, analyzer: analyzer, logger: logger}
}

// RoomFromFilename extracts the room name from a transcript filename,
// or "" when the name does not match the transcript pattern.
func RoomFromFilename(name string) string {
	m := transcriptPattern.FindStringSubmatch(name)
	if m == nil {
		return ""
	}
	return m[1]
}

// handleCreate resolves a newly created file against the call records.
// Unmatched files are ignored; a matching file with no corresponding
// call is logged and skipped.
func (w *Watcher) handleCreate(ctx context.Context, path string) {
	name := filepath.Base(path)
	room := RoomFromFilename(name)
	if room == "" {
		return
	}
	matched, err := w.store.CompleteCallByRoom(ctx, room, name)
	if err != nil {
		w.logger.Error("failed to complete call", zap.String("room_name", room), zap.Error(err))
		return
	}
	if !matched {
		w.logger.Warn("transcript for unknown room", zap.String("room_name", room), zap.String("file", name))
		return
	}
	w.logger.Info("call completed", zap.String("room_name", room), zap.String("file", name))

	w.scoreTranscript(ctx, room, path)
}

// scoreTranscript runs the risk analysis for a completed call. The call
// record stays completed whatever happens here; every failure is logged
// and swallowed.
func (w *Watcher) scoreTranscript(ctx context.Context, room, path string) {
	if w.analyzer == nil {
		return
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		w.logger.Error("failed to read transcript", zap.String("room_name", room), zap.Error(err))
		return
	}
	transcript, err := models.ParseSessionTranscript(raw)
	if err != nil {
		w.logger.Error("failed to parse transcript", zap.String("room_name", room), zap.Error(err))
		return
	}

	scores, err := w.analyzer.Analyze(ctx, transcript)
	if err != nil {
		w.logger.Error("transcript analysis failed", zap.String("room_name", room), zap.Error(err))
		return
	}

	matched, err := w.store.SetCallRiskScores(ctx, room, *scores)
	if err != nil {
		w.logger.Error("failed to store risk scores", zap.String("room_name", room), zap.Error(err))
		return
	}
	if !matched {
		w.logger.Warn("call disappeared before scoring", zap.String("room_name", room))
		return
	}
	w.logger.Info("call scored", zap.String("room_name", room))
}

// Run watches the directory until ctx is cancelled. The directory must
// exist before Run is called.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer fsw.Close()

	if err := fsw.Add(w.dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.dir, err)
	}
	w.logger.Info("watching transcripts", zap.String("dir", w.dir))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Create) {
				w.handleCreate(ctx, event.Name)
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watch error", zap.Error(err))
		}
	}
}
