package stageexec

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"strainmanifest/internal/failure"
	"strainmanifest/internal/logging"
)

// Func is the body of a pipeline stage. logger carries the stage and run
// attributes.
type Func func(ctx context.Context, logger *slog.Logger) error

// Options controls stage execution.
type Options struct {
	Logger    *slog.Logger
	StageName string
	Run       Func
}

// Run executes a stage with start, completion and failure logging.
func Run(ctx context.Context, opts Options) error {
	if opts.Run == nil {
		return fmt.Errorf("stage handler unavailable: %s", opts.StageName)
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}

	// logger already carries the run ID; only the stage is added here.
	stageCtx := logging.WithStage(ctx, opts.StageName)
	stageLogger := logger.With(logging.String(logging.FieldStage, opts.StageName))

	stageLogger.Info(
		"stage started",
		logging.String(logging.FieldEventType, "stage_start"),
	)
	started := time.Now()

	if err := opts.Run(stageCtx, stageLogger); err != nil {
		stageLogger.Error(
			"stage failed",
			logging.String(logging.FieldEventType, "stage_failure"),
			logging.String("error_kind", failure.Kind(err)),
			logging.String("error_message", strings.TrimSpace(err.Error())),
			logging.Duration("elapsed", time.Since(started)),
		)
		return err
	}

	stageLogger.Info(
		"stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.Duration("elapsed", time.Since(started)),
	)
	return nil
}
