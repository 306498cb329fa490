// Package stageexec runs named pipeline stages with uniform start, completion,
// and failure logging.
package stageexec

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"panscan/internal/logging"
	"panscan/internal/services"
)

// Func is the body of a stage. It receives a context carrying the stage name
// and a logger already scoped to it.
type Func func(ctx context.Context, logger *slog.Logger) error

// Run executes fn as the stage called name.
func Run(ctx context.Context, logger *slog.Logger, name string, fn Func) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("stage name is required")
	}
	if fn == nil {
		return fmt.Errorf("stage handler unavailable: %s", name)
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	stageCtx := services.WithStage(ctx, name)
	stageLogger := logging.WithContext(stageCtx, logger)
	start := time.Now()
	stageLogger.Info("stage started", logging.String(logging.FieldEventType, "stage_start"))

	if err := fn(stageCtx, stageLogger); err != nil {
		elapsed := time.Since(start)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			stageLogger.Info("stage cancelled",
				logging.String(logging.FieldEventType, "stage_cancelled"),
				logging.Duration("duration", elapsed),
			)
			return err
		}
		logging.ErrorWithContext(stageLogger, "stage failed", "stage_failure",
			logging.String("failure_kind", services.FailureKind(err)),
			logging.Duration("duration", elapsed),
			logging.Error(err),
		)
		return err
	}

	stageLogger.Info("stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.Duration("duration", time.Since(start)),
	)
	return nil
}
