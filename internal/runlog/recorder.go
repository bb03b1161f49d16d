package runlog

import (
	"context"
	"log/slog"

	"photomesh/internal/logging"
)

// Recorder adapts a Store to the stage observer shape used by the
// reconstruction runner. Ledger write failures are logged and swallowed so a
// broken ledger never aborts a reconstruction in flight.
type Recorder struct {
	store  *Store
	runID  string
	logger *slog.Logger
}

// Recorder binds stage notifications for one run.
func (s *Store) Recorder(runID string, logger *slog.Logger) *Recorder {
	return &Recorder{
		store:  s,
		runID:  runID,
		logger: logging.NewComponentLogger(logger, "runlog"),
	}
}

func (r *Recorder) StageStarted(name string) {
	if err := r.store.StageStarted(context.Background(), r.runID, name); err != nil {
		r.logger.Warn("ledger stage start write failed",
			logging.String(logging.FieldStage, name),
			logging.Error(err),
		)
	}
}

func (r *Recorder) StageFinished(name string, stageErr error) {
	if err := r.store.StageFinished(context.Background(), r.runID, name, stageErr); err != nil {
		r.logger.Warn("ledger stage finish write failed",
			logging.String(logging.FieldStage, name),
			logging.Error(err),
		)
	}
}
