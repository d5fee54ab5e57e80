package saga

import (
	"context"
	"fmt"

	"github.com/goliatone/go-errors"
)

// rollbackRun compensates every scope the run retained, newest first, so
// later work unwinds before the work it built on. An action with an empty
// Rollback ref declared itself non-compensable and is skipped. Each scope
// compensates at most once; a compensation that fails does not stop the
// sweep, its error joins the others and the caller attaches the result to
// the abort error.
func rollbackRun(ctx context.Context, run *Run, logger Logger) error {
	var errs error
	for _, retained := range run.scopesNewestFirst() {
		task := retained.task
		if task.Rollback == "" {
			logger.Debug("skip compensation for %s: no rollback ref", task.FullName())
			continue
		}

		comp, err := retained.scope.Compensator(task.Rollback)
		if err != nil {
			errs = errors.Join(errs, err)
			continue
		}

		logger.Debug("compensating %s", task.FullName())
		if err := comp.Compensate(ctx); err != nil {
			errs = errors.Join(errs, errors.Wrap(err, errors.CategoryHandler, fmt.Sprintf("compensation failed for %s", task.FullName())).
				WithTextCode(ErrCodeCompensationFailed).
				WithMetadata(map[string]any{
					"task":       task.FullName(),
					"service_id": task.ServiceID,
					"rollback":   task.Rollback,
				}))
		}
	}
	return errs
}
