// Package maintenance runs independent database housekeeping steps and
// reports a tagged result for each one.
package maintenance

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/homely-rentals/homely/pkg/models"
	"github.com/homely-rentals/homely/pkg/store"
)

// Step is one named maintenance operation. Run returns a short description
// of what was done.
type Step struct {
	Name string
	Run  func(ctx context.Context) (string, error)
}

type warning struct{ err error }

func (w *warning) Error() string { return w.err.Error() }
func (w *warning) Unwrap() error { return w.err }

// Warn marks err as non-critical; the step is reported with status warning.
func Warn(err error) error {
	if err == nil {
		return nil
	}
	return &warning{err: err}
}

// Optimizer runs steps in order. A failing step never stops the steps after it.
type Optimizer struct {
	steps []Step
	log   logrus.FieldLogger
}

// New creates an Optimizer over steps.
func New(log logrus.FieldLogger, steps ...Step) *Optimizer {
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	return &Optimizer{steps: steps, log: log}
}

// Run executes every step and returns one result per step, in order.
func (o *Optimizer) Run(ctx context.Context) []models.OperationResult {
	results := make([]models.OperationResult, 0, len(o.steps))
	for _, step := range o.steps {
		res := o.runStep(ctx, step)
		if res.Status != models.OperationSuccess {
			o.log.WithFields(logrus.Fields{
				"operation": res.Operation,
				"status":    res.Status,
			}).Warn(res.Result)
		}
		results = append(results, res)
	}
	return results
}

func (o *Optimizer) runStep(ctx context.Context, step Step) (res models.OperationResult) {
	res.Operation = step.Name
	defer func() {
		if r := recover(); r != nil {
			res.Result = fmt.Sprintf("panic: %v", r)
			res.Status = models.OperationError
		}
	}()

	msg, err := step.Run(ctx)
	var w *warning
	switch {
	case err == nil:
		res.Result = msg
		res.Status = models.OperationSuccess
	case errors.As(err, &w):
		res.Result = err.Error()
		res.Status = models.OperationWarning
	default:
		res.Result = err.Error()
		res.Status = models.OperationError
	}
	return res
}

// Database is the backing store surface used by the default steps.
type Database interface {
	DeleteSearchLogsBefore(ctx context.Context, cutoff time.Time) (int64, error)
	RefreshAnalyticsSummary(ctx context.Context) (int64, error)
	Optimize(ctx context.Context) error
}

// LogPruner removes expired slow-operation records.
type LogPruner interface {
	Cleanup(ctx context.Context) (int64, error)
}

// Retention controls how much history cleanup_logs keeps.
type Retention struct {
	SearchLogs time.Duration
}

// Default builds the standard steps: cleanup_logs, refresh_analytics_summary
// and optimize_tables.
func Default(db Database, logs LogPruner, retention Retention, now func() time.Time) []Step {
	if now == nil {
		now = time.Now
	}
	return []Step{
		{
			Name: "cleanup_logs",
			Run: func(ctx context.Context) (string, error) {
				var slow int64
				if logs != nil {
					n, err := logs.Cleanup(ctx)
					if err != nil {
						return "", err
					}
					slow = n
				}
				var searches int64
				if retention.SearchLogs > 0 {
					n, err := db.DeleteSearchLogsBefore(ctx, now().Add(-retention.SearchLogs))
					if err != nil {
						return "", err
					}
					searches = n
				}
				return fmt.Sprintf("removed %d performance logs and %d search logs", slow, searches), nil
			},
		},
		{
			Name: "refresh_analytics_summary",
			Run: func(ctx context.Context) (string, error) {
				n, err := db.RefreshAnalyticsSummary(ctx)
				if err != nil {
					return "", err
				}
				return fmt.Sprintf("refreshed summary for %d cities", n), nil
			},
		},
		{
			Name: "optimize_tables",
			Run: func(ctx context.Context) (string, error) {
				if err := db.Optimize(ctx); err != nil {
					if errors.Is(err, store.ErrVacuumFailed) {
						return "", Warn(err)
					}
					return "", err
				}
				return "statistics refreshed and database compacted", nil
			},
		},
	}
}
