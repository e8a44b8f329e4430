package maintenance

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homely-rentals/homely/pkg/models"
	"github.com/homely-rentals/homely/pkg/store"
)

func TestRunContinuesAfterFailure(t *testing.T) {
	var ran []string
	step := func(name string, err error) Step {
		return Step{Name: name, Run: func(context.Context) (string, error) {
			ran = append(ran, name)
			if err != nil {
				return "", err
			}
			return name + " done", nil
		}}
	}

	o := New(nil,
		step("cleanup_logs", nil),
		step("refresh_analytics_summary", errors.New("table is locked")),
		step("optimize_tables", nil),
	)
	results := o.Run(context.Background())

	require.Len(t, results, 3)
	assert.Equal(t, []string{"cleanup_logs", "refresh_analytics_summary", "optimize_tables"}, ran)
	assert.Equal(t, models.OperationSuccess, results[0].Status)
	assert.Equal(t, models.OperationResult{
		Operation: "refresh_analytics_summary",
		Result:    "table is locked",
		Status:    models.OperationError,
	}, results[1])
	assert.Equal(t, models.OperationSuccess, results[2].Status)
	assert.Equal(t, "optimize_tables done", results[2].Result)
}

func TestRunWarningAndPanic(t *testing.T) {
	o := New(nil,
		Step{Name: "soft", Run: func(context.Context) (string, error) {
			return "", Warn(fmt.Errorf("vacuum skipped"))
		}},
		Step{Name: "boom", Run: func(context.Context) (string, error) {
			panic("nil summary")
		}},
		Step{Name: "after", Run: func(context.Context) (string, error) { return "ok", nil }},
	)
	results := o.Run(context.Background())

	require.Len(t, results, 3)
	assert.Equal(t, models.OperationWarning, results[0].Status)
	assert.Equal(t, "vacuum skipped", results[0].Result)
	assert.Equal(t, models.OperationError, results[1].Status)
	assert.Contains(t, results[1].Result, "nil summary")
	assert.Equal(t, models.OperationSuccess, results[2].Status)
}

func TestWarnNil(t *testing.T) {
	assert.NoError(t, Warn(nil))
}

type fakeDB struct {
	optimizeErr error
	cutoff      time.Time
}

func (f *fakeDB) DeleteSearchLogsBefore(_ context.Context, cutoff time.Time) (int64, error) {
	f.cutoff = cutoff
	return 4, nil
}

func (f *fakeDB) RefreshAnalyticsSummary(context.Context) (int64, error) { return 2, nil }
func (f *fakeDB) Optimize(context.Context) error                        { return f.optimizeErr }

type fakePruner struct{ err error }

func (p fakePruner) Cleanup(context.Context) (int64, error) { return 7, p.err }

func TestDefaultSteps(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	db := &fakeDB{optimizeErr: fmt.Errorf("%w: disk full", store.ErrVacuumFailed)}

	results := New(nil, Default(db, fakePruner{}, Retention{SearchLogs: 24 * time.Hour}, func() time.Time { return now })...).
		Run(context.Background())

	require.Len(t, results, 3)
	assert.Equal(t, "cleanup_logs", results[0].Operation)
	assert.Equal(t, "removed 7 performance logs and 4 search logs", results[0].Result)
	assert.Equal(t, now.Add(-24*time.Hour), db.cutoff)
	assert.Equal(t, "refreshed summary for 2 cities", results[1].Result)
	assert.Equal(t, "optimize_tables", results[2].Operation)
	assert.Equal(t, models.OperationWarning, results[2].Status)
}

func TestDefaultStepsPrunerFailure(t *testing.T) {
	db := &fakeDB{}
	results := New(nil, Default(db, fakePruner{err: errors.New("no such table")}, Retention{}, nil)...).
		Run(context.Background())

	require.Len(t, results, 3)
	assert.Equal(t, models.OperationError, results[0].Status)
	assert.Equal(t, models.OperationSuccess, results[1].Status)
	assert.Equal(t, models.OperationSuccess, results[2].Status)
}

func TestDefaultStepsAgainstSQLite(t *testing.T) {
	s, err := store.Open(filepath.Join(t.TempDir(), "maintenance_test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	results := New(nil, Default(s, nil, Retention{SearchLogs: time.Hour}, nil)...).Run(context.Background())
	require.Len(t, results, 3)
	for _, r := range results {
		assert.Equal(t, models.OperationSuccess, r.Status, "%s: %s", r.Operation, r.Result)
	}
}
