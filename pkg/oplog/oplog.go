// Package oplog persists operations that exceeded their latency budget and
// prunes them on a retention schedule.
package oplog

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/homely-rentals/homely/pkg/models"
)

// Config controls retention of slow-operation records.
type Config struct {
	// Retention is the maximum age of a record before Cleanup removes it.
	Retention time.Duration
	// Interval is how often the background loop runs Cleanup. Zero disables the loop.
	Interval time.Duration
}

// Logger writes and queries slow-operation records in the performance_logs table.
type Logger struct {
	db     *sql.DB
	cfg    Config
	log    logrus.FieldLogger
	now    func() time.Time
	done   chan struct{}
	wg     sync.WaitGroup
	closed sync.Once
}

// Option configures a Logger.
type Option func(*Logger)

// WithClock replaces the time source used for timestamps and retention.
func WithClock(now func() time.Time) Option {
	return func(l *Logger) { l.now = now }
}

// WithLogger sets the logger used by the retention loop.
func WithLogger(log logrus.FieldLogger) Option {
	return func(l *Logger) {
		if log != nil {
			l.log = log
		}
	}
}

// New creates the schema on db and starts the retention loop if configured.
// The caller keeps ownership of db.
func New(db *sql.DB, cfg Config, opts ...Option) (*Logger, error) {
	if err := migrate(db); err != nil {
		return nil, fmt.Errorf("migrate oplog: %w", err)
	}

	discard := logrus.New()
	discard.SetOutput(io.Discard)
	l := &Logger{
		db:   db,
		cfg:  cfg,
		log:  discard,
		now:  time.Now,
		done: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}

	if cfg.Interval > 0 && cfg.Retention > 0 {
		l.wg.Add(1)
		go l.retentionLoop()
	}
	return l, nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS performance_logs (
		id          TEXT PRIMARY KEY,
		operation   TEXT NOT NULL,
		duration_ms INTEGER NOT NULL,
		details     TEXT NOT NULL DEFAULT '',
		created_at  DATETIME NOT NULL
	)`)
	if err != nil {
		return err
	}
	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_performance_logs_created ON performance_logs(created_at)`)
	return err
}

// Record stores one slow operation.
func (l *Logger) Record(ctx context.Context, operation string, d time.Duration, details string) error {
	if l == nil || l.db == nil {
		return nil
	}
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO performance_logs (id, operation, duration_ms, details, created_at) VALUES (?, ?, ?, ?, ?)`,
		uuid.NewString(), operation, d.Milliseconds(), details, l.now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("record slow operation: %w", err)
	}
	return nil
}

// CountSince returns the number of records created at or after since.
func (l *Logger) CountSince(ctx context.Context, since time.Time) (int64, error) {
	var n int64
	err := l.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM performance_logs WHERE created_at >= ?`, since.UTC(),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count slow operations: %w", err)
	}
	return n, nil
}

// Recent returns the newest records, newest first.
func (l *Logger) Recent(ctx context.Context, limit int) ([]models.SlowOperation, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, operation, duration_ms, details, created_at FROM performance_logs
		 ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent slow operations: %w", err)
	}
	defer rows.Close()

	var out []models.SlowOperation
	for rows.Next() {
		var op models.SlowOperation
		if err := rows.Scan(&op.ID, &op.Operation, &op.DurationMs, &op.Details, &op.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan slow operation: %w", err)
		}
		out = append(out, op)
	}
	return out, rows.Err()
}

// Cleanup deletes records older than the configured retention and returns
// the number removed.
func (l *Logger) Cleanup(ctx context.Context) (int64, error) {
	if l.cfg.Retention <= 0 {
		return 0, nil
	}
	cutoff := l.now().Add(-l.cfg.Retention).UTC()
	res, err := l.db.ExecContext(ctx, `DELETE FROM performance_logs WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("oplog cleanup: %w", err)
	}
	return res.RowsAffected()
}

// Close stops the retention loop. It does not close the shared database.
func (l *Logger) Close() error {
	l.closed.Do(func() { close(l.done) })
	l.wg.Wait()
	return nil
}

func (l *Logger) retentionLoop() {
	defer l.wg.Done()
	ticker := time.NewTicker(l.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-l.done:
			return
		case <-ticker.C:
			n, err := l.Cleanup(context.Background())
			if err != nil {
				l.log.WithError(err).Warn("slow operation retention failed")
				continue
			}
			if n > 0 {
				l.log.WithField("removed", n).Debug("pruned slow operation records")
			}
		}
	}
}
