package store

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrVacuumFailed marks an Optimize call whose statistics refresh succeeded
// but whose VACUUM did not.
var ErrVacuumFailed = errors.New("vacuum failed")

// CitySummary is one row of the analytics summary table.
type CitySummary struct {
	City         string    `json:"city"`
	ListingCount int64     `json:"listing_count"`
	AvgRent      float64   `json:"avg_rent"`
	MinRent      float64   `json:"min_rent"`
	MaxRent      float64   `json:"max_rent"`
	TotalViews   int64     `json:"total_views"`
	RefreshedAt  time.Time `json:"refreshed_at"`
}

// DeleteSearchLogsBefore removes search log rows older than cutoff.
func (s *Store) DeleteSearchLogsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM search_logs WHERE created_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("delete search logs: %w", err)
	}
	return res.RowsAffected()
}

// RefreshAnalyticsSummary rebuilds the per-city summary in one transaction
// and returns the number of cities written.
func (s *Store) RefreshAnalyticsSummary(ctx context.Context) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin refresh: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM analytics_summary`); err != nil {
		return 0, fmt.Errorf("clear summary: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO analytics_summary (city, listing_count, avg_rent, min_rent, max_rent, total_views, refreshed_at)
		 SELECT l.city, COUNT(*), AVG(l.rent), MIN(l.rent), MAX(l.rent), COALESCE(SUM(a.views), 0), ?
		 FROM listings l LEFT JOIN listing_analytics a ON a.listing_id = l.id
		 WHERE l.available = 1 AND l.city != ''
		 GROUP BY l.city`,
		s.now().UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("fill summary: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit refresh: %w", err)
	}
	return res.RowsAffected()
}

// AnalyticsSummary returns the last materialized summary.
func (s *Store) AnalyticsSummary(ctx context.Context) ([]CitySummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT city, listing_count, avg_rent, min_rent, max_rent, total_views, refreshed_at
		 FROM analytics_summary ORDER BY listing_count DESC, city`)
	if err != nil {
		return nil, fmt.Errorf("analytics summary: %w", err)
	}
	defer rows.Close()

	var out []CitySummary
	for rows.Next() {
		var c CitySummary
		if err := rows.Scan(&c.City, &c.ListingCount, &c.AvgRent, &c.MinRent, &c.MaxRent, &c.TotalViews, &c.RefreshedAt); err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Optimize refreshes query planner statistics and then compacts the file.
// If only VACUUM fails the returned error wraps ErrVacuumFailed.
func (s *Store) Optimize(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `PRAGMA optimize`); err != nil {
		return fmt.Errorf("pragma optimize: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `ANALYZE`); err != nil {
		return fmt.Errorf("analyze: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `VACUUM`); err != nil {
		return fmt.Errorf("%w: %v", ErrVacuumFailed, err)
	}
	return nil
}
