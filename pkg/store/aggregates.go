package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/homely-rentals/homely/pkg/models"
)

// Cities returns available listing counts per city, most populated first.
func (s *Store) Cities(ctx context.Context) ([]models.CityCount, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT city, COUNT(*) FROM listings WHERE available = 1 AND city != ''
		 GROUP BY city ORDER BY COUNT(*) DESC, city`)
	if err != nil {
		return nil, fmt.Errorf("cities: %w", err)
	}
	defer rows.Close()

	var out []models.CityCount
	for rows.Next() {
		var c models.CityCount
		if err := rows.Scan(&c.City, &c.Count); err != nil {
			return nil, fmt.Errorf("scan city: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// PriceStats returns rent statistics per city.
func (s *Store) PriceStats(ctx context.Context) ([]models.PriceStats, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT city, MIN(rent), MAX(rent), AVG(rent), COUNT(*) FROM listings
		 WHERE available = 1 AND city != '' GROUP BY city ORDER BY city`)
	if err != nil {
		return nil, fmt.Errorf("price stats: %w", err)
	}
	defer rows.Close()

	var out []models.PriceStats
	for rows.Next() {
		var p models.PriceStats
		if err := rows.Scan(&p.City, &p.Min, &p.Max, &p.Avg, &p.Count); err != nil {
			return nil, fmt.Errorf("scan price stats: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// RecordSearch appends a free-text query to the search log.
func (s *Store) RecordSearch(ctx context.Context, query string, at time.Time) error {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO search_logs (query, created_at) VALUES (?, ?)`,
		query, s.timeOrNow(at),
	)
	if err != nil {
		return fmt.Errorf("record search: %w", err)
	}
	return nil
}

// TrendingSearches returns the n most frequent queries logged since the given time.
// Queries are compared case-insensitively.
func (s *Store) TrendingSearches(ctx context.Context, since time.Time, n int) ([]models.TrendingSearch, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT LOWER(query) AS q, COUNT(*) AS cnt FROM search_logs
		 WHERE created_at >= ? GROUP BY q ORDER BY cnt DESC, q LIMIT ?`,
		since.UTC(), n,
	)
	if err != nil {
		return nil, fmt.Errorf("trending searches: %w", err)
	}
	defer rows.Close()

	var out []models.TrendingSearch
	for rows.Next() {
		var t models.TrendingSearch
		if err := rows.Scan(&t.Query, &t.Count); err != nil {
			return nil, fmt.Errorf("scan trending search: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
