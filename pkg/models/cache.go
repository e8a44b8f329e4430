package models

import "time"

// CacheEntry is a single value held by the in-process cache.
type CacheEntry struct {
	Key      string    `json:"key"`
	Value    []byte    `json:"value"`
	StoredAt time.Time `json:"stored_at"`
}

// CacheStats reports cache occupancy and lookup outcomes.
type CacheStats struct {
	Entries     int64   `json:"entries"`
	ApproxBytes int64   `json:"approx_bytes"`
	Hits        int64   `json:"hits"`
	Misses      int64   `json:"misses"`
	HitRate     float64 `json:"hit_rate"`
}
