package models

import "time"

// Priority ranks a recommendation.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// HealthStatus summarizes a performance report.
type HealthStatus string

const (
	HealthGood     HealthStatus = "good"
	HealthWarning  HealthStatus = "warning"
	HealthCritical HealthStatus = "critical"
)

// PerformanceSample is computed fresh for every report and never stored.
type PerformanceSample struct {
	FunctionLatencyMs      int64     `json:"functionLatencyMs"`
	StoreLatencyMs         int64     `json:"storeLatencyMs"`
	CacheSize              int       `json:"cacheSize"`
	CacheMemoryBytesApprox int64     `json:"cacheMemoryBytesApprox"`
	HitRatePercent         float64   `json:"hitRatePercent"`
	SlowOperationCount     int64     `json:"slowOperationCount"`
	Timestamp              time.Time `json:"timestamp"`
}

// Recommendation is a threshold-based hint emitted by the reporter.
type Recommendation struct {
	Type        string   `json:"type"`
	Priority    Priority `json:"priority"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Action      string   `json:"action"`
}

// PerformanceReport bundles a sample with its recommendations.
type PerformanceReport struct {
	Performance     PerformanceSample `json:"performance"`
	Recommendations []Recommendation  `json:"recommendations"`
	Status          HealthStatus      `json:"status"`
}

// SlowOperation is a persisted record of an operation that exceeded its latency budget.
type SlowOperation struct {
	ID         string    `json:"id"`
	Operation  string    `json:"operation"`
	DurationMs int64     `json:"duration_ms"`
	Details    string    `json:"details,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
