package mcp

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/homely-rentals/homely/pkg/models"
)

// formatCacheStats formats cache stats as text.
func formatCacheStats(stats models.CacheStats) string {
	return fmt.Sprintf("Cache Statistics\n"+
		"  Entries:  %d\n"+
		"  Size:     ~%s\n"+
		"  Hits:     %d\n"+
		"  Misses:   %d\n"+
		"  Hit Rate: %.1f%%\n",
		stats.Entries, humanize.Bytes(uint64(stats.ApproxBytes)), stats.Hits, stats.Misses, stats.HitRate)
}

func formatKeys(keys []string, total int) string {
	if total == 0 {
		return "No cache keys found."
	}
	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k + "\n")
	}
	if total > len(keys) {
		fmt.Fprintf(&b, "... %d more\n", total-len(keys))
	}
	return b.String()
}

func formatCleared(n int, pattern string) string {
	if pattern == "" {
		return fmt.Sprintf("Cleared %d cache entries.", n)
	}
	return fmt.Sprintf("Cleared %d cache entries matching %q.", n, pattern)
}

// formatReport formats a performance report as text.
func formatReport(rep models.PerformanceReport) string {
	p := rep.Performance
	var b strings.Builder
	fmt.Fprintf(&b, "Status: %s\n", strings.ToUpper(string(rep.Status)))
	fmt.Fprintf(&b, "  Store latency:   %dms\n", p.StoreLatencyMs)
	fmt.Fprintf(&b, "  Report latency:  %dms\n", p.FunctionLatencyMs)
	fmt.Fprintf(&b, "  Cache entries:   %d (~%s)\n", p.CacheSize, humanize.Bytes(uint64(p.CacheMemoryBytesApprox)))
	fmt.Fprintf(&b, "  Hit rate:        %.1f%%\n", p.HitRatePercent)
	fmt.Fprintf(&b, "  Slow ops (24h):  %d\n", p.SlowOperationCount)
	if len(rep.Recommendations) == 0 {
		b.WriteString("\nNo recommendations.\n")
		return b.String()
	}
	b.WriteString("\nRecommendations:\n")
	for _, r := range rep.Recommendations {
		fmt.Fprintf(&b, "  [%s] %s: %s\n    %s\n", r.Priority, r.Title, r.Description, r.Action)
	}
	return b.String()
}

// formatOperations formats maintenance results as a text table.
func formatOperations(results []models.OperationResult) string {
	if len(results) == 0 {
		return "No maintenance steps configured."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%-28s %-8s %s\n", "Operation", "Status", "Result")
	b.WriteString(strings.Repeat("-", 80) + "\n")
	for _, r := range results {
		fmt.Fprintf(&b, "%-28s %-8s %s\n", r.Operation, r.Status, r.Result)
	}
	return b.String()
}

// formatSlowOperations formats slow operation records as a text table.
func formatSlowOperations(ops []models.SlowOperation) string {
	if len(ops) == 0 {
		return "No slow operations recorded."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%-20s %-20s %10s  %s\n", "Time", "Operation", "Duration", "Details")
	b.WriteString(strings.Repeat("-", 80) + "\n")
	for _, op := range ops {
		details := op.Details
		if len(details) > 60 {
			details = details[:57] + "..."
		}
		fmt.Fprintf(&b, "%-20s %-20s %8dms  %s\n",
			op.CreatedAt.Format("2006-01-02 15:04:05"), op.Operation, op.DurationMs, details)
	}
	return b.String()
}
