package mcp

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/homely-rentals/homely/pkg/models"
)

type patternArgs struct {
	Pattern string `json:"pattern"`
}

type keysArgs struct {
	Pattern string `json:"pattern"`
	Limit   int    `json:"limit"`
}

type limitArgs struct {
	Limit int `json:"limit"`
}

// toolHandler handles one tool call.
type toolHandler func(ctx context.Context, s *Server, args json.RawMessage) ToolCallResult

var toolHandlers = map[string]toolHandler{
	"homely_cache_stats":        handleCacheStats,
	"homely_cache_keys":         handleCacheKeys,
	"homely_clear_cache":        handleClearCache,
	"homely_performance_report": handlePerformanceReport,
	"homely_run_maintenance":    handleRunMaintenance,
	"homely_slow_operations":    handleSlowOperations,
}

var emptySchema = map[string]any{
	"type":       "object",
	"properties": map[string]any{},
}

var allTools = []ToolDefinition{
	{
		Name:        "homely_cache_stats",
		Description: "Show search cache statistics (entries, approximate size, hits, misses, hit rate).",
		InputSchema: emptySchema,
	},
	{
		Name:        "homely_cache_keys",
		Description: "List cache keys, optionally only those containing a substring.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"pattern": map[string]any{
					"type":        "string",
					"description": "Substring the key must contain (optional)",
				},
				"limit": map[string]any{
					"type":        "integer",
					"description": "Maximum keys to return (optional, default 50)",
				},
			},
		},
	},
	{
		Name:        "homely_clear_cache",
		Description: "Remove cache entries whose key contains the pattern, or every entry when no pattern is given.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"pattern": map[string]any{
					"type":        "string",
					"description": "Substring to match (optional, omit to clear everything)",
				},
			},
		},
	},
	{
		Name:        "homely_performance_report",
		Description: "Sample database latency, cache usage and slow operations, with recommendations.",
		InputSchema: emptySchema,
	},
	{
		Name:        "homely_run_maintenance",
		Description: "Run database maintenance: log cleanup, analytics summary refresh and table optimization.",
		InputSchema: emptySchema,
	},
	{
		Name:        "homely_slow_operations",
		Description: "List the most recent operations that exceeded the slow threshold.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"limit": map[string]any{
					"type":        "integer",
					"description": "Maximum records to return (optional, default 20)",
				},
			},
		},
	},
}

func textResult(text string) ToolCallResult {
	return ToolCallResult{
		Content: []ContentBlock{{Type: "text", Text: text}},
	}
}

func errorResult(text string) ToolCallResult {
	return ToolCallResult{
		Content: []ContentBlock{{Type: "text", Text: text}},
		IsError: true,
	}
}

func decodeArgs(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, v)
}

func handleCacheStats(_ context.Context, s *Server, _ json.RawMessage) ToolCallResult {
	if s.deps.Cache == nil || s.deps.Hits == nil {
		return textResult("Cache is not configured.")
	}
	return textResult(formatCacheStats(models.CacheStats{
		Entries:     int64(s.deps.Cache.Len()),
		ApproxBytes: s.deps.Cache.ApproxBytes(),
		Hits:        s.deps.Hits.Hits(),
		Misses:      s.deps.Hits.Misses(),
		HitRate:     s.deps.Hits.HitRatePercent(),
	}))
}

func handleCacheKeys(_ context.Context, s *Server, raw json.RawMessage) ToolCallResult {
	if s.deps.Cache == nil {
		return textResult("Cache is not configured.")
	}
	var args keysArgs
	if err := decodeArgs(raw, &args); err != nil {
		return errorResult("Invalid arguments: " + err.Error())
	}
	if args.Limit <= 0 {
		args.Limit = 50
	}

	var keys []string
	total := 0
	for _, k := range s.deps.Cache.Keys() {
		if args.Pattern != "" && !strings.Contains(k, args.Pattern) {
			continue
		}
		total++
		if len(keys) < args.Limit {
			keys = append(keys, k)
		}
	}
	return textResult(formatKeys(keys, total))
}

func handleClearCache(_ context.Context, s *Server, raw json.RawMessage) ToolCallResult {
	if s.deps.Cache == nil {
		return textResult("Cache is not configured.")
	}
	var args patternArgs
	if err := decodeArgs(raw, &args); err != nil {
		return errorResult("Invalid arguments: " + err.Error())
	}
	return textResult(formatCleared(s.deps.Cache.Clear(args.Pattern), args.Pattern))
}

func handlePerformanceReport(ctx context.Context, s *Server, _ json.RawMessage) ToolCallResult {
	if s.deps.Report == nil {
		return textResult("Performance reporting is not configured.")
	}
	rep, err := s.deps.Report.Report(ctx)
	if err != nil {
		return errorResult("Error building performance report: " + err.Error())
	}
	return textResult(formatReport(rep))
}

func handleRunMaintenance(ctx context.Context, s *Server, _ json.RawMessage) ToolCallResult {
	if s.deps.Maintenance == nil {
		return textResult("Maintenance is not configured.")
	}
	results := s.deps.Maintenance.Run(ctx)
	out := textResult(formatOperations(results))
	for _, r := range results {
		if r.Status == models.OperationError {
			out.IsError = true
		}
	}
	return out
}

func handleSlowOperations(ctx context.Context, s *Server, raw json.RawMessage) ToolCallResult {
	if s.deps.SlowLog == nil {
		return textResult("Slow operation logging is not configured.")
	}
	var args limitArgs
	if err := decodeArgs(raw, &args); err != nil {
		return errorResult("Invalid arguments: " + err.Error())
	}
	ops, err := s.deps.SlowLog.Recent(ctx, args.Limit)
	if err != nil {
		return errorResult("Error fetching slow operations: " + err.Error())
	}
	return textResult(formatSlowOperations(ops))
}
