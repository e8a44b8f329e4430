package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/homely-rentals/homely/pkg/models"
)

func newReportCmd() *cobra.Command {
	var flags configFlags
	var serverURL string

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Show the performance report of a running server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.load(cmd)
			if err != nil {
				return err
			}

			rep, err := fetchReport(cmd.Context(), newActionClient(serverURL, cfg.BasePath))
			if err != nil {
				return err
			}
			printReport(os.Stdout, rep)
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&serverURL, "server", "http://localhost:8080", "homely server URL")
	return cmd
}

var healthColors = map[models.HealthStatus]*color.Color{
	models.HealthGood:     color.New(color.FgGreen, color.Bold),
	models.HealthWarning:  color.New(color.FgYellow, color.Bold),
	models.HealthCritical: color.New(color.FgRed, color.Bold),
}

var priorityColors = map[models.Priority]*color.Color{
	models.PriorityHigh:   color.New(color.FgRed),
	models.PriorityMedium: color.New(color.FgYellow),
	models.PriorityLow:    color.New(color.FgCyan),
}

func printReport(out io.Writer, rep models.PerformanceReport) {
	status := string(rep.Status)
	if c, ok := healthColors[rep.Status]; ok {
		status = c.Sprint(status)
	}
	p := rep.Performance
	fmt.Fprintf(out, "Status:          %s\n", status)
	fmt.Fprintf(out, "Store latency:   %dms\n", p.StoreLatencyMs)
	fmt.Fprintf(out, "Report latency:  %dms\n", p.FunctionLatencyMs)
	fmt.Fprintf(out, "Cache entries:   %d (~%s)\n", p.CacheSize, humanize.Bytes(uint64(p.CacheMemoryBytesApprox)))
	fmt.Fprintf(out, "Hit rate:        %.1f%%\n", p.HitRatePercent)
	fmt.Fprintf(out, "Slow ops (24h):  %d\n", p.SlowOperationCount)

	if len(rep.Recommendations) == 0 {
		return
	}
	fmt.Fprintln(out, "\nRecommendations:")
	for _, r := range rep.Recommendations {
		priority := string(r.Priority)
		if c, ok := priorityColors[r.Priority]; ok {
			priority = c.Sprint(priority)
		}
		fmt.Fprintf(out, "  [%s] %s\n      %s\n      -> %s\n", priority, r.Title, r.Description, r.Action)
	}
}

func fetchReport(ctx context.Context, client *actionClient) (models.PerformanceReport, error) {
	var rep models.PerformanceReport
	err := client.call(ctx, http.MethodGet, "performance-report", nil, &rep)
	return rep, err
}
