package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/homely-rentals/homely/pkg/models"
)

func newMaintainCmd() *cobra.Command {
	var flags configFlags

	cmd := &cobra.Command{
		Use:   "maintain",
		Short: "Run database maintenance against the configured database",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.load(cmd)
			if err != nil {
				return err
			}
			a, err := newApp(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			results := a.maintenance.Run(context.Background())
			if err := printOperations(os.Stdout, results); err != nil {
				return err
			}
			for _, r := range results {
				if r.Status == models.OperationError {
					return fmt.Errorf("maintenance step %s failed", r.Operation)
				}
			}
			return nil
		},
	}

	flags.register(cmd)
	return cmd
}

var statusColors = map[models.OperationStatus]*color.Color{
	models.OperationSuccess: color.New(color.FgGreen),
	models.OperationWarning: color.New(color.FgYellow),
	models.OperationError:   color.New(color.FgRed, color.Bold),
}

func printOperations(out io.Writer, results []models.OperationResult) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "OPERATION\tSTATUS\tRESULT")
	for _, r := range results {
		status := string(r.Status)
		if c, ok := statusColors[r.Status]; ok {
			status = c.Sprint(status)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", r.Operation, status, r.Result)
	}
	return w.Flush()
}
