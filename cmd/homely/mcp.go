package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func newMCPCmd() *cobra.Command {
	var flags configFlags
	var withHTTP bool

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start homely as an MCP server on stdio",
		Long: "Start homely as an MCP server on stdio. With --http the HTTP surface runs in the\n" +
			"same process so both share one cache.",
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

			// stdout carries the protocol; logs must stay on stderr.
			a.log.SetOutput(os.Stderr)

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if withHTTP {
				go func() {
					if err := a.httpServer().ListenAndServe(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
						a.log.WithError(err).Error("http server stopped")
					}
				}()
			}

			return a.mcpServer().Run(ctx, os.Stdin, os.Stdout)
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&withHTTP, "http", false, "also serve the HTTP surface")
	return cmd
}
