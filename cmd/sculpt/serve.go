package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/aretw0/sculpt"
	"github.com/aretw0/sculpt/internal/cli"
	"github.com/aretw0/sculpt/internal/presentation/tui"
	httpAdapter "github.com/aretw0/sculpt/pkg/adapters/http"
	"github.com/aretw0/sculpt/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Serves the configured slots over a JSON API with server-sent change
events, Prometheus metrics at /metrics and the OpenAPI document at
/openapi.yaml. Action definitions are reloaded when they change on disk.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		port, _ := cmd.Flags().GetString("port")

		registry := prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		metrics := observability.NewMetrics(registry)

		rt, logger, err := openRuntime(cmd, metrics.Hooks())
		if err != nil {
			return err
		}
		defer rt.Close()

		opts := []httpAdapter.Option{
			httpAdapter.WithGatherer(registry),
			httpAdapter.WithLogger(logger),
		}
		if rt.Watcher != nil {
			opts = append(opts, httpAdapter.WithWatcher(rt.Watcher))
		}
		api := httpAdapter.NewServer(rt.Manager, opts...)
		stop := rt.Manager.Observe(api.Publish)
		defer stop()

		srv := &http.Server{
			Addr:    ":" + port,
			Handler: api.Handler(),
		}

		if isTerminal(os.Stderr) {
			tui.PrintBanner(cmd.ErrOrStderr(), sculpt.Version)
		}
		cli.PrintSystemMessage(cmd.ErrOrStderr(), "Serving %d actions on %s (store: %s)",
			len(rt.Manager.Actions()), srv.Addr, rt.Config.Store.Backend)

		sc := cli.NewSignalContext(cmd.Context())
		defer sc.Cancel()
		g, ctx := errgroup.WithContext(sc)

		g.Go(func() error {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server error: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()

			// Asking listener to shut down and shed load.
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("Graceful shutdown did not complete", "timeout", shutdownTimeout, "err", err)
				return srv.Close()
			}
			return nil
		})
		g.Go(func() error {
			return cli.WatchActions(ctx, rt, nil)
		})

		err = g.Wait()
		if sig := sc.Signal(); sig != nil {
			cli.PrintSystemMessage(cmd.ErrOrStderr(), "Server stopped (signal: %v)", sig)
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("port", "p", "8080", "Port to listen on")
}
