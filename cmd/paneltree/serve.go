package main

import (
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/aretw0/paneltree/internal/cli"
	httpAdapter "github.com/aretw0/paneltree/pkg/adapters/http"
	"github.com/aretw0/paneltree/pkg/observability"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  `Serves documents over a JSON API with server-sent change events and Prometheus metrics on /metrics.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		port, _ := cmd.Flags().GetString("port")

		metrics := observability.NewMetrics("paneltree")
		a, err := newApp(metrics)
		if err != nil {
			return err
		}

		handler := httpAdapter.NewHandler(a.engine, a.docs,
			httpAdapter.WithMetrics(metrics.Handler()),
			httpAdapter.WithLogger(a.logger),
		)
		srv := &http.Server{
			Addr:              ":" + port,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		}

		a.logger.Info("starting server", "addr", srv.Addr, "store", opts.Store)
		return cli.Serve(cmd.Context(), a.logger, shutdownTimeout, srv.ListenAndServe, srv.Shutdown)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("port", "p", "8080", "Port to listen on")
}
