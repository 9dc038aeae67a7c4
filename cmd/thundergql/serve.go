package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hanpama/thundergql/internal/eventbus"
	"github.com/hanpama/thundergql/internal/gateway"
	"github.com/hanpama/thundergql/internal/logging"
	"github.com/hanpama/thundergql/internal/otel"
)

func newServeCmd(a *app) *cobra.Command {
	var (
		addr          string
		fixtures      string
		introspection bool
		pretty        bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP GraphQL gateway",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := a.cfg
			if cmd.Flags().Changed("addr") {
				cfg.Server.Addr = addr
			}
			if cmd.Flags().Changed("fixtures") {
				cfg.Store.Fixtures = fixtures
			}
			if cmd.Flags().Changed("introspection") {
				cfg.Server.Introspection = introspection
			}
			if cmd.Flags().Changed("pretty") {
				cfg.Server.Pretty = pretty
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			eventbus.Use(eventbus.New())
			defer logging.Subscribe(a.logger)()
			shutdownTracing, err := otel.Setup(ctx, cfg.Otel.Endpoint, cfg.Otel.Service)
			if err != nil {
				return err
			}
			defer func() { _ = shutdownTracing(context.Background()) }()

			gw, err := gateway.New(ctx, cfg, a.logger)
			if err != nil {
				return err
			}
			defer gw.Close()

			srv := &http.Server{
				Addr:              cfg.Server.Addr,
				Handler:           gw.Mux(),
				ReadHeaderTimeout: 5 * time.Second,
			}
			errc := make(chan error, 1)
			go func() { errc <- srv.ListenAndServe() }()
			a.logger.Info("graphql server listening",
				zap.String("addr", cfg.Server.Addr),
				zap.String("path", cfg.Server.Path),
				zap.Bool("introspection", cfg.Server.Introspection),
			)

			select {
			case err := <-errc:
				return err
			case <-ctx.Done():
			}
			a.logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return err
			}
			if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8080", "HTTP listen address")
	cmd.Flags().StringVar(&fixtures, "fixtures", "", "YAML fixtures for the memory store")
	cmd.Flags().BoolVar(&introspection, "introspection", true, "enable GraphQL introspection")
	cmd.Flags().BoolVar(&pretty, "pretty", false, "pretty-print JSON responses")
	return cmd
}
