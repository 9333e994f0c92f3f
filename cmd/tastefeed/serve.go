package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	chiTransport "github.com/kailas-cloud/tastefeed/internal/transport/chi"
	"github.com/kailas-cloud/tastefeed/internal/version"
)

// maxClusters bounds the k query parameter of the centroids endpoint.
const maxClusters = 20

// NewServeCmd runs the HTTP API until interrupted.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, cfg, logger, err := loadRuntime(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			if port, _ := cmd.Flags().GetInt("port"); port > 0 {
				cfg.HTTP.Port = port
			}

			logger.Info("Starting tastefeed API server",
				zap.String("version", version.Version),
				zap.String("commit", version.Commit),
				zap.String("env", env),
				zap.Int("http_port", cfg.HTTP.Port),
				zap.String("fingerprint_backend", cfg.Fingerprints.Backend),
			)

			ctx := cmd.Context()
			a, err := newApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			server := chiTransport.NewServer(chiTransport.Deps{
				Generator:    a.generator,
				Fingerprints: a.fingerprints,
				Articles:     a.articles,
				Taste:        a.taste,
				Recommender:  a.recommend,
				Health:       a.health,
			}, chiTransport.Limits{
				DefaultLimit:    cfg.Recommend.DefaultLimit,
				MaxLimit:        cfg.Recommend.MaxLimit,
				DefaultClusters: cfg.Recommend.Clusters,
				MaxClusters:     maxClusters,
			}, logger)

			srv := &http.Server{
				Addr:         fmt.Sprintf(":%d", cfg.HTTP.Port),
				Handler:      chiTransport.NewRouter(server, cfg.Auth.APIKeys),
				ReadTimeout:  cfg.HTTP.ReadTimeout(),
				WriteTimeout: cfg.HTTP.WriteTimeout(),
			}

			errCh := make(chan error, 1)
			go func() {
				logger.Info("Starting HTTP server", zap.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				if err != nil {
					return fmt.Errorf("http server: %w", err)
				}
			case <-ctx.Done():
				logger.Info("Received shutdown signal")
			}

			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.HTTP.ShutdownTimeout())
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("Error during shutdown", zap.Error(err))
			}

			logger.Info("Server stopped gracefully")
			return nil
		},
	}

	cmd.Flags().Int("port", 0, "Override http.port from config")
	return cmd
}
