package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	chiTransport "github.com/kailas-cloud/argrank/internal/transport/chi"
	healthuc "github.com/kailas-cloud/argrank/internal/usecase/health"
	"github.com/kailas-cloud/argrank/internal/usecase/tracker"
	"github.com/kailas-cloud/argrank/internal/version"
)

const serveLongDesc string = `Serve the live rank tracker API.

Clients open a session, post transcript windows as they arrive and
query frequent documents, per-window top documents, position traces
and keyword lookups. /health and /metrics are served without auth.

Examples:
  argrank serve
  ENV=prod argrank serve --port 9000`

const serveShortDesc string = "Serve the live rank tracker API"

type serveCommander struct {
	getApp func() *app

	port int
}

func newServeCmd(getApp func() *app) *cobra.Command {
	cmder := &serveCommander{getApp: getApp}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd.Context())
		},
	}

	cmd.Flags().IntVarP(&cmder.port, "port", "p", 0, "HTTP port (default from config)")

	return cmd
}

func (c *serveCommander) run(ctx context.Context) error {
	a := c.getApp()
	logger := a.logger
	hc := a.cfg.HTTP

	port := hc.Port
	if c.port > 0 {
		port = c.port
	}

	logger.Info("Starting argrank API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.Int("http_port", port),
	)

	store, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	searcher, err := a.lexicalRepo(ctx)
	if err != nil {
		return err
	}
	opts, err := a.trackerOptions()
	if err != nil {
		return err
	}
	if _, err := a.embedder(ctx); err != nil {
		return err
	}

	registry := tracker.NewRegistry(searcher, opts, logger)
	healthSvc := healthuc.New(store, a.base, registry, logger)
	server := chiTransport.NewServer(registry, healthSvc, logger)

	addr := fmt.Sprintf(":%d", port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           chiTransport.NewRouter(server, a.cfg.Auth.APIKeys, logger),
		ReadTimeout:       time.Duration(hc.ReadTimeoutSec) * time.Second,
		ReadHeaderTimeout: time.Duration(hc.ReadTimeoutSec) * time.Second,
		WriteTimeout:      time.Duration(hc.WriteTimeoutSec) * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-quit:
		logger.Info("Received shutdown signal")
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(hc.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
	return nil
}
