package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"example.com/golocalevents/internal/ingest"
	"example.com/golocalevents/internal/metrics"
	transport "example.com/golocalevents/internal/transport/http"
)

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.serve(cmd.Context())
		},
	}
}

func (a *app) serve(parent context.Context) error {
	cfg, log := a.cfg, a.log
	if !cfg.LogDevelopment {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	reg := newRegistry()
	m := metrics.New(reg)

	st, err := a.openStore(ctx, m)
	if st == nil {
		return err
	}
	defer st.Close()
	if err != nil {
		// keep serving so clients see the error state
		log.Error("event store failed to load", zap.Error(err))
	}

	// ingest outlives the listener so drafts accepted during shutdown still land
	ingestCtx, stopIngest := context.WithCancel(context.WithoutCancel(ctx))
	defer stopIngest()
	ig := ingest.NewIngestor(st, cfg.ImportQueueSize, cfg.ImportBatchSize, cfg.ImportBatchWait, log.Named("ingest"))
	ig.Start(ingestCtx)
	log.Info("ingest: started",
		zap.Int("queue", cfg.ImportQueueSize), zap.Int("batch", cfg.ImportBatchSize), zap.Duration("wait", cfg.ImportBatchWait))

	deps := &transport.ServerDeps{
		Cfg:      cfg,
		Store:    st,
		Ingestor: ig,
		Images:   a.resolver(ctx),
		Metrics:  m,
		Gatherer: reg,
		Log:      log.Named("http"),
		Now:      func() time.Time { return time.Now().UTC() },
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           deps.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", srv.Addr), zap.String("storage", cfg.StorageBackend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
	}

	shutdownCtx, cancel2 := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel2()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", zap.Error(err))
	}
	stopIngest()
	ig.Wait()
	log.Info("stopped")
	return serveErr
}
