package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/exotriage/exotriage/internal/api"
	"github.com/exotriage/exotriage/pkg/config"
)

// Handler builds the API handler over the app's services.
func (a *App) Handler() *api.Handler {
	opts := []api.Option{
		api.WithCache(api.NewBatchCache(a.Config.Server.CacheSize)),
		api.WithMetrics(a.Metrics),
		api.WithLogger(a.Logger.Named("api")),
		api.WithRunTimeout(time.Duration(a.Config.Server.RequestTimeout) * time.Second),
	}
	if a.Recorder != nil {
		opts = append(opts, api.WithRecorder(a.Recorder))
	}
	h := api.NewHandler(a.Discovery, a.Source, opts...)
	h.SetQueryDefaults(a.Config.Query())
	return h
}

// Serve runs the HTTP API until ctx is cancelled, then shuts down
// gracefully. When configPath is set, discovery defaults follow edits to
// that file.
func (a *App) Serve(ctx context.Context, configPath string) error {
	h := a.Handler()

	if configPath != "" {
		go func() {
			err := config.Watch(ctx, configPath, a.Logger.Named("config"), func(cfg *config.Config) {
				h.SetQueryDefaults(cfg.Query())
			})
			if err != nil {
				a.Logger.Warn("config watch stopped", zap.Error(err))
			}
		}()
	}

	srv := &http.Server{
		Addr: ":" + a.Config.Server.Port,
		Handler: api.NewServer(h, api.ServerConfig{
			APIKey:         a.Config.Server.APIKey,
			RequestTimeout: time.Duration(a.Config.Server.RequestTimeout) * time.Second,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		a.Logger.Info("starting exotriaged",
			zap.String("addr", srv.Addr),
			zap.String("dataset", a.Source.Path),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- fmt.Errorf("listen: %w", err)
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	a.Logger.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
