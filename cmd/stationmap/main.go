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

	"github.com/rs/zerolog/log"

	"github.com/bbernstein/stationmap/internal/api"
	"github.com/bbernstein/stationmap/internal/clock"
	"github.com/bbernstein/stationmap/internal/config"
	"github.com/bbernstein/stationmap/internal/hub"
	"github.com/bbernstein/stationmap/internal/metrics"
	"github.com/bbernstein/stationmap/internal/station"
	"github.com/bbernstein/stationmap/internal/store"
	"github.com/bbernstein/stationmap/internal/view"
	"github.com/bbernstein/stationmap/internal/viewport"
)

const shutdownTimeout = 10 * time.Second

// app is the wired server: one store shared by the HTTP API and the map
// clients, with the viewport controller following the store.
type app struct {
	handler    http.Handler
	store      *store.Store
	hub        *hub.Hub
	controller *viewport.Controller
	closers    []func()
}

func newApp(ctx context.Context, cfg *config.Config, vpCfg *config.ViewportConfig, factory station.SourceFactory) (*app, error) {
	m := metrics.New()

	source, err := factory.NewSource(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating station source: %w", err)
	}

	memo, err := view.NewMemo(vpCfg.FilterMemoSize)
	if err != nil {
		return nil, fmt.Errorf("creating filter memo: %w", err)
	}

	s := store.New(source, store.WithMemo(memo), store.WithMetrics(m))

	var remote *hub.RemoteMap
	h := hub.New(
		hub.WithMetrics(m),
		hub.WithSelectHandler(s.SetSelectedStation),
		hub.WithZoomHandler(func(zoom float64) {
			remote.ReportZoom(zoom)
		}),
	)

	opts := viewport.FromConfig(vpCfg)
	remote = hub.NewRemoteMap(h, opts.DefaultZoom)
	controller := viewport.NewController(remote, clock.Real{},
		viewport.WithOptions(opts),
		viewport.WithMetrics(m),
	)

	a := &app{
		handler:    api.NewRouter(s, h, m),
		store:      s,
		hub:        h,
		controller: controller,
	}
	a.closers = append(a.closers,
		s.Subscribe(controller.Observe),
		api.BroadcastViews(s, h),
	)
	return a, nil
}

// start issues the first station fetch.
func (a *app) start() {
	a.store.Start()
}

// close stops the map side first so no command is sent for a store that is
// going away.
func (a *app) close() {
	for _, fn := range a.closers {
		fn()
	}
	a.controller.Close()
	a.hub.Close()
	a.store.Close()
}

func run(ctx context.Context, cfg *config.Config, vpCfg *config.ViewportConfig, factory station.SourceFactory) error {
	a, err := newApp(ctx, cfg, vpCfg, factory)
	if err != nil {
		return err
	}
	defer a.close()

	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	a.start()

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.ListenAddr).Str("source", cfg.StationsSource).Msg("Starting stationmap server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("Shutting down")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("serving http: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	return nil
}

func main() {
	cfg := config.LoadFromEnv()
	cfg.InitializeLogging()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, config.GetViewportConfig(), station.DefaultSourceFactory{}); err != nil {
		log.Error().Err(err).Msg("Server stopped")
		stop()
		os.Exit(1)
	}
}
