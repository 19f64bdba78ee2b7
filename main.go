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

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"

	"restaurantfinder/cmd"
	"restaurantfinder/internal/api"
	"restaurantfinder/internal/db"
	"restaurantfinder/internal/location"
	"restaurantfinder/internal/logging"
	"restaurantfinder/internal/metrics"
	"restaurantfinder/internal/search"
	"restaurantfinder/internal/state"
	"restaurantfinder/internal/ui"
)

// version is set at build time via -ldflags
var version = "dev"

func main() {
	config, err := cmd.ParseFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if config.ShowVersion {
		fmt.Printf("restaurantfinder %s\n", version)
		return
	}

	if err := run(config); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(config *cmd.Config) error {
	logger, logCloser, err := openLogger(config)
	if err != nil {
		return err
	}
	defer logCloser()

	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)

	// A store that fails to open leaves favorites empty; search still works.
	store := db.NewStore()
	if err := store.Init(config.DBPath); err != nil {
		logger.Warn("favorites store unavailable", "path", config.DBPath, "err", err)
	}
	defer store.Close()

	if config.YelpAPIKey == "" {
		fmt.Fprintln(os.Stderr, "ℹ  No YELP_API_KEY set; searches will fail until one is configured")
		logger.Warn("no Yelp API key configured")
	}
	client := search.NewClient(config.YelpAPIKey, search.WithMetrics(collector))

	resolver := location.NewResolver(
		locationProvider(config, logger),
		location.WithLogger(logger),
		location.WithMetrics(collector),
	)

	agg := state.New(client, store,
		state.WithLocator(resolver),
		state.WithLogger(logger),
		state.WithMetrics(collector),
	)
	defer agg.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	agg.Init(ctx)

	if config.ServeAddr != "" {
		return serve(ctx, config.ServeAddr, api.NewRouter(agg, logger, reg), logger)
	}

	app := ui.New(agg, ui.Options{
		ConfigDir:    config.ConfigDir,
		Capabilities: ui.DetectTerminalCapabilities(),
		HTTPClient:   &http.Client{Timeout: 10 * time.Second},
		Logger:       logger,
	})
	defer app.Close()

	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("error running app: %w", err)
	}
	return nil
}

func openLogger(config *cmd.Config) (*log.Logger, func(), error) {
	logger, closer, err := logging.Open(config.LogPath, config.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	return logger, func() { _ = closer.Close() }, nil
}

func locationProvider(config *cmd.Config, logger *log.Logger) location.Provider {
	switch config.LocationMode {
	case cmd.LocationFixed:
		return location.NewFixedProvider(config.Fixed)
	case cmd.LocationOff:
		return location.Denied{}
	default:
		return location.NewIPProvider(config.LocationConsent, "", location.WithIPLogger(logger))
	}
}

func serve(ctx context.Context, addr string, handler http.Handler, logger *log.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("serving api", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	logger.Info("shutting down api")
	return srv.Shutdown(shutdownCtx)
}
