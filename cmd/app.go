package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/harshul/coderun/internal/config"
	"github.com/harshul/coderun/internal/logging"
	"github.com/harshul/coderun/internal/metrics"
	"github.com/harshul/coderun/internal/orchestrator"
)

// app is everything a command needs once flags are parsed.
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	metrics *metrics.Recorder
}

// newApp loads configuration and builds the logger. The workbench owns the
// terminal, so it always logs to a file; headless commands stay quiet unless
// asked.
func newApp(tui bool) (*app, error) {
	logOpts := logging.Options{Debug: opts.debug, File: opts.logFile}
	switch {
	case tui && logOpts.File == "":
		logOpts.File = logging.DefaultFile()
	case !tui && logOpts.File == "" && !opts.debug:
		logOpts.Silent = true
	}
	logger, err := logging.New(logOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to set up logging: %w", err)
	}

	path := opts.configPath
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if cfg.Source != "" {
		logger.Debug("configuration merged", zap.String("path", cfg.Source))
	}

	return &app{cfg: cfg, logger: logger, metrics: metrics.New()}, nil
}

// engineOptions returns the parts of the engine wiring that do not depend
// on the front end.
func (a *app) engineOptions() orchestrator.Options {
	return orchestrator.Options{
		Settings: a.cfg.Settings,
		Registry: a.cfg.Registry,
		Logger:   a.logger,
		Metrics:  a.metrics,
	}
}

// target resolves FILE to an absolute path of an existing regular file.
func (a *app) target(file string) (orchestrator.Target, error) {
	abs, err := filepath.Abs(file)
	if err != nil {
		return orchestrator.Target{}, fmt.Errorf("failed to resolve %s: %w", file, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return orchestrator.Target{}, fmt.Errorf("source file not found: %w", err)
	}
	if info.IsDir() {
		return orchestrator.Target{}, fmt.Errorf("%s is a directory, not a source file", file)
	}
	if opts.lang != "" {
		if _, err := a.cfg.Registry.Lookup(opts.lang); err != nil {
			return orchestrator.Target{}, err
		}
	}
	return orchestrator.Target{File: abs, Language: opts.lang}, nil
}

// serve runs work alongside the metrics endpoint, when one is configured,
// and shuts the endpoint down once work returns.
func (a *app) serve(ctx context.Context, work func(ctx context.Context) error) error {
	if opts.metricsAddr == "" {
		return work(ctx)
	}

	srv := &http.Server{
		Addr:              opts.metricsAddr,
		Handler:           a.metrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	g, gctx := errgroup.WithContext(ctx)
	workDone := make(chan struct{})

	g.Go(func() error {
		a.logger.Info("serving metrics", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		select {
		case <-gctx.Done():
		case <-workDone:
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		defer close(workDone)
		return work(gctx)
	})
	return g.Wait()
}

func (a *app) close() {
	_ = a.logger.Sync()
}
