package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"metafed/internal/metadata/adapters/includes"
	"metafed/internal/metadata/adapters/xmldsig"
	"metafed/internal/metadata/aggregate"
	mdmetrics "metafed/internal/metadata/metrics"
	"metafed/internal/metadata/parser"
	"metafed/internal/metadata/schema"
	"metafed/internal/metadata/service"
	"metafed/internal/metadata/store"
	"metafed/internal/metadata/strategy"
	"metafed/internal/platform/config"
	"metafed/internal/platform/httpserver"
	"metafed/internal/platform/logger"
	"metafed/internal/platform/metrics"
	"metafed/internal/platform/redis"
	httptransport "metafed/internal/transport/http"
)

// LocalNamespace holds strategies built from the configuration file.
const LocalNamespace = "local"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "metafed: %v\n", err)
		os.Exit(1)
	}
}

// run wires the dependencies, serves HTTP and keeps the aggregate fresh
// until SIGINT or SIGTERM.
func run() error {
	srvCfg := config.FromEnv()
	log := logger.New(srvCfg.LogLevel, srvCfg.LogFormat)
	slog.SetDefault(log)

	fileCfg, err := config.Load(srvCfg.ConfigPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pipelineMetrics := mdmetrics.New(nil)
	httpMetrics := metrics.New(nil)

	// source paths and includes resolve relative to the config file
	sources := includes.NewFSResolver(os.DirFS(filepath.Dir(srvCfg.ConfigPath)))
	validator := schema.New()

	strategies := strategy.Default()
	names := make([]string, 0, len(fileCfg.Sources))
	for _, src := range fileCfg.Sources {
		names = append(names, src.Name)
	}
	if err := strategies.Register(LocalNamespace, strategy.PreferSource("source_order", names...)); err != nil {
		return fmt.Errorf("register source order strategy: %w", err)
	}

	engine, err := aggregate.New(strategies, validator,
		aggregate.WithLogger(log),
		aggregate.WithMetrics(pipelineMetrics),
	)
	if err != nil {
		return err
	}
	p, err := parser.New(validator,
		parser.WithConfig(fileCfg.Pipeline),
		parser.WithExpiry(fileCfg.Expiry),
		parser.WithVerifier(xmldsig.New(xmldsig.WithLogger(log))),
		parser.WithIncludeResolver(sources),
		parser.WithEngine(engine),
		parser.WithMetrics(pipelineMetrics),
		parser.WithLogger(log),
	)
	if err != nil {
		return err
	}

	var st service.Store = store.NewInMemoryStore()
	handlerOpts := []httptransport.Option{httptransport.WithLogger(log)}
	rc, err := redis.New(ctx, srvCfg.Redis)
	if err != nil {
		return err
	}
	if rc != nil {
		defer rc.Close()
		st = store.NewBreaker("redis", store.NewRedis(rc.Client), store.WithBreakerLogger(log))
		handlerOpts = append(handlerOpts, httptransport.WithHealthCheck("redis", rc.Health))
	}

	agg, err := service.New(fileCfg, p, engine, sources, st,
		service.WithLogger(log),
		service.WithMetrics(pipelineMetrics),
	)
	if err != nil {
		return err
	}

	h := httptransport.New(agg, st, handlerOpts...)
	srv := httpserver.New(srvCfg.Addr, httptransport.NewRouter(h, httpMetrics, metrics.Handler(nil), log))

	go func() {
		if err := agg.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.ErrorContext(ctx, "refresh loop stopped", "error", err)
		}
	}()

	serveErr := make(chan error, 1)
	go func() {
		log.Info("starting metafed", "addr", srvCfg.Addr, "aggregate", agg.Name(), "sources", len(fileCfg.Sources))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}
