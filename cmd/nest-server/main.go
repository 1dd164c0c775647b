// cmd/nest-server/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"nest-readiness/internal/api"
	"nest-readiness/internal/common/camunda"
	"nest-readiness/internal/common/config"
	"nest-readiness/internal/common/logger"
	"nest-readiness/internal/common/observability"
	"nest-readiness/internal/common/validation"
	"nest-readiness/internal/navigation"
	"nest-readiness/internal/service"
	"nest-readiness/internal/storage"
	cns "nest-readiness/internal/workers/navigation/complete-navigation-step"
	crs "nest-readiness/internal/workers/readiness/compute-readiness-score"
	"nest-readiness/pkg/registry"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "nest-server: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config load failed: %w", err)
	}

	zapLog, err := logger.New(logger.Options{
		Level:   cfg.Logging.Level,
		Format:  cfg.Logging.Format,
		Output:  cfg.Logging.Output,
		Service: cfg.App.Name,
	})
	if err != nil {
		return err
	}
	defer zapLog.Sync() //nolint:errcheck
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("starting nest-server",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
		zap.String("storage", cfg.Storage.Backend),
	)

	obs, err := observability.New(cfg.App.Name, prometheus.DefaultRegisterer)
	if err != nil {
		return fmt.Errorf("observability init failed: %w", err)
	}
	defer func() {
		if err := obs.Shutdown(); err != nil {
			log.Warn("observability shutdown failed", map[string]interface{}{"error": err})
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend, err := storage.Open(ctx, cfg.Storage, log)
	if err != nil {
		return fmt.Errorf("storage init failed: %w", err)
	}
	defer backend.Close()

	routes, err := loadRoutes(cfg.Navigation.RegistryPath)
	if err != nil {
		return err
	}

	validator, err := validation.NewValidator()
	if err != nil {
		return fmt.Errorf("schema compile failed: %w", err)
	}

	svc := service.New(backend, service.Options{
		Namespace:      cfg.Storage.Namespace,
		StorageTimeout: config.GetDuration(cfg.Storage.Timeout),
		Navigation: navigation.Options{
			EnforceGating: cfg.Navigation.EnforceGating,
			HistoryLimit:  cfg.Navigation.HistoryLimit,
			Registry:      routes,
		},
	}, log, obs)

	workers, zeebe, err := startWorkers(ctx, cfg, svc, validator, log, obs)
	if err != nil {
		return err
	}
	defer func() {
		for _, w := range workers {
			w.Close()
			w.AwaitClose()
		}
		if zeebe != nil {
			if err := zeebe.Close(); err != nil {
				log.Warn("zeebe client close failed", map[string]interface{}{"error": err})
			}
		}
	}()

	server := api.NewServer(svc, validator, cfg.Server, cfg.Metrics, log, obs)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(server.ListenAndServe)
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down", nil)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("nest-server stopped", nil)
	return nil
}

func loadRoutes(path string) (*registry.RouteRegistry, error) {
	if path == "" {
		return registry.Default(), nil
	}
	routes, err := registry.LoadRegistry(path)
	if err != nil {
		return nil, fmt.Errorf("route registry load failed: %w", err)
	}
	return routes, nil
}

// startWorkers connects to Zeebe and opens the enabled job workers. It
// returns no workers when camunda is disabled.
func startWorkers(ctx context.Context, cfg *config.Config, svc *service.Service, validator *validation.Validator, log logger.Logger, obs *observability.Observability) ([]worker.JobWorker, *camunda.Client, error) {
	if !cfg.Camunda.Enabled {
		log.Info("camunda disabled, no workers started", nil)
		return nil, nil, nil
	}

	client, err := camunda.Connect(ctx, cfg.Camunda, camunda.DefaultRetryConfig, log)
	if err != nil {
		return nil, nil, fmt.Errorf("zeebe client failed after retries: %w", err)
	}

	var workers []worker.JobWorker
	open := func(taskType string, handler worker.JobHandler) {
		if jw := camunda.StartWorker(client.Raw(), taskType, config.GetWorkerConfig(cfg, taskType), handler, log, obs); jw != nil {
			workers = append(workers, jw)
		}
	}

	if config.IsWorkerEnabled(cfg, crs.TaskType) {
		handler := crs.NewHandler(
			&crs.Config{
				Timeout: config.GetDuration(config.GetWorkerConfig(cfg, crs.TaskType).Timeout),
			},
			svc.Engine(), svc, validator, log,
		)
		open(crs.TaskType, handler.Handle)
	}

	if config.IsWorkerEnabled(cfg, cns.TaskType) {
		handler := cns.NewHandler(
			&cns.Config{
				Timeout: config.GetDuration(config.GetWorkerConfig(cfg, cns.TaskType).Timeout),
			},
			svc, log,
		)
		open(cns.TaskType, handler.Handle)
	}

	log.Info("workers registered", map[string]interface{}{"count": len(workers)})
	return workers, client, nil
}
