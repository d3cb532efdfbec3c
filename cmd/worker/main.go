// The worker advances non-terminal generation jobs in the background so
// callers that stop polling still end up with a settled record, and prunes
// expired terminal records.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"server/internal/infra"
	"server/internal/orchestrator"
	"server/internal/providers/video"
	"server/internal/registry"
)

type statusWorker struct {
	ctx          context.Context
	orchestrator *orchestrator.Orchestrator
	registry     registry.Registry
	logger       infra.Logger
	pollInterval time.Duration
}

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg, cleanup, err := buildRegistry(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: registry setup failed")
	}
	defer cleanup()

	orc, err := orchestrator.New(orchestrator.Options{
		Adapters: buildAdapters(cfg, logger),
		Registry: reg,
		Logger:   &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: orchestrator setup failed")
	}

	worker := &statusWorker{
		ctx:          ctx,
		orchestrator: orc,
		registry:     reg,
		logger:       logger,
		pollInterval: cfg.WorkerPollInterval,
	}

	if err := worker.Run(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("worker: stopped with error")
	}
	logger.Info().Msg("worker: stopped")
}

func (w *statusWorker) Run() error {
	w.logger.Info().Dur("poll_interval", w.pollInterval).Msg("worker: started")
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return w.ctx.Err()
		case <-ticker.C:
			w.sweep()
		}
	}
}

// sweep advances every non-terminal record one poll step, then drops expired
// terminal records.
func (w *statusWorker) sweep() {
	records, err := w.registry.List(w.ctx)
	if err != nil {
		w.logger.Error().Err(err).Msg("worker: list records failed")
		return
	}

	advanced := 0
	for _, rec := range records {
		if rec.Status.State.Terminal() {
			continue
		}
		status, err := w.orchestrator.GetStatus(w.ctx, rec.Handle.ID)
		if err != nil {
			w.logger.Error().Err(err).Str("handle_id", rec.Handle.ID).Msg("worker: status advance failed")
			continue
		}
		advanced++
		if status.State.Terminal() {
			w.logger.Info().
				Str("handle_id", rec.Handle.ID).
				Str("provider", rec.Handle.Provider).
				Str("state", string(status.State)).
				Msg("worker: job settled")
		}
	}

	pruned, err := w.registry.Prune(w.ctx)
	if err != nil {
		w.logger.Error().Err(err).Msg("worker: prune failed")
		return
	}
	if advanced > 0 || pruned > 0 {
		w.logger.Debug().Int("advanced", advanced).Int("pruned", pruned).Msg("worker: sweep done")
	}
}

func buildRegistry(ctx context.Context, cfg *infra.Config, logger infra.Logger) (registry.Registry, func(), error) {
	switch cfg.RegistryBackend {
	case infra.RegistryBackendRedis:
		client, err := infra.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		return registry.NewRedis(client, cfg.RegistryTTL), func() { _ = client.Close() }, nil
	case infra.RegistryBackendPostgres:
		pool, err := infra.NewDBPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		runner := infra.NewSQLRunner(pool, logger)
		return registry.NewPostgres(runner, cfg.RegistryTTL), pool.Close, nil
	default:
		return registry.NewMemory(cfg.RegistryTTL), func() {}, nil
	}
}

func buildAdapters(cfg *infra.Config, logger infra.Logger) map[string]video.Adapter {
	adapters := map[string]video.Adapter{
		"synthetic": video.NewSynthetic(15 * time.Second),
	}
	if cfg.PikaAPIKey != "" {
		pika, err := video.NewPika(video.PikaOptions{
			APIKey:         cfg.PikaAPIKey,
			BaseURL:        cfg.PikaBaseURL,
			Logger:         &logger,
			RequestTimeout: cfg.ProviderTimeout,
		})
		if err != nil {
			logger.Warn().Err(err).Msg("worker: pika adapter not configured")
		} else {
			adapters[pika.Name()] = pika
		}
	}
	if cfg.RunwayAPIKey != "" {
		runway, err := video.NewRunway(video.RunwayOptions{
			APIKey:         cfg.RunwayAPIKey,
			BaseURL:        cfg.RunwayBaseURL,
			Logger:         &logger,
			RequestTimeout: cfg.ProviderTimeout,
		})
		if err != nil {
			logger.Warn().Err(err).Msg("worker: runway adapter not configured")
		} else {
			adapters[runway.Name()] = runway
		}
	}
	return adapters
}
