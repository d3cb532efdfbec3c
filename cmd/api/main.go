package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"server/internal/http/handlers"
	httpapi "server/internal/http/httpapi"
	"server/internal/infra"
	"server/internal/orchestrator"
	"server/internal/providers/transcript"
	"server/internal/providers/video"
	"server/internal/publish"
	"server/internal/registry"
)

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
		logger.Fatal().Err(err).Msg("api: registry setup failed")
	}
	defer cleanup()

	orc, err := orchestrator.New(orchestrator.Options{
		Adapters:    buildAdapters(cfg, logger),
		Registry:    reg,
		Transcripts: buildTranscriptWriter(cfg, logger),
		Publisher:   buildPublisher(cfg, logger),
		Logger:      &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("api: orchestrator setup failed")
	}

	app := handlers.NewApp(orc, logger)
	router := httpapi.NewRouter(app, httpapi.Options{CORSAllowedOrigins: cfg.CORSAllowedOrigins})
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}

// buildRegistry selects the job registry backend from configuration and
// returns a cleanup for whatever connection it opened.
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

// buildAdapters constructs one adapter per configured provider. The synthetic
// adapter is always present so the API works without any credentials.
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
			logger.Warn().Err(err).Msg("pika adapter not configured")
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
			logger.Warn().Err(err).Msg("runway adapter not configured")
		} else {
			adapters[runway.Name()] = runway
		}
	}
	return adapters
}

func buildTranscriptWriter(cfg *infra.Config, logger infra.Logger) transcript.Writer {
	static := transcript.NewStaticWriter()
	if cfg.OpenAIAPIKey == "" {
		logger.Warn().Msg("openai api key missing, using static transcript writer")
		return static
	}
	writer, err := transcript.NewOpenAIWriter(transcript.OpenAIOptions{
		APIKey:       cfg.OpenAIAPIKey,
		Model:        cfg.OpenAIModel,
		BaseURL:      cfg.OpenAIBaseURL,
		Organization: cfg.OpenAIOrg,
		Fallback:     static,
		OnFallback: func(reason string, err error) {
			logger.Warn().Err(err).Str("reason", reason).Msg("transcript fallback engaged")
		},
	})
	if err != nil {
		logger.Warn().Err(err).Msg("openai writer not configured, using static transcript writer")
		return static
	}
	return writer
}

func buildPublisher(cfg *infra.Config, logger infra.Logger) publish.Sink {
	if cfg.YouTubeUploadURL == "" {
		return nil
	}
	sink, err := publish.NewYouTube(publish.YouTubeOptions{
		UploadURL:   cfg.YouTubeUploadURL,
		AccessToken: cfg.YouTubeAccessToken,
		Logger:      &logger,
	})
	if err != nil {
		logger.Warn().Err(err).Msg("youtube sink not configured")
		return nil
	}
	return sink
}
