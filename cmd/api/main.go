package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"orpheus_go_backend/cmd/api/config"
	"orpheus_go_backend/internal/api"
	"orpheus_go_backend/internal/auth"
	"orpheus_go_backend/internal/database"
	"orpheus_go_backend/internal/logging"
	"orpheus_go_backend/internal/services"
	"orpheus_go_backend/internal/utils/retry"
	"orpheus_go_backend/internal/wsocket"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/supabase-community/supabase-go"
)

const shutdownGrace = 30 * time.Second

func main() {
	cfg, err := config.Load(os.Args[1:])
	if errors.Is(err, config.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger, err := logging.Setup(cfg.LogLevel, cfg.LogFormat, os.Stdout)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithContext(ctx)

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("Server stopped with error")
	}
}

func run(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	backends := map[string]string{}
	var closers []io.Closer
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i].Close(); err != nil {
				logger.Warn().Err(err).Msg("Error closing resource")
			}
		}
	}()

	var sb *supabase.Client
	if cfg.SupabaseConfigured() {
		client, err := supabase.NewClient(cfg.SupabaseURL, cfg.SupabaseKey, nil)
		if err != nil {
			return fmt.Errorf("failed to create Supabase client: %w", err)
		}
		sb = client
	}

	podcastStore, profileStore, err := buildStores(ctx, cfg, sb, backends)
	if err != nil {
		return err
	}
	objects, err := buildObjectStore(ctx, cfg, sb, backends, &closers)
	if err != nil {
		return err
	}
	text, images, speech, err := buildAI(ctx, cfg, backends, &closers)
	if err != nil {
		return err
	}
	cache := buildCache(ctx, cfg, backends, &closers)
	verifier := buildVerifier(cfg, sb, backends)

	prompts, err := services.LoadPrompts(cfg.PromptsFile)
	if err != nil {
		return err
	}

	relay := services.NewImageRelayService(cfg.RelayTimeout, cfg.RelayMaxBytes())
	pipelineCfg := services.DefaultPipelineConfig()
	pipelineCfg.BucketCheck = retry.Policy{Attempts: cfg.RetryAttempts, Delay: cfg.RetryDelay, Backoff: retry.Fixed}
	pipelineCfg.Upload = retry.Policy{Attempts: cfg.RetryAttempts, Delay: cfg.RetryDelay, Backoff: retry.Linear}
	pipelineCfg.MaxPaperChars = cfg.MaxPaperChars
	pipeline := services.NewPipelineService(services.PipelineDeps{
		Extractor: services.NewContentExtractionService(cfg.MaxPDFPages),
		Store:     objects,
		Text:      text,
		Images:    images,
		Speech:    speech,
		Fetcher:   relay,
		Podcasts:  podcastStore,
		Cache:     cache,
		Prompts:   prompts,
	}, pipelineCfg)

	// Jobs outlive the signal context so a shutdown can let them finish.
	jobCtx, cancelJobs := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelJobs()
	jobs := services.NewJobService(jobCtx, pipeline, cfg.MaxConcurrentJobs)

	podcastService := services.NewPodcastService(podcastStore, objects, cache, cfg.SignedURLExpiry)
	profileService := services.NewProfileService(profileStore, podcastService, cache)

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     wsocket.CheckOrigin(cfg.AllowedOrigins),
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	if err := r.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return fmt.Errorf("invalid trusted proxies: %w", err)
	}
	if cfg.APIBaseURL == "" {
		logger.Warn().Msg("API_BASE_URL is not set; feed enclosures use the request host")
	}
	r.Use(gin.Recovery(), logging.Middleware(logger))
	api.SetupRoutes(r, api.Deps{
		Podcasts:       podcastService,
		Profiles:       profileService,
		Jobs:           jobs,
		Relay:          relay,
		Citations:      services.NewCitationService(cfg.PublicBaseURL),
		Feed:           services.NewFeedService(cfg.PublicBaseURL),
		Verifier:       verifier,
		Progress:       wsocket.NewHandler(jobs, upgrader, 30*time.Second),
		AllowedOrigins: cfg.AllowedOrigins,
		PublicBaseURL:  cfg.PublicBaseURL,
		APIBaseURL:     cfg.APIBaseURL,
		TrustedProxies: cfg.TrustedProxies,
		MaxUploadBytes: cfg.MaxUploadBytes(),
		Backends:       backends,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("port", cfg.Port).Interface("backends", backends).Msg("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("HTTP shutdown incomplete")
	}

	done := make(chan struct{})
	go func() {
		jobs.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-shutdownCtx.Done():
		logger.Warn().Msg("Cancelling unfinished generation jobs")
		cancelJobs()
		<-done
	}
	return nil
}

func buildStores(ctx context.Context, cfg *config.Config, sb *supabase.Client, backends map[string]string) (services.PodcastStore, services.ProfileStore, error) {
	switch {
	case cfg.DatabaseURL != "":
		db, err := database.Open(ctx, cfg.DatabaseURL, cfg.RunMigrations)
		if err != nil {
			return nil, nil, err
		}
		backends["database"] = "postgres"
		return services.NewGormPodcastStore(db), services.NewGormProfileStore(db), nil
	case sb != nil:
		backends["database"] = "supabase-rest"
		return services.NewRestPodcastStore(sb), services.NewRestProfileStore(sb), nil
	}
	zerolog.Ctx(ctx).Warn().Msg("No database configured; data routes will answer 503")
	backends["database"] = "not configured"
	return services.UnconfiguredPodcastStore{}, services.UnconfiguredProfileStore{}, nil
}

func buildObjectStore(ctx context.Context, cfg *config.Config, sb *supabase.Client, backends map[string]string, closers *[]io.Closer) (services.ObjectStore, error) {
	switch cfg.StorageBackend {
	case "s3":
		store, err := services.NewS3ObjectStore(ctx, services.S3Config{
			Region:     cfg.S3Region,
			Endpoint:   cfg.S3Endpoint,
			AccessKey:  cfg.S3AccessKey,
			SecretKey:  cfg.S3SecretKey,
			Bucket:     cfg.Bucket,
			PublicBase: cfg.S3PublicBase,
		})
		if err != nil {
			return nil, err
		}
		backends["storage"] = "s3"
		return store, nil
	case "gcs":
		store, err := services.NewGCSObjectStore(ctx, cfg.Bucket, cfg.GCSPublicBase)
		if err != nil {
			return nil, fmt.Errorf("failed to create GCS client: %w", err)
		}
		*closers = append(*closers, store)
		if cfg.GCSProjectID != "" {
			if err := store.EnsureBucket(ctx, cfg.GCSProjectID, cfg.GCSLocation); err != nil {
				return nil, err
			}
		}
		backends["storage"] = "gcs"
		return store, nil
	}
	if sb == nil {
		zerolog.Ctx(ctx).Warn().Msg("Supabase storage not configured; media routes will answer 503")
		backends["storage"] = "not configured"
		return services.UnconfiguredObjectStore{}, nil
	}
	backends["storage"] = "supabase"
	return services.NewSupabaseObjectStore(sb.Storage, cfg.SupabaseURL, cfg.Bucket), nil
}

func buildAI(ctx context.Context, cfg *config.Config, backends map[string]string, closers *[]io.Closer) (services.TextGenerator, services.ImageGenerator, services.SpeechSynthesizer, error) {
	var (
		text   services.TextGenerator     = services.UnconfiguredAI{}
		images services.ImageGenerator    = services.UnconfiguredAI{}
		speech services.SpeechSynthesizer = services.UnconfiguredAI{}
	)
	backends["ai"] = "not configured"

	if cfg.OpenAIKey != "" {
		openAI := services.NewOpenAIService(services.NewOpenAIClient(cfg.OpenAIKey, cfg.OpenAIBaseURL), services.OpenAIConfig{
			ChatModel:      cfg.ChatModel,
			ImageModel:     cfg.ImageModel,
			SpeechModel:    cfg.SpeechModel,
			Voice:          cfg.Voice,
			MaxSpeechChars: cfg.MaxSpeechChars,
		})
		text, images, speech = openAI, openAI, openAI
		backends["ai"] = "openai"
	}

	if cfg.TextProvider == "gemini" {
		if cfg.GeminiKey == "" {
			return nil, nil, nil, errors.New("text provider gemini needs GOOGLE_AI_STUDIO_API_KEY")
		}
		gemini, err := services.NewGeminiService(ctx, cfg.GeminiKey, cfg.GeminiModel)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to create Gemini client: %w", err)
		}
		*closers = append(*closers, gemini)
		text = gemini
		backends["text"] = "gemini"
	}
	if _, ok := text.(services.UnconfiguredAI); ok {
		zerolog.Ctx(ctx).Warn().Msg("No AI provider configured; generation will fail with 503")
	}
	return text, images, speech, nil
}

func buildCache(ctx context.Context, cfg *config.Config, backends map[string]string, closers *[]io.Closer) services.QueryCache {
	if cfg.RedisAddr != "" {
		cache, err := services.NewRedisQueryCache(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.CacheTTL)
		if err == nil {
			*closers = append(*closers, cache)
			backends["cache"] = "redis"
			return cache
		}
		zerolog.Ctx(ctx).Warn().Err(err).Msg("Falling back to in-process query cache")
	}
	backends["cache"] = "memory"
	return services.NewMemoryQueryCache(cfg.CacheTTL)
}

func buildVerifier(cfg *config.Config, sb *supabase.Client, backends map[string]string) auth.TokenVerifier {
	switch {
	case cfg.SupabaseJWTSecret != "":
		backends["auth"] = "jwt"
		return auth.NewJWTVerifier(cfg.SupabaseJWTSecret)
	case sb != nil:
		backends["auth"] = "gotrue"
		return auth.NewGoTrueVerifier(sb.Auth)
	}
	backends["auth"] = "not configured"
	return auth.UnconfiguredVerifier{}
}
