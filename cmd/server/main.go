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

	"github.com/sirupsen/logrus"

	"shortforge-backend/internal/config"
	"shortforge-backend/internal/database"
	"shortforge-backend/internal/handlers"
	"shortforge-backend/internal/logger"
	"shortforge-backend/internal/middleware"
	"shortforge-backend/internal/pipeline"
	"shortforge-backend/internal/publisher"
	"shortforge-backend/internal/repository"
	"shortforge-backend/internal/router"
	"shortforge-backend/internal/services"
	"shortforge-backend/internal/storage"
	"shortforge-backend/internal/websocket"
)

const adminTokenTTL = 12 * time.Hour

func main() {
	// ──── Step 1: Load Configuration ────
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	// ──── Step 2: Logger ────
	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	for _, w := range cfg.Warnings {
		log.Warn(w)
	}
	log.WithField("env", cfg.Env).Info("Starting ShortForge backend")

	ctx := context.Background()

	// ──── Step 3: PostgreSQL ────
	pool, err := database.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.WithError(err).Fatal("PostgreSQL connection failed")
	}
	defer pool.Close()
	log.Info("PostgreSQL connected")

	// ──── Step 4: Redis ────
	redisClients, err := database.NewRedisClients(ctx, cfg.RedisURL)
	if err != nil {
		log.WithError(err).Fatal("Redis connection failed")
	}
	defer redisClients.Close()
	log.Info("Redis connected")

	// ──── Step 5: Migrations ────
	if err := database.RunMigrations(ctx, pool, "migrations", log); err != nil {
		log.WithError(err).Fatal("Database migration failed")
	}

	// ──── Step 6: Asset Storage ────
	store, assets, err := newAssetStore(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("Asset storage initialization failed")
	}
	log.WithField("type", cfg.StorageType).Info("Asset storage ready")

	// ──── Step 7: Generation Services ────
	ideaRepo := repository.NewIdeaRepo(pool)
	projectRepo := repository.NewProjectRepo(pool)

	scriptService, err := services.NewScriptService(
		ctx,
		cfg.GeminiAPIKey,
		cfg.GeminiModel,
		cfg.GeminiConcurrentReqs,
		cfg.NumScenes,
		cfg.Settings.Script,
		log.WithField("component", "script"),
	)
	if err != nil {
		log.WithError(err).Fatal("Gemini client initialization failed")
	}
	defer scriptService.Close()

	mediaService := services.NewMediaService(
		services.NewArkGeneration(cfg.ArkAPIKey, cfg.ArkBaseURL, cfg.ArkImageModel, cfg.ArkVideoModel),
		store,
		cfg.VideoPollInterval,
		cfg.VideoPollAttempts,
		log.WithField("component", "media"),
	)

	events := services.NewEventPublisher(redisClients.Events, log.WithField("component", "events"))

	// ──── Step 8: Pipeline Engine + Trigger ────
	engine := pipeline.NewEngine(
		projectRepo,
		scriptService,
		mediaService,
		newPublishStep(ctx, cfg, store, log),
		events,
		log.WithField("component", "engine"),
		cfg.StageTimeout,
	)

	trigger := pipeline.NewTrigger(ideaRepo, engine, cfg.SchedulerInterval, log.WithField("component", "trigger"))
	trigger.Start()

	// ──── Step 9: WebSocket Hub ────
	jwtAuth := middleware.NewJWTAuth(cfg.JWTSecret, adminTokenTTL)
	hubCtx, stopHub := context.WithCancel(ctx)
	wsHub := websocket.NewHub(redisClients.PubSub, services.ProjectUpdatesChannel, jwtAuth, log.WithField("component", "ws"))
	go wsHub.Run(hubCtx)

	// ──── Step 10: HTTP Server ────
	loginLimiter := middleware.NewRateLimiter(10, time.Minute)
	defer loginLimiter.Stop()

	r := router.New(router.Deps{
		JWTAuth:        jwtAuth,
		LoginLimiter:   loginLimiter,
		AuthHandler:    handlers.NewAuthHandler(services.NewAdminAuth(cfg.AdminPasswordHash, jwtAuth, log)),
		IdeaHandler:    handlers.NewIdeaHandler(ideaRepo, log),
		ProjectHandler: handlers.NewProjectHandler(projectRepo),
		WSHub:          wsHub,
		Assets:         assets,
		CORSOrigin:     cfg.CORSOrigin,
		Log:            log.WithField("component", "http"),
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Info("Shutting down...")
		trigger.Stop()
		stopHub()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			log.WithError(err).Warn("HTTP server shutdown incomplete")
		}
	}()

	log.WithField("addr", server.Addr).Info("ShortForge backend ready")

	if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		log.WithError(err).Fatal("Server error")
	}
	<-shutdownDone
	log.Info("Shutdown complete")
}

// newAssetStore builds the configured store. For local storage it also
// returns the handler that serves the files under /assets.
func newAssetStore(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) (storage.AssetStore, http.Handler, error) {
	switch cfg.StorageType {
	case "minio":
		store, err := storage.NewMinIOStore(ctx, cfg.MinIOEndpoint, cfg.MinIOAccessKey, cfg.MinIOSecretKey,
			cfg.MinIOBucket, cfg.MinIOUseSSL, log.WithField("component", "storage"))
		if err != nil {
			return nil, nil, err
		}
		return store, nil, nil
	default:
		store, err := storage.NewLocalStore(cfg.StoragePath, cfg.PublicBaseURL)
		if err != nil {
			return nil, nil, err
		}
		return store, http.FileServer(http.Dir(store.Root())), nil
	}
}

// newPublishStep returns PausedPublishing unless publishing is enabled and
// at least one platform could be configured.
func newPublishStep(ctx context.Context, cfg *config.Config, store storage.AssetStore, log logrus.FieldLogger) pipeline.PublishStep {
	plog := log.WithField("component", "publish")
	if !cfg.PublishEnabled {
		plog.Info("Automatic publishing is paused (PUBLISH_ENABLED=false)")
		return pipeline.NewPausedPublishing(plog)
	}

	var publishers []pipeline.Publisher
	for _, platform := range cfg.PublishPlatforms {
		var (
			p   pipeline.Publisher
			err error
		)
		switch platform {
		case "youtube":
			p, err = publisher.NewYouTubePublisher(ctx, cfg.YouTubeClientID, cfg.YouTubeClientSecret,
				cfg.YouTubeRefreshToken, store, cfg.Settings.YouTube, plog)
		case "instagram":
			p, err = publisher.NewInstagramPublisher(cfg.InstagramAccountID, cfg.InstagramAccessToken,
				store, cfg.Settings.Instagram, plog)
		default:
			err = fmt.Errorf("unknown platform %q", platform)
		}
		if err != nil {
			plog.WithError(err).WithField("platform", platform).Warn("Publishing platform disabled")
			continue
		}
		publishers = append(publishers, p)
	}

	if len(publishers) == 0 {
		plog.Warn("No publishing platform could be configured, publishing stays paused")
		return pipeline.NewPausedPublishing(plog)
	}
	plog.WithField("platforms", len(publishers)).Info("Automatic publishing enabled")
	return pipeline.NewPlatformPublishing(plog, publishers...)
}
