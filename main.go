package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dropshare/cache"
	"dropshare/config"
	"dropshare/email"
	"dropshare/handler"
	appLogger "dropshare/logger"
	"dropshare/middleware"
	"dropshare/newsletter"
	redisClient "dropshare/redis"
	"dropshare/registry"
	"dropshare/storage"
	"dropshare/utils"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"
)

// @title DropShare API
// @version 1.0
// @description Ephemeral file sharing with PIN protection, expiry and download caps.

// @BasePath /
// @schemes http https

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-Admin-Key

func main() {
	// Bootstrap logger so config errors are readable, then reconfigure from config
	appLogger.Initialize("info", true)

	cfg := config.MustLoadConfig()
	appLogger.Initialize(cfg.Logging.Level, cfg.Logging.Pretty)
	log.Info().Msg("Configuration loaded successfully")

	disk, err := storage.NewDisk(cfg.Storage.UploadDir)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize upload storage")
	}

	hasher, err := utils.NewPINHasher(cfg.Share.PINSecret)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize PIN hasher")
	}

	store := registry.New(disk, hasher, registry.Config{
		SlugLength:        cfg.Share.SlugLength,
		MinSlugLength:     cfg.Share.MinSlugLength,
		MaxSlugLength:     cfg.Share.MaxSlugLength,
		SuggestionsCount:  cfg.Share.SlugSuggestionsCount,
		LimitCleanupDelay: time.Duration(cfg.Share.LimitCleanupDelayMS) * time.Millisecond,
	})
	gate := registry.NewGate(store)

	sweeperCtx, stopSweeper := context.WithCancel(context.Background())
	defer stopSweeper()
	sweeper := registry.NewSweeper(store, time.Duration(cfg.Share.CleanupIntervalSeconds)*time.Second)
	sweeper.Start(sweeperCtx)

	cacheClient, err := cache.New(cfg.Cache)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize cache")
	}

	var rdb *redis.Client
	var subscribers *newsletter.Store
	if cfg.Newsletter.Enabled {
		rdb, err = redisClient.NewClient(context.Background(), cfg.Redis)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		mailer := email.NewService(cfg.Email, cfg.BaseURL())
		subscribers = newsletter.NewStore(rdb, newsletter.WithMailer(mailer))
		log.Info().Bool("email_enabled", cfg.Email.Enabled).Msg("Newsletter enabled")
	} else {
		log.Info().Msg("Newsletter disabled in configuration")
	}

	adminAuth, err := middleware.NewAdminAuth(cfg.Admin.APIKey, cfg.Admin.APIKeyHash, cfg.Admin.Enabled)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize admin authentication")
	}
	log.Info().Bool("enabled", adminAuth.Enabled()).Msg("Admin API configured")

	shareHandler := handler.NewShareHandler(cfg, handler.Services{
		Store:      store,
		Gate:       gate,
		Sweeper:    sweeper,
		Disk:       disk,
		Cache:      cacheClient,
		Newsletter: subscribers,
		Redis:      rdb,
	})


	serverAddress := fmt.Sprintf("%s:%s", cfg.WebServer.IP, cfg.WebServer.Port)
	server := &http.Server{
		Addr:         serverAddress,
		Handler:      shareHandler.Router(adminAuth),
		ReadTimeout:  time.Duration(cfg.WebServer.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.WebServer.WriteTimeout) * time.Second,
	}

	go func() {
		log.Info().
			Str("address", serverAddress).
			Str("base_url", cfg.BaseURL()).
			Str("upload_dir", disk.Dir()).
			Msg("Starting server")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.WebServer.ShutdownTimeout)*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	sweeper.Stop()
	store.Close()
	cacheClient.Close()

	if rdb != nil {
		if err := rdb.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close Redis connection")
		}
	}

	log.Info().Int("shares_dropped", store.Len()).Msg("Server stopped gracefully")
}
