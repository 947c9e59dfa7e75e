package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/dbpg"
	"github.com/wb-go/wbf/zlog"
	_ "github.com/yokitheyo/imageresizer/docs"
	"github.com/yokitheyo/imageresizer/internal/config"
	"github.com/yokitheyo/imageresizer/internal/domain"
	httpHandler "github.com/yokitheyo/imageresizer/internal/handler/http"
	infradatabase "github.com/yokitheyo/imageresizer/internal/infrastructure/database"
	"github.com/yokitheyo/imageresizer/internal/infrastructure/kafka"
	"github.com/yokitheyo/imageresizer/internal/infrastructure/processor"
	"github.com/yokitheyo/imageresizer/internal/infrastructure/storage"
	"github.com/yokitheyo/imageresizer/internal/repository/naming"
	"github.com/yokitheyo/imageresizer/internal/repository/postgres"
	"github.com/yokitheyo/imageresizer/internal/retry"
	"github.com/yokitheyo/imageresizer/internal/usecase"
)

// @title        Image Resizer API
// @version      1.0
// @description  Upload, resize, watermark and download images.
// @BasePath     /
func main() {
	zlog.Init()
	zlog.Logger.Info().Msg("Starting Image Resizer API Server")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load config
	cfg, err := config.Load("")
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("failed to load config")
	}
	setLogLevel(cfg.Logging.Level)

	// Setup Storage
	storageService, err := storage.New(&cfg.Storage)
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("Failed to initialize storage")
	}

	// Image index
	var (
		index    domain.ImageIndex
		database *dbpg.DB
	)
	switch cfg.Index.Type {
	case config.IndexPostgres:
		database, err = infradatabase.Connect(&cfg.Database)
		if err != nil {
			zlog.Logger.Fatal().Err(err).Msg("failed to connect to database after all retries")
		}
		if cfg.Migrations.Enabled {
			zlog.Logger.Info().Msg("Running database migrations...")
			if err := infradatabase.RunMigrations(database); err != nil {
				zlog.Logger.Fatal().Err(err).Msg("Migrations failed")
			}
		}
		index = postgres.NewImageRepository(database, retry.Strategy(cfg.Database.QueryAttempts))
	default:
		index = naming.NewImageIndex(storageService)
	}
	zlog.Logger.Info().Str("type", cfg.Index.Type).Msg("Image index ready")

	imageProcessor, err := processor.NewImageProcessor(&cfg.Processing)
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("Failed to initialize image processor")
	}

	events := kafka.NewPublisher(&cfg.Kafka)
	defer events.Close()

	imageUsecase := usecase.NewImageUsecase(
		index,
		storageService,
		imageProcessor,
		events,
		cfg.Server.MaxUploadBytes(),
		cfg.Processing.AllowedMimeTypes,
	)

	engine := httpHandler.NewRouter(cfg.Server.GinMode, imageUsecase, cfg.Server.MaxUploadBytes())

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      engine,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSec) * time.Second,
	}

	go func() {
		zlog.Logger.Info().Str("addr", cfg.Server.Addr).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Logger.Fatal().Err(err).Msg("Failed to start API server")
		}
	}()

	<-ctx.Done()
	zlog.Logger.Info().Msg("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeoutSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Logger.Error().Err(err).Msg("HTTP server shutdown failed")
	} else {
		zlog.Logger.Info().Msg("HTTP server stopped gracefully")
	}

	infradatabase.Close(database)

	zlog.Logger.Info().Msg("API shutdown complete")
}

func setLogLevel(level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		zlog.Logger.Warn().Str("level", level).Msg("unknown log level, keeping info")
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}
