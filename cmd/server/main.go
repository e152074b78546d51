package main

import (
	"context"
	"os"
	"time"

	"bookkeeping-backend/internal/archive"
	"bookkeeping-backend/internal/config"
	handler "bookkeeping-backend/internal/handlers"
	"bookkeeping-backend/internal/logger"
	"bookkeeping-backend/internal/repository"
	"bookkeeping-backend/internal/routes"
	"bookkeeping-backend/internal/services/bwa"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New("info")
		bootLog.Fatal().Err(err).Msg("load config")
	}

	log := logger.New(cfg.LogLevel)
	if envErr != nil {
		log.Info().Msg("No .env file found, relying on system env")
	}

	db, err := config.InitDB(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.DBDriver).Msg("open database")
	}
	if err := repository.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migrate database")
	}

	var archiver bwa.Archiver
	if cfg.ReportBucket != "" {
		gcs, err := archive.NewGCSArchiver(context.Background(), cfg.ReportBucket)
		if err != nil {
			log.Fatal().Err(err).Str("bucket", cfg.ReportBucket).Msg("create report archiver")
		}
		defer gcs.Close()
		archiver = gcs
		log.Info().Str("bucket", cfg.ReportBucket).Msg("BWA archive enabled")
	}

	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(handler.RequestLogger(log), gin.Recovery())
	// CORS config
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	routes.RegisterRoutes(r, db, cfg, log, archiver)

	log.Info().Str("port", cfg.Port).Msg("server starting")
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
