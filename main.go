package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"tipscan/pkg/logger"
	"tipscan/pkg/ocr"
	"tipscan/pkg/storage"
)

var (
	jwtSecret []byte
	log       = zerolog.Nop()
	scanner   *ocr.Scanner
	sessions  = ocr.NewSessions()
	store     storage.Store
)

func main() {
	cfg, err := loadConfig(".")
	if err != nil {
		logger.New(logger.Options{}).Fatal().Err(err).Msg("config")
	}
	log = logger.New(logger.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
	jwtSecret = []byte(cfg.JWT.Secret)
	if cfg.JWT.Secret == devJWTSecret {
		log.Warn().Msg("using development JWT secret; set TIPSCAN_JWT_SECRET")
	}

	// `tipscan migrate` runs AutoMigrate and seeding then exits.
	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		cfg.DB.AutoMigrate = true
		if err := initDB(cfg.DB); err != nil {
			log.Fatal().Err(err).Msg("database")
		}
		if err := seedDB(cfg.Admin.Password); err != nil {
			log.Fatal().Err(err).Msg("seed")
		}
		log.Info().Msg("migration and seeding completed")
		return
	}

	if err := initDB(cfg.DB); err != nil {
		log.Fatal().Err(err).Msg("database")
	}
	if err := seedDB(cfg.Admin.Password); err != nil {
		log.Error().Err(err).Msg("seed")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err = newStore(ctx, cfg.Storage)
	if err != nil {
		log.Fatal().Err(err).Msg("storage")
	}
	scanner = newScanner(cfg.OCR)

	r := gin.New()
	r.Use(gin.Recovery(), requestIDMiddleware(), requestLogger())
	setupRoutes(r)

	srv := &http.Server{Addr: cfg.Addr, Handler: r}
	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdown)
	}()
	log.Info().Str("addr", cfg.Addr).Str("storage", cfg.Storage.Kind).Msg("listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("server")
	}
}

func newScanner(cfg OCRConfig) *ocr.Scanner {
	engine := ocr.NewTesseractEngine(cfg.Language)
	engine.Whitelist = cfg.Whitelist
	var profiles []ocr.Profile
	for _, name := range cfg.Profiles {
		p, ok := ocr.ParseProfile(name)
		if !ok {
			log.Warn().Str("profile", name).Msg("unknown preprocessing profile ignored")
			continue
		}
		profiles = append(profiles, p)
	}
	return ocr.NewScanner(engine, ocr.WithProfiles(profiles...), ocr.WithAcceptConfidence(cfg.AcceptConfidence))
}

func newStore(ctx context.Context, cfg StorageConfig) (storage.Store, error) {
	if cfg.Kind == "minio" {
		return storage.NewMinIOStore(ctx, storage.MinIOConfig{
			Endpoint:  cfg.MinIO.Endpoint,
			AccessKey: cfg.MinIO.AccessKey,
			SecretKey: cfg.MinIO.SecretKey,
			Bucket:    cfg.MinIO.Bucket,
			UseSSL:    cfg.MinIO.UseSSL,
		})
	}
	return storage.NewLocalStore(cfg.Dir)
}
