package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"momogate/config"
	"momogate/internal/database"
	"momogate/internal/logging"
	"momogate/internal/router"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}
	logger := logging.New(cfg.Server.Env, cfg.Log.Level)

	var db *gorm.DB
	if cfg.Database.DSN != "" {
		db, err = database.NewDB(&cfg.Database)
		if err != nil {
			logger.Fatal().Err(err).Msg("database")
		}
		if err := database.AutoMigrate(db); err != nil {
			logger.Fatal().Err(err).Msg("migrate")
		}
	} else {
		logger.Warn().Msg("DB_DSN not set, payment outcomes are only logged")
	}

	engine, err := router.Setup(cfg, db, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("router")
	}
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		logger.Info().
			Str("port", cfg.Server.Port).
			Bool("live", cfg.IsProduction()).
			Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("listen")
		}
	}()
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	logger.Info().Str("signal", sig.String()).Msg("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown")
	}
	logger.Info().Msg("server stopped")
}
