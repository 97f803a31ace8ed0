// Package main is the entry point for the horary judgment service. It wires
// configuration, the rule pack, the judgment engine, the history store and
// the HTTP API, and schedules retention cleanup in the background.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/aziz13-coder/newcodexhorary/internal/config"
	"github.com/aziz13-coder/newcodexhorary/internal/ephemeris"
	"github.com/aziz13-coder/newcodexhorary/internal/judgment"
	"github.com/aziz13-coder/newcodexhorary/internal/rules"
	"github.com/aziz13-coder/newcodexhorary/internal/server"
	"github.com/aziz13-coder/newcodexhorary/internal/store"
	"github.com/aziz13-coder/newcodexhorary/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: true,
	})

	log.Info().Str("rule_pack", cfg.Engine.RulePack).Msg("Starting horary judgment service")

	pack, err := rules.Named(cfg.Engine.RulePack)
	if err != nil {
		log.Fatal().Err(err).Str("pack", cfg.Engine.RulePack).Msg("Failed to load rule pack")
	}

	var eph ephemeris.Provider
	if cfg.EphemerisFile != "" {
		provider, err := ephemeris.LoadFile(cfg.EphemerisFile)
		if err != nil {
			log.Fatal().Err(err).Str("file", cfg.EphemerisFile).Msg("Failed to load ephemeris file")
		}
		eph = provider
		log.Info().Str("file", cfg.EphemerisFile).Msg("Ephemeris speed samples loaded")
	} else {
		log.Warn().Msg("No ephemeris file configured, station detection disabled")
	}

	engine, err := judgment.New(cfg.Engine, pack, eph, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build judgment engine")
	}

	db, err := store.Open(filepath.Join(cfg.DataDir, "history.db"))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open history database")
	}
	defer db.Close()

	retention := time.Duration(cfg.RetentionDays) * 24 * time.Hour
	history := store.NewRepository(db, retention, log)

	// Retention cleanup runs on the configured cron schedule.
	scheduler := cron.New()
	cleanup := store.NewCleanupJob(history, log)
	if _, err := scheduler.AddJob(cfg.CleanupSchedule, cleanup); err != nil {
		log.Fatal().Err(err).Str("schedule", cfg.CleanupSchedule).Msg("Failed to schedule history cleanup")
	}
	scheduler.Start()
	defer scheduler.Stop()
	log.Info().Str("schedule", cfg.CleanupSchedule).Msg("History cleanup scheduled")

	srv := server.New(server.Config{
		Log:     log,
		Engine:  engine,
		History: history,
		Cfg:     cfg,
	})

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()
	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server stopped")
}
