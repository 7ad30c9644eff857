package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/voxplay/voxplay/internal/api"
	"github.com/voxplay/voxplay/internal/config"
	"github.com/voxplay/voxplay/internal/database"
	"github.com/voxplay/voxplay/internal/history"
	"github.com/voxplay/voxplay/internal/logger"
	"github.com/voxplay/voxplay/internal/playback"
	"github.com/voxplay/voxplay/internal/plex"
	"github.com/voxplay/voxplay/internal/refresh"
	"github.com/voxplay/voxplay/internal/scheduler"
	"github.com/voxplay/voxplay/internal/scheduler/tasks"
	"github.com/voxplay/voxplay/internal/snapshot"
	"github.com/voxplay/voxplay/internal/voice"
)

func main() {
	// Local development convenience; a missing .env file is fine.
	_ = godotenv.Load()

	configPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Path:   cfg.Logging.Path,
	})
	defer log.Close()

	log.Info().
		Str("logLevel", cfg.Logging.Level).
		Str("plexURL", cfg.Plex.URL).
		Msg("starting voxplay")

	db, err := database.New(cfg.History.Path)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open history database")
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	historySvc := history.NewService(db.Conn(), log.Logger)

	plexClient := plex.NewClient(cfg.Plex, log.Logger)
	if !plexClient.IsConfigured() {
		log.Warn().Msg("plex server is not configured; set VOXPLAY_PLEX_URL and VOXPLAY_PLEX_TOKEN")
	}
	directory := plex.NewDirectory(plexClient)
	players := plex.NewPlayers(plexClient, log.Logger)

	dispatcher := playback.NewDispatcher(log.Logger)
	dispatcher.RegisterClass(playback.ClassChromecast, players)
	dispatcher.RegisterClass(playback.ClassTheater, players)
	dispatcher.SetRecorder(playback.MultiRecorder{historySvc, directory})

	store := snapshot.NewStore()
	triggers := api.NewTriggerRegistry(log.Logger)
	coordinator := refresh.NewCoordinator(plexClient, store, triggers, log.Logger)
	coordinator.SetSettleDelay(time.Duration(cfg.Refresh.SettleSeconds) * time.Second)

	bridge := api.NewBridge(log.Logger)
	engine := voice.NewEngine(store, plexClient, dispatcher, directory, bridge, bridge, log.Logger)
	engine.SetRefresher(coordinator)

	sched, err := scheduler.New(log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create scheduler")
	}
	if err := tasks.RegisterCatalogRefreshTask(sched, coordinator, cfg.Refresh.Cron); err != nil {
		log.Fatal().Err(err).Msg("failed to register catalog refresh task")
	}
	if err := tasks.RegisterDeviceRefreshTask(sched, directory); err != nil {
		log.Fatal().Err(err).Msg("failed to register device refresh task")
	}

	// First rebuild before accepting traffic. Failure is tolerated; the
	// voice engine answers "no media items" until a rebuild succeeds.
	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 2*time.Minute)
	if _, err := coordinator.Rebuild(startupCtx); err != nil {
		log.Warn().Err(err).Msg("initial catalog rebuild failed")
	}
	cancelStartup()

	if err := sched.Start(); err != nil {
		log.Fatal().Err(err).Msg("failed to start scheduler")
	}

	server := api.NewServer(cfg, api.Dependencies{
		Store:       store,
		Coordinator: coordinator,
		Engine:      engine,
		Bridge:      bridge,
		Triggers:    triggers,
		History:     historySvc,
		Scheduler:   sched,
		Devices:     directory,
		Logs:        log,
	}, log.Logger)

	go func() {
		if err := server.Start(cfg.Server.Address()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	log.Info().Msg("received shutdown signal")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := sched.Stop(); err != nil {
		log.Error().Err(err).Msg("scheduler shutdown error")
	}
	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server shutdown error")
	}

	log.Info().Msg("server stopped")
}
