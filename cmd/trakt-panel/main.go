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

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Guilhem-Bonnet/trakt-sync-panel/internal/adapters/httpapi"
	"github.com/Guilhem-Bonnet/trakt-sync-panel/internal/adapters/memorybus"
	"github.com/Guilhem-Bonnet/trakt-sync-panel/internal/adapters/sqlite"
	"github.com/Guilhem-Bonnet/trakt-sync-panel/internal/adapters/traktapi"
	"github.com/Guilhem-Bonnet/trakt-sync-panel/internal/app"
	"github.com/Guilhem-Bonnet/trakt-sync-panel/internal/buildinfo"
	"github.com/Guilhem-Bonnet/trakt-sync-panel/internal/config"
)

func main() {
	envFile := flag.String("env", ".env", "Fichier .env optionnel")
	addr := flag.String("addr", "", "Adresse d'écoute (ex: 127.0.0.1:8090)")
	dbPath := flag.String("db", "", "Chemin SQLite des sessions du panneau")
	backendURL := flag.String("backend", "", "URL du backend Trakt (ex: http://127.0.0.1:8000)")
	flag.Parse()

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("app", "trakt-panel").Logger()
	log.Logger = logger

	cfg, err := config.Load(*envFile)
	if err != nil {
		logger.Warn().Err(err).Msg("config: falling back to defaults for invalid values")
	}
	if *addr != "" {
		cfg.Addr = *addr
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}
	if *backendURL != "" {
		cfg.BackendURL = *backendURL
	}

	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	} else {
		logger.Warn().Str("level", cfg.LogLevel).Msg("unknown log level, using info")
	}

	loc, err := cfg.Location()
	if err != nil {
		logger.Warn().Err(err).Str("tz", cfg.TimeZone).Msg("unknown time zone, using local")
		loc = time.Local
	}

	logger.Info().
		Interface("build", buildinfo.Current()).
		Str("db", cfg.DBPath).
		Str("backend", cfg.BackendURL).
		Msg("starting")

	ctx := context.Background()
	db, err := sqlite.Open(ctx, cfg.DBPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open db")
	}
	defer func() { _ = db.Close() }()

	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bus := memorybus.New()
	defer bus.Close()

	backend := traktapi.NewClient(cfg.BackendURL, cfg.BackendTimeout)
	sessions := app.NewSessionService(sqlite.NewSessionRepository(db.SQL))
	format := app.Formatter{Location: loc, Now: time.Now}
	panel := app.NewPanelService(logger.With().Str("component", "panel").Logger(), backend, sessions, format)

	relay := httpapi.NewWindowRelay(logger.With().Str("component", "window-relay").Logger(), bus)
	authOpts := app.DefaultAuthOptions()
	authOpts.PollInterval = cfg.AuthPollInterval
	authOpts.Timeout = cfg.AuthTimeout
	wizard := app.NewAuthWizard(shutdownCtx, logger.With().Str("component", "auth").Logger(), backend, relay, bus, authOpts)

	// Janitor: purge des sessions du panneau inactives.
	janitor := app.NewSessionJanitor(logger.With().Str("component", "janitor").Logger(), sessions)
	janitor.MaxIdle = cfg.SessionMaxIdle
	janitor.Auth = wizard
	go janitor.Run(shutdownCtx)

	srv := httpapi.NewServer(logger, panel, wizard, bus, relay, httpapi.NewSessionLimiter(cfg.SyncMinInterval, 1))
	srv.SessionMaxAge = cfg.SessionMaxIdle
	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", cfg.Addr).Msg("listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("http server crashed")
			stop()
		}
	}()

	<-shutdownCtx.Done()
	logger.Info().Msg("shutting down")

	// Ferme les flux SSE avant Shutdown, qui attend la fin des requêtes.
	bus.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(ctx)
	logger.Info().Msg("bye")
}
