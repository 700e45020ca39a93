package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr       string
	BackendURL string
	DBPath     string

	BackendTimeout time.Duration
	LogLevel       string
	// TimeZone sert à l'affichage des dates ("" ou "Local" = fuseau du process).
	TimeZone string

	AuthPollInterval time.Duration
	AuthTimeout      time.Duration
	// SyncMinInterval est l'écart minimal entre deux syncs manuelles d'une même session.
	SyncMinInterval time.Duration
	SessionMaxIdle  time.Duration
}

// Default lit l'environnement courant et applique les valeurs par défaut.
// Une durée illisible garde sa valeur par défaut; Load signale l'erreur.
func Default() Config {
	cfg, _ := fromEnv()
	return cfg
}

// Load précharge un fichier .env (s'il existe) puis lit l'environnement.
// Les variables déjà définies dans le process ne sont pas écrasées.
func Load(envFile string) (Config, error) {
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load %s: %w", envFile, err)
	}
	return fromEnv()
}

func fromEnv() (Config, error) {
	cfg := Config{
		Addr:       envOr("TRAKT_PANEL_ADDR", "127.0.0.1:8090"),
		BackendURL: envOr("TRAKT_PANEL_BACKEND_URL", "http://127.0.0.1:8000"),
		DBPath:     envOr("TRAKT_PANEL_DB_PATH", "trakt-panel.db"),
		LogLevel:   strings.ToLower(envOr("TRAKT_PANEL_LOG_LEVEL", "info")),
		TimeZone:   envOr("TRAKT_PANEL_TZ", "Local"),
	}

	var errs []error
	dur := func(key string, def time.Duration) time.Duration {
		v := strings.TrimSpace(os.Getenv(key))
		if v == "" {
			return def
		}
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			errs = append(errs, fmt.Errorf("%s: invalid duration %q", key, v))
			return def
		}
		return d
	}
	cfg.BackendTimeout = dur("TRAKT_PANEL_BACKEND_TIMEOUT", 15*time.Second)
	cfg.AuthPollInterval = dur("TRAKT_PANEL_AUTH_POLL_INTERVAL", 5*time.Second)
	cfg.AuthTimeout = dur("TRAKT_PANEL_AUTH_TIMEOUT", 5*time.Minute)
	cfg.SyncMinInterval = dur("TRAKT_PANEL_SYNC_RATE", 10*time.Second)
	cfg.SessionMaxIdle = dur("TRAKT_PANEL_SESSION_MAX_IDLE", 24*time.Hour)

	return cfg, errors.Join(errs...)
}

// Location résout TimeZone.
func (c Config) Location() (*time.Location, error) {
	tz := strings.TrimSpace(c.TimeZone)
	if tz == "" || strings.EqualFold(tz, "local") {
		return time.Local, nil
	}
	return time.LoadLocation(tz)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
