package app

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

type SessionJanitor struct {
	logger   zerolog.Logger
	sessions *SessionService

	// Auth, si renseigné, voit ses flux inactifs purgés au même rythme.
	Auth *AuthWizard

	TickInterval time.Duration
	MaxIdle      time.Duration
}

func NewSessionJanitor(logger zerolog.Logger, sessions *SessionService) *SessionJanitor {
	return &SessionJanitor{
		logger:       logger,
		sessions:     sessions,
		TickInterval: 10 * time.Minute,
		MaxIdle:      24 * time.Hour,
	}
}

func (j *SessionJanitor) Run(ctx context.Context) {
	interval := j.TickInterval
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			j.logger.Info().Msg("session janitor stopped")
			return
		case <-ticker.C:
			j.tick(ctx)
		}
	}
}

func (j *SessionJanitor) tick(ctx context.Context) {
	if j.Auth != nil {
		if n := j.Auth.Prune(j.MaxIdle); n > 0 {
			j.logger.Info().Int("removed", n).Msg("idle auth flows pruned")
		}
	}
	if j.sessions == nil {
		return
	}
	n, err := j.sessions.Prune(ctx, j.MaxIdle)
	if err != nil {
		j.logger.Error().Err(err).Msg("session prune failed")
		return
	}
	if n > 0 {
		j.logger.Info().Int("removed", n).Msg("idle panel sessions pruned")
	}
}
