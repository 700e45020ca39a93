package ports

import (
	"context"
	"time"

	"github.com/Guilhem-Bonnet/trakt-sync-panel/internal/domain"
)

type PanelSessionRepository interface {
	// Get renvoie ErrNotFound si la session est inconnue.
	Get(ctx context.Context, id string) (domain.PanelSession, error)
	Put(ctx context.Context, session domain.PanelSession) (domain.PanelSession, error)
	// DeleteIdle supprime les sessions non modifiées depuis before.
	DeleteIdle(ctx context.Context, before time.Time) (int, error)
}
