package ports

import (
	"context"

	"github.com/Guilhem-Bonnet/trakt-sync-panel/internal/domain"
)

// TraktBackend couvre les endpoints REST consommés par le panneau.
type TraktBackend interface {
	// GetConfig renvoie nil (sans erreur) quand aucune configuration n'existe.
	GetConfig(ctx context.Context) (*domain.ConnectionConfig, error)
	UpdateConfig(ctx context.Context, update domain.ConfigUpdate) (*domain.ConnectionConfig, error)
	GetSyncStatus(ctx context.Context) (domain.SyncStatus, error)
	TriggerSync(ctx context.Context, req domain.ManualSyncRequest) (domain.MessageResponse, error)
	Disconnect(ctx context.Context) (domain.MessageResponse, error)
	InitAuth(ctx context.Context, req domain.AuthInitRequest) (domain.AuthInitResponse, error)
	History(ctx context.Context, cursor domain.HistoryCursor) (domain.SyncHistoryPage, error)
}
