package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/Guilhem-Bonnet/trakt-sync-panel/internal/domain"
	"github.com/Guilhem-Bonnet/trakt-sync-panel/internal/ports"
)

type SessionRepository struct {
	db *sql.DB
}

func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Get(ctx context.Context, id string) (domain.PanelSession, error) {
	var (
		s                  domain.PanelSession
		created, updatedAt int64
	)
	err := r.db.QueryRowContext(ctx, `SELECT id, history_page, created_at, updated_at FROM panel_sessions WHERE id = ?`, id).
		Scan(&s.ID, &s.HistoryPage, &created, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.PanelSession{}, ports.ErrNotFound
		}
		return domain.PanelSession{}, err
	}
	s.CreatedAt = time.UnixMilli(created).UTC()
	s.UpdatedAt = time.UnixMilli(updatedAt).UTC()
	return s, nil
}

// Put crée ou met à jour la session; created_at n'est jamais réécrit.
func (r *SessionRepository) Put(ctx context.Context, s domain.PanelSession) (domain.PanelSession, error) {
	now := time.Now().UTC()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	if s.UpdatedAt.IsZero() {
		s.UpdatedAt = now
	}
	if s.HistoryPage < 1 {
		s.HistoryPage = 1
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO panel_sessions(id, history_page, created_at, updated_at)
		VALUES(?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET history_page = excluded.history_page, updated_at = excluded.updated_at
	`, s.ID, s.HistoryPage, s.CreatedAt.UnixMilli(), s.UpdatedAt.UnixMilli())
	if err != nil {
		return domain.PanelSession{}, err
	}
	return r.Get(ctx, s.ID)
}

func (r *SessionRepository) DeleteIdle(ctx context.Context, before time.Time) (int, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM panel_sessions WHERE updated_at < ?`, before.UTC().UnixMilli())
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}
