package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/Guilhem-Bonnet/trakt-sync-panel/internal/domain"
	"github.com/Guilhem-Bonnet/trakt-sync-panel/internal/ports"
)

type SessionService struct {
	repo ports.PanelSessionRepository
	now  func() time.Time
}

func NewSessionService(repo ports.PanelSessionRepository) *SessionService {
	return &SessionService{repo: repo, now: func() time.Time { return time.Now().UTC() }}
}

// NewID génère un identifiant de session (xid, sûr dans un cookie).
func (s *SessionService) NewID() string {
	return xid.New().String()
}

// Get renvoie la session, ou une session neuve (non persistée) si elle est inconnue.
func (s *SessionService) Get(ctx context.Context, id string) (domain.PanelSession, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.NewPanelSession(s.NewID(), s.now()), nil
	}
	sess, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return domain.NewPanelSession(id, s.now()), nil
		}
		return domain.PanelSession{}, err
	}
	if sess.HistoryPage < 1 {
		sess.HistoryPage = 1
	}
	return sess, nil
}

func (s *SessionService) SetHistoryPage(ctx context.Context, id string, page int) (domain.PanelSession, error) {
	sess, err := s.Get(ctx, id)
	if err != nil {
		return domain.PanelSession{}, err
	}
	if page < 1 {
		page = 1
	}
	sess.HistoryPage = page
	sess.UpdatedAt = s.now()
	return s.repo.Put(ctx, sess)
}

// Prune supprime les sessions inactives depuis plus de maxIdle.
func (s *SessionService) Prune(ctx context.Context, maxIdle time.Duration) (int, error) {
	if maxIdle <= 0 {
		return 0, nil
	}
	return s.repo.DeleteIdle(ctx, s.now().Add(-maxIdle))
}
