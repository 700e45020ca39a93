package app

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Guilhem-Bonnet/trakt-sync-panel/internal/domain"
	"github.com/Guilhem-Bonnet/trakt-sync-panel/internal/ports"
)

const (
	defaultNoticeTTL     = 3 * time.Second
	defaultFollowUpDelay = 1 * time.Second
)

// HistoryNav est la navigation demandée sur l'historique.
type HistoryNav string

const (
	HistoryRefresh HistoryNav = "refresh"
	HistoryFirst   HistoryNav = "first"
	HistoryPrev    HistoryNav = "prev"
	HistoryNext    HistoryNav = "next"
)

func ParseHistoryNav(s string) HistoryNav {
	switch HistoryNav(strings.ToLower(strings.TrimSpace(s))) {
	case HistoryFirst:
		return HistoryFirst
	case HistoryPrev:
		return HistoryPrev
	case HistoryNext:
		return HistoryNext
	default:
		return HistoryRefresh
	}
}

// ActionResult décrit l'effet d'une action utilisateur sur la page.
type ActionResult struct {
	Notice Notification
	// Config est non-nil quand la région config doit être re-rendue immédiatement.
	Config    *ConfigView
	FollowUps []FollowUp
	Err       *CodedError
}

func (r ActionResult) OK() bool { return r.Err == nil }

// PageView agrège les trois régions chargées à l'ouverture de la page.
type PageView struct {
	SessionID string
	Config    ConfigView
	Status    StatusView
	History   HistoryView
}

type PanelService struct {
	logger   zerolog.Logger
	backend  ports.TraktBackend
	sessions *SessionService
	format   Formatter

	NoticeTTL     time.Duration
	FollowUpDelay time.Duration
}

func NewPanelService(logger zerolog.Logger, backend ports.TraktBackend, sessions *SessionService, format Formatter) *PanelService {
	return &PanelService{
		logger:        logger,
		backend:       backend,
		sessions:      sessions,
		format:        format,
		NoticeTTL:     defaultNoticeTTL,
		FollowUpDelay: defaultFollowUpDelay,
	}
}

func (p *PanelService) Formatter() Formatter { return p.format }

// Open prépare la page: curseur d'historique remis à 1 puis trois chargements
// indépendants en parallèle. L'échec d'un chargement n'affecte pas les autres.
func (p *PanelService) Open(ctx context.Context, sessionID string) PageView {
	view := PageView{SessionID: sessionID}
	if _, err := p.sessions.SetHistoryPage(ctx, sessionID, 1); err != nil {
		p.logger.Warn().Err(err).Str("session", sessionID).Msg("reset history page failed")
	}

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		view.Config = p.LoadConfig(ctx)
	}()
	go func() {
		defer wg.Done()
		view.Status = p.LoadSyncStatus(ctx)
	}()
	go func() {
		defer wg.Done()
		view.History = p.loadHistoryPage(ctx, 1)
	}()
	wg.Wait()
	return view
}

func (p *PanelService) LoadConfig(ctx context.Context) ConfigView {
	cfg, err := p.backend.GetConfig(ctx)
	if err != nil {
		p.logger.Error().Err(err).Msg("load config failed")
		return p.format.ConfigLoadError(err)
	}
	return p.format.ConfigView(cfg)
}

func (p *PanelService) SaveConfig(ctx context.Context, update domain.ConfigUpdate) ActionResult {
	cfg, err := p.backend.UpdateConfig(ctx, update)
	if err != nil {
		p.logger.Error().Err(err).Msg("save config failed")
		return p.failure("Failed to save configuration", err)
	}
	if cfg == nil {
		// PUT sans corps: on relit la config plutôt que d'afficher "non connecté".
		cfg, err = p.backend.GetConfig(ctx)
		if err != nil {
			p.logger.Warn().Err(err).Msg("reload config after save failed")
			return ActionResult{Notice: Notification{Level: NoticeSuccess, Message: "Configuration saved", TTL: p.NoticeTTL}}
		}
	}
	// La vue reflète la réponse du serveur, qui peut normaliser les valeurs.
	view := p.format.ConfigView(cfg)
	return ActionResult{
		Notice: Notification{Level: NoticeSuccess, Message: "Configuration saved", TTL: p.NoticeTTL},
		Config: &view,
	}
}

func (p *PanelService) LoadSyncStatus(ctx context.Context) StatusView {
	status, err := p.backend.GetSyncStatus(ctx)
	if err != nil {
		p.logger.Error().Err(err).Msg("load sync status failed")
		return StatusLoadError(err)
	}
	return p.format.StatusView(status)
}

func (p *PanelService) TriggerSync(ctx context.Context, full bool) ActionResult {
	cfg, err := p.backend.GetConfig(ctx)
	if err != nil {
		p.logger.Error().Err(err).Msg("load user config before sync failed")
		return ActionResult{
			Notice: Notification{Level: NoticeDanger, Message: "Failed to trigger sync: could not load user configuration", TTL: p.NoticeTTL},
			Err:    classify("could not load user configuration", err),
		}
	}

	resp, err := p.backend.TriggerSync(ctx, domain.ManualSyncRequest{UserID: cfg.EffectiveUserID(), FullSync: full})
	if err != nil {
		p.logger.Error().Err(err).Bool("full_sync", full).Msg("trigger sync failed")
		return p.failure("Failed to trigger sync", err)
	}
	p.logger.Info().Bool("full_sync", full).Msg("sync submitted")
	return ActionResult{
		Notice:    Notification{Level: NoticeSuccess, Message: "Sync job submitted: " + resp.Message, TTL: p.NoticeTTL},
		FollowUps: []FollowUp{{Region: RegionStatus, After: p.FollowUpDelay}},
	}
}

// Disconnect exige une confirmation explicite; sans elle aucun appel n'est fait.
func (p *PanelService) Disconnect(ctx context.Context, confirmed bool) ActionResult {
	if !confirmed {
		return ActionResult{
			Notice: Notification{Level: NoticeWarning, Message: "Disconnect cancelled: confirmation required", TTL: p.NoticeTTL},
			Err:    classify("disconnect", ErrConfirmationRequired),
		}
	}
	resp, err := p.backend.Disconnect(ctx)
	if err != nil {
		p.logger.Error().Err(err).Msg("disconnect failed")
		return p.failure("Failed to disconnect", err)
	}
	p.logger.Info().Msg("trakt disconnected")
	return ActionResult{
		Notice:    Notification{Level: NoticeSuccess, Message: resp.Message, TTL: p.NoticeTTL},
		FollowUps: []FollowUp{{Region: RegionConfig, After: p.FollowUpDelay}},
	}
}

// LoadHistory applique la navigation au curseur de la session puis charge la page.
func (p *PanelService) LoadHistory(ctx context.Context, sessionID string, nav HistoryNav) HistoryView {
	sess, err := p.sessions.Get(ctx, sessionID)
	if err != nil {
		p.logger.Warn().Err(err).Str("session", sessionID).Msg("load panel session failed")
		sess = domain.NewPanelSession(sessionID, time.Now().UTC())
	}

	page := sess.HistoryPage
	switch nav {
	case HistoryFirst:
		page = 1
	case HistoryPrev:
		if page > 1 {
			page--
		}
	case HistoryNext:
		page++
	}
	if page != sess.HistoryPage {
		if _, err := p.sessions.SetHistoryPage(ctx, sessionID, page); err != nil {
			p.logger.Warn().Err(err).Str("session", sessionID).Msg("save history page failed")
		}
	}
	return p.loadHistoryPage(ctx, page)
}

func (p *PanelService) loadHistoryPage(ctx context.Context, page int) HistoryView {
	cursor := domain.NewHistoryCursor(page)
	hist, err := p.backend.History(ctx, cursor)
	if err != nil {
		p.logger.Error().Err(err).Int("page", cursor.Page).Msg("load sync history failed")
		return HistoryLoadError(cursor.Page, err)
	}
	return p.format.HistoryView(cursor, hist)
}

func (p *PanelService) failure(prefix string, err error) ActionResult {
	ce := classify(prefix, err)
	return ActionResult{
		Notice: Notification{Level: NoticeDanger, Message: prefix + ": " + ErrorDetail(err), TTL: p.NoticeTTL},
		Err:    ce,
	}
}
