package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Guilhem-Bonnet/trakt-sync-panel/internal/domain"
	"github.com/Guilhem-Bonnet/trakt-sync-panel/internal/ports"
)

const (
	msgWindowBlocked = "Unable to open the authorization window, check the browser popup settings"
	msgWindowClosed  = "Authorization window was closed"
	msgAuthTimeout   = "Authorization timed out, please retry"
)

type AuthOptions struct {
	PollInterval time.Duration
	MaxPolls     int
	// SuccessAfter déclare l'autorisation réussie après N ticks: le backend
	// n'expose pas encore d'endpoint de statut OAuth.
	SuccessAfter int
	// Timeout est absolu, indépendant du nombre de ticks.
	Timeout     time.Duration
	ReloadDelay time.Duration
}

func DefaultAuthOptions() AuthOptions {
	return AuthOptions{
		PollInterval: 5 * time.Second,
		MaxPolls:     60,
		SuccessAfter: 3,
		Timeout:      5 * time.Minute,
		ReloadDelay:  1 * time.Second,
	}
}

// AuthView est l'état du modal d'autorisation pour une session du panneau.
type AuthView struct {
	Visible bool            `json:"visible"`
	Step    domain.AuthStep `json:"step"`
	Error   string          `json:"error,omitempty"`
	Polls   int             `json:"polls"`
	Active  bool            `json:"active"`
}

func hiddenAuthView() AuthView {
	return AuthView{Step: domain.AuthStepIntro}
}

type authFlow struct {
	gen    uint64
	view   AuthView
	window ports.AuthWindow
	cancel context.CancelFunc
	// touched est la dernière activité, utilisée par Prune.
	touched time.Time
}

// AuthWizard pilote le wizard OAuth. Une session du panneau a au plus un flux
// actif: démarrer un nouveau flux arrête d'abord le polling et la fenêtre du précédent.
type AuthWizard struct {
	parent  context.Context
	logger  zerolog.Logger
	backend ports.TraktBackend
	opener  ports.WindowOpener
	bus     ports.EventBus
	opts    AuthOptions

	mu    sync.Mutex
	flows map[string]*authFlow
	gen   uint64
	now   func() time.Time
}

func NewAuthWizard(parent context.Context, logger zerolog.Logger, backend ports.TraktBackend, opener ports.WindowOpener, bus ports.EventBus, opts AuthOptions) *AuthWizard {
	if parent == nil {
		parent = context.Background()
	}
	def := DefaultAuthOptions()
	if opts.PollInterval <= 0 {
		opts.PollInterval = def.PollInterval
	}
	if opts.MaxPolls <= 0 {
		opts.MaxPolls = def.MaxPolls
	}
	if opts.SuccessAfter <= 0 {
		opts.SuccessAfter = def.SuccessAfter
	}
	if opts.Timeout <= 0 {
		opts.Timeout = def.Timeout
	}
	if opts.ReloadDelay < 0 {
		opts.ReloadDelay = def.ReloadDelay
	}
	return &AuthWizard{
		parent:  parent,
		logger:  logger,
		backend: backend,
		opener:  opener,
		bus:     bus,
		opts:    opts,
		flows:   make(map[string]*authFlow),
		now:     time.Now,
	}
}

func (w *AuthWizard) View(sessionID string) AuthView {
	w.mu.Lock()
	defer w.mu.Unlock()
	if f, ok := w.flows[sessionID]; ok {
		return f.view
	}
	return hiddenAuthView()
}

// Show affiche le modal à l'étape 1.
func (w *AuthWizard) Show(sessionID string) AuthView {
	w.mu.Lock()
	f := w.flowLocked(sessionID)
	win := w.teardownLocked(f)
	f.view = AuthView{Visible: true, Step: domain.AuthStepIntro}
	f.touched = w.now()
	v := f.view
	w.mu.Unlock()

	closeWindow(win)
	w.publish(sessionID, v)
	return v
}

// Start lance un flux: init OAuth côté backend, ouverture de la fenêtre, polling.
func (w *AuthWizard) Start(ctx context.Context, sessionID string) AuthView {
	w.mu.Lock()
	f := w.flowLocked(sessionID)
	prev := w.teardownLocked(f)
	gen := f.gen
	f.view = AuthView{Visible: true, Step: domain.AuthStepPending, Active: true}
	f.touched = w.now()
	v := f.view
	w.mu.Unlock()

	closeWindow(prev)
	w.publish(sessionID, v)

	// Config illisible: on continue avec l'utilisateur par défaut.
	cfg, err := w.backend.GetConfig(ctx)
	if err != nil {
		w.logger.Warn().Err(err).Str("session", sessionID).Msg("auth: load config failed, using default user")
		cfg = nil
	}
	resp, err := w.backend.InitAuth(ctx, domain.AuthInitRequest{UserID: cfg.EffectiveUserID()})
	if err != nil {
		w.logger.Error().Err(err).Str("session", sessionID).Msg("auth: init failed")
		return w.fail(sessionID, gen, ErrorDetail(err))
	}
	if !w.isCurrent(sessionID, gen) {
		return w.View(sessionID)
	}

	win, err := w.opener.Open(ctx, sessionID, resp.AuthURL)
	if err != nil {
		msg := ErrorDetail(err)
		if errors.Is(err, ports.ErrWindowBlocked) {
			msg = msgWindowBlocked
		}
		w.logger.Warn().Err(err).Str("session", sessionID).Msg("auth: window not opened")
		return w.fail(sessionID, gen, msg)
	}

	w.mu.Lock()
	f = w.flows[sessionID]
	if f == nil || f.gen != gen || !f.view.Active {
		w.mu.Unlock()
		// Flux remplacé ou annulé pendant l'ouverture.
		closeWindow(win)
		return w.View(sessionID)
	}
	pollCtx, cancel := context.WithCancel(w.parent)
	f.window = win
	f.cancel = cancel
	v = f.view
	w.mu.Unlock()

	w.logger.Info().Str("session", sessionID).Bool("has_state", resp.State != "").Msg("auth: polling started")
	go w.poll(pollCtx, sessionID, gen, win)
	return v
}

// Retry revient à l'étape 1 puis relance un flux.
func (w *AuthWizard) Retry(ctx context.Context, sessionID string) AuthView {
	w.Show(sessionID)
	return w.Start(ctx, sessionID)
}

// Cancel arrête le polling, ferme la fenêtre et masque le modal.
// Sans effet si aucun flux n'existe.
func (w *AuthWizard) Cancel(sessionID string) AuthView {
	w.mu.Lock()
	f, ok := w.flows[sessionID]
	if !ok {
		w.mu.Unlock()
		return hiddenAuthView()
	}
	win := w.teardownLocked(f)
	delete(w.flows, sessionID)
	w.mu.Unlock()

	closeWindow(win)
	v := hiddenAuthView()
	w.publish(sessionID, v)
	return v
}

// Prune oublie les flux inactifs (terminés, en échec ou à l'étape 1) sans
// activité depuis maxIdle. Un flux en cours de polling est conservé.
func (w *AuthWizard) Prune(maxIdle time.Duration) int {
	cutoff := w.now().Add(-maxIdle)
	w.mu.Lock()
	defer w.mu.Unlock()
	n := 0
	for id, f := range w.flows {
		if f.view.Active || f.cancel != nil || f.touched.After(cutoff) {
			continue
		}
		delete(w.flows, id)
		n++
	}
	return n
}

func (w *AuthWizard) poll(ctx context.Context, sessionID string, gen uint64, win ports.AuthWindow) {
	ticker := time.NewTicker(w.opts.PollInterval)
	defer ticker.Stop()
	timeout := time.NewTimer(w.opts.Timeout)
	defer timeout.Stop()

	polls := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-timeout.C:
			w.fail(sessionID, gen, msgAuthTimeout)
			return
		case <-ticker.C:
			if ctx.Err() != nil {
				return
			}
			polls++
			if win.Closed() {
				w.fail(sessionID, gen, msgWindowClosed)
				return
			}
			w.setPolls(sessionID, gen, polls)
			if polls >= w.opts.SuccessAfter {
				w.succeed(sessionID, gen)
				return
			}
			if polls >= w.opts.MaxPolls {
				w.fail(sessionID, gen, msgAuthTimeout)
				return
			}
		}
	}
}

func (w *AuthWizard) setPolls(sessionID string, gen uint64, polls int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if f, ok := w.flows[sessionID]; ok && f.gen == gen {
		f.view.Polls = polls
		f.touched = w.now()
	}
}

func (w *AuthWizard) succeed(sessionID string, gen uint64) {
	w.mu.Lock()
	f, ok := w.flows[sessionID]
	if !ok || f.gen != gen || !f.view.Active {
		w.mu.Unlock()
		return
	}
	if f.cancel != nil {
		f.cancel()
		f.cancel = nil
	}
	win := f.window
	f.window = nil
	f.view = AuthView{Visible: true, Step: domain.AuthStepSuccess, Polls: f.view.Polls}
	f.touched = w.now()
	v := f.view
	w.mu.Unlock()

	closeWindow(win)
	w.logger.Info().Str("session", sessionID).Msg("auth: completed")
	w.publish(sessionID, v)
	PublishPanelEvent(w.bus, TopicToast, sessionID, Notification{Level: NoticeSuccess, Message: "Trakt account connected", TTL: defaultNoticeTTL})
	PublishPanelEvent(w.bus, TopicReload, sessionID, FollowUp{Region: RegionConfig, After: w.opts.ReloadDelay})
}

func (w *AuthWizard) fail(sessionID string, gen uint64, msg string) AuthView {
	w.mu.Lock()
	f, ok := w.flows[sessionID]
	if !ok || f.gen != gen {
		w.mu.Unlock()
		return w.View(sessionID)
	}
	if f.cancel != nil {
		f.cancel()
		f.cancel = nil
	}
	f.view = AuthView{Visible: true, Step: domain.AuthStepError, Error: msg, Polls: f.view.Polls}
	f.touched = w.now()
	v := f.view
	w.mu.Unlock()

	w.logger.Warn().Str("session", sessionID).Str("reason", msg).Msg("auth: failed")
	w.publish(sessionID, v)
	return v
}

func (w *AuthWizard) isCurrent(sessionID string, gen uint64) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	f, ok := w.flows[sessionID]
	return ok && f.gen == gen && f.view.Active
}

func (w *AuthWizard) flowLocked(sessionID string) *authFlow {
	f, ok := w.flows[sessionID]
	if !ok {
		f = &authFlow{view: hiddenAuthView(), touched: w.now()}
		w.flows[sessionID] = f
	}
	return f
}

// teardownLocked invalide le flux courant (nouvelle génération), arrête son
// polling et renvoie la fenêtre à fermer hors verrou.
func (w *AuthWizard) teardownLocked(f *authFlow) ports.AuthWindow {
	w.gen++
	f.gen = w.gen
	if f.cancel != nil {
		f.cancel()
		f.cancel = nil
	}
	win := f.window
	f.window = nil
	f.view.Active = false
	return win
}

func closeWindow(win ports.AuthWindow) {
	if win != nil && !win.Closed() {
		win.Close()
	}
}

func (w *AuthWizard) publish(sessionID string, v AuthView) {
	PublishPanelEvent(w.bus, TopicAuth, sessionID, v)
}
