package httpapi

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/xid"
	"github.com/rs/zerolog"

	"github.com/Guilhem-Bonnet/trakt-sync-panel/internal/app"
	"github.com/Guilhem-Bonnet/trakt-sync-panel/internal/ports"
)

// Statuts rapportés par le script de la page pour une fenêtre d'autorisation.
const (
	WindowOpened  = "opened"
	WindowBlocked = "blocked"
	WindowClosed  = "closed"
)

var errUnknownStatus = errors.New("unknown window status")

// WindowRelay ouvre la popup d'autorisation dans le navigateur de la session.
// L'ordre d'ouverture part en SSE (panel.window.open); la page répond via
// POST /panel/auth/window/{id}. Sans réponse avant AckTimeout, la fenêtre est
// considérée bloquée.
type WindowRelay struct {
	logger     zerolog.Logger
	bus        ports.EventBus
	AckTimeout time.Duration

	mu      sync.Mutex
	windows map[string]*relayWindow
}

func NewWindowRelay(logger zerolog.Logger, bus ports.EventBus) *WindowRelay {
	return &WindowRelay{
		logger:     logger,
		bus:        bus,
		AckTimeout: 15 * time.Second,
		windows:    make(map[string]*relayWindow),
	}
}

type windowOpenEvent struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

type windowCloseEvent struct {
	ID string `json:"id"`
}

type relayWindow struct {
	id      string
	session string
	relay   *WindowRelay

	ack    chan string
	acked  atomic.Bool
	closed atomic.Bool
}

func (w *relayWindow) Closed() bool { return w.closed.Load() }

func (w *relayWindow) Close() {
	if w.closed.Swap(true) {
		return
	}
	w.relay.forget(w.id)
	app.PublishPanelEvent(w.relay.bus, app.TopicWindowClose, w.session, windowCloseEvent{ID: w.id})
}

func (r *WindowRelay) Open(ctx context.Context, sessionID, url string) (ports.AuthWindow, error) {
	win := &relayWindow{
		id:      xid.New().String(),
		session: sessionID,
		relay:   r,
		ack:     make(chan string, 1),
	}
	r.mu.Lock()
	r.windows[win.id] = win
	r.mu.Unlock()

	app.PublishPanelEvent(r.bus, app.TopicWindowOpen, sessionID, windowOpenEvent{ID: win.id, URL: url})

	timer := time.NewTimer(r.AckTimeout)
	defer timer.Stop()

	select {
	case status := <-win.ack:
		if status == WindowOpened {
			r.logger.Debug().Str("session", sessionID).Str("window", win.id).Msg("auth window opened")
			return win, nil
		}
	case <-timer.C:
		r.logger.Warn().Str("session", sessionID).Str("window", win.id).Msg("auth window not acknowledged")
	case <-ctx.Done():
		r.forget(win.id)
		return nil, ctx.Err()
	}
	r.forget(win.id)
	return nil, ports.ErrWindowBlocked
}

// Report applique un statut envoyé par la page. La fenêtre doit appartenir à la session.
func (r *WindowRelay) Report(sessionID, windowID, status string) error {
	r.mu.Lock()
	win, ok := r.windows[windowID]
	r.mu.Unlock()
	if !ok || win.session != sessionID {
		return ports.ErrNotFound
	}

	switch status {
	case WindowOpened, WindowBlocked:
		if win.acked.CompareAndSwap(false, true) {
			win.ack <- status
		}
	case WindowClosed:
		win.closed.Store(true)
		r.forget(windowID)
	default:
		return errUnknownStatus
	}
	return nil
}

func (r *WindowRelay) forget(id string) {
	r.mu.Lock()
	delete(r.windows, id)
	r.mu.Unlock()
}
