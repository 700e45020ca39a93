package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"maragu.dev/gomponents"

	"github.com/Guilhem-Bonnet/trakt-sync-panel/internal/app"
	"github.com/Guilhem-Bonnet/trakt-sync-panel/internal/domain"
	"github.com/Guilhem-Bonnet/trakt-sync-panel/internal/httpjson"
	"github.com/Guilhem-Bonnet/trakt-sync-panel/internal/ports"
)

const (
	headerPanelError = "X-Panel-Error"
	codeRateLimited  = "rate_limited"
)

func (s *Server) panelRoutes(r chi.Router) {
	r.Get("/", s.handlePage)
	r.Get("/config", s.handleConfig)
	r.Put("/config", s.handleSaveConfig)
	r.Get("/status", s.handleStatus)
	r.Post("/sync", s.handleSync)
	r.Post("/disconnect", s.handleDisconnect)
	r.Get("/history", s.handleHistory)

	r.Get("/auth", s.handleAuthView)
	r.Post("/auth/show", s.handleAuthShow)
	r.Post("/auth/start", s.handleAuthStart)
	r.Post("/auth/retry", s.handleAuthRetry)
	r.Post("/auth/cancel", s.handleAuthCancel)
	r.Post("/auth/window/{id}", s.handleWindowReport)
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	sid := sessionID(r)
	view := s.panel.Open(r.Context(), sid)
	render(w, http.StatusOK, renderPage(view, s.auth.View(sid)))
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	render(w, http.StatusOK, configRegion(s.panel.LoadConfig(r.Context())))
}

func (s *Server) handleSaveConfig(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		httpjson.WriteError(w, http.StatusBadRequest, "invalid form")
		return
	}
	interval := strings.TrimSpace(r.PostForm.Get("sync_interval"))
	if interval == "" {
		interval = domain.DefaultSyncInterval
	}
	update := domain.ConfigUpdate{
		Enabled:      formBool(r.PostForm.Get("enabled")),
		SyncInterval: interval,
	}

	res := s.panel.SaveConfig(r.Context(), update)
	var main gomponents.Node
	if res.Config != nil {
		main = configRegion(*res.Config)
	}
	writeAction(w, res, main)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	render(w, http.StatusOK, statusRegion(s.panel.LoadSyncStatus(r.Context())))
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	sid := sessionID(r)
	if !s.limiter.Allow(sid) {
		writeAction(w, app.ActionResult{
			Notice: app.Notification{Level: app.NoticeWarning, Message: "Too many sync requests, please wait a moment", TTL: s.panel.NoticeTTL},
			Err:    &app.CodedError{Code: codeRateLimited, Message: "sync rate limited"},
		}, nil)
		return
	}
	writeAction(w, s.panel.TriggerSync(r.Context(), formBool(r.FormValue("full"))), nil)
}

// handleDisconnect lit confirm dans le corps du formulaire (POST htmx).
func (s *Server) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	confirmed := strings.EqualFold(strings.TrimSpace(r.FormValue("confirm")), "yes")
	writeAction(w, s.panel.Disconnect(r.Context(), confirmed), nil)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	nav := app.ParseHistoryNav(r.URL.Query().Get("nav"))
	render(w, http.StatusOK, historyRegion(s.panel.LoadHistory(r.Context(), sessionID(r), nav)))
}

func (s *Server) handleAuthView(w http.ResponseWriter, r *http.Request) {
	render(w, http.StatusOK, authModal(s.auth.View(sessionID(r))))
}

func (s *Server) handleAuthShow(w http.ResponseWriter, r *http.Request) {
	render(w, http.StatusOK, authModal(s.auth.Show(sessionID(r))))
}

func (s *Server) handleAuthStart(w http.ResponseWriter, r *http.Request) {
	render(w, http.StatusOK, authModal(s.auth.Start(r.Context(), sessionID(r))))
}

func (s *Server) handleAuthRetry(w http.ResponseWriter, r *http.Request) {
	render(w, http.StatusOK, authModal(s.auth.Retry(r.Context(), sessionID(r))))
}

func (s *Server) handleAuthCancel(w http.ResponseWriter, r *http.Request) {
	render(w, http.StatusOK, authModal(s.auth.Cancel(sessionID(r))))
}

func (s *Server) handleWindowReport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	err := s.relay.Report(sessionID(r), id, r.FormValue("status"))
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, ports.ErrNotFound):
		httpjson.WriteError(w, http.StatusNotFound, "unknown window")
	default:
		httpjson.WriteError(w, http.StatusBadRequest, err.Error())
	}
}

// writeAction rend le résultat d'une action: fragment principal si succès,
// toast et rechargements différés en OOB. En échec le swap principal est annulé.
func writeAction(w http.ResponseWriter, res app.ActionResult, main gomponents.Node) {
	status := http.StatusOK
	if !res.OK() {
		w.Header().Set(headerPanelError, res.Err.Code)
		status = statusFor(res.Err)
		main = nil
	}
	if main == nil {
		w.Header().Set("HX-Reswap", "none")
	}
	render(w, status, main, toastOOB(res.Notice), followUpsOOB(res.FollowUps))
}

func statusFor(ce *app.CodedError) int {
	switch ce.Code {
	case codeRateLimited:
		return http.StatusTooManyRequests
	case app.CodeConfirmationRequired:
		return http.StatusBadRequest
	case app.CodeHTTPStatus:
		var be *ports.BackendError
		if errors.As(ce, &be) && be.Status >= 400 && be.Status < 500 {
			return be.Status
		}
		return http.StatusBadGateway
	default:
		return http.StatusBadGateway
	}
}

func formBool(v string) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return strings.EqualFold(strings.TrimSpace(v), "on")
	}
	return b
}
