package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/Guilhem-Bonnet/trakt-sync-panel/internal/app"
	"github.com/Guilhem-Bonnet/trakt-sync-panel/internal/ports"
)

type Server struct {
	logger  zerolog.Logger
	panel   *app.PanelService
	auth    *app.AuthWizard
	bus     ports.EventBus
	relay   *WindowRelay
	limiter *SessionLimiter

	// SessionMaxAge est la durée de vie du cookie de session du panneau.
	SessionMaxAge time.Duration
}

func NewServer(logger zerolog.Logger, panel *app.PanelService, auth *app.AuthWizard, bus ports.EventBus, relay *WindowRelay, limiter *SessionLimiter) *Server {
	return &Server{
		logger:        logger,
		panel:         panel,
		auth:          auth,
		bus:           bus,
		relay:         relay,
		limiter:       limiter,
		SessionMaxAge: 24 * time.Hour,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(hlog.NewHandler(s.logger))
	r.Use(hlog.RequestIDHandler("request_id", "Request-Id"))
	r.Use(hlog.RemoteAddrHandler("remote_ip"))
	r.Use(hlog.UserAgentHandler("user_agent"))
	r.Use(hlog.AccessHandler(accessLogFn))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/panel", http.StatusFound)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Timeout(defaultRequestTimeout))
		r.Get("/health", s.handleHealth)
		r.Get("/version", s.handleVersion)
		r.Get("/openapi.json", s.handleOpenAPI)
	})

	r.Route("/panel", func(r chi.Router) {
		r.Use(withSession(s.SessionMaxAge))
		// Flux long: hors du timeout de requête.
		r.Get("/events", s.handleEvents)
		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(defaultRequestTimeout))
			s.panelRoutes(r)
		})
	})

	return r
}
