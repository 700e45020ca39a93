package httpapi

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/Guilhem-Bonnet/trakt-sync-panel/internal/buildinfo"
	"github.com/Guilhem-Bonnet/trakt-sync-panel/internal/httpjson"
)

const (
	defaultRequestTimeout = 30 * time.Second
	healthPath            = "/api/v1/health"
)

type healthResponse struct {
	Status     string `json:"status"`
	SSEClients int    `json:"sse_clients"`
}

// subscriberCounter est implémenté par le bus mémoire.
type subscriberCounter interface {
	Subscribers() int
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok"}
	if c, ok := s.bus.(subscriberCounter); ok {
		resp.SSEClients = c.Subscribers()
	}
	httpjson.Write(w, http.StatusOK, resp)
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	httpjson.Write(w, http.StatusOK, buildinfo.Current())
}

func accessLogFn(r *http.Request, status, size int, duration time.Duration) {
	logger := hlog.FromRequest(r)
	evt := logger.Info()
	// Sondes de santé: bruit en info.
	if r.URL.Path == healthPath && status == http.StatusOK {
		evt = logger.Debug()
	}
	if status >= http.StatusInternalServerError {
		evt = logger.WithLevel(zerolog.WarnLevel)
	}
	evt.
		Int("status", status).
		Int("size", size).
		Dur("duration", duration).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Msg("http")
}
