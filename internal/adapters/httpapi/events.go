package httpapi

import (
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/hlog"

	"github.com/Guilhem-Bonnet/trakt-sync-panel/internal/app"
)

const heartbeatInterval = 15 * time.Second

// handleEvents diffuse en SSE les events du bus destinés à la session courante.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	sid := sessionID(r)
	logger := hlog.FromRequest(r)

	events, cancel := s.bus.Subscribe()
	defer cancel()

	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	fmt.Fprintf(w, "event: hello\ndata: {\"status\":\"connected\"}\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			fmt.Fprintf(w, "event: ping\ndata: {}\n\n")
			flusher.Flush()
		case evt, ok := <-events:
			if !ok {
				return
			}
			pe, err := app.DecodePanelEvent(evt)
			if err != nil {
				logger.Warn().Err(err).Str("topic", evt.Topic).Msg("sse: bad event payload")
				continue
			}
			if pe.Session != sid {
				continue
			}
			data := pe.Data
			if len(data) == 0 {
				data = []byte("{}")
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", evt.Topic, data)
			flusher.Flush()
		}
	}
}
