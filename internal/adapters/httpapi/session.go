package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/xid"
	"github.com/rs/zerolog/hlog"
)

const sessionCookie = "trakt_panel_session"

type ctxKey int

const sessionKey ctxKey = iota

// withSession garantit un id de session panneau (cookie xid) sur chaque requête /panel.
func withSession(maxAge time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := ""
			if c, err := r.Cookie(sessionCookie); err == nil {
				if parsed, err := xid.FromString(c.Value); err == nil {
					id = parsed.String()
				}
			}
			if id == "" {
				id = xid.New().String()
				hlog.FromRequest(r).Debug().Str("session", id).Msg("new panel session")
			}
			http.SetCookie(w, &http.Cookie{
				Name:     sessionCookie,
				Value:    id,
				Path:     "/panel",
				MaxAge:   int(maxAge.Seconds()),
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
			ctx := context.WithValue(r.Context(), sessionKey, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func sessionID(r *http.Request) string {
	id, _ := r.Context().Value(sessionKey).(string)
	return id
}
