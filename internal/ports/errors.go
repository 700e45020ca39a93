package ports

import (
	"errors"
	"strconv"
)

var ErrNotFound = errors.New("not found")

// ErrWindowBlocked signale que la fenêtre d'autorisation n'a pas pu être ouverte
// (bloqueur de popups, aucun navigateur à l'écoute).
var ErrWindowBlocked = errors.New("auth window blocked")

// BackendError est une réponse non-2xx du backend Trakt.
// Detail provient du champ "detail" du corps JSON lorsqu'il existe.
type BackendError struct {
	Status int
	Detail string
}

func (e *BackendError) Error() string {
	if e == nil {
		return ""
	}
	if e.Detail != "" {
		return e.Detail
	}
	return "HTTP " + strconv.Itoa(e.Status)
}
