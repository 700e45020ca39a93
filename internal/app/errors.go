package app

import (
	"errors"

	"github.com/Guilhem-Bonnet/trakt-sync-panel/internal/ports"
)

var ErrNotFound = ports.ErrNotFound

// ErrConfirmationRequired est renvoyé quand une action destructive n'a pas été confirmée.
var ErrConfirmationRequired = errors.New("confirmation required")

const (
	CodeHTTPStatus           = "http_status"
	CodeNetworkError         = "network_error"
	CodeWindowBlocked        = "window_blocked"
	CodeConfirmationRequired = "confirmation_required"
)

// CodedError porte un code stable jusqu'au transport HTTP.
//
// Exemples de codes: http_status, network_error, window_blocked.
type CodedError struct {
	Code    string
	Message string
	Err     error
}

func (e *CodedError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return e.Message
	}
	if e.Message == "" {
		return e.Err.Error()
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *CodedError) Unwrap() error { return e.Err }

// classify enveloppe une erreur backend dans un CodedError.
func classify(message string, err error) *CodedError {
	var be *ports.BackendError
	switch {
	case errors.As(err, &be):
		return &CodedError{Code: CodeHTTPStatus, Message: message, Err: err}
	case errors.Is(err, ports.ErrWindowBlocked):
		return &CodedError{Code: CodeWindowBlocked, Message: message, Err: err}
	case errors.Is(err, ErrConfirmationRequired):
		return &CodedError{Code: CodeConfirmationRequired, Message: message, Err: err}
	default:
		return &CodedError{Code: CodeNetworkError, Message: message, Err: err}
	}
}

// ErrorDetail renvoie le message à afficher: le detail du backend, "HTTP <status>",
// ou le texte brut de l'erreur.
func ErrorDetail(err error) string {
	if err == nil {
		return ""
	}
	var be *ports.BackendError
	if errors.As(err, &be) {
		return be.Error()
	}
	var ce *CodedError
	if errors.As(err, &ce) && ce.Err != nil {
		return ErrorDetail(ce.Err)
	}
	return err.Error()
}
