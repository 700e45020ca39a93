package ports

import "context"

// AuthWindow est la fenêtre externe où l'utilisateur valide l'accès Trakt.
type AuthWindow interface {
	Closed() bool
	Close()
}

type WindowOpener interface {
	// Open renvoie ErrWindowBlocked si la fenêtre n'a pas pu être créée.
	Open(ctx context.Context, sessionID, url string) (AuthWindow, error)
}
