package domain

import "time"

// PanelSession porte l'état propre à un navigateur (cookie).
type PanelSession struct {
	ID          string
	HistoryPage int

	CreatedAt time.Time
	UpdatedAt time.Time
}

func NewPanelSession(id string, now time.Time) PanelSession {
	return PanelSession{ID: id, HistoryPage: 1, CreatedAt: now, UpdatedAt: now}
}
