package app

import (
	"encoding/json"

	"github.com/Guilhem-Bonnet/trakt-sync-panel/internal/ports"
)

// Topics publiés sur le bus et relayés en SSE vers la session concernée.
const (
	TopicToast       = "panel.toast"
	TopicReload      = "panel.reload"
	TopicAuth        = "panel.auth"
	TopicWindowOpen  = "panel.window.open"
	TopicWindowClose = "panel.window.close"
)

// PanelEvent est l'enveloppe JSON de tous les events du panneau.
type PanelEvent struct {
	Session string          `json:"session"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// DecodePanelEvent lit l'enveloppe d'un event du bus.
func DecodePanelEvent(evt ports.Event) (PanelEvent, error) {
	var pe PanelEvent
	err := json.Unmarshal(evt.Payload, &pe)
	return pe, err
}

func PublishPanelEvent(bus ports.EventBus, topic, sessionID string, data any) {
	if bus == nil {
		return
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return
	}
	b, err := json.Marshal(PanelEvent{Session: sessionID, Data: raw})
	if err != nil {
		return
	}
	bus.Publish(topic, b)
}
