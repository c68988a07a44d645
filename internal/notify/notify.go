// Package notify carries coarse cross-context signals: "something about this
// lobby changed, refetch if you care". Payloads stay minimal on purpose; the
// authoritative state always comes from the lobby itself.
package notify

import "context"

type EventType string

const (
	LobbyUpdated EventType = "LOBBY_UPDATED"
	GameStarted  EventType = "GAME_STARTED"
)

// Event names a lobby and what happened to it, nothing more.
type Event struct {
	Type    EventType `json:"type"`
	LobbyID string    `json:"lobbyId"`
}

// Notifier fans events out to every subscriber, across processes when the
// implementation supports it.
type Notifier interface {
	Publish(ctx context.Context, ev Event) error
	// Subscribe registers a handler for all events. The handler runs on the
	// notifier's goroutine and must not block. Cancel with the returned func.
	Subscribe(handler func(Event)) (cancel func())
}
