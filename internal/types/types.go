package types

import "github.com/eretz-ir/backend/internal/lobby"

// ClientMessage is the wire shape of everything a player can send over the
// socket. The embedded command carries the per-type payload fields.
type ClientMessage struct {
	lobby.Command
}

type ServerMessage struct {
	Type     string          `json:"type"` // "StateSnapshot" | "Error"
	Snapshot *lobby.Snapshot `json:"snapshot,omitempty"`
	Error    string          `json:"error,omitempty"`
}
