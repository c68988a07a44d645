package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eretz-ir/backend/internal/hub"
	"github.com/eretz-ir/backend/internal/lobby"
	"github.com/eretz-ir/backend/internal/types"
)

// Handler upgrades the connection and bridges it to the lobby actor: a
// writer goroutine drains the snapshot outbox, the request goroutine reads
// client commands.
func Handler(h *hub.Hub, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lobbyID := r.URL.Query().Get("lobby")
		if lobbyID == "" {
			http.Error(w, "missing lobby", http.StatusBadRequest)
			return
		}
		playerID := r.URL.Query().Get("player")
		if playerID == "" {
			playerID = uuid.NewString()
		}
		name := r.URL.Query().Get("name")
		if name == "" {
			name = "שחקן"
		}
		avatar := r.URL.Query().Get("avatar")

		reply := make(chan *lobby.Lobby, 1)
		h.Inbox() <- hub.GetLobby{ID: lobbyID, Reply: reply}
		lb := <-reply
		if lb == nil {
			http.Error(w, lobby.ErrLobbyUnjoinable.Error(), http.StatusNotFound)
			return
		}

		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		out := make(chan lobby.Snapshot, 8)
		joinErr := make(chan error, 1)
		lb.Inbox() <- lobby.Join{
			PlayerID: playerID,
			Name:     name,
			Avatar:   avatar,
			Outbox:   out,
			Reply:    joinErr,
		}
		if err := <-joinErr; err != nil {
			msg, _ := json.Marshal(types.ServerMessage{Type: "Error", Error: err.Error()})
			ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
			_ = conn.Write(ctx, websocket.MessageText, msg)
			cancel()
			return
		}
		defer func() { lb.Inbox() <- lobby.Leave{PlayerID: playerID} }()

		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for snap := range out {
				s := snap
				payload, err := json.Marshal(types.ServerMessage{Type: "StateSnapshot", Snapshot: &s})
				if err != nil {
					log.Error("snapshot marshal failed", zap.String("lobby", lobbyID), zap.Error(err))
					continue
				}
				ctx, cancel := context.WithTimeout(writeCtx, 3*time.Second)
				_ = conn.Write(ctx, websocket.MessageText, payload)
				cancel()
			}
		}()

		for {
			_, data, err := conn.Read(r.Context())
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
					return
				}
				return
			}

			var cm types.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				_ = conn.Write(r.Context(), websocket.MessageText,
					[]byte(`{"type":"Error","error":"bad json"}`))
				continue
			}
			if !knownCommand(cm.Type) {
				_ = conn.Write(r.Context(), websocket.MessageText,
					[]byte(`{"type":"Error","error":"unknown type"}`))
				continue
			}

			lb.Inbox() <- lobby.FromClient{PlayerID: playerID, Cmd: cm.Command}
		}
	}
}

func knownCommand(t lobby.CommandType) bool {
	switch t {
	case lobby.CmdSetReady, lobby.CmdSwitchGroup, lobby.CmdAddBot, lobby.CmdRemoveBot,
		lobby.CmdKick, lobby.CmdUpdateSettings, lobby.CmdStartGame,
		lobby.CmdChooseLetter, lobby.CmdStartWriting, lobby.CmdSetAnswers,
		lobby.CmdFinishRound, lobby.CmdNextRound, lobby.CmdForfeitRound, lobby.CmdForfeitGame:
		return true
	default:
		return false
	}
}
