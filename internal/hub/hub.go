// Package hub owns the set of live lobbies. A single goroutine serializes
// creation, lookup, and removal; lobbies themselves run their own loops.
package hub

import (
	"context"
	"crypto/rand"
	"math/big"

	"github.com/google/uuid"

	"github.com/eretz-ir/backend/internal/lobby"
)

type HubMsg interface{ isHubMsg() }

// CreateLobby makes a fresh lobby with a unique invite code.
type CreateLobby struct {
	Reply chan *lobby.Lobby
}

// GetLobby looks a lobby up by its id. Reply may carry nil.
type GetLobby struct {
	ID    string
	Reply chan *lobby.Lobby
}

// ResolveCode looks a lobby up by invite code. Reply may carry nil; the
// caller decides how to phrase the rejection.
type ResolveCode struct {
	Code  string
	Reply chan *lobby.Lobby
}

// RemoveLobby drops a lobby from the index. Posted by the lobby's own
// OnClose hook once its loop has exited.
type RemoveLobby struct {
	ID string
}

type ShutdownHub struct{}

func (CreateLobby) isHubMsg() {}
func (GetLobby) isHubMsg()    {}
func (ResolveCode) isHubMsg() {}
func (RemoveLobby) isHubMsg() {}
func (ShutdownHub) isHubMsg() {}

type Hub struct {
	inbox   chan HubMsg
	lobbies map[string]*lobby.Lobby // by id
	codes   map[string]string       // invite code -> id
	deps    lobby.Deps
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewHub(parent context.Context, deps lobby.Deps) *Hub {
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:   make(chan HubMsg, 64),
		lobbies: make(map[string]*lobby.Lobby),
		codes:   make(map[string]string),
		deps:    deps,
		ctx:     ctx,
		cancel:  cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case CreateLobby:
				msg.Reply <- h.create()

			case GetLobby:
				msg.Reply <- h.lobbies[msg.ID]

			case ResolveCode:
				var lb *lobby.Lobby
				if id, ok := h.codes[msg.Code]; ok {
					lb = h.lobbies[id]
				}
				msg.Reply <- lb

			case RemoveLobby:
				delete(h.lobbies, msg.ID)
				for code, id := range h.codes {
					if id == msg.ID {
						delete(h.codes, code)
						break
					}
				}

			case ShutdownHub:
				h.shutdown()
				return
			}
		}
	}
}

func (h *Hub) create() *lobby.Lobby {
	var code string
	for {
		c, err := generateCode()
		if err != nil {
			return nil
		}
		if _, taken := h.codes[c]; !taken {
			code = c
			break
		}
	}
	id := uuid.NewString()
	deps := h.deps
	deps.OnClose = func(lobbyID string) {
		select {
		case h.inbox <- RemoveLobby{ID: lobbyID}:
		case <-h.ctx.Done():
		}
	}
	lb := lobby.NewLobby(h.ctx, id, code, deps)
	h.lobbies[id] = lb
	h.codes[code] = id
	return lb
}

func (h *Hub) shutdown() {
	for _, lb := range h.lobbies {
		lb.Inbox() <- lobby.Shutdown{}
	}
	clear(h.lobbies)
	clear(h.codes)
	h.cancel()
}

func generateCode() (string, error) {
	const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	code := make([]byte, 6)
	for i := range code {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		code[i] = charset[num.Int64()]
	}
	return string(code), nil
}
