package hub

import (
	"context"
	"testing"
	"time"

	"github.com/eretz-ir/backend/internal/lobby"
)

func newTestHub(t *testing.T) *Hub {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return NewHub(ctx, lobby.Deps{})
}

func recvLobby(t *testing.T, ch <-chan *lobby.Lobby) *lobby.Lobby {
	t.Helper()
	select {
	case lb := <-ch:
		return lb
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for hub reply")
		return nil // unreachable
	}
}

func TestHub_CreateThenLookupByIDAndCode(t *testing.T) {
	h := newTestHub(t)
	reply := make(chan *lobby.Lobby, 1)

	h.Inbox() <- CreateLobby{Reply: reply}
	lb := recvLobby(t, reply)
	if lb == nil {
		t.Fatalf("create returned nil")
	}
	if len(lb.Code()) != 6 {
		t.Fatalf("invite code should be 6 chars, got %q", lb.Code())
	}

	h.Inbox() <- GetLobby{ID: lb.ID(), Reply: reply}
	if got := recvLobby(t, reply); got != lb {
		t.Fatalf("lookup by id returned a different lobby")
	}

	h.Inbox() <- ResolveCode{Code: lb.Code(), Reply: reply}
	if got := recvLobby(t, reply); got != lb {
		t.Fatalf("lookup by code returned a different lobby")
	}
}

func TestHub_UnknownCodeResolvesNil(t *testing.T) {
	h := newTestHub(t)
	reply := make(chan *lobby.Lobby, 1)
	h.Inbox() <- ResolveCode{Code: "NOPE00", Reply: reply}
	if got := recvLobby(t, reply); got != nil {
		t.Fatalf("unknown code resolved to a lobby")
	}
}

func TestHub_DistinctCodesPerLobby(t *testing.T) {
	h := newTestHub(t)
	reply := make(chan *lobby.Lobby, 1)

	h.Inbox() <- CreateLobby{Reply: reply}
	a := recvLobby(t, reply)
	h.Inbox() <- CreateLobby{Reply: reply}
	b := recvLobby(t, reply)
	if a == b || a.ID() == b.ID() || a.Code() == b.Code() {
		t.Fatalf("lobbies must have distinct identities: %q/%q", a.Code(), b.Code())
	}
}

func TestHub_RemoveLobbyForgetsBothIndexes(t *testing.T) {
	h := newTestHub(t)
	reply := make(chan *lobby.Lobby, 1)

	h.Inbox() <- CreateLobby{Reply: reply}
	lb := recvLobby(t, reply)

	h.Inbox() <- RemoveLobby{ID: lb.ID()}
	h.Inbox() <- GetLobby{ID: lb.ID(), Reply: reply}
	if got := recvLobby(t, reply); got != nil {
		t.Fatalf("lobby still resolvable by id after removal")
	}
	h.Inbox() <- ResolveCode{Code: lb.Code(), Reply: reply}
	if got := recvLobby(t, reply); got != nil {
		t.Fatalf("lobby still resolvable by code after removal")
	}
}
