package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/eretz-ir/backend/internal/ai"
	"github.com/eretz-ir/backend/internal/game"
	"github.com/eretz-ir/backend/internal/hub"
	"github.com/eretz-ir/backend/internal/lobby"
	"github.com/eretz-ir/backend/internal/notify"
	"github.com/eretz-ir/backend/internal/store"
)

// stubGateway keeps lobbies that advance past the countdown from touching the
// network; the HTTP tests never look at its output.
type stubGateway struct{}

func (stubGateway) GenerateBotPlan(context.Context, string, []string, game.Difficulty) ([]game.BotAction, error) {
	return nil, nil
}

func (stubGateway) ValidateRound(_ context.Context, req ai.ValidateRequest) (game.RoundResult, error) {
	return game.RoundResult{Letter: req.Letter}, nil
}

func (stubGateway) GameSummary(context.Context, []game.RoundResult, []game.Player, []game.Group) (game.GameOverStats, error) {
	return game.GameOverStats{}, nil
}

func newTestAPI(t *testing.T) (*httptest.Server, *hub.Hub) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	st := store.NewMemory()
	h := hub.NewHub(ctx, lobby.Deps{
		Gateway:   stubGateway{},
		Store:     st,
		Notifier:  notify.NewLocal(),
		Log:       zap.NewNop(),
		Rand:      rand.New(rand.NewSource(1)),
		AITimeout: time.Second,
	})
	srv := httptest.NewServer(SetupRoutes(&API{Hub: h, Store: st, Log: zap.NewNop()}))
	t.Cleanup(srv.Close)
	return srv, h
}

func postJSON(t *testing.T, url string, body any) (*http.Response, map[string]any) {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("post %s: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	var decoded map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp, decoded
}

func seatPlayer(t *testing.T, lb *lobby.Lobby, playerID, name string) {
	t.Helper()
	out := make(chan lobby.Snapshot, 64)
	reply := make(chan error, 1)
	lb.Inbox() <- lobby.Join{PlayerID: playerID, Name: name, Outbox: out, Reply: reply}
	select {
	case err := <-reply:
		if err != nil {
			t.Fatalf("join %s: %v", playerID, err)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out joining %s", playerID)
	}
}

func lobbyPhase(t *testing.T, lb *lobby.Lobby) game.LobbyPhase {
	t.Helper()
	view := make(chan lobby.View, 1)
	lb.Inbox() <- lobby.GetState{Reply: view}
	select {
	case v := <-view:
		return v.State.Phase
	case <-time.After(time.Second):
		t.Fatalf("timed out reading lobby state")
		return "" // unreachable
	}
}

func TestJoinByCodeRejectsStartedGame(t *testing.T) {
	srv, h := newTestAPI(t)

	resp, created := postJSON(t, srv.URL+"/lobbies", map[string]any{})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create lobby: status %d", resp.StatusCode)
	}
	code, _ := created["code"].(string)
	lobbyID, _ := created["lobbyId"].(string)
	if code == "" || lobbyID == "" {
		t.Fatalf("create reply missing identity: %v", created)
	}

	// While the lobby is still open the code resolves normally.
	resp, body := postJSON(t, srv.URL+"/lobbies/join", map[string]string{"code": code})
	if resp.StatusCode != http.StatusOK || body["lobbyId"] != lobbyID {
		t.Fatalf("open lobby join: status %d body %v", resp.StatusCode, body)
	}

	reply := make(chan *lobby.Lobby, 1)
	h.Inbox() <- hub.GetLobby{ID: lobbyID, Reply: reply}
	lb := <-reply
	seatPlayer(t, lb, "p1", "דנה")
	seatPlayer(t, lb, "p2", "יוסי")
	lb.Inbox() <- lobby.FromClient{PlayerID: "p1", Cmd: lobby.Command{Type: lobby.CmdSetReady, Ready: true}}
	lb.Inbox() <- lobby.FromClient{PlayerID: "p2", Cmd: lobby.Command{Type: lobby.CmdSetReady, Ready: true}}
	lb.Inbox() <- lobby.FromClient{PlayerID: "p1", Cmd: lobby.Command{Type: lobby.CmdStartGame}}

	deadline := time.Now().Add(time.Second)
	for lobbyPhase(t, lb) == game.PhaseLobby {
		if time.Now().After(deadline) {
			t.Fatalf("game never started")
		}
		time.Sleep(10 * time.Millisecond)
	}

	resp, body = postJSON(t, srv.URL+"/lobbies/join", map[string]string{"code": code})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("started game join: want 404, got %d (%v)", resp.StatusCode, body)
	}
	if body["error"] != lobby.ErrLobbyUnjoinable.Error() {
		t.Fatalf("wrong rejection message: %v", body["error"])
	}
}

func TestJoinByCodeUnknownCode(t *testing.T) {
	srv, _ := newTestAPI(t)
	resp, body := postJSON(t, srv.URL+"/lobbies/join", map[string]string{"code": "NOPE00"})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("want 404, got %d", resp.StatusCode)
	}
	if body["error"] != lobby.ErrLobbyUnjoinable.Error() {
		t.Fatalf("wrong rejection message: %v", body["error"])
	}
}
