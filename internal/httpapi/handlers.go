package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/eretz-ir/backend/internal/ai"
	"github.com/eretz-ir/backend/internal/game"
	"github.com/eretz-ir/backend/internal/hub"
	"github.com/eretz-ir/backend/internal/lobby"
	"github.com/eretz-ir/backend/internal/store"
)

type API struct {
	Hub     *hub.Hub
	Store   store.Store
	Gateway *ai.Client
	Log     *zap.Logger
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, struct {
		Error string `json:"error"`
	}{Error: msg})
}

func (a *API) CreateLobby(w http.ResponseWriter, r *http.Request) {
	reply := make(chan *lobby.Lobby, 1)
	a.Hub.Inbox() <- hub.CreateLobby{Reply: reply}
	lb := <-reply
	if lb == nil {
		writeError(w, http.StatusInternalServerError, "failed to create lobby")
		return
	}
	writeJSON(w, http.StatusCreated, struct {
		LobbyID string `json:"lobbyId"`
		Code    string `json:"code"`
	}{LobbyID: lb.ID(), Code: lb.Code()})
}

// JoinByCode resolves an invite code to a lobby id. The actual seat is taken
// over the websocket; a stale id there gets the same rejection.
func (a *API) JoinByCode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Code == "" {
		writeError(w, http.StatusBadRequest, "missing code")
		return
	}
	reply := make(chan *lobby.Lobby, 1)
	a.Hub.Inbox() <- hub.ResolveCode{Code: req.Code, Reply: reply}
	lb := <-reply
	if lb == nil {
		writeError(w, http.StatusNotFound, lobby.ErrLobbyUnjoinable.Error())
		return
	}
	// A code for a game already underway is as dead as an unknown one.
	view := make(chan lobby.View, 1)
	lb.Inbox() <- lobby.GetState{Reply: view}
	if v := <-view; v.State.Phase != game.PhaseLobby {
		writeError(w, http.StatusNotFound, lobby.ErrLobbyUnjoinable.Error())
		return
	}
	writeJSON(w, http.StatusOK, struct {
		LobbyID string `json:"lobbyId"`
	}{LobbyID: lb.ID()})
}

func (a *API) GetProfile(w http.ResponseWriter, r *http.Request) {
	playerID := chi.URLParam(r, "playerID")
	p, err := a.Store.Profile(r.Context(), playerID)
	if err != nil {
		a.storeError(w, "load profile", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (a *API) PutProfile(w http.ResponseWriter, r *http.Request) {
	playerID := chi.URLParam(r, "playerID")
	var req struct {
		Nickname string `json:"nickname"`
		AvatarID string `json:"avatarId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}
	p := store.UserProfile{PlayerID: playerID, Nickname: req.Nickname, AvatarID: req.AvatarID}
	if err := a.Store.SaveProfile(r.Context(), p); err != nil {
		a.storeError(w, "save profile", err)
		return
	}
	saved, err := a.Store.Profile(r.Context(), playerID)
	if err != nil {
		a.storeError(w, "load profile", err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (a *API) GetStats(w http.ResponseWriter, r *http.Request) {
	playerID := chi.URLParam(r, "playerID")
	s, err := a.Store.Stats(r.Context(), playerID)
	if err != nil {
		a.storeError(w, "load stats", err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func (a *API) storeError(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, store.ErrVersionUnsupported) {
		a.Log.Error("record from a newer build", zap.String("op", op), zap.Error(err))
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	a.Log.Error("store operation failed", zap.String("op", op), zap.Error(err))
	writeError(w, http.StatusInternalServerError, "storage error")
}

// Hint gates one hint per player per round through the lobby, then fetches
// the hint text from the gateway.
func (a *API) Hint(w http.ResponseWriter, r *http.Request) {
	lobbyID := chi.URLParam(r, "lobbyID")
	var req struct {
		PlayerID string `json:"playerId"`
		Category string `json:"category"`
		Letter   string `json:"letter"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil ||
		req.PlayerID == "" || req.Category == "" || req.Letter == "" {
		writeError(w, http.StatusBadRequest, "missing playerId, category or letter")
		return
	}

	reply := make(chan *lobby.Lobby, 1)
	a.Hub.Inbox() <- hub.GetLobby{ID: lobbyID, Reply: reply}
	lb := <-reply
	if lb == nil {
		writeError(w, http.StatusNotFound, "lobby not found")
		return
	}
	gate := make(chan error, 1)
	lb.Inbox() <- lobby.UseHint{PlayerID: req.PlayerID, Reply: gate}
	if err := <-gate; err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()
	hint, err := a.Gateway.GetHint(ctx, req.Category, req.Letter)
	if err != nil {
		a.Log.Warn("hint fetch failed", zap.String("lobby", lobbyID), zap.Error(err))
		writeError(w, http.StatusBadGateway, "hint unavailable")
		return
	}
	writeJSON(w, http.StatusOK, hint)
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
