// Package lobby hosts the authoritative game actor. One goroutine owns the
// full lobby and round state; everything else — websocket clients, HTTP
// handlers, timers, gateway calls — talks to it through the typed inbox and
// observes it through versioned snapshots.
package lobby

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/eretz-ir/backend/internal/ai"
	"github.com/eretz-ir/backend/internal/bot"
	"github.com/eretz-ir/backend/internal/game"
	"github.com/eretz-ir/backend/internal/notify"
	"github.com/eretz-ir/backend/internal/round"
	"github.com/eretz-ir/backend/internal/store"
)

// ErrLobbyUnjoinable is shown verbatim to Hebrew-speaking players, both for
// unknown invite codes and for games already underway.
var ErrLobbyUnjoinable = errors.New("קוד לובי שגוי או שהמשחק כבר התחיל.")

// ErrLobbyFull is returned when every seat allowed by the structure is taken.
var ErrLobbyFull = errors.New("הלובי מלא.")

// Gateway is the slice of the AI client the lobby needs.
type Gateway interface {
	GenerateBotPlan(ctx context.Context, letter string, categories []string, difficulty game.Difficulty) ([]game.BotAction, error)
	ValidateRound(ctx context.Context, req ai.ValidateRequest) (game.RoundResult, error)
	GameSummary(ctx context.Context, results []game.RoundResult, players []game.Player, groups []game.Group) (game.GameOverStats, error)
}

type Msg interface{ isLobbyMsg() }

// Join seats a new player, or re-attaches a returning one. Reply receives nil
// on success; on failure the outbox is closed without ever carrying a
// snapshot.
type Join struct {
	PlayerID string
	Name     string
	Avatar   string
	Outbox   chan Snapshot
	Reply    chan error
}

func (Join) isLobbyMsg() {}

// Leave detaches a client. In the lobby phase the player loses their seat;
// mid-game the seat stays so they can reconnect.
type Leave struct{ PlayerID string }

func (Leave) isLobbyMsg() {}

type FromClient struct {
	PlayerID string
	Cmd      Command
}

func (FromClient) isLobbyMsg() {}

// UseHint gates hints to one per player per round. The actual hint text is
// fetched by the HTTP layer after a nil reply.
type UseHint struct {
	PlayerID string
	Reply    chan error
}

func (UseHint) isLobbyMsg() {}

type Shutdown struct{}

func (Shutdown) isLobbyMsg() {}

type GetState struct {
	Reply chan View
}

func (GetState) isLobbyMsg() {}

// internal messages posted by timers and gateway goroutines

type tick struct{}

func (tick) isLobbyMsg() {}

type botChoose struct{ gen int }

func (botChoose) isLobbyMsg() {}

type planReady struct {
	gen  int
	plan []game.BotAction
	err  error
}

func (planReady) isLobbyMsg() {}

type botAnswered struct {
	gen   int
	count int
}

func (botAnswered) isLobbyMsg() {}

type verdictReady struct {
	gen    int
	result game.RoundResult
	err    error
}

func (verdictReady) isLobbyMsg() {}

type summaryReady struct {
	gen   int
	stats game.GameOverStats
	err   error
}

func (summaryReady) isLobbyMsg() {}

type CommandType string

const (
	CmdSetReady       CommandType = "SetReady"
	CmdSwitchGroup    CommandType = "SwitchGroup"
	CmdAddBot         CommandType = "AddBot"
	CmdRemoveBot      CommandType = "RemoveBot"
	CmdKick           CommandType = "Kick"
	CmdUpdateSettings CommandType = "UpdateSettings"
	CmdStartGame      CommandType = "StartGame"
	CmdChooseLetter   CommandType = "ChooseLetter"
	CmdStartWriting   CommandType = "StartWriting"
	CmdSetAnswers     CommandType = "SetAnswers"
	CmdFinishRound    CommandType = "FinishRound"
	CmdNextRound      CommandType = "NextRound"
	CmdForfeitRound   CommandType = "ForfeitRound"
	CmdForfeitGame    CommandType = "ForfeitGame"
)

type Command struct {
	Type     CommandType         `json:"type"`
	Ready    bool                `json:"isReady,omitempty"`
	GroupID  string              `json:"groupId,omitempty"`
	TargetID string              `json:"targetId,omitempty"`
	Settings *game.Settings      `json:"settings,omitempty"`
	Letter   string              `json:"letter,omitempty"`
	Answers  map[string][]string `json:"answers,omitempty"`
}

// RoundView is the per-round slice of a snapshot.
type RoundView struct {
	Phase         round.Phase               `json:"phase"`
	Round         int                       `json:"round"`
	LetterOptions []string                  `json:"letterOptions,omitempty"`
	ChooserID     string                    `json:"chooserId,omitempty"`
	Letter        string                    `json:"letter,omitempty"`
	Remaining     int                       `json:"remainingTime"`
	ExtraTimeFor  round.ExtraTarget         `json:"extraTimeFor,omitempty"`
	Progress      map[string]round.Progress `json:"progress"`
}

type Snapshot struct {
	Version   int                 `json:"version"`
	State     game.LobbyState     `json:"state"`
	Round     *RoundView          `json:"round,omitempty"`
	Countdown int                 `json:"countdown,omitempty"`
	GameOver  *game.GameOverStats `json:"gameOver,omitempty"`
	Notice    string              `json:"notice,omitempty"`
}

// View reflects internal state for tests without data races.
type View struct {
	Version    int
	NumClients int
	State      game.LobbyState
	Round      *round.State
	Countdown  int
	GameOver   *game.GameOverStats
}

// Deps is everything a lobby needs besides its identity.
type Deps struct {
	Gateway   Gateway
	Store     store.Store
	Notifier  notify.Notifier
	Log       *zap.Logger
	Rand      *rand.Rand
	AITimeout time.Duration
	// OnClose is called once, after the loop exits.
	OnClose func(lobbyID string)
}

const countdownSeconds = 3

type Lobby struct {
	inbox chan Msg

	state     game.LobbyState
	rnd       *round.State
	countdown int
	gameOver  *game.GameOverStats
	notice    string
	version   int
	clients   map[string]chan Snapshot

	// round-scoped bookkeeping, reset by startRound
	gen            int
	plan           []game.BotAction
	planAnswers    []game.BotAction // answering actions sorted by delay
	planned        map[string]float64
	sched          *bot.Scheduler
	botExtra       int // seconds left in the bot-side watchdog, -1 unarmed
	hintsUsed      map[string]bool
	summaryPending bool
	statsApplied   bool
	botSeq         int

	deps   Deps
	ticker *time.Ticker
	ctx    context.Context
	cancel context.CancelFunc
}

func NewLobby(parent context.Context, id, inviteCode string, deps Deps) *Lobby {
	ctx, cancel := context.WithCancel(parent)
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}
	if deps.Rand == nil {
		deps.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if deps.AITimeout <= 0 {
		deps.AITimeout = 30 * time.Second
	}
	l := &Lobby{
		inbox: make(chan Msg, 64),
		state: game.LobbyState{
			ID:         id,
			InviteCode: inviteCode,
			Settings:   game.DefaultSettings(),
			Players:    []game.Player{},
			Groups:     []game.Group{{GroupID: "A", Players: []string{}}, {GroupID: "B", Players: []string{}}},
			TeamScores: []game.TeamScore{{GroupID: "A"}, {GroupID: "B"}},
			Phase:      game.PhaseLobby,
		},
		clients:  make(map[string]chan Snapshot),
		botExtra: -1,
		deps:     deps,
		ticker:   time.NewTicker(time.Second),
		ctx:      ctx,
		cancel:   cancel,
	}
	go l.loop()
	return l
}

func (l *Lobby) Inbox() chan<- Msg { return l.inbox }

// ID and Code are fixed at construction and safe to read from any goroutine.
func (l *Lobby) ID() string   { return l.state.ID }
func (l *Lobby) Code() string { return l.state.InviteCode }

func (l *Lobby) loop() {
	defer func() {
		if l.deps.OnClose != nil {
			l.deps.OnClose(l.state.ID)
		}
	}()
	for {
		select {
		case <-l.ctx.Done():
			l.shutdown()
			return

		case <-l.ticker.C:
			l.handleTick()

		case m := <-l.inbox:
			switch msg := m.(type) {
			case Join:
				l.handleJoin(msg)

			case Leave:
				l.handleLeave(msg.PlayerID)

			case FromClient:
				l.handleCommand(msg.PlayerID, msg.Cmd)

			case UseHint:
				l.handleUseHint(msg)

			case tick:
				l.handleTick()

			case botChoose:
				l.handleBotChoose(msg)

			case planReady:
				l.handlePlanReady(msg)

			case botAnswered:
				l.handleBotAnswered(msg)

			case verdictReady:
				l.handleVerdict(msg)

			case summaryReady:
				l.handleSummary(msg)

			case GetState:
				var rc *round.State
				if l.rnd != nil {
					c := *l.rnd
					rc = &c
				}
				msg.Reply <- View{
					Version:    l.version,
					NumClients: len(l.clients),
					State:      l.state.Clone(),
					Round:      rc,
					Countdown:  l.countdown,
					GameOver:   l.gameOver,
				}

			case Shutdown:
				l.shutdown()
				return
			}
		}
	}
}

func (l *Lobby) shutdown() {
	if l.sched != nil {
		l.sched.Stop()
	}
	l.ticker.Stop()
	for id, ch := range l.clients {
		close(ch)
		delete(l.clients, id)
	}
	l.cancel()
}

func (l *Lobby) snapshot() Snapshot {
	snap := Snapshot{
		Version:   l.version,
		State:     l.state.Clone(),
		Countdown: l.countdown,
		GameOver:  l.gameOver,
		Notice:    l.notice,
	}
	if l.rnd != nil {
		snap.Round = &RoundView{
			Phase:         l.rnd.Phase,
			Round:         l.rnd.Round,
			LetterOptions: l.rnd.LetterOptions,
			ChooserID:     l.rnd.ChooserID,
			Letter:        l.rnd.Letter,
			Remaining:     l.rnd.Remaining,
			ExtraTimeFor:  l.rnd.ExtraTimeFor,
			Progress:      l.rnd.Progress,
		}
	}
	return snap
}

// publish bumps the version and broadcasts. Clients that cannot keep up are
// dropped: a stale snapshot is worse than a reconnect.
func (l *Lobby) publish() {
	l.version++
	snap := l.snapshot()
	for id, ch := range l.clients {
		select {
		case ch <- snap:
		default:
			close(ch)
			delete(l.clients, id)
		}
	}
	l.notice = ""
}

func (l *Lobby) notifyAsync(t notify.EventType) {
	if l.deps.Notifier == nil {
		return
	}
	ev := notify.Event{Type: t, LobbyID: l.state.ID}
	go func() {
		if err := l.deps.Notifier.Publish(context.Background(), ev); err != nil {
			l.deps.Log.Warn("notify publish failed", zap.String("lobby", ev.LobbyID), zap.Error(err))
		}
	}()
}

func (l *Lobby) handleJoin(msg Join) {
	if p := l.state.PlayerByID(msg.PlayerID); p != nil {
		// Reconnect: re-attach in any phase.
		l.clients[msg.PlayerID] = msg.Outbox
		msg.Reply <- nil
		msg.Outbox <- l.snapshot()
		return
	}
	if l.state.Phase != game.PhaseLobby {
		msg.Reply <- ErrLobbyUnjoinable
		close(msg.Outbox)
		return
	}
	g := l.groupWithSpace()
	if g == nil {
		msg.Reply <- ErrLobbyFull
		close(msg.Outbox)
		return
	}
	p := game.Player{
		ID:      msg.PlayerID,
		Name:    msg.Name,
		Avatar:  msg.Avatar,
		Type:    game.PlayerHuman,
		GroupID: g.GroupID,
		Host:    len(l.state.Players) == 0,
	}
	l.state.Players = append(l.state.Players, p)
	g.Players = append(g.Players, p.ID)
	l.checkGroups()
	l.clients[msg.PlayerID] = msg.Outbox
	msg.Reply <- nil
	// The joiner sees the roster through the same broadcast as everyone else.
	l.publish()
	l.notifyAsync(notify.LobbyUpdated)
}

func (l *Lobby) handleLeave(playerID string) {
	if ch, ok := l.clients[playerID]; ok {
		close(ch)
		delete(l.clients, playerID)
	}
	if l.state.Phase == game.PhaseLobby {
		l.removePlayer(playerID)
		l.checkGroups()
		if len(l.state.Humans()) == 0 {
			l.shutdown()
			return
		}
		l.publish()
		l.notifyAsync(notify.LobbyUpdated)
	}
}

func (l *Lobby) handleUseHint(msg UseHint) {
	if l.rnd == nil || l.rnd.Phase != round.PhaseAnswering {
		msg.Reply <- fmt.Errorf("hints are only available while answering")
		return
	}
	if l.state.PlayerByID(msg.PlayerID) == nil {
		msg.Reply <- round.ErrUnknownPlayer
		return
	}
	if l.hintsUsed[msg.PlayerID] {
		msg.Reply <- fmt.Errorf("hint already used this round")
		return
	}
	l.hintsUsed[msg.PlayerID] = true
	msg.Reply <- nil
}

// membership helpers, lobby phase only

func (l *Lobby) capacityOf(groupID string) int {
	c := game.StructureCapacities[l.state.Settings.Structure]
	if groupID == "A" {
		return c.A
	}
	return c.B
}

func (l *Lobby) groupWithSpace() *game.Group {
	for i := range l.state.Groups {
		g := &l.state.Groups[i]
		if len(g.Players) < l.capacityOf(g.GroupID) {
			return g
		}
	}
	return nil
}

func (l *Lobby) removePlayer(playerID string) {
	for i := range l.state.Players {
		if l.state.Players[i].ID == playerID {
			wasHost := l.state.Players[i].Host
			l.state.Players = append(l.state.Players[:i], l.state.Players[i+1:]...)
			if wasHost {
				for j := range l.state.Players {
					if l.state.Players[j].Type == game.PlayerHuman {
						l.state.Players[j].Host = true
						break
					}
				}
			}
			break
		}
	}
	for i := range l.state.Groups {
		g := &l.state.Groups[i]
		for j, pid := range g.Players {
			if pid == playerID {
				g.Players = append(g.Players[:j], g.Players[j+1:]...)
				break
			}
		}
	}
}

func (l *Lobby) isHost(playerID string) bool {
	p := l.state.PlayerByID(playerID)
	return p != nil && p.Host
}

// checkGroups runs after every membership mutation. A violation means a bug in
// this file, not bad input, so it is logged rather than surfaced.
func (l *Lobby) checkGroups() {
	if err := game.CheckGroupInvariant(&l.state); err != nil {
		l.deps.Log.Error("group invariant violated",
			zap.String("lobby", l.state.ID), zap.Error(err))
	}
}
