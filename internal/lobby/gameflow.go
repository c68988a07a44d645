package lobby

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eretz-ir/backend/internal/ai"
	"github.com/eretz-ir/backend/internal/bot"
	"github.com/eretz-ir/backend/internal/game"
	"github.com/eretz-ir/backend/internal/notify"
	"github.com/eretz-ir/backend/internal/round"
)

// Notices shown verbatim to Hebrew-speaking players when a gateway call
// fails. The game moves on either way.
const (
	noticeValidateFailed = "אירעה שגיאה בבדיקת התשובות. הסבב הסתיים ללא ניקוד."
	noticeSummaryFailed  = "אירעה שגיאה בהכנת סיכום המשחק."
)

func (l *Lobby) handleCommand(playerID string, cmd Command) {
	switch cmd.Type {
	case CmdSetReady:
		l.setReady(playerID, cmd.Ready)
	case CmdSwitchGroup:
		l.switchGroup(playerID, cmd.GroupID)
	case CmdAddBot:
		l.addBot(playerID)
	case CmdRemoveBot:
		l.removeBot(playerID, cmd.TargetID)
	case CmdKick:
		l.kick(playerID, cmd.TargetID)
	case CmdUpdateSettings:
		l.updateSettings(playerID, cmd.Settings)
	case CmdStartGame:
		l.startGame(playerID)
	case CmdChooseLetter:
		l.applyRound(round.Command{Type: round.CmdChooseLetter, PlayerID: playerID, Letter: cmd.Letter})
	case CmdStartWriting:
		l.applyRound(round.Command{Type: round.CmdStartWriting, PlayerID: playerID})
	case CmdSetAnswers:
		l.applyRound(round.Command{Type: round.CmdSetAnswers, PlayerID: playerID, Answers: cmd.Answers})
	case CmdFinishRound:
		l.applyRound(round.Command{Type: round.CmdFinish, PlayerID: playerID})
	case CmdNextRound:
		l.nextRound(playerID)
	case CmdForfeitRound:
		l.applyRound(round.Command{Type: round.CmdForfeit, PlayerID: playerID})
	case CmdForfeitGame:
		l.forfeitGame(playerID)
	default:
		l.deps.Log.Debug("dropping unknown command",
			zap.String("lobby", l.state.ID), zap.String("type", string(cmd.Type)))
	}
}

// lobby-phase commands

func (l *Lobby) setReady(playerID string, ready bool) {
	if l.state.Phase != game.PhaseLobby {
		return
	}
	p := l.state.PlayerByID(playerID)
	if p == nil || p.Type != game.PlayerHuman {
		return
	}
	p.Ready = ready
	l.publish()
	l.notifyAsync(notify.LobbyUpdated)
}

func (l *Lobby) switchGroup(playerID, groupID string) {
	if l.state.Phase != game.PhaseLobby {
		return
	}
	p := l.state.PlayerByID(playerID)
	target := l.state.GroupByID(groupID)
	if p == nil || target == nil || p.GroupID == groupID {
		return
	}
	if len(target.Players) >= l.capacityOf(groupID) {
		return
	}
	if from := l.state.GroupByID(p.GroupID); from != nil {
		for i, pid := range from.Players {
			if pid == playerID {
				from.Players = append(from.Players[:i], from.Players[i+1:]...)
				break
			}
		}
	}
	target.Players = append(target.Players, playerID)
	p.GroupID = groupID
	l.checkGroups()
	l.publish()
	l.notifyAsync(notify.LobbyUpdated)
}

func (l *Lobby) addBot(playerID string) {
	if l.state.Phase != game.PhaseLobby || !l.isHost(playerID) {
		return
	}
	g := l.groupWithSpace()
	if g == nil {
		return
	}
	l.botSeq++
	name := fmt.Sprintf("בוט %d", l.botSeq)
	if l.state.Settings.Mode == game.ModeVsComputer && len(l.state.Bots()) == 0 {
		name = "מחשב"
	}
	b := game.Player{
		ID:      "bot-" + uuid.NewString(),
		Name:    name,
		Avatar:  l.firstFreeAvatar(),
		Ready:   true,
		Type:    game.PlayerComputer,
		GroupID: g.GroupID,
	}
	l.state.Players = append(l.state.Players, b)
	g.Players = append(g.Players, b.ID)
	l.checkGroups()
	l.publish()
	l.notifyAsync(notify.LobbyUpdated)
}

func (l *Lobby) firstFreeAvatar() string {
	used := map[string]bool{}
	for _, p := range l.state.Players {
		used[p.Avatar] = true
	}
	for i := 1; ; i++ {
		a := fmt.Sprintf("avatar-%d", i)
		if !used[a] {
			return a
		}
	}
}

func (l *Lobby) removeBot(playerID, botID string) {
	if l.state.Phase != game.PhaseLobby || !l.isHost(playerID) {
		return
	}
	p := l.state.PlayerByID(botID)
	if p == nil || p.Type != game.PlayerComputer {
		return
	}
	l.removePlayer(botID)
	l.checkGroups()
	l.publish()
	l.notifyAsync(notify.LobbyUpdated)
}

func (l *Lobby) kick(playerID, targetID string) {
	if l.state.Phase != game.PhaseLobby || !l.isHost(playerID) || playerID == targetID {
		return
	}
	if l.state.PlayerByID(targetID) == nil {
		return
	}
	if ch, ok := l.clients[targetID]; ok {
		close(ch)
		delete(l.clients, targetID)
	}
	l.removePlayer(targetID)
	l.checkGroups()
	l.publish()
	l.notifyAsync(notify.LobbyUpdated)
}

func (l *Lobby) updateSettings(playerID string, s *game.Settings) {
	if l.state.Phase != game.PhaseLobby || !l.isHost(playerID) || s == nil {
		return
	}
	if !slices.Contains(game.RoundTimes, s.RoundTime) ||
		!slices.Contains(game.RoundCounts, s.Rounds) ||
		len(s.Categories) == 0 {
		return
	}
	if _, ok := game.StructureCapacities[s.Structure]; !ok {
		return
	}
	if len(l.state.Players) > game.TotalCapacity(s.Structure) {
		return
	}
	for i := range l.state.Groups {
		g := &l.state.Groups[i]
		c := game.StructureCapacities[s.Structure]
		limit := c.A
		if g.GroupID == "B" {
			limit = c.B
		}
		if len(g.Players) > limit {
			return
		}
	}
	ns := *s
	ns.Categories = append([]string(nil), s.Categories...)
	l.state.Settings = ns
	l.publish()
	l.notifyAsync(notify.LobbyUpdated)
}

func (l *Lobby) startGame(playerID string) {
	if l.state.Phase != game.PhaseLobby || !l.isHost(playerID) {
		return
	}
	if len(l.state.Players) < 2 {
		return
	}
	for _, p := range l.state.Humans() {
		if !p.Ready {
			return
		}
	}
	for _, g := range l.state.Groups {
		if len(g.Players) == 0 {
			return
		}
	}
	if err := game.CheckGroupInvariant(&l.state); err != nil {
		l.deps.Log.Error("group invariant violated at start",
			zap.String("lobby", l.state.ID), zap.Error(err))
		return
	}
	l.state.Phase = game.PhaseCountdown
	l.countdown = countdownSeconds
	l.publish()
	l.notifyAsync(notify.GameStarted)
}

// round lifecycle

func (l *Lobby) startRound(n int) {
	l.gen++
	l.state.CurrentRound = n
	l.state.Phase = game.PhaseInProgress
	l.countdown = 0

	seats := make([]round.Seat, 0, len(l.state.Players))
	for _, p := range l.state.Players {
		seats = append(seats, round.Seat{ID: p.ID, Type: p.Type, GroupID: p.GroupID})
	}
	options := game.RandomLetters(3)
	chooser := game.ChooserForRound(l.state.Players, n)
	rs := round.NewState(n, seats, options, chooser, l.state.Settings.RoundTime)
	l.rnd = &rs

	l.plan = nil
	l.planAnswers = nil
	l.planned = make(map[string]float64)
	for _, p := range l.state.Bots() {
		l.planned[p.ID] = bot.PlannedFinish(l.deps.Rand, l.state.Settings.RoundTime)
	}
	if l.sched != nil {
		l.sched.Stop()
	}
	l.sched = bot.NewScheduler()
	l.botExtra = -1
	l.hintsUsed = make(map[string]bool)

	if p := l.state.PlayerByID(chooser); p != nil && p.Type == game.PlayerComputer {
		gen := l.gen
		delay := bot.LetterChoiceDelay(l.deps.Rand)
		time.AfterFunc(delay, func() { l.post(botChoose{gen: gen}) })
	}
	l.publish()
}

// post delivers an internal message unless the lobby is already gone.
func (l *Lobby) post(m Msg) {
	select {
	case l.inbox <- m:
	case <-l.ctx.Done():
	}
}

func (l *Lobby) handleBotChoose(msg botChoose) {
	if msg.gen != l.gen || l.rnd == nil || l.rnd.Phase != round.PhaseChoosing {
		return
	}
	letter := bot.PickLetter(l.deps.Rand, l.rnd.LetterOptions)
	l.applyRound(round.Command{Type: round.CmdChooseLetter, PlayerID: l.rnd.ChooserID, Letter: letter})
}

// applyRound runs one command through the round state machine and reacts to
// the emitted events. Rejected commands are logged and otherwise ignored, the
// client will resync from the next snapshot.
func (l *Lobby) applyRound(cmd round.Command) {
	if l.rnd == nil {
		return
	}
	events, ns, err := round.Apply(*l.rnd, cmd)
	if err != nil {
		if !errors.Is(err, round.ErrRoundOver) {
			l.deps.Log.Debug("round command rejected",
				zap.String("lobby", l.state.ID),
				zap.String("cmd", string(cmd.Type)),
				zap.Error(err))
		}
		return
	}
	l.rnd = &ns
	changed := len(events) > 0 || cmd.Type == round.CmdTick
	for _, ev := range events {
		switch ev.Type {
		case round.EvtLetterChosen:
			l.onLetterChosen(ev.Letter)
		case round.EvtExtraTimeGranted:
			if ev.Target == round.ExtraBot {
				l.botExtra = game.ExtraTimeSeconds
			}
		case round.EvtRoundCompleted:
			l.onRoundCompleted()
		case round.EvtRoundForfeited:
			l.onRoundForfeited(ev.PlayerID)
		}
	}
	if changed {
		l.publish()
	}
}

func (l *Lobby) onLetterChosen(letter string) {
	bots := l.state.Bots()
	if len(bots) == 0 {
		return
	}
	gen := l.gen
	categories := append([]string(nil), l.state.Settings.Categories...)
	difficulty := l.state.Settings.Difficulty
	ctx, cancel := context.WithTimeout(l.ctx, l.deps.AITimeout)
	go func() {
		defer cancel()
		plan, err := l.deps.Gateway.GenerateBotPlan(ctx, letter, categories, difficulty)
		l.post(planReady{gen: gen, plan: plan, err: err})
	}()
}

func (l *Lobby) handlePlanReady(msg planReady) {
	if msg.gen != l.gen || l.rnd == nil || l.rnd.Phase != round.PhaseAnswering {
		return
	}
	if msg.err != nil {
		// Bots play the round silently with no answers.
		l.deps.Log.Warn("bot plan unavailable",
			zap.String("lobby", l.state.ID), zap.Error(msg.err))
		l.plan = []game.BotAction{}
		l.planAnswers = nil
		return
	}
	l.plan = msg.plan
	l.planAnswers = nil
	for _, a := range msg.plan {
		if a.Type == game.BotAnswering {
			l.planAnswers = append(l.planAnswers, a)
		}
	}
	slices.SortStableFunc(l.planAnswers, func(a, b game.BotAction) int {
		switch {
		case a.Delay < b.Delay:
			return -1
		case a.Delay > b.Delay:
			return 1
		default:
			return 0
		}
	})
	for _, b := range l.state.Bots() {
		l.applyRound(round.Command{Type: round.CmdStartWriting, PlayerID: b.ID})
	}
	gen := l.gen
	l.sched.Schedule(msg.plan, func(completed int) {
		l.post(botAnswered{gen: gen, count: completed})
	})
}

// handleBotAnswered mirrors the first n planned answers into every bot's
// submitted answer set, so progress counters and the final validation request
// agree on what the bots "wrote".
func (l *Lobby) handleBotAnswered(msg botAnswered) {
	if msg.gen != l.gen || l.rnd == nil || l.rnd.Phase != round.PhaseAnswering {
		return
	}
	n := msg.count
	if n > len(l.planAnswers) {
		n = len(l.planAnswers)
	}
	answers := make(map[string][]string, n)
	for _, a := range l.planAnswers[:n] {
		answers[a.Category] = append(answers[a.Category], a.Answer)
	}
	for _, b := range l.state.Bots() {
		l.applyRound(round.Command{Type: round.CmdSetAnswers, PlayerID: b.ID, Answers: answers})
	}
}

func (l *Lobby) handleTick() {
	switch {
	case l.state.Phase == game.PhaseCountdown:
		l.countdown--
		if l.countdown <= 0 {
			l.startRound(1)
			return
		}
		l.publish()

	case l.rnd != nil && l.rnd.Phase == round.PhaseAnswering:
		l.applyRound(round.Command{Type: round.CmdTick})
		if l.rnd == nil || l.rnd.Phase != round.PhaseAnswering {
			return
		}
		l.driveBots()
		if l.botExtra > 0 {
			l.botExtra--
			if l.botExtra == 0 {
				l.applyRound(round.Command{Type: round.CmdForceFinish})
			}
		}
	}
}

// driveBots lets each bot declare itself finished once its planned time has
// passed and the gate conditions hold.
func (l *Lobby) driveBots() {
	humanAnswers := 0
	for _, p := range l.state.Humans() {
		if pr, ok := l.rnd.Progress[p.ID]; ok && pr.AnswersCount > humanAnswers {
			humanAnswers = pr.AnswersCount
		}
	}
	for _, b := range l.state.Bots() {
		pr, ok := l.rnd.Progress[b.ID]
		if !ok || pr.Finished {
			continue
		}
		if bot.CanFinish(float64(l.rnd.Elapsed), l.planned[b.ID], humanAnswers, l.rnd.Remaining) {
			l.applyRound(round.Command{Type: round.CmdFinish, PlayerID: b.ID})
			if l.rnd == nil || l.rnd.Phase != round.PhaseAnswering {
				return
			}
		}
	}
}

func (l *Lobby) onRoundCompleted() {
	l.sched.Stop()
	gen := l.gen
	req := ai.ValidateRequest{
		Letter:       l.rnd.Letter,
		Categories:   append([]string(nil), l.state.Settings.Categories...),
		HumanAnswers: map[string][]game.CategoryAnswer{},
		Players:      append([]game.Player(nil), l.state.Players...),
		Groups:       l.state.Clone().Groups,
		BotPlan:      l.plan,
	}
	for _, p := range l.state.Humans() {
		flat := l.rnd.FlatAnswers(p.ID, l.state.Settings.Categories)
		if flat == nil {
			flat = []game.CategoryAnswer{}
		}
		req.HumanAnswers[p.ID] = flat
	}
	ctx, cancel := context.WithTimeout(l.ctx, l.deps.AITimeout)
	go func() {
		defer cancel()
		result, err := l.deps.Gateway.ValidateRound(ctx, req)
		l.post(verdictReady{gen: gen, result: result, err: err})
	}()
}

func (l *Lobby) handleVerdict(msg verdictReady) {
	if msg.gen != l.gen || l.rnd == nil || l.rnd.Phase != round.PhaseFinished {
		return
	}
	result := msg.result
	if msg.err != nil {
		l.deps.Log.Error("round validation failed",
			zap.String("lobby", l.state.ID),
			zap.Int("round", l.state.CurrentRound),
			zap.Error(msg.err))
		l.notice = noticeValidateFailed
		result = game.RoundResult{
			Letter:  l.rnd.Letter,
			Answers: map[string][]game.Answer{},
			Scores:  map[string]game.PlayerRoundScore{},
		}
	}
	l.state.RoundResults = append(l.state.RoundResults, result)
	game.ApplyRoundScores(&l.state, result)
	l.rnd.Phase = round.PhaseResults
	l.publish()
}

func (l *Lobby) onRoundForfeited(playerID string) {
	l.sched.Stop()
	result, err := game.ApplyRoundForfeit(&l.state, playerID, l.rnd.Letter)
	if err != nil {
		l.deps.Log.Error("round forfeit rejected",
			zap.String("lobby", l.state.ID), zap.Error(err))
		return
	}
	l.state.RoundResults = append(l.state.RoundResults, result)
	l.rnd.Phase = round.PhaseResults
}

func (l *Lobby) nextRound(playerID string) {
	if !l.isHost(playerID) || l.state.Phase != game.PhaseInProgress ||
		l.rnd == nil || l.rnd.Phase != round.PhaseResults {
		return
	}
	if l.state.CurrentRound < l.state.Settings.Rounds {
		l.startRound(l.state.CurrentRound + 1)
		return
	}
	// One summary per game: a host re-sending NextRound while the call is in
	// flight must not launch a second one.
	if l.summaryPending {
		return
	}
	l.summaryPending = true
	l.gen++
	gen := l.gen
	results := append([]game.RoundResult(nil), l.state.RoundResults...)
	players := append([]game.Player(nil), l.state.Players...)
	groups := l.state.Clone().Groups
	ctx, cancel := context.WithTimeout(l.ctx, l.deps.AITimeout)
	go func() {
		defer cancel()
		stats, err := l.deps.Gateway.GameSummary(ctx, results, players, groups)
		l.post(summaryReady{gen: gen, stats: stats, err: err})
	}()
}

func (l *Lobby) handleSummary(msg summaryReady) {
	l.summaryPending = false
	if msg.gen != l.gen || l.state.Phase != game.PhaseInProgress {
		return
	}
	stats := msg.stats
	if msg.err != nil {
		l.deps.Log.Error("game summary failed",
			zap.String("lobby", l.state.ID), zap.Error(msg.err))
		l.notice = noticeSummaryFailed
		stats = l.fallbackStats()
	}
	l.finishGame(stats)
}

// fallbackStats derives the winner from the scores on hand when the summary
// gateway call fails.
func (l *Lobby) fallbackStats() game.GameOverStats {
	best := 0
	for i := 1; i < len(l.state.TeamScores); i++ {
		if l.state.TeamScores[i].Score > l.state.TeamScores[best].Score {
			best = i
		}
	}
	winner := game.WinnerInfo{Type: "team"}
	if len(l.state.TeamScores) > 0 {
		ts := l.state.TeamScores[best]
		winner.ID = ts.GroupID
		winner.Name = "קבוצה " + ts.GroupID
		winner.Score = ts.Score
	}
	return game.GameOverStats{
		Winner:            winner,
		WinnerRevealPhase: []string{},
		TopRareWords:      []game.RareWord{},
		PlayerStats:       map[string]game.PlayerEndGameStats{},
	}
}

func (l *Lobby) forfeitGame(playerID string) {
	if l.state.Phase != game.PhaseInProgress {
		return
	}
	if l.state.PlayerByID(playerID) == nil {
		return
	}
	stats, err := game.GameForfeitStats(&l.state, playerID)
	if err != nil {
		l.deps.Log.Error("game forfeit rejected",
			zap.String("lobby", l.state.ID), zap.Error(err))
		return
	}
	if l.sched != nil {
		l.sched.Stop()
	}
	l.finishGame(stats)
}

func (l *Lobby) finishGame(stats game.GameOverStats) {
	l.gen++
	l.state.Phase = game.PhaseFinished
	l.gameOver = &stats
	l.applyCareerStats(stats)
	l.publish()
	l.notifyAsync(notify.LobbyUpdated)
}

// applyCareerStats persists each human player's career delta exactly once per
// game. Persistence failures are logged, never shown mid-celebration.
func (l *Lobby) applyCareerStats(stats game.GameOverStats) {
	if l.statsApplied || l.deps.Store == nil {
		return
	}
	l.statsApplied = true
	type delta struct {
		playerID string
		result   game.GameResult
		points   int
	}
	var deltas []delta
	for _, p := range l.state.Humans() {
		result, points := game.CareerOutcome(&l.state, p.ID, stats)
		deltas = append(deltas, delta{playerID: p.ID, result: result, points: points})
	}
	log := l.deps.Log
	st := l.deps.Store
	lobbyID := l.state.ID
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		for _, d := range deltas {
			if _, err := st.RecordResult(ctx, d.playerID, d.result, d.points); err != nil {
				log.Error("career stats update failed",
					zap.String("lobby", lobbyID),
					zap.String("player", d.playerID),
					zap.Error(err))
			}
		}
	}()
}
