package game

type PlayerType string

const (
	PlayerHuman    PlayerType = "human"
	PlayerComputer PlayerType = "computer"
)

type GameMode string

const (
	ModeSinglePlayer GameMode = "single_player"
	ModeVsComputer   GameMode = "vs_computer"
	ModeVsPlayer     GameMode = "vs_player"
)

type Structure string

const (
	Structure1v1        Structure = "1v1"
	Structure2v2        Structure = "2v2"
	Structure1v2        Structure = "1v2"
	Structure1v3        Structure = "1v3"
	StructureFreeForAll Structure = "freeForAll"
)

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyNormal Difficulty = "normal"
	DifficultyHard   Difficulty = "hard"
)

type LobbyPhase string

const (
	PhaseLobby      LobbyPhase = "lobby"
	PhaseCountdown  LobbyPhase = "countdown"
	PhaseInProgress LobbyPhase = "in_progress"
	PhaseFinished   LobbyPhase = "finished"
)

type Player struct {
	ID      string     `json:"id"`
	Name    string     `json:"name"`
	Avatar  string     `json:"avatar"`
	Score   int        `json:"score"`
	Ready   bool       `json:"isReady"`
	Type    PlayerType `json:"playerType"`
	GroupID string     `json:"groupId,omitempty"`
	Host    bool       `json:"isHost,omitempty"`
}

type Group struct {
	GroupID string   `json:"groupId"`
	Players []string `json:"players"`
}

type TeamScore struct {
	GroupID string `json:"groupId"`
	Score   int    `json:"score"`
}

type Settings struct {
	RoundTime  int        `json:"roundTime"` // seconds
	Rounds     int        `json:"rounds"`
	Categories []string   `json:"categories"`
	Difficulty Difficulty `json:"difficulty"`
	Mode       GameMode   `json:"gameMode"`
	Structure  Structure  `json:"gameStructure"`
}

type AnswerStatus string

const (
	AnswerValid   AnswerStatus = "valid"
	AnswerInvalid AnswerStatus = "invalid"
)

// CategoryAnswer is one raw, ungraded submission as sent to the judge.
type CategoryAnswer struct {
	Category string `json:"category"`
	Answer   string `json:"answer"`
}

// Answer is a single graded submission as returned by the judge.
type Answer struct {
	Category    string       `json:"category"`
	Answer      string       `json:"answer"`
	Status      AnswerStatus `json:"status"`
	Reason      string       `json:"reason,omitempty"`
	Score       int          `json:"score"`
	Conflict    bool         `json:"conflict"`
	RarityBonus int          `json:"rarityBonus"`
}

type PlayerRoundScore struct {
	BaseScore  int `json:"baseScore"`
	BonusScore int `json:"bonusScore"`
	ComboBonus int `json:"comboBonus,omitempty"`
	Total      int `json:"total"`
}

type BotActionType string

const (
	BotThinking  BotActionType = "thinking"
	BotAnswering BotActionType = "answering"
)

// BotAction is one step of a bot's fabricated answer plan. Delay is measured
// in seconds from the start of the answering phase.
type BotAction struct {
	Type     BotActionType `json:"type"`
	Category string        `json:"category"`
	Answer   string        `json:"answer"`
	Delay    float64       `json:"delay"`
}

// RoundResult is immutable once appended to LobbyState.RoundResults.
type RoundResult struct {
	Letter  string                      `json:"letter"`
	Answers map[string][]Answer         `json:"answers"`
	Scores  map[string]PlayerRoundScore `json:"scores"`
	BotPlan []BotAction                 `json:"botAnswerPlan,omitempty"`
	Summary string                      `json:"summary"`

	EndedBy             string `json:"endedBy,omitempty"` // "forfeit" when set
	ForfeitingPlayerID  string `json:"forfeitingPlayerId,omitempty"`
	ForfeitPenalty      int    `json:"forfeitingPlayerPenalty,omitempty"`
	WinnerForfeitPoints int    `json:"winnerForfeitPoints,omitempty"`
}

type WinnerInfo struct {
	Type   string `json:"type"` // "player" | "team"
	ID     string `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
	Score  int    `json:"score"`
}

type PlayerEndGameStats struct {
	CorrectAnswers    int              `json:"correctAnswers"`
	InvalidAnswers    int              `json:"invalidAnswers"`
	Conflicts         int              `json:"conflicts"`
	HintsUsed         int              `json:"hintsUsed"`
	StrongestCategory CategoryHighlight `json:"strongestCategory"`
}

type CategoryHighlight struct {
	Category string `json:"category"`
	Score    int    `json:"score"`
}

type RareWord struct {
	Word     string `json:"word"`
	Category string `json:"category"`
	Bonus    int    `json:"bonus"`
}

type GameOverStats struct {
	Winner            WinnerInfo                    `json:"winner"`
	WinnerRevealPhase []string                      `json:"winnerRevealPhase"`
	TopRareWords      []RareWord                    `json:"topRareWords"`
	PlayerStats       map[string]PlayerEndGameStats `json:"playerStats"`

	EndedBy            string `json:"endedBy,omitempty"`
	ForfeitingPlayerID string `json:"forfeitingPlayerId,omitempty"`
	ForfeitPenalty     int    `json:"forfeitingPlayerPenalty,omitempty"`
}

// LobbyState is the authoritative record for one lobby/game. It is owned by a
// single lobby goroutine; everyone else sees versioned copies.
type LobbyState struct {
	ID           string        `json:"id"`
	InviteCode   string        `json:"inviteCode"`
	Settings     Settings      `json:"settings"`
	Players      []Player      `json:"players"`
	Groups       []Group       `json:"groups"`
	TeamScores   []TeamScore   `json:"teamScores"`
	CurrentRound int           `json:"currentRound"`
	RoundResults []RoundResult `json:"roundResults"`
	Phase        LobbyPhase    `json:"gameState"`
}

// Clone returns a copy sharing no mutable data with the original.
// RoundResults entries are immutable once appended, so the slice is copied
// shallowly.
func (s *LobbyState) Clone() LobbyState {
	out := *s
	out.Players = append([]Player(nil), s.Players...)
	out.Groups = make([]Group, len(s.Groups))
	for i, g := range s.Groups {
		out.Groups[i] = Group{GroupID: g.GroupID, Players: append([]string(nil), g.Players...)}
	}
	out.TeamScores = append([]TeamScore(nil), s.TeamScores...)
	out.RoundResults = append([]RoundResult(nil), s.RoundResults...)
	out.Settings.Categories = append([]string(nil), s.Settings.Categories...)
	return out
}

func (s *LobbyState) PlayerByID(id string) *Player {
	for i := range s.Players {
		if s.Players[i].ID == id {
			return &s.Players[i]
		}
	}
	return nil
}

func (s *LobbyState) GroupByID(id string) *Group {
	for i := range s.Groups {
		if s.Groups[i].GroupID == id {
			return &s.Groups[i]
		}
	}
	return nil
}

// GroupOf returns the group containing the player, going by the membership
// lists rather than the player's own GroupID.
func (s *LobbyState) GroupOf(playerID string) *Group {
	for i := range s.Groups {
		for _, pid := range s.Groups[i].Players {
			if pid == playerID {
				return &s.Groups[i]
			}
		}
	}
	return nil
}

func (s *LobbyState) TeamScoreOf(groupID string) *TeamScore {
	for i := range s.TeamScores {
		if s.TeamScores[i].GroupID == groupID {
			return &s.TeamScores[i]
		}
	}
	return nil
}

func (s *LobbyState) Humans() []Player {
	var out []Player
	for _, p := range s.Players {
		if p.Type == PlayerHuman {
			out = append(out, p)
		}
	}
	return out
}

func (s *LobbyState) Bots() []Player {
	var out []Player
	for _, p := range s.Players {
		if p.Type == PlayerComputer {
			out = append(out, p)
		}
	}
	return out
}
