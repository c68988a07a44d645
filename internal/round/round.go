package round

import (
	"errors"
	"slices"
	"strings"

	"github.com/eretz-ir/backend/internal/game"
)

var (
	ErrWrongPhase         = errors.New("command not valid in current phase")
	ErrNotChooser         = errors.New("player is not the letter chooser")
	ErrBadLetter          = errors.New("letter is not among the offered options")
	ErrUnknownPlayer      = errors.New("player not seated in this round")
	ErrAlreadyFinished    = errors.New("player already finished the round")
	ErrRoundOver          = errors.New("round already completed")
	ErrUnsupportedCommand = errors.New("unsupported command")
)

type Phase string

const (
	PhaseChoosing  Phase = "choosing"
	PhaseAnswering Phase = "answering"
	PhaseFinished  Phase = "round_finished"
	PhaseResults   Phase = "results"
)

type Status string

const (
	StatusWaiting   Status = "waiting"
	StatusWriting   Status = "writing"
	StatusFinished  Status = "finished"
	StatusTimesUp   Status = "times_up"
	StatusForfeited Status = "forfeited"
)

// ExtraTarget names the side granted the extra-time window.
type ExtraTarget string

const (
	ExtraNone  ExtraTarget = ""
	ExtraHuman ExtraTarget = "human"
	ExtraBot   ExtraTarget = "bot"
)

// Seat is a roster snapshot entry, frozen for the duration of one round.
type Seat struct {
	ID      string
	Type    game.PlayerType
	GroupID string
}

type Progress struct {
	PlayerID     string `json:"playerId"`
	Status       Status `json:"status"`
	AnswersCount int    `json:"answersCount"`
	Finished     bool   `json:"finishedRound"`
}

type State struct {
	Phase         Phase
	Round         int
	Seats         []Seat
	LetterOptions []string
	ChooserID     string
	Letter        string
	Duration      int // seconds
	Remaining     int
	Elapsed       int
	ExtraTimeFor  ExtraTarget
	Progress      map[string]Progress
	// Answers holds the latest human submissions: player -> category -> entries.
	Answers     map[string]map[string][]string
	ForfeitedBy string
	completed   bool
}

func NewState(roundNum int, seats []Seat, options []string, chooserID string, duration int) State {
	progress := make(map[string]Progress, len(seats))
	for _, seat := range seats {
		progress[seat.ID] = Progress{PlayerID: seat.ID, Status: StatusWaiting}
	}
	return State{
		Phase:         PhaseChoosing,
		Round:         roundNum,
		Seats:         seats,
		LetterOptions: options,
		ChooserID:     chooserID,
		Duration:      duration,
		Remaining:     duration,
		Progress:      progress,
		Answers:       map[string]map[string][]string{},
	}
}

func (s State) Completed() bool { return s.completed }

func (s State) seat(id string) (Seat, bool) {
	for _, seat := range s.Seats {
		if seat.ID == id {
			return seat, true
		}
	}
	return Seat{}, false
}

// FlatAnswers flattens a player's non-empty submissions in category order.
func (s State) FlatAnswers(playerID string, categories []string) []game.CategoryAnswer {
	var out []game.CategoryAnswer
	byCat := s.Answers[playerID]
	for _, cat := range categories {
		for _, ans := range byCat[cat] {
			if trimmed := strings.TrimSpace(ans); trimmed != "" {
				out = append(out, game.CategoryAnswer{Category: cat, Answer: trimmed})
			}
		}
	}
	return out
}

type CommandType string

const (
	CmdChooseLetter CommandType = "ChooseLetter"
	CmdStartWriting CommandType = "StartWriting"
	CmdSetAnswers   CommandType = "SetAnswers"
	CmdFinish       CommandType = "Finish"
	CmdTick         CommandType = "Tick"
	CmdForceFinish  CommandType = "ForceFinish"
	CmdForfeit      CommandType = "Forfeit"
)

type Command struct {
	Type     CommandType
	PlayerID string
	Letter   string
	Answers  map[string][]string
}

type EventType string

const (
	EvtLetterChosen     EventType = "LetterChosen"
	EvtProgressChanged  EventType = "ProgressChanged"
	EvtExtraTimeGranted EventType = "ExtraTimeGranted"
	EvtRoundCompleted   EventType = "RoundCompleted"
	EvtRoundForfeited   EventType = "RoundForfeited"
)

type Event struct {
	Type     EventType
	PlayerID string
	Letter   string
	Target   ExtraTarget
}

// Apply advances the round state machine. State is treated as a value: the
// returned state shares no mutable data with the input.
func Apply(s State, cmd Command) ([]Event, State, error) {
	if s.completed && cmd.Type != CmdTick {
		return nil, s, ErrRoundOver
	}
	ns := s.clone()

	switch cmd.Type {
	case CmdChooseLetter:
		if s.Phase != PhaseChoosing {
			return nil, s, ErrWrongPhase
		}
		if cmd.PlayerID != s.ChooserID {
			return nil, s, ErrNotChooser
		}
		if !slices.Contains(s.LetterOptions, cmd.Letter) {
			return nil, s, ErrBadLetter
		}
		ns.Phase = PhaseAnswering
		ns.Letter = cmd.Letter
		ns.Remaining = ns.Duration
		ns.Elapsed = 0
		return []Event{{Type: EvtLetterChosen, Letter: cmd.Letter}}, ns, nil

	case CmdStartWriting:
		if s.Phase != PhaseAnswering {
			return nil, s, ErrWrongPhase
		}
		p, ok := ns.Progress[cmd.PlayerID]
		if !ok {
			return nil, s, ErrUnknownPlayer
		}
		if p.Status != StatusWaiting {
			return nil, ns, nil
		}
		p.Status = StatusWriting
		ns.Progress[cmd.PlayerID] = p
		return []Event{{Type: EvtProgressChanged, PlayerID: cmd.PlayerID}}, ns, nil

	case CmdSetAnswers:
		if s.Phase != PhaseAnswering {
			return nil, s, ErrWrongPhase
		}
		p, ok := ns.Progress[cmd.PlayerID]
		if !ok {
			return nil, s, ErrUnknownPlayer
		}
		if p.Finished {
			return nil, s, ErrAlreadyFinished
		}
		ns.Answers[cmd.PlayerID] = copyAnswers(cmd.Answers)
		p.AnswersCount = countFilled(cmd.Answers)
		if p.Status == StatusWaiting && p.AnswersCount > 0 {
			p.Status = StatusWriting
		}
		ns.Progress[cmd.PlayerID] = p
		return []Event{{Type: EvtProgressChanged, PlayerID: cmd.PlayerID}}, ns, nil

	case CmdFinish:
		if s.Phase != PhaseAnswering {
			return nil, s, ErrWrongPhase
		}
		seat, ok := ns.seat(cmd.PlayerID)
		if !ok {
			return nil, s, ErrUnknownPlayer
		}
		p := ns.Progress[cmd.PlayerID]
		if p.Finished {
			return nil, s, ErrAlreadyFinished
		}
		p.Status = StatusFinished
		p.Finished = true
		ns.Progress[cmd.PlayerID] = p
		events := []Event{{Type: EvtProgressChanged, PlayerID: cmd.PlayerID}}

		if ns.allFinished() {
			events = append(events, ns.complete()...)
			return events, ns, nil
		}
		if ns.ExtraTimeFor == ExtraNone && ns.teamFinished(seat.GroupID) {
			target := ns.otherSideTarget(seat.GroupID)
			ns.ExtraTimeFor = target
			if target == ExtraHuman && ns.Remaining > game.ExtraTimeSeconds {
				ns.Remaining = game.ExtraTimeSeconds
			}
			events = append(events, Event{Type: EvtExtraTimeGranted, Target: target})
		}
		return events, ns, nil

	case CmdTick:
		if s.completed || s.Phase != PhaseAnswering {
			return nil, s, nil
		}
		ns.Elapsed++
		ns.Remaining--
		if ns.Remaining <= 0 {
			ns.Remaining = 0
			return ns.complete(), ns, nil
		}
		return nil, ns, nil

	case CmdForceFinish:
		if s.Phase != PhaseAnswering {
			return nil, s, ErrWrongPhase
		}
		return ns.complete(), ns, nil

	case CmdForfeit:
		if s.Phase != PhaseAnswering && s.Phase != PhaseChoosing {
			return nil, s, ErrWrongPhase
		}
		p, ok := ns.Progress[cmd.PlayerID]
		if !ok {
			return nil, s, ErrUnknownPlayer
		}
		p.Status = StatusForfeited
		p.Finished = true
		ns.Progress[cmd.PlayerID] = p
		ns.ForfeitedBy = cmd.PlayerID
		ns.Phase = PhaseFinished
		ns.completed = true
		return []Event{{Type: EvtRoundForfeited, PlayerID: cmd.PlayerID}}, ns, nil

	default:
		return nil, s, ErrUnsupportedCommand
	}
}

// complete marks the round finished exactly once; players who never finished
// are stamped times_up.
func (s *State) complete() []Event {
	if s.completed {
		return nil
	}
	s.completed = true
	s.Phase = PhaseFinished
	for id, p := range s.Progress {
		if !p.Finished {
			p.Status = StatusTimesUp
			s.Progress[id] = p
		}
	}
	return []Event{{Type: EvtRoundCompleted}}
}

func (s *State) allFinished() bool {
	for _, seat := range s.Seats {
		if !s.Progress[seat.ID].Finished {
			return false
		}
	}
	return true
}

func (s *State) teamFinished(groupID string) bool {
	any := false
	for _, seat := range s.Seats {
		if seat.GroupID != groupID {
			continue
		}
		any = true
		if !s.Progress[seat.ID].Finished {
			return false
		}
	}
	return any
}

// otherSideTarget classifies the still-playing side: human if any unfinished
// human remains there, bot otherwise.
func (s *State) otherSideTarget(finishedGroupID string) ExtraTarget {
	for _, seat := range s.Seats {
		if seat.GroupID == finishedGroupID {
			continue
		}
		if seat.Type == game.PlayerHuman && !s.Progress[seat.ID].Finished {
			return ExtraHuman
		}
	}
	return ExtraBot
}

func (s State) clone() State {
	ns := s
	ns.Progress = make(map[string]Progress, len(s.Progress))
	for k, v := range s.Progress {
		ns.Progress[k] = v
	}
	ns.Answers = make(map[string]map[string][]string, len(s.Answers))
	for pid, byCat := range s.Answers {
		ns.Answers[pid] = copyAnswers(byCat)
	}
	ns.Seats = slices.Clone(s.Seats)
	ns.LetterOptions = slices.Clone(s.LetterOptions)
	return ns
}

func copyAnswers(in map[string][]string) map[string][]string {
	out := make(map[string][]string, len(in))
	for cat, answers := range in {
		out[cat] = slices.Clone(answers)
	}
	return out
}

func countFilled(answers map[string][]string) int {
	n := 0
	for _, entries := range answers {
		for _, a := range entries {
			if strings.TrimSpace(a) != "" {
				n++
				break
			}
		}
	}
	return n
}
