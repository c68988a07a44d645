// Package bot fabricates the temporal behavior of computer opponents: when a
// bot picks a letter, when its answers "land", and when it is allowed to
// declare itself finished. The answers themselves come from an externally
// generated action plan; this package only handles timing.
package bot

import (
	"math/rand"
	"sync"
	"time"

	"github.com/eretz-ir/backend/internal/game"
)

// LetterChoiceDelay is how long a bot pretends to deliberate before picking a
// letter: uniform between 2 and 6 seconds.
func LetterChoiceDelay(rng *rand.Rand) time.Duration {
	return time.Duration((rng.Float64()*4 + 2) * float64(time.Second))
}

// PlannedFinish draws the round-time offset at which the bot intends to stop,
// once per round: roundDuration x (0.3 + rand x 0.5).
func PlannedFinish(rng *rand.Rand, roundDuration int) float64 {
	return float64(roundDuration) * (0.3 + rng.Float64()*0.5)
}

// CanFinish gates the finish signal so the bot never ends a round
// implausibly early: its planned time must have elapsed, and either the human
// has produced at least 4 answers or fewer than 8 seconds remain.
func CanFinish(elapsed float64, planned float64, humanAnswers, remaining int) bool {
	if elapsed < planned {
		return false
	}
	return humanAnswers >= 4 || remaining < 8
}

// PickLetter selects an arbitrary letter from the offered options.
func PickLetter(rng *rand.Rand, options []string) string {
	if len(options) == 0 {
		return ""
	}
	return options[rng.Intn(len(options))]
}

// Scheduler arms one-shot timers for the answering actions of a bot plan.
// Each firing reports the cumulative count of completed answers. Stop cancels
// everything still pending; late fires after Stop are swallowed.
type Scheduler struct {
	mu      sync.Mutex
	timers  []*time.Timer
	fired   int
	stopped bool
}

func NewScheduler() *Scheduler {
	return &Scheduler{}
}

// Schedule arms every answering action in the plan at its delay offset from
// now. Thinking actions carry no observable effect and are skipped. The
// completed count is assigned in firing order, so unsorted plans still report
// a monotonic progression.
func (s *Scheduler) Schedule(plan []game.BotAction, fire func(completed int)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	for _, action := range plan {
		if action.Type != game.BotAnswering {
			continue
		}
		d := time.Duration(action.Delay * float64(time.Second))
		if d < 0 {
			d = 0
		}
		t := time.AfterFunc(d, func() {
			s.mu.Lock()
			if s.stopped {
				s.mu.Unlock()
				return
			}
			s.fired++
			n := s.fired
			s.mu.Unlock()
			fire(n)
		})
		s.timers = append(s.timers, t)
	}
}

func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	for _, t := range s.timers {
		t.Stop()
	}
	s.timers = nil
}
