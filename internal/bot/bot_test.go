package bot

import (
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/eretz-ir/backend/internal/game"
)

func TestLetterChoiceDelayRange(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 1000; i++ {
		d := LetterChoiceDelay(rng)
		if d < 2*time.Second || d > 6*time.Second {
			t.Fatalf("delay out of range: %v", d)
		}
	}
}

func TestPlannedFinishRange(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for _, duration := range game.RoundTimes {
		for i := 0; i < 1000; i++ {
			p := PlannedFinish(rng, duration)
			lo, hi := float64(duration)*0.3, float64(duration)*0.8
			if p < lo || p > hi {
				t.Fatalf("planned finish %f outside [%f, %f] for duration %d", p, lo, hi, duration)
			}
		}
	}
}

func TestCanFinish(t *testing.T) {
	cases := []struct {
		name                   string
		elapsed, planned       float64
		humanAnswers, remaining int
		want                   bool
	}{
		{"before planned time", 10, 20, 9, 5, false},
		{"planned passed, human productive", 20, 20, 4, 30, true},
		{"planned passed, human idle, time left", 20, 20, 3, 30, false},
		{"planned passed, human idle, clock low", 20, 20, 0, 7, true},
		{"boundary: exactly 8s left is not low", 20, 20, 0, 8, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := CanFinish(tc.elapsed, tc.planned, tc.humanAnswers, tc.remaining)
			if got != tc.want {
				t.Fatalf("want %v, got %v", tc.want, got)
			}
		})
	}
}

func TestPickLetter(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	options := []string{"א", "ב", "ג"}
	for i := 0; i < 100; i++ {
		l := PickLetter(rng, options)
		if l != "א" && l != "ב" && l != "ג" {
			t.Fatalf("picked letter outside options: %q", l)
		}
	}
	if l := PickLetter(rng, nil); l != "" {
		t.Fatalf("empty options should pick nothing, got %q", l)
	}
}

func TestSchedulerCountsInFiringOrder(t *testing.T) {
	s := NewScheduler()
	defer s.Stop()

	var mu sync.Mutex
	var counts []int
	done := make(chan struct{})

	// Deliberately unsorted delays: counts must still come out 1, 2, 3.
	plan := []game.BotAction{
		{Type: game.BotAnswering, Category: "עיר", Answer: "אשדוד", Delay: 0.03},
		{Type: game.BotThinking, Delay: 0.01},
		{Type: game.BotAnswering, Category: "חי", Answer: "ארנב", Delay: 0.01},
		{Type: game.BotAnswering, Category: "ארץ", Answer: "אנגולה", Delay: 0.05},
	}
	s.Schedule(plan, func(completed int) {
		mu.Lock()
		counts = append(counts, completed)
		if len(counts) == 3 {
			close(done)
		}
		mu.Unlock()
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for plan to fire")
	}
	mu.Lock()
	defer mu.Unlock()
	for i, c := range counts {
		if c != i+1 {
			t.Fatalf("counts not monotonic: %v", counts)
		}
	}
}

func TestSchedulerStopSwallowsLateFires(t *testing.T) {
	s := NewScheduler()
	fired := make(chan int, 8)
	s.Schedule([]game.BotAction{
		{Type: game.BotAnswering, Category: "עיר", Answer: "אשדוד", Delay: 0.05},
	}, func(completed int) { fired <- completed })
	s.Stop()

	select {
	case n := <-fired:
		t.Fatalf("timer fired after Stop: %d", n)
	case <-time.After(150 * time.Millisecond):
	}

	// Scheduling after Stop is a no-op.
	s.Schedule([]game.BotAction{
		{Type: game.BotAnswering, Category: "חי", Answer: "ארנב", Delay: 0},
	}, func(completed int) { fired <- completed })
	select {
	case n := <-fired:
		t.Fatalf("stopped scheduler armed a timer: %d", n)
	case <-time.After(100 * time.Millisecond):
	}
}
