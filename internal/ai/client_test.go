package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/eretz-ir/backend/internal/game"
)

// newTestClient points a Client at a fake generateContent endpoint that
// replies with the given JSON text as the single candidate part.
func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{
		BaseURL: srv.URL,
		APIKey:  "test-key",
		Model:   "test-model",
		Timeout: 2 * time.Second,
	}, zap.NewNop())
}

func candidateReply(t *testing.T, w http.ResponseWriter, text string) {
	t.Helper()
	resp := map[string]any{
		"candidates": []map[string]any{
			{"content": map[string]any{"parts": []map[string]any{{"text": text}}}},
		},
	}
	require.NoError(t, json.NewEncoder(w).Encode(resp))
}

func TestGenerateBotPlan(t *testing.T) {
	plan := `{"botAnswerPlan":[
		{"type":"thinking","delay":2.5},
		{"type":"answering","category":"עיר","answer":"אשדוד","delay":6.1}
	]}`
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1beta/models/test-model:generateContent", r.URL.Path)
		require.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))
		candidateReply(t, w, plan)
	})

	actions, err := c.GenerateBotPlan(context.Background(), "א", []string{"עיר"}, game.DifficultyNormal)
	require.NoError(t, err)
	require.Len(t, actions, 2)
	require.Equal(t, game.BotThinking, actions[0].Type)
	require.Equal(t, game.BotAnswering, actions[1].Type)
	require.Equal(t, "אשדוד", actions[1].Answer)
	require.InDelta(t, 6.1, actions[1].Delay, 0.001)
}

func TestGenerateBotPlanRejectsUnknownAction(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		candidateReply(t, w, `{"botAnswerPlan":[{"type":"dancing","delay":1}]}`)
	})
	_, err := c.GenerateBotPlan(context.Background(), "א", []string{"עיר"}, game.DifficultyEasy)
	require.ErrorIs(t, err, ErrBadResponse)
}

func TestValidateRoundBackfillsMissingCategories(t *testing.T) {
	reply := `{
		"letter": "ב",
		"answers": {"p1": [{"category":"עיר","answer":"באר שבע","status":"valid","score":10,"rarityBonus":2}]},
		"scores": {"p1": {"baseScore":10,"bonusScore":2,"total":12}},
		"summary": "סבב טוב"
	}`
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		candidateReply(t, w, reply)
	})

	req := ValidateRequest{
		Letter:     "ב",
		Categories: []string{"עיר", "חי"},
		HumanAnswers: map[string][]game.CategoryAnswer{
			"p1": {{Category: "עיר", Answer: "באר שבע"}},
		},
		Players: []game.Player{
			{ID: "p1", Name: "דנה", Type: game.PlayerHuman},
			{ID: "bot-1", Name: "בוט 1", Type: game.PlayerComputer},
		},
	}
	result, err := c.ValidateRound(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, "ב", result.Letter)

	// p1 answered one of two categories; the other is filled in as invalid.
	require.Len(t, result.Answers["p1"], 2)
	var filled *game.Answer
	for i := range result.Answers["p1"] {
		if result.Answers["p1"][i].Category == "חי" {
			filled = &result.Answers["p1"][i]
		}
	}
	require.NotNil(t, filled)
	require.Equal(t, game.AnswerInvalid, filled.Status)
	require.Equal(t, NoAnswerReason, filled.Reason)

	// The judge never mentioned bot-1; it still gets entries.
	require.Len(t, result.Answers["bot-1"], 2)
	score, ok := result.Scores["bot-1"]
	require.True(t, ok)
	require.Zero(t, score.Total)
}

func TestValidateRoundMissingScoresIsBadResponse(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		candidateReply(t, w, `{"letter":"ב","answers":{}}`)
	})
	_, err := c.ValidateRound(context.Background(), ValidateRequest{Letter: "ב"})
	require.ErrorIs(t, err, ErrBadResponse)
}

func TestGetHint(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		candidateReply(t, w, `{"hintType":"direction","hintText":"עיר בדרום הארץ"}`)
	})
	hint, err := c.GetHint(context.Background(), "עיר", "ב")
	require.NoError(t, err)
	require.Equal(t, "עיר בדרום הארץ", hint.HintText)
}

func TestGameSummaryRequiresWinner(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		candidateReply(t, w, `{"winnerRevealPhase":["..."],"topRareWords":[],"playerStats":{}}`)
	})
	_, err := c.GameSummary(context.Background(), nil, nil, nil)
	require.ErrorIs(t, err, ErrBadResponse)
}

func TestErrorStatusIsRequestFailed(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"quota"}`, http.StatusTooManyRequests)
	})
	_, err := c.GetHint(context.Background(), "עיר", "ב")
	require.ErrorIs(t, err, ErrRequestFailed)
	require.False(t, errors.Is(err, ErrBadResponse))
}

func TestGarbledCandidateIsBadResponse(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		candidateReply(t, w, `this is not json`)
	})
	_, err := c.GetHint(context.Background(), "עיר", "ב")
	require.ErrorIs(t, err, ErrBadResponse)
}

func TestContextTimeout(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := c.GetHint(ctx, "עיר", "ב")
	require.Error(t, err)
	require.ErrorIs(t, err, ErrRequestFailed)
	require.NotEmpty(t, fmt.Sprint(err))
}
