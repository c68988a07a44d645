// Package ai is the gateway to the external generative model that does the
// judging work this server deliberately does not: answer validation and
// scoring, bot answer plans, hints, and the end-of-game summary. The service
// is addressed as a black box that accepts a prompt and returns JSON matching
// a requested shape.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/eretz-ir/backend/internal/game"
)

var (
	// ErrRequestFailed covers transport errors and non-2xx statuses.
	ErrRequestFailed = errors.New("ai request failed")
	// ErrBadResponse covers a 2xx reply whose body does not decode into the
	// expected shape.
	ErrBadResponse = errors.New("ai response malformed")
)

type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

type Client struct {
	cfg    Config
	client *http.Client
	log    *zap.Logger
}

func NewClient(cfg Config, log *zap.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	dialer := &net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         dialer.DialContext,
		MaxIdleConns:        16,
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     90 * time.Second,
		ForceAttemptHTTP2:   true,
	}
	return &Client{
		cfg:    cfg,
		client: &http.Client{Transport: transport, Timeout: cfg.Timeout},
		log:    log,
	}
}

// Hint is one in-round hint for a category/letter pair.
type Hint struct {
	HintType string `json:"hintType"`
	HintText string `json:"hintText"`
}

// GenerateBotPlan asks for an ordered, timed action plan for the computer
// opponents in one round.
func (c *Client) GenerateBotPlan(ctx context.Context, letter string, categories []string, difficulty game.Difficulty) ([]game.BotAction, error) {
	var out struct {
		BotAnswerPlan []game.BotAction `json:"botAnswerPlan"`
	}
	if err := c.generate(ctx, botPlanPrompt(letter, categories, difficulty), &out); err != nil {
		return nil, err
	}
	for _, a := range out.BotAnswerPlan {
		if a.Type != game.BotThinking && a.Type != game.BotAnswering {
			return nil, fmt.Errorf("%w: unknown bot action type %q", ErrBadResponse, a.Type)
		}
	}
	return out.BotAnswerPlan, nil
}

// ValidateRequest carries everything the judge needs for one round.
type ValidateRequest struct {
	Letter       string
	Categories   []string
	HumanAnswers map[string][]game.CategoryAnswer
	Players      []game.Player
	Groups       []game.Group
	BotPlan      []game.BotAction
}

// ValidateRound submits a finished round for grading. The reply is normalized
// so every player has an entry per category and a score record, even when the
// judge omitted them.
func (c *Client) ValidateRound(ctx context.Context, req ValidateRequest) (game.RoundResult, error) {
	var out struct {
		Letter  string                           `json:"letter"`
		Answers map[string][]game.Answer         `json:"answers"`
		Scores  map[string]game.PlayerRoundScore `json:"scores"`
		Summary string                           `json:"summary"`
	}
	if err := c.generate(ctx, validatePrompt(req), &out); err != nil {
		return game.RoundResult{}, err
	}
	if out.Answers == nil || out.Scores == nil {
		return game.RoundResult{}, fmt.Errorf("%w: missing answers or scores", ErrBadResponse)
	}

	result := game.RoundResult{
		Letter:  req.Letter,
		Answers: out.Answers,
		Scores:  out.Scores,
		Summary: out.Summary,
		BotPlan: req.BotPlan,
	}
	for _, p := range req.Players {
		answers := result.Answers[p.ID]
		have := map[string]bool{}
		for _, a := range answers {
			have[a.Category] = true
		}
		for _, cat := range req.Categories {
			if !have[cat] {
				answers = append(answers, game.Answer{
					Category: cat,
					Status:   game.AnswerInvalid,
					Reason:   NoAnswerReason,
				})
			}
		}
		result.Answers[p.ID] = answers
		if _, ok := result.Scores[p.ID]; !ok {
			result.Scores[p.ID] = game.PlayerRoundScore{}
		}
	}
	return result, nil
}

// GetHint fetches a single hint. The hint must never be a full answer; that
// is the model's contract, not something this side can verify.
func (c *Client) GetHint(ctx context.Context, category, letter string) (Hint, error) {
	var out Hint
	if err := c.generate(ctx, hintPrompt(category, letter), &out); err != nil {
		return Hint{}, err
	}
	if out.HintText == "" {
		return Hint{}, fmt.Errorf("%w: empty hint", ErrBadResponse)
	}
	return out, nil
}

// GameSummary asks for the end-of-game analysis over the full round history.
func (c *Client) GameSummary(ctx context.Context, results []game.RoundResult, players []game.Player, groups []game.Group) (game.GameOverStats, error) {
	var out game.GameOverStats
	if err := c.generate(ctx, summaryPrompt(results, players, groups), &out); err != nil {
		return game.GameOverStats{}, err
	}
	if out.Winner.ID == "" {
		return game.GameOverStats{}, fmt.Errorf("%w: missing winner", ErrBadResponse)
	}
	if out.PlayerStats == nil {
		out.PlayerStats = map[string]game.PlayerEndGameStats{}
	}
	if out.TopRareWords == nil {
		out.TopRareWords = []game.RareWord{}
	}
	return out, nil
}

// generateContent wire types.

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	ResponseMIMEType string `json:"responseMimeType"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// generate issues one prompt and decodes the returned JSON text into out.
// No retries: a failure here is surfaced to the caller as-is.
func (c *Client) generate(ctx context.Context, prompt string, out any) error {
	payload, err := json.Marshal(generateRequest{
		Contents:         []content{{Parts: []part{{Text: prompt}}}},
		GenerationConfig: generationConfig{ResponseMIMEType: "application/json"},
	})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.cfg.BaseURL, c.cfg.Model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.cfg.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read body: %v", ErrRequestFailed, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.log.Warn("ai gateway returned error status",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", truncate(body, 512)))
		return fmt.Errorf("%w: status %d", ErrRequestFailed, resp.StatusCode)
	}

	var gr generateResponse
	if err := json.Unmarshal(body, &gr); err != nil {
		return fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
	if len(gr.Candidates) == 0 || len(gr.Candidates[0].Content.Parts) == 0 {
		return fmt.Errorf("%w: no candidates", ErrBadResponse)
	}
	text := gr.Candidates[0].Content.Parts[0].Text
	if err := json.Unmarshal([]byte(text), out); err != nil {
		return fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
	return nil
}

func truncate(b []byte, n int) []byte {
	if len(b) <= n {
		return b
	}
	return b[:n]
}
