package ai

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/eretz-ir/backend/internal/game"
)

// NoAnswerReason is the reason attached to a category a player left blank.
// The text is shown to Hebrew-speaking players verbatim.
const NoAnswerReason = "לא ניתנה תשובה"

// mustJSON inlines a value into a prompt. Marshal cannot fail for the plain
// structs and maps used here.
func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(b)
}

func botPlanPrompt(letter string, categories []string, difficulty game.Difficulty) string {
	var b strings.Builder
	fmt.Fprintf(&b, `You are simulating a computer opponent in the Hebrew word game "ארץ עיר" (Eretz Ir).
The round letter is "%s". The categories are: %s.
Difficulty level: %s.

Produce an ordered plan of actions for the bot. Each action is either
{"type":"thinking","delay":<seconds>} or
{"type":"answering","category":"<category>","answer":"<Hebrew word>","delay":<seconds>}.
Rules:
- Every answer must be a real Hebrew word that belongs to its category and starts with the letter "%s".
- Delays are seconds from the start of the round and must be strictly increasing.
- On "easy" leave 1-2 categories unanswered and include a plausible mistake; on "normal" answer most categories correctly; on "hard" answer every category with strong, less common words.
- Answer each category at most once.

Return ONLY a JSON object of the shape {"botAnswerPlan":[...]} with no extra text.`,
		letter, mustJSON(categories), difficulty, letter)
	return b.String()
}

func validatePrompt(req ValidateRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, `You are the judge of a round of the Hebrew word game "ארץ עיר" (Eretz Ir).
The round letter is "%s". The categories are: %s.

Players: %s
Groups: %s
Answers submitted by human players, keyed by player id: %s
`, req.Letter, mustJSON(req.Categories), mustJSON(req.Players), mustJSON(req.Groups), mustJSON(req.HumanAnswers))
	if len(req.BotPlan) > 0 {
		fmt.Fprintf(&b, "Computer players followed this answer plan (treat the \"answering\" entries as their submissions): %s\n", mustJSON(req.BotPlan))
	}
	fmt.Fprintf(&b, `
Grade every answer of every player by these rules:
1. An answer is valid only if it is a real Hebrew word, belongs to its category, and starts with the letter "%s". Invalid answers score 0 and must carry a short reason in Hebrew.
2. A valid answer scores a base of 10 points plus a rarity bonus of 1 to 5 (5 for the rarest words).
3. If two players from DIFFERENT groups submitted the same answer for the same category, both answers score 0 and are marked "conflict": true. Identical answers within the same group are not a conflict.
4. A player whose answers are all valid receives a combo bonus of 5 points, recorded in bonusScore.
5. A category with no submission scores 0 with the reason "%s".

Return ONLY a JSON object, no extra text, of the shape:
{
  "letter": "%s",
  "answers": {"<playerId>": [{"category": "...", "answer": "...", "status": "valid"|"invalid", "reason": "...", "score": N, "conflict": false, "rarityBonus": N}]},
  "scores": {"<playerId>": {"baseScore": N, "bonusScore": N, "comboBonus": N, "total": N}},
  "summary": "<one short sentence in Hebrew about the round>"
}
Include an entry for EVERY player id, bots included.`, req.Letter, NoAnswerReason, req.Letter)
	return b.String()
}

func hintPrompt(category, letter string) string {
	return fmt.Sprintf(`A player in the Hebrew word game "ארץ עיר" is stuck on the category "%s" with the letter "%s".
Give one short hint in Hebrew that nudges them toward a valid answer WITHOUT revealing any answer itself.
Return ONLY a JSON object: {"hintType": "<direction|riddle|first-sound>", "hintText": "<the hint in Hebrew>"}.`,
		category, letter)
}

func summaryPrompt(results []game.RoundResult, players []game.Player, groups []game.Group) string {
	return fmt.Sprintf(`A full game of the Hebrew word game "ארץ עיר" has finished.
Players: %s
Groups: %s
Round-by-round results: %s

Analyze the whole game and return ONLY a JSON object, no extra text, of the shape:
{
  "winner": {"type": "player"|"team", "id": "...", "name": "...", "score": N},
  "winnerRevealPhase": ["<3 short dramatic sentences in Hebrew building up to the reveal>"],
  "topRareWords": [{"word": "...", "category": "...", "bonus": N}],
  "playerStats": {"<playerId>": {"correctAnswers": N, "invalidAnswers": N, "conflicts": N, "hintsUsed": N, "strongestCategory": {"category": "...", "score": N}}}
}
The winner is the player (or team, in team games) with the highest total score. All prose must be in Hebrew. topRareWords holds at most 3 entries.`,
		mustJSON(players), mustJSON(groups), mustJSON(results))
}
