package game

import "math/rand"

// RandomLetters draws count distinct letters from the Hebrew alphabet.
func RandomLetters(count int) []string {
	if count > len(HebrewAlphabet) {
		count = len(HebrewAlphabet)
	}
	perm := rand.Perm(len(HebrewAlphabet))
	out := make([]string, count)
	for i := 0; i < count; i++ {
		out[i] = HebrewAlphabet[perm[i]]
	}
	return out
}

// ChooserForRound rotates letter choice through the roster, first player first.
func ChooserForRound(players []Player, round int) string {
	if len(players) == 0 {
		return ""
	}
	return players[(round-1)%len(players)].ID
}
