// Package store persists player identity and career statistics across games.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/eretz-ir/backend/internal/game"
)

// SchemaVersion is stamped on every record this build writes. Reads of a
// record with a higher version fail loudly instead of guessing at its shape.
const SchemaVersion = 1

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrVersionUnsupported marks a record written by a newer build.
	ErrVersionUnsupported = errors.New("record schema version unsupported")
)

func checkVersion(kind string, v int) error {
	if v > SchemaVersion {
		return fmt.Errorf("%w: %s v%d (max v%d)", ErrVersionUnsupported, kind, v, SchemaVersion)
	}
	return nil
}

// UserProfile is the player-facing identity. ProfileComplete flips true once
// both nickname and avatar are set.
type UserProfile struct {
	PlayerID        string `json:"playerId"`
	Nickname        string `json:"nickname"`
	AvatarID        string `json:"avatarId"`
	ProfileComplete bool   `json:"profileComplete"`
	SchemaVersion   int    `json:"schemaVersion"`
}

// PlayerStats is the lifetime career record.
type PlayerStats struct {
	PlayerID       string          `json:"playerId"`
	TotalPoints    int             `json:"totalPoints"`
	TotalWins      int             `json:"totalWins"`
	TotalGames     int             `json:"totalGames"`
	TotalForfeits  int             `json:"totalForfeits"`
	LastGameResult game.GameResult `json:"lastGameResult,omitempty"`
	SchemaVersion  int             `json:"schemaVersion"`
}

// NewProfile is the fresh identity created on a player's first visit.
func NewProfile(playerID string) UserProfile {
	return UserProfile{PlayerID: playerID, SchemaVersion: SchemaVersion}
}

// ProfileStore reads and writes player profiles.
type ProfileStore interface {
	// Profile returns the stored profile, or a fresh one when none exists.
	Profile(ctx context.Context, playerID string) (UserProfile, error)
	SaveProfile(ctx context.Context, p UserProfile) error
}

// StatsStore reads and updates career statistics.
type StatsStore interface {
	// Stats returns the stored record, or a zero record when none exists.
	Stats(ctx context.Context, playerID string) (PlayerStats, error)
	// RecordResult folds one finished game into the career record and
	// returns the updated record. Points may be negative (forfeit).
	RecordResult(ctx context.Context, playerID string, result game.GameResult, points int) (PlayerStats, error)
}

// Store is the full persistence surface the server wires up.
type Store interface {
	ProfileStore
	StatsStore
}

// apply folds one game result into a stats record.
func (s *PlayerStats) apply(result game.GameResult, points int) {
	s.TotalPoints += points
	s.TotalGames++
	switch result {
	case game.ResultWin:
		s.TotalWins++
	case game.ResultForfeit:
		s.TotalForfeits++
	}
	s.LastGameResult = result
	s.SchemaVersion = SchemaVersion
}
