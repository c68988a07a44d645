package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/eretz-ir/backend/internal/game"
)

func TestProfileFirstVisitIsFresh(t *testing.T) {
	m := NewMemory()
	p, err := m.Profile(context.Background(), "p1")
	require.NoError(t, err)
	require.Equal(t, "p1", p.PlayerID)
	require.False(t, p.ProfileComplete)
	require.Equal(t, SchemaVersion, p.SchemaVersion)
}

func TestSaveProfileCompleteness(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.SaveProfile(ctx, UserProfile{PlayerID: "p1", Nickname: "דנה"}))
	p, err := m.Profile(ctx, "p1")
	require.NoError(t, err)
	require.False(t, p.ProfileComplete, "nickname alone does not complete a profile")

	require.NoError(t, m.SaveProfile(ctx, UserProfile{PlayerID: "p1", Nickname: "דנה", AvatarID: "avatar-3"}))
	p, err = m.Profile(ctx, "p1")
	require.NoError(t, err)
	require.True(t, p.ProfileComplete)
}

func TestRecordResultAccumulates(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	s, err := m.RecordResult(ctx, "p1", game.ResultWin, game.WinPoints)
	require.NoError(t, err)
	require.Equal(t, 1, s.TotalWins)
	require.Equal(t, 1, s.TotalGames)
	require.Equal(t, game.WinPoints, s.TotalPoints)
	require.Equal(t, game.ResultWin, s.LastGameResult)

	s, err = m.RecordResult(ctx, "p1", game.ResultForfeit, game.ForfeitGamePenalty)
	require.NoError(t, err)
	require.Equal(t, 1, s.TotalWins)
	require.Equal(t, 2, s.TotalGames)
	require.Equal(t, 1, s.TotalForfeits)
	require.Equal(t, game.WinPoints+game.ForfeitGamePenalty, s.TotalPoints)
	require.Equal(t, game.ResultForfeit, s.LastGameResult)

	got, err := m.Stats(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, s, got)
}

func TestNewerSchemaVersionIsRejected(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	m.stats["p1"] = PlayerStats{PlayerID: "p1", SchemaVersion: SchemaVersion + 1}
	m.profiles["p1"] = UserProfile{PlayerID: "p1", SchemaVersion: SchemaVersion + 1}

	_, err := m.Stats(ctx, "p1")
	require.ErrorIs(t, err, ErrVersionUnsupported)
	_, err = m.RecordResult(ctx, "p1", game.ResultWin, game.WinPoints)
	require.ErrorIs(t, err, ErrVersionUnsupported)
	_, err = m.Profile(ctx, "p1")
	require.ErrorIs(t, err, ErrVersionUnsupported)
}
