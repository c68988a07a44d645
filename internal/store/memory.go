package store

import (
	"context"
	"sync"

	"github.com/eretz-ir/backend/internal/game"
)

// Memory is an in-process Store for development and tests.
type Memory struct {
	mu       sync.RWMutex
	profiles map[string]UserProfile
	stats    map[string]PlayerStats
}

var _ Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		profiles: make(map[string]UserProfile),
		stats:    make(map[string]PlayerStats),
	}
}

func (m *Memory) Profile(_ context.Context, playerID string) (UserProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.profiles[playerID]
	if !ok {
		return NewProfile(playerID), nil
	}
	if err := checkVersion("profile", p.SchemaVersion); err != nil {
		return UserProfile{}, err
	}
	return p, nil
}

func (m *Memory) SaveProfile(_ context.Context, p UserProfile) error {
	p.SchemaVersion = SchemaVersion
	p.ProfileComplete = p.Nickname != "" && p.AvatarID != ""
	m.mu.Lock()
	m.profiles[p.PlayerID] = p
	m.mu.Unlock()
	return nil
}

func (m *Memory) Stats(_ context.Context, playerID string) (PlayerStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.stats[playerID]
	if !ok {
		return PlayerStats{PlayerID: playerID, SchemaVersion: SchemaVersion}, nil
	}
	if err := checkVersion("stats", s.SchemaVersion); err != nil {
		return PlayerStats{}, err
	}
	return s, nil
}

func (m *Memory) RecordResult(_ context.Context, playerID string, result game.GameResult, points int) (PlayerStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.stats[playerID]
	if !ok {
		s = PlayerStats{PlayerID: playerID}
	} else if err := checkVersion("stats", s.SchemaVersion); err != nil {
		return PlayerStats{}, err
	}
	s.apply(result, points)
	m.stats[playerID] = s
	return s, nil
}
