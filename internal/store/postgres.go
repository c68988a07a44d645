package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/eretz-ir/backend/internal/game"
)

type profileRecord struct {
	PlayerID        string `gorm:"column:player_id;primaryKey"`
	Nickname        string `gorm:"column:nickname;not null;default:''"`
	AvatarID        string `gorm:"column:avatar_id;not null;default:''"`
	ProfileComplete bool   `gorm:"column:profile_complete;not null;default:false"`
	SchemaVersion   int    `gorm:"column:schema_version;not null;default:1"`
}

func (profileRecord) TableName() string { return "user_profiles" }

type statsRecord struct {
	PlayerID       string `gorm:"column:player_id;primaryKey"`
	TotalPoints    int    `gorm:"column:total_points;not null;default:0"`
	TotalWins      int    `gorm:"column:total_wins;not null;default:0"`
	TotalGames     int    `gorm:"column:total_games;not null;default:0"`
	TotalForfeits  int    `gorm:"column:total_forfeits;not null;default:0"`
	LastGameResult string `gorm:"column:last_game_result;not null;default:''"`
	SchemaVersion  int    `gorm:"column:schema_version;not null;default:1"`
}

func (statsRecord) TableName() string { return "player_stats" }

// Postgres is the production Store.
type Postgres struct {
	db *gorm.DB
}

var _ Store = (*Postgres)(nil)

func NewPostgres(dsn string) (*Postgres, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.AutoMigrate(&profileRecord{}, &statsRecord{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Postgres{db: db}, nil
}

func (p *Postgres) Profile(ctx context.Context, playerID string) (UserProfile, error) {
	var rec profileRecord
	err := p.db.WithContext(ctx).First(&rec, "player_id = ?", playerID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return NewProfile(playerID), nil
	}
	if err != nil {
		return UserProfile{}, fmt.Errorf("load profile: %w", err)
	}
	if err := checkVersion("profile", rec.SchemaVersion); err != nil {
		return UserProfile{}, err
	}
	return UserProfile{
		PlayerID:        rec.PlayerID,
		Nickname:        rec.Nickname,
		AvatarID:        rec.AvatarID,
		ProfileComplete: rec.ProfileComplete,
		SchemaVersion:   rec.SchemaVersion,
	}, nil
}

func (p *Postgres) SaveProfile(ctx context.Context, prof UserProfile) error {
	rec := profileRecord{
		PlayerID:        prof.PlayerID,
		Nickname:        prof.Nickname,
		AvatarID:        prof.AvatarID,
		ProfileComplete: prof.Nickname != "" && prof.AvatarID != "",
		SchemaVersion:   SchemaVersion,
	}
	err := p.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "player_id"}},
		UpdateAll: true,
	}).Create(&rec).Error
	if err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}

func (p *Postgres) Stats(ctx context.Context, playerID string) (PlayerStats, error) {
	var rec statsRecord
	err := p.db.WithContext(ctx).First(&rec, "player_id = ?", playerID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return PlayerStats{PlayerID: playerID, SchemaVersion: SchemaVersion}, nil
	}
	if err != nil {
		return PlayerStats{}, fmt.Errorf("load stats: %w", err)
	}
	if err := checkVersion("stats", rec.SchemaVersion); err != nil {
		return PlayerStats{}, err
	}
	return statsFromRecord(rec), nil
}

func (p *Postgres) RecordResult(ctx context.Context, playerID string, result game.GameResult, points int) (PlayerStats, error) {
	var out PlayerStats
	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec statsRecord
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&rec, "player_id = ?", playerID).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			rec = statsRecord{PlayerID: playerID}
		case err != nil:
			return fmt.Errorf("load stats: %w", err)
		default:
			if err := checkVersion("stats", rec.SchemaVersion); err != nil {
				return err
			}
		}

		s := statsFromRecord(rec)
		s.apply(result, points)
		rec = statsRecord{
			PlayerID:       s.PlayerID,
			TotalPoints:    s.TotalPoints,
			TotalWins:      s.TotalWins,
			TotalGames:     s.TotalGames,
			TotalForfeits:  s.TotalForfeits,
			LastGameResult: string(s.LastGameResult),
			SchemaVersion:  s.SchemaVersion,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "player_id"}},
			UpdateAll: true,
		}).Create(&rec).Error; err != nil {
			return fmt.Errorf("save stats: %w", err)
		}
		out = s
		return nil
	})
	if err != nil {
		return PlayerStats{}, err
	}
	return out, nil
}

func statsFromRecord(rec statsRecord) PlayerStats {
	return PlayerStats{
		PlayerID:       rec.PlayerID,
		TotalPoints:    rec.TotalPoints,
		TotalWins:      rec.TotalWins,
		TotalGames:     rec.TotalGames,
		TotalForfeits:  rec.TotalForfeits,
		LastGameResult: game.GameResult(rec.LastGameResult),
		SchemaVersion:  rec.SchemaVersion,
	}
}
