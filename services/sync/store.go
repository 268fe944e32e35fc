package sync

import (
	game_constants "Arena/constants/game"
	"Arena/models/postgres"
	"Arena/services/game"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrNoPlayers = errors.New("summary has fewer than two players")

// PlayerStats aggregates a player's finished games.
type PlayerStats struct {
	PlayerID    string `json:"playerId"`
	GamesPlayed int64  `json:"gamesPlayed"`
	Wins        int64  `json:"wins"`
	Losses      int64  `json:"losses"`
	Draws       int64  `json:"draws"`
}

// GormStore keeps finished games in PostgreSQL.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// SaveGameResult writes the result and its rounds in one transaction. Saving
// the same game twice keeps the first copy.
func (s *GormStore) SaveGameResult(ctx context.Context, summary game.Summary) error {
	result, err := ToGameResult(summary)
	if err != nil {
		return err
	}
	rounds := result.RoundHistory
	result.RoundHistory = nil

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&result).Error; err != nil {
			return fmt.Errorf("error inserting game result: %w", err)
		}
		if len(rounds) == 0 {
			return nil
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(&rounds, 100).Error; err != nil {
			return fmt.Errorf("error inserting game rounds: %w", err)
		}
		return nil
	})
}

// History returns the player's most recent games, newest first.
func (s *GormStore) History(ctx context.Context, playerID string, limit int) ([]postgres.GameResult, error) {
	var results []postgres.GameResult
	err := s.db.WithContext(ctx).
		Where("player1_id = ? OR player2_id = ?", playerID, playerID).
		Order("finished_at DESC").
		Limit(limit).
		Find(&results).Error
	if err != nil {
		return nil, fmt.Errorf("error querying game history: %w", err)
	}
	return results, nil
}

// GameRounds returns one game's rounds in play order.
func (s *GormStore) GameRounds(ctx context.Context, gameID string) ([]postgres.GameRound, error) {
	var rounds []postgres.GameRound
	if err := s.db.WithContext(ctx).Where("game_id = ?", gameID).Order("round ASC").Find(&rounds).Error; err != nil {
		return nil, fmt.Errorf("error querying game rounds: %w", err)
	}
	return rounds, nil
}

func (s *GormStore) Stats(ctx context.Context, playerID string) (PlayerStats, error) {
	stats := PlayerStats{PlayerID: playerID}
	played := func() *gorm.DB {
		return s.db.WithContext(ctx).Model(&postgres.GameResult{}).
			Where("player1_id = ? OR player2_id = ?", playerID, playerID)
	}

	if err := played().Count(&stats.GamesPlayed).Error; err != nil {
		return stats, fmt.Errorf("error counting games: %w", err)
	}
	if err := played().Where("winner_id = ?", playerID).Count(&stats.Wins).Error; err != nil {
		return stats, fmt.Errorf("error counting wins: %w", err)
	}
	if err := played().Where("winner_id = ?", game_constants.Draw).Count(&stats.Draws).Error; err != nil {
		return stats, fmt.Errorf("error counting draws: %w", err)
	}
	// Abandoned games have no winner and count as neither
	if err := played().Where("winner_id NOT IN ?", []string{playerID, game_constants.Draw, ""}).
		Count(&stats.Losses).Error; err != nil {
		return stats, fmt.Errorf("error counting losses: %w", err)
	}
	return stats, nil
}

// ToGameResult maps a finished-game summary onto its database rows.
func ToGameResult(summary game.Summary) (postgres.GameResult, error) {
	if len(summary.Players) < 2 {
		return postgres.GameResult{}, ErrNoPlayers
	}
	p1, p2 := summary.Players[0], summary.Players[1]

	stats1, err := toJSON(p1.Stats)
	if err != nil {
		return postgres.GameResult{}, err
	}
	stats2, err := toJSON(p2.Stats)
	if err != nil {
		return postgres.GameResult{}, err
	}

	result := postgres.GameResult{
		ID:            summary.SessionID,
		Player1ID:     p1.PlayerID,
		Player2ID:     p2.PlayerID,
		WinnerID:      summary.Winner,
		Reason:        summary.Reason,
		Rounds:        summary.Rounds,
		Player1Health: p1.Health,
		Player2Health: p2.Health,
		Player1Stats:  stats1,
		Player2Stats:  stats2,
		StartedAt:     summary.CreatedAt,
		FinishedAt:    summary.FinishedAt,
	}

	for _, rec := range summary.History {
		row := postgres.GameRound{
			GameID:   summary.SessionID,
			Round:    rec.Round,
			PlayedAt: rec.Timestamp,
		}
		if row.Action1, err = toJSON(rec.Action1); err != nil {
			return postgres.GameResult{}, err
		}
		if row.Action2, err = toJSON(rec.Action2); err != nil {
			return postgres.GameResult{}, err
		}
		if row.Result1, err = toJSON(rec.Result1); err != nil {
			return postgres.GameResult{}, err
		}
		if row.Result2, err = toJSON(rec.Result2); err != nil {
			return postgres.GameResult{}, err
		}
		result.RoundHistory = append(result.RoundHistory, row)
	}
	return result, nil
}

func toJSON(v any) (datatypes.JSON, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(data), nil
}
