package postgres

import (
	"time"

	"gorm.io/datatypes"
)

/*
 * 'GameResult' is one finished match. Its rounds are stored in GameRound.
 * WinnerID holds "draw" when both players fell in the same round and is
 * empty for an abandoned game.
 */
type GameResult struct {
	ID            string         `gorm:"primaryKey;size:64;not null"` // Session id
	Player1ID     string         `gorm:"size:64;not null;index:idx_game_results_player1"`
	Player2ID     string         `gorm:"size:64;not null;index:idx_game_results_player2"`
	WinnerID      string         `gorm:"size:64;index:idx_game_results_winner"`
	Reason        string         `gorm:"size:16;default:'knockout'"`
	Rounds        int            `gorm:"default:0"`
	Player1Health int            `gorm:"default:0"`
	Player2Health int            `gorm:"default:0"`
	Player1Stats  datatypes.JSON `gorm:"type:jsonb;default:'{}'"`
	Player2Stats  datatypes.JSON `gorm:"type:jsonb;default:'{}'"`
	StartedAt     time.Time
	FinishedAt    time.Time `gorm:"index:idx_game_results_finished"`

	// Relationship with the played rounds
	RoundHistory []GameRound `gorm:"foreignKey:GameID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}

// HasPlayer reports whether playerID took part in the match
func (g *GameResult) HasPlayer(playerID string) bool {
	return g.Player1ID == playerID || g.Player2ID == playerID
}
