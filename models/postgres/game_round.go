package postgres

import (
	"time"

	"gorm.io/datatypes"
)

/*
 * 'GameRound' is one resolved round of a GameResult.
 */
type GameRound struct {
	// NOTE: composite primary key definition
	GameID   string         `gorm:"primaryKey;size:64;not null"`
	Round    int            `gorm:"primaryKey;not null"`
	Action1  datatypes.JSON `gorm:"type:jsonb"`
	Action2  datatypes.JSON `gorm:"type:jsonb"`
	Result1  datatypes.JSON `gorm:"type:jsonb"`
	Result2  datatypes.JSON `gorm:"type:jsonb"`
	PlayedAt time.Time
}
