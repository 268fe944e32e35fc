package redis

import "time"

type PresenceStatus string

const (
	PresenceOnline  PresenceStatus = "online"
	PresencePlaying PresenceStatus = "playing"
	PresenceOffline PresenceStatus = "offline"
)

// PlayerPresence is what other services can read about a connected player
type PlayerPresence struct {
	PlayerID  string         `json:"player_id"`
	Status    PresenceStatus `json:"status"`
	GameID    string         `json:"game_id,omitempty"` // Set while playing
	UpdatedAt time.Time      `json:"updated_at"`
}
