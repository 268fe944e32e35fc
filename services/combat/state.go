package combat

import game_constants "Arena/constants/game"

// Stats are the cumulative per-player counters of a match.
type Stats struct {
	DamageDealt      int `json:"damageDealt"`
	DamageTaken      int `json:"damageTaken"`
	BlocksSuccessful int `json:"blocksSuccessful"`
	CriticalHits     int `json:"criticalHits"`
}

// PlayerState is one player's authoritative combat state inside a session.
// Health and Stamina always stay within [0, 100].
type PlayerState struct {
	PlayerID string `json:"id"`
	Health   int    `json:"health"`
	Stamina  int    `json:"stamina"`
	Stats    Stats  `json:"stats"`
}

// NewPlayerState returns a fresh fighter at full health and stamina.
func NewPlayerState(playerID string) PlayerState {
	return PlayerState{
		PlayerID: playerID,
		Health:   game_constants.MaxHealth,
		Stamina:  game_constants.MaxStamina,
	}
}

// CanAfford reports whether the player holds enough stamina for the action.
func (p PlayerState) CanAfford(a Action) bool {
	return p.Stamina >= a.StaminaCost()
}

func (p *PlayerState) takeDamage(damage int) {
	p.Health = max(0, p.Health-damage)
}

func (p *PlayerState) spendStamina(cost int) {
	p.Stamina = max(0, p.Stamina-cost)
}

func (p *PlayerState) regenerate() {
	p.Stamina = min(game_constants.MaxStamina, p.Stamina+game_constants.StaminaRegenPerRound)
}
