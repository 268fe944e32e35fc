package game_constants

import "time"

// Player resources
const MaxHealth = 100
const MaxStamina = 100
const StaminaRegenPerRound = 5

// Base damage per target zone
const (
	DamageHead = 35 // High damage
	DamageBody = 25
	DamageLegs = 20
)

// Stamina cost per action type
const (
	StaminaCostAttack = 15
	StaminaCostBlock  = 10
	StaminaCostDodge  = 20
)

// Chance rolls and damage multipliers
const (
	CriticalChance     = 0.20
	CriticalMultiplier = 1.5
	BlockedMultiplier  = 0.3
	CounterChance      = 0.30 // on a successful block, fully negates the hit
	DodgeChance        = 0.60
)

// Default deadlines, overridable through config
const (
	DefaultSearchTimeout     = 60 * time.Second
	DefaultInvitationTimeout = 30 * time.Second
	DefaultSessionReapDelay  = 60 * time.Second
	DefaultBrowseCount       = 3
)

// NOTE: non-pending invitations are kept this many invitation timeouts before cleanup
const InvitationRetentionFactor = 2

// Winner value reported when both players fall in the same round
const Draw = "draw"
