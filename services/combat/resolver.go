package combat

import (
	game_constants "Arena/constants/game"
	apperrors "Arena/errors"
	"math"
	"strings"
)

// Roller supplies the chance rolls of a round. random.Source satisfies it.
type Roller interface {
	Float64() float64
}

// Result describes what one player's action did to the opponent this round.
type Result struct {
	Damage   int    `json:"damage"`
	Blocked  bool   `json:"blocked"`
	Critical bool   `json:"critical"`
	Counter  bool   `json:"counter"`
	Dodged   bool   `json:"dodged"`
	Message  string `json:"message,omitempty"`
}

// Outcome is the resolved round: both players' new states, what each action
// did, and the winner ("" while the match continues, game_constants.Draw on
// a double knockout).
type Outcome struct {
	Player1 PlayerState
	Player2 PlayerState
	Result1 Result
	Result2 Result
	Winner  string
}

// Finished reports whether the round ended the match.
func (o Outcome) Finished() bool {
	return o.Winner != ""
}

// Resolver computes round outcomes. Its only state is the roller, so a
// scripted roller makes it fully deterministic.
type Resolver struct {
	rng Roller
}

func NewResolver(rng Roller) *Resolver {
	return &Resolver{rng: rng}
}

// Resolve computes one round from both players' pre-round states and actions.
// The inputs are never modified; on error nothing is deducted or applied.
func (r *Resolver) Resolve(p1, p2 PlayerState, a1, a2 Action) (Outcome, error) {
	if err := a1.Validate(); err != nil {
		return Outcome{}, err
	}
	if err := a2.Validate(); err != nil {
		return Outcome{}, err
	}

	var broke []string
	if !p1.CanAfford(a1) {
		broke = append(broke, p1.PlayerID)
	}
	if !p2.CanAfford(a2) {
		broke = append(broke, p2.PlayerID)
	}
	if len(broke) > 0 {
		return Outcome{}, apperrors.WithMetadata(apperrors.CodeInsufficientStamina, "Insufficient stamina",
			map[string]string{"player_ids": strings.Join(broke, ",")})
	}

	// Both costs come out of the pre-round stamina
	p1.spendStamina(a1.StaminaCost())
	p2.spendStamina(a2.StaminaCost())

	res1 := r.strike(a1, a2)
	res2 := r.strike(a2, a1)

	p2.takeDamage(res1.Damage)
	p1.takeDamage(res2.Damage)

	p1.regenerate()
	p2.regenerate()

	updateStats(&p1, res1, res2)
	updateStats(&p2, res2, res1)

	return Outcome{
		Player1: p1,
		Player2: p2,
		Result1: res1,
		Result2: res2,
		Winner:  decideWinner(p1, p2),
	}, nil
}

// strike resolves the attacker's action against the defender's. Block and
// counter are checked first, then the dodge override.
func (r *Resolver) strike(attack, defense Action) Result {
	var res Result
	if attack.Type != ActionAttack {
		return res
	}

	base := zoneDamage[attack.Zone]

	if defense.Type == ActionBlock && defense.Zone == attack.Zone {
		res.Blocked = true
		res.Damage = roundDamage(base, game_constants.BlockedMultiplier)
		res.Message = "Attack blocked!"

		if r.rng.Float64() < game_constants.CounterChance {
			res.Counter = true
			res.Damage = 0
			res.Message = "Counter!"
		}
	} else if r.rng.Float64() < game_constants.CriticalChance {
		res.Critical = true
		res.Damage = roundDamage(base, game_constants.CriticalMultiplier)
		res.Message = "Critical hit!"
	} else {
		res.Damage = base
		res.Message = "Hit!"
	}

	if defense.Type == ActionDodge {
		if r.rng.Float64() < game_constants.DodgeChance {
			res.Dodged = true
			res.Damage = 0
			res.Message = "Dodged!"
		}
	}

	return res
}

// roundDamage rounds half away from zero, so 25*0.3=7.5 becomes 8.
func roundDamage(base int, multiplier float64) int {
	return int(math.Round(float64(base) * multiplier))
}

func updateStats(p *PlayerState, own, opponent Result) {
	p.Stats.DamageDealt += own.Damage
	p.Stats.DamageTaken += opponent.Damage
	if own.Critical {
		p.Stats.CriticalHits++
	}
	// The opponent's attack being blocked is this player's successful block
	if opponent.Blocked {
		p.Stats.BlocksSuccessful++
	}
}

func decideWinner(p1, p2 PlayerState) string {
	switch {
	case p1.Health <= 0 && p2.Health <= 0:
		return game_constants.Draw
	case p1.Health <= 0:
		return p2.PlayerID
	case p2.Health <= 0:
		return p1.PlayerID
	}
	return ""
}
