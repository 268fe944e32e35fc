package combat

import (
	game_constants "Arena/constants/game"
	apperrors "Arena/errors"
	"strings"
)

type ActionType string

const (
	ActionAttack ActionType = "attack"
	ActionBlock  ActionType = "block"
	ActionDodge  ActionType = "dodge"
)

type Zone string

const (
	ZoneHead Zone = "head"
	ZoneBody Zone = "body"
	ZoneLegs Zone = "legs"
)

// Action is what a player declares for one round. Zone is empty for dodges.
type Action struct {
	Type ActionType `json:"type"`
	Zone Zone       `json:"zone,omitempty"`
}

var zoneDamage = map[Zone]int{
	ZoneHead: game_constants.DamageHead,
	ZoneBody: game_constants.DamageBody,
	ZoneLegs: game_constants.DamageLegs,
}

var staminaCost = map[ActionType]int{
	ActionAttack: game_constants.StaminaCostAttack,
	ActionBlock:  game_constants.StaminaCostBlock,
	ActionDodge:  game_constants.StaminaCostDodge,
}

// ParseAction builds an Action from raw wire values, case-insensitively.
// The result still has to pass Validate.
func ParseAction(actionType, zone string) Action {
	return Action{
		Type: ActionType(strings.ToLower(strings.TrimSpace(actionType))),
		Zone: Zone(strings.ToLower(strings.TrimSpace(zone))),
	}
}

// Validate checks the structural correctness of an action: a known type and,
// unless it is a dodge, a known zone.
func (a Action) Validate() error {
	if _, ok := staminaCost[a.Type]; !ok {
		return apperrors.New(apperrors.CodeInvalidAction, "Invalid action type")
	}
	if a.Type == ActionDodge {
		return nil
	}
	if _, ok := zoneDamage[a.Zone]; !ok {
		return apperrors.New(apperrors.CodeInvalidAction, "Invalid zone")
	}
	return nil
}

// StaminaCost returns the stamina the action consumes, 0 for unknown types.
func (a Action) StaminaCost() int {
	return staminaCost[a.Type]
}

// Normalized drops the zone of a dodge, which has none.
func (a Action) Normalized() Action {
	if a.Type == ActionDodge {
		a.Zone = ""
	}
	return a
}
