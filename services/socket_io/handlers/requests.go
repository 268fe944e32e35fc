package handlers

import (
	apperrors "Arena/errors"

	"github.com/go-viper/mapstructure/v2"
)

// Inbound event payloads, decoded from the first socket.io argument.

type RegisterRequest struct {
	PlayerID string `mapstructure:"playerId"`
}

type JoinQueueRequest struct {
	Mode string `mapstructure:"mode"`
}

type SelectOpponentRequest struct {
	OpponentID string `mapstructure:"opponentId"`
}

type InvitationRequest struct {
	InvitationID string `mapstructure:"invitationId"`
}

type ActionPayload struct {
	Type string `mapstructure:"type"`
	Zone string `mapstructure:"zone"`
}

type GameActionRequest struct {
	GameID string        `mapstructure:"gameId"`
	Action ActionPayload `mapstructure:"action"`
}

type GameStateRequest struct {
	GameID string `mapstructure:"gameId"`
}

// DecodePayload fills out from the first event argument. Events sent without
// a payload, or with only an ack callback, leave out at its zero value.
func DecodePayload(args []any, out any) error {
	if len(args) == 0 {
		return nil
	}
	if _, isMap := args[0].(map[string]any); !isMap {
		if _, isAck := args[0].(func(...any)); isAck || args[0] == nil {
			return nil
		}
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(args[0]); err != nil {
		return apperrors.Wrap(apperrors.CodeInvalidRequest, "Invalid request", err)
	}
	return nil
}
