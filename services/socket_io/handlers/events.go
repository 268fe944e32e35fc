package handlers

import (
	apperrors "Arena/errors"
	"log"
)

// Event handler factories. Each returns the callback bound to one client
// event of the connection connID.

// withPayload decodes the first event argument into a T and hands it to
// handle. A malformed payload is answered with an error event.
func withPayload[T any](hub *Hub, connID string, handle func(T)) func(args ...interface{}) {
	return func(args ...interface{}) {
		var req T
		if err := DecodePayload(args, &req); err != nil {
			hub.Reject(connID, err)
			return
		}
		handle(req)
	}
}

// HandleRegister binds connID to a player. When the handshake carried a token,
// tokenPlayer is the only id the connection may register as, and the default
// when the payload names none.
func HandleRegister(hub *Hub, connID, tokenPlayer string) func(args ...interface{}) {
	return withPayload(hub, connID, func(req RegisterRequest) {
		if tokenPlayer != "" {
			if req.PlayerID == "" {
				req.PlayerID = tokenPlayer
			}
			if req.PlayerID != tokenPlayer {
				hub.Reject(connID, apperrors.New(apperrors.CodeInvalidRequest, "Player ID does not match token"))
				return
			}
		}
		hub.Register(connID, req)
	})
}

func HandleJoinQueue(hub *Hub, connID string) func(args ...interface{}) {
	return withPayload(hub, connID, func(req JoinQueueRequest) { hub.JoinQueue(connID, req) })
}

func HandleLeaveQueue(hub *Hub, connID string) func(args ...interface{}) {
	return func(args ...interface{}) { hub.LeaveQueue(connID) }
}

func HandleGetAvailablePlayers(hub *Hub, connID string) func(args ...interface{}) {
	return func(args ...interface{}) { hub.GetAvailablePlayers(connID) }
}

func HandleSelectOpponent(hub *Hub, connID string) func(args ...interface{}) {
	return withPayload(hub, connID, func(req SelectOpponentRequest) { hub.SelectOpponent(connID, req) })
}

func HandleAcceptInvitation(hub *Hub, connID string) func(args ...interface{}) {
	return withPayload(hub, connID, func(req InvitationRequest) { hub.AcceptInvitation(connID, req) })
}

func HandleDeclineInvitation(hub *Hub, connID string) func(args ...interface{}) {
	return withPayload(hub, connID, func(req InvitationRequest) { hub.DeclineInvitation(connID, req) })
}

func HandleGameAction(hub *Hub, connID string) func(args ...interface{}) {
	return withPayload(hub, connID, func(req GameActionRequest) { hub.GameAction(connID, req) })
}

func HandleGetGameState(hub *Hub, connID string) func(args ...interface{}) {
	return withPayload(hub, connID, func(req GameStateRequest) { hub.GetGameState(connID, req) })
}

func HandleLeaveGame(hub *Hub, connID string) func(args ...interface{}) {
	return func(args ...interface{}) { hub.LeaveGame(connID) }
}

// HandleDisconnect runs release, which drops the transport's reference to the
// socket, and then lets the hub pause whatever the player was doing.
func HandleDisconnect(hub *Hub, connID string, release func()) func(args ...interface{}) {
	return func(args ...interface{}) {
		if release != nil {
			release()
		}
		hub.Disconnect(connID)
		log.Printf("[DISCONNECT] Connection %s closed: %v", connID, args)
	}
}
