package handlers

import (
	apperrors "Arena/errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleRegisterUsesTokenPlayer(t *testing.T) {
	h, rec := newTestHub(t, Options{})

	HandleRegister(h, "c1", "alice")(map[string]any{"playerId": "mallory"})
	assert.Equal(t, apperrors.CodeInvalidRequest, errorCode(t, rec, "c1"))
	assert.Equal(t, 0, rec.count("c1", "registered"))

	HandleRegister(h, "c1", "alice")()
	registered, ok := rec.last("c1", "registered")
	require.True(t, ok)
	assert.Equal(t, "alice", registered["playerId"])

	// Without a token the payload decides
	HandleRegister(h, "c2", "")(map[string]any{"playerId": "bob"})
	registered, ok = rec.last("c2", "registered")
	require.True(t, ok)
	assert.Equal(t, "bob", registered["playerId"])
}

func TestHandlersDriveAGame(t *testing.T) {
	h, rec := newTestHub(t, Options{})
	HandleRegister(h, "c1", "")(map[string]any{"playerId": "alice"})
	HandleRegister(h, "c2", "")(map[string]any{"playerId": "bob"})

	HandleJoinQueue(h, "c1")(map[string]any{"mode": "random"})
	HandleJoinQueue(h, "c2")(map[string]any{"mode": "random"})
	started, ok := rec.last("c1", "game_started")
	require.True(t, ok)
	gameID := started["gameId"].(string)

	HandleGetGameState(h, "c1")(map[string]any{"gameId": gameID})
	_, ok = rec.last("c1", "game_state")
	assert.True(t, ok)

	HandleLeaveGame(h, "c2")()
	finished, ok := rec.last("c1", "game_finished")
	require.True(t, ok)
	assert.Equal(t, "alice", finished["winner"])

	released := false
	HandleDisconnect(h, "c1", func() { released = true })()
	assert.True(t, released)
	assert.Equal(t, 1, h.Online().PlayersOnline)
}

func TestHandlerRejectsMalformedPayload(t *testing.T) {
	h, rec := newTestHub(t, Options{})
	HandleRegister(h, "c1", "")(map[string]any{"playerId": "alice"})

	HandleGameAction(h, "c1")(map[string]any{"gameId": "game_x", "action": "punch"})
	assert.Equal(t, apperrors.CodeInvalidRequest, errorCode(t, rec, "c1"))
}
