package handlers

import (
	apperrors "Arena/errors"
	redis_models "Arena/models/redis"
	"Arena/services/game"
	"Arena/services/matchmaking"
	"Arena/utils/random"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sentEvent struct {
	conn    string
	event   string
	payload any
}

type recordingEmitter struct {
	mu     sync.Mutex
	events []sentEvent
}

func (r *recordingEmitter) Emit(connID, event string, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, sentEvent{conn: connID, event: event, payload: payload})
}

// last returns the payload of the latest event with that name sent to conn.
func (r *recordingEmitter) last(conn, event string) (gin.H, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.events) - 1; i >= 0; i-- {
		e := r.events[i]
		if e.conn == conn && e.event == event {
			h, _ := e.payload.(gin.H)
			return h, true
		}
	}
	return nil, false
}

func (r *recordingEmitter) count(conn, event string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.conn == conn && e.event == event {
			n++
		}
	}
	return n
}

type recordingSink struct {
	mu        sync.Mutex
	summaries []game.Summary
}

func (r *recordingSink) SaveGameSummary(_ context.Context, summary game.Summary) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.summaries = append(r.summaries, summary)
	return nil
}

func (r *recordingSink) all() []game.Summary {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]game.Summary(nil), r.summaries...)
}

type memoryPresence struct {
	mu     sync.Mutex
	status map[string]redis_models.PresenceStatus
}

func (m *memoryPresence) SetPresence(_ context.Context, p redis_models.PlayerPresence) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status[p.PlayerID] = p.Status
	return nil
}

func (m *memoryPresence) get(id string) redis_models.PresenceStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status[id]
}

func newTestHub(t *testing.T, opts Options) (*Hub, *recordingEmitter) {
	t.Helper()
	rec := &recordingEmitter{}
	if opts.Random == nil {
		opts.Random = random.NewScripted(nil, nil)
	}
	return NewHub(rec, opts), rec
}

func register(h *Hub, conn, player string) {
	h.Register(conn, RegisterRequest{PlayerID: player})
}

func errorCode(t *testing.T, rec *recordingEmitter, conn string) apperrors.Code {
	t.Helper()
	payload, ok := rec.last(conn, "error")
	require.True(t, ok, "no error sent to %s", conn)
	return payload["code"].(apperrors.Code)
}

func TestRegisterAcknowledges(t *testing.T) {
	presence := &memoryPresence{status: map[string]redis_models.PresenceStatus{}}
	h, rec := newTestHub(t, Options{Presence: presence})

	register(h, "c1", "alice")

	payload, ok := rec.last("c1", "registered")
	require.True(t, ok)
	assert.Equal(t, "alice", payload["playerId"])
	assert.Equal(t, "c1", payload["connectionId"])
	assert.Equal(t, redis_models.PresenceOnline, presence.get("alice"))

	h.Register("c2", RegisterRequest{})
	assert.Equal(t, apperrors.CodeInvalidRequest, errorCode(t, rec, "c2"))
}

func TestUnregisteredConnectionIsRejected(t *testing.T) {
	h, rec := newTestHub(t, Options{})

	h.JoinQueue("c1", JoinQueueRequest{Mode: "random"})
	assert.Equal(t, apperrors.CodeNotRegistered, errorCode(t, rec, "c1"))

	h.GameAction("c1", GameActionRequest{GameID: "game_x"})
	assert.Equal(t, apperrors.CodeNotRegistered, errorCode(t, rec, "c1"))
}

func TestRandomQueueStartsGame(t *testing.T) {
	h, rec := newTestHub(t, Options{})
	register(h, "c1", "alice")
	register(h, "c2", "bob")

	h.JoinQueue("c1", JoinQueueRequest{Mode: "random"})
	joined, ok := rec.last("c1", "queue_joined")
	require.True(t, ok)
	assert.Equal(t, 1, joined["playersInQueue"])
	assert.Equal(t, 0, rec.count("c1", "game_started"))

	h.JoinQueue("c2", JoinQueueRequest{Mode: "random"})
	started1, ok := rec.last("c1", "game_started")
	require.True(t, ok)
	started2, ok := rec.last("c2", "game_started")
	require.True(t, ok)
	assert.Equal(t, started1["gameId"], started2["gameId"])
	assert.Equal(t, "alice", started2["opponentId"])
	assert.Equal(t, 0, h.Queue().Len())

	// Already playing
	h.JoinQueue("c1", JoinQueueRequest{Mode: "random"})
	assert.Equal(t, apperrors.CodePlayerBusy, errorCode(t, rec, "c1"))
}

func TestFullRoundOverSockets(t *testing.T) {
	h, rec := newTestHub(t, Options{})
	register(h, "c1", "alice")
	register(h, "c2", "bob")
	h.JoinQueue("c1", JoinQueueRequest{})
	h.JoinQueue("c2", JoinQueueRequest{})

	started, _ := rec.last("c1", "game_started")
	gameID := started["gameId"].(string)

	h.GameAction("c1", GameActionRequest{GameID: gameID, Action: ActionPayload{Type: "attack", Zone: "body"}})
	accepted, ok := rec.last("c1", "action_accepted")
	require.True(t, ok)
	assert.Equal(t, 1, accepted["round"])
	assert.Equal(t, 0, rec.count("c1", "turn_result"))

	h.GameAction("c2", GameActionRequest{GameID: gameID, Action: ActionPayload{Type: "BLOCK", Zone: "Body"}})
	require.Equal(t, 1, rec.count("c1", "turn_result"))
	require.Equal(t, 1, rec.count("c2", "turn_result"))

	snap, err := h.GameSnapshot(gameID)
	require.NoError(t, err)
	assert.Equal(t, 92, snap.Players["bob"].Health)
	assert.Equal(t, 90, snap.Players["alice"].Stamina)
	assert.Equal(t, 95, snap.Players["bob"].Stamina)

	turn, _ := rec.last("c2", "turn_result")
	assert.Equal(t, 1, turn["turnNumber"])

	h.GetGameState("c1", GameStateRequest{GameID: gameID})
	state, ok := rec.last("c1", "game_state")
	require.True(t, ok)
	assert.Equal(t, 2, state["game"].(game.Snapshot).Round)
}

func TestInvalidActionOnlyReachesSender(t *testing.T) {
	h, rec := newTestHub(t, Options{})
	register(h, "c1", "alice")
	register(h, "c2", "bob")
	h.JoinQueue("c1", JoinQueueRequest{})
	h.JoinQueue("c2", JoinQueueRequest{})
	started, _ := rec.last("c1", "game_started")
	gameID := started["gameId"].(string)

	h.GameAction("c1", GameActionRequest{GameID: gameID, Action: ActionPayload{Type: "attack", Zone: "arms"}})
	assert.Equal(t, apperrors.CodeInvalidAction, errorCode(t, rec, "c1"))
	assert.Equal(t, 0, rec.count("c2", "error"))

	h.GameAction("c1", GameActionRequest{GameID: "game_missing", Action: ActionPayload{Type: "dodge"}})
	assert.Equal(t, apperrors.CodeGameNotFound, errorCode(t, rec, "c1"))
}

func TestInvitationFlow(t *testing.T) {
	h, rec := newTestHub(t, Options{})
	register(h, "c1", "alice")
	register(h, "c2", "bob")
	h.JoinQueue("c1", JoinQueueRequest{Mode: "select"})
	h.JoinQueue("c2", JoinQueueRequest{Mode: "select"})

	h.GetAvailablePlayers("c1")
	available, ok := rec.last("c1", "available_players")
	require.True(t, ok)
	players := available["players"].([]gin.H)
	require.Len(t, players, 1)
	assert.Equal(t, "bob", players[0]["id"])

	h.SelectOpponent("c1", SelectOpponentRequest{OpponentID: "bob"})
	sent, ok := rec.last("c1", "invitation_sent")
	require.True(t, ok)
	invite, ok := rec.last("c2", "game_invitation")
	require.True(t, ok)
	assert.Equal(t, sent["invitationId"], invite["invitationId"])
	assert.Equal(t, "alice", invite["from"])

	// Only the invitee can accept
	h.AcceptInvitation("c1", InvitationRequest{InvitationID: sent["invitationId"].(string)})
	assert.Equal(t, apperrors.CodeInvalidOrExpiredInvitation, errorCode(t, rec, "c1"))

	h.AcceptInvitation("c2", InvitationRequest{InvitationID: sent["invitationId"].(string)})
	assert.Equal(t, 1, rec.count("c1", "game_started"))
	assert.Equal(t, 1, rec.count("c2", "game_started"))
	assert.Equal(t, 0, h.Queue().Len())

	h.AcceptInvitation("c2", InvitationRequest{InvitationID: sent["invitationId"].(string)})
	assert.Equal(t, apperrors.CodeInvalidOrExpiredInvitation, errorCode(t, rec, "c2"))
}

func TestDeclineNotifiesBothSides(t *testing.T) {
	h, rec := newTestHub(t, Options{})
	register(h, "c1", "alice")
	register(h, "c2", "bob")

	h.SelectOpponent("c1", SelectOpponentRequest{OpponentID: "bob"})
	sent, _ := rec.last("c1", "invitation_sent")

	h.DeclineInvitation("c2", InvitationRequest{InvitationID: sent["invitationId"].(string)})
	assert.Equal(t, 1, rec.count("c1", "invitation_declined"))
	assert.Equal(t, 1, rec.count("c2", "invitation_declined"))

	h.SelectOpponent("c1", SelectOpponentRequest{OpponentID: "alice"})
	assert.Equal(t, apperrors.CodeInvalidRequest, errorCode(t, rec, "c1"))
}

func TestInvitationExpiryNotifiesInviter(t *testing.T) {
	h, rec := newTestHub(t, Options{InvitationTimeout: 20 * time.Millisecond})
	register(h, "c1", "alice")
	register(h, "c2", "bob")

	h.SelectOpponent("c1", SelectOpponentRequest{OpponentID: "bob"})
	assert.Eventually(t, func() bool { return rec.count("c1", "invitation_expired") == 1 },
		2*time.Second, 5*time.Millisecond)
}

func TestSearchTimeoutNotifiesPlayer(t *testing.T) {
	h, rec := newTestHub(t, Options{SearchTimeout: 20 * time.Millisecond})
	register(h, "c1", "alice")
	h.JoinQueue("c1", JoinQueueRequest{})

	require.Eventually(t, func() bool { return rec.count("c1", "queue_left") == 1 },
		2*time.Second, 5*time.Millisecond)
	left, _ := rec.last("c1", "queue_left")
	assert.Equal(t, "timeout", left["reason"])
}

func TestDisconnectPausesAndReconnectResumes(t *testing.T) {
	presence := &memoryPresence{status: map[string]redis_models.PresenceStatus{}}
	h, rec := newTestHub(t, Options{Presence: presence})
	register(h, "c1", "alice")
	register(h, "c2", "bob")
	h.JoinQueue("c1", JoinQueueRequest{})
	h.JoinQueue("c2", JoinQueueRequest{})
	started, _ := rec.last("c1", "game_started")
	gameID := started["gameId"].(string)
	assert.Equal(t, redis_models.PresencePlaying, presence.get("bob"))

	h.Disconnect("c2")
	assert.Equal(t, 1, rec.count("c1", "opponent_disconnected"))
	assert.Equal(t, redis_models.PresenceOffline, presence.get("bob"))
	assert.Equal(t, 1, h.Online().PlayersOnline)

	h.GameAction("c1", GameActionRequest{GameID: gameID, Action: ActionPayload{Type: "dodge"}})
	assert.Equal(t, apperrors.CodeGameNotActive, errorCode(t, rec, "c1"))

	register(h, "c3", "bob")
	resumed, ok := rec.last("c3", "game_resumed")
	require.True(t, ok)
	assert.Equal(t, gameID, resumed["gameId"])
	assert.Equal(t, 1, rec.count("c1", "opponent_reconnected"))
	assert.Equal(t, redis_models.PresencePlaying, presence.get("bob"))

	snap, _ := h.GameSnapshot(gameID)
	assert.Equal(t, game.StatusActive, snap.Status)
}

func TestForfeitReachesRemainingPlayer(t *testing.T) {
	h, rec := newTestHub(t, Options{ForfeitTimeout: 20 * time.Millisecond})
	register(h, "c1", "alice")
	register(h, "c2", "bob")
	h.JoinQueue("c1", JoinQueueRequest{})
	h.JoinQueue("c2", JoinQueueRequest{})

	h.Disconnect("c2")
	require.Eventually(t, func() bool { return rec.count("c1", "game_finished") == 1 },
		2*time.Second, 5*time.Millisecond)
	finished, _ := rec.last("c1", "game_finished")
	assert.Equal(t, "alice", finished["winner"])
	assert.Equal(t, game.ReasonForfeit, finished["reason"])
}

func TestLeaveGameFreesRemainingPlayer(t *testing.T) {
	presence := &memoryPresence{status: map[string]redis_models.PresenceStatus{}}
	h, rec := newTestHub(t, Options{Presence: presence})
	register(h, "c1", "alice")
	register(h, "c2", "bob")
	h.JoinQueue("c1", JoinQueueRequest{})
	h.JoinQueue("c2", JoinQueueRequest{})
	started, _ := rec.last("c1", "game_started")

	// No forfeit clock: the game waits for bob
	h.Disconnect("c2")
	h.JoinQueue("c1", JoinQueueRequest{})
	assert.Equal(t, apperrors.CodePlayerBusy, errorCode(t, rec, "c1"))

	h.LeaveGame("c1")
	finished, ok := rec.last("c1", "game_finished")
	require.True(t, ok)
	assert.Equal(t, started["gameId"], finished["gameId"])
	assert.Equal(t, "bob", finished["winner"])
	assert.Equal(t, game.ReasonSurrender, finished["reason"])
	assert.Equal(t, redis_models.PresenceOnline, presence.get("alice"))

	h.JoinQueue("c1", JoinQueueRequest{})
	_, ok = rec.last("c1", "queue_joined")
	assert.True(t, ok)
	assert.True(t, h.Queue().Contains("alice"))

	h.LeaveGame("c1")
	assert.Equal(t, apperrors.CodeGameNotActive, errorCode(t, rec, "c1"))
}

func TestAcceptWithBusyInviterChangesNothing(t *testing.T) {
	h, rec := newTestHub(t, Options{})
	register(h, "c1", "alice")
	register(h, "c2", "bob")
	register(h, "c3", "carol")
	h.JoinQueue("c2", JoinQueueRequest{Mode: "select"})

	h.SelectOpponent("c1", SelectOpponentRequest{OpponentID: "bob"})
	toBob, _ := rec.last("c1", "invitation_sent")
	h.SelectOpponent("c3", SelectOpponentRequest{OpponentID: "alice"})
	toAlice, _ := rec.last("c3", "invitation_sent")
	h.AcceptInvitation("c1", InvitationRequest{InvitationID: toAlice["invitationId"].(string)})
	require.Equal(t, 1, rec.count("c1", "game_started"))

	id := toBob["invitationId"].(string)
	h.AcceptInvitation("c2", InvitationRequest{InvitationID: id})
	assert.Equal(t, apperrors.CodePlayerBusy, errorCode(t, rec, "c2"))
	assert.Equal(t, 0, rec.count("c2", "game_started"))

	inv, ok := h.Invitations().Get(id)
	require.True(t, ok)
	assert.Equal(t, matchmaking.InvitationPending, inv.Status)
	assert.True(t, h.Queue().Contains("bob"))
	_, busy := h.Games().SessionFor("bob")
	assert.False(t, busy)
}

func TestGameAbandonedWhenBothPlayersLeave(t *testing.T) {
	sink := &recordingSink{}
	h, rec := newTestHub(t, Options{ReapDelay: 20 * time.Millisecond, Sink: sink})
	register(h, "c1", "alice")
	register(h, "c2", "bob")
	h.JoinQueue("c1", JoinQueueRequest{})
	h.JoinQueue("c2", JoinQueueRequest{})
	started, _ := rec.last("c1", "game_started")

	h.Disconnect("c1")
	h.Disconnect("c2")
	require.Eventually(t, func() bool { return h.Games().Count() == 0 }, 2*time.Second, 5*time.Millisecond)

	_, err := h.GameSnapshot(started["gameId"].(string))
	assert.True(t, apperrors.HasCode(err, apperrors.CodeGameNotFound))
	require.Eventually(t, func() bool { return len(sink.all()) == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, game.ReasonAbandoned, sink.all()[0].Reason)
}

func TestStats(t *testing.T) {
	h, _ := newTestHub(t, Options{})
	register(h, "c1", "alice")
	register(h, "c2", "bob")
	register(h, "c3", "carol")
	h.JoinQueue("c1", JoinQueueRequest{Mode: "select"})
	h.SelectOpponent("c2", SelectOpponentRequest{OpponentID: "alice"})

	online := h.Online()
	assert.Equal(t, OnlineStats{PlayersOnline: 3, InQueue: 1, InGame: 0}, online)

	lobby := h.LobbyStats()
	assert.Equal(t, 1, lobby.WaitingCount)
	assert.Equal(t, 1, lobby.PendingInvitations)
}

func TestDecodePayload(t *testing.T) {
	var req GameActionRequest
	err := DecodePayload([]any{map[string]any{
		"gameId": "game_1",
		"action": map[string]any{"type": "attack", "zone": "head"},
	}}, &req)
	require.NoError(t, err)
	assert.Equal(t, "game_1", req.GameID)
	assert.Equal(t, ActionPayload{Type: "attack", Zone: "head"}, req.Action)

	var empty JoinQueueRequest
	require.NoError(t, DecodePayload(nil, &empty))
	assert.Empty(t, empty.Mode)

	var bad GameActionRequest
	err = DecodePayload([]any{"not an object"}, &bad)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidRequest))
}
