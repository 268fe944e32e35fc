package handlers

import (
	game_constants "Arena/constants/game"
	apperrors "Arena/errors"
	redis_models "Arena/models/redis"
	"Arena/services/combat"
	"Arena/services/game"
	"Arena/services/matchmaking"
	"Arena/services/registry"
	"Arena/utils/random"
	"context"
	"log"
	"time"

	"github.com/gin-gonic/gin"
)

// Emitter delivers one event to one transport connection.
type Emitter interface {
	Emit(connectionID string, event string, payload any)
}

// PresenceStore publishes whether a player is online, playing or gone.
type PresenceStore interface {
	SetPresence(ctx context.Context, presence redis_models.PlayerPresence) error
}

type Options struct {
	SearchTimeout     time.Duration
	InvitationTimeout time.Duration
	ReapDelay         time.Duration
	ForfeitTimeout    time.Duration
	BrowseCount       int
	Random            random.Source
	Sink              game.SummarySink
	Presence          PresenceStore
}

// Hub turns inbound socket events into registry, matchmaking and game
// operations and fans the outcomes out to the right connections.
type Hub struct {
	registry    *registry.Registry
	queue       *matchmaking.Queue
	invitations *matchmaking.Invitations
	games       *game.Directory
	emitter     Emitter
	presence    PresenceStore
	browseCount int
}

func NewHub(emitter Emitter, opts Options) *Hub {
	if opts.Random == nil {
		opts.Random = random.NewFromEntropy()
	}
	if opts.BrowseCount <= 0 {
		opts.BrowseCount = game_constants.DefaultBrowseCount
	}

	h := &Hub{
		registry:    registry.New(),
		emitter:     emitter,
		presence:    opts.Presence,
		browseCount: opts.BrowseCount,
	}
	h.queue = matchmaking.NewQueue(opts.SearchTimeout,
		matchmaking.WithRandom(opts.Random),
		matchmaking.WithTimeoutHandler(h.handleSearchTimeout))
	h.invitations = matchmaking.NewInvitations(h.queue, opts.InvitationTimeout,
		matchmaking.WithExpireHandler(h.handleInvitationExpired))

	dirOpts := []game.DirectoryOption{game.WithForfeitTimeout(opts.ForfeitTimeout)}
	if opts.Sink != nil {
		dirOpts = append(dirOpts, game.WithSummarySink(opts.Sink))
	}
	h.games = game.NewDirectory(combat.NewResolver(opts.Random), opts.ReapDelay, dirOpts...)
	h.games.OnForfeit(h.handleForfeit)

	return h
}

func (h *Hub) Registry() *registry.Registry          { return h.registry }
func (h *Hub) Queue() *matchmaking.Queue             { return h.queue }
func (h *Hub) Invitations() *matchmaking.Invitations { return h.invitations }
func (h *Hub) Games() *game.Directory                { return h.games }

// Register binds the connection to playerID. A player coming back to a
// paused game is put back into it.
func (h *Hub) Register(connID string, req RegisterRequest) {
	if req.PlayerID == "" {
		h.emitError(connID, apperrors.New(apperrors.CodeInvalidRequest, "Player ID is required"))
		return
	}

	ref, previous := h.registry.Register(connID, req.PlayerID)
	if previous != "" {
		log.Printf("[REGISTER] Player %s moved from connection %s to %s", ref.PlayerID, previous, connID)
	}
	log.Printf("[REGISTER] Player %s registered on %s", ref.PlayerID, connID)

	h.emitter.Emit(connID, "registered", gin.H{
		"success":      true,
		"playerId":     ref.PlayerID,
		"connectionId": connID,
	})

	s, inGame := h.games.SessionFor(ref.PlayerID)
	if !inGame {
		h.setPresence(ref.PlayerID, redis_models.PresenceOnline, "")
		return
	}
	wasAway := s.IsDisconnected(ref.PlayerID)
	_, resumed := h.games.Reconnect(ref.PlayerID)

	h.setPresence(ref.PlayerID, redis_models.PresencePlaying, s.ID())
	h.emitter.Emit(connID, "game_resumed", gin.H{
		"gameId": s.ID(),
		"game":   s.Snapshot(),
	})
	if opponent, ok := s.Opponent(ref.PlayerID); ok && wasAway {
		h.emitToPlayer(opponent, "opponent_reconnected", gin.H{"gameId": s.ID(), "resumed": resumed})
	}
}

func (h *Hub) JoinQueue(connID string, req JoinQueueRequest) {
	playerID, ok := h.requirePlayer(connID)
	if !ok {
		return
	}
	mode, err := matchmaking.ParseMode(req.Mode)
	if err != nil {
		h.emitError(connID, err)
		return
	}
	if s, busy := h.games.SessionFor(playerID); busy {
		h.emitError(connID, apperrors.WithMetadata(apperrors.CodePlayerBusy, "Player is already in a game",
			map[string]string{"game_id": s.ID()}))
		return
	}

	size := h.queue.Enqueue(playerID, connID, mode)
	log.Printf("[QUEUE] %s joined (%s), %d waiting", playerID, mode, size)
	h.emitter.Emit(connID, "queue_joined", gin.H{
		"success":        true,
		"mode":           mode,
		"playersInQueue": size,
	})

	if mode != matchmaking.ModeRandom {
		return
	}
	if m, ok := h.queue.MatchRandom(playerID); ok {
		h.startGame(m.PlayerA.PlayerID, m.PlayerB.PlayerID)
	}
}

func (h *Hub) LeaveQueue(connID string) {
	playerID, ok := h.registry.Resolve(connID)
	if !ok {
		return
	}
	h.queue.Dequeue(playerID)
	log.Printf("[QUEUE] %s left", playerID)
	h.emitter.Emit(connID, "queue_left", gin.H{"success": true})
}

func (h *Hub) GetAvailablePlayers(connID string) {
	playerID, ok := h.requirePlayer(connID)
	if !ok {
		return
	}

	entries := h.queue.Browse(playerID, h.browseCount)
	players := make([]gin.H, 0, len(entries))
	for _, e := range entries {
		players = append(players, gin.H{"id": e.PlayerID, "joinedAt": e.JoinedAt.UnixMilli()})
	}
	h.emitter.Emit(connID, "available_players", gin.H{"players": players})
}

func (h *Hub) SelectOpponent(connID string, req SelectOpponentRequest) {
	playerID, ok := h.registry.Resolve(connID)
	if !ok || req.OpponentID == "" || req.OpponentID == playerID {
		h.emitError(connID, apperrors.New(apperrors.CodeInvalidRequest, "Invalid request"))
		return
	}

	inv := h.invitations.Create(playerID, req.OpponentID)
	h.emitToPlayer(req.OpponentID, "game_invitation", gin.H{
		"invitationId": inv.ID,
		"from":         playerID,
		"expiresInMs":  h.invitations.Timeout().Milliseconds(),
	})
	h.emitter.Emit(connID, "invitation_sent", gin.H{
		"success":      true,
		"invitationId": inv.ID,
	})
}

func (h *Hub) AcceptInvitation(connID string, req InvitationRequest) {
	playerID, ok := h.requirePlayer(connID)
	if !ok {
		return
	}

	// Only the invitee may accept, and only while the inviter is reachable
	inv, found := h.invitations.Get(req.InvitationID)
	if !found || inv.To != playerID {
		h.emitError(connID, apperrors.New(apperrors.CodeInvalidOrExpiredInvitation, "Invalid or expired invitation"))
		return
	}
	if _, online := h.registry.ResolveReverse(inv.From); !online {
		h.emitError(connID, apperrors.New(apperrors.CodeUnknownPlayer, "Inviting player is no longer connected"))
		return
	}

	// The game is created before the invitation is committed, so a busy
	// player leaves both the invitation and the queue as they were
	var s *game.Session
	_, err := h.invitations.Accept(req.InvitationID, func(p matchmaking.Pairing) error {
		created, err := h.games.Create(p.Player1ID, p.Player2ID)
		s = created
		return err
	})
	if err != nil {
		h.emitError(connID, err)
		return
	}
	log.Printf("[INVITE] %s accepted %s", playerID, req.InvitationID)
	h.announceGame(s)
}

func (h *Hub) DeclineInvitation(connID string, req InvitationRequest) {
	playerID, ok := h.requirePlayer(connID)
	if !ok {
		return
	}

	inv, found := h.invitations.Get(req.InvitationID)
	if !found || (inv.To != playerID && inv.From != playerID) {
		h.emitError(connID, apperrors.New(apperrors.CodeInvalidOrExpiredInvitation, "Invalid or expired invitation"))
		return
	}
	inv, err := h.invitations.Decline(req.InvitationID)
	if err != nil {
		h.emitError(connID, err)
		return
	}

	payload := gin.H{"success": true, "invitationId": inv.ID, "by": playerID}
	h.emitter.Emit(connID, "invitation_declined", payload)
	other := inv.From
	if playerID == inv.From {
		other = inv.To
	}
	h.emitToPlayer(other, "invitation_declined", payload)
}

func (h *Hub) GameAction(connID string, req GameActionRequest) {
	playerID, ok := h.requirePlayer(connID)
	if !ok {
		return
	}

	action := combat.ParseAction(req.Action.Type, req.Action.Zone)
	sub, err := h.games.SubmitAction(req.GameID, playerID, action)
	if err != nil {
		log.Printf("[GAME-ERROR] Action of %s in %s rejected: %v", playerID, req.GameID, err)
		if apperrors.HasCode(err, apperrors.CodeInsufficientStamina) {
			// The whole round is void, so both fighters hear about it
			if s, getErr := h.games.Get(req.GameID); getErr == nil {
				for _, id := range s.PlayerIDs() {
					h.emitErrorToPlayer(id, err)
				}
				return
			}
		}
		h.emitError(connID, err)
		return
	}

	h.emitter.Emit(connID, "action_accepted", gin.H{
		"success": true,
		"gameId":  req.GameID,
		"round":   sub.Round,
	})

	if sub.Resolution != nil {
		h.broadcastResolution(req.GameID, sub.Resolution)
	}
}

func (h *Hub) broadcastResolution(gameID string, res *game.Resolution) {
	snap := res.Snapshot
	turn := gin.H{
		"gameId":     gameID,
		"turnNumber": res.Round,
		"actions":    res.Actions,
		"results":    res.Results,
		"gameState": gin.H{
			"players": snap.Players,
			"status":  snap.Status,
			"winner":  nullable(snap.Winner),
		},
	}
	for _, id := range snap.PlayerOrder {
		h.emitToPlayer(id, "turn_result", turn)
	}

	if !res.Finished {
		return
	}
	log.Printf("[GAME] %s won by %s", gameID, res.Winner)
	finished := gin.H{
		"gameId": gameID,
		"winner": res.Winner,
		"reason": snap.FinishReason,
		"stats":  snap.Players,
	}
	for _, id := range snap.PlayerOrder {
		h.emitToPlayer(id, "game_finished", finished)
		h.setPresence(id, redis_models.PresenceOnline, "")
	}
}

func (h *Hub) GetGameState(connID string, req GameStateRequest) {
	s, err := h.games.Get(req.GameID)
	if err != nil {
		h.emitError(connID, err)
		return
	}
	h.emitter.Emit(connID, "game_state", gin.H{"game": s.Snapshot()})
}

// LeaveGame surrenders the player's current game, active or paused. It is
// the way out of a game the opponent never returns to.
func (h *Hub) LeaveGame(connID string) {
	playerID, ok := h.requirePlayer(connID)
	if !ok {
		return
	}
	s, snap, err := h.games.Leave(playerID)
	if err != nil {
		h.emitError(connID, err)
		return
	}

	payload := gin.H{
		"gameId": s.ID(),
		"winner": snap.Winner,
		"reason": game.ReasonSurrender,
		"stats":  snap.Players,
	}
	for _, id := range s.PlayerIDs() {
		h.emitToPlayer(id, "game_finished", payload)
		if _, online := h.registry.ResolveReverse(id); online {
			h.setPresence(id, redis_models.PresenceOnline, "")
		}
	}
}

// Disconnect drops the connection's binding, takes the player out of the
// queue and pauses any game it was in.
func (h *Hub) Disconnect(connID string) {
	playerID, ok := h.registry.Unregister(connID)
	if !ok {
		return
	}
	log.Printf("[DISCONNECT] Player %s left (%s)", playerID, connID)

	h.queue.Dequeue(playerID)
	h.setPresence(playerID, redis_models.PresenceOffline, "")

	s, _ := h.games.Disconnect(playerID)
	if s == nil {
		return
	}
	if opponent, ok := s.Opponent(playerID); ok {
		h.emitToPlayer(opponent, "opponent_disconnected", gin.H{"gameId": s.ID()})
	}
}

func (h *Hub) startGame(player1ID, player2ID string) {
	s, err := h.games.Create(player1ID, player2ID)
	if err != nil {
		log.Printf("[GAME-ERROR] Could not start %s vs %s: %v", player1ID, player2ID, err)
		h.emitErrorToPlayer(player1ID, err)
		h.emitErrorToPlayer(player2ID, err)
		return
	}
	h.announceGame(s)
}

func (h *Hub) announceGame(s *game.Session) {
	snap := s.Snapshot()
	players := gin.H{}
	for id, p := range snap.Players {
		players[id] = gin.H{"id": id, "health": p.Health, "stamina": p.Stamina}
	}
	for _, id := range snap.PlayerOrder {
		opponent, _ := s.Opponent(id)
		h.emitToPlayer(id, "game_started", gin.H{
			"gameId":     s.ID(),
			"players":    players,
			"opponentId": opponent,
			"yourTurn":   true,
		})
		h.setPresence(id, redis_models.PresencePlaying, s.ID())
	}
}

func (h *Hub) handleSearchTimeout(entry matchmaking.QueueEntry) {
	connID, ok := h.registry.ResolveReverse(entry.PlayerID)
	if !ok {
		return
	}
	h.emitter.Emit(connID, "queue_left", gin.H{"success": true, "reason": "timeout"})
}

func (h *Hub) handleInvitationExpired(inv matchmaking.Invitation) {
	h.emitToPlayer(inv.From, "invitation_expired", gin.H{
		"invitationId": inv.ID,
		"to":           inv.To,
	})
}

func (h *Hub) handleForfeit(f game.Forfeit) {
	payload := gin.H{
		"gameId": f.GameID,
		"winner": f.Winner,
		"reason": game.ReasonForfeit,
		"stats":  f.Snapshot.Players,
	}
	for _, id := range []string{f.Winner, f.Loser} {
		h.emitToPlayer(id, "game_finished", payload)
	}
	h.setPresence(f.Winner, redis_models.PresenceOnline, "")
}

type OnlineStats struct {
	PlayersOnline int `json:"playersOnline"`
	InQueue       int `json:"inQueue"`
	InGame        int `json:"inGame"`
}

func (h *Hub) Online() OnlineStats {
	return OnlineStats{
		PlayersOnline: h.registry.Count(),
		InQueue:       h.queue.Len(),
		InGame:        h.games.PlayersInGame(),
	}
}

type LobbyStats struct {
	matchmaking.QueueStats
	PendingInvitations int `json:"pendingInvitations"`
}

func (h *Hub) LobbyStats() LobbyStats {
	return LobbyStats{
		QueueStats:         h.queue.Stats(),
		PendingInvitations: h.invitations.PendingCount(),
	}
}

// GameSnapshot returns the public state of a live or recently finished game.
func (h *Hub) GameSnapshot(gameID string) (game.Snapshot, error) {
	s, err := h.games.Get(gameID)
	if err != nil {
		return game.Snapshot{}, err
	}
	return s.Snapshot(), nil
}

func (h *Hub) requirePlayer(connID string) (string, bool) {
	playerID, ok := h.registry.Resolve(connID)
	if !ok {
		h.emitError(connID, apperrors.New(apperrors.CodeNotRegistered, "Not registered"))
	}
	return playerID, ok
}

func (h *Hub) emitToPlayer(playerID, event string, payload any) {
	connID, ok := h.registry.ResolveReverse(playerID)
	if !ok {
		return
	}
	h.emitter.Emit(connID, event, payload)
}

// Reject reports err to one connection without touching any state.
func (h *Hub) Reject(connID string, err error) {
	h.emitError(connID, err)
}

func (h *Hub) emitError(connID string, err error) {
	h.emitter.Emit(connID, "error", gin.H{
		"message": apperrors.PlayerMessage(err),
		"code":    apperrors.CodeOf(err),
	})
}

func (h *Hub) emitErrorToPlayer(playerID string, err error) {
	if connID, ok := h.registry.ResolveReverse(playerID); ok {
		h.emitError(connID, err)
	}
}

func (h *Hub) setPresence(playerID string, status redis_models.PresenceStatus, gameID string) {
	if h.presence == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := h.presence.SetPresence(ctx, redis_models.PlayerPresence{
		PlayerID:  playerID,
		Status:    status,
		GameID:    gameID,
		UpdatedAt: time.Now(),
	})
	if err != nil {
		log.Printf("[PRESENCE-ERROR] %s -> %s: %v", playerID, status, err)
	}
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
