// Package game owns live matches: the per-match state machine and the
// directory of every session in the process.
package game

import (
	apperrors "Arena/errors"
	"Arena/services/combat"
	"sync"
	"time"
)

type Status string

const (
	StatusActive   Status = "active"
	StatusPaused   Status = "paused"
	StatusFinished Status = "finished"
)

// Finish reasons
const (
	ReasonKnockout  = "knockout"
	ReasonForfeit   = "forfeit"
	ReasonSurrender = "surrender"
	ReasonAbandoned = "abandoned"
)

// RoundRecord is one resolved round. Records are appended and never changed.
type RoundRecord struct {
	Round     int           `json:"round"`
	Player1ID string        `json:"player1Id"`
	Player2ID string        `json:"player2Id"`
	Action1   combat.Action `json:"action1"`
	Action2   combat.Action `json:"action2"`
	Result1   combat.Result `json:"result1"`
	Result2   combat.Result `json:"result2"`
	Timestamp time.Time     `json:"timestamp"`
}

// Snapshot is a copy of a session's public state. Pending actions are not
// revealed, only who has already submitted.
type Snapshot struct {
	ID             string                        `json:"id"`
	Players        map[string]combat.PlayerState `json:"players"`
	PlayerOrder    []string                      `json:"playerOrder"`
	Round          int                           `json:"round"`
	Status         Status                        `json:"status"`
	Winner         string                        `json:"winner,omitempty"`
	FinishReason   string                        `json:"finishReason,omitempty"`
	PendingPlayers []string                      `json:"pendingPlayers"`
	CreatedAt      time.Time                     `json:"createdAt"`
	LastActionAt   time.Time                     `json:"lastActionAt"`
}

// Resolution is the outcome of a completed round, keyed by player id.
type Resolution struct {
	Round    int
	Actions  map[string]combat.Action
	Results  map[string]combat.Result
	Snapshot Snapshot
	Finished bool
	Winner   string
}

// Submission is returned for every accepted action. Resolution is set only
// when the action completed the round.
type Submission struct {
	Round      int
	Resolution *Resolution
}

// Summary is the finished-game record handed to persistence.
type Summary struct {
	SessionID  string               `json:"sessionId"`
	Players    []combat.PlayerState `json:"players"`
	Winner     string               `json:"winner"`
	Reason     string               `json:"reason"`
	Rounds     int                  `json:"rounds"`
	History    []RoundRecord        `json:"history"`
	CreatedAt  time.Time            `json:"createdAt"`
	FinishedAt time.Time            `json:"finishedAt"`
}

// Session is one match. A single mutex guards all of its state, so the
// "both actions present" check and the resolution run as one step.
type Session struct {
	mutex        sync.Mutex
	id           string
	players      [2]combat.PlayerState
	round        int
	pending      map[string]combat.Action
	status       Status
	winner       string
	finishReason string
	history      []RoundRecord
	disconnected map[string]bool
	createdAt    time.Time
	lastActionAt time.Time
	finishedAt   time.Time

	resolver *combat.Resolver
	now      func() time.Time
}

func NewSession(id, player1ID, player2ID string, resolver *combat.Resolver, now func() time.Time) *Session {
	if now == nil {
		now = time.Now
	}
	created := now()
	return &Session{
		id:           id,
		players:      [2]combat.PlayerState{combat.NewPlayerState(player1ID), combat.NewPlayerState(player2ID)},
		round:        1,
		pending:      make(map[string]combat.Action, 2),
		status:       StatusActive,
		disconnected: make(map[string]bool, 2),
		createdAt:    created,
		lastActionAt: created,
		resolver:     resolver,
		now:          now,
	}
}

func (s *Session) ID() string {
	return s.id
}

// PlayerIDs returns both participants in seat order.
func (s *Session) PlayerIDs() [2]string {
	return [2]string{s.players[0].PlayerID, s.players[1].PlayerID}
}

func (s *Session) seat(playerID string) int {
	for i := range s.players {
		if s.players[i].PlayerID == playerID {
			return i
		}
	}
	return -1
}

// Opponent returns the other participant.
func (s *Session) Opponent(playerID string) (string, bool) {
	switch s.seat(playerID) {
	case 0:
		return s.players[1].PlayerID, true
	case 1:
		return s.players[0].PlayerID, true
	}
	return "", false
}

func (s *Session) Status() Status {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.status
}

// SubmitAction stores the player's action for the current round,
// overwriting an earlier one. The second distinct player's action resolves
// the round before SubmitAction returns.
func (s *Session) SubmitAction(playerID string, action combat.Action) (Submission, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.seat(playerID) < 0 {
		return Submission{}, apperrors.WithMetadata(apperrors.CodeUnknownPlayer, "Player is not part of this game",
			map[string]string{"game_id": s.id, "player_id": playerID})
	}
	if s.status != StatusActive {
		return Submission{}, apperrors.WithMetadata(apperrors.CodeGameNotActive, "Game is not active",
			map[string]string{"game_id": s.id, "status": string(s.status)})
	}
	if err := action.Validate(); err != nil {
		return Submission{}, err
	}

	s.pending[playerID] = action.Normalized()
	s.lastActionAt = s.now()

	sub := Submission{Round: s.round}
	if len(s.pending) < len(s.players) {
		return sub, nil
	}

	res, err := s.resolveLocked()
	if err != nil {
		return sub, err
	}
	sub.Resolution = &res
	return sub, nil
}

func (s *Session) resolveLocked() (Resolution, error) {
	p1, p2 := s.players[0], s.players[1]
	a1, a2 := s.pending[p1.PlayerID], s.pending[p2.PlayerID]

	out, err := s.resolver.Resolve(p1, p2, a1, a2)
	if err != nil {
		if !apperrors.HasCode(err, apperrors.CodeInsufficientStamina) {
			s.pending = make(map[string]combat.Action, 2)
			return Resolution{}, err
		}
		// Players who can afford their action keep it for the retry
		for _, p := range s.players {
			if !p.CanAfford(s.pending[p.PlayerID]) {
				delete(s.pending, p.PlayerID)
			}
		}
		return Resolution{}, err
	}

	now := s.now()
	round := s.round
	s.players[0], s.players[1] = out.Player1, out.Player2
	s.history = append(s.history, RoundRecord{
		Round:     round,
		Player1ID: p1.PlayerID,
		Player2ID: p2.PlayerID,
		Action1:   a1,
		Action2:   a2,
		Result1:   out.Result1,
		Result2:   out.Result2,
		Timestamp: now,
	})
	s.pending = make(map[string]combat.Action, 2)
	s.round++
	s.lastActionAt = now

	if out.Finished() {
		s.finishLocked(out.Winner, ReasonKnockout)
	}

	return Resolution{
		Round:    round,
		Actions:  map[string]combat.Action{p1.PlayerID: a1, p2.PlayerID: a2},
		Results:  map[string]combat.Result{p1.PlayerID: out.Result1, p2.PlayerID: out.Result2},
		Snapshot: s.snapshotLocked(),
		Finished: out.Finished(),
		Winner:   out.Winner,
	}, nil
}

func (s *Session) finishLocked(winner, reason string) {
	s.status = StatusFinished
	s.winner = winner
	s.finishReason = reason
	s.finishedAt = s.now()
	s.pending = make(map[string]combat.Action, 2)
}

// Pause records that playerID lost its connection. It reports whether the
// session went from active to paused.
func (s *Session) Pause(playerID string) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.seat(playerID) < 0 || s.status == StatusFinished {
		return false
	}
	s.disconnected[playerID] = true
	if s.status == StatusActive {
		s.status = StatusPaused
		return true
	}
	return false
}

// Resume records that playerID is back. The session becomes active again
// once no participant is missing; the return value reports that transition.
func (s *Session) Resume(playerID string) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.seat(playerID) < 0 || s.status == StatusFinished {
		return false
	}
	delete(s.disconnected, playerID)
	if s.status == StatusPaused && len(s.disconnected) == 0 {
		s.status = StatusActive
		return true
	}
	return false
}

// Forfeit ends an unfinished session in favor of loserID's opponent.
func (s *Session) Forfeit(loserID string) (Snapshot, bool) {
	return s.concede(loserID, ReasonForfeit)
}

// Surrender is a forfeit the player asked for.
func (s *Session) Surrender(loserID string) (Snapshot, bool) {
	return s.concede(loserID, ReasonSurrender)
}

func (s *Session) concede(loserID, reason string) (Snapshot, bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	winner, ok := s.Opponent(loserID)
	if !ok || s.status == StatusFinished {
		return Snapshot{}, false
	}
	s.finishLocked(winner, reason)
	return s.snapshotLocked(), true
}

// Abandon finishes a paused session without a winner, but only while every
// participant is still disconnected.
func (s *Session) Abandon() bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.status != StatusPaused || len(s.disconnected) < len(s.players) {
		return false
	}
	s.finishLocked("", ReasonAbandoned)
	return true
}

// Disconnected returns the participants currently missing, in seat order.
func (s *Session) Disconnected() []string {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	var ids []string
	for _, p := range s.players {
		if s.disconnected[p.PlayerID] {
			ids = append(ids, p.PlayerID)
		}
	}
	return ids
}

func (s *Session) IsDisconnected(playerID string) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.disconnected[playerID]
}

func (s *Session) PendingCount() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return len(s.pending)
}

func (s *Session) Snapshot() Snapshot {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		ID:             s.id,
		Players:        make(map[string]combat.PlayerState, len(s.players)),
		PlayerOrder:    make([]string, 0, len(s.players)),
		Round:          s.round,
		Status:         s.status,
		Winner:         s.winner,
		FinishReason:   s.finishReason,
		PendingPlayers: []string{},
		CreatedAt:      s.createdAt,
		LastActionAt:   s.lastActionAt,
	}
	for _, p := range s.players {
		snap.Players[p.PlayerID] = p
		snap.PlayerOrder = append(snap.PlayerOrder, p.PlayerID)
		if _, ok := s.pending[p.PlayerID]; ok {
			snap.PendingPlayers = append(snap.PendingPlayers, p.PlayerID)
		}
	}
	return snap
}

// Summary returns the persistence record. It is meaningful once finished.
func (s *Session) Summary() Summary {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	history := make([]RoundRecord, len(s.history))
	copy(history, s.history)
	return Summary{
		SessionID:  s.id,
		Players:    []combat.PlayerState{s.players[0], s.players[1]},
		Winner:     s.winner,
		Reason:     s.finishReason,
		Rounds:     len(s.history),
		History:    history,
		CreatedAt:  s.createdAt,
		FinishedAt: s.finishedAt,
	}
}

func (s *Session) finishedSince() (time.Time, bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.finishedAt, s.status == StatusFinished
}
