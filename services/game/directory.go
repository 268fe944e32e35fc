package game

import (
	game_constants "Arena/constants/game"
	apperrors "Arena/errors"
	"Arena/services/combat"
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// SummarySink receives every finished game exactly once.
type SummarySink interface {
	SaveGameSummary(ctx context.Context, summary Summary) error
}

// Forfeit describes a session that ended because a participant stayed
// disconnected past the forfeit timeout.
type Forfeit struct {
	GameID   string
	Winner   string
	Loser    string
	Snapshot Snapshot
}

type ForfeitHandler func(f Forfeit)

type sessionEntry struct {
	session      *Session
	finished     bool
	reapTimer    *time.Timer
	forfeitTimer *time.Timer
	forfeitLoser string
	abandonTimer *time.Timer
}

func (e *sessionEntry) stopTimers() {
	if e.forfeitTimer != nil {
		e.forfeitTimer.Stop()
		e.forfeitTimer = nil
		e.forfeitLoser = ""
	}
	if e.abandonTimer != nil {
		e.abandonTimer.Stop()
		e.abandonTimer = nil
	}
}

// Directory is the set of live sessions. A player is indexed to at most one
// unfinished session.
type Directory struct {
	mutex    sync.RWMutex
	sessions map[string]*sessionEntry
	byPlayer map[string]string

	resolver       *combat.Resolver
	reapDelay      time.Duration
	forfeitTimeout time.Duration
	sink           SummarySink
	sinkTimeout    time.Duration
	onForfeit      ForfeitHandler
	now            func() time.Time
	newID          func() string
}

type DirectoryOption func(*Directory)

// WithForfeitTimeout finishes a paused session in favor of the connected
// player after d. Zero disables forfeits.
func WithForfeitTimeout(d time.Duration) DirectoryOption {
	return func(dir *Directory) { dir.forfeitTimeout = d }
}

func WithSummarySink(sink SummarySink) DirectoryOption {
	return func(dir *Directory) { dir.sink = sink }
}

func WithDirectoryClock(now func() time.Time) DirectoryOption {
	return func(dir *Directory) { dir.now = now }
}

func NewDirectory(resolver *combat.Resolver, reapDelay time.Duration, opts ...DirectoryOption) *Directory {
	if reapDelay <= 0 {
		reapDelay = game_constants.DefaultSessionReapDelay
	}
	d := &Directory{
		sessions:    make(map[string]*sessionEntry),
		byPlayer:    make(map[string]string),
		resolver:    resolver,
		reapDelay:   reapDelay,
		sinkTimeout: 10 * time.Second,
		now:         time.Now,
		newID:       func() string { return "game_" + uuid.NewString() },
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// OnForfeit sets the handler notified of forfeits.
func (d *Directory) OnForfeit(h ForfeitHandler) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.onForfeit = h
}

// Create starts a session between two players. It fails with PLAYER_BUSY
// if either is still in an unfinished session.
func (d *Directory) Create(player1ID, player2ID string) (*Session, error) {
	if player1ID == player2ID {
		return nil, apperrors.New(apperrors.CodeInvalidRequest, "Cannot play against yourself")
	}

	d.mutex.Lock()
	defer d.mutex.Unlock()

	for _, id := range []string{player1ID, player2ID} {
		if gameID, ok := d.byPlayer[id]; ok {
			return nil, apperrors.WithMetadata(apperrors.CodePlayerBusy, "Player is already in a game",
				map[string]string{"player_id": id, "game_id": gameID})
		}
	}

	s := NewSession(d.newID(), player1ID, player2ID, d.resolver, d.now)
	d.sessions[s.ID()] = &sessionEntry{session: s}
	d.byPlayer[player1ID] = s.ID()
	d.byPlayer[player2ID] = s.ID()

	log.Printf("[GAME] Created %s: %s vs %s", s.ID(), player1ID, player2ID)
	return s, nil
}

// Get returns the session with id, finished or not, until it is reaped.
func (d *Directory) Get(id string) (*Session, error) {
	d.mutex.RLock()
	defer d.mutex.RUnlock()
	e, ok := d.sessions[id]
	if !ok {
		return nil, apperrors.WithMetadata(apperrors.CodeGameNotFound, "Game not found",
			map[string]string{"game_id": id})
	}
	return e.session, nil
}

// SessionFor returns the unfinished session playerID takes part in.
func (d *Directory) SessionFor(playerID string) (*Session, bool) {
	d.mutex.RLock()
	defer d.mutex.RUnlock()
	id, ok := d.byPlayer[playerID]
	if !ok {
		return nil, false
	}
	e, ok := d.sessions[id]
	if !ok {
		return nil, false
	}
	return e.session, true
}

// SubmitAction routes an action to its session and runs the end-of-game
// bookkeeping when the round finished the match.
func (d *Directory) SubmitAction(gameID, playerID string, action combat.Action) (Submission, error) {
	s, err := d.Get(gameID)
	if err != nil {
		return Submission{}, err
	}
	sub, err := s.SubmitAction(playerID, action)
	if err != nil {
		return sub, err
	}
	if sub.Resolution != nil && sub.Resolution.Finished {
		d.finish(s)
	}
	return sub, nil
}

// Disconnect pauses the session of playerID. It returns the session and
// whether it was paused by this call. With forfeits enabled the first
// missing player loses after the forfeit timeout; without them a session
// nobody is connected to any more is abandoned after the reap delay.
func (d *Directory) Disconnect(playerID string) (*Session, bool) {
	s, ok := d.SessionFor(playerID)
	if !ok {
		return nil, false
	}
	if !s.Pause(playerID) && !s.IsDisconnected(playerID) {
		return s, false
	}

	paused := s.Status() == StatusPaused
	switch {
	case paused && d.forfeitTimeout > 0:
		d.armForfeit(s, playerID, false)
	case paused && len(s.Disconnected()) == len(s.PlayerIDs()):
		d.armAbandon(s)
	}
	log.Printf("[GAME] %s disconnected from %s", playerID, s.ID())
	return s, paused
}

// Reconnect marks playerID as back in its session. It reports whether the
// session resumed.
func (d *Directory) Reconnect(playerID string) (*Session, bool) {
	s, ok := d.SessionFor(playerID)
	if !ok {
		return nil, false
	}
	resumed := s.Resume(playerID)
	stillMissing := s.Disconnected()

	d.mutex.Lock()
	e, ok := d.sessions[s.ID()]
	if !ok || e.finished {
		d.mutex.Unlock()
		return s, false
	}
	if e.abandonTimer != nil {
		e.abandonTimer.Stop()
		e.abandonTimer = nil
	}
	if resumed {
		e.stopTimers()
	}
	// The forfeit clock was running against the player who just came back;
	// it moves to whoever is still missing
	moveForfeit := !resumed && e.forfeitTimer != nil && e.forfeitLoser == playerID
	d.mutex.Unlock()

	if moveForfeit && len(stillMissing) > 0 {
		d.armForfeit(s, stillMissing[0], true)
	}
	if resumed {
		log.Printf("[GAME] %s resumed", s.ID())
	}
	return s, resumed
}

// Leave ends playerID's unfinished session as a surrender, paused or not.
func (d *Directory) Leave(playerID string) (*Session, Snapshot, error) {
	s, ok := d.SessionFor(playerID)
	if !ok {
		return nil, Snapshot{}, apperrors.WithMetadata(apperrors.CodeGameNotActive, "Player is not in a game",
			map[string]string{"player_id": playerID})
	}
	snap, ok := s.Surrender(playerID)
	if !ok {
		return nil, Snapshot{}, apperrors.WithMetadata(apperrors.CodeGameNotActive, "Game is not active",
			map[string]string{"game_id": s.ID()})
	}
	d.finish(s)
	log.Printf("[GAME] %s surrendered %s", playerID, s.ID())
	return s, snap, nil
}

// armForfeit starts the forfeit clock against loserID. An already running
// clock is kept unless replace is set.
func (d *Directory) armForfeit(s *Session, loserID string, replace bool) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	e, ok := d.sessions[s.ID()]
	if !ok || e.finished {
		return
	}
	if e.forfeitTimer != nil {
		if !replace {
			return
		}
		e.forfeitTimer.Stop()
	}
	e.forfeitLoser = loserID
	e.forfeitTimer = time.AfterFunc(d.forfeitTimeout, func() { d.forfeit(s, loserID) })
}

func (d *Directory) armAbandon(s *Session) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	e, ok := d.sessions[s.ID()]
	if !ok || e.finished || e.abandonTimer != nil {
		return
	}
	e.abandonTimer = time.AfterFunc(d.reapDelay, func() { d.abandon(s) })
}

func (d *Directory) abandon(s *Session) {
	if !s.Abandon() {
		return
	}
	log.Printf("[GAME] %s abandoned by both players", s.ID())
	d.finish(s)
}

func (d *Directory) forfeit(s *Session, loserID string) {
	// The player may have come back between the timer firing and now
	if s.Status() != StatusPaused || !s.IsDisconnected(loserID) {
		return
	}
	snap, ok := s.Forfeit(loserID)
	if !ok {
		return
	}
	d.finish(s)

	log.Printf("[GAME] %s forfeited %s", loserID, s.ID())
	d.mutex.RLock()
	h := d.onForfeit
	d.mutex.RUnlock()
	if h != nil {
		h(Forfeit{GameID: s.ID(), Winner: snap.Winner, Loser: loserID, Snapshot: snap})
	}
}

// finish runs once per session: it frees both players, schedules the reap
// and hands the summary to the sink.
func (d *Directory) finish(s *Session) {
	d.mutex.Lock()
	e, ok := d.sessions[s.ID()]
	if !ok || e.finished {
		d.mutex.Unlock()
		return
	}
	e.finished = true
	e.stopTimers()
	for _, id := range s.PlayerIDs() {
		if d.byPlayer[id] == s.ID() {
			delete(d.byPlayer, id)
		}
	}
	id := s.ID()
	e.reapTimer = time.AfterFunc(d.reapDelay, func() { d.remove(id) })
	sink := d.sink
	d.mutex.Unlock()

	log.Printf("[GAME] %s finished, reaping in %s", id, d.reapDelay)
	if sink == nil {
		return
	}
	summary := s.Summary()
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), d.sinkTimeout)
		defer cancel()
		if err := sink.SaveGameSummary(ctx, summary); err != nil {
			log.Printf("[GAME-ERROR] Saving summary of %s: %v", id, err)
		}
	}()
}

func (d *Directory) remove(id string) bool {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	e, ok := d.sessions[id]
	if !ok {
		return false
	}
	if e.reapTimer != nil {
		e.reapTimer.Stop()
	}
	e.stopTimers()
	for _, pid := range e.session.PlayerIDs() {
		if d.byPlayer[pid] == id {
			delete(d.byPlayer, pid)
		}
	}
	delete(d.sessions, id)
	log.Printf("[GAME] Reaped %s", id)
	return true
}

// Reap removes finished sessions whose grace period has passed and returns
// how many were removed. It backs up the per-session reap timers.
func (d *Directory) Reap(now time.Time) int {
	d.mutex.RLock()
	var stale []string
	for id, e := range d.sessions {
		if finishedAt, done := e.session.finishedSince(); done && now.Sub(finishedAt) >= d.reapDelay {
			stale = append(stale, id)
		}
	}
	d.mutex.RUnlock()

	removed := 0
	for _, id := range stale {
		if d.remove(id) {
			removed++
		}
	}
	return removed
}

// Count returns the number of sessions held, finished ones included.
func (d *Directory) Count() int {
	d.mutex.RLock()
	defer d.mutex.RUnlock()
	return len(d.sessions)
}

// PlayersInGame returns the number of players in unfinished sessions.
func (d *Directory) PlayersInGame() int {
	d.mutex.RLock()
	defer d.mutex.RUnlock()
	return len(d.byPlayer)
}
