// Package matchmaking holds players waiting for an opponent and the
// invitations they send each other.
package matchmaking

import (
	game_constants "Arena/constants/game"
	apperrors "Arena/errors"
	"Arena/utils/random"
	"log"
	"sort"
	"strings"
	"sync"
	"time"
)

type Mode string

const (
	ModeRandom Mode = "random"
	ModeSelect Mode = "select"
)

// ParseMode reads a queue mode from the wire. An empty value means random.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeRandom:
		return ModeRandom, nil
	case ModeSelect:
		return ModeSelect, nil
	}
	return "", apperrors.New(apperrors.CodeInvalidRequest, "Invalid queue mode")
}

// QueueEntry is one waiting player. A player has at most one entry.
type QueueEntry struct {
	PlayerID     string    `json:"id"`
	ConnectionID string    `json:"-"`
	JoinedAt     time.Time `json:"joinedAt"`
	Mode         Mode      `json:"mode"`
}

// Match is a pair removed from the queue together.
type Match struct {
	PlayerA   QueueEntry
	PlayerB   QueueEntry
	MatchedAt time.Time
}

type EntryStats struct {
	PlayerID string `json:"id"`
	WaitMs   int64  `json:"waitMs"`
	Mode     Mode   `json:"mode"`
}

type QueueStats struct {
	WaitingCount int          `json:"waitingCount"`
	Entries      []EntryStats `json:"entries"`
}

// TimeoutHandler is called, outside the queue lock, for every entry removed
// because its search timeout elapsed.
type TimeoutHandler func(entry QueueEntry)

type queueItem struct {
	entry QueueEntry
	timer *time.Timer
}

// Queue is the process-wide waiting list. All operations are serialized by
// one mutex, so a pairing always removes exactly the two entries it returns.
type Queue struct {
	mutex     sync.Mutex
	entries   map[string]*queueItem
	timeout   time.Duration
	now       func() time.Time
	rng       random.Source
	onTimeout TimeoutHandler
}

type QueueOption func(*Queue)

func WithClock(now func() time.Time) QueueOption {
	return func(q *Queue) { q.now = now }
}

func WithRandom(rng random.Source) QueueOption {
	return func(q *Queue) { q.rng = rng }
}

func WithTimeoutHandler(h TimeoutHandler) QueueOption {
	return func(q *Queue) { q.onTimeout = h }
}

// NewQueue creates a queue whose entries are dropped after timeout.
// A non-positive timeout falls back to the default search timeout.
func NewQueue(timeout time.Duration, opts ...QueueOption) *Queue {
	if timeout <= 0 {
		timeout = game_constants.DefaultSearchTimeout
	}
	q := &Queue{
		entries: make(map[string]*queueItem),
		timeout: timeout,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(q)
	}
	if q.rng == nil {
		q.rng = random.NewFromEntropy()
	}
	return q
}

// Enqueue inserts or overwrites the entry of playerID and arms its search
// timeout. It returns the queue size afterwards.
func (q *Queue) Enqueue(playerID, connectionID string, mode Mode) int {
	q.mutex.Lock()
	defer q.mutex.Unlock()

	if old, ok := q.entries[playerID]; ok {
		old.timer.Stop()
	}

	item := &queueItem{entry: QueueEntry{
		PlayerID:     playerID,
		ConnectionID: connectionID,
		JoinedAt:     q.now(),
		Mode:         mode,
	}}
	item.timer = time.AfterFunc(q.timeout, func() { q.expire(playerID, item) })
	q.entries[playerID] = item

	return len(q.entries)
}

// expire fires from the entry's timer. The item pointer guards against
// acting on a newer entry of the same player.
func (q *Queue) expire(playerID string, item *queueItem) {
	q.mutex.Lock()
	cur, ok := q.entries[playerID]
	if !ok || cur != item {
		q.mutex.Unlock()
		return
	}
	delete(q.entries, playerID)
	q.mutex.Unlock()

	log.Printf("[QUEUE] Search timeout for player %s", playerID)
	if q.onTimeout != nil {
		q.onTimeout(item.entry)
	}
}

// Dequeue removes playerID if present. It reports whether an entry existed.
func (q *Queue) Dequeue(playerID string) bool {
	return len(q.Remove(playerID)) == 1
}

// Remove drops every listed player that is queued and returns those removed.
func (q *Queue) Remove(playerIDs ...string) []string {
	q.mutex.Lock()
	defer q.mutex.Unlock()

	var removed []string
	for _, id := range playerIDs {
		if q.removeLocked(id) {
			removed = append(removed, id)
		}
	}
	return removed
}

func (q *Queue) removeLocked(playerID string) bool {
	item, ok := q.entries[playerID]
	if !ok {
		return false
	}
	item.timer.Stop()
	delete(q.entries, playerID)
	return true
}

// Contains reports whether playerID is waiting.
func (q *Queue) Contains(playerID string) bool {
	q.mutex.Lock()
	defer q.mutex.Unlock()
	_, ok := q.entries[playerID]
	return ok
}

// Get returns the entry of playerID.
func (q *Queue) Get(playerID string) (QueueEntry, bool) {
	q.mutex.Lock()
	defer q.mutex.Unlock()
	item, ok := q.entries[playerID]
	if !ok {
		return QueueEntry{}, false
	}
	return item.entry, true
}

func (q *Queue) Len() int {
	q.mutex.Lock()
	defer q.mutex.Unlock()
	return len(q.entries)
}

// MatchRandom pairs playerID with a uniformly chosen other waiting player and
// removes both entries. It returns false if playerID is not queued or nobody
// else is waiting.
func (q *Queue) MatchRandom(playerID string) (Match, bool) {
	q.Sweep(q.now())

	q.mutex.Lock()
	defer q.mutex.Unlock()

	me, ok := q.entries[playerID]
	if !ok {
		return Match{}, false
	}
	others := q.othersLocked(playerID)
	if len(others) == 0 {
		return Match{}, false
	}

	opponent := others[q.rng.Intn(len(others))]
	q.removeLocked(playerID)
	q.removeLocked(opponent.PlayerID)

	return Match{PlayerA: me.entry, PlayerB: opponent, MatchedAt: q.now()}, true
}

// Browse returns up to count other waiting entries picked at random without
// replacement. The queue is not modified. A requester that is not queued
// sees nobody.
func (q *Queue) Browse(playerID string, count int) []QueueEntry {
	q.mutex.Lock()
	defer q.mutex.Unlock()

	if _, ok := q.entries[playerID]; !ok || count <= 0 {
		return []QueueEntry{}
	}
	others := q.othersLocked(playerID)
	if len(others) <= count {
		return others
	}

	// Partial Fisher-Yates
	for i := 0; i < count; i++ {
		j := i + q.rng.Intn(len(others)-i)
		others[i], others[j] = others[j], others[i]
	}
	return others[:count]
}

// othersLocked snapshots every entry except playerID, ordered by player id
// so that a seeded random source gives reproducible picks.
func (q *Queue) othersLocked(playerID string) []QueueEntry {
	others := make([]QueueEntry, 0, len(q.entries))
	for id, item := range q.entries {
		if id != playerID {
			others = append(others, item.entry)
		}
	}
	sort.Slice(others, func(i, j int) bool { return others[i].PlayerID < others[j].PlayerID })
	return others
}

// Stats reports the waiting players and how long each has waited.
func (q *Queue) Stats() QueueStats {
	q.mutex.Lock()
	defer q.mutex.Unlock()

	now := q.now()
	stats := QueueStats{WaitingCount: len(q.entries), Entries: make([]EntryStats, 0, len(q.entries))}
	for _, item := range q.entries {
		stats.Entries = append(stats.Entries, EntryStats{
			PlayerID: item.entry.PlayerID,
			WaitMs:   now.Sub(item.entry.JoinedAt).Milliseconds(),
			Mode:     item.entry.Mode,
		})
	}
	sort.Slice(stats.Entries, func(i, j int) bool { return stats.Entries[i].WaitMs > stats.Entries[j].WaitMs })
	return stats
}

// Sweep removes every entry older than the search timeout and returns them.
// The timeout handler runs for each removed entry.
func (q *Queue) Sweep(now time.Time) []QueueEntry {
	q.mutex.Lock()
	var expired []QueueEntry
	for id, item := range q.entries {
		if now.Sub(item.entry.JoinedAt) > q.timeout {
			item.timer.Stop()
			delete(q.entries, id)
			expired = append(expired, item.entry)
		}
	}
	q.mutex.Unlock()

	for _, entry := range expired {
		log.Printf("[QUEUE] Swept stale entry of player %s", entry.PlayerID)
		if q.onTimeout != nil {
			q.onTimeout(entry)
		}
	}
	return expired
}
