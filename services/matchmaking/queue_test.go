package matchmaking

import (
	apperrors "Arena/errors"
	"Arena/utils/random"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeRandom, m)

	m, err = ParseMode("SELECT")
	require.NoError(t, err)
	assert.Equal(t, ModeSelect, m)

	_, err = ParseMode("ranked")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidRequest))
}

func TestEnqueueOverwrites(t *testing.T) {
	q := NewQueue(time.Minute)

	assert.Equal(t, 1, q.Enqueue("alice", "c1", ModeRandom))
	assert.Equal(t, 1, q.Enqueue("alice", "c2", ModeSelect))

	entry, ok := q.Get("alice")
	require.True(t, ok)
	assert.Equal(t, "c2", entry.ConnectionID)
	assert.Equal(t, ModeSelect, entry.Mode)

	assert.True(t, q.Dequeue("alice"))
	assert.False(t, q.Dequeue("alice"))
	assert.Equal(t, 0, q.Len())
}

func TestMatchRandomRemovesBoth(t *testing.T) {
	q := NewQueue(time.Minute, WithRandom(random.NewScripted([]int{1}, nil)))
	q.Enqueue("alice", "c1", ModeRandom)
	q.Enqueue("bob", "c2", ModeRandom)
	q.Enqueue("carol", "c3", ModeRandom)

	m, ok := q.MatchRandom("alice")
	require.True(t, ok)
	assert.Equal(t, "alice", m.PlayerA.PlayerID)
	// others sorted: bob, carol; scripted pick 1
	assert.Equal(t, "carol", m.PlayerB.PlayerID)

	assert.False(t, q.Contains("alice"))
	assert.False(t, q.Contains("carol"))
	assert.True(t, q.Contains("bob"))
}

func TestMatchRandomNeedsSomeoneElse(t *testing.T) {
	q := NewQueue(time.Minute)

	_, ok := q.MatchRandom("alice")
	assert.False(t, ok, "requester not queued")

	q.Enqueue("alice", "c1", ModeRandom)
	_, ok = q.MatchRandom("alice")
	assert.False(t, ok)
	assert.True(t, q.Contains("alice"))
}

func TestBrowse(t *testing.T) {
	q := NewQueue(time.Minute, WithRandom(random.New(3)))
	for _, id := range []string{"me", "p1", "p2", "p3", "p4", "p5"} {
		q.Enqueue(id, "conn-"+id, ModeSelect)
	}

	picked := q.Browse("me", 3)
	require.Len(t, picked, 3)
	seen := map[string]bool{}
	for _, e := range picked {
		assert.NotEqual(t, "me", e.PlayerID)
		assert.False(t, seen[e.PlayerID], "picked without replacement")
		seen[e.PlayerID] = true
	}
	assert.Equal(t, 6, q.Len(), "browse is read-only")

	assert.Len(t, q.Browse("me", 10), 5)
	assert.Empty(t, q.Browse("stranger", 3))
}

func TestSweepRemovesStaleEntries(t *testing.T) {
	clock := newFakeClock()
	var timedOut []string
	q := NewQueue(time.Minute,
		WithClock(clock.Now),
		WithTimeoutHandler(func(e QueueEntry) { timedOut = append(timedOut, e.PlayerID) }))

	q.Enqueue("old", "c1", ModeRandom)
	clock.Advance(30 * time.Second)
	q.Enqueue("fresh", "c2", ModeRandom)
	clock.Advance(31 * time.Second)

	removed := q.Sweep(clock.Now())
	require.Len(t, removed, 1)
	assert.Equal(t, "old", removed[0].PlayerID)
	assert.Equal(t, []string{"old"}, timedOut)
	assert.True(t, q.Contains("fresh"))
}

func TestSearchTimeoutTimerFires(t *testing.T) {
	done := make(chan QueueEntry, 1)
	q := NewQueue(20*time.Millisecond, WithTimeoutHandler(func(e QueueEntry) { done <- e }))
	q.Enqueue("alice", "c1", ModeRandom)

	select {
	case e := <-done:
		assert.Equal(t, "alice", e.PlayerID)
	case <-time.After(2 * time.Second):
		t.Fatal("search timeout never fired")
	}
	assert.False(t, q.Contains("alice"))
}

func TestRequeueRearmsTimer(t *testing.T) {
	fired := make(chan struct{}, 2)
	q := NewQueue(50*time.Millisecond, WithTimeoutHandler(func(QueueEntry) { fired <- struct{}{} }))
	q.Enqueue("alice", "c1", ModeRandom)
	time.Sleep(30 * time.Millisecond)
	q.Enqueue("alice", "c1", ModeRandom)

	// Only the second timer may fire
	<-fired
	time.Sleep(80 * time.Millisecond)
	assert.Len(t, fired, 0)
}

func TestStats(t *testing.T) {
	clock := newFakeClock()
	q := NewQueue(time.Minute, WithClock(clock.Now))
	q.Enqueue("alice", "c1", ModeRandom)
	clock.Advance(5 * time.Second)
	q.Enqueue("bob", "c2", ModeSelect)
	clock.Advance(time.Second)

	stats := q.Stats()
	assert.Equal(t, 2, stats.WaitingCount)
	require.Len(t, stats.Entries, 2)
	assert.Equal(t, EntryStats{PlayerID: "alice", WaitMs: 6000, Mode: ModeRandom}, stats.Entries[0])
	assert.Equal(t, EntryStats{PlayerID: "bob", WaitMs: 1000, Mode: ModeSelect}, stats.Entries[1])
}

func TestConcurrentMatchingIsExclusive(t *testing.T) {
	q := NewQueue(time.Minute, WithRandom(random.New(42)))
	const players = 200
	for i := 0; i < players; i++ {
		q.Enqueue(fmt.Sprintf("p%03d", i), fmt.Sprintf("c%03d", i), ModeRandom)
	}

	var (
		mu      sync.Mutex
		matched = map[string]int{}
		wg      sync.WaitGroup
	)
	for i := 0; i < players; i++ {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			m, ok := q.MatchRandom(id)
			if !ok {
				return
			}
			mu.Lock()
			matched[m.PlayerA.PlayerID]++
			matched[m.PlayerB.PlayerID]++
			mu.Unlock()
		}(fmt.Sprintf("p%03d", i))
	}
	wg.Wait()

	for id, n := range matched {
		assert.Equal(t, 1, n, "player %s matched more than once", id)
	}
	assert.Equal(t, players, len(matched)+q.Len())
}
