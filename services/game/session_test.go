package game

import (
	game_constants "Arena/constants/game"
	apperrors "Arena/errors"
	"Arena/services/combat"
	"Arena/utils/random"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	attackBody = combat.Action{Type: combat.ActionAttack, Zone: combat.ZoneBody}
	attackHead = combat.Action{Type: combat.ActionAttack, Zone: combat.ZoneHead}
	blockBody  = combat.Action{Type: combat.ActionBlock, Zone: combat.ZoneBody}
	dodge      = combat.Action{Type: combat.ActionDodge}
)

func newTestSession() *Session {
	return NewSession("game_test", "alice", "bob", combat.NewResolver(random.NewScripted(nil, nil)), nil)
}

func TestFirstActionWaitsForOpponent(t *testing.T) {
	s := newTestSession()

	sub, err := s.SubmitAction("alice", attackBody)
	require.NoError(t, err)
	assert.Equal(t, 1, sub.Round)
	assert.Nil(t, sub.Resolution)
	assert.Equal(t, []string{"alice"}, s.Snapshot().PendingPlayers)
}

func TestResubmissionOverwrites(t *testing.T) {
	s := newTestSession()

	_, err := s.SubmitAction("alice", attackHead)
	require.NoError(t, err)
	_, err = s.SubmitAction("alice", attackBody)
	require.NoError(t, err)
	assert.Equal(t, 1, s.PendingCount())

	sub, err := s.SubmitAction("bob", blockBody)
	require.NoError(t, err)
	require.NotNil(t, sub.Resolution)
	assert.Equal(t, attackBody, sub.Resolution.Actions["alice"])
}

func TestRoundResolution(t *testing.T) {
	s := newTestSession()

	_, err := s.SubmitAction("alice", attackBody)
	require.NoError(t, err)
	sub, err := s.SubmitAction("bob", blockBody)
	require.NoError(t, err)
	require.NotNil(t, sub.Resolution)

	res := sub.Resolution
	assert.Equal(t, 1, res.Round)
	assert.True(t, res.Results["alice"].Blocked)
	assert.Equal(t, 8, res.Results["alice"].Damage)
	assert.False(t, res.Finished)

	snap := s.Snapshot()
	assert.Equal(t, 2, snap.Round)
	assert.Equal(t, 92, snap.Players["bob"].Health)
	assert.Equal(t, 90, snap.Players["alice"].Stamina)
	assert.Equal(t, 95, snap.Players["bob"].Stamina)
	assert.Empty(t, snap.PendingPlayers)
	assert.Equal(t, 0, s.PendingCount())

	summary := s.Summary()
	require.Len(t, summary.History, 1)
	assert.Equal(t, "alice", summary.History[0].Player1ID)
	assert.Equal(t, blockBody, summary.History[0].Action2)
}

func TestSubmitActionErrors(t *testing.T) {
	s := newTestSession()

	_, err := s.SubmitAction("mallory", attackBody)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeUnknownPlayer))

	_, err = s.SubmitAction("alice", combat.Action{Type: "kick"})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidAction))
	assert.Equal(t, 0, s.PendingCount())

	require.True(t, s.Pause("bob"))
	_, err = s.SubmitAction("alice", attackBody)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeGameNotActive))
}

func TestInsufficientStaminaAbortsRound(t *testing.T) {
	s := newTestSession()
	s.players[0].Stamina = 10

	_, err := s.SubmitAction("alice", attackBody)
	require.NoError(t, err)
	_, err = s.SubmitAction("bob", attackHead)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInsufficientStamina))

	snap := s.Snapshot()
	assert.Equal(t, 1, snap.Round)
	assert.Equal(t, 10, snap.Players["alice"].Stamina)
	assert.Equal(t, 100, snap.Players["alice"].Health)
	assert.Equal(t, 100, snap.Players["bob"].Stamina)
	assert.Equal(t, 100, snap.Players["bob"].Health)
	// bob keeps the affordable action, alice has to pick again
	assert.Equal(t, []string{"bob"}, snap.PendingPlayers)

	sub, err := s.SubmitAction("alice", blockBody)
	require.NoError(t, err)
	require.NotNil(t, sub.Resolution)
	assert.Equal(t, 1, sub.Resolution.Round)
}

func TestKnockoutFinishesSession(t *testing.T) {
	s := newTestSession()
	s.players[1].Health = 20

	_, err := s.SubmitAction("alice", attackHead)
	require.NoError(t, err)
	sub, err := s.SubmitAction("bob", blockBody)
	require.NoError(t, err)

	require.True(t, sub.Resolution.Finished)
	assert.Equal(t, "alice", sub.Resolution.Winner)
	assert.Equal(t, StatusFinished, s.Status())

	_, err = s.SubmitAction("alice", attackHead)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeGameNotActive))

	summary := s.Summary()
	assert.Equal(t, "alice", summary.Winner)
	assert.Equal(t, ReasonKnockout, summary.Reason)
	assert.Equal(t, 1, summary.Rounds)
}

func TestDoubleKnockoutIsDraw(t *testing.T) {
	s := newTestSession()
	s.players[0].Health = 10
	s.players[1].Health = 10

	_, err := s.SubmitAction("alice", attackBody)
	require.NoError(t, err)
	sub, err := s.SubmitAction("bob", attackBody)
	require.NoError(t, err)
	assert.Equal(t, game_constants.Draw, sub.Resolution.Winner)
}

func TestPauseResume(t *testing.T) {
	s := newTestSession()
	_, err := s.SubmitAction("alice", dodge)
	require.NoError(t, err)

	assert.True(t, s.Pause("bob"))
	assert.False(t, s.Pause("alice"), "already paused")
	assert.Equal(t, StatusPaused, s.Status())

	assert.False(t, s.Resume("bob"), "alice is still away")
	assert.True(t, s.Resume("alice"))
	assert.Equal(t, StatusActive, s.Status())

	// The pending action survived the pause
	sub, err := s.SubmitAction("bob", attackBody)
	require.NoError(t, err)
	assert.NotNil(t, sub.Resolution)
}

func TestForfeit(t *testing.T) {
	s := newTestSession()
	s.Pause("bob")

	snap, ok := s.Forfeit("bob")
	require.True(t, ok)
	assert.Equal(t, "alice", snap.Winner)
	assert.Equal(t, ReasonForfeit, snap.FinishReason)
	assert.Equal(t, StatusFinished, snap.Status)

	_, ok = s.Forfeit("alice")
	assert.False(t, ok, "finished is terminal")
	assert.False(t, s.Resume("bob"))
}

func TestConcurrentSubmissionsResolveOncePerRound(t *testing.T) {
	resolver := combat.NewResolver(random.New(1))
	for i := 0; i < 100; i++ {
		s := NewSession("game_race", "alice", "bob", resolver, nil)

		var (
			wg          sync.WaitGroup
			mu          sync.Mutex
			resolutions int
		)
		for _, id := range []string{"alice", "bob"} {
			wg.Add(1)
			go func(id string) {
				defer wg.Done()
				sub, err := s.SubmitAction(id, blockBody)
				assert.NoError(t, err)
				if sub.Resolution != nil {
					mu.Lock()
					resolutions++
					mu.Unlock()
				}
			}(id)
		}
		wg.Wait()

		assert.Equal(t, 1, resolutions)
		assert.Equal(t, 0, s.PendingCount())
		assert.Equal(t, 2, s.Snapshot().Round)
	}
}
