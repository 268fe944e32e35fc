package matchmaking

import (
	game_constants "Arena/constants/game"
	apperrors "Arena/errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "pending"
	InvitationAccepted InvitationStatus = "accepted"
	InvitationDeclined InvitationStatus = "declined"
	InvitationExpired  InvitationStatus = "expired"
)

// Invitation is an offer from one player to start a game with another.
// Its status leaves pending exactly once.
type Invitation struct {
	ID        string           `json:"invitationId"`
	From      string           `json:"from"`
	To        string           `json:"to"`
	CreatedAt time.Time        `json:"createdAt"`
	ExpiresAt time.Time        `json:"expiresAt"`
	Status    InvitationStatus `json:"status"`
}

// Pairing is the result of an accepted invitation.
type Pairing struct {
	Player1ID string
	Player2ID string
	MatchedAt time.Time
}

// ExpireHandler is called, outside the manager lock, when a pending
// invitation times out.
type ExpireHandler func(inv Invitation)

type invitationItem struct {
	inv   Invitation
	timer *time.Timer
}

// Invitations manages the invitation table. Every status transition is a
// single check-and-set under the manager lock, so accept and expiry racing
// on one invitation resolve to exactly one winner.
type Invitations struct {
	mutex    sync.Mutex
	items    map[string]*invitationItem
	queue    *Queue
	timeout  time.Duration
	onExpire ExpireHandler
	now      func() time.Time
	newID    func() string
}

type InvitationOption func(*Invitations)

func WithExpireHandler(h ExpireHandler) InvitationOption {
	return func(m *Invitations) { m.onExpire = h }
}

func WithInvitationClock(now func() time.Time) InvitationOption {
	return func(m *Invitations) { m.now = now }
}

// NewInvitations creates the manager. Accepting an invitation removes both
// players from queue.
func NewInvitations(queue *Queue, timeout time.Duration, opts ...InvitationOption) *Invitations {
	if timeout <= 0 {
		timeout = game_constants.DefaultInvitationTimeout
	}
	m := &Invitations{
		items:   make(map[string]*invitationItem),
		queue:   queue,
		timeout: timeout,
		now:     time.Now,
		newID:   func() string { return "inv_" + uuid.NewString() },
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Invitations) Timeout() time.Duration {
	return m.timeout
}

// Create records a pending invitation and arms its expiry timer.
func (m *Invitations) Create(from, to string) Invitation {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	now := m.now()
	item := &invitationItem{inv: Invitation{
		ID:        m.newID(),
		From:      from,
		To:        to,
		CreatedAt: now,
		ExpiresAt: now.Add(m.timeout),
		Status:    InvitationPending,
	}}
	id := item.inv.ID
	item.timer = time.AfterFunc(m.timeout, func() { m.expire(id) })
	m.items[id] = item

	log.Printf("[INVITE] %s invited %s (%s)", from, to, id)
	return item.inv
}

func (m *Invitations) expire(id string) {
	m.mutex.Lock()
	item, ok := m.items[id]
	if !ok || item.inv.Status != InvitationPending {
		m.mutex.Unlock()
		return
	}
	item.inv.Status = InvitationExpired
	inv := item.inv
	m.mutex.Unlock()

	log.Printf("[INVITE] Invitation %s expired", id)
	if m.onExpire != nil {
		m.onExpire(inv)
	}
}

// pendingLocked returns the item of id if it can still transition. An
// invitation past its deadline whose timer has not fired yet counts as gone.
func (m *Invitations) pendingLocked(id string) (*invitationItem, error) {
	item, ok := m.items[id]
	if !ok || item.inv.Status != InvitationPending || m.now().After(item.inv.ExpiresAt) {
		return nil, apperrors.WithMetadata(apperrors.CodeInvalidOrExpiredInvitation,
			"Invalid or expired invitation", map[string]string{"invitation_id": id})
	}
	return item, nil
}

// Accept marks the invitation accepted and removes both players from the
// queue in the same critical section. start, when given, runs first inside
// that section (typically creating the game); if it fails nothing changes.
func (m *Invitations) Accept(id string, start func(Pairing) error) (Pairing, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	item, err := m.pendingLocked(id)
	if err != nil {
		return Pairing{}, err
	}
	pairing := Pairing{Player1ID: item.inv.From, Player2ID: item.inv.To, MatchedAt: m.now()}
	// A failed start leaves the invitation pending and the queue untouched
	if start != nil {
		if err := start(pairing); err != nil {
			return Pairing{}, err
		}
	}

	item.inv.Status = InvitationAccepted
	item.timer.Stop()
	if m.queue != nil {
		m.queue.Remove(item.inv.From, item.inv.To)
	}
	return pairing, nil
}

// Decline marks the invitation declined and returns it.
func (m *Invitations) Decline(id string) (Invitation, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	item, err := m.pendingLocked(id)
	if err != nil {
		return Invitation{}, err
	}
	item.inv.Status = InvitationDeclined
	item.timer.Stop()
	return item.inv, nil
}

func (m *Invitations) Get(id string) (Invitation, bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	item, ok := m.items[id]
	if !ok {
		return Invitation{}, false
	}
	return item.inv, true
}

// PendingCount returns the number of invitations still awaiting an answer.
func (m *Invitations) PendingCount() int {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	n := 0
	for _, item := range m.items {
		if item.inv.Status == InvitationPending {
			n++
		}
	}
	return n
}

// Cleanup forgets resolved invitations older than the retention window and
// returns how many were removed.
func (m *Invitations) Cleanup(now time.Time) int {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	retention := m.timeout * game_constants.InvitationRetentionFactor
	removed := 0
	for id, item := range m.items {
		if item.inv.Status != InvitationPending && now.Sub(item.inv.CreatedAt) > retention {
			delete(m.items, id)
			removed++
		}
	}
	return removed
}
