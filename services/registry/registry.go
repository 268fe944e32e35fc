// Package registry maps transport connections to stable player ids.
//
// It is the addressing primitive of the server: handlers resolve the sender
// of every inbound event through it, and outbound events to a player are
// routed to whatever connection the player is currently bound to.
package registry

import (
	"sync"
	"time"
)

// PlayerRef binds a player to the connection it is currently using.
type PlayerRef struct {
	PlayerID     string    `json:"playerId"`
	ConnectionID string    `json:"connectionId"`
	JoinedAt     time.Time `json:"joinedAt"`
}

// Registry is a bidirectional connection <-> player map. Both directions
// are updated under one lock so they never disagree.
type Registry struct {
	mutex    sync.RWMutex
	byConn   map[string]*PlayerRef
	byPlayer map[string]*PlayerRef
	now      func() time.Time
}

func New() *Registry {
	return &Registry{
		byConn:   make(map[string]*PlayerRef),
		byPlayer: make(map[string]*PlayerRef),
		now:      time.Now,
	}
}

// Register binds connectionID and playerID, dropping any earlier binding of
// either key (last write wins). previousConn is the connection the player
// was bound to before, if it differs from connectionID.
func (r *Registry) Register(connectionID, playerID string) (ref PlayerRef, previousConn string) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	// The connection was speaking for another player
	if old, ok := r.byConn[connectionID]; ok && old.PlayerID != playerID {
		delete(r.byPlayer, old.PlayerID)
	}

	joinedAt := r.now()
	if old, ok := r.byPlayer[playerID]; ok {
		joinedAt = old.JoinedAt
		if old.ConnectionID != connectionID {
			previousConn = old.ConnectionID
			delete(r.byConn, old.ConnectionID)
		}
	}

	p := &PlayerRef{PlayerID: playerID, ConnectionID: connectionID, JoinedAt: joinedAt}
	r.byConn[connectionID] = p
	r.byPlayer[playerID] = p
	return *p, previousConn
}

// Resolve returns the player bound to connectionID.
func (r *Registry) Resolve(connectionID string) (string, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	p, ok := r.byConn[connectionID]
	if !ok {
		return "", false
	}
	return p.PlayerID, true
}

// ResolveReverse returns the connection playerID is bound to.
func (r *Registry) ResolveReverse(playerID string) (string, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	p, ok := r.byPlayer[playerID]
	if !ok {
		return "", false
	}
	return p.ConnectionID, true
}

// Lookup returns the full binding of playerID.
func (r *Registry) Lookup(playerID string) (PlayerRef, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	p, ok := r.byPlayer[playerID]
	if !ok {
		return PlayerRef{}, false
	}
	return *p, true
}

// Unregister removes both directions of the binding of connectionID and
// returns the player it belonged to.
func (r *Registry) Unregister(connectionID string) (string, bool) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	p, ok := r.byConn[connectionID]
	if !ok {
		return "", false
	}
	delete(r.byConn, connectionID)
	if cur, ok := r.byPlayer[p.PlayerID]; ok && cur.ConnectionID == connectionID {
		delete(r.byPlayer, p.PlayerID)
	}
	return p.PlayerID, true
}

// Count returns the number of registered players.
func (r *Registry) Count() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return len(r.byPlayer)
}
