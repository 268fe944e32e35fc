package sync

import (
	"Arena/services/game"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
)

// Store persists finished games.
type Store interface {
	SaveGameResult(ctx context.Context, summary game.Summary) error
}

// Cache keeps recent summaries for quick reads.
type Cache interface {
	CacheGameSummary(ctx context.Context, summary game.Summary) error
}

// Publisher announces finished games. *nats.Conn satisfies it.
type Publisher interface {
	Publish(subject string, data []byte) error
}

type Option func(*SyncManager)

func WithStore(store Store) Option {
	return func(sm *SyncManager) { sm.store = store }
}

func WithCache(cache Cache) Option {
	return func(sm *SyncManager) { sm.cache = cache }
}

func WithPublisher(publisher Publisher, subject string) Option {
	return func(sm *SyncManager) {
		sm.publisher = publisher
		sm.subject = subject
	}
}

// SyncManager writes each finished game to whichever backends are configured.
// It implements game.SummarySink.
type SyncManager struct {
	store     Store
	cache     Cache
	publisher Publisher
	subject   string
}

// NewSyncManager creates a new instance of the synchronization manager
func NewSyncManager(opts ...Option) *SyncManager {
	sm := &SyncManager{}
	for _, opt := range opts {
		opt(sm)
	}
	return sm
}

// Enabled reports whether any backend is configured.
func (sm *SyncManager) Enabled() bool {
	return sm.store != nil || sm.cache != nil || sm.publisher != nil
}

// SaveGameSummary stores, caches and publishes summary. A failing backend does
// not stop the others; all failures are returned joined.
func (sm *SyncManager) SaveGameSummary(ctx context.Context, summary game.Summary) error {
	var errs []error

	if sm.store != nil {
		if err := sm.store.SaveGameResult(ctx, summary); err != nil {
			errs = append(errs, fmt.Errorf("error saving game result in PostgreSQL: %w", err))
		}
	}

	if sm.cache != nil {
		if err := sm.cache.CacheGameSummary(ctx, summary); err != nil {
			errs = append(errs, fmt.Errorf("error caching game summary in Redis: %w", err))
		}
	}

	if sm.publisher != nil {
		data, err := json.Marshal(summary)
		if err != nil {
			errs = append(errs, fmt.Errorf("error marshaling game summary: %w", err))
		} else if err := sm.publisher.Publish(sm.subject, data); err != nil {
			errs = append(errs, fmt.Errorf("error publishing game summary to %s: %w", sm.subject, err))
		}
	}

	if len(errs) == 0 {
		log.Printf("[SYNC] Game %s synced (winner=%s, rounds=%d)", summary.SessionID, summary.Winner, summary.Rounds)
	}
	return errors.Join(errs...)
}
