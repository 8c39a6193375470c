package session

import (
	"context"
	"sync"
	"time"

	"skhpc/internal/models"
)

// MemoryRepository is the in-process fallback store. Expiry is checked lazily
// on read; there is no background sweeper.
type MemoryRepository struct {
	sessions   sync.Map
	rateLimits sync.Map
	ttl        time.Duration
}

type sessionEntry struct {
	state     *models.SessionState
	expiresAt time.Time
}

func NewMemoryRepository(ttl time.Duration) *MemoryRepository {
	return &MemoryRepository{
		ttl: ttl,
	}
}

func (r *MemoryRepository) GetSession(ctx context.Context, sessionID string) (*models.SessionState, error) {
	val, ok := r.sessions.Load(sessionID)
	if !ok {
		return nil, nil
	}

	entry := val.(*sessionEntry)
	if r.ttl > 0 && time.Now().After(entry.expiresAt) {
		r.sessions.Delete(sessionID)
		return nil, nil
	}
	return entry.state, nil
}

func (r *MemoryRepository) SaveSession(ctx context.Context, state *models.SessionState) error {
	r.sessions.Store(state.ID, &sessionEntry{
		state:     state,
		expiresAt: time.Now().Add(r.ttl),
	})
	return nil
}

func (r *MemoryRepository) ClearSession(ctx context.Context, sessionID string) error {
	r.sessions.Delete(sessionID)
	return nil
}

type rateLimitEntry struct {
	count     int
	expiresAt time.Time
}

func (r *MemoryRepository) CheckRateLimit(ctx context.Context, sessionID string, limit int, window time.Duration) (bool, error) {
	now := time.Now()
	val, ok := r.rateLimits.Load(sessionID)

	var entry *rateLimitEntry
	if !ok {
		entry = &rateLimitEntry{
			count:     1,
			expiresAt: now.Add(window),
		}
	} else {
		entry = val.(*rateLimitEntry)
		if now.After(entry.expiresAt) {
			entry.count = 1
			entry.expiresAt = now.Add(window)
		} else {
			entry.count++
		}
	}

	r.rateLimits.Store(sessionID, entry)
	return entry.count <= limit, nil
}
