package repository

import (
	"context"
	"errors"
	"time"

	"github.com/patrickmn/go-cache"

	"sheet-qa/internal/session"
)

// DefaultSessionTTL is how long an idle session is kept.
const DefaultSessionTTL = time.Hour

// MemoryStore keeps sessions in process memory and expires idle ones. States
// are copied in and out so callers never share a message log.
type MemoryStore struct {
	cache *cache.Cache
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	// purge expired sessions every ttl/6, at least once a minute
	cleanup := ttl / 6
	if cleanup < time.Minute {
		cleanup = time.Minute
	}
	return &MemoryStore{cache: cache.New(ttl, cleanup)}
}

func (r *MemoryStore) Get(_ context.Context, sessionID string) (*session.State, bool, error) {
	if x, found := r.cache.Get(sessionID); found {
		return x.(*session.State).Clone(), true, nil
	}
	return nil, false, nil
}

func (r *MemoryStore) Save(_ context.Context, s *session.State) error {
	if s == nil || s.ID == "" {
		return errors.New("repository: Save: session ID is required")
	}
	r.cache.Set(s.ID, s.Clone(), cache.DefaultExpiration)
	return nil
}

func (r *MemoryStore) Delete(_ context.Context, sessionID string) error {
	r.cache.Delete(sessionID)
	return nil
}
