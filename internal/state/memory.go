package state

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
)

// MemoryStore keeps state in process. Abandoned flows expire after ttl.
type MemoryStore struct {
	cache *cache.Cache
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &MemoryStore{
		cache: cache.New(ttl, ttl/4),
	}
}

func (s *MemoryStore) Load(_ context.Context, key Key) (State, error) {
	if x, found := s.cache.Get(key.String()); found {
		return x.(State), nil
	}
	return State{}, nil
}

func (s *MemoryStore) Save(_ context.Context, key Key, st State) error {
	s.cache.Set(key.String(), st, cache.DefaultExpiration)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key Key) error {
	s.cache.Delete(key.String())
	return nil
}
