package store

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/akolanti/GroundedRAG/internal/rag/memory"
)

// InMemorySessionStore keeps snapshots until they have been idle for ttl.
type InMemorySessionStore struct {
	sessions *expirable.LRU[string, memory.Snapshot]
}

func InitInMemorySessionStore(size int, ttl time.Duration) *InMemorySessionStore {
	return &InMemorySessionStore{
		sessions: expirable.NewLRU[string, memory.Snapshot](size, nil, ttl),
	}
}

func (store *InMemorySessionStore) Load(ctx context.Context, sessionID string) (memory.Snapshot, bool, error) {
	snap, ok := store.sessions.Get(sessionID)
	return snap, ok, nil
}

func (store *InMemorySessionStore) Save(ctx context.Context, snap memory.Snapshot) error {
	store.sessions.Add(snap.SessionID, snap)
	inMemLogger.Debug("Saved session to store", "session", snap.SessionID)
	return nil
}

func (store *InMemorySessionStore) Delete(ctx context.Context, sessionID string) error {
	store.sessions.Remove(sessionID)
	return nil
}
