package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/akolanti/GroundedRAG/internal/config"
	"github.com/akolanti/GroundedRAG/internal/data/redisStore"
	"github.com/akolanti/GroundedRAG/internal/rag/memory"
	"github.com/akolanti/GroundedRAG/pkg/logger_i"
)

// RedisSessionStore keeps one JSON snapshot per session; every save renews the TTL.
type RedisSessionStore struct {
	store  *redisStore.Store
	ttl    time.Duration
	logger *logger_i.Logger
}

// GetRedisSessionStore returns nil when redis is unreachable.
func GetRedisSessionStore(ctx context.Context, opts redisStore.Options, ttl time.Duration) *RedisSessionStore {
	s := redisStore.GetRedisStore(ctx, opts, config.RedisSessionStore)
	if s == nil {
		return nil
	}
	return NewRedisSessionStore(s, ttl)
}

func NewRedisSessionStore(store *redisStore.Store, ttl time.Duration) *RedisSessionStore {
	return &RedisSessionStore{
		store:  store,
		ttl:    ttl,
		logger: logger_i.NewLogger("SessionStore"),
	}
}

func sessionKey(id string) string {
	return config.RedisSessionKey + id
}

func (s *RedisSessionStore) Load(ctx context.Context, sessionID string) (memory.Snapshot, bool, error) {
	var snap memory.Snapshot
	val, err := s.store.Get(ctx, sessionKey(sessionID))
	if s.store.IsNil(err) {
		return snap, false, nil
	} else if err != nil {
		s.logger.FromContext(ctx).Error("Error reading session", "session", sessionID, "error", err)
		return snap, false, err
	}
	if err := json.Unmarshal([]byte(val), &snap); err != nil {
		return snap, false, err
	}
	return snap, true, nil
}

func (s *RedisSessionStore) Save(ctx context.Context, snap memory.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	if err := s.store.Set(ctx, sessionKey(snap.SessionID), data, s.ttl); err != nil {
		s.logger.FromContext(ctx).Error("Error saving session", "session", snap.SessionID, "error", err)
		return err
	}
	s.logger.FromContext(ctx).Debug("Saved session", "session", snap.SessionID)
	return nil
}

func (s *RedisSessionStore) Delete(ctx context.Context, sessionID string) error {
	return s.store.Del(ctx, sessionKey(sessionID))
}
