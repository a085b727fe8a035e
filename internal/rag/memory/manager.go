package memory

import (
	"context"
	"hash/fnv"
	"sync"

	"github.com/akolanti/GroundedRAG/internal/config"
	"github.com/akolanti/GroundedRAG/pkg/logger_i"
)

// Store persists snapshots. A missing session is reported with found=false, not an error.
type Store interface {
	Load(ctx context.Context, sessionID string) (snap Snapshot, found bool, err error)
	Save(ctx context.Context, snap Snapshot) error
	Delete(ctx context.Context, sessionID string) error
}

// Manager owns every session's memory. Updates to one session are serialized;
// different sessions only share a lock stripe.
type Manager struct {
	store      Store
	maxTurns   int
	maxSources int
	summarizer Summarizer
	locks      [config.SessionLockStripe]sync.Mutex
	logger     *logger_i.Logger
}

func NewManager(store Store, settings config.MemorySettings, summarizer Summarizer) *Manager {
	return &Manager{
		store:      store,
		maxTurns:   settings.MaxTurns,
		maxSources: settings.MaxSources,
		summarizer: summarizer,
		logger:     logger_i.NewLogger("MemoryManager"),
	}
}

func (m *Manager) lockFor(sessionID string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(sessionID))
	return &m.locks[h.Sum32()%config.SessionLockStripe]
}

// Hint returns the current snapshot. Unknown sessions give an empty one.
func (m *Manager) Hint(ctx context.Context, sessionID string) (Snapshot, error) {
	snap, found, err := m.store.Load(ctx, sessionID)
	if err != nil {
		return Snapshot{SessionID: sessionID}, err
	}
	if !found {
		return Snapshot{SessionID: sessionID}, nil
	}
	return Restore(snap, m.maxTurns, m.maxSources, m.summarizer).ContextHint(), nil
}

// Update applies one turn to the session and persists it. A missing session is created.
func (m *Manager) Update(ctx context.Context, sessionID string, question string, answerSummary string, usedSources []string) (Snapshot, error) {
	lock := m.lockFor(sessionID)
	lock.Lock()
	defer lock.Unlock()

	snap, found, err := m.store.Load(ctx, sessionID)
	if err != nil {
		return Snapshot{}, err
	}
	if !found {
		snap = Snapshot{SessionID: sessionID}
	}
	mem := Restore(snap, m.maxTurns, m.maxSources, m.summarizer)
	if err := mem.Update(ctx, question, answerSummary, usedSources); err != nil {
		return Snapshot{}, err
	}
	updated := mem.ContextHint()
	if err := m.store.Save(ctx, updated); err != nil {
		m.logger.FromContext(ctx).Error("Failed saving session", "session", sessionID, "error", err)
		return Snapshot{}, err
	}
	return updated, nil
}

func (m *Manager) SessionExists(ctx context.Context, sessionID string) bool {
	_, found, err := m.store.Load(ctx, sessionID)
	if err != nil {
		m.logger.FromContext(ctx).Error("Failed checking session", "session", sessionID, "error", err)
		return false
	}
	return found
}

func (m *Manager) InitSession(ctx context.Context, sessionID string) error {
	lock := m.lockFor(sessionID)
	lock.Lock()
	defer lock.Unlock()
	return m.store.Save(ctx, Snapshot{SessionID: sessionID})
}

func (m *Manager) Forget(ctx context.Context, sessionID string) error {
	return m.store.Delete(ctx, sessionID)
}
