package duel

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/cfduel/lockoutbot/internal/domain"
	"github.com/cfduel/lockoutbot/internal/store"
)

// Manager is the orchestration entry point for the duel engine. The layer
// above it (invitation handshake, admin commands) supplies two confirmed
// participant identities, a rating band and a duration; the manager verifies
// judge-account bindings, reconciles lock state and constructs the session.
type Manager struct {
	judgeClient JudgeClient
	st          store.Store
	registry    *Registry
	rng         *rand.Rand

	// setupMu serializes session setup only; running sessions are fully
	// parallel and hold no shared lock.
	setupMu sync.Mutex
}

// NewManager creates a duel manager with an injected registry
func NewManager(jc JudgeClient, st store.Store, registry *Registry) *Manager {
	return &Manager{
		judgeClient: jc,
		st:          st,
		registry:    registry,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// StartDuel validates both participants, builds a session and starts it.
// On success the session runs autonomously until a terminal transition.
func (m *Manager) StartDuel(ctx context.Context, cfg domain.DuelConfig, notifier Notifier) (*Session, error) {
	if cfg.PlayerA == cfg.PlayerB {
		return nil, fmt.Errorf("a participant cannot duel themselves")
	}
	if cfg.Duration <= 0 {
		return nil, fmt.Errorf("duel duration must be positive")
	}

	handleA, err := m.resolveHandle(ctx, cfg.PlayerA)
	if err != nil {
		return nil, err
	}
	handleB, err := m.resolveHandle(ctx, cfg.PlayerB)
	if err != nil {
		return nil, err
	}

	m.setupMu.Lock()
	defer m.setupMu.Unlock()

	if _, active := m.registry.Lookup(cfg.PlayerA); active {
		return nil, fmt.Errorf("%w: %s", domain.ErrAlreadyInDuel, cfg.PlayerA)
	}
	if _, active := m.registry.Lookup(cfg.PlayerB); active {
		return nil, fmt.Errorf("%w: %s", domain.ErrAlreadyInDuel, cfg.PlayerB)
	}

	s := newSession(cfg, handleA, handleB, m.judgeClient, notifier, m.registry, m.rng)
	if err := s.start(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// ForceEnd terminates a participant's active session, if any. When no live
// session exists it still clears any orphaned durable lock so the
// participant is never wedged by a crashed session. Reports whether a live
// session was ended.
func (m *Manager) ForceEnd(ctx context.Context, participantID, reason string) (bool, error) {
	if s, ok := m.registry.Lookup(participantID); ok {
		s.ForceEnd(ctx, reason)
		return true, nil
	}
	if err := m.registry.Release(ctx, participantID); err != nil {
		return false, err
	}
	return false, nil
}

// Lookup returns a participant's active session, if any
func (m *Manager) Lookup(participantID string) (*Session, bool) {
	return m.registry.Lookup(participantID)
}

// Status returns a snapshot of a participant's active session, if any
func (m *Manager) Status(participantID string) (Snapshot, bool) {
	s, ok := m.registry.Lookup(participantID)
	if !ok {
		return Snapshot{}, false
	}
	return s.Snapshot(), true
}

// resolveHandle maps a participant identity to their judge handle.
// The binding is written by the account-linking flow; this engine only
// reads it.
func (m *Manager) resolveHandle(ctx context.Context, participantID string) (string, error) {
	handle, found, err := m.st.Get(ctx, store.HandleKey(participantID))
	if err != nil {
		return "", fmt.Errorf("looking up handle for %s: %w", participantID, err)
	}
	if !found {
		return "", fmt.Errorf("%w: %s", domain.ErrHandleNotLinked, participantID)
	}
	return handle, nil
}
