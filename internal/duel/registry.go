package duel

import (
	"context"
	"fmt"
	"sync"

	"github.com/cfduel/lockoutbot/internal/logger"
	"github.com/cfduel/lockoutbot/internal/store"
)

// Registry tracks which participants are currently dueling. Lock state is
// duplicated across an in-memory map (fast lookup, maps a participant to
// their live session) and a durable store record (survives restarts). The
// two are reconciled whenever a lock is acquired: a durable flag with no
// matching in-memory session is an orphan from a crashed session and is
// cleared silently before re-acquiring.
//
// The registry is injected into session construction by the orchestration
// layer; there is no process-wide singleton.
type Registry struct {
	store store.Store

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewRegistry creates a registry backed by the given durable store
func NewRegistry(st store.Store) *Registry {
	return &Registry{
		store:    st,
		sessions: make(map[string]*Session),
	}
}

// Acquire takes the duel lock for a participant. Returns false when the
// participant already has a live session. Stale durable locks are
// self-healed here, not reported to the caller.
func (r *Registry) Acquire(ctx context.Context, participantID string) (bool, error) {
	r.mu.Lock()
	_, active := r.sessions[participantID]
	r.mu.Unlock()

	if active {
		return false, nil
	}

	key := store.LockKey(participantID)
	_, found, err := r.store.Get(ctx, key)
	if err != nil {
		return false, fmt.Errorf("checking duel lock for %s: %w", participantID, err)
	}
	if found {
		// Durable flag with no in-memory session: orphan from a crashed
		// session. Clear and re-acquire cleanly.
		logger.FromContext(ctx).Warn(logMsgStaleLockCleared, "participant", participantID)
		if err := r.store.Delete(ctx, key); err != nil {
			return false, fmt.Errorf("clearing stale duel lock for %s: %w", participantID, err)
		}
	}

	if err := r.store.Set(ctx, key, store.LockValue); err != nil {
		return false, fmt.Errorf("acquiring duel lock for %s: %w", participantID, err)
	}
	return true, nil
}

// Release drops a participant's lock and session binding. Releasing an
// already-released lock is a no-op: a session may be force-ended
// concurrently with its own natural expiry tick.
func (r *Registry) Release(ctx context.Context, participantID string) error {
	r.mu.Lock()
	delete(r.sessions, participantID)
	r.mu.Unlock()

	if err := r.store.Delete(ctx, store.LockKey(participantID)); err != nil {
		return fmt.Errorf("releasing duel lock for %s: %w", participantID, err)
	}
	return nil
}

// Lookup returns the participant's active session, if any
func (r *Registry) Lookup(participantID string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[participantID]
	return s, ok
}

// bind associates a participant with their running session
func (r *Registry) bind(participantID string, s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[participantID] = s
}
