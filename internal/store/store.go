// Package store provides the durable key-value boundary used by the duel
// engine. The engine only ever needs get/set/delete with string keys; the
// backing implementation (Postgres in production, memory in tests) is opaque
// to callers.
package store

import "context"

// Key conventions used by the duel engine.
const (
	lockKeyPrefix   = "lock:"
	handleKeyPrefix = "handle:"
)

// LockKey returns the durable in-duel flag key for a participant
func LockKey(participantID string) string {
	return lockKeyPrefix + participantID
}

// HandleKey returns the judge-account binding key for a participant
func HandleKey(participantID string) string {
	return handleKeyPrefix + participantID
}

// LockValue is the value written under a lock key while a participant is
// in a duel or a pending invitation.
const LockValue = "1"

// Store is an async key-value map with string keys.
// Get reports found=false for missing keys rather than an error so callers
// can distinguish "no data yet" from "store broken".
type Store interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}
