package domain

import "errors"

// Error message string constants - single source of truth for error messages
// Use these in assert.Contains() checks when testing error messages
const (
	// Judge errors
	ErrMsgJudgeUnavailable = "judge unavailable"

	// Duel setup errors
	ErrMsgInsufficientProblemPool = "insufficient problem pool"
	ErrMsgAlreadyInDuel           = "participant already in a duel"
	ErrMsgHandleNotLinked         = "handle not linked"

	// Notifier errors
	ErrMsgNotifierDelivery = "notifier delivery failed"

	// Store errors
	ErrMsgStoreUnavailable = "store unavailable"
)

// Common domain errors
// These errors should be used consistently across all layers of the application.
// Wrap these errors with fmt.Errorf("%w: %s", domain.ErrXxx, details) for additional context.
var (
	// ErrJudgeUnavailable covers upstream judge transport failures, non-2xx
	// responses, malformed bodies and judge-reported FAILED statuses. Callers
	// skip the poll cycle or abort setup; they never crash the session.
	ErrJudgeUnavailable = errors.New(ErrMsgJudgeUnavailable)

	// ErrInsufficientProblemPool means fewer than PoolSize problems qualified
	// for the requested rating band. Fatal to setup; the session never starts.
	ErrInsufficientProblemPool = errors.New(ErrMsgInsufficientProblemPool)

	// ErrAlreadyInDuel means a participant's lock is held by a live session.
	ErrAlreadyInDuel = errors.New(ErrMsgAlreadyInDuel)

	// ErrHandleNotLinked means a participant has no judge-account binding.
	ErrHandleNotLinked = errors.New(ErrMsgHandleNotLinked)

	// ErrNotifierDelivery means the notification channel is gone or
	// unreachable. A running session reacts by force-ending itself.
	ErrNotifierDelivery = errors.New(ErrMsgNotifierDelivery)

	// ErrStoreUnavailable wraps durable key-value store failures.
	ErrStoreUnavailable = errors.New(ErrMsgStoreUnavailable)
)
