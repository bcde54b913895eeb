package duel

import (
	"context"

	"github.com/cfduel/lockoutbot/internal/domain"
)

// Notifier delivers duel output to the channel the duel originated from.
// It is a side-effecting sink: the engine expects nothing back beyond the
// success or failure of the call. Implementations wrap unreachable-channel
// conditions in domain.ErrNotifierDelivery so a running session knows to
// force-end itself instead of ticking invisibly.
type Notifier interface {
	// Status sends a plain text message
	Status(ctx context.Context, text string) error
	// Announce sends a structured announcement (title, color, fields)
	Announce(ctx context.Context, a domain.Announcement) error
}

// JudgeClient is the engine-side contract with the external judge
type JudgeClient interface {
	ProblemCatalog(ctx context.Context, tags []string) ([]domain.Problem, error)
	RecentSubmission(ctx context.Context, handle string) (*domain.Submission, error)
}
