package duel

import (
	"context"
	"sync"

	"github.com/cfduel/lockoutbot/internal/domain"
)

// fakeJudge is a scriptable JudgeClient
type fakeJudge struct {
	mu         sync.Mutex
	catalog    []domain.Problem
	catalogErr error
	subs       map[string]*domain.Submission
	subErrs    map[string]error
}

func newFakeJudge(catalog []domain.Problem) *fakeJudge {
	return &fakeJudge{
		catalog: catalog,
		subs:    make(map[string]*domain.Submission),
		subErrs: make(map[string]error),
	}
}

func (f *fakeJudge) ProblemCatalog(_ context.Context, _ []string) ([]domain.Problem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.catalogErr != nil {
		return nil, f.catalogErr
	}
	out := make([]domain.Problem, len(f.catalog))
	copy(out, f.catalog)
	return out, nil
}

func (f *fakeJudge) RecentSubmission(_ context.Context, handle string) (*domain.Submission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.subErrs[handle]; err != nil {
		return nil, err
	}
	return f.subs[handle], nil
}

func (f *fakeJudge) setSubmission(handle string, sub *domain.Submission) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subs[handle] = sub
}

func (f *fakeJudge) setSubmissionErr(handle string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subErrs[handle] = err
}

// fakeNotifier records deliveries and can be made to fail
type fakeNotifier struct {
	mu            sync.Mutex
	statuses      []string
	announcements []domain.Announcement
	statusErr     error
	announceErr   error
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{}
}

func (f *fakeNotifier) Status(_ context.Context, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.statusErr != nil {
		return f.statusErr
	}
	f.statuses = append(f.statuses, text)
	return nil
}

func (f *fakeNotifier) Announce(_ context.Context, a domain.Announcement) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.announceErr != nil {
		return f.announceErr
	}
	f.announcements = append(f.announcements, a)
	return nil
}

func (f *fakeNotifier) setAnnounceErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.announceErr = err
}

func (f *fakeNotifier) allStatuses() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.statuses))
	copy(out, f.statuses)
	return out
}

func (f *fakeNotifier) allAnnouncements() []domain.Announcement {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Announcement, len(f.announcements))
	copy(out, f.announcements)
	return out
}
