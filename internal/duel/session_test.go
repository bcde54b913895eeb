package duel

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cfduel/lockoutbot/internal/domain"
	"github.com/cfduel/lockoutbot/internal/store"
)

// testCatalog returns five qualifying problems rated 800..1200 plus entries
// that must be filtered out: special-tagged, untagged, unrated and
// out-of-band problems.
func testCatalog() []domain.Problem {
	return []domain.Problem{
		{ContestID: 103, Index: "C", Name: "Mid", Rating: 1000, Tags: []string{"dp"}},
		{ContestID: 101, Index: "A", Name: "Easy", Rating: 800, Tags: []string{"math"}},
		{ContestID: 105, Index: "E", Name: "Peak", Rating: 1200, Tags: []string{"trees"}},
		{ContestID: 102, Index: "B", Name: "Warm", Rating: 900, Tags: []string{"greedy"}},
		{ContestID: 104, Index: "D", Name: "Hard", Rating: 1100, Tags: []string{"graphs"}},
		{ContestID: 106, Index: "F", Name: "Special", Rating: 1000, Tags: []string{"*special"}},
		{ContestID: 107, Index: "G", Name: "Untagged", Rating: 1000, Tags: nil},
		{ContestID: 108, Index: "H", Name: "Unrated", Rating: 0, Tags: []string{"math"}},
		{ContestID: 109, Index: "I", Name: "TooHigh", Rating: 2000, Tags: []string{"math"}},
		{ContestID: 110, Index: "J", Name: "TooLow", Rating: 700, Tags: []string{"math"}},
	}
}

func testConfig(duration time.Duration) domain.DuelConfig {
	return domain.DuelConfig{
		PlayerA:  "user-a",
		PlayerB:  "user-b",
		Band:     domain.RatingBand{Min: 800, Max: 1200},
		Duration: duration,
	}
}

// startTestSession starts a session and immediately stops its background
// loop so tests can drive ticks by hand.
func startTestSession(t *testing.T, fj *fakeJudge, fn *fakeNotifier, st store.Store, duration time.Duration) (*Session, *Registry) {
	t.Helper()
	reg := NewRegistry(st)
	s := newSession(testConfig(duration), "alice", "bob", fj, fn, reg, rand.New(rand.NewSource(1)))
	require.NoError(t, s.start(context.Background()))
	s.loop.stop()
	s.loop.wait()
	return s, reg
}

func tickN(s *Session, n int) {
	for i := 0; i < n; i++ {
		s.tick(context.Background())
	}
}

func acceptedSub(id int64, contestID int, index string) *domain.Submission {
	return &domain.Submission{ID: id, ContestID: contestID, Index: index, Verdict: domain.VerdictAccepted}
}

func TestPreparePool_FiveSortedDistinctProblems(t *testing.T) {
	st := store.NewMemory()
	s, reg := startTestSession(t, newFakeJudge(testCatalog()), newFakeNotifier(), st, 10*time.Minute)

	snap := s.Snapshot()
	require.Len(t, snap.Problems, domain.PoolSize)
	assert.Equal(t, domain.DuelStateRunning, snap.State)

	seen := make(map[string]bool)
	for i, p := range snap.Problems {
		assert.Equal(t, (i+1)*domain.PointsPerRank, p.Points, "points are rank*100")
		assert.False(t, seen[p.Key()], "problems are distinct")
		seen[p.Key()] = true
		if i > 0 {
			assert.GreaterOrEqual(t, p.Rating, snap.Problems[i-1].Rating, "sorted ascending by rating")
		}
		assert.True(t, p.Rating >= 800 && p.Rating <= 1200)
	}
	assert.Equal(t, []int{100, 200, 300, 400, 500}, []int{
		snap.Problems[0].Points, snap.Problems[1].Points, snap.Problems[2].Points,
		snap.Problems[3].Points, snap.Problems[4].Points,
	})

	// Both durable locks held, both participants resolvable to the session
	ctx := context.Background()
	for _, p := range []string{"user-a", "user-b"} {
		v, found, err := st.Get(ctx, store.LockKey(p))
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, store.LockValue, v)

		got, ok := reg.Lookup(p)
		require.True(t, ok)
		assert.Same(t, s, got)
	}
}

func TestPreparePool_InsufficientProblems(t *testing.T) {
	catalog := testCatalog()[:3] // only three qualify
	st := store.NewMemory()
	reg := NewRegistry(st)
	fn := newFakeNotifier()
	s := newSession(testConfig(10*time.Minute), "alice", "bob", newFakeJudge(catalog), fn, reg, rand.New(rand.NewSource(1)))

	err := s.start(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInsufficientProblemPool))

	// No lock survives a setup failure and the session never ran
	_, found, _ := st.Get(context.Background(), store.LockKey("user-a"))
	assert.False(t, found)
	_, found, _ = st.Get(context.Background(), store.LockKey("user-b"))
	assert.False(t, found)
	assert.Equal(t, domain.DuelStateEnded, s.Snapshot().State)

	// One final notification went out
	require.Len(t, fn.allStatuses(), 1)
	assert.Equal(t, ReasonSetupPoolSize, fn.allStatuses()[0])
}

func TestPreparePool_JudgeUnavailableAbortsSetup(t *testing.T) {
	fj := newFakeJudge(nil)
	fj.catalogErr = fmt.Errorf("%w: connection refused", domain.ErrJudgeUnavailable)

	st := store.NewMemory()
	fn := newFakeNotifier()
	s := newSession(testConfig(10*time.Minute), "alice", "bob", fj, fn, NewRegistry(st), rand.New(rand.NewSource(1)))

	err := s.start(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrJudgeUnavailable))

	_, found, _ := st.Get(context.Background(), store.LockKey("user-a"))
	assert.False(t, found)
	require.Len(t, fn.allStatuses(), 1)
	assert.Equal(t, ReasonSetupJudge, fn.allStatuses()[0])
}

func TestTick_CountdownReachesZero(t *testing.T) {
	st := store.NewMemory()
	fn := newFakeNotifier()
	s, _ := startTestSession(t, newFakeJudge(testCatalog()), fn, st, 3*time.Second)

	ctx := context.Background()
	assert.False(t, s.tick(ctx))
	assert.Equal(t, 2, s.Snapshot().Remaining)
	assert.False(t, s.tick(ctx))
	assert.Equal(t, 1, s.Snapshot().Remaining)

	// Third tick reaches zero: terminal, exactly once
	assert.True(t, s.tick(ctx))
	snap := s.Snapshot()
	assert.Equal(t, domain.DuelStateEnded, snap.State)
	assert.Equal(t, 0, snap.Remaining)

	// Final announcement: 0-0, winner defaults to the first participant
	anns := fn.allAnnouncements()
	require.NotEmpty(t, anns)
	final := anns[len(anns)-1]
	assert.Equal(t, TitleDuelEnded, final.Title)
	require.Len(t, final.Fields, 3)
	assert.Equal(t, "0", final.Fields[0].Value)
	assert.Equal(t, "0", final.Fields[1].Value)
	assert.Equal(t, "alice", final.Fields[2].Value)

	// Locks released on the natural path
	_, found, _ := st.Get(ctx, store.LockKey("user-a"))
	assert.False(t, found)

	// A late tick is a no-op terminal and announces nothing new
	before := len(fn.allAnnouncements())
	assert.True(t, s.tick(ctx))
	assert.Equal(t, before, len(fn.allAnnouncements()))
}

func TestScenario_SubmissionScoredOnceAtTick300(t *testing.T) {
	fj := newFakeJudge(testCatalog())
	fn := newFakeNotifier()
	st := store.NewMemory()
	s, _ := startTestSession(t, fj, fn, st, 10*time.Minute)

	// Run the duel down to 301 seconds remaining, then surface an accepted
	// submission for the 1000-rated problem with unseen id 42.
	tickN(s, 299)
	require.Equal(t, 301, s.Snapshot().Remaining)
	fj.setSubmission("alice", acceptedSub(42, 103, "C"))

	assert.False(t, s.tick(context.Background()))

	snap := s.Snapshot()
	assert.Equal(t, 300, snap.Remaining)
	assert.Equal(t, 300, snap.ScoreA, "1000-rated problem is rank 3, worth 300")
	assert.Equal(t, 0, snap.ScoreB)
	assert.Len(t, snap.Problems, 4)

	s.mu.Lock()
	_, recorded := s.ledger[42]
	s.mu.Unlock()
	assert.True(t, recorded, "ledger records submission id 42")
}

func TestDedup_SameSubmissionNeverScoresTwice(t *testing.T) {
	fj := newFakeJudge(testCatalog())
	st := store.NewMemory()
	s, _ := startTestSession(t, fj, newFakeNotifier(), st, 10*time.Minute)

	fj.setSubmission("alice", acceptedSub(7, 101, "A"))

	// Ten ticks cover two full poll cycles observing the same submission
	tickN(s, 10)

	snap := s.Snapshot()
	assert.Equal(t, 100, snap.ScoreA, "submission id 7 contributes exactly once")
	assert.Len(t, snap.Problems, 4)
}

func TestSimultaneousSolve_SameProblem(t *testing.T) {
	fj := newFakeJudge(testCatalog())
	fn := newFakeNotifier()
	st := store.NewMemory()
	s, _ := startTestSession(t, fj, fn, st, 10*time.Minute)

	// Different submission ids, same pool problem, same cycle
	fj.setSubmission("alice", acceptedSub(9, 103, "C"))
	fj.setSubmission("bob", acceptedSub(10, 103, "C"))

	tickN(s, 5)

	snap := s.Snapshot()
	assert.Equal(t, 300, snap.ScoreA)
	assert.Equal(t, 300, snap.ScoreB)
	assert.Len(t, snap.Problems, 4, "problem removed once, not twice")
	for _, p := range snap.Problems {
		assert.NotEqual(t, "Mid", p.Name)
	}
}

func TestSimultaneousSolve_DifferentProblemsIndexShift(t *testing.T) {
	fj := newFakeJudge(testCatalog())
	st := store.NewMemory()
	s, _ := startTestSession(t, fj, newFakeNotifier(), st, 10*time.Minute)

	// A solves rank 2 (900, index 1), B solves rank 4 (1100, index 3).
	// B's removal index must shift down after A's removal.
	fj.setSubmission("alice", acceptedSub(11, 102, "B"))
	fj.setSubmission("bob", acceptedSub(12, 104, "D"))

	tickN(s, 5)

	snap := s.Snapshot()
	assert.Equal(t, 200, snap.ScoreA)
	assert.Equal(t, 400, snap.ScoreB)
	require.Len(t, snap.Problems, 3)
	assert.Equal(t, []string{"Easy", "Mid", "Peak"}, []string{
		snap.Problems[0].Name, snap.Problems[1].Name, snap.Problems[2].Name,
	})
}

func TestSimultaneousSolve_DifferentProblemsNoShiftNeeded(t *testing.T) {
	fj := newFakeJudge(testCatalog())
	st := store.NewMemory()
	s, _ := startTestSession(t, fj, newFakeNotifier(), st, 10*time.Minute)

	// B's solve sits below A's in the ordered pool: no shift applies
	fj.setSubmission("alice", acceptedSub(13, 104, "D"))
	fj.setSubmission("bob", acceptedSub(14, 102, "B"))

	tickN(s, 5)

	snap := s.Snapshot()
	assert.Equal(t, 400, snap.ScoreA)
	assert.Equal(t, 200, snap.ScoreB)
	require.Len(t, snap.Problems, 3)
	assert.Equal(t, []string{"Easy", "Mid", "Peak"}, []string{
		snap.Problems[0].Name, snap.Problems[1].Name, snap.Problems[2].Name,
	})
}

func TestPollFaultIsolation(t *testing.T) {
	fj := newFakeJudge(testCatalog())
	st := store.NewMemory()
	s, _ := startTestSession(t, fj, newFakeNotifier(), st, 10*time.Minute)

	// A's poll fails; B's accepted solve must still score
	fj.setSubmissionErr("alice", fmt.Errorf("%w: timeout", domain.ErrJudgeUnavailable))
	fj.setSubmission("bob", acceptedSub(15, 101, "A"))

	tickN(s, 5)

	snap := s.Snapshot()
	assert.Equal(t, 0, snap.ScoreA)
	assert.Equal(t, 100, snap.ScoreB)
	assert.Equal(t, domain.DuelStateRunning, snap.State, "one participant's poll fault never ends the duel")
}

func TestIgnoredSubmissions(t *testing.T) {
	fj := newFakeJudge(testCatalog())
	st := store.NewMemory()
	s, _ := startTestSession(t, fj, newFakeNotifier(), st, 10*time.Minute)

	// Wrong verdict
	fj.setSubmission("alice", &domain.Submission{ID: 20, ContestID: 101, Index: "A", Verdict: "WRONG_ANSWER"})
	// Accepted, but not a pool problem
	fj.setSubmission("bob", acceptedSub(21, 999, "Z"))

	tickN(s, 5)

	snap := s.Snapshot()
	assert.Equal(t, 0, snap.ScoreA)
	assert.Equal(t, 0, snap.ScoreB)
	assert.Len(t, snap.Problems, 5)

	s.mu.Lock()
	ledgerLen := len(s.ledger)
	s.mu.Unlock()
	assert.Zero(t, ledgerLen, "only scored submissions enter the ledger")
}

func TestPoolExhaustion_EndsSession(t *testing.T) {
	fj := newFakeJudge(testCatalog())
	fn := newFakeNotifier()
	st := store.NewMemory()
	s, _ := startTestSession(t, fj, fn, st, time.Hour)

	// Solve all five problems, one per poll cycle
	pool := s.Snapshot().Problems
	for i, p := range pool {
		fj.setSubmission("alice", acceptedSub(int64(100+i), p.ContestID, p.Index))
		tickN(s, 5)
	}
	assert.Empty(t, s.Snapshot().Problems)
	assert.Equal(t, 1500, s.Snapshot().ScoreA)

	// Next tick notices the empty pool and concludes
	assert.True(t, s.tick(context.Background()))
	snap := s.Snapshot()
	assert.Equal(t, domain.DuelStateEnded, snap.State)

	anns := fn.allAnnouncements()
	require.NotEmpty(t, anns)
	final := anns[len(anns)-1]
	assert.Equal(t, "1500", final.Fields[0].Value)
	assert.Equal(t, "alice", final.Fields[2].Value)
}

func TestForceEnd_ReleasesLocksAndAnnounces(t *testing.T) {
	fj := newFakeJudge(testCatalog())
	fn := newFakeNotifier()
	st := store.NewMemory()
	s, reg := startTestSession(t, fj, fn, st, 10*time.Minute)

	s.ForceEnd(context.Background(), "")

	snap := s.Snapshot()
	assert.Equal(t, domain.DuelStateEnded, snap.State)

	anns := fn.allAnnouncements()
	require.NotEmpty(t, anns)
	assert.Equal(t, ReasonForceEnded, anns[len(anns)-1].Title)

	_, found, _ := st.Get(context.Background(), store.LockKey("user-a"))
	assert.False(t, found)
	_, ok := reg.Lookup("user-a")
	assert.False(t, ok)
}

func TestForceEnd_IdempotentAfterNaturalEnd(t *testing.T) {
	fj := newFakeJudge(testCatalog())
	fn := newFakeNotifier()
	st := store.NewMemory()
	s, _ := startTestSession(t, fj, fn, st, time.Second)

	assert.True(t, s.tick(context.Background())) // natural expiry
	announced := len(fn.allAnnouncements())

	// Forced termination after the natural transition already released
	// everything: a no-op, never an error
	s.ForceEnd(context.Background(), "admin override")
	s.ForceEnd(context.Background(), "admin override")

	assert.Equal(t, announced, len(fn.allAnnouncements()))
	_, found, _ := st.Get(context.Background(), store.LockKey("user-b"))
	assert.False(t, found)
}

func TestNotifierDeliveryFailure_ForcesTermination(t *testing.T) {
	fj := newFakeJudge(testCatalog())
	fn := newFakeNotifier()
	st := store.NewMemory()
	s, _ := startTestSession(t, fj, fn, st, 10*time.Minute)

	fn.setAnnounceErr(fmt.Errorf("%w: channel deleted", domain.ErrNotifierDelivery))

	// Next poll-cadence tick fails to broadcast and must stop the session
	// rather than leave it ticking invisibly
	tickN(s, 5)

	snap := s.Snapshot()
	assert.Equal(t, domain.DuelStateEnded, snap.State)
	_, found, _ := st.Get(context.Background(), store.LockKey("user-a"))
	assert.False(t, found)
}

func TestBroadcastStatus_Content(t *testing.T) {
	fj := newFakeJudge(testCatalog())
	fn := newFakeNotifier()
	st := store.NewMemory()
	startTestSession(t, fj, fn, st, 10*time.Minute)

	// The start broadcast is recorded before ticks begin
	anns := fn.allAnnouncements()
	require.NotEmpty(t, anns)
	status := anns[0]
	assert.Contains(t, status.Title, "alice")
	assert.Contains(t, status.Title, "bob")
	require.Len(t, status.Fields, 3)
	assert.Equal(t, "Problems", status.Fields[0].Name)
	assert.Contains(t, status.Fields[1].Value, "Difficulty: 800")
	assert.Contains(t, status.Fields[1].Value, "Score: 500")
	assert.Equal(t, "0 hours 10 minutes 0 seconds", status.Fields[2].Value)
}

// gateNotifier blocks its first Announce until released so a concurrent
// caller can act while the opening broadcast is still in flight
type gateNotifier struct {
	*fakeNotifier
	first   int32
	entered chan struct{}
	release chan struct{}
}

func newGateNotifier() *gateNotifier {
	return &gateNotifier{
		fakeNotifier: newFakeNotifier(),
		entered:      make(chan struct{}),
		release:      make(chan struct{}),
	}
}

func (g *gateNotifier) Announce(ctx context.Context, a domain.Announcement) error {
	if atomic.CompareAndSwapInt32(&g.first, 0, 1) {
		close(g.entered)
		<-g.release
	}
	return g.fakeNotifier.Announce(ctx, a)
}

func TestForceEnd_DuringOpeningBroadcast(t *testing.T) {
	fj := newFakeJudge(testCatalog())
	gn := newGateNotifier()
	st := store.NewMemory()
	reg := NewRegistry(st)
	s := newSession(testConfig(10*time.Minute), "alice", "bob", fj, gn, reg, rand.New(rand.NewSource(1)))

	errCh := make(chan error, 1)
	go func() { errCh <- s.start(context.Background()) }()
	<-gn.entered

	// Both players are already bound, so an admin can force-end the duel
	// before start has armed the countdown
	live, ok := reg.Lookup("user-a")
	require.True(t, ok)
	live.ForceEnd(context.Background(), "admin override")

	close(gn.release)
	require.NoError(t, <-errCh)
	s.loop.wait()

	snap := s.Snapshot()
	assert.Equal(t, domain.DuelStateEnded, snap.State)
	assert.Equal(t, 600, snap.Remaining, "countdown never ran")
	_, found, _ := st.Get(context.Background(), store.LockKey("user-a"))
	assert.False(t, found)
}

func TestStart_OpeningBroadcastDeliveryFailure(t *testing.T) {
	fj := newFakeJudge(testCatalog())
	fn := newFakeNotifier()
	fn.setAnnounceErr(fmt.Errorf("%w: channel deleted", domain.ErrNotifierDelivery))
	st := store.NewMemory()
	reg := NewRegistry(st)
	s := newSession(testConfig(10*time.Minute), "alice", "bob", fj, fn, reg, rand.New(rand.NewSource(1)))

	err := s.start(context.Background())
	require.ErrorIs(t, err, domain.ErrNotifierDelivery)

	// A duel nobody can see must not keep running invisibly
	assert.Equal(t, domain.DuelStateEnded, s.Snapshot().State)
	for _, p := range []string{"user-a", "user-b"} {
		_, found, getErr := st.Get(context.Background(), store.LockKey(p))
		require.NoError(t, getErr)
		assert.False(t, found, p)
	}
	_, ok := reg.Lookup("user-a")
	assert.False(t, ok)
}

func TestStart_SetupFailureKeepsOpponentsLiveLock(t *testing.T) {
	fj := newFakeJudge(testCatalog())
	st := store.NewMemory()
	reg := NewRegistry(st)

	// user-b is already mid-duel with someone else
	otherCfg := domain.DuelConfig{
		PlayerA:  "user-b",
		PlayerB:  "user-c",
		Band:     domain.RatingBand{Min: 800, Max: 1200},
		Duration: 10 * time.Minute,
	}
	other := newSession(otherCfg, "bob", "carol", fj, newFakeNotifier(), reg, rand.New(rand.NewSource(2)))
	require.NoError(t, other.start(context.Background()))
	other.loop.stop()
	other.loop.wait()

	s := newSession(testConfig(10*time.Minute), "alice", "bob", fj, newFakeNotifier(), reg, rand.New(rand.NewSource(1)))
	err := s.start(context.Background())
	require.ErrorIs(t, err, domain.ErrAlreadyInDuel)

	// The challenger's lock is rolled back; the running duel keeps its own
	_, found, getErr := st.Get(context.Background(), store.LockKey("user-a"))
	require.NoError(t, getErr)
	assert.False(t, found)
	_, found, getErr = st.Get(context.Background(), store.LockKey("user-b"))
	require.NoError(t, getErr)
	assert.True(t, found)
	live, ok := reg.Lookup("user-b")
	require.True(t, ok)
	assert.Same(t, other, live)
}
