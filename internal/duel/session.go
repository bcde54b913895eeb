package duel

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/cfduel/lockoutbot/internal/domain"
	"github.com/cfduel/lockoutbot/internal/logger"
	"github.com/cfduel/lockoutbot/internal/metrics"
)

// Session is one paired duel: it owns the problem pool, both scores, the
// countdown and the submission-dedup ledger. It runs autonomously on a
// once-per-second tick until time expiry, pool exhaustion or a forced
// termination, and releases both participants' locks on every exit path.
//
// Ticks are strictly sequential within a session; the only state shared
// across sessions is the judge client's response cache, which guards itself.
type Session struct {
	ID uuid.UUID

	cfg     domain.DuelConfig
	handleA string
	handleB string

	judgeClient JudgeClient
	notifier    Notifier
	registry    *Registry
	rng         *rand.Rand

	baseCtx context.Context

	mu        sync.Mutex
	state     domain.DuelState
	remaining int // seconds
	problems  []domain.Problem
	scoreA    int
	scoreB    int
	ledger    map[int64]struct{} // submission IDs already scored

	loop     *repeater
	terminal sync.Once
}

// Snapshot is a point-in-time copy of session state for status queries
type Snapshot struct {
	State     domain.DuelState
	Remaining int
	ScoreA    int
	ScoreB    int
	Problems  []domain.Problem
}

func newSession(cfg domain.DuelConfig, handleA, handleB string, jc JudgeClient, n Notifier, reg *Registry, rng *rand.Rand) *Session {
	id := uuid.New()
	return &Session{
		ID:          id,
		cfg:         cfg,
		handleA:     handleA,
		handleB:     handleB,
		judgeClient: jc,
		notifier:    n,
		registry:    reg,
		rng:         rng,
		baseCtx:     logger.WithRequestID(context.Background(), id.String()),
		state:       domain.DuelStatePreparing,
		remaining:   int(cfg.Duration.Seconds()),
		ledger:      make(map[int64]struct{}),
	}
}

// Players returns both participant identities
func (s *Session) Players() (string, string) {
	return s.cfg.PlayerA, s.cfg.PlayerB
}

// Snapshot returns a copy of the session's current state
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	problems := make([]domain.Problem, len(s.problems))
	copy(problems, s.problems)
	return Snapshot{
		State:     s.state,
		Remaining: s.remaining,
		ScoreA:    s.scoreA,
		ScoreB:    s.scoreB,
		Problems:  problems,
	}
}

// start builds the problem pool, acquires both durable locks and launches
// the tick loop. Any setup failure notifies, releases whatever locks were
// taken and returns a typed error; the session never enters Running. If the
// opening status cannot be delivered the duel is force-ended immediately,
// the same way a failed broadcast mid-duel is handled.
func (s *Session) start(ctx context.Context) error {
	if err := s.preparePool(ctx); err != nil {
		s.failSetup(ctx, err)
		return err
	}

	okA, err := s.registry.Acquire(ctx, s.cfg.PlayerA)
	if err != nil {
		s.failSetup(ctx, err)
		return err
	}
	if !okA {
		err := fmt.Errorf("%w: %s", domain.ErrAlreadyInDuel, s.cfg.PlayerA)
		s.failSetup(ctx, err)
		return err
	}
	okB, err := s.registry.Acquire(ctx, s.cfg.PlayerB)
	if err != nil {
		s.failSetup(ctx, err, s.cfg.PlayerA)
		return err
	}
	if !okB {
		err := fmt.Errorf("%w: %s", domain.ErrAlreadyInDuel, s.cfg.PlayerB)
		s.failSetup(ctx, err, s.cfg.PlayerA)
		return err
	}

	s.mu.Lock()
	s.state = domain.DuelStateRunning
	s.mu.Unlock()

	// The repeater must exist before the session becomes reachable through
	// the registry; a ForceEnd racing start would otherwise miss the loop.
	s.loop = newRepeater()
	s.registry.bind(s.cfg.PlayerA, s)
	s.registry.bind(s.cfg.PlayerB, s)

	metrics.DuelsStarted.Inc()
	metrics.DuelsActive.Inc()
	logger.FromContext(ctx).Info(logMsgDuelStarted,
		"duelID", s.ID,
		"playerA", s.cfg.PlayerA,
		"playerB", s.cfg.PlayerB,
		"band", s.cfg.Band.String(),
		"duration", s.cfg.Duration)

	if err := s.broadcastStatus(s.baseCtx); err != nil {
		if errors.Is(err, domain.ErrNotifierDelivery) {
			s.terminate(ctx, ReasonStatusDelivery, metrics.ReasonForced)
			return err
		}
		logger.FromContext(ctx).Warn(logMsgStatusDelivery, "duelID", s.ID, "error", err)
	}

	s.loop.start(tickInterval, func() bool {
		return s.tick(s.baseCtx)
	})
	return nil
}

// preparePool selects exactly PoolSize distinct problems within the rating
// band, sorted ascending by rating, with points rank*100.
func (s *Session) preparePool(ctx context.Context) error {
	catalog, err := s.judgeClient.ProblemCatalog(ctx, nil)
	if err != nil {
		return fmt.Errorf("fetching problem catalog: %w", err)
	}

	qualifying := make([]domain.Problem, 0, len(catalog))
	for _, p := range catalog {
		if p.Rating == 0 || !s.cfg.Band.Contains(p.Rating) {
			continue
		}
		// Problems with no tags at all signal an incomplete catalog entry;
		// *special problems are non-competitive. Both are excluded.
		if len(p.Tags) == 0 || hasTag(p, specialTag) {
			continue
		}
		qualifying = append(qualifying, p)
	}

	if len(qualifying) < domain.PoolSize {
		return fmt.Errorf("%w: %d qualifying problems in %s, need %d",
			domain.ErrInsufficientProblemPool, len(qualifying), s.cfg.Band.String(), domain.PoolSize)
	}

	// Sample without replacement
	pool := make([]domain.Problem, 0, domain.PoolSize)
	for _, i := range s.rng.Perm(len(qualifying))[:domain.PoolSize] {
		pool = append(pool, qualifying[i])
	}

	sort.Slice(pool, func(i, j int) bool { return pool[i].Rating < pool[j].Rating })
	for i := range pool {
		pool[i].Points = (i + 1) * domain.PointsPerRank
	}

	s.mu.Lock()
	s.problems = pool
	s.mu.Unlock()
	return nil
}

func hasTag(p domain.Problem, tag string) bool {
	for _, t := range p.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// failSetup delivers the one final announcement for a setup failure and
// releases only the locks this setup actually acquired. A participant whose
// lock belongs to another live duel keeps it.
func (s *Session) failSetup(ctx context.Context, cause error, acquired ...string) {
	log := logger.FromContext(ctx)

	msg := ReasonSetupJudge
	if errors.Is(cause, domain.ErrInsufficientProblemPool) {
		msg = ReasonSetupPoolSize
	}
	if err := s.notifier.Status(ctx, msg); err != nil {
		log.Error(logMsgFinalAnnounceFailed, "duelID", s.ID, "error", err)
	}

	for _, p := range acquired {
		if err := s.registry.Release(ctx, p); err != nil {
			log.Error(logMsgLockReleaseFailed, "duelID", s.ID, "participant", p, "error", err)
		}
	}

	s.mu.Lock()
	s.state = domain.DuelStateEnded
	s.mu.Unlock()

	metrics.DuelsEnded.WithLabelValues(metrics.ReasonSetupFailed).Inc()
	log.Warn(logMsgDuelEnded, "duelID", s.ID, "reason", "setup failed", "error", cause)
}

// tick advances the duel by one second. Returns true when the session has
// reached a terminal state and the loop must not re-arm.
func (s *Session) tick(ctx context.Context) bool {
	s.mu.Lock()
	if s.state != domain.DuelStateRunning {
		s.mu.Unlock()
		return true
	}
	s.remaining--
	remaining := s.remaining
	poolEmpty := len(s.problems) == 0
	s.mu.Unlock()

	if remaining <= 0 || poolEmpty {
		reason := metrics.ReasonTimeExpired
		if poolEmpty {
			reason = metrics.ReasonPoolExhausted
		}
		s.terminate(ctx, TitleDuelEnded, reason)
		return true
	}

	// Submission checks and the status broadcast share a 5-second cadence
	if remaining%pollCadence != 0 {
		return false
	}

	s.checkSubmissions(ctx)

	if err := s.broadcastStatus(ctx); err != nil {
		if errors.Is(err, domain.ErrNotifierDelivery) {
			// The channel is gone: a session ticking with no visible
			// output is worse than ending it.
			s.terminate(ctx, ReasonStatusDelivery, metrics.ReasonForced)
			return true
		}
		logger.FromContext(ctx).Warn(logMsgStatusDelivery, "duelID", s.ID, "error", err)
	}
	return false
}

// solveResult is the outcome of one participant's submission check: the
// index of the solved pool problem, if any.
type solveResult struct {
	idx int
	ok  bool
}

// checkSubmissions polls both participants' most recent submissions.
// The two checks are independent: a judge fault on one side never blocks
// detection of the other side's solve.
func (s *Session) checkSubmissions(ctx context.Context) {
	var resA, resB solveResult
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		resA = s.checkParticipant(ctx, s.handleA)
	}()
	go func() {
		defer wg.Done()
		resB = s.checkParticipant(ctx, s.handleB)
	}()
	wg.Wait()

	s.applySolves(ctx, resA, resB)
}

// checkParticipant inspects one participant's single most recent submission.
// Only the most recent submission is polled each cycle: a participant who
// solves two pool problems inside the same 5-second window has only the
// later one detected in that cycle. That is the polling resolution, not a
// scoring bug.
func (s *Session) checkParticipant(ctx context.Context, handle string) solveResult {
	sub, err := s.judgeClient.RecentSubmission(ctx, handle)
	if err != nil {
		logger.FromContext(ctx).Warn(logMsgSubmissionCheck, "duelID", s.ID, "handle", handle, "error", err)
		return solveResult{}
	}
	if sub == nil || !sub.Accepted() {
		return solveResult{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Already-scored submission IDs are silently ignored, not errors
	if _, seen := s.ledger[sub.ID]; seen {
		return solveResult{}
	}
	for i, p := range s.problems {
		if p.ContestID == sub.ContestID && p.Index == sub.Index {
			s.ledger[sub.ID] = struct{}{}
			return solveResult{idx: i, ok: true}
		}
	}
	return solveResult{}
}

// applySolves awards points and shrinks the pool. When both participants'
// submissions resolve to the same pool problem in one cycle, both are
// awarded and the problem is removed once. When they resolve to different
// problems, the second removal index is shifted to correct for the first.
func (s *Session) applySolves(ctx context.Context, resA, resB solveResult) {
	var notes []string

	s.mu.Lock()
	switch {
	case resA.ok && resB.ok && resA.idx == resB.idx:
		p := s.problems[resA.idx]
		s.scoreA += p.Points
		s.scoreB += p.Points
		s.problems = removeAt(s.problems, resA.idx)
		metrics.SolvesDetected.Add(2)
		notes = append(notes, fmt.Sprintf("Both players have solved %s, and get %d points!", p.Name, p.Points))

	default:
		if resA.ok {
			p := s.problems[resA.idx]
			s.scoreA += p.Points
			s.problems = removeAt(s.problems, resA.idx)
			metrics.SolvesDetected.Inc()
			notes = append(notes, fmt.Sprintf("%s has solved %s, and gets %d points!", s.handleA, p.Name, p.Points))
		}
		if resB.ok {
			idx := resB.idx
			// A's removal shifted everything after it down by one
			if resA.ok && idx > resA.idx {
				idx--
			}
			p := s.problems[idx]
			s.scoreB += p.Points
			s.problems = removeAt(s.problems, idx)
			metrics.SolvesDetected.Inc()
			notes = append(notes, fmt.Sprintf("%s has solved %s, and gets %d points!", s.handleB, p.Name, p.Points))
		}
	}
	s.mu.Unlock()

	log := logger.FromContext(ctx)
	for _, note := range notes {
		log.Info(logMsgSolveDetected, "duelID", s.ID, "note", note)
		if err := s.notifier.Status(ctx, note); err != nil {
			log.Warn(logMsgStatusDelivery, "duelID", s.ID, "error", err)
		}
	}
}

func removeAt(problems []domain.Problem, i int) []domain.Problem {
	return append(problems[:i], problems[i+1:]...)
}

// broadcastStatus sends the periodic status announcement: current scores,
// the remaining problems with rating and points, and the formatted clock.
func (s *Session) broadcastStatus(ctx context.Context) error {
	s.mu.Lock()
	remaining := s.remaining
	scoreA, scoreB := s.scoreA, s.scoreB
	problems := make([]domain.Problem, len(s.problems))
	copy(problems, s.problems)
	s.mu.Unlock()

	var problemLines, difficultyLines []string
	for _, p := range problems {
		problemLines = append(problemLines, fmt.Sprintf("[%s](%s)", p.Name, p.URL()))
		difficultyLines = append(difficultyLines, fmt.Sprintf("Difficulty: %d \t Score: %d", p.Rating, p.Points))
	}
	problemStr := strings.Join(problemLines, "\n")
	if problemStr == "" {
		problemStr = "No problems available"
	}
	difficultyStr := strings.Join(difficultyLines, "\n")
	if difficultyStr == "" {
		difficultyStr = "No difficulty information available"
	}

	return s.notifier.Announce(ctx, domain.Announcement{
		Title: fmt.Sprintf("Current Status \n%s Current Score %d vs %d Current Score %s",
			s.handleA, scoreA, scoreB, s.handleB),
		Color: domain.ColorStatus,
		Fields: []domain.AnnouncementField{
			{Name: "Problems", Value: problemStr},
			{Name: "Difficulty & Score", Value: difficultyStr},
			{Name: "Time Left", Value: domain.FormatClock(remaining)},
		},
	})
}

// ForceEnd terminates the session from outside the tick loop: an
// administrative override or any other external trigger. Safe to call
// concurrently with the session's own natural expiry; whichever terminal
// path runs first wins and the other is a no-op. An in-flight tick may
// finish afterwards but the loop never re-arms.
func (s *Session) ForceEnd(ctx context.Context, reason string) {
	if reason == "" {
		reason = ReasonForceEnded
	}
	s.terminate(ctx, reason, metrics.ReasonForced)
}

// terminate runs the single terminal transition: stop the loop, announce
// final scores and winner, release both locks. Lock release is idempotent,
// so racing terminal paths cannot double-free or error.
func (s *Session) terminate(ctx context.Context, title, metricReason string) {
	s.terminal.Do(func() {
		if s.loop != nil {
			s.loop.stop()
		}

		s.mu.Lock()
		s.state = domain.DuelStateEnded
		scoreA, scoreB := s.scoreA, s.scoreB
		s.mu.Unlock()

		// Ties resolve in favor of the first participant by convention
		winner := s.handleA
		if scoreB > scoreA {
			winner = s.handleB
		}

		log := logger.FromContext(ctx)
		err := s.notifier.Announce(ctx, domain.Announcement{
			Title: title,
			Color: domain.ColorEnded,
			Fields: []domain.AnnouncementField{
				{Name: fmt.Sprintf("Score of %s", s.handleA), Value: fmt.Sprintf("%d", scoreA)},
				{Name: fmt.Sprintf("Score of %s", s.handleB), Value: fmt.Sprintf("%d", scoreB)},
				{Name: "Winner", Value: winner},
			},
		})
		if err != nil {
			log.Error(logMsgFinalAnnounceFailed, "duelID", s.ID, "error", err)
		}

		for _, p := range []string{s.cfg.PlayerA, s.cfg.PlayerB} {
			if err := s.registry.Release(ctx, p); err != nil {
				log.Error(logMsgLockReleaseFailed, "duelID", s.ID, "participant", p, "error", err)
			}
		}

		metrics.DuelsEnded.WithLabelValues(metricReason).Inc()
		metrics.DuelsActive.Dec()
		log.Info(logMsgDuelEnded, "duelID", s.ID, "reason", metricReason, "scoreA", scoreA, "scoreB", scoreB, "winner", winner)
	})
}
