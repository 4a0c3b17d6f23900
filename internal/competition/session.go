package competition

import (
	"context"
	"fmt"
	"sync"
	"time"

	"quizbot/internal/storage"
	kit "quizbot/internal/transport"
	logx "quizbot/pkg/logx"
)

// Settings are the per-session scoring and timing knobs. They are captured
// when a session starts; config reloads only affect sessions started later.
type Settings struct {
	PointsPerQuestion  int
	PointLossPerMinute int
	QuestionTimeout    time.Duration
}

func (s Settings) withDefaults() Settings {
	if s.PointsPerQuestion <= 0 {
		s.PointsPerQuestion = 5
	}
	if s.PointLossPerMinute < 0 {
		s.PointLossPerMinute = 1
	}
	if s.QuestionTimeout <= 0 {
		s.QuestionTimeout = 5 * time.Minute
	}
	return s
}

// Timers is the slice of the scheduler a session needs: named, replaceable
// one-shot timers. Remove is best-effort; a timer may fire concurrently with
// its removal, which is why onTimeout re-checks the question index.
type Timers interface {
	AddOnce(name string, after time.Duration, job func(ctx context.Context) error) error
	Remove(name string) bool
}

type State int

const (
	// StatePending covers the start window between session creation and the
	// first question being posted. Answers are rejected until then.
	StatePending State = iota
	StateActive
	StateEnded
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateActive:
		return "active"
	case StateEnded:
		return "ended"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Result describes a successful answer submission.
type Result struct {
	Question int
	Awarded  int
	// Total is the participant's new leaderboard total, or -1 when the
	// store could not report it.
	Total    int
	Elapsed  time.Duration
	Finished bool
}

// Session runs one competition in one channel. All transitions happen under
// its mutex, so a timeout firing at the same instant as a correct answer
// resolves to exactly one of the two advancing the question.
type Session struct {
	chatID int64
	bank   *Bank
	set    Settings
	gw     kit.Gateway
	store  storage.Store
	timers Timers
	log    logx.Logger
	now    func() time.Time

	// onEnded runs after the session transitions to StateEnded on its own
	// (last question answered or timed out), outside the session mutex.
	onEnded func(ctx context.Context)

	mu       sync.Mutex
	state    State
	current  int
	postedAt time.Time
}

func newSession(chatID int64, bank *Bank, set Settings, gw kit.Gateway, store storage.Store, timers Timers, log logx.Logger) *Session {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Session{
		chatID:  chatID,
		bank:    bank,
		set:     set.withDefaults(),
		gw:      gw,
		store:   store,
		timers:  timers,
		log:     log.With(logx.Int64("chat", chatID)),
		now:     time.Now,
		state:   StatePending,
		current: 1,
	}
}

func timerName(chatID int64, index int) string {
	return fmt.Sprintf("comp:%d:q%d", chatID, index)
}

// ChatID returns the channel this session runs in.
func (s *Session) ChatID() int64 { return s.chatID }

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// CurrentQuestion returns the 1-based index of the open question.
func (s *Session) CurrentQuestion() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Begin opens the session: posts the first question and arms its timeout.
// The session is not scorable until Begin has run, so answers racing the
// start announcements get ErrNoActiveSession instead of a zero-time score.
// Calling Begin on a session that already left the pending state is a no-op.
func (s *Session) Begin(ctx context.Context) {
	s.mu.Lock()
	if s.state != StatePending {
		s.mu.Unlock()
		return
	}
	s.state = StateActive
	s.postQuestionLocked(ctx)
	s.mu.Unlock()
}

// Submit processes an answer to question qIndex from a participant. On a
// correct answer it awards points, announces publicly, and advances to the
// next question or ends the session.
func (s *Session) Submit(ctx context.Context, userID int64, name string, qIndex int, text string) (Result, error) {
	s.mu.Lock()
	if s.state != StateActive {
		s.mu.Unlock()
		return Result{}, ErrNoActiveSession
	}
	if qIndex < 1 || qIndex > s.bank.Len() {
		s.mu.Unlock()
		return Result{}, ErrQuestionOutOfRange
	}
	if qIndex != s.current {
		s.mu.Unlock()
		return Result{}, ErrWrongQuestion
	}
	q, _ := s.bank.Get(qIndex)
	if !q.Matches(text) {
		s.mu.Unlock()
		return Result{}, ErrIncorrectAnswer
	}

	// Correct. The pending timeout must not advance this index again; its
	// removal is best-effort and the index guard in onTimeout is what makes
	// a concurrent fire harmless.
	s.timers.Remove(timerName(s.chatID, qIndex))

	elapsed := s.now().Sub(s.postedAt)
	if elapsed < 0 {
		elapsed = 0
	}
	awarded := Score(elapsed, s.questionPoints(q), s.set.PointLossPerMinute)

	total, err := s.store.Award(ctx, userID, name, awarded)
	if err != nil {
		s.log.Warn("score persist failed", logx.Int64("user", userID), logx.Int("points", awarded), logx.Err(err))
		total = -1
	}

	s.announce(ctx, renderCorrectAnnounce(name, userID, qIndex))
	s.announceLeaderboard(ctx)

	ended := s.advanceLocked(ctx)
	res := Result{
		Question: qIndex,
		Awarded:  awarded,
		Total:    total,
		Elapsed:  elapsed,
		Finished: ended,
	}
	s.mu.Unlock()

	if ended && s.onEnded != nil {
		s.onEnded(ctx)
	}
	return res, nil
}

// onTimeout closes question qIndex because its timer fired. A stale fire,
// for a question already answered or a session already over, is a no-op.
func (s *Session) onTimeout(ctx context.Context, qIndex int) {
	s.mu.Lock()
	if s.state != StateActive || s.current != qIndex {
		s.mu.Unlock()
		s.log.Trace("stale timeout ignored", logx.Int("question", qIndex))
		return
	}
	q, _ := s.bank.Get(qIndex)
	s.announce(ctx, renderTimeout(q))
	ended := s.advanceLocked(ctx)
	s.mu.Unlock()

	if ended && s.onEnded != nil {
		s.onEnded(ctx)
	}
}

// End terminates the session early. It reports false if the session had
// already ended. The caller owns cleanup and final messaging.
func (s *Session) End(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = ctx
	if s.state == StateEnded {
		return false
	}
	s.timers.Remove(timerName(s.chatID, s.current))
	s.state = StateEnded
	return true
}

func (s *Session) advanceLocked(ctx context.Context) bool {
	s.current++
	if s.current > s.bank.Len() {
		s.state = StateEnded
		return true
	}
	s.postQuestionLocked(ctx)
	return false
}

func (s *Session) postQuestionLocked(ctx context.Context) {
	q, ok := s.bank.Get(s.current)
	if !ok {
		return
	}
	s.announce(ctx, renderQuestion(q, s.questionPoints(q), s.set.QuestionTimeout))
	s.postedAt = s.now()

	idx := s.current
	err := s.timers.AddOnce(timerName(s.chatID, idx), s.set.QuestionTimeout, func(jctx context.Context) error {
		s.onTimeout(jctx, idx)
		return nil
	})
	if err != nil {
		s.log.Error("question timeout not scheduled", logx.Int("question", idx), logx.Err(err))
	}
}

func (s *Session) questionPoints(q Question) int {
	if q.Points > 0 {
		return q.Points
	}
	return s.set.PointsPerQuestion
}

func (s *Session) announce(ctx context.Context, text string) {
	if _, err := s.gw.Announce(ctx, kit.ChatTarget{ChatID: s.chatID}, text, htmlOpts()); err != nil {
		s.log.Warn("channel announce failed", logx.Err(err))
	}
}

func (s *Session) announceLeaderboard(ctx context.Context) {
	entries, err := s.store.Snapshot(ctx)
	if err != nil {
		s.log.Warn("leaderboard read failed", logx.Err(err))
		return
	}
	s.announce(ctx, renderLeaderboard(entries))
}
