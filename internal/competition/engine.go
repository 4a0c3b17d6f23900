package competition

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"quizbot/internal/storage"
	kit "quizbot/internal/transport"
	logx "quizbot/pkg/logx"
)

const (
	welcomeFanout  = 8
	reminderExpiry = 5 * time.Second
)

// Engine is the command-facing entry point of the competition feature. It
// owns the registry, starts and ends sessions, and routes private answers to
// the right session. Permission checks happen in the command layer; the
// engine assumes the caller is allowed to do what it asks.
type Engine struct {
	gw     kit.Gateway
	store  storage.Store
	timers Timers
	reg    *Registry
	log    logx.Logger

	mu   sync.Mutex
	bank *Bank
	set  Settings
}

func NewEngine(gw kit.Gateway, store storage.Store, timers Timers, bank *Bank, set Settings, log logx.Logger) *Engine {
	if bank == nil {
		bank = DefaultBank()
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Engine{
		gw:     gw,
		store:  store,
		timers: timers,
		reg:    NewRegistry(),
		log:    log,
		bank:   bank,
		set:    set.withDefaults(),
	}
}

// Apply swaps the question bank and settings used for sessions started from
// now on. Running sessions keep the values they started with.
func (e *Engine) Apply(set Settings, bank *Bank) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.set = set.withDefaults()
	if bank != nil {
		e.bank = bank
	}
}

// Registry exposes the session registry, mainly for the command layer and
// tests.
func (e *Engine) Registry() *Registry { return e.reg }

// Start launches a competition in chatID: locks the channel, posts the
// intro, registers the members the platform exposes, sends them the rules in
// private, and opens question one. A channel with a running competition gets
// ErrAlreadyActive. If the intro cannot be posted the start is rolled back.
func (e *Engine) Start(ctx context.Context, chatID int64) error {
	e.mu.Lock()
	bank, set := e.bank, e.set
	e.mu.Unlock()

	s, err := e.reg.Create(chatID, func() *Session {
		ns := newSession(chatID, bank, set, e.gw, e.store, e.timers, e.log)
		ns.onEnded = func(c context.Context) { e.finish(c, chatID) }
		return ns
	})
	if err != nil {
		return err
	}

	if err := e.gw.LockChannel(ctx, chatID); err != nil {
		e.log.Warn("channel lock failed", logx.Int64("chat", chatID), logx.Err(err))
	}

	if _, err := e.gw.Announce(ctx, kit.ChatTarget{ChatID: chatID}, renderIntro(bank.Len(), set), htmlOpts()); err != nil {
		e.reg.Remove(chatID)
		if uerr := e.gw.UnlockChannel(ctx, chatID); uerr != nil {
			e.log.Warn("channel unlock failed", logx.Int64("chat", chatID), logx.Err(uerr))
		}
		return fmt.Errorf("announce competition start: %w", err)
	}

	e.enrollMembers(ctx, chatID, bank.Len(), set)

	s.Begin(ctx)
	e.log.Info("competition started",
		logx.Int64("chat", chatID),
		logx.Int("questions", bank.Len()),
		logx.Duration("question_timeout", set.QuestionTimeout))
	return nil
}

// enrollMembers routes every visible non-bot member to the session and sends
// them the rules in private. Participants the bot cannot reach privately get
// a public mention instead.
func (e *Engine) enrollMembers(ctx context.Context, chatID int64, total int, set Settings) {
	members, err := e.gw.ChannelMembers(ctx, chatID)
	if err != nil {
		e.log.Warn("member listing failed", logx.Int64("chat", chatID), logx.Err(err))
		return
	}

	welcome := renderWelcomeDM(total, set)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(welcomeFanout)
	for _, m := range members {
		if m.IsBot {
			continue
		}
		e.reg.AddRoute(m.ID, chatID)

		g.Go(func() error {
			err := e.gw.DirectMessage(gctx, m.ID, welcome, htmlOpts())
			switch {
			case err == nil:
			case kit.IsDeliveryForbidden(err):
				if _, aerr := e.gw.Announce(gctx, kit.ChatTarget{ChatID: chatID}, renderDMForbidden(m.Name, m.ID), htmlOpts()); aerr != nil {
					e.log.Warn("dm fallback announce failed", logx.Int64("user", m.ID), logx.Err(aerr))
				}
			default:
				e.log.Warn("welcome dm failed", logx.Int64("user", m.ID), logx.Err(err))
			}
			return nil
		})
	}
	_ = g.Wait()
}

// End terminates the competition in chatID ahead of schedule.
func (e *Engine) End(ctx context.Context, chatID int64) error {
	s, ok := e.reg.ByChannel(chatID)
	if !ok {
		return ErrNoActiveSession
	}
	if !s.End(ctx) {
		return ErrNoActiveSession
	}
	e.finish(ctx, chatID)
	return nil
}

// finish posts the final standings, unlocks the channel, and drops the
// session with all its participant routes.
func (e *Engine) finish(ctx context.Context, chatID int64) {
	if entries, err := e.store.Snapshot(ctx); err != nil {
		e.log.Warn("final leaderboard read failed", logx.Int64("chat", chatID), logx.Err(err))
	} else if _, err := e.gw.Announce(ctx, kit.ChatTarget{ChatID: chatID}, renderLeaderboard(entries), htmlOpts()); err != nil {
		e.log.Warn("final leaderboard announce failed", logx.Int64("chat", chatID), logx.Err(err))
	}
	if _, err := e.gw.Announce(ctx, kit.ChatTarget{ChatID: chatID}, renderEnded(), htmlOpts()); err != nil {
		e.log.Warn("end announce failed", logx.Int64("chat", chatID), logx.Err(err))
	}
	if err := e.gw.UnlockChannel(ctx, chatID); err != nil {
		e.log.Warn("channel unlock failed", logx.Int64("chat", chatID), logx.Err(err))
	}
	e.reg.Remove(chatID)
	e.log.Info("competition ended", logx.Int64("chat", chatID))
}

// Submit routes a privately submitted answer to the competition its author
// participates in. A user with no route joins the sole active session, which
// covers members Telegram does not enumerate at start.
func (e *Engine) Submit(ctx context.Context, userID int64, name string, qIndex int, text string) (Result, error) {
	s, err := e.reg.ByParticipant(userID)
	if err != nil {
		s, err = e.adoptIntoSole(userID)
		if err != nil {
			return Result{}, err
		}
	}
	return s.Submit(ctx, userID, name, qIndex, text)
}

func (e *Engine) adoptIntoSole(userID int64) (*Session, error) {
	sole, ok := e.reg.Sole()
	if !ok {
		return nil, ErrNotParticipating
	}
	e.reg.AddRoute(userID, sole.ChatID())
	return sole, nil
}

// Leaderboard posts the current standings to a chat.
func (e *Engine) Leaderboard(ctx context.Context, to kit.ChatTarget) error {
	entries, err := e.store.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("read leaderboard: %w", err)
	}
	_, err = e.gw.Announce(ctx, to, renderLeaderboard(entries), htmlOpts())
	return err
}

// HandlePublicAnswer intercepts an answer posted into a channel with a
// running competition. The dispatcher calls it for any group message that
// matched a private-only command, under any of its aliases. The message is
// deleted so others don't see the guess, and a short-lived reminder tells
// the author to answer in private. It reports whether the message was
// handled.
func (e *Engine) HandlePublicAnswer(ctx context.Context, msg *kit.Message) bool {
	if msg == nil || !msg.IsGroup {
		return false
	}
	if _, ok := e.reg.ByChannel(msg.ChatID); !ok {
		return false
	}

	ref := kit.MessageRef{ChatID: msg.ChatID, ThreadID: msg.ThreadID, MessageID: msg.ID}
	if err := e.gw.DeleteMessage(ctx, ref); err != nil {
		e.log.Warn("public answer delete failed", logx.Int64("chat", msg.ChatID), logx.Err(err))
	}

	reminder, err := e.gw.Announce(ctx, kit.ChatTarget{ChatID: msg.ChatID, ThreadID: msg.ThreadID}, renderAnswerReminder(msg.FromName, msg.FromID), htmlOpts())
	if err != nil {
		e.log.Warn("answer reminder failed", logx.Int64("chat", msg.ChatID), logx.Err(err))
		return true
	}

	name := fmt.Sprintf("remind:%d:%d", reminder.ChatID, reminder.MessageID)
	err = e.timers.AddOnce(name, reminderExpiry, func(jctx context.Context) error {
		return e.gw.DeleteMessage(jctx, reminder)
	})
	if err != nil {
		e.log.Warn("reminder expiry not scheduled", logx.Err(err))
	}
	return true
}
