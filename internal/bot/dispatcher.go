package bot

import (
	"context"
	"runtime"
	"runtime/debug"
	"strings"
	"sync"

	kit "quizbot/internal/transport"
	logx "quizbot/pkg/logx"
	"quizbot/pkg/tgui"
)

// Dispatcher routes incoming updates to registered commands on a bounded
// worker pool. Handlers never run on the update-reading goroutine, so a slow
// handler cannot stall the gateway.
type Dispatcher struct {
	mu       sync.RWMutex
	commands map[string]*Command // name or alias -> command
	order    []string
	owners   []int64

	gw  kit.Gateway
	log logx.Logger

	// intercept sees group messages that match a DMOnly command before the
	// refusal reply is sent. Returning true consumes the message.
	intercept func(ctx context.Context, msg *kit.Message) bool
}

const jobQueueCap = 256

func New(gw kit.Gateway, log logx.Logger, owners []int64) *Dispatcher {
	if log.IsZero() {
		log = logx.Nop()
	}
	d := &Dispatcher{
		commands: map[string]*Command{},
		owners:   append([]int64(nil), owners...),
		gw:       gw,
		log:      log,
	}
	d.Register(Command{
		Name:        "help",
		Aliases:     []string{"h", "start"},
		Description: "show available commands",
		Usage:       "/help",
		Handle: func(ctx context.Context, req *Request) error {
			return req.Reply(ctx, d.helpText())
		},
	})
	return d
}

// Register installs commands under their name and aliases. A later
// registration with the same name wins.
func (d *Dispatcher) Register(cmds ...Command) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := range cmds {
		c := cmds[i]
		name := strings.TrimSpace(strings.ToLower(c.Name))
		if name == "" || c.Handle == nil {
			continue
		}
		if _, exists := d.commands[name]; !exists {
			d.order = append(d.order, name)
		}
		d.commands[name] = &c
		for _, a := range c.Aliases {
			a = strings.TrimSpace(strings.ToLower(a))
			if a == "" || strings.Contains(a, " ") {
				continue
			}
			d.commands[a] = &c
		}
	}
}

// SetOwners replaces the owner list used for access checks. Safe during
// config hot-reload.
func (d *Dispatcher) SetOwners(owners []int64) {
	cp := append([]int64(nil), owners...)
	d.mu.Lock()
	d.owners = cp
	d.mu.Unlock()
}

// SetInterceptor installs the group-message interceptor.
func (d *Dispatcher) SetInterceptor(f func(ctx context.Context, msg *kit.Message) bool) {
	d.mu.Lock()
	d.intercept = f
	d.mu.Unlock()
}

func (d *Dispatcher) ownersSnapshot() []int64 {
	d.mu.RLock()
	cp := append([]int64(nil), d.owners...)
	d.mu.RUnlock()
	return cp
}

// DispatchLoop consumes updates until ctx is cancelled or the channel
// closes. It owns the worker pool for handler execution; queued handlers
// still drain after the update channel closes.
func (d *Dispatcher) DispatchLoop(ctx context.Context, updates <-chan kit.Update) error {
	workers := runtime.NumCPU()
	if workers < 2 {
		workers = 2
	}
	jobs := make(chan func(), jobQueueCap)
	d.log.Info("command dispatcher started", logx.Int("workers", workers), logx.Int("queue_cap", cap(jobs)))

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		idx := i
		go func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					d.log.Error("panic in command worker",
						logx.Int("worker", idx),
						logx.Any("panic", r),
						logx.String("stack", string(debug.Stack())))
				}
			}()
			for {
				select {
				case <-ctx.Done():
					return
				case job, ok := <-jobs:
					if !ok {
						return
					}
					if job != nil {
						job()
					}
				}
			}
		}()
	}
	defer func() {
		close(jobs)
		wg.Wait()
		d.log.Info("command dispatcher stopped")
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case up, ok := <-updates:
			if !ok {
				return nil
			}
			if up.Kind == kit.UpdateMessage {
				d.routeMessage(ctx, up.Message, jobs)
			}
		}
	}
}

func (d *Dispatcher) routeMessage(ctx context.Context, msg *kit.Message, jobs chan<- func()) {
	if msg == nil {
		return
	}
	text := strings.TrimSpace(msg.Text)
	if !strings.HasPrefix(text, "/") {
		return
	}

	word, rest := splitWord(text)
	word = strings.ToLower(strings.TrimPrefix(word, "/"))
	if i := strings.IndexByte(word, '@'); i >= 0 {
		word = word[:i]
	}
	if word == "" {
		return
	}

	d.mu.RLock()
	cmdp := d.commands[word]
	intercept := d.intercept
	d.mu.RUnlock()

	chat := kit.ChatTarget{ChatID: msg.ChatID, ThreadID: msg.ThreadID}
	if cmdp == nil {
		// Groups see plenty of commands meant for other bots; only answer
		// unknowns in private.
		if !msg.IsGroup {
			d.reply(ctx, chat, "unknown command. try /help")
		}
		return
	}
	cmd := *cmdp

	if cmd.DMOnly && msg.IsGroup {
		if intercept != nil && intercept(ctx, msg) {
			return
		}
		d.reply(ctx, chat, "send this to me in a private message")
		return
	}

	rid := newReqID()
	req := &Request{
		Msg:     msg,
		Chat:    chat,
		FromID:  msg.FromID,
		Command: cmd.Name,
		Args:    strings.Fields(rest),
		ArgText: strings.TrimSpace(rest),
		ReqID:   rid,
		Gateway: d.gw,
		Logger: d.log.With(
			logx.String("rid", rid),
			logx.Int64("chat_id", msg.ChatID),
			logx.Int64("from_id", msg.FromID),
			logx.String("cmd", cmd.Name),
		),
	}

	job := func() {
		if !d.allowed(ctx, cmd, msg) {
			_ = req.Reply(ctx, "you are not allowed to do that")
			return
		}
		final := Chain(
			cmd.Handle,
			MWPanicRecover(d.log),
			MWRequestLog(d.log),
			MWTimeout(cmd.Timeout),
		)
		_ = final(ctx, req)
	}

	select {
	case jobs <- job:
	default:
		d.reply(ctx, chat, "busy, try again")
	}
}

func (d *Dispatcher) allowed(ctx context.Context, cmd Command, msg *kit.Message) bool {
	switch cmd.Access {
	case AccessEveryone:
		return true
	case AccessOwnerOnly:
		return isOwner(msg.FromID, d.ownersSnapshot())
	case AccessManager:
		if isOwner(msg.FromID, d.ownersSnapshot()) {
			return true
		}
		if !msg.IsGroup {
			return false
		}
		ok, err := d.gw.IsChannelAdmin(ctx, msg.ChatID, msg.FromID)
		if err != nil {
			d.log.Warn("admin check failed", logx.Int64("chat", msg.ChatID), logx.Int64("user", msg.FromID), logx.Err(err))
			return false
		}
		return ok
	default:
		return false
	}
}

func (d *Dispatcher) reply(ctx context.Context, chat kit.ChatTarget, text string) {
	if _, err := d.gw.Announce(ctx, chat, text, &kit.SendOptions{DisablePreview: true}); err != nil {
		d.log.Warn("reply failed", logx.Int64("chat", chat.ChatID), logx.Err(err))
	}
}

func (d *Dispatcher) helpText() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	parts := make([]tgui.H, 0, len(d.order)+1)
	parts = append(parts, tgui.B("Commands"))
	for _, name := range d.order {
		c := d.commands[name]
		usage := c.Usage
		if usage == "" {
			usage = "/" + c.Name
		}
		parts = append(parts, tgui.JoinH(" ", tgui.Code(usage), tgui.Esc(c.Description)))
	}
	return tgui.JoinH("\n", parts...).String()
}

func splitWord(s string) (word, rest string) {
	if i := strings.IndexAny(s, " \t\n\r"); i >= 0 {
		return s[:i], s[i+1:]
	}
	return s, ""
}

func isOwner(id int64, owners []int64) bool {
	for _, o := range owners {
		if o == id {
			return true
		}
	}
	return false
}
