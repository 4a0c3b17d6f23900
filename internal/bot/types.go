package bot

import (
	"context"
	"time"

	kit "quizbot/internal/transport"
	logx "quizbot/pkg/logx"
)

type Access int

const (
	AccessEveryone Access = iota
	// AccessManager allows bot owners and administrators of the channel the
	// command was issued in.
	AccessManager
	AccessOwnerOnly
)

type Command struct {
	Name        string
	Aliases     []string
	Description string
	Usage       string
	Access      Access

	// DMOnly commands are refused in group chats. Group messages matching a
	// DMOnly command are offered to the interceptor first.
	DMOnly bool

	Timeout time.Duration // optional per-command override
	Handle  HandlerFunc
}

type Request struct {
	Msg     *kit.Message
	Chat    kit.ChatTarget
	FromID  int64
	Command string

	// Args are the whitespace tokens after the command word; ArgText is the
	// untokenized remainder for commands whose last argument may contain
	// spaces.
	Args    []string
	ArgText string

	ReqID   string
	Gateway kit.Gateway
	Logger  logx.Logger
}

// Reply posts a message back to the chat the command came from.
func (r *Request) Reply(ctx context.Context, text string) error {
	_, err := r.Gateway.Announce(ctx, r.Chat, text, &kit.SendOptions{ParseMode: "HTML", DisablePreview: true})
	return err
}
