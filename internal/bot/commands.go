package bot

import (
	"context"
	"errors"
	"strconv"
	"time"

	"quizbot/internal/competition"
)

// CompetitionCommands builds the command set backed by the competition
// engine.
func CompetitionCommands(e *competition.Engine) []Command {
	return []Command{
		{
			Name:        "startcomp",
			Aliases:     []string{"competition"},
			Description: "start a competition in this channel",
			Usage:       "/startcomp",
			Access:      AccessManager,
			Timeout:     30 * time.Second,
			Handle: func(ctx context.Context, req *Request) error {
				if !req.Msg.IsGroup {
					return req.Reply(ctx, "run this in the channel you want the competition in")
				}
				err := e.Start(ctx, req.Chat.ChatID)
				switch {
				case err == nil:
					return nil
				case errors.Is(err, competition.ErrAlreadyActive):
					return req.Reply(ctx, "a competition is already running here")
				default:
					_ = req.Reply(ctx, "could not start the competition, try again later")
					return err
				}
			},
		},
		{
			Name:        "endcomp",
			Description: "end the running competition early",
			Usage:       "/endcomp",
			Access:      AccessManager,
			Timeout:     30 * time.Second,
			Handle: func(ctx context.Context, req *Request) error {
				if !req.Msg.IsGroup {
					return req.Reply(ctx, "run this in the channel the competition is in")
				}
				err := e.End(ctx, req.Chat.ChatID)
				switch {
				case err == nil:
					return nil
				case errors.Is(err, competition.ErrNoActiveSession):
					return req.Reply(ctx, "there is no competition to end")
				default:
					return err
				}
			},
		},
		{
			Name:        "answer",
			Aliases:     []string{"a"},
			Description: "answer the current question (private chat only)",
			Usage:       "/answer <number> <answer>",
			DMOnly:      true,
			Timeout:     30 * time.Second,
			Handle: func(ctx context.Context, req *Request) error {
				if len(req.Args) < 2 {
					return req.Reply(ctx, "usage: /answer <number> <answer>")
				}
				qIndex, err := strconv.Atoi(req.Args[0])
				if err != nil {
					return req.Reply(ctx, "the first argument must be the question number")
				}
				answer := req.ArgText[len(req.Args[0]):]

				res, err := e.Submit(ctx, req.FromID, req.Msg.FromName, qIndex, answer)
				switch {
				case err == nil:
					return req.Reply(ctx, competition.RenderResult(res))
				case errors.Is(err, competition.ErrNotParticipating),
					errors.Is(err, competition.ErrNoActiveSession):
					return req.Reply(ctx, "no competition is running for you right now")
				case errors.Is(err, competition.ErrQuestionOutOfRange):
					return req.Reply(ctx, "that question number does not exist")
				case errors.Is(err, competition.ErrWrongQuestion):
					return req.Reply(ctx, "that is not the question currently open")
				case errors.Is(err, competition.ErrIncorrectAnswer):
					return req.Reply(ctx, "not quite, try again!")
				default:
					return err
				}
			},
		},
		{
			Name:        "lb",
			Aliases:     []string{"leaderboard"},
			Description: "show the leaderboard",
			Usage:       "/lb",
			Timeout:     15 * time.Second,
			Handle: func(ctx context.Context, req *Request) error {
				return e.Leaderboard(ctx, req.Chat)
			},
		},
	}
}
