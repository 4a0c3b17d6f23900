package competition

import (
	"fmt"
	"strings"
	"time"

	kit "quizbot/internal/transport"
	"quizbot/internal/storage"
	"quizbot/pkg/tgui"
)

func htmlOpts() *kit.SendOptions {
	return &kit.SendOptions{ParseMode: "HTML", DisablePreview: true}
}

func renderIntro(total int, set Settings) string {
	return tgui.JoinH("\n",
		tgui.B("🏆 Competition started!"),
		tgui.Esc(fmt.Sprintf("%d questions, %d points each. You lose %d point(s) per full minute you take to answer.", total, set.PointsPerQuestion, set.PointLossPerMinute)),
		tgui.JoinH(" ", tgui.Esc("Answer privately with"), tgui.Code("/answer <number> <answer>"), tgui.Esc("in a direct message to me.")),
	).String()
}

func renderWelcomeDM(total int, set Settings) string {
	return tgui.JoinH("\n",
		tgui.B("A competition just started in your channel."),
		tgui.JoinH(" ", tgui.Esc("Send"), tgui.Code("/answer <number> <answer>"), tgui.Esc("here to play.")),
		tgui.Esc(fmt.Sprintf("Each question is worth %d points and stays open for %s.", set.PointsPerQuestion, formatTimeout(set.QuestionTimeout))),
		tgui.Esc(fmt.Sprintf("There are %d questions in total. Good luck!", total)),
	).String()
}

func renderDMForbidden(name string, userID int64) string {
	return tgui.JoinH(" ",
		tgui.Mention(name, userID),
		tgui.Esc("I can't message you privately. Open a chat with me first, or you won't be able to answer."),
	).String()
}

func renderQuestion(q Question, points int, timeout time.Duration) string {
	return tgui.JoinH("\n",
		tgui.B(fmt.Sprintf("Question %d", q.Index)),
		tgui.Esc(q.Prompt),
		tgui.I(fmt.Sprintf("%d points, %s to answer.", points, formatTimeout(timeout))),
	).String()
}

func renderCorrectAnnounce(name string, userID int64, qIndex int) string {
	return tgui.JoinH(" ",
		tgui.Raw("🎉"),
		tgui.Mention(name, userID),
		tgui.Esc(fmt.Sprintf("answered question %d correctly!", qIndex)),
	).String()
}

// RenderResult formats a successful submission as the private reply to the
// participant.
func RenderResult(r Result) string {
	return renderCorrectDM(r.Question, r.Awarded, r.Total, r.Elapsed)
}

func renderCorrectDM(qIndex, awarded, total int, elapsed time.Duration) string {
	line := fmt.Sprintf("Correct! Question %d earned you %d point(s) after %s.", qIndex, awarded, formatElapsed(elapsed))
	if total >= 0 {
		return tgui.JoinH("\n",
			tgui.Esc(line),
			tgui.Esc(fmt.Sprintf("Your total is now %d.", total)),
		).String()
	}
	return tgui.Esc(line).String()
}

func renderTimeout(q Question) string {
	return tgui.JoinH("\n",
		tgui.Esc(fmt.Sprintf("⏰ Time's up for question %d!", q.Index)),
		tgui.JoinH(" ", tgui.Esc("The answer was"), tgui.B(q.Answer), tgui.Esc(".")),
	).String()
}

func renderLeaderboard(entries []storage.Entry) string {
	if len(entries) == 0 {
		return tgui.JoinH("\n",
			tgui.B("📊 Leaderboard"),
			tgui.I("No points scored yet."),
		).String()
	}
	parts := make([]tgui.H, 0, len(entries)+1)
	parts = append(parts, tgui.B("📊 Leaderboard"))
	for i, e := range entries {
		name := e.Name
		if strings.TrimSpace(name) == "" {
			name = fmt.Sprintf("Player %d", e.UserID)
		}
		parts = append(parts, tgui.JoinH(" ",
			tgui.Esc(fmt.Sprintf("%d.", i+1)),
			tgui.Esc(name),
			tgui.B(fmt.Sprintf("%d pts", e.Score)),
		))
	}
	return tgui.JoinH("\n", parts...).String()
}

func renderEnded() string {
	return tgui.B("🏁 Competition over. Thanks for playing!").String()
}

func renderAnswerReminder(name string, userID int64) string {
	return tgui.JoinH(" ",
		tgui.Mention(name, userID),
		tgui.Esc("answers go in a private message to me, not in the channel."),
	).String()
}

func formatTimeout(d time.Duration) string {
	if d >= time.Minute && d%time.Minute == 0 {
		m := int(d / time.Minute)
		if m == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", m)
	}
	return d.String()
}

func formatElapsed(d time.Duration) string {
	return d.Round(time.Second).String()
}
