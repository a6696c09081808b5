package assistant

import (
	"errors"
	"log/slog"

	"github.com/m3rciful/workbot/core/logger"
	"github.com/m3rciful/workbot/internal/userstate"
)

const (
	replyGotIt         = "Got it!"
	replyNotUnderstood = "I don't understand what you mean, that's why I've logged your message"
	replyWaiting       = "I am waiting for your answer"
)

// handleText answers free text and documents. A pending prompt consumes the
// message; otherwise the message is logged as unrecognized. Exactly one
// reply is sent either way.
func (a *App) handleText(req *Request, st *userstate.UserState) error {
	if head, pending := st.Head(); pending && !req.IsText {
		return req.Out.Reply(Message{Text: replyWaiting + "\n\n" + head.Text})
	}

	prompt, err := st.Consume(req.Text)
	if errors.Is(err, userstate.ErrEmptyQueue) {
		a.logUnrecognized(req)
		return req.Out.Reply(Message{Text: replyNotUnderstood})
	}
	if err != nil {
		return err
	}
	logger.Info(req.Ctx, logger.CompAssistant, "prompt.consumed",
		slog.String("status", "ok"),
		slog.String("field", prompt.Field.String()),
		slog.Int("queue_len", len(st.Prompts)),
	)

	reply := replyGotIt
	if next, ok := st.Head(); ok {
		reply += "\n\n" + next.Text
	}
	return req.Out.Reply(Message{Text: reply})
}

func (a *App) logUnrecognized(req *Request) {
	l := a.unrecognized
	if l == nil {
		l = logger.Unrecognized
	}
	if l == nil {
		return
	}
	logger.LogEvent(req.Ctx, l, slog.LevelInfo, "message.unrecognized",
		slog.Int64("user_id", req.UserID),
		slog.Int64("chat_id", req.ChatID),
		slog.String("text", logger.Sanitize(req.Text)),
	)
}

// awaitingData re-sends the pending prompt privately.
func (a *App) awaitingData(req *Request, st *userstate.UserState) error {
	text := replyWaiting
	if head, ok := st.Head(); ok {
		text = head.Text
	}
	return req.Out.Direct(Message{Text: text})
}
