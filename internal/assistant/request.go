package assistant

import (
	"context"

	tghelpers "github.com/m3rciful/workbot/core/telegram/helpers"
	"github.com/m3rciful/workbot/core/telegram/keyboard"

	tele "gopkg.in/telebot.v4"
)

// Message is one outgoing chat message.
type Message struct {
	Text string
	// Markdown marks Text as MarkdownV2.
	Markdown bool
	Buttons  [][]keyboard.InlineBtn
}

// Outbox delivers messages produced while handling one update.
type Outbox interface {
	// Reply answers in the chat the update came from.
	Reply(Message) error
	// Direct writes to the private chat with the user.
	Direct(Message) error
}

// Request is a transport-neutral view of an incoming update.
type Request struct {
	Ctx      context.Context
	UserID   int64
	Username string
	ChatID   int64
	Private  bool
	// Text is the message text or, for media, its caption.
	Text string
	// IsText is false for documents, photos and other media.
	IsText bool
	Args   []string
	Out    Outbox
}

type teleOutbox struct {
	c tele.Context
}

func (o teleOutbox) Reply(m Message) error {
	return tghelpers.SendText(o.c, m.Text, sendOptions(m))
}

func (o teleOutbox) Direct(m Message) error {
	return tghelpers.SendTo(o.c, m.Text, sendOptions(m))
}

func sendOptions(m Message) *tele.SendOptions {
	opts := &tele.SendOptions{}
	if m.Markdown {
		opts.ParseMode = tele.ModeMarkdownV2
	}
	if len(m.Buttons) > 0 {
		opts.ReplyMarkup = keyboard.InlineButtonsRows(m.Buttons...)
	}
	return opts
}

func requestFrom(c tele.Context) *Request {
	req := &Request{
		Ctx:  tghelpers.BuildContext(c),
		Text: c.Text(),
		Args: c.Args(),
		Out:  teleOutbox{c: c},
	}
	if u := c.Sender(); u != nil {
		req.UserID = u.ID
		req.Username = u.Username
		if req.Username == "" {
			req.Username = u.FirstName
		}
	}
	if chat := c.Chat(); chat != nil {
		req.ChatID = chat.ID
		req.Private = chat.Type == tele.ChatPrivate
	}
	if m := c.Message(); m != nil {
		req.IsText = m.Text != ""
	}
	return req
}
