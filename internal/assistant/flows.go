package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/oauth2"

	"github.com/m3rciful/workbot/core/logger"
	"github.com/m3rciful/workbot/core/telegram/format"
	"github.com/m3rciful/workbot/core/telegram/keyboard"
	"github.com/m3rciful/workbot/internal/gmail"
	"github.com/m3rciful/workbot/internal/userstate"
)

const callbackAwaitingData = "awaiting_data"

var promptTexts = map[userstate.Field]string{
	userstate.FieldGmailAuthCode:  "Please send me the auth code that you get from the link",
	userstate.FieldRedmineAddress: "Please send me the URL address of Redmine service",
	userstate.FieldRedmineAuthKey: "Please send me your auth key/token of Redmine service",
	userstate.FieldOTRSAddress:    "Please send me the URL address of OTRS service",
	userstate.FieldOTRSUsername:   "Please send me your username for OTRS service",
	userstate.FieldOTRSPassword:   "Please send me your password for OTRS service",
}

// staticService is a back-end whose credentials are typed in by the user.
type staticService struct {
	name   string
	fields []userstate.Field
}

var (
	redmineService = staticService{
		name:   "Redmine",
		fields: []userstate.Field{userstate.FieldRedmineAddress, userstate.FieldRedmineAuthKey},
	}
	otrsService = staticService{
		name:   "OTRS",
		fields: []userstate.Field{userstate.FieldOTRSAddress, userstate.FieldOTRSUsername, userstate.FieldOTRSPassword},
	}
)

// privateNotice tells group members to continue in the private chat.
func (a *App) privateNotice(req *Request, headline, action string) error {
	if req.Private {
		return nil
	}
	text := format.V2(headline+" Please continue in a ") +
		format.V2Link("private chat", a.cfg.Telegram.BotLink) +
		format.V2(" "+action)
	return req.Out.Reply(Message{Text: text, Markdown: true})
}

// requireStatic reports whether every field of svc is set. Otherwise the
// missing fields, or all of them when force is set, are queued and the
// user is asked privately.
func (a *App) requireStatic(req *Request, st *userstate.UserState, svc staticService, force bool) (bool, error) {
	want := st.Missing(svc.fields...)
	if force {
		want = svc.fields
	}
	if len(want) == 0 {
		return true, nil
	}

	if err := a.privateNotice(req, fmt.Sprintf("Access to %s hasn't been set up yet!", svc.name), "to set it up."); err != nil {
		return false, err
	}
	for _, f := range want {
		st.Await(f, promptTexts[f])
	}
	logger.Info(req.Ctx, logger.CompAssistant, "setup.requested",
		slog.String("service", svc.name),
		slog.Int("prompts", len(want)),
		slog.Int("queue_len", len(st.Prompts)),
	)

	intro := fmt.Sprintf("To continue, you have to send me some data to access %s.", svc.name)
	if err := req.Out.Direct(Message{Text: format.V2(intro), Markdown: true}); err != nil {
		return false, err
	}
	head, _ := st.Head()
	return false, req.Out.Direct(Message{Text: head.Text})
}

// gmailToken resolves a usable token or starts authorization. It returns
// nil without error when the user has to act first.
func (a *App) gmailToken(req *Request, st *userstate.UserState) (*oauth2.Token, error) {
	if a.gmail == nil {
		return nil, gmail.ErrNotConfigured
	}
	g := &st.Gmail

	if tok := g.Token; tok != nil {
		if tok.Valid() {
			return tok, nil
		}
		if tok.RefreshToken != "" {
			ctx, cancel := a.callCtx(req)
			fresh, err := a.gmail.Refresh(ctx, tok)
			cancel()
			if err == nil {
				g.Token = fresh
				logger.Info(req.Ctx, logger.CompGmail, "token.refreshed", slog.String("status", "ok"))
				return fresh, nil
			}
			logger.Warn(req.Ctx, logger.CompGmail, "token.refreshed",
				slog.String("status", "fail"),
				slog.String("err", err.Error()),
			)
		}
		g.Token = nil
	}

	if g.AuthCode != "" {
		code, codeState := g.AuthCode, g.CodeState
		g.AuthCode, g.CodeState = "", ""
		if codeState != "" && codeState == g.OAuthState {
			ctx, cancel := a.callCtx(req)
			tok, err := a.gmail.Exchange(ctx, code)
			cancel()
			if err == nil {
				g.Token = tok
				g.OAuthState = ""
				logger.Info(req.Ctx, logger.CompGmail, "code.exchanged", slog.String("status", "ok"))
				return tok, nil
			}
			logger.Warn(req.Ctx, logger.CompGmail, "code.exchanged",
				slog.String("status", "fail"),
				slog.String("err", err.Error()),
			)
		} else {
			logger.Warn(req.Ctx, logger.CompGmail, "code.stale", slog.String("status", "skip"))
		}
	}

	return nil, a.startGmailAuth(req, st)
}

func (a *App) startGmailAuth(req *Request, st *userstate.UserState) error {
	state := a.newState()
	st.Gmail.OAuthState = state
	st.Await(userstate.FieldGmailAuthCode, promptTexts[userstate.FieldGmailAuthCode])
	logger.Info(req.Ctx, logger.CompGmail, "auth.requested", slog.Int("queue_len", len(st.Prompts)))

	if err := a.privateNotice(req, "Authentication required!", "to pass the authentication process."); err != nil {
		return err
	}
	text := format.V2("To continue, you have to sign in to your Google account and allow the requested access for this bot.\n" +
		"As a result, you'll receive a confirmation code which you have to send to me in this chat.")
	return req.Out.Direct(Message{
		Text:     text,
		Markdown: true,
		Buttons: [][]keyboard.InlineBtn{
			{{Text: "Sign in to Google", URL: a.gmail.AuthURL(state)}},
			{{Text: "What are you waiting for?", Unique: callbackAwaitingData}},
		},
	})
}

func isTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}
