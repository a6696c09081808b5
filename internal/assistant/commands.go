package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"google.golang.org/api/googleapi"

	"github.com/m3rciful/workbot/core/logger"
	tg "github.com/m3rciful/workbot/core/telegram"
	"github.com/m3rciful/workbot/core/telegram/commands"
	"github.com/m3rciful/workbot/core/telegram/format"
	"github.com/m3rciful/workbot/internal/gmail"
	"github.com/m3rciful/workbot/internal/userstate"
)

const (
	replyDieAllowed = "My fight is over!"
	replyDieDenied  = "Sorry, but you have no power to kill me."
)

type commandSpec struct {
	name        string
	usage       string
	description string
	privileged  bool
	aliases     []string
	run         handler
}

func (a *App) commandTable() []commandSpec {
	return []commandSpec{
		{name: "/start", description: "shows your user ID and the chat ID", run: a.cmdStart},
		{name: "/help", description: "shows this message", run: a.cmdHelp},
		{name: "/die", description: "stops the bot", privileged: true, aliases: []string{"terminate"}, run: a.cmdDie},
		{name: "/gmail_auth", description: "starts signing in to your Google account", run: a.cmdGmailAuth},
		{name: "/gmail_labels", description: "lists labels of your Gmail mailbox", run: a.cmdGmailLabels},
		{name: "/redmine", usage: "TASK_ID[,TASK_ID]", description: "shows Redmine issues with spent time", run: a.cmdRedmine},
		{name: "/redmine_auth", description: "starts setting up access to Redmine", run: a.cmdRedmineAuth},
		{name: "/otrs", usage: "TASK_ID[,TASK_ID]", description: "shows OTRS tickets with planned and spent time", run: a.cmdOTRS},
		{name: "/otrs_auth", description: "starts setting up access to OTRS", run: a.cmdOTRSAuth},
		{name: "/reset", usage: "gmail|redmine|otrs", description: "forgets what I know about your account in that service", run: a.cmdReset},
		{name: "/cancel", description: "drops the questions I am waiting answers for", run: a.cmdCancel},
	}
}

func (a *App) buildRegistry() *tg.Registry {
	reg := tg.NewRegistry()
	for _, spec := range a.commandTable() {
		reg.RegisterCommand(spec.name, commands.Command{
			Handler:     a.tele(spec.run),
			Description: spec.description,
			Usage:       spec.usage,
			Privileged:  spec.privileged,
			Aliases:     spec.aliases,
		})
	}
	if err := reg.RegisterCallback(callbackAwaitingData, a.tele(a.awaitingData)); err != nil {
		logger.Warn(context.Background(), logger.CompAssistant, "register.callback", slog.String("err", err.Error()))
	}
	reg.SetTextFallback(a.tele(a.handleText))
	return reg
}

func (a *App) cmdStart(req *Request, _ *userstate.UserState) error {
	text := format.V2("Hello, "+req.Username+"!") + "\n" +
		format.V2("Your user ID is ") + format.V2Code(strconv.FormatInt(req.UserID, 10)) +
		format.V2(" and our chat ID is ") + format.V2Code(strconv.FormatInt(req.ChatID, 10))
	return req.Out.Reply(Message{Text: text, Markdown: true})
}

func (a *App) cmdHelp(req *Request, _ *userstate.UserState) error {
	return req.Out.Reply(Message{Text: a.helpText(req.UserID), Markdown: true})
}

// helpText lists commands the user may run, built from the registry.
func (a *App) helpText(userID int64) string {
	all := a.registry.Commands()
	names := make([]string, 0, len(all))
	for name := range all {
		names = append(names, name)
	}
	sort.Strings(names)

	lines := make([]string, 0, len(names))
	for _, name := range names {
		cmd := all[name]
		if cmd.Hidden || (cmd.Privileged && !a.cfg.Access.Privileged(userID)) {
			continue
		}
		line := format.V2("- " + name)
		if cmd.Usage != "" {
			line += " " + format.V2Code(cmd.Usage)
		}
		lines = append(lines, line+format.V2(" - "+cmd.Description))
	}
	return strings.Join(lines, "\n")
}

// cmdDie replies first and then raises the stop signal; the runtime drains
// queued replies before exiting.
func (a *App) cmdDie(req *Request, _ *userstate.UserState) error {
	logger.Warn(req.Ctx, logger.CompAssistant, "shutdown.requested",
		slog.String("user", req.Username),
		slog.Int64("user_id", req.UserID),
	)
	if err := req.Out.Reply(Message{Text: replyDieAllowed}); err != nil {
		return err
	}
	a.shutdown()
	return nil
}

func (a *App) refusePrivileged(req *Request, _ *userstate.UserState) error {
	command, _, _ := strings.Cut(strings.TrimSpace(req.Text), " ")
	logger.Warn(req.Ctx, logger.CompAssistant, "privileged.denied",
		slog.String("status", "denied"),
		slog.String("command", command),
		slog.String("user", req.Username),
		slog.Int64("user_id", req.UserID),
	)
	return req.Out.Reply(Message{Text: replyDieDenied})
}

func (a *App) cmdGmailAuth(req *Request, st *userstate.UserState) error {
	if a.gmail == nil {
		return gmail.ErrNotConfigured
	}
	st.Gmail = userstate.GmailState{}
	return a.startGmailAuth(req, st)
}

func (a *App) cmdGmailLabels(req *Request, st *userstate.UserState) error {
	tok, err := a.gmailToken(req, st)
	if err != nil || tok == nil {
		return err
	}

	ctx, cancel := a.callCtx(req)
	defer cancel()
	svc, err := a.gmailLabels(ctx, tok)
	if err != nil {
		return err
	}
	labels, err := svc.Labels(ctx)
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusUnauthorized {
		logger.Warn(req.Ctx, logger.CompGmail, "token.rejected", slog.String("status", "fail"))
		st.Gmail.Token = nil
		return a.startGmailAuth(req, st)
	}
	if err != nil {
		return err
	}
	if len(labels) == 0 {
		return req.Out.Reply(Message{Text: "No labels found"})
	}
	var b strings.Builder
	for _, l := range labels {
		fmt.Fprintf(&b, "%s (%s)\n", l.Name, l.ID)
	}
	return req.Out.Reply(Message{Text: b.String()})
}

func (a *App) cmdRedmineAuth(req *Request, st *userstate.UserState) error {
	_, err := a.requireStatic(req, st, redmineService, true)
	return err
}

func (a *App) cmdRedmine(req *Request, st *userstate.UserState) error {
	ready, err := a.requireStatic(req, st, redmineService, false)
	if err != nil || !ready {
		return err
	}
	ids := parseIDs(req.Args)
	if len(ids) == 0 {
		return req.Out.Reply(Message{Text: "Usage: /redmine TASK_ID[,TASK_ID]"})
	}
	client, err := a.redmine(st.Redmine.Address, st.Redmine.AuthKey)
	if err != nil {
		return req.Out.Reply(Message{Text: err.Error() + ". Use /redmine_auth to set it up again."})
	}

	blocks := make([]string, 0, len(ids))
	for _, id := range ids {
		blocks = append(blocks, a.redmineIssue(req, client, id))
	}
	return replyBlocks(req, blocks)
}

func (a *App) redmineIssue(req *Request, client RedmineClient, id string) string {
	ctx, cancel := a.callCtx(req)
	defer cancel()

	start := time.Now()
	issue, err := client.Issue(ctx, id)
	if err != nil {
		logger.Warn(req.Ctx, logger.CompRedmine, "issue.fetch",
			slog.String("status", logger.Status(err)),
			slog.String("issue_id", id),
			slog.String("err", err.Error()),
		)
		return errorLine(id, err)
	}
	entries, err := client.TimeEntries(ctx, id)
	block := renderIssue(id, issue, entries)
	if err != nil {
		logger.Warn(req.Ctx, logger.CompRedmine, "time_entries.fetch",
			slog.String("status", logger.Status(err)),
			slog.String("issue_id", id),
			slog.String("err", err.Error()),
		)
		block += format.V2(" - time entries: "+errText(err)) + "\n"
	} else if logger.ShouldSample(logger.CompRedmine) {
		logger.Debug(req.Ctx, logger.CompRedmine, "issue.fetch",
			slog.String("status", "ok"),
			slog.String("issue_id", id),
			slog.Int("count", len(entries)),
			slog.Duration("duration", logger.Took(start)),
		)
	}
	return block
}

func (a *App) cmdOTRSAuth(req *Request, st *userstate.UserState) error {
	_, err := a.requireStatic(req, st, otrsService, true)
	return err
}

func (a *App) cmdOTRS(req *Request, st *userstate.UserState) error {
	ready, err := a.requireStatic(req, st, otrsService, false)
	if err != nil || !ready {
		return err
	}
	ids := parseTicketIDs(req.Args)
	if len(ids) == 0 {
		return req.Out.Reply(Message{Text: "Usage: /otrs TASK_ID[,TASK_ID]"})
	}

	ctx, cancel := a.callCtx(req)
	sess, err := a.otrs(ctx, st.OTRS)
	cancel()
	if err != nil {
		logger.Warn(req.Ctx, logger.CompOTRS, "session.create",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
		return req.Out.Reply(Message{Text: "OTRS sign-in failed: " + errText(err) + ". Use /otrs_auth to update your credentials."})
	}

	blocks := make([]string, 0, len(ids))
	for _, id := range ids {
		blocks = append(blocks, a.otrsTicket(req, sess, id))
	}
	return replyBlocks(req, blocks)
}

func (a *App) otrsTicket(req *Request, sess OTRSSession, id int) string {
	ctx, cancel := a.callCtx(req)
	defer cancel()

	start := time.Now()
	ticket, err := sess.Ticket(ctx, id)
	if err != nil {
		logger.Warn(req.Ctx, logger.CompOTRS, "ticket.fetch",
			slog.String("status", logger.Status(err)),
			slog.Int("ticket_id", id),
			slog.String("err", err.Error()),
		)
		return errorLine(strconv.Itoa(id), err)
	}
	if logger.ShouldSample(logger.CompOTRS) {
		logger.Debug(req.Ctx, logger.CompOTRS, "ticket.fetch",
			slog.String("status", "ok"),
			slog.Int("ticket_id", id),
			slog.Duration("duration", logger.Took(start)),
		)
	}
	return renderTicket(id, ticket)
}

func (a *App) cmdReset(req *Request, st *userstate.UserState) error {
	service := ""
	if len(req.Args) > 0 {
		service = strings.ToLower(strings.TrimSpace(req.Args[0]))
	}
	if err := st.Reset(service); err != nil {
		return req.Out.Reply(Message{Text: "Usage: /reset gmail|redmine|otrs"})
	}
	logger.Info(req.Ctx, logger.CompAssistant, "service.reset", slog.String("service", service))
	return req.Out.Reply(Message{Text: "Done, I forgot your " + service + " settings."})
}

func (a *App) cmdCancel(req *Request, st *userstate.UserState) error {
	n := st.ClearPrompts()
	if n == 0 {
		return req.Out.Reply(Message{Text: "I am not waiting for anything."})
	}
	return req.Out.Reply(Message{Text: fmt.Sprintf("Okay, I will not wait for %d answer(s).", n)})
}
