// Package assistant is the work assistant bot: it routes updates, collects
// credentials over chat and answers Gmail, Redmine and OTRS commands.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"google.golang.org/api/option"

	coreconfig "github.com/m3rciful/workbot/core/config"
	"github.com/m3rciful/workbot/core/logger"
	"github.com/m3rciful/workbot/core/netutil"
	tg "github.com/m3rciful/workbot/core/telegram"
	"github.com/m3rciful/workbot/core/telegram/router"
	"github.com/m3rciful/workbot/core/telegram/sender"
	"github.com/m3rciful/workbot/core/telegram/state"
	"github.com/m3rciful/workbot/internal/gmail"
	"github.com/m3rciful/workbot/internal/otrs"
	"github.com/m3rciful/workbot/internal/redmine"
	"github.com/m3rciful/workbot/internal/userstate"

	tele "gopkg.in/telebot.v4"
)

// GmailAuth runs the OAuth2 authorization-code flow.
type GmailAuth interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
	Refresh(ctx context.Context, tok *oauth2.Token) (*oauth2.Token, error)
}

// LabelLister lists mailbox labels.
type LabelLister interface {
	Labels(ctx context.Context) ([]gmail.Label, error)
}

// RedmineClient reads issues and their time entries.
type RedmineClient interface {
	Issue(ctx context.Context, id string) (*redmine.Issue, error)
	TimeEntries(ctx context.Context, issueID string) ([]redmine.TimeEntry, error)
}

// OTRSSession reads tickets on behalf of a signed-in agent.
type OTRSSession interface {
	Ticket(ctx context.Context, id int) (*otrs.Ticket, error)
}

// Options configure New. Nil constructors use the real service clients.
type Options struct {
	Config *coreconfig.Config
	Store  state.Store

	// Gmail overrides the authorizer loaded from access.google_api.
	Gmail       GmailAuth
	GmailLabels func(ctx context.Context, tok *oauth2.Token) (LabelLister, error)
	Redmine     func(address, key string) (RedmineClient, error)
	OTRS        func(ctx context.Context, creds userstate.OTRSState) (OTRSSession, error)

	// Unrecognized receives messages nobody was waiting for. Defaults to logger.Unrecognized.
	Unrecognized *slog.Logger
	// NewState generates OAuth anti-forgery states. Defaults to random UUIDs.
	NewState func() string
}

// App holds the bot's handlers and their collaborators.
type App struct {
	cfg      *coreconfig.Config
	repo     *userstate.Repository
	registry *tg.Registry
	timeout  time.Duration

	gmail       GmailAuth
	gmailLabels func(ctx context.Context, tok *oauth2.Token) (LabelLister, error)
	redmine     func(address, key string) (RedmineClient, error)
	otrs        func(ctx context.Context, creds userstate.OTRSState) (OTRSSession, error)

	unrecognized *slog.Logger
	newState     func() string

	locks  [lockShards]sync.Mutex
	stopMu sync.Mutex
	stop   func()
}

// New wires the assistant. A missing or broken Google client secrets file
// only disables the Gmail commands.
func New(opts Options) (*App, error) {
	if opts.Config == nil {
		return nil, errors.New("assistant: nil config")
	}
	if opts.Store == nil {
		return nil, errors.New("assistant: nil state store")
	}
	cfg := opts.Config
	a := &App{
		cfg:          cfg,
		repo:         userstate.NewRepository(opts.Store),
		timeout:      time.Duration(cfg.Services.TimeoutSeconds) * time.Second,
		gmail:        opts.Gmail,
		gmailLabels:  opts.GmailLabels,
		redmine:      opts.Redmine,
		otrs:         opts.OTRS,
		unrecognized: opts.Unrecognized,
		newState:     opts.NewState,
	}
	if a.timeout <= 0 {
		a.timeout = 15 * time.Second
	}
	if a.newState == nil {
		a.newState = uuid.NewString
	}

	httpClient := netutil.NewClient(netutil.ClientOptions{Timeout: a.timeout, RetryAttempts: 1})
	if a.gmail == nil {
		g := cfg.Access.GoogleAPI
		auth, err := gmail.LoadAuthorizer(g.OAuthSecretFile, g.RedirectURL, g.Scopes)
		if err != nil {
			logger.Warn(context.Background(), logger.CompGmail, "authorizer.disabled",
				slog.String("err", err.Error()),
			)
		} else {
			a.gmail = auth
		}
	}
	if a.gmailLabels == nil {
		a.gmailLabels = func(ctx context.Context, tok *oauth2.Token) (LabelLister, error) {
			authed := oauth2.NewClient(context.WithValue(ctx, oauth2.HTTPClient, httpClient), oauth2.StaticTokenSource(tok))
			return gmail.NewService(ctx, option.WithHTTPClient(authed))
		}
	}
	if a.redmine == nil {
		a.redmine = func(address, key string) (RedmineClient, error) {
			return redmine.New(address, key, httpClient)
		}
	}
	if a.otrs == nil {
		webservice := cfg.Services.OTRS.Webservice
		a.otrs = func(ctx context.Context, creds userstate.OTRSState) (OTRSSession, error) {
			c, err := otrs.New(creds.Address, webservice, httpClient)
			if err != nil {
				return nil, err
			}
			return c.CreateSession(ctx, creds.Username, creds.Password)
		}
	}

	a.registry = a.buildRegistry()
	return a, nil
}

// Registry exposes the command registry.
func (a *App) Registry() *tg.Registry {
	return a.registry
}

// TelegramRunOptions assembles middlewares, routes and lifecycle hooks.
func (a *App) TelegramRunOptions() (tg.RunOptions, error) {
	return tg.RunOptions{
		Config:            a.cfg,
		Registry:          a.registry,
		DispatcherOptions: sender.Options{Workers: 1},
		Middlewares:       tg.DefaultMiddlewares(a.cfg, nil),
		Routes:            a.routes(),
		OnStart: func(ctx context.Context, rt tg.Runtime) error {
			a.SetShutdown(rt.Stop)
			logger.Info(ctx, logger.CompAssistant, "started",
				slog.Int("commands", len(a.registry.Commands())),
				slog.Bool("gmail", a.gmail != nil),
			)
			return nil
		},
	}, nil
}

// SetShutdown installs the function /die calls to stop the bot.
func (a *App) SetShutdown(stop func()) {
	a.stopMu.Lock()
	a.stop = stop
	a.stopMu.Unlock()
}

func (a *App) shutdown() {
	a.stopMu.Lock()
	stop := a.stop
	a.stopMu.Unlock()
	if stop != nil {
		stop()
	}
}

func (a *App) routes() []tg.Route {
	routes := router.CommandRoutes(a.registry, router.CommandRouteOptions{
		Allowed:            a.cfg.Access.Privileged,
		OnPrivilegedReject: a.tele(a.refusePrivileged),
	})
	routes = append(routes, router.TextRoutes(a.registry, router.TextOptions{})...)
	return append(routes, router.CallbackRoute(a.registry, router.CallbackOptions{}))
}

// handler runs with the user's state loaded; the state is saved afterwards
// even when the handler fails, so enqueued prompts survive errors.
type handler func(req *Request, st *userstate.UserState) error

func (a *App) tele(h handler) tele.HandlerFunc {
	return func(c tele.Context) error {
		return a.run(requestFrom(c), h)
	}
}

func (a *App) run(req *Request, h handler) error {
	if req.Ctx == nil {
		req.Ctx = context.Background()
	}
	mu := a.userLock(req.UserID)
	mu.Lock()
	defer mu.Unlock()

	st, err := a.repo.Load(req.Ctx, req.UserID)
	if err != nil {
		return fmt.Errorf("load user state: %w", err)
	}
	herr := h(req, st)
	if err := a.repo.Save(req.Ctx, req.UserID, st); err != nil {
		return errors.Join(herr, fmt.Errorf("save user state: %w", err))
	}
	return herr
}

// lockShards bounds the per-user locks. Users sharing a shard only wait for
// each other; one user's updates are always serialized.
const lockShards = 64

func (a *App) userLock(userID int64) *sync.Mutex {
	return &a.locks[uint64(userID)%lockShards]
}

// callCtx bounds one remote call by services.timeout_seconds.
func (a *App) callCtx(req *Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(req.Ctx, a.timeout)
}
