package router

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/m3rciful/workbot/core/logger"
	tg "github.com/m3rciful/workbot/core/telegram"
	"github.com/m3rciful/workbot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// CommandRouteOptions configures how commands are wrapped and exposed.
type CommandRouteOptions struct {
	// Allowed gates privileged commands.
	Allowed func(userID int64) bool
	// OnPrivilegedReject answers users that fail the Allowed check.
	OnPrivilegedReject tele.HandlerFunc
}

// CommandRoutes prepares command handlers with per-handler summaries. Aliases
// are routed to the same handler.
func CommandRoutes(reg *tg.Registry, opts CommandRouteOptions) []tg.Route {
	if reg == nil {
		return nil
	}
	gate := middleware.AllowListMiddleware(middleware.AllowListOptions{
		Allowed:  opts.Allowed,
		OnReject: opts.OnPrivilegedReject,
	})

	names := make([]string, 0, len(reg.Commands()))
	for name := range reg.Commands() {
		names = append(names, name)
	}
	sort.Strings(names)

	var routes []tg.Route
	for _, name := range names {
		def := reg.Commands()[name]
		inner := def.Handler
		if def.Privileged {
			inner = gate(inner)
		}
		handlerName := normalizeHandlerName(name)
		h := func(c tele.Context) error {
			return handleWithSummary(c, handlerName, time.Now(), func() error {
				return inner(c)
			})
		}
		routes = append(routes, tg.Route{Endpoint: name, Handler: h})
		for _, alias := range def.Aliases {
			routes = append(routes, tg.Route{Endpoint: "/" + trimSlash(alias), Handler: h})
		}
	}

	logger.Info(context.Background(), logger.CompTGWire, "complete",
		slog.Int("commands", len(names)),
		slog.Int("count", len(routes)),
		slog.Int("callbacks", len(reg.ListCallbacks())),
	)
	return routes
}
