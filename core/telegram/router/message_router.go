package router

import (
	"time"

	tg "github.com/m3rciful/workbot/core/telegram"

	tele "gopkg.in/telebot.v4"
)

// TextOptions controls handling of non-command messages. Text falls back to
// the registry's text fallback when unset.
type TextOptions struct {
	Text     tele.HandlerFunc
	Document tele.HandlerFunc
}

// TextRoutes builds handlers for free text and document messages.
func TextRoutes(reg *tg.Registry, opts TextOptions) []tg.Route {
	text := opts.Text
	if text == nil && reg != nil {
		text = reg.TextFallback()
	}
	document := opts.Document
	if document == nil {
		document = text
	}

	wrap := func(name string, h tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			start := time.Now()
			if h == nil {
				logHandlerSummary(c, name, start, "skip", nil)
				return nil
			}
			return handleWithSummary(c, name, start, func() error { return h(c) })
		}
	}

	return []tg.Route{
		{Endpoint: tele.OnText, Handler: wrap("text", text)},
		{Endpoint: tele.OnDocument, Handler: wrap("document", document)},
	}
}
