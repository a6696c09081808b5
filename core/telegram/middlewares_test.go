package telegram

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	tele "gopkg.in/telebot.v4"
)

type chainContext struct {
	tele.Context
	mu    sync.Mutex
	store map[string]any
	sent  []string
}

func newChainContext() *chainContext {
	return &chainContext{store: map[string]any{}}
}

func (c *chainContext) Update() tele.Update {
	return tele.Update{ID: 9, Message: &tele.Message{Text: "/otrs 1"}}
}
func (c *chainContext) Sender() *tele.User { return &tele.User{ID: 5} }
func (c *chainContext) Chat() *tele.Chat   { return &tele.Chat{ID: 5, Type: tele.ChatPrivate} }

func (c *chainContext) Get(key string) any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store[key]
}

func (c *chainContext) Set(key string, v any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store[key] = v
}

func (c *chainContext) Send(what any, _ ...any) error {
	c.sent = append(c.sent, fmt.Sprint(what))
	return nil
}

// chain applies mws the way tele.Bot.Use does: the first one is outermost.
func chain(mws []Middleware, h tele.HandlerFunc) tele.HandlerFunc {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i].Use(h)
	}
	return h
}

func TestDefaultMiddlewaresReportHandlerError(t *testing.T) {
	boom := errors.New("otrs: session expired")
	c := newChainContext()
	err := chain(DefaultMiddlewares(nil, nil), func(tele.Context) error { return boom })(c)
	if !errors.Is(err, boom) {
		t.Fatalf("error = %v, want %v", err, boom)
	}
	if len(c.sent) != 1 || c.sent[0] != "Internal exception: otrs: session expired" {
		t.Fatalf("sent = %q", c.sent)
	}
}

func TestDefaultMiddlewaresReportPanic(t *testing.T) {
	c := newChainContext()
	err := chain(DefaultMiddlewares(nil, nil), func(tele.Context) error { panic("index out of range") })(c)
	if err == nil || !strings.Contains(err.Error(), "index out of range") {
		t.Fatalf("error = %v", err)
	}
	if len(c.sent) != 1 || c.sent[0] != "Internal exception: panic: index out of range" {
		t.Fatalf("sent = %q", c.sent)
	}
}
