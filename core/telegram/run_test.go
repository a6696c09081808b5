package telegram

import (
	"testing"
	"time"

	coreconfig "github.com/m3rciful/workbot/core/config"

	tele "gopkg.in/telebot.v4"
)

func TestPollerForLongpoll(t *testing.T) {
	cfg := coreconfig.Defaults()
	cfg.Telegram.LongPollTimeoutSeconds = 0

	lp, ok := pollerFor(cfg).(*tele.LongPoller)
	if !ok {
		t.Fatalf("poller = %T, want *tele.LongPoller", pollerFor(cfg))
	}
	if lp.Timeout != defaultLongPollTimeout {
		t.Fatalf("timeout = %v", lp.Timeout)
	}
	if len(lp.AllowedUpdates) != 2 {
		t.Fatalf("allowed updates = %v", lp.AllowedUpdates)
	}

	cfg.Telegram.LongPollTimeoutSeconds = 25
	if got := pollerFor(cfg).(*tele.LongPoller).Timeout; got != 25*time.Second {
		t.Fatalf("timeout = %v", got)
	}
}

func TestPollerForWebhook(t *testing.T) {
	cfg := coreconfig.Defaults()
	cfg.Telegram.RunMode = coreconfig.RunModeWebhook
	cfg.Webhook.Listen = "0.0.0.0"
	cfg.Webhook.Port = 8443
	cfg.Webhook.URL = "https://bot.example.com/hook"

	wh, ok := pollerFor(cfg).(*tele.Webhook)
	if !ok {
		t.Fatalf("poller = %T, want *tele.Webhook", pollerFor(cfg))
	}
	if wh.Listen != "0.0.0.0:8443" || wh.Endpoint.PublicURL != cfg.Webhook.URL {
		t.Fatalf("webhook = %+v", wh)
	}
}
