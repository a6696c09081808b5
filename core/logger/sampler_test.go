package logger

import (
	"context"
	"fmt"
	"testing"

	coreconfig "github.com/m3rciful/workbot/core/config"
)

func TestComponentSamplersUseOverrides(t *testing.T) {
	cfg := coreconfig.Defaults()
	cfg.Logging.DebugSample = "1/3"
	cfg.Logging.ComponentSample = map[string]string{
		CompRedmine: "off",
		CompSender:  "2/4",
	}
	cs := newComponentSamplers(cfg, false)

	count := func(comp string, n int) int {
		passed := 0
		for i := 0; i < n; i++ {
			if cs.allow(comp) {
				passed++
			}
		}
		return passed
	}
	if got := count(CompTG, 9); got != 3 {
		t.Fatalf("tg passed %d of 9, want 3", got)
	}
	if got := count(CompRedmine, 9); got != 9 {
		t.Fatalf("redmine passed %d of 9, want 9", got)
	}
	if got := count(CompSender, 8); got != 4 {
		t.Fatalf("sender passed %d of 8, want 4", got)
	}
	// separate counters: tg traffic above did not consume the otrs share
	if !cs.allow(CompOTRS) {
		t.Fatalf("first otrs record should pass")
	}
}

func TestComponentSamplersTrace(t *testing.T) {
	cs := newComponentSamplers(nil, true)
	for i := 0; i < 10; i++ {
		if !cs.allow(CompTG) {
			t.Fatalf("trace should let every record through")
		}
	}
}

func TestRatioOrDefault(t *testing.T) {
	cases := map[string][2]int{
		"":      {1, 50},
		"1/10":  {1, 10},
		"20":    {1, 20},
		"0":     {0, 0},
		"off":   {0, 0},
		"x/y":   {1, 50},
		"-1/5":  {1, 50},
		" 3/4 ": {3, 4},
	}
	for in, want := range cases {
		if got := ratioOrDefault(in); got != want {
			t.Fatalf("ratioOrDefault(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestStatus(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{nil, "ok"},
		{fmt.Errorf("redmine: %w", context.DeadlineExceeded), "timeout"},
		{context.Canceled, "cancelled"},
		{fmt.Errorf("boom"), "fail"},
	}
	for _, tc := range cases {
		if got := Status(tc.err); got != tc.want {
			t.Fatalf("Status(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}
