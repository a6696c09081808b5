package assistant

import (
	"reflect"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestClock(t *testing.T) {
	cases := []struct {
		hours float64
		want  string
	}{
		{0, "00:00"},
		{1.5, "01:30"},
		{2.25, "02:15"},
		{0.3333333, "00:20"},
		{12, "12:00"},
	}
	for _, tc := range cases {
		if got := clockHours(tc.hours); got != tc.want {
			t.Fatalf("clockHours(%v) = %q, want %q", tc.hours, got, tc.want)
		}
	}
	if got := clock(90); got != "01:30" {
		t.Fatalf("clock(90) = %q", got)
	}
}

func TestParseIDs(t *testing.T) {
	got := parseIDs([]string{"123,", "456", "123", " ,789"})
	if want := []string{"123", "456", "789"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("parseIDs() = %v, want %v", got, want)
	}
	if ids := parseTicketIDs([]string{"12,abc,7,-3"}); !reflect.DeepEqual(ids, []int{12, 7}) {
		t.Fatalf("parseTicketIDs() = %v", ids)
	}
	if parseIDs(nil) != nil {
		t.Fatal("parseIDs(nil) should be empty")
	}
}

type fakeOutbox struct{ texts []string }

func (f *fakeOutbox) Reply(m Message) error {
	f.texts = append(f.texts, m.Text)
	return nil
}

func (f *fakeOutbox) Direct(Message) error { return nil }

func TestReplyBlocksSplitsOnlyWhenTooLong(t *testing.T) {
	out := &fakeOutbox{}
	req := &Request{Out: out}
	if err := replyBlocks(req, []string{"a\n", "b\n"}); err != nil {
		t.Fatalf("replyBlocks() error = %v", err)
	}
	if len(out.texts) != 1 || out.texts[0] != "a\n\nb\n" {
		t.Fatalf("texts = %q", out.texts)
	}

	out.texts = nil
	big := strings.Repeat("x", maxMessageLen-10)
	_ = replyBlocks(req, []string{big, big})
	if len(out.texts) != 2 {
		t.Fatalf("expected split into 2 messages, got %d", len(out.texts))
	}
}

func TestReplyBlocksSplitsOversizedBlockOnLines(t *testing.T) {
	line := " \\- 2024\\-03\\-01 01:30 " + strings.Repeat("y", 80)
	lines := make([]string, 120)
	for i := range lines {
		lines[i] = line
	}
	block := strings.Join(lines, "\n")
	if len(block) <= maxMessageLen {
		t.Fatalf("block too small for the test: %d", len(block))
	}

	out := &fakeOutbox{}
	if err := replyBlocks(&Request{Out: out}, []string{block}); err != nil {
		t.Fatalf("replyBlocks() error = %v", err)
	}
	if len(out.texts) < 3 {
		t.Fatalf("expected at least 3 messages, got %d", len(out.texts))
	}
	for i, text := range out.texts {
		if len(text) > maxMessageLen {
			t.Fatalf("message %d has %d bytes", i, len(text))
		}
		for _, l := range strings.Split(text, "\n") {
			if l != line {
				t.Fatalf("message %d cut a line: %q", i, l)
			}
		}
	}
	if strings.Join(out.texts, "\n") != block {
		t.Fatalf("content lost across messages")
	}
}

func TestSplitBlockLongLine(t *testing.T) {
	line := strings.Repeat("ж", 3000) // 6000 bytes
	parts := splitBlock(line, maxMessageLen)
	if len(parts) != 2 || strings.Join(parts, "") != line {
		t.Fatalf("parts = %d", len(parts))
	}
	for _, p := range parts {
		if len(p) > maxMessageLen || !utf8.ValidString(p) {
			t.Fatalf("bad part of %d bytes", len(p))
		}
	}

	escaped := strings.Repeat("a", 9) + "\\."
	parts = splitBlock(escaped, 10)
	if parts[0] != strings.Repeat("a", 9) {
		t.Fatalf("escape stranded: %q", parts)
	}
}
