package assistant

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/m3rciful/workbot/core/telegram/format"
	"github.com/m3rciful/workbot/internal/otrs"
	"github.com/m3rciful/workbot/internal/redmine"
)

// maxMessageLen is Telegram's limit for one text message.
const maxMessageLen = 4096

// parseIDs splits "/cmd 1,2 3" style arguments into unique identifiers.
func parseIDs(args []string) []string {
	seen := make(map[string]struct{})
	var ids []string
	for _, part := range strings.Split(strings.Join(args, ","), ",") {
		id := strings.TrimSpace(part)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}

// parseTicketIDs keeps only numeric identifiers.
func parseTicketIDs(args []string) []int {
	var ids []int
	for _, id := range parseIDs(args) {
		if strings.Trim(id, "0123456789") != "" {
			continue
		}
		n, err := strconv.Atoi(id)
		if err != nil {
			continue
		}
		ids = append(ids, n)
	}
	return ids
}

// clock formats minutes as HH:MM.
func clock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

func clockHours(hours float64) string {
	return clock(int(math.Round(hours * 60)))
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func errText(err error) string {
	if isTimeout(err) {
		return "request timed out"
	}
	return err.Error()
}

func errorLine(id string, err error) string {
	return format.V2(fmt.Sprintf("#%s: %s", id, errText(err))) + "\n"
}

func renderIssue(id string, issue *redmine.Issue, entries []redmine.TimeEntry) string {
	var b strings.Builder
	b.WriteString(format.V2Bold(fmt.Sprintf("#%s: %s", id, orDash(issue.Subject))) + "\n")
	assignee := "-"
	if issue.AssignedTo != nil {
		assignee = orDash(issue.AssignedTo.Name)
	}
	b.WriteString(format.V2(fmt.Sprintf("[%s] %s (%s)", orDash(issue.Status.Name), assignee, clockHours(issue.Spent()))) + "\n")
	for _, e := range entries {
		b.WriteString(format.V2(fmt.Sprintf(" - %s %s %s", orDash(e.SpentOn), clockHours(e.Hours), orDash(e.User.Name))) + "\n")
	}
	return b.String()
}

// plannedTime reads the Plantime dynamic field, which holds minutes.
func plannedTime(t *otrs.Ticket) string {
	raw, ok := t.DynamicField("Plantime")
	if !ok {
		return "-"
	}
	minutes, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return "-"
	}
	return clock(int(math.Round(minutes)))
}

// renderTicket lists internal notes whose subject starts with "(", the
// convention agents use to log spent time, e.g. "(T:0+30) call".
func renderTicket(id int, t *otrs.Ticket) string {
	var b strings.Builder
	b.WriteString(format.V2Bold(fmt.Sprintf("#%d: %s", id, orDash(t.Title))) + "\n")
	b.WriteString(format.V2(fmt.Sprintf("[%s] (%s)", orDash(t.State), plannedTime(t))) + "\n")
	for _, art := range t.Articles {
		if !art.InternalNote() || !strings.HasPrefix(art.Subject, "(") {
			continue
		}
		b.WriteString(format.V2(fmt.Sprintf(" - %s (%s): %s", orDash(art.CreatedAt()), orDash(art.FromRealname), art.Subject)) + "\n")
	}
	return b.String()
}

// replyBlocks sends blocks in one MarkdownV2 message, splitting only when
// the message would exceed Telegram's size limit.
func replyBlocks(req *Request, blocks []string) error {
	var b strings.Builder
	flush := func() error {
		if b.Len() == 0 {
			return nil
		}
		err := req.Out.Reply(Message{Text: b.String(), Markdown: true})
		b.Reset()
		return err
	}
	for _, block := range blocks {
		for _, part := range splitBlock(block, maxMessageLen) {
			if b.Len() > 0 && b.Len()+len(part)+1 > maxMessageLen {
				if err := flush(); err != nil {
					return err
				}
			}
			if b.Len() > 0 {
				b.WriteString("\n")
			}
			b.WriteString(part)
		}
	}
	return flush()
}

// splitBlock cuts a block longer than limit on line boundaries. A single
// line over the limit is cut at a rune boundary that does not strand a
// MarkdownV2 escape.
func splitBlock(block string, limit int) []string {
	if len(block) <= limit {
		return []string{block}
	}
	var parts []string
	var b strings.Builder
	emit := func() {
		if b.Len() > 0 {
			parts = append(parts, b.String())
			b.Reset()
		}
	}
	for _, line := range strings.Split(block, "\n") {
		for len(line) > limit {
			emit()
			cut := cutPoint(line, limit)
			parts = append(parts, line[:cut])
			line = line[cut:]
		}
		if b.Len() > 0 && b.Len()+1+len(line) > limit {
			emit()
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)
	}
	emit()
	return parts
}

func cutPoint(line string, limit int) int {
	cut := limit
	for cut > 1 && !utf8.RuneStart(line[cut]) {
		cut--
	}
	if cut > 1 && line[cut-1] == '\\' {
		cut--
	}
	return cut
}
