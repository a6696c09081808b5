package format

import (
	"fmt"
	"regexp"
)

const (
	// MarkdownV1 denotes Telegram markdown version 1.
	MarkdownV1 = 1
	// MarkdownV2 denotes Telegram markdown version 2.
	MarkdownV2 = 2
)

var (
	mdV1Re     = regexp.MustCompile("([_*`\\[])")
	mdV2Re     = regexp.MustCompile("([_*\\[\\]()~`>#+\\-=|{}.!\\\\])")
	mdV2CodeRe = regexp.MustCompile("([`\\\\])")
	mdV2LinkRe = regexp.MustCompile(`([)\\])`)
)

// EscapeMarkdown escapes special characters for MarkdownV1 or V2.
// For V2, entityType "pre" or "code" escapes only backticks and backslashes,
// "text_link" only closing parentheses and backslashes.
func EscapeMarkdown(text string, version int, entityType string) (string, error) {
	switch version {
	case MarkdownV1:
		return mdV1Re.ReplaceAllString(text, `\$1`), nil
	case MarkdownV2:
		re := mdV2Re
		switch entityType {
		case "pre", "code":
			re = mdV2CodeRe
		case "text_link":
			re = mdV2LinkRe
		}
		return re.ReplaceAllString(text, `\$1`), nil
	}
	return "", fmt.Errorf("unsupported markdown version: %d", version)
}

// V2 escapes plain text for embedding into a MarkdownV2 message.
func V2(text string) string {
	return mdV2Re.ReplaceAllString(text, `\$1`)
}

// V2Bold renders text as a bold MarkdownV2 span.
func V2Bold(text string) string {
	return "*" + V2(text) + "*"
}

// V2Code renders text as an inline MarkdownV2 code span.
func V2Code(text string) string {
	return "`" + mdV2CodeRe.ReplaceAllString(text, `\$1`) + "`"
}

// V2Link renders a MarkdownV2 inline link. An empty url yields the escaped label.
func V2Link(label, url string) string {
	if url == "" {
		return V2(label)
	}
	return "[" + V2(label) + "](" + mdV2LinkRe.ReplaceAllString(url, `\$1`) + ")"
}
