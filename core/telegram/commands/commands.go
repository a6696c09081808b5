package commands

import (
	tele "gopkg.in/telebot.v4"
)

// Command represents a bot command with its handler, description, and metadata.
type Command struct {
	Handler     tele.HandlerFunc
	Description string
	// Usage lists argument placeholders shown in help, e.g. "<id>[,<id>...]".
	Usage string
	// Privileged commands run only for users on the allow-list and are hidden from the menu.
	Privileged bool
	Hidden     bool
	Aliases    []string
}
