package commands

import (
	tele "gopkg.in/telebot.v4"
)

// Command is one registered slash command. Hidden commands stay out of
// the /help listing and the Telegram command menu; AdminOnly ones are
// additionally gated to the operator chat by the command router.
type Command struct {
	Handler     tele.HandlerFunc
	Description string
	AdminOnly   bool
	Hidden      bool
	Aliases     []string
}
