package middleware

import (
	"log/slog"

	"github.com/m3rciful/workbot/core/logger"
	tghelpers "github.com/m3rciful/workbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// InternalErrorMiddleware reports handler errors to the user as
// "Internal exception: <err>" and still returns the error so the bot's
// OnError hook sees it.
func InternalErrorMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		err := next(c)
		if err == nil {
			return nil
		}
		if sendErr := c.Send("Internal exception: " + err.Error()); sendErr != nil {
			logger.Warn(tghelpers.BuildContext(c), logger.CompTG, "error.reply",
				slog.String("status", "fail"),
				slog.String("err", sendErr.Error()),
			)
		}
		return err
	}
}
