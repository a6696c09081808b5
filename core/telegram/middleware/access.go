package middleware

import tele "gopkg.in/telebot.v4"

// AllowListOptions defines how privileged checks behave.
type AllowListOptions struct {
	// Allowed reports whether the user may pass. Nil rejects everyone.
	Allowed  func(userID int64) bool
	OnReject tele.HandlerFunc
}

// AllowListMiddleware lets only allowed users reach downstream handlers.
// Rejected updates go to OnReject when set and are dropped otherwise.
func AllowListMiddleware(opts AllowListOptions) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			user := c.Sender()
			if user != nil && opts.Allowed != nil && opts.Allowed(user.ID) {
				return next(c)
			}
			if opts.OnReject != nil {
				return opts.OnReject(c)
			}
			return nil
		}
	}
}
