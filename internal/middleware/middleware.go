// Package middleware holds the telebot middleware shared by both bots.
package middleware

import (
	"fmt"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"
)

// BanChecker tells banned users apart
type BanChecker interface {
	IsBanned(userID int64) bool
}

// Moderators are exempt from bans
type Moderators interface {
	IsModerator(userID int64) bool
}

const bannedText = "⛔ You have been banned from this bot."

// BanGuard stops updates of banned users. Moderators always pass.
func BanGuard(bans BanChecker, mods Moderators, logger *zap.Logger) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			user := c.Sender()
			if user == nil || !bans.IsBanned(user.ID) || mods.IsModerator(user.ID) {
				return next(c)
			}

			logger.Info("Blocked banned user", zap.Int64("user_id", user.ID))
			if c.Callback() != nil {
				return c.Respond(&tele.CallbackResponse{Text: bannedText, ShowAlert: true})
			}
			if chat := c.Chat(); chat != nil && chat.Type == tele.ChatPrivate {
				return c.Send(bannedText)
			}
			return nil
		}
	}
}

// Recover turns a handler panic into a logged error so polling continues
func Recover(logger *zap.Logger) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("Panic recovered",
						zap.Any("panic", r),
						zap.Int("update_id", c.Update().ID),
						zap.Stack("stack"),
					)
					err = fmt.Errorf("panic: %v", r)
				}
			}()
			return next(c)
		}
	}
}

// Logger writes one debug line per received update
func Logger(logger *zap.Logger) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			fields := []zap.Field{zap.Int("update_id", c.Update().ID)}
			if user := c.Sender(); user != nil {
				fields = append(fields, zap.Int64("user_id", user.ID), zap.String("username", user.Username))
			}
			if chat := c.Chat(); chat != nil {
				fields = append(fields, zap.Int64("chat_id", chat.ID), zap.String("chat_type", string(chat.Type)))
			}
			if cb := c.Callback(); cb != nil {
				fields = append(fields, zap.String("data", cb.Data))
			}
			logger.Debug("Update received", fields...)
			return next(c)
		}
	}
}
