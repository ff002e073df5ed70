package handler

import (
	"strings"

	"backoffice/internal/notify"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"
)

// responder answers through the telebot context of one update
type responder struct {
	c        tele.Context
	threadID int
	logger   *zap.Logger
	answered bool
}

func newResponder(c tele.Context, threadID int, logger *zap.Logger) *responder {
	return &responder{c: c, threadID: threadID, logger: logger}
}

func (r *responder) options(kb notify.Keyboard) *tele.SendOptions {
	return &tele.SendOptions{ThreadID: r.threadID, ReplyMarkup: notify.Markup(kb)}
}

func (r *responder) Reply(text string, kb notify.Keyboard) error {
	return r.c.Send(text, r.options(kb))
}

// Edit rewrites the message of a button. Photo messages get a new caption.
// When editing fails the text is sent as a new message.
func (r *responder) Edit(text string, kb notify.Keyboard) error {
	cb := r.c.Callback()
	if cb == nil || cb.Message == nil {
		return r.Reply(text, kb)
	}

	opts := &tele.SendOptions{ReplyMarkup: notify.Markup(kb)}
	var err error
	if cb.Message.Photo != nil {
		err = r.c.EditCaption(text, opts)
	} else {
		err = r.c.Edit(text, opts)
	}
	if r.handleEditError(err) {
		return nil
	}
	return r.Reply(text, kb)
}

// handleEditError reports whether the edit can be considered done. A
// message that is not modified was already edited by another callback.
func (r *responder) handleEditError(err error) bool {
	if err == nil {
		return true
	}
	if strings.Contains(err.Error(), "message is not modified") {
		r.logger.Debug("Message already modified by another callback",
			zap.Int64("user_id", r.c.Sender().ID),
			zap.String("callback_id", r.c.Callback().ID),
		)
		return true
	}

	r.logger.Warn("Failed to edit message, sending new",
		zap.Error(err),
		zap.Int64("user_id", r.c.Sender().ID),
		zap.String("callback_id", r.c.Callback().ID),
	)
	return false
}

// Answer acknowledges the button. Telegram takes one answer per callback,
// later ones are dropped.
func (r *responder) Answer(text string, alert bool) error {
	if r.c.Callback() == nil || r.answered {
		return nil
	}
	r.answered = true
	return r.c.Respond(&tele.CallbackResponse{Text: text, ShowAlert: alert})
}

// finish stops the loading spinner of a callback nobody answered
func (r *responder) finish() {
	if r.c.Callback() == nil || r.answered {
		return
	}
	if err := r.Answer("", false); err != nil {
		r.logger.Warn("Failed to acknowledge callback", zap.Error(err))
	}
}
