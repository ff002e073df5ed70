package handler

import (
	"errors"
	"strings"

	"backoffice/internal/dispatch"
	"backoffice/internal/domain"
	"backoffice/internal/router"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"
)

// Handler turns telebot updates into router events. Every event runs on
// the dispatch queue, so router and flow state change one update at a time.
type Handler struct {
	bot    *tele.Bot
	router *router.Router
	queue  *dispatch.Queue
	logger *zap.Logger
}

// NewHandler creates a new handler instance
func NewHandler(
	bot *tele.Bot,
	router *router.Router,
	queue *dispatch.Queue,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		bot:    bot,
		router: router,
		queue:  queue,
		logger: logger,
	}
}

// RegisterHandlers registers all bot handlers. Commands arrive as text
// because the router owns the command table.
func (h *Handler) RegisterHandlers() {
	h.bot.Handle(tele.OnText, h.handleText)
	h.bot.Handle(tele.OnPhoto, h.handlePhoto)
	h.bot.Handle(tele.OnCallback, h.handleCallback)
}

func (h *Handler) handleText(c tele.Context) error {
	ev := newEvent(c, router.EventText)
	if name, payload, ok := parseCommand(ev.Text, h.bot.Me); ok {
		ev.Kind = router.EventCommand
		ev.Command = name
		ev.Payload = payload
	} else if strings.HasPrefix(ev.Text, "/") {
		// addressed to another bot
		return nil
	}
	return h.serve(c, ev)
}

func (h *Handler) handlePhoto(c tele.Context) error {
	return h.serve(c, newEvent(c, router.EventPhoto))
}

func (h *Handler) handleCallback(c tele.Context) error {
	cb := c.Callback()
	if cb == nil {
		h.logger.Warn("handleCallback: callback is nil")
		return nil
	}
	return h.serve(c, newEvent(c, router.EventCallback))
}

// serve runs the event on the queue. The router logs and answers its own
// failures, so only queue errors surface here.
func (h *Handler) serve(c tele.Context, ev *router.Event) error {
	resp := newResponder(c, ev.ThreadID, h.logger)
	err := h.queue.Do(ev.Kind.String(), func() error {
		return h.router.Dispatch(ev, resp)
	})
	resp.finish()

	if errors.Is(err, dispatch.ErrClosed) {
		h.logger.Warn("Dropping update during shutdown", zap.Int64("user_id", ev.UserID))
		return nil
	}
	if err != nil {
		h.logger.Debug("Update failed", zap.String("event_id", ev.ID), zap.Error(err))
	}
	return nil
}

// newEvent copies the parts of an update the router needs
func newEvent(c tele.Context, kind router.EventKind) *router.Event {
	ev := &router.Event{Kind: kind}

	if u := c.Sender(); u != nil {
		ev.UserID = u.ID
		ev.Username = u.Username
		ev.DisplayName = strings.TrimSpace(u.FirstName + " " + u.LastName)
	}
	if chat := c.Chat(); chat != nil {
		ev.ChatID = chat.ID
		ev.Private = chat.Type == tele.ChatPrivate
	}

	msg := c.Message()
	if cb := c.Callback(); cb != nil {
		ev.Data = cb.Data
		msg = cb.Message
	}
	if msg == nil {
		return ev
	}
	ev.ThreadID = msg.ThreadID
	if kind == router.EventCallback {
		return ev
	}

	ev.Text = strings.TrimSpace(msg.Text)
	ev.Caption = msg.Caption
	if msg.Photo != nil {
		ev.PhotoID = msg.Photo.FileID
	}
	if msg.Chat != nil {
		ev.Message = &domain.MessageRef{ChatID: msg.Chat.ID, MessageID: msg.ID}
	}
	return ev
}

// parseCommand splits "/name@bot payload". Commands addressed to another
// bot are not ours.
func parseCommand(text string, me *tele.User) (name, payload string, ok bool) {
	if !strings.HasPrefix(text, "/") {
		return "", "", false
	}
	head, payload, _ := strings.Cut(strings.TrimPrefix(text, "/"), " ")
	name, target, addressed := strings.Cut(head, "@")
	if name == "" {
		return "", "", false
	}
	if addressed && me != nil && !strings.EqualFold(target, me.Username) {
		return "", "", false
	}
	return strings.ToLower(name), strings.TrimSpace(payload), true
}
