// Package router classifies inbound chat events and hands them to command
// handlers, button handlers or the conversation state machine.
package router

import (
	"errors"
	"strings"

	"backoffice/internal/callback"
	"backoffice/internal/domain"
	"backoffice/internal/flow"
	"backoffice/internal/notify"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EventKind classifies inbound events
type EventKind int

const (
	EventText EventKind = iota
	EventPhoto
	EventCommand
	EventCallback
)

func (k EventKind) String() string {
	switch k {
	case EventText:
		return "text"
	case EventPhoto:
		return "photo"
	case EventCommand:
		return "command"
	case EventCallback:
		return "callback"
	}
	return "unknown"
}

// Event is a transport-neutral inbound update
type Event struct {
	ID          string
	Kind        EventKind
	UserID      int64
	ChatID      int64
	ThreadID    int
	Private     bool
	Username    string
	DisplayName string

	Text    string
	Caption string
	PhotoID string
	Message *domain.MessageRef

	Command string
	Payload string

	Data  string
	Token callback.Token
}

// Input converts a text or photo event to flow input
func (ev *Event) Input() flow.Input {
	return flow.Input{Text: ev.Text, Caption: ev.Caption, PhotoID: ev.PhotoID, Source: ev.Message}
}

// Responder answers in the context of the event
type Responder interface {
	// Reply sends a new message to the event's chat
	Reply(text string, kb notify.Keyboard) error
	// Edit rewrites the message a button belongs to, or replies when there is none
	Edit(text string, kb notify.Keyboard) error
	// Answer acknowledges a button press, a no-op for other events
	Answer(text string, alert bool) error
}

// HandlerFunc handles a command or a button
type HandlerFunc func(ev *Event, r Responder) error

// CompletionFunc handles a finished form
type CompletionFunc func(ev *Event, r Responder, c *flow.Completion) error

// Authorizer tells moderators apart
type Authorizer interface {
	IsModerator(userID int64) bool
}

// Texts are the router's own user-facing messages
type Texts struct {
	Cancel          string
	Cancelled       string
	NothingToCancel string
	Denied          string
	Unrecognized    string
	Failure         string
}

// DefaultTexts returns English texts
func DefaultTexts() Texts {
	return Texts{
		Cancel:          "❌ Cancel",
		Cancelled:       "Operation cancelled.",
		NothingToCancel: "There is nothing to cancel.",
		Denied:          "⛔ This action is reserved to administrators.",
		Unrecognized:    "I didn't understand that. Use /start to open the menu.",
		Failure:         "Something went wrong, please try again later.",
	}
}

// VerbCancel is the callback verb of the cancel button
const VerbCancel = "cancel"

type route struct {
	handler       HandlerFunc
	moderatorOnly bool
}

// Router dispatches events
type Router struct {
	machine     *flow.Machine
	auth        Authorizer
	logger      *zap.Logger
	texts       Texts
	commands    map[string]route
	callbacks   map[string]route
	completions map[string]CompletionFunc
	fallback    HandlerFunc
	afterCancel HandlerFunc
}

// New creates a router with the built-in cancel command and button
func New(machine *flow.Machine, auth Authorizer, logger *zap.Logger) *Router {
	r := &Router{
		machine:     machine,
		auth:        auth,
		logger:      logger,
		texts:       DefaultTexts(),
		commands:    make(map[string]route),
		callbacks:   make(map[string]route),
		completions: make(map[string]CompletionFunc),
	}
	r.Command("cancel", r.handleCancel)
	r.Callback(VerbCancel, r.handleCancel)
	return r
}

// SetTexts overrides user-facing texts
func (r *Router) SetTexts(t Texts) {
	r.texts = t
}

// Texts returns the configured texts
func (r *Router) Texts() Texts {
	return r.texts
}

// Machine exposes the state machine for form registration
func (r *Router) Machine() *flow.Machine {
	return r.machine
}

// IsModerator checks the authorizer
func (r *Router) IsModerator(userID int64) bool {
	return r.auth.IsModerator(userID)
}

// Command registers a command without its leading slash
func (r *Router) Command(name string, h HandlerFunc) {
	r.commands[name] = route{handler: h}
}

// ModeratorCommand registers a command reserved to moderators
func (r *Router) ModeratorCommand(name string, h HandlerFunc) {
	r.commands[name] = route{handler: h, moderatorOnly: true}
}

// Callback registers a button verb
func (r *Router) Callback(verb string, h HandlerFunc) {
	r.callbacks[verb] = route{handler: h}
}

// ModeratorCallback registers a button verb reserved to moderators
func (r *Router) ModeratorCallback(verb string, h HandlerFunc) {
	r.callbacks[verb] = route{handler: h, moderatorOnly: true}
}

// OnComplete registers the handler of a finished form
func (r *Router) OnComplete(form string, h CompletionFunc) {
	r.completions[form] = h
}

// Fallback handles unrecognized private input
func (r *Router) Fallback(h HandlerFunc) {
	r.fallback = h
}

// AfterCancel replaces the default cancellation reply
func (r *Router) AfterCancel(h HandlerFunc) {
	r.afterCancel = h
}

// CancelButton is the row appended to every prompt
func (r *Router) CancelButton() []notify.Button {
	return notify.Row(notify.Btn(r.texts.Cancel, callback.New(VerbCancel)))
}

// Dispatch routes one event. Advisory failures are answered here; the
// returned error is only for failures the caller should log.
func (r *Router) Dispatch(ev *Event, resp Responder) error {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	log := r.logger.With(
		zap.String("event_id", ev.ID),
		zap.Int64("user_id", ev.UserID),
		zap.Stringer("kind", ev.Kind),
	)

	var err error
	switch ev.Kind {
	case EventCallback:
		err = r.dispatchCallback(ev, resp, log)
	case EventCommand:
		err = r.dispatchCommand(ev, resp, log)
	default:
		err = r.dispatchInput(ev, resp, log)
	}

	if err != nil {
		log.Error("Event handling failed", zap.Error(err))
		if ev.Kind == EventCallback {
			_ = resp.Answer(r.texts.Failure, true)
		} else {
			_ = resp.Reply(r.texts.Failure, nil)
		}
	}
	return err
}

func (r *Router) dispatchCallback(ev *Event, resp Responder, log *zap.Logger) error {
	tok, err := callback.Parse(ev.Data)
	if err != nil {
		log.Warn("Dropping malformed callback", zap.String("data", ev.Data), zap.Error(err))
		return resp.Answer("", false)
	}
	ev.Token = tok

	rt, ok := r.callbacks[tok.Verb]
	if !ok {
		log.Warn("Unknown callback verb", zap.String("verb", tok.Verb))
		return resp.Answer("", false)
	}
	if rt.moderatorOnly && !r.auth.IsModerator(ev.UserID) {
		log.Warn("Denied moderator callback", zap.String("verb", tok.Verb))
		return resp.Answer(r.texts.Denied, true)
	}

	log.Debug("Handling callback", zap.String("data", tok.Encode()))
	return rt.handler(ev, resp)
}

func (r *Router) dispatchCommand(ev *Event, resp Responder, log *zap.Logger) error {
	name := strings.ToLower(ev.Command)
	rt, ok := r.commands[name]
	if !ok {
		return r.unrecognized(ev, resp)
	}
	if rt.moderatorOnly && !r.auth.IsModerator(ev.UserID) {
		log.Warn("Denied moderator command", zap.String("command", name))
		return resp.Reply(r.texts.Denied, nil)
	}

	log.Debug("Handling command", zap.String("command", name))
	return rt.handler(ev, resp)
}

func (r *Router) dispatchInput(ev *Event, resp Responder, log *zap.Logger) error {
	state, _, err := r.machine.Current(ev.UserID)
	if err != nil {
		return err
	}
	if state == nil {
		return r.unrecognized(ev, resp)
	}

	if f, ok := r.machine.Form(state.Form); ok && f.ModeratorOnly && !r.auth.IsModerator(ev.UserID) {
		log.Warn("Dropping moderator form of a non-moderator", zap.String("form", state.Form))
		if _, err := r.machine.Cancel(ev.UserID); err != nil {
			return err
		}
		return resp.Reply(r.texts.Denied, nil)
	}

	return r.SubmitInput(ev, resp, ev.Input())
}

// SubmitInput offers input to the user's flow and replies with the outcome
func (r *Router) SubmitInput(ev *Event, resp Responder, in flow.Input) error {
	out, err := r.machine.Submit(ev.UserID, in)
	if errors.Is(err, domain.ErrNoActiveFlow) {
		return r.unrecognized(ev, resp)
	}
	if err != nil {
		return err
	}

	switch {
	case out.Invalid != nil:
		return resp.Reply("⚠️ "+out.Invalid.Message+"\n\n"+out.Retry.Text, r.promptKeyboard(*out.Retry))
	case out.Next != nil:
		return resp.Reply(out.Next.Text, r.promptKeyboard(*out.Next))
	case out.Completed != nil:
		h, ok := r.completions[out.Completed.Form]
		if !ok {
			r.logger.Warn("No completion handler", zap.String("form", out.Completed.Form))
			return nil
		}
		return h(ev, resp, out.Completed)
	}
	return nil
}

// StartForm starts a form for the event's user and shows the first prompt
func (r *Router) StartForm(ev *Event, resp Responder, form string, seed domain.Fields) error {
	prompt, err := r.machine.Start(ev.UserID, form, seed)
	if err != nil {
		return err
	}
	if ev.Kind == EventCallback {
		return resp.Edit(prompt.Text, r.promptKeyboard(prompt))
	}
	return resp.Reply(prompt.Text, r.promptKeyboard(prompt))
}

func (r *Router) promptKeyboard(p flow.Prompt) notify.Keyboard {
	return p.Keyboard.With(r.CancelButton())
}

func (r *Router) unrecognized(ev *Event, resp Responder) error {
	// group chats are noisy, stay silent there
	if !ev.Private {
		return resp.Answer("", false)
	}
	if r.fallback != nil {
		return r.fallback(ev, resp)
	}
	return resp.Reply(r.texts.Unrecognized, nil)
}

func (r *Router) handleCancel(ev *Event, resp Responder) error {
	existed, err := r.machine.Cancel(ev.UserID)
	if err != nil {
		return err
	}
	if ev.Kind == EventCallback {
		_ = resp.Answer("", false)
	}
	if r.afterCancel != nil {
		return r.afterCancel(ev, resp)
	}
	if !existed {
		return resp.Reply(r.texts.NothingToCancel, nil)
	}
	return resp.Edit(r.texts.Cancelled, nil)
}
