package approval

import (
	"errors"
	"fmt"

	"backoffice/internal/domain"
	"backoffice/internal/flow"
	"backoffice/internal/notify"
	"backoffice/internal/router"

	"github.com/AlekSi/pointer"
	"go.uber.org/zap"
)

// Sub-forms started from moderator buttons
const (
	FormRejectReason = "reject_reason"
	FormCustomNotice = "custom_notice"
	FormReply        = "reply_message"
)

const (
	fieldKind   = "kind"
	fieldRecord = "record_id"
	fieldText   = "text"
)

type routes struct {
	engine *Engine
	router *router.Router
	logger *zap.Logger
}

// Bind registers the moderator buttons and sub-forms of every kind
// registered so far
func (e *Engine) Bind(r *router.Router) {
	rt := &routes{engine: e, router: r, logger: e.logger}

	r.Machine().Register(
		flow.Form{Name: FormRejectReason, Flow: domain.FlowAdminAction, ModeratorOnly: true, Steps: []flow.Step{
			{Field: fieldText, Kind: flow.KindText, Prompt: "✏️ Write the reason for the rejection:"},
		}},
		flow.Form{Name: FormCustomNotice, Flow: domain.FlowAdminAction, ModeratorOnly: true, Steps: []flow.Step{
			{Field: fieldText, Kind: flow.KindText, Prompt: "✏️ Write the message for the requester:"},
		}},
		flow.Form{Name: FormReply, Flow: domain.FlowAdminAction, ModeratorOnly: true, Steps: []flow.Step{
			{Field: fieldText, Kind: flow.KindText, Prompt: "✏️ Write your reply:"},
		}},
	)

	for _, kind := range e.order {
		r.ModeratorCallback(e.kinds[kind].Verb, rt.decide)
	}
	r.ModeratorCallback(VerbNotice, rt.notice)
	r.ModeratorCallback(VerbReply, rt.reply)

	r.OnComplete(FormRejectReason, rt.completeReject)
	r.OnComplete(FormCustomNotice, rt.completeNotice)
	r.OnComplete(FormReply, rt.completeReply)
}

// ErrorText maps engine errors to a moderator-facing message
func ErrorText(err error) string {
	var verr *domain.ValidationError
	switch {
	case errors.Is(err, domain.ErrAlreadyTerminal):
		return "ℹ️ This request has already been handled."
	case errors.Is(err, domain.ErrNotFound):
		return "❓ Request not found."
	case errors.Is(err, domain.ErrNotAuthorized):
		return "⛔ Not authorized."
	case errors.As(err, &verr):
		return "⚠️ " + verr.Message
	}
	return "⚠️ The operation failed, try again."
}

// advise answers the button with an error message. Only unexpected errors
// are logged.
func (rt *routes) advise(resp router.Responder, err error) error {
	if !errors.Is(err, domain.ErrAlreadyTerminal) && !errors.Is(err, domain.ErrNotFound) && !errors.Is(err, domain.ErrNotAuthorized) {
		rt.logger.Error("Moderator action failed", zap.Error(err))
	}
	return resp.Answer(ErrorText(err), true)
}

// decide handles <verb>:<decision>:<id>
func (rt *routes) decide(ev *router.Event, resp router.Responder) error {
	k, ok := rt.engine.byVerb[ev.Token.Verb]
	if !ok || ev.Token.Expect(2) != nil {
		return resp.Answer("", false)
	}
	d, err := domain.ParseDecision(ev.Token.Arg(0))
	if err != nil {
		return resp.Answer("", false)
	}
	id := ev.Token.Tail(1)
	kind := k.Kind.Kind

	if d == domain.DecisionReject {
		if _, err := rt.engine.Check(kind, id, ev.UserID, d); err != nil {
			return rt.advise(resp, err)
		}
		return rt.startForm(ev, resp, FormRejectReason, kind, id)
	}

	rec, err := rt.engine.Decide(kind, id, ev.UserID, d, nil)
	if err != nil {
		return rt.advise(resp, err)
	}
	return resp.Answer(fmt.Sprintf("%s #%s: %s", k.Title, rec.ID, StatusLabel(rec.Status)), false)
}

// notice handles notice:<kind>:<standard|custom>:<id>
func (rt *routes) notice(ev *router.Event, resp router.Responder) error {
	if ev.Token.Expect(3) != nil {
		return resp.Answer("", false)
	}
	kind := domain.RecordKind(ev.Token.Arg(0))
	id := ev.Token.Tail(2)

	switch ev.Token.Arg(1) {
	case NoticeStandard:
		if _, err := rt.engine.SendNotice(kind, id, ev.UserID, nil); err != nil {
			return rt.advise(resp, err)
		}
		return resp.Answer("📨 Notice sent", false)
	case NoticeCustom:
		rec, err := rt.engine.Get(kind, id)
		if err != nil {
			return rt.advise(resp, err)
		}
		if k, _ := rt.engine.lookup(kind); !rt.engine.awaitingNotice(k, rec) {
			return rt.advise(resp, domain.ErrAlreadyTerminal)
		}
		return rt.startForm(ev, resp, FormCustomNotice, kind, id)
	}
	return resp.Answer("", false)
}

// reply handles reply:<kind>:<id>
func (rt *routes) reply(ev *router.Event, resp router.Responder) error {
	if ev.Token.Expect(2) != nil {
		return resp.Answer("", false)
	}
	kind := domain.RecordKind(ev.Token.Arg(0))
	id := ev.Token.Tail(1)
	if _, err := rt.engine.Get(kind, id); err != nil {
		return rt.advise(resp, err)
	}
	return rt.startForm(ev, resp, FormReply, kind, id)
}

// startForm opens a sub-form with a fresh message, keeping the record's
// moderator copy and its buttons intact. Buttons pressed in a group get the
// prompt in the moderator's private chat, where the bot sees free text
// regardless of the group privacy mode.
func (rt *routes) startForm(ev *router.Event, resp router.Responder, form string, kind domain.RecordKind, id string) error {
	seed := domain.Fields{fieldKind: string(kind), fieldRecord: id}
	prompt, err := rt.router.Machine().Start(ev.UserID, form, seed)
	if err != nil {
		return err
	}
	text := fmt.Sprintf("#%s\n%s", id, prompt.Text)
	kb := prompt.Keyboard.With(rt.router.CancelButton())

	if !ev.Private {
		_, err := rt.engine.notifier.Send(notify.To(ev.UserID), notify.Message{Text: text, Keyboard: kb})
		if err == nil {
			return resp.Answer("✉️ Continue in your private chat with the bot", false)
		}
		rt.logger.Warn("Private prompt failed, asking in the group",
			zap.Int64("moderator_id", ev.UserID),
			zap.String("record_id", id),
			zap.Error(err),
		)
	}
	_ = resp.Answer("", false)
	return resp.Reply(text, kb)
}

func completionTarget(c *flow.Completion) (domain.RecordKind, string) {
	return domain.RecordKind(c.Fields[fieldKind]), c.Fields[fieldRecord]
}

func (rt *routes) completeReject(ev *router.Event, resp router.Responder, c *flow.Completion) error {
	kind, id := completionTarget(c)
	rec, err := rt.engine.Decide(kind, id, ev.UserID, domain.DecisionReject, pointer.ToString(c.Fields[fieldText]))
	if err != nil {
		return resp.Reply(ErrorText(err), nil)
	}
	return resp.Reply(fmt.Sprintf("❌ #%s rejected, the requester was notified.", rec.ID), nil)
}

func (rt *routes) completeNotice(ev *router.Event, resp router.Responder, c *flow.Completion) error {
	kind, id := completionTarget(c)
	rec, err := rt.engine.SendNotice(kind, id, ev.UserID, pointer.ToString(c.Fields[fieldText]))
	if err != nil {
		return resp.Reply(ErrorText(err), nil)
	}
	return resp.Reply(fmt.Sprintf("📨 Notice for #%s sent.", rec.ID), nil)
}

func (rt *routes) completeReply(ev *router.Event, resp router.Responder, c *flow.Completion) error {
	kind, id := completionTarget(c)
	rec, err := rt.engine.Reply(kind, id, ev.UserID, c.Fields[fieldText])
	if err != nil {
		var derr *domain.DeliveryError
		if errors.As(err, &derr) {
			return resp.Reply("⚠️ The requester could not be reached.", nil)
		}
		return resp.Reply(ErrorText(err), nil)
	}
	return resp.Reply(fmt.Sprintf("💬 Reply for #%s sent.", rec.ID), nil)
}
