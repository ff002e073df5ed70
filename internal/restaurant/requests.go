package restaurant

import (
	"fmt"
	"strings"

	"backoffice/internal/approval"
	"backoffice/internal/callback"
	"backoffice/internal/domain"
	"backoffice/internal/flow"
	"backoffice/internal/notify"
	"backoffice/internal/repository"
	"backoffice/internal/router"

	"go.uber.org/zap"
)

const (
	formSponsor     = "sponsor_request"
	formApplication = "job_application"

	fieldDuration = "duration"
	fieldAd       = "message"

	fieldAdditional = "additional"

	verbNothingToAdd = "no_additional_info"
	nothingToAdd     = "Nothing to add"
)

// question is one step of the job application
type question struct {
	field  string
	title  string
	prompt string
}

var applicationQuestions = []question{
	{fieldMinecraft, "🎮 Minecraft name", "Write your Minecraft name:"},
	{"telegram", "📱 Telegram", "Write your Telegram username (with @):"},
	{"presentation", "👋 Presentation", "Tell us briefly about yourself:"},
	{"reason", "❓ Motivation", "Why did you decide to apply?"},
	{"experience", "👨‍🍳 Experience", "Do you have any experience as a cook or a cashier?"},
	{"hours", "⏰ Hours", "How many hours do you usually play?"},
	{"advice", "💡 Advice", "Any advice to improve the restaurant?"},
	{"bad_employee", "⚠️ Problem employee", "An employee insults everyone, or stole 3/4 of the ingredients. What would you do if you found out?"},
	{fieldAdditional, "📝 Other", "Anything else to add? Write it here:"},
}

func applicationForm() flow.Form {
	steps := make([]flow.Step, 0, len(applicationQuestions))
	for i, q := range applicationQuestions {
		step := flow.Step{
			Field:  q.field,
			Kind:   flow.KindText,
			Prompt: fmt.Sprintf("%s\nQuestion %d/%d\n\n%s", q.title, i+1, len(applicationQuestions), q.prompt),
		}
		if q.field == fieldAdditional {
			step.Keyboard = notify.Inline(notify.Row(notify.Btn("✅ "+nothingToAdd, callback.New(verbNothingToAdd))))
		}
		steps = append(steps, step)
	}
	return flow.Form{Name: formApplication, Flow: domain.FlowJobApplication, Steps: steps}
}

func (b *Bot) registerForms() {
	b.router.Machine().Register(
		checkoutForm(),
		flow.Form{Name: formSponsor, Flow: domain.FlowSponsorRequest, Steps: []flow.Step{
			minecraftStep("🎮 What is your Minecraft name?"),
			{Field: fieldDuration, Kind: flow.KindText, Prompt: "💡 How long should the sponsorship last?\n\nFor example: 24 hours, pinned message"},
			{Field: fieldAd, Kind: flow.KindMessage, Prompt: "🔄 Send or forward the message with your sponsorship proposal:"},
			{Field: fieldProof, Kind: flow.KindPhoto, Prompt: "📸 Last step: send a screenshot of the payment."},
		}},
		applicationForm(),
	)

	b.router.Callback(verbNothingToAdd, b.nothingToAdd)
	b.router.OnComplete(formSponsor, b.completeSponsor)
	b.router.OnComplete(formApplication, b.completeApplication)
}

func (b *Bot) registerKinds() {
	b.registerOrderKind()

	b.engine.Register(approval.Kind{
		Kind:   domain.KindSponsor,
		Table:  repository.TableSponsors,
		Prefix: "S",
		Verb:   "sponsor_action",
		Title:  "📣 Sponsor request",
		Summary: func(rec *domain.PendingRecord) string {
			return fmt.Sprintf("%s\n⏰ Duration: %s\n\n💬 Message:\n%s", fromLine(rec), rec.Payload[fieldDuration], rec.Payload[fieldAd])
		},
		Notice: func(rec *domain.PendingRecord) string {
			if rec.Status == domain.StatusRejected {
				return rejected("sponsor request", rec) + "\nThanks anyway for your interest!"
			}
			return fmt.Sprintf("🎉 Your sponsor request #%s was approved! We'll contact you soon for the details.", rec.ID)
		},
		OnStatus: b.publishSponsor,
	})

	b.engine.Register(approval.Kind{
		Kind:   domain.KindApplication,
		Table:  repository.TableApplications,
		Prefix: "A",
		Verb:   "app_action",
		Title:  "👨‍🍳 Job application",
		Summary: func(rec *domain.PendingRecord) string {
			var sb strings.Builder
			sb.WriteString(fromLine(rec))
			for _, q := range applicationQuestions[1:] {
				fmt.Fprintf(&sb, "\n\n%s\n%s", q.title, rec.Payload[q.field])
			}
			return sb.String()
		},
		Notice: func(rec *domain.PendingRecord) string {
			if rec.Status == domain.StatusRejected {
				return rejected("application", rec)
			}
			return fmt.Sprintf("🎉 Your application #%s was accepted! The staff will contact you soon.", rec.ID)
		},
	})
}

// publishSponsor posts an approved ad to the sponsor channel
func (b *Bot) publishSponsor(rec *domain.PendingRecord) {
	if rec.Status != domain.StatusApproved {
		return
	}
	log := b.logger.With(zap.String("record_id", rec.ID))
	st, err := b.settings.Staff()
	if err != nil {
		log.Error("Failed to load staff settings", zap.Error(err))
		return
	}
	if st.SponsorChannelID == 0 {
		log.Info("No sponsor channel configured")
		return
	}

	to := notify.To(st.SponsorChannelID)
	if rec.SourceRef != nil {
		err = b.notifier.Forward(to, *rec.SourceRef)
	} else {
		_, err = b.notifier.Send(to, notify.Message{Text: rec.Payload[fieldAd]})
	}
	if err != nil {
		log.Warn("Failed to publish sponsor", zap.Int64("chat_id", st.SponsorChannelID), zap.Error(err))
	}
}

func (b *Bot) startSponsor(ev *router.Event, resp router.Responder) error {
	_ = resp.Answer("", false)
	return b.router.StartForm(ev, resp, formSponsor, b.knownMinecraft(ev.UserID))
}

// nothingToAdd answers the last application question from its button
func (b *Bot) nothingToAdd(ev *router.Event, resp router.Responder) error {
	_, step, err := b.router.Machine().Current(ev.UserID)
	if err != nil {
		return err
	}
	_ = resp.Answer("", false)
	if step == nil || step.Field != fieldAdditional {
		return nil
	}
	return b.router.SubmitInput(ev, resp, flow.Input{Text: nothingToAdd})
}

func (b *Bot) completeSponsor(ev *router.Event, resp router.Responder, c *flow.Completion) error {
	b.rememberMinecraft(ev, c)

	rec := newRecord(ev, domain.KindSponsor, c)
	rec.Payload[fieldDuration] = c.Fields[fieldDuration]
	rec.Payload[fieldAd] = c.Fields[fieldAd]
	rec.ProofPhotoID = c.Fields[fieldProof]
	if raw := c.Fields[fieldAd+flow.RefSuffix]; raw != "" {
		ref, err := domain.ParseMessageRef(raw)
		if err != nil {
			b.logger.Warn("Dropping bad message ref", zap.String("ref", raw), zap.Error(err))
		} else {
			rec.SourceRef = &ref
		}
	}

	if _, err := b.engine.Submit(rec); err != nil {
		return err
	}
	if rec.SourceRef != nil {
		b.forwardToStaff(rec)
	}
	return resp.Reply(fmt.Sprintf("✅ Sponsor request #%s sent!\n\n⏳ The staff will review it and let you know.", rec.ID), homeKeyboard())
}

// forwardToStaff shows the original ad next to the moderator summary
func (b *Bot) forwardToStaff(rec *domain.PendingRecord) {
	targets, err := b.audience().Targets(rec.Kind)
	if err != nil {
		b.logger.Warn("Failed to resolve staff", zap.Error(err))
		return
	}
	for _, t := range targets {
		if err := b.notifier.Forward(t, *rec.SourceRef); err != nil {
			b.logger.Warn("Failed to forward sponsor ad", zap.String("record_id", rec.ID), zap.Int64("chat_id", t.ChatID), zap.Error(err))
		}
	}
}

func (b *Bot) completeApplication(ev *router.Event, resp router.Responder, c *flow.Completion) error {
	rec := newRecord(ev, domain.KindApplication, c)
	for _, q := range applicationQuestions {
		rec.Payload[q.field] = c.Fields[q.field]
	}
	if _, err := b.engine.Submit(rec); err != nil {
		return err
	}
	return resp.Reply(fmt.Sprintf("✅ Application #%s sent!\n\n📋 The staff will review it and answer you in private.", rec.ID), homeKeyboard())
}
