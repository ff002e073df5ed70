package casino

import (
	"fmt"

	"backoffice/internal/approval"
	"backoffice/internal/domain"
	"backoffice/internal/flow"
	"backoffice/internal/repository"
	"backoffice/internal/router"

	"github.com/AlekSi/pointer"
	"go.uber.org/zap"
)

const (
	formRegistration = "registration"
	formRecharge     = "recharge"
	formWithdrawal   = "withdrawal"

	fieldNickname = "nickname"
	fieldPassword = "password"
	fieldAmount   = "amount"
	fieldProof    = "proof"

	payloadUsername     = "username"
	payloadPasswordHash = "password_hash"
)

func (b *Bot) registerForms() {
	b.router.Machine().Register(
		flow.Form{Name: formRegistration, Flow: domain.FlowRegistration, Steps: []flow.Step{
			{Field: fieldNickname, Kind: flow.KindText, Prompt: "🎯 Enter a nickname to register:"},
			{Field: fieldPassword, Kind: flow.KindSecret, Prompt: "🔐 Create your password:\n🛡️ Pick a safe password you can remember"},
		}},
		flow.Form{Name: formRecharge, Flow: domain.FlowRecharge, Steps: []flow.Step{
			{Field: fieldNickname, Kind: flow.KindText, Prompt: "Enter your nickname to start the recharge:"},
			{Field: fieldAmount, Kind: flow.KindAmount, Prompt: "💎 Enter the recharge amount in euro (€), for example 50:"},
			{Field: fieldProof, Kind: flow.KindPhoto, Prompt: "📸 Last step: send a screenshot of the payment.\n🔐 An admin will verify it for you!"},
		}},
		flow.Form{Name: formWithdrawal, Flow: domain.FlowWithdrawal, Steps: []flow.Step{
			{Field: fieldNickname, Kind: flow.KindText, Prompt: "Enter your nickname to withdraw:"},
			{Field: fieldAmount, Kind: flow.KindAmount, Prompt: "💸 Enter the amount to withdraw in euro (€):"},
		}},
	)

	b.router.OnComplete(formRegistration, b.completeRegistration)
	b.router.OnComplete(formRecharge, b.completeRecharge)
	b.router.OnComplete(formWithdrawal, b.completeWithdrawal)
}

func rejectionNotice(what string, rec *domain.PendingRecord) string {
	return fmt.Sprintf("❌ Your %s was REJECTED.\n\n📝 Reason:\n%s\n\n📞 Contact an admin for more information.",
		what, pointer.GetString(rec.Reason))
}

func requesterLine(rec *domain.PendingRecord) string {
	username := rec.Payload[payloadUsername]
	if username == "" {
		username = "no_username"
	}
	return fmt.Sprintf("👤 Nickname: %s\n🆔 Telegram ID: %d\n📱 Username: @%s",
		rec.Payload[fieldNickname], rec.RequesterID, username)
}

func (b *Bot) registerKinds() {
	b.engine.Register(approval.Kind{
		Kind:         domain.KindRegistration,
		Table:        repository.TableRegistrations,
		Prefix:       "REG",
		Verb:         "reg_action",
		Title:        "📝 Registration",
		NoticeChoice: true,
		Summary: func(rec *domain.PendingRecord) string {
			return requesterLine(rec) + "\n🔐 Password: set (stored hashed)"
		},
		Notice: func(rec *domain.PendingRecord) string {
			if rec.Status == domain.StatusRejected {
				return rejectionNotice("registration", rec)
			}
			return fmt.Sprintf("🏆 REGISTRATION COMPLETE!\n\n🎯 Nickname: %s\n💎 Starting balance: 0€\n\n🚀 Welcome to the MisterShop Casino!",
				rec.Payload[fieldNickname])
		},
		CustomNotice: func(rec *domain.PendingRecord, text string) string {
			return fmt.Sprintf("🏆 REGISTRATION COMPLETE!\n\n📝 Message from the admin:\n%s\n\n🎯 Nickname: %s\n💎 Starting balance: 0€",
				text, rec.Payload[fieldNickname])
		},
		OnApprove: b.approveRegistration,
	})

	b.engine.Register(approval.Kind{
		Kind:         domain.KindRecharge,
		Table:        repository.TableRecharges,
		Prefix:       "RC",
		Verb:         "recharge_action",
		Title:        "📥 Recharge",
		NoticeChoice: true,
		Summary: func(rec *domain.PendingRecord) string {
			return fmt.Sprintf("%s\n💰 Requested amount: %d€", requesterLine(rec), rec.Amount)
		},
		Notice: func(rec *domain.PendingRecord) string {
			if rec.Status == domain.StatusRejected {
				return rejectionNotice("recharge request", rec)
			}
			return fmt.Sprintf("🎉 RECHARGE APPROVED!\n\n💎 Amount: %d€\n👤 Account: %s", rec.Amount, rec.Payload[fieldNickname])
		},
		CustomNotice: func(rec *domain.PendingRecord, text string) string {
			return fmt.Sprintf("🎉 RECHARGE APPROVED!\n\n📝 Message from the admin:\n%s\n\n💎 Amount: %d€\n👤 Account: %s",
				text, rec.Amount, rec.Payload[fieldNickname])
		},
	})

	b.engine.Register(approval.Kind{
		Kind:         domain.KindWithdrawal,
		Table:        repository.TableWithdrawals,
		Prefix:       "WD",
		Verb:         "withdraw_action",
		Title:        "💸 Withdrawal",
		NoticeChoice: true,
		Summary: func(rec *domain.PendingRecord) string {
			return fmt.Sprintf("%s\n💰 Requested amount: %d€", requesterLine(rec), rec.Amount)
		},
		Notice: func(rec *domain.PendingRecord) string {
			if rec.Status == domain.StatusRejected {
				return rejectionNotice("withdrawal request", rec)
			}
			return fmt.Sprintf("💸 EXPRESS WITHDRAWAL APPROVED!\n\n💰 Amount: %d€\n👤 Account: %s\n\n🏦 Payment within 24h",
				rec.Amount, rec.Payload[fieldNickname])
		},
		CustomNotice: func(rec *domain.PendingRecord, text string) string {
			return fmt.Sprintf("💸 EXPRESS WITHDRAWAL APPROVED!\n\n📝 Message from the admin:\n%s\n\n💰 Amount: %d€\n👤 Account: %s",
				text, rec.Amount, rec.Payload[fieldNickname])
		},
	})
}

// approveRegistration creates the account. Balances are never touched by
// recharge or withdrawal approvals; admins edit them from the panel.
func (b *Bot) approveRegistration(rec *domain.PendingRecord) error {
	acc, err := b.accounts.Register(domain.UserAccount{
		UserID:       rec.RequesterID,
		DisplayName:  rec.RequesterName,
		Username:     rec.Payload[payloadUsername],
		Nickname:     rec.Payload[fieldNickname],
		PasswordHash: rec.Payload[payloadPasswordHash],
	})
	if err != nil {
		return err
	}
	b.logger.Info("Account registered", zap.Int64("user_id", acc.UserID), zap.String("record_id", rec.ID))
	return nil
}

func newRecord(ev *router.Event, kind domain.RecordKind, c *flow.Completion) *domain.PendingRecord {
	return &domain.PendingRecord{
		Kind:          kind,
		RequesterID:   c.UserID,
		RequesterName: ev.DisplayName,
		Payload: domain.Fields{
			fieldNickname:   c.Fields[fieldNickname],
			payloadUsername: ev.Username,
		},
	}
}

func (b *Bot) submit(resp router.Responder, rec *domain.PendingRecord, done string) error {
	if _, err := b.engine.Submit(rec); err != nil {
		return err
	}
	return resp.Reply(done, nil)
}

func (b *Bot) completeRegistration(ev *router.Event, resp router.Responder, c *flow.Completion) error {
	rec := newRecord(ev, domain.KindRegistration, c)
	rec.Payload[payloadPasswordHash] = c.Fields[fieldPassword]
	return b.submit(resp, rec, "🎩 Registration sent!\n\n⚡ An admin is processing your request.\n🏆 You'll get a confirmation soon!")
}

func (b *Bot) completeRecharge(ev *router.Event, resp router.Responder, c *flow.Completion) error {
	amount, err := c.Fields.Int(fieldAmount)
	if err != nil {
		return err
	}
	rec := newRecord(ev, domain.KindRecharge, c)
	rec.Amount = amount
	rec.ProofPhotoID = c.Fields[fieldProof]
	return b.submit(resp, rec, "📸 Screenshot received!\n\n🎩 An admin is checking the payment.\n⚡ You'll be notified as soon as it's verified.")
}

func (b *Bot) completeWithdrawal(ev *router.Event, resp router.Responder, c *flow.Completion) error {
	amount, err := c.Fields.Int(fieldAmount)
	if err != nil {
		return err
	}
	rec := newRecord(ev, domain.KindWithdrawal, c)
	rec.Amount = amount
	return b.submit(resp, rec, "💸 Express withdrawal request sent!\n\n🎩 An admin is verifying your balance.\n⚡ You'll be notified soon.")
}
