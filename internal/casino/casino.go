// Package casino is the casino front desk: account registration, balance
// recharges and withdrawals approved by admins, plus the admin panel.
package casino

import (
	"backoffice/internal/approval"
	"backoffice/internal/callback"
	"backoffice/internal/notify"
	"backoffice/internal/router"
	"backoffice/internal/service"

	"go.uber.org/zap"
)

// Links shown on the home screen. Empty links are hidden.
type Links struct {
	Channel string
	Site    string
	Support string
}

// Deps are the collaborators of the casino bot
type Deps struct {
	Router   *router.Router
	Engine   *approval.Engine
	Accounts *service.AccountService
	Admins   *service.AdminService
	Notifier notify.Notifier
	Logger   *zap.Logger
	Links    Links
}

// Bot wires casino commands, buttons and forms into a router
type Bot struct {
	router   *router.Router
	engine   *approval.Engine
	accounts *service.AccountService
	admins   *service.AdminService
	notifier notify.Notifier
	logger   *zap.Logger
	links    Links
}

// home screen verbs
const (
	verbHome     = "home"
	verbRecharge = "recharge"
	verbRegister = "register"
	verbWithdraw = "withdraw"
	verbInfo     = "info"
)

// New registers everything the casino needs on d.Router
func New(d Deps) *Bot {
	b := &Bot{
		router:   d.Router,
		engine:   d.Engine,
		accounts: d.Accounts,
		admins:   d.Admins,
		notifier: d.Notifier,
		logger:   d.Logger,
		links:    d.Links,
	}

	b.registerKinds()
	b.engine.Bind(b.router)
	b.registerForms()

	r := b.router
	r.Command("start", b.start)
	r.Callback(verbHome, b.start)
	r.Callback(verbInfo, b.info)
	r.Callback(verbRecharge, b.startForm(formRecharge))
	r.Callback(verbRegister, b.startForm(formRegistration))
	r.Callback(verbWithdraw, b.startForm(formWithdrawal))
	r.AfterCancel(b.start)
	r.Fallback(b.fallback)

	b.registerPanel()
	return b
}

const welcomeText = `🎰✨ WELCOME TO THE MISTERSHOP CASINO ✨🎰

🤖 I'm Stanley, the casino robot!
🎩 Your personal assistant for:

💎 Instant recharges
🏆 Quick registration
💸 Fast withdrawals

Pick an option below:`

func (b *Bot) homeKeyboard() notify.Keyboard {
	var kb notify.Keyboard
	if b.links.Channel != "" {
		kb = append(kb, notify.Row(notify.Button{Text: "🌟 Follow our channel!", URL: b.links.Channel}))
	}
	if b.links.Site != "" {
		kb = append(kb, notify.Row(notify.Button{Text: "🎰 Visit the casino", URL: b.links.Site}))
	}
	return kb.With(
		notify.Row(
			notify.Btn("💎 Recharge balance", callback.New(verbRecharge)),
			notify.Btn("🎯 Register now", callback.New(verbRegister)),
		),
		notify.Row(
			notify.Btn("💰 Express withdrawal", callback.New(verbWithdraw)),
			notify.Btn("ℹ️ Information", callback.New(verbInfo)),
		),
	)
}

// start clears any unfinished procedure and shows the home screen
func (b *Bot) start(ev *router.Event, resp router.Responder) error {
	if _, err := b.router.Machine().Cancel(ev.UserID); err != nil {
		return err
	}
	_ = resp.Answer("", false)
	return resp.Reply(welcomeText, b.homeKeyboard())
}

func (b *Bot) info(_ *router.Event, resp router.Responder) error {
	text := `🎰✨ MISTERSHOP CASINO ✨🎰

🤖 Stanley, the casino robot

📋 Services:
💎 Instant recharges
🏆 Account registration
💸 Express withdrawals
🔐 Every request is checked by an admin`
	if b.links.Support != "" {
		text += "\n\n📞 Support: " + b.links.Support
	}
	_ = resp.Answer("", false)
	return resp.Edit(text, notify.Inline(notify.Row(notify.Btn("🔙 Back to menu", callback.New(verbHome)))))
}

func (b *Bot) startForm(form string) router.HandlerFunc {
	return func(ev *router.Event, resp router.Responder) error {
		_ = resp.Answer("", false)
		return b.router.StartForm(ev, resp, form, nil)
	}
}

func (b *Bot) fallback(_ *router.Event, resp router.Responder) error {
	return resp.Reply("🎩 Hi! I'm Stanley, the casino robot!\n\n🎰 Use /start to open the main menu.", nil)
}
