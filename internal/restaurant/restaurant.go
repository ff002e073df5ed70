// Package restaurant is the role-play restaurant: menu browsing, cart and
// checkout, sponsorship requests and job applications reviewed by staff.
package restaurant

import (
	"backoffice/internal/approval"
	"backoffice/internal/callback"
	"backoffice/internal/notify"
	"backoffice/internal/router"
	"backoffice/internal/service"

	"go.uber.org/zap"
)

// Deps are the collaborators of the restaurant bot
type Deps struct {
	Router   *router.Router
	Engine   *approval.Engine
	Profiles *service.ProfileService
	Menu     *service.MenuService
	Carts    *service.CartService
	Settings *service.SettingsService
	Admins   *service.AdminService
	Notifier notify.Notifier
	Forums   notify.Forums
	Logger   *zap.Logger
}

// Bot wires restaurant commands, buttons and forms into a router
type Bot struct {
	router   *router.Router
	engine   *approval.Engine
	profiles *service.ProfileService
	menu     *service.MenuService
	carts    *service.CartService
	settings *service.SettingsService
	admins   *service.AdminService
	notifier notify.Notifier
	forums   notify.Forums
	logger   *zap.Logger
}

const (
	verbHome        = "back_to_home"
	verbMenu        = "main_menu"
	verbSponsor     = "request_sponsor"
	verbRecruitment = "work_with_us"
	verbApply       = "start_application"
	verbHelp        = "help"
)

// New registers everything the restaurant needs on d.Router
func New(d Deps) *Bot {
	b := &Bot{
		router:   d.Router,
		engine:   d.Engine,
		profiles: d.Profiles,
		menu:     d.Menu,
		carts:    d.Carts,
		settings: d.Settings,
		admins:   d.Admins,
		notifier: d.Notifier,
		forums:   d.Forums,
		logger:   d.Logger,
	}

	b.registerKinds()
	b.engine.Bind(b.router)
	b.registerForms()

	r := b.router
	r.Command("start", b.start)
	r.Command("menu", b.categories)
	r.Command("sponsor", b.startSponsor)
	r.Command("curriculum", b.startForm(formApplication))
	r.Command("help", b.help)
	r.Callback(verbHome, b.start)
	r.Callback(verbHelp, b.help)
	r.Callback(verbSponsor, b.startSponsor)
	r.Callback(verbRecruitment, b.recruitment)
	r.Callback(verbApply, b.startForm(formApplication))
	r.AfterCancel(b.start)
	r.Fallback(b.fallback)

	b.registerShop()
	b.registerStaff()
	b.registerMenuAdmin()
	return b
}

const welcomeText = `🍔 Welcome to the restaurant!

Order from our menu, ask for a sponsorship or join the staff.
Pick an option below:`

func homeKeyboard() notify.Keyboard {
	return notify.Inline(
		notify.Row(
			notify.Btn("🍽 Menu", callback.New(verbMenu)),
			notify.Btn("🛒 Cart", callback.New(verbViewCart)),
		),
		notify.Row(
			notify.Btn("📣 Sponsor", callback.New(verbSponsor)),
			notify.Btn("👨‍🍳 Work with us", callback.New(verbRecruitment)),
		),
		notify.Row(notify.Btn("❓ Help", callback.New(verbHelp))),
	)
}

func homeRow() []notify.Button {
	return notify.Row(notify.Btn("🏠 Home", callback.New(verbHome)))
}

// start clears any unfinished procedure and shows the home screen
func (b *Bot) start(ev *router.Event, resp router.Responder) error {
	if _, err := b.router.Machine().Cancel(ev.UserID); err != nil {
		return err
	}
	if ev.Private {
		if _, err := b.profiles.Touch(ev.UserID, ev.DisplayName, ev.Username); err != nil {
			b.logger.Warn("Failed to record user", zap.Int64("user_id", ev.UserID), zap.Error(err))
		}
	}
	_ = resp.Answer("", false)
	return resp.Reply(welcomeText, homeKeyboard())
}

func (b *Bot) help(_ *router.Event, resp router.Responder) error {
	text := `❓ How it works

🍽 Menu: pick a category, tap a dish to add it to the cart.
🛒 Cart: check the total, then confirm and send the payment screenshot.
📣 Sponsor: tell us the duration, send your ad and the payment screenshot.
👨‍🍳 Work with us: answer nine questions, the staff replies in private.

Commands: /menu, /sponsor, /curriculum.
Use /cancel to stop any procedure.`
	_ = resp.Answer("", false)
	return resp.Edit(text, notify.Inline(homeRow()))
}

func (b *Bot) recruitment(_ *router.Event, resp router.Responder) error {
	text := `👨‍🍳 Work with us

We are looking for cooks and cashiers.

• Fill in the form with your details
• The staff reviews the application
• You get an answer in private

Do you want to start the application?`
	_ = resp.Answer("", false)
	return resp.Edit(text, notify.Inline(
		notify.Row(notify.Btn("📝 Start application", callback.New(verbApply))),
		homeRow(),
	))
}

func (b *Bot) startForm(form string) router.HandlerFunc {
	return func(ev *router.Event, resp router.Responder) error {
		_ = resp.Answer("", false)
		return b.router.StartForm(ev, resp, form, nil)
	}
}

func (b *Bot) fallback(_ *router.Event, resp router.Responder) error {
	return resp.Reply("🤔 I didn't get that. Use /start to open the main menu.", nil)
}

// tell sends a best-effort notice to a user
func (b *Bot) tell(userID int64, text string) {
	if _, err := b.notifier.Send(notify.To(userID), notify.Message{Text: text}); err != nil {
		b.logger.Warn("User notice failed", zap.Int64("user_id", userID), zap.Error(err))
	}
}
