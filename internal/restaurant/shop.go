package restaurant

import (
	"errors"
	"fmt"
	"strings"

	"backoffice/internal/approval"
	"backoffice/internal/callback"
	"backoffice/internal/domain"
	"backoffice/internal/flow"
	"backoffice/internal/notify"
	"backoffice/internal/repository"
	"backoffice/internal/router"

	"github.com/AlekSi/pointer"
	"go.uber.org/zap"
)

const (
	verbCategory     = "view_category"
	verbItem         = "item"
	verbViewCart     = "view_cart"
	verbCartRemove   = "cart_remove"
	verbClearCart    = "clear_cart"
	verbCheckout     = "checkout"
	verbConfirmOrder = "confirm_order"
	verbCancelOrder  = "cancel_order"

	formCheckout = "order_checkout"

	fieldMinecraft = "minecraft_name"
	fieldProof     = "proof"

	payloadUsername = "username"
)

func (b *Bot) registerShop() {
	r := b.router
	r.Callback(verbMenu, b.categories)
	r.Callback(verbCategory, b.viewCategory)
	r.Callback(verbItem, b.addToCart)
	r.Callback(verbViewCart, b.viewCart)
	r.Callback(verbCartRemove, b.removeFromCart)
	r.Callback(verbClearCart, b.clearCart)
	r.Callback(verbCheckout, b.checkout)
	r.Callback(verbConfirmOrder, b.confirmOrder)
	r.Callback(verbCancelOrder, b.viewCart)
	r.OnComplete(formCheckout, b.completeCheckout)
}

func minecraftStep(prompt string) flow.Step {
	return flow.Step{Field: fieldMinecraft, Kind: flow.KindText, Prompt: prompt}
}

func checkoutForm() flow.Form {
	return flow.Form{Name: formCheckout, Flow: domain.FlowOrderCheckout, Steps: []flow.Step{
		minecraftStep("🎮 What is your Minecraft name?\nWe need it to hand over the order."),
		{Field: fieldProof, Kind: flow.KindPhoto, Prompt: "📸 Send a screenshot of the payment to place the order."},
	}}
}

func (b *Bot) categories(_ *router.Event, resp router.Responder) error {
	menu, err := b.menu.Catalog()
	if err != nil {
		return err
	}
	var kb notify.Keyboard
	for _, c := range menu.Categories {
		kb = append(kb, notify.Row(notify.Btn(c.Name, callback.New(verbCategory, c.Name))))
	}
	kb = append(kb,
		notify.Row(notify.Btn("🛒 View cart", callback.New(verbViewCart))),
		homeRow(),
	)
	_ = resp.Answer("", false)
	if len(menu.Categories) == 0 {
		return resp.Edit("🍽 The menu is empty right now, come back later!", kb)
	}
	return resp.Edit("🍽 Our menu\n\nPick a category:", kb)
}

func (b *Bot) viewCategory(ev *router.Event, resp router.Responder) error {
	name := ev.Token.Tail(0)
	cat, err := b.menu.Category(name)
	if errors.Is(err, domain.ErrNotFound) {
		return resp.Answer("❌ Category not found", true)
	}
	if err != nil {
		return err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s\n\n", cat.Name)
	var kb notify.Keyboard
	for _, item := range cat.ItemNames() {
		it := cat.Items[item]
		fmt.Fprintf(&sb, "• %s - %d€\n  %s\n", item, it.Price, it.Description)
		kb = append(kb, notify.Row(notify.Btn(fmt.Sprintf("➕ %s - %d€", item, it.Price), callback.New(verbItem, cat.Name, item))))
	}
	if len(cat.Items) == 0 {
		sb.WriteString("No dishes here yet.")
	}
	kb = append(kb,
		notify.Row(
			notify.Btn("🛒 View cart", callback.New(verbViewCart)),
			notify.Btn("🔙 Categories", callback.New(verbMenu)),
		),
	)
	_ = resp.Answer("", false)
	return resp.Edit(sb.String(), kb)
}

func (b *Bot) addToCart(ev *router.Event, resp router.Responder) error {
	if err := ev.Token.Expect(2); err != nil {
		return resp.Answer("", false)
	}
	cat, item := ev.Token.Arg(0), ev.Token.Tail(1)
	c, err := b.carts.Add(ev.UserID, cat, item)
	if errors.Is(err, domain.ErrNotFound) {
		return resp.Answer("❌ This dish is no longer available", true)
	}
	if err != nil {
		return err
	}
	return resp.Answer(fmt.Sprintf("✅ %s added! %d items in the cart", item, c.Count()), false)
}

func cartLines(items []domain.CartItem) string {
	var sb strings.Builder
	for _, it := range items {
		fmt.Fprintf(&sb, "• %s x%d - %d€\n", it.Name, it.Quantity, it.Subtotal())
	}
	return sb.String()
}

func (b *Bot) viewCart(ev *router.Event, resp router.Responder) error {
	c, err := b.carts.Get(ev.UserID)
	if err != nil {
		return err
	}
	_ = resp.Answer("", false)
	if len(c.Items) == 0 {
		return resp.Edit("🛒 Your cart is empty.", notify.Inline(
			notify.Row(notify.Btn("🍽 Menu", callback.New(verbMenu))),
			homeRow(),
		))
	}

	var kb notify.Keyboard
	for _, it := range c.Items {
		kb = append(kb, notify.Row(notify.Btn("❌ "+it.Name, callback.New(verbCartRemove, it.Category, it.Name))))
	}
	kb = append(kb,
		notify.Row(
			notify.Btn("✅ Checkout", callback.New(verbCheckout)),
			notify.Btn("🗑 Empty cart", callback.New(verbClearCart)),
		),
		notify.Row(notify.Btn("🔙 Categories", callback.New(verbMenu))),
	)
	text := fmt.Sprintf("🛒 Your cart\n\n%s\n💰 Total: %d€", cartLines(c.Items), c.Total())
	return resp.Edit(text, kb)
}

func (b *Bot) removeFromCart(ev *router.Event, resp router.Responder) error {
	if err := ev.Token.Expect(2); err != nil {
		return b.viewCart(ev, resp)
	}
	if _, err := b.carts.Remove(ev.UserID, ev.Token.Arg(0), ev.Token.Tail(1)); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	return b.viewCart(ev, resp)
}

func (b *Bot) clearCart(ev *router.Event, resp router.Responder) error {
	if err := b.carts.Clear(ev.UserID); err != nil {
		return err
	}
	return b.viewCart(ev, resp)
}

// checkout shows the order summary for confirmation
func (b *Bot) checkout(ev *router.Event, resp router.Responder) error {
	c, err := b.carts.ForCheckout(ev.UserID)
	if errors.Is(err, domain.ErrEmptyCart) {
		return resp.Answer("🛒 Your cart is empty!", true)
	}
	if err != nil {
		return err
	}
	_ = resp.Answer("", false)
	text := fmt.Sprintf("📋 Confirm your order\n\n%s\n💰 Total: %d€\n\nAfter confirming, send the payment screenshot.",
		cartLines(c.Items), c.Total())
	return resp.Edit(text, notify.Inline(notify.Row(
		notify.Btn("✅ Confirm", callback.New(verbConfirmOrder)),
		notify.Btn("❌ Back", callback.New(verbCancelOrder)),
	)))
}

func (b *Bot) confirmOrder(ev *router.Event, resp router.Responder) error {
	_, err := b.carts.ForCheckout(ev.UserID)
	if errors.Is(err, domain.ErrEmptyCart) {
		return resp.Answer("🛒 Your cart is empty!", true)
	}
	if err != nil {
		return err
	}
	_ = resp.Answer("", false)
	return b.router.StartForm(ev, resp, formCheckout, b.knownMinecraft(ev.UserID))
}

// knownMinecraft seeds forms with the stored Minecraft name
func (b *Bot) knownMinecraft(userID int64) domain.Fields {
	if name := b.profiles.MinecraftName(userID); name != "" {
		return domain.Fields{fieldMinecraft: name}
	}
	return nil
}

// rememberMinecraft stores a newly typed Minecraft name
func (b *Bot) rememberMinecraft(ev *router.Event, c *flow.Completion) {
	name := c.Fields[fieldMinecraft]
	if name == "" || name == b.profiles.MinecraftName(c.UserID) {
		return
	}
	if _, err := b.profiles.SetMinecraftName(c.UserID, ev.DisplayName, ev.Username, name); err != nil {
		b.logger.Warn("Failed to save Minecraft name", zap.Int64("user_id", c.UserID), zap.Error(err))
	}
}

func newRecord(ev *router.Event, kind domain.RecordKind, c *flow.Completion) *domain.PendingRecord {
	return &domain.PendingRecord{
		Kind:          kind,
		RequesterID:   c.UserID,
		RequesterName: ev.DisplayName,
		Payload: domain.Fields{
			fieldMinecraft:  c.Fields[fieldMinecraft],
			payloadUsername: ev.Username,
		},
	}
}

func (b *Bot) completeCheckout(ev *router.Event, resp router.Responder, c *flow.Completion) error {
	b.rememberMinecraft(ev, c)

	cart, err := b.carts.ForCheckout(c.UserID)
	if errors.Is(err, domain.ErrEmptyCart) {
		return resp.Reply("🛒 Your cart is empty, the order was not sent.", homeKeyboard())
	}
	if err != nil {
		return err
	}

	rec := newRecord(ev, domain.KindOrder, c)
	rec.Items = cart.Items
	rec.Amount = cart.Total()
	rec.ProofPhotoID = c.Fields[fieldProof]
	if _, err := b.engine.Submit(rec); err != nil {
		return err
	}
	if err := b.carts.Clear(c.UserID); err != nil {
		b.logger.Warn("Failed to clear cart", zap.Int64("user_id", c.UserID), zap.Error(err))
	}
	return resp.Reply(fmt.Sprintf("✅ Order #%s sent!\n\n💰 Total: %d€\n⏳ The staff is checking the payment, you'll be notified.", rec.ID, rec.Amount), nil)
}

func fromLine(rec *domain.PendingRecord) string {
	who := rec.RequesterName
	if u := rec.Payload[payloadUsername]; u != "" {
		who = "@" + u
	}
	return fmt.Sprintf("👤 From: %s (ID: %d)\n🎮 Minecraft: %s", who, rec.RequesterID, rec.Payload[fieldMinecraft])
}

func rejected(what string, rec *domain.PendingRecord) string {
	text := fmt.Sprintf("❌ Your %s #%s was rejected, sorry.", what, rec.ID)
	if reason := pointer.GetString(rec.Reason); reason != "" {
		text += "\n\n📝 Reason: " + reason
	}
	return text
}

func (b *Bot) registerOrderKind() {
	b.engine.Register(approval.Kind{
		Kind:         domain.KindOrder,
		Table:        repository.TableOrders,
		Verb:         "order_action",
		Title:        "🍔 New order",
		Lifecycle:    approval.OrderLifecycle,
		NoticeChoice: true,
		Labels: map[domain.Decision]string{
			domain.DecisionApprove: "🟢 Accept",
		},
		Summary: func(rec *domain.PendingRecord) string {
			return fmt.Sprintf("%s\n\n%s\n💰 Total: %d€", fromLine(rec), cartLines(rec.Items), rec.Total())
		},
		Notice: func(rec *domain.PendingRecord) string {
			switch rec.Status {
			case domain.StatusPreparing:
				return fmt.Sprintf("🔥 Your order #%s is now being prepared!", rec.ID)
			case domain.StatusReady:
				return fmt.Sprintf("✅ Your order #%s is ready for pickup!", rec.ID)
			case domain.StatusCompleted:
				return fmt.Sprintf("🎉 Order #%s completed! Thanks!", rec.ID)
			case domain.StatusRejected:
				return rejected("order", rec)
			}
			return ""
		},
		CustomNotice: func(rec *domain.PendingRecord, text string) string {
			return fmt.Sprintf("🔥 Your order #%s is now being prepared!\n\n📝 Message from the staff:\n%s", rec.ID, text)
		},
	})
}
