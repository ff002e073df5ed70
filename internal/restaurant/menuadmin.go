package restaurant

import (
	"errors"
	"fmt"
	"strings"

	"backoffice/internal/callback"
	"backoffice/internal/domain"
	"backoffice/internal/flow"
	"backoffice/internal/notify"
	"backoffice/internal/router"
)

const (
	verbManageMenu  = "manage_menu"
	verbMenuCat     = "mm_cat"
	verbMenuItem    = "mm_item"
	verbAddCategory = "mm_add_cat"
	verbDelCategory = "mm_del_cat"
	verbAddItem     = "mm_add_item"
	verbDelItem     = "mm_del_item"
	verbEditPrice   = "mm_price"
	verbEditDesc    = "mm_desc"

	formAddCategory = "menu_add_category"
	formAddItem     = "menu_add_item"
	formEditPrice   = "menu_edit_price"
	formEditDesc    = "menu_edit_description"

	fieldCategory    = "category"
	fieldItem        = "item"
	fieldName        = "name"
	fieldPrice       = "price"
	fieldDescription = "description"
)

func (b *Bot) registerMenuAdmin() {
	admin := func(name string, steps ...flow.Step) flow.Form {
		return flow.Form{Name: name, Flow: domain.FlowAdminAction, ModeratorOnly: true, Steps: steps}
	}
	price := flow.Step{Field: fieldPrice, Kind: flow.KindAmount, Prompt: "💰 Enter the price in euro:"}
	desc := flow.Step{Field: fieldDescription, Kind: flow.KindText, Prompt: "📝 Enter the description:"}
	b.router.Machine().Register(
		admin(formAddCategory, flow.Step{Field: fieldName, Kind: flow.KindText, Prompt: "📂 Enter the name of the new category:"}),
		admin(formAddItem, flow.Step{Field: fieldName, Kind: flow.KindText, Prompt: "🍽 Enter the name of the new dish:"}, price, desc),
		admin(formEditPrice, price),
		admin(formEditDesc, desc),
	)

	r := b.router
	r.ModeratorCommand(verbManageMenu, b.manageMenu)
	r.ModeratorCallback(verbManageMenu, b.manageMenu)
	r.ModeratorCallback(verbMenuCat, b.manageCategory)
	r.ModeratorCallback(verbMenuItem, b.manageItem)
	r.ModeratorCallback(verbDelCategory, b.removeCategory)
	r.ModeratorCallback(verbDelItem, b.removeItem)
	r.ModeratorCallback(verbAddCategory, b.startForm(formAddCategory))
	r.ModeratorCallback(verbAddItem, b.startMenuForm(formAddItem))
	r.ModeratorCallback(verbEditPrice, b.startMenuForm(formEditPrice))
	r.ModeratorCallback(verbEditDesc, b.startMenuForm(formEditDesc))

	r.OnComplete(formAddCategory, b.completeAddCategory)
	r.OnComplete(formAddItem, b.completeAddItem)
	r.OnComplete(formEditPrice, b.completeEditPrice)
	r.OnComplete(formEditDesc, b.completeEditDesc)
}

func (b *Bot) manageMenu(_ *router.Event, resp router.Responder) error {
	menu, err := b.menu.Catalog()
	if err != nil {
		return err
	}
	var kb notify.Keyboard
	for _, c := range menu.Categories {
		kb = append(kb, notify.Row(notify.Btn(fmt.Sprintf("%s (%d)", c.Name, len(c.Items)), callback.New(verbMenuCat, c.Name))))
	}
	kb = append(kb, notify.Row(notify.Btn("➕ Add category", callback.New(verbAddCategory))))
	_ = resp.Answer("", false)
	return resp.Edit("🛠 Menu management\n\nPick a category:", kb)
}

func (b *Bot) showCategory(resp router.Responder, name string) error {
	cat, err := b.menu.Category(name)
	if errors.Is(err, domain.ErrNotFound) {
		return resp.Answer("❌ Category not found", true)
	}
	if err != nil {
		return err
	}

	var kb notify.Keyboard
	for _, item := range cat.ItemNames() {
		kb = append(kb, notify.Row(notify.Btn(
			fmt.Sprintf("✏️ %s - %d€", item, cat.Items[item].Price),
			callback.New(verbMenuItem, cat.Name, item),
		)))
	}
	kb = append(kb,
		notify.Row(
			notify.Btn("➕ Add dish", callback.New(verbAddItem, cat.Name)),
			notify.Btn("🗑 Remove category", callback.New(verbDelCategory, cat.Name)),
		),
		notify.Row(notify.Btn("🔙 Categories", callback.New(verbManageMenu))),
	)
	_ = resp.Answer("", false)
	return resp.Edit(fmt.Sprintf("🛠 %s\n\n%d dishes", cat.Name, len(cat.Items)), kb)
}

func (b *Bot) manageCategory(ev *router.Event, resp router.Responder) error {
	return b.showCategory(resp, ev.Token.Tail(0))
}

func (b *Bot) manageItem(ev *router.Event, resp router.Responder) error {
	if err := ev.Token.Expect(2); err != nil {
		return resp.Answer("", false)
	}
	cat, name := ev.Token.Arg(0), ev.Token.Tail(1)
	item, err := b.menu.Item(cat, name)
	if errors.Is(err, domain.ErrNotFound) {
		return resp.Answer("❌ Dish not found", true)
	}
	if err != nil {
		return err
	}

	_ = resp.Answer("", false)
	return resp.Edit(fmt.Sprintf("🍽 %s\n\n💰 Price: %d€\n📝 %s", name, item.Price, item.Description), notify.Inline(
		notify.Row(
			notify.Btn("💰 Edit price", callback.New(verbEditPrice, cat, name)),
			notify.Btn("📝 Edit description", callback.New(verbEditDesc, cat, name)),
		),
		notify.Row(notify.Btn("🗑 Remove dish", callback.New(verbDelItem, cat, name))),
		notify.Row(notify.Btn("🔙 Back", callback.New(verbMenuCat, cat))),
	))
}

func (b *Bot) removeCategory(ev *router.Event, resp router.Responder) error {
	err := b.menu.RemoveCategory(ev.Token.Tail(0))
	switch {
	case errors.Is(err, domain.ErrCategoryNotEmpty):
		return resp.Answer("⚠️ Remove the dishes of this category first.", true)
	case errors.Is(err, domain.ErrNotFound):
		return resp.Answer("❌ Category not found", true)
	case err != nil:
		return err
	}
	return b.manageMenu(ev, resp)
}

func (b *Bot) removeItem(ev *router.Event, resp router.Responder) error {
	if err := ev.Token.Expect(2); err != nil {
		return resp.Answer("", false)
	}
	cat := ev.Token.Arg(0)
	if err := b.menu.RemoveItem(cat, ev.Token.Tail(1)); errors.Is(err, domain.ErrNotFound) {
		return resp.Answer("❌ Dish not found", true)
	} else if err != nil {
		return err
	}
	return b.showCategory(resp, cat)
}

// startMenuForm opens a form bound to the category, and the dish when the
// button carries one
func (b *Bot) startMenuForm(form string) router.HandlerFunc {
	return func(ev *router.Event, resp router.Responder) error {
		if err := ev.Token.Expect(1); err != nil {
			return resp.Answer("", false)
		}
		seed := domain.Fields{fieldCategory: ev.Token.Arg(0)}
		if len(ev.Token.Args) > 1 {
			seed[fieldItem] = ev.Token.Tail(1)
		}
		_ = resp.Answer("", false)
		return b.router.StartForm(ev, resp, form, seed)
	}
}

// categoryVerbs and itemVerbs are the buttons that carry menu names
var (
	categoryVerbs = []string{verbCategory, verbMenuCat, verbDelCategory, verbAddItem}
	itemVerbs     = []string{verbItem, verbCartRemove, verbMenuItem, verbDelItem, verbEditPrice, verbEditDesc}
)

// CheckMenuName keeps a category, and a dish of it when item is set, usable
// inside every button payload that embeds them
func CheckMenuName(category, item string) error {
	args, verbs := []string{category}, categoryVerbs
	if item != "" {
		args, verbs = append(args, item), itemVerbs
	}
	for _, n := range args {
		if strings.TrimSpace(n) == "" {
			return &domain.ValidationError{Field: fieldName, Message: "names can't be empty"}
		}
		if strings.Contains(n, callback.Sep) {
			return &domain.ValidationError{Field: fieldName, Message: "names can't contain " + callback.Sep}
		}
	}
	for _, verb := range verbs {
		if len(callback.New(verb, args...).Encode()) > callback.MaxLen {
			return &domain.ValidationError{Field: fieldName, Message: "the name is too long"}
		}
	}
	return nil
}

func menuError(resp router.Responder, err error) error {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		return resp.Reply("⚠️ "+verr.Message, nil)
	case errors.Is(err, domain.ErrAlreadyExists):
		return resp.Reply("⚠️ It already exists.", nil)
	case errors.Is(err, domain.ErrNotFound):
		return resp.Reply("❌ Not found, it may have been removed.", nil)
	}
	return err
}

func (b *Bot) completeAddCategory(_ *router.Event, resp router.Responder, c *flow.Completion) error {
	name := c.Fields[fieldName]
	if err := CheckMenuName(name, ""); err != nil {
		return menuError(resp, err)
	}
	if err := b.menu.AddCategory(name); err != nil {
		return menuError(resp, err)
	}
	return resp.Reply(fmt.Sprintf("✅ Category %s added.", name), notify.Inline(
		notify.Row(notify.Btn("🛠 Open", callback.New(verbMenuCat, name))),
	))
}

func (b *Bot) completeAddItem(_ *router.Event, resp router.Responder, c *flow.Completion) error {
	cat, name := c.Fields[fieldCategory], c.Fields[fieldName]
	price, err := c.Fields.Int(fieldPrice)
	if err != nil {
		return err
	}
	if err := CheckMenuName(cat, name); err != nil {
		return menuError(resp, err)
	}
	if err := b.menu.AddItem(cat, name, domain.MenuItem{Price: price, Description: c.Fields[fieldDescription]}); err != nil {
		return menuError(resp, err)
	}
	return resp.Reply(fmt.Sprintf("✅ %s added to %s at %d€.", name, cat, price), notify.Inline(
		notify.Row(notify.Btn("🔙 Back to the category", callback.New(verbMenuCat, cat))),
	))
}

func (b *Bot) completeEditPrice(_ *router.Event, resp router.Responder, c *flow.Completion) error {
	price, err := c.Fields.Int(fieldPrice)
	if err != nil {
		return err
	}
	cat, name := c.Fields[fieldCategory], c.Fields[fieldItem]
	if err := b.menu.EditPrice(cat, name, price); err != nil {
		return menuError(resp, err)
	}
	return resp.Reply(fmt.Sprintf("✅ %s now costs %d€.", name, price), notify.Inline(
		notify.Row(notify.Btn("🔙 Back to the dish", callback.New(verbMenuItem, cat, name))),
	))
}

func (b *Bot) completeEditDesc(_ *router.Event, resp router.Responder, c *flow.Completion) error {
	cat, name := c.Fields[fieldCategory], c.Fields[fieldItem]
	if err := b.menu.EditDescription(cat, name, c.Fields[fieldDescription]); err != nil {
		return menuError(resp, err)
	}
	return resp.Reply(fmt.Sprintf("✅ Description of %s updated.", name), notify.Inline(
		notify.Row(notify.Btn("🔙 Back to the dish", callback.New(verbMenuItem, cat, name))),
	))
}
