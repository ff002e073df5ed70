package casino

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"backoffice/internal/callback"
	"backoffice/internal/domain"
	"backoffice/internal/flow"
	"backoffice/internal/notify"
	"backoffice/internal/router"

	"go.uber.org/zap"
)

const (
	verbPanel         = "admin"
	verbUsers         = "users"
	verbAdmins        = "admins"
	verbUserList      = "user_list"
	verbUserPage      = "user_page"
	verbUserInfo      = "user_info"
	verbUserSearch    = "user_search"
	verbUserDelete    = "user_delete"
	verbDeleteUser    = "delete_user"
	verbConfirmDelete = "confirm_delete"
	verbEditBalance   = "edit_balance"
	verbMessageUser   = "msg_user"
	verbAdminList     = "admin_list"
	verbAdminAdd      = "admin_add"
	verbAdminRemove   = "admin_remove"
	verbReset         = "reset"
	verbConfirmReset  = "confirm_reset"
	verbCancelReset   = "cancel_reset"
	verbAnnounce      = "announce"

	formSearch      = "user_search"
	formDelete      = "user_delete"
	formBalance     = "edit_balance"
	formMessageUser = "message_user"
	formAdminAdd    = "admin_add"
	formAdminRemove = "admin_remove"
	formAnnounce    = "announcement"

	fieldUserID  = "user_id"
	fieldBalance = "balance"
	fieldText    = "text"
)

func (b *Bot) registerPanel() {
	admin := func(name, field, prompt string, kind flow.Kind) flow.Form {
		return flow.Form{Name: name, Flow: domain.FlowAdminAction, ModeratorOnly: true, Steps: []flow.Step{
			{Field: field, Kind: kind, Prompt: prompt, NonNegative: true},
		}}
	}
	b.router.Machine().Register(
		admin(formSearch, fieldUserID, "🔍 Enter the user id to look up:", flow.KindInteger),
		admin(formDelete, fieldUserID, "🗑️ Enter the user id to delete:", flow.KindInteger),
		admin(formBalance, fieldBalance, "💰 Enter the new balance:", flow.KindInteger),
		admin(formMessageUser, fieldText, "📨 Write the message for the user:", flow.KindText),
		admin(formAdminAdd, fieldUserID, "➕ Enter the Telegram id of the new admin:", flow.KindInteger),
		admin(formAdminRemove, fieldUserID, "➖ Enter the id of the admin to remove:", flow.KindInteger),
		admin(formAnnounce, fieldText, "📢 GLOBAL ANNOUNCEMENT\n\nWrite the message for every registered user:", flow.KindText),
	)

	r := b.router
	r.ModeratorCommand("admin", b.panel)
	r.ModeratorCallback(verbPanel, b.panel)
	r.ModeratorCallback(verbUsers, b.usersMenu)
	r.ModeratorCallback(verbAdmins, b.adminsMenu)
	r.ModeratorCallback(verbUserList, b.userPage)
	r.ModeratorCallback(verbUserPage, b.userPage)
	r.ModeratorCallback(verbUserInfo, b.userInfo)
	r.ModeratorCallback(verbDeleteUser, b.confirmDeleteScreen)
	r.ModeratorCallback(verbConfirmDelete, b.confirmDelete)
	r.ModeratorCallback(verbAdminList, b.adminList)
	r.ModeratorCallback(verbReset, b.resetScreen)
	r.ModeratorCallback(verbConfirmReset, b.confirmReset)
	r.ModeratorCallback(verbCancelReset, b.cancelReset)

	r.ModeratorCallback(verbUserSearch, b.startForm(formSearch))
	r.ModeratorCallback(verbUserDelete, b.startForm(formDelete))
	r.ModeratorCallback(verbAdminAdd, b.startForm(formAdminAdd))
	r.ModeratorCallback(verbAdminRemove, b.startForm(formAdminRemove))
	r.ModeratorCallback(verbAnnounce, b.startForm(formAnnounce))
	r.ModeratorCallback(verbEditBalance, b.startTargeted(formBalance))
	r.ModeratorCallback(verbMessageUser, b.startTargeted(formMessageUser))

	r.OnComplete(formSearch, b.completeSearch)
	r.OnComplete(formDelete, b.completeDelete)
	r.OnComplete(formBalance, b.completeBalance)
	r.OnComplete(formMessageUser, b.completeMessageUser)
	r.OnComplete(formAdminAdd, b.completeAdminAdd)
	r.OnComplete(formAdminRemove, b.completeAdminRemove)
	r.OnComplete(formAnnounce, b.completeAnnounce)
}

func backRow(text, verb string) []notify.Button {
	return notify.Row(notify.Btn(text, callback.New(verb)))
}

func (b *Bot) panel(_ *router.Event, resp router.Responder) error {
	_ = resp.Answer("", false)
	return resp.Edit("🔐 Admin panel", notify.Inline(
		backRow("👥 User management", verbUsers),
		backRow("🔧 Admin management", verbAdmins),
		backRow("📢 Global announcement", verbAnnounce),
	))
}

func (b *Bot) usersMenu(_ *router.Event, resp router.Responder) error {
	_ = resp.Answer("", false)
	return resp.Edit("👥 User management, pick an option:", notify.Inline(
		backRow("📋 Registered users", verbUserList),
		backRow("🔍 Find user", verbUserSearch),
		backRow("🗑️ Delete user", verbUserDelete),
		backRow("🔙 Back to the admin panel", verbPanel),
	))
}

func (b *Bot) adminsMenu(_ *router.Event, resp router.Responder) error {
	_ = resp.Answer("", false)
	return resp.Edit("🔧 Admin management, pick an option:", notify.Inline(
		backRow("📋 Admin list", verbAdminList),
		backRow("➕ Add admin", verbAdminAdd),
		backRow("➖ Remove admin", verbAdminRemove),
		backRow("🔄 Reset system", verbReset),
		backRow("🔙 Back to the admin panel", verbPanel),
	))
}

// userPage renders user_list and user_page:<n>
func (b *Bot) userPage(ev *router.Event, resp router.Responder) error {
	page := 0
	if ev.Token.Verb == verbUserPage {
		n, err := ev.Token.Int64(0)
		if err != nil {
			return resp.Answer("", false)
		}
		page = int(n)
	}

	users, pages, err := b.accounts.Page(page)
	if err != nil {
		return err
	}
	_ = resp.Answer("", false)
	if len(users) == 0 {
		return resp.Edit("📭 No users registered yet.", notify.Inline(backRow("🔙 Back", verbUsers)))
	}
	if page >= pages {
		page = pages - 1
	}
	if page < 0 {
		page = 0
	}

	var kb notify.Keyboard
	for _, u := range users {
		label := fmt.Sprintf("👤 %s (ID: %d)", u.Nickname, u.UserID)
		if u.Username != "" {
			label = fmt.Sprintf("👤 %s - @%s", u.Nickname, u.Username)
		}
		kb = append(kb, notify.Row(notify.Btn(label, callback.New(verbUserInfo, strconv.FormatInt(u.UserID, 10)))))
	}

	var nav []notify.Button
	if page > 0 {
		nav = append(nav, notify.Btn("⬅️ Previous", callback.New(verbUserPage, strconv.Itoa(page-1))))
	}
	if page < pages-1 {
		nav = append(nav, notify.Btn("Next ➡️", callback.New(verbUserPage, strconv.Itoa(page+1))))
	}
	if len(nav) > 0 {
		kb = append(kb, nav)
	}
	kb = append(kb, backRow("🔙 Back to the menu", verbUsers))

	total, err := b.accounts.List()
	if err != nil {
		return err
	}
	header := fmt.Sprintf("👥 REGISTERED USERS (page %d/%d)\n📊 Total users: %d\n\nPick a user to see the details:",
		page+1, pages, len(total))
	return resp.Edit(header, kb)
}

func accountDetails(acc *domain.UserAccount) string {
	username := "no username"
	if acc.Username != "" {
		username = "@" + acc.Username
	}
	return fmt.Sprintf("👤 USER DETAILS:\n\n🆔 Telegram ID: %d\n👤 Name: %s\n📱 Username: %s\n🎮 Nickname: %s\n💰 Balance: %d€\n📅 Registered: %s",
		acc.UserID, acc.DisplayName, username, acc.Nickname, acc.Balance, acc.RegisteredAt.Format("2006-01-02 15:04:05"))
}

func (b *Bot) targetID(ev *router.Event, resp router.Responder) (int64, bool) {
	id, err := ev.Token.Int64(0)
	if err != nil {
		_ = resp.Answer("", false)
		return 0, false
	}
	return id, true
}

func (b *Bot) userInfo(ev *router.Event, resp router.Responder) error {
	id, ok := b.targetID(ev, resp)
	if !ok {
		return nil
	}
	acc, err := b.accounts.Get(id)
	if errors.Is(err, domain.ErrNotFound) {
		return resp.Answer("❌ User not found", true)
	}
	if err != nil {
		return err
	}

	uid := strconv.FormatInt(id, 10)
	_ = resp.Answer("", false)
	return resp.Edit(accountDetails(acc), notify.Inline(
		notify.Row(notify.Btn("💰 Edit balance", callback.New(verbEditBalance, uid))),
		notify.Row(notify.Btn("🗑️ Delete user", callback.New(verbDeleteUser, uid))),
		notify.Row(notify.Btn("📨 Send message", callback.New(verbMessageUser, uid))),
		backRow("🔙 Back to the list", verbUserList),
	))
}

func (b *Bot) confirmDeleteScreen(ev *router.Event, resp router.Responder) error {
	id, ok := b.targetID(ev, resp)
	if !ok {
		return nil
	}
	acc, err := b.accounts.Get(id)
	if errors.Is(err, domain.ErrNotFound) {
		return resp.Answer("❌ User not found", true)
	}
	if err != nil {
		return err
	}

	uid := strconv.FormatInt(id, 10)
	_ = resp.Answer("", false)
	return resp.Edit(
		fmt.Sprintf("⚠️ WARNING!\n\nYou are about to delete the user:\n👤 %s (ID: %d)\n\nThis can't be undone. Confirm?", acc.Nickname, id),
		notify.Inline(
			notify.Row(notify.Btn("⚠️ CONFIRM DELETION", callback.New(verbConfirmDelete, uid))),
			notify.Row(notify.Btn("❌ Cancel", callback.New(verbUserInfo, uid))),
		),
	)
}

func (b *Bot) deleteAccount(id int64) (string, error) {
	acc, err := b.accounts.Delete(id)
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Sprintf("❌ User %d not found.", id), nil
	}
	if err != nil {
		return "", err
	}
	b.tell(id, "⚠️ Your account has been removed from the system.")
	return fmt.Sprintf("✅ User %s (ID: %d) deleted.", acc.Nickname, id), nil
}

func (b *Bot) confirmDelete(ev *router.Event, resp router.Responder) error {
	id, ok := b.targetID(ev, resp)
	if !ok {
		return nil
	}
	text, err := b.deleteAccount(id)
	if err != nil {
		return err
	}
	_ = resp.Answer("", false)
	return resp.Edit(text, notify.Inline(backRow("🔙 Back to the list", verbUserList)))
}

func (b *Bot) adminList(_ *router.Event, resp router.Responder) error {
	ids, err := b.admins.List()
	if err != nil {
		return err
	}
	var sb strings.Builder
	sb.WriteString("🔧 ACTIVE ADMINS:\n\n")
	for _, id := range ids {
		fmt.Fprintf(&sb, "🆔 Admin ID: %d\n", id)
	}
	_ = resp.Answer("", false)
	return resp.Edit(sb.String(), notify.Inline(backRow("🔙 Back to admin management", verbAdmins)))
}

func (b *Bot) resetScreen(_ *router.Event, resp router.Responder) error {
	_ = resp.Answer("", false)
	return resp.Edit("⚠️ WARNING! This deletes ALL user accounts.\nAre you sure?", notify.Inline(
		backRow("⚠️ CONFIRM RESET", verbConfirmReset),
		backRow("❌ Cancel", verbCancelReset),
	))
}

func (b *Bot) confirmReset(ev *router.Event, resp router.Responder) error {
	n, err := b.accounts.Reset()
	if err != nil {
		return err
	}
	b.logger.Warn("Accounts reset", zap.Int64("moderator_id", ev.UserID), zap.Int("removed", n))
	_ = resp.Answer("", false)
	return resp.Edit(fmt.Sprintf("🔄 System reset! %d user accounts were deleted.", n), notify.Inline(backRow("🔙 Back to the admin panel", verbPanel)))
}

func (b *Bot) cancelReset(_ *router.Event, resp router.Responder) error {
	_ = resp.Answer("", false)
	return resp.Edit("❌ Reset cancelled.", notify.Inline(backRow("🔙 Back to the admin panel", verbPanel)))
}

// startTargeted opens a form bound to the user id of the button
func (b *Bot) startTargeted(form string) router.HandlerFunc {
	return func(ev *router.Event, resp router.Responder) error {
		id, ok := b.targetID(ev, resp)
		if !ok {
			return nil
		}
		if _, err := b.accounts.Get(id); errors.Is(err, domain.ErrNotFound) {
			return resp.Answer("❌ User not found", true)
		} else if err != nil {
			return err
		}
		_ = resp.Answer("", false)
		return b.router.StartForm(ev, resp, form, domain.Fields{fieldUserID: strconv.FormatInt(id, 10)})
	}
}

// tell sends a best-effort notice to a user
func (b *Bot) tell(userID int64, text string) {
	if _, err := b.notifier.Send(notify.To(userID), notify.Message{Text: text}); err != nil {
		b.logger.Warn("User notice failed", zap.Int64("user_id", userID), zap.Error(err))
	}
}

func (b *Bot) completeSearch(_ *router.Event, resp router.Responder, c *flow.Completion) error {
	id, err := c.Fields.Int(fieldUserID)
	if err != nil {
		return err
	}
	acc, err := b.accounts.Get(id)
	if errors.Is(err, domain.ErrNotFound) {
		return resp.Reply(fmt.Sprintf("❌ User with ID %d not found.", id), notify.Inline(backRow("🔙 Back", verbUsers)))
	}
	if err != nil {
		return err
	}
	return resp.Reply(accountDetails(acc), notify.Inline(
		notify.Row(notify.Btn("⚙️ Manage", callback.New(verbUserInfo, strconv.FormatInt(id, 10)))),
	))
}

func (b *Bot) completeDelete(_ *router.Event, resp router.Responder, c *flow.Completion) error {
	id, err := c.Fields.Int(fieldUserID)
	if err != nil {
		return err
	}
	text, err := b.deleteAccount(id)
	if err != nil {
		return err
	}
	return resp.Reply(text, nil)
}

func (b *Bot) completeBalance(_ *router.Event, resp router.Responder, c *flow.Completion) error {
	id, err := c.Fields.Int(fieldUserID)
	if err != nil {
		return err
	}
	balance, err := c.Fields.Int(fieldBalance)
	if err != nil {
		return err
	}

	old, err := b.accounts.SetBalance(id, balance)
	if errors.Is(err, domain.ErrNotFound) {
		return resp.Reply("❌ User not found.", nil)
	}
	if err != nil {
		return err
	}

	b.tell(id, fmt.Sprintf("💰 Your balance was changed by an admin!\n\n📊 Previous balance: %d€\n💰 New balance: %d€", old, balance))
	return resp.Reply(fmt.Sprintf("✅ Balance updated!\n\n🆔 User: %d\n📊 Old balance: %d€\n💰 New balance: %d€", id, old, balance), nil)
}

func (b *Bot) completeMessageUser(_ *router.Event, resp router.Responder, c *flow.Completion) error {
	id, err := c.Fields.Int(fieldUserID)
	if err != nil {
		return err
	}
	if _, err := b.notifier.Send(notify.To(id), notify.Message{Text: "📩 Message from the admin:\n\n" + c.Fields[fieldText]}); err != nil {
		b.logger.Warn("Admin message failed", zap.Int64("user_id", id), zap.Error(err))
		return resp.Reply("❌ The message could not be delivered.", nil)
	}
	return resp.Reply("✅ Message sent!", nil)
}

func (b *Bot) completeAdminAdd(ev *router.Event, resp router.Responder, c *flow.Completion) error {
	id, err := c.Fields.Int(fieldUserID)
	if err != nil {
		return err
	}
	added, err := b.admins.Add(id, ev.UserID)
	if err != nil {
		return err
	}
	if !added {
		return resp.Reply("❌ This user is already an admin.", nil)
	}
	b.tell(id, "🔧 You have been promoted to admin!")
	return resp.Reply(fmt.Sprintf("✅ Admin %d added!", id), nil)
}

func (b *Bot) completeAdminRemove(_ *router.Event, resp router.Responder, c *flow.Completion) error {
	id, err := c.Fields.Int(fieldUserID)
	if err != nil {
		return err
	}
	switch err := b.admins.Remove(id); {
	case errors.Is(err, domain.ErrNotFound):
		return resp.Reply("❌ This user is not an admin.", nil)
	case errors.Is(err, domain.ErrLastAdmin):
		return resp.Reply("❌ You can't remove the last admin!", nil)
	case err != nil:
		return err
	}
	b.tell(id, "⚠️ Your admin privileges have been revoked.")
	return resp.Reply(fmt.Sprintf("✅ Admin %d removed!", id), nil)
}

func (b *Bot) completeAnnounce(_ *router.Event, resp router.Responder, c *flow.Completion) error {
	ids, err := b.accounts.IDs()
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return resp.Reply("⚠️ No registered users found! The announcement was not sent.", nil)
	}

	msg := notify.Message{Text: "📢 OFFICIAL MISTERSHOP CASINO ANNOUNCEMENT\n\n" + c.Fields[fieldText] + "\n\n🤖 Message from the Stanley admins"}
	res := notify.Broadcast(b.notifier, ids, msg, b.logger)
	return resp.Reply(fmt.Sprintf("📢 ANNOUNCEMENT SENT!\n\n✅ Delivered: %d\n❌ Failed: %d\n👥 Total users: %d", res.Sent, res.Failed, res.Total()), nil)
}
