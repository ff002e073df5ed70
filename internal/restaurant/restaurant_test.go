package restaurant

import (
	"strings"
	"testing"

	"backoffice/internal/approval"
	"backoffice/internal/callback"
	"backoffice/internal/domain"
	"backoffice/internal/flow"
	"backoffice/internal/notify"
	"backoffice/internal/router"
	"backoffice/internal/service"
	"backoffice/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	player    = int64(500)
	staffChat = int64(-100200)
	channel   = int64(-100300)

	burger = "item:🍔 Panini:Hamburger Classico"
	cola   = "item:🥤 Bevande:Coca Cola"
)

type harness struct {
	t        *testing.T
	router   *router.Router
	engine   *approval.Engine
	profiles *service.ProfileService
	menu     *service.MenuService
	carts    *service.CartService
	settings *service.SettingsService
	notifier *testutil.RecordingNotifier
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	logger := testutil.NewTestLogger()
	store := testutil.NewTestStore()

	admins := service.NewAdminService(store, logger)
	require.NoError(t, admins.Seed([]int64{1, 2}))
	menu := service.NewMenuService(store, logger)
	require.NoError(t, menu.Seed(service.DefaultMenu()))
	settings := service.NewSettingsService(store)
	profiles := service.NewProfileService(store, logger)
	carts := service.NewCartService(store, menu)

	n := testutil.NewRecordingNotifier()
	r := router.New(flow.NewMachine(store, logger), admins, logger)
	e := approval.NewEngine(store, admins, Audience{Settings: settings, Admins: admins}, n, logger)

	New(Deps{
		Router:   r,
		Engine:   e,
		Profiles: profiles,
		Menu:     menu,
		Carts:    carts,
		Settings: settings,
		Admins:   admins,
		Notifier: n,
		Forums:   n,
		Logger:   logger,
	})
	return &harness{t: t, router: r, engine: e, profiles: profiles, menu: menu, carts: carts, settings: settings, notifier: n}
}

func (h *harness) dispatch(ev *router.Event) *testutil.RecordingResponder {
	h.t.Helper()
	if ev.ChatID == 0 {
		ev.ChatID = ev.UserID
		ev.Private = true
	}
	if ev.DisplayName == "" {
		ev.DisplayName = "Steve"
	}
	resp := &testutil.RecordingResponder{}
	require.NoError(h.t, h.router.Dispatch(ev, resp))
	return resp
}

func (h *harness) press(user int64, data string) *testutil.RecordingResponder {
	return h.dispatch(&router.Event{Kind: router.EventCallback, UserID: user, Data: data})
}

func (h *harness) say(user int64, text string) *testutil.RecordingResponder {
	return h.dispatch(&router.Event{Kind: router.EventText, UserID: user, Text: text})
}

func (h *harness) photo(user int64, id string) *testutil.RecordingResponder {
	return h.dispatch(&router.Event{Kind: router.EventPhoto, UserID: user, PhotoID: id})
}

func (h *harness) command(user int64, name, payload string) *testutil.RecordingResponder {
	return h.dispatch(&router.Event{Kind: router.EventCommand, UserID: user, Command: name, Payload: payload})
}

func (h *harness) order() {
	h.t.Helper()
	h.press(player, burger)
	h.press(player, burger)
	h.press(player, cola)
	h.press(player, verbCheckout)
	h.press(player, verbConfirmOrder)
	h.say(player, "Steve_MC")
	h.photo(player, "pay-1")
}

func TestCheckout_SubmitsOrderFromCart(t *testing.T) {
	h := newHarness(t)

	resp := h.press(player, burger)
	assert.Contains(t, resp.Answers[0], "1 items")
	h.press(player, burger)
	h.press(player, cola)

	resp = h.press(player, verbCheckout)
	assert.Contains(t, resp.Last().Text, "Total: 19€")
	assert.True(t, testutil.HasButton(resp.Last().Keyboard, verbConfirmOrder))

	resp = h.press(player, verbConfirmOrder)
	assert.Contains(t, resp.Last().Text, "Minecraft name")
	h.say(player, "Steve_MC")
	resp = h.photo(player, "pay-1")
	assert.Contains(t, resp.Last().Text, "Order #1 sent")

	recs, err := h.engine.List(domain.KindOrder)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "1", recs[0].ID)
	assert.Equal(t, int64(19), recs[0].Amount)
	assert.Len(t, recs[0].Items, 2)
	assert.Equal(t, "pay-1", recs[0].ProofPhotoID)
	assert.Equal(t, "Steve_MC", h.profiles.MinecraftName(player))

	cart, err := h.carts.Get(player)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)

	for _, admin := range []int64{1, 2} {
		msgs := h.notifier.SentTo(admin)
		require.Len(t, msgs, 2)
		assert.Contains(t, msgs[0].Text, "Hamburger Classico x2 - 16€")
		assert.True(t, testutil.HasButton(msgs[0].Keyboard, "order_action:accept:1"))
		assert.True(t, testutil.HasButton(msgs[0].Keyboard, "order_action:reject:1"))
	}
}

func TestCheckout_EmptyCart(t *testing.T) {
	h := newHarness(t)

	resp := h.press(player, verbCheckout)
	assert.Equal(t, 1, resp.Alerts)

	resp = h.press(player, verbConfirmOrder)
	assert.Equal(t, 1, resp.Alerts)
	state, _, err := h.router.Machine().Current(player)
	require.NoError(t, err)
	assert.Nil(t, state)
}

func TestCheckout_SkipsKnownMinecraftName(t *testing.T) {
	h := newHarness(t)
	_, err := h.profiles.SetMinecraftName(player, "Steve", "steve", "Steve_MC")
	require.NoError(t, err)

	h.press(player, cola)
	resp := h.press(player, verbConfirmOrder)
	assert.Contains(t, resp.Last().Text, "screenshot")
}

func TestOrder_Lifecycle(t *testing.T) {
	h := newHarness(t)
	h.order()

	h.press(1, "order_action:accept:1")
	assert.Empty(t, h.notifier.SentTo(player), "accept waits for the notice choice")

	h.press(1, "notice:order:standard:1")
	msgs := h.notifier.SentTo(player)
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Text, "being prepared")

	resp := h.press(2, "order_action:accept:1")
	assert.Equal(t, 1, resp.Alerts)

	h.press(1, "order_action:ready:1")
	h.press(1, "order_action:complete:1")
	msgs = h.notifier.SentTo(player)
	require.Len(t, msgs, 3)
	assert.Contains(t, msgs[1].Text, "ready for pickup")
	assert.Contains(t, msgs[2].Text, "completed")

	rec, err := h.engine.Get(domain.KindOrder, "1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, rec.Status)
}

func TestOrder_StaffGroupTopic(t *testing.T) {
	h := newHarness(t)

	resp := h.dispatch(&router.Event{Kind: router.EventCommand, UserID: 1, ChatID: staffChat, ThreadID: 7, Command: "setup_staff"})
	assert.Contains(t, resp.Last().Text, "Staff group configured")
	h.dispatch(&router.Event{Kind: router.EventCommand, UserID: 1, ChatID: staffChat, ThreadID: 7, Command: "set_topic", Payload: "orders"})

	h.order()

	assert.Empty(t, h.notifier.SentTo(1))
	var toGroup []testutil.Delivery
	for _, d := range h.notifier.Sent {
		if d.To.ChatID == staffChat {
			toGroup = append(toGroup, d)
		}
	}
	require.Len(t, toGroup, 2)
	assert.Equal(t, 7, toGroup[0].To.ThreadID)
	assert.Equal(t, "pay-1", toGroup[1].Msg.PhotoID)
}

func TestCreateTopics(t *testing.T) {
	h := newHarness(t)
	inGroup := func(command string) *testutil.RecordingResponder {
		return h.dispatch(&router.Event{Kind: router.EventCommand, UserID: 1, ChatID: staffChat, Command: command})
	}

	resp := inGroup("create_topics")
	assert.Contains(t, resp.Last().Text, "/setup_staff")
	assert.Empty(t, h.notifier.Topics)

	inGroup("setup_staff")
	require.NoError(t, h.settings.SetTopic(domain.SectionSponsors, 40))

	resp = inGroup("create_topics")
	assert.Contains(t, resp.Last().Text, "Sponsors (already exists)")
	require.Len(t, h.notifier.Topics, 3)

	st, err := h.settings.Staff()
	require.NoError(t, err)
	assert.Equal(t, 40, st.Topics[domain.SectionSponsors])
	for _, topic := range h.notifier.Topics {
		assert.Equal(t, staffChat, topic.ChatID)
	}
	assert.Equal(t, h.notifier.Topics[0].ThreadID, st.Topics[domain.SectionOrders])
	assert.Equal(t, h.notifier.Topics[2].ThreadID, st.Topics[domain.SectionUsers])

	resp = inGroup("create_topics")
	assert.Len(t, h.notifier.Topics, 3)
	assert.Contains(t, resp.Last().Text, "Orders (already exists)")
}

func TestCreateTopics_Failure(t *testing.T) {
	h := newHarness(t)
	h.dispatch(&router.Event{Kind: router.EventCommand, UserID: 1, ChatID: staffChat, Command: "setup_staff"})
	h.notifier.Fail[staffChat] = assert.AnError

	resp := h.dispatch(&router.Event{Kind: router.EventCommand, UserID: 1, ChatID: staffChat, Command: "create_topics"})
	assert.Contains(t, resp.Last().Text, "could not be created")

	st, err := h.settings.Staff()
	require.NoError(t, err)
	assert.Empty(t, st.Topics)
}

func TestOrder_RejectFromStaffGroup(t *testing.T) {
	h := newHarness(t)
	h.dispatch(&router.Event{Kind: router.EventCommand, UserID: 1, ChatID: staffChat, Command: "setup_staff"})
	h.order()
	h.notifier.Reset()

	resp := h.dispatch(&router.Event{Kind: router.EventCallback, UserID: 1, ChatID: staffChat, Data: "order_action:reject:1"})
	assert.Empty(t, resp.Replies)
	prompts := h.notifier.SentTo(1)
	require.Len(t, prompts, 1)
	assert.Contains(t, prompts[0].Text, "reason")

	h.say(1, "payment missing")
	rec, err := h.engine.Get(domain.KindOrder, "1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRejected, rec.Status)
}

func TestStaffCommands_Usage(t *testing.T) {
	h := newHarness(t)

	tests := []struct {
		name    string
		user    int64
		command string
		payload string
		want    string
	}{
		{"setup in private", 1, "setup_staff", "", "inside the staff group"},
		{"unknown section", 1, "set_topic", "kitchen 3", "Usage"},
		{"topic outside a thread", 1, "set_topic", "orders", "inside a topic"},
		{"explicit thread", 1, "set_topic", "sponsors 12", "sponsors set to 12"},
		{"sponsor channel", 1, "setup_sponsor_channel", "-100300", "-100300"},
		{"non-moderator", player, "setup_staff", "", h.router.Texts().Denied},
		{"remove unknown admin", 1, "remove_admin", "7", "not an admin"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := h.command(tt.user, tt.command, tt.payload)
			assert.Contains(t, resp.Last().Text, tt.want)
		})
	}

	st, err := h.settings.Staff()
	require.NoError(t, err)
	assert.Equal(t, 12, st.Topics[domain.SectionSponsors])
	assert.Equal(t, channel, st.SponsorChannelID)
}

func TestSponsor_ApprovalPublishesAd(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.settings.SetSponsorChannel(channel))
	_, err := h.profiles.SetMinecraftName(player, "Steve", "steve", "Steve_MC")
	require.NoError(t, err)

	resp := h.press(player, verbSponsor)
	assert.Contains(t, resp.Last().Text, "How long")
	h.say(player, "24 hours, pinned")
	src := &domain.MessageRef{ChatID: player, MessageID: 77}
	h.dispatch(&router.Event{Kind: router.EventText, UserID: player, Text: "Best shop in town!", Message: src})
	h.photo(player, "pay-2")

	recs, err := h.engine.List(domain.KindSponsor)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "S1", recs[0].ID)
	require.NotNil(t, recs[0].SourceRef)
	assert.Equal(t, *src, *recs[0].SourceRef)
	assert.Len(t, h.notifier.Forwards, 2, "ad forwarded to both admins")

	h.press(1, "sponsor_action:approve:S1")
	require.Len(t, h.notifier.Forwards, 3)
	assert.Equal(t, notify.To(channel), h.notifier.Forwards[2].To)
	assert.Equal(t, *src, h.notifier.Forwards[2].Ref)
	assert.Contains(t, h.notifier.SentTo(player)[0].Text, "approved")
}

func TestApplication_NothingToAdd(t *testing.T) {
	h := newHarness(t)

	h.press(player, verbRecruitment)
	resp := h.press(player, verbApply)
	assert.Contains(t, resp.Last().Text, "Question 1/9")

	answers := []string{"Steve_MC", "@steve", "Hi", "Money", "Some", "4", "None", "Report him"}
	for _, a := range answers {
		resp = h.say(player, a)
	}
	assert.Contains(t, resp.Last().Text, "Question 9/9")
	assert.True(t, testutil.HasButton(resp.Last().Keyboard, verbNothingToAdd))

	resp = h.press(player, verbNothingToAdd)
	assert.Contains(t, resp.Last().Text, "Application #A1 sent")

	rec, err := h.engine.Get(domain.KindApplication, "A1")
	require.NoError(t, err)
	assert.Equal(t, nothingToAdd, rec.Payload[fieldAdditional])
	assert.Equal(t, "Report him", rec.Payload["bad_employee"])

	// outside the last question the button does nothing
	resp = h.press(player, verbNothingToAdd)
	assert.Empty(t, resp.Replies)
}

func TestApplication_CurriculumCommand(t *testing.T) {
	h := newHarness(t)

	resp := h.command(player, "curriculum", "")
	assert.Contains(t, resp.Last().Text, "Question 1/9")

	state, _, err := h.router.Machine().Current(player)
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.Equal(t, domain.FlowJobApplication, state.Flow)
}

func TestMenuAdmin(t *testing.T) {
	h := newHarness(t)

	resp := h.command(player, verbManageMenu, "")
	assert.Equal(t, h.router.Texts().Denied, resp.Last().Text)

	h.press(1, verbAddCategory)
	resp = h.say(1, "🍰 Dolci")
	assert.Contains(t, resp.Last().Text, "added")

	h.press(1, "mm_add_item:🍰 Dolci")
	h.say(1, "Tiramisù")
	resp = h.say(1, "0")
	assert.Contains(t, resp.Last().Text, "greater than zero")
	h.say(1, "6")
	h.say(1, "Con mascarpone")

	item, err := h.menu.Item("🍰 Dolci", "Tiramisù")
	require.NoError(t, err)
	assert.Equal(t, int64(6), item.Price)

	h.press(1, "mm_price:🍰 Dolci:Tiramisù")
	h.say(1, "7")
	item, err = h.menu.Item("🍰 Dolci", "Tiramisù")
	require.NoError(t, err)
	assert.Equal(t, int64(7), item.Price)

	resp = h.press(1, "mm_del_cat:🍰 Dolci")
	assert.Equal(t, 1, resp.Alerts)

	h.press(1, "mm_del_item:🍰 Dolci:Tiramisù")
	h.press(1, "mm_del_cat:🍰 Dolci")
	_, err = h.menu.Category("🍰 Dolci")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	h.press(1, verbAddCategory)
	resp = h.say(1, "bad:name")
	assert.Contains(t, resp.Last().Text, "can't contain")
}

func TestCheckMenuName(t *testing.T) {
	tests := []struct {
		name     string
		category string
		item     string
		wantErr  string
	}{
		{name: "category fits", category: strings.Repeat("c", 50)},
		{name: "category too long for view_category", category: strings.Repeat("c", 51), wantErr: "too long"},
		{name: "category too long for mm_add_item", category: strings.Repeat("c", 53), wantErr: "too long"},
		{name: "item fits", category: "Extra", item: strings.Repeat("i", 46)},
		{name: "item too long for mm_del_item", category: "Extra", item: strings.Repeat("i", 47), wantErr: "too long"},
		{name: "item of the longest category", category: strings.Repeat("c", 50), item: "xyz", wantErr: "too long"},
		{name: "colon in category", category: "bad:name", wantErr: "can't contain"},
		{name: "colon in item", category: "Extra", item: "a:b", wantErr: "can't contain"},
		{name: "blank", category: "  ", wantErr: "empty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckMenuName(tt.category, tt.item)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestCheckMenuName_AcceptedNamesFitEveryButton(t *testing.T) {
	cat, item := strings.Repeat("c", 50), strings.Repeat("i", 46)
	require.NoError(t, CheckMenuName(cat, ""))
	require.NoError(t, CheckMenuName("Extra", item))

	for _, verb := range categoryVerbs {
		assert.LessOrEqual(t, len(callback.New(verb, cat).Encode()), callback.MaxLen, verb)
	}
	for _, verb := range itemVerbs {
		assert.LessOrEqual(t, len(callback.New(verb, "Extra", item).Encode()), callback.MaxLen, verb)
	}
}

func TestMenuAdmin_RejectsLongItem(t *testing.T) {
	h := newHarness(t)

	h.press(1, "mm_add_item:🍟 Extra")
	h.say(1, strings.Repeat("i", 60))
	h.say(1, "3")
	resp := h.say(1, "Troppo lungo")
	assert.Contains(t, resp.Last().Text, "too long")

	cat, err := h.menu.Category("🍟 Extra")
	require.NoError(t, err)
	assert.Len(t, cat.Items, 3)
}

func TestCart_SameDishInTwoCategories(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.menu.AddItem("🍟 Extra", "Coca Cola", domain.MenuItem{Price: 4}))

	h.press(player, cola)
	h.press(player, "item:🍟 Extra:Coca Cola")

	resp := h.press(player, verbViewCart)
	assert.True(t, testutil.HasButton(resp.Last().Keyboard, "cart_remove:🥤 Bevande:Coca Cola"))
	assert.True(t, testutil.HasButton(resp.Last().Keyboard, "cart_remove:🍟 Extra:Coca Cola"))
	assert.Contains(t, resp.Last().Text, "Total: 7€")

	h.press(player, "cart_remove:🍟 Extra:Coca Cola")
	cart, err := h.carts.Get(player)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, "🥤 Bevande", cart.Items[0].Category)
}

func TestBan(t *testing.T) {
	h := newHarness(t)

	resp := h.command(1, "ban", "500")
	assert.Contains(t, resp.Last().Text, "not found")

	h.command(player, "start", "")
	resp = h.command(1, "ban", "500")
	assert.Contains(t, resp.Last().Text, "banned")
	assert.True(t, h.profiles.IsBanned(player))

	resp = h.command(1, "list_users", "")
	assert.True(t, testutil.HasButton(resp.Last().Keyboard, "unban_user:500"))

	resp = h.press(1, "unban_user:500")
	assert.Equal(t, 1, resp.Alerts)
	assert.False(t, h.profiles.IsBanned(player))

	resp = h.command(1, "ban", "2")
	assert.Contains(t, resp.Last().Text, "can't be banned")
}

func TestCancelReturnsHome(t *testing.T) {
	h := newHarness(t)

	h.press(player, verbSponsor)
	resp := h.press(player, router.VerbCancel)
	assert.True(t, testutil.HasButton(resp.Last().Keyboard, verbMenu))

	resp = h.say(player, "hello")
	assert.Contains(t, resp.Last().Text, "/start")
}
