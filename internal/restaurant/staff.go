package restaurant

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"backoffice/internal/approval"
	"backoffice/internal/callback"
	"backoffice/internal/domain"
	"backoffice/internal/notify"
	"backoffice/internal/router"
	"backoffice/internal/service"

	"go.uber.org/zap"
)

// Audience sends each kind to its topic in the staff group, or to every
// admin privately while no group is configured
type Audience struct {
	Settings *service.SettingsService
	Admins   approval.AdminLister
}

var sections = map[domain.RecordKind]string{
	domain.KindOrder:       domain.SectionOrders,
	domain.KindSponsor:     domain.SectionSponsors,
	domain.KindApplication: domain.SectionApplications,
}

func (a Audience) Targets(kind domain.RecordKind) ([]notify.Target, error) {
	st, err := a.Settings.Staff()
	if err != nil {
		return nil, err
	}
	if st.GroupID == 0 {
		return approval.Admins{Lister: a.Admins}.Targets(kind)
	}
	return []notify.Target{{ChatID: st.GroupID, ThreadID: st.Topics[sections[kind]]}}, nil
}

func (b *Bot) audience() Audience {
	return Audience{Settings: b.settings, Admins: b.admins}
}

const (
	verbBan   = "ban_user"
	verbUnban = "unban_user"

	maxListedUsers = 50
)

var topicSections = []string{
	domain.SectionOrders,
	domain.SectionSponsors,
	domain.SectionApplications,
	domain.SectionUsers,
}

var topicNames = map[string]string{
	domain.SectionOrders:       "📦 Orders",
	domain.SectionSponsors:     "📜 Sponsors",
	domain.SectionApplications: "📝 Applications",
	domain.SectionUsers:        "👥 User management",
}

func (b *Bot) registerStaff() {
	r := b.router
	r.ModeratorCommand("setup_staff", b.setupStaff)
	r.ModeratorCommand("create_topics", b.createTopics)
	r.ModeratorCommand("set_topic", b.setTopic)
	r.ModeratorCommand("setup_sponsor_channel", b.setupSponsorChannel)
	r.ModeratorCommand("add_admin", b.addAdmin)
	r.ModeratorCommand("remove_admin", b.removeAdmin)
	r.ModeratorCommand("list_users", b.listUsers)
	r.ModeratorCommand("ban", b.banCommand(true))
	r.ModeratorCommand("unban", b.banCommand(false))
	r.ModeratorCallback(verbBan, b.banButton(true))
	r.ModeratorCallback(verbUnban, b.banButton(false))
}

func (b *Bot) setupStaff(ev *router.Event, resp router.Responder) error {
	if ev.Private {
		return resp.Reply("⚠️ Use this command inside the staff group.", nil)
	}
	if err := b.settings.SetStaffGroup(ev.ChatID); err != nil {
		return err
	}
	b.logger.Info("Staff group configured", zap.Int64("chat_id", ev.ChatID), zap.Int64("moderator_id", ev.UserID))
	return resp.Reply(fmt.Sprintf("✅ Staff group configured!\n\n🆔 Chat ID: %d\n\nRun /create_topics to open the staff topics, or /set_topic <section> inside an existing topic. Sections: %s",
		ev.ChatID, strings.Join(topicSections, ", ")), nil)
}

// createTopics opens a forum topic for every section that has none yet
func (b *Bot) createTopics(ev *router.Event, resp router.Responder) error {
	st, err := b.settings.Staff()
	if err != nil {
		return err
	}
	if ev.Private || st.GroupID != ev.ChatID {
		return resp.Reply("⚠️ Run /setup_staff in this group first, then /create_topics.", nil)
	}

	var lines []string
	for _, sec := range topicSections {
		name := topicNames[sec]
		if st.Topics[sec] != 0 {
			lines = append(lines, fmt.Sprintf("✅ %s (already exists)", name))
			continue
		}

		thread, err := b.forums.CreateTopic(ev.ChatID, name)
		if err != nil {
			b.logger.Warn("Failed to create topic",
				zap.Int64("chat_id", ev.ChatID),
				zap.String("section", sec),
				zap.Error(err),
			)
			lines = append(lines, fmt.Sprintf("❌ %s: could not be created, are topics enabled?", name))
			continue
		}
		if err := b.settings.SetTopic(sec, thread); err != nil {
			return err
		}
		lines = append(lines, "✅ "+name)
	}
	return resp.Reply("📋 Topics\n\n"+strings.Join(lines, "\n"), nil)
}

// setTopic maps a section to a forum thread, the current one when no id is given
func (b *Bot) setTopic(ev *router.Event, resp router.Responder) error {
	usage := "Usage: /set_topic <section> [thread id]\nSections: " + strings.Join(topicSections, ", ")
	args := strings.Fields(ev.Payload)
	if len(args) == 0 || !validSection(args[0]) {
		return resp.Reply(usage, nil)
	}

	thread := ev.ThreadID
	if len(args) > 1 {
		n, err := strconv.Atoi(args[1])
		if err != nil || n <= 0 {
			return resp.Reply(usage, nil)
		}
		thread = n
	}
	if thread == 0 {
		return resp.Reply("⚠️ Run the command inside a topic or pass the thread id.\n\n"+usage, nil)
	}

	if err := b.settings.SetTopic(args[0], thread); err != nil {
		return err
	}
	return resp.Reply(fmt.Sprintf("✅ Topic for %s set to %d.", args[0], thread), nil)
}

func validSection(s string) bool {
	for _, sec := range topicSections {
		if s == sec {
			return true
		}
	}
	return false
}

func (b *Bot) setupSponsorChannel(ev *router.Event, resp router.Responder) error {
	chatID := int64(0)
	switch {
	case strings.TrimSpace(ev.Payload) != "":
		id, err := strconv.ParseInt(strings.TrimSpace(ev.Payload), 10, 64)
		if err != nil {
			return resp.Reply("Usage: /setup_sponsor_channel <channel id>", nil)
		}
		chatID = id
	case !ev.Private:
		chatID = ev.ChatID
	default:
		return resp.Reply("Usage: /setup_sponsor_channel <channel id>, or run it inside the channel chat.", nil)
	}

	if err := b.settings.SetSponsorChannel(chatID); err != nil {
		return err
	}
	return resp.Reply(fmt.Sprintf("✅ Sponsor channel set to %d.", chatID), nil)
}

func parseUserID(payload string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(payload), 10, 64)
	return id, err == nil && id > 0
}

func (b *Bot) addAdmin(ev *router.Event, resp router.Responder) error {
	id, ok := parseUserID(ev.Payload)
	if !ok {
		return resp.Reply("Usage: /add_admin <user id>", nil)
	}
	added, err := b.admins.Add(id, ev.UserID)
	if err != nil {
		return err
	}
	if !added {
		return resp.Reply("ℹ️ This user is already an admin.", nil)
	}
	b.tell(id, "🔧 You are now part of the restaurant staff!")
	return resp.Reply(fmt.Sprintf("✅ Admin %d added.", id), nil)
}

func (b *Bot) removeAdmin(ev *router.Event, resp router.Responder) error {
	id, ok := parseUserID(ev.Payload)
	if !ok {
		return resp.Reply("Usage: /remove_admin <user id>", nil)
	}
	err := b.admins.Remove(id)
	switch {
	case errors.Is(err, domain.ErrLastAdmin):
		return resp.Reply("⚠️ You can't remove the last admin.", nil)
	case errors.Is(err, domain.ErrNotFound):
		return resp.Reply(fmt.Sprintf("❌ %d is not an admin.", id), nil)
	case err != nil:
		return err
	}
	return resp.Reply(fmt.Sprintf("✅ Admin %d removed.", id), nil)
}

func (b *Bot) listUsers(_ *router.Event, resp router.Responder) error {
	users, err := b.profiles.List()
	if err != nil {
		return err
	}
	if len(users) == 0 {
		return resp.Reply("📭 No users yet.", nil)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "👥 Users: %d\n\n", len(users))
	var kb notify.Keyboard
	for i, u := range users {
		if i == maxListedUsers {
			fmt.Fprintf(&sb, "… and %d more", len(users)-maxListedUsers)
			break
		}
		name := u.DisplayName
		if u.Username != "" {
			name = "@" + u.Username
		}
		state := "✅"
		btn := notify.Btn("🚫 Ban "+name, callback.New(verbBan, strconv.FormatInt(u.UserID, 10)))
		if u.Banned {
			state = "🚫"
			btn = notify.Btn("✅ Unban "+name, callback.New(verbUnban, strconv.FormatInt(u.UserID, 10)))
		}
		fmt.Fprintf(&sb, "%s %s (ID: %d) 🎮 %s\n", state, name, u.UserID, u.MinecraftName)
		kb = append(kb, notify.Row(btn))
	}
	return resp.Reply(sb.String(), kb)
}

// setBanned flips the flag and returns the text for the moderator
func (b *Bot) setBanned(id int64, banned bool) (string, error) {
	if banned && b.admins.IsModerator(id) {
		return "⚠️ Admins can't be banned.", nil
	}
	_, err := b.profiles.SetBanned(id, banned)
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Sprintf("❌ User %d not found.", id), nil
	}
	if err != nil {
		return "", err
	}
	if banned {
		b.tell(id, "⛔ You have been banned from the restaurant.")
		return fmt.Sprintf("🚫 User %d banned.", id), nil
	}
	b.tell(id, "✅ Your ban has been lifted, welcome back!")
	return fmt.Sprintf("✅ User %d unbanned.", id), nil
}

func (b *Bot) banCommand(banned bool) router.HandlerFunc {
	return func(ev *router.Event, resp router.Responder) error {
		id, ok := parseUserID(ev.Payload)
		if !ok {
			if banned {
				return resp.Reply("Usage: /ban <user id>", nil)
			}
			return resp.Reply("Usage: /unban <user id>", nil)
		}
		text, err := b.setBanned(id, banned)
		if err != nil {
			return err
		}
		return resp.Reply(text, nil)
	}
}

func (b *Bot) banButton(banned bool) router.HandlerFunc {
	return func(ev *router.Event, resp router.Responder) error {
		id, err := ev.Token.Int64(0)
		if err != nil {
			return resp.Answer("", false)
		}
		text, err := b.setBanned(id, banned)
		if err != nil {
			return err
		}
		return resp.Answer(text, true)
	}
}
