package notify

import (
	"strconv"

	"backoffice/internal/domain"

	tele "gopkg.in/telebot.v3"
)

// Telegram implements Notifier on top of a telebot bot
type Telegram struct {
	bot *tele.Bot
}

// NewTelegram creates a telebot-backed notifier
func NewTelegram(bot *tele.Bot) *Telegram {
	return &Telegram{bot: bot}
}

// Markup converts a keyboard to telebot markup. Buttons carry raw callback
// data so the router sees the full token.
func Markup(kb Keyboard) *tele.ReplyMarkup {
	if len(kb) == 0 {
		return nil
	}

	rows := make([][]tele.InlineButton, 0, len(kb))
	for _, row := range kb {
		buttons := make([]tele.InlineButton, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, tele.InlineButton{Text: b.Text, Data: b.Data, URL: b.URL})
		}
		rows = append(rows, buttons)
	}
	return &tele.ReplyMarkup{InlineKeyboard: rows}
}

// Send delivers text or a captioned photo
func (t *Telegram) Send(to Target, msg Message) (domain.MessageRef, error) {
	opts := &tele.SendOptions{
		ThreadID:    to.ThreadID,
		ReplyMarkup: Markup(msg.Keyboard),
	}

	var what interface{} = msg.Text
	if msg.PhotoID != "" {
		what = &tele.Photo{File: tele.File{FileID: msg.PhotoID}, Caption: msg.Text}
	}

	sent, err := t.bot.Send(tele.ChatID(to.ChatID), what, opts)
	if err != nil {
		return domain.MessageRef{}, &domain.DeliveryError{ChatID: to.ChatID, Err: err}
	}
	return domain.MessageRef{ChatID: sent.Chat.ID, MessageID: sent.ID}, nil
}

// Edit replaces the text and keyboard of a sent message. An empty
// keyboard removes the controls.
func (t *Telegram) Edit(ref domain.MessageRef, text string, kb Keyboard) error {
	msg := tele.StoredMessage{MessageID: strconv.Itoa(ref.MessageID), ChatID: ref.ChatID}

	var err error
	if markup := Markup(kb); markup != nil {
		_, err = t.bot.Edit(msg, text, markup)
	} else {
		_, err = t.bot.Edit(msg, text)
	}
	if err != nil {
		return &domain.DeliveryError{ChatID: ref.ChatID, Err: err}
	}
	return nil
}

// Forward copies a message into another chat
func (t *Telegram) Forward(to Target, src domain.MessageRef) error {
	msg := tele.StoredMessage{MessageID: strconv.Itoa(src.MessageID), ChatID: src.ChatID}

	var opts []interface{}
	if to.ThreadID != 0 {
		opts = append(opts, &tele.SendOptions{ThreadID: to.ThreadID})
	}
	if _, err := t.bot.Forward(tele.ChatID(to.ChatID), msg, opts...); err != nil {
		return &domain.DeliveryError{ChatID: to.ChatID, Err: err}
	}
	return nil
}

// CreateTopic opens a forum topic and returns its thread id
func (t *Telegram) CreateTopic(chatID int64, name string) (int, error) {
	topic, err := t.bot.CreateTopic(&tele.Chat{ID: chatID}, &tele.Topic{Name: name})
	if err != nil {
		return 0, &domain.DeliveryError{ChatID: chatID, Err: err}
	}
	return topic.ThreadID, nil
}
