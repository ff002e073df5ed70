// Package notify delivers messages to chats and builds inline keyboards.
package notify

import (
	"backoffice/internal/callback"
	"backoffice/internal/domain"
)

// Target is a chat, optionally a forum topic inside it
type Target struct {
	ChatID   int64
	ThreadID int
}

// To targets a private chat or a group without topics
func To(chatID int64) Target {
	return Target{ChatID: chatID}
}

// Button is one inline control
type Button struct {
	Text string
	Data string
	URL  string
}

// Btn builds a callback button from a token
func Btn(text string, tok callback.Token) Button {
	return Button{Text: text, Data: tok.Encode()}
}

// Keyboard is a grid of inline buttons
type Keyboard [][]Button

// Row groups buttons into a keyboard row
func Row(buttons ...Button) []Button {
	return buttons
}

// Inline builds a keyboard out of rows
func Inline(rows ...[]Button) Keyboard {
	return Keyboard(rows)
}

// With returns a copy of the keyboard with extra rows appended
func (k Keyboard) With(rows ...[]Button) Keyboard {
	out := make(Keyboard, 0, len(k)+len(rows))
	out = append(out, k...)
	return append(out, rows...)
}

// Message is an outbound message
type Message struct {
	Text     string
	PhotoID  string
	Keyboard Keyboard
}

// Notifier sends, edits and forwards messages
type Notifier interface {
	Send(to Target, msg Message) (domain.MessageRef, error)
	Edit(ref domain.MessageRef, text string, kb Keyboard) error
	Forward(to Target, src domain.MessageRef) error
}

// Forums manages topics of forum supergroups
type Forums interface {
	CreateTopic(chatID int64, name string) (threadID int, err error)
}
