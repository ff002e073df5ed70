package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// FlowID identifies the business flow a conversation belongs to
type FlowID string

const (
	FlowNone           FlowID = "none"
	FlowRegistration   FlowID = "registration"
	FlowRecharge       FlowID = "recharge"
	FlowWithdrawal     FlowID = "withdrawal"
	FlowSponsorRequest FlowID = "sponsor_request"
	FlowJobApplication FlowID = "job_application"
	FlowOrderCheckout  FlowID = "order_checkout"
	FlowAdminAction    FlowID = "admin_action"
)

// Fields holds values collected by a flow, keyed by field name.
// Integers are stored in canonical decimal form.
type Fields map[string]string

// Int parses an integer field
func (f Fields) Int(name string) (int64, error) {
	raw, ok := f[name]
	if !ok {
		return 0, fmt.Errorf("field %q is missing", name)
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("field %q is not an integer: %w", name, err)
	}
	return v, nil
}

// Has reports whether a non-empty value is present
func (f Fields) Has(name string) bool {
	return strings.TrimSpace(f[name]) != ""
}

// Clone returns an independent copy
func (f Fields) Clone() Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// ConversationState is the per-user cursor through an active flow
type ConversationState struct {
	UserID    int64     `json:"user_id"`
	Flow      FlowID    `json:"flow_id"`
	Form      string    `json:"form"`
	Step      int       `json:"step"`
	Collected Fields    `json:"collected"`
	StartedAt time.Time `json:"started_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MessageRef points at a message already delivered to a chat
type MessageRef struct {
	ChatID    int64 `json:"chat_id"`
	MessageID int   `json:"message_id"`
}

// String encodes the reference as chat:message
func (r MessageRef) String() string {
	return strconv.FormatInt(r.ChatID, 10) + ":" + strconv.Itoa(r.MessageID)
}

// ParseMessageRef decodes a chat:message reference
func ParseMessageRef(s string) (MessageRef, error) {
	chat, msg, ok := strings.Cut(s, ":")
	if !ok {
		return MessageRef{}, fmt.Errorf("invalid message ref %q", s)
	}
	chatID, err := strconv.ParseInt(chat, 10, 64)
	if err != nil {
		return MessageRef{}, fmt.Errorf("invalid chat id in %q: %w", s, err)
	}
	msgID, err := strconv.Atoi(msg)
	if err != nil {
		return MessageRef{}, fmt.Errorf("invalid message id in %q: %w", s, err)
	}
	return MessageRef{ChatID: chatID, MessageID: msgID}, nil
}
