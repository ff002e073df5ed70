package testutil

import (
	"strings"
	"time"

	"backoffice/internal/domain"
	"backoffice/internal/notify"
	"backoffice/internal/repository/memory"

	"go.uber.org/zap"
)

// NewTestLogger creates a no-op logger for tests
func NewTestLogger() *zap.Logger {
	return zap.NewNop()
}

// NewTestStore creates an empty in-memory store
func NewTestStore() *memory.Store {
	return memory.NewStore()
}

// NewTestRecord creates a pending record
func NewTestRecord(kind domain.RecordKind, id string, requesterID int64) *domain.PendingRecord {
	now := time.Now()
	return &domain.PendingRecord{
		ID:            id,
		Kind:          kind,
		RequesterID:   requesterID,
		RequesterName: "Tester",
		Payload:       domain.Fields{},
		Status:        domain.StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// FixedClock returns a clock stuck at t
func FixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// HasButton reports whether the keyboard contains a button with the given callback data
func HasButton(kb notify.Keyboard, data string) bool {
	for _, row := range kb {
		for _, b := range row {
			if b.Data == data {
				return true
			}
		}
	}
	return false
}

// HasButtonPrefix reports whether any button's callback data starts with prefix
func HasButtonPrefix(kb notify.Keyboard, prefix string) bool {
	for _, row := range kb {
		for _, b := range row {
			if strings.HasPrefix(b.Data, prefix) {
				return true
			}
		}
	}
	return false
}
