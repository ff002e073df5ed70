package domain

import (
	"fmt"
	"time"
)

// RecordKind is the type of a pending record
type RecordKind string

const (
	KindOrder        RecordKind = "order"
	KindSponsor      RecordKind = "sponsor"
	KindApplication  RecordKind = "application"
	KindRegistration RecordKind = "registration"
	KindRecharge     RecordKind = "recharge"
	KindWithdrawal   RecordKind = "withdrawal"
)

// Status of a pending record
type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusPreparing Status = "preparing"
	StatusReady     Status = "ready"
	StatusCompleted Status = "completed"
)

// Terminal reports whether no further decision may change the record
func (s Status) Terminal() bool {
	switch s {
	case StatusApproved, StatusRejected, StatusCompleted:
		return true
	}
	return false
}

// Decision is a moderator action on a record
type Decision string

const (
	DecisionApprove  Decision = "approve"
	DecisionReject   Decision = "reject"
	DecisionReady    Decision = "ready"
	DecisionComplete Decision = "complete"
)

// ParseDecision accepts the callback spelling of a decision
func ParseDecision(s string) (Decision, error) {
	switch s {
	case "approve", "accept":
		return DecisionApprove, nil
	case "reject":
		return DecisionReject, nil
	case "ready":
		return DecisionReady, nil
	case "complete":
		return DecisionComplete, nil
	}
	return "", fmt.Errorf("unknown decision %q", s)
}

// CartItem is one line of a cart or an order
type CartItem struct {
	Name      string `json:"name"`
	Category  string `json:"category,omitempty"`
	UnitPrice int64  `json:"unit_price"`
	Quantity  int    `json:"quantity"`
}

// Subtotal returns price times quantity
func (i CartItem) Subtotal() int64 {
	return i.UnitPrice * int64(i.Quantity)
}

// PendingRecord is a request awaiting a moderator decision
type PendingRecord struct {
	ID            string       `json:"id"`
	Kind          RecordKind   `json:"kind"`
	RequesterID   int64        `json:"requester_id"`
	RequesterName string       `json:"requester_name"`
	Payload       Fields       `json:"payload,omitempty"`
	Amount        int64        `json:"amount,omitempty"`
	Items         []CartItem   `json:"items,omitempty"`
	ProofPhotoID  string       `json:"proof_photo_id,omitempty"`
	SourceRef     *MessageRef  `json:"source_ref,omitempty"`
	Status        Status       `json:"status"`
	Reason        *string      `json:"reason,omitempty"`
	ModeratorID   int64        `json:"moderator_id,omitempty"`
	NoticeSent    bool         `json:"notice_sent,omitempty"`
	ModeratorRefs []MessageRef `json:"moderator_refs,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

// Total returns the order total
func (r *PendingRecord) Total() int64 {
	var total int64
	for _, item := range r.Items {
		total += item.Subtotal()
	}
	return total
}
