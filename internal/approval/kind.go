// Package approval runs the moderation lifecycle shared by every request
// kind: submission to the moderators, decisions, notices and replies.
package approval

import (
	"context"
	"fmt"

	"backoffice/internal/domain"
	"backoffice/internal/notify"

	"github.com/looplab/fsm"
)

// Lifecycle lists the transitions a kind allows. Event names are decisions.
type Lifecycle fsm.Events

// SimpleLifecycle is a single decision: approve or reject
var SimpleLifecycle = Lifecycle{
	{Name: string(domain.DecisionApprove), Src: []string{string(domain.StatusPending)}, Dst: string(domain.StatusApproved)},
	{Name: string(domain.DecisionReject), Src: []string{string(domain.StatusPending)}, Dst: string(domain.StatusRejected)},
}

// OrderLifecycle accepts into preparation, then ready, then completed.
// Rejection is only possible before acceptance.
var OrderLifecycle = Lifecycle{
	{Name: string(domain.DecisionApprove), Src: []string{string(domain.StatusPending)}, Dst: string(domain.StatusPreparing)},
	{Name: string(domain.DecisionReject), Src: []string{string(domain.StatusPending)}, Dst: string(domain.StatusRejected)},
	{Name: string(domain.DecisionReady), Src: []string{string(domain.StatusPreparing)}, Dst: string(domain.StatusReady)},
	{Name: string(domain.DecisionComplete), Src: []string{string(domain.StatusReady)}, Dst: string(domain.StatusCompleted)},
}

var decisionOrder = []domain.Decision{
	domain.DecisionApprove,
	domain.DecisionReady,
	domain.DecisionComplete,
	domain.DecisionReject,
}

func (l Lifecycle) machine(from domain.Status) *fsm.FSM {
	return fsm.NewFSM(string(from), fsm.Events(l), fsm.Callbacks{})
}

// Next applies a decision. Anything the lifecycle doesn't allow from the
// current status, including every decision on a terminal record, is
// ErrAlreadyTerminal.
func (l Lifecycle) Next(from domain.Status, d domain.Decision) (domain.Status, error) {
	if from.Terminal() {
		return from, domain.ErrAlreadyTerminal
	}
	m := l.machine(from)
	if !m.Can(string(d)) {
		return from, fmt.Errorf("%w: %s is not possible from %s", domain.ErrAlreadyTerminal, d, from)
	}
	if err := m.Event(context.Background(), string(d)); err != nil {
		return from, fmt.Errorf("%w: %v", domain.ErrAlreadyTerminal, err)
	}
	return domain.Status(m.Current()), nil
}

// Available returns the decisions possible from status in display order
func (l Lifecycle) Available(from domain.Status) []domain.Decision {
	if from.Terminal() {
		return nil
	}
	m := l.machine(from)
	var out []domain.Decision
	for _, d := range decisionOrder {
		if m.Can(string(d)) {
			out = append(out, d)
		}
	}
	return out
}

// Kind describes one moderated request type
type Kind struct {
	Kind      domain.RecordKind
	Table     string
	Prefix    string
	Verb      string
	Title     string
	Lifecycle Lifecycle

	// NoticeChoice defers the approval notice until a moderator picks the
	// standard text or writes a custom one
	NoticeChoice bool

	// Labels override the decision button texts
	Labels map[domain.Decision]string

	// Summary renders the record body for moderators
	Summary func(rec *domain.PendingRecord) string
	// Notice renders the standard requester notice for the current status
	Notice func(rec *domain.PendingRecord) string
	// CustomNotice wraps moderator text into the approval notice
	CustomNotice func(rec *domain.PendingRecord, text string) string
	// OnApprove runs before an approval is persisted; an error aborts it
	OnApprove func(rec *domain.PendingRecord) error
	// OnStatus runs after any persisted transition
	OnStatus func(rec *domain.PendingRecord)
}

var defaultLabels = map[domain.Decision]string{
	domain.DecisionApprove:  "✅ Approve",
	domain.DecisionReject:   "❌ Reject",
	domain.DecisionReady:    "🍽 Ready",
	domain.DecisionComplete: "🏁 Completed",
}

func (k *Kind) label(d domain.Decision) string {
	if l, ok := k.Labels[d]; ok {
		return l
	}
	return defaultLabels[d]
}

// qualifier is the decision segment of the button token, "accept" for orders
func (k *Kind) qualifier(d domain.Decision) string {
	if d == domain.DecisionApprove && k.Kind == domain.KindOrder {
		return "accept"
	}
	return string(d)
}

// StatusLabel renders a status for humans
func StatusLabel(s domain.Status) string {
	switch s {
	case domain.StatusPending:
		return "⏳ Pending"
	case domain.StatusApproved:
		return "✅ Approved"
	case domain.StatusRejected:
		return "❌ Rejected"
	case domain.StatusPreparing:
		return "👨‍🍳 Preparing"
	case domain.StatusReady:
		return "🍽 Ready"
	case domain.StatusCompleted:
		return "🏁 Completed"
	}
	return string(s)
}

// Audience resolves where moderator messages of a kind go
type Audience interface {
	Targets(kind domain.RecordKind) ([]notify.Target, error)
}

// AdminLister is the part of the admin service audiences need
type AdminLister interface {
	List() ([]int64, error)
}

// Admins sends every kind to each admin privately
type Admins struct {
	Lister AdminLister
}

func (a Admins) Targets(domain.RecordKind) ([]notify.Target, error) {
	ids, err := a.Lister.List()
	if err != nil {
		return nil, err
	}
	out := make([]notify.Target, 0, len(ids))
	for _, id := range ids {
		out = append(out, notify.To(id))
	}
	return out, nil
}
