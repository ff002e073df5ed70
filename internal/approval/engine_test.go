package approval

import (
	"errors"
	"fmt"
	"testing"

	"backoffice/internal/domain"
	"backoffice/internal/flow"
	"backoffice/internal/notify"
	"backoffice/internal/repository"
	"backoffice/internal/router"
	"backoffice/internal/testutil"

	"github.com/AlekSi/pointer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticAdmins []int64

func (a staticAdmins) List() ([]int64, error) { return a, nil }

func (a staticAdmins) IsModerator(id int64) bool {
	for _, x := range a {
		if x == id {
			return true
		}
	}
	return false
}

const requester = int64(500)

type fixture struct {
	engine   *Engine
	notifier *testutil.RecordingNotifier
	store    repository.Store
	admins   staticAdmins
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	admins := staticAdmins{1, 2}
	store := testutil.NewTestStore()
	n := testutil.NewRecordingNotifier()
	e := NewEngine(store, admins, Admins{Lister: admins}, n, testutil.NewTestLogger())

	e.Register(Kind{
		Kind:         domain.KindRecharge,
		Table:        repository.TableRecharges,
		Prefix:       "RC",
		Verb:         "recharge_action",
		Title:        "Recharge",
		NoticeChoice: true,
		Summary:      func(r *domain.PendingRecord) string { return fmt.Sprintf("Amount: %d", r.Amount) },
		Notice: func(r *domain.PendingRecord) string {
			if r.Status == domain.StatusRejected {
				return "rejected: " + pointer.GetString(r.Reason)
			}
			return "approved"
		},
	})
	e.Register(Kind{
		Kind:      domain.KindOrder,
		Table:     repository.TableOrders,
		Verb:      "order_action",
		Title:     "Order",
		Lifecycle: OrderLifecycle,
		Labels:    map[domain.Decision]string{domain.DecisionApprove: "✅ Accept"},
		Notice:    func(r *domain.PendingRecord) string { return "order " + string(r.Status) },
	})
	return &fixture{engine: e, notifier: n, store: store, admins: admins}
}

func (f *fixture) submit(t *testing.T, kind domain.RecordKind) *domain.PendingRecord {
	t.Helper()
	rec := &domain.PendingRecord{Kind: kind, RequesterID: requester, RequesterName: "Mario", Amount: 50, ProofPhotoID: "photo-1"}
	out, err := f.engine.Submit(rec)
	require.NoError(t, err)
	return out
}

func TestLifecycle_Next(t *testing.T) {
	tests := []struct {
		name      string
		lifecycle Lifecycle
		from      domain.Status
		decision  domain.Decision
		want      domain.Status
		wantErr   bool
	}{
		{name: "approve", lifecycle: SimpleLifecycle, from: domain.StatusPending, decision: domain.DecisionApprove, want: domain.StatusApproved},
		{name: "reject", lifecycle: SimpleLifecycle, from: domain.StatusPending, decision: domain.DecisionReject, want: domain.StatusRejected},
		{name: "decided twice", lifecycle: SimpleLifecycle, from: domain.StatusApproved, decision: domain.DecisionReject, wantErr: true},
		{name: "ready on simple kind", lifecycle: SimpleLifecycle, from: domain.StatusPending, decision: domain.DecisionReady, wantErr: true},
		{name: "order accept", lifecycle: OrderLifecycle, from: domain.StatusPending, decision: domain.DecisionApprove, want: domain.StatusPreparing},
		{name: "order ready", lifecycle: OrderLifecycle, from: domain.StatusPreparing, decision: domain.DecisionReady, want: domain.StatusReady},
		{name: "order complete", lifecycle: OrderLifecycle, from: domain.StatusReady, decision: domain.DecisionComplete, want: domain.StatusCompleted},
		{name: "order skip ahead", lifecycle: OrderLifecycle, from: domain.StatusPending, decision: domain.DecisionComplete, wantErr: true},
		{name: "order reject after accept", lifecycle: OrderLifecycle, from: domain.StatusPreparing, decision: domain.DecisionReject, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.lifecycle.Next(tt.from, tt.decision)
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrAlreadyTerminal)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLifecycle_Available(t *testing.T) {
	assert.Equal(t, []domain.Decision{domain.DecisionApprove, domain.DecisionReject}, OrderLifecycle.Available(domain.StatusPending))
	assert.Equal(t, []domain.Decision{domain.DecisionReady}, OrderLifecycle.Available(domain.StatusPreparing))
	assert.Empty(t, SimpleLifecycle.Available(domain.StatusRejected))
}

func TestSubmit_NotifiesEveryModerator(t *testing.T) {
	f := newFixture(t)
	rec := f.submit(t, domain.KindRecharge)

	assert.Equal(t, "RC1", rec.ID)
	assert.Equal(t, domain.StatusPending, rec.Status)

	all, err := f.engine.List(domain.KindRecharge)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, int64(50), all[0].Amount)
	assert.Len(t, all[0].ModeratorRefs, 2)

	for _, id := range f.admins {
		msgs := f.notifier.SentTo(id)
		require.Len(t, msgs, 2, "summary and proof for %d", id)
		assert.Contains(t, msgs[0].Text, "Amount: 50")
		assert.True(t, testutil.HasButton(msgs[0].Keyboard, "recharge_action:approve:RC1"))
		assert.True(t, testutil.HasButton(msgs[0].Keyboard, "recharge_action:reject:RC1"))
		assert.Equal(t, "photo-1", msgs[1].PhotoID)
	}
	assert.Empty(t, f.notifier.SentTo(requester))

	next := f.submit(t, domain.KindRecharge)
	assert.Equal(t, "RC2", next.ID)
}

func TestSubmit_DeliveryFailureKeepsRecord(t *testing.T) {
	f := newFixture(t)
	f.notifier.Fail[2] = errors.New("blocked")

	rec := f.submit(t, domain.KindRecharge)

	stored, err := f.engine.Get(domain.KindRecharge, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, stored.Status)
	assert.Len(t, stored.ModeratorRefs, 1)
}

func TestDecide_OrderTwice(t *testing.T) {
	f := newFixture(t)
	rec := f.submit(t, domain.KindOrder)
	assert.Equal(t, "1", rec.ID)

	_, err := f.engine.Decide(domain.KindOrder, rec.ID, 1, domain.DecisionApprove, nil)
	require.NoError(t, err)

	_, err = f.engine.Decide(domain.KindOrder, rec.ID, 2, domain.DecisionApprove, nil)
	assert.ErrorIs(t, err, domain.ErrAlreadyTerminal)

	stored, err := f.engine.Get(domain.KindOrder, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPreparing, stored.Status)
	assert.Equal(t, int64(1), stored.ModeratorID)
}

func TestDecide_ApprovedTwiceNotifiesOnce(t *testing.T) {
	f := newFixture(t)
	f.engine.Register(Kind{
		Kind:   domain.KindSponsor,
		Table:  repository.TableSponsors,
		Prefix: "S",
		Verb:   "sponsor_action",
		Title:  "Sponsor",
		Notice: func(r *domain.PendingRecord) string { return "sponsor " + string(r.Status) },
	})
	rec := f.submit(t, domain.KindSponsor)
	assert.Equal(t, "S1", rec.ID)

	_, err := f.engine.Decide(domain.KindSponsor, rec.ID, 1, domain.DecisionApprove, nil)
	require.NoError(t, err)
	require.Len(t, f.notifier.SentTo(requester), 1)
	edits := len(f.notifier.Edits)

	_, err = f.engine.Decide(domain.KindSponsor, rec.ID, 2, domain.DecisionApprove, nil)
	assert.ErrorIs(t, err, domain.ErrAlreadyTerminal)

	stored, err := f.engine.Get(domain.KindSponsor, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusApproved, stored.Status)
	assert.Equal(t, int64(1), stored.ModeratorID)
	assert.Equal(t, []notify.Message{{Text: "sponsor approved"}}, f.notifier.SentTo(requester))
	assert.Len(t, f.notifier.Edits, edits)
}

func TestDecide_NonModerator(t *testing.T) {
	f := newFixture(t)
	rec := f.submit(t, domain.KindRecharge)
	f.notifier.Reset()

	_, err := f.engine.Decide(domain.KindRecharge, rec.ID, 99, domain.DecisionApprove, nil)
	assert.ErrorIs(t, err, domain.ErrNotAuthorized)

	stored, err := f.engine.Get(domain.KindRecharge, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, stored.Status)
	assert.Empty(t, f.notifier.Sent)
	assert.Empty(t, f.notifier.Edits)
}

func TestDecide_Unknown(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.Decide(domain.KindRecharge, "RC9", 1, domain.DecisionApprove, nil)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = f.engine.Decide(domain.KindSponsor, "S1", 1, domain.DecisionApprove, nil)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDecide_RejectWithReason(t *testing.T) {
	f := newFixture(t)
	rec := f.submit(t, domain.KindRecharge)
	f.notifier.Reset()

	out, err := f.engine.Decide(domain.KindRecharge, rec.ID, 2, domain.DecisionReject, pointer.ToString("blurry proof"))
	require.NoError(t, err)
	assert.Equal(t, "blurry proof", pointer.GetString(out.Reason))

	msgs := f.notifier.SentTo(requester)
	require.Len(t, msgs, 1)
	assert.Equal(t, "rejected: blurry proof", msgs[0].Text)

	require.Len(t, f.notifier.Edits, 2)
	for _, ed := range f.notifier.Edits {
		assert.Contains(t, ed.Text, "Reason: blurry proof")
		assert.Nil(t, ed.Keyboard)
	}
}

func TestDecide_NoticeChoice(t *testing.T) {
	f := newFixture(t)
	rec := f.submit(t, domain.KindRecharge)
	f.notifier.Reset()

	_, err := f.engine.Decide(domain.KindRecharge, rec.ID, 1, domain.DecisionApprove, nil)
	require.NoError(t, err)
	assert.Empty(t, f.notifier.SentTo(requester))
	require.NotEmpty(t, f.notifier.Edits)
	assert.True(t, testutil.HasButton(f.notifier.Edits[0].Keyboard, "notice:recharge:custom:RC1"))

	_, err = f.engine.SendNotice(domain.KindRecharge, rec.ID, 1, pointer.ToString("Enjoy!"))
	require.NoError(t, err)
	msgs := f.notifier.SentTo(requester)
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Text, "Enjoy!")

	_, err = f.engine.SendNotice(domain.KindRecharge, rec.ID, 1, nil)
	assert.ErrorIs(t, err, domain.ErrAlreadyTerminal)
	assert.Len(t, f.notifier.SentTo(requester), 1)
}

func TestDecide_OrderLifecycle(t *testing.T) {
	f := newFixture(t)
	rec := f.submit(t, domain.KindOrder)

	for _, d := range []domain.Decision{domain.DecisionApprove, domain.DecisionReady, domain.DecisionComplete} {
		_, err := f.engine.Decide(domain.KindOrder, rec.ID, 1, d, nil)
		require.NoError(t, err, d)
	}

	msgs := f.notifier.SentTo(requester)
	require.Len(t, msgs, 3)
	assert.Equal(t, "order preparing", msgs[0].Text)
	assert.Equal(t, "order completed", msgs[2].Text)

	_, err := f.engine.Decide(domain.KindOrder, rec.ID, 1, domain.DecisionReject, nil)
	assert.ErrorIs(t, err, domain.ErrAlreadyTerminal)
}

func TestDecide_ApproveHookFailure(t *testing.T) {
	f := newFixture(t)
	f.engine.kinds[domain.KindRecharge].OnApprove = func(*domain.PendingRecord) error {
		return errors.New("ledger down")
	}
	rec := f.submit(t, domain.KindRecharge)

	_, err := f.engine.Decide(domain.KindRecharge, rec.ID, 1, domain.DecisionApprove, nil)
	assert.Error(t, err)

	stored, err := f.engine.Get(domain.KindRecharge, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, stored.Status)
}

func TestReply(t *testing.T) {
	f := newFixture(t)
	rec := f.submit(t, domain.KindRecharge)

	_, err := f.engine.Reply(domain.KindRecharge, rec.ID, 1, "send a clearer photo")
	require.NoError(t, err)
	msgs := f.notifier.SentTo(requester)
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Text, "send a clearer photo")

	f.notifier.Fail[requester] = errors.New("blocked")
	_, err = f.engine.Reply(domain.KindRecharge, rec.ID, 1, "again")
	var derr *domain.DeliveryError
	assert.ErrorAs(t, err, &derr)
}

func TestCounts(t *testing.T) {
	f := newFixture(t)
	f.submit(t, domain.KindRecharge)
	rec := f.submit(t, domain.KindRecharge)
	_, err := f.engine.Decide(domain.KindRecharge, rec.ID, 1, domain.DecisionReject, nil)
	require.NoError(t, err)

	counts, err := f.engine.Counts()
	require.NoError(t, err)
	assert.Equal(t, Count{Pending: 1, Total: 2}, counts[domain.KindRecharge])
	assert.Equal(t, Count{}, counts[domain.KindOrder])
	assert.Equal(t, []string{repository.TableRecharges, repository.TableOrders}, f.engine.Tables())
}

func TestBind_RejectThroughButtons(t *testing.T) {
	f := newFixture(t)
	m := flow.NewMachine(f.store, testutil.NewTestLogger())
	r := router.New(m, f.admins, testutil.NewTestLogger())
	f.engine.Bind(r)

	rec := f.submit(t, domain.KindRecharge)
	f.notifier.Reset()

	resp := &testutil.RecordingResponder{}
	require.NoError(t, r.Dispatch(&router.Event{Kind: router.EventCallback, UserID: 1, ChatID: 1, Private: true, Data: "recharge_action:reject:" + rec.ID}, resp))
	assert.Contains(t, resp.Last().Text, "reason")

	require.NoError(t, r.Dispatch(&router.Event{Kind: router.EventText, UserID: 1, ChatID: 1, Private: true, Text: "wrong amount"}, resp))
	assert.Contains(t, resp.Last().Text, "rejected")

	stored, err := f.engine.Get(domain.KindRecharge, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRejected, stored.Status)
	assert.Equal(t, []notify.Message{{Text: "rejected: wrong amount"}}, f.notifier.SentTo(requester))
}

func TestBind_GroupButtonPromptsPrivately(t *testing.T) {
	f := newFixture(t)
	r := router.New(flow.NewMachine(f.store, testutil.NewTestLogger()), f.admins, testutil.NewTestLogger())
	f.engine.Bind(r)
	rec := f.submit(t, domain.KindRecharge)
	f.notifier.Reset()

	group := &testutil.RecordingResponder{}
	require.NoError(t, r.Dispatch(&router.Event{Kind: router.EventCallback, UserID: 2, ChatID: -100, Data: "recharge_action:reject:" + rec.ID}, group))
	assert.Empty(t, group.Replies)
	require.Len(t, group.Answers, 1)
	assert.Contains(t, group.Answers[0], "private chat")

	prompts := f.notifier.SentTo(2)
	require.Len(t, prompts, 1)
	assert.Contains(t, prompts[0].Text, "reason")

	private := &testutil.RecordingResponder{}
	require.NoError(t, r.Dispatch(&router.Event{Kind: router.EventText, UserID: 2, ChatID: 2, Private: true, Text: "duplicate"}, private))
	assert.Contains(t, private.Last().Text, "rejected")

	stored, err := f.engine.Get(domain.KindRecharge, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRejected, stored.Status)
}

func TestBind_GroupButtonFallsBackToGroup(t *testing.T) {
	f := newFixture(t)
	r := router.New(flow.NewMachine(f.store, testutil.NewTestLogger()), f.admins, testutil.NewTestLogger())
	f.engine.Bind(r)
	rec := f.submit(t, domain.KindRecharge)
	f.notifier.Fail[2] = errors.New("bot was never started")

	group := &testutil.RecordingResponder{}
	require.NoError(t, r.Dispatch(&router.Event{Kind: router.EventCallback, UserID: 2, ChatID: -100, Data: "recharge_action:reject:" + rec.ID}, group))
	assert.Contains(t, group.Last().Text, "reason")
}

func TestBind_NonModeratorButton(t *testing.T) {
	f := newFixture(t)
	r := router.New(flow.NewMachine(f.store, testutil.NewTestLogger()), f.admins, testutil.NewTestLogger())
	f.engine.Bind(r)
	rec := f.submit(t, domain.KindOrder)

	resp := &testutil.RecordingResponder{}
	require.NoError(t, r.Dispatch(&router.Event{Kind: router.EventCallback, UserID: requester, Data: "order_action:accept:" + rec.ID}, resp))
	assert.Equal(t, 1, resp.Alerts)

	stored, err := f.engine.Get(domain.KindOrder, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, stored.Status)
}
