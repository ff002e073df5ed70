package approval

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"backoffice/internal/callback"
	"backoffice/internal/domain"
	"backoffice/internal/notify"
	"backoffice/internal/repository"

	"github.com/AlekSi/pointer"
	"go.uber.org/zap"
)

// Button verbs shared by every kind
const (
	VerbNotice = "notice"
	VerbReply  = "reply"

	NoticeStandard = "standard"
	NoticeCustom   = "custom"
)

// Authorizer tells moderators apart
type Authorizer interface {
	IsModerator(userID int64) bool
}

// Count summarizes one kind
type Count struct {
	Pending int `json:"pending"`
	Total   int `json:"total"`
}

type registered struct {
	*Kind
	records *repository.Table[domain.PendingRecord]
}

// Engine owns every pending record
type Engine struct {
	store    repository.Store
	auth     Authorizer
	audience Audience
	notifier notify.Notifier
	logger   *zap.Logger
	now      func() time.Time

	kinds  map[domain.RecordKind]*registered
	byVerb map[string]*registered
	order  []domain.RecordKind
}

// NewEngine creates an engine without kinds
func NewEngine(store repository.Store, auth Authorizer, audience Audience, notifier notify.Notifier, logger *zap.Logger) *Engine {
	return &Engine{
		store:    store,
		auth:     auth,
		audience: audience,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
		kinds:    make(map[domain.RecordKind]*registered),
		byVerb:   make(map[string]*registered),
	}
}

// Register adds a kind
func (e *Engine) Register(k Kind) {
	if k.Lifecycle == nil {
		k.Lifecycle = SimpleLifecycle
	}
	if k.Table == "" {
		k.Table = string(k.Kind)
	}
	r := &registered{Kind: &k, records: repository.NewTable[domain.PendingRecord](e.store, k.Table)}
	if _, ok := e.kinds[k.Kind]; !ok {
		e.order = append(e.order, k.Kind)
	}
	e.kinds[k.Kind] = r
	e.byVerb[k.Verb] = r
}

func (e *Engine) lookup(kind domain.RecordKind) (*registered, error) {
	k, ok := e.kinds[kind]
	if !ok {
		return nil, fmt.Errorf("%w: kind %q", domain.ErrNotFound, kind)
	}
	return k, nil
}

// Get loads a record
func (e *Engine) Get(kind domain.RecordKind, id string) (*domain.PendingRecord, error) {
	k, err := e.lookup(kind)
	if err != nil {
		return nil, err
	}
	rec, err := k.records.Get(id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, fmt.Errorf("%w: %s #%s", domain.ErrNotFound, kind, id)
	}
	return rec, nil
}

// List returns every record of a kind, newest first
func (e *Engine) List(kind domain.RecordKind) ([]domain.PendingRecord, error) {
	k, err := e.lookup(kind)
	if err != nil {
		return nil, err
	}
	all, err := k.records.All()
	if err != nil {
		return nil, err
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	return all, nil
}

// Submit stores rec as pending under a fresh id and shows it to the
// moderators. Delivery failures are logged; the record stays pending.
func (e *Engine) Submit(rec *domain.PendingRecord) (*domain.PendingRecord, error) {
	k, err := e.lookup(rec.Kind)
	if err != nil {
		return nil, err
	}

	n, err := e.store.Next(string(k.Kind.Kind))
	if err != nil {
		return nil, fmt.Errorf("allocate id: %w", err)
	}
	now := e.now()
	rec.ID = k.Prefix + strconv.FormatInt(n, 10)
	rec.Status = domain.StatusPending
	rec.Reason = nil
	rec.NoticeSent = false
	rec.ModeratorRefs = nil
	rec.CreatedAt = now
	rec.UpdatedAt = now

	if err := k.records.Put(rec.ID, rec); err != nil {
		return nil, fmt.Errorf("save %s: %w", k.Kind.Kind, err)
	}

	log := e.logger.With(zap.String("kind", string(rec.Kind)), zap.String("record_id", rec.ID))
	log.Info("Record submitted", zap.Int64("requester_id", rec.RequesterID))

	targets, err := e.audience.Targets(rec.Kind)
	if err != nil {
		log.Error("Failed to resolve moderators", zap.Error(err))
		return rec, nil
	}
	if len(targets) == 0 {
		log.Warn("No moderators to notify")
	}

	msg := notify.Message{Text: e.render(k, rec), Keyboard: e.controls(k, rec)}
	for _, t := range targets {
		ref, err := e.notifier.Send(t, msg)
		if err != nil {
			log.Warn("Moderator notification failed", zap.Int64("chat_id", t.ChatID), zap.Error(err))
			continue
		}
		rec.ModeratorRefs = append(rec.ModeratorRefs, ref)

		if rec.ProofPhotoID != "" {
			proof := notify.Message{PhotoID: rec.ProofPhotoID, Text: fmt.Sprintf("📎 Proof for %s #%s", k.Title, rec.ID)}
			if _, err := e.notifier.Send(t, proof); err != nil {
				log.Warn("Proof delivery failed", zap.Int64("chat_id", t.ChatID), zap.Error(err))
			}
		}
	}

	if len(rec.ModeratorRefs) > 0 {
		if err := k.records.Put(rec.ID, rec); err != nil {
			return nil, fmt.Errorf("save %s: %w", k.Kind.Kind, err)
		}
	}
	return rec, nil
}

// Check validates a decision without applying it
func (e *Engine) Check(kind domain.RecordKind, id string, moderatorID int64, d domain.Decision) (*domain.PendingRecord, error) {
	_, rec, _, err := e.prepare(kind, id, moderatorID, d)
	return rec, err
}

func (e *Engine) prepare(kind domain.RecordKind, id string, moderatorID int64, d domain.Decision) (*registered, *domain.PendingRecord, domain.Status, error) {
	if !e.auth.IsModerator(moderatorID) {
		return nil, nil, "", domain.ErrNotAuthorized
	}
	k, err := e.lookup(kind)
	if err != nil {
		return nil, nil, "", err
	}
	rec, err := e.Get(kind, id)
	if err != nil {
		return nil, nil, "", err
	}
	next, err := k.Lifecycle.Next(rec.Status, d)
	if err != nil {
		return nil, rec, "", err
	}
	return k, rec, next, nil
}

// Decide applies a moderator decision, refreshes every moderator copy and
// notifies the requester. Reason is recorded for rejections.
func (e *Engine) Decide(kind domain.RecordKind, id string, moderatorID int64, d domain.Decision, reason *string) (*domain.PendingRecord, error) {
	k, rec, next, err := e.prepare(kind, id, moderatorID, d)
	if err != nil {
		return nil, err
	}

	log := e.logger.With(
		zap.String("kind", string(kind)),
		zap.String("record_id", id),
		zap.Int64("moderator_id", moderatorID),
	)

	rec.Status = next
	rec.ModeratorID = moderatorID
	rec.UpdatedAt = e.now()
	if d == domain.DecisionReject {
		rec.Reason = reason
	}

	if d == domain.DecisionApprove && k.OnApprove != nil {
		if err := k.OnApprove(rec); err != nil {
			log.Error("Approval side effect failed", zap.Error(err))
			return nil, fmt.Errorf("approve %s #%s: %w", kind, id, err)
		}
	}

	if err := k.records.Put(rec.ID, rec); err != nil {
		return nil, fmt.Errorf("save %s: %w", kind, err)
	}
	log.Info("Record decided", zap.String("decision", string(d)), zap.String("status", string(next)))

	if k.OnStatus != nil {
		k.OnStatus(rec)
	}
	e.refresh(k, rec)

	if d == domain.DecisionApprove && k.NoticeChoice {
		return rec, nil
	}
	e.notifyRequester(k, rec, k.notice(rec))
	return rec, nil
}

// SendNotice delivers the deferred approval notice, the standard one or
// custom text. It can happen once per record.
func (e *Engine) SendNotice(kind domain.RecordKind, id string, moderatorID int64, custom *string) (*domain.PendingRecord, error) {
	if !e.auth.IsModerator(moderatorID) {
		return nil, domain.ErrNotAuthorized
	}
	k, err := e.lookup(kind)
	if err != nil {
		return nil, err
	}
	rec, err := e.Get(kind, id)
	if err != nil {
		return nil, err
	}
	if !e.awaitingNotice(k, rec) {
		return nil, fmt.Errorf("%w: notice for %s #%s", domain.ErrAlreadyTerminal, kind, id)
	}

	text := k.notice(rec)
	if c := pointer.GetString(custom); c != "" {
		if k.CustomNotice != nil {
			text = k.CustomNotice(rec, c)
		} else {
			text = fmt.Sprintf("📢 Message from the staff about %s #%s:\n\n%s", k.Title, rec.ID, c)
		}
	}

	rec.NoticeSent = true
	rec.UpdatedAt = e.now()
	if err := k.records.Put(rec.ID, rec); err != nil {
		return nil, fmt.Errorf("save %s: %w", kind, err)
	}

	e.notifyRequester(k, rec, text)
	e.refresh(k, rec)
	return rec, nil
}

// Reply sends a free-text staff message to the requester of a record
func (e *Engine) Reply(kind domain.RecordKind, id string, moderatorID int64, text string) (*domain.PendingRecord, error) {
	if !e.auth.IsModerator(moderatorID) {
		return nil, domain.ErrNotAuthorized
	}
	k, err := e.lookup(kind)
	if err != nil {
		return nil, err
	}
	rec, err := e.Get(kind, id)
	if err != nil {
		return nil, err
	}

	msg := notify.Message{Text: fmt.Sprintf("💬 Reply from the staff about %s #%s:\n\n%s", k.Title, rec.ID, text)}
	if _, err := e.notifier.Send(notify.To(rec.RequesterID), msg); err != nil {
		return nil, err
	}
	e.logger.Info("Staff reply sent",
		zap.String("kind", string(kind)),
		zap.String("record_id", id),
		zap.Int64("moderator_id", moderatorID),
	)
	return rec, nil
}

// Counts returns pending and total records per kind
func (e *Engine) Counts() (map[domain.RecordKind]Count, error) {
	out := make(map[domain.RecordKind]Count, len(e.kinds))
	for kind, k := range e.kinds {
		all, err := k.records.All()
		if err != nil {
			return nil, fmt.Errorf("count %s: %w", kind, err)
		}
		c := Count{Total: len(all)}
		for _, r := range all {
			if r.Status == domain.StatusPending {
				c.Pending++
			}
		}
		out[kind] = c
	}
	return out, nil
}

// Tables lists the storage tables of registered kinds, for cleanup
func (e *Engine) Tables() []string {
	out := make([]string, 0, len(e.order))
	for _, kind := range e.order {
		out = append(out, e.kinds[kind].Table)
	}
	return out
}

func (k *registered) notice(rec *domain.PendingRecord) string {
	if k.Notice == nil {
		return ""
	}
	return k.Notice(rec)
}

func (e *Engine) awaitingNotice(k *registered, rec *domain.PendingRecord) bool {
	if !k.NoticeChoice || rec.NoticeSent {
		return false
	}
	next, err := k.Lifecycle.Next(domain.StatusPending, domain.DecisionApprove)
	return err == nil && rec.Status == next
}

func (e *Engine) notifyRequester(k *registered, rec *domain.PendingRecord, text string) {
	if text == "" {
		return
	}
	if _, err := e.notifier.Send(notify.To(rec.RequesterID), notify.Message{Text: text}); err != nil {
		e.logger.Warn("Requester notification failed",
			zap.String("kind", string(k.Kind.Kind)),
			zap.String("record_id", rec.ID),
			zap.Int64("requester_id", rec.RequesterID),
			zap.Error(err),
		)
	}
}

// refresh rewrites every moderator copy with the current status and controls
func (e *Engine) refresh(k *registered, rec *domain.PendingRecord) {
	text := e.render(k, rec)
	kb := e.controls(k, rec)
	for _, ref := range rec.ModeratorRefs {
		if err := e.notifier.Edit(ref, text, kb); err != nil {
			e.logger.Warn("Failed to refresh moderator message",
				zap.String("record_id", rec.ID),
				zap.String("ref", ref.String()),
				zap.Error(err),
			)
		}
	}
}

func (e *Engine) render(k *registered, rec *domain.PendingRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s #%s\n\n", k.Title, rec.ID)
	if k.Summary != nil {
		b.WriteString(k.Summary(rec))
		b.WriteString("\n\n")
	}
	b.WriteString("Status: " + StatusLabel(rec.Status))
	if reason := pointer.GetString(rec.Reason); reason != "" {
		b.WriteString("\nReason: " + reason)
	}
	if rec.ModeratorID != 0 {
		fmt.Fprintf(&b, "\nHandled by: %d", rec.ModeratorID)
	}
	if rec.NoticeSent {
		b.WriteString("\nRequester notified")
	}
	return b.String()
}

// controls builds the moderator keyboard for the record's status
func (e *Engine) controls(k *registered, rec *domain.PendingRecord) notify.Keyboard {
	if e.awaitingNotice(k, rec) {
		return notify.Inline(notify.Row(
			notify.Btn("📨 Standard notice", callback.New(VerbNotice, string(k.Kind.Kind), NoticeStandard, rec.ID)),
			notify.Btn("✍️ Custom notice", callback.New(VerbNotice, string(k.Kind.Kind), NoticeCustom, rec.ID)),
		))
	}

	decisions := k.Lifecycle.Available(rec.Status)
	if len(decisions) == 0 {
		return nil
	}
	row := make([]notify.Button, 0, len(decisions))
	for _, d := range decisions {
		row = append(row, notify.Btn(k.label(d), callback.New(k.Verb, k.qualifier(d), rec.ID)))
	}
	return notify.Inline(
		row,
		notify.Row(notify.Btn("💬 Reply", callback.New(VerbReply, string(k.Kind.Kind), rec.ID))),
	)
}
