package testutil

import (
	"sync"

	"backoffice/internal/domain"
	"backoffice/internal/notify"
	"backoffice/internal/repository"

	"github.com/stretchr/testify/mock"
)

// MockStore is a mock for repository.Store
type MockStore struct {
	mock.Mock
}

func (m *MockStore) Get(table, id string) ([]byte, bool, error) {
	args := m.Called(table, id)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).([]byte), args.Bool(1), args.Error(2)
}

func (m *MockStore) Put(table, id string, data []byte) error {
	args := m.Called(table, id, data)
	return args.Error(0)
}

func (m *MockStore) Delete(table, id string) error {
	args := m.Called(table, id)
	return args.Error(0)
}

func (m *MockStore) List(table string) ([]repository.Entry, error) {
	args := m.Called(table)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]repository.Entry), args.Error(1)
}

func (m *MockStore) Clear(table string) error {
	args := m.Called(table)
	return args.Error(0)
}

func (m *MockStore) Next(counter string) (int64, error) {
	args := m.Called(counter)
	return args.Get(0).(int64), args.Error(1)
}

// MockNotifier is a mock for notify.Notifier
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Send(to notify.Target, msg notify.Message) (domain.MessageRef, error) {
	args := m.Called(to, msg)
	return args.Get(0).(domain.MessageRef), args.Error(1)
}

func (m *MockNotifier) Edit(ref domain.MessageRef, text string, kb notify.Keyboard) error {
	args := m.Called(ref, text, kb)
	return args.Error(0)
}

func (m *MockNotifier) Forward(to notify.Target, src domain.MessageRef) error {
	args := m.Called(to, src)
	return args.Error(0)
}

// Delivery is a message captured by RecordingNotifier
type Delivery struct {
	To  notify.Target
	Msg notify.Message
	Ref domain.MessageRef
}

// Edition is an edit captured by RecordingNotifier
type Edition struct {
	Ref      domain.MessageRef
	Text     string
	Keyboard notify.Keyboard
}

// RecordingNotifier keeps every outbound call for assertions.
// Chats listed in Fail reject deliveries with the mapped error.
type RecordingNotifier struct {
	mu       sync.Mutex
	nextID   int
	Sent     []Delivery
	Edits    []Edition
	Forwards []Delivery
	Topics   []Topic
	Fail     map[int64]error
}

// Topic is a forum topic created through RecordingNotifier
type Topic struct {
	ChatID   int64
	Name     string
	ThreadID int
}

// NewRecordingNotifier creates an empty recorder
func NewRecordingNotifier() *RecordingNotifier {
	return &RecordingNotifier{Fail: make(map[int64]error)}
}

func (r *RecordingNotifier) Send(to notify.Target, msg notify.Message) (domain.MessageRef, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err, ok := r.Fail[to.ChatID]; ok {
		return domain.MessageRef{}, &domain.DeliveryError{ChatID: to.ChatID, Err: err}
	}
	r.nextID++
	ref := domain.MessageRef{ChatID: to.ChatID, MessageID: r.nextID}
	r.Sent = append(r.Sent, Delivery{To: to, Msg: msg, Ref: ref})
	return ref, nil
}

func (r *RecordingNotifier) Edit(ref domain.MessageRef, text string, kb notify.Keyboard) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.Edits = append(r.Edits, Edition{Ref: ref, Text: text, Keyboard: kb})
	return nil
}

func (r *RecordingNotifier) Forward(to notify.Target, src domain.MessageRef) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err, ok := r.Fail[to.ChatID]; ok {
		return &domain.DeliveryError{ChatID: to.ChatID, Err: err}
	}
	r.Forwards = append(r.Forwards, Delivery{To: to, Ref: src})
	return nil
}

func (r *RecordingNotifier) CreateTopic(chatID int64, name string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err, ok := r.Fail[chatID]; ok {
		return 0, &domain.DeliveryError{ChatID: chatID, Err: err}
	}
	r.nextID++
	r.Topics = append(r.Topics, Topic{ChatID: chatID, Name: name, ThreadID: r.nextID})
	return r.nextID, nil
}

// SentTo returns messages delivered to chatID
func (r *RecordingNotifier) SentTo(chatID int64) []notify.Message {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []notify.Message
	for _, d := range r.Sent {
		if d.To.ChatID == chatID {
			out = append(out, d.Msg)
		}
	}
	return out
}

// Reset forgets captured calls
func (r *RecordingNotifier) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.Sent = nil
	r.Edits = nil
	r.Forwards = nil
}

// Reply is a response captured by RecordingResponder
type Reply struct {
	Text     string
	Keyboard notify.Keyboard
	Edited   bool
}

// RecordingResponder captures replies, edits and answers of one event
type RecordingResponder struct {
	Replies []Reply
	Answers []string
	Alerts  int
}

func (r *RecordingResponder) Reply(text string, kb notify.Keyboard) error {
	r.Replies = append(r.Replies, Reply{Text: text, Keyboard: kb})
	return nil
}

func (r *RecordingResponder) Edit(text string, kb notify.Keyboard) error {
	r.Replies = append(r.Replies, Reply{Text: text, Keyboard: kb, Edited: true})
	return nil
}

func (r *RecordingResponder) Answer(text string, alert bool) error {
	r.Answers = append(r.Answers, text)
	if alert {
		r.Alerts++
	}
	return nil
}

// Last returns the most recent reply or edit
func (r *RecordingResponder) Last() Reply {
	if len(r.Replies) == 0 {
		return Reply{}
	}
	return r.Replies[len(r.Replies)-1]
}
