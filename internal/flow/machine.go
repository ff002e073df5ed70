package flow

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"backoffice/internal/domain"
	"backoffice/internal/repository"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Machine drives users through registered forms. It keeps at most one
// state per user; starting a form discards any unfinished one.
type Machine struct {
	forms    map[string]Form
	states   *repository.Table[domain.ConversationState]
	logger   *zap.Logger
	ttl      time.Duration
	now      func() time.Time
	hashCost int
}

// Option customizes a Machine
type Option func(*Machine)

// WithTTL expires states untouched for longer than ttl. Zero disables expiry.
func WithTTL(ttl time.Duration) Option {
	return func(m *Machine) { m.ttl = ttl }
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(m *Machine) { m.now = now }
}

// WithHashCost sets the bcrypt cost for secret steps
func WithHashCost(cost int) Option {
	return func(m *Machine) { m.hashCost = cost }
}

// NewMachine creates a state machine persisting states in store
func NewMachine(store repository.Store, logger *zap.Logger, opts ...Option) *Machine {
	m := &Machine{
		forms:    make(map[string]Form),
		states:   repository.NewTable[domain.ConversationState](store, repository.TableUserStates),
		logger:   logger,
		now:      time.Now,
		hashCost: bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Register adds forms. Re-registering a name replaces the previous form.
func (m *Machine) Register(forms ...Form) {
	for _, f := range forms {
		if f.Name == "" || len(f.Steps) == 0 {
			panic(fmt.Sprintf("flow: form %q has no steps", f.Name))
		}
		m.forms[f.Name] = f
	}
}

// Form looks up a registered form
func (m *Machine) Form(name string) (Form, bool) {
	f, ok := m.forms[name]
	return f, ok
}

func stateKey(userID int64) string {
	return strconv.FormatInt(userID, 10)
}

// Start positions the user at the first step of form, replacing any active
// state. Steps whose field is already in seed are skipped.
func (m *Machine) Start(userID int64, form string, seed domain.Fields) (Prompt, error) {
	f, ok := m.forms[form]
	if !ok {
		return Prompt{}, fmt.Errorf("unknown form %q", form)
	}

	collected := seed.Clone()
	step := nextStep(f, collected, 0)
	if step >= len(f.Steps) {
		return Prompt{}, fmt.Errorf("form %q has nothing left to ask", form)
	}

	now := m.now()
	state := &domain.ConversationState{
		UserID:    userID,
		Flow:      f.Flow,
		Form:      f.Name,
		Step:      step,
		Collected: collected,
		StartedAt: now,
		UpdatedAt: now,
	}

	if prev, err := m.load(userID); err == nil && prev != nil {
		m.logger.Info("Superseding unfinished flow",
			zap.Int64("user_id", userID),
			zap.String("previous_form", prev.Form),
			zap.String("form", form),
		)
	}

	if err := m.states.Put(stateKey(userID), state); err != nil {
		return Prompt{}, fmt.Errorf("save state: %w", err)
	}

	return promptFor(f.Steps[step]), nil
}

// Current returns the active state and its step, or nil when idle
func (m *Machine) Current(userID int64) (*domain.ConversationState, *Step, error) {
	state, err := m.load(userID)
	if err != nil || state == nil {
		return nil, nil, err
	}

	f, ok := m.forms[state.Form]
	if !ok || state.Step >= len(f.Steps) {
		return state, nil, nil
	}
	step := f.Steps[state.Step]
	return state, &step, nil
}

// Submit offers input to the user's current step
func (m *Machine) Submit(userID int64, in Input) (Outcome, error) {
	state, err := m.load(userID)
	if err != nil {
		return Outcome{}, err
	}
	if state == nil {
		return Outcome{}, domain.ErrNoActiveFlow
	}

	f, ok := m.forms[state.Form]
	if !ok || state.Step >= len(f.Steps) {
		// form definitions changed since the state was saved
		m.logger.Warn("Dropping state for unknown form",
			zap.Int64("user_id", userID),
			zap.String("form", state.Form),
		)
		if err := m.states.Delete(stateKey(userID)); err != nil {
			return Outcome{}, err
		}
		return Outcome{}, domain.ErrNoActiveFlow
	}

	step := f.Steps[state.Step]
	values, verr := m.validate(step, in)
	if verr != nil {
		prompt := promptFor(step)
		return Outcome{Invalid: verr, Retry: &prompt}, nil
	}

	if state.Collected == nil {
		state.Collected = domain.Fields{}
	}
	for k, v := range values {
		state.Collected[k] = v
	}

	next := nextStep(f, state.Collected, state.Step+1)
	if next >= len(f.Steps) {
		if err := m.states.Delete(stateKey(userID)); err != nil {
			return Outcome{}, fmt.Errorf("clear state: %w", err)
		}
		m.logger.Info("Flow completed",
			zap.Int64("user_id", userID),
			zap.String("form", f.Name),
		)
		return Outcome{Completed: &Completion{
			Form:   f.Name,
			Flow:   f.Flow,
			UserID: userID,
			Fields: state.Collected,
		}}, nil
	}

	state.Step = next
	state.UpdatedAt = m.now()
	if err := m.states.Put(stateKey(userID), state); err != nil {
		return Outcome{}, fmt.Errorf("save state: %w", err)
	}

	prompt := promptFor(f.Steps[next])
	return Outcome{Next: &prompt}, nil
}

// Cancel clears the user's state. It reports whether a flow was active.
func (m *Machine) Cancel(userID int64) (bool, error) {
	state, err := m.load(userID)
	if err != nil {
		return false, err
	}
	if state == nil {
		return false, nil
	}
	if err := m.states.Delete(stateKey(userID)); err != nil {
		return false, fmt.Errorf("clear state: %w", err)
	}
	return true, nil
}

// load returns the stored state, dropping it when expired
func (m *Machine) load(userID int64) (*domain.ConversationState, error) {
	state, err := m.states.Get(stateKey(userID))
	if err != nil {
		return nil, fmt.Errorf("load state: %w", err)
	}
	if state == nil {
		return nil, nil
	}

	if m.ttl > 0 && m.now().Sub(state.UpdatedAt) > m.ttl {
		m.logger.Info("Conversation state expired",
			zap.Int64("user_id", userID),
			zap.String("form", state.Form),
		)
		if err := m.states.Delete(stateKey(userID)); err != nil {
			return nil, fmt.Errorf("expire state: %w", err)
		}
		return nil, nil
	}
	return state, nil
}

func nextStep(f Form, collected domain.Fields, from int) int {
	i := from
	for i < len(f.Steps) && collected.Has(f.Steps[i].Field) {
		i++
	}
	return i
}

func promptFor(s Step) Prompt {
	return Prompt{Field: s.Field, Text: s.Prompt, Keyboard: s.Keyboard}
}

func (m *Machine) validate(s Step, in Input) (domain.Fields, *domain.ValidationError) {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		text = strings.TrimSpace(in.Caption)
	}
	invalid := func(msg string) *domain.ValidationError {
		return &domain.ValidationError{Field: s.Field, Message: msg}
	}

	switch s.Kind {
	case KindText:
		if text == "" {
			return nil, invalid("text is required")
		}
		return domain.Fields{s.Field: text}, nil

	case KindAmount:
		v, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return nil, invalid("enter a whole number")
		}
		if v <= 0 {
			return nil, invalid("the amount must be greater than zero")
		}
		return domain.Fields{s.Field: strconv.FormatInt(v, 10)}, nil

	case KindInteger:
		v, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return nil, invalid("enter a whole number")
		}
		if s.NonNegative && v < 0 {
			return nil, invalid("the number can't be negative")
		}
		return domain.Fields{s.Field: strconv.FormatInt(v, 10)}, nil

	case KindPhoto:
		if in.PhotoID == "" {
			return nil, invalid("send a photo")
		}
		return domain.Fields{s.Field: in.PhotoID}, nil

	case KindMessage:
		if text == "" {
			return nil, invalid("send or forward a message with text")
		}
		out := domain.Fields{s.Field: text}
		if in.Source != nil {
			out[s.Field+RefSuffix] = in.Source.String()
		}
		return out, nil

	case KindSecret:
		if text == "" {
			return nil, invalid("text is required")
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(text), m.hashCost)
		if err != nil {
			m.logger.Error("Failed to hash secret", zap.String("field", s.Field), zap.Error(err))
			return nil, invalid("could not store the value, try again")
		}
		return domain.Fields{s.Field: string(hash)}, nil
	}

	return nil, invalid("unsupported step")
}
