package flow

import (
	"backoffice/internal/domain"
	"backoffice/internal/notify"
)

// Kind is the expected shape of a step's input
type Kind int

const (
	// KindText accepts any non-empty text
	KindText Kind = iota
	// KindAmount accepts an integer greater than zero
	KindAmount
	// KindInteger accepts any integer, or a non-negative one with NonNegative
	KindInteger
	// KindPhoto requires a photo attachment and stores its file id
	KindPhoto
	// KindMessage accepts text or a caption and remembers the source message
	KindMessage
	// KindSecret accepts non-empty text and stores only its bcrypt hash
	KindSecret
)

// Step is one prompt of a form
type Step struct {
	Field       string
	Kind        Kind
	Prompt      string
	Keyboard    notify.Keyboard
	NonNegative bool
}

// Form is the ordered step list of a flow
type Form struct {
	Name          string
	Flow          domain.FlowID
	Steps         []Step
	ModeratorOnly bool
}

// RefSuffix is appended to a KindMessage field name to store the source message
const RefSuffix = "_ref"

// Input is a raw user message offered to the current step
type Input struct {
	Text    string
	Caption string
	PhotoID string
	Source  *domain.MessageRef
}

// Prompt is what the user should see next
type Prompt struct {
	Field    string
	Text     string
	Keyboard notify.Keyboard
}

// Completion carries everything a finished form collected
type Completion struct {
	Form   string
	Flow   domain.FlowID
	UserID int64
	Fields domain.Fields
}

// Outcome of submitting input. Either Next, Completed, or Invalid together
// with the Retry prompt is set.
type Outcome struct {
	Next      *Prompt
	Invalid   *domain.ValidationError
	Retry     *Prompt
	Completed *Completion
}
