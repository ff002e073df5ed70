package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotAuthorized    = errors.New("not authorized")
	ErrNotFound         = errors.New("not found")
	ErrAlreadyTerminal  = errors.New("record already decided")
	ErrNoActiveFlow     = errors.New("no active flow")
	ErrLastAdmin        = errors.New("cannot remove the last admin")
	ErrCategoryNotEmpty = errors.New("category still has items")
	ErrAlreadyExists    = errors.New("already exists")
	ErrEmptyCart        = errors.New("cart is empty")
)

// ValidationError reports input rejected by a flow step
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// DeliveryError reports a message that could not reach a recipient
type DeliveryError struct {
	ChatID int64
	Err    error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("delivery to %d failed: %v", e.ChatID, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}
