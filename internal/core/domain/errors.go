package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrTemporary         = errors.New("temporary failure")
	ErrAnalysisNotFound  = errors.New("analysis not found")
	ErrAgentNotFound     = errors.New("agent not found")
	ErrMalformedResponse = errors.New("malformed model response")
	ErrCoercion          = errors.New("response coercion failed")
	ErrChannelSearch     = errors.New("channel search failed")
	ErrPersistence       = errors.New("persistence failed")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

// MalformedResponseError reports model output no extraction strategy could parse.
// Raw keeps the offending text for diagnostics.
type MalformedResponseError struct {
	Raw    string
	Reason string
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("%s: %s", ErrMalformedResponse.Error(), e.Reason)
}

func (e *MalformedResponseError) Unwrap() error { return ErrMalformedResponse }

// CoercionError is returned only when a structurally required record is not a mapping.
type CoercionError struct {
	Field string
	Got   string
}

func (e *CoercionError) Error() string {
	return fmt.Sprintf("%s: %s must be an object, got %s", ErrCoercion.Error(), e.Field, e.Got)
}

func (e *CoercionError) Unwrap() error { return ErrCoercion }

// ChannelSearchError is the single failure contract of every secondary agent.
type ChannelSearchError struct {
	Channel Channel
	Err     error
}

func (e *ChannelSearchError) Error() string {
	return fmt.Sprintf("%s channel: %s: %v", e.Channel, ErrChannelSearch.Error(), e.Err)
}

func (e *ChannelSearchError) Unwrap() []error { return []error{ErrChannelSearch, e.Err} }
