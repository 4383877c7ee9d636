package genai

import (
	"errors"
	"fmt"
)

// Kind categorizes a failed generation call.
type Kind string

const (
	KindRateLimited Kind = "rate_limited"
	KindMalformed   Kind = "malformed_response"
	KindTimeout     Kind = "timeout"
	KindUpstream    Kind = "upstream"
)

// Error is the failure type returned by Client. Only KindRateLimited is retried.
type Error struct {
	Kind   Kind
	Status int
	Err    error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("genai %s (status %d): %v", e.Kind, e.Status, e.Err)
	}
	return fmt.Sprintf("genai %s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsKind reports whether err is a genai Error of kind k.
func IsKind(err error, k Kind) bool {
	var gerr *Error
	return errors.As(err, &gerr) && gerr.Kind == k
}
