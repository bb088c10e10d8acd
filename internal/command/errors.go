package command

import (
	"errors"
	"fmt"
)

var (
	ErrNoTrigger          = errors.New("trigger not present")
	ErrMalformedCommand   = errors.New("malformed command")
	ErrUnrecognizedOption = errors.New("unrecognized option")
	ErrInvalidRange       = errors.New("invalid range")
)

// RejectError explains why a comment did not yield a Command.
type RejectError struct {
	Kind   error
	Detail string
}

func (e *RejectError) Error() string {
	if e.Detail == "" {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func (e *RejectError) Unwrap() error {
	return e.Kind
}

func reject(kind error, format string, args ...any) error {
	return &RejectError{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}
