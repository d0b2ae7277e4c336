package ledgerdb

import (
	"errors"
	"fmt"

	"github.com/S0me0neR0man/ourledger/internal/validate"
)

var (
	ErrNotFound = errors.New("record not found")
	// ErrInvalidInput is shared with the validate and query packages.
	ErrInvalidInput = validate.ErrInvalidInput
	// ErrUnrecoverable marks write failures, corrupted stored bytes and
	// counter exhaustion. It aborts the current request only.
	ErrUnrecoverable = errors.New("unrecoverable storage failure")

	ErrCounterOverflow = errors.New("identifier counter exhausted")
	ErrCounterBehind   = errors.New("identifier counter behind stored records")
)

// NotFoundError reports an operation against an absent id.
type NotFoundError struct {
	Shape string
	Op    string
	ID    uint64
}

func (e *NotFoundError) Error() string {
	if e.Op == "" || e.Op == "get" {
		return fmt.Sprintf("%s with id=%d not found", e.Shape, e.ID)
	}
	return fmt.Sprintf("couldn't %s %s with id=%d: not found", e.Op, e.Shape, e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

func unrecoverable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrUnrecoverable, err)
}
