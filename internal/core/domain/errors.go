package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrPrimaryRetrieval marks a dense-backend failure. The dense store is
	// the primary signal source, so this aborts the query.
	ErrPrimaryRetrieval = errors.New("primary retrieval failed")
	ErrInvalidInput     = errors.New("invalid input")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrTemporary        = errors.New("temporary failure")
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
