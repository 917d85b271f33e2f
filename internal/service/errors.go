package service

import (
	"errors"
	"fmt"

	"github.com/Varun5711/clubhouse/internal/auth"
	"github.com/Varun5711/clubhouse/internal/storage"
)

var (
	ErrNotFound          = errors.New("resource not found")
	ErrWrongCredentials  = errors.New("wrong credentials")
	ErrPasswordUnchanged = errors.New("new password must be different from the current password")
	ErrTokenExpired      = auth.ErrTokenExpired
	ErrInvalidToken      = auth.ErrInvalidToken
	ErrForbidden         = errors.New("forbidden")
	ErrInvalidInput      = errors.New("invalid input")
	ErrConflict          = errors.New("duplicate entry")
	ErrForeignKey        = errors.New("foreign key constraint violation")
	ErrSlotTaken         = errors.New("court already reserved for this slot")
)

func invalidInput(err error) error {
	return fmt.Errorf("%w: %v", ErrInvalidInput, err)
}

// storeError maps storage sentinels onto service errors and wraps everything else.
func storeError(op string, err error) error {
	switch {
	case errors.Is(err, storage.ErrDuplicate):
		return fmt.Errorf("%s: %w", op, ErrConflict)
	case errors.Is(err, storage.ErrForeignKey):
		return fmt.Errorf("%s: %w", op, ErrForeignKey)
	case errors.Is(err, storage.ErrSlotTaken):
		return fmt.Errorf("%s: %w", op, ErrSlotTaken)
	default:
		return fmt.Errorf("failed to %s: %w", op, err)
	}
}
