package books

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/odyssey-erp/odyssey-books/internal/shared"
)

var (
	// ErrAccountNotFound indicates a missing account.
	ErrAccountNotFound = fmt.Errorf("books: account %w", shared.ErrNotFound)
	// ErrPartyNotFound indicates a missing party.
	ErrPartyNotFound = fmt.Errorf("books: party %w", shared.ErrNotFound)
	// ErrItemNotFound indicates a missing item.
	ErrItemNotFound = fmt.Errorf("books: item %w", shared.ErrNotFound)
	// ErrVoucherNotFound indicates a missing voucher.
	ErrVoucherNotFound = fmt.Errorf("books: voucher %w", shared.ErrNotFound)
	// ErrJournalNotFound indicates a voucher without a journal entry.
	ErrJournalNotFound = fmt.Errorf("books: journal entry %w", shared.ErrNotFound)
	// ErrDuplicateCode indicates a master code collision.
	ErrDuplicateCode = fmt.Errorf("books: code already exists: %w", shared.ErrConflict)
	// ErrDuplicateVoucherNumber indicates the number is taken for the voucher type.
	ErrDuplicateVoucherNumber = fmt.Errorf("books: voucher number already used for this voucher type: %w", shared.ErrConflict)
	// ErrInsufficientStock indicates a sale would drive stock below zero.
	ErrInsufficientStock = fmt.Errorf("books: insufficient stock: %w", shared.ErrConflict)
	// ErrUnresolvedReference indicates a referenced id does not exist.
	ErrUnresolvedReference = fmt.Errorf("books: unresolved reference: %w", shared.ErrUnprocessable)
)

// ReferenceError names the request field whose id did not resolve.
type ReferenceError struct {
	Field string
	ID    string
	Err   error
}

// Unresolved wraps a lookup failure for field.
func Unresolved(field string, id uuid.UUID, err error) error {
	return &ReferenceError{Field: field, ID: id.String(), Err: err}
}

func (e *ReferenceError) Error() string {
	return fmt.Sprintf("books: unresolved reference %s=%s", e.Field, e.ID)
}

// Unwrap exposes both the reference kind and the underlying lookup error.
func (e *ReferenceError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrUnresolvedReference}
	}
	return []error{ErrUnresolvedReference, e.Err}
}

// FieldName returns the offending field.
func (e *ReferenceError) FieldName() string {
	return e.Field
}

// IsNotFound reports whether err is any not-found error.
func IsNotFound(err error) bool {
	return errors.Is(err, shared.ErrNotFound)
}
