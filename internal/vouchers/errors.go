package vouchers

import (
	"fmt"

	"github.com/odyssey-erp/odyssey-books/internal/books"
	"github.com/odyssey-erp/odyssey-books/internal/shared"
)

var (
	// ErrUnbalancedJournal indicates journal debits and credits differ.
	ErrUnbalancedJournal = fmt.Errorf("vouchers: journal debits and credits must balance: %w", shared.ErrValidation)
	// ErrNotInvoiced indicates a payment was recorded against a voucher type without a payment status.
	ErrNotInvoiced = fmt.Errorf("vouchers: payments apply to sales and purchase vouchers only: %w", shared.ErrValidation)
)

func systemAccountMissing(code string) error {
	return fmt.Errorf("vouchers: system account %s missing: %w", code, books.ErrUnresolvedReference)
}
