// Package outstanding reports unpaid invoice balances per party.
package outstanding

import (
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-books/internal/books"
)

// PartyBalance is one party's unsettled amount.
type PartyBalance struct {
	PartyID     uuid.UUID       `json:"party_id"`
	PartyCode   string          `json:"party_code"`
	PartyName   string          `json:"party_name"`
	PartyType   books.PartyType `json:"party_type"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	PaidAmount  decimal.Decimal `json:"paid_amount"`
	Outstanding decimal.Decimal `json:"outstanding"`
}

// Report lists parties with a positive outstanding balance.
type Report struct {
	PartyType        books.PartyType `json:"party_type"`
	Parties          []PartyBalance  `json:"parties"`
	TotalOutstanding decimal.Decimal `json:"total_outstanding"`
}

// flows names the invoice and settlement voucher types for a party type.
type flows struct {
	invoice    books.VoucherType
	settlement books.VoucherType
}

func flowsFor(t books.PartyType) flows {
	if t == books.PartySupplier {
		return flows{invoice: books.VoucherPurchase, settlement: books.VoucherPayment}
	}
	return flows{invoice: books.VoucherSales, settlement: books.VoucherReceipt}
}

// Build folds invoices and settlements into per-party balances. Paid amount
// counts both payments recorded on invoices and standalone settlement
// vouchers. Parties whose outstanding is not positive are left out.
func Build(partyType books.PartyType, parties []books.Party, vouchers []books.Voucher) Report {
	f := flowsFor(partyType)
	type sums struct{ total, paid decimal.Decimal }
	byParty := make(map[uuid.UUID]sums, len(parties))
	for _, v := range vouchers {
		if v.PartyID == nil {
			continue
		}
		s := byParty[*v.PartyID]
		switch v.Type {
		case f.invoice:
			s.total = s.total.Add(v.Total)
			s.paid = s.paid.Add(v.PaidAmount)
		case f.settlement:
			s.paid = s.paid.Add(v.Total)
		default:
			continue
		}
		byParty[*v.PartyID] = s
	}

	r := Report{PartyType: partyType, Parties: []PartyBalance{}, TotalOutstanding: decimal.Zero}
	for _, p := range parties {
		if p.Type != partyType {
			continue
		}
		s := byParty[p.ID]
		due := s.total.Sub(s.paid)
		if !due.IsPositive() {
			continue
		}
		r.Parties = append(r.Parties, PartyBalance{
			PartyID:     p.ID,
			PartyCode:   p.Code,
			PartyName:   p.Name,
			PartyType:   p.Type,
			TotalAmount: s.total,
			PaidAmount:  s.paid,
			Outstanding: due,
		})
		r.TotalOutstanding = r.TotalOutstanding.Add(due)
	}
	sort.SliceStable(r.Parties, func(i, j int) bool {
		a, b := r.Parties[i], r.Parties[j]
		if c := a.Outstanding.Cmp(b.Outstanding); c != 0 {
			return c > 0
		}
		return a.PartyCode < b.PartyCode
	})
	return r
}
