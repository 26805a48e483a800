package masterdata

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/odyssey-erp/odyssey-books/internal/books"
	"github.com/odyssey-erp/odyssey-books/internal/shared"
)

// AuditPort records audit trail entries.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Invalidator drops cached reports after master data changes.
type Invalidator interface {
	Bump(ctx context.Context) error
}

// Service exposes master data operations.
type Service struct {
	store  books.Store
	audit  AuditPort
	cache  Invalidator
	logger *slog.Logger
	now    func() time.Time
}

// NewService constructs the master data service. audit and cache may be nil.
func NewService(store books.Store, audit AuditPort, cache Invalidator, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, audit: audit, cache: cache, logger: logger, now: time.Now}
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// CreateAccount adds an account to the chart. current_balance starts at opening_balance.
func (s *Service) CreateAccount(ctx context.Context, in AccountInput) (books.Account, error) {
	if err := in.normalize(); err != nil {
		return books.Account{}, err
	}
	account := books.Account{
		ID:             uuid.New(),
		Code:           in.Code,
		Name:           in.Name,
		Group:          in.Group,
		Type:           in.Type,
		OpeningBalance: in.OpeningBalance,
		CurrentBalance: in.OpeningBalance,
		IsSystem:       in.IsSystem,
		CreatedAt:      s.now(),
	}
	err := s.store.WithTx(ctx, func(ctx context.Context, tx books.Tx) error {
		if _, err := tx.AccountByCode(ctx, account.Code); err == nil {
			return books.ErrDuplicateCode
		} else if !errors.Is(err, books.ErrAccountNotFound) {
			return err
		}
		return tx.InsertAccount(ctx, account)
	})
	if err != nil {
		return books.Account{}, err
	}
	s.afterWrite(ctx, "account.create", "account", account.ID, map[string]any{"code": account.Code})
	return account, nil
}

// CreateParty adds a customer or supplier. Codes are unique per party type.
func (s *Service) CreateParty(ctx context.Context, in PartyInput) (books.Party, error) {
	if err := in.normalize(); err != nil {
		return books.Party{}, err
	}
	party := books.Party{
		ID:             uuid.New(),
		Type:           in.Type,
		Code:           in.Code,
		Name:           in.Name,
		ContactPerson:  strings.TrimSpace(in.ContactPerson),
		Phone:          strings.TrimSpace(in.Phone),
		Email:          strings.TrimSpace(in.Email),
		Address:        strings.TrimSpace(in.Address),
		GSTIN:          in.GSTIN,
		OpeningBalance: in.OpeningBalance,
		BalanceType:    in.BalanceType,
		CreatedAt:      s.now(),
	}
	err := s.store.WithTx(ctx, func(ctx context.Context, tx books.Tx) error {
		if _, err := tx.PartyByCode(ctx, party.Type, party.Code); err == nil {
			return books.ErrDuplicateCode
		} else if !errors.Is(err, books.ErrPartyNotFound) {
			return err
		}
		return tx.InsertParty(ctx, party)
	})
	if err != nil {
		return books.Party{}, err
	}
	s.afterWrite(ctx, "party.create", "party", party.ID, map[string]any{"code": party.Code, "party_type": party.Type})
	return party, nil
}

// CreateItem adds an inventory item. current_stock starts at opening_stock.
func (s *Service) CreateItem(ctx context.Context, in ItemInput) (books.Item, error) {
	if err := in.normalize(); err != nil {
		return books.Item{}, err
	}
	item := books.Item{
		ID:           uuid.New(),
		Code:         in.Code,
		Name:         in.Name,
		Category:     strings.TrimSpace(in.Category),
		Unit:         strings.TrimSpace(in.Unit),
		HSNCode:      strings.TrimSpace(in.HSNCode),
		PurchaseRate: in.PurchaseRate,
		SaleRate:     in.SaleRate,
		GSTRate:      in.GSTRate,
		OpeningStock: in.OpeningStock,
		CurrentStock: in.OpeningStock,
		ReorderLevel: in.ReorderLevel,
		CreatedAt:    s.now(),
	}
	err := s.store.WithTx(ctx, func(ctx context.Context, tx books.Tx) error {
		if _, err := tx.ItemByCode(ctx, item.Code); err == nil {
			return books.ErrDuplicateCode
		} else if !errors.Is(err, books.ErrItemNotFound) {
			return err
		}
		return tx.InsertItem(ctx, item)
	})
	if err != nil {
		return books.Item{}, err
	}
	s.afterWrite(ctx, "item.create", "item", item.ID, map[string]any{"code": item.Code})
	return item, nil
}

// GetAccount returns an account by id.
func (s *Service) GetAccount(ctx context.Context, id uuid.UUID) (books.Account, error) {
	return s.store.GetAccount(ctx, id)
}

// AccountByCode returns an account by code, case-insensitively.
func (s *Service) AccountByCode(ctx context.Context, code string) (books.Account, error) {
	return s.store.AccountByCode(ctx, strings.TrimSpace(code))
}

// ListAccounts returns accounts ordered by code, optionally of one type.
func (s *Service) ListAccounts(ctx context.Context, accountType books.AccountType) ([]books.Account, error) {
	if accountType != "" && !accountType.Valid() {
		return nil, shared.Invalid("type", "unknown account type")
	}
	accounts, err := s.store.ListAccounts(ctx)
	if err != nil || accountType == "" {
		return accounts, err
	}
	filtered := make([]books.Account, 0, len(accounts))
	for _, acc := range accounts {
		if acc.Type == accountType {
			filtered = append(filtered, acc)
		}
	}
	return filtered, nil
}

// GetParty returns a party by id.
func (s *Service) GetParty(ctx context.Context, id uuid.UUID) (books.Party, error) {
	return s.store.GetParty(ctx, id)
}

// PartyByCode returns a party of partyType by code.
func (s *Service) PartyByCode(ctx context.Context, partyType books.PartyType, code string) (books.Party, error) {
	if !partyType.Valid() {
		return books.Party{}, shared.Invalid("party_type", "must be customer or supplier")
	}
	return s.store.PartyByCode(ctx, partyType, strings.TrimSpace(code))
}

// ListParties returns parties ordered by code. An empty type lists both kinds.
func (s *Service) ListParties(ctx context.Context, partyType books.PartyType) ([]books.Party, error) {
	if partyType != "" && !partyType.Valid() {
		return nil, shared.Invalid("type", "must be customer or supplier")
	}
	return s.store.ListParties(ctx, partyType)
}

// GetItem returns an item by id.
func (s *Service) GetItem(ctx context.Context, id uuid.UUID) (books.Item, error) {
	return s.store.GetItem(ctx, id)
}

// ItemByCode returns an item by code.
func (s *Service) ItemByCode(ctx context.Context, code string) (books.Item, error) {
	return s.store.ItemByCode(ctx, strings.TrimSpace(code))
}

// ListItems returns items ordered by code.
func (s *Service) ListItems(ctx context.Context) ([]books.Item, error) {
	return s.store.ListItems(ctx)
}

// DeleteAccount removes an account that is neither a system account nor referenced.
func (s *Service) DeleteAccount(ctx context.Context, id uuid.UUID) error {
	var code string
	err := s.store.WithTx(ctx, func(ctx context.Context, tx books.Tx) error {
		account, err := tx.GetAccount(ctx, id)
		if err != nil {
			return err
		}
		if account.IsSystem {
			return ErrSystemAccount
		}
		referenced, err := tx.AccountReferenced(ctx, id)
		if err != nil {
			return err
		}
		if referenced {
			return ErrAccountInUse
		}
		code = account.Code
		return tx.DeleteAccount(ctx, id)
	})
	if err != nil {
		return err
	}
	s.afterWrite(ctx, "account.delete", "account", id, map[string]any{"code": code})
	return nil
}

// SeedChart creates every default account that does not exist yet and returns
// the ones it created. Running it again creates nothing.
func (s *Service) SeedChart(ctx context.Context) ([]books.Account, error) {
	chart, err := DefaultChart()
	if err != nil {
		return nil, err
	}
	var created []books.Account
	err = s.store.WithTx(ctx, func(ctx context.Context, tx books.Tx) error {
		created = created[:0]
		for _, in := range chart {
			if _, err := tx.AccountByCode(ctx, in.Code); err == nil {
				continue
			} else if !errors.Is(err, books.ErrAccountNotFound) {
				return err
			}
			account := books.Account{
				ID:             uuid.New(),
				Code:           in.Code,
				Name:           in.Name,
				Group:          in.Group,
				Type:           in.Type,
				OpeningBalance: in.OpeningBalance,
				CurrentBalance: in.OpeningBalance,
				IsSystem:       in.IsSystem,
				CreatedAt:      s.now(),
			}
			if err := tx.InsertAccount(ctx, account); err != nil {
				return err
			}
			created = append(created, account)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(created) > 0 {
		s.logger.InfoContext(ctx, "chart of accounts seeded", slog.Int("created", len(created)))
		s.afterWrite(ctx, "chart.seed", "account", uuid.Nil, map[string]any{"created": len(created)})
	}
	return created, nil
}

func (s *Service) afterWrite(ctx context.Context, action, entity string, id uuid.UUID, meta map[string]any) {
	if s.cache != nil {
		if err := s.cache.Bump(ctx); err != nil {
			s.logger.WarnContext(ctx, "bump report cache", slog.Any("error", err))
		}
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			Actor:    shared.SubjectFromContext(ctx),
			Action:   action,
			Entity:   entity,
			EntityID: id.String(),
			Meta:     meta,
			At:       s.now(),
		})
	}
}
