package masterdata

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-books/internal/books"
	"github.com/odyssey-erp/odyssey-books/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-books/internal/shared"
)

// Handler manages master data endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: httpx.NewValidator()}
}

// MountRoutes registers master data routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/accounts", func(r chi.Router) {
		r.Get("/", h.listAccounts)
		r.Post("/", h.createAccount)
		r.Post("/seed", h.seedChart)
		r.Get("/by-code/{code}", h.accountByCode)
		r.Get("/{id}", h.getAccount)
		r.Delete("/{id}", h.deleteAccount)
	})
	r.Route("/parties", func(r chi.Router) {
		r.Get("/", h.listParties)
		r.Post("/", h.createParty)
		r.Get("/by-code/{type}/{code}", h.partyByCode)
		r.Get("/{id}", h.getParty)
	})
	r.Route("/items", func(r chi.Router) {
		r.Get("/", h.listItems)
		r.Post("/", h.createItem)
		r.Get("/by-code/{code}", h.itemByCode)
		r.Get("/{id}", h.getItem)
	})
}

type createAccountRequest struct {
	Code           string          `json:"code" validate:"required,max=32"`
	Name           string          `json:"name" validate:"required,max=200"`
	Group          string          `json:"group" validate:"max=100"`
	AccountType    string          `json:"account_type" validate:"required,oneof=asset liability capital income expense"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
}

type createPartyRequest struct {
	PartyType      string          `json:"party_type" validate:"required,oneof=customer supplier"`
	Code           string          `json:"code" validate:"required,max=32"`
	Name           string          `json:"name" validate:"required,max=200"`
	ContactPerson  string          `json:"contact_person" validate:"max=200"`
	Phone          string          `json:"phone" validate:"max=32"`
	Email          string          `json:"email" validate:"omitempty,email"`
	Address        string          `json:"address"`
	GSTIN          string          `json:"gstin" validate:"omitempty,len=15,alphanum"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
	BalanceType    string          `json:"balance_type" validate:"omitempty,oneof=debit credit"`
}

type createItemRequest struct {
	Code         string          `json:"code" validate:"required,max=32"`
	Name         string          `json:"name" validate:"required,max=200"`
	Category     string          `json:"category" validate:"max=100"`
	Unit         string          `json:"unit" validate:"max=32"`
	HSNCode      string          `json:"hsn_code" validate:"max=16"`
	PurchaseRate decimal.Decimal `json:"purchase_rate"`
	SaleRate     decimal.Decimal `json:"sale_rate"`
	GSTRate      decimal.Decimal `json:"gst_rate"`
	OpeningStock decimal.Decimal `json:"opening_stock"`
	ReorderLevel decimal.Decimal `json:"reorder_level"`
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := httpx.DecodeJSON(r, dst); err != nil {
		httpx.RespondError(w, shared.Invalid("", "malformed JSON body: "+err.Error()))
		return false
	}
	if err := httpx.ValidateStruct(h.validator, dst); err != nil {
		httpx.RespondError(w, err)
		return false
	}
	return true
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if !httpx.IsClientError(err) {
		h.logger.ErrorContext(r.Context(), "masterdata request failed", slog.String("path", r.URL.Path), slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

func pathID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, shared.Invalid("id", "must be a UUID")
	}
	return id, nil
}

func (h *Handler) createAccount(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if !h.decode(w, r, &req) {
		return
	}
	account, err := h.service.CreateAccount(r.Context(), AccountInput{
		Code:           req.Code,
		Name:           req.Name,
		Group:          req.Group,
		Type:           books.AccountType(req.AccountType),
		OpeningBalance: req.OpeningBalance,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, account)
}

func (h *Handler) listAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.service.ListAccounts(r.Context(), books.AccountType(r.URL.Query().Get("type")))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, accounts)
}

func (h *Handler) getAccount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	account, err := h.service.GetAccount(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, account)
}

func (h *Handler) accountByCode(w http.ResponseWriter, r *http.Request) {
	account, err := h.service.AccountByCode(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, account)
}

func (h *Handler) deleteAccount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.service.DeleteAccount(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) seedChart(w http.ResponseWriter, r *http.Request) {
	created, err := h.service.SeedChart(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"created": len(created), "accounts": created})
}

func (h *Handler) createParty(w http.ResponseWriter, r *http.Request) {
	var req createPartyRequest
	if !h.decode(w, r, &req) {
		return
	}
	party, err := h.service.CreateParty(r.Context(), PartyInput{
		Type:           books.PartyType(req.PartyType),
		Code:           req.Code,
		Name:           req.Name,
		ContactPerson:  req.ContactPerson,
		Phone:          req.Phone,
		Email:          req.Email,
		Address:        req.Address,
		GSTIN:          req.GSTIN,
		OpeningBalance: req.OpeningBalance,
		BalanceType:    books.BalanceType(req.BalanceType),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, party)
}

func (h *Handler) listParties(w http.ResponseWriter, r *http.Request) {
	parties, err := h.service.ListParties(r.Context(), books.PartyType(r.URL.Query().Get("type")))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, parties)
}

func (h *Handler) getParty(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	party, err := h.service.GetParty(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, party)
}

func (h *Handler) partyByCode(w http.ResponseWriter, r *http.Request) {
	partyType := books.PartyType(strings.ToLower(chi.URLParam(r, "type")))
	party, err := h.service.PartyByCode(r.Context(), partyType, chi.URLParam(r, "code"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, party)
}

func (h *Handler) createItem(w http.ResponseWriter, r *http.Request) {
	var req createItemRequest
	if !h.decode(w, r, &req) {
		return
	}
	item, err := h.service.CreateItem(r.Context(), ItemInput{
		Code:         req.Code,
		Name:         req.Name,
		Category:     req.Category,
		Unit:         req.Unit,
		HSNCode:      req.HSNCode,
		PurchaseRate: req.PurchaseRate,
		SaleRate:     req.SaleRate,
		GSTRate:      req.GSTRate,
		OpeningStock: req.OpeningStock,
		ReorderLevel: req.ReorderLevel,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, item)
}

func (h *Handler) listItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListItems(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, items)
}

func (h *Handler) getItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	item, err := h.service.GetItem(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, item)
}

func (h *Handler) itemByCode(w http.ResponseWriter, r *http.Request) {
	item, err := h.service.ItemByCode(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, item)
}
