package vouchers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-books/internal/books"
	"github.com/odyssey-erp/odyssey-books/internal/shared"
)

func newTestRouter(f *fixture) http.Handler {
	r := chi.NewRouter()
	NewHandler(slog.Default(), f.svc, shared.NewIdempotencyStore(nil)).MountRoutes(r)
	return r
}

func doJSON(t *testing.T, h http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestPostSalesOverHTTP(t *testing.T) {
	f := newFixture(t)
	h := newTestRouter(f)
	body := fmt.Sprintf(`{"voucher_number":"INV-1","voucher_date":"2024-04-05","customer_id":%q,
		"items":[{"item_id":%q,"quantity":"2","rate":"65","tax_rate":"5"}],"total_amount":"136.50"}`,
		f.customer.ID, f.item.ID)

	rr := doJSON(t, h, http.MethodPost, "/vouchers/sales", body, map[string]string{"Idempotency-Key": "k-1"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var posted PostedVoucher
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &posted))
	require.Equal(t, "136.50", posted.Voucher.Total.StringFixed(2))
	require.Equal(t, "2024-04-05", posted.Voucher.Date.String())

	replay := doJSON(t, h, http.MethodPost, "/vouchers/sales", body, map[string]string{"Idempotency-Key": "k-1"})
	require.Equal(t, http.StatusConflict, replay.Code)

	list := doJSON(t, h, http.MethodGet, "/vouchers/sales?from_date=2024-04-01&to_date=2024-04-30", "", nil)
	require.Equal(t, http.StatusOK, list.Code)
	var vouchers []books.Voucher
	require.NoError(t, json.Unmarshal(list.Body.Bytes(), &vouchers))
	require.Len(t, vouchers, 1)

	get := doJSON(t, h, http.MethodGet, "/vouchers/sales/"+posted.Voucher.ID.String(), "", nil)
	require.Equal(t, http.StatusOK, get.Code)

	pay := doJSON(t, h, http.MethodPost, "/vouchers/sales/"+posted.Voucher.ID.String()+"/payments", `{"amount":"36.50"}`, nil)
	require.Equal(t, http.StatusOK, pay.Code, pay.Body.String())
	var paid books.Voucher
	require.NoError(t, json.Unmarshal(pay.Body.Bytes(), &paid))
	require.Equal(t, books.PaymentPartial, paid.PaymentStatus)
}

func TestPostErrorsMapToProblems(t *testing.T) {
	f := newFixture(t)
	h := newTestRouter(f)

	cases := []struct {
		name   string
		path   string
		body   string
		status int
		field  string
	}{
		{"unknown type", "/vouchers/refund", `{}`, http.StatusBadRequest, "voucher_type"},
		{"bad date", "/vouchers/receipt", `{"voucher_number":"R1","voucher_date":"05/04/2024"}`, http.StatusBadRequest, "voucher_date"},
		{"unknown field", "/vouchers/receipt", `{"voucher_number":"R1","voucher_date":"2024-04-05","colour":"red"}`, http.StatusBadRequest, ""},
		{
			"unresolved party", "/vouchers/receipt",
			fmt.Sprintf(`{"voucher_number":"R1","voucher_date":"2024-04-05","party_id":%q,"account_id":%q,"amount":"10"}`,
				uuid.New(), f.account(books.CodeCash).ID),
			http.StatusUnprocessableEntity, "party_id",
		},
		{
			"unbalanced journal", "/vouchers/journal",
			fmt.Sprintf(`{"voucher_number":"J1","voucher_date":"2024-04-05","lines":[{"account_id":%q,"debit":"10"},{"account_id":%q,"credit":"9"}]}`,
				f.account(books.CodeCash).ID, f.account(books.CodeOwnersCapital).ID),
			http.StatusBadRequest, "",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := doJSON(t, h, http.MethodPost, tc.path, tc.body, nil)
			require.Equal(t, tc.status, rr.Code, rr.Body.String())
			require.Equal(t, "application/problem+json", rr.Header().Get("Content-Type"))
			var problem struct {
				Field string `json:"field"`
			}
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &problem))
			require.Equal(t, tc.field, problem.Field)
		})
	}

	missing := doJSON(t, h, http.MethodGet, "/vouchers/sales/"+uuid.NewString(), "", nil)
	require.Equal(t, http.StatusNotFound, missing.Code)
}
