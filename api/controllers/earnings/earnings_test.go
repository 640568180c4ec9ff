package earnings

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/packfinderz-settlement/api/middleware"
	internalearnings "github.com/angelmondragon/packfinderz-settlement/internal/earnings"
	"github.com/angelmondragon/packfinderz-settlement/pkg/enums"
	"github.com/angelmondragon/packfinderz-settlement/pkg/pagination"
	"github.com/angelmondragon/packfinderz-settlement/pkg/types"
)

type stubEarningsService struct {
	summary    *internalearnings.Summary
	page       *internalearnings.PayoutPage
	pending    *internalearnings.PendingSales
	err        error
	gotSeller  uuid.UUID
	gotFilter  internalearnings.PayoutFilter
	gotPageReq pagination.OffsetParams
}

func (s *stubEarningsService) GetSummary(ctx context.Context, sellerID uuid.UUID) (*internalearnings.Summary, error) {
	s.gotSeller = sellerID
	return s.summary, s.err
}

func (s *stubEarningsService) ListPayouts(ctx context.Context, sellerID uuid.UUID, filter internalearnings.PayoutFilter, page pagination.OffsetParams) (*internalearnings.PayoutPage, error) {
	s.gotSeller = sellerID
	s.gotFilter = filter
	s.gotPageReq = page
	return s.page, s.err
}

func (s *stubEarningsService) ListPendingSales(ctx context.Context, sellerID uuid.UUID) (*internalearnings.PendingSales, error) {
	s.gotSeller = sellerID
	return s.pending, s.err
}

func vendorRequest(target string, storeID uuid.UUID) *http.Request {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	ctx := middleware.WithStoreID(req.Context(), storeID.String())
	ctx = middleware.WithStoreType(ctx, string(enums.StoreTypeVendor))
	return req.WithContext(ctx)
}

func TestSummaryWritesTwoDecimalNumbers(t *testing.T) {
	seller := uuid.New()
	svc := &stubEarningsService{summary: &internalearnings.Summary{
		TotalEarnings:   types.MoneyFromCents(15000),
		PendingEarnings: types.MoneyFromCents(5000),
		PaidEarnings:    types.MoneyFromCents(10000),
	}}

	resp := httptest.NewRecorder()
	Summary(svc, nil).ServeHTTP(resp, vendorRequest("/api/v1/vendor/earnings/summary", seller))

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, seller, svc.gotSeller)
	assert.JSONEq(t, `{"data":{"totalEarnings":150.00,"pendingEarnings":50.00,"paidEarnings":100.00}}`, resp.Body.String())
}

func TestSummaryRequiresVendorStore(t *testing.T) {
	svc := &stubEarningsService{}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/vendor/earnings/summary", nil)
	req = req.WithContext(middleware.WithStoreType(middleware.WithStoreID(req.Context(), uuid.NewString()), string(enums.StoreTypeBuyer)))

	resp := httptest.NewRecorder()
	Summary(svc, nil).ServeHTTP(resp, req)
	assert.Equal(t, http.StatusForbidden, resp.Code)
}

func TestPayoutsParsesQuery(t *testing.T) {
	seller := uuid.New()
	svc := &stubEarningsService{page: &internalearnings.PayoutPage{Payouts: []internalearnings.Payout{}, CurrentPage: 2}}

	resp := httptest.NewRecorder()
	Payouts(svc, nil).ServeHTTP(resp, vendorRequest("/api/v1/vendor/earnings/payouts?page=2&limit=5&status=paid&from=2026-01-01&to=2026-01-31", seller))

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, pagination.OffsetParams{Page: 2, Limit: 5}, svc.gotPageReq)
	require.NotNil(t, svc.gotFilter.Status)
	assert.Equal(t, enums.SettlementStatusPaid, *svc.gotFilter.Status)
	require.NotNil(t, svc.gotFilter.From)
	require.NotNil(t, svc.gotFilter.To)
	assert.True(t, svc.gotFilter.From.Equal(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)))
	assert.True(t, svc.gotFilter.To.Equal(time.Date(2026, 1, 31, 23, 59, 59, 0, time.UTC)))
}

func TestPayoutsDefaults(t *testing.T) {
	svc := &stubEarningsService{page: &internalearnings.PayoutPage{Payouts: []internalearnings.Payout{}}}

	resp := httptest.NewRecorder()
	Payouts(svc, nil).ServeHTTP(resp, vendorRequest("/api/v1/vendor/earnings/payouts?status=all", uuid.New()))

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, pagination.OffsetParams{Page: 1, Limit: defaultPayoutPageSize}, svc.gotPageReq)
	assert.Nil(t, svc.gotFilter.Status)
}

func TestPayoutsRejectsBadInput(t *testing.T) {
	for _, target := range []string{
		"/api/v1/vendor/earnings/payouts?status=refunded",
		"/api/v1/vendor/earnings/payouts?page=0",
		"/api/v1/vendor/earnings/payouts?limit=500",
		"/api/v1/vendor/earnings/payouts?from=yesterday",
	} {
		resp := httptest.NewRecorder()
		Payouts(&stubEarningsService{}, nil).ServeHTTP(resp, vendorRequest(target, uuid.New()))
		assert.Equal(t, http.StatusBadRequest, resp.Code, target)
	}
}

func TestPendingSalesPropagatesServiceError(t *testing.T) {
	svc := &stubEarningsService{err: errors.New("db down")}
	resp := httptest.NewRecorder()
	PendingSales(svc, nil).ServeHTTP(resp, vendorRequest("/api/v1/vendor/earnings/sales-pending", uuid.New()))
	assert.Equal(t, http.StatusInternalServerError, resp.Code)
}

func TestPendingSalesBody(t *testing.T) {
	svc := &stubEarningsService{pending: &internalearnings.PendingSales{
		Count:              1,
		TotalPendingAmount: types.MoneyFromCents(2500),
		PendingSales:       []internalearnings.PendingSale{{Amount: types.MoneyFromCents(2500), OrderNumber: 1042}},
	}}
	resp := httptest.NewRecorder()
	PendingSales(svc, nil).ServeHTTP(resp, vendorRequest("/api/v1/vendor/earnings/sales-pending", uuid.New()))
	require.Equal(t, http.StatusOK, resp.Code)

	var body struct {
		Data struct {
			Count              int64   `json:"count"`
			TotalPendingAmount float64 `json:"totalPendingAmount"`
			PendingSales       []struct {
				OrderNumber int64 `json:"orderNumber"`
			} `json:"pendingSales"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, int64(1), body.Data.Count)
	assert.InDelta(t, 25.0, body.Data.TotalPendingAmount, 0.0001)
	require.Len(t, body.Data.PendingSales, 1)
	assert.Equal(t, int64(1042), body.Data.PendingSales[0].OrderNumber)
}
