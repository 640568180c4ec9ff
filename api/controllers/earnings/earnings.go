package earnings

import (
	"net/http"
	"strings"
	"time"

	"github.com/angelmondragon/packfinderz-settlement/api/controllers/vendorcontext"
	"github.com/angelmondragon/packfinderz-settlement/api/responses"
	"github.com/angelmondragon/packfinderz-settlement/api/validators"
	internalearnings "github.com/angelmondragon/packfinderz-settlement/internal/earnings"
	"github.com/angelmondragon/packfinderz-settlement/pkg/enums"
	pkgerrors "github.com/angelmondragon/packfinderz-settlement/pkg/errors"
	"github.com/angelmondragon/packfinderz-settlement/pkg/logger"
	"github.com/angelmondragon/packfinderz-settlement/pkg/pagination"
)

const (
	defaultPayoutPageSize = 10
	maxPayoutPage         = 100000
)

// Summary returns the seller's total, pending and paid earnings.
func Summary(svc internalearnings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "earnings service unavailable"))
			return
		}
		sellerID, err := vendorcontext.SellerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		summary, err := svc.GetSummary(r.Context(), sellerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}

// Payouts returns the seller's payout history, newest sale first.
func Payouts(svc internalearnings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "earnings service unavailable"))
			return
		}
		sellerID, err := vendorcontext.SellerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := validators.ParseQueryInt(r, "page", 1, 1, maxPayoutPage)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", defaultPayoutPageSize, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filter, err := parsePayoutFilter(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ListPayouts(r.Context(), sellerID, filter, pagination.OffsetParams{Page: page, Limit: limit})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// PendingSales lists open entries with their holding countdown.
func PendingSales(svc internalearnings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "earnings service unavailable"))
			return
		}
		sellerID, err := vendorcontext.SellerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.ListPendingSales(r.Context(), sellerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func parsePayoutFilter(r *http.Request) (internalearnings.PayoutFilter, error) {
	var filter internalearnings.PayoutFilter
	query := r.URL.Query()

	if raw := strings.TrimSpace(query.Get("status")); raw != "" && raw != "all" {
		status, err := enums.ParseSettlementStatus(strings.ToLower(raw))
		if err != nil {
			return filter, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status").WithDetails(map[string]any{"field": "status"})
		}
		filter.Status = &status
	}

	from, err := parseDateParam(query.Get("from"), "from", false)
	if err != nil {
		return filter, err
	}
	to, err := parseDateParam(query.Get("to"), "to", true)
	if err != nil {
		return filter, err
	}
	filter.From = from
	filter.To = to
	return filter, nil
}

// parseDateParam accepts RFC3339 or a bare date. A bare "to" date covers the
// whole day.
func parseDateParam(raw, field string, endOfDay bool) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		ts = ts.UTC()
		return &ts, nil
	}
	day, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid date").WithDetails(map[string]any{"field": field})
	}
	if endOfDay {
		day = day.Add(24*time.Hour - time.Second)
	}
	return &day, nil
}
