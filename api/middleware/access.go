package middleware

import (
	"net/http"
	"slices"

	"github.com/angelmondragon/packfinderz-settlement/api/responses"
	"github.com/angelmondragon/packfinderz-settlement/pkg/enums"
	pkgerrors "github.com/angelmondragon/packfinderz-settlement/pkg/errors"
	"github.com/angelmondragon/packfinderz-settlement/pkg/logger"
)

// guard rejects with 403 and msg any request allow returns false for.
func guard(logg *logger.Logger, msg string, allow func(*http.Request) bool) func(http.Handler) http.Handler {
	denied := pkgerrors.New(pkgerrors.CodeForbidden, msg)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !allow(r) {
				responses.WriteError(r.Context(), logg, w, denied)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// StoreContext requires the token to name an active store.
func StoreContext(logg *logger.Logger) func(http.Handler) http.Handler {
	return guard(logg, "store context missing", func(r *http.Request) bool {
		return StoreIDFromContext(r.Context()) != ""
	})
}

// RequireVendor rejects requests whose active store is not a seller.
func RequireVendor(logg *logger.Logger) func(http.Handler) http.Handler {
	return guard(logg, "vendor store required", func(r *http.Request) bool {
		return enums.StoreType(StoreTypeFromContext(r.Context())) == enums.StoreTypeVendor
	})
}

// RequireRole admits requests whose actor role claim is one of allowed.
func RequireRole(logg *logger.Logger, allowed ...enums.MemberRole) func(http.Handler) http.Handler {
	return guard(logg, "role required", func(r *http.Request) bool {
		return slices.Contains(allowed, enums.MemberRole(RoleFromContext(r.Context())))
	})
}
