package controllers

import (
	"net/http"

	"github.com/angelmondragon/packfinderz-settlement/api/middleware"
	"github.com/angelmondragon/packfinderz-settlement/api/responses"
)

// WhoAmI echoes the caller identity the auth middleware resolved. Operators
// use it to check a token before calling a mutating endpoint.
func WhoAmI(scope string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		payload := map[string]string{
			"scope":   scope,
			"status":  "ok",
			"user_id": middleware.UserIDFromContext(ctx),
			"role":    middleware.RoleFromContext(ctx),
		}
		if store := middleware.StoreIDFromContext(ctx); store != "" {
			payload["store_id"] = store
		}
		responses.WriteSuccess(w, payload)
	}
}
