package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// CORS allows browser dashboards on origins to call the earnings and admin
// endpoints. Idempotency-Key must be allowed for admin mutations.
func CORS(origins []string) func(http.Handler) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", idempotencyHeader, requestIDHeader},
		ExposedHeaders:   []string{requestIDHeader, idempotencyReplayHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler
}
