package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/angelmondragon/packfinderz-settlement/api/responses"
	pkgAuth "github.com/angelmondragon/packfinderz-settlement/pkg/auth"
	"github.com/angelmondragon/packfinderz-settlement/pkg/auth/session"
	"github.com/angelmondragon/packfinderz-settlement/pkg/config"
	pkgerrors "github.com/angelmondragon/packfinderz-settlement/pkg/errors"
	"github.com/angelmondragon/packfinderz-settlement/pkg/logger"
)

// Auth accepts marketplace access tokens and stores the caller in the request
// context. With a non-nil verifier the token's jti must also map to a live
// session, so logging out of the marketplace revokes ledger access.
func Auth(cfg config.JWTConfig, verifier session.AccessSessionChecker, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			claims, err := authenticate(ctx, cfg, verifier, r.Header.Get("Authorization"))
			if err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}

			ctx = withClaims(ctx, claims)
			if logg != nil {
				fields := map[string]any{
					"user_id":    claims.UserID.String(),
					"actor_role": string(claims.Role),
				}
				if claims.ActiveStoreID != nil {
					fields["store_id"] = claims.ActiveStoreID.String()
				}
				ctx = logg.WithFields(ctx, fields)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func authenticate(ctx context.Context, cfg config.JWTConfig, verifier session.AccessSessionChecker, header string) (*pkgAuth.AccessTokenClaims, error) {
	token, ok := bearerToken(header)
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}

	claims, err := pkgAuth.ParseAccessToken(cfg, token)
	switch {
	case errors.Is(err, pkgAuth.ErrTokenExpired):
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "token expired")
	case err != nil:
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token")
	}

	if verifier == nil {
		return claims, nil
	}
	live, err := verifier.HasSession(ctx, claims.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "validate session")
	}
	if !live {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "session unavailable")
	}
	return claims, nil
}

func withClaims(ctx context.Context, claims *pkgAuth.AccessTokenClaims) context.Context {
	ctx = WithUserID(ctx, claims.UserID.String())
	ctx = context.WithValue(ctx, ctxRole, string(claims.Role))
	if claims.ActiveStoreID != nil {
		ctx = WithStoreID(ctx, claims.ActiveStoreID.String())
	}
	if claims.StoreType != nil {
		ctx = WithStoreType(ctx, string(*claims.StoreType))
	}
	return ctx
}

// bearerToken accepts "Bearer <token>" with any casing of the scheme.
func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
