package auth_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/packfinderz-settlement/pkg/auth"
	"github.com/angelmondragon/packfinderz-settlement/pkg/auth/authtest"
	"github.com/angelmondragon/packfinderz-settlement/pkg/config"
	"github.com/angelmondragon/packfinderz-settlement/pkg/enums"
)

func testJWTConfig(minutes int) config.JWTConfig {
	return config.JWTConfig{Secret: "secret", Issuer: "packfinderz", ExpirationMinutes: minutes}
}

func TestMintAndParseAccessToken(t *testing.T) {
	cfg := testJWTConfig(30)
	now := time.Now().UTC()
	userID := uuid.New()
	storeID := uuid.New()
	storeType := enums.StoreTypeVendor

	token, err := authtest.MintAccessToken(cfg, now, auth.AccessTokenPayload{
		UserID:        userID,
		ActiveStoreID: &storeID,
		Role:          enums.MemberRoleOwner,
		StoreType:     &storeType,
		JTI:           "session-1",
	})
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}

	claims, err := auth.ParseAccessToken(cfg, token)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if claims.UserID != userID {
		t.Fatalf("expected user_id %s, got %s", userID, claims.UserID)
	}
	if claims.ActiveStoreID == nil || *claims.ActiveStoreID != storeID {
		t.Fatalf("active store id not preserved")
	}
	if !claims.IsVendor() {
		t.Fatalf("expected vendor claims")
	}
	if claims.ID != "session-1" {
		t.Fatalf("expected jti session-1, got %q", claims.ID)
	}
	if claims.Issuer != cfg.Issuer {
		t.Fatalf("expected issuer %s, got %s", cfg.Issuer, claims.Issuer)
	}

	exp := now.Add(30 * time.Minute)
	diff := claims.ExpiresAt.Sub(exp)
	if diff < 0 {
		diff = -diff
	}
	if diff >= time.Second {
		t.Fatalf("expected exp roughly %v, got %v", exp, claims.ExpiresAt.UTC())
	}
}

func TestParseAccessTokenInvalidSignature(t *testing.T) {
	cfg := testJWTConfig(10)
	token, err := authtest.MintAccessToken(cfg, time.Now(), auth.AccessTokenPayload{UserID: uuid.New(), Role: enums.MemberRoleManager})
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}
	if _, err := auth.ParseAccessToken(cfg, token+"x"); err == nil {
		t.Fatal("expected invalid signature error")
	}
}

func TestParseAccessTokenExpired(t *testing.T) {
	cfg := testJWTConfig(15)
	token, err := authtest.MintAccessToken(cfg, time.Now().Add(-time.Hour), auth.AccessTokenPayload{UserID: uuid.New(), Role: enums.MemberRoleStaff})
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}
	_, err = auth.ParseAccessToken(cfg, token)
	if err == nil {
		t.Fatal("expected expiration error")
	}
	if !strings.Contains(err.Error(), "expired") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestMintAccessTokenInvalidRole(t *testing.T) {
	if _, err := authtest.MintAccessToken(testJWTConfig(5), time.Now(), auth.AccessTokenPayload{UserID: uuid.New()}); err == nil {
		t.Fatal("expected invalid role error")
	}
}

func TestBuyerClaimsAreNotVendor(t *testing.T) {
	buyer := enums.StoreTypeBuyer
	if (auth.AccessTokenClaims{StoreType: &buyer}).IsVendor() {
		t.Fatal("buyer store reported as vendor")
	}
	if (auth.AccessTokenClaims{}).IsVendor() {
		t.Fatal("missing store type reported as vendor")
	}
}

func TestParseAccessTokenClassifiesFailures(t *testing.T) {
	cfg := testJWTConfig(15)
	expired, err := authtest.MintAccessToken(cfg, time.Now().Add(-time.Hour), auth.AccessTokenPayload{UserID: uuid.New(), Role: enums.MemberRoleAdmin})
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}
	if _, err := auth.ParseAccessToken(cfg, expired); !errors.Is(err, auth.ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}

	other := cfg
	other.Issuer = "someone-else"

	fresh, err := authtest.MintAccessToken(cfg, time.Now(), auth.AccessTokenPayload{UserID: uuid.New(), Role: enums.MemberRoleAdmin})
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}
	if _, err := auth.ParseAccessToken(other, fresh); !errors.Is(err, auth.ErrTokenInvalid) {
		t.Fatalf("expected issuer mismatch to be invalid, got %v", err)
	}
}

func TestParseAccessTokenHonorsLeeway(t *testing.T) {
	cfg := testJWTConfig(1)
	token, err := authtest.MintAccessToken(cfg, time.Now().Add(-70*time.Second), auth.AccessTokenPayload{UserID: uuid.New(), Role: enums.MemberRoleAdmin})
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}
	if _, err := auth.ParseAccessToken(cfg, token); !errors.Is(err, auth.ErrTokenExpired) {
		t.Fatalf("expected expiry without leeway, got %v", err)
	}
	cfg.Leeway = time.Minute
	if _, err := auth.ParseAccessToken(cfg, token); err != nil {
		t.Fatalf("expected leeway to accept token, got %v", err)
	}
}

func TestClaimsValidate(t *testing.T) {
	bogus := enums.StoreType("warehouse")
	cases := map[string]auth.AccessTokenClaims{
		"missing user": {Role: enums.MemberRoleAdmin, RegisteredClaims: jwt.RegisteredClaims{ID: "j"}},
		"bad role":     {UserID: uuid.New(), Role: "intern", RegisteredClaims: jwt.RegisteredClaims{ID: "j"}},
		"bad store":    {UserID: uuid.New(), Role: enums.MemberRoleAdmin, StoreType: &bogus, RegisteredClaims: jwt.RegisteredClaims{ID: "j"}},
		"missing jti":  {UserID: uuid.New(), Role: enums.MemberRoleAdmin},
	}
	for name, claims := range cases {
		if err := claims.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}
