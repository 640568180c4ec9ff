package auth

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/packfinderz-settlement/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID        uuid.UUID
	ActiveStoreID *uuid.UUID
	Role          enums.MemberRole
	StoreType     *enums.StoreType
	JTI           string
}

// AccessTokenClaims is the marketplace access token verified by the ledger API.
type AccessTokenClaims struct {
	UserID        uuid.UUID        `json:"user_id"`
	ActiveStoreID *uuid.UUID       `json:"active_store_id,omitempty"`
	Role          enums.MemberRole `json:"role"`
	StoreType     *enums.StoreType `json:"store_type,omitempty"`
	jwt.RegisteredClaims
}

// IsVendor reports whether the active store is a seller.
func (c AccessTokenClaims) IsVendor() bool {
	return c.StoreType != nil && *c.StoreType == enums.StoreTypeVendor
}

// Validate runs after the registered claim checks during parsing.
func (c AccessTokenClaims) Validate() error {
	if c.UserID == uuid.Nil {
		return fmt.Errorf("user_id is required")
	}
	if !c.Role.IsValid() {
		return fmt.Errorf("invalid member role %q", c.Role)
	}
	if c.StoreType != nil && !c.StoreType.IsValid() {
		return fmt.Errorf("invalid store type %q", *c.StoreType)
	}
	if c.ID == "" {
		return fmt.Errorf("jti is required")
	}
	return nil
}
