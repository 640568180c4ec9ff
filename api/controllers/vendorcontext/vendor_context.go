// Package vendorcontext turns the caller's store scope into a seller id.
package vendorcontext

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/packfinderz-settlement/api/middleware"
	"github.com/angelmondragon/packfinderz-settlement/pkg/enums"
	pkgerrors "github.com/angelmondragon/packfinderz-settlement/pkg/errors"
)

var (
	errNoStore   = pkgerrors.New(pkgerrors.CodeForbidden, "store context required")
	errNotVendor = pkgerrors.New(pkgerrors.CodeForbidden, "vendor access required")
)

// SellerID returns the seller whose ledger the request may read. Only vendor
// stores own settlement entries.
func SellerID(r *http.Request) (uuid.UUID, error) {
	ctx := r.Context()
	raw := middleware.StoreIDFromContext(ctx)
	switch {
	case raw == "":
		return uuid.Nil, errNoStore
	case enums.StoreType(middleware.StoreTypeFromContext(ctx)) != enums.StoreTypeVendor:
		return uuid.Nil, errNotVendor
	}

	sellerID, err := uuid.Parse(raw)
	if err != nil || sellerID == uuid.Nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid store id")
	}
	return sellerID, nil
}
