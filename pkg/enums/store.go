package enums

// StoreType is the active store kind in an access token. Only vendor stores
// have seller earnings.
type StoreType string

const (
	StoreTypeBuyer  StoreType = "buyer"
	StoreTypeVendor StoreType = "vendor"
)

func (s StoreType) IsValid() bool {
	return s == StoreTypeBuyer || s == StoreTypeVendor
}
