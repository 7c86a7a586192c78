package models

// AssetClass categorizes an asset for diversification scoring.
type AssetClass string

const (
	ClassReserveCrypto AssetClass = "reserve-crypto"
	ClassCrypto        AssetClass = "crypto"
	ClassEquity        AssetClass = "equity"
	ClassCommodity     AssetClass = "commodity"
	ClassStablecoin    AssetClass = "stablecoin"
	ClassCash          AssetClass = "cash"
)

// IsValidAssetClass returns true if c is a supported asset class.
func IsValidAssetClass(c AssetClass) bool {
	switch c {
	case ClassReserveCrypto, ClassCrypto, ClassEquity, ClassCommodity, ClassStablecoin, ClassCash:
		return true
	default:
		return false
	}
}

// Asset describes a tradable holding. Immutable once created.
type Asset struct {
	Symbol string
	Class  AssetClass
	Sector string // optional, equities only
}
