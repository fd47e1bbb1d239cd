package contract

import (
	"math"
	"strconv"

	"github.com/chain/txvm/errors"
)

// AssetID identifies an asset on the host ledger.
type AssetID uint64

func (a AssetID) String() string {
	return strconv.FormatUint(uint64(a), 10)
}

// Asset identifiers of the deployed pool: USDCa as the reserve asset
// and DLP as the pool-share asset.
const (
	DefaultReserveAsset AssetID = 10458941
	DefaultShareAsset   AssetID = 1001
)

// Config holds the two asset identifiers an instance of the contract is
// bound to. It is fixed for the life of the instance.
type Config struct {
	ReserveAsset AssetID `json:"reserve_asset"`
	ShareAsset   AssetID `json:"share_asset"`
}

// DefaultConfig returns the configuration of the deployed pool.
func DefaultConfig() Config {
	return Config{
		ReserveAsset: DefaultReserveAsset,
		ShareAsset:   DefaultShareAsset,
	}
}

// Validate reports whether c names two distinct, nonzero assets that
// fit in a signed 64-bit integer.
func (c Config) Validate() error {
	if c.ReserveAsset == 0 || c.ShareAsset == 0 {
		return errors.New("asset ids must be nonzero")
	}
	if c.ReserveAsset > math.MaxInt64 || c.ShareAsset > math.MaxInt64 {
		return errors.New("asset ids must not exceed 2^63-1")
	}
	if c.ReserveAsset == c.ShareAsset {
		return errors.New("reserve and share asset must differ")
	}
	return nil
}
