package contract

import (
	"encoding/binary"

	"github.com/chain/txvm/protocol/txvm"
	"github.com/stellar/go/strkey"
)

// Address is a strkey-encoded account ID ("G...").
type Address string

// Valid reports whether a decodes as an account ID.
func (a Address) Valid() bool {
	_, err := strkey.Decode(strkey.VersionByteAccountID, string(a))
	return err == nil
}

// AppAddress returns the address of the account controlled by the
// application with the given ID. Inner transfers are sent from it and
// deposits must be paid to it.
func AppAddress(appID uint64) Address {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], appID)
	h := txvm.VMHash("DepositPoolApp", buf[:])
	return Address(strkey.MustEncode(strkey.VersionByteAccountID, h[:]))
}
