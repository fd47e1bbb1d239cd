package contract

import "github.com/chain/txvm/errors"

// ErrRejected is the root of every error that rejects a transaction group.
// A rejected group has no effect on any state.
var ErrRejected = errors.New("rejected")

func reject(format string, args ...interface{}) error {
	return errors.WithDetailf(ErrRejected, format, args...)
}

// IsRejected reports whether err rejects a group, as opposed to an
// infrastructure failure while evaluating it.
func IsRejected(err error) bool {
	return err != nil && errors.Root(err) == ErrRejected
}
