package contract

import (
	"context"

	"github.com/chain/txvm/errors"
)

func create(call *Txn) *Update {
	return &Update{
		Op:     OpCreate,
		Sender: call.Sender,
		Pool:   &Pool{TotalDeposits: 0},
	}
}

// optIn always writes a zero balance. An account that opts in twice
// would lose its tracked balance; the host refuses a second opt-in.
func optIn(call *Txn) *Update {
	return &Update{
		Op:      OpOptIn,
		Sender:  call.Sender,
		Account: &Account{Address: call.Sender},
	}
}

// clearLocal removes the caller's local state. It is refused while the caller
// still has a balance: the pool total would keep counting units that no
// account owns.
func clearLocal(ctx context.Context, st State, call *Txn) (*Update, error) {
	acct, ok, err := st.Account(ctx, call.Sender)
	if err != nil {
		return nil, errors.Wrapf(err, "reading local state of %s", call.Sender)
	}
	if ok && acct.Balance > 0 {
		return nil, reject("account %s still holds %d deposited units", call.Sender, acct.Balance)
	}
	return &Update{
		Op:     OpClear,
		Sender: call.Sender,
		Clear:  true,
	}, nil
}
