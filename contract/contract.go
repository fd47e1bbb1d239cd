// Package contract implements the deposit pool application: the router,
// the group validator, the settlement engine and the lifecycle handlers.
//
// Evaluation never writes state. It returns an Update describing the
// mutation and the inner transfer, which the host applies together with
// the rest of the group or not at all.
package contract

import (
	"context"

	"github.com/chain/txvm/errors"
)

// Pool is the application's global state.
type Pool struct {
	TotalDeposits uint64 `json:"total_deposits"`
}

// Account is the local state of an opted-in account.
type Account struct {
	Address Address `json:"address"`
	Balance uint64  `json:"balance"`
}

// State is a read-only view of the application's state as of the
// application call being evaluated.
type State interface {
	Pool(ctx context.Context) (Pool, error)

	// Account reports ok=false for an account that has not opted in.
	Account(ctx context.Context, addr Address) (acct Account, ok bool, err error)
}

// Update is the staged effect of one accepted application call.
type Update struct {
	Op     Op      `json:"op"`
	Sender Address `json:"sender"`
	Amount uint64  `json:"amount,omitempty"`

	// Pool and Account hold the new values, or nil when unchanged.
	Pool    *Pool    `json:"pool,omitempty"`
	Account *Account `json:"account,omitempty"`

	// Clear removes Sender's local state.
	Clear bool `json:"clear,omitempty"`

	Inner *InnerTxn `json:"inner,omitempty"`
}

// Contract evaluates application calls for one configured pool.
type Contract struct {
	cfg Config
}

// New returns a Contract bound to cfg.
func New(cfg Config) (*Contract, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "validating config")
	}
	return &Contract{cfg: cfg}, nil
}

// Config returns the contract's asset configuration.
func (c *Contract) Config() Config {
	return c.cfg
}

// Evaluate runs the application call g[self] against st. It returns the
// staged update, or an error whose root is ErrRejected when the group
// must be rejected.
func (c *Contract) Evaluate(ctx context.Context, st State, g Group, self int) (*Update, error) {
	if self < 0 || self >= len(g) {
		return nil, reject("application call index %d out of range", self)
	}
	txn := &g[self]
	op, err := Route(txn)
	if err != nil {
		return nil, err
	}
	switch op {
	case OpCreate:
		return create(txn), nil
	case OpOptIn:
		return optIn(txn), nil
	case OpClear:
		return clearLocal(ctx, st, txn)
	case OpDeposit:
		if err := ValidateDeposit(c.cfg, g, self); err != nil {
			return nil, err
		}
		return c.deposit(ctx, st, txn, g[0].AssetAmount)
	case OpWithdraw:
		if err := ValidateWithdraw(c.cfg, g, self); err != nil {
			return nil, err
		}
		return c.withdraw(ctx, st, txn, g[0].AssetAmount)
	}
	return nil, reject("unhandled operation %s", op)
}

func (c *Contract) deposit(ctx context.Context, st State, call *Txn, amount uint64) (*Update, error) {
	pool, acct, err := load(ctx, st, call.Sender)
	if err != nil {
		return nil, err
	}
	return settleDeposit(c.cfg, AppAddress(call.ApplicationID), pool, acct, amount)
}

func (c *Contract) withdraw(ctx context.Context, st State, call *Txn, amount uint64) (*Update, error) {
	pool, acct, err := load(ctx, st, call.Sender)
	if err != nil {
		return nil, err
	}
	return settleWithdraw(c.cfg, AppAddress(call.ApplicationID), pool, acct, amount)
}

func load(ctx context.Context, st State, addr Address) (Pool, Account, error) {
	acct, ok, err := st.Account(ctx, addr)
	if err != nil {
		return Pool{}, Account{}, errors.Wrapf(err, "reading local state of %s", addr)
	}
	if !ok {
		return Pool{}, Account{}, reject("account %s has not opted in", addr)
	}
	pool, err := st.Pool(ctx)
	if err != nil {
		return Pool{}, Account{}, errors.Wrap(err, "reading global state")
	}
	return pool, acct, nil
}
