package depositpool

import (
	"context"

	"github.com/chain/txvm/errors"
	"github.com/chain/txvm/math/checked"
	"github.com/sirupsen/logrus"

	"github.com/interstellar/slingshot/depositpool/contract"
	"github.com/interstellar/slingshot/depositpool/store"
)

// ErrAudit means the pool's books do not balance.
var ErrAudit = errors.New("audit failed")

// Audit checks the committed state against the pool's invariants: the
// pool total equals the sum of local balances, and the application
// holds at least that much of the reserve asset. It has the signature
// of a RunPin callback; rec only names the round that triggered it.
func (l *Ledger) Audit(ctx context.Context, rec *store.Record) error {
	app, err := l.S.App(ctx)
	if err != nil {
		return err
	}
	if app == nil {
		return nil
	}
	accts, err := l.S.Accounts(ctx, app.ID)
	if err != nil {
		return err
	}
	var sum uint64
	for _, acct := range accts {
		var ok bool
		sum, ok = checked.AddUint64(sum, acct.Balance)
		if !ok {
			return errors.WithDetailf(ErrAudit, "round %d: local balances overflow", rec.Round)
		}
	}
	if sum != app.Pool.TotalDeposits {
		return errors.WithDetailf(ErrAudit, "round %d: pool total %d, local balances sum to %d", rec.Round, app.Pool.TotalDeposits, sum)
	}
	reserve, err := l.S.Holding(ctx, contract.AppAddress(app.ID), app.Config.ReserveAsset)
	if err != nil {
		return err
	}
	if reserve < app.Pool.TotalDeposits {
		return errors.WithDetailf(ErrAudit, "round %d: application holds %d of the reserve asset, owes %d", rec.Round, reserve, app.Pool.TotalDeposits)
	}
	logrus.WithFields(logrus.Fields{
		"round":    rec.Round,
		"total":    app.Pool.TotalDeposits,
		"accounts": len(accts),
		"reserve":  reserve,
	}).Debug("audit ok")
	return nil
}
