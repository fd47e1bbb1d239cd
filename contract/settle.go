package contract

import "github.com/chain/txvm/math/checked"

func settleDeposit(cfg Config, appAddr Address, pool Pool, acct Account, amount uint64) (*Update, error) {
	balance, ok := checked.AddUint64(acct.Balance, amount)
	if !ok {
		return nil, reject("deposit of %d overflows balance of %s", amount, acct.Address)
	}
	total, ok := checked.AddUint64(pool.TotalDeposits, amount)
	if !ok {
		return nil, reject("deposit of %d overflows pool total", amount)
	}
	acct.Balance = balance
	pool.TotalDeposits = total
	return &Update{
		Op:      OpDeposit,
		Sender:  acct.Address,
		Amount:  amount,
		Pool:    &pool,
		Account: &acct,
		Inner: &InnerTxn{
			Sender:        appAddr,
			XferAsset:     cfg.ShareAsset,
			AssetAmount:   exchange(amount),
			AssetReceiver: acct.Address,
		},
	}, nil
}

func settleWithdraw(cfg Config, appAddr Address, pool Pool, acct Account, amount uint64) (*Update, error) {
	balance, ok := checked.SubUint64(acct.Balance, amount)
	if !ok {
		return nil, reject("withdrawal of %d exceeds balance %d of %s", amount, acct.Balance, acct.Address)
	}
	total, ok := checked.SubUint64(pool.TotalDeposits, amount)
	if !ok {
		return nil, reject("withdrawal of %d exceeds pool total %d", amount, pool.TotalDeposits)
	}
	acct.Balance = balance
	pool.TotalDeposits = total
	return &Update{
		Op:      OpWithdraw,
		Sender:  acct.Address,
		Amount:  amount,
		Pool:    &pool,
		Account: &acct,
		Inner: &InnerTxn{
			Sender:        appAddr,
			XferAsset:     cfg.ReserveAsset,
			AssetAmount:   exchange(amount),
			AssetReceiver: acct.Address,
		},
	}, nil
}
