// Package depositpool is the host ledger for the deposit pool
// application. It serializes transaction groups, applies each one to the
// store in a single database transaction, and fans committed rounds out
// to pins and waiters.
package depositpool

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bobg/multichan"
	"github.com/chain/txvm/errors"
	"github.com/chain/txvm/protocol/bc"
	"github.com/sirupsen/logrus"

	"github.com/interstellar/slingshot/depositpool/contract"
	"github.com/interstellar/slingshot/depositpool/keys"
	"github.com/interstellar/slingshot/depositpool/store"
)

// ErrConfigMismatch means the store holds an application with different assets.
var ErrConfigMismatch = errors.New("config mismatch")

// MaxGroupSize is the largest number of parts the ledger accepts in one group.
const MaxGroupSize = 16

// Ledger applies signed groups to a store, one at a time.
type Ledger struct {
	S *store.Store

	contract *contract.Contract

	// mu serializes groups.
	mu sync.Mutex

	// w publishes each committed *store.Record.
	w *multichan.W

	now func() time.Time
}

// NewLedger returns a ledger over s running the pool configured by cfg.
// A store that already holds an application must have been created with
// the same configuration.
func NewLedger(ctx context.Context, s *store.Store, cfg contract.Config) (*Ledger, error) {
	c, err := contract.New(cfg)
	if err != nil {
		return nil, err
	}
	app, err := s.App(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "loading application")
	}
	if app != nil && app.Config != cfg {
		return nil, errors.WithDetailf(ErrConfigMismatch, "stored application %d uses reserve %s share %s, got reserve %s share %s",
			app.ID, app.Config.ReserveAsset, app.Config.ShareAsset, cfg.ReserveAsset, cfg.ShareAsset)
	}
	return &Ledger{
		S:        s,
		contract: c,
		w:        multichan.New((*store.Record)(nil)),
		now:      time.Now,
	}, nil
}

// Config returns the pool's asset configuration.
func (l *Ledger) Config() contract.Config {
	return l.contract.Config()
}

// Submit applies sg as the next round. A group that fails any check, or
// whose application call or transfers fail, is rejected with an error
// whose root is contract.ErrRejected and leaves no trace in the store.
func (l *Ledger) Submit(ctx context.Context, sg *keys.SignedGroup) (*store.Record, error) {
	err := checkGroup(sg.Group)
	if err != nil {
		return nil, err
	}
	err = keys.Verify(sg)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	tx, err := l.S.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	id := sg.Group.ID()
	dup, err := tx.HasGroup(ctx, id)
	if err != nil {
		return nil, err
	}
	if dup {
		return nil, reject("group %x already committed", id.Bytes())
	}

	height, err := tx.Height(ctx)
	if err != nil {
		return nil, err
	}
	rec := &store.Record{
		Round:     height + 1,
		GroupID:   id,
		Group:     sg.Group,
		Timestamp: bc.Millis(l.now()),
	}

	for i := range sg.Group {
		txn := &sg.Group[i]
		switch txn.Type {
		case contract.AssetTransferTx:
			err = transfer(ctx, tx, txn.Sender, txn.AssetReceiver, txn.XferAsset, txn.AssetAmount)
			if err != nil {
				return nil, errors.Wrapf(err, "part %d", i)
			}

		case contract.AppCallTx:
			u, err := l.call(ctx, tx, rec.Round, sg.Group, i)
			if err != nil {
				return nil, errors.Wrapf(err, "part %d", i)
			}
			rec.Calls = append(rec.Calls, *u)
		}
	}

	err = tx.Append(ctx, rec)
	if err != nil {
		return nil, err
	}
	err = tx.Commit()
	if err != nil {
		return nil, err
	}

	l.w.Write(rec)
	logrus.WithFields(logrus.Fields{
		"round": rec.Round,
		"group": fmt.Sprintf("%x", id.Bytes()),
		"parts": len(sg.Group),
	}).Info("committed group")
	return rec, nil
}

// call applies the application call g[self] within tx.
func (l *Ledger) call(ctx context.Context, tx *store.Tx, round uint64, g contract.Group, self int) (*contract.Update, error) {
	txn := &g[self]
	app, err := tx.App(ctx)
	if err != nil {
		return nil, err
	}

	var appID uint64
	if txn.ApplicationID == 0 {
		if app != nil {
			return nil, reject("application %d already exists", app.ID)
		}
		// The application is named by the round that creates it.
		appID = round
	} else {
		if app == nil || app.ID != txn.ApplicationID {
			return nil, reject("no application %d", txn.ApplicationID)
		}
		appID = app.ID
		switch txn.OnCompletion {
		case contract.OptIn, contract.ClearState:
			_, optedIn, err := tx.State(appID).Account(ctx, txn.Sender)
			if err != nil {
				return nil, err
			}
			if optedIn && txn.OnCompletion == contract.OptIn {
				return nil, reject("%s already opted in to application %d", txn.Sender, appID)
			}
			if !optedIn && txn.OnCompletion == contract.ClearState {
				return nil, reject("%s is not opted in to application %d", txn.Sender, appID)
			}
		}
	}

	u, err := l.contract.Evaluate(ctx, tx.State(appID), g, self)
	if err != nil {
		return nil, err
	}
	err = tx.Apply(ctx, appID, l.contract.Config(), u)
	if err != nil {
		return nil, err
	}
	if in := u.Inner; in != nil {
		err = transfer(ctx, tx, in.Sender, in.AssetReceiver, in.XferAsset, in.AssetAmount)
		if err != nil {
			return nil, errors.Wrap(err, "inner transfer")
		}
	}
	return u, nil
}

// transfer moves holdings within tx, turning a shortfall or an overflow
// into a rejection.
func transfer(ctx context.Context, tx *store.Tx, from, to contract.Address, asset contract.AssetID, amount uint64) error {
	err := tx.Transfer(ctx, from, to, asset, amount)
	switch errors.Root(err) {
	case nil:
		return nil
	case store.ErrInsufficient, store.ErrOverflow:
		return reject("transferring %d of asset %s from %s to %s: %s", amount, asset, from, to, errors.Detail(err))
	}
	return err
}

// Fund credits amount units of asset to addr outside of any group. It
// stands in for asset issuance on a development ledger.
func (l *Ledger) Fund(ctx context.Context, addr contract.Address, asset contract.AssetID, amount uint64) error {
	if !addr.Valid() {
		return reject("invalid address %q", addr)
	}
	if asset > store.MaxAmount {
		return reject("asset id %d too large", asset)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	tx, err := l.S.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	err = tx.Credit(ctx, addr, asset, amount)
	if errors.Root(err) == store.ErrOverflow {
		return reject("funding %s: %s", addr, errors.Detail(err))
	}
	if err != nil {
		return err
	}
	err = tx.Commit()
	if err != nil {
		return err
	}
	logrus.WithFields(logrus.Fields{
		"address": addr,
		"asset":   asset,
		"amount":  amount,
	}).Info("funded")
	return nil
}

// WaitRound returns the record of round n, waiting for it to be
// committed if necessary.
func (l *Ledger) WaitRound(ctx context.Context, n uint64) (*store.Record, error) {
	// Subscribe before reading the height so no round is missed.
	r := l.w.Reader()
	defer r.Dispose()

	height, err := l.S.Height(ctx)
	if err != nil {
		return nil, err
	}
	for height < n {
		x, ok := r.Read(ctx)
		if !ok {
			return nil, ctx.Err()
		}
		height = x.(*store.Record).Round
	}
	return l.S.Round(ctx, n)
}

func checkGroup(g contract.Group) error {
	if len(g) == 0 || len(g) > MaxGroupSize {
		return reject("group has %d parts, want 1 to %d", len(g), MaxGroupSize)
	}
	for i, txn := range g {
		if !txn.Sender.Valid() {
			return reject("part %d: invalid sender %q", i, txn.Sender)
		}
		switch txn.Type {
		case contract.AssetTransferTx:
			if !txn.AssetReceiver.Valid() {
				return reject("part %d: invalid receiver %q", i, txn.AssetReceiver)
			}
			if txn.XferAsset > store.MaxAmount {
				return reject("part %d: asset id %d too large", i, txn.XferAsset)
			}
			if txn.AssetAmount > store.MaxAmount {
				return reject("part %d: amount %d too large", i, txn.AssetAmount)
			}
		case contract.AppCallTx:
			if txn.ApplicationID > store.MaxAmount {
				return reject("part %d: application id %d too large", i, txn.ApplicationID)
			}
		default:
			return reject("part %d: unknown type %s", i, txn.Type)
		}
	}
	return nil
}

func reject(format string, args ...interface{}) error {
	return errors.WithDetailf(contract.ErrRejected, format, args...)
}
