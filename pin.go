package depositpool

import (
	"context"
	"fmt"

	"github.com/chain/txvm/errors"
	"github.com/sirupsen/logrus"

	"github.com/interstellar/slingshot/depositpool/store"
)

// RunPin calls f once for each committed round, in order, starting after
// the last round the named pin processed. It replays the backlog from the
// store and then follows live rounds until ctx is done, which yields a
// nil error.
func (l *Ledger) RunPin(ctx context.Context, name string, f func(context.Context, *store.Record) error) error {
	defer logrus.WithField("pin", name).Info("pin exiting")

	// Subscribe before reading the backlog so no round falls between them.
	r := l.w.Reader()
	defer r.Dispose()

	lastRound, err := l.S.Pin(ctx, name)
	if ctx.Err() != nil {
		return nil
	}
	if err != nil {
		return err
	}

	processRound := func(rec *store.Record) error {
		if rec.Round != lastRound+1 {
			return fmt.Errorf("missing round %d", lastRound+1)
		}
		err := f(ctx, rec)
		if err != nil {
			return errors.Wrapf(err, "running pin %s on round %d", name, rec.Round)
		}
		// Not ctx: a round that f has processed must be recorded.
		err = l.S.SetPin(context.Background(), name, rec.Round)
		if err != nil {
			return err
		}
		lastRound = rec.Round
		return nil
	}

	err = l.S.RoundsAfter(ctx, lastRound, processRound)
	if ctx.Err() != nil {
		return nil
	}
	if err != nil {
		return errors.Wrapf(err, "processing backlog for pin %s", name)
	}

	for {
		x, ok := r.Read(ctx)
		if !ok {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("error waiting for round %d", lastRound+1)
		}
		rec := x.(*store.Record)
		if rec.Round <= lastRound {
			continue
		}
		err = processRound(rec)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			return errors.Wrapf(err, "processing live round %d", rec.Round)
		}
	}
}
