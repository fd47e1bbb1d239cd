package depositpool

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/chain/txvm/errors"

	"github.com/interstellar/slingshot/depositpool/contract"
	"github.com/interstellar/slingshot/depositpool/keys"
	"github.com/interstellar/slingshot/depositpool/store"
)

func TestPins(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	withTestLedger(ctx, t, func(ctx context.Context, l *Ledger, _ *httptest.Server) {
		alice, bob, carol := newKey(t), newKey(t), newKey(t)
		rec1 := mustSubmit(ctx, t, l, contract.CreateGroup(keys.Address(alice)), alice)
		appID := rec1.Round

		pin1ctx, pin1cancel := context.WithCancel(ctx)
		defer pin1cancel()

		pin1ch := make(chan *store.Record)
		pin1done := make(chan struct{})
		go func() {
			err := l.RunPin(pin1ctx, "pin1", func(_ context.Context, rec *store.Record) error {
				pin1ch <- rec
				return nil
			})
			if err != nil {
				t.Log(err)
			}
			close(pin1done)
		}()

		pin2ch := make(chan *store.Record)
		go l.RunPin(ctx, "pin2", func(_ context.Context, rec *store.Record) error {
			pin2ch <- rec
			return nil
		})

		// Round 1 comes from the backlog on both pins.
		expectRound(ctx, t, "pin1", pin1ch, rec1)
		expectRound(ctx, t, "pin2", pin2ch, rec1)

		rec2 := mustSubmit(ctx, t, l, contract.OptInGroup(appID, keys.Address(alice)), alice)
		expectRound(ctx, t, "pin1", pin1ch, rec2)
		expectRound(ctx, t, "pin2", pin2ch, rec2)

		pin1cancel()
		<-pin1done

		rec3 := mustSubmit(ctx, t, l, contract.OptInGroup(appID, keys.Address(bob)), bob)

		select {
		case <-pin1ch:
			t.Fatal("did not expect to see another round from pin1 (yet)")

		default:
		}

		expectRound(ctx, t, "pin2", pin2ch, rec3)

		got, err := l.S.Pin(ctx, "pin1")
		if err != nil {
			t.Fatal(err)
		}
		if got != 2 {
			t.Errorf("got pin1 at round %d, want 2", got)
		}

		// A restarted pin resumes after the last round it processed.
		pin1ach := make(chan *store.Record)
		go l.RunPin(ctx, "pin1", func(_ context.Context, rec *store.Record) error {
			pin1ach <- rec
			return nil
		})
		expectRound(ctx, t, "pin1", pin1ach, rec3)

		rec4 := mustSubmit(ctx, t, l, contract.OptInGroup(appID, keys.Address(carol)), carol)
		expectRound(ctx, t, "pin1", pin1ach, rec4)
		expectRound(ctx, t, "pin2", pin2ch, rec4)
	})
}

func TestAuditPin(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	withTestLedger(ctx, t, func(ctx context.Context, l *Ledger, _ *httptest.Server) {
		cfg := l.Config()
		alice := newKey(t)
		appID := setupPool(ctx, t, l, alice, 1000)
		fund(ctx, t, l, keys.Address(alice), cfg.ReserveAsset, 100)
		mustSubmit(ctx, t, l, contract.OptInGroup(appID, keys.Address(alice)), alice)
		mustSubmit(ctx, t, l, contract.DepositGroup(cfg, appID, keys.Address(alice), 70), alice)

		audited := make(chan uint64)
		pinctx, pincancel := context.WithCancel(ctx)
		defer pincancel()
		go l.RunPin(pinctx, "audit", func(ctx context.Context, rec *store.Record) error {
			err := l.Audit(ctx, rec)
			if err != nil {
				t.Errorf("audit of round %d: %s", rec.Round, err)
			}
			audited <- rec.Round
			return nil
		})
		for want := uint64(1); want <= 3; want++ {
			select {
			case <-ctx.Done():
				t.Fatal(ctx.Err())
			case got := <-audited:
				if got != want {
					t.Fatalf("got audit of round %d, want %d", got, want)
				}
			}
		}

		// Draining the application's reserve outside the pool breaks the books.
		tx, err := l.S.Begin(ctx)
		if err != nil {
			t.Fatal(err)
		}
		err = tx.Transfer(ctx, contract.AppAddress(appID), keys.Address(alice), cfg.ReserveAsset, 1)
		if err != nil {
			t.Fatal(err)
		}
		err = tx.Commit()
		if err != nil {
			t.Fatal(err)
		}
		err = l.Audit(ctx, &store.Record{Round: 3})
		if errors.Root(err) != ErrAudit {
			t.Errorf("got %v, want %s", err, ErrAudit)
		}
	})
}

func expectRound(ctx context.Context, t *testing.T, pin string, ch <-chan *store.Record, want *store.Record) {
	t.Helper()
	select {
	case <-ctx.Done():
		t.Fatal(ctx.Err())

	case got := <-ch:
		if got.Round != want.Round || got.GroupID != want.GroupID {
			t.Fatalf("got round %d group %x from %s, want round %d group %x", got.Round, got.GroupID.Bytes(), pin, want.Round, want.GroupID.Bytes())
		}
		t.Logf("%s: round %d", pin, got.Round)
	}
}
