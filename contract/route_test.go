package contract

import (
	"testing"

	i10rjson "github.com/chain/txvm/encoding/json"
)

func TestRoute(t *testing.T) {
	args := func(s ...string) []i10rjson.HexBytes {
		var out []i10rjson.HexBytes
		for _, a := range s {
			out = append(out, i10rjson.HexBytes(a))
		}
		return out
	}
	cases := []struct {
		name string
		txn  Txn
		want Op
	}{
		{"create", Txn{Type: AppCallTx}, OpCreate},
		{"create ignores args", Txn{Type: AppCallTx, AppArgs: args("withdraw")}, OpCreate},
		{"optin", Txn{Type: AppCallTx, ApplicationID: 9, OnCompletion: OptIn}, OpOptIn},
		{"optin ignores args", Txn{Type: AppCallTx, ApplicationID: 9, OnCompletion: OptIn, AppArgs: args("deposit")}, OpOptIn},
		{"clear", Txn{Type: AppCallTx, ApplicationID: 9, OnCompletion: ClearState}, OpClear},
		{"deposit", Txn{Type: AppCallTx, ApplicationID: 9, AppArgs: args("deposit")}, OpDeposit},
		{"withdraw", Txn{Type: AppCallTx, ApplicationID: 9, AppArgs: args("withdraw", "extra")}, OpWithdraw},
		{"no args", Txn{Type: AppCallTx, ApplicationID: 9}, 0},
		{"unknown arg", Txn{Type: AppCallTx, ApplicationID: 9, AppArgs: args("borrow")}, 0},
		{"case matters", Txn{Type: AppCallTx, ApplicationID: 9, AppArgs: args("Deposit")}, 0},
		{"closeout", Txn{Type: AppCallTx, ApplicationID: 9, OnCompletion: CloseOut, AppArgs: args("deposit")}, 0},
		{"update", Txn{Type: AppCallTx, ApplicationID: 9, OnCompletion: UpdateApplication}, 0},
		{"delete", Txn{Type: AppCallTx, ApplicationID: 9, OnCompletion: DeleteApplication, AppArgs: args("withdraw")}, 0},
		{"not a call", Txn{Type: AssetTransferTx, ApplicationID: 9}, 0},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, err := Route(&c.txn)
			if c.want == 0 {
				if !IsRejected(err) {
					t.Fatalf("got (%s, %v), want rejection", got, err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got != c.want {
				t.Errorf("got %s, want %s", got, c.want)
			}
		})
	}
}

func TestOpText(t *testing.T) {
	for op := range opNames {
		text, err := op.MarshalText()
		if err != nil {
			t.Fatal(err)
		}
		var got Op
		if err := got.UnmarshalText(text); err != nil {
			t.Fatal(err)
		}
		if got != op {
			t.Errorf("got %s, want %s", got, op)
		}
	}
	var op Op
	if err := op.UnmarshalText([]byte("borrow")); err == nil {
		t.Error("unmarshaled unknown op")
	}
}
