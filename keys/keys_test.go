package keys

import (
	"testing"

	"github.com/interstellar/slingshot/depositpool/contract"
)

func TestSignVerify(t *testing.T) {
	alice, err := New()
	if err != nil {
		t.Fatal(err)
	}
	bob, err := New()
	if err != nil {
		t.Fatal(err)
	}
	cfg := contract.DefaultConfig()
	g := contract.DepositGroup(cfg, 3, Address(alice), 10)

	sg, err := Sign(g, bob, alice)
	if err != nil {
		t.Fatal(err)
	}
	if err := Verify(sg); err != nil {
		t.Fatalf("verifying freshly signed group: %s", err)
	}

	if _, err := Sign(g, bob); err == nil {
		t.Error("signed without the sender's key")
	}

	tampered := *sg
	tampered.Group = g.WithNote([]byte("x"))
	if err := Verify(&tampered); !contract.IsRejected(err) {
		t.Errorf("got %v verifying tampered group, want rejection", err)
	}

	short := *sg
	short.Sigs = sg.Sigs[:1]
	if err := Verify(&short); !contract.IsRejected(err) {
		t.Errorf("got %v verifying group with a missing signature, want rejection", err)
	}

	forged, err := Sign(contract.DepositGroup(cfg, 3, Address(bob), 10), bob)
	if err != nil {
		t.Fatal(err)
	}
	forged.Group[0].Sender = Address(alice)
	forged.Group[1].Sender = Address(alice)
	if err := Verify(forged); !contract.IsRejected(err) {
		t.Errorf("got %v verifying forged group, want rejection", err)
	}
}
