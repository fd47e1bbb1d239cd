// Package keys signs and verifies transaction groups with Stellar
// ed25519 keypairs.
package keys

import (
	"github.com/chain/txvm/errors"
	"github.com/stellar/go/keypair"

	"github.com/interstellar/slingshot/depositpool/contract"
)

// ErrSignature is the detail attached to rejections caused by a missing
// or invalid signature.
var ErrSignature = errors.New("bad signature")

// SignedGroup is a transaction group with one signature per part,
// each made by that part's sender over the group ID.
type SignedGroup struct {
	Group contract.Group `json:"group"`
	Sigs  [][]byte       `json:"sigs"`
}

// New generates a random keypair.
func New() (*keypair.Full, error) {
	kp, err := keypair.Random()
	if err != nil {
		return nil, errors.Wrap(err, "generating random keypair")
	}
	return kp, nil
}

// Address returns the account address of kp.
func Address(kp keypair.KP) contract.Address {
	return contract.Address(kp.Address())
}

// Sign signs every part of g with the signer matching its sender.
func Sign(g contract.Group, signers ...*keypair.Full) (*SignedGroup, error) {
	byAddr := make(map[contract.Address]*keypair.Full, len(signers))
	for _, kp := range signers {
		byAddr[Address(kp)] = kp
	}
	id := g.ID()
	sg := &SignedGroup{Group: g, Sigs: make([][]byte, len(g))}
	for i, txn := range g {
		kp, ok := byAddr[txn.Sender]
		if !ok {
			return nil, errors.Wrapf(ErrSignature, "no signer for part %d (sender %s)", i, txn.Sender)
		}
		sig, err := kp.Sign(id.Bytes())
		if err != nil {
			return nil, errors.Wrapf(err, "signing part %d", i)
		}
		sg.Sigs[i] = sig
	}
	return sg, nil
}

// Verify checks every signature in sg. A failure is a rejection.
func Verify(sg *SignedGroup) error {
	if len(sg.Sigs) != len(sg.Group) {
		return reject("%d signatures for %d parts", len(sg.Sigs), len(sg.Group))
	}
	id := sg.Group.ID()
	for i, txn := range sg.Group {
		kp, err := keypair.Parse(string(txn.Sender))
		if err != nil {
			return reject("part %d: parsing sender %q: %s", i, txn.Sender, err)
		}
		err = kp.Verify(id.Bytes(), sg.Sigs[i])
		if err != nil {
			return reject("part %d: %s", i, ErrSignature)
		}
	}
	return nil
}

func reject(format string, args ...interface{}) error {
	return errors.WithDetailf(contract.ErrRejected, format, args...)
}
