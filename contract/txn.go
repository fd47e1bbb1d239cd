package contract

import (
	"encoding/json"
	"fmt"

	i10rjson "github.com/chain/txvm/encoding/json"
	"github.com/chain/txvm/protocol/bc"
	"github.com/chain/txvm/protocol/txvm"
)

// TxType distinguishes the kinds of transaction a group may contain.
type TxType uint8

const (
	AssetTransferTx TxType = iota + 1
	AppCallTx
)

func (t TxType) String() string {
	switch t {
	case AssetTransferTx:
		return "axfer"
	case AppCallTx:
		return "appl"
	}
	return fmt.Sprintf("TxType(%d)", uint8(t))
}

// OnCompletion is the completion type of an application call.
type OnCompletion uint8

const (
	NoOp OnCompletion = iota
	OptIn
	CloseOut
	ClearState
	UpdateApplication
	DeleteApplication
)

func (oc OnCompletion) String() string {
	switch oc {
	case NoOp:
		return "noop"
	case OptIn:
		return "optin"
	case CloseOut:
		return "closeout"
	case ClearState:
		return "clear"
	case UpdateApplication:
		return "update"
	case DeleteApplication:
		return "delete"
	}
	return fmt.Sprintf("OnCompletion(%d)", uint8(oc))
}

// Txn is one part of a transaction group. Which fields are meaningful
// depends on Type.
type Txn struct {
	Type   TxType            `json:"type"`
	Sender Address           `json:"sender"`
	Note   i10rjson.HexBytes `json:"note,omitempty"`

	// Asset transfer.
	XferAsset     AssetID `json:"xfer_asset,omitempty"`
	AssetAmount   uint64  `json:"asset_amount,omitempty"`
	AssetReceiver Address `json:"asset_receiver,omitempty"`

	// Application call.
	ApplicationID uint64              `json:"application_id,omitempty"`
	OnCompletion  OnCompletion        `json:"on_completion,omitempty"`
	AppArgs       []i10rjson.HexBytes `json:"app_args,omitempty"`
}

// Arg returns the i'th application argument and whether it is present.
func (t *Txn) Arg(i int) ([]byte, bool) {
	if i < 0 || i >= len(t.AppArgs) {
		return nil, false
	}
	return t.AppArgs[i], true
}

// Group is an ordered set of transactions committed or rejected as a unit.
type Group []Txn

// ID returns the hash identifying g.
func (g Group) ID() bc.Hash {
	bits, err := json.Marshal(g)
	if err != nil {
		// Every field of Txn has a total JSON encoding.
		panic(err)
	}
	return bc.NewHash(txvm.VMHash("DepositPoolGroup", bits))
}

// InnerTxn is an asset transfer issued by the application itself.
type InnerTxn struct {
	Sender        Address `json:"sender"`
	XferAsset     AssetID `json:"xfer_asset"`
	AssetAmount   uint64  `json:"asset_amount"`
	AssetReceiver Address `json:"asset_receiver"`
}
