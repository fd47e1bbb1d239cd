package contract

import i10rjson "github.com/chain/txvm/encoding/json"

// CreateGroup returns a group instantiating the application.
func CreateGroup(creator Address) Group {
	return Group{{
		Type:   AppCallTx,
		Sender: creator,
	}}
}

// OptInGroup returns a group opting sender in to the application.
func OptInGroup(appID uint64, sender Address) Group {
	return Group{{
		Type:          AppCallTx,
		Sender:        sender,
		ApplicationID: appID,
		OnCompletion:  OptIn,
	}}
}

// ClearGroup returns a group removing sender's local state.
func ClearGroup(appID uint64, sender Address) Group {
	return Group{{
		Type:          AppCallTx,
		Sender:        sender,
		ApplicationID: appID,
		OnCompletion:  ClearState,
	}}
}

// DepositGroup returns the two-part group depositing amount units of
// the reserve asset.
func DepositGroup(cfg Config, appID uint64, sender Address, amount uint64) Group {
	return callGroup(appID, sender, cfg.ReserveAsset, amount, "deposit")
}

// WithdrawGroup returns the two-part group returning amount pool shares
// for the same amount of the reserve asset.
func WithdrawGroup(cfg Config, appID uint64, sender Address, amount uint64) Group {
	return callGroup(appID, sender, cfg.ShareAsset, amount, "withdraw")
}

func callGroup(appID uint64, sender Address, asset AssetID, amount uint64, op string) Group {
	return Group{
		{
			Type:          AssetTransferTx,
			Sender:        sender,
			XferAsset:     asset,
			AssetAmount:   amount,
			AssetReceiver: AppAddress(appID),
		},
		{
			Type:          AppCallTx,
			Sender:        sender,
			ApplicationID: appID,
			AppArgs:       []i10rjson.HexBytes{i10rjson.HexBytes(op)},
		},
	}
}

// WithNote returns a copy of g whose first part carries note. Groups are
// identified by hash, so a note distinguishes otherwise identical groups.
func (g Group) WithNote(note []byte) Group {
	out := make(Group, len(g))
	copy(out, g)
	if len(out) > 0 {
		out[0].Note = i10rjson.HexBytes(note)
	}
	return out
}
