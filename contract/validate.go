package contract

// GroupSize is the number of parts in a deposit or withdraw group:
// the caller's asset transfer followed by the application call.
const GroupSize = 2

// ValidateDeposit checks that g, evaluated at the application call g[self],
// is a well-formed deposit of cfg.ReserveAsset. It has no side effects.
func ValidateDeposit(cfg Config, g Group, self int) error {
	return validateTransfer(g, self, cfg.ReserveAsset)
}

// ValidateWithdraw checks that g, evaluated at the application call g[self],
// is a well-formed withdrawal returning cfg.ShareAsset. The caller's
// balance is checked when the withdrawal is settled.
func ValidateWithdraw(cfg Config, g Group, self int) error {
	return validateTransfer(g, self, cfg.ShareAsset)
}

func validateTransfer(g Group, self int, asset AssetID) error {
	if len(g) != GroupSize {
		return reject("group size %d, want %d", len(g), GroupSize)
	}
	if self < 0 || self >= len(g) {
		return reject("application call index %d out of range", self)
	}
	call, xfer := &g[self], &g[0]
	if xfer.Type != AssetTransferTx {
		return reject("group[0] is %s, want %s", xfer.Type, AssetTransferTx)
	}
	if xfer.XferAsset != asset {
		return reject("group[0] transfers asset %s, want %s", xfer.XferAsset, asset)
	}
	if xfer.AssetAmount == 0 {
		return reject("group[0] transfers zero units")
	}
	if xfer.Sender != call.Sender {
		return reject("group[0] sender %s does not match caller %s", xfer.Sender, call.Sender)
	}
	if appAddr := AppAddress(call.ApplicationID); xfer.AssetReceiver != appAddr {
		return reject("group[0] pays %s, want application address %s", xfer.AssetReceiver, appAddr)
	}
	return nil
}
