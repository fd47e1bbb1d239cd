package depositpool

import (
	"net/http"
	"strconv"

	"github.com/interstellar/slingshot/depositpool/contract"
	"github.com/interstellar/slingshot/depositpool/net"
)

// PoolInfo is the reply to GET /pool.
type PoolInfo struct {
	AppID      uint64           `json:"app_id"`
	AppAddress contract.Address `json:"app_address"`
	Config     contract.Config  `json:"config"`
	Pool       contract.Pool    `json:"pool"`
	Reserve    uint64           `json:"reserve"`
	Shares     uint64           `json:"shares"`
}

// AccountInfo is the reply to GET /account.
type AccountInfo struct {
	Address contract.Address `json:"address"`
	OptedIn bool             `json:"opted_in"`
	Balance uint64           `json:"balance"`
	Reserve uint64           `json:"reserve"`
	Shares  uint64           `json:"shares"`
}

// Get handles GET /get?round=N. An absent or zero round means the latest
// one. A round not yet committed is waited for until the request's
// context is done.
func (l *Ledger) Get(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()

	var want uint64
	if s := req.FormValue("round"); s != "" {
		var err error
		want, err = strconv.ParseUint(s, 10, 64)
		if err != nil {
			net.Errorf(w, http.StatusBadRequest, "parsing round: %s", err)
			return
		}
	}
	if want == 0 {
		height, err := l.S.Height(ctx)
		if err != nil {
			net.Errorf(w, http.StatusInternalServerError, "getting height: %s", err)
			return
		}
		want = height
		if want == 0 {
			want = 1
		}
	}

	rec, err := l.WaitRound(ctx, want)
	if ctx.Err() != nil {
		net.Errorf(w, http.StatusRequestTimeout, "timed out waiting for round %d", want)
		return
	}
	if err != nil {
		net.Errorf(w, http.StatusInternalServerError, "getting round %d: %s", want, err)
		return
	}
	writeJSON(w, rec)
}

// Pool handles GET /pool.
func (l *Ledger) Pool(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	app, err := l.S.App(ctx)
	if err != nil {
		net.Errorf(w, http.StatusInternalServerError, "loading application: %s", err)
		return
	}
	if app == nil {
		net.Errorf(w, http.StatusNotFound, "no application")
		return
	}
	info := PoolInfo{
		AppID:      app.ID,
		AppAddress: contract.AppAddress(app.ID),
		Config:     app.Config,
		Pool:       app.Pool,
	}
	info.Reserve, err = l.S.Holding(ctx, info.AppAddress, app.Config.ReserveAsset)
	if err != nil {
		net.Errorf(w, http.StatusInternalServerError, "%s", err)
		return
	}
	info.Shares, err = l.S.Holding(ctx, info.AppAddress, app.Config.ShareAsset)
	if err != nil {
		net.Errorf(w, http.StatusInternalServerError, "%s", err)
		return
	}
	writeJSON(w, info)
}

// Account handles GET /account?address=A.
func (l *Ledger) Account(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	addr := contract.Address(req.FormValue("address"))
	if !addr.Valid() {
		net.Errorf(w, http.StatusBadRequest, "invalid address %q", addr)
		return
	}
	cfg := l.Config()
	info := AccountInfo{Address: addr}

	app, err := l.S.App(ctx)
	if err != nil {
		net.Errorf(w, http.StatusInternalServerError, "loading application: %s", err)
		return
	}
	if app != nil {
		var acct contract.Account
		acct, info.OptedIn, err = l.S.Account(ctx, app.ID, addr)
		if err != nil {
			net.Errorf(w, http.StatusInternalServerError, "%s", err)
			return
		}
		info.Balance = acct.Balance
	}
	info.Reserve, err = l.S.Holding(ctx, addr, cfg.ReserveAsset)
	if err != nil {
		net.Errorf(w, http.StatusInternalServerError, "%s", err)
		return
	}
	info.Shares, err = l.S.Holding(ctx, addr, cfg.ShareAsset)
	if err != nil {
		net.Errorf(w, http.StatusInternalServerError, "%s", err)
		return
	}
	writeJSON(w, info)
}
