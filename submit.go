package depositpool

import (
	"encoding/json"
	"io/ioutil"
	"net/http"

	"github.com/chain/txvm/errors"

	"github.com/interstellar/slingshot/depositpool/contract"
	"github.com/interstellar/slingshot/depositpool/keys"
	"github.com/interstellar/slingshot/depositpool/net"
)

// Mux returns the ledger's HTTP surface. The /fund endpoint is only
// served when dev is true.
func (l *Ledger) Mux(dev bool) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/submit", l)
	mux.HandleFunc("/get", l.Get)
	mux.HandleFunc("/pool", l.Pool)
	mux.HandleFunc("/account", l.Account)
	if dev {
		mux.HandleFunc("/fund", l.ServeFund)
	}
	return mux
}

// ServeHTTP handles POST /submit. The body is a JSON keys.SignedGroup;
// the reply is the committed store.Record.
func (l *Ledger) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		net.Errorf(w, http.StatusMethodNotAllowed, "%s not allowed", req.Method)
		return
	}
	ctx := req.Context()

	bits, err := ioutil.ReadAll(req.Body)
	if err != nil {
		net.Errorf(w, http.StatusInternalServerError, "reading request body: %s", err)
		return
	}

	var sg keys.SignedGroup
	err = json.Unmarshal(bits, &sg)
	if err != nil {
		net.Errorf(w, http.StatusBadRequest, "parsing request body: %s", err)
		return
	}

	rec, err := l.Submit(ctx, &sg)
	if err != nil {
		replyErr(w, err)
		return
	}
	writeJSON(w, rec)
}

// ServeFund handles POST /fund with a JSON FundRequest.
func (l *Ledger) ServeFund(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		net.Errorf(w, http.StatusMethodNotAllowed, "%s not allowed", req.Method)
		return
	}
	var fr FundRequest
	err := json.NewDecoder(req.Body).Decode(&fr)
	if err != nil {
		net.Errorf(w, http.StatusBadRequest, "parsing request body: %s", err)
		return
	}
	err = l.Fund(req.Context(), fr.Address, fr.Asset, fr.Amount)
	if err != nil {
		replyErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// FundRequest is the body of POST /fund.
type FundRequest struct {
	Address contract.Address `json:"address"`
	Asset   contract.AssetID `json:"asset"`
	Amount  uint64           `json:"amount"`
}

func replyErr(w http.ResponseWriter, err error) {
	if contract.IsRejected(err) {
		net.Errorf(w, http.StatusBadRequest, "%s: %s (%s)", contract.ErrRejected, errors.Detail(err), err)
		return
	}
	net.Errorf(w, http.StatusInternalServerError, "%s", err)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		net.Errorf(w, http.StatusInternalServerError, "sending response: %s", err)
	}
}
