package depositpool

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/chain/txvm/errors"
	"github.com/davecgh/go-spew/spew"
	"github.com/stellar/go/keypair"

	"github.com/interstellar/slingshot/depositpool/contract"
	"github.com/interstellar/slingshot/depositpool/keys"
	"github.com/interstellar/slingshot/depositpool/store"
)

func TestServer(t *testing.T) {
	withTestLedger(context.Background(), t, func(ctx context.Context, l *Ledger, server *httptest.Server) {
		req, err := http.NewRequest("GET", server.URL+"/get?round=2", nil)
		if err != nil {
			t.Fatal(err)
		}

		shortCtx, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()

		req = req.WithContext(shortCtx)
		_, err = server.Client().Do(req)
		if unwraperr(err) != context.DeadlineExceeded {
			fmt.Print(spew.Sdump(err))
			t.Fatalf("got error %v, want %s", err, context.DeadlineExceeded)
		}

		ch := make(chan *store.Record)
		go func() {
			defer close(ch)

			req, err := http.NewRequest("GET", server.URL+"/get?round=2", nil)
			if err != nil {
				t.Logf("creating GET request: %s", err)
				return
			}

			shortCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()

			resp, err := server.Client().Do(req.WithContext(shortCtx))
			if err != nil {
				t.Log(err)
				return
			}
			defer resp.Body.Close()

			if resp.StatusCode/100 != 2 {
				t.Logf("status code %d from GET request", resp.StatusCode)
				return
			}

			var rec store.Record
			err = json.NewDecoder(resp.Body).Decode(&rec)
			if err != nil {
				t.Logf("decoding round 2: %s", err)
				return
			}
			ch <- &rec
		}()

		alice := newKey(t)
		rec1 := postGroup(t, server, contract.CreateGroup(keys.Address(alice)), alice)
		if rec1.Round != 1 {
			t.Fatalf("got round %d for create, want 1", rec1.Round)
		}
		rec2 := postGroup(t, server, contract.OptInGroup(rec1.Round, keys.Address(alice)), alice)

		got := <-ch
		if got == nil {
			t.Fatal("GET of round 2 failed")
		}
		if got.GroupID != rec2.GroupID {
			t.Fatalf("got group %x in round 2, want %x", got.GroupID.Bytes(), rec2.GroupID.Bytes())
		}
		if len(got.Calls) != 1 || got.Calls[0].Op != contract.OpOptIn {
			t.Fatalf("got calls %s, want one opt-in", spew.Sdump(got.Calls))
		}

		// A second opt-in is a rejection, reported as 400.
		sg, err := keys.Sign(contract.OptInGroup(rec1.Round, keys.Address(alice)).WithNote([]byte("again")), alice)
		if err != nil {
			t.Fatal(err)
		}
		code, body := post(t, server.URL+"/submit", sg)
		if code != http.StatusBadRequest || !strings.HasPrefix(body, "rejected") {
			t.Errorf("got %d %q, want 400 rejection", code, body)
		}

		code, _ = post(t, server.URL+"/fund", FundRequest{Address: "nobody", Asset: 1, Amount: 1})
		if code != http.StatusBadRequest {
			t.Errorf("got status %d funding an invalid address, want 400", code)
		}

		resp, err := http.Get(server.URL + "/account?address=" + url.QueryEscape(alice.Address()))
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()
		var info AccountInfo
		err = json.NewDecoder(resp.Body).Decode(&info)
		if err != nil {
			t.Fatal(err)
		}
		if !info.OptedIn || info.Balance != 0 {
			t.Errorf("got account %+v, want opted in with zero balance", info)
		}
	})
}

func TestFundNotServed(t *testing.T) {
	withTestLedger(context.Background(), t, func(ctx context.Context, l *Ledger, _ *httptest.Server) {
		server := httptest.NewServer(l.Mux(false))
		defer server.Close()

		code, _ := post(t, server.URL+"/fund", FundRequest{Address: "nobody", Asset: 1, Amount: 1})
		if code != http.StatusNotFound {
			t.Errorf("got status %d, want 404", code)
		}
	})
}

func postGroup(t *testing.T, server *httptest.Server, g contract.Group, signers ...*keypair.Full) *store.Record {
	t.Helper()
	sg, err := keys.Sign(g, signers...)
	if err != nil {
		t.Fatal(err)
	}
	code, body := post(t, server.URL+"/submit", sg)
	if code != http.StatusOK {
		t.Fatalf("status %d from POST /submit: %s", code, body)
	}
	var rec store.Record
	err = json.Unmarshal([]byte(body), &rec)
	if err != nil {
		t.Fatal(err)
	}
	return &rec
}

func post(t *testing.T, u string, v interface{}) (int, string) {
	t.Helper()
	bits, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.Post(u, "application/json", bytes.NewReader(bits))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp.StatusCode, string(body)
}

func unwraperr(err error) error {
	err = errors.Root(err)
	if err, ok := err.(*url.Error); ok {
		return unwraperr(err.Err)
	}
	return err
}
