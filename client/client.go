// Package client talks to a deposit pool daemon over HTTP.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/chain/txvm/errors"
	i10rnet "github.com/interstellar/starlight/net"
	"github.com/sirupsen/logrus"

	"github.com/interstellar/slingshot/depositpool"
	"github.com/interstellar/slingshot/depositpool/contract"
	"github.com/interstellar/slingshot/depositpool/keys"
	"github.com/interstellar/slingshot/depositpool/store"
)

// RejectedError is returned when the daemon rejects a group.
// Msg starts with "rejected: " and carries the daemon's reason.
type RejectedError struct {
	Msg string
}

func (e *RejectedError) Error() string {
	return e.Msg
}

// StatusError is returned for any other non-2xx reply.
type StatusError struct {
	Code int
	Msg  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.Code, e.Msg)
}

// Client is a deposit pool daemon client.
type Client struct {
	// URL is the daemon's base URL, e.g. "http://localhost:2424".
	URL string

	// HTTP is the client used for requests. If nil, http.DefaultClient is used.
	HTTP *http.Client

	// Tries bounds the attempts made when the daemon cannot be reached.
	// Zero means 5.
	Tries int

	// Base is the first retry delay. Zero means 100ms.
	Base time.Duration
}

// New returns a client for the daemon at baseURL.
func New(baseURL string) *Client {
	return &Client{URL: strings.TrimRight(baseURL, "/")}
}

// Submit posts sg and returns the committed record.
func (c *Client) Submit(ctx context.Context, sg *keys.SignedGroup) (*store.Record, error) {
	bits, err := json.Marshal(sg)
	if err != nil {
		return nil, errors.Wrap(err, "marshaling signed group")
	}
	var rec store.Record
	err = c.do(ctx, "POST", "/submit", bits, &rec)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Get returns the record of round n, waiting for it if necessary.
// Zero means the latest round.
func (c *Client) Get(ctx context.Context, n uint64) (*store.Record, error) {
	var rec store.Record
	err := c.do(ctx, "GET", "/get?round="+strconv.FormatUint(n, 10), nil, &rec)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Pool returns the application's global state.
func (c *Client) Pool(ctx context.Context) (*depositpool.PoolInfo, error) {
	var info depositpool.PoolInfo
	err := c.do(ctx, "GET", "/pool", nil, &info)
	if err != nil {
		return nil, err
	}
	return &info, nil
}

// Account returns the state of addr.
func (c *Client) Account(ctx context.Context, addr contract.Address) (*depositpool.AccountInfo, error) {
	var info depositpool.AccountInfo
	err := c.do(ctx, "GET", "/account?address="+url.QueryEscape(string(addr)), nil, &info)
	if err != nil {
		return nil, err
	}
	return &info, nil
}

// Fund credits amount of asset to addr on a development daemon.
func (c *Client) Fund(ctx context.Context, addr contract.Address, asset contract.AssetID, amount uint64) error {
	bits, err := json.Marshal(depositpool.FundRequest{Address: addr, Asset: asset, Amount: amount})
	if err != nil {
		return errors.Wrap(err, "marshaling fund request")
	}
	return c.do(ctx, "POST", "/fund", bits, nil)
}

// do sends one request, retrying with backoff while the daemon cannot
// be reached. Replies are never retried: a submitted group may have
// been committed.
func (c *Client) do(ctx context.Context, method, path string, body []byte, out interface{}) error {
	hc := c.HTTP
	if hc == nil {
		hc = http.DefaultClient
	}
	tries := c.Tries
	if tries <= 0 {
		tries = 5
	}
	backoff := i10rnet.Backoff{Base: c.Base}
	if backoff.Base <= 0 {
		backoff.Base = 100 * time.Millisecond
	}

	var resp *http.Response
	for i := 0; ; i++ {
		req, err := http.NewRequest(method, c.URL+path, bytes.NewReader(body))
		if err != nil {
			return errors.Wrapf(err, "building request for %s", path)
		}
		req = req.WithContext(ctx)
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		resp, err = hc.Do(req)
		if err == nil {
			break
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if i+1 >= tries {
			return errors.Wrapf(err, "%s %s", method, path)
		}
		dur := backoff.Next()
		logrus.WithFields(logrus.Fields{
			"path":  path,
			"retry": dur,
		}).Warnf("request failed: %s", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(dur):
		}
	}
	defer resp.Body.Close()

	respBits, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrapf(err, "reading response to %s", path)
	}
	if resp.StatusCode/100 != 2 {
		msg := strings.TrimSpace(string(respBits))
		if resp.StatusCode == http.StatusBadRequest && strings.HasPrefix(msg, contract.ErrRejected.Error()) {
			return &RejectedError{Msg: msg}
		}
		return &StatusError{Code: resp.StatusCode, Msg: msg}
	}
	if out == nil {
		return nil
	}
	err = json.Unmarshal(respBits, out)
	return errors.Wrapf(err, "parsing response to %s", path)
}
