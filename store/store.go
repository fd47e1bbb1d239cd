// Package store persists the deposit pool and the host ledger in sqlite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"math"

	"github.com/bobg/sqlutil"
	"github.com/chain/txvm/errors"
	"github.com/chain/txvm/math/checked"
	"github.com/chain/txvm/protocol/bc"
	_ "github.com/mattn/go-sqlite3"

	"github.com/interstellar/slingshot/depositpool/contract"
)

var (
	// ErrInsufficient means a sender does not hold enough of an asset.
	ErrInsufficient = errors.New("insufficient holdings")

	// ErrOverflow means a holding would exceed what the ledger can store.
	ErrOverflow = errors.New("holding overflow")
)

// MaxAmount is the largest quantity the store can hold in a single row.
const MaxAmount = math.MaxInt64

// App is a created application and its global state.
type App struct {
	ID     uint64          `json:"app_id"`
	Config contract.Config `json:"config"`
	Pool   contract.Pool   `json:"pool"`
}

// Record is one committed transaction group.
type Record struct {
	Round     uint64            `json:"round"`
	GroupID   bc.Hash           `json:"group_id"`
	Group     contract.Group    `json:"group"`
	Calls     []contract.Update `json:"calls"`
	Timestamp uint64            `json:"timestamp_ms"`
}

// Store is the sqlite-backed ledger state.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the sqlite database at path.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening db %s", path)
	}
	// A single connection serializes readers behind the open group
	// transaction instead of failing with "database is locked".
	db.SetMaxOpenConns(1)
	s, err := New(ctx, db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// New migrates db and wraps it in a Store.
func New(ctx context.Context, db *sql.DB) (*Store, error) {
	_, err := db.ExecContext(ctx, migrationsTable)
	if err != nil {
		return nil, errors.Wrap(err, "creating migrations table")
	}
	err = sqlutil.Migrate(ctx, db, migrations)
	if err != nil {
		return nil, errors.Wrap(err, "migrating db schema")
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// App returns the created application, or nil if there is none yet.
func (s *Store) App(ctx context.Context) (*App, error) {
	return getApp(ctx, s.db)
}

// Account returns the local state of addr in appID.
func (s *Store) Account(ctx context.Context, appID uint64, addr contract.Address) (contract.Account, bool, error) {
	return getAccount(ctx, s.db, appID, addr)
}

// Accounts returns every opted-in account of appID, ordered by address.
func (s *Store) Accounts(ctx context.Context, appID uint64) ([]contract.Account, error) {
	var accts []contract.Account
	const q = `SELECT address, balance FROM accounts WHERE app_id = $1 ORDER BY address`
	err := sqlutil.ForQueryRows(ctx, s.db, q, appID, func(addr string, balance uint64) {
		accts = append(accts, contract.Account{Address: contract.Address(addr), Balance: balance})
	})
	return accts, errors.Wrapf(err, "listing accounts of app %d", appID)
}

// Holding returns how much of asset addr holds.
func (s *Store) Holding(ctx context.Context, addr contract.Address, asset contract.AssetID) (uint64, error) {
	return getHolding(ctx, s.db, addr, asset)
}

// Height returns the latest committed round, or 0 if there is none.
func (s *Store) Height(ctx context.Context) (uint64, error) {
	return height(ctx, s.db)
}

// Round returns the record of round n.
func (s *Store) Round(ctx context.Context, n uint64) (*Record, error) {
	const q = `SELECT round, group_id, group_json, calls_json, timestamp_ms FROM rounds WHERE round = $1`
	var (
		rec       Record
		groupBits []byte
		callsBits []byte
	)
	err := s.db.QueryRowContext(ctx, q, n).Scan(&rec.Round, &rec.GroupID, &groupBits, &callsBits, &rec.Timestamp)
	if err != nil {
		return nil, errors.Wrapf(err, "reading round %d", n)
	}
	err = decodeRecord(&rec, groupBits, callsBits)
	return &rec, errors.Wrapf(err, "decoding round %d", n)
}

// RoundsAfter calls fn, in order, with every record after round n.
func (s *Store) RoundsAfter(ctx context.Context, n uint64, fn func(*Record) error) error {
	const q = `SELECT round, group_id, group_json, calls_json, timestamp_ms FROM rounds WHERE round > $1 ORDER BY round`
	var recs []*Record
	err := sqlutil.ForQueryRows(ctx, s.db, q, n, func(round uint64, groupID bc.Hash, groupBits, callsBits []byte, ts uint64) error {
		rec := &Record{Round: round, GroupID: groupID, Timestamp: ts}
		err := decodeRecord(rec, groupBits, callsBits)
		if err != nil {
			return errors.Wrapf(err, "decoding round %d", round)
		}
		recs = append(recs, rec)
		return nil
	})
	if err != nil {
		return errors.Wrapf(err, "reading rounds after %d", n)
	}
	// fn runs after the rows are closed so that it may use the store.
	for _, rec := range recs {
		err = fn(rec)
		if err != nil {
			return err
		}
	}
	return nil
}

// Pin returns the last round processed by the named pin, creating the
// pin at round 0 if it does not exist.
func (s *Store) Pin(ctx context.Context, name string) (uint64, error) {
	_, err := s.db.ExecContext(ctx, `INSERT OR IGNORE INTO pins (name, round) VALUES ($1, 0)`, name)
	if err != nil {
		return 0, errors.Wrapf(err, "creating pin %s", name)
	}
	var round uint64
	err = s.db.QueryRowContext(ctx, `SELECT round FROM pins WHERE name = $1`, name).Scan(&round)
	return round, errors.Wrapf(err, "getting round of pin %s", name)
}

// SetPin records that the named pin has processed round.
func (s *Store) SetPin(ctx context.Context, name string, round uint64) error {
	_, err := s.db.ExecContext(ctx, `UPDATE pins SET round = $1 WHERE name = $2`, round, name)
	return errors.Wrapf(err, "updating pin %s to round %d", name, round)
}

// Begin starts the database transaction in which one group is applied.
func (s *Store) Begin(ctx context.Context) (*Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "beginning db transaction")
	}
	return &Tx{tx: tx}, nil
}

// Tx is a group in progress. Nothing it writes is visible outside it
// until Commit.
type Tx struct {
	tx *sql.Tx
}

// Commit commits t.
func (t *Tx) Commit() error {
	return errors.Wrap(t.tx.Commit(), "committing db transaction")
}

// Rollback abandons t. It is safe to call after Commit.
func (t *Tx) Rollback() error {
	err := t.tx.Rollback()
	if err == sql.ErrTxDone {
		return nil
	}
	return err
}

// App is Store.App within t.
func (t *Tx) App(ctx context.Context) (*App, error) {
	return getApp(ctx, t.tx)
}

// Height is Store.Height within t.
func (t *Tx) Height(ctx context.Context) (uint64, error) {
	return height(ctx, t.tx)
}

// HasGroup reports whether a group with the given ID has been committed.
func (t *Tx) HasGroup(ctx context.Context, id bc.Hash) (bool, error) {
	var n int
	err := t.tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM rounds WHERE group_id = $1`, id).Scan(&n)
	return n > 0, errors.Wrap(err, "looking up group id")
}

// State returns the application state of appID as seen inside t.
func (t *Tx) State(appID uint64) contract.State {
	return &txState{tx: t.tx, appID: appID}
}

// Apply writes the update u produced by application appID.
// A create update inserts the application with cfg.
func (t *Tx) Apply(ctx context.Context, appID uint64, cfg contract.Config, u *contract.Update) error {
	if u.Op == contract.OpCreate {
		const q = `INSERT INTO app (app_id, reserve_asset, share_asset, total_deposits) VALUES ($1, $2, $3, $4)`
		var total uint64
		if u.Pool != nil {
			total = u.Pool.TotalDeposits
		}
		_, err := t.tx.ExecContext(ctx, q, appID, uint64(cfg.ReserveAsset), uint64(cfg.ShareAsset), total)
		return errors.Wrapf(err, "creating app %d", appID)
	}
	if u.Pool != nil {
		_, err := t.tx.ExecContext(ctx, `UPDATE app SET total_deposits = $1 WHERE app_id = $2`, u.Pool.TotalDeposits, appID)
		if err != nil {
			return errors.Wrapf(err, "writing global state of app %d", appID)
		}
	}
	if u.Account != nil {
		const q = `INSERT OR REPLACE INTO accounts (app_id, address, balance) VALUES ($1, $2, $3)`
		_, err := t.tx.ExecContext(ctx, q, appID, string(u.Account.Address), u.Account.Balance)
		if err != nil {
			return errors.Wrapf(err, "writing local state of %s", u.Account.Address)
		}
	}
	if u.Clear {
		_, err := t.tx.ExecContext(ctx, `DELETE FROM accounts WHERE app_id = $1 AND address = $2`, appID, string(u.Sender))
		if err != nil {
			return errors.Wrapf(err, "clearing local state of %s", u.Sender)
		}
	}
	return nil
}

// Transfer moves amount units of asset from one address to another.
func (t *Tx) Transfer(ctx context.Context, from, to contract.Address, asset contract.AssetID, amount uint64) error {
	have, err := getHolding(ctx, t.tx, from, asset)
	if err != nil {
		return err
	}
	left, ok := checked.SubUint64(have, amount)
	if !ok {
		return errors.WithDetailf(ErrInsufficient, "%s holds %d of asset %s, needs %d", from, have, asset, amount)
	}
	err = t.setHolding(ctx, from, asset, left)
	if err != nil {
		return err
	}
	return t.Credit(ctx, to, asset, amount)
}

// Credit adds amount units of asset to addr.
func (t *Tx) Credit(ctx context.Context, addr contract.Address, asset contract.AssetID, amount uint64) error {
	have, err := getHolding(ctx, t.tx, addr, asset)
	if err != nil {
		return err
	}
	sum, ok := checked.AddUint64(have, amount)
	if !ok || sum > MaxAmount {
		return errors.WithDetailf(ErrOverflow, "%s holding of asset %s", addr, asset)
	}
	return t.setHolding(ctx, addr, asset, sum)
}

func (t *Tx) setHolding(ctx context.Context, addr contract.Address, asset contract.AssetID, amount uint64) error {
	_, err := t.tx.ExecContext(ctx, `INSERT OR IGNORE INTO holdings (address, asset, amount) VALUES ($1, $2, 0)`, string(addr), uint64(asset))
	if err != nil {
		return errors.Wrapf(err, "creating holding of asset %s for %s", asset, addr)
	}
	_, err = t.tx.ExecContext(ctx, `UPDATE holdings SET amount = $1 WHERE address = $2 AND asset = $3`, amount, string(addr), uint64(asset))
	return errors.Wrapf(err, "writing holding of asset %s for %s", asset, addr)
}

// Append writes rec to the round log.
func (t *Tx) Append(ctx context.Context, rec *Record) error {
	groupBits, err := json.Marshal(rec.Group)
	if err != nil {
		return errors.Wrap(err, "marshaling group")
	}
	callsBits, err := json.Marshal(rec.Calls)
	if err != nil {
		return errors.Wrap(err, "marshaling calls")
	}
	const q = `INSERT INTO rounds (round, group_id, group_json, calls_json, timestamp_ms) VALUES ($1, $2, $3, $4, $5)`
	_, err = t.tx.ExecContext(ctx, q, rec.Round, rec.GroupID, groupBits, callsBits, rec.Timestamp)
	return errors.Wrapf(err, "writing round %d", rec.Round)
}

type txState struct {
	tx    *sql.Tx
	appID uint64
}

func (s *txState) Pool(ctx context.Context) (contract.Pool, error) {
	var pool contract.Pool
	err := s.tx.QueryRowContext(ctx, `SELECT total_deposits FROM app WHERE app_id = $1`, s.appID).Scan(&pool.TotalDeposits)
	return pool, errors.Wrapf(err, "reading global state of app %d", s.appID)
}

func (s *txState) Account(ctx context.Context, addr contract.Address) (contract.Account, bool, error) {
	return getAccount(ctx, s.tx, s.appID, addr)
}

func getApp(ctx context.Context, q sqlutil.QueryerContext) (*App, error) {
	var (
		app            App
		reserve, share uint64
	)
	const query = `SELECT app_id, reserve_asset, share_asset, total_deposits FROM app ORDER BY app_id LIMIT 1`
	err := q.QueryRowContext(ctx, query).Scan(&app.ID, &reserve, &share, &app.Pool.TotalDeposits)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "reading app")
	}
	app.Config = contract.Config{ReserveAsset: contract.AssetID(reserve), ShareAsset: contract.AssetID(share)}
	return &app, nil
}

func getAccount(ctx context.Context, q sqlutil.QueryerContext, appID uint64, addr contract.Address) (contract.Account, bool, error) {
	acct := contract.Account{Address: addr}
	const query = `SELECT balance FROM accounts WHERE app_id = $1 AND address = $2`
	err := q.QueryRowContext(ctx, query, appID, string(addr)).Scan(&acct.Balance)
	if err == sql.ErrNoRows {
		return acct, false, nil
	}
	if err != nil {
		return acct, false, errors.Wrapf(err, "reading local state of %s", addr)
	}
	return acct, true, nil
}

func getHolding(ctx context.Context, q sqlutil.QueryerContext, addr contract.Address, asset contract.AssetID) (uint64, error) {
	var amount uint64
	const query = `SELECT amount FROM holdings WHERE address = $1 AND asset = $2`
	err := q.QueryRowContext(ctx, query, string(addr), uint64(asset)).Scan(&amount)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return amount, errors.Wrapf(err, "reading holding of asset %s for %s", asset, addr)
}

func height(ctx context.Context, q sqlutil.QueryerContext) (uint64, error) {
	var h uint64
	err := q.QueryRowContext(ctx, `SELECT COALESCE(MAX(round), 0) FROM rounds`).Scan(&h)
	return h, errors.Wrap(err, "getting height")
}

func decodeRecord(rec *Record, groupBits, callsBits []byte) error {
	err := json.Unmarshal(groupBits, &rec.Group)
	if err != nil {
		return errors.Wrap(err, "unmarshaling group")
	}
	return errors.Wrap(json.Unmarshal(callsBits, &rec.Calls), "unmarshaling calls")
}
