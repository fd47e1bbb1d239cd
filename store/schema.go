package store

const migrationsTable = `
CREATE TABLE IF NOT EXISTS migrations (
  hash BLOB NOT NULL PRIMARY KEY
);
`

var migrations = []string{
	`
CREATE TABLE app (
  app_id INTEGER NOT NULL PRIMARY KEY,
  reserve_asset INTEGER NOT NULL,
  share_asset INTEGER NOT NULL,
  total_deposits INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE accounts (
  app_id INTEGER NOT NULL REFERENCES app (app_id),
  address TEXT NOT NULL,
  balance INTEGER NOT NULL DEFAULT 0,
  PRIMARY KEY (app_id, address)
);

CREATE TABLE holdings (
  address TEXT NOT NULL,
  asset INTEGER NOT NULL,
  amount INTEGER NOT NULL DEFAULT 0,
  PRIMARY KEY (address, asset)
);

CREATE TABLE rounds (
  round INTEGER NOT NULL PRIMARY KEY,
  group_id BLOB NOT NULL UNIQUE,
  group_json BLOB NOT NULL,
  calls_json BLOB NOT NULL,
  timestamp_ms INTEGER NOT NULL
);

CREATE TABLE pins (
  name TEXT NOT NULL PRIMARY KEY,
  round INTEGER NOT NULL
);
`,
}
