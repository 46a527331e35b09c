// Package sqlite persists sessions and configs in a single-file SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/mcoot/yeargame/internal/model"
	"github.com/mcoot/yeargame/internal/storage"
)

var schema = `CREATE TABLE IF NOT EXISTS sessions (
  tenant varchar PRIMARY KEY,
  data text NOT NULL,
  updated_at timestamp NOT NULL
);

CREATE TABLE IF NOT EXISTS configs (
  key varchar PRIMARY KEY,
  data text NOT NULL
);`

// Storage is a SQLite-backed implementation of the storage interface.
// Each row holds the JSON document for one session or config.
type Storage struct {
	db *sqlx.DB
}

type row struct {
	Key       string    `db:"key"`
	Data      string    `db:"data"`
	UpdatedAt time.Time `db:"updated_at"`
}

// New opens (creating if needed) the database at path and applies the schema
func New(path string) (*Storage, error) {
	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, err
	}
	// A single writer avoids SQLITE_BUSY across pooled connections
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Storage{db: db}, nil
}

// Close closes the database
func (s *Storage) Close() error {
	return s.db.Close()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Session operations

func (s *Storage) SaveSession(ctx context.Context, session *model.GameSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sessions(tenant, data, updated_at) VALUES(?, ?, ?)
		 ON CONFLICT(tenant) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at;`,
		string(session.Tenant), string(data), session.UpdatedAt)
	return err
}

func (s *Storage) GetSession(ctx context.Context, tenant model.TenantID) (*model.GameSession, error) {
	var data string
	err := s.db.GetContext(ctx, &data, `SELECT data FROM sessions WHERE tenant = ?;`, string(tenant))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrSessionNotFound
		}
		return nil, err
	}

	var session model.GameSession
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *Storage) DeleteSession(ctx context.Context, tenant model.TenantID) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE tenant = ?;`, string(tenant))
	return err
}

func (s *Storage) ListTenants(ctx context.Context) ([]model.TenantID, error) {
	var keys []string
	if err := s.db.SelectContext(ctx, &keys, `SELECT tenant FROM sessions ORDER BY tenant;`); err != nil {
		return nil, err
	}
	tenants := make([]model.TenantID, len(keys))
	for i, k := range keys {
		tenants[i] = model.TenantID(k)
	}
	return tenants, nil
}

// Config operations

func (s *Storage) SaveConfig(ctx context.Context, key string, cfg model.GameConfig) error {
	data, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	_, err = s.db.NamedExecContext(ctx,
		`INSERT INTO configs(key, data) VALUES(:key, :data)
		 ON CONFLICT(key) DO UPDATE SET data = excluded.data;`,
		row{Key: key, Data: string(data)})
	return err
}

func (s *Storage) GetConfig(ctx context.Context, key string) (*model.GameConfig, error) {
	var r row
	err := s.db.GetContext(ctx, &r, `SELECT key, data FROM configs WHERE key = ?;`, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrConfigNotFound
		}
		return nil, err
	}

	var cfg model.GameConfig
	if err := json.Unmarshal([]byte(r.Data), &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
