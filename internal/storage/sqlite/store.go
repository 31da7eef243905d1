// Package sqlite provides SQLite-backed persistence for merchantsync.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/oauth2"
	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

// ErrTokenNotFound indicates no token is stored for the account.
var ErrTokenNotFound = errors.New("sqlite: token not found")

// Store is a SQLite-backed token store.
type Store struct {
	db *sql.DB
}

// schema bootstraps the database on open.
const schema = `
CREATE TABLE IF NOT EXISTS tokens (
	account       TEXT PRIMARY KEY,
	access_token  TEXT NOT NULL,
	refresh_token TEXT NOT NULL DEFAULT '',
	token_type    TEXT NOT NULL DEFAULT 'Bearer',
	expiry        INTEGER NOT NULL DEFAULT 0,
	updated_at    INTEGER NOT NULL
);
`

// NewStore opens (creating if necessary) the token database at path.
// An empty path uses the default location under ~/.merchantsync/data.
func NewStore(path string) (*Store, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home directory: %w", err)
		}
		dir := filepath.Join(home, ".merchantsync", "data")
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
		path = filepath.Join(dir, "merchantsync.db")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialise schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveToken upserts the token for an account.
func (s *Store) SaveToken(ctx context.Context, account string, tok *oauth2.Token) error {
	const query = `
		INSERT INTO tokens (account, access_token, refresh_token, token_type, expiry, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(account) DO UPDATE SET
			access_token  = excluded.access_token,
			refresh_token = excluded.refresh_token,
			token_type    = excluded.token_type,
			expiry        = excluded.expiry,
			updated_at    = excluded.updated_at`

	var expiry int64
	if !tok.Expiry.IsZero() {
		expiry = tok.Expiry.Unix()
	}

	_, err := s.db.ExecContext(ctx, query,
		account, tok.AccessToken, tok.RefreshToken, tok.TokenType, expiry, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	return nil
}

// LoadToken returns the stored token for an account.
// Returns ErrTokenNotFound when no token has been saved.
func (s *Store) LoadToken(ctx context.Context, account string) (*oauth2.Token, error) {
	const query = `
		SELECT access_token, refresh_token, token_type, expiry
		FROM tokens WHERE account = ?`

	var tok oauth2.Token
	var expiry int64
	err := s.db.QueryRowContext(ctx, query, account).Scan(
		&tok.AccessToken, &tok.RefreshToken, &tok.TokenType, &expiry,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrTokenNotFound, account)
	}
	if err != nil {
		return nil, fmt.Errorf("load token: %w", err)
	}

	if expiry > 0 {
		tok.Expiry = time.Unix(expiry, 0)
	}
	return &tok, nil
}

// DeleteToken removes the stored token for an account.
func (s *Store) DeleteToken(ctx context.Context, account string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM tokens WHERE account = ?`, account); err != nil {
		return fmt.Errorf("delete token: %w", err)
	}
	return nil
}

// Accounts lists accounts with stored tokens.
func (s *Store) Accounts(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT account FROM tokens ORDER BY account`)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []string
	for rows.Next() {
		var account string
		if err := rows.Scan(&account); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate accounts: %w", err)
	}
	return accounts, nil
}
