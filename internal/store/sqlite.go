package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/fitpulse/fitpulse-go/pkg/migration"
)

// sqliteStore persists credentials in a local SQLite file, values encrypted
// at rest. Expired rows are treated as absent and removed lazily on read.
type sqliteStore struct {
	db     *sqlx.DB
	cipher *Cipher
	now    func() time.Time
}

// NewSQLiteStore opens (creating if needed) the credential database at path
// and runs schema migrations.
func NewSQLiteStore(path string, cipher *Cipher) (Store, error) {
	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, err
	}

	// A single writer is plenty for a credential file
	db.SetMaxOpenConns(1)

	if err := migration.RunMigrations(db.DB); err != nil {
		db.Close()
		return nil, err
	}

	return &sqliteStore{
		db:     db,
		cipher: cipher,
		now:    time.Now,
	}, nil
}

// Get retrieves a credential by name
func (s *sqliteStore) Get(ctx context.Context, name string) (string, error) {
	var row struct {
		Value     string `db:"value"`
		ExpiresAt int64  `db:"expires_at"`
	}
	query := `SELECT value, expires_at FROM credentials WHERE name = ?`

	err := s.db.GetContext(ctx, &row, query, name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil // Entry not found
		}
		return "", err
	}

	if row.ExpiresAt > 0 && row.ExpiresAt <= s.now().Unix() {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM credentials WHERE name = ?`, name)
		return "", nil
	}

	return s.cipher.Open(row.Value)
}

// SetAll writes all entries in one transaction
func (s *sqliteStore) SetAll(ctx context.Context, entries []Entry) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO credentials (name, value, expires_at)
		VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at
	`

	now := s.now()
	for _, e := range entries {
		sealed, err := s.cipher.Seal(e.Value)
		if err != nil {
			return err
		}

		var expiresAt int64
		if e.TTL > 0 {
			expiresAt = now.Add(e.TTL).Unix()
		}

		if _, err := tx.ExecContext(ctx, query, e.Name, sealed, expiresAt); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// Delete removes the named credentials
func (s *sqliteStore) Delete(ctx context.Context, names ...string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, name := range names {
		if _, err := tx.ExecContext(ctx, `DELETE FROM credentials WHERE name = ?`, name); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// Close closes the underlying database
func (s *sqliteStore) Close() error {
	return s.db.Close()
}
