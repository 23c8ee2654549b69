package creds

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/starfallrpg/starfall-client/internal/common"
	"github.com/starfallrpg/starfall-client/internal/cryptox"
	"github.com/starfallrpg/starfall-client/internal/dbx"
)

// Keys within the credentials key-value table. The device secret and salt
// survive Clear so the sealing key stays stable for the install.
const (
	keyUsername        = "username"
	keyTokenCiphertext = "token_ciphertext"
	keyTokenNonce      = "token_nonce"
	keyDeviceSecret    = "device_secret"
	keyDeviceSalt      = "device_salt"
)

// SQLiteStore persists credentials in the local SQLite database. The token
// is sealed with AES-GCM under a key derived from a random per-device
// secret generated on first save.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) get(ctx context.Context, q dbx.DBTX, key string) ([]byte, error) {
	var value []byte
	err := q.QueryRowContext(ctx, `SELECT value FROM credentials WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get credentials[%s]: %w", key, err)
	}
	return value, nil
}

func (s *SQLiteStore) set(ctx context.Context, q dbx.DBTX, key string, value []byte) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO credentials (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("failed to set credentials[%s]: %w", key, err)
	}
	return nil
}

// deviceKey loads the per-device sealing key, generating and persisting the
// underlying secret and salt on first use.
func (s *SQLiteStore) deviceKey(ctx context.Context, q dbx.DBTX) ([]byte, error) {
	secret, err := s.get(ctx, q, keyDeviceSecret)
	if err != nil {
		return nil, err
	}
	salt, err := s.get(ctx, q, keyDeviceSalt)
	if err != nil {
		return nil, err
	}

	if secret == nil || salt == nil {
		secret = common.GenerateRandByteArray(32)
		salt = common.GenerateRandByteArray(16)
		if err := s.set(ctx, q, keyDeviceSecret, secret); err != nil {
			return nil, err
		}
		if err := s.set(ctx, q, keyDeviceSalt, salt); err != nil {
			return nil, err
		}
	}

	return cryptox.DeriveDeviceKey(secret, salt), nil
}

// Save persists the credentials in a single transaction, sealing the token
// under the device key.
func (s *SQLiteStore) Save(ctx context.Context, c *Credentials) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		key, err := s.deviceKey(ctx, tx)
		if err != nil {
			return err
		}

		ciphertext, nonce, err := cryptox.SealToken(c.Token, key)
		if err != nil {
			return fmt.Errorf("seal token: %w", err)
		}

		if err := s.set(ctx, tx, keyUsername, []byte(c.Username)); err != nil {
			return err
		}
		if err := s.set(ctx, tx, keyTokenCiphertext, ciphertext); err != nil {
			return err
		}
		return s.set(ctx, tx, keyTokenNonce, nonce)
	})
}

// Load restores previously saved credentials, or (nil, nil) when none are
// stored. A token that fails to unseal (tampered row, foreign database)
// is reported as an error so the caller can fall back to a clean state.
func (s *SQLiteStore) Load(ctx context.Context) (*Credentials, error) {
	username, err := s.get(ctx, s.db, keyUsername)
	if err != nil {
		return nil, err
	}
	if len(username) == 0 {
		return nil, nil
	}

	ciphertext, err := s.get(ctx, s.db, keyTokenCiphertext)
	if err != nil {
		return nil, err
	}
	nonce, err := s.get(ctx, s.db, keyTokenNonce)
	if err != nil {
		return nil, err
	}
	if ciphertext == nil || nonce == nil {
		return nil, nil
	}

	key, err := s.deviceKey(ctx, s.db)
	if err != nil {
		return nil, err
	}

	token, err := cryptox.OpenToken(ciphertext, nonce, key)
	if err != nil {
		return nil, fmt.Errorf("unseal token: %w", err)
	}

	return &Credentials{Username: string(username), Token: token}, nil
}

// Clear removes the stored credentials. The device secret is kept so a
// later Save reuses the same sealing key.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM credentials WHERE key IN (?, ?, ?)`,
		keyUsername, keyTokenCiphertext, keyTokenNonce)
	if err != nil {
		return fmt.Errorf("failed to clear credentials: %w", err)
	}
	return nil
}
