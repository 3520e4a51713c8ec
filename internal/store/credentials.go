package store

import (
	"database/sql"
	"time"
)

// Credential keys persisted in the local key-value table.
const (
	credAccessToken  = "access_token"
	credRefreshToken = "refresh_token"
)

// SetCredential stores a value under a key (last write wins).
func (db *DB) SetCredential(key, value string) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		INSERT INTO credentials (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, now)
	return err
}

// GetCredential returns the value for a key, or "" if absent.
func (db *DB) GetCredential(key string) (string, error) {
	var value string
	err := db.QueryRow(`SELECT value FROM credentials WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

// SetTokens stores the access and refresh tokens.
func (db *DB) SetTokens(access, refresh string) error {
	if err := db.SetCredential(credAccessToken, access); err != nil {
		return err
	}
	return db.SetCredential(credRefreshToken, refresh)
}

// AccessToken returns the stored access token, or "" when not logged in.
func (db *DB) AccessToken() (string, error) {
	return db.GetCredential(credAccessToken)
}

// RefreshToken returns the stored refresh token, or "".
func (db *DB) RefreshToken() (string, error) {
	return db.GetCredential(credRefreshToken)
}

// ClearTokens removes all stored credentials.
func (db *DB) ClearTokens() error {
	_, err := db.Exec(`DELETE FROM credentials`)
	return err
}
