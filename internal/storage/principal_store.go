package storage

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"
)

const maskVisibleChars = 4

type (
	// Identity is the authenticated user resolved from an API key.
	Identity struct {
		UserID string
		Name   string
		Admin  bool
		KeyID  string
	}

	// PrincipalStore resolves API keys to user identities. Keys are stored as
	// bcrypt hashes; lookup compares the presented key against all active
	// hashes in memory, which holds up for key counts in the low thousands.
	PrincipalStore struct {
		conn   *Connection
		logger *slog.Logger
	}
)

// NewPrincipalStore creates a principal store backed by the given connection.
func NewPrincipalStore(conn *Connection, logger *slog.Logger) *PrincipalStore {
	return &PrincipalStore{
		conn:   conn,
		logger: logger.With(slog.String("component", "principal_store")),
	}
}

// FindByKey resolves an API key to the identity it belongs to.
// Returns (nil, false) for unknown, inactive, or expired keys.
func (s *PrincipalStore) FindByKey(ctx context.Context, key string) (*Identity, bool) {
	if key == "" {
		return nil, false
	}

	query := `
		SELECT k.id, k.key_hash, k.expires_at, u.id, u.name, u.is_admin
		FROM api_keys k
		JOIN users u ON u.id = k.user_id
		WHERE k.active = TRUE
	`

	rows, err := s.conn.QueryContext(ctx, query)
	if err != nil {
		s.logger.Error("api key query failed", slog.String("error", err.Error()))

		return nil, false
	}

	defer func() {
		_ = rows.Close()
	}()

	now := time.Now()

	for rows.Next() {
		var (
			keyID     string
			keyHash   string
			expiresAt sql.NullTime
			identity  Identity
		)

		err := rows.Scan(&keyID, &keyHash, &expiresAt, &identity.UserID, &identity.Name, &identity.Admin)
		if err != nil {
			continue
		}

		if !CompareAPIKeyHash(keyHash, key) {
			continue
		}

		if expiresAt.Valid && expiresAt.Time.Before(now) {
			s.logger.Warn("expired api key presented", slog.String("key_id", keyID))

			return nil, false
		}

		identity.KeyID = keyID

		return &identity, true
	}

	if err := rows.Err(); err != nil {
		s.logger.Error("api key scan failed", slog.String("error", err.Error()))
	}

	return nil, false
}

// HashAPIKey hashes a plaintext API key for storage.
func HashAPIKey(key string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}

	return string(hash), nil
}

// CompareAPIKeyHash reports whether a plaintext key matches a stored hash.
func CompareAPIKeyHash(hash, key string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(key)) == nil
}

// MaskKey returns a key identifier safe for logging, keeping only the last
// few characters visible.
func MaskKey(key string) string {
	if len(key) <= maskVisibleChars {
		return "****"
	}

	return "****" + key[len(key)-maskVisibleChars:]
}
