package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"

	"github.com/consultorio/consultorio/internal/domain"
	"github.com/consultorio/consultorio/internal/platform/db"
)

const (
	bcryptCost     = 12
	minTokenLength = 8
)

var ErrInvalidCredentials = errors.New("invalid access token")

// TokenStore keeps one bcrypt hash per token type.
type TokenStore interface {
	Hash(ctx context.Context, tokenType string) (string, error)
	SetHash(ctx context.Context, tokenType, hash string) error
}

type tokenStorePG struct{ pool *pgxpool.Pool }

func NewTokenStorePG(pool *pgxpool.Pool) TokenStore { return &tokenStorePG{pool: pool} }

func (r *tokenStorePG) Hash(ctx context.Context, tokenType string) (string, error) {
	var hash string
	err := db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT token_hash FROM access_token WHERE token_type = $1`, tokenType).Scan(&hash)
	return hash, db.Translate(err)
}

func (r *tokenStorePG) SetHash(ctx context.Context, tokenType, hash string) error {
	_, err := db.Conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO access_token (token_type, token_hash) VALUES ($1, $2)
		ON CONFLICT (token_type) DO UPDATE SET token_hash = EXCLUDED.token_hash, updated_at = NOW()`,
		tokenType, hash)
	return db.Translate(err)
}

// Authenticator checks submitted access tokens against the stored hashes.
type Authenticator struct {
	store TokenStore
	cost  int
}

func NewAuthenticator(store TokenStore) *Authenticator {
	return &Authenticator{store: store, cost: bcryptCost}
}

// fingerprint identifies one stored hash without exposing it. bcrypt salts
// every hash, so each rotation yields a new fingerprint.
func fingerprint(hash string) string {
	sum := sha256.Sum256([]byte(hash))
	return hex.EncodeToString(sum[:8])
}

// Verify returns ErrInvalidCredentials for an unknown type, a type with no
// token configured, or a wrong token. On success it returns the fingerprint
// to embed in the session.
func (a *Authenticator) Verify(ctx context.Context, tokenType, token string) (string, error) {
	if !ValidTokenType(tokenType) || token == "" {
		return "", ErrInvalidCredentials
	}
	hash, err := a.store.Hash(ctx, tokenType)
	if errors.Is(err, db.ErrNotFound) {
		return "", ErrInvalidCredentials
	}
	if err != nil {
		return "", fmt.Errorf("load %s token: %w", tokenType, err)
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(token)) != nil {
		return "", ErrInvalidCredentials
	}
	return fingerprint(hash), nil
}

// Fingerprint returns the fingerprint of the current token of tokenType,
// or db.ErrNotFound when none is configured.
func (a *Authenticator) Fingerprint(ctx context.Context, tokenType string) (string, error) {
	hash, err := a.store.Hash(ctx, tokenType)
	if err != nil {
		return "", err
	}
	return fingerprint(hash), nil
}

// SetToken replaces the access token of tokenType.
func (a *Authenticator) SetToken(ctx context.Context, tokenType, token string) error {
	if !ValidTokenType(tokenType) {
		return domain.Invalid("Token type must be admin or reception.")
	}
	if len(token) < minTokenLength {
		return domain.Invalid("The access token must have at least %d characters.", minTokenLength)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(token), a.cost)
	if err != nil {
		return fmt.Errorf("hash token: %w", err)
	}
	return a.store.SetHash(ctx, tokenType, string(hash))
}
