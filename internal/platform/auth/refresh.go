package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrRefreshTokenExists is returned by repositories on a token hash
// collision; the manager regenerates and retries.
var ErrRefreshTokenExists = errors.New("refresh token already exists")

// ErrRefreshTokenNotFound is returned by repositories when no record matches
// the given hash.
var ErrRefreshTokenNotFound = errors.New("refresh token not found")

// RefreshToken is the persisted form of a refresh token. Only the SHA-256
// hash of the raw value is ever stored; records are flipped to revoked
// rather than deleted so the rotation history stays auditable.
type RefreshToken struct {
	ID        uuid.UUID
	TokenHash string
	UserID    uuid.UUID
	Revoked   bool
	CreatedAt time.Time
	ExpiresAt time.Time
}

// RefreshTokenRepository persists refresh token records.
type RefreshTokenRepository interface {
	Save(ctx context.Context, token *RefreshToken) error
	ByHash(ctx context.Context, hash string) (*RefreshToken, error)
	// RevokeIfActive flips revoked=true only when the record is still
	// active. Returns (true, nil) when revoked now, (false, nil) when the
	// record exists but was already revoked, (false, ErrRefreshTokenNotFound)
	// when no record matches.
	RevokeIfActive(ctx context.Context, hash string) (bool, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

const (
	refreshTokenBytes  = 48
	refreshMaxAttempts = 5
)

// HashRefreshToken returns the hex SHA-256 digest under which a raw refresh
// token is stored and looked up.
func HashRefreshToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// RefreshManager issues, resolves, revokes and rotates refresh tokens over a
// repository.
type RefreshManager struct {
	repo RefreshTokenRepository
	ttl  time.Duration
}

func NewRefreshManager(repo RefreshTokenRepository, ttl time.Duration) *RefreshManager {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &RefreshManager{repo: repo, ttl: ttl}
}

// Issue creates and persists a new refresh token for userID and returns the
// raw value, the only moment it is visible in plaintext.
func (m *RefreshManager) Issue(ctx context.Context, userID uuid.UUID) (string, error) {
	for attempt := 0; attempt < refreshMaxAttempts; attempt++ {
		b := make([]byte, refreshTokenBytes)
		if _, err := rand.Read(b); err != nil {
			return "", fmt.Errorf("generate refresh token: %w", err)
		}
		raw := base64.RawURLEncoding.EncodeToString(b)

		now := time.Now().UTC()
		token := &RefreshToken{
			ID:        uuid.New(),
			TokenHash: HashRefreshToken(raw),
			UserID:    userID,
			Revoked:   false,
			CreatedAt: now,
			ExpiresAt: now.Add(m.ttl),
		}

		if err := m.repo.Save(ctx, token); err != nil {
			if errors.Is(err, ErrRefreshTokenExists) {
				continue
			}
			return "", fmt.Errorf("save refresh token: %w", err)
		}
		return raw, nil
	}
	return "", ErrRefreshTokenCollision
}

// Resolve looks up a raw refresh token. Unknown, revoked and expired tokens
// all resolve to ErrInvalidRefreshToken; only repository faults surface as
// distinct errors. Expiry is compared in UTC against the timestamptz column.
func (m *RefreshManager) Resolve(ctx context.Context, raw string) (*RefreshToken, error) {
	token, err := m.repo.ByHash(ctx, HashRefreshToken(raw))
	if err != nil {
		if errors.Is(err, ErrRefreshTokenNotFound) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, fmt.Errorf("resolve refresh token: %w", err)
	}
	if token.Revoked {
		return nil, ErrInvalidRefreshToken
	}
	if time.Now().UTC().After(token.ExpiresAt) {
		return nil, ErrInvalidRefreshToken
	}
	return token, nil
}

// Revoke marks the matching record revoked and reports whether one was found
// still active.
func (m *RefreshManager) Revoke(ctx context.Context, raw string) (bool, error) {
	revoked, err := m.repo.RevokeIfActive(ctx, HashRefreshToken(raw))
	if err != nil {
		if errors.Is(err, ErrRefreshTokenNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("revoke refresh token: %w", err)
	}
	return revoked, nil
}

// Rotate exchanges a valid refresh token for a fresh one. The old token is
// revoked before the new one is issued; the compare-and-swap revocation
// means two concurrent rotations of the same token cannot both succeed.
// The loser observes revoked=true and fails with ErrInvalidRefreshToken.
func (m *RefreshManager) Rotate(ctx context.Context, raw string) (string, uuid.UUID, error) {
	token, err := m.Resolve(ctx, raw)
	if err != nil {
		return "", uuid.Nil, err
	}

	revoked, err := m.repo.RevokeIfActive(ctx, token.TokenHash)
	if err != nil {
		if errors.Is(err, ErrRefreshTokenNotFound) {
			return "", uuid.Nil, ErrInvalidRefreshToken
		}
		return "", uuid.Nil, fmt.Errorf("rotate refresh token: %w", err)
	}
	if !revoked {
		return "", uuid.Nil, ErrInvalidRefreshToken
	}

	newRaw, err := m.Issue(ctx, token.UserID)
	if err != nil {
		return "", uuid.Nil, err
	}
	return newRaw, token.UserID, nil
}
