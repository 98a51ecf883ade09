package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/hce/hce/internal/domain/account"
	"github.com/hce/hce/internal/platform/auth"
)

// Service implements the login, refresh and logout flows over the account
// repository, the password hasher, the token codec and the refresh manager.
type Service struct {
	accounts account.Repository
	hasher   *auth.Hasher
	codec    *auth.Codec
	refresh  *auth.RefreshManager
	logger   zerolog.Logger
}

func NewService(accounts account.Repository, hasher *auth.Hasher, codec *auth.Codec, refresh *auth.RefreshManager, logger zerolog.Logger) *Service {
	return &Service{
		accounts: accounts,
		hasher:   hasher,
		codec:    codec,
		refresh:  refresh,
		logger:   logger,
	}
}

// Login verifies the credentials and issues an access/refresh token pair.
// Unknown username, bad password and inactive account all collapse into
// ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, username, password string) (*TokenPair, error) {
	acc, err := s.accounts.ByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup account: %w", err)
	}

	if !acc.IsActive || !s.hasher.Verify(password, acc.HashedPassword) {
		return nil, ErrInvalidCredentials
	}

	accessToken, err := s.codec.Issue(acc.ID.String(), s.identityClaims(acc))
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}

	refreshToken, err := s.refresh.Issue(ctx, acc.ID)
	if err != nil {
		return nil, fmt.Errorf("issue refresh token: %w", err)
	}

	s.logger.Info().
		Str("user_id", acc.ID.String()).
		Str("role", acc.Role).
		Msg("login")

	return &TokenPair{
		AccessToken:  accessToken,
		TokenType:    "bearer",
		RefreshToken: refreshToken,
		Role:         acc.Role,
		Username:     acc.Username,
	}, nil
}

// Refresh rotates the refresh token and issues a new access token. The old
// refresh token is revoked before the new one exists; a replayed token fails
// with auth.ErrInvalidRefreshToken.
func (s *Service) Refresh(ctx context.Context, rawToken string) (*TokenPair, error) {
	newRaw, userID, err := s.refresh.Rotate(ctx, rawToken)
	if err != nil {
		return nil, err
	}

	acc, err := s.accounts.ByID(ctx, userID)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			// Account deleted since the token was issued; the rotation
			// already revoked the old token, so nothing usable remains.
			return nil, auth.ErrInvalidRefreshToken
		}
		return nil, fmt.Errorf("lookup account: %w", err)
	}

	accessToken, err := s.codec.Issue(acc.ID.String(), s.identityClaims(acc))
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}

	return &TokenPair{
		AccessToken:  accessToken,
		TokenType:    "bearer",
		RefreshToken: newRaw,
		Role:         acc.Role,
		Username:     acc.Username,
	}, nil
}

// Logout revokes the refresh token. Returns false when the token was unknown
// or already revoked.
func (s *Service) Logout(ctx context.Context, rawToken string) (bool, error) {
	return s.refresh.Revoke(ctx, rawToken)
}

// identityClaims builds the extra claims carried by access tokens: the role,
// plus documento_id for patient accounts so patient-scoped routes can match
// the caller to a record without a lookup.
func (s *Service) identityClaims(acc *account.Account) map[string]interface{} {
	claims := map[string]interface{}{"role": acc.Role}
	if doc := acc.PatientRef(); doc != "" {
		claims["documento_id"] = doc
	}
	return claims
}
