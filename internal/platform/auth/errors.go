package auth

import "errors"

var (
	// ErrInvalidToken is returned by Codec.Verify for any token that fails
	// verification: bad signature, malformed input, wrong algorithm or expiry.
	ErrInvalidToken = errors.New("invalid or expired token")

	// ErrInvalidRefreshToken is returned when a refresh token cannot be
	// resolved: unknown, revoked, or past its expiry.
	ErrInvalidRefreshToken = errors.New("invalid refresh token")

	// ErrRefreshTokenCollision is returned when refresh token generation
	// exhausts its retry budget on hash collisions.
	ErrRefreshTokenCollision = errors.New("refresh token hash collision")
)
