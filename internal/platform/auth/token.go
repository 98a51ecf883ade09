package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// CodecConfig carries the signing parameters for access tokens. It is
// immutable after construction; tests substitute their own values instead of
// mutating process-wide state.
type CodecConfig struct {
	Secret    []byte
	Algorithm string
	AccessTTL time.Duration
}

// Codec issues and verifies signed access tokens. Pure: keyed only by the
// configured secret and algorithm, no storage access.
type Codec struct {
	secret []byte
	method jwt.SigningMethod
	ttl    time.Duration
}

// reserved claims are system-controlled and can never be overridden by
// caller-supplied extra claims.
var reservedClaims = map[string]bool{"sub": true, "iat": true, "exp": true}

func NewCodec(cfg CodecConfig) (*Codec, error) {
	method := jwt.GetSigningMethod(cfg.Algorithm)
	if method == nil {
		return nil, fmt.Errorf("unsupported signing algorithm %q", cfg.Algorithm)
	}
	if _, ok := method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("signing algorithm %q is not symmetric", cfg.Algorithm)
	}
	if len(cfg.Secret) == 0 {
		return nil, fmt.Errorf("signing secret must not be empty")
	}
	ttl := cfg.AccessTTL
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &Codec{secret: cfg.Secret, method: method, ttl: ttl}, nil
}

// Issue signs an access token for subject with the default TTL. Extra claims
// are merged into the claim set, except sub/iat/exp which are silently
// dropped: reserved-claim protection, not an error condition.
func (c *Codec) Issue(subject string, extra map[string]interface{}) (string, error) {
	return c.IssueFor(subject, c.ttl, extra)
}

// IssueFor signs an access token with an explicit TTL.
func (c *Codec) IssueFor(subject string, ttl time.Duration, extra map[string]interface{}) (string, error) {
	now := time.Now().UTC()
	claims := jwt.MapClaims{
		"sub": subject,
		"iat": jwt.NewNumericDate(now),
		"exp": jwt.NewNumericDate(now.Add(ttl)),
	}
	for k, v := range extra {
		if reservedClaims[k] {
			continue
		}
		claims[k] = v
	}

	signed, err := jwt.NewWithClaims(c.method, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a token string, returning its claim set.
// Every failure mode (malformed input, bad signature, wrong algorithm,
// expiry) collapses into ErrInvalidToken wrapping the parser detail.
func (c *Codec) Verify(tokenStr string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims,
		func(t *jwt.Token) (interface{}, error) { return c.secret, nil },
		jwt.WithValidMethods([]string{c.method.Alg()}),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
