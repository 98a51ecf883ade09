package session

import "errors"

// ErrInvalidCredentials covers every login failure: unknown username, wrong
// password, inactive account. Callers must not be able to tell which.
var ErrInvalidCredentials = errors.New("invalid credentials")

type LoginRequest struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" form:"refresh_token"`
}

// TokenPair is the login/refresh response body.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	RefreshToken string `json:"refresh_token"`
	Role         string `json:"role,omitempty"`
	Username     string `json:"username,omitempty"`
}
