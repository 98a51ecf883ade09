package session

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hce/hce/internal/domain/account"
	"github.com/hce/hce/internal/platform/auth"
)

// -- Mock repositories --

type mockAccountRepo struct {
	byUsername map[string]*account.Account
	byID       map[uuid.UUID]*account.Account
	err        error
}

func newMockAccountRepo(accounts ...*account.Account) *mockAccountRepo {
	m := &mockAccountRepo{
		byUsername: make(map[string]*account.Account),
		byID:       make(map[uuid.UUID]*account.Account),
	}
	for _, a := range accounts {
		m.byUsername[a.Username] = a
		m.byID[a.ID] = a
	}
	return m
}

func (m *mockAccountRepo) ByUsername(_ context.Context, username string) (*account.Account, error) {
	if m.err != nil {
		return nil, m.err
	}
	a, ok := m.byUsername[username]
	if !ok {
		return nil, account.ErrNotFound
	}
	return a, nil
}

func (m *mockAccountRepo) ByID(_ context.Context, id uuid.UUID) (*account.Account, error) {
	if m.err != nil {
		return nil, m.err
	}
	a, ok := m.byID[id]
	if !ok {
		return nil, account.ErrNotFound
	}
	return a, nil
}

func (m *mockAccountRepo) Create(_ context.Context, a *account.Account) error {
	m.byUsername[a.Username] = a
	m.byID[a.ID] = a
	return nil
}

type mockRefreshRepo struct {
	tokens map[string]*auth.RefreshToken
}

func newMockRefreshRepo() *mockRefreshRepo {
	return &mockRefreshRepo{tokens: make(map[string]*auth.RefreshToken)}
}

func (m *mockRefreshRepo) Save(_ context.Context, t *auth.RefreshToken) error {
	if _, ok := m.tokens[t.TokenHash]; ok {
		return auth.ErrRefreshTokenExists
	}
	cp := *t
	m.tokens[t.TokenHash] = &cp
	return nil
}

func (m *mockRefreshRepo) ByHash(_ context.Context, hash string) (*auth.RefreshToken, error) {
	t, ok := m.tokens[hash]
	if !ok {
		return nil, auth.ErrRefreshTokenNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *mockRefreshRepo) RevokeIfActive(_ context.Context, hash string) (bool, error) {
	t, ok := m.tokens[hash]
	if !ok {
		return false, auth.ErrRefreshTokenNotFound
	}
	if t.Revoked {
		return false, nil
	}
	t.Revoked = true
	return true, nil
}

func (m *mockRefreshRepo) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	return 0, nil
}

// -- Fixtures --

func strPtr(s string) *string { return &s }

func testService(t *testing.T, accounts ...*account.Account) (*Service, *auth.Codec) {
	t.Helper()
	codec, err := auth.NewCodec(auth.CodecConfig{
		Secret:    []byte("test-secret"),
		Algorithm: "HS256",
		AccessTTL: 30 * time.Minute,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	svc := NewService(
		newMockAccountRepo(accounts...),
		auth.NewHasher(10000),
		codec,
		auth.NewRefreshManager(newMockRefreshRepo(), 24*time.Hour),
		zerolog.New(io.Discard),
	)
	return svc, codec
}

func seededAdmin() *account.Account {
	// Mirrors the legacy seed data: password hash stored as the historic
	// constant, accepted plaintext "secret".
	return &account.Account{
		ID:             uuid.New(),
		Username:       "admin1",
		Email:          "admin1@example.org",
		HashedPassword: auth.LegacySeedHash,
		Role:           auth.RoleAdmin,
		IsActive:       true,
	}
}

func TestService_Login_SeededLegacyAdmin(t *testing.T) {
	admin := seededAdmin()
	svc, codec := testService(t, admin)

	pair, err := svc.Login(context.Background(), "admin1", "secret")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if pair.TokenType != "bearer" {
		t.Errorf("expected token_type bearer, got %s", pair.TokenType)
	}
	if pair.Role != auth.RoleAdmin {
		t.Errorf("expected role admin, got %s", pair.Role)
	}
	if pair.Username != "admin1" {
		t.Errorf("expected username admin1, got %s", pair.Username)
	}
	if pair.RefreshToken == "" {
		t.Error("expected a refresh token")
	}

	claims, err := codec.Verify(pair.AccessToken)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sub, _ := claims["sub"].(string); sub != admin.ID.String() {
		t.Errorf("expected sub %s, got %v", admin.ID, claims["sub"])
	}
	if role, _ := claims["role"].(string); role != auth.RoleAdmin {
		t.Errorf("expected role claim admin, got %v", claims["role"])
	}
}

func TestService_Login_PatientCarriesDocumentoID(t *testing.T) {
	patient := &account.Account{
		ID:             uuid.New(),
		Username:       "paciente1",
		HashedPassword: auth.LegacySeedHash,
		Role:           auth.RolePatient,
		IsActive:       true,
		DocumentoID:    strPtr("30111222"),
	}
	svc, codec := testService(t, patient)

	pair, err := svc.Login(context.Background(), "paciente1", "secret")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	claims, _ := codec.Verify(pair.AccessToken)
	if doc, _ := claims["documento_id"].(string); doc != "30111222" {
		t.Errorf("expected documento_id claim, got %v", claims["documento_id"])
	}
}

func TestService_Login_Failures(t *testing.T) {
	hasher := auth.NewHasher(10000)
	hashed, _ := hasher.Hash("right-password")

	active := &account.Account{
		ID: uuid.New(), Username: "doc1", HashedPassword: hashed,
		Role: auth.RolePractitioner, IsActive: true,
	}
	inactive := &account.Account{
		ID: uuid.New(), Username: "gone", HashedPassword: hashed,
		Role: auth.RolePractitioner, IsActive: false,
	}
	svc, _ := testService(t, active, inactive)

	tests := []struct {
		name     string
		username string
		password string
	}{
		{"unknown username", "nobody", "right-password"},
		{"wrong password", "doc1", "wrong-password"},
		{"inactive account", "gone", "right-password"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Login(context.Background(), tt.username, tt.password)
			if !errors.Is(err, ErrInvalidCredentials) {
				t.Errorf("expected ErrInvalidCredentials, got %v", err)
			}
		})
	}
}

func TestService_RefreshRotation(t *testing.T) {
	admin := seededAdmin()
	svc, _ := testService(t, admin)
	ctx := context.Background()

	pair, err := svc.Login(ctx, "admin1", "secret")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	next, err := svc.Refresh(ctx, pair.RefreshToken)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if next.RefreshToken == pair.RefreshToken {
		t.Error("expected a rotated refresh token")
	}
	if next.AccessToken == "" {
		t.Error("expected a new access token")
	}

	// The old refresh token is revoked; replaying it fails.
	if _, err := svc.Refresh(ctx, pair.RefreshToken); !errors.Is(err, auth.ErrInvalidRefreshToken) {
		t.Errorf("expected ErrInvalidRefreshToken on replay, got %v", err)
	}

	// The rotated token still works.
	if _, err := svc.Refresh(ctx, next.RefreshToken); err != nil {
		t.Errorf("rotated token should refresh, got %v", err)
	}
}

func TestService_Refresh_Invalid(t *testing.T) {
	svc, _ := testService(t, seededAdmin())

	_, err := svc.Refresh(context.Background(), "never-issued")
	if !errors.Is(err, auth.ErrInvalidRefreshToken) {
		t.Errorf("expected ErrInvalidRefreshToken, got %v", err)
	}
}

func TestService_Logout(t *testing.T) {
	svc, _ := testService(t, seededAdmin())
	ctx := context.Background()

	pair, _ := svc.Login(ctx, "admin1", "secret")

	found, err := svc.Logout(ctx, pair.RefreshToken)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !found {
		t.Error("expected logout to find the token")
	}

	// Revoked token can no longer refresh.
	if _, err := svc.Refresh(ctx, pair.RefreshToken); !errors.Is(err, auth.ErrInvalidRefreshToken) {
		t.Errorf("expected ErrInvalidRefreshToken after logout, got %v", err)
	}

	// Logging out again reports not found.
	found, err = svc.Logout(ctx, pair.RefreshToken)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found {
		t.Error("expected second logout to report not found")
	}
}
