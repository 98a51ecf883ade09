package auth

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
)

func testMiddleware(t *testing.T, debug bool) (echo.MiddlewareFunc, *Codec) {
	t.Helper()
	codec := newTestCodec(t)
	mw := Middleware(MiddlewareConfig{
		Codec:     codec,
		Allowlist: NewAllowlist([]string{"/health", "/auth/login", "/docs/*"}),
		Debug:     debug,
	})
	return mw, codec
}

func runMiddleware(mw echo.MiddlewareFunc, req *http.Request) (*httptest.ResponseRecorder, *Identity, error) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var captured *Identity
	handler := func(c echo.Context) error {
		captured = IdentityFromContext(c.Request().Context())
		return c.String(http.StatusOK, "ok")
	}

	err := mw(handler)(c)
	return rec, captured, err
}

func TestMiddleware_AllowlistedPathSkipsAuth(t *testing.T) {
	mw, _ := testMiddleware(t, false)

	req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	rec, identity, err := runMiddleware(mw, req)

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if identity != nil {
		t.Error("allow-listed request must not carry an identity")
	}
}

func TestMiddleware_WildcardAllowlist(t *testing.T) {
	mw, _ := testMiddleware(t, false)

	req := httptest.NewRequest(http.MethodGet, "/docs/openapi.json", nil)
	rec, _, err := runMiddleware(mw, req)

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestMiddleware_MissingHeader(t *testing.T) {
	mw, _ := testMiddleware(t, false)

	req := httptest.NewRequest(http.MethodGet, "/patients/123", nil)
	_, _, err := runMiddleware(mw, req)

	assertHTTPError(t, err, http.StatusUnauthorized)
}

func TestMiddleware_MalformedHeader(t *testing.T) {
	mw, codec := testMiddleware(t, false)
	token, _ := codec.Issue("user-1", nil)

	tests := []struct {
		name   string
		header string
	}{
		{"no scheme", token},
		{"wrong scheme", "Basic " + token},
		{"empty", " "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/patients/123", nil)
			req.Header.Set("Authorization", tt.header)
			_, _, err := runMiddleware(mw, req)
			assertHTTPError(t, err, http.StatusUnauthorized)
		})
	}
}

func TestMiddleware_InvalidSignature(t *testing.T) {
	mw, _ := testMiddleware(t, false)

	other, _ := NewCodec(CodecConfig{Secret: []byte("other"), Algorithm: "HS256"})
	forged, _ := other.Issue("user-1", nil)

	req := httptest.NewRequest(http.MethodGet, "/patients/123", nil)
	req.Header.Set("Authorization", "Bearer "+forged)
	_, _, err := runMiddleware(mw, req)

	assertHTTPError(t, err, http.StatusUnauthorized)
}

func TestMiddleware_ExpiredToken(t *testing.T) {
	mw, codec := testMiddleware(t, false)
	expired, _ := codec.IssueFor("user-1", -time.Minute, nil)

	req := httptest.NewRequest(http.MethodGet, "/patients/123", nil)
	req.Header.Set("Authorization", "Bearer "+expired)
	_, _, err := runMiddleware(mw, req)

	assertHTTPError(t, err, http.StatusUnauthorized)
}

func TestMiddleware_AttachesIdentity(t *testing.T) {
	mw, codec := testMiddleware(t, false)
	token, _ := codec.Issue("user-7", map[string]interface{}{
		"role":         RolePatient,
		"documento_id": "30111222",
	})

	req := httptest.NewRequest(http.MethodGet, "/patients/123", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec, identity, err := runMiddleware(mw, req)

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if identity == nil {
		t.Fatal("expected identity on context")
	}
	if identity.UserID != "user-7" {
		t.Errorf("expected user-7, got %s", identity.UserID)
	}
	if identity.Role != RolePatient {
		t.Errorf("expected patient role, got %s", identity.Role)
	}
	if identity.DocumentID() != "30111222" {
		t.Errorf("expected documento_id 30111222, got %s", identity.DocumentID())
	}
}

func TestMiddleware_RoleDefaultsToUser(t *testing.T) {
	mw, codec := testMiddleware(t, false)
	token, _ := codec.Issue("user-8", nil)

	req := httptest.NewRequest(http.MethodGet, "/patients/123", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	_, identity, err := runMiddleware(mw, req)

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if identity == nil || identity.Role != RoleUser {
		t.Errorf("expected default role %q, got %+v", RoleUser, identity)
	}
}

func TestMiddleware_DebugExposesDetail(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/patients/123", nil)
	req.Header.Set("Authorization", "Bearer garbage")

	mwDebug, _ := testMiddleware(t, true)
	_, _, err := runMiddleware(mwDebug, req)
	he := asHTTPError(t, err)
	if msg, _ := he.Message.(string); !strings.Contains(msg, "token") || msg == "invalid or expired token" {
		t.Errorf("debug mode should append parser detail, got %q", msg)
	}

	mwProd, _ := testMiddleware(t, false)
	_, _, err = runMiddleware(mwProd, req)
	he = asHTTPError(t, err)
	if msg, _ := he.Message.(string); msg != "invalid or expired token" {
		t.Errorf("production must return the generic message, got %q", msg)
	}
}

func assertHTTPError(t *testing.T, err error, code int) {
	t.Helper()
	he := asHTTPError(t, err)
	if he.Code != code {
		t.Errorf("expected status %d, got %d", code, he.Code)
	}
}

func asHTTPError(t *testing.T, err error) *echo.HTTPError {
	t.Helper()
	if err == nil {
		t.Fatal("expected an error")
	}
	he, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected *echo.HTTPError, got %T", err)
	}
	return he
}
