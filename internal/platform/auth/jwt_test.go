package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
)

var testSecret = []byte("test-secret")

func authedRequest(t *testing.T, secret []byte, subject, role string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	token, err := IssueToken(secret, subject, role, time.Hour)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestJWTMiddlewareValidToken(t *testing.T) {
	c, _ := authedRequest(t, testSecret, "nurse7", "nurse")

	var gotSubject, gotRole string
	handler := JWTMiddleware(testSecret)(func(c echo.Context) error {
		gotSubject = UserIDFromContext(c.Request().Context())
		gotRole = RoleFromContext(c.Request().Context())
		return c.NoContent(http.StatusOK)
	})
	if err := handler(c); err != nil {
		t.Fatalf("handler returned %v", err)
	}
	if gotSubject != "nurse7" || gotRole != "nurse" {
		t.Errorf("context carries %q/%q, want nurse7/nurse", gotSubject, gotRole)
	}
}

func TestJWTMiddlewareRejections(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"not bearer", "Basic abc"},
		{"garbage token", "Bearer not.a.jwt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			c := e.NewContext(req, httptest.NewRecorder())

			handler := JWTMiddleware(testSecret)(func(c echo.Context) error {
				return c.NoContent(http.StatusOK)
			})
			err := handler(c)
			he, ok := err.(*echo.HTTPError)
			if !ok || he.Code != http.StatusUnauthorized {
				t.Errorf("error = %v, want 401", err)
			}
		})
	}
}

func TestJWTMiddlewareWrongSecret(t *testing.T) {
	c, _ := authedRequest(t, []byte("other-secret"), "nurse7", "nurse")
	handler := JWTMiddleware(testSecret)(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	err := handler(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusUnauthorized {
		t.Errorf("error = %v, want 401", err)
	}
}

func TestJWTMiddlewareExpiredToken(t *testing.T) {
	token, err := IssueToken(testSecret, "nurse7", "nurse", -time.Minute)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	c := e.NewContext(req, httptest.NewRecorder())

	handler := JWTMiddleware(testSecret)(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	err = handler(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusUnauthorized {
		t.Errorf("error = %v, want 401", err)
	}
}

func TestRequireRole(t *testing.T) {
	tests := []struct {
		name     string
		role     string
		required []string
		allowed  bool
	}{
		{"exact match", "nurse", []string{"nurse", "physician"}, true},
		{"admin passes everything", "admin", []string{"physician"}, true},
		{"wrong role", "nurse", []string{"physician"}, false},
		{"no role", "", []string{"nurse"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := authedRequest(t, testSecret, "someone", tt.role)

			handler := JWTMiddleware(testSecret)(RequireRole(tt.required...)(func(c echo.Context) error {
				return c.NoContent(http.StatusOK)
			}))
			err := handler(c)
			if tt.allowed {
				if err != nil {
					t.Errorf("handler returned %v, want nil", err)
				}
				return
			}
			he, ok := err.(*echo.HTTPError)
			if !ok || he.Code != http.StatusForbidden {
				t.Errorf("error = %v, want 403", err)
			}
		})
	}
}
