package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/qrbites/api/internal/auth"
	"github.com/qrbites/api/internal/middleware"
)

const testSecret = "test-secret-key"

// claimsEcho records the claims the middleware attached to the request.
func claimsEcho(t *testing.T, got **auth.Claims) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*got = middleware.ClaimsFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func doAuthRequest(t *testing.T, handler http.Handler, authHeader string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestAuthenticate_ValidToken(t *testing.T) {
	token, err := auth.GenerateToken(testSecret, "admin", "STAFF")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	var claims *auth.Claims
	handler := middleware.Authenticate(testSecret)(claimsEcho(t, &claims))

	rec := doAuthRequest(t, handler, "Bearer "+token)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rec.Code)
	}
	if claims == nil {
		t.Fatal("claims not attached to request context")
	}
	if claims.Username != "admin" || claims.Role != "STAFF" {
		t.Errorf("claims: got %+v, want admin/STAFF", claims)
	}
}

func TestAuthenticate_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"not bearer", "Basic dXNlcjpwYXNz"},
		{"no token part", "Bearer"},
		{"invalid token", "Bearer not.a.token"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			called := false
			handler := middleware.Authenticate(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
			}))

			rec := doAuthRequest(t, handler, tc.header)
			if rec.Code != http.StatusUnauthorized {
				t.Errorf("status: got %d, want 401", rec.Code)
			}
			if called {
				t.Error("next handler called on rejected request")
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	token, err := auth.GenerateToken(testSecret, "admin", "STAFF")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	t.Run("matching role passes", func(t *testing.T) {
		handler := middleware.Authenticate(testSecret)(middleware.RequireRole("STAFF")(next))
		rec := doAuthRequest(t, handler, "Bearer "+token)
		if rec.Code != http.StatusOK {
			t.Errorf("status: got %d, want 200", rec.Code)
		}
	})

	t.Run("wrong role forbidden", func(t *testing.T) {
		handler := middleware.Authenticate(testSecret)(middleware.RequireRole("OWNER")(next))
		rec := doAuthRequest(t, handler, "Bearer "+token)
		if rec.Code != http.StatusForbidden {
			t.Errorf("status: got %d, want 403", rec.Code)
		}
	})

	t.Run("no claims unauthorized", func(t *testing.T) {
		handler := middleware.RequireRole("STAFF")(next)
		rec := doAuthRequest(t, handler, "")
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status: got %d, want 401", rec.Code)
		}
	})
}
