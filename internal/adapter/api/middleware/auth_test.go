package middleware

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/V4T54L/floor-sync/internal/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func principalEcho(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := domain.PrincipalFrom(r.Context())
		if !ok {
			t.Error("principal missing from context")
		}
		w.Header().Set("X-User", p.UserID.String())
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestAuthenticator_Middleware(t *testing.T) {
	auth := NewAuthenticator("test-secret", testLogger())
	p := domain.Principal{UserID: uuid.New(), TenantID: uuid.New(), Role: domain.RoleStandard, Email: "a@example.com"}

	valid, err := auth.GenerateToken(p, time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	expired, _ := auth.GenerateToken(p, -time.Minute)
	foreign, _ := NewAuthenticator("other-secret", testLogger()).GenerateToken(p, time.Hour)
	noneAlg, _ := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{UserID: p.UserID.String(), Role: "admin", CompanyID: p.TenantID.String()}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	badClaims, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{UserID: "nope", Role: "admin", CompanyID: p.TenantID.String()}).
		SignedString([]byte("test-secret"))

	tests := []struct {
		name   string
		header string
		query  string
		status int
	}{
		{"bearer header", "Bearer " + valid, "", http.StatusNoContent},
		{"query parameter", "", valid, http.StatusNoContent},
		{"missing token", "", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + valid, "", http.StatusUnauthorized},
		{"expired", "Bearer " + expired, "", http.StatusUnauthorized},
		{"other secret", "Bearer " + foreign, "", http.StatusUnauthorized},
		{"unsigned", "Bearer " + noneAlg, "", http.StatusUnauthorized},
		{"malformed user id", "Bearer " + badClaims, "", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := "/api/v1/floorplans"
			if tt.query != "" {
				target += "?token=" + tt.query
			}
			req := httptest.NewRequest(http.MethodGet, target, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()

			auth.Middleware(principalEcho(t)).ServeHTTP(rr, req)

			if rr.Code != tt.status {
				t.Fatalf("status = %d, want %d", rr.Code, tt.status)
			}
			if tt.status == http.StatusNoContent && rr.Header().Get("X-User") != p.UserID.String() {
				t.Errorf("principal not propagated, got %q", rr.Header().Get("X-User"))
			}
			if tt.status == http.StatusUnauthorized {
				var body map[string]string
				if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
					t.Fatalf("decode error body: %v", err)
				}
				if body["code"] != "unauthorized" {
					t.Errorf("code = %q, want unauthorized", body["code"])
				}
			}
		})
	}
}

func TestAuthenticator_ValidateTokenRoundTrip(t *testing.T) {
	auth := NewAuthenticator("test-secret", testLogger())
	want := domain.Principal{UserID: uuid.New(), TenantID: uuid.New(), Role: domain.RoleAdmin, Email: "admin@example.com"}

	token, err := auth.GenerateToken(want, time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	got, err := auth.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if got != want {
		t.Errorf("principal = %+v, want %+v", got, want)
	}
}

func TestRequireAdmin(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	tests := []struct {
		name   string
		p      *domain.Principal
		status int
	}{
		{"admin", &domain.Principal{Role: domain.RoleAdmin}, http.StatusOK},
		{"standard", &domain.Principal{Role: domain.RoleStandard}, http.StatusForbidden},
		{"anonymous", nil, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/floorplans", nil)
			if tt.p != nil {
				req = req.WithContext(domain.WithPrincipal(req.Context(), *tt.p))
			}
			rr := httptest.NewRecorder()
			RequireAdmin(ok).ServeHTTP(rr, req)
			if rr.Code != tt.status {
				t.Errorf("status = %d, want %d", rr.Code, tt.status)
			}
		})
	}
}
