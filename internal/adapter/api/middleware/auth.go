package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/V4T54L/floor-sync/internal/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenQueryParam carries the token for clients that cannot set headers, such as browser WebSockets.
const TokenQueryParam = "token"

// Claims are the access token claims issued by the identity service.
type Claims struct {
	UserID    string `json:"user_id"`
	Role      string `json:"role"`
	CompanyID string `json:"company_id"`
	Email     string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Authenticator verifies HS256 access tokens and puts the caller on the request context.
type Authenticator struct {
	secret []byte
	logger *slog.Logger
}

func NewAuthenticator(secret string, logger *slog.Logger) *Authenticator {
	return &Authenticator{secret: []byte(secret), logger: logger}
}

// GenerateToken signs an access token for p.
func (a *Authenticator) GenerateToken(p domain.Principal, expiry time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID:    p.UserID.String(),
		Role:      string(p.Role),
		CompanyID: p.TenantID.String(),
		Email:     p.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

// ValidateToken parses tokenString and returns the principal it names.
func (a *Authenticator) ValidateToken(tokenString string) (domain.Principal, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return domain.Principal{}, err
	}
	if !token.Valid {
		return domain.Principal{}, jwt.ErrSignatureInvalid
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return domain.Principal{}, fmt.Errorf("invalid user_id claim: %w", err)
	}
	tenantID, err := uuid.Parse(claims.CompanyID)
	if err != nil {
		return domain.Principal{}, fmt.Errorf("invalid company_id claim: %w", err)
	}
	if claims.Role == "" {
		return domain.Principal{}, errors.New("missing role claim")
	}
	return domain.Principal{
		UserID:   userID,
		TenantID: tenantID,
		Role:     domain.Role(claims.Role),
		Email:    claims.Email,
	}, nil
}

// Middleware rejects requests without a valid token. The token is read from a
// Bearer Authorization header, or from the token query parameter.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString := bearerToken(r)
		if tokenString == "" {
			a.logger.Warn("access token missing from request", "remote_addr", r.RemoteAddr, "path", r.URL.Path)
			writeError(w, http.StatusUnauthorized, "unauthorized", "Could not validate credentials")
			return
		}

		p, err := a.ValidateToken(tokenString)
		if err != nil {
			a.logger.Warn("invalid access token", "remote_addr", r.RemoteAddr, "error", err)
			writeError(w, http.StatusUnauthorized, "unauthorized", "Could not validate credentials")
			return
		}

		next.ServeHTTP(w, r.WithContext(domain.WithPrincipal(r.Context(), p)))
	})
}

// RequireAdmin rejects callers without the administrator role. It must run after Authenticator.Middleware.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := domain.PrincipalFrom(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized", "Could not validate credentials")
			return
		}
		if !p.IsAdmin() {
			writeError(w, http.StatusForbidden, "forbidden", "The user does not have administrative privileges")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		scheme, token, ok := strings.Cut(header, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	return r.URL.Query().Get(TokenQueryParam)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"code": code, "error": message})
}
