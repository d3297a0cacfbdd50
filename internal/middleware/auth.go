package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const SubjectKey contextKey = "subject"

// AdminSubject is the only principal the API knows about.
const AdminSubject = "admin"

var ErrTokenExpired = errors.New("token has expired")

type JWTAuth struct {
	Secret []byte
	TTL    time.Duration
}

func NewJWTAuth(secret string, ttl time.Duration) *JWTAuth {
	return &JWTAuth{Secret: []byte(secret), TTL: ttl}
}

// GenerateAccessToken signs an HS256 token for subject.
func (j *JWTAuth) GenerateAccessToken(subject string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(j.TTL)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(j.Secret)
}

// ParseToken verifies tokenStr and returns its subject.
func (j *JWTAuth) ParseToken(tokenStr string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return j.Secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrTokenExpired
		}
		return "", err
	}
	if !token.Valid || claims.Subject == "" {
		return "", jwt.ErrTokenInvalidClaims
	}
	return claims.Subject, nil
}

// Middleware validates the bearer token and attaches its subject to the context.
func (j *JWTAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Missing authorization header", r)
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid authorization format", r)
			return
		}

		subject, err := j.ParseToken(parts[1])
		if err != nil {
			if errors.Is(err, ErrTokenExpired) {
				writeError(w, http.StatusUnauthorized, "TOKEN_EXPIRED", "Token has expired", r)
			} else {
				writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid token", r)
			}
			return
		}

		ctx := context.WithValue(r.Context(), SubjectKey, subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetSubject extracts the authenticated subject from request context
func GetSubject(ctx context.Context) string {
	sub, _ := ctx.Value(SubjectKey).(string)
	return sub
}

func writeError(w http.ResponseWriter, status int, code, message string, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error": map[string]interface{}{
			"code":       code,
			"message":    message,
			"request_id": GetRequestID(r.Context()),
		},
	})
}
