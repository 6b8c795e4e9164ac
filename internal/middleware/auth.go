package middleware

import (
	"context"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/viper"
	"golang.org/x/crypto/argon2"
)

type contextKey string

// LedgerIDKey carries the authenticated ledger id through the request
// context. Handlers never accept a ledger id from the request body.
const LedgerIDKey contextKey = "ledgerID"

// LedgerAuth authenticates a request and pins its ledger context. Two
// schemes: "Bearer <jwt>" with a ledger_id claim, issued by the identity
// service, or "ApiKey <ledgerID>:<secret>" for server-to-server callers,
// verified against the configured argon2id digest.
func LedgerAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Authorization header required", http.StatusUnauthorized)
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 {
			http.Error(w, "Invalid authorization header format", http.StatusUnauthorized)
			return
		}

		var ledgerID string
		var err error
		switch parts[0] {
		case "Bearer":
			ledgerID, err = validateToken(parts[1])
		case "ApiKey":
			ledgerID, err = validateAPIKey(parts[1])
		default:
			http.Error(w, "Unsupported authorization scheme", http.StatusUnauthorized)
			return
		}
		if err != nil || ledgerID == "" {
			http.Error(w, "Invalid credentials", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), LedgerIDKey, ledgerID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// LedgerID extracts the authenticated ledger id from a request context.
func LedgerID(ctx context.Context) string {
	id, _ := ctx.Value(LedgerIDKey).(string)
	return id
}

func validateToken(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(viper.GetString("jwt.secret_key")), nil
	})
	if err != nil || !token.Valid {
		return "", fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("unexpected claims type")
	}
	ledgerID, _ := claims["ledger_id"].(string)
	if ledgerID == "" {
		return "", fmt.Errorf("token missing ledger_id claim")
	}
	return ledgerID, nil
}

// validateAPIKey checks "<ledgerID>:<secret>" against api.key_digest and
// api.key_salt from config. The digest is argon2id so a leaked config dump
// does not leak the key itself.
func validateAPIKey(key string) (string, error) {
	ledgerID, secret, ok := strings.Cut(key, ":")
	if !ok {
		return "", fmt.Errorf("malformed api key")
	}

	digest, err := base64.StdEncoding.DecodeString(viper.GetString("api.key_digest"))
	if err != nil || len(digest) == 0 {
		return "", fmt.Errorf("api key auth not configured")
	}
	salt := []byte(viper.GetString("api.key_salt"))

	computed := argon2.IDKey([]byte(secret), salt, 1, 64*1024, 4, uint32(len(digest)))
	if subtle.ConstantTimeCompare(computed, digest) != 1 {
		return "", fmt.Errorf("api key mismatch")
	}
	return ledgerID, nil
}

// SecurityHeaders sets the standard hardening headers on every response.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "no-referrer")
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}
