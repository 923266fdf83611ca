package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

type operatorKey struct{}

var errMissingToken = errors.New("token отсутствует")

// OperatorAuthMiddleware проверяет JWT оператора (HS256). Пустой секрет отключает проверку.
// EventSource не умеет передавать заголовки, поэтому токен принимается и из query access_token.
func OperatorAuthMiddleware(secret string) func(http.Handler) http.Handler {
	key := []byte(secret)
	return func(next http.Handler) http.Handler {
		if secret == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			subject, err := verifyToken(extractToken(r), key)
			if err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_ = json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized", "code": "unauthorized"})
				return
			}
			ctx := context.WithValue(r.Context(), operatorKey{}, subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OperatorFromContext возвращает subject токена оператора.
func OperatorFromContext(ctx context.Context) string {
	subject, _ := ctx.Value(operatorKey{}).(string)
	return subject
}

func extractToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return r.URL.Query().Get("access_token")
}

func verifyToken(raw string, key []byte) (string, error) {
	if raw == "" {
		return "", errMissingToken
	}
	token, err := jwt.Parse(raw, func(*jwt.Token) (any, error) {
		return key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return "", err
	}
	subject, err := token.Claims.GetSubject()
	if err != nil {
		return "", err
	}
	return subject, nil
}
