package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/WheelyWonka/toaste/internal/config"
	"github.com/golang-jwt/jwt/v4"
)

// AdminRole is the role claim required on admin routes
const AdminRole = "admin"

type adminSubjectKey struct{}

// AdminAuth validates an HS256 bearer token carrying role=admin.
// A missing token is 401, an invalid or non-admin token 403.
func AdminAuth(cfg config.AuthConfig) func(next http.Handler) http.Handler {
	secret := []byte(cfg.AdminJWTSecret)

	keyFunc := func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return secret, nil
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r)
			if !ok {
				http.Error(w, "Unauthorized: bearer token required", http.StatusUnauthorized)
				return
			}
			if len(secret) == 0 {
				http.Error(w, "Forbidden: admin access disabled", http.StatusForbidden)
				return
			}

			token, err := jwt.Parse(raw, keyFunc)
			if err != nil || !token.Valid {
				http.Error(w, "Forbidden: invalid token", http.StatusForbidden)
				return
			}

			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok || claims["role"] != AdminRole {
				http.Error(w, "Forbidden: admin role required", http.StatusForbidden)
				return
			}

			sub, _ := claims["sub"].(string)
			ctx := context.WithValue(r.Context(), adminSubjectKey{}, sub)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AdminSubject returns the subject of the admin token that authorized the
// request, if any
func AdminSubject(ctx context.Context) string {
	sub, _ := ctx.Value(adminSubjectKey{}).(string)
	return sub
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
