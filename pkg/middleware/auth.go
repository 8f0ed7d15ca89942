package middleware

import (
	"net/http"
	"strings"

	"cinema-core/pkg/utils"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// Auth resolves the caller identity from an optional HS256 bearer token.
// Requests without an Authorization header continue as the anonymous
// caller; a header that does not verify is rejected with 401.
func Auth(secret string, logger *zap.Logger) func(http.Handler) http.Handler {
	key := []byte(secret)
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				next.ServeHTTP(w, r)
				return
			}

			raw, found := strings.CutPrefix(authHeader, "Bearer ")
			if !found || raw == "" {
				utils.ResponseUnauthorized(w, "Invalid token format. Use: Bearer <token>")
				return
			}

			claims := jwt.MapClaims{}
			if _, err := parser.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
				return key, nil
			}); err != nil {
				logger.Warn("Rejected bearer token",
					zap.Error(err),
					zap.String("path", r.URL.Path),
				)
				utils.ResponseUnauthorized(w, "Invalid or expired token")
				return
			}

			login, err := claims.GetSubject()
			if err != nil || login == "" {
				utils.ResponseUnauthorized(w, "Token has no subject")
				return
			}
			role, _ := claims["role"].(string)

			ctx := utils.SetCallerContext(r.Context(), login, role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
