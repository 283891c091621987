package walletd

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt"
	"github.com/twitchtv/twirp"
	"github.com/yiplee/go-cache"
)

// APIUser is the authenticated caller of the local HTTP surface.
type APIUser struct {
	ID    string
	Token string
}

func extractBearerToken(r *http.Request) string {
	token := r.Header.Get("Authorization")
	return strings.TrimPrefix(token, "Bearer ")
}

// handleAuth verifies bearer tokens: HMAC signature against the configured
// secret, then issuer match. An empty issuer disables auth; the daemon is
// then a purely local surface.
func handleAuth(issuer string, secret []byte) func(next http.Handler) http.Handler {
	users := cache.New[string, *APIUser]()

	keyFunc := func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}

		return secret, nil
	}

	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			if issuer == "" {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			token := extractBearerToken(r)

			if user, ok := users.Get(token); ok {
				next.ServeHTTP(w, r.WithContext(WithUser(ctx, user)))
				return
			}

			var claim jwt.StandardClaims

			parsed, err := jwt.ParseWithClaims(token, &claim, keyFunc)
			if err != nil || !parsed.Valid {
				_ = twirp.WriteError(w, twirp.NewError(twirp.Unauthenticated, "auth required"))
				return
			}

			if claim.Issuer != issuer {
				_ = twirp.WriteError(w, twirp.NewError(twirp.Unauthenticated, "auth required"))
				return
			}

			user := &APIUser{
				ID:    claim.Subject,
				Token: token,
			}

			users.Set(token, user)
			next.ServeHTTP(w, r.WithContext(WithUser(ctx, user)))
		}

		return http.HandlerFunc(fn)
	}
}
