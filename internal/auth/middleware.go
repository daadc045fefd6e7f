package auth

import (
	"net/http"
	"strings"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/rs/zerolog"

	"github.com/shopease/storefront/internal/common"
)

// Identity validates an optional bearer token and places the customer
// identity in the request context. Requests without a token proceed as
// guests; a present but invalid token is rejected.
type Identity struct {
	Secret    []byte
	Issuer    string
	Audience  string
	ClockSkew time.Duration
	Log       zerolog.Logger
}

func (a Identity) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := strings.TrimSpace(r.Header.Get("Authorization"))
		if header == "" {
			next.ServeHTTP(w, r)
			return
		}
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid authorization header", nil)
			return
		}

		opts := []jwt.ParseOption{
			jwt.WithKey(jwa.HS256, a.Secret),
			jwt.WithValidate(true),
			jwt.WithAcceptableSkew(a.ClockSkew),
		}
		if a.Issuer != "" {
			opts = append(opts, jwt.WithIssuer(a.Issuer))
		}
		if a.Audience != "" {
			opts = append(opts, jwt.WithAudience(a.Audience))
		}
		token, err := jwt.ParseString(strings.TrimSpace(raw), opts...)
		if err != nil {
			a.Log.Debug().Err(err).Msg("bearer token rejected")
			common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid token", nil)
			return
		}

		ctx := common.WithUserID(r.Context(), token.Subject())
		if email, ok := token.Get("email"); ok {
			if s, ok := email.(string); ok {
				ctx = common.WithUserEmail(ctx, s)
			}
		}
		if role, ok := token.Get("role"); ok {
			if s, ok := role.(string); ok {
				ctx = common.WithUserRole(ctx, s)
			}
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole rejects identities whose token does not carry the role claim.
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got, ok := common.UserRole(r.Context())
			if !ok || got != role {
				common.JSONError(w, http.StatusForbidden, "FORBIDDEN", "insufficient permissions", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireUser rejects requests that did not present a valid identity.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := common.UserID(r.Context()); !ok {
			common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}
