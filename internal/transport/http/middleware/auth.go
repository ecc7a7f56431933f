package middleware

import (
	"net/http"
	"strings"

	"github.com/IgorGrieder/linkdeck/internal/auth"
	"github.com/IgorGrieder/linkdeck/internal/constants"
	"github.com/IgorGrieder/linkdeck/pkg/httputils"
)

// AuthCookieName holds the access token set by the Google sign-in callback.
const AuthCookieName = "auth_token"

type SessionParser interface {
	Parse(token string) (auth.Session, error)
}

// Authenticate attaches the caller's auth.Session to the request context.
// A bad bearer token is rejected; a bad cookie is ignored so a stale cookie
// never locks a visitor out of public routes.
func Authenticate(parser SessionParser) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token, ok := bearerToken(r); ok {
				sess, err := parser.Parse(token)
				if err != nil {
					httputils.WriteAPIError(w, r, constants.ErrUnauthorized.WithMessage("invalid or expired access token"))
					return
				}
				next.ServeHTTP(w, r.WithContext(auth.WithSession(r.Context(), sess)))
				return
			}

			if c, err := r.Cookie(AuthCookieName); err == nil && c.Value != "" {
				if sess, err := parser.Parse(c.Value); err == nil {
					r = r.WithContext(auth.WithSession(r.Context(), sess))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireSession rejects anonymous callers.
func RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !auth.FromContext(r.Context()).Authenticated() {
			httputils.WriteAPIError(w, r, constants.ErrUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) (string, bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return "", false
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
