package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/IgorGrieder/linkdeck/internal/auth"
)

type stubParser struct {
	sessions map[string]auth.Session
}

func (p stubParser) Parse(token string) (auth.Session, error) {
	if s, ok := p.sessions[token]; ok {
		return s, nil
	}
	return auth.Anonymous, errors.New("bad token")
}

func TestAuthenticate(t *testing.T) {
	parser := stubParser{sessions: map[string]auth.Session{"good": auth.NewSession("user-1")}}

	tests := []struct {
		name       string
		header     string
		cookie     string
		wantStatus int
		wantUser   string
	}{
		{"anonymous", "", "", http.StatusOK, ""},
		{"bearer token", "Bearer good", "", http.StatusOK, "user-1"},
		{"lowercase scheme", "bearer good", "", http.StatusOK, "user-1"},
		{"bad bearer rejected", "Bearer nope", "", http.StatusUnauthorized, ""},
		{"non bearer scheme ignored", "Basic abc", "", http.StatusOK, ""},
		{"cookie", "", "good", http.StatusOK, "user-1"},
		{"bad cookie ignored", "", "stale", http.StatusOK, ""},
		{"header wins over cookie", "Bearer good", "stale", http.StatusOK, "user-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotUser string
			h := Authenticate(parser)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotUser = auth.FromContext(r.Context()).UserID
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: AuthCookieName, Value: tt.cookie})
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if gotUser != tt.wantUser {
				t.Fatalf("user = %q, want %q", gotUser, tt.wantUser)
			}
		})
	}
}

func TestRequireSession(t *testing.T) {
	h := RequireSession(okHandler())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/me", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous status = %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req = req.WithContext(auth.WithSession(req.Context(), auth.NewSession("user-1")))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("signed in status = %d", rec.Code)
	}
}

func TestChain_Order(t *testing.T) {
	var order []string
	mw := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := Chain(okHandler(), mw("first"), mw("second"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Fatalf("order = %v", order)
	}
}
