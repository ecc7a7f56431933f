package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAPIKeyMiddleware(t *testing.T) {
	tests := []struct {
		name   string
		keys   []string
		header string
		want   int
	}{
		{"no keys configured", nil, "anything", http.StatusForbidden},
		{"blank keys only", []string{" ", ""}, "anything", http.StatusForbidden},
		{"valid key", []string{"secret-key-1", "secret-key-2"}, "secret-key-2", http.StatusOK},
		{"key with spaces", []string{" secret-key-1 "}, "secret-key-1", http.StatusOK},
		{"missing header", []string{"secret-key-1"}, "", http.StatusUnauthorized},
		{"wrong key", []string{"secret-key-1"}, "wrong-key", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mw := APIKeyMiddleware(tt.keys)(okHandler())

			req := httptest.NewRequest(http.MethodGet, "/api/admin/users", nil)
			if tt.header != "" {
				req.Header.Set(APIKeyHeader, tt.header)
			}
			rec := httptest.NewRecorder()
			mw.ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Errorf("got status %d, want %d", rec.Code, tt.want)
			}
		})
	}
}
