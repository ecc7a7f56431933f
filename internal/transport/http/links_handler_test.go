package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/IgorGrieder/linkdeck/internal/auth"
	"github.com/IgorGrieder/linkdeck/internal/constants"
	"github.com/IgorGrieder/linkdeck/internal/metrics"
	"github.com/IgorGrieder/linkdeck/internal/processing/analytics"
	"github.com/IgorGrieder/linkdeck/internal/processing/links"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

var testNow = time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)

func newTestLinksHandler(svc LinkService) *LinksHandler {
	h := NewLinksHandler(svc, LinksHandlerOptions{BaseURL: "https://lnk.test/"})
	h.detach = func(fn func()) { fn() }
	h.now = func() time.Time { return testNow }
	return h
}

func sampleLink() *links.Link {
	expires := testNow.Add(90 * 24 * time.Hour)
	return &links.Link{
		ID:          "link-1",
		ShortCode:   "abc123",
		OriginalURL: "https://example.com/page",
		CreatedAt:   testNow,
		ExpiresAt:   &expires,
	}
}

func TestLinksHandler_Create(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		created    bool
		storeErr   error
		wantStatus int
		wantCode   string
		wantError  string
	}{
		{name: "new link", body: `{"url":"https://example.com/page"}`, created: true, wantStatus: http.StatusCreated, wantCode: constants.CodeLinkCreated},
		{name: "reused link", body: `{"url":"https://example.com/page"}`, wantStatus: http.StatusOK, wantCode: constants.CodeLinkFound},
		{name: "invalid url", body: `{"url":"ftp://example.com"}`, wantStatus: http.StatusBadRequest, wantError: constants.CodeInvalidURL},
		{name: "missing url", body: `{}`, wantStatus: http.StatusBadRequest, wantError: constants.CodeInvalidRequest},
		{name: "malformed body", body: `{"url":`, wantStatus: http.StatusBadRequest, wantError: constants.CodeInvalidRequest},
		{name: "quota exceeded", body: `{"url":"https://example.com/page"}`, storeErr: links.ErrQuotaExceeded, wantStatus: http.StatusForbidden, wantError: constants.CodeQuotaExceeded},
		{name: "codes exhausted", body: `{"url":"https://example.com/page"}`, storeErr: links.ErrGenerationExhausted, wantStatus: http.StatusInternalServerError, wantError: constants.CodeGenerationExhausted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotSession auth.Session
			svc := &mockLinkService{
				StoreURLFn: func(_ context.Context, sess auth.Session, in links.StoreInput) (*links.Link, bool, error) {
					gotSession = sess
					if tt.storeErr != nil {
						return nil, false, tt.storeErr
					}
					return sampleLink(), tt.created, nil
				},
			}
			h := newTestLinksHandler(svc)

			req := httptest.NewRequest(http.MethodPost, "/api/links", strings.NewReader(tt.body))
			req = req.WithContext(withSession(req.Context(), "user-1"))
			rec := httptest.NewRecorder()
			h.Create(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body.String())
			}

			var data linkResponse
			env := decodeEnvelope(t, rec, &data)
			if env.Error != tt.wantError {
				t.Fatalf("error = %q, want %q", env.Error, tt.wantError)
			}
			if tt.wantCode == "" {
				return
			}
			if env.Code != tt.wantCode {
				t.Fatalf("code = %q, want %q", env.Code, tt.wantCode)
			}
			if data.ShortURL != "https://lnk.test/abc123" {
				t.Fatalf("shortUrl = %q", data.ShortURL)
			}
			if gotSession.Owner() == nil || *gotSession.Owner() != "user-1" {
				t.Fatalf("session not passed to service: %+v", gotSession)
			}
		})
	}
}

func TestLinksHandler_Redirect(t *testing.T) {
	var tracked *links.VisitInput
	svc := &mockLinkService{
		GetByShortCodeFn: func(_ context.Context, code string) (*links.Link, error) {
			if code != "abc123" {
				return nil, links.ErrNotFound
			}
			return sampleLink(), nil
		},
		TrackVisitFn: func(ctx context.Context, _ *links.Link, in links.VisitInput) error {
			if _, ok := ctx.Deadline(); !ok {
				t.Error("tracking context should carry a timeout")
			}
			tracked = &in
			return nil
		},
	}
	h := newTestLinksHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/abc123", nil)
	req.SetPathValue("code", "abc123")
	req.Header.Set("Referer", "https://news.example")
	req.Header.Set("User-Agent", "test-agent")
	rec := httptest.NewRecorder()
	h.Redirect(rec, req)

	if rec.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "https://example.com/page" {
		t.Fatalf("Location = %q", loc)
	}
	if tracked == nil || tracked.Referrer != "https://news.example" || tracked.UserAgent != "test-agent" {
		t.Fatalf("visit not tracked correctly: %+v", tracked)
	}
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("read counter: %v", err)
	}
	return m.GetCounter().GetValue()
}

func TestLinksHandler_Redirect_TrackingFailure(t *testing.T) {
	svc := &mockLinkService{
		GetByShortCodeFn: func(context.Context, string) (*links.Link, error) { return sampleLink(), nil },
		TrackVisitFn: func(context.Context, *links.Link, links.VisitInput) error {
			return errors.New("outbox unavailable")
		},
	}
	h := newTestLinksHandler(svc)
	before := counterValue(t, metrics.VisitTrackingFailures)

	req := httptest.NewRequest(http.MethodGet, "/abc123", nil)
	req.SetPathValue("code", "abc123")
	rec := httptest.NewRecorder()
	h.Redirect(rec, req)

	if rec.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "https://example.com/page" {
		t.Fatalf("Location = %q", loc)
	}
	if got := counterValue(t, metrics.VisitTrackingFailures) - before; got != 1 {
		t.Fatalf("tracking failures grew by %v, want 1", got)
	}
}

func TestLinksHandler_Redirect_MovedPermanently(t *testing.T) {
	svc := &mockLinkService{
		GetByShortCodeFn: func(context.Context, string) (*links.Link, error) { return sampleLink(), nil },
	}
	h := NewLinksHandler(svc, LinksHandlerOptions{RedirectStatus: http.StatusMovedPermanently})
	h.detach = func(fn func()) { fn() }

	req := httptest.NewRequest(http.MethodGet, "/abc123", nil)
	req.SetPathValue("code", "abc123")
	rec := httptest.NewRecorder()
	h.Redirect(rec, req)

	if rec.Code != http.StatusMovedPermanently {
		t.Fatalf("status = %d, want 301", rec.Code)
	}
}

func TestLinksHandler_Redirect_NotFound(t *testing.T) {
	trackCalled := false
	svc := &mockLinkService{
		GetByShortCodeFn: func(context.Context, string) (*links.Link, error) { return nil, links.ErrNotFound },
		TrackVisitFn: func(context.Context, *links.Link, links.VisitInput) error {
			trackCalled = true
			return nil
		},
	}
	h := newTestLinksHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	req.SetPathValue("code", "nope")
	rec := httptest.NewRecorder()
	h.Redirect(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if env := decodeEnvelope(t, rec, nil); env.Error != constants.CodeLinkNotFound {
		t.Fatalf("error = %q", env.Error)
	}
	if trackCalled {
		t.Fatal("missing links must not be tracked")
	}
}

func TestLinksHandler_Delete(t *testing.T) {
	var gotID string
	svc := &mockLinkService{
		DeleteLinkFn: func(_ context.Context, sess auth.Session, id string) error {
			if !sess.Authenticated() {
				t.Fatal("expected authenticated session")
			}
			gotID = id
			return nil
		},
	}
	h := newTestLinksHandler(svc)

	req := httptest.NewRequest(http.MethodDelete, "/api/links/link-1", nil)
	req.SetPathValue("id", "link-1")
	req = req.WithContext(withSession(req.Context(), "user-1"))
	rec := httptest.NewRecorder()
	h.Delete(rec, req)

	if rec.Code != http.StatusOK || gotID != "link-1" {
		t.Fatalf("status = %d id = %q", rec.Code, gotID)
	}
}

func TestLinksHandler_Update_RequiresTitle(t *testing.T) {
	h := newTestLinksHandler(&mockLinkService{})

	req := httptest.NewRequest(http.MethodPatch, "/api/links/link-1", strings.NewReader(`{}`))
	req.SetPathValue("id", "link-1")
	rec := httptest.NewRecorder()
	h.Update(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestLinksHandler_Analytics(t *testing.T) {
	svc := &mockLinkService{
		GetUserURLsFn: func(context.Context, auth.Session) ([]links.Link, error) {
			a, b := *sampleLink(), *sampleLink()
			a.Visits, b.Visits = 7, 3
			b.ID = "link-2"
			return []links.Link{a, b}, nil
		},
	}
	h := newTestLinksHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/me/analytics", nil)
	req = req.WithContext(withSession(req.Context(), "user-1"))
	rec := httptest.NewRecorder()
	h.Analytics(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var summary analytics.Summary
	env := decodeEnvelope(t, rec, &summary)
	if env.Code != constants.CodeAnalyticsFound {
		t.Fatalf("code = %q", env.Code)
	}
	if summary.TotalClicks != 10 || summary.TotalLinks != 2 {
		t.Fatalf("summary = %+v", summary)
	}
}
