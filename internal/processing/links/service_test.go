package links

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/IgorGrieder/linkdeck/internal/auth"
	"github.com/IgorGrieder/linkdeck/internal/processing/faults"
)

// --- Hand-written mocks ---

type mockRepo struct {
	insertFn      func(ctx context.Context, link *Link) error
	existsFn      func(ctx context.Context, code string) (bool, error)
	findByCodeFn  func(ctx context.Context, code string) (*Link, error)
	findByIDFn    func(ctx context.Context, id string) (*Link, error)
	findByURLFn   func(ctx context.Context, url string, now time.Time) (*Link, error)
	listByOwnerFn func(ctx context.Context, ownerID string) ([]Link, error)
	countSinceFn  func(ctx context.Context, ownerID string, since time.Time) (int64, error)
	updateTitleFn func(ctx context.Context, id, ownerID, title string) (*Link, error)
	deleteFn      func(ctx context.Context, id, ownerID string) (bool, error)
	incrementFn   func(ctx context.Context, id string) error
}

func (m *mockRepo) Insert(ctx context.Context, link *Link) error { return m.insertFn(ctx, link) }
func (m *mockRepo) ExistsByCode(ctx context.Context, code string) (bool, error) {
	if m.existsFn == nil {
		return false, nil
	}
	return m.existsFn(ctx, code)
}
func (m *mockRepo) FindByCode(ctx context.Context, code string) (*Link, error) {
	return m.findByCodeFn(ctx, code)
}
func (m *mockRepo) FindByID(ctx context.Context, id string) (*Link, error) {
	return m.findByIDFn(ctx, id)
}
func (m *mockRepo) FindActiveByOriginalURL(ctx context.Context, url string, now time.Time) (*Link, error) {
	if m.findByURLFn == nil {
		return nil, ErrNotFound
	}
	return m.findByURLFn(ctx, url, now)
}
func (m *mockRepo) ListByOwner(ctx context.Context, ownerID string) ([]Link, error) {
	return m.listByOwnerFn(ctx, ownerID)
}
func (m *mockRepo) CountCreatedSince(ctx context.Context, ownerID string, since time.Time) (int64, error) {
	return m.countSinceFn(ctx, ownerID, since)
}
func (m *mockRepo) UpdateTitle(ctx context.Context, id, ownerID, title string) (*Link, error) {
	return m.updateTitleFn(ctx, id, ownerID, title)
}
func (m *mockRepo) Delete(ctx context.Context, id, ownerID string) (bool, error) {
	return m.deleteFn(ctx, id, ownerID)
}
func (m *mockRepo) IncrementVisits(ctx context.Context, id string) error {
	return m.incrementFn(ctx, id)
}

type mockQuota struct {
	limitFn func(ctx context.Context, userID string) (int, error)
}

func (m *mockQuota) MonthlyLinkLimit(ctx context.Context, userID string) (int, error) {
	return m.limitFn(ctx, userID)
}

type mockRecorder struct {
	events []VisitEvent
	err    error
}

func (m *mockRecorder) RecordVisit(_ context.Context, ev VisitEvent) error {
	m.events = append(m.events, ev)
	return m.err
}

// memVisitLog keeps events by id the way the stores do, with optional
// injected failures.
type memVisitLog struct {
	applied   map[string]bool
	appendErr error
	markErr   error
}

func newMemVisitLog() *memVisitLog { return &memVisitLog{applied: map[string]bool{}} }

func (m *memVisitLog) Append(_ context.Context, ev VisitEvent) error {
	if m.appendErr != nil {
		return m.appendErr
	}
	if _, ok := m.applied[ev.EventID]; ok {
		return ErrDuplicateVisit
	}
	m.applied[ev.EventID] = false
	return nil
}

func (m *memVisitLog) Applied(_ context.Context, eventID string) (bool, error) {
	return m.applied[eventID], nil
}

func (m *memVisitLog) MarkApplied(_ context.Context, eventID string) error {
	if m.markErr != nil {
		return m.markErr
	}
	m.applied[eventID] = true
	return nil
}

type mockCodes struct {
	codes []string
	idx   int
}

func (m *mockCodes) Generate(int) (string, error) {
	if m.idx >= len(m.codes) {
		return "", errors.New("no more codes")
	}
	c := m.codes[m.idx]
	m.idx++
	return c, nil
}

var fixedNow = time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)

func newTestService(repo *mockRepo, quota QuotaSource, codes *mockCodes) *Service {
	svc := NewService(repo, nil, quota, codes, Options{MaxAttempts: 3})
	svc.now = func() time.Time { return fixedNow }
	svc.newEvent = func() string { return "evt-1" }
	return svc
}

func strPtr(s string) *string { return &s }

// --- Tests for validateURL ---

func TestValidateURL(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{"valid https", "https://example.com/path", "https://example.com/path", false},
		{"valid http", "http://example.com", "http://example.com", false},
		{"fragment kept", "https://example.com/page#section", "https://example.com/page#section", false},
		{"whitespace trimmed", "  https://example.com  ", "https://example.com", false},
		{"empty string", "", "", true},
		{"bad scheme ftp", "ftp://example.com", "", true},
		{"no scheme", "example.com", "", true},
		{"missing host", "https://", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := validateURL(tt.raw)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidURL) {
					t.Errorf("expected ErrInvalidURL for %q, got %v", tt.raw, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMonthStart(t *testing.T) {
	got := monthStart(time.Date(2025, 6, 15, 14, 30, 45, 123, time.UTC))
	want := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

// --- StoreURL ---

func TestStoreURL_AnonymousDefaults(t *testing.T) {
	var inserted *Link
	repo := &mockRepo{
		insertFn: func(_ context.Context, link *Link) error {
			link.ID = "id-1"
			inserted = link
			return nil
		},
	}
	quota := &mockQuota{limitFn: func(context.Context, string) (int, error) {
		t.Fatal("quota must not be consulted for anonymous callers")
		return 0, nil
	}}
	svc := newTestService(repo, quota, &mockCodes{codes: []string{"Ab3dEf7h"}})

	link, created, err := svc.StoreURL(context.Background(), auth.Anonymous, StoreInput{URL: "https://example.com"})
	if err != nil {
		t.Fatal(err)
	}
	if !created || inserted == nil {
		t.Fatal("expected a new link to be inserted")
	}
	if link.ShortCode != "Ab3dEf7h" {
		t.Errorf("got code %q", link.ShortCode)
	}
	if link.Title != "https://example.com" {
		t.Errorf("title should default to the url, got %q", link.Title)
	}
	if link.OwnerID != nil {
		t.Errorf("anonymous link should have no owner, got %q", *link.OwnerID)
	}
	if link.ExpiresAt == nil || !link.ExpiresAt.Equal(fixedNow.Add(90*24*time.Hour)) {
		t.Errorf("expiry should be exactly 90 days after creation, got %v", link.ExpiresAt)
	}
}

func TestStoreURL_DeduplicatesAcrossCallers(t *testing.T) {
	var stored *Link
	repo := &mockRepo{
		insertFn: func(_ context.Context, link *Link) error {
			link.ID = "id-1"
			stored = link
			return nil
		},
		findByURLFn: func(_ context.Context, url string, _ time.Time) (*Link, error) {
			if stored != nil && stored.OriginalURL == url {
				return stored, nil
			}
			return nil, ErrNotFound
		},
		countSinceFn: func(context.Context, string, time.Time) (int64, error) { return 0, nil },
	}
	quota := &mockQuota{limitFn: func(context.Context, string) (int, error) { return 10, nil }}
	svc := newTestService(repo, quota, &mockCodes{codes: []string{"first000", "second00"}})

	first, created, err := svc.StoreURL(context.Background(), auth.NewSession("alice"), StoreInput{URL: "https://x.com"})
	if err != nil || !created {
		t.Fatalf("first store: created=%v err=%v", created, err)
	}
	second, created, err := svc.StoreURL(context.Background(), auth.NewSession("bob"), StoreInput{URL: "https://x.com"})
	if err != nil {
		t.Fatal(err)
	}
	if created {
		t.Error("second store should reuse the existing link")
	}
	if second.ShortCode != first.ShortCode || second.ID != first.ID {
		t.Errorf("got %q/%q, want %q/%q", second.ID, second.ShortCode, first.ID, first.ShortCode)
	}
}

func TestStoreURL_Quota(t *testing.T) {
	tests := []struct {
		name    string
		limit   int
		created int64
		wantErr error
	}{
		{"under limit", 5, 4, nil},
		{"at limit", 5, 5, ErrQuotaExceeded},
		{"over limit", 5, 9, ErrQuotaExceeded},
		{"unlimited", 0, 1000, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var since time.Time
			repo := &mockRepo{
				insertFn: func(context.Context, *Link) error { return nil },
				countSinceFn: func(_ context.Context, owner string, s time.Time) (int64, error) {
					if owner != "alice" {
						t.Errorf("counted links for %q", owner)
					}
					since = s
					return tt.created, nil
				},
			}
			quota := &mockQuota{limitFn: func(context.Context, string) (int, error) { return tt.limit, nil }}
			svc := newTestService(repo, quota, &mockCodes{codes: []string{"code0001"}})

			link, _, err := svc.StoreURL(context.Background(), auth.NewSession("alice"), StoreInput{URL: "https://example.com"})
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) || !errors.Is(err, faults.ErrQuotaExceeded) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if link.OwnerID == nil || *link.OwnerID != "alice" {
				t.Error("link should be owned by the caller")
			}
			if tt.limit > 0 && !since.Equal(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)) {
				t.Errorf("quota window should start at month start, got %v", since)
			}
		})
	}
}

func TestStoreURL_CollisionRetries(t *testing.T) {
	inserts := 0
	repo := &mockRepo{
		existsFn: func(_ context.Context, code string) (bool, error) {
			return code == "taken001", nil
		},
		insertFn: func(_ context.Context, link *Link) error {
			inserts++
			if link.ShortCode == "racing01" {
				return ErrCodeTaken
			}
			return nil
		},
	}
	svc := newTestService(repo, nil, &mockCodes{codes: []string{"taken001", "racing01", "fresh001"}})

	link, _, err := svc.StoreURL(context.Background(), auth.Anonymous, StoreInput{URL: "https://example.com"})
	if err != nil {
		t.Fatal(err)
	}
	if link.ShortCode != "fresh001" {
		t.Errorf("got code %q, want fresh001", link.ShortCode)
	}
	if inserts != 2 {
		t.Errorf("expected 2 insert attempts, got %d", inserts)
	}
}

func TestStoreURL_GenerationExhausted(t *testing.T) {
	repo := &mockRepo{
		existsFn: func(context.Context, string) (bool, error) { return true, nil },
		insertFn: func(context.Context, *Link) error {
			t.Fatal("insert must not run when every code is taken")
			return nil
		},
	}
	codes := &mockCodes{codes: []string{"dup", "dup", "dup", "dup"}}
	svc := newTestService(repo, nil, codes)

	_, _, err := svc.StoreURL(context.Background(), auth.Anonymous, StoreInput{URL: "https://example.com"})
	if !errors.Is(err, ErrGenerationExhausted) {
		t.Fatalf("expected ErrGenerationExhausted, got %v", err)
	}
	if codes.idx != 3 {
		t.Errorf("expected 3 attempts, got %d", codes.idx)
	}
}

func TestStoreURL_Validation(t *testing.T) {
	svc := newTestService(&mockRepo{}, nil, &mockCodes{})

	_, _, err := svc.StoreURL(context.Background(), auth.Anonymous, StoreInput{URL: "   "})
	if !errors.Is(err, faults.ErrValidation) {
		t.Fatalf("expected validation failure, got %v", err)
	}
}

func TestStoreURL_BackendFailure(t *testing.T) {
	repo := &mockRepo{
		findByURLFn: func(context.Context, string, time.Time) (*Link, error) {
			return nil, errors.New("connection reset")
		},
	}
	svc := newTestService(repo, nil, &mockCodes{})

	_, _, err := svc.StoreURL(context.Background(), auth.Anonymous, StoreInput{URL: "https://example.com"})
	if !errors.Is(err, faults.ErrBackendUnavailable) {
		t.Fatalf("expected ErrBackendUnavailable, got %v", err)
	}
}

// --- GetByShortCode ---

func TestGetByShortCode(t *testing.T) {
	expiresIn := func(d time.Duration) *time.Time {
		at := fixedNow.Add(d)
		return &at
	}

	tests := []struct {
		name      string
		code      string
		link      *Link
		repoErr   error
		wantErr   error
		wantFound bool
	}{
		{"found", "abc", &Link{ShortCode: "abc", OriginalURL: "https://example.com", ExpiresAt: expiresIn(time.Hour)}, nil, nil, true},
		{"expires exactly now", "abc", &Link{ShortCode: "abc", ExpiresAt: expiresIn(0)}, nil, nil, true},
		{"expired one ms ago", "abc", &Link{ShortCode: "abc", ExpiresAt: expiresIn(-time.Millisecond)}, nil, ErrNotFound, false},
		{"missing", "nope", nil, ErrNotFound, ErrNotFound, false},
		{"empty code", "", nil, nil, ErrNotFound, false},
		{"backend down", "abc", nil, errors.New("timeout"), faults.ErrBackendUnavailable, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockRepo{
				findByCodeFn: func(context.Context, string) (*Link, error) {
					if tt.repoErr != nil {
						return nil, tt.repoErr
					}
					return tt.link, nil
				},
			}
			svc := newTestService(repo, nil, &mockCodes{})

			got, err := svc.GetByShortCode(context.Background(), tt.code)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if tt.wantFound && got.ShortCode != tt.link.ShortCode {
				t.Errorf("got %q", got.ShortCode)
			}
		})
	}
}

func TestStoreThenResolve(t *testing.T) {
	byCode := map[string]*Link{}
	repo := &mockRepo{
		insertFn: func(_ context.Context, link *Link) error {
			byCode[link.ShortCode] = link
			return nil
		},
		findByCodeFn: func(_ context.Context, code string) (*Link, error) {
			if l, ok := byCode[code]; ok {
				return l, nil
			}
			return nil, ErrNotFound
		},
	}
	svc := newTestService(repo, nil, &mockCodes{codes: []string{"roundtr1"}})

	stored, _, err := svc.StoreURL(context.Background(), auth.Anonymous, StoreInput{URL: "https://example.com/a?b=c"})
	if err != nil {
		t.Fatal(err)
	}
	got, err := svc.GetByShortCode(context.Background(), stored.ShortCode)
	if err != nil {
		t.Fatal(err)
	}
	if got.OriginalURL != "https://example.com/a?b=c" {
		t.Errorf("got %q", got.OriginalURL)
	}
}

// --- GetUserURLs / UpdateURLData / DeleteLink ---

func TestGetUserURLs_Anonymous(t *testing.T) {
	svc := newTestService(&mockRepo{}, nil, &mockCodes{})

	out, err := svc.GetUserURLs(context.Background(), auth.Anonymous)
	if err != nil {
		t.Fatal(err)
	}
	if out == nil || len(out) != 0 {
		t.Errorf("expected empty non-nil list, got %v", out)
	}
}

func TestGetUserURLs_DelegatesToRepo(t *testing.T) {
	repo := &mockRepo{
		listByOwnerFn: func(_ context.Context, owner string) ([]Link, error) {
			if owner != "alice" {
				t.Errorf("listed for %q", owner)
			}
			return []Link{{ShortCode: "new"}, {ShortCode: "old"}}, nil
		},
	}
	svc := newTestService(repo, nil, &mockCodes{})

	out, err := svc.GetUserURLs(context.Background(), auth.NewSession("alice"))
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 2 || out[0].ShortCode != "new" {
		t.Errorf("got %+v", out)
	}
}

func TestUpdateURLData(t *testing.T) {
	owned := &Link{ID: "l1", OriginalURL: "https://example.com", OwnerID: strPtr("alice")}

	t.Run("sets title", func(t *testing.T) {
		repo := &mockRepo{
			updateTitleFn: func(_ context.Context, id, owner, title string) (*Link, error) {
				if id != "l1" || owner != "alice" || title != "Docs" {
					t.Errorf("got %q %q %q", id, owner, title)
				}
				return &Link{ID: id, Title: title}, nil
			},
		}
		svc := newTestService(repo, nil, &mockCodes{})

		got, err := svc.UpdateURLData(context.Background(), auth.NewSession("alice"), "l1", UpdateInput{Title: strPtr("  Docs ")})
		if err != nil {
			t.Fatal(err)
		}
		if got.Title != "Docs" {
			t.Errorf("got %q", got.Title)
		}
	})

	t.Run("empty title resets to url", func(t *testing.T) {
		repo := &mockRepo{
			findByIDFn: func(context.Context, string) (*Link, error) { return owned, nil },
			updateTitleFn: func(_ context.Context, id, _, title string) (*Link, error) {
				return &Link{ID: id, Title: title}, nil
			},
		}
		svc := newTestService(repo, nil, &mockCodes{})

		got, err := svc.UpdateURLData(context.Background(), auth.NewSession("alice"), "l1", UpdateInput{Title: strPtr("")})
		if err != nil {
			t.Fatal(err)
		}
		if got.Title != "https://example.com" {
			t.Errorf("got %q", got.Title)
		}
	})

	t.Run("not owner", func(t *testing.T) {
		repo := &mockRepo{
			findByIDFn: func(context.Context, string) (*Link, error) { return owned, nil },
		}
		svc := newTestService(repo, nil, &mockCodes{})

		_, err := svc.UpdateURLData(context.Background(), auth.NewSession("mallory"), "l1", UpdateInput{})
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("anonymous", func(t *testing.T) {
		svc := newTestService(&mockRepo{}, nil, &mockCodes{})

		_, err := svc.UpdateURLData(context.Background(), auth.Anonymous, "l1", UpdateInput{Title: strPtr("x")})
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestDeleteLink(t *testing.T) {
	tests := []struct {
		name    string
		sess    auth.Session
		deleted bool
		wantErr error
	}{
		{"owner deletes", auth.NewSession("alice"), true, nil},
		{"nothing matched", auth.NewSession("alice"), false, ErrNotFound},
		{"anonymous", auth.Anonymous, false, ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockRepo{
				deleteFn: func(context.Context, string, string) (bool, error) { return tt.deleted, nil },
			}
			svc := newTestService(repo, nil, &mockCodes{})

			err := svc.DeleteLink(context.Background(), tt.sess, "l1")
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

// --- Visits ---

func TestTrackVisit(t *testing.T) {
	rec := &mockRecorder{}
	svc := newTestService(&mockRepo{}, nil, &mockCodes{})
	svc.visits = rec

	err := svc.TrackVisit(context.Background(), &Link{ID: "l1"}, VisitInput{Referrer: "https://ref.example", UserAgent: "curl/8"})
	if err != nil {
		t.Fatal(err)
	}
	if len(rec.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(rec.events))
	}
	ev := rec.events[0]
	if ev.EventID != "evt-1" || ev.LinkID != "l1" || ev.Referrer != "https://ref.example" || ev.UserAgent != "curl/8" {
		t.Errorf("unexpected event %+v", ev)
	}
	if !ev.OccurredAt.Equal(fixedNow) {
		t.Errorf("got occurredAt %v", ev.OccurredAt)
	}
}

func TestDirectVisitRecorder(t *testing.T) {
	tests := []struct {
		name          string
		seen          map[string]bool
		appendErr     error
		markErr       error
		wantIncrement bool
		wantApplied   bool
		wantErr       bool
	}{
		{name: "new event", wantIncrement: true, wantApplied: true},
		{name: "replayed applied event", seen: map[string]bool{"e": true}, wantApplied: true},
		{name: "replayed event never counted", seen: map[string]bool{"e": false}, wantIncrement: true, wantApplied: true},
		{name: "log failure", appendErr: errors.New("write failed"), wantErr: true},
		{name: "mark failure still counts", markErr: errors.New("write failed"), wantIncrement: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			incremented := false
			repo := &mockRepo{
				incrementFn: func(_ context.Context, id string) error {
					incremented = id == "l1"
					return nil
				},
			}
			log := newMemVisitLog()
			for id, applied := range tt.seen {
				log.applied[id] = applied
			}
			log.appendErr = tt.appendErr
			log.markErr = tt.markErr

			err := NewDirectVisitRecorder(repo, log).RecordVisit(context.Background(), VisitEvent{EventID: "e", LinkID: "l1"})
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if incremented != tt.wantIncrement {
				t.Errorf("incremented = %v, want %v", incremented, tt.wantIncrement)
			}
			if log.applied["e"] != tt.wantApplied {
				t.Errorf("applied = %v, want %v", log.applied["e"], tt.wantApplied)
			}
		})
	}
}

func TestDirectVisitRecorder_RedeliveryAfterIncrementFailure(t *testing.T) {
	visits := 0
	failNext := true
	repo := &mockRepo{
		incrementFn: func(context.Context, string) error {
			if failNext {
				failNext = false
				return errors.New("transient write failure")
			}
			visits++
			return nil
		},
	}
	rec := NewDirectVisitRecorder(repo, newMemVisitLog())
	ev := VisitEvent{EventID: "e-1", LinkID: "l1"}

	if err := rec.RecordVisit(context.Background(), ev); err == nil {
		t.Fatal("first attempt should surface the increment failure")
	}
	for i := 0; i < 2; i++ {
		if err := rec.RecordVisit(context.Background(), ev); err != nil {
			t.Fatalf("redelivery %d: %v", i, err)
		}
	}
	if visits != 1 {
		t.Fatalf("visits = %d, want 1", visits)
	}
}
