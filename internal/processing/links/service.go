package links

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/IgorGrieder/linkdeck/internal/auth"
	"github.com/IgorGrieder/linkdeck/internal/processing/faults"
	"github.com/google/uuid"
)

const (
	DefaultLifetime    = 90 * 24 * time.Hour
	DefaultMaxAttempts = 5
	maxTitleLength     = 255
)

type Options struct {
	CodeLength  int
	Lifetime    time.Duration
	MaxAttempts int
}

type Service struct {
	repo     Repository
	visits   VisitRecorder
	quota    QuotaSource
	codes    CodeGenerator
	opts     Options
	now      func() time.Time
	newEvent func() string
}

func NewService(repo Repository, visits VisitRecorder, quota QuotaSource, codes CodeGenerator, opts Options) *Service {
	if opts.CodeLength <= 0 {
		opts.CodeLength = DefaultCodeLength
	}
	if opts.Lifetime <= 0 {
		opts.Lifetime = DefaultLifetime
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}

	return &Service{
		repo:     repo,
		visits:   visits,
		quota:    quota,
		codes:    codes,
		opts:     opts,
		now:      time.Now,
		newEvent: uuid.NewString,
	}
}

// StoreURL returns the existing active link for in.URL, or creates one. The
// boolean reports whether a new record was written.
func (s *Service) StoreURL(ctx context.Context, sess auth.Session, in StoreInput) (*Link, bool, error) {
	originalURL, err := validateURL(in.URL)
	if err != nil {
		return nil, false, err
	}
	title := strings.TrimSpace(in.Title)
	if len(title) > maxTitleLength {
		return nil, false, ErrInvalidTitle
	}

	now := s.now().UTC()

	existing, err := s.repo.FindActiveByOriginalURL(ctx, originalURL, now)
	switch {
	case err == nil:
		return existing, false, nil
	case !errors.Is(err, ErrNotFound):
		return nil, false, faults.Backend(err)
	}

	if err := s.checkQuota(ctx, sess, now); err != nil {
		return nil, false, err
	}

	if title == "" {
		title = originalURL
	}
	expiresAt := now.Add(s.opts.Lifetime)
	link := &Link{
		OriginalURL: originalURL,
		Title:       title,
		OwnerID:     sess.Owner(),
		CreatedAt:   now,
		ExpiresAt:   &expiresAt,
	}

	for range s.opts.MaxAttempts {
		code, err := s.codes.Generate(s.opts.CodeLength)
		if err != nil {
			return nil, false, err
		}

		taken, err := s.repo.ExistsByCode(ctx, code)
		if err != nil {
			return nil, false, faults.Backend(err)
		}
		if taken {
			continue
		}

		link.ShortCode = code
		if err := s.repo.Insert(ctx, link); err != nil {
			if errors.Is(err, ErrCodeTaken) {
				continue
			}
			return nil, false, faults.Backend(err)
		}
		return link, true, nil
	}

	return nil, false, ErrGenerationExhausted
}

func (s *Service) checkQuota(ctx context.Context, sess auth.Session, now time.Time) error {
	if !sess.Authenticated() || s.quota == nil {
		return nil
	}

	limit, err := s.quota.MonthlyLinkLimit(ctx, sess.UserID)
	if err != nil {
		return faults.Backend(err)
	}
	if limit <= 0 {
		return nil
	}

	created, err := s.repo.CountCreatedSince(ctx, sess.UserID, monthStart(now))
	if err != nil {
		return faults.Backend(err)
	}
	if created >= int64(limit) {
		return ErrQuotaExceeded
	}
	return nil
}

// GetByShortCode resolves code. Expired links are reported as ErrNotFound
// even though the row is kept.
func (s *Service) GetByShortCode(ctx context.Context, code string) (*Link, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, ErrNotFound
	}

	link, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		return nil, faults.Backend(err)
	}
	if link.Expired(s.now().UTC()) {
		return nil, ErrNotFound
	}
	return link, nil
}

func (s *Service) GetUserURLs(ctx context.Context, sess auth.Session) ([]Link, error) {
	if !sess.Authenticated() {
		return []Link{}, nil
	}

	out, err := s.repo.ListByOwner(ctx, sess.UserID)
	if err != nil {
		return nil, faults.Backend(err)
	}
	if out == nil {
		out = []Link{}
	}
	return out, nil
}

// UpdateURLData applies the mutable fields of in. Only the owner may edit a
// link; an empty title resets it to the original URL.
func (s *Service) UpdateURLData(ctx context.Context, sess auth.Session, id string, in UpdateInput) (*Link, error) {
	if !sess.Authenticated() {
		return nil, ErrNotFound
	}

	var title string
	if in.Title != nil {
		title = strings.TrimSpace(*in.Title)
		if len(title) > maxTitleLength {
			return nil, ErrInvalidTitle
		}
	}

	if in.Title == nil || title == "" {
		link, err := s.ownedLink(ctx, sess, id)
		if err != nil || in.Title == nil {
			return link, err
		}
		title = link.OriginalURL
	}

	link, err := s.repo.UpdateTitle(ctx, id, sess.UserID, title)
	if err != nil {
		return nil, faults.Backend(err)
	}
	return link, nil
}

func (s *Service) ownedLink(ctx context.Context, sess auth.Session, id string) (*Link, error) {
	link, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, faults.Backend(err)
	}
	if !link.OwnedBy(sess.UserID) {
		return nil, ErrNotFound
	}
	return link, nil
}

func (s *Service) DeleteLink(ctx context.Context, sess auth.Session, id string) error {
	if !sess.Authenticated() || strings.TrimSpace(id) == "" {
		return ErrNotFound
	}

	deleted, err := s.repo.Delete(ctx, id, sess.UserID)
	if err != nil {
		return faults.Backend(err)
	}
	if !deleted {
		return ErrNotFound
	}
	return nil
}

// TrackVisit hands one visit of link to the configured recorder.
func (s *Service) TrackVisit(ctx context.Context, link *Link, in VisitInput) error {
	if s.visits == nil || link == nil {
		return nil
	}

	return s.visits.RecordVisit(ctx, VisitEvent{
		EventID:    s.newEvent(),
		LinkID:     link.ID,
		Referrer:   truncate(strings.TrimSpace(in.Referrer), 2048),
		UserAgent:  truncate(strings.TrimSpace(in.UserAgent), 512),
		OccurredAt: s.now().UTC(),
	})
}

// Expiration reports the lifetime progress of link at the current time.
func (s *Service) Expiration(link *Link) Expiration {
	return CalculateExpiration(link.CreatedAt, link.ExpiresAt, s.now())
}

func validateURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrInvalidURL
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", ErrInvalidURL
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", ErrInvalidURL
	}
	if strings.TrimSpace(u.Host) == "" {
		return "", ErrInvalidURL
	}

	return raw, nil
}

func monthStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
