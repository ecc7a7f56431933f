package biocards

import (
	"context"
	"errors"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/IgorGrieder/linkdeck/internal/auth"
	"github.com/IgorGrieder/linkdeck/internal/processing/faults"
)

const (
	MaxLinks = 50

	generatedSlugLength = 8
	maxSlugAttempts     = 5
	maxTitleLength      = 120
	maxBioLength        = 500
	maxLabelLength      = 80
)

var slugPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{3,32}$`)

type Service struct {
	repo  Repository
	slugs SlugGenerator
	now   func() time.Time
}

func NewService(repo Repository, slugs SlugGenerator) *Service {
	return &Service{repo: repo, slugs: slugs, now: time.Now}
}

// Create stores a new card. An empty slug is replaced by a generated one.
func (s *Service) Create(ctx context.Context, sess auth.Session, in CardInput) (*Card, error) {
	if !sess.Authenticated() {
		return nil, ErrAuthRequired
	}
	card, err := normalize(in)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	card.OwnerID = sess.UserID
	card.CreatedAt = now
	card.UpdatedAt = now

	if card.Slug != "" {
		if err := s.repo.Insert(ctx, card); err != nil {
			return nil, faults.Backend(err)
		}
		return card, nil
	}

	for range maxSlugAttempts {
		slug, err := s.slugs.Generate(generatedSlugLength)
		if err != nil {
			return nil, err
		}
		card.Slug = strings.ToLower(slug)

		err = s.repo.Insert(ctx, card)
		if errors.Is(err, ErrSlugTaken) {
			continue
		}
		if err != nil {
			return nil, faults.Backend(err)
		}
		return card, nil
	}
	return nil, ErrSlugExhausted
}

// Update replaces title, bio, slug and the ordered link list of an owned card.
func (s *Service) Update(ctx context.Context, sess auth.Session, id string, in CardInput) (*Card, error) {
	if !sess.Authenticated() {
		return nil, ErrAuthRequired
	}
	next, err := normalize(in)
	if err != nil {
		return nil, err
	}

	card, err := s.owned(ctx, sess, id)
	if err != nil {
		return nil, err
	}

	if next.Slug != "" {
		card.Slug = next.Slug
	}
	card.Title = next.Title
	card.Bio = next.Bio
	card.Links = next.Links
	card.UpdatedAt = s.now().UTC()

	if err := s.repo.Update(ctx, card); err != nil {
		return nil, faults.Backend(err)
	}
	return card, nil
}

func (s *Service) Delete(ctx context.Context, sess auth.Session, id string) error {
	if !sess.Authenticated() {
		return ErrAuthRequired
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

func (s *Service) ListMine(ctx context.Context, sess auth.Session) ([]Card, error) {
	if !sess.Authenticated() {
		return []Card{}, nil
	}
	out, err := s.repo.ListByOwner(ctx, sess.UserID)
	if err != nil {
		return nil, faults.Backend(err)
	}
	if out == nil {
		out = []Card{}
	}
	return out, nil
}

func (s *Service) GetPublic(ctx context.Context, slug string) (*Card, error) {
	slug = strings.ToLower(strings.TrimSpace(slug))
	if !slugPattern.MatchString(slug) {
		return nil, ErrNotFound
	}
	card, err := s.repo.FindBySlug(ctx, slug)
	if err != nil {
		return nil, faults.Backend(err)
	}
	return card, nil
}

func (s *Service) owned(ctx context.Context, sess auth.Session, id string) (*Card, error) {
	card, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, faults.Backend(err)
	}
	if card.OwnerID != sess.UserID {
		return nil, ErrNotFound
	}
	return card, nil
}

func normalize(in CardInput) (*Card, error) {
	slug := strings.ToLower(strings.TrimSpace(in.Slug))
	if slug != "" && !slugPattern.MatchString(slug) {
		return nil, ErrInvalidSlug
	}

	title := strings.TrimSpace(in.Title)
	if title == "" || len(title) > maxTitleLength {
		return nil, ErrInvalidTitle
	}
	bio := strings.TrimSpace(in.Bio)
	if len(bio) > maxBioLength {
		return nil, ErrInvalidBio
	}

	if len(in.Links) > MaxLinks {
		return nil, ErrTooManyLinks
	}
	links := make([]CardLink, 0, len(in.Links))
	for _, l := range in.Links {
		label := strings.TrimSpace(l.Label)
		raw := strings.TrimSpace(l.URL)
		if label == "" || len(label) > maxLabelLength || !httpURL(raw) {
			return nil, ErrInvalidLink
		}
		links = append(links, CardLink{Label: label, URL: raw})
	}

	return &Card{Slug: slug, Title: title, Bio: bio, Links: links}, nil
}

func httpURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
