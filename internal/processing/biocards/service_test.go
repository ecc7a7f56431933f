package biocards

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/IgorGrieder/linkdeck/internal/auth"
	"github.com/IgorGrieder/linkdeck/internal/processing/faults"
)

type mockRepo struct {
	insertFn     func(ctx context.Context, c *Card) error
	updateFn     func(ctx context.Context, c *Card) error
	findByIDFn   func(ctx context.Context, id string) (*Card, error)
	findBySlugFn func(ctx context.Context, slug string) (*Card, error)
	listFn       func(ctx context.Context, ownerID string) ([]Card, error)
	deleteFn     func(ctx context.Context, id, ownerID string) (bool, error)
}

func (m *mockRepo) Insert(ctx context.Context, c *Card) error { return m.insertFn(ctx, c) }
func (m *mockRepo) Update(ctx context.Context, c *Card) error { return m.updateFn(ctx, c) }
func (m *mockRepo) FindByID(ctx context.Context, id string) (*Card, error) {
	return m.findByIDFn(ctx, id)
}
func (m *mockRepo) FindBySlug(ctx context.Context, slug string) (*Card, error) {
	return m.findBySlugFn(ctx, slug)
}
func (m *mockRepo) ListByOwner(ctx context.Context, ownerID string) ([]Card, error) {
	return m.listFn(ctx, ownerID)
}
func (m *mockRepo) Delete(ctx context.Context, id, ownerID string) (bool, error) {
	return m.deleteFn(ctx, id, ownerID)
}

type seqSlugs struct {
	slugs []string
	idx   int
}

func (s *seqSlugs) Generate(int) (string, error) {
	if s.idx >= len(s.slugs) {
		return "", errors.New("exhausted")
	}
	out := s.slugs[s.idx]
	s.idx++
	return out, nil
}

var fixedNow = time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)

func newTestService(repo *mockRepo, slugs SlugGenerator) *Service {
	svc := NewService(repo, slugs)
	svc.now = func() time.Time { return fixedNow }
	return svc
}

func manyLinks(n int) []CardLink {
	out := make([]CardLink, n)
	for i := range out {
		out[i] = CardLink{Label: fmt.Sprintf("link %d", i), URL: fmt.Sprintf("https://example.com/%d", i)}
	}
	return out
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name    string
		in      CardInput
		wantErr error
	}{
		{"minimal", CardInput{Title: "Me"}, nil},
		{"slug lowercased", CardInput{Slug: "My_Page-1", Title: "Me"}, nil},
		{"slug too short", CardInput{Slug: "ab", Title: "Me"}, ErrInvalidSlug},
		{"slug with space", CardInput{Slug: "my page", Title: "Me"}, ErrInvalidSlug},
		{"missing title", CardInput{Title: "  "}, ErrInvalidTitle},
		{"fifty links", CardInput{Title: "Me", Links: manyLinks(50)}, nil},
		{"fifty one links", CardInput{Title: "Me", Links: manyLinks(51)}, ErrTooManyLinks},
		{"link without label", CardInput{Title: "Me", Links: []CardLink{{URL: "https://x.com"}}}, ErrInvalidLink},
		{"link with bad scheme", CardInput{Title: "Me", Links: []CardLink{{Label: "x", URL: "ftp://x.com"}}}, ErrInvalidLink},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := normalize(tt.in)
			if tt.wantErr == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestService_Create(t *testing.T) {
	t.Run("anonymous rejected", func(t *testing.T) {
		svc := newTestService(&mockRepo{}, &seqSlugs{})
		if _, err := svc.Create(context.Background(), auth.Anonymous, CardInput{Title: "Me"}); !errors.Is(err, ErrAuthRequired) {
			t.Fatalf("expected ErrAuthRequired, got %v", err)
		}
	})

	t.Run("explicit slug taken", func(t *testing.T) {
		repo := &mockRepo{insertFn: func(context.Context, *Card) error { return ErrSlugTaken }}
		svc := newTestService(repo, &seqSlugs{})
		_, err := svc.Create(context.Background(), auth.NewSession("u-1"), CardInput{Slug: "taken", Title: "Me"})
		if !errors.Is(err, faults.ErrConflict) {
			t.Fatalf("expected conflict, got %v", err)
		}
	})

	t.Run("generated slug retries on collision", func(t *testing.T) {
		var tried []string
		repo := &mockRepo{insertFn: func(_ context.Context, c *Card) error {
			tried = append(tried, c.Slug)
			if c.Slug == "aaaaaaaa" {
				return ErrSlugTaken
			}
			c.ID = "card-1"
			return nil
		}}
		svc := newTestService(repo, &seqSlugs{slugs: []string{"AAAAAAAA", "BbBbBbBb"}})

		card, err := svc.Create(context.Background(), auth.NewSession("u-1"), CardInput{
			Title: " Me ",
			Links: []CardLink{{Label: " Blog ", URL: "https://blog.example"}},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if card.Slug != "bbbbbbbb" || len(tried) != 2 {
			t.Fatalf("slug = %q after %v", card.Slug, tried)
		}
		if card.OwnerID != "u-1" || card.Title != "Me" || card.Links[0].Label != "Blog" {
			t.Fatalf("unexpected card: %+v", card)
		}
		if !card.CreatedAt.Equal(fixedNow) || !card.UpdatedAt.Equal(fixedNow) {
			t.Fatalf("unexpected timestamps: %+v", card)
		}
	})

	t.Run("generated slug exhausted", func(t *testing.T) {
		repo := &mockRepo{insertFn: func(context.Context, *Card) error { return ErrSlugTaken }}
		slugs := &seqSlugs{slugs: []string{"a1a1a1a1", "b2b2b2b2", "c3c3c3c3", "d4d4d4d4", "e5e5e5e5"}}
		svc := newTestService(repo, slugs)

		_, err := svc.Create(context.Background(), auth.NewSession("u-1"), CardInput{Title: "Me"})
		if !errors.Is(err, ErrSlugExhausted) {
			t.Fatalf("expected ErrSlugExhausted, got %v", err)
		}
	})
}

func TestService_Update(t *testing.T) {
	stored := func() *Card {
		return &Card{
			ID:      "card-1",
			OwnerID: "u-1",
			Slug:    "mine",
			Title:   "Old",
			Links:   manyLinks(3),
		}
	}

	t.Run("owner replaces links in the given order", func(t *testing.T) {
		var saved *Card
		repo := &mockRepo{
			findByIDFn: func(context.Context, string) (*Card, error) { return stored(), nil },
			updateFn: func(_ context.Context, c *Card) error {
				saved = c
				return nil
			},
		}
		svc := newTestService(repo, &seqSlugs{})

		reordered := []CardLink{
			{Label: "c", URL: "https://c.example"},
			{Label: "a", URL: "https://a.example"},
		}
		card, err := svc.Update(context.Background(), auth.NewSession("u-1"), "card-1", CardInput{Title: "New", Links: reordered})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if saved != card || card.Slug != "mine" || card.Title != "New" {
			t.Fatalf("unexpected card: %+v", card)
		}
		if len(card.Links) != 2 || card.Links[0].Label != "c" || card.Links[1].Label != "a" {
			t.Fatalf("links not replaced in order: %+v", card.Links)
		}
	})

	t.Run("other user gets not found", func(t *testing.T) {
		repo := &mockRepo{findByIDFn: func(context.Context, string) (*Card, error) { return stored(), nil }}
		svc := newTestService(repo, &seqSlugs{})

		_, err := svc.Update(context.Background(), auth.NewSession("u-2"), "card-1", CardInput{Title: "Hijack"})
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestService_GetPublic(t *testing.T) {
	tests := []struct {
		name    string
		slug    string
		findErr error
		wantErr error
	}{
		{"found", "Mine", nil, nil},
		{"invalid slug never hits storage", "../etc", nil, ErrNotFound},
		{"missing", "ghost", ErrNotFound, ErrNotFound},
		{"backend", "mine", errors.New("timeout"), faults.ErrBackendUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockRepo{findBySlugFn: func(_ context.Context, slug string) (*Card, error) {
				if tt.findErr != nil {
					return nil, tt.findErr
				}
				return &Card{Slug: slug}, nil
			}}
			svc := newTestService(repo, &seqSlugs{})

			card, err := svc.GetPublic(context.Background(), tt.slug)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil || card.Slug != "mine" {
				t.Fatalf("got %+v, %v", card, err)
			}
		})
	}
}

func TestService_Delete(t *testing.T) {
	repo := &mockRepo{deleteFn: func(_ context.Context, id, ownerID string) (bool, error) {
		return id == "card-1" && ownerID == "u-1", nil
	}}
	svc := newTestService(repo, &seqSlugs{})
	ctx := context.Background()

	if err := svc.Delete(ctx, auth.NewSession("u-1"), "card-1"); err != nil {
		t.Fatalf("owner delete: %v", err)
	}
	if err := svc.Delete(ctx, auth.NewSession("u-2"), "card-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := svc.Delete(ctx, auth.Anonymous, "card-1"); !errors.Is(err, ErrAuthRequired) {
		t.Fatalf("expected ErrAuthRequired, got %v", err)
	}
}
