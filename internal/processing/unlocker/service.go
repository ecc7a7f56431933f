package unlocker

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/IgorGrieder/linkdeck/internal/auth"
	"github.com/IgorGrieder/linkdeck/internal/infrastructure/logger"
	"github.com/IgorGrieder/linkdeck/internal/processing/faults"
	"go.uber.org/zap"
)

const (
	MinSequenceLength = 3
	MaxSequenceLength = 12
	DefaultLifetime   = 90 * 24 * time.Hour
	SessionIDLength   = 12

	trackTimeout = 2 * time.Second
)

type Service struct {
	repo     Repository
	sessions *GateSessions
	ids      IDGenerator
	lifetime time.Duration
	now      func() time.Time
	// track runs best-effort counter updates outside the request.
	track func(op string, fn func(ctx context.Context) error)
}

func NewService(repo Repository, sessions *GateSessions, ids IDGenerator, lifetime time.Duration) *Service {
	if lifetime <= 0 {
		lifetime = DefaultLifetime
	}
	return &Service{
		repo:     repo,
		sessions: sessions,
		ids:      ids,
		lifetime: lifetime,
		now:      time.Now,
		track:    trackDetached,
	}
}

func trackDetached(op string, fn func(ctx context.Context) error) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), trackTimeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			logger.Warn("unlocker tracking failed", zap.String("op", op), zap.Error(err))
		}
	}()
}

func (s *Service) Create(ctx context.Context, sess auth.Session, in CreateInput) (*Unlocker, error) {
	if !sess.Authenticated() {
		return nil, ErrAuthRequired
	}

	sequence, err := parseSequence(in.Sequence)
	if err != nil {
		return nil, err
	}
	destination, err := validateDestination(in.DestinationURL)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	expiresAt := now.Add(s.lifetime)
	if in.ExpiresAt != nil {
		if !in.ExpiresAt.After(now) {
			return nil, ErrInvalidExpiry
		}
		expiresAt = in.ExpiresAt.UTC()
	}

	u := &Unlocker{
		OwnerID:        sess.UserID,
		Sequence:       sequence,
		DestinationURL: destination,
		Title:          strings.TrimSpace(in.Title),
		CreatedAt:      now,
		ExpiresAt:      expiresAt,
	}
	if err := s.repo.Insert(ctx, u); err != nil {
		return nil, faults.Backend(err)
	}
	return u, nil
}

func (s *Service) ListMine(ctx context.Context, sess auth.Session) ([]Unlocker, error) {
	if !sess.Authenticated() {
		return []Unlocker{}, nil
	}
	out, err := s.repo.ListByOwner(ctx, sess.UserID)
	if err != nil {
		return nil, faults.Backend(err)
	}
	if out == nil {
		out = []Unlocker{}
	}
	return out, nil
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

// Open starts a gate session for a visitor. Expired unlockers are rejected
// before any gate exists. Every successful open counts as one click.
func (s *Service) Open(ctx context.Context, id string) (*Opened, error) {
	u, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, faults.Backend(err)
	}
	if u.Expired(s.now().UTC()) {
		return nil, ErrExpired
	}

	sessionID, err := s.ids.Generate(SessionIDLength)
	if err != nil {
		return nil, err
	}

	unlockerID := u.ID
	gate, err := NewGate(u.Sequence, func() {
		s.track("unlock", func(ctx context.Context) error {
			return s.repo.IncrementUnlocks(ctx, unlockerID)
		})
	})
	if err != nil {
		return nil, err
	}

	if err := s.sessions.open(sessionID, unlockerID, u.DestinationURL, gate); err != nil {
		return nil, err
	}
	s.track("click", func(ctx context.Context) error {
		return s.repo.IncrementClicks(ctx, unlockerID)
	})

	return &Opened{
		SessionID: sessionID,
		Title:     u.Title,
		Length:    len(u.Sequence),
		ExpiresAt: u.ExpiresAt,
	}, nil
}

// Click feeds one color into an open gate session.
func (s *Service) Click(_ context.Context, unlockerID, sessionID, color string) (ClickResult, error) {
	c, err := ParseColor(color)
	if err != nil {
		return ClickResult{}, err
	}
	return s.sessions.click(sessionID, unlockerID, c)
}

func parseSequence(raw []string) ([]Color, error) {
	if len(raw) < MinSequenceLength || len(raw) > MaxSequenceLength {
		return nil, ErrInvalidSequence
	}
	out := make([]Color, len(raw))
	for i, r := range raw {
		c, err := ParseColor(r)
		if err != nil {
			return nil, err
		}
		out[i] = c
	}
	return out, nil
}

func validateDestination(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if raw == "" || err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", ErrInvalidURL
	}
	return raw, nil
}

// Sweep drops idle gate sessions and reports how many are left.
func (s *Service) Sweep() (removed, active int) {
	removed = s.sessions.Sweep()
	return removed, s.sessions.Len()
}
