package accounts

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/IgorGrieder/linkdeck/internal/auth"
	"github.com/IgorGrieder/linkdeck/internal/processing/faults"
)

const (
	minPasswordLength = 8
	maxNameLength     = 80
	maxListPage       = 200
)

type Service struct {
	repo         Repository
	tokens       Tokens
	defaultLimit int
	now          func() time.Time
	hash         func(string) (string, error)
}

// NewService wires the account service. defaultLimit is the monthly link
// quota applied to users without an override; 0 disables the quota.
func NewService(repo Repository, tokens Tokens, defaultLimit int) *Service {
	return &Service{
		repo:         repo,
		tokens:       tokens,
		defaultLimit: defaultLimit,
		now:          time.Now,
		hash:         auth.HashPassword,
	}
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (*User, error) {
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}
	if len(in.Password) < minPasswordLength {
		return nil, ErrWeakPassword
	}
	name, err := displayName(in.DisplayName, email)
	if err != nil {
		return nil, err
	}

	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, ErrNotFound) {
		return nil, faults.Backend(err)
	}

	hash, err := s.hash(in.Password)
	if err != nil {
		return nil, err
	}

	u := &User{
		Email:        email,
		DisplayName:  name,
		PasswordHash: hash,
		Provider:     ProviderPassword,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.repo.Insert(ctx, u); err != nil {
		return nil, faults.Backend(err)
	}
	return u, nil
}

// Login never tells the caller whether the email or the password was wrong.
func (s *Service) Login(ctx context.Context, email, password string) (*Token, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	u, err := s.repo.FindByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, faults.Backend(err)
	}
	if err := auth.CheckPassword(u.PasswordHash, password); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.issue(u)
}

// LoginWithGoogle signs in the owner of a verified Google address, creating
// the account on first use.
func (s *Service) LoginWithGoogle(ctx context.Context, email, name string) (*Token, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}

	u, err := s.repo.FindByEmail(ctx, email)
	switch {
	case err == nil:
		return s.issue(u)
	case !errors.Is(err, ErrNotFound):
		return nil, faults.Backend(err)
	}

	display, err := displayName(name, email)
	if err != nil {
		display = email
	}
	u = &User{
		Email:       email,
		DisplayName: display,
		Provider:    ProviderGoogle,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.repo.Insert(ctx, u); err != nil {
		if !errors.Is(err, ErrEmailTaken) {
			return nil, faults.Backend(err)
		}
		// lost a race with a concurrent first sign-in
		if u, err = s.repo.FindByEmail(ctx, email); err != nil {
			return nil, faults.Backend(err)
		}
	}
	return s.issue(u)
}

func (s *Service) issue(u *User) (*Token, error) {
	token, expiresAt, err := s.tokens.Issue(u.ID)
	if err != nil {
		return nil, err
	}
	return &Token{AccessToken: token, ExpiresAt: expiresAt, User: u}, nil
}

func (s *Service) Profile(ctx context.Context, sess auth.Session) (*User, error) {
	if !sess.Authenticated() {
		return nil, ErrSignInRequired
	}
	u, err := s.repo.FindByID(ctx, sess.UserID)
	if err != nil {
		return nil, faults.Backend(err)
	}
	return u, nil
}

func (s *Service) UpdateProfile(ctx context.Context, sess auth.Session, in ProfileInput) (*User, error) {
	if !sess.Authenticated() {
		return nil, ErrSignInRequired
	}
	name := strings.TrimSpace(in.DisplayName)
	if name == "" || len(name) > maxNameLength {
		return nil, ErrInvalidName
	}

	u, err := s.repo.UpdateDisplayName(ctx, sess.UserID, name)
	if err != nil {
		return nil, faults.Backend(err)
	}
	return u, nil
}

// MonthlyLinkLimit implements links.QuotaSource.
func (s *Service) MonthlyLinkLimit(ctx context.Context, userID string) (int, error) {
	u, err := s.repo.FindByID(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return s.defaultLimit, nil
	}
	if err != nil {
		return 0, faults.Backend(err)
	}
	return s.EffectiveLimit(u), nil
}

func (s *Service) EffectiveLimit(u *User) int {
	if u.MonthlyLinkLimit != nil {
		return *u.MonthlyLinkLimit
	}
	return s.defaultLimit
}

func (s *Service) ListUsers(ctx context.Context, limit, offset int) ([]User, error) {
	if limit <= 0 || limit > maxListPage {
		limit = maxListPage
	}
	if offset < 0 {
		offset = 0
	}
	out, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		return nil, faults.Backend(err)
	}
	if out == nil {
		out = []User{}
	}
	return out, nil
}

// SetMonthlyLinkLimit stores a per-user override. A nil limit restores the
// configured default.
func (s *Service) SetMonthlyLinkLimit(ctx context.Context, userID string, limit *int) (*User, error) {
	if limit != nil && *limit < 0 {
		return nil, ErrInvalidLimit
	}
	u, err := s.repo.SetMonthlyLinkLimit(ctx, userID, limit)
	if err != nil {
		return nil, faults.Backend(err)
	}
	return u, nil
}

func normalizeEmail(raw string) (string, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	addr, err := mail.ParseAddress(raw)
	if err != nil || addr.Address != raw {
		return "", ErrInvalidEmail
	}
	return raw, nil
}

func displayName(raw, email string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" {
		name, _, _ = strings.Cut(email, "@")
	}
	if len(name) > maxNameLength {
		return "", ErrInvalidName
	}
	return name, nil
}
