package http

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/IgorGrieder/linkdeck/internal/auth"
	"github.com/IgorGrieder/linkdeck/internal/processing/accounts"
	"github.com/IgorGrieder/linkdeck/internal/processing/biocards"
	"github.com/IgorGrieder/linkdeck/internal/processing/links"
	"github.com/IgorGrieder/linkdeck/internal/processing/unlocker"
	"github.com/IgorGrieder/linkdeck/pkg/httputils"
)

type mockLinkService struct {
	StoreURLFn       func(ctx context.Context, sess auth.Session, in links.StoreInput) (*links.Link, bool, error)
	GetByShortCodeFn func(ctx context.Context, code string) (*links.Link, error)
	GetUserURLsFn    func(ctx context.Context, sess auth.Session) ([]links.Link, error)
	UpdateURLDataFn  func(ctx context.Context, sess auth.Session, id string, in links.UpdateInput) (*links.Link, error)
	DeleteLinkFn     func(ctx context.Context, sess auth.Session, id string) error
	TrackVisitFn     func(ctx context.Context, link *links.Link, in links.VisitInput) error
}

func (m *mockLinkService) StoreURL(ctx context.Context, sess auth.Session, in links.StoreInput) (*links.Link, bool, error) {
	return m.StoreURLFn(ctx, sess, in)
}
func (m *mockLinkService) GetByShortCode(ctx context.Context, code string) (*links.Link, error) {
	return m.GetByShortCodeFn(ctx, code)
}
func (m *mockLinkService) GetUserURLs(ctx context.Context, sess auth.Session) ([]links.Link, error) {
	return m.GetUserURLsFn(ctx, sess)
}
func (m *mockLinkService) UpdateURLData(ctx context.Context, sess auth.Session, id string, in links.UpdateInput) (*links.Link, error) {
	return m.UpdateURLDataFn(ctx, sess, id, in)
}
func (m *mockLinkService) DeleteLink(ctx context.Context, sess auth.Session, id string) error {
	return m.DeleteLinkFn(ctx, sess, id)
}
func (m *mockLinkService) TrackVisit(ctx context.Context, link *links.Link, in links.VisitInput) error {
	if m.TrackVisitFn == nil {
		return nil
	}
	return m.TrackVisitFn(ctx, link, in)
}
func (m *mockLinkService) Expiration(*links.Link) links.Expiration {
	return links.Expiration{Percentage: 10, DaysLeft: 81}
}

type mockAccountService struct {
	RegisterFn        func(ctx context.Context, in accounts.RegisterInput) (*accounts.User, error)
	LoginFn           func(ctx context.Context, email, password string) (*accounts.Token, error)
	LoginWithGoogleFn func(ctx context.Context, email, name string) (*accounts.Token, error)
	ProfileFn         func(ctx context.Context, sess auth.Session) (*accounts.User, error)
	UpdateProfileFn   func(ctx context.Context, sess auth.Session, in accounts.ProfileInput) (*accounts.User, error)
	ListUsersFn       func(ctx context.Context, limit, offset int) ([]accounts.User, error)
	SetLimitFn        func(ctx context.Context, userID string, limit *int) (*accounts.User, error)
}

func (m *mockAccountService) Register(ctx context.Context, in accounts.RegisterInput) (*accounts.User, error) {
	return m.RegisterFn(ctx, in)
}
func (m *mockAccountService) Login(ctx context.Context, email, password string) (*accounts.Token, error) {
	return m.LoginFn(ctx, email, password)
}
func (m *mockAccountService) LoginWithGoogle(ctx context.Context, email, name string) (*accounts.Token, error) {
	return m.LoginWithGoogleFn(ctx, email, name)
}
func (m *mockAccountService) Profile(ctx context.Context, sess auth.Session) (*accounts.User, error) {
	return m.ProfileFn(ctx, sess)
}
func (m *mockAccountService) UpdateProfile(ctx context.Context, sess auth.Session, in accounts.ProfileInput) (*accounts.User, error) {
	return m.UpdateProfileFn(ctx, sess, in)
}
func (m *mockAccountService) EffectiveLimit(u *accounts.User) int {
	if u.MonthlyLinkLimit != nil {
		return *u.MonthlyLinkLimit
	}
	return 50
}
func (m *mockAccountService) ListUsers(ctx context.Context, limit, offset int) ([]accounts.User, error) {
	return m.ListUsersFn(ctx, limit, offset)
}
func (m *mockAccountService) SetMonthlyLinkLimit(ctx context.Context, userID string, limit *int) (*accounts.User, error) {
	return m.SetLimitFn(ctx, userID, limit)
}

type mockUnlockerService struct {
	CreateFn   func(ctx context.Context, sess auth.Session, in unlocker.CreateInput) (*unlocker.Unlocker, error)
	ListMineFn func(ctx context.Context, sess auth.Session) ([]unlocker.Unlocker, error)
	DeleteFn   func(ctx context.Context, sess auth.Session, id string) error
	OpenFn     func(ctx context.Context, id string) (*unlocker.Opened, error)
	ClickFn    func(ctx context.Context, unlockerID, sessionID, color string) (unlocker.ClickResult, error)
}

func (m *mockUnlockerService) Create(ctx context.Context, sess auth.Session, in unlocker.CreateInput) (*unlocker.Unlocker, error) {
	return m.CreateFn(ctx, sess, in)
}
func (m *mockUnlockerService) ListMine(ctx context.Context, sess auth.Session) ([]unlocker.Unlocker, error) {
	return m.ListMineFn(ctx, sess)
}
func (m *mockUnlockerService) Delete(ctx context.Context, sess auth.Session, id string) error {
	return m.DeleteFn(ctx, sess, id)
}
func (m *mockUnlockerService) Open(ctx context.Context, id string) (*unlocker.Opened, error) {
	return m.OpenFn(ctx, id)
}
func (m *mockUnlockerService) Click(ctx context.Context, unlockerID, sessionID, color string) (unlocker.ClickResult, error) {
	return m.ClickFn(ctx, unlockerID, sessionID, color)
}

type mockBioCardService struct {
	CreateFn    func(ctx context.Context, sess auth.Session, in biocards.CardInput) (*biocards.Card, error)
	UpdateFn    func(ctx context.Context, sess auth.Session, id string, in biocards.CardInput) (*biocards.Card, error)
	DeleteFn    func(ctx context.Context, sess auth.Session, id string) error
	ListMineFn  func(ctx context.Context, sess auth.Session) ([]biocards.Card, error)
	GetPublicFn func(ctx context.Context, slug string) (*biocards.Card, error)
}

func (m *mockBioCardService) Create(ctx context.Context, sess auth.Session, in biocards.CardInput) (*biocards.Card, error) {
	return m.CreateFn(ctx, sess, in)
}
func (m *mockBioCardService) Update(ctx context.Context, sess auth.Session, id string, in biocards.CardInput) (*biocards.Card, error) {
	return m.UpdateFn(ctx, sess, id, in)
}
func (m *mockBioCardService) Delete(ctx context.Context, sess auth.Session, id string) error {
	return m.DeleteFn(ctx, sess, id)
}
func (m *mockBioCardService) ListMine(ctx context.Context, sess auth.Session) ([]biocards.Card, error) {
	return m.ListMineFn(ctx, sess)
}
func (m *mockBioCardService) GetPublic(ctx context.Context, slug string) (*biocards.Card, error) {
	return m.GetPublicFn(ctx, slug)
}

// decodeEnvelope decodes the response envelope; data is decoded into dst
// when dst is non-nil.
func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder, dst any) httputils.APIResponse {
	t.Helper()
	var raw struct {
		httputils.APIResponse
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &raw); err != nil {
		t.Fatalf("decode envelope: %v (body %s)", err, rec.Body.String())
	}
	if dst != nil && len(raw.Data) > 0 {
		if err := json.Unmarshal(raw.Data, dst); err != nil {
			t.Fatalf("decode data: %v", err)
		}
	}
	return raw.APIResponse
}

func withSession(ctx context.Context, userID string) context.Context {
	return auth.WithSession(ctx, auth.NewSession(userID))
}
