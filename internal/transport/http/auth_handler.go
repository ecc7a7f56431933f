package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/IgorGrieder/linkdeck/internal/auth"
	"github.com/IgorGrieder/linkdeck/internal/constants"
	"github.com/IgorGrieder/linkdeck/internal/infrastructure/logger"
	"github.com/IgorGrieder/linkdeck/internal/processing/accounts"
	"github.com/IgorGrieder/linkdeck/internal/transport/http/middleware"
	"github.com/IgorGrieder/linkdeck/pkg/httputils"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	oauthStateCookie = "oauthstate"
	oauthStateTTL    = 10 * time.Minute
)

// AccountService is implemented by *accounts.Service.
type AccountService interface {
	Register(ctx context.Context, in accounts.RegisterInput) (*accounts.User, error)
	Login(ctx context.Context, email, password string) (*accounts.Token, error)
	LoginWithGoogle(ctx context.Context, email, name string) (*accounts.Token, error)
	Profile(ctx context.Context, sess auth.Session) (*accounts.User, error)
	UpdateProfile(ctx context.Context, sess auth.Session, in accounts.ProfileInput) (*accounts.User, error)
	EffectiveLimit(u *accounts.User) int
	ListUsers(ctx context.Context, limit, offset int) ([]accounts.User, error)
	SetMonthlyLinkLimit(ctx context.Context, userID string, limit *int) (*accounts.User, error)
}

// GoogleAuthenticator is implemented by *auth.GoogleOAuth.
type GoogleAuthenticator interface {
	AuthCodeURL(state string) string
	Identify(ctx context.Context, code string) (auth.GoogleIdentity, error)
}

type AuthHandler struct {
	svc          AccountService
	google       GoogleAuthenticator
	frontendURL  string
	secureCookie bool
}

// NewAuthHandler builds the sign-in endpoints. A nil google disables the
// Google routes.
func NewAuthHandler(svc AccountService, google GoogleAuthenticator, frontendURL string, secureCookie bool) *AuthHandler {
	return &AuthHandler{
		svc:          svc,
		google:       google,
		frontendURL:  strings.TrimRight(frontendURL, "/"),
		secureCookie: secureCookie,
	}
}

type registerRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8,max=72"`
	DisplayName string `json:"displayName,omitempty" validate:"omitempty,max=80"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type tokenResponse struct {
	AccessToken string       `json:"accessToken"`
	TokenType   string       `json:"tokenType"`
	ExpiresAt   time.Time    `json:"expiresAt"`
	User        userResponse `json:"user"`
}

type userResponse struct {
	ID               string    `json:"id"`
	Email            string    `json:"email"`
	DisplayName      string    `json:"displayName"`
	Provider         string    `json:"provider"`
	MonthlyLinkLimit int       `json:"monthlyLinkLimit"`
	LimitOverridden  bool      `json:"limitOverridden"`
	CreatedAt        time.Time `json:"createdAt"`
}

func toUserResponse(svc AccountService, u *accounts.User) userResponse {
	return userResponse{
		ID:               u.ID,
		Email:            u.Email,
		DisplayName:      u.DisplayName,
		Provider:         u.Provider,
		MonthlyLinkLimit: svc.EffectiveLimit(u),
		LimitOverridden:  u.MonthlyLinkLimit != nil,
		CreatedAt:        u.CreatedAt,
	}
}

func (h *AuthHandler) toTokenResponse(t *accounts.Token) tokenResponse {
	return tokenResponse{
		AccessToken: t.AccessToken,
		TokenType:   "Bearer",
		ExpiresAt:   t.ExpiresAt,
		User:        toUserResponse(h.svc, t.User),
	}
}

// Register creates a password account and signs it in.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if _, err := h.svc.Register(r.Context(), accounts.RegisterInput{
		Email:       req.Email,
		Password:    req.Password,
		DisplayName: req.DisplayName,
	}); err != nil {
		writeError(w, r, "register", err)
		return
	}

	token, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, "login after register", err)
		return
	}
	httputils.WriteAPISuccess(w, r, constants.SuccessUserRegistered, h.toTokenResponse(token))
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	token, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, "login", err)
		return
	}
	httputils.WriteAPISuccess(w, r, constants.SuccessLoggedIn, h.toTokenResponse(token))
}

func (h *AuthHandler) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	if h.google == nil {
		httputils.WriteAPIError(w, r, constants.ErrGoogleDisabled)
		return
	}

	state := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/api/auth/google",
		MaxAge:   int(oauthStateTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, h.google.AuthCodeURL(state), http.StatusTemporaryRedirect)
}

// GoogleCallback finishes the code flow, stores the access token in the
// auth cookie and sends the browser back to the frontend.
func (h *AuthHandler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	if h.google == nil {
		httputils.WriteAPIError(w, r, constants.ErrGoogleDisabled)
		return
	}

	stateCookie, err := r.Cookie(oauthStateCookie)
	if err != nil || stateCookie.Value == "" || stateCookie.Value != r.URL.Query().Get("state") {
		httputils.WriteAPIError(w, r, constants.ErrUnauthorized.WithMessage("invalid oauth state"))
		return
	}
	http.SetCookie(w, &http.Cookie{Name: oauthStateCookie, Value: "", Path: "/api/auth/google", MaxAge: -1})

	code := r.URL.Query().Get("code")
	if code == "" {
		httputils.WriteAPIError(w, r, constants.ErrInvalidRequestBody.WithMessage("missing authorization code"))
		return
	}

	identity, err := h.google.Identify(r.Context(), code)
	if err != nil {
		logger.Warn("google sign-in failed", zap.Error(err))
		httputils.WriteAPIError(w, r, constants.ErrUnauthorized.WithMessage("google sign-in failed"))
		return
	}

	token, err := h.svc.LoginWithGoogle(r.Context(), identity.Email, identity.Name)
	if err != nil {
		writeError(w, r, "google login", err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AuthCookieName,
		Value:    token.AccessToken,
		Path:     "/",
		Expires:  token.ExpiresAt,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, h.frontendURL+"/dashboard", http.StatusFound)
}
