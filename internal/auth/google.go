package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/IgorGrieder/linkdeck/pkg/httpclient"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"

var ErrEmailNotVerified = errors.New("google account email is not verified")

// GoogleIdentity is the subset of the userinfo response used for sign-in.
type GoogleIdentity struct {
	Subject       string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
}

// GoogleOAuth runs the authorization code flow against Google.
type GoogleOAuth struct {
	config      *oauth2.Config
	client      *httpclient.Client
	userInfoURL string
}

func NewGoogleOAuth(clientID, clientSecret, redirectURL string, client *httpclient.Client) *GoogleOAuth {
	return &GoogleOAuth{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		},
		client:      client,
		userInfoURL: googleUserInfoURL,
	}
}

func (g *GoogleOAuth) AuthCodeURL(state string) string {
	return g.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Identify exchanges code for a token and loads the signed-in user's profile.
// Only verified email addresses are accepted.
func (g *GoogleOAuth) Identify(ctx context.Context, code string) (GoogleIdentity, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, g.client.HTTPClient())
	token, err := g.config.Exchange(ctx, code)
	if err != nil {
		return GoogleIdentity{}, fmt.Errorf("exchange code: %w", err)
	}

	var id GoogleIdentity
	headers := map[string]string{"Authorization": "Bearer " + token.AccessToken}
	if err := g.client.GetJSON(ctx, g.userInfoURL, headers, &id); err != nil {
		return GoogleIdentity{}, fmt.Errorf("fetch userinfo: %w", err)
	}
	id.Email = strings.TrimSpace(id.Email)
	if id.Email == "" || !id.EmailVerified {
		return GoogleIdentity{}, ErrEmailNotVerified
	}
	return id, nil
}
