package accounts

import "time"

const (
	ProviderPassword = "password"
	ProviderGoogle   = "google"
)

type User struct {
	ID           string
	Email        string
	DisplayName  string
	PasswordHash string
	Provider     string
	// MonthlyLinkLimit overrides the configured default when set.
	MonthlyLinkLimit *int
	CreatedAt        time.Time
}

type RegisterInput struct {
	Email       string
	Password    string
	DisplayName string
}

type ProfileInput struct {
	DisplayName string
}

// Token is a signed access token handed back after a login.
type Token struct {
	AccessToken string
	ExpiresAt   time.Time
	User        *User
}
