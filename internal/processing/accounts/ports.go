package accounts

import (
	"context"
	"time"

	"github.com/IgorGrieder/linkdeck/internal/processing/faults"
)

var (
	ErrNotFound           = faults.Define(faults.ErrNotFound, "user not found")
	ErrEmailTaken         = faults.Define(faults.ErrConflict, "email already registered")
	ErrInvalidEmail       = faults.Define(faults.ErrValidation, "invalid email")
	ErrWeakPassword       = faults.Define(faults.ErrValidation, "password must have at least 8 characters")
	ErrInvalidName        = faults.Define(faults.ErrValidation, "display name is too long")
	ErrInvalidLimit       = faults.Define(faults.ErrValidation, "monthly link limit must be >= 0")
	ErrInvalidCredentials = faults.Define(faults.ErrUnauthorized, "invalid email or password")
	ErrSignInRequired     = faults.Define(faults.ErrUnauthorized, "sign in required")
)

// Repository returns ErrNotFound for missing users and ErrEmailTaken when the
// unique email index rejects an insert.
type Repository interface {
	Insert(ctx context.Context, u *User) error
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id string) (*User, error)
	List(ctx context.Context, limit, offset int) ([]User, error)
	UpdateDisplayName(ctx context.Context, id, name string) (*User, error)
	SetMonthlyLinkLimit(ctx context.Context, id string, limit *int) (*User, error)
}

type Tokens interface {
	Issue(userID string) (string, time.Time, error)
}
