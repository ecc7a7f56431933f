package unlocker

import (
	"context"

	"github.com/IgorGrieder/linkdeck/internal/processing/faults"
)

var (
	ErrNotFound        = faults.Define(faults.ErrNotFound, "unlocker not found")
	ErrExpired         = faults.Define(faults.ErrNotFound, "unlocker expired")
	ErrSessionNotFound = faults.Define(faults.ErrNotFound, "gate session not found")
	ErrTooManySessions = faults.Define(faults.ErrBackendUnavailable, "too many open gate sessions")
	ErrInvalidColor    = faults.Define(faults.ErrValidation, "color must be red, blue, green or yellow")
	ErrInvalidSequence = faults.Define(faults.ErrValidation, "sequence must have between 3 and 12 colors")
	ErrInvalidURL      = faults.Define(faults.ErrValidation, "invalid destination url")
	ErrInvalidExpiry   = faults.Define(faults.ErrValidation, "expiry must be in the future")
	ErrEmptySequence   = faults.Define(faults.ErrValidation, "gate needs a non-empty sequence")
	ErrAuthRequired    = faults.Define(faults.ErrUnauthorized, "sign in to manage unlockers")
)

type Repository interface {
	Insert(ctx context.Context, u *Unlocker) error
	FindByID(ctx context.Context, id string) (*Unlocker, error)
	ListByOwner(ctx context.Context, ownerID string) ([]Unlocker, error)
	Delete(ctx context.Context, id, ownerID string) (bool, error)
	IncrementClicks(ctx context.Context, id string) error
	IncrementUnlocks(ctx context.Context, id string) error
}

type IDGenerator interface {
	Generate(length int) (string, error)
}
