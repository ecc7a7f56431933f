package biocards

import (
	"context"

	"github.com/IgorGrieder/linkdeck/internal/processing/faults"
)

var (
	ErrNotFound      = faults.Define(faults.ErrNotFound, "bio card not found")
	ErrSlugTaken     = faults.Define(faults.ErrConflict, "slug already taken")
	ErrInvalidSlug   = faults.Define(faults.ErrValidation, "slug must be 3-32 letters, digits, '-' or '_'")
	ErrInvalidTitle  = faults.Define(faults.ErrValidation, "title is required and must be at most 120 characters")
	ErrInvalidBio    = faults.Define(faults.ErrValidation, "bio must be at most 500 characters")
	ErrTooManyLinks  = faults.Define(faults.ErrValidation, "a card holds at most 50 links")
	ErrInvalidLink   = faults.Define(faults.ErrValidation, "each link needs a label and an http(s) url")
	ErrAuthRequired  = faults.Define(faults.ErrUnauthorized, "sign in to manage bio cards")
	ErrSlugExhausted = faults.Define(faults.ErrGenerationExhausted, "could not generate a free slug")
)

// Repository returns ErrNotFound for missing cards and ErrSlugTaken when the
// unique slug index rejects a write.
type Repository interface {
	Insert(ctx context.Context, c *Card) error
	Update(ctx context.Context, c *Card) error
	FindByID(ctx context.Context, id string) (*Card, error)
	FindBySlug(ctx context.Context, slug string) (*Card, error)
	ListByOwner(ctx context.Context, ownerID string) ([]Card, error)
	Delete(ctx context.Context, id, ownerID string) (bool, error)
}

type SlugGenerator interface {
	Generate(length int) (string, error)
}
