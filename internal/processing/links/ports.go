package links

import (
	"context"
	"time"

	"github.com/IgorGrieder/linkdeck/internal/processing/faults"
)

var (
	ErrNotFound            = faults.Define(faults.ErrNotFound, "link not found")
	ErrInvalidURL          = faults.Define(faults.ErrValidation, "invalid url")
	ErrInvalidTitle        = faults.Define(faults.ErrValidation, "title is too long")
	ErrCodeTaken           = faults.Define(faults.ErrConflict, "short code taken")
	ErrQuotaExceeded       = faults.Define(faults.ErrQuotaExceeded, "monthly link limit reached")
	ErrGenerationExhausted = faults.Define(faults.ErrGenerationExhausted, "could not generate a unique short code")
	ErrDuplicateVisit      = faults.Define(faults.ErrConflict, "visit event already recorded")
)

// Repository is the link persistence port. Implementations return ErrNotFound
// for missing rows and ErrCodeTaken when the unique code index rejects an insert.
type Repository interface {
	Insert(ctx context.Context, link *Link) error
	ExistsByCode(ctx context.Context, code string) (bool, error)
	FindByCode(ctx context.Context, code string) (*Link, error)
	FindByID(ctx context.Context, id string) (*Link, error)
	// FindActiveByOriginalURL returns the oldest link for url that has not
	// expired at now.
	FindActiveByOriginalURL(ctx context.Context, url string, now time.Time) (*Link, error)
	ListByOwner(ctx context.Context, ownerID string) ([]Link, error)
	CountCreatedSince(ctx context.Context, ownerID string, since time.Time) (int64, error)
	UpdateTitle(ctx context.Context, id, ownerID, title string) (*Link, error)
	Delete(ctx context.Context, id, ownerID string) (bool, error)
	IncrementVisits(ctx context.Context, id string) error
}

// VisitLog appends visit events. Append returns ErrDuplicateVisit when the
// event id was already stored. An event counts as applied once the link
// counter was incremented for it.
type VisitLog interface {
	Append(ctx context.Context, ev VisitEvent) error
	Applied(ctx context.Context, eventID string) (bool, error)
	MarkApplied(ctx context.Context, eventID string) error
}

// VisitRecorder applies or enqueues one visit.
type VisitRecorder interface {
	RecordVisit(ctx context.Context, ev VisitEvent) error
}

// QuotaSource resolves the monthly creation limit for a user. Zero or less
// means unlimited.
type QuotaSource interface {
	MonthlyLinkLimit(ctx context.Context, userID string) (int, error)
}

type CodeGenerator interface {
	Generate(length int) (string, error)
}
