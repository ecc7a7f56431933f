package links

import "time"

type Link struct {
	ID          string
	ShortCode   string
	OriginalURL string
	Title       string
	OwnerID     *string
	CreatedAt   time.Time
	ExpiresAt   *time.Time
	Visits      int64
}

// Expired reports whether the link stopped resolving at now.
func (l *Link) Expired(now time.Time) bool {
	return l.ExpiresAt != nil && now.After(*l.ExpiresAt)
}

func (l *Link) OwnedBy(userID string) bool {
	return userID != "" && l.OwnerID != nil && *l.OwnerID == userID
}

// VisitEvent is the append-only record written next to the visit counter.
type VisitEvent struct {
	EventID    string
	LinkID     string
	Referrer   string
	UserAgent  string
	OccurredAt time.Time
}

type StoreInput struct {
	URL   string
	Title string
}

type UpdateInput struct {
	Title *string
}

type VisitInput struct {
	Referrer  string
	UserAgent string
}
