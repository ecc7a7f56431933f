package links

import (
	"math"
	"time"
)

const msPerDay = 86_400_000

// Expiration describes how far a link has progressed toward its expiry.
type Expiration struct {
	Percentage int `json:"percentage"`
	DaysLeft   int `json:"daysLeft"`
}

// CalculateExpiration returns the elapsed share of the link lifetime (0-100)
// and the whole days remaining, rounded up. DaysLeft is negative as soon as
// the link has expired, so the first overdue day reports -1. Links without an expiry report {0, 0}.
func CalculateExpiration(createdAt time.Time, expiresAt *time.Time, now time.Time) Expiration {
	if expiresAt == nil {
		return Expiration{}
	}

	created := createdAt.UnixMilli()
	expires := expiresAt.UnixMilli()
	current := now.UnixMilli()

	var percentage int
	if total := expires - created; total > 0 {
		ratio := float64(current-created) / float64(total) * 100
		percentage = clamp(int(math.Floor(ratio)), 0, 100)
	} else {
		percentage = 100
	}

	remaining := float64(expires-current) / msPerDay
	daysLeft := int(math.Ceil(remaining))
	if remaining < 0 && daysLeft == 0 {
		daysLeft = -1
	}

	return Expiration{Percentage: percentage, DaysLeft: daysLeft}
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
