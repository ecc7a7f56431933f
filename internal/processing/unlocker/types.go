package unlocker

import (
	"strings"
	"time"
)

type Color string

const (
	Red    Color = "red"
	Blue   Color = "blue"
	Green  Color = "green"
	Yellow Color = "yellow"
)

var Palette = []Color{Red, Blue, Green, Yellow}

func ParseColor(raw string) (Color, error) {
	c := Color(strings.ToLower(strings.TrimSpace(raw)))
	switch c {
	case Red, Blue, Green, Yellow:
		return c, nil
	}
	return "", ErrInvalidColor
}

type Unlocker struct {
	ID             string
	OwnerID        string
	Sequence       []Color
	DestinationURL string
	Title          string
	Clicks         int64
	Unlocks        int64
	CreatedAt      time.Time
	ExpiresAt      time.Time
}

func (u *Unlocker) Expired(now time.Time) bool {
	return now.After(u.ExpiresAt)
}

type CreateInput struct {
	Sequence       []string
	DestinationURL string
	Title          string
	ExpiresAt      *time.Time
}

// Opened is returned when a visitor enters a gate.
type Opened struct {
	SessionID string
	Title     string
	Length    int
	ExpiresAt time.Time
}

type ClickResult struct {
	Step
	DestinationURL string
	// JustUnlocked is true only for the click that completed the sequence.
	JustUnlocked bool
}
