package biocards

import "time"

// Card is a public link-in-bio page. Links keep the order the owner gave.
type Card struct {
	ID        string
	OwnerID   string
	Slug      string
	Title     string
	Bio       string
	Links     []CardLink
	CreatedAt time.Time
	UpdatedAt time.Time
}

type CardLink struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

// CardInput replaces every editable field of a card.
type CardInput struct {
	Slug  string
	Title string
	Bio   string
	Links []CardLink
}
