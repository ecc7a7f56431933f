package http

import (
	"context"
	"net/http"
	"time"

	"github.com/IgorGrieder/linkdeck/internal/auth"
	"github.com/IgorGrieder/linkdeck/internal/constants"
	"github.com/IgorGrieder/linkdeck/internal/processing/biocards"
	"github.com/IgorGrieder/linkdeck/pkg/httputils"
)

// BioCardService is implemented by *biocards.Service.
type BioCardService interface {
	Create(ctx context.Context, sess auth.Session, in biocards.CardInput) (*biocards.Card, error)
	Update(ctx context.Context, sess auth.Session, id string, in biocards.CardInput) (*biocards.Card, error)
	Delete(ctx context.Context, sess auth.Session, id string) error
	ListMine(ctx context.Context, sess auth.Session) ([]biocards.Card, error)
	GetPublic(ctx context.Context, slug string) (*biocards.Card, error)
}

type BioCardsHandler struct {
	svc BioCardService
}

func NewBioCardsHandler(svc BioCardService) *BioCardsHandler {
	return &BioCardsHandler{svc: svc}
}

type cardLinkRequest struct {
	Label string `json:"label" validate:"required,notblank,max=80"`
	URL   string `json:"url" validate:"required,http_url"`
}

type cardRequest struct {
	Slug  string            `json:"slug,omitempty" validate:"omitempty,min=3,max=32"`
	Title string            `json:"title" validate:"required,notblank,max=120"`
	Bio   string            `json:"bio,omitempty" validate:"max=500"`
	Links []cardLinkRequest `json:"links" validate:"max=50,dive"`
}

func (req cardRequest) input() biocards.CardInput {
	in := biocards.CardInput{Slug: req.Slug, Title: req.Title, Bio: req.Bio}
	for _, l := range req.Links {
		in.Links = append(in.Links, biocards.CardLink{Label: l.Label, URL: l.URL})
	}
	return in
}

type cardResponse struct {
	ID        string              `json:"id"`
	Slug      string              `json:"slug"`
	Title     string              `json:"title"`
	Bio       string              `json:"bio"`
	Links     []biocards.CardLink `json:"links"`
	CreatedAt time.Time           `json:"createdAt"`
	UpdatedAt time.Time           `json:"updatedAt"`
}

// publicCardResponse omits ids and timestamps.
type publicCardResponse struct {
	Slug  string              `json:"slug"`
	Title string              `json:"title"`
	Bio   string              `json:"bio"`
	Links []biocards.CardLink `json:"links"`
}

func toCardResponse(c *biocards.Card) cardResponse {
	links := c.Links
	if links == nil {
		links = []biocards.CardLink{}
	}
	return cardResponse{
		ID:        c.ID,
		Slug:      c.Slug,
		Title:     c.Title,
		Bio:       c.Bio,
		Links:     links,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func (h *BioCardsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req cardRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	card, err := h.svc.Create(r.Context(), auth.FromContext(r.Context()), req.input())
	if err != nil {
		writeError(w, r, "create bio card", err)
		return
	}
	httputils.WriteAPISuccess(w, r, constants.SuccessBioCardCreated, toCardResponse(card))
}

func (h *BioCardsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req cardRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	card, err := h.svc.Update(r.Context(), auth.FromContext(r.Context()), r.PathValue("id"), req.input())
	if err != nil {
		writeError(w, r, "update bio card", err)
		return
	}
	httputils.WriteAPISuccess(w, r, constants.SuccessBioCardUpdated, toCardResponse(card))
}

func (h *BioCardsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.svc.Delete(r.Context(), auth.FromContext(r.Context()), id); err != nil {
		writeError(w, r, "delete bio card", err)
		return
	}
	httputils.WriteAPISuccess(w, r, constants.SuccessBioCardDeleted, map[string]string{"id": id})
}

func (h *BioCardsHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListMine(r.Context(), auth.FromContext(r.Context()))
	if err != nil {
		writeError(w, r, "list bio cards", err)
		return
	}
	out := make([]cardResponse, 0, len(list))
	for i := range list {
		out = append(out, toCardResponse(&list[i]))
	}
	httputils.WriteAPISuccess(w, r, constants.SuccessBioCardsListed, out)
}

func (h *BioCardsHandler) Public(w http.ResponseWriter, r *http.Request) {
	card, err := h.svc.GetPublic(r.Context(), r.PathValue("slug"))
	if err != nil {
		writeError(w, r, "get bio card", err)
		return
	}
	full := toCardResponse(card)
	httputils.WriteAPISuccess(w, r, constants.SuccessBioCardFound, publicCardResponse{
		Slug:  full.Slug,
		Title: full.Title,
		Bio:   full.Bio,
		Links: full.Links,
	})
}
