package http

import (
	"context"
	"net/http"
	"time"

	"github.com/IgorGrieder/linkdeck/internal/auth"
	"github.com/IgorGrieder/linkdeck/internal/constants"
	"github.com/IgorGrieder/linkdeck/internal/metrics"
	"github.com/IgorGrieder/linkdeck/internal/processing/unlocker"
	"github.com/IgorGrieder/linkdeck/pkg/httputils"
)

// UnlockerService is implemented by *unlocker.Service.
type UnlockerService interface {
	Create(ctx context.Context, sess auth.Session, in unlocker.CreateInput) (*unlocker.Unlocker, error)
	ListMine(ctx context.Context, sess auth.Session) ([]unlocker.Unlocker, error)
	Delete(ctx context.Context, sess auth.Session, id string) error
	Open(ctx context.Context, id string) (*unlocker.Opened, error)
	Click(ctx context.Context, unlockerID, sessionID, color string) (unlocker.ClickResult, error)
}

type UnlockerHandler struct {
	svc UnlockerService
}

func NewUnlockerHandler(svc UnlockerService) *UnlockerHandler {
	return &UnlockerHandler{svc: svc}
}

type createUnlockerRequest struct {
	Sequence       []string   `json:"sequence" validate:"required,min=3,max=12,dive,color"`
	DestinationURL string     `json:"destinationUrl" validate:"required,notblank,http_url"`
	Title          string     `json:"title,omitempty" validate:"omitempty,max=120"`
	ExpiresAt      *time.Time `json:"expiresAt,omitempty" validate:"omitempty,future"`
}

type clickRequest struct {
	Color string `json:"color" validate:"required,color"`
}

// unlockerResponse is the owner's view; visitors never see the sequence.
type unlockerResponse struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Sequence       []string  `json:"sequence"`
	DestinationURL string    `json:"destinationUrl"`
	Clicks         int64     `json:"clicks"`
	Unlocks        int64     `json:"unlocks"`
	CreatedAt      time.Time `json:"createdAt"`
	ExpiresAt      time.Time `json:"expiresAt"`
}

type gateResponse struct {
	SessionID string    `json:"sessionId"`
	Title     string    `json:"title"`
	Length    int       `json:"length"`
	ExpiresAt time.Time `json:"expiresAt"`
	Palette   []string  `json:"palette"`
}

type clickResponse struct {
	State          string `json:"state"`
	Progress       int    `json:"progress"`
	Length         int    `json:"length"`
	DestinationURL string `json:"destinationUrl,omitempty"`
}

func toUnlockerResponse(u *unlocker.Unlocker) unlockerResponse {
	seq := make([]string, len(u.Sequence))
	for i, c := range u.Sequence {
		seq[i] = string(c)
	}
	return unlockerResponse{
		ID:             u.ID,
		Title:          u.Title,
		Sequence:       seq,
		DestinationURL: u.DestinationURL,
		Clicks:         u.Clicks,
		Unlocks:        u.Unlocks,
		CreatedAt:      u.CreatedAt,
		ExpiresAt:      u.ExpiresAt,
	}
}

func (h *UnlockerHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createUnlockerRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	u, err := h.svc.Create(r.Context(), auth.FromContext(r.Context()), unlocker.CreateInput{
		Sequence:       req.Sequence,
		DestinationURL: req.DestinationURL,
		Title:          req.Title,
		ExpiresAt:      req.ExpiresAt,
	})
	if err != nil {
		writeError(w, r, "create unlocker", err)
		return
	}
	httputils.WriteAPISuccess(w, r, constants.SuccessUnlockerCreated, toUnlockerResponse(u))
}

func (h *UnlockerHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListMine(r.Context(), auth.FromContext(r.Context()))
	if err != nil {
		writeError(w, r, "list unlockers", err)
		return
	}
	out := make([]unlockerResponse, 0, len(list))
	for i := range list {
		out = append(out, toUnlockerResponse(&list[i]))
	}
	httputils.WriteAPISuccess(w, r, constants.SuccessUnlockersListed, out)
}

func (h *UnlockerHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.svc.Delete(r.Context(), auth.FromContext(r.Context()), id); err != nil {
		writeError(w, r, "delete unlocker", err)
		return
	}
	httputils.WriteAPISuccess(w, r, constants.SuccessUnlockerDeleted, map[string]string{"id": id})
}

// Open starts a gate session for an anonymous visitor.
func (h *UnlockerHandler) Open(w http.ResponseWriter, r *http.Request) {
	opened, err := h.svc.Open(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, "open gate", err)
		return
	}

	palette := make([]string, len(unlocker.Palette))
	for i, c := range unlocker.Palette {
		palette[i] = string(c)
	}
	httputils.WriteAPISuccess(w, r, constants.SuccessGateOpened, gateResponse{
		SessionID: opened.SessionID,
		Title:     opened.Title,
		Length:    opened.Length,
		ExpiresAt: opened.ExpiresAt,
		Palette:   palette,
	})
}

func (h *UnlockerHandler) Click(w http.ResponseWriter, r *http.Request) {
	var req clickRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	res, err := h.svc.Click(r.Context(), r.PathValue("id"), r.PathValue("sid"), req.Color)
	if err != nil {
		writeError(w, r, "gate click", err)
		return
	}
	if res.JustUnlocked {
		metrics.Unlocks.Inc()
	}

	httputils.WriteAPISuccess(w, r, constants.SuccessGateClicked, clickResponse{
		State:          res.State.String(),
		Progress:       res.Progress,
		Length:         res.Length,
		DestinationURL: res.DestinationURL,
	})
}
