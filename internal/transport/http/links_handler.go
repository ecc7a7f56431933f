package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/IgorGrieder/linkdeck/internal/auth"
	"github.com/IgorGrieder/linkdeck/internal/constants"
	"github.com/IgorGrieder/linkdeck/internal/infrastructure/logger"
	"github.com/IgorGrieder/linkdeck/internal/metrics"
	"github.com/IgorGrieder/linkdeck/internal/processing/analytics"
	"github.com/IgorGrieder/linkdeck/internal/processing/links"
	"github.com/IgorGrieder/linkdeck/pkg/httputils"
	"go.uber.org/zap"
)

// LinkService is implemented by *links.Service.
type LinkService interface {
	StoreURL(ctx context.Context, sess auth.Session, in links.StoreInput) (*links.Link, bool, error)
	GetByShortCode(ctx context.Context, code string) (*links.Link, error)
	GetUserURLs(ctx context.Context, sess auth.Session) ([]links.Link, error)
	UpdateURLData(ctx context.Context, sess auth.Session, id string, in links.UpdateInput) (*links.Link, error)
	DeleteLink(ctx context.Context, sess auth.Session, id string) error
	TrackVisit(ctx context.Context, link *links.Link, in links.VisitInput) error
	Expiration(link *links.Link) links.Expiration
}

type LinksHandlerOptions struct {
	BaseURL        string
	RedirectStatus int
	TrackTimeout   time.Duration
}

type LinksHandler struct {
	svc  LinkService
	opts LinksHandlerOptions
	now  func() time.Time
	// detach runs visit tracking after the redirect was written.
	detach func(fn func())
}

func NewLinksHandler(svc LinkService, opts LinksHandlerOptions) *LinksHandler {
	if opts.RedirectStatus != http.StatusMovedPermanently {
		opts.RedirectStatus = http.StatusFound
	}
	if opts.TrackTimeout <= 0 {
		opts.TrackTimeout = 2 * time.Second
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")

	return &LinksHandler{
		svc:    svc,
		opts:   opts,
		now:    time.Now,
		detach: func(fn func()) { go fn() },
	}
}

type createLinkRequest struct {
	URL   string `json:"url" validate:"required,notblank,http_url"`
	Title string `json:"title,omitempty" validate:"omitempty,max=255"`
}

type updateLinkRequest struct {
	Title *string `json:"title" validate:"required,max=255"`
}

type linkResponse struct {
	ID          string           `json:"id"`
	ShortCode   string           `json:"shortCode"`
	ShortURL    string           `json:"shortUrl"`
	OriginalURL string           `json:"originalUrl"`
	Title       string           `json:"title"`
	Visits      int64            `json:"visits"`
	CreatedAt   time.Time        `json:"createdAt"`
	ExpiresAt   *time.Time       `json:"expiresAt,omitempty"`
	Expiration  links.Expiration `json:"expiration"`
}

func (h *LinksHandler) toResponse(l *links.Link) linkResponse {
	return linkResponse{
		ID:          l.ID,
		ShortCode:   l.ShortCode,
		ShortURL:    h.opts.BaseURL + "/" + l.ShortCode,
		OriginalURL: l.OriginalURL,
		Title:       l.Title,
		Visits:      l.Visits,
		CreatedAt:   l.CreatedAt,
		ExpiresAt:   l.ExpiresAt,
		Expiration:  h.svc.Expiration(l),
	}
}

func (h *LinksHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createLinkRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	link, created, err := h.svc.StoreURL(r.Context(), auth.FromContext(r.Context()), links.StoreInput{
		URL:   req.URL,
		Title: req.Title,
	})
	if err != nil {
		writeError(w, r, "store link", err)
		return
	}

	metrics.LinkStored(created)
	status := constants.SuccessLinkReused
	if created {
		status = constants.SuccessLinkCreated
	}
	httputils.WriteAPISuccess(w, r, status, h.toResponse(link))
}

// Get returns public information about an active short code.
func (h *LinksHandler) Get(w http.ResponseWriter, r *http.Request) {
	link, err := h.svc.GetByShortCode(r.Context(), r.PathValue("code"))
	if err != nil {
		writeError(w, r, "get link", err)
		return
	}
	httputils.WriteAPISuccess(w, r, constants.SuccessLinkFound, h.toResponse(link))
}

func (h *LinksHandler) Redirect(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")

	link, err := h.svc.GetByShortCode(r.Context(), code)
	if err != nil {
		apiErr := apiError(err)
		if apiErr.Status == http.StatusNotFound {
			metrics.Redirects.WithLabelValues(metrics.RedirectMissing).Inc()
		} else {
			metrics.Redirects.WithLabelValues(metrics.RedirectError).Inc()
		}
		writeError(w, r, "resolve short code", err)
		return
	}
	metrics.Redirects.WithLabelValues(metrics.RedirectFound).Inc()

	visit := links.VisitInput{Referrer: r.Referer(), UserAgent: r.UserAgent()}
	// keep the request's trace but not its cancellation
	trackCtx := context.WithoutCancel(r.Context())
	h.detach(func() {
		ctx, cancel := context.WithTimeout(trackCtx, h.opts.TrackTimeout)
		defer cancel()
		if err := h.svc.TrackVisit(ctx, link, visit); err != nil {
			metrics.VisitTrackingFailures.Inc()
			logger.Warn("failed to track visit", zap.Error(err), zap.String("code", code))
		}
	})

	http.Redirect(w, r, link.OriginalURL, h.opts.RedirectStatus)
}

func (h *LinksHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.GetUserURLs(r.Context(), auth.FromContext(r.Context()))
	if err != nil {
		writeError(w, r, "list links", err)
		return
	}

	out := make([]linkResponse, 0, len(list))
	for i := range list {
		out = append(out, h.toResponse(&list[i]))
	}
	httputils.WriteAPISuccess(w, r, constants.SuccessLinksListed, out)
}

func (h *LinksHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateLinkRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	link, err := h.svc.UpdateURLData(r.Context(), auth.FromContext(r.Context()), r.PathValue("id"), links.UpdateInput{
		Title: req.Title,
	})
	if err != nil {
		writeError(w, r, "update link", err)
		return
	}
	httputils.WriteAPISuccess(w, r, constants.SuccessLinkUpdated, h.toResponse(link))
}

func (h *LinksHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.svc.DeleteLink(r.Context(), auth.FromContext(r.Context()), id); err != nil {
		writeError(w, r, "delete link", err)
		return
	}
	httputils.WriteAPISuccess(w, r, constants.SuccessLinkDeleted, map[string]string{"id": id})
}

// Analytics summarizes the caller's links. The breakdowns are synthetic.
func (h *LinksHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.GetUserURLs(r.Context(), auth.FromContext(r.Context()))
	if err != nil {
		writeError(w, r, "load analytics", err)
		return
	}
	httputils.WriteAPISuccess(w, r, constants.SuccessAnalyticsFound, analytics.Aggregate(list, h.now().UTC()))
}
