package http

import (
	"net/http"
	"strconv"

	"github.com/IgorGrieder/linkdeck/internal/auth"
	"github.com/IgorGrieder/linkdeck/internal/constants"
	"github.com/IgorGrieder/linkdeck/internal/processing/accounts"
	"github.com/IgorGrieder/linkdeck/pkg/httputils"
)

// AccountHandler serves the caller's profile and the admin user endpoints.
type AccountHandler struct {
	svc AccountService
}

func NewAccountHandler(svc AccountService) *AccountHandler {
	return &AccountHandler{svc: svc}
}

type updateProfileRequest struct {
	DisplayName string `json:"displayName" validate:"required,notblank,max=80"`
}

type setLimitRequest struct {
	// null resets the user to the configured default
	MonthlyLinkLimit *int `json:"monthlyLinkLimit" validate:"omitempty,min=0"`
}

func (h *AccountHandler) Me(w http.ResponseWriter, r *http.Request) {
	u, err := h.svc.Profile(r.Context(), auth.FromContext(r.Context()))
	if err != nil {
		writeError(w, r, "load profile", err)
		return
	}
	httputils.WriteAPISuccess(w, r, constants.SuccessProfileFound, toUserResponse(h.svc, u))
}

func (h *AccountHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var req updateProfileRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	u, err := h.svc.UpdateProfile(r.Context(), auth.FromContext(r.Context()), accounts.ProfileInput{
		DisplayName: req.DisplayName,
	})
	if err != nil {
		writeError(w, r, "update profile", err)
		return
	}
	httputils.WriteAPISuccess(w, r, constants.SuccessProfileUpdated, toUserResponse(h.svc, u))
}

func (h *AccountHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 50)
	if err != nil {
		httputils.WriteAPIError(w, r, constants.ErrInvalidRequestBody.WithMessage("limit must be a number"))
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		httputils.WriteAPIError(w, r, constants.ErrInvalidRequestBody.WithMessage("offset must be a number"))
		return
	}

	users, err := h.svc.ListUsers(r.Context(), limit, offset)
	if err != nil {
		writeError(w, r, "list users", err)
		return
	}

	out := make([]userResponse, 0, len(users))
	for i := range users {
		out = append(out, toUserResponse(h.svc, &users[i]))
	}
	httputils.WriteAPISuccess(w, r, constants.SuccessUsersListed, out)
}

func (h *AccountHandler) SetLimit(w http.ResponseWriter, r *http.Request) {
	var req setLimitRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	u, err := h.svc.SetMonthlyLinkLimit(r.Context(), r.PathValue("id"), req.MonthlyLinkLimit)
	if err != nil {
		writeError(w, r, "set monthly limit", err)
		return
	}
	httputils.WriteAPISuccess(w, r, constants.SuccessLimitUpdated, toUserResponse(h.svc, u))
}

func queryInt(r *http.Request, key string, fallback int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}
