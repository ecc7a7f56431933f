package http

import (
	"errors"
	"net/http"

	"github.com/IgorGrieder/linkdeck/internal/constants"
	"github.com/IgorGrieder/linkdeck/internal/infrastructure/logger"
	appvalidation "github.com/IgorGrieder/linkdeck/internal/infrastructure/validation"
	"github.com/IgorGrieder/linkdeck/internal/processing/accounts"
	"github.com/IgorGrieder/linkdeck/internal/processing/faults"
	"github.com/IgorGrieder/linkdeck/internal/processing/links"
	"github.com/IgorGrieder/linkdeck/pkg/httputils"
	"go.uber.org/zap"
)

// apiError maps a processing error onto the response catalogue. Specific
// errors are matched before their category.
func apiError(err error) constants.APIError {
	switch {
	case errors.Is(err, links.ErrInvalidURL):
		return constants.ErrInvalidURL
	case errors.Is(err, links.ErrNotFound):
		return constants.ErrLinkNotFound
	case errors.Is(err, links.ErrQuotaExceeded):
		return constants.ErrQuotaExceeded
	case errors.Is(err, accounts.ErrInvalidCredentials):
		return constants.ErrInvalidCredentials
	case errors.Is(err, accounts.ErrEmailTaken):
		return constants.ErrEmailTaken

	case errors.Is(err, faults.ErrValidation):
		return constants.ErrInvalidRequestBody.WithMessage(err.Error())
	case errors.Is(err, faults.ErrNotFound):
		return constants.ErrNotFound.WithMessage(err.Error())
	case errors.Is(err, faults.ErrQuotaExceeded):
		return constants.ErrQuotaExceeded
	case errors.Is(err, faults.ErrConflict):
		return constants.ErrConflict.WithMessage(err.Error())
	case errors.Is(err, faults.ErrUnauthorized):
		return constants.ErrUnauthorized.WithMessage(err.Error())
	case errors.Is(err, faults.ErrForbidden):
		return constants.ErrForbidden
	case errors.Is(err, faults.ErrBackendUnavailable):
		return constants.ErrServiceUnavailable
	case errors.Is(err, faults.ErrGenerationExhausted):
		return constants.ErrGenerationExhausted
	}
	return constants.ErrInternalError
}

// writeError logs server-side failures and writes the mapped error envelope.
func writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	apiErr := apiError(err)
	if apiErr.Status >= http.StatusInternalServerError {
		logger.Error(op+" failed", zap.Error(err), zap.String("correlation_id", httputils.GetCorrelationID(r)))
	}
	httputils.WriteAPIError(w, r, apiErr)
}

// decodeAndValidate reads the body into dst and runs the struct validator.
// It writes the error response itself and returns false on failure.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := httputils.DecodeJSON(w, r, dst); err != nil {
		httputils.WriteAPIError(w, r, constants.ErrInvalidRequestBody)
		return false
	}
	if err := appvalidation.Validate(dst); err != nil {
		httputils.WriteAPIError(w, r, validationError(err))
		return false
	}
	return true
}

func validationError(err error) constants.APIError {
	field, tag := appvalidation.FirstField(err)
	switch {
	case field == "":
		return constants.ErrInvalidRequestBody
	case tag == "http_url" && field == "url":
		return constants.ErrInvalidURL
	case tag == "required" || tag == "notblank":
		return constants.ErrInvalidRequestBody.WithMessage(field + " is required")
	case tag == "future":
		return constants.ErrInvalidRequestBody.WithMessage(field + " must be in the future")
	case tag == "color":
		return constants.ErrInvalidRequestBody.WithMessage(field + " must be red, blue, green or yellow")
	}
	return constants.ErrInvalidRequestBody.WithMessage("invalid " + field)
}
