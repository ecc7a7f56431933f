package constants

import "net/http"

// APISuccess represents a standardized API success response with code and HTTP status.
// Use these predefined success constants for consistent API responses across the application.
type APISuccess struct {
	Code   string
	Status int
}

// Link-related success responses
var (
	SuccessLinkCreated = APISuccess{
		Code:   CodeLinkCreated,
		Status: http.StatusCreated,
	}
	// SuccessLinkReused answers a store request that matched an existing link.
	SuccessLinkReused = APISuccess{
		Code:   CodeLinkFound,
		Status: http.StatusOK,
	}
	SuccessLinkFound = APISuccess{
		Code:   CodeLinkFound,
		Status: http.StatusOK,
	}
	SuccessLinkUpdated = APISuccess{
		Code:   CodeLinkUpdated,
		Status: http.StatusOK,
	}
	SuccessLinkDeleted = APISuccess{
		Code:   CodeLinkDeleted,
		Status: http.StatusOK,
	}
	SuccessLinksListed = APISuccess{
		Code:   CodeLinksListed,
		Status: http.StatusOK,
	}
	SuccessAnalyticsFound = APISuccess{
		Code:   CodeAnalyticsFound,
		Status: http.StatusOK,
	}
)

// Account success responses
var (
	SuccessUserRegistered = APISuccess{
		Code:   CodeUserRegistered,
		Status: http.StatusCreated,
	}
	SuccessLoggedIn = APISuccess{
		Code:   CodeLoggedIn,
		Status: http.StatusOK,
	}
	SuccessProfileFound = APISuccess{
		Code:   CodeProfileFound,
		Status: http.StatusOK,
	}
	SuccessProfileUpdated = APISuccess{
		Code:   CodeProfileUpdated,
		Status: http.StatusOK,
	}
	SuccessUsersListed = APISuccess{
		Code:   CodeUsersListed,
		Status: http.StatusOK,
	}
	SuccessLimitUpdated = APISuccess{
		Code:   CodeLimitUpdated,
		Status: http.StatusOK,
	}
)

// Unlocker and bio card success responses
var (
	SuccessUnlockerCreated = APISuccess{
		Code:   CodeUnlockerCreated,
		Status: http.StatusCreated,
	}
	SuccessUnlockersListed = APISuccess{
		Code:   CodeUnlockersListed,
		Status: http.StatusOK,
	}
	SuccessUnlockerDeleted = APISuccess{
		Code:   CodeUnlockerDeleted,
		Status: http.StatusOK,
	}
	SuccessGateOpened = APISuccess{
		Code:   CodeGateOpened,
		Status: http.StatusCreated,
	}
	SuccessGateClicked = APISuccess{
		Code:   CodeGateClicked,
		Status: http.StatusOK,
	}
	SuccessBioCardCreated = APISuccess{
		Code:   CodeBioCardCreated,
		Status: http.StatusCreated,
	}
	SuccessBioCardUpdated = APISuccess{
		Code:   CodeBioCardUpdated,
		Status: http.StatusOK,
	}
	SuccessBioCardDeleted = APISuccess{
		Code:   CodeBioCardDeleted,
		Status: http.StatusOK,
	}
	SuccessBioCardsListed = APISuccess{
		Code:   CodeBioCardsListed,
		Status: http.StatusOK,
	}
	SuccessBioCardFound = APISuccess{
		Code:   CodeBioCardFound,
		Status: http.StatusOK,
	}
)
