package constants

// Error codes used in API responses.
// These are the machine-readable codes returned in the "error" field.
const (
	// Common error codes
	CodeInvalidRequest     = "INVALID_REQUEST"
	CodeInternalError      = "INTERNAL_ERROR"
	CodeForbidden          = "FORBIDDEN"
	CodeNotFound           = "NOT_FOUND"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeRateLimited        = "RATE_LIMITED"
	CodeConflict           = "CONFLICT"
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"

	// Shortener-specific codes
	CodeInvalidURL          = "INVALID_URL"
	CodeLinkNotFound        = "LINK_NOT_FOUND"
	CodeQuotaExceeded       = "QUOTA_EXCEEDED"
	CodeGenerationExhausted = "CODE_GENERATION_EXHAUSTED"

	// Account codes
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeEmailTaken         = "EMAIL_TAKEN"
	CodeGoogleDisabled     = "GOOGLE_LOGIN_DISABLED"

	// Success codes
	CodeLinkCreated     = "LINK_CREATED"
	CodeLinkFound       = "LINK_FOUND"
	CodeLinkUpdated     = "LINK_UPDATED"
	CodeLinkDeleted     = "LINK_DELETED"
	CodeLinksListed     = "LINKS_LISTED"
	CodeAnalyticsFound  = "ANALYTICS_FOUND"
	CodeUserRegistered  = "USER_REGISTERED"
	CodeLoggedIn        = "LOGGED_IN"
	CodeProfileFound    = "PROFILE_FOUND"
	CodeProfileUpdated  = "PROFILE_UPDATED"
	CodeUsersListed     = "USERS_LISTED"
	CodeLimitUpdated    = "LIMIT_UPDATED"
	CodeUnlockerCreated = "UNLOCKER_CREATED"
	CodeUnlockersListed = "UNLOCKERS_LISTED"
	CodeUnlockerDeleted = "UNLOCKER_DELETED"
	CodeGateOpened      = "GATE_OPENED"
	CodeGateClicked     = "GATE_CLICKED"
	CodeBioCardCreated  = "BIO_CARD_CREATED"
	CodeBioCardUpdated  = "BIO_CARD_UPDATED"
	CodeBioCardDeleted  = "BIO_CARD_DELETED"
	CodeBioCardsListed  = "BIO_CARDS_LISTED"
	CodeBioCardFound    = "BIO_CARD_FOUND"
)
