package constants

// Error messages used in API responses.
// These are the human-readable messages returned in the "message" field.
const (
	// Common messages
	MsgInvalidRequestBody = "Invalid request body"
	MsgInternalError      = "An internal error occurred"
	MsgUnauthorized       = "Unauthorized"
	MsgForbidden          = "Forbidden"
	MsgNotFound           = "Resource not found"
	MsgRateLimited        = "Too many requests, slow down"
	MsgConflict           = "Resource already exists"
	MsgServiceUnavailable = "Storage is temporarily unavailable"

	// Shortener-specific messages
	MsgInvalidURL          = "Invalid URL (must be http or https)"
	MsgLinkNotFound        = "Link not found"
	MsgQuotaExceeded       = "Monthly link limit reached"
	MsgGenerationExhausted = "Could not generate a unique short code, try again"

	// Account messages
	MsgInvalidCredentials = "Invalid email or password"
	MsgEmailTaken         = "Email is already registered"
	MsgGoogleDisabled     = "Google sign-in is not configured"
)
