package server

// HTTP error messages for client responses. Internal error details are
// logged, never returned to the caller.
const (
	ErrMsgUnauthorized      = "Unauthorized"
	ErrMsgInvalidRequest    = "Invalid request body"
	ErrMsgInvalidSummary    = "Invalid request"
	ErrMsgForceEndFailed    = "Failed to end duel"
	ErrMsgStartDuelFailed   = "Failed to start duel"
	ErrMsgNoActiveDuel      = "No active duel for participant"
	ErrMsgMissingQueryParam = "Missing %s query parameter"
)

// Log messages for server lifecycle and request handling
const (
	LogMsgServerStarting   = "Server starting"
	LogMsgRequestStarted   = "Request started"
	LogMsgRequestCompleted = "Request completed"
	LogMsgAuthFailed       = "Authentication failed"
	LogMsgForceEndFailed   = "Force end failed"
	LogMsgStartDuelFailed  = "Start duel failed"
)

// HTTP header names
const (
	HeaderAPIKey = "X-API-Key"
)

// PublicPaths are reachable without an API key
var PublicPaths = []string{"/healthz", "/readyz", "/metrics"}
