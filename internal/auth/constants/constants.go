package constants

import "time"

const (
	// TokenType for Bearer authentication
	TokenType = "Bearer"

	// AuthHeaderName is the name of the Authorization header
	AuthHeaderName = "Authorization"

	// AuthHeaderPrefix is the prefix for the Authorization header value
	AuthHeaderPrefix = "Bearer "

	// DefaultSessionTTL is used when the session codec is built without a TTL
	DefaultSessionTTL = 60 * time.Minute

	// DefaultUpstreamTimeout bounds every call to the provider and the directory
	DefaultUpstreamTimeout = 10 * time.Second
)

// Public routes
const (
	LoginPath    = "/login"
	CallbackPath = "/auth/callback"
	MePath       = "/me"
	HealthPath   = "/healthz"
	OpenAPIPath  = "/openapi.json"
)

// Session claim names
const (
	ClaimUserID = "user_id"
	ClaimEmail  = "email"
	ClaimName   = "name"
	ClaimExpiry = "exp"
)

// DefaultScopes are requested when the caller does not ask for specific ones
var DefaultScopes = []string{"openid", "email", "profile"}

// InternalServerErrorDetail is the only body ever returned for unrecoverable failures
const InternalServerErrorDetail = "Internal Server Error"
