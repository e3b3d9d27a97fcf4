package models

import "time"

// UserProfile is the authenticated user as reported by the identity provider.
// It is passed unmodified to the directory service and the session token.
type UserProfile struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture,omitempty"`
}

// ProviderTokenSet holds the tokens returned by the authorization code exchange.
// It only lives for the duration of one callback.
type ProviderTokenSet struct {
	AccessToken  string
	IDToken      string
	RefreshToken string
	Expiry       time.Time
	// Subject is the verified id_token subject, empty when no id_token was verified
	Subject string
}

// SessionClaims are the claims carried by a session token.
type SessionClaims struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	ExpiresAt time.Time `json:"exp"`
}

// NewSessionClaims builds the claims for a freshly authenticated profile.
// ExpiresAt is filled in by the codec when the token is issued.
func NewSessionClaims(p *UserProfile) SessionClaims {
	return SessionClaims{
		UserID: p.ID,
		Email:  p.Email,
		Name:   p.Name,
	}
}
