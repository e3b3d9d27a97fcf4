package providers

import (
	"context"

	"github.com/Innov8rs-paradise/mufa-login/internal/auth/models"
)

// Provider is the identity provider as seen by the login callback
type Provider interface {
	// AuthURL returns the provider's authorization URL. Without scopes the
	// configured defaults are requested.
	AuthURL(scopes ...string) string

	// ExchangeCode exchanges an authorization code for tokens.
	// Failures are *ProviderError with Kind ExchangeFailed.
	ExchangeCode(ctx context.Context, code string) (*models.ProviderTokenSet, error)

	// FetchProfile loads the user's profile with an access token.
	// Failures are *ProviderError with Kind ProfileFetchFailed.
	FetchProfile(ctx context.Context, accessToken string) (*models.UserProfile, error)
}
