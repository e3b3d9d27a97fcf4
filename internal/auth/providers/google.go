package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/Innov8rs-paradise/mufa-login/internal/auth/constants"
	"github.com/Innov8rs-paradise/mufa-login/internal/auth/models"
	"github.com/Innov8rs-paradise/mufa-login/internal/config"
	"github.com/Innov8rs-paradise/mufa-login/internal/logger"
	"github.com/coreos/go-oidc/v3/oidc"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// maxProfileBytes caps how much of a userinfo response is read
const maxProfileBytes = 1 << 20

type GoogleProvider struct {
	oauth2Config *oauth2.Config
	userInfoURL  string
	httpClient   *http.Client
	verifier     *oidc.IDTokenVerifier
}

// Option customizes a GoogleProvider.
type Option func(*GoogleProvider)

// WithHTTPClient replaces the client used for the token and userinfo calls.
func WithHTTPClient(client *http.Client) Option {
	return func(p *GoogleProvider) {
		p.httpClient = client
	}
}

// WithIDTokenVerifier enables id_token verification with a ready verifier,
// skipping OIDC discovery.
func WithIDTokenVerifier(verifier *oidc.IDTokenVerifier) Option {
	return func(p *GoogleProvider) {
		p.verifier = verifier
	}
}

func NewGoogleProvider(ctx context.Context, cfg *config.GoogleConfig, opts ...Option) (*GoogleProvider, error) {
	endpoint := google.Endpoint
	if cfg.AuthURL != "" {
		endpoint.AuthURL = cfg.AuthURL
	}
	if cfg.TokenURL != "" {
		endpoint.TokenURL = cfg.TokenURL
	}
	// client_id and client_secret travel in the form body
	endpoint.AuthStyle = oauth2.AuthStyleInParams

	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = constants.DefaultScopes
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = constants.DefaultUpstreamTimeout
	}

	p := &GoogleProvider{
		oauth2Config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     endpoint,
			Scopes:       scopes,
		},
		userInfoURL: cfg.UserInfoURL,
		httpClient:  &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.userInfoURL == "" {
		return nil, errors.New("google userinfo url is required")
	}

	if cfg.VerifyIDToken && p.verifier == nil {
		provider, err := oidc.NewProvider(oidc.ClientContext(ctx, p.httpClient), cfg.IssuerURL)
		if err != nil {
			return nil, fmt.Errorf("failed to create OIDC provider: %w", err)
		}
		p.verifier = provider.Verifier(&oidc.Config{ClientID: cfg.ClientID})
	}

	return p, nil
}

// NewFromConfig builds the Google provider from the process config.
func NewFromConfig(cfg *config.Config) (*GoogleProvider, error) {
	return NewGoogleProvider(context.Background(), &cfg.Google)
}

func (p *GoogleProvider) AuthURL(scopes ...string) string {
	cfg := *p.oauth2Config // copy
	if len(scopes) > 0 {
		cfg.Scopes = scopes
	}
	return cfg.AuthCodeURL("", oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

func (p *GoogleProvider) ExchangeCode(ctx context.Context, code string) (*models.ProviderTokenSet, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)

	token, err := p.oauth2Config.Exchange(ctx, code)
	if err != nil {
		status := 0
		var re *oauth2.RetrieveError
		if errors.As(err, &re) && re.Response != nil {
			status = re.Response.StatusCode
		}
		return nil, exchangeError(status, err)
	}

	set := &models.ProviderTokenSet{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		Expiry:       token.Expiry,
	}
	if rawIDToken, ok := token.Extra("id_token").(string); ok {
		set.IDToken = rawIDToken
	}

	if p.verifier != nil {
		if set.IDToken == "" {
			return nil, exchangeError(0, errors.New("no id_token in token response"))
		}
		idToken, err := p.verifier.Verify(oidc.ClientContext(ctx, p.httpClient), set.IDToken)
		if err != nil {
			return nil, exchangeError(0, fmt.Errorf("failed to verify ID token: %w", err))
		}
		set.Subject = idToken.Subject
	}

	return set, nil
}

func (p *GoogleProvider) FetchProfile(ctx context.Context, accessToken string) (*models.UserProfile, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: accessToken,
		TokenType:   constants.TokenType,
	}))
	client.Timeout = p.httpClient.Timeout

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoURL, nil)
	if err != nil {
		return nil, profileError(0, fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		logger.Error("Failed to call userinfo endpoint", zap.Error(err))
		return nil, profileError(0, fmt.Errorf("failed to call userinfo endpoint: %w", err))
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Error("Failed to close response body", zap.Error(err))
		}
	}()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, profileError(resp.StatusCode, errors.New("userinfo request failed"))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxProfileBytes))
	if err != nil {
		return nil, profileError(resp.StatusCode, fmt.Errorf("failed to read userinfo response: %w", err))
	}

	var userInfo struct {
		ID      string `json:"id"`
		Sub     string `json:"sub"`
		Email   string `json:"email"`
		Name    string `json:"name"`
		Picture string `json:"picture"`
	}
	if err := json.Unmarshal(body, &userInfo); err != nil {
		return nil, profileError(resp.StatusCode, fmt.Errorf("failed to decode userinfo response: %w", err))
	}

	// The v2 userinfo endpoint reports "id", the OIDC one "sub"
	id := userInfo.ID
	if id == "" {
		id = userInfo.Sub
	}
	if id == "" {
		return nil, profileError(resp.StatusCode, errors.New("userinfo response is missing id"))
	}
	if userInfo.Email == "" {
		return nil, profileError(resp.StatusCode, errors.New("userinfo response is missing email"))
	}

	return &models.UserProfile{
		ID:      id,
		Email:   userInfo.Email,
		Name:    userInfo.Name,
		Picture: userInfo.Picture,
	}, nil
}
