package providers

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/Innov8rs-paradise/mufa-login/internal/auth/models"
	"github.com/Innov8rs-paradise/mufa-login/internal/config"
	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testClientID     = "test-client-id"
	testClientSecret = "test-client-secret"
	testRedirectURL  = "http://localhost:8000/auth/callback"
	testIssuer       = "https://accounts.example.test"
)

// fakeGoogle serves the token and userinfo endpoints
type fakeGoogle struct {
	tokenStatus    int
	tokenBody      map[string]any
	userInfoStatus int
	userInfoBody   string

	tokenForms  []url.Values
	userInfoHdr []string
}

func (f *fakeGoogle) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		f.tokenForms = append(f.tokenForms, r.PostForm)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(f.tokenStatus)
		_ = json.NewEncoder(w).Encode(f.tokenBody)
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		f.userInfoHdr = append(f.userInfoHdr, r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(f.userInfoStatus)
		_, _ = w.Write([]byte(f.userInfoBody))
	})
	return mux
}

func newFakeGoogle() *fakeGoogle {
	return &fakeGoogle{
		tokenStatus:    http.StatusOK,
		tokenBody:      map[string]any{"access_token": "abc123", "token_type": "Bearer", "expires_in": 3600},
		userInfoStatus: http.StatusOK,
		userInfoBody:   `{"id":"testid123","email":"test@example.com","name":"Test User","picture":"http://img"}`,
	}
}

func newTestProvider(t *testing.T, fake *fakeGoogle, opts ...Option) *GoogleProvider {
	t.Helper()
	srv := httptest.NewServer(fake.handler(t))
	t.Cleanup(srv.Close)

	p, err := NewGoogleProvider(context.Background(), &config.GoogleConfig{
		ClientID:     testClientID,
		ClientSecret: testClientSecret,
		RedirectURL:  testRedirectURL,
		AuthURL:      "https://accounts.google.com/o/oauth2/v2/auth",
		TokenURL:     srv.URL + "/token",
		UserInfoURL:  srv.URL + "/userinfo",
		Timeout:      2 * time.Second,
	}, opts...)
	require.NoError(t, err)
	return p
}

func TestAuthURL(t *testing.T) {
	p := newTestProvider(t, newFakeGoogle())

	u, err := url.Parse(p.AuthURL())
	require.NoError(t, err)
	assert.Equal(t, "accounts.google.com", u.Host)
	assert.Equal(t, "/o/oauth2/v2/auth", u.Path)

	q := u.Query()
	assert.Equal(t, testClientID, q.Get("client_id"))
	assert.Equal(t, testRedirectURL, q.Get("redirect_uri"))
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "openid email profile", q.Get("scope"))
	assert.Equal(t, "offline", q.Get("access_type"))
	assert.Equal(t, "consent", q.Get("prompt"))
}

func TestAuthURL_CustomScopes(t *testing.T) {
	p := newTestProvider(t, newFakeGoogle())

	u, err := url.Parse(p.AuthURL("openid", "email"))
	require.NoError(t, err)
	assert.Equal(t, "openid email", u.Query().Get("scope"))

	u, err = url.Parse(p.AuthURL())
	require.NoError(t, err)
	assert.Equal(t, "openid email profile", u.Query().Get("scope"), "custom scopes do not leak into later calls")
}

func TestExchangeCode(t *testing.T) {
	fake := newFakeGoogle()
	fake.tokenBody["refresh_token"] = "refresh"
	fake.tokenBody["id_token"] = "raw.id.token"
	p := newTestProvider(t, fake)

	set, err := p.ExchangeCode(context.Background(), "testcode")
	require.NoError(t, err)
	assert.Equal(t, "abc123", set.AccessToken)
	assert.Equal(t, "refresh", set.RefreshToken)
	assert.Equal(t, "raw.id.token", set.IDToken)
	assert.Empty(t, set.Subject, "no verifier configured")
	assert.False(t, set.Expiry.IsZero())

	require.Len(t, fake.tokenForms, 1)
	form := fake.tokenForms[0]
	assert.Equal(t, "testcode", form.Get("code"))
	assert.Equal(t, "authorization_code", form.Get("grant_type"))
	assert.Equal(t, testClientID, form.Get("client_id"))
	assert.Equal(t, testClientSecret, form.Get("client_secret"))
	assert.Equal(t, testRedirectURL, form.Get("redirect_uri"))
}

func TestExchangeCode_Failures(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       map[string]any
		wantStatus int
	}{
		{
			name:       "invalid grant",
			status:     http.StatusBadRequest,
			body:       map[string]any{"error": "invalid_grant"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "server error",
			status:     http.StatusInternalServerError,
			body:       map[string]any{},
			wantStatus: http.StatusInternalServerError,
		},
		{
			name:   "missing access token",
			status: http.StatusOK,
			body:   map[string]any{"token_type": "Bearer"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := newFakeGoogle()
			fake.tokenStatus = tt.status
			fake.tokenBody = tt.body
			p := newTestProvider(t, fake)

			set, err := p.ExchangeCode(context.Background(), "testcode")
			require.Error(t, err)
			assert.Nil(t, set)
			assert.True(t, IsKind(err, ExchangeFailed))

			var pe *ProviderError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, tt.wantStatus, pe.StatusCode)
		})
	}
}

func TestExchangeCode_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	tokenURL := srv.URL + "/token"
	srv.Close()

	p, err := NewGoogleProvider(context.Background(), &config.GoogleConfig{
		ClientID:    testClientID,
		TokenURL:    tokenURL,
		UserInfoURL: tokenURL,
	})
	require.NoError(t, err)

	_, err = p.ExchangeCode(context.Background(), "testcode")
	assert.True(t, IsKind(err, ExchangeFailed))
}

func TestFetchProfile(t *testing.T) {
	fake := newFakeGoogle()
	p := newTestProvider(t, fake)

	profile, err := p.FetchProfile(context.Background(), "abc123")
	require.NoError(t, err)
	assert.Equal(t, &models.UserProfile{
		ID:      "testid123",
		Email:   "test@example.com",
		Name:    "Test User",
		Picture: "http://img",
	}, profile)

	require.Len(t, fake.userInfoHdr, 1)
	assert.Equal(t, "Bearer abc123", fake.userInfoHdr[0])
}

func TestFetchProfile_SubFallbackAndNoPicture(t *testing.T) {
	fake := newFakeGoogle()
	fake.userInfoBody = `{"sub":"oidc-sub","email":"a@example.com","name":"A"}`
	p := newTestProvider(t, fake)

	profile, err := p.FetchProfile(context.Background(), "abc123")
	require.NoError(t, err)
	assert.Equal(t, "oidc-sub", profile.ID)
	assert.Empty(t, profile.Picture)
}

func TestFetchProfile_Failures(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantStatus int
	}{
		{name: "unauthorized", status: http.StatusUnauthorized, body: `{"error":"invalid_token"}`, wantStatus: http.StatusUnauthorized},
		{name: "server error", status: http.StatusBadGateway, body: ``, wantStatus: http.StatusBadGateway},
		{name: "not json", status: http.StatusOK, body: `<html>`, wantStatus: http.StatusOK},
		{name: "missing id", status: http.StatusOK, body: `{"email":"a@example.com"}`, wantStatus: http.StatusOK},
		{name: "missing email", status: http.StatusOK, body: `{"id":"x"}`, wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := newFakeGoogle()
			fake.userInfoStatus = tt.status
			fake.userInfoBody = tt.body
			p := newTestProvider(t, fake)

			profile, err := p.FetchProfile(context.Background(), "abc123")
			require.Error(t, err)
			assert.Nil(t, profile)
			assert.True(t, IsKind(err, ProfileFetchFailed))
			assert.False(t, IsKind(err, ExchangeFailed))

			var pe *ProviderError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, tt.wantStatus, pe.StatusCode)
		})
	}
}

func TestNewGoogleProvider_RequiresUserInfoURL(t *testing.T) {
	_, err := NewGoogleProvider(context.Background(), &config.GoogleConfig{ClientID: testClientID})
	assert.Error(t, err)
}

// signIDToken returns an RS256 id_token and a verifier that trusts its key
func signIDToken(t *testing.T, claims jwt.MapClaims, now time.Time) (string, *oidc.IDTokenVerifier) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	raw, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	require.NoError(t, err)

	verifier := oidc.NewVerifier(testIssuer, &oidc.StaticKeySet{PublicKeys: []crypto.PublicKey{key.Public()}}, &oidc.Config{
		ClientID: testClientID,
		Now:      func() time.Time { return now },
	})
	return raw, verifier
}

func TestExchangeCode_VerifiesIDToken(t *testing.T) {
	now := time.Now()
	raw, verifier := signIDToken(t, jwt.MapClaims{
		"iss": testIssuer,
		"aud": testClientID,
		"sub": "testid123",
		"iat": now.Unix(),
		"exp": now.Add(time.Hour).Unix(),
	}, now)

	fake := newFakeGoogle()
	fake.tokenBody["id_token"] = raw
	p := newTestProvider(t, fake, WithIDTokenVerifier(verifier))

	set, err := p.ExchangeCode(context.Background(), "testcode")
	require.NoError(t, err)
	assert.Equal(t, "testid123", set.Subject)
}

func TestExchangeCode_IDTokenRejected(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name   string
		claims jwt.MapClaims
	}{
		{
			name:   "wrong audience",
			claims: jwt.MapClaims{"iss": testIssuer, "aud": "someone-else", "sub": "x", "exp": now.Add(time.Hour).Unix()},
		},
		{
			name:   "wrong issuer",
			claims: jwt.MapClaims{"iss": "https://evil.test", "aud": testClientID, "sub": "x", "exp": now.Add(time.Hour).Unix()},
		},
		{
			name:   "expired",
			claims: jwt.MapClaims{"iss": testIssuer, "aud": testClientID, "sub": "x", "exp": now.Add(-time.Hour).Unix()},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, verifier := signIDToken(t, tt.claims, now)
			fake := newFakeGoogle()
			fake.tokenBody["id_token"] = raw
			p := newTestProvider(t, fake, WithIDTokenVerifier(verifier))

			_, err := p.ExchangeCode(context.Background(), "testcode")
			assert.True(t, IsKind(err, ExchangeFailed))
		})
	}
}

func TestExchangeCode_VerifierRequiresIDToken(t *testing.T) {
	_, verifier := signIDToken(t, jwt.MapClaims{}, time.Now())
	p := newTestProvider(t, newFakeGoogle(), WithIDTokenVerifier(verifier))

	_, err := p.ExchangeCode(context.Background(), "testcode")
	require.Error(t, err)
	assert.True(t, IsKind(err, ExchangeFailed))
	assert.Contains(t, err.Error(), "no id_token")
}

func TestWithHTTPClient(t *testing.T) {
	fake := newFakeGoogle()
	srv := httptest.NewTLSServer(fake.handler(t))
	t.Cleanup(srv.Close)

	cfg := &config.GoogleConfig{
		ClientID:     testClientID,
		ClientSecret: testClientSecret,
		RedirectURL:  testRedirectURL,
		TokenURL:     srv.URL + "/token",
		UserInfoURL:  srv.URL + "/userinfo",
		Timeout:      2 * time.Second,
	}

	untrusted, err := NewGoogleProvider(context.Background(), cfg)
	require.NoError(t, err)
	_, err = untrusted.ExchangeCode(context.Background(), "code")
	assert.True(t, IsKind(err, ExchangeFailed), "self-signed certificate is rejected by default")

	p, err := NewGoogleProvider(context.Background(), cfg, WithHTTPClient(srv.Client()))
	require.NoError(t, err)

	set, err := p.ExchangeCode(context.Background(), "code")
	require.NoError(t, err)
	profile, err := p.FetchProfile(context.Background(), set.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "testid123", profile.ID)
}
