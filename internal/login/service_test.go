package login

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/Innov8rs-paradise/mufa-login/internal/auth/models"
	"github.com/Innov8rs-paradise/mufa-login/internal/auth/providers"
	"github.com/Innov8rs-paradise/mufa-login/internal/directory"
	"github.com/Innov8rs-paradise/mufa-login/internal/logger"
	"github.com/Innov8rs-paradise/mufa-login/internal/metrics"
	"github.com/Innov8rs-paradise/mufa-login/internal/session"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// mockProvider implements providers.Provider for testing
type mockProvider struct {
	tokens     *models.ProviderTokenSet
	exchErr    error
	profile    *models.UserProfile
	profileErr error

	exchangeCalls int
	profileCalls  int
	gotCode       string
	gotToken      string
}

func (m *mockProvider) AuthURL(...string) string {
	return "https://accounts.google.com/o/oauth2/v2/auth?response_type=code"
}

func (m *mockProvider) ExchangeCode(_ context.Context, code string) (*models.ProviderTokenSet, error) {
	m.exchangeCalls++
	m.gotCode = code
	if m.exchErr != nil {
		return nil, m.exchErr
	}
	return m.tokens, nil
}

func (m *mockProvider) FetchProfile(_ context.Context, accessToken string) (*models.UserProfile, error) {
	m.profileCalls++
	m.gotToken = accessToken
	if m.profileErr != nil {
		return nil, m.profileErr
	}
	return m.profile, nil
}

// mockDirectory implements directory.Directory for testing
type mockDirectory struct {
	exists    bool
	existsErr error
	outcome   directory.RegisterOutcome
	regErr    error

	existsCalls   int
	registerCalls int
}

func (m *mockDirectory) UserExists(context.Context, string) (bool, error) {
	m.existsCalls++
	return m.exists, m.existsErr
}

func (m *mockDirectory) Register(context.Context, *models.UserProfile) (directory.RegisterOutcome, error) {
	m.registerCalls++
	return m.outcome, m.regErr
}

type fixture struct {
	provider  *mockProvider
	directory *mockDirectory
	codec     *session.Codec
	metrics   *metrics.Recorder
	service   *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	codec, err := session.NewCodec("secret", "HS256", time.Hour)
	require.NoError(t, err)
	recorder, err := metrics.NewRecorder()
	require.NoError(t, err)

	f := &fixture{
		provider: &mockProvider{
			tokens: &models.ProviderTokenSet{AccessToken: "fake_access"},
			profile: &models.UserProfile{
				ID:    "test_user_id_1",
				Email: "test1@example.com",
				Name:  "Test User 1",
			},
		},
		directory: &mockDirectory{
			outcome: directory.RegisterOutcome{Kind: directory.Created, StatusCode: 200},
		},
		codec:   codec,
		metrics: recorder,
	}
	f.service = NewService(ServiceParams{
		Provider:  f.provider,
		Directory: f.directory,
		Codec:     codec,
		Metrics:   recorder,
	})
	return f
}

func TestCallback_NewUser(t *testing.T) {
	f := newFixture(t)

	res, err := f.service.Callback(context.Background(), "fake_code")
	require.NoError(t, err)

	assert.Equal(t, "fake_code", f.provider.gotCode)
	assert.Equal(t, "fake_access", f.provider.gotToken)
	assert.Equal(t, 1, f.directory.existsCalls)
	assert.Equal(t, 1, f.directory.registerCalls)

	assert.Equal(t, OutcomeWelcome, res.Outcome)
	page := string(res.Page)
	assert.Contains(t, page, "Login Successful")
	assert.Contains(t, page, "Welcome, Test User 1")
	assert.NotContains(t, page, "Welcome back")
	assert.Contains(t, page, "test1@example.com")
	assert.NotContains(t, page, "Unknown error")
	assert.NotEmpty(t, res.LoginID)

	claims, err := f.codec.ParseSession(res.Token)
	require.NoError(t, err)
	assert.Equal(t, "test_user_id_1", claims.UserID)
	assert.Equal(t, "test1@example.com", claims.Email)
	assert.Equal(t, "Test User 1", claims.Name)
}

func TestCallback_ExistingUserSkipsRegistration(t *testing.T) {
	f := newFixture(t)
	f.directory.exists = true

	res, err := f.service.Callback(context.Background(), "fake_code")
	require.NoError(t, err)

	assert.Equal(t, 1, f.directory.existsCalls)
	assert.Equal(t, 0, f.directory.registerCalls)
	assert.Equal(t, OutcomeWelcomeBack, res.Outcome)
	assert.Contains(t, string(res.Page), "Welcome back, Test User 1")
	assert.Contains(t, string(res.Page), "test1@example.com")
	assert.NotEmpty(t, res.Token)
}

func TestCallback_AlreadyExistsIsSuccess(t *testing.T) {
	f := newFixture(t)
	f.directory.outcome = directory.RegisterOutcome{Kind: directory.AlreadyExists, StatusCode: 400}

	res, err := f.service.Callback(context.Background(), "fake_code")
	require.NoError(t, err)

	assert.Equal(t, 1, f.directory.registerCalls)
	assert.Equal(t, OutcomeWelcome, res.Outcome)
	assert.Contains(t, string(res.Page), "Welcome, Test User 1")
	assert.NotEmpty(t, res.Token)
}

func TestCallback_UnknownRegistrationStatus(t *testing.T) {
	f := newFixture(t)
	f.directory.outcome = directory.RegisterOutcome{Kind: directory.UnknownStatus, StatusCode: 500}

	res, err := f.service.Callback(context.Background(), "fake_code")
	require.NoError(t, err)

	assert.Equal(t, OutcomeUnknownStatus, res.Outcome)
	assert.Equal(t, 500, res.RegisterStatus)
	page := string(res.Page)
	assert.Contains(t, page, "Login Successful")
	assert.Contains(t, page, "Unknown error. Error code: 500")
	assert.Contains(t, page, "test1@example.com")
	assert.NotEmpty(t, res.Token, "login still succeeds")
}

func TestCallback_RegistrationUnreachableIsFatal(t *testing.T) {
	f := newFixture(t)
	f.directory.regErr = fmt.Errorf("%w: connection refused", directory.ErrUnreachable)

	res, err := f.service.Callback(context.Background(), "fake_code")
	require.Error(t, err)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, directory.ErrUnreachable)

	var cbErr *CallbackError
	require.ErrorAs(t, err, &cbErr)
	assert.Equal(t, StateRegistering, cbErr.State)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.CallbackCounter("failed")))
}

func TestCallback_ExistenceCheckUnreachableContinues(t *testing.T) {
	f := newFixture(t)
	f.directory.existsErr = directory.ErrUnreachable

	res, err := f.service.Callback(context.Background(), "fake_code")
	require.NoError(t, err)

	assert.Equal(t, 0, f.directory.registerCalls)
	assert.Equal(t, OutcomeWelcome, res.Outcome)
	assert.Contains(t, string(res.Page), "Welcome, Test User 1")
	assert.NotEmpty(t, res.Token)
}

func TestCallback_ProviderFailures(t *testing.T) {
	tests := []struct {
		name      string
		setup     func(f *fixture)
		wantState State
		wantKind  providers.ErrorKind
	}{
		{
			name: "exchange failed",
			setup: func(f *fixture) {
				f.provider.exchErr = &providers.ProviderError{Kind: providers.ExchangeFailed, StatusCode: 400, Err: errors.New("invalid_grant")}
			},
			wantState: StateExchanging,
			wantKind:  providers.ExchangeFailed,
		},
		{
			name: "profile fetch failed",
			setup: func(f *fixture) {
				f.provider.profileErr = &providers.ProviderError{Kind: providers.ProfileFetchFailed, Err: errors.New("missing email")}
			},
			wantState: StateProfileFetching,
			wantKind:  providers.ProfileFetchFailed,
		},
		{
			name: "subject mismatch",
			setup: func(f *fixture) {
				f.provider.tokens.Subject = "someone-else"
			},
			wantState: StateProfileFetching,
			wantKind:  providers.ProfileFetchFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			tt.setup(f)

			res, err := f.service.Callback(context.Background(), "fake_code")
			require.Error(t, err)
			assert.Nil(t, res)
			assert.True(t, providers.IsKind(err, tt.wantKind))

			var cbErr *CallbackError
			require.ErrorAs(t, err, &cbErr)
			assert.Equal(t, tt.wantState, cbErr.State)

			assert.Equal(t, 0, f.directory.existsCalls, "directory is not touched")
			assert.Equal(t, 0, f.directory.registerCalls)
		})
	}
}

func TestCallback_ExchangeFailureSkipsProfile(t *testing.T) {
	f := newFixture(t)
	f.provider.exchErr = &providers.ProviderError{Kind: providers.ExchangeFailed, Err: errors.New("boom")}

	_, err := f.service.Callback(context.Background(), "fake_code")
	require.Error(t, err)
	assert.Equal(t, 0, f.provider.profileCalls)
}

func TestCallback_MatchingSubjectIsAccepted(t *testing.T) {
	f := newFixture(t)
	f.provider.tokens.Subject = "test_user_id_1"

	_, err := f.service.Callback(context.Background(), "fake_code")
	assert.NoError(t, err)
}

func TestCallback_EscapesProfileFields(t *testing.T) {
	f := newFixture(t)
	f.provider.profile.Name = `<script>alert("x")</script>`

	res, err := f.service.Callback(context.Background(), "fake_code")
	require.NoError(t, err)
	assert.NotContains(t, string(res.Page), "<script>")
	assert.Contains(t, string(res.Page), "&lt;script&gt;")
}

func TestCallback_RecordsOutcomeMetric(t *testing.T) {
	f := newFixture(t)
	f.directory.exists = true

	_, err := f.service.Callback(context.Background(), "fake_code")
	require.NoError(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.CallbackCounter("welcome_back")))
}

func TestCallback_WithoutMetrics(t *testing.T) {
	f := newFixture(t)
	svc := NewService(ServiceParams{Provider: f.provider, Directory: f.directory, Codec: f.codec})

	_, err := svc.Callback(context.Background(), "fake_code")
	assert.NoError(t, err)
}

func TestLoginURL(t *testing.T) {
	f := newFixture(t)
	assert.Contains(t, f.service.LoginURL(), "response_type=code")
}

// visitedStates returns the states logged for each callback step
func visitedStates(logs *observer.ObservedLogs) []string {
	var states []string
	for _, e := range logs.FilterMessage("Login callback state").All() {
		states = append(states, e.ContextMap()["state"].(string))
	}
	return states
}

func TestCallback_StateSequence(t *testing.T) {
	tests := []struct {
		name   string
		exists bool
		want   []string
	}{
		{
			name: "new user",
			want: []string{"start", "exchanging", "profile_fetching", "checking_existence", "registering", "issuing", "rendering", "done"},
		},
		{
			name:   "existing user",
			exists: true,
			want:   []string{"start", "exchanging", "profile_fetching", "checking_existence", "issuing", "rendering", "done"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zap.DebugLevel)
			logger.SetLogger(zap.New(core))
			t.Cleanup(func() { logger.SetLogger(nil) })

			f := newFixture(t)
			f.directory.exists = tt.exists

			_, err := f.service.Callback(context.Background(), "fake_code")
			require.NoError(t, err)
			assert.Equal(t, tt.want, visitedStates(logs))
		})
	}
}

func TestCallback_FailureStopsStateSequence(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	logger.SetLogger(zap.New(core))
	t.Cleanup(func() { logger.SetLogger(nil) })

	f := newFixture(t)
	f.directory.regErr = directory.ErrUnreachable

	_, err := f.service.Callback(context.Background(), "fake_code")
	require.Error(t, err)
	assert.Equal(t, []string{"start", "exchanging", "profile_fetching", "checking_existence", "registering"}, visitedStates(logs))
	assert.Equal(t, 1, logs.FilterMessage("Login callback failed").Len())
}
