// Package login drives the OAuth callback: code exchange, profile fetch,
// directory registration and session issuance.
package login

import (
	"context"
	"errors"
	"time"

	"github.com/Innov8rs-paradise/mufa-login/internal/auth/models"
	"github.com/Innov8rs-paradise/mufa-login/internal/auth/providers"
	"github.com/Innov8rs-paradise/mufa-login/internal/directory"
	"github.com/Innov8rs-paradise/mufa-login/internal/logger"
	"github.com/Innov8rs-paradise/mufa-login/internal/metrics"
	"github.com/Innov8rs-paradise/mufa-login/internal/session"
	"github.com/google/uuid"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// errSubjectMismatch is returned when the userinfo id differs from the
// verified id_token subject
var errSubjectMismatch = errors.New("profile id does not match id_token subject")

// Result is a finished login
type Result struct {
	LoginID string
	Outcome Outcome
	Profile *models.UserProfile
	// RegisterStatus is the directory status behind OutcomeUnknownStatus
	RegisterStatus int
	Token          string
	Claims         models.SessionClaims
	Page           []byte
}

// Service runs the callback state machine. It keeps no per-request state and
// is safe for concurrent use.
type Service struct {
	provider  providers.Provider
	directory directory.Directory
	codec     *session.Codec
	metrics   *metrics.Recorder
}

type ServiceParams struct {
	fx.In

	Provider  providers.Provider
	Directory directory.Directory
	Codec     *session.Codec
	Metrics   *metrics.Recorder `optional:"true"`
}

// NewService creates the login service
func NewService(params ServiceParams) *Service {
	return &Service{
		provider:  params.Provider,
		directory: params.Directory,
		codec:     params.Codec,
		metrics:   params.Metrics,
	}
}

// LoginURL is where the browser is sent to start a login
func (s *Service) LoginURL() string {
	return s.provider.AuthURL()
}

// Callback completes a login for an authorization code. Every error is a
// *CallbackError and must be answered with a generic server error.
func (s *Service) Callback(ctx context.Context, code string) (*Result, error) {
	loginID := uuid.NewString()
	log := logger.With(zap.String("login_id", loginID))
	log.Info("Login callback started")

	enter := func(state State) {
		log.Debug("Login callback state", zap.Stringer("state", state))
	}
	enter(StateStart)

	fail := func(state State, err error) (*Result, error) {
		log.Error("Login callback failed", zap.Stringer("state", state), zap.Error(err))
		s.metrics.Callback("failed")
		return nil, &CallbackError{State: state, Err: err}
	}

	enter(StateExchanging)
	start := time.Now()
	tokens, err := s.provider.ExchangeCode(ctx, code)
	s.metrics.Upstream(metrics.UpstreamProvider, "exchange", err, time.Since(start))
	if err != nil {
		return fail(StateExchanging, err)
	}

	enter(StateProfileFetching)
	start = time.Now()
	profile, err := s.provider.FetchProfile(ctx, tokens.AccessToken)
	s.metrics.Upstream(metrics.UpstreamProvider, "profile", err, time.Since(start))
	if err != nil {
		return fail(StateProfileFetching, err)
	}
	if tokens.Subject != "" && tokens.Subject != profile.ID {
		return fail(StateProfileFetching, &providers.ProviderError{
			Kind: providers.ProfileFetchFailed,
			Err:  errSubjectMismatch,
		})
	}
	log = log.With(zap.String("user_id", profile.ID))

	result := &Result{
		LoginID: loginID,
		Outcome: OutcomeWelcome,
		Profile: profile,
	}

	enter(StateCheckingExistence)
	start = time.Now()
	exists, err := s.directory.UserExists(ctx, profile.ID)
	s.metrics.Upstream(metrics.UpstreamDirectory, "exists", err, time.Since(start))
	switch {
	case err != nil:
		// Identity is already proven by the provider, registration is best effort
		log.Warn("User directory unavailable, skipping registration",
			zap.Stringer("state", StateCheckingExistence), zap.Error(err))
	case exists:
		log.Info("User already exists in directory")
		result.Outcome = OutcomeWelcomeBack
	default:
		enter(StateRegistering)
		start = time.Now()
		reg, err := s.directory.Register(ctx, profile)
		s.metrics.Upstream(metrics.UpstreamDirectory, "register", err, time.Since(start))
		if err != nil {
			return fail(StateRegistering, err)
		}

		switch reg.Kind {
		case directory.Created:
			log.Info("New user registered")
		case directory.AlreadyExists:
			log.Info("User was registered concurrently")
		default:
			log.Warn("Unexpected registration response", zap.Int("status", reg.StatusCode))
			result.Outcome = OutcomeUnknownStatus
			result.RegisterStatus = reg.StatusCode
		}
	}

	enter(StateIssuing)
	result.Token, result.Claims, err = s.codec.IssueSession(models.NewSessionClaims(profile))
	if err != nil {
		return fail(StateIssuing, err)
	}

	enter(StateRendering)
	result.Page, err = renderPage(result.Outcome, profile, result.RegisterStatus)
	if err != nil {
		return fail(StateRendering, err)
	}

	enter(StateDone)
	s.metrics.Callback(result.Outcome.String())
	log.Info("Login callback finished",
		zap.Stringer("outcome", result.Outcome),
		zap.Time("session_expires_at", result.Claims.ExpiresAt))
	return result, nil
}
