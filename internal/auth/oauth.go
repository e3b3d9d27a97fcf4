package auth

import (
	"net/http"

	"github.com/Innov8rs-paradise/mufa-login/internal/auth/constants"
	"github.com/Innov8rs-paradise/mufa-login/internal/auth/handlers"
	"github.com/Innov8rs-paradise/mufa-login/internal/auth/middleware"
	"github.com/Innov8rs-paradise/mufa-login/internal/config"
	"github.com/Innov8rs-paradise/mufa-login/internal/login"
	"github.com/Innov8rs-paradise/mufa-login/internal/session"
	"github.com/go-chi/chi/v5"
	"go.uber.org/fx"
)

// Service exposes the login flow over HTTP
type Service struct {
	cookieName string
	verifier   middleware.SessionVerifier
	handler    *handlers.Handler
}

type ServiceParams struct {
	fx.In

	Config *config.Config
	Login  *login.Service
	Codec  *session.Codec
}

// NewService creates the HTTP side of the login flow
func NewService(params ServiceParams) *Service {
	return New(params.Config.Session, params.Login, params.Codec)
}

// New wires the handlers to any login service and session verifier
func New(sessionCfg config.SessionConfig, svc handlers.LoginService, verifier middleware.SessionVerifier) *Service {
	return &Service{
		cookieName: sessionCfg.CookieName,
		verifier:   verifier,
		handler:    handlers.NewHandler(svc, sessionCfg),
	}
}

// RegisterRoutes registers all login related routes
func (s *Service) RegisterRoutes(r chi.Router) {
	r.Get(constants.HealthPath, s.handler.HandleHealth)

	r.Get(constants.LoginPath, s.handler.HandleLogin)
	r.Get(constants.CallbackPath, s.handler.HandleAuthCallback)

	r.With(s.Authenticate()).Get(constants.MePath, s.handler.HandleMe)
}

// Authenticate returns the session authentication middleware
func (s *Service) Authenticate() func(http.Handler) http.Handler {
	return middleware.Authenticate(s.verifier, s.cookieName)
}
