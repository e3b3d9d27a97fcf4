package handlers

import (
	"context"
	"net/http"

	"github.com/Innov8rs-paradise/mufa-login/internal/auth/constants"
	"github.com/Innov8rs-paradise/mufa-login/internal/auth/middleware"
	"github.com/Innov8rs-paradise/mufa-login/internal/config"
	"github.com/Innov8rs-paradise/mufa-login/internal/logger"
	"github.com/Innov8rs-paradise/mufa-login/internal/login"
	"github.com/Innov8rs-paradise/mufa-login/internal/utils"
	"go.uber.org/zap"
)

// LoginService is the part of the login service the handlers use
type LoginService interface {
	LoginURL() string
	Callback(ctx context.Context, code string) (*login.Result, error)
}

// Handler handles the login HTTP requests
type Handler struct {
	service LoginService
	cookie  config.SessionConfig
}

// NewHandler creates a new Handler instance
func NewHandler(service LoginService, sessionCfg config.SessionConfig) *Handler {
	if sessionCfg.CookieName == "" {
		sessionCfg.CookieName = "session_token"
	}
	return &Handler{
		service: service,
		cookie:  sessionCfg,
	}
}

// HandleLogin redirects the browser to the identity provider
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, h.service.LoginURL(), http.StatusTemporaryRedirect)
}

// HandleAuthCallback handles the redirect back from the identity provider
func (h *Handler) HandleAuthCallback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	if providerErr := query.Get("error"); providerErr != "" {
		logger.Warn("Identity provider returned an error", zap.String("error", providerErr))
		utils.WriteDetail(w, http.StatusBadRequest, "Authorization denied")
		return
	}

	code := query.Get("code")
	if code == "" {
		utils.WriteDetail(w, http.StatusBadRequest, "Missing authorization code")
		return
	}

	result, err := h.service.Callback(r.Context(), code)
	if err != nil {
		// Details are logged by the login service and never reach the client
		utils.WriteDetail(w, http.StatusInternalServerError, constants.InternalServerErrorDetail)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.CookieName,
		Value:    result.Token,
		Path:     "/",
		Expires:  result.Claims.ExpiresAt,
		MaxAge:   int(h.cookie.TTL.Seconds()),
		HttpOnly: true,
		Secure:   h.cookie.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	w.Header().Set("Cache-Control", "no-store")
	utils.WriteHTML(w, http.StatusOK, result.Page)
}

// meResponse is the body of GET /me
type meResponse struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	ExpiresAt int64  `json:"exp"`
}

// HandleMe returns the claims of the authenticated session
func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		utils.WriteDetail(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	utils.WriteJSON(w, http.StatusOK, meResponse{
		UserID:    claims.UserID,
		Email:     claims.Email,
		Name:      claims.Name,
		ExpiresAt: claims.ExpiresAt.Unix(),
	})
}

// HandleHealth reports liveness
func (h *Handler) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
