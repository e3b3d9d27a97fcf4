package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/Innov8rs-paradise/mufa-login/internal/auth/constants"
	"github.com/Innov8rs-paradise/mufa-login/internal/auth/models"
	"github.com/Innov8rs-paradise/mufa-login/internal/logger"
	"github.com/Innov8rs-paradise/mufa-login/internal/session"
	"github.com/Innov8rs-paradise/mufa-login/internal/utils"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// authContextKey is the key type for the context
type authContextKey string

const (
	// AuthContextKey is used to store the session claims in the request context
	AuthContextKey authContextKey = "auth"
)

// SessionVerifier validates session tokens
type SessionVerifier interface {
	ParseSession(token string) (*models.SessionClaims, error)
}

// Authenticate validates the session token from the session cookie or the
// Authorization header and stores its claims in the request context.
func Authenticate(verifier SessionVerifier, cookieName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractToken(r, cookieName)
			if token == "" {
				writeUnauthorized(w, "missing_token", "Not authenticated")
				return
			}

			claims, err := verifier.ParseSession(token)
			if err != nil {
				logger.Debug("Rejected session token", zap.Error(err))
				if errors.Is(err, session.ErrExpiredToken) {
					writeUnauthorized(w, "expired_token", "Token expired")
					return
				}
				writeUnauthorized(w, "invalid_token", "Invalid token")
				return
			}

			ctx := context.WithValue(r.Context(), AuthContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClaimsFromContext returns the claims stored by Authenticate
func ClaimsFromContext(ctx context.Context) (*models.SessionClaims, bool) {
	claims, ok := ctx.Value(AuthContextKey).(*models.SessionClaims)
	return claims, ok
}

// Recover turns panics into the generic 500 response
func Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				logger.Error("Panic while serving request",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Any("panic", rec),
					zap.ByteString("stack", debug.Stack()))
				utils.WriteDetail(w, http.StatusInternalServerError, constants.InternalServerErrorDetail)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// RequestLogger logs one line per request. Query strings are left out since
// they carry authorization codes.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		logger.Info("HTTP request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
			zap.String("remote_addr", r.RemoteAddr),
			zap.String("request_id", chimw.GetReqID(r.Context())),
		)
	})
}

// extractToken reads the session cookie, then the Bearer token
func extractToken(r *http.Request, cookieName string) string {
	if cookieName != "" {
		if c, err := r.Cookie(cookieName); err == nil && c.Value != "" {
			return c.Value
		}
	}
	authHeader := r.Header.Get(constants.AuthHeaderName)
	if strings.HasPrefix(authHeader, constants.AuthHeaderPrefix) {
		return strings.TrimPrefix(authHeader, constants.AuthHeaderPrefix)
	}
	return ""
}

// writeUnauthorized writes a 401 with a WWW-Authenticate challenge
func writeUnauthorized(w http.ResponseWriter, code, detail string) {
	w.Header().Set("WWW-Authenticate", fmt.Sprintf(`Bearer realm="mufa-login", error="%s"`, code))
	utils.WriteDetail(w, http.StatusUnauthorized, detail)
}
