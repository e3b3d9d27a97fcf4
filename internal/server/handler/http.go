// Package handler assembles the HTTP handler of the login service.
package handler

import (
	"net/http"

	"github.com/Innov8rs-paradise/mufa-login/internal/auth"
	"github.com/Innov8rs-paradise/mufa-login/internal/auth/constants"
	"github.com/Innov8rs-paradise/mufa-login/internal/auth/middleware"
	"github.com/Innov8rs-paradise/mufa-login/internal/config"
	"github.com/Innov8rs-paradise/mufa-login/internal/logger"
	"github.com/Innov8rs-paradise/mufa-login/internal/metrics"
	"github.com/Innov8rs-paradise/mufa-login/internal/utils"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Handler manages HTTP routing and the middleware stack.
type Handler struct {
	auth       *auth.Service
	metrics    *metrics.Recorder
	metricsCfg config.MetricsConfig
	doc        *openapi3.T
}

type Params struct {
	fx.In

	Config  *config.Config
	Auth    *auth.Service
	Metrics *metrics.Recorder `optional:"true"`
	Doc     *openapi3.T       `optional:"true"`
}

// NewHandler creates a new HTTP handler.
func NewHandler(params Params) *Handler {
	return &Handler{
		auth:       params.Auth,
		metrics:    params.Metrics,
		metricsCfg: params.Config.Metrics,
		doc:        params.Doc,
	}
}

// CreateHTTPHandler creates the router with the full middleware stack.
func (h *Handler) CreateHTTPHandler() http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(h.metrics.Middleware)
	r.Use(middleware.RequestLogger)
	r.Use(middleware.Recover)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		utils.WriteDetail(w, http.StatusNotFound, "Not Found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		utils.WriteDetail(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	})

	h.auth.RegisterRoutes(r)
	logger.Info("Registered login routes")

	if h.doc != nil {
		r.Get(constants.OpenAPIPath, func(w http.ResponseWriter, _ *http.Request) {
			utils.WriteJSON(w, http.StatusOK, h.doc)
		})
	}

	if h.metrics != nil && h.metricsCfg.Enabled {
		r.Method(http.MethodGet, h.metricsCfg.Path, h.metrics.Handler())
		logger.Info("Serving metrics", zap.String("path", h.metricsCfg.Path))
	}

	return r
}
