package utils

import (
	"encoding/json"
	"net/http"

	"github.com/Innov8rs-paradise/mufa-login/internal/logger"
	"go.uber.org/zap"
)

// ErrorResponse is the body of every error answered by the service
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("Failed to encode JSON response", zap.Error(err))
	}
}

// WriteDetail writes a {"detail": "..."} error response
func WriteDetail(w http.ResponseWriter, status int, detail string) {
	WriteJSON(w, status, ErrorResponse{Detail: detail})
}

// WriteHTML writes an already rendered HTML page
func WriteHTML(w http.ResponseWriter, status int, page []byte) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write(page); err != nil {
		logger.Error("Failed to write HTML response", zap.Error(err))
	}
}
