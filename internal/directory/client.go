// Package directory talks to the user directory service that owns the
// registered users.
package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/Innov8rs-paradise/mufa-login/internal/auth/constants"
	"github.com/Innov8rs-paradise/mufa-login/internal/auth/models"
	"github.com/Innov8rs-paradise/mufa-login/internal/config"
	"github.com/Innov8rs-paradise/mufa-login/internal/logger"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// HTTPClient implements Directory over the directory service REST API
type HTTPClient struct {
	client  *http.Client
	baseURL string
	headers map[string]string
	authMgr AuthManager
}

type HTTPClientParams struct {
	fx.In

	Config      *config.Config
	AuthManager AuthManager
}

// NewHTTPClient creates a directory client from the directory config
func NewHTTPClient(params HTTPClientParams) *HTTPClient {
	cfg := params.Config.Directory
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = constants.DefaultUpstreamTimeout
	}
	return &HTTPClient{
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		headers: cfg.Headers,
		authMgr: params.AuthManager,
	}
}

// UserExists reports whether the directory knows userID.
// 200 means yes, 404 means no, anything else is ErrUnreachable.
func (c *HTTPClient) UserExists(ctx context.Context, userID string) (bool, error) {
	resp, err := c.do(ctx, http.MethodGet, "/users/"+url.PathEscape(userID), nil)
	if err != nil {
		return false, err
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		logger.Warn("Unexpected status from user existence check",
			zap.String("user_id", userID),
			zap.Int("status", resp.StatusCode))
		return false, fmt.Errorf("%w: existence check returned status %d", ErrUnreachable, resp.StatusCode)
	}
}

// Register creates the user in the directory. Every HTTP answer is
// classified into an outcome; only transport failures return an error.
func (c *HTTPClient) Register(ctx context.Context, profile *models.UserProfile) (RegisterOutcome, error) {
	body, err := json.Marshal(newRegisterRequest(profile))
	if err != nil {
		return RegisterOutcome{}, fmt.Errorf("failed to marshal request body: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPost, "/users/", body)
	if err != nil {
		return RegisterOutcome{}, err
	}

	outcome := RegisterOutcome{StatusCode: resp.StatusCode}
	switch resp.StatusCode {
	case http.StatusOK:
		outcome.Kind = Created
	case http.StatusBadRequest:
		outcome.Kind = AlreadyExists
	default:
		outcome.Kind = UnknownStatus
		logger.Warn("Unexpected status from user registration",
			zap.String("user_id", profile.ID),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", resp.Body))
	}
	return outcome, nil
}

// do builds, authenticates and executes one request and reads the whole body
func (c *HTTPClient) do(ctx context.Context, method, path string, body []byte) (*response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if err := c.authMgr.ApplyAuth(req); err != nil {
		return nil, fmt.Errorf("failed to apply authentication: %w", err)
	}

	logger.Debug("directory request", zap.String("method", method), zap.String("url", req.URL.String()))

	resp, err := c.client.Do(req)
	if err != nil {
		logger.Error("Directory request failed", zap.String("method", method), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			logger.Error("Failed to close response body", zap.Error(closeErr))
		}
	}()

	// Read the whole body so the connection can be reused
	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response body: %v", ErrUnreachable, err)
	}

	return &response{
		StatusCode: resp.StatusCode,
		Body:       bodyBytes,
	}, nil
}
