package directory

import (
	"fmt"
	"net/http"

	"github.com/Innov8rs-paradise/mufa-login/internal/auth/constants"
	"github.com/Innov8rs-paradise/mufa-login/internal/config"
)

// AuthManager handles request authentication towards the directory service
type AuthManager interface {
	ApplyAuth(req *http.Request) error
}

// HTTPAuthManager implements the AuthManager interface
type HTTPAuthManager struct {
	authType   config.AuthType
	authConfig map[string]string
}

// NewHTTPAuthManager creates a new HTTPAuthManager
func NewHTTPAuthManager(cfg *config.DirectoryConfig) *HTTPAuthManager {
	return &HTTPAuthManager{
		authType:   cfg.AuthType,
		authConfig: cfg.AuthConfig,
	}
}

// ApplyAuth adds authentication to the request
func (a *HTTPAuthManager) ApplyAuth(req *http.Request) error {
	switch a.authType {
	case config.AuthTypeNone, "":
		return nil
	case config.AuthTypeBasic:
		req.SetBasicAuth(a.authConfig["username"], a.authConfig["password"])
	case config.AuthTypeBearer:
		req.Header.Set(constants.AuthHeaderName, constants.AuthHeaderPrefix+a.authConfig["token"])
	case config.AuthTypeAPIKey:
		header := a.authConfig["header"]
		if header == "" {
			header = "X-API-Key"
		}
		req.Header.Set(header, a.authConfig["key"])
	default:
		return fmt.Errorf("unsupported auth type: %s", a.authType)
	}
	return nil
}
