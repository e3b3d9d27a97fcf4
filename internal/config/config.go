package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Version information - set by GoReleaser during build
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// GetVersionInfo returns a formatted version string
func GetVersionInfo() string {
	return fmt.Sprintf("mufa-login version %s, commit %s, built at %s", version, commit, date)
}

// Version returns the build version
func Version() string {
	return version
}

// EnvPrefix is prepended to every environment variable read by Load.
const EnvPrefix = "MUFA_LOGIN"

type Config struct {
	Server    ServerConfig    `mapstructure:"server" yaml:"server"`
	Logging   LoggingConfig   `mapstructure:"logging" yaml:"logging"`
	Google    GoogleConfig    `mapstructure:"google" yaml:"google"`
	Directory DirectoryConfig `mapstructure:"directory" yaml:"directory"`
	Session   SessionConfig   `mapstructure:"session" yaml:"session"`
	Metrics   MetricsConfig   `mapstructure:"metrics" yaml:"metrics"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host" yaml:"host"`
	Port            int           `mapstructure:"port" yaml:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// Addr returns the listen address for the HTTP server.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type LoggingConfig struct {
	Level             string `mapstructure:"level" yaml:"level"`
	Format            string `mapstructure:"format" yaml:"format"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace" yaml:"disable_stacktrace"`
	OutputPath        string `mapstructure:"output_path" yaml:"output_path"`
	AppendToFile      bool   `mapstructure:"append_to_file" yaml:"append_to_file"`
	DisableConsole    bool   `mapstructure:"disable_console" yaml:"disable_console"`
}

// GoogleConfig configures the identity provider client.
type GoogleConfig struct {
	ClientID     string        `mapstructure:"client_id" yaml:"client_id"`
	ClientSecret string        `mapstructure:"client_secret" yaml:"client_secret"`
	RedirectURL  string        `mapstructure:"redirect_url" yaml:"redirect_url"`
	Scopes       []string      `mapstructure:"scopes" yaml:"scopes"`
	AuthURL      string        `mapstructure:"auth_url" yaml:"auth_url"`
	TokenURL     string        `mapstructure:"token_url" yaml:"token_url"`
	UserInfoURL  string        `mapstructure:"userinfo_url" yaml:"userinfo_url"`
	Timeout      time.Duration `mapstructure:"timeout" yaml:"timeout"`
	// VerifyIDToken enables OIDC verification of the id_token returned by the
	// token endpoint. Requires discovery against IssuerURL at startup.
	VerifyIDToken bool   `mapstructure:"verify_id_token" yaml:"verify_id_token"`
	IssuerURL     string `mapstructure:"issuer_url" yaml:"issuer_url"`
}

// AuthType represents the type of authentication used towards the directory service
type AuthType string

const (
	AuthTypeNone   AuthType = "none"
	AuthTypeBasic  AuthType = "basic"
	AuthTypeBearer AuthType = "bearer"
	AuthTypeAPIKey AuthType = "api_key"
)

// DirectoryConfig configures the user directory client.
type DirectoryConfig struct {
	BaseURL    string            `mapstructure:"base_url" yaml:"base_url"`
	Timeout    time.Duration     `mapstructure:"timeout" yaml:"timeout"`
	AuthType   AuthType          `mapstructure:"auth_type" yaml:"auth_type"`
	AuthConfig map[string]string `mapstructure:"auth_config" yaml:"auth_config"`
	Headers    map[string]string `mapstructure:"headers" yaml:"headers"`
}

// SessionConfig configures session token signing and transport.
type SessionConfig struct {
	Secret       string        `mapstructure:"secret" yaml:"secret"`
	Algorithm    string        `mapstructure:"algorithm" yaml:"algorithm"`
	TTL          time.Duration `mapstructure:"ttl" yaml:"ttl"`
	CookieName   string        `mapstructure:"cookie_name" yaml:"cookie_name"`
	CookieSecure bool          `mapstructure:"cookie_secure" yaml:"cookie_secure"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Path    string `mapstructure:"path" yaml:"path"`
}

var supportedAlgorithms = []string{"HS256", "HS384", "HS512"}

// legacyEnv maps config keys to the environment variable names used by the
// first deployment of the service. They are read when the prefixed variable
// is not set.
var legacyEnv = map[string]string{
	"google.client_id":     "GOOGLE_CLIENT_ID",
	"google.client_secret": "GOOGLE_CLIENT_SECRET",
	"google.redirect_url":  "REDIRECT_URI",
	"directory.base_url":   "USER_DB_SERVICE_URL",
	"session.secret":       "JWT_SECRET",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 5*time.Second)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.disable_stacktrace", false)
	v.SetDefault("logging.output_path", "")
	v.SetDefault("logging.append_to_file", true)
	v.SetDefault("logging.disable_console", false)

	v.SetDefault("google.client_id", "")
	v.SetDefault("google.client_secret", "")
	v.SetDefault("google.redirect_url", "")
	v.SetDefault("google.scopes", []string{"openid", "email", "profile"})
	v.SetDefault("google.auth_url", "https://accounts.google.com/o/oauth2/v2/auth")
	v.SetDefault("google.token_url", "https://oauth2.googleapis.com/token")
	v.SetDefault("google.userinfo_url", "https://www.googleapis.com/oauth2/v2/userinfo")
	v.SetDefault("google.timeout", 10*time.Second)
	v.SetDefault("google.verify_id_token", false)
	v.SetDefault("google.issuer_url", "https://accounts.google.com")

	v.SetDefault("directory.base_url", "")
	v.SetDefault("directory.timeout", 10*time.Second)
	v.SetDefault("directory.auth_type", string(AuthTypeNone))

	v.SetDefault("session.secret", "")
	v.SetDefault("session.algorithm", "HS256")
	v.SetDefault("session.ttl", 60*time.Minute)
	v.SetDefault("session.cookie_name", "session_token")
	v.SetDefault("session.cookie_secure", true)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
}

// InitFlags registers the command line flags understood by Load on fs.
func InitFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "Path to a YAML config file")
	fs.String("env-file", ".env", "Path to a dotenv file loaded before reading the environment")
	fs.String("host", "", "Listen host (overrides server.host)")
	fs.Int("port", 0, "Listen port (overrides server.port)")
	fs.String("log-level", "", "Log level (overrides logging.level)")
}

// Load builds the process configuration from defaults, an optional YAML
// file, an optional dotenv file, the environment, and flags (in increasing
// precedence). fs may be nil.
func Load(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	envFile := ".env"
	if fs != nil {
		if f := fs.Lookup("env-file"); f != nil {
			envFile = f.Value.String()
		}
	}
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load env file %s: %w", envFile, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	for key, legacy := range legacyEnv {
		envKey := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, envKey, legacy); err != nil {
			return nil, err
		}
	}

	configPath := ""
	if fs != nil {
		if f := fs.Lookup("config"); f != nil {
			configPath = f.Value.String()
		}
	}
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/mufa-login")
		if err := v.ReadInConfig(); err != nil {
			// A config file is optional, the environment can carry everything
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, err
			}
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	if fs != nil {
		applyFlags(fs, &config)
	}

	// Scopes may come in as a single space separated string from the environment
	if len(config.Google.Scopes) == 1 {
		config.Google.Scopes = strings.Fields(config.Google.Scopes[0])
	}
	config.Session.Algorithm = strings.ToUpper(config.Session.Algorithm)
	config.Directory.BaseURL = strings.TrimRight(config.Directory.BaseURL, "/")

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func applyFlags(fs *pflag.FlagSet, config *Config) {
	if f := fs.Lookup("host"); f != nil && f.Changed {
		config.Server.Host = f.Value.String()
	}
	if port, err := fs.GetInt("port"); err == nil && fs.Changed("port") {
		config.Server.Port = port
	}
	if f := fs.Lookup("log-level"); f != nil && f.Changed {
		config.Logging.Level = f.Value.String()
	}
}

// Validate checks the settings the service cannot start without.
func (c *Config) Validate() error {
	if c.Google.ClientID == "" {
		return fmt.Errorf("google.client_id is required, please adjust the config or set %s_GOOGLE_CLIENT_ID or GOOGLE_CLIENT_ID", EnvPrefix)
	}
	if c.Google.ClientSecret == "" {
		return fmt.Errorf("google.client_secret is required, please adjust the config or set %s_GOOGLE_CLIENT_SECRET or GOOGLE_CLIENT_SECRET", EnvPrefix)
	}
	if c.Google.RedirectURL == "" {
		return fmt.Errorf("google.redirect_url is required, please adjust the config or set %s_GOOGLE_REDIRECT_URL or REDIRECT_URI", EnvPrefix)
	}
	if c.Directory.BaseURL == "" {
		return fmt.Errorf("directory.base_url is required, please adjust the config or set %s_DIRECTORY_BASE_URL or USER_DB_SERVICE_URL", EnvPrefix)
	}
	if c.Session.Secret == "" {
		return fmt.Errorf("session.secret is required, please adjust the config or set %s_SESSION_SECRET or JWT_SECRET", EnvPrefix)
	}
	if !isSupportedAlgorithm(c.Session.Algorithm) {
		return fmt.Errorf("session.algorithm %q is not supported, use one of %s", c.Session.Algorithm, strings.Join(supportedAlgorithms, ", "))
	}
	if c.Session.TTL <= 0 {
		return fmt.Errorf("session.ttl must be positive, got %s", c.Session.TTL)
	}
	if c.Google.VerifyIDToken && c.Google.IssuerURL == "" {
		return fmt.Errorf("google.issuer_url is required when google.verify_id_token is enabled")
	}
	switch c.Directory.AuthType {
	case "", AuthTypeNone, AuthTypeBasic, AuthTypeBearer, AuthTypeAPIKey:
	default:
		return fmt.Errorf("directory.auth_type %q is not supported", c.Directory.AuthType)
	}
	return nil
}

func isSupportedAlgorithm(alg string) bool {
	for _, a := range supportedAlgorithms {
		if a == alg {
			return true
		}
	}
	return false
}

// Redacted returns a copy of the config with secrets masked, suitable for
// printing.
func (c Config) Redacted() Config {
	const mask = "********"
	out := c
	if out.Google.ClientSecret != "" {
		out.Google.ClientSecret = mask
	}
	if out.Session.Secret != "" {
		out.Session.Secret = mask
	}
	if len(c.Directory.AuthConfig) > 0 {
		out.Directory.AuthConfig = make(map[string]string, len(c.Directory.AuthConfig))
		for k := range c.Directory.AuthConfig {
			out.Directory.AuthConfig[k] = mask
		}
	}
	return out
}
