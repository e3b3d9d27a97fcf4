// Package session issues and validates the signed, expiring tokens handed to
// a browser after a successful login.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"time"

	"github.com/Innov8rs-paradise/mufa-login/internal/auth/constants"
	"github.com/Innov8rs-paradise/mufa-login/internal/auth/models"
	"github.com/Innov8rs-paradise/mufa-login/internal/config"
	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrExpiredToken is returned by Verify when the token's exp is in the past.
	ErrExpiredToken = errors.New("token expired")
	// ErrInvalidToken is returned by Verify for bad signatures, unexpected
	// algorithms and malformed tokens.
	ErrInvalidToken = errors.New("invalid token")
)

// Codec signs and verifies session tokens with a process wide HMAC secret.
// It holds no mutable state and is safe for concurrent use.
type Codec struct {
	secret []byte
	method jwt.SigningMethod
	ttl    time.Duration
	now    func() time.Time
}

// Option customizes a Codec.
type Option func(*Codec)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Codec) {
		c.now = now
	}
}

// NewCodec builds a codec for one of the HS256/HS384/HS512 algorithms.
// A non-positive ttl falls back to constants.DefaultSessionTTL.
func NewCodec(secret, algorithm string, ttl time.Duration, opts ...Option) (*Codec, error) {
	if secret == "" {
		return nil, errors.New("session secret must not be empty")
	}
	method, ok := jwt.GetSigningMethod(algorithm).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("unsupported session signing algorithm %q", algorithm)
	}
	if ttl <= 0 {
		ttl = constants.DefaultSessionTTL
	}

	c := &Codec{
		secret: []byte(secret),
		method: method,
		ttl:    ttl,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// NewFromConfig builds the codec from the session section of the config.
func NewFromConfig(cfg *config.Config) (*Codec, error) {
	return NewCodec(cfg.Session.Secret, cfg.Session.Algorithm, cfg.Session.TTL)
}

// TTL returns the default token lifetime.
func (c *Codec) TTL() time.Duration {
	return c.ttl
}

// Issue signs claims with the default TTL.
func (c *Codec) Issue(claims map[string]any) (string, error) {
	return c.IssueWithTTL(claims, c.ttl)
}

// IssueWithTTL copies claims, sets exp to now+ttl and signs the result.
// A caller supplied exp is overwritten.
func (c *Codec) IssueWithTTL(claims map[string]any, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		return "", fmt.Errorf("session ttl must be positive, got %s", ttl)
	}
	return c.sign(claims, c.now().Add(ttl))
}

func (c *Codec) sign(claims map[string]any, expiresAt time.Time) (string, error) {
	toSign := make(jwt.MapClaims, len(claims)+1)
	maps.Copy(toSign, claims)
	toSign[constants.ClaimExpiry] = expiresAt.Unix()

	signed, err := jwt.NewWithClaims(c.method, toSign).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature, algorithm and expiry of token and returns its
// claims. Whole numbers come back as int64, other numbers as float64.
// Failures are always ErrExpiredToken or wrap ErrInvalidToken.
func (c *Codec) Verify(token string) (map[string]any, error) {
	claims, err := c.parse(token)
	if err != nil {
		return nil, err
	}

	out := make(map[string]any, len(claims))
	for k, v := range claims {
		out[k] = normalizeNumbers(v)
	}
	return out, nil
}

func (c *Codec) parse(token string) (jwt.MapClaims, error) {
	parsed, err := jwt.Parse(token, func(*jwt.Token) (any, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{c.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
		jwt.WithJSONNumber(),
	)
	if err != nil {
		return nil, mapJWTError(err)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// normalizeNumbers replaces json.Number values, including nested ones.
func normalizeNumbers(v any) any {
	switch val := v.(type) {
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i
		}
		f, _ := val.Float64()
		return f
	case map[string]any:
		for k, item := range val {
			val[k] = normalizeNumbers(item)
		}
		return val
	case []any:
		for i, item := range val {
			val[i] = normalizeNumbers(item)
		}
		return val
	default:
		return v
	}
}

// IssueSession signs the claims of an authenticated user with the default TTL.
// The returned ExpiresAt is the exact instant encoded in the token.
func (c *Codec) IssueSession(claims models.SessionClaims) (string, models.SessionClaims, error) {
	expiresAt := time.Unix(c.now().Add(c.ttl).Unix(), 0)
	token, err := c.sign(map[string]any{
		constants.ClaimUserID: claims.UserID,
		constants.ClaimEmail:  claims.Email,
		constants.ClaimName:   claims.Name,
	}, expiresAt)
	if err != nil {
		return "", models.SessionClaims{}, err
	}
	claims.ExpiresAt = expiresAt
	return token, claims, nil
}

// ParseSession verifies token and decodes it into SessionClaims.
func (c *Codec) ParseSession(token string) (*models.SessionClaims, error) {
	claims, err := c.parse(token)
	if err != nil {
		return nil, err
	}

	userID, _ := claims[constants.ClaimUserID].(string)
	if userID == "" {
		return nil, fmt.Errorf("%w: missing %s claim", ErrInvalidToken, constants.ClaimUserID)
	}
	email, _ := claims[constants.ClaimEmail].(string)
	name, _ := claims[constants.ClaimName].(string)

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil, fmt.Errorf("%w: bad %s claim", ErrInvalidToken, constants.ClaimExpiry)
	}

	return &models.SessionClaims{
		UserID:    userID,
		Email:     email,
		Name:      name,
		ExpiresAt: exp.Time,
	}, nil
}

// mapJWTError translates jwt library errors to the codec's two failure classes.
func mapJWTError(err error) error {
	if errors.Is(err, jwt.ErrTokenExpired) {
		return ErrExpiredToken
	}
	return fmt.Errorf("%w: %v", ErrInvalidToken, err)
}
