package directory

import (
	"context"
	"errors"
	"fmt"

	"github.com/Innov8rs-paradise/mufa-login/internal/auth/models"
)

// ErrUnreachable is returned when the directory service could not be called
// or answered the existence check with an unexpected status.
var ErrUnreachable = errors.New("user directory unreachable")

// Directory is the user directory as seen by the login callback
type Directory interface {
	UserExists(ctx context.Context, userID string) (bool, error)
	Register(ctx context.Context, profile *models.UserProfile) (RegisterOutcome, error)
}

// OutcomeKind classifies a registration response
type OutcomeKind int

const (
	Created OutcomeKind = iota + 1
	AlreadyExists
	UnknownStatus
)

func (k OutcomeKind) String() string {
	switch k {
	case Created:
		return "created"
	case AlreadyExists:
		return "already_exists"
	case UnknownStatus:
		return "unknown_status"
	default:
		return "invalid"
	}
}

// RegisterOutcome is the classified result of a registration call.
// StatusCode is always the status the directory answered with.
type RegisterOutcome struct {
	Kind       OutcomeKind
	StatusCode int
}

func (o RegisterOutcome) String() string {
	return fmt.Sprintf("%s(%d)", o.Kind, o.StatusCode)
}

// registerRequest is the body of POST /users/
type registerRequest struct {
	ID      string  `json:"id"`
	Email   string  `json:"email"`
	Name    string  `json:"name"`
	Picture *string `json:"picture"`
}

func newRegisterRequest(p *models.UserProfile) registerRequest {
	req := registerRequest{ID: p.ID, Email: p.Email, Name: p.Name}
	if p.Picture != "" {
		picture := p.Picture
		req.Picture = &picture
	}
	return req
}

// response is a fully read directory response
type response struct {
	StatusCode int
	Body       []byte
}
