// Package apidoc describes the public HTTP API as an OpenAPI 3 document.
package apidoc

import (
	"context"
	"fmt"

	"github.com/Innov8rs-paradise/mufa-login/internal/auth/constants"
	"github.com/Innov8rs-paradise/mufa-login/internal/config"
	"github.com/getkin/kin-openapi/openapi3"
	"go.uber.org/fx"
)

const (
	bearerScheme = "bearerAuth"
	cookieScheme = "cookieAuth"
)

func detailSchema() *openapi3.Schema {
	s := openapi3.NewObjectSchema().WithProperty("detail", openapi3.NewStringSchema())
	s.Required = []string{"detail"}
	return s
}

func detailResponse(description string) *openapi3.ResponseRef {
	return &openapi3.ResponseRef{Value: openapi3.NewResponse().
		WithDescription(description).
		WithJSONSchema(detailSchema())}
}

func htmlResponse(description string) *openapi3.ResponseRef {
	return &openapi3.ResponseRef{Value: openapi3.NewResponse().
		WithDescription(description).
		WithContent(openapi3.NewContentWithSchema(openapi3.NewStringSchema(), []string{"text/html"}))}
}

// NewDocument builds and validates the API description
func NewDocument(cfg *config.Config) (*openapi3.T, error) {
	cookieName := cfg.Session.CookieName
	if cookieName == "" {
		cookieName = "session_token"
	}

	claims := openapi3.NewObjectSchema().
		WithProperty(constants.ClaimUserID, openapi3.NewStringSchema()).
		WithProperty(constants.ClaimEmail, openapi3.NewStringSchema()).
		WithProperty(constants.ClaimName, openapi3.NewStringSchema()).
		WithProperty(constants.ClaimExpiry, openapi3.NewInt64Schema())
	claims.Required = []string{constants.ClaimUserID, constants.ClaimExpiry}

	paths := openapi3.NewPaths()
	paths.Set(constants.LoginPath, &openapi3.PathItem{
		Get: &openapi3.Operation{
			OperationID: "login",
			Summary:     "Redirect the browser to the Google consent screen",
			Tags:        []string{"login"},
			Responses: openapi3.NewResponses(
				openapi3.WithStatus(307, &openapi3.ResponseRef{Value: openapi3.NewResponse().
					WithDescription("Redirect to the identity provider")}),
			),
		},
	})
	paths.Set(constants.CallbackPath, &openapi3.PathItem{
		Get: &openapi3.Operation{
			OperationID: "authCallback",
			Summary:     "Complete a login with the authorization code issued by Google",
			Tags:        []string{"login"},
			Parameters: openapi3.Parameters{
				{Value: openapi3.NewQueryParameter("code").
					WithDescription("Authorization code").
					WithSchema(openapi3.NewStringSchema())},
				{Value: openapi3.NewQueryParameter("error").
					WithDescription("Set by the provider when the user denied consent").
					WithSchema(openapi3.NewStringSchema())},
			},
			Responses: openapi3.NewResponses(
				openapi3.WithStatus(200, htmlResponse("Login succeeded, the session cookie is set")),
				openapi3.WithStatus(400, detailResponse("Missing code or denied consent")),
				openapi3.WithStatus(500, detailResponse("Login failed")),
			),
		},
	})
	paths.Set(constants.MePath, &openapi3.PathItem{
		Get: &openapi3.Operation{
			OperationID: "me",
			Summary:     "Return the claims of the current session",
			Tags:        []string{"session"},
			Security: &openapi3.SecurityRequirements{
				openapi3.NewSecurityRequirement().Authenticate(cookieScheme),
				openapi3.NewSecurityRequirement().Authenticate(bearerScheme),
			},
			Responses: openapi3.NewResponses(
				openapi3.WithStatus(200, &openapi3.ResponseRef{Value: openapi3.NewResponse().
					WithDescription("Session claims").
					WithJSONSchema(claims)}),
				openapi3.WithStatus(401, detailResponse("Missing, expired or invalid session token")),
			),
		},
	})
	paths.Set(constants.HealthPath, &openapi3.PathItem{
		Get: &openapi3.Operation{
			OperationID: "health",
			Summary:     "Liveness probe",
			Tags:        []string{"ops"},
			Responses: openapi3.NewResponses(
				openapi3.WithStatus(200, &openapi3.ResponseRef{Value: openapi3.NewResponse().
					WithDescription("Service is up").
					WithJSONSchema(openapi3.NewObjectSchema().WithProperty("status", openapi3.NewStringSchema()))}),
			),
		},
	})

	doc := &openapi3.T{
		OpenAPI: "3.0.3",
		Info: &openapi3.Info{
			Title:       "mufa-login",
			Description: "Google sign-in for the mufa services",
			Version:     config.Version(),
		},
		Paths: paths,
		Components: &openapi3.Components{
			SecuritySchemes: openapi3.SecuritySchemes{
				bearerScheme: &openapi3.SecuritySchemeRef{Value: openapi3.NewJWTSecurityScheme()},
				cookieScheme: &openapi3.SecuritySchemeRef{Value: &openapi3.SecurityScheme{
					Type: "apiKey",
					In:   "cookie",
					Name: cookieName,
				}},
			},
		},
	}

	if err := doc.Validate(context.Background()); err != nil {
		return nil, fmt.Errorf("invalid OpenAPI document: %w", err)
	}
	return doc, nil
}

var Module = fx.Module("apidoc",
	fx.Provide(NewDocument),
)
