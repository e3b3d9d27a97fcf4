package login

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/Innov8rs-paradise/mufa-login/internal/auth/models"
)

var pageTemplate = template.Must(template.New("login").Parse(`<html>
    <head><title>Login Success</title></head>
    <body>
        <h2>Login Successful</h2>
        {{- if .Returning}}
        <p>Welcome back, {{.Name}}!</p>
        {{- else}}
        <p>Welcome, {{.Name}}!</p>
        {{- end}}
        {{- if .ErrorCode}}
        <p>Unknown error. Error code: {{.ErrorCode}}</p>
        {{- end}}
        <p>Email: {{.Email}}</p>
        <p>You may now close this tab.</p>
    </body>
</html>
`))

type pageData struct {
	Name      string
	Email     string
	Returning bool
	ErrorCode int
}

func renderPage(outcome Outcome, profile *models.UserProfile, statusCode int) ([]byte, error) {
	data := pageData{
		Name:      profile.Name,
		Email:     profile.Email,
		Returning: outcome == OutcomeWelcomeBack,
	}
	if outcome == OutcomeUnknownStatus {
		data.ErrorCode = statusCode
	}

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("render %s page: %w", outcome, err)
	}
	return buf.Bytes(), nil
}
