package mail

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"time"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

const (
	ConfirmationSubject  = "Confirm your email"
	PasswordResetSubject = "Reset your password"
)

type linkData struct {
	Name      string
	Link      string
	ExpiresIn string
}

// RenderConfirmation builds the account activation email body.
func RenderConfirmation(name, link string, ttl time.Duration) (string, error) {
	return render("confirmation.html", linkData{Name: name, Link: link, ExpiresIn: humanize(ttl)})
}

// RenderPasswordReset builds the password reset email body.
func RenderPasswordReset(name, link string, ttl time.Duration) (string, error) {
	return render("password_reset.html", linkData{Name: name, Link: link, ExpiresIn: humanize(ttl)})
}

func render(name string, data any) (string, error) {
	buf := new(bytes.Buffer)
	if err := templates.ExecuteTemplate(buf, name, data); err != nil {
		return "", fmt.Errorf("failed to execute template %s: %w", name, err)
	}
	return buf.String(), nil
}

func humanize(d time.Duration) string {
	switch {
	case d >= time.Hour && d%time.Hour == 0:
		if h := int(d / time.Hour); h != 1 {
			return fmt.Sprintf("%d hours", h)
		}
		return "1 hour"
	case d >= time.Minute && d%time.Minute == 0:
		if m := int(d / time.Minute); m != 1 {
			return fmt.Sprintf("%d minutes", m)
		}
		return "1 minute"
	default:
		return d.String()
	}
}
