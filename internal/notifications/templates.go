package notifications

import (
	"bytes"
	"html/template"
	"strconv"
	"time"
)

type OTPPurpose string

const (
	PurposeRegistration  OTPPurpose = "registration"
	PurposePasswordReset OTPPurpose = "password_reset"
)

var otpTemplate = template.Must(template.New("otp").Parse(`<!doctype html>
<html>
  <body style="font-family: sans-serif">
    <p>Hello {{if .Name}}{{.Name}}{{else}}there{{end}},</p>
    <p>{{.Intro}}</p>
    <p style="font-size: 28px; letter-spacing: 6px"><strong>{{.Code}}</strong></p>
    <p>The code expires in {{.Minutes}} minutes. If you did not request it, ignore this email.</p>
  </body>
</html>`))

// OTPMessage renders the email carrying a one-time code.
func OTPMessage(to, name string, code int, ttl time.Duration, purpose OTPPurpose) (Message, error) {
	subject := "Verify your email"
	intro := "Use this code to finish creating your account:"
	if purpose == PurposePasswordReset {
		subject = "Reset your password"
		intro = "Use this code to set a new password:"
	}

	var b bytes.Buffer
	err := otpTemplate.Execute(&b, struct {
		Name    string
		Intro   string
		Code    string
		Minutes int
	}{
		Name:    name,
		Intro:   intro,
		Code:    strconv.Itoa(code),
		Minutes: int(ttl.Minutes()),
	})
	if err != nil {
		return Message{}, err
	}

	return Message{To: to, Subject: subject, HTML: b.String()}, nil
}
