// Package email sends candidate notifications via SMTP.
package email

import (
	"bytes"
	"fmt"
	"html/template"
	"net/smtp"
	"strings"
)

// Config holds SMTP configuration
type Config struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	FromName string
}

type Service struct {
	config Config
	server string
	auth   smtp.Auth
}

func NewService(config Config) *Service {
	auth := smtp.PlainAuth("", config.Username, config.Password, config.Host)

	return &Service{
		config: config,
		server: config.Host + ":" + config.Port,
		auth:   auth,
	}
}

// IsConfigured returns true if email is configured. Notifications are
// skipped silently otherwise.
func (s *Service) IsConfigured() bool {
	return s.config.Host != "" && s.config.Port != "" && s.config.From != ""
}

// SendHTMLEmail sends an HTML email with a plain text fallback part.
func (s *Service) SendHTMLEmail(to []string, subject, htmlBody string) error {
	if !s.IsConfigured() {
		return fmt.Errorf("email not configured")
	}

	from := s.config.From
	if s.config.FromName != "" {
		from = fmt.Sprintf("%s <%s>", s.config.FromName, s.config.From)
	}

	boundary := "boundary-ciportal"

	var msg bytes.Buffer
	fmt.Fprintf(&msg, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&msg, "From: %s\r\n", from)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	fmt.Fprintf(&msg, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(&msg, "Content-Type: multipart/alternative; boundary=\"%s\"\r\n", boundary)
	fmt.Fprintf(&msg, "\r\n")

	fmt.Fprintf(&msg, "--%s\r\n", boundary)
	fmt.Fprintf(&msg, "Content-Type: text/plain; charset=UTF-8\r\n")
	fmt.Fprintf(&msg, "\r\n")
	fmt.Fprintf(&msg, "Please view this email in an HTML-capable email client.\r\n")
	fmt.Fprintf(&msg, "\r\n")

	fmt.Fprintf(&msg, "--%s\r\n", boundary)
	fmt.Fprintf(&msg, "Content-Type: text/html; charset=UTF-8\r\n")
	fmt.Fprintf(&msg, "\r\n")
	fmt.Fprintf(&msg, "%s\r\n", htmlBody)
	fmt.Fprintf(&msg, "\r\n")
	fmt.Fprintf(&msg, "--%s--\r\n", boundary)

	return smtp.SendMail(s.server, s.auth, s.config.From, to, msg.Bytes())
}

type welcomeData struct {
	OrgName  string
	UserName string
}

type decisionData struct {
	OrgName  string
	UserName string
	ExamName string
	Approved bool
}

// SendWelcomeEmail greets a newly registered candidate.
func (s *Service) SendWelcomeEmail(to, userName, orgName string) error {
	html, err := renderTemplate(welcomeEmailTemplate, welcomeData{
		OrgName:  orgName,
		UserName: userName,
	})
	if err != nil {
		return fmt.Errorf("render welcome template: %w", err)
	}
	return s.SendHTMLEmail([]string{to}, fmt.Sprintf("Welcome to the %s invigilator portal", orgName), html)
}

// SendDecisionEmail notifies the candidate of the review outcome.
func (s *Service) SendDecisionEmail(to, userName, orgName, examName string, approved bool) error {
	html, err := renderTemplate(decisionEmailTemplate, decisionData{
		OrgName:  orgName,
		UserName: userName,
		ExamName: examName,
		Approved: approved,
	})
	if err != nil {
		return fmt.Errorf("render decision template: %w", err)
	}

	subject := fmt.Sprintf("Your invigilator application: %s", examName)
	return s.SendHTMLEmail([]string{to}, subject, html)
}

func renderTemplate(tmpl string, data any) (string, error) {
	t, err := template.New("email").Parse(tmpl)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

const welcomeEmailTemplate = `<!DOCTYPE html>
<html>
<body style="font-family: sans-serif; color: #222;">
  <h2>Welcome, {{.UserName}}</h2>
  <p>Your account on the {{.OrgName}} invigilator application portal has been created.</p>
  <p>Sign in to fill your application form. You can save a draft at any time and
  submit it once every detail is in place.</p>
  <p>Regards,<br>{{.OrgName}}</p>
</body>
</html>`

const decisionEmailTemplate = `<!DOCTYPE html>
<html>
<body style="font-family: sans-serif; color: #222;">
  <h2>Dear {{.UserName}},</h2>
  {{if .Approved}}
  <p>Your application for invigilation duty at the {{.ExamName}} has been <strong>approved</strong>.</p>
  <p>Please print your application document and carry it to the venue on your first duty day.</p>
  {{else}}
  <p>We regret to inform you that your application for invigilation duty at the {{.ExamName}}
  has <strong>not been accepted</strong>.</p>
  {{end}}
  <p>Regards,<br>{{.OrgName}}</p>
</body>
</html>`
