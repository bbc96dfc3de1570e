package services

import (
	"bytes"
	"fmt"
	"html/template"
	"log"
	"net/smtp"
	"strings"

	"livedhere/internal/config"
)

type MailService struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	SiteURL  string
	Enabled  bool
}

func NewMailService(cfg *config.Config) *MailService {
	enabled := cfg.SMTPHost != "" && cfg.SMTPPort != "" && cfg.SMTPUser != "" && cfg.SMTPPass != "" && cfg.SMTPFrom != ""
	if !enabled {
		log.Println("MailService disabled: missing SMTP configuration")
	}

	return &MailService{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUser,
		Password: cfg.SMTPPass,
		From:     cfg.SMTPFrom,
		SiteURL:  cfg.SiteURL,
		Enabled:  enabled,
	}
}

// sendAsync fires the email off in a goroutine. Delivery failures are logged
// and never propagate back to the caller: a moderation transition must not
// roll back because SMTP was down.
func (s *MailService) sendAsync(to []string, subject string, body string) {
	if !s.Enabled {
		return
	}

	go func() {
		auth := smtp.PlainAuth("", s.Username, s.Password, s.Host)
		addr := fmt.Sprintf("%s:%s", s.Host, s.Port)

		mime := "MIME-version: 1.0;\nContent-Type: text/html; charset=\"UTF-8\";\n\n"
		msg := []byte(fmt.Sprintf("To: %s\r\n"+
			"From: LivedHere <%s>\r\n"+
			"Subject: %s\r\n"+
			"%s\r\n%s", strings.Join(to, ","), s.From, subject, mime, body))

		err := smtp.SendMail(addr, auth, s.From, to, msg)
		if err != nil {
			log.Printf("Failed to send email to %v: %v", to, err)
		}
	}()
}

var moderationUpdateTmpl = template.Must(template.New("moderation_update").Parse(`
<p>Hello,</p>
<p>Your review <strong>{{.TrackingCode}}</strong> is now <strong>{{.Status}}</strong>.</p>
{{if .Message}}<p>Moderator note: {{.Message}}</p>{{end}}
<p>You can check the current status any time at <a href="{{.StatusURL}}">{{.StatusURL}}</a>.</p>
`))

var reviewReceivedTmpl = template.Must(template.New("review_received").Parse(`
<p>Hello,</p>
<p>We received your review. It will appear publicly once it passes moderation.</p>
<p>Your tracking code is <strong>{{.TrackingCode}}</strong>; check progress at
<a href="{{.StatusURL}}">{{.StatusURL}}</a>.</p>
`))

// SendModerationUpdate informs an account author that a moderator changed
// their review's status.
func (s *MailService) SendModerationUpdate(email, trackingCode, status, message string) {
	body, err := render(moderationUpdateTmpl, map[string]string{
		"TrackingCode": trackingCode,
		"Status":       status,
		"Message":      message,
		"StatusURL":    s.statusURL(trackingCode),
	})
	if err != nil {
		log.Printf("Error rendering moderation update email: %v", err)
		return
	}
	s.sendAsync([]string{email}, "Your review status changed: "+status, body)
}

// SendReviewReceived confirms a new submission to an account author.
func (s *MailService) SendReviewReceived(email, trackingCode string) {
	body, err := render(reviewReceivedTmpl, map[string]string{
		"TrackingCode": trackingCode,
		"StatusURL":    s.statusURL(trackingCode),
	})
	if err != nil {
		log.Printf("Error rendering review received email: %v", err)
		return
	}
	s.sendAsync([]string{email}, "We received your review", body)
}

func (s *MailService) statusURL(trackingCode string) string {
	return fmt.Sprintf("%s/review-status/%s", s.SiteURL, trackingCode)
}

func render(t *template.Template, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template %s: %w", t.Name(), err)
	}
	return buf.String(), nil
}
