package email

import (
	"fmt"
	"net/smtp"
	"net/url"

	"dropshare/config"

	"github.com/rs/zerolog/log"
)

// Service sends transactional mail over SMTP
type Service struct {
	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	FromEmail    string
	FromName     string
	Enabled      bool
	BaseURL      string // used for links in mail bodies

	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewService creates a mail service from config
func NewService(cfg config.EmailConfig, baseURL string) *Service {
	return &Service{
		SMTPHost:     cfg.SMTPHost,
		SMTPPort:     cfg.SMTPPort,
		SMTPUsername: cfg.SMTPUsername,
		SMTPPassword: cfg.SMTPPassword,
		FromEmail:    cfg.FromEmail,
		FromName:     cfg.FromName,
		Enabled:      cfg.Enabled,
		BaseURL:      baseURL,
		send:         smtp.SendMail,
	}
}

// UnsubscribeLink returns the one-click unsubscribe URL for token
func (es *Service) UnsubscribeLink(token string) string {
	return es.BaseURL + "/api/newsletter/unsubscribe?token=" + url.QueryEscape(token)
}

// SendNewsletterWelcome confirms a newsletter subscription
func (es *Service) SendNewsletterWelcome(toEmail, unsubscribeToken string) error {
	link := es.UnsubscribeLink(unsubscribeToken)
	if !es.Enabled {
		log.Warn().Msg("Email service disabled - Newsletter welcome not sent")
		log.Info().Str("email", toEmail).Str("unsubscribe", link).Msg("Newsletter welcome (email disabled)")
		return nil
	}

	subject := "You're subscribed to DropShare updates"
	body := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { background: linear-gradient(135deg, #667eea 0%%, #764ba2 100%%); color: white; padding: 30px; text-align: center; border-radius: 10px 10px 0 0; }
        .content { background: #f9f9f9; padding: 30px; border-radius: 0 0 10px 10px; }
        .footer { text-align: center; margin-top: 20px; font-size: 12px; color: #666; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>Thanks for subscribing!</h1>
        </div>
        <div class="content">
            <p>Hello,</p>
            <p>You will now receive occasional product updates from DropShare.</p>
            <p>Changed your mind? <a href="%s">Unsubscribe</a> at any time.</p>
        </div>
        <div class="footer">
            <p>This is an automated email. Please do not reply.</p>
        </div>
    </div>
</body>
</html>
`, link)

	return es.sendEmail(toEmail, subject, body)
}

// sendEmail sends an email using SMTP
func (es *Service) sendEmail(to, subject, body string) error {
	from := fmt.Sprintf("%s <%s>", es.FromName, es.FromEmail)

	msg := []byte(fmt.Sprintf(
		"From: %s\r\n"+
			"To: %s\r\n"+
			"Subject: %s\r\n"+
			"MIME-Version: 1.0\r\n"+
			"Content-Type: text/html; charset=UTF-8\r\n"+
			"\r\n"+
			"%s\r\n",
		from, to, subject, body,
	))

	auth := smtp.PlainAuth("", es.SMTPUsername, es.SMTPPassword, es.SMTPHost)
	addr := fmt.Sprintf("%s:%s", es.SMTPHost, es.SMTPPort)

	err := es.send(addr, auth, es.FromEmail, []string{to}, msg)
	if err != nil {
		log.Error().Err(err).Str("to", to).Msg("Failed to send email")
		return err
	}

	log.Info().Str("to", to).Str("subject", subject).Msg("Email sent successfully")
	return nil
}
