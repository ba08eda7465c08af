package utils

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"scholar/logger"
	"scholar/models"
	"scholar/models/course"
)

const senderName = "Scholar"

// Mailer sends transactional email through SendGrid.
type Mailer struct {
	client  *sendgrid.Client
	from    *mail.Email
	baseURL string
	log     *logger.Logger
}

// NewMailer returns nil when no API key is configured; callers treat a nil
// Mailer as "email disabled".
func NewMailer(apiKey, sender, baseURL string, log *logger.Logger) *Mailer {
	if apiKey == "" {
		return nil
	}
	return &Mailer{
		client:  sendgrid.NewSendClient(apiKey),
		from:    mail.NewEmail(senderName, sender),
		baseURL: strings.TrimRight(baseURL, "/"),
		log:     log.With("component", "Mailer"),
	}
}

// SendEmail sends one html message.
func (m *Mailer) SendEmail(ctx context.Context, toName, toEmail, subject, htmlBody string) error {
	message := mail.NewSingleEmail(m.from, subject, mail.NewEmail(toName, toEmail), "", htmlBody)
	resp, err := m.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("send email: sendgrid returned %d: %s", resp.StatusCode, resp.Body)
	}
	m.log.Info("Email sent", "subject", subject, "status", resp.StatusCode)
	return nil
}

func getEmailTemplate(title string, bodyContent string) string {
	return fmt.Sprintf(`
	<!DOCTYPE html>
	<html>
	<head>
		<style>
			body { font-family: 'Helvetica Neue', Helvetica, Arial, sans-serif; background-color: #F6F6F6; margin: 0; padding: 0; }
			.container { max-width: 600px; margin: 40px auto; background: #FFFFFF; border-radius: 8px; overflow: hidden; }
			.header { background-color: #1B3A5C; padding: 30px; text-align: center; }
			.header h1 { color: #FFFFFF; margin: 0; font-size: 24px; letter-spacing: 1px; }
			.content { padding: 40px 30px; color: #1B3A5C; line-height: 1.6; }
			.footer { background-color: #F6F6F6; padding: 20px; text-align: center; font-size: 12px; color: #666666; }
			.btn { display: inline-block; padding: 12px 24px; background-color: #3C8D5A; color: #FFFFFF; text-decoration: none; border-radius: 4px; font-weight: bold; margin-top: 20px; }
			.info-box { background: #E8F0FE; padding: 15px; border-radius: 4px; border-left: 4px solid #3C8D5A; margin: 20px 0; }
		</style>
	</head>
	<body>
		<div class="container">
			<div class="header"><h1>SCHOLAR</h1></div>
			<div class="content">
				<h2>%s</h2>
				%s
			</div>
			<div class="footer">You received this email because you are enrolled on Scholar.</div>
		</div>
	</body>
	</html>
	`, title, bodyContent)
}

// CertificateIssued emails the learner a link to their new certificate.
func (m *Mailer) CertificateIssued(ctx context.Context, user *models.User, c *course.Course, cert *course.Certificate) error {
	courseTitle := "your course"
	if c != nil {
		courseTitle = c.Title
	}
	name := user.FullName
	if name == "" {
		name = user.Email
	}

	subject := "Your certificate for " + courseTitle
	body := fmt.Sprintf(`
		<p>Dear %s,</p>
		<p>Congratulations on completing <strong>%s</strong>!</p>
		<div class="info-box">
			<strong>Certificate number:</strong> %s
		</div>
		<a class="btn" href="%s%s">View certificate</a>
	`, html.EscapeString(name), html.EscapeString(courseTitle), cert.CertificateNumber, m.baseURL, cert.CertificateURL)

	return m.SendEmail(ctx, name, user.Email, subject, getEmailTemplate("Course Completed", body))
}
