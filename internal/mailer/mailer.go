package mailer

import (
	"context"
	"fmt"
	"net/smtp"

	"marketplace-service/internal/models"
)

// Sender delivers transactional email. Implementations must be safe to call
// from request handlers.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// SMTPSender sends email through a plain SMTP relay.
type SMTPSender struct {
	host     string
	port     string
	username string
	password string
}

// NewSMTPSender builds a sender from explicit settings. All four values are
// required; secrets come from configuration, never literals.
func NewSMTPSender(host, port, username, password string) (*SMTPSender, error) {
	if host == "" {
		return nil, fmt.Errorf("SMTP host not set")
	}
	if port == "" {
		return nil, fmt.Errorf("SMTP port not set")
	}
	if username == "" {
		return nil, fmt.Errorf("SMTP user not set")
	}
	if password == "" {
		return nil, fmt.Errorf("SMTP password not set")
	}
	return &SMTPSender{host: host, port: port, username: username, password: password}, nil
}

func (s *SMTPSender) Send(ctx context.Context, to, subject, body string) error {
	addr := fmt.Sprintf("%s:%s", s.host, s.port)
	auth := smtp.PlainAuth("", s.username, s.password, s.host)

	msg := []byte(
		"From: " + s.username + "\r\n" +
			"To: " + to + "\r\n" +
			"Subject: " + subject + "\r\n" +
			"MIME-Version: 1.0\r\n" +
			"Content-Type: text/html; charset=UTF-8\r\n" +
			"\r\n" +
			body,
	)

	if err := smtp.SendMail(addr, auth, s.username, []string{to}, msg); err != nil {
		return fmt.Errorf("smtp send failed: %w", err)
	}
	return nil
}

// OrderConfirmation renders the confirmation email for a checkout hand-off.
func OrderConfirmation(order *models.Order, product *models.Product) (subject, body string) {
	subject = fmt.Sprintf("Your order for %s", product.Title)
	body = fmt.Sprintf(
		`<p>Thanks for your order!</p>
<p>You reserved <strong>%s</strong> for %.2f %s.</p>
<p>Complete your payment here: <a href="%s">%s</a></p>
<p>Order reference: %s</p>`,
		product.Title, order.Amount, order.Currency,
		product.CheckoutLink, product.CheckoutLink,
		order.ID,
	)
	return subject, body
}
