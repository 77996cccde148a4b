package mailer

import (
	"fmt"

	"gopkg.in/gomail.v2"
)

type Email struct {
	To      string
	Subject string
	Body    string
}

// Mailer sends outbound notification mail. Delivery guarantees belong to
// the SMTP relay; callers only see whether the handoff succeeded.
type Mailer interface {
	Send(email Email) error
}

// SMTP sends plain-text mail through an SMTP relay.
type SMTP struct {
	dialer *gomail.Dialer
	sender string
}

func NewSMTP(host string, port int, user, password, sender string) *SMTP {
	return &SMTP{
		dialer: gomail.NewDialer(host, port, user, password),
		sender: sender,
	}
}

func (s *SMTP) Send(email Email) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.sender)
	m.SetHeader("To", email.To)
	m.SetHeader("Subject", email.Subject)
	m.SetBody("text/plain", email.Body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("send mail to %s: %w", email.To, err)
	}
	return nil
}
