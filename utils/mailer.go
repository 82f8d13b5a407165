package utils

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"

	"github.com/dlabonte15/investment-emailer/engine"
)

// SMTPConfig holds the mail relay connection settings.
type SMTPConfig struct {
	Host      string
	Port      int
	Username  string
	Password  string
	FromName  string
	FromEmail string
}

// SMTPMailer delivers messages through an SMTP relay. It dials per
// send; batch pacing already spaces calls so connection reuse buys
// little here.
type SMTPMailer struct {
	cfg SMTPConfig
}

func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg}
}

func (m *SMTPMailer) Send(ctx context.Context, msg engine.OutboundMessage) error {
	if len(msg.To) == 0 {
		return fmt.Errorf("message has no recipient")
	}

	gm := gomail.NewMessage()
	gm.SetHeader("From", gm.FormatAddress(m.cfg.FromEmail, m.cfg.FromName))

	to := make([]string, 0, len(msg.To))
	for _, r := range msg.To {
		if r.Name != "" {
			to = append(to, gm.FormatAddress(r.Email, r.Name))
		} else {
			to = append(to, r.Email)
		}
	}
	gm.SetHeader("To", to...)

	if len(msg.Cc) > 0 {
		cc := make([]string, 0, len(msg.Cc))
		for _, r := range msg.Cc {
			cc = append(cc, r.Email)
		}
		gm.SetHeader("Cc", cc...)
	}

	gm.SetHeader("Subject", msg.Subject)
	gm.SetBody("text/html", msg.HTMLBody)

	dialer := gomail.NewDialer(m.cfg.Host, m.cfg.Port, m.cfg.Username, m.cfg.Password)

	// gomail has no context support, so the dial-and-send runs in a
	// goroutine and the caller's deadline is honored here.
	done := make(chan error, 1)
	go func() {
		done <- dialer.DialAndSend(gm)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("smtp send: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
