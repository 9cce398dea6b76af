package notifications

import (
	"context"
	"errors"
	"log/slog"
)

var ErrInvalidMessage = errors.New("mail message requires to and subject")

type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}

func (m Message) Validate() error {
	if m.To == "" || m.Subject == "" {
		return ErrInvalidMessage
	}
	return nil
}

type Mailer interface {
	SendMail(ctx context.Context, msg Message) error
}

// LogMailer only logs recipient and subject. Bodies carry OTP codes and are
// never written out.
type LogMailer struct {
	log *slog.Logger
}

func NewLogMailer(log *slog.Logger) *LogMailer {
	if log == nil {
		log = slog.Default()
	}
	return &LogMailer{log: log}
}

func (m *LogMailer) SendMail(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}

	m.log.InfoContext(ctx, "mail.logged", "to", msg.To, "subject", msg.Subject)
	return nil
}
