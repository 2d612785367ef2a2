package smtp

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/magabrotheeeer/direct-tree/internal/lib/sl"
	"github.com/magabrotheeeer/direct-tree/internal/models"
)

// Sender отправляет письма через SMTP транспорт.
type Sender struct {
	transport TransportInterface
	log       *slog.Logger
}

// NewSender создает новый экземпляр Sender.
func NewSender(transport TransportInterface, log *slog.Logger) *Sender {
	return &Sender{transport: transport, log: log}
}

// Send формирует MIME-сообщение и передаёт его серверу.
func (s *Sender) Send(_ context.Context, email models.Email) error {
	const op = "smtp.Send"
	from := s.transport.GetSMTPUser()
	msg := buildMessage(from, email)

	client, err := s.transport.Connect()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		if closeErr := client.Close(); closeErr != nil {
			s.log.Debug("smtp client close", sl.Err(closeErr))
		}
	}()

	if err := client.Mail(from); err != nil {
		return fmt.Errorf("%s: mail from: %w", op, err)
	}
	if err := client.Rcpt(email.To); err != nil {
		return fmt.Errorf("%s: rcpt to: %w", op, err)
	}

	wc, err := client.Data()
	if err != nil {
		return fmt.Errorf("%s: data: %w", op, err)
	}
	if _, err = wc.Write([]byte(msg)); err != nil {
		return fmt.Errorf("%s: write body: %w", op, err)
	}
	if err = wc.Close(); err != nil {
		return fmt.Errorf("%s: close data: %w", op, err)
	}
	if err = client.Quit(); err != nil {
		return fmt.Errorf("%s: quit: %w", op, err)
	}

	s.log.Info("email sent successfully", slog.String("to", email.To))
	return nil
}

func buildMessage(from string, email models.Email) string {
	contentType := `text/plain; charset="UTF-8"`
	body := email.Text
	if email.HTML != "" {
		contentType = `text/html; charset="UTF-8"`
		body = email.HTML
	}
	return strings.Join([]string{
		"From: " + from,
		"To: " + email.To,
		"Subject: " + email.Subject,
		"MIME-Version: 1.0",
		"Content-Type: " + contentType,
		"",
		body,
	}, "\r\n")
}
