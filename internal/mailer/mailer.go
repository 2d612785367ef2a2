// Package mailer ставит письма в фоновую отправку.
//
// Отправка никогда не блокирует и не ломает вызывающий запрос: ошибки
// только логируются, повторных попыток нет.
package mailer

import (
	"context"

	"github.com/magabrotheeeer/direct-tree/internal/models"
)

// EmailSender отправляет одно письмо синхронно (Mailgun или SMTP).
type EmailSender interface {
	Send(ctx context.Context, email models.Email) error
}

// Mailer принимает письмо в фоновую отправку.
type Mailer interface {
	Enqueue(email models.Email)
}
