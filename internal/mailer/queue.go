package mailer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/magabrotheeeer/direct-tree/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/direct-tree/internal/lib/sl"
	"github.com/magabrotheeeer/direct-tree/internal/models"
)

// Queue публикует письма в RabbitMQ, откуда их забирает mail-sender.
type Queue struct {
	mu  sync.Mutex
	ch  rabbitmq.Publisher
	log *slog.Logger
}

// NewQueue создаёт публикатора писем.
func NewQueue(ch rabbitmq.Publisher, log *slog.Logger) *Queue {
	return &Queue{ch: ch, log: log}
}

// Enqueue публикует письмо. Ошибка публикации только логируется.
func (q *Queue) Enqueue(email models.Email) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if err := rabbitmq.PublishMessage(q.ch, rabbitmq.Exchange, rabbitmq.EmailQueue.RoutingKey, email); err != nil {
		q.log.Error("failed to publish email", slog.String("to", email.To), sl.Err(err))
	}
}

// Handler возвращает обработчик сообщений очереди писем для mail-sender.
func Handler(sender EmailSender) func(body []byte) error {
	return func(body []byte) error {
		const op = "mailer.Handler"
		var email models.Email
		if err := json.Unmarshal(body, &email); err != nil {
			return fmt.Errorf("%s: decode: %w", op, err)
		}
		if email.To == "" {
			return fmt.Errorf("%s: empty recipient", op)
		}
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()
		if err := sender.Send(ctx, email); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		return nil
	}
}
