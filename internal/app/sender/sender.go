// Package sender собирает процесс mail-sender: потребителя очереди писем,
// который отправляет их через Mailgun или SMTP.
package sender

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/direct-tree/internal/app/infra"
	"github.com/magabrotheeeer/direct-tree/internal/config"
	"github.com/magabrotheeeer/direct-tree/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/direct-tree/internal/mailer"
)

// App потребитель очереди писем.
type App struct {
	conn        *amqp.Connection
	ch          *amqp.Channel
	handler     func([]byte) error
	concurrency int
	logger      *slog.Logger
}

// New подключается к брокеру и выбирает почтовый транспорт.
func New(_ context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "sender.New"

	emailSender, err := infra.EmailSender(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	conn, ch, err := infra.RabbitMQ(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &App{
		conn:        conn,
		ch:          ch,
		handler:     mailer.Handler(emailSender),
		concurrency: cfg.Workers,
		logger:      logger,
	}, nil
}

// Run потребляет очередь писем до отмены ctx.
func (a *App) Run(ctx context.Context) error {
	err := rabbitmq.ConsumeMessages(ctx, a.ch, rabbitmq.EmailQueue.QueueName, a.concurrency, a.logger, a.handler)
	if err != nil {
		infra.CloseRabbitMQ(a.ch, a.conn, a.logger)
		return err
	}
	a.logger.Info("consuming emails", slog.String("queue", rabbitmq.EmailQueue.QueueName))

	<-ctx.Done()
	a.logger.Info("sender service shutting down gracefully")
	infra.CloseRabbitMQ(a.ch, a.conn, a.logger)
	return nil
}
