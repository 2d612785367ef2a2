// Package infra собирает общие для всех бинарников зависимости из конфига:
// хранилище, кэш, почтовый транспорт и клиентов внешних провайдеров.
package infra

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/direct-tree/internal/config"
	"github.com/magabrotheeeer/direct-tree/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/direct-tree/internal/lib/sl"
	"github.com/magabrotheeeer/direct-tree/internal/lib/smtp"
	"github.com/magabrotheeeer/direct-tree/internal/mailer"
	"github.com/magabrotheeeer/direct-tree/internal/providers/cloudinary"
	"github.com/magabrotheeeer/direct-tree/internal/providers/mailgun"
	"github.com/magabrotheeeer/direct-tree/internal/providers/paypal"
	"github.com/magabrotheeeer/direct-tree/internal/storage/repository"
)

const (
	dbReadyAttempts = 10
	dbReadyDelay    = 3 * time.Second
)

// Connect подключается к PostgreSQL и ждёт, пока база начнёт отвечать.
// Используется процессами, которые сами применяют миграции.
func Connect(ctx context.Context, cfg *config.Config, log *slog.Logger) (*repository.Storage, error) {
	return open(ctx, cfg, log, func(ctx context.Context, db *repository.Storage) error {
		return db.DB.PingContext(ctx)
	})
}

// Storage подключается к PostgreSQL и ждёт, пока миграции создадут схему.
func Storage(ctx context.Context, cfg *config.Config, log *slog.Logger) (*repository.Storage, error) {
	return open(ctx, cfg, log, repository.CheckDatabaseReady)
}

func open(ctx context.Context, cfg *config.Config, log *slog.Logger, ready func(context.Context, *repository.Storage) error) (*repository.Storage, error) {
	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err := waitForDB(ctx, db, ready, log); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func waitForDB(ctx context.Context, db *repository.Storage, ready func(context.Context, *repository.Storage) error, log *slog.Logger) error {
	var err error
	for i := 0; i < dbReadyAttempts; i++ {
		if err = ready(ctx, db); err == nil {
			return nil
		}
		log.Info("database is not ready yet", slog.String("reason", err.Error()))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(dbReadyDelay):
		}
	}
	return fmt.Errorf("database not ready after retries: %w", err)
}

// EmailSender выбирает транспорт писем по mailer.provider.
func EmailSender(cfg *config.Config, log *slog.Logger) (mailer.EmailSender, error) {
	switch cfg.Provider {
	case "mailgun":
		return mailgun.NewClient(mailgun.Config{
			BaseURL: cfg.MailgunBaseURL,
			APIKey:  cfg.MailgunAPIKey,
			Domain:  cfg.MailgunDomain,
			From:    cfg.MailgunFromEmail,
		}, log), nil
	case "smtp":
		return smtp.NewSender(smtp.NewTransport(cfg.SMTP, log), log), nil
	}
	return nil, fmt.Errorf("unknown mailer provider %q", cfg.Provider)
}

// Mailer выбирает фоновую отправку писем по mailer.driver.
// Возвращённую функцию нужно вызвать при остановке процесса.
func Mailer(cfg *config.Config, log *slog.Logger) (mailer.Mailer, func(), error) {
	switch cfg.Driver {
	case "local":
		sender, err := EmailSender(cfg, log)
		if err != nil {
			return nil, nil, err
		}
		pool := mailer.NewPool(sender, cfg.Workers, cfg.Buffer, log)
		return pool, pool.Close, nil
	case "rabbitmq":
		conn, ch, err := RabbitMQ(cfg, log)
		if err != nil {
			return nil, nil, err
		}
		return mailer.NewQueue(ch, log), func() { CloseRabbitMQ(ch, conn, log) }, nil
	}
	return nil, nil, fmt.Errorf("unknown mailer driver %q", cfg.Driver)
}

// RabbitMQ подключается к брокеру и объявляет очереди писем.
func RabbitMQ(cfg *config.Config, log *slog.Logger) (*amqp.Connection, *amqp.Channel, error) {
	conn, err := rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect RabbitMQ: %w", err)
	}
	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.GetNotificationQueues(), cfg.Prefetch)
	if err != nil {
		CloseRabbitMQ(nil, conn, log)
		return nil, nil, fmt.Errorf("failed to setup RabbitMQ channel: %w", err)
	}
	return conn, ch, nil
}

// CloseRabbitMQ закрывает канал и соединение, ошибки только логируются.
func CloseRabbitMQ(ch *amqp.Channel, conn *amqp.Connection, log *slog.Logger) {
	if ch != nil {
		if err := ch.Close(); err != nil {
			log.Error("failed to close channel", sl.Err(err))
		}
	}
	if conn != nil {
		if err := conn.Close(); err != nil {
			log.Error("failed to close connection", sl.Err(err))
		}
	}
}

// PayPal создаёт клиент платёжного провайдера.
func PayPal(cfg *config.Config, log *slog.Logger) *paypal.Client {
	return paypal.NewClient(paypal.Config{
		BaseURL:      cfg.PayPalBaseURL(),
		ClientID:     cfg.PayPalClientID,
		ClientSecret: cfg.PayPalClientSecret,
		PlanID:       cfg.PayPalPlanID,
		ReturnURL:    cfg.ReturnURL,
		CancelURL:    cfg.CancelURL,
	}, log)
}

// Cloudinary создаёт клиент хостинга изображений.
func Cloudinary(cfg *config.Config, log *slog.Logger) *cloudinary.Client {
	return cloudinary.NewClient(cloudinary.Config{
		BaseURL:   cfg.CloudinaryBaseURL,
		CloudName: cfg.CloudName,
		APIKey:    cfg.CloudinaryAPIKey,
		APISecret: cfg.CloudinarySecret,
		Folder:    cfg.CloudinaryFolder,
	}, log)
}
