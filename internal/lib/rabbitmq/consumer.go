package rabbitmq

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/direct-tree/internal/lib/sl"
)

// ConsumeMessages запускает потребителя очереди queueName.
//
// Каждое сообщение обрабатывается в отдельной горутине, одновременно не более
// concurrency обработчиков. Успешная обработка подтверждается Ack, ошибка приводит к
// Nack без повторной постановки в очередь: письма не переотправляются.
func ConsumeMessages(ctx context.Context, ch *amqp.Channel, queueName string, concurrency int, log *slog.Logger, handler func([]byte) error) error {
	const op = "rabbitmq.ConsumeMessages"
	deliveries, err := ch.Consume(queueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	go dispatch(ctx, deliveries, concurrency, log, handler)
	return nil
}

func dispatch(ctx context.Context, deliveries <-chan amqp.Delivery, concurrency int, log *slog.Logger, handler func([]byte) error) {
	if concurrency < 1 {
		concurrency = 1
	}
	sem := make(chan struct{}, concurrency)
	for {
		select {
		case d, ok := <-deliveries:
			if !ok {
				return
			}
			sem <- struct{}{}
			go func(d amqp.Delivery) {
				defer func() { <-sem }()
				handleDelivery(d.Acknowledger, d.DeliveryTag, d.Body, log, handler)
			}(d)
		case <-ctx.Done():
			return
		}
	}
}

func handleDelivery(ack amqp.Acknowledger, tag uint64, body []byte, log *slog.Logger, handler func([]byte) error) {
	if err := handler(body); err != nil {
		log.Error("failed to handle message", sl.Err(err))
		if nackErr := ack.Nack(tag, false, false); nackErr != nil {
			log.Error("failed to nack message", sl.Err(nackErr))
		}
		return
	}
	if ackErr := ack.Ack(tag, false); ackErr != nil {
		log.Error("failed to ack message", sl.Err(ackErr))
	}
}
