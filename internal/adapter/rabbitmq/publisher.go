package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/YelzhanWeb/lunchbox/internal/config"
	"github.com/YelzhanWeb/lunchbox/internal/interfaces"
)

type publisher struct {
	conn     Connection
	exchange string
}

func NewPublisher(conn Connection, cfg config.RabbitMQConfig) interfaces.EventPublisher {
	return &publisher{conn: conn, exchange: cfg.Exchange}
}

// PublishOrderEvent sends evt to the topic exchange with its type as the
// routing key.
func (p *publisher) PublishOrderEvent(ctx context.Context, evt interfaces.OrderEvent) error {
	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	if err := ch.ExchangeDeclare(p.exchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	body, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	err = ch.PublishWithContext(ctx, p.exchange, evt.Type, false, false, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		MessageId:    evt.EventID,
		Timestamp:    evt.OccurredAt,
		Type:         evt.Type,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}
