package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/YelzhanWeb/lunchbox/internal/adapter/logger"
	"github.com/YelzhanWeb/lunchbox/internal/config"
	"github.com/YelzhanWeb/lunchbox/internal/interfaces"
)

const orderEventsPattern = "order.#"

type consumer struct {
	conn          Connection
	exchange      string
	queue         string
	prefetch      int
	retryInterval time.Duration
	logger        logger.Logger
}

func NewConsumer(conn Connection, cfg config.RabbitMQConfig, logger logger.Logger) interfaces.EventConsumer {
	return &consumer{
		conn:          conn,
		exchange:      cfg.Exchange,
		queue:         cfg.Queue,
		prefetch:      cfg.Prefetch,
		retryInterval: 5 * time.Second,
		logger:        logger,
	}
}

// ConsumeOrderEvents blocks until ctx is cancelled, reopening the channel
// whenever the broker drops it.
func (c *consumer) ConsumeOrderEvents(ctx context.Context, handler interfaces.EventHandler) error {
	for {
		err := c.consume(ctx, handler)

		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err == nil {
			return nil
		}

		c.logger.Warn("consumer_disconnected", "order events consumer disconnected, reconnecting", "", map[string]interface{}{
			"queue": c.queue,
			"retry": c.retryInterval.String(),
			"error": err.Error(),
		})

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.retryInterval):
		}

		if c.conn.IsClosed() {
			if err := c.conn.Reconnect(); err != nil {
				c.logger.Error("consumer_reconnect_failed", "failed to reconnect to RabbitMQ", "", nil, err)
			}
		}
	}
}

func (c *consumer) consume(ctx context.Context, handler interfaces.EventHandler) error {
	ch, err := c.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	closeChan := ch.NotifyClose()

	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	if err := c.setupInfrastructure(ch); err != nil {
		return err
	}

	msgs, err := ch.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	c.logger.Info("consumer_started", "consuming order events", "", map[string]interface{}{
		"queue":    c.queue,
		"exchange": c.exchange,
	})

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err := <-closeChan:
			if err != nil {
				return fmt.Errorf("channel closed: %w", err)
			}
			return errors.New("channel closed gracefully")

		case msg, ok := <-msgs:
			if !ok {
				return errors.New("messages channel closed")
			}
			c.dispatch(ctx, handler, msg)
		}
	}
}

// dispatch acks handled messages. A failed message is requeued once and
// dead-lettered when it fails again.
func (c *consumer) dispatch(ctx context.Context, handler interfaces.EventHandler, msg amqp.Delivery) {
	err := handler(ctx, msg.Body)
	if err == nil {
		if ackErr := msg.Ack(false); ackErr != nil {
			c.logger.Error("event_ack_failed", "failed to ack message", msg.MessageId, nil, ackErr)
		}
		return
	}

	requeue := !msg.Redelivered
	c.logger.Warn("event_handling_failed", "order event handler failed", msg.MessageId, map[string]interface{}{
		"routing_key": msg.RoutingKey,
		"requeue":     requeue,
		"error":       err.Error(),
	})
	if nackErr := msg.Nack(false, requeue); nackErr != nil {
		c.logger.Error("event_nack_failed", "failed to nack message", msg.MessageId, nil, nackErr)
	}
}

func (c *consumer) setupInfrastructure(ch Channel) error {
	if err := ch.ExchangeDeclare(c.exchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare events exchange: %w", err)
	}

	dlqExchange := c.exchange + "_dlq"
	if err := ch.ExchangeDeclare(dlqExchange, "fanout", true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare DLQ exchange: %w", err)
	}

	dlqQueue := c.queue + "_dlq"
	if _, err := ch.QueueDeclare(dlqQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare DLQ: %w", err)
	}

	if err := ch.QueueBind(dlqQueue, "", dlqExchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind DLQ: %w", err)
	}

	args := amqp.Table{
		"x-dead-letter-exchange": dlqExchange,
	}

	q, err := ch.QueueDeclare(c.queue, true, false, false, false, args)
	if err != nil {
		return fmt.Errorf("failed to declare %s queue: %w", c.queue, err)
	}

	if err := ch.QueueBind(q.Name, orderEventsPattern, c.exchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind %s queue: %w", c.queue, err)
	}

	return nil
}
