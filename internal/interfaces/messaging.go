package interfaces

import (
	"context"
	"time"

	"github.com/YelzhanWeb/lunchbox/internal/domain"
)

// Event types, also used as routing keys.
const (
	EventOrderCreated   = "order.created"
	EventOrderUpdated   = "order.updated"
	EventOrderCancelled = "order.cancelled"
)

// RabbitMQ message
type OrderEvent struct {
	EventID      string           `json:"event_id"`
	Type         string           `json:"type"`
	OrderID      string           `json:"order_id"`
	DeliveryDate string           `json:"delivery_date"`
	OrderType    domain.OrderType `json:"order_type"`
	Status       domain.Status    `json:"status"`
	EmployeeID   string           `json:"employee_id"`
	ActorID      string           `json:"actor_id"`
	OccurredAt   time.Time        `json:"occurred_at"`
	Details      map[string]any   `json:"details,omitempty"`
}

type EventPublisher interface {
	PublishOrderEvent(ctx context.Context, evt OrderEvent) error
}

type EventConsumer interface {
	ConsumeOrderEvents(ctx context.Context, handler EventHandler) error
}

type EventHandler func(ctx context.Context, body []byte) error

// Notification is a message for one employee. Delivery is external.
type Notification struct {
	To      string
	Name    string
	Subject string
	Body    string
}

type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}
