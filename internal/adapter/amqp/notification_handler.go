package amqp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/YelzhanWeb/lunchbox/internal/adapter/logger"
	"github.com/YelzhanWeb/lunchbox/internal/domain"
	"github.com/YelzhanWeb/lunchbox/internal/interfaces"
)

// NotificationHandler turns order events into messages for the employee the
// order belongs to.
type NotificationHandler struct {
	employees interfaces.EmployeeRepository
	notifier  interfaces.Notifier
	logger    logger.Logger
}

func NewNotificationHandler(employees interfaces.EmployeeRepository, notifier interfaces.Notifier, logger logger.Logger) *NotificationHandler {
	return &NotificationHandler{
		employees: employees,
		notifier:  notifier,
		logger:    logger,
	}
}

// HandleOrderEvent returns an error only when the message should be retried
// or dead-lettered.
func (h *NotificationHandler) HandleOrderEvent(ctx context.Context, body []byte) error {
	var evt interfaces.OrderEvent
	if err := json.Unmarshal(body, &evt); err != nil {
		h.logger.Error("message_parse_failed", "Failed to parse order event", "", nil, err)
		return err
	}

	h.logger.Debug("order_event_received", fmt.Sprintf("Received %s for order %s", evt.Type, evt.OrderID),
		evt.EventID, map[string]interface{}{
			"order_id": evt.OrderID,
			"type":     evt.Type,
			"status":   evt.Status,
		})

	subject, ok := subjectFor(evt)
	if !ok {
		h.logger.Debug("order_event_skipped", "No notification for event type", evt.EventID,
			map[string]interface{}{"type": evt.Type})
		return nil
	}
	if evt.EmployeeID == "" {
		h.logger.Warn("order_event_skipped", "Order event has no employee", evt.EventID,
			map[string]interface{}{"order_id": evt.OrderID})
		return nil
	}

	emp, err := h.employees.FindByID(ctx, evt.EmployeeID)
	if err != nil {
		if domain.IsKind(err, domain.KindNotFound) {
			h.logger.Warn("notification_skipped", "Employee no longer exists", evt.EventID,
				map[string]interface{}{"employee_id": evt.EmployeeID})
			return nil
		}
		return fmt.Errorf("load employee %s: %w", evt.EmployeeID, err)
	}
	if strings.TrimSpace(emp.Email) == "" {
		h.logger.Debug("notification_skipped", "Employee has no email", evt.EventID,
			map[string]interface{}{"employee_id": emp.ID})
		return nil
	}

	n := interfaces.Notification{
		To:      emp.Email,
		Name:    emp.Name,
		Subject: subject,
		Body:    bodyFor(evt, emp),
	}
	if err := h.notifier.Notify(ctx, n); err != nil {
		h.logger.Error("notification_failed", "Failed to deliver notification", evt.EventID,
			map[string]interface{}{"order_id": evt.OrderID, "to": emp.Email}, err)
		return err
	}
	return nil
}

func subjectFor(evt interfaces.OrderEvent) (string, bool) {
	switch evt.Type {
	case interfaces.EventOrderCreated:
		return "Lunch order received for " + evt.DeliveryDate, true
	case interfaces.EventOrderUpdated:
		return "Lunch order changed for " + evt.DeliveryDate, true
	case interfaces.EventOrderCancelled:
		return "Lunch order cancelled for " + evt.DeliveryDate, true
	default:
		return "", false
	}
}

func bodyFor(evt interfaces.OrderEvent, emp *domain.Employee) string {
	var b strings.Builder
	name := emp.Name
	if name == "" {
		name = "there"
	}
	fmt.Fprintf(&b, "Hi %s,\n\n", name)
	fmt.Fprintf(&b, "Order %s for %s is now %s.\n", evt.OrderID, evt.DeliveryDate, evt.Status)

	if evt.ActorID != "" && evt.ActorID != emp.ID {
		fmt.Fprintf(&b, "The change was made on your behalf by %s.\n", evt.ActorID)
	}
	if amount, ok := evt.Details["refund_amount"]; ok {
		if succeeded, _ := evt.Details["refund_succeeded"].(bool); succeeded {
			fmt.Fprintf(&b, "A refund of %v has been issued.\n", amount)
		} else {
			b.WriteString("We could not issue your refund automatically. HR will follow up.\n")
		}
	}
	return b.String()
}
