package order

import (
	"context"

	"github.com/google/uuid"

	"github.com/YelzhanWeb/lunchbox/internal/domain"
	"github.com/YelzhanWeb/lunchbox/internal/interfaces"
)

// record journals a state change and announces it. Both steps are best-effort.
func (s *Service) record(ctx context.Context, requestID, eventType, action string, o *domain.Order, actor *domain.Employee, details map[string]interface{}) {
	now := s.now().UTC()

	s.appendAudit(ctx, requestID, domain.AuditEntry{
		OrderID:      o.ID,
		Action:       action,
		ActorID:      actor.ID,
		DeliveryDate: o.DeliveryDate,
		Status:       o.Status,
		Details:      details,
		CreatedAt:    now,
	})

	evt := interfaces.OrderEvent{
		EventID:      uuid.NewString(),
		Type:         eventType,
		OrderID:      o.ID,
		DeliveryDate: o.DeliveryDate,
		OrderType:    o.Type,
		Status:       o.Status,
		EmployeeID:   o.OwnerID(),
		ActorID:      actor.ID,
		OccurredAt:   now,
		Details:      details,
	}
	if err := s.publisher.PublishOrderEvent(ctx, evt); err != nil {
		s.logger.Error("rabbitmq_publish_failed", "Failed to publish order event", requestID,
			map[string]interface{}{"order_id": o.ID, "type": eventType}, err)
		return
	}
	s.logger.Debug("order_event_published", "Order event published", requestID,
		map[string]interface{}{"order_id": o.ID, "type": eventType, "event_id": evt.EventID})
}

func (s *Service) appendAudit(ctx context.Context, requestID string, entry domain.AuditEntry) {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.now().UTC()
	}
	if err := s.audit.Append(ctx, entry); err != nil {
		s.logger.Error("audit_append_failed", "Failed to append audit entry", requestID,
			map[string]interface{}{"order_id": entry.OrderID, "action": entry.Action}, err)
	}
}
