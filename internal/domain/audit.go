package domain

import "time"

// Audit actions.
const (
	AuditCreated   = "created"
	AuditUpdated   = "updated"
	AuditCancelled = "cancelled"
	AuditRefund    = "refund_attempted"
)

// AuditEntry is one line of an order's journal.
type AuditEntry struct {
	ID           int64
	OrderID      string
	Action       string
	ActorID      string
	DeliveryDate string
	Status       Status
	Details      map[string]any
	CreatedAt    time.Time
}
