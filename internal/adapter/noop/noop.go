// Package noop stands in for optional infrastructure that is switched off
// in configuration.
package noop

import (
	"context"

	"github.com/YelzhanWeb/lunchbox/internal/domain"
	"github.com/YelzhanWeb/lunchbox/internal/interfaces"
)

// Publisher drops every event.
type Publisher struct{}

func (Publisher) PublishOrderEvent(context.Context, interfaces.OrderEvent) error {
	return nil
}

// Audit discards entries and reports an empty history.
type Audit struct{}

func (Audit) Append(context.Context, domain.AuditEntry) error {
	return nil
}

func (Audit) History(context.Context, string) ([]domain.AuditEntry, error) {
	return []domain.AuditEntry{}, nil
}

var (
	_ interfaces.EventPublisher  = Publisher{}
	_ interfaces.AuditRepository = Audit{}
)
