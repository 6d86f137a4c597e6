package amqp

import (
	"context"

	"github.com/YelzhanWeb/lunchbox/internal/adapter/logger"
	"github.com/YelzhanWeb/lunchbox/internal/interfaces"
)

// LogNotifier writes notifications to the service log. Mail delivery is
// handled outside this service.
type LogNotifier struct {
	logger logger.Logger
}

func NewLogNotifier(logger logger.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(_ context.Context, msg interfaces.Notification) error {
	n.logger.Info("notification_sent", msg.Subject, "", map[string]interface{}{
		"to":   msg.To,
		"name": msg.Name,
		"body": msg.Body,
	})
	return nil
}

var _ interfaces.Notifier = (*LogNotifier)(nil)
