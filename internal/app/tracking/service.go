package tracking

import (
	"context"
	"strings"

	"github.com/YelzhanWeb/lunchbox/internal/adapter/logger"
	"github.com/YelzhanWeb/lunchbox/internal/app/access"
	"github.com/YelzhanWeb/lunchbox/internal/domain"
	"github.com/YelzhanWeb/lunchbox/internal/interfaces"
)

type Service struct {
	access   *access.Service
	orders   interfaces.OrderRepository
	payments interfaces.PaymentRepository
	audit    interfaces.AuditRepository
	logger   logger.Logger
}

func NewService(
	acc *access.Service,
	orders interfaces.OrderRepository,
	payments interfaces.PaymentRepository,
	audit interfaces.AuditRepository,
	logger logger.Logger,
) *Service {
	return &Service{
		access:   acc,
		orders:   orders,
		payments: payments,
		audit:    audit,
		logger:   logger,
	}
}

func (s *Service) GetOrderHistory(ctx context.Context, creds interfaces.Credentials, orderID string) ([]domain.AuditEntry, error) {
	caller, err := s.access.Verify(ctx, creds, false)
	if err != nil {
		return nil, err
	}
	order, err := s.orders.FindByID(ctx, strings.TrimSpace(orderID))
	if err != nil {
		return nil, err
	}
	if err := s.access.AuthorizeOrder(ctx, caller, order); err != nil {
		return nil, err
	}
	return s.audit.History(ctx, order.ID)
}

// GetPaymentStatus returns a payment to the owner of the order it settles or
// to privileged staff. A payment without an order is visible to staff only.
func (s *Service) GetPaymentStatus(ctx context.Context, creds interfaces.Credentials, paymentID string) (*domain.Payment, error) {
	caller, err := s.access.Verify(ctx, creds, false)
	if err != nil {
		return nil, err
	}
	paymentID = strings.TrimSpace(paymentID)
	if paymentID == "" {
		return nil, domain.ValidationError("paymentId is required")
	}
	payment, err := s.payments.FindByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	if len(payment.OrderIDs) == 0 {
		if !caller.IsPrivileged() {
			return nil, domain.ForbiddenError("not the payment owner")
		}
		return payment, nil
	}

	order, err := s.orders.FindByID(ctx, payment.OrderIDs[0])
	if err != nil {
		if domain.IsKind(err, domain.KindNotFound) && caller.IsPrivileged() {
			s.logger.Warn("payment_order_missing", "Payment links to a missing order", creds.RequestID,
				map[string]interface{}{"payment_id": payment.ID, "order_id": payment.OrderIDs[0]})
			return payment, nil
		}
		return nil, err
	}
	if err := s.access.AuthorizeOrder(ctx, caller, order); err != nil {
		return nil, err
	}
	return payment, nil
}

var _ interfaces.TrackingService = (*Service)(nil)
