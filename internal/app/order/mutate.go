package order

import (
	"context"
	"strings"

	"github.com/YelzhanWeb/lunchbox/internal/domain"
	"github.com/YelzhanWeb/lunchbox/internal/interfaces"
)

// UpdateOrder replaces the order's children wholesale. The links are cleared
// before old rows are touched so the header never points at deleted records.
func (s *Service) UpdateOrder(ctx context.Context, cmd interfaces.UpdateOrderCommand) (*interfaces.UpdateOrderResult, error) {
	caller, err := s.access.Verify(ctx, cmd.Credentials, true)
	if err != nil {
		return nil, err
	}
	order, err := s.orders.FindByID(ctx, strings.TrimSpace(cmd.OrderID))
	if err != nil {
		return nil, err
	}
	if err := s.access.AuthorizeOrder(ctx, caller, order); err != nil {
		return nil, err
	}
	if !order.IsActive() {
		return nil, domain.ValidationError("order is %s", strings.ToLower(string(order.Status)))
	}

	comp, err := s.updateComposition(cmd, caller)
	if err != nil {
		return nil, err
	}

	org, err := s.orgs.FindByCode(ctx, caller.OrgCode)
	if err != nil {
		return nil, err
	}
	menu, err := s.visibleMenu(ctx, order.DeliveryDate, org.Code)
	if err != nil {
		return nil, err
	}
	window, err := s.checkWindow(order.DeliveryDate, org, caller)
	if err != nil {
		return nil, err
	}

	report, err := s.orders.ClearChildren(ctx, order.ID)
	if err != nil {
		return nil, err
	}

	res := &interfaces.UpdateOrderResult{OrderID: order.ID, Window: window}
	if cmd.HardDelete {
		res.DeletedMealBoxIDs, res.DeletedOrderLineIDs = s.deleteChildren(ctx, cmd.RequestID, order)
	}

	boxIDs, lineIDs, linkReport, err := s.compose(ctx, order.ID, comp)
	report.Merge(linkReport)
	if err != nil {
		s.logger.Error("order_compose_failed", "Failed to recompose order children", cmd.RequestID,
			map[string]interface{}{"order_id": order.ID, "writes": report.Writes}, err)
		s.compensate(ctx, cmd.RequestID, "", boxIDs, lineIDs)
		return nil, err
	}
	res.MealBoxIDs, res.OrderLineIDs, res.Report = boxIDs, lineIDs, report

	if amount := comp.Payable(*org, menu); !amount.Equal(order.PayableAmount) {
		if err := s.orders.SetPayableAmount(ctx, order.ID, amount); err != nil {
			s.logger.Error("payable_update_failed", "Could not update payable amount", cmd.RequestID,
				map[string]interface{}{"order_id": order.ID, "amount": amount.String()}, err)
		} else {
			order.PayableAmount = amount
		}
	}
	order.MealBoxIDs, order.OrderLineIDs = boxIDs, lineIDs

	s.record(ctx, cmd.RequestID, interfaces.EventOrderUpdated, domain.AuditUpdated, order, caller, map[string]interface{}{
		"hard_delete": cmd.HardDelete,
		"meal_boxes":  len(boxIDs),
		"order_lines": len(lineIDs),
	})
	s.logger.Info("order_updated", "Order children replaced", cmd.RequestID, map[string]interface{}{"order_id": order.ID})

	return res, nil
}

// updateComposition picks the payload shape. The multi-box shape is reserved
// for privileged callers since it bypasses the self-service extras bound.
func (s *Service) updateComposition(cmd interfaces.UpdateOrderCommand, caller *domain.Employee) (domain.Composition, error) {
	if len(cmd.Boxes) > 0 || len(cmd.Extras) > 0 {
		if !caller.IsPrivileged() {
			return domain.Composition{}, domain.ForbiddenError("boxes payload requires a privileged role")
		}
		return domain.ManagerComposition(cmd.Boxes, cmd.Extras)
	}
	return domain.SelfServiceComposition(cmd.MainID, cmd.SideID, cmd.ExtraIDs, s.cfg.SelfServiceExtrasLimit)
}

// deleteChildren removes the previous children. Rows it cannot delete stay
// orphaned, which is harmless once the links are cleared.
func (s *Service) deleteChildren(ctx context.Context, requestID string, order *domain.Order) (boxes, lines []string) {
	if err := s.children.DeleteMealBoxes(ctx, order.MealBoxIDs); err != nil {
		s.logger.Error("children_delete_failed", "Old meal boxes left orphaned", requestID,
			map[string]interface{}{"order_id": order.ID, "ids": order.MealBoxIDs}, err)
	} else {
		boxes = order.MealBoxIDs
	}
	if err := s.children.DeleteOrderLines(ctx, order.OrderLineIDs); err != nil {
		s.logger.Error("children_delete_failed", "Old order lines left orphaned", requestID,
			map[string]interface{}{"order_id": order.ID, "ids": order.OrderLineIDs}, err)
	} else {
		lines = order.OrderLineIDs
	}
	return boxes, lines
}

// CancelOrder marks the order Cancelled. A captured payment is refunded on a
// best-effort basis; refund failure never blocks the cancellation.
func (s *Service) CancelOrder(ctx context.Context, cmd interfaces.CancelOrderCommand) (*interfaces.CancelOrderResult, error) {
	caller, err := s.access.Verify(ctx, cmd.Credentials, true)
	if err != nil {
		return nil, err
	}
	order, err := s.orders.FindByID(ctx, strings.TrimSpace(cmd.OrderID))
	if err != nil {
		return nil, err
	}
	if err := s.access.AuthorizeOrder(ctx, caller, order); err != nil {
		return nil, err
	}
	switch order.Status {
	case domain.StatusCancelled:
		return nil, domain.ValidationError(domain.MsgAlreadyCancelled)
	case domain.StatusDeleted:
		return nil, domain.ValidationError("order is deleted")
	}

	refund := s.refund(ctx, cmd.RequestID, order, caller, cmd.Reason)

	if err := s.orders.SetStatus(ctx, order.ID, domain.StatusCancelled); err != nil {
		return nil, err
	}
	order.Status = domain.StatusCancelled

	details := map[string]interface{}{"reason": cmd.Reason}
	if refund != nil {
		details["refund_payment_id"] = refund.PaymentID
		details["refund_amount"] = refund.Amount.String()
		details["refund_succeeded"] = refund.Succeeded
	}
	s.record(ctx, cmd.RequestID, interfaces.EventOrderCancelled, domain.AuditCancelled, order, caller, details)
	s.logger.Info("order_cancelled", "Order cancelled", cmd.RequestID, map[string]interface{}{"order_id": order.ID})

	return &interfaces.CancelOrderResult{OrderID: order.ID, Status: order.Status, Refund: refund}, nil
}

// refund returns nil when the order has no refundable payment.
func (s *Service) refund(ctx context.Context, requestID string, order *domain.Order, caller *domain.Employee, reason string) *interfaces.RefundOutcome {
	if len(order.PaymentIDs) == 0 {
		return nil
	}
	details := map[string]interface{}{"order_id": order.ID, "payment_id": order.PaymentIDs[0]}

	payment, err := s.payments.FindByID(ctx, order.PaymentIDs[0])
	if err != nil {
		s.logger.Error("refund_failed", "Could not load payment", requestID, details, err)
		refundsTotal.WithLabelValues("failed").Inc()
		return &interfaces.RefundOutcome{PaymentID: order.PaymentIDs[0], Message: err.Error()}
	}
	if !payment.Status.Refundable() {
		return nil
	}

	amount := order.PayableAmount
	if remaining := payment.Remaining(); amount.GreaterThan(remaining) {
		amount = remaining
	}
	outcome := &interfaces.RefundOutcome{PaymentID: payment.ID, Amount: amount}
	if !amount.IsPositive() {
		outcome.Message = "nothing to refund"
		return outcome
	}
	details["amount"] = amount.String()

	bank, err := s.bankConfig(ctx, payment, caller.OrgCode)
	if err != nil {
		s.logger.Error("refund_failed", "No bank configuration for payment", requestID, details, err)
		refundsTotal.WithLabelValues("failed").Inc()
		outcome.Message = err.Error()
		return outcome
	}

	resp, err := s.bank.Refund(ctx, *bank, interfaces.RefundRequest{
		PaymentID:   payment.ID,
		ProviderRef: payment.ProviderRef,
		Amount:      amount,
		Reason:      reason,
	})
	if err != nil {
		s.logger.Error("refund_failed", "Bank refund call failed", requestID, details, err)
		refundsTotal.WithLabelValues("failed").Inc()
		outcome.Message = err.Error()
		return outcome
	}
	if !resp.Success {
		s.logger.Warn("refund_declined", "Bank declined refund", requestID, details)
		refundsTotal.WithLabelValues("declined").Inc()
		outcome.Message = resp.Message
		return outcome
	}

	refunded := payment.RefundedAmount.Add(amount)
	status := domain.PaymentPartiallyRefunded
	if refunded.GreaterThanOrEqual(payment.Amount) {
		status = domain.PaymentRefunded
	}
	if err := s.payments.RecordRefund(ctx, payment.ID, refunded, status); err != nil {
		s.logger.Error("refund_record_failed", "Refund issued but payment not updated", requestID, details, err)
		outcome.Message = "refund issued, payment record not updated"
	}
	outcome.Succeeded = true
	refundsTotal.WithLabelValues("succeeded").Inc()

	s.appendAudit(ctx, requestID, domain.AuditEntry{
		OrderID:      order.ID,
		Action:       domain.AuditRefund,
		ActorID:      caller.ID,
		DeliveryDate: order.DeliveryDate,
		Status:       order.Status,
		Details:      details,
	})
	return outcome
}

// bankConfig prefers the payment's own bank link and falls back to the
// organization's.
func (s *Service) bankConfig(ctx context.Context, payment *domain.Payment, orgCode string) (*domain.BankConfig, error) {
	bankID := ""
	if len(payment.BankConfigIDs) > 0 {
		bankID = payment.BankConfigIDs[0]
	} else {
		org, err := s.orgs.FindByCode(ctx, orgCode)
		if err != nil {
			return nil, err
		}
		bankID = org.BankConfigID
	}
	if bankID == "" {
		return nil, domain.NotFoundError("bank configuration not set")
	}
	return s.payments.FindBankConfig(ctx, bankID)
}

var _ interfaces.OrderService = (*Service)(nil)
