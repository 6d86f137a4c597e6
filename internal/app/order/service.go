package order

import (
	"context"
	"strings"
	"time"

	"github.com/YelzhanWeb/lunchbox/internal/adapter/logger"
	"github.com/YelzhanWeb/lunchbox/internal/app/access"
	"github.com/YelzhanWeb/lunchbox/internal/config"
	"github.com/YelzhanWeb/lunchbox/internal/domain"
	"github.com/YelzhanWeb/lunchbox/internal/interfaces"
)

const (
	flowEmployee = "employee"
	flowManager  = "manager"
)

type Dependencies struct {
	Access        *access.Service
	Employees     interfaces.EmployeeRepository
	Organizations interfaces.OrganizationRepository
	Menu          interfaces.MenuRepository
	Orders        interfaces.OrderRepository
	Children      interfaces.ChildRepository
	RequestLog    interfaces.RequestLogRepository
	Payments      interfaces.PaymentRepository
	Bank          interfaces.BankGateway
	Publisher     interfaces.EventPublisher
	Audit         interfaces.AuditRepository
}

type Service struct {
	access    *access.Service
	employees interfaces.EmployeeRepository
	orgs      interfaces.OrganizationRepository
	menu      interfaces.MenuRepository
	orders    interfaces.OrderRepository
	children  interfaces.ChildRepository
	requests  interfaces.RequestLogRepository
	payments  interfaces.PaymentRepository
	bank      interfaces.BankGateway
	publisher interfaces.EventPublisher
	audit     interfaces.AuditRepository
	cfg       config.OrderingConfig
	logger    logger.Logger
	now       func() time.Time
}

func NewService(deps Dependencies, cfg config.OrderingConfig, logger logger.Logger) *Service {
	return &Service{
		access:    deps.Access,
		employees: deps.Employees,
		orgs:      deps.Organizations,
		menu:      deps.Menu,
		orders:    deps.Orders,
		children:  deps.Children,
		requests:  deps.RequestLog,
		payments:  deps.Payments,
		bank:      deps.Bank,
		publisher: deps.Publisher,
		audit:     deps.Audit,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}
}

// WithClock replaces the time source used for admission windows.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// admission is one creation request after input validation.
type admission struct {
	flow          string
	requestID     string
	caller        *domain.Employee
	target        *domain.Employee
	orderType     domain.OrderType
	date          string
	comp          domain.Composition
	clientToken   string
	paymentMethod string
}

func (s *Service) CreateOrder(ctx context.Context, cmd interfaces.CreateOrderCommand) (res *interfaces.CreateOrderResult, err error) {
	defer func() { observeAdmission(flowEmployee, res, err) }()

	caller, err := s.access.Verify(ctx, cmd.Credentials, true)
	if err != nil {
		return nil, err
	}
	target, err := s.access.ResolveTarget(ctx, caller, cmd.ForEmployeeID, true)
	if err != nil {
		return nil, err
	}
	if _, err := domain.ParseDate(cmd.Date); err != nil {
		return nil, err
	}
	comp, err := domain.SelfServiceComposition(cmd.MainID, cmd.SideID, cmd.Extras, s.cfg.SelfServiceExtrasLimit)
	if err != nil {
		return nil, err
	}

	return s.admit(ctx, admission{
		flow:          flowEmployee,
		requestID:     cmd.RequestID,
		caller:        caller,
		target:        target,
		orderType:     domain.OrderTypeEmployee,
		date:          strings.TrimSpace(cmd.Date),
		comp:          comp,
		clientToken:   strings.TrimSpace(cmd.ClientToken),
		paymentMethod: strings.TrimSpace(cmd.PaymentMethod),
	})
}

// CreateManagerOrder places a bulk order owned by the manager. The
// one-order-per-day rule covers Employee orders only.
func (s *Service) CreateManagerOrder(ctx context.Context, cmd interfaces.ManagerOrderCommand) (res *interfaces.CreateOrderResult, err error) {
	defer func() { observeAdmission(flowManager, res, err) }()

	caller, err := s.access.Verify(ctx, cmd.Credentials, true)
	if err != nil {
		return nil, err
	}
	if err := access.RequireManager(caller); err != nil {
		return nil, err
	}
	if _, err := domain.ParseDate(cmd.Date); err != nil {
		return nil, err
	}
	comp, err := domain.ManagerComposition(cmd.Boxes, cmd.Extras)
	if err != nil {
		return nil, err
	}

	return s.admit(ctx, admission{
		flow:          flowManager,
		requestID:     cmd.RequestID,
		caller:        caller,
		target:        caller,
		orderType:     domain.OrderTypeManager,
		date:          strings.TrimSpace(cmd.Date),
		comp:          comp,
		clientToken:   strings.TrimSpace(cmd.ClientToken),
		paymentMethod: strings.TrimSpace(cmd.PaymentMethod),
	})
}

func (s *Service) admit(ctx context.Context, a admission) (*interfaces.CreateOrderResult, error) {
	org, err := s.orgs.FindByCode(ctx, a.caller.OrgCode)
	if err != nil {
		return nil, err
	}
	menu, err := s.visibleMenu(ctx, a.date, org.Code)
	if err != nil {
		return nil, err
	}
	window, err := s.checkWindow(a.date, org, a.caller)
	if err != nil {
		return nil, err
	}

	var entry *domain.RequestLogEntry
	if a.clientToken != "" {
		key := domain.IdempotencyKey(a.date, a.target.ID, a.clientToken)
		existing, err := s.requests.FindByKey(ctx, key)
		switch {
		case err != nil:
			s.logger.Error("idempotency_lookup_failed", "Request log lookup failed, continuing without replay protection", a.requestID,
				map[string]interface{}{"key": key}, err)
		case existing != nil && existing.OrderID() != "":
			s.logger.Info("order_idempotent_hit", "Replayed creation request", a.requestID,
				map[string]interface{}{"key": key, "order_id": existing.OrderID()})
			return s.existing(ctx, a.requestID, existing.OrderID(), window, true), nil
		case existing != nil:
			entry = existing
		default:
			entry, err = s.requests.Reserve(ctx, key)
			if err != nil {
				s.logger.Error("idempotency_reserve_failed", "Could not reserve request log row", a.requestID,
					map[string]interface{}{"key": key}, err)
				entry = nil
			}
		}
	}

	if a.orderType == domain.OrderTypeEmployee {
		active, err := s.orders.ListActiveForDate(ctx, a.date, domain.OrderTypeEmployee)
		if err != nil {
			return nil, err
		}
		for _, o := range active {
			if o.OwnedBy(a.target.ID) {
				s.logger.Info("order_duplicate_hit", "Employee already has an active order for the date", a.requestID,
					map[string]interface{}{"order_id": o.ID, "employee_id": a.target.ID, "date": a.date})
				return hitResult(o, window, false), nil
			}
		}
	}

	header := &domain.Order{
		DeliveryDate:  a.date,
		Type:          a.orderType,
		Status:        s.initialStatus(org, a.target, a.paymentMethod),
		EmployeeIDs:   []string{a.target.ID},
		PaymentMethod: a.paymentMethod,
		PayableAmount: a.comp.Payable(*org, menu),
	}
	if a.caller.ID != a.target.ID {
		header.PlacedByIDs = []string{a.caller.ID}
	}
	if err := s.orders.Create(ctx, header); err != nil {
		s.logger.Error("order_create_failed", "Failed to create order header", a.requestID, nil, err)
		return nil, err
	}

	boxIDs, lineIDs, report, err := s.compose(ctx, header.ID, a.comp)
	if err != nil {
		s.logger.Error("order_compose_failed", "Failed to compose order children", a.requestID,
			map[string]interface{}{"order_id": header.ID, "writes": report.Writes}, err)
		s.compensate(ctx, a.requestID, header.ID, boxIDs, lineIDs)
		return nil, err
	}
	header.MealBoxIDs = boxIDs
	header.OrderLineIDs = lineIDs

	if entry != nil {
		if err := s.requests.Link(ctx, entry.ID, header.ID); err != nil {
			s.logger.Error("idempotency_link_failed", "Could not link request log to order", a.requestID,
				map[string]interface{}{"entry_id": entry.ID, "order_id": header.ID}, err)
		}
	}

	s.record(ctx, a.requestID, interfaces.EventOrderCreated, domain.AuditCreated, header, a.caller, map[string]interface{}{
		"flow":        a.flow,
		"window_mode": string(window.Mode),
		"meal_boxes":  len(boxIDs),
		"order_lines": len(lineIDs),
	})

	s.logger.Info("order_created", "Order created", a.requestID, map[string]interface{}{
		"order_id":    header.ID,
		"employee_id": a.target.ID,
		"date":        a.date,
		"status":      header.Status,
	})

	return &interfaces.CreateOrderResult{
		OrderID:      header.ID,
		Status:       header.Status,
		MealBoxIDs:   boxIDs,
		OrderLineIDs: lineIDs,
		Window:       window,
		Report:       report,
	}, nil
}

// initialStatus holds paid-program orders paid online until the provider confirms.
func (s *Service) initialStatus(org *domain.Organization, target *domain.Employee, paymentMethod string) domain.Status {
	if org.IsPaidProgram(*target, s.cfg.PaidContractTypes) &&
		strings.EqualFold(paymentMethod, s.cfg.OnlinePaymentMethod) {
		return domain.StatusAwaitingPayment
	}
	return domain.StatusNew
}

func (s *Service) visibleMenu(ctx context.Context, date, orgCode string) (map[string]domain.MenuItem, error) {
	items, err := s.menu.ListPublished(ctx, date, false)
	if err != nil {
		return nil, err
	}
	out := make(map[string]domain.MenuItem, len(items))
	for _, it := range items {
		if it.VisibleTo(orgCode) {
			out[it.ID] = it
		}
	}
	if len(out) == 0 {
		return nil, domain.ValidationError("no published menu for %s", date)
	}
	return out, nil
}

// checkWindow rejects requests outside the admission window with the computed
// cutoffs attached.
func (s *Service) checkWindow(date string, org *domain.Organization, caller *domain.Employee) (domain.Window, error) {
	w, err := domain.CanOrderNow(s.now(), date, *org, caller.IsPrivileged(), s.cfg.DefaultTimeZone)
	if err != nil {
		return w, err
	}
	if !w.Allowed {
		e := domain.ForbiddenError("%s", w.Reason)
		e.Details = w.Details()
		return w, e
	}
	return w, nil
}

// existing builds the result for a replayed request. The header lookup only
// enriches the response, so a failure still returns the known id.
func (s *Service) existing(ctx context.Context, requestID, orderID string, window domain.Window, idempotent bool) *interfaces.CreateOrderResult {
	o, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		s.logger.Warn("order_lookup_failed", "Could not load replayed order", requestID,
			map[string]interface{}{"order_id": orderID, "error": err.Error()})
		return &interfaces.CreateOrderResult{OrderID: orderID, Idempotent: idempotent, Duplicate: !idempotent, Window: window}
	}
	return hitResult(*o, window, idempotent)
}

func hitResult(o domain.Order, window domain.Window, idempotent bool) *interfaces.CreateOrderResult {
	return &interfaces.CreateOrderResult{
		OrderID:      o.ID,
		Status:       o.Status,
		Idempotent:   idempotent,
		Duplicate:    !idempotent,
		MealBoxIDs:   o.MealBoxIDs,
		OrderLineIDs: o.OrderLineIDs,
		Window:       window,
	}
}
