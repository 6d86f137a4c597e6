package order

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YelzhanWeb/lunchbox/internal/adapter/logger"
	"github.com/YelzhanWeb/lunchbox/internal/adapter/memstore"
	"github.com/YelzhanWeb/lunchbox/internal/adapter/records"
	"github.com/YelzhanWeb/lunchbox/internal/app/access"
	"github.com/YelzhanWeb/lunchbox/internal/config"
	"github.com/YelzhanWeb/lunchbox/internal/domain"
	"github.com/YelzhanWeb/lunchbox/internal/interfaces"
	"github.com/YelzhanWeb/lunchbox/internal/store"
)

const deliveryDate = "2025-06-10"

// 15:00 in Ho Chi Minh on the day before delivery, one hour before cutoff.
var beforeCutoff = time.Date(2025, 6, 9, 8, 0, 0, 0, time.UTC)

type fakePublisher struct {
	mu     sync.Mutex
	events []interfaces.OrderEvent
	err    error
}

func (p *fakePublisher) PublishOrderEvent(_ context.Context, evt interfaces.OrderEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, evt)
	return nil
}

func (p *fakePublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type fakeAudit struct {
	mu      sync.Mutex
	entries []domain.AuditEntry
}

func (a *fakeAudit) Append(_ context.Context, e domain.AuditEntry) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, e)
	return nil
}

func (a *fakeAudit) History(_ context.Context, orderID string) ([]domain.AuditEntry, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []domain.AuditEntry
	for _, e := range a.entries {
		if e.OrderID == orderID {
			out = append(out, e)
		}
	}
	return out, nil
}

type fakeBank struct {
	calls int
	resp  *interfaces.RefundResponse
	err   error
	last  interfaces.RefundRequest
}

func (b *fakeBank) Refund(_ context.Context, _ domain.BankConfig, req interfaces.RefundRequest) (*interfaces.RefundResponse, error) {
	b.calls++
	b.last = req
	if b.err != nil {
		return nil, b.err
	}
	return b.resp, nil
}

type fixture struct {
	ms     *memstore.Store
	svc    *Service
	pub    *fakePublisher
	audit  *fakeAudit
	bank   *fakeBank
	orders interfaces.OrderRepository
	org    string
	tokens map[string]string

	emp, peer, hr, mgr, inactive string
	mainID, sideID               string
	extras                       []string
}

type orgOption func(store.Fields)

func newFixture(t *testing.T, opts ...orgOption) *fixture {
	t.Helper()
	ms := memstore.New()
	schema := config.DefaultSchema()

	f := &fixture{
		ms:     ms,
		pub:    &fakePublisher{},
		audit:  &fakeAudit{},
		bank:   &fakeBank{resp: &interfaces.RefundResponse{Success: true}},
		tokens: map[string]string{},
	}

	orgFields := store.Fields{
		"Code":           "ACME",
		"Name":           "Acme Corp",
		"Time Zone":      "Asia/Ho_Chi_Minh",
		"Cutoff Time":    "16:00",
		"HR Cutoff Time": "09:00",
		"Contract Type":  "Company Paid",
		"Standard Price": 50000,
		"Upsized Price":  65000,
	}
	for _, opt := range opts {
		opt(orgFields)
	}
	f.org = ms.Seed("Organizations", orgFields)

	seedEmp := func(token, status, role string) string {
		id := ms.Seed("Employees", store.Fields{
			"Org Code":  "ACME",
			"Token":     token,
			"Status":    status,
			"Role":      role,
			"Full Name": token,
			"Email":     token + "@acme.test",
		})
		f.tokens[id] = token
		return id
	}
	f.emp = seedEmp("emp-token", "Active", "Staff")
	f.peer = seedEmp("peer-token", "Active", "Staff")
	f.hr = seedEmp("hr-token", "Active", "HR")
	f.mgr = seedEmp("mgr-token", "Active", "Manager")
	f.inactive = seedEmp("gone-token", "Inactive", "Staff")

	dish := func(name, category string, price int) string {
		return ms.Seed("Menu", store.Fields{
			"Date":      deliveryDate,
			"Dish Name": name,
			"Category":  category,
			"Published": true,
			"Access":    "ALL",
			"Price":     price,
		})
	}
	f.mainID = dish("Pho", "Main", 0)
	f.sideID = dish("Spring Rolls", "Side", 0)
	for _, name := range []string{"Tea", "Fruit", "Cake", "Soup"} {
		f.extras = append(f.extras, dish(name, "Extra", 10000))
	}

	employees := records.NewEmployeeRepository(ms, schema.Employees)
	f.orders = records.NewOrderRepository(ms, schema.Orders, 2)
	cfg := config.Default().Ordering
	cfg.Consistency = config.ConsistencyConfig{Attempts: 6, InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond}

	f.svc = NewService(Dependencies{
		Access:        access.NewService(employees),
		Employees:     employees,
		Organizations: records.NewOrganizationRepository(ms, schema.Organizations),
		Menu:          records.NewMenuRepository(ms, schema.Menu),
		Orders:        f.orders,
		Children:      records.NewChildRepository(ms, schema.MealBoxes, schema.OrderLines),
		RequestLog:    records.NewRequestLogRepository(ms, schema.RequestLog),
		Payments:      records.NewPaymentRepository(ms, schema.Payments, schema.BankConfigs),
		Bank:          f.bank,
		Publisher:     f.pub,
		Audit:         f.audit,
	}, cfg, logger.Nop()).WithClock(func() time.Time { return beforeCutoff })
	return f
}

func (f *fixture) creds(id string) interfaces.Credentials {
	return interfaces.Credentials{EmployeeID: id, OrgCode: "ACME", Token: f.tokens[id], RequestID: "req-test"}
}

func (f *fixture) at(now time.Time) {
	f.svc.WithClock(func() time.Time { return now })
}

func (f *fixture) create(t *testing.T, caller string, mutate ...func(*interfaces.CreateOrderCommand)) (*interfaces.CreateOrderResult, error) {
	t.Helper()
	cmd := interfaces.CreateOrderCommand{
		Credentials: f.creds(caller),
		Date:        deliveryDate,
		MainID:      f.mainID,
		SideID:      f.sideID,
	}
	for _, m := range mutate {
		m(&cmd)
	}
	return f.svc.CreateOrder(context.Background(), cmd)
}

func TestCreateOrder_LinksChildrenToHeader(t *testing.T) {
	f := newFixture(t)

	res, err := f.create(t, f.emp, func(c *interfaces.CreateOrderCommand) { c.Extras = f.extras })
	require.NoError(t, err)

	assert.False(t, res.Idempotent)
	assert.False(t, res.Duplicate)
	assert.Equal(t, domain.StatusNew, res.Status)
	assert.Equal(t, domain.WindowNormal, res.Window.Mode)
	assert.Len(t, res.MealBoxIDs, 1)
	require.Len(t, res.OrderLineIDs, 2, "extras are bounded to the configured limit")

	o, err := f.orders.FindByID(context.Background(), res.OrderID)
	require.NoError(t, err)
	assert.ElementsMatch(t, res.MealBoxIDs, o.MealBoxIDs)
	assert.ElementsMatch(t, res.OrderLineIDs, o.OrderLineIDs)
	assert.Equal(t, []string{f.emp}, o.EmployeeIDs)
	assert.Empty(t, o.PlacedByIDs)
	assert.True(t, o.PayableAmount.Equal(decimal.NewFromInt(70000)))

	lines := f.ms.Records("Order Lines")
	require.Len(t, lines, 2)
	assert.Equal(t, f.extras[0], lines[0].Fields.First("Item"))
	assert.Equal(t, f.extras[1], lines[1].Fields.First("Item"))

	assert.Equal(t, []string{interfaces.EventOrderCreated}, f.pub.types())
	require.Len(t, f.audit.entries, 1)
	assert.Equal(t, domain.AuditCreated, f.audit.entries[0].Action)
}

func TestCreateOrder_RejectedAfterCutoff(t *testing.T) {
	f := newFixture(t)
	f.at(time.Date(2025, 6, 9, 9, 0, 1, 0, time.UTC))

	_, err := f.create(t, f.emp)
	require.Error(t, err)

	derr, ok := domain.AsError(err)
	require.True(t, ok)
	assert.Equal(t, domain.KindForbidden, derr.Kind)
	assert.Equal(t, domain.ReasonDeadlinePassed, derr.Details["reason"])
	assert.Equal(t, "2025-06-09T09:00:00Z", derr.Details["cutoff"])
	assert.Equal(t, "2025-06-10T02:00:00Z", derr.Details["privilegedCutoff"])
	assert.Zero(t, f.ms.Calls("create", "Orders"))
}

func TestCreateOrder_AllowedExactlyAtCutoff(t *testing.T) {
	f := newFixture(t)
	f.at(time.Date(2025, 6, 9, 9, 0, 0, 0, time.UTC))

	_, err := f.create(t, f.emp)
	require.NoError(t, err)
}

func TestCreateOrder_PrivilegedWindow(t *testing.T) {
	f := newFixture(t)
	f.at(time.Date(2025, 6, 10, 1, 0, 0, 0, time.UTC))

	res, err := f.create(t, f.hr)
	require.NoError(t, err)
	assert.Equal(t, domain.WindowPrivileged, res.Window.Mode)

	f.at(time.Date(2025, 6, 10, 2, 0, 1, 0, time.UTC))
	_, err = f.create(t, f.mgr)
	assert.True(t, domain.IsKind(err, domain.KindForbidden))
}

func TestCreateOrder_CutoffNotConfigured(t *testing.T) {
	f := newFixture(t, func(fl store.Fields) { delete(fl, "Cutoff Time") })

	_, err := f.create(t, f.hr)
	derr, ok := domain.AsError(err)
	require.True(t, ok)
	assert.Equal(t, domain.KindForbidden, derr.Kind)
	assert.Equal(t, domain.ReasonCutoffNotConfigured, derr.Details["reason"])
}

func TestCreateOrder_DuplicateReturnsExistingOrder(t *testing.T) {
	f := newFixture(t)

	first, err := f.create(t, f.emp)
	require.NoError(t, err)

	second, err := f.create(t, f.emp, func(c *interfaces.CreateOrderCommand) { c.MainID = f.extras[0] })
	require.NoError(t, err)
	assert.True(t, second.Duplicate)
	assert.False(t, second.Idempotent)
	assert.Equal(t, first.OrderID, second.OrderID)
	assert.Equal(t, first.MealBoxIDs, second.MealBoxIDs)

	assert.Len(t, f.ms.Records("Orders"), 1)
	assert.Len(t, f.ms.Records("Meal Boxes"), 1)
}

func TestCreateOrder_CancelledOrderDoesNotBlock(t *testing.T) {
	f := newFixture(t)

	first, err := f.create(t, f.emp)
	require.NoError(t, err)
	require.NoError(t, f.orders.SetStatus(context.Background(), first.OrderID, domain.StatusCancelled))

	second, err := f.create(t, f.emp)
	require.NoError(t, err)
	assert.False(t, second.Duplicate)
	assert.NotEqual(t, first.OrderID, second.OrderID)
}

func TestCreateOrder_IdempotentReplay(t *testing.T) {
	f := newFixture(t)
	withToken := func(c *interfaces.CreateOrderCommand) { c.ClientToken = "tok-1" }

	first, err := f.create(t, f.emp, withToken)
	require.NoError(t, err)

	second, err := f.create(t, f.emp, withToken)
	require.NoError(t, err)
	assert.True(t, second.Idempotent)
	assert.Equal(t, first.OrderID, second.OrderID)

	assert.Equal(t, 1, f.ms.Calls("create", "Orders"))
	assert.Equal(t, 1, f.ms.Calls("create", "Meal Boxes"))
	reqs := f.ms.Records("Request Log")
	require.Len(t, reqs, 1)
	assert.Equal(t, []string{first.OrderID}, reqs[0].Fields.StringList("Order"))
}

func TestCreateOrder_OnBehalfRequiresHR(t *testing.T) {
	f := newFixture(t)

	_, err := f.create(t, f.peer, func(c *interfaces.CreateOrderCommand) { c.ForEmployeeID = f.emp })
	assert.True(t, domain.IsKind(err, domain.KindForbidden))

	_, err = f.create(t, f.hr, func(c *interfaces.CreateOrderCommand) { c.ForEmployeeID = f.inactive })
	assert.True(t, domain.IsKind(err, domain.KindForbidden))

	res, err := f.create(t, f.hr, func(c *interfaces.CreateOrderCommand) { c.ForEmployeeID = f.emp })
	require.NoError(t, err)
	o, err := f.orders.FindByID(context.Background(), res.OrderID)
	require.NoError(t, err)
	assert.Equal(t, []string{f.emp}, o.EmployeeIDs)
	assert.Equal(t, []string{f.hr}, o.PlacedByIDs)
}

func TestCreateOrder_Validation(t *testing.T) {
	f := newFixture(t)

	_, err := f.create(t, f.emp, func(c *interfaces.CreateOrderCommand) { c.MainID = "" })
	assert.True(t, domain.IsKind(err, domain.KindValidation))

	_, err = f.create(t, f.emp, func(c *interfaces.CreateOrderCommand) { c.Date = "10/06/2025" })
	assert.True(t, domain.IsKind(err, domain.KindValidation))

	_, err = f.create(t, f.emp, func(c *interfaces.CreateOrderCommand) { c.Date = "2025-06-11" })
	assert.True(t, domain.IsKind(err, domain.KindValidation), "no menu published for that date")

	_, err = f.create(t, f.inactive)
	assert.True(t, domain.IsKind(err, domain.KindForbidden))
}

func TestCreateOrder_AwaitingPaymentForPaidProgram(t *testing.T) {
	f := newFixture(t, func(fl store.Fields) { fl["Contract Type"] = "Employee Paid" })

	res, err := f.create(t, f.emp, func(c *interfaces.CreateOrderCommand) { c.PaymentMethod = "online" })
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAwaitingPayment, res.Status)

	res, err = f.create(t, f.hr, func(c *interfaces.CreateOrderCommand) { c.PaymentMethod = "Online" })
	require.NoError(t, err)
	assert.Equal(t, domain.StatusNew, res.Status, "privileged staff are billed to the organization")
}

func TestCreateOrder_LinkFieldFallback(t *testing.T) {
	f := newFixture(t)
	f.ms.Strict("Orders", "Delivery Date", "Order Type", "Status", "Employee", "Placed By",
		"Payment Method", "Payable Amount", "Payment", "Meal Boxes", "Order Lines")

	res, err := f.create(t, f.emp, func(c *interfaces.CreateOrderCommand) { c.Extras = f.extras[:1] })
	require.NoError(t, err)

	require.Len(t, res.Report.Writes, 3)
	assert.Equal(t, "Meal Box", res.Report.Writes[0].Field)
	assert.Equal(t, domain.FieldSkippedUnknownField, res.Report.Writes[0].Outcome)
	assert.Equal(t, domain.FieldApplied, res.Report.Writes[1].Outcome)
	assert.Equal(t, "Meal Boxes", res.Report.Writes[1].Field)
	assert.Equal(t, []string{"Meal Boxes", "Order Lines"}, res.Report.AppliedFields())

	o, err := f.orders.FindByID(context.Background(), res.OrderID)
	require.NoError(t, err)
	assert.Equal(t, res.MealBoxIDs, o.MealBoxIDs)
}

func TestCreateOrder_WaitsOutReadLag(t *testing.T) {
	f := newFixture(t)
	f.ms.SetReadLag(1)

	res, err := f.create(t, f.emp, func(c *interfaces.CreateOrderCommand) { c.Extras = f.extras[:1] })
	require.NoError(t, err)
	assert.Len(t, res.MealBoxIDs, 1)
	assert.Len(t, res.OrderLineIDs, 1)
}

func TestCreateOrder_ConsistencyTimeoutCompensates(t *testing.T) {
	f := newFixture(t)
	f.ms.SetReadLag(100)

	_, err := f.create(t, f.emp, func(c *interfaces.CreateOrderCommand) { c.Extras = f.extras[:1] })
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.KindConsistencyTimeout))

	assert.Empty(t, f.ms.Records("Orders"))
	assert.Empty(t, f.ms.Records("Meal Boxes"))
	assert.Empty(t, f.ms.Records("Order Lines"))
	assert.Empty(t, f.pub.types())
}

func TestCreateOrder_ChildFailureCompensates(t *testing.T) {
	f := newFixture(t)
	f.ms.SetFailFunc(func(op, table string) error {
		if op == "create" && table == "Order Lines" {
			return errors.New("422 invalid value")
		}
		return nil
	})

	_, err := f.create(t, f.emp, func(c *interfaces.CreateOrderCommand) { c.Extras = f.extras[:1] })
	assert.True(t, domain.IsKind(err, domain.KindUpstream))
	assert.Contains(t, err.Error(), "422 invalid value")

	assert.Empty(t, f.ms.Records("Orders"))
	assert.Empty(t, f.ms.Records("Meal Boxes"))
}

func TestCreateManagerOrder(t *testing.T) {
	f := newFixture(t)
	cmd := interfaces.ManagerOrderCommand{
		Credentials: f.creds(f.mgr),
		Date:        deliveryDate,
		Boxes: []domain.BoxInput{
			{MainDishID: f.mainID, SideDishID: f.sideID, StandardQty: 3, UpsizedQty: 2},
			{MainDishID: f.mainID, StandardQty: 0, UpsizedQty: 0},
		},
		Extras: []domain.LineSpec{{ItemID: f.extras[0], Quantity: 4}, {ItemID: f.extras[1], Quantity: 0}},
	}

	first, err := f.svc.CreateManagerOrder(context.Background(), cmd)
	require.NoError(t, err)
	require.Len(t, first.MealBoxIDs, 1)
	require.Len(t, first.OrderLineIDs, 1)

	box := f.ms.Records("Meal Boxes")[0]
	assert.Equal(t, 5, box.Fields.Int("Quantity"))
	assert.Equal(t, 3, box.Fields.Int("Standard Qty"))
	assert.Equal(t, 2, box.Fields.Int("Upsized Qty"))

	o, err := f.orders.FindByID(context.Background(), first.OrderID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderTypeManager, o.Type)
	assert.True(t, o.PayableAmount.Equal(decimal.NewFromInt(3*50000+2*65000+4*10000)))

	second, err := f.svc.CreateManagerOrder(context.Background(), cmd)
	require.NoError(t, err)
	assert.False(t, second.Duplicate)
	assert.NotEqual(t, first.OrderID, second.OrderID)

	cmd.Credentials = f.creds(f.emp)
	_, err = f.svc.CreateManagerOrder(context.Background(), cmd)
	assert.True(t, domain.IsKind(err, domain.KindForbidden))
}

func TestUpdateOrder_HardDeleteReplacesChildren(t *testing.T) {
	f := newFixture(t)
	created, err := f.create(t, f.emp, func(c *interfaces.CreateOrderCommand) { c.Extras = f.extras[:2] })
	require.NoError(t, err)

	res, err := f.svc.UpdateOrder(context.Background(), interfaces.UpdateOrderCommand{
		Credentials: f.creds(f.emp),
		OrderID:     created.OrderID,
		MainID:      f.sideID,
		ExtraIDs:    f.extras[2:3],
		HardDelete:  true,
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, created.MealBoxIDs, res.DeletedMealBoxIDs)
	assert.ElementsMatch(t, created.OrderLineIDs, res.DeletedOrderLineIDs)

	boxes := f.ms.Records("Meal Boxes")
	require.Len(t, boxes, 1)
	assert.Equal(t, f.sideID, boxes[0].Fields.First("Main Dish"))
	assert.Len(t, f.ms.Records("Order Lines"), 1)

	o, err := f.orders.FindByID(context.Background(), created.OrderID)
	require.NoError(t, err)
	assert.Equal(t, res.MealBoxIDs, o.MealBoxIDs)
	assert.Equal(t, res.OrderLineIDs, o.OrderLineIDs)
	assert.True(t, o.PayableAmount.Equal(decimal.NewFromInt(60000)))

	assert.Equal(t, []string{interfaces.EventOrderCreated, interfaces.EventOrderUpdated}, f.pub.types())
}

func TestUpdateOrder_KeepsOldRowsWithoutHardDelete(t *testing.T) {
	f := newFixture(t)
	created, err := f.create(t, f.emp)
	require.NoError(t, err)

	_, err = f.svc.UpdateOrder(context.Background(), interfaces.UpdateOrderCommand{
		Credentials: f.creds(f.emp),
		OrderID:     created.OrderID,
		MainID:      f.mainID,
	})
	require.NoError(t, err)
	assert.Len(t, f.ms.Records("Meal Boxes"), 2)
}

func TestUpdateOrder_Authorization(t *testing.T) {
	f := newFixture(t)
	created, err := f.create(t, f.emp)
	require.NoError(t, err)

	cmd := interfaces.UpdateOrderCommand{Credentials: f.creds(f.peer), OrderID: created.OrderID, MainID: f.mainID}
	_, err = f.svc.UpdateOrder(context.Background(), cmd)
	assert.True(t, domain.IsKind(err, domain.KindForbidden))

	cmd.Credentials = f.creds(f.emp)
	cmd.Boxes = []domain.BoxInput{{MainDishID: f.mainID, StandardQty: 2}}
	_, err = f.svc.UpdateOrder(context.Background(), cmd)
	assert.True(t, domain.IsKind(err, domain.KindForbidden), "multi-box shape is privileged")

	cmd.Credentials = f.creds(f.hr)
	res, err := f.svc.UpdateOrder(context.Background(), cmd)
	require.NoError(t, err)
	assert.Len(t, res.MealBoxIDs, 1)

	f.at(time.Date(2025, 6, 10, 3, 0, 0, 0, time.UTC))
	cmd.Credentials = f.creds(f.emp)
	cmd.Boxes = nil
	_, err = f.svc.UpdateOrder(context.Background(), cmd)
	assert.True(t, domain.IsKind(err, domain.KindForbidden), "window closed")
}

func (f *fixture) seedPayment(t *testing.T, orderID string, status domain.PaymentStatus, amount int) string {
	t.Helper()
	bank := f.ms.Seed("Bank Configs", store.Fields{"Code": "VCB", "Merchant ID": "m-1"})
	pay := f.ms.Seed("Payments", store.Fields{
		"Status":       string(status),
		"Amount":       amount,
		"Bank Config":  []string{bank},
		"Provider Ref": "ref-1",
	})
	_, err := f.ms.Update(context.Background(), "Orders", []store.Record{{ID: orderID, Fields: store.Fields{"Payment": []string{pay}}}})
	require.NoError(t, err)
	return pay
}

func TestCancelOrder_RefundsCapturedPayment(t *testing.T) {
	f := newFixture(t)
	created, err := f.create(t, f.emp)
	require.NoError(t, err)
	payID := f.seedPayment(t, created.OrderID, domain.PaymentCompleted, 50000)

	res, err := f.svc.CancelOrder(context.Background(), interfaces.CancelOrderCommand{
		Credentials: f.creds(f.emp),
		OrderID:     created.OrderID,
		Reason:      "sick",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, res.Status)
	require.NotNil(t, res.Refund)
	assert.True(t, res.Refund.Succeeded)
	assert.True(t, res.Refund.Amount.Equal(decimal.NewFromInt(50000)))
	assert.Equal(t, "ref-1", f.bank.last.ProviderRef)

	pay, err := f.ms.Get(context.Background(), "Payments", payID)
	require.NoError(t, err)
	assert.Equal(t, string(domain.PaymentRefunded), pay.Fields.String("Status"))

	_, err = f.svc.CancelOrder(context.Background(), interfaces.CancelOrderCommand{
		Credentials: f.creds(f.emp),
		OrderID:     created.OrderID,
	})
	assert.True(t, domain.IsKind(err, domain.KindValidation))
	assert.Equal(t, 1, f.bank.calls)

	var actions []string
	for _, e := range f.audit.entries {
		actions = append(actions, e.Action)
	}
	assert.Equal(t, []string{domain.AuditCreated, domain.AuditRefund, domain.AuditCancelled}, actions)
}

func TestCancelOrder_RefundFailureStillCancels(t *testing.T) {
	f := newFixture(t)
	f.bank.err = errors.New("bank unreachable")
	created, err := f.create(t, f.emp)
	require.NoError(t, err)
	payID := f.seedPayment(t, created.OrderID, domain.PaymentCompleted, 50000)

	res, err := f.svc.CancelOrder(context.Background(), interfaces.CancelOrderCommand{
		Credentials: f.creds(f.emp),
		OrderID:     created.OrderID,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, res.Status)
	require.NotNil(t, res.Refund)
	assert.False(t, res.Refund.Succeeded)
	assert.Equal(t, "bank unreachable", res.Refund.Message)

	pay, err := f.ms.Get(context.Background(), "Payments", payID)
	require.NoError(t, err)
	assert.Equal(t, string(domain.PaymentCompleted), pay.Fields.String("Status"))
}

func TestCancelOrder_SkipsUncapturedPayment(t *testing.T) {
	f := newFixture(t)
	created, err := f.create(t, f.emp)
	require.NoError(t, err)
	f.seedPayment(t, created.OrderID, domain.PaymentPending, 50000)

	res, err := f.svc.CancelOrder(context.Background(), interfaces.CancelOrderCommand{
		Credentials: f.creds(f.hr),
		OrderID:     created.OrderID,
	})
	require.NoError(t, err)
	assert.Nil(t, res.Refund)
	assert.Zero(t, f.bank.calls)
}

func TestCancelOrder_OrphanedOrderClosedToOtherOrgs(t *testing.T) {
	f := newFixture(t)
	created, err := f.create(t, f.emp)
	require.NoError(t, err)
	f.seedPayment(t, created.OrderID, domain.PaymentCompleted, 50000)
	_, err = f.ms.Update(context.Background(), "Orders", []store.Record{{
		ID:     created.OrderID,
		Fields: store.Fields{"Employee": []string{"recDeletedEmployee"}},
	}})
	require.NoError(t, err)

	f.ms.Seed("Organizations", store.Fields{"Code": "OTHER", "Time Zone": "Asia/Ho_Chi_Minh", "Cutoff Time": "16:00"})
	foreignHR := f.ms.Seed("Employees", store.Fields{"Org Code": "OTHER", "Token": "other-hr", "Status": "Active", "Role": "HR"})

	_, err = f.svc.CancelOrder(context.Background(), interfaces.CancelOrderCommand{
		Credentials: interfaces.Credentials{EmployeeID: foreignHR, OrgCode: "OTHER", Token: "other-hr"},
		OrderID:     created.OrderID,
	})
	assert.True(t, domain.IsKind(err, domain.KindForbidden))

	_, err = f.svc.CancelOrder(context.Background(), interfaces.CancelOrderCommand{
		Credentials: f.creds(f.hr),
		OrderID:     created.OrderID,
	})
	assert.True(t, domain.IsKind(err, domain.KindForbidden))

	o, err := f.orders.FindByID(context.Background(), created.OrderID)
	require.NoError(t, err)
	assert.NotEqual(t, domain.StatusCancelled, o.Status)
	assert.Zero(t, f.bank.calls)
}

func TestGetOrder(t *testing.T) {
	f := newFixture(t)
	created, err := f.create(t, f.emp, func(c *interfaces.CreateOrderCommand) { c.Extras = f.extras[:1] })
	require.NoError(t, err)

	view, err := f.svc.GetOrder(context.Background(), interfaces.GetOrderCommand{Credentials: f.creds(f.emp), Date: deliveryDate})
	require.NoError(t, err)
	assert.Equal(t, created.OrderID, view.Order.ID)
	require.Len(t, view.MealBoxes, 1)
	assert.Equal(t, f.mainID, view.MealBoxes[0].MainDishID)
	assert.Len(t, view.OrderLines, 1)

	_, err = f.svc.GetOrder(context.Background(), interfaces.GetOrderCommand{Credentials: f.creds(f.peer), Date: deliveryDate})
	assert.True(t, domain.IsKind(err, domain.KindNotFound))

	view, err = f.svc.GetOrder(context.Background(), interfaces.GetOrderCommand{
		Credentials:   f.creds(f.hr),
		ForEmployeeID: f.emp,
		Date:          deliveryDate,
	})
	require.NoError(t, err)
	assert.Equal(t, created.OrderID, view.Order.ID)
}

func TestGetOrder_IgnoresManagerOrders(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.CreateManagerOrder(context.Background(), interfaces.ManagerOrderCommand{
		Credentials: f.creds(f.mgr),
		Date:        deliveryDate,
		Boxes:       []domain.BoxInput{{MainDishID: f.mainID, SideDishID: f.sideID, StandardQty: 4}},
	})
	require.NoError(t, err)

	_, err = f.svc.GetOrder(context.Background(), interfaces.GetOrderCommand{Credentials: f.creds(f.mgr), Date: deliveryDate})
	assert.True(t, domain.IsKind(err, domain.KindNotFound))

	own, err := f.create(t, f.mgr)
	require.NoError(t, err)

	view, err := f.svc.GetOrder(context.Background(), interfaces.GetOrderCommand{Credentials: f.creds(f.mgr), Date: deliveryDate})
	require.NoError(t, err)
	assert.Equal(t, own.OrderID, view.Order.ID)
	assert.Equal(t, domain.OrderTypeEmployee, view.Order.Type)
}

func TestListOrganizationOrders(t *testing.T) {
	f := newFixture(t)
	_, err := f.create(t, f.emp)
	require.NoError(t, err)
	_, err = f.create(t, f.peer)
	require.NoError(t, err)

	views, err := f.svc.ListOrganizationOrders(context.Background(), interfaces.GetOrderCommand{Credentials: f.creds(f.hr), Date: deliveryDate})
	require.NoError(t, err)
	assert.Len(t, views, 2)

	_, err = f.svc.ListOrganizationOrders(context.Background(), interfaces.GetOrderCommand{Credentials: f.creds(f.emp), Date: deliveryDate})
	assert.True(t, domain.IsKind(err, domain.KindForbidden))
}

func TestChunk(t *testing.T) {
	ids := make([]string, 120)
	parts := chunk(ids)
	require.Len(t, parts, 3)
	assert.Len(t, parts[0], 50)
	assert.Len(t, parts[2], 20)
	assert.Nil(t, chunk(nil))
}
