package interfaces

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/YelzhanWeb/lunchbox/internal/domain"
)

type OrderService interface {
	CreateOrder(ctx context.Context, cmd CreateOrderCommand) (*CreateOrderResult, error)
	CreateManagerOrder(ctx context.Context, cmd ManagerOrderCommand) (*CreateOrderResult, error)
	UpdateOrder(ctx context.Context, cmd UpdateOrderCommand) (*UpdateOrderResult, error)
	CancelOrder(ctx context.Context, cmd CancelOrderCommand) (*CancelOrderResult, error)
	GetOrder(ctx context.Context, cmd GetOrderCommand) (*OrderView, error)
	ListOrganizationOrders(ctx context.Context, cmd GetOrderCommand) ([]OrderView, error)
}

type MenuService interface {
	MenuForDate(ctx context.Context, creds Credentials, date string) ([]domain.MenuItem, error)
	AvailableDates(ctx context.Context, creds Credentials) ([]DateWindow, error)
}

type KitchenService interface {
	Summary(ctx context.Context, date string) (*KitchenSummary, error)
}

type TrackingService interface {
	GetOrderHistory(ctx context.Context, creds Credentials, orderID string) ([]domain.AuditEntry, error)
	GetPaymentStatus(ctx context.Context, creds Credentials, paymentID string) (*domain.Payment, error)
}

// Credentials identify the caller of every employee-facing operation.
type Credentials struct {
	EmployeeID string
	OrgCode    string
	Token      string
	RequestID  string
}

type CreateOrderCommand struct {
	Credentials
	ForEmployeeID string
	Date          string
	MainID        string
	SideID        string
	Extras        []string
	ClientToken   string
	PaymentMethod string
}

type ManagerOrderCommand struct {
	Credentials
	Date          string
	Boxes         []domain.BoxInput
	Extras        []domain.LineSpec
	ClientToken   string
	PaymentMethod string
}

type CreateOrderResult struct {
	OrderID      string
	Status       domain.Status
	Idempotent   bool
	Duplicate    bool
	MealBoxIDs   []string
	OrderLineIDs []string
	Window       domain.Window
	Report       domain.WriteReport
}

// UpdateOrderCommand replaces an order's children. Boxes or Extras select the
// manager shape; otherwise MainID, SideID and ExtraIDs form one meal box.
type UpdateOrderCommand struct {
	Credentials
	OrderID    string
	MainID     string
	SideID     string
	ExtraIDs   []string
	Boxes      []domain.BoxInput
	Extras     []domain.LineSpec
	HardDelete bool
}

type UpdateOrderResult struct {
	OrderID             string
	MealBoxIDs          []string
	OrderLineIDs        []string
	DeletedMealBoxIDs   []string
	DeletedOrderLineIDs []string
	Window              domain.Window
	Report              domain.WriteReport
}

type CancelOrderCommand struct {
	Credentials
	OrderID string
	Reason  string
}

type CancelOrderResult struct {
	OrderID string
	Status  domain.Status
	Refund  *RefundOutcome
}

type RefundOutcome struct {
	PaymentID string
	Amount    decimal.Decimal
	Succeeded bool
	Message   string
}

type GetOrderCommand struct {
	Credentials
	ForEmployeeID string
	Date          string
}

// OrderView is an order header with its resolved children.
type OrderView struct {
	Order      domain.Order
	MealBoxes  []domain.MealBox
	OrderLines []domain.OrderLine
}

type DateWindow struct {
	Date   string
	Window domain.Window
}

type KitchenSummary struct {
	Date        string
	Orders      int
	MealBoxes   int
	Dishes      []DishCount
	GeneratedAt time.Time
}

type DishCount struct {
	ItemID   string
	Name     string
	Category string
	Quantity int
}

// BankGateway issues refunds against a payment provider.
type BankGateway interface {
	Refund(ctx context.Context, bank domain.BankConfig, req RefundRequest) (*RefundResponse, error)
}

type RefundRequest struct {
	PaymentID   string
	ProviderRef string
	Amount      decimal.Decimal
	Reason      string
}

type RefundResponse struct {
	Success bool
	Message string
}
