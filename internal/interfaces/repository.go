package interfaces

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/YelzhanWeb/lunchbox/internal/domain"
)

// Repositories over the record store (adapter/records). Lookups of a single
// record by key return a KindNotFound *domain.Error when it does not exist.
type EmployeeRepository interface {
	FindByID(ctx context.Context, id string) (*domain.Employee, error)
	ListByOrg(ctx context.Context, orgCode string) ([]domain.Employee, error)
}

type OrganizationRepository interface {
	FindByCode(ctx context.Context, code string) (*domain.Organization, error)
}

type MenuRepository interface {
	// ListPublished returns published items dated on date, or from date
	// onward when onward is set.
	ListPublished(ctx context.Context, date string, onward bool) ([]domain.MenuItem, error)
}

type OrderRepository interface {
	FindByID(ctx context.Context, id string) (*domain.Order, error)
	// ListActiveForDate scans every page of active orders on date. An empty
	// orderType matches all types.
	ListActiveForDate(ctx context.Context, date string, orderType domain.OrderType) ([]domain.Order, error)
	Create(ctx context.Context, order *domain.Order) error
	SetStatus(ctx context.Context, id string, status domain.Status) error
	SetPayableAmount(ctx context.Context, id string, amount decimal.Decimal) error
	// LinkChildren points the header's link fields at the given children,
	// trying each configured candidate field name in order.
	LinkChildren(ctx context.Context, orderID string, mealBoxIDs, orderLineIDs []string) (domain.WriteReport, error)
	ClearChildren(ctx context.Context, orderID string) (domain.WriteReport, error)
	Delete(ctx context.Context, id string) error
}

type ChildRepository interface {
	CreateMealBoxes(ctx context.Context, specs []domain.MealBoxSpec) ([]domain.MealBox, error)
	CreateOrderLines(ctx context.Context, specs []domain.LineSpec) ([]domain.OrderLine, error)
	FindMealBoxes(ctx context.Context, ids []string) ([]domain.MealBox, error)
	FindOrderLines(ctx context.Context, ids []string) ([]domain.OrderLine, error)
	DeleteMealBoxes(ctx context.Context, ids []string) error
	DeleteOrderLines(ctx context.Context, ids []string) error
}

type RequestLogRepository interface {
	// FindByKey returns nil without error when no entry exists.
	FindByKey(ctx context.Context, key string) (*domain.RequestLogEntry, error)
	Reserve(ctx context.Context, key string) (*domain.RequestLogEntry, error)
	Link(ctx context.Context, entryID, orderID string) error
}

type PaymentRepository interface {
	FindByID(ctx context.Context, id string) (*domain.Payment, error)
	RecordRefund(ctx context.Context, id string, refunded decimal.Decimal, status domain.PaymentStatus) error
	FindBankConfig(ctx context.Context, id string) (*domain.BankConfig, error)
}

// AuditRepository is the order journal (adapter/postgres).
type AuditRepository interface {
	Append(ctx context.Context, entry domain.AuditEntry) error
	History(ctx context.Context, orderID string) ([]domain.AuditEntry, error)
}
