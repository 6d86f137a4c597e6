package domain

import (
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the wire and storage layout of delivery dates.
const DateLayout = "2006-01-02"

// Order is the header of one ordering transaction. It owns its meal boxes and
// order lines through the two link fields.
type Order struct {
	ID            string
	DeliveryDate  string
	Type          OrderType
	Status        Status
	EmployeeIDs   []string
	PlacedByIDs   []string
	MealBoxIDs    []string
	OrderLineIDs  []string
	PaymentMethod string
	PayableAmount decimal.Decimal
	PaymentIDs    []string
}

// IsActive reports whether the order still counts toward the
// one-order-per-employee-per-day rule.
func (o Order) IsActive() bool {
	return o.Status != StatusCancelled && o.Status != StatusDeleted
}

func (o Order) OwnedBy(employeeID string) bool {
	return slices.Contains(o.EmployeeIDs, employeeID)
}

// OwnerID returns the first linked employee.
func (o Order) OwnerID() string {
	if len(o.EmployeeIDs) == 0 {
		return ""
	}
	return o.EmployeeIDs[0]
}

type MealBox struct {
	ID          string
	MainDishID  string
	SideDishID  string
	Quantity    int
	StandardQty int
	UpsizedQty  int
}

type OrderLine struct {
	ID       string
	ItemID   string
	Quantity int
}

// RequestLogEntry maps an idempotency key to the order it produced.
type RequestLogEntry struct {
	ID       string
	Key      string
	OrderIDs []string
}

func (e RequestLogEntry) OrderID() string {
	if len(e.OrderIDs) == 0 {
		return ""
	}
	return e.OrderIDs[0]
}

type Payment struct {
	ID             string
	Status         PaymentStatus
	Amount         decimal.Decimal
	RefundedAmount decimal.Decimal
	BankConfigIDs  []string
	ProviderRef    string
	OrderIDs       []string
}

// Remaining is the captured amount not yet refunded.
func (p Payment) Remaining() decimal.Decimal {
	r := p.Amount.Sub(p.RefundedAmount)
	if r.IsNegative() {
		return decimal.Zero
	}
	return r
}

type BankConfig struct {
	ID         string
	Code       string
	MerchantID string
	Endpoint   string
}

// IdempotencyKey composes the request log key for a creation request.
func IdempotencyKey(date, targetEmployeeID, clientToken string) string {
	return date + "|" + targetEmployeeID + "|" + clientToken
}

// ParseDate validates a delivery date in DateLayout.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ValidationError("date is required")
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, ValidationError("invalid date %q, expected YYYY-MM-DD", s)
	}
	return t, nil
}
