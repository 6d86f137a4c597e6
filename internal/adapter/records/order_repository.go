package records

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/YelzhanWeb/lunchbox/internal/config"
	"github.com/YelzhanWeb/lunchbox/internal/domain"
	"github.com/YelzhanWeb/lunchbox/internal/interfaces"
	"github.com/YelzhanWeb/lunchbox/internal/store"
)

type orderRepository struct {
	st       store.RecordStore
	schema   config.OrderSchema
	pageSize int
}

func NewOrderRepository(st store.RecordStore, schema config.OrderSchema, pageSize int) interfaces.OrderRepository {
	return &orderRepository{st: st, schema: schema, pageSize: pageSize}
}

func (r *orderRepository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	if id == "" {
		return nil, domain.ValidationError("orderId is required")
	}
	rec, err := store.First(ctx, r.st, r.schema.Table, store.Query{Filter: store.RecordIDIn(id)})
	if err != nil {
		return nil, wrapErr("failed to load order", "order", err)
	}
	o := r.toDomain(rec)
	return &o, nil
}

// ListActiveForDate walks every page. Link fields cannot be matched by record
// id inside a formula, so callers filter by employee in memory.
func (r *orderRepository) ListActiveForDate(ctx context.Context, date string, orderType domain.OrderType) ([]domain.Order, error) {
	terms := []store.Expr{
		store.DateIs(r.schema.DeliveryDate, date),
		store.NotEq(r.schema.Status, string(domain.StatusCancelled)),
		store.NotEq(r.schema.Status, string(domain.StatusDeleted)),
	}
	if orderType != "" {
		terms = append(terms, store.Eq(r.schema.OrderType, string(orderType)))
	}

	recs, err := store.ListAll(ctx, r.st, r.schema.Table, store.Query{
		Filter:   store.And(terms...),
		PageSize: r.pageSize,
	})
	if err != nil {
		return nil, wrapErr("failed to list orders", "orders", err)
	}

	out := make([]domain.Order, 0, len(recs))
	for _, rec := range recs {
		out = append(out, r.toDomain(rec))
	}
	return out, nil
}

func (r *orderRepository) Create(ctx context.Context, order *domain.Order) error {
	fields := store.Fields{
		r.schema.DeliveryDate: order.DeliveryDate,
		r.schema.OrderType:    string(order.Type),
		r.schema.Status:       string(order.Status),
		r.schema.Employee:     order.EmployeeIDs,
	}
	if len(order.PlacedByIDs) > 0 {
		fields[r.schema.PlacedBy] = order.PlacedByIDs
	}
	if order.PaymentMethod != "" {
		fields[r.schema.PaymentMethod] = order.PaymentMethod
	}
	if !order.PayableAmount.IsZero() {
		fields[r.schema.PayableAmount] = order.PayableAmount.InexactFloat64()
	}

	created, err := r.st.Create(ctx, r.schema.Table, []store.Record{{Fields: fields}})
	if err != nil {
		return wrapErr("failed to create order", "order", err)
	}
	if len(created) == 0 {
		return domain.UpstreamError("failed to create order", store.ErrNotFound)
	}
	order.ID = created[0].ID
	return nil
}

func (r *orderRepository) SetStatus(ctx context.Context, id string, status domain.Status) error {
	_, err := r.st.Update(ctx, r.schema.Table, []store.Record{{
		ID:     id,
		Fields: store.Fields{r.schema.Status: string(status)},
	}})
	return wrapErr("failed to update order status", "order", err)
}

func (r *orderRepository) SetPayableAmount(ctx context.Context, id string, amount decimal.Decimal) error {
	_, err := r.st.Update(ctx, r.schema.Table, []store.Record{{
		ID:     id,
		Fields: store.Fields{r.schema.PayableAmount: amount.InexactFloat64()},
	}})
	return wrapErr("failed to update payable amount", "order", err)
}

func (r *orderRepository) LinkChildren(ctx context.Context, orderID string, mealBoxIDs, orderLineIDs []string) (domain.WriteReport, error) {
	var report domain.WriteReport
	if len(mealBoxIDs) > 0 {
		if err := r.writeLink(ctx, &report, orderID, r.schema.MealBoxLinkCandidates, mealBoxIDs); err != nil {
			return report, err
		}
	}
	if len(orderLineIDs) > 0 {
		if err := r.writeLink(ctx, &report, orderID, r.schema.OrderLineLinkCandidates, orderLineIDs); err != nil {
			return report, err
		}
	}
	return report, nil
}

func (r *orderRepository) ClearChildren(ctx context.Context, orderID string) (domain.WriteReport, error) {
	var report domain.WriteReport
	if err := r.writeLink(ctx, &report, orderID, r.schema.MealBoxLinkCandidates, []string{}); err != nil {
		return report, err
	}
	if err := r.writeLink(ctx, &report, orderID, r.schema.OrderLineLinkCandidates, []string{}); err != nil {
		return report, err
	}
	return report, nil
}

// writeLink tries each candidate field name in order and stops at the first
// one the table accepts. Only unknown-field rejections move on to the next
// candidate; any other failure ends the write.
func (r *orderRepository) writeLink(ctx context.Context, report *domain.WriteReport, orderID string, candidates, ids []string) error {
	for _, field := range candidates {
		_, err := r.st.Update(ctx, r.schema.Table, []store.Record{{
			ID:     orderID,
			Fields: store.Fields{field: ids},
		}})
		switch {
		case err == nil:
			report.Add(domain.FieldWrite{Table: r.schema.Table, Field: field, Outcome: domain.FieldApplied})
			return nil
		case store.IsUnknownField(err):
			report.Add(domain.FieldWrite{
				Table:   r.schema.Table,
				Field:   field,
				Outcome: domain.FieldSkippedUnknownField,
				Error:   err.Error(),
			})
		default:
			report.Add(domain.FieldWrite{
				Table:   r.schema.Table,
				Field:   field,
				Outcome: domain.FieldFailed,
				Error:   err.Error(),
			})
			return wrapErr("failed to link order children", "order", err)
		}
	}
	return domain.UpstreamError("failed to link order children",
		&store.UnknownFieldError{Table: r.schema.Table, Field: strings.Join(candidates, ", ")})
}

func (r *orderRepository) Delete(ctx context.Context, id string) error {
	return wrapErr("failed to delete order", "order", r.st.Delete(ctx, r.schema.Table, []string{id}))
}

func (r *orderRepository) toDomain(rec store.Record) domain.Order {
	f := rec.Fields
	return domain.Order{
		ID:            rec.ID,
		DeliveryDate:  dateOf(f, r.schema.DeliveryDate),
		Type:          domain.OrderType(f.String(r.schema.OrderType)),
		Status:        domain.Status(f.String(r.schema.Status)),
		EmployeeIDs:   f.StringList(r.schema.Employee),
		PlacedByIDs:   f.StringList(r.schema.PlacedBy),
		MealBoxIDs:    firstList(f, r.schema.MealBoxLinkCandidates),
		OrderLineIDs:  firstList(f, r.schema.OrderLineLinkCandidates),
		PaymentMethod: f.String(r.schema.PaymentMethod),
		PayableAmount: f.Decimal(r.schema.PayableAmount),
		PaymentIDs:    f.StringList(r.schema.Payment),
	}
}

// firstList reads the first candidate field that holds a value.
func firstList(f store.Fields, candidates []string) []string {
	for _, c := range candidates {
		if f.Has(c) {
			return f.StringList(c)
		}
	}
	return nil
}
