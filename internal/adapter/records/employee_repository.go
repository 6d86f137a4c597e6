package records

import (
	"context"

	"github.com/YelzhanWeb/lunchbox/internal/config"
	"github.com/YelzhanWeb/lunchbox/internal/domain"
	"github.com/YelzhanWeb/lunchbox/internal/interfaces"
	"github.com/YelzhanWeb/lunchbox/internal/store"
)

type employeeRepository struct {
	st     store.RecordStore
	schema config.EmployeeSchema
}

func NewEmployeeRepository(st store.RecordStore, schema config.EmployeeSchema) interfaces.EmployeeRepository {
	return &employeeRepository{st: st, schema: schema}
}

// FindByID looks the employee up through a record id filter, so a crafted id
// can only ever match a record with exactly that id.
func (r *employeeRepository) FindByID(ctx context.Context, id string) (*domain.Employee, error) {
	if id == "" {
		return nil, domain.ValidationError("employeeId is required")
	}
	rec, err := store.First(ctx, r.st, r.schema.Table, store.Query{Filter: store.RecordIDIn(id)})
	if err != nil {
		return nil, wrapErr("failed to load employee", "employee", err)
	}
	emp := r.toDomain(rec)
	return &emp, nil
}

func (r *employeeRepository) ListByOrg(ctx context.Context, orgCode string) ([]domain.Employee, error) {
	recs, err := store.ListAll(ctx, r.st, r.schema.Table, store.Query{
		Filter: store.Eq(r.schema.OrgCode, orgCode),
	})
	if err != nil {
		return nil, wrapErr("failed to list employees", "employees", err)
	}
	out := make([]domain.Employee, 0, len(recs))
	for _, rec := range recs {
		out = append(out, r.toDomain(rec))
	}
	return out, nil
}

func (r *employeeRepository) toDomain(rec store.Record) domain.Employee {
	return domain.Employee{
		ID:      rec.ID,
		OrgCode: rec.Fields.First(r.schema.OrgCode),
		Token:   rec.Fields.String(r.schema.Token),
		Status:  rec.Fields.String(r.schema.Status),
		Role:    rec.Fields.String(r.schema.Role),
		Name:    rec.Fields.String(r.schema.Name),
		Email:   rec.Fields.String(r.schema.Email),
	}
}
