package records

import (
	"context"
	"strings"

	"github.com/YelzhanWeb/lunchbox/internal/config"
	"github.com/YelzhanWeb/lunchbox/internal/domain"
	"github.com/YelzhanWeb/lunchbox/internal/interfaces"
	"github.com/YelzhanWeb/lunchbox/internal/store"
)

type organizationRepository struct {
	st     store.RecordStore
	schema config.OrganizationSchema
}

func NewOrganizationRepository(st store.RecordStore, schema config.OrganizationSchema) interfaces.OrganizationRepository {
	return &organizationRepository{st: st, schema: schema}
}

func (r *organizationRepository) FindByCode(ctx context.Context, code string) (*domain.Organization, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, domain.ValidationError("org is required")
	}
	rec, err := store.First(ctx, r.st, r.schema.Table, store.Query{Filter: store.Eq(r.schema.Code, code)})
	if err != nil {
		return nil, wrapErr("failed to load organization", "organization "+code, err)
	}
	f := rec.Fields
	return &domain.Organization{
		ID:               rec.ID,
		Code:             f.String(r.schema.Code),
		Name:             f.String(r.schema.Name),
		TimeZone:         f.String(r.schema.TimeZone),
		Cutoff:           f.String(r.schema.Cutoff),
		PrivilegedCutoff: f.String(r.schema.PrivilegedCutoff),
		ContractType:     f.String(r.schema.ContractType),
		StandardPrice:    f.Decimal(r.schema.StandardPrice),
		UpsizedPrice:     f.Decimal(r.schema.UpsizedPrice),
		BankConfigID:     f.First(r.schema.BankConfig),
	}, nil
}
