package records

import (
	"context"

	"github.com/YelzhanWeb/lunchbox/internal/config"
	"github.com/YelzhanWeb/lunchbox/internal/domain"
	"github.com/YelzhanWeb/lunchbox/internal/interfaces"
	"github.com/YelzhanWeb/lunchbox/internal/store"
)

type menuRepository struct {
	st     store.RecordStore
	schema config.MenuSchema
}

func NewMenuRepository(st store.RecordStore, schema config.MenuSchema) interfaces.MenuRepository {
	return &menuRepository{st: st, schema: schema}
}

func (r *menuRepository) ListPublished(ctx context.Context, date string, onward bool) ([]domain.MenuItem, error) {
	dateFilter := store.DateIs(r.schema.Date, date)
	if onward {
		dateFilter = store.DateOnOrAfter(r.schema.Date, date)
	}
	recs, err := store.ListAll(ctx, r.st, r.schema.Table, store.Query{
		Filter: store.And(store.IsTrue(r.schema.Published), dateFilter),
		Sort:   []store.Sort{{Field: r.schema.Date, Direction: store.Asc}},
	})
	if err != nil {
		return nil, wrapErr("failed to load menu", "menu", err)
	}

	out := make([]domain.MenuItem, 0, len(recs))
	for _, rec := range recs {
		f := rec.Fields
		out = append(out, domain.MenuItem{
			ID:        rec.ID,
			Date:      dateOf(f, r.schema.Date),
			Name:      f.String(r.schema.Name),
			Category:  f.String(r.schema.Category),
			Published: f.Bool(r.schema.Published),
			Access:    f.String(r.schema.Access),
			Price:     f.Decimal(r.schema.Price),
		})
	}
	return out, nil
}
