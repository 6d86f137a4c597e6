package records

import (
	"context"

	"github.com/YelzhanWeb/lunchbox/internal/config"
	"github.com/YelzhanWeb/lunchbox/internal/domain"
	"github.com/YelzhanWeb/lunchbox/internal/interfaces"
	"github.com/YelzhanWeb/lunchbox/internal/store"
)

type childRepository struct {
	st    store.RecordStore
	boxes config.MealBoxSchema
	lines config.OrderLineSchema
}

func NewChildRepository(st store.RecordStore, boxes config.MealBoxSchema, lines config.OrderLineSchema) interfaces.ChildRepository {
	return &childRepository{st: st, boxes: boxes, lines: lines}
}

func (r *childRepository) CreateMealBoxes(ctx context.Context, specs []domain.MealBoxSpec) ([]domain.MealBox, error) {
	if len(specs) == 0 {
		return nil, nil
	}
	recs := make([]store.Record, 0, len(specs))
	for _, s := range specs {
		fields := store.Fields{
			r.boxes.MainDish: link(s.MainDishID),
			r.boxes.Quantity: s.Quantity,
		}
		if s.SideDishID != "" {
			fields[r.boxes.SideDish] = link(s.SideDishID)
		}
		if s.StandardQty > 0 {
			fields[r.boxes.StandardQty] = s.StandardQty
		}
		if s.UpsizedQty > 0 {
			fields[r.boxes.UpsizedQty] = s.UpsizedQty
		}
		recs = append(recs, store.Record{Fields: fields})
	}

	created, err := r.st.Create(ctx, r.boxes.Table, recs)
	if err != nil {
		return nil, wrapErr("failed to create meal boxes", "meal box", err)
	}
	out := make([]domain.MealBox, 0, len(created))
	for _, rec := range created {
		out = append(out, r.mealBox(rec))
	}
	return out, nil
}

func (r *childRepository) CreateOrderLines(ctx context.Context, specs []domain.LineSpec) ([]domain.OrderLine, error) {
	if len(specs) == 0 {
		return nil, nil
	}
	recs := make([]store.Record, 0, len(specs))
	for _, s := range specs {
		recs = append(recs, store.Record{Fields: store.Fields{
			r.lines.Item:     link(s.ItemID),
			r.lines.Quantity: s.Quantity,
		}})
	}

	created, err := r.st.Create(ctx, r.lines.Table, recs)
	if err != nil {
		return nil, wrapErr("failed to create order lines", "order line", err)
	}
	out := make([]domain.OrderLine, 0, len(created))
	for _, rec := range created {
		out = append(out, r.orderLine(rec))
	}
	return out, nil
}

// FindMealBoxes returns the visible boxes among ids, in the order of ids.
func (r *childRepository) FindMealBoxes(ctx context.Context, ids []string) ([]domain.MealBox, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	recs, err := store.ListAll(ctx, r.st, r.boxes.Table, store.Query{Filter: store.RecordIDIn(ids...)})
	if err != nil {
		return nil, wrapErr("failed to load meal boxes", "meal boxes", err)
	}
	recs = byIDs(recs, ids)
	out := make([]domain.MealBox, 0, len(recs))
	for _, rec := range recs {
		out = append(out, r.mealBox(rec))
	}
	return out, nil
}

func (r *childRepository) FindOrderLines(ctx context.Context, ids []string) ([]domain.OrderLine, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	recs, err := store.ListAll(ctx, r.st, r.lines.Table, store.Query{Filter: store.RecordIDIn(ids...)})
	if err != nil {
		return nil, wrapErr("failed to load order lines", "order lines", err)
	}
	recs = byIDs(recs, ids)
	out := make([]domain.OrderLine, 0, len(recs))
	for _, rec := range recs {
		out = append(out, r.orderLine(rec))
	}
	return out, nil
}

func (r *childRepository) DeleteMealBoxes(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return wrapErr("failed to delete meal boxes", "meal boxes", r.st.Delete(ctx, r.boxes.Table, ids))
}

func (r *childRepository) DeleteOrderLines(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return wrapErr("failed to delete order lines", "order lines", r.st.Delete(ctx, r.lines.Table, ids))
}

func (r *childRepository) mealBox(rec store.Record) domain.MealBox {
	f := rec.Fields
	return domain.MealBox{
		ID:          rec.ID,
		MainDishID:  f.First(r.boxes.MainDish),
		SideDishID:  f.First(r.boxes.SideDish),
		Quantity:    f.Int(r.boxes.Quantity),
		StandardQty: f.Int(r.boxes.StandardQty),
		UpsizedQty:  f.Int(r.boxes.UpsizedQty),
	}
}

func (r *childRepository) orderLine(rec store.Record) domain.OrderLine {
	return domain.OrderLine{
		ID:       rec.ID,
		ItemID:   rec.Fields.First(r.lines.Item),
		Quantity: rec.Fields.Int(r.lines.Quantity),
	}
}
