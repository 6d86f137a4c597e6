package records

import (
	"context"

	"github.com/YelzhanWeb/lunchbox/internal/config"
	"github.com/YelzhanWeb/lunchbox/internal/domain"
	"github.com/YelzhanWeb/lunchbox/internal/interfaces"
	"github.com/YelzhanWeb/lunchbox/internal/store"
)

type requestLogRepository struct {
	st     store.RecordStore
	schema config.RequestLogSchema
}

func NewRequestLogRepository(st store.RecordStore, schema config.RequestLogSchema) interfaces.RequestLogRepository {
	return &requestLogRepository{st: st, schema: schema}
}

// FindByKey returns the row for key, preferring one already linked to an
// order. Concurrent first attempts can each reserve a row for the same key.
func (r *requestLogRepository) FindByKey(ctx context.Context, key string) (*domain.RequestLogEntry, error) {
	recs, err := store.ListAll(ctx, r.st, r.schema.Table, store.Query{
		Filter: store.Eq(r.schema.Key, key),
	})
	if err != nil {
		return nil, wrapErr("failed to look up request log", "request log", err)
	}
	if len(recs) == 0 {
		return nil, nil
	}

	e := r.toDomain(recs[0])
	for _, rec := range recs[1:] {
		if e.OrderID() != "" {
			break
		}
		e = r.toDomain(rec)
	}
	return &e, nil
}

func (r *requestLogRepository) Reserve(ctx context.Context, key string) (*domain.RequestLogEntry, error) {
	created, err := r.st.Create(ctx, r.schema.Table, []store.Record{{
		Fields: store.Fields{r.schema.Key: key},
	}})
	if err != nil {
		return nil, wrapErr("failed to reserve request log", "request log", err)
	}
	if len(created) == 0 {
		return nil, domain.UpstreamError("failed to reserve request log", store.ErrNotFound)
	}
	e := r.toDomain(created[0])
	return &e, nil
}

func (r *requestLogRepository) Link(ctx context.Context, entryID, orderID string) error {
	_, err := r.st.Update(ctx, r.schema.Table, []store.Record{{
		ID:     entryID,
		Fields: store.Fields{r.schema.Order: link(orderID)},
	}})
	return wrapErr("failed to link request log", "request log", err)
}

func (r *requestLogRepository) toDomain(rec store.Record) domain.RequestLogEntry {
	return domain.RequestLogEntry{
		ID:       rec.ID,
		Key:      rec.Fields.String(r.schema.Key),
		OrderIDs: rec.Fields.StringList(r.schema.Order),
	}
}
