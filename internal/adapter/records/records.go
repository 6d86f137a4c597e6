// Package records maps domain entities onto tables of the record store. Every
// table and field name comes from config.Schema.
package records

import (
	"errors"

	"github.com/YelzhanWeb/lunchbox/internal/domain"
	"github.com/YelzhanWeb/lunchbox/internal/store"
)

// wrapErr turns store failures into domain errors. A missing record becomes
// NotFound, everything else is an upstream failure carrying the store message.
func wrapErr(op, what string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, store.ErrNotFound) {
		return domain.NotFoundError("%s not found", what)
	}
	if _, ok := domain.AsError(err); ok {
		return err
	}
	return domain.UpstreamError(op, err)
}

func dateOf(f store.Fields, field string) string {
	v := f.String(field)
	if len(v) > len(domain.DateLayout) {
		return v[:len(domain.DateLayout)]
	}
	return v
}

func link(id string) []string {
	if id == "" {
		return nil
	}
	return []string{id}
}

// byIDs orders records by the given ids and drops the ones not returned.
func byIDs(recs []store.Record, ids []string) []store.Record {
	index := make(map[string]store.Record, len(recs))
	for _, r := range recs {
		index[r.ID] = r
	}
	out := make([]store.Record, 0, len(ids))
	for _, id := range ids {
		if r, ok := index[id]; ok {
			out = append(out, r)
		}
	}
	return out
}
