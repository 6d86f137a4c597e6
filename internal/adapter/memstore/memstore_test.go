package memstore

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YelzhanWeb/lunchbox/internal/store"
)

func TestStore_CRUD(t *testing.T) {
	ctx := context.Background()
	s := New()

	created, err := s.Create(ctx, "Orders", []store.Record{{Fields: store.Fields{"Status": "New", "Employee": []string{"recE1"}}}})
	require.NoError(t, err)
	require.Len(t, created, 1)
	id := created[0].ID

	got, err := s.Get(ctx, "Orders", id)
	require.NoError(t, err)
	assert.Equal(t, "New", got.Fields.String("Status"))

	_, err = s.Update(ctx, "Orders", []store.Record{{ID: id, Fields: store.Fields{"Status": "Cancelled", "Employee": []string{}}}})
	require.NoError(t, err)

	got, err = s.Get(ctx, "Orders", id)
	require.NoError(t, err)
	assert.Equal(t, "Cancelled", got.Fields.String("Status"))
	assert.False(t, got.Fields.Has("Employee"))

	require.NoError(t, s.Delete(ctx, "Orders", []string{id}))
	_, err = s.Get(ctx, "Orders", id)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestStore_ListPaginatesAndFilters(t *testing.T) {
	ctx := context.Background()
	s := New()
	for i := 0; i < 5; i++ {
		s.Seed("Orders", store.Fields{"Delivery Date": "2025-06-01"})
	}
	s.Seed("Orders", store.Fields{"Delivery Date": "2025-06-02"})

	q := store.Query{Filter: store.DateIs("Delivery Date", "2025-06-01"), PageSize: 2}
	page, err := s.List(ctx, "Orders", q)
	require.NoError(t, err)
	assert.Len(t, page.Records, 2)
	assert.Equal(t, "2", page.Offset)

	all, err := store.ListAll(ctx, s, "Orders", q)
	require.NoError(t, err)
	assert.Len(t, all, 5)
}

func TestStore_StrictRejectsUnknownField(t *testing.T) {
	s := New()
	s.Strict("Orders", "Status")

	_, err := s.Create(context.Background(), "Orders", []store.Record{{Fields: store.Fields{"Meal Boxes": []string{"recX"}}}})
	require.Error(t, err)
	assert.True(t, store.IsUnknownField(err))
}

func TestStore_ReadLag(t *testing.T) {
	ctx := context.Background()
	s := New()
	id := s.Seed("Orders", store.Fields{"Status": "New"})
	s.SetReadLag(2)

	_, err := s.Update(ctx, "Orders", []store.Record{{ID: id, Fields: store.Fields{"Status": "Cancelled"}}})
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		got, err := s.Get(ctx, "Orders", id)
		require.NoError(t, err)
		assert.Equal(t, "New", got.Fields.String("Status"))
	}
	got, err := s.Get(ctx, "Orders", id)
	require.NoError(t, err)
	assert.Equal(t, "Cancelled", got.Fields.String("Status"))

	created, err := s.Create(ctx, "Orders", []store.Record{{Fields: store.Fields{"Status": "New"}}})
	require.NoError(t, err)
	_, err = s.Get(ctx, "Orders", created[0].ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestStore_FailFunc(t *testing.T) {
	s := New()
	boom := errors.New("boom")
	s.SetFailFunc(func(op, table string) error {
		if op == "create" && table == "Meal Boxes" {
			return boom
		}
		return nil
	})

	_, err := s.Create(context.Background(), "Meal Boxes", []store.Record{{Fields: store.Fields{"Quantity": 1}}})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, s.Calls("create", "Meal Boxes"))
}
