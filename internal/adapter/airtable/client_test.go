package airtable

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YelzhanWeb/lunchbox/internal/adapter/logger"
	"github.com/YelzhanWeb/lunchbox/internal/config"
	"github.com/YelzhanWeb/lunchbox/internal/store"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(config.StoreConfig{
		BaseURL: srv.URL,
		BaseID:  "appTest",
		APIKey:  "pat-test",
		Timeout: 5 * time.Second,
	}, logger.Nop(), WithRetry(3, time.Millisecond))
}

func TestClient_ListSendsQuery(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/appTest/Meal Boxes", r.URL.Path)
		assert.Equal(t, "Bearer pat-test", r.Header.Get("Authorization"))

		q := r.URL.Query()
		assert.Equal(t, `{Status}='O''Neil'`, q.Get("filterByFormula"))
		assert.Equal(t, []string{"Status", "Quantity"}, q["fields[]"])
		assert.Equal(t, "50", q.Get("pageSize"))
		assert.Equal(t, "itr1", q.Get("offset"))
		assert.Equal(t, "Status", q.Get("sort[0][field]"))
		assert.Equal(t, "desc", q.Get("sort[0][direction]"))

		_ = json.NewEncoder(w).Encode(map[string]any{
			"records": []map[string]any{{"id": "rec1", "fields": map[string]any{"Status": "New", "Quantity": 2}}},
			"offset":  "itr2",
		})
	})

	page, err := c.List(context.Background(), "Meal Boxes", store.Query{
		Filter:   store.Eq("Status", "O'Neil"),
		Fields:   []string{"Status", "Quantity"},
		Sort:     []store.Sort{{Field: "Status", Direction: store.Desc}},
		PageSize: 50,
		Offset:   "itr1",
	})
	require.NoError(t, err)
	require.Len(t, page.Records, 1)
	assert.Equal(t, "rec1", page.Records[0].ID)
	assert.Equal(t, 2, page.Records[0].Fields.Int("Quantity"))
	assert.Equal(t, "itr2", page.Offset)
}

func TestClient_CreateBatchesByTen(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, http.MethodPost, r.Method)

		var body recordsBody
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &body))
		assert.True(t, body.Typecast)
		assert.LessOrEqual(t, len(body.Records), maxBatch)

		for i := range body.Records {
			body.Records[i].ID = "rec" + body.Records[i].Fields.String("n")
		}
		_ = json.NewEncoder(w).Encode(body)
	})

	in := make([]store.Record, 12)
	for i := range in {
		in[i] = store.Record{Fields: store.Fields{"n": string(rune('a' + i))}}
	}
	out, err := c.Create(context.Background(), "Order Lines", in)
	require.NoError(t, err)
	assert.Len(t, out, 12)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, "reca", out[0].ID)
}

func TestClient_UnknownFieldError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"error":{"type":"UNKNOWN_FIELD_NAME","message":"Unknown field name: \"Meal Boxes\""}}`))
	})

	_, err := c.Update(context.Background(), "Orders", []store.Record{{ID: "rec1", Fields: store.Fields{"Meal Boxes": []string{"recX"}}}})
	require.Error(t, err)
	assert.True(t, store.IsUnknownField(err))

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 422, apiErr.StatusCode)
}

func TestClient_GetNotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"NOT_FOUND"}`))
	})

	_, err := c.Get(context.Background(), "Employees", "recMissing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestClient_RetriesRateLimit(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":{"type":"RATE_LIMIT_REACHED","message":"slow down"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"id":"rec1","fields":{"Code":"ACME"}}`))
	})

	rec, err := c.Get(context.Background(), "Organizations", "rec1")
	require.NoError(t, err)
	assert.Equal(t, "ACME", rec.Fields.String("Code"))
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_DoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"error":{"type":"INVALID_VALUE_FOR_COLUMN","message":"bad value"}}`))
	})

	_, err := c.Create(context.Background(), "Orders", []store.Record{{Fields: store.Fields{"Status": 1}}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "INVALID_VALUE_FOR_COLUMN")
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_ServerErrorRetriedExceptOnCreate(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":{"type":"SERVICE_UNAVAILABLE","message":"try later"}}`))
	})

	_, err := c.Create(context.Background(), "Orders", []store.Record{{Fields: store.Fields{"Status": "New"}}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SERVICE_UNAVAILABLE")
	assert.Equal(t, int32(1), calls.Load())

	calls.Store(0)
	_, err = c.Get(context.Background(), "Orders", "rec1")
	require.Error(t, err)
	assert.Equal(t, int32(4), calls.Load())
}

func TestClient_DeleteSendsIDs(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, []string{"recA", "recB"}, r.URL.Query()["records[]"])
		_, _ = w.Write([]byte(`{"records":[{"id":"recA","deleted":true},{"id":"recB","deleted":true}]}`))
	})

	require.NoError(t, c.Delete(context.Background(), "Order Lines", []string{"recA", "recB"}))
}
