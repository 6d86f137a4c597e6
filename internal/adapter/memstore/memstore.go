// Package memstore is an in-process record store for local runs and tests.
// It evaluates the same filter expressions the REST client serializes and can
// simulate unknown fields, injected failures and read-after-write lag.
package memstore

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/YelzhanWeb/lunchbox/internal/store"
)

// FailFunc may return an error to make an operation fail before it applies.
type FailFunc func(op, table string) error

type Store struct {
	mu      sync.Mutex
	tables  map[string]map[string]store.Record
	order   map[string][]string
	strict  map[string]map[string]bool
	seq     int
	fail    FailFunc
	lag     int
	pending map[string]int
	prev    map[string]store.Record
	calls   map[string]int
	now     func() time.Time
}

func New() *Store {
	return &Store{
		tables:  make(map[string]map[string]store.Record),
		order:   make(map[string][]string),
		strict:  make(map[string]map[string]bool),
		pending: make(map[string]int),
		prev:    make(map[string]store.Record),
		calls:   make(map[string]int),
		now:     time.Now,
	}
}

var _ store.RecordStore = (*Store)(nil)

// Strict restricts writes to table to the listed fields. Writing any other
// field fails with *store.UnknownFieldError.
func (s *Store) Strict(table string, fields ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set := make(map[string]bool, len(fields))
	for _, f := range fields {
		set[f] = true
	}
	s.strict[table] = set
}

func (s *Store) SetFailFunc(fn FailFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = fn
}

// SetReadLag hides every subsequent write from the next n reads of the
// affected record: created records are missing, updated ones show their
// previous version.
func (s *Store) SetReadLag(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lag = n
}

// Calls returns how many times op ran against table, e.g. Calls("create", "Orders").
func (s *Store) Calls(op, table string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op+":"+table]
}

// Seed inserts a record bypassing strictness, failures and lag.
func (s *Store) Seed(table string, fields store.Fields) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.insert(table, fields)
	return rec.ID
}

// Records returns every visible and hidden record of table in insertion order.
func (s *Store) Records(table string) []store.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]store.Record, 0, len(s.order[table]))
	for _, id := range s.order[table] {
		out = append(out, clone(s.tables[table][id]))
	}
	return out
}

func (s *Store) List(_ context.Context, table string, q store.Query) (store.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.begin("list", table); err != nil {
		return store.Page{}, err
	}

	var matched []store.Record
	for _, id := range s.order[table] {
		rec, ok := s.read(table, id)
		if !ok {
			continue
		}
		if q.Filter != nil && !q.Filter.Match(rec.ID, rec.Fields) {
			continue
		}
		matched = append(matched, project(rec, q.Fields))
	}

	if len(q.Sort) > 0 {
		srt := q.Sort[0]
		slices.SortStableFunc(matched, func(a, b store.Record) int {
			x, y := a.Fields.String(srt.Field), b.Fields.String(srt.Field)
			c := 0
			if x < y {
				c = -1
			} else if x > y {
				c = 1
			}
			if srt.Direction == store.Desc {
				c = -c
			}
			return c
		})
	}

	start := 0
	if q.Offset != "" {
		n, err := strconv.Atoi(q.Offset)
		if err != nil || n < 0 || n > len(matched) {
			return store.Page{}, fmt.Errorf("invalid offset %q", q.Offset)
		}
		start = n
	}
	size := q.PageSize
	if size <= 0 || size > 100 {
		size = 100
	}
	end := min(start+size, len(matched))

	page := store.Page{Records: matched[start:end]}
	if end < len(matched) {
		page.Offset = strconv.Itoa(end)
	}
	return page, nil
}

func (s *Store) Get(_ context.Context, table, id string) (store.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.begin("get", table); err != nil {
		return store.Record{}, err
	}
	rec, ok := s.read(table, id)
	if !ok {
		return store.Record{}, store.ErrNotFound
	}
	return rec, nil
}

func (s *Store) Create(_ context.Context, table string, records []store.Record) ([]store.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.begin("create", table); err != nil {
		return nil, err
	}
	for _, r := range records {
		if err := s.checkFields(table, r.Fields); err != nil {
			return nil, err
		}
	}

	out := make([]store.Record, 0, len(records))
	for _, r := range records {
		rec := s.insert(table, r.Fields)
		if s.lag > 0 {
			s.pending[rec.ID] = s.lag
		}
		out = append(out, clone(rec))
	}
	return out, nil
}

func (s *Store) Update(_ context.Context, table string, records []store.Record) ([]store.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.begin("update", table); err != nil {
		return nil, err
	}
	for _, r := range records {
		if _, ok := s.tables[table][r.ID]; !ok {
			return nil, store.ErrNotFound
		}
		if err := s.checkFields(table, r.Fields); err != nil {
			return nil, err
		}
	}

	out := make([]store.Record, 0, len(records))
	for _, r := range records {
		cur := s.tables[table][r.ID]
		if s.lag > 0 {
			if _, hidden := s.pending[r.ID]; !hidden {
				s.prev[r.ID] = clone(cur)
			}
			s.pending[r.ID] = s.lag
		}
		next := clone(cur)
		for k, v := range r.Fields {
			if isEmpty(v) {
				delete(next.Fields, k)
				continue
			}
			next.Fields[k] = copyValue(v)
		}
		s.tables[table][r.ID] = next
		out = append(out, clone(next))
	}
	return out, nil
}

func (s *Store) Delete(_ context.Context, table string, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.begin("delete", table); err != nil {
		return err
	}
	for _, id := range ids {
		if _, ok := s.tables[table][id]; !ok {
			return store.ErrNotFound
		}
	}
	for _, id := range ids {
		delete(s.tables[table], id)
		delete(s.pending, id)
		delete(s.prev, id)
		s.order[table] = slices.DeleteFunc(s.order[table], func(x string) bool { return x == id })
	}
	return nil
}

func (s *Store) begin(op, table string) error {
	s.calls[op+":"+table]++
	if s.fail != nil {
		return s.fail(op, table)
	}
	return nil
}

// read returns the version of a record a reader observes and consumes one
// lagged read.
func (s *Store) read(table, id string) (store.Record, bool) {
	rec, ok := s.tables[table][id]
	if !ok {
		return store.Record{}, false
	}
	if n, hidden := s.pending[id]; hidden {
		if n <= 1 {
			delete(s.pending, id)
		} else {
			s.pending[id] = n - 1
		}
		prev, had := s.prev[id]
		if n <= 1 {
			delete(s.prev, id)
		}
		if !had {
			return store.Record{}, false
		}
		return clone(prev), true
	}
	return clone(rec), true
}

func (s *Store) insert(table string, fields store.Fields) store.Record {
	if s.tables[table] == nil {
		s.tables[table] = make(map[string]store.Record)
	}
	s.seq++
	rec := store.Record{
		ID:          fmt.Sprintf("rec%011d", s.seq),
		CreatedTime: s.now().UTC().Format(time.RFC3339),
		Fields:      store.Fields{},
	}
	for k, v := range fields {
		if !isEmpty(v) {
			rec.Fields[k] = copyValue(v)
		}
	}
	s.tables[table][rec.ID] = rec
	s.order[table] = append(s.order[table], rec.ID)
	return clone(rec)
}

func (s *Store) checkFields(table string, fields store.Fields) error {
	allowed, ok := s.strict[table]
	if !ok {
		return nil
	}
	for k := range fields {
		if !allowed[k] {
			return &store.UnknownFieldError{Table: table, Field: k}
		}
	}
	return nil
}

func project(rec store.Record, fields []string) store.Record {
	if len(fields) == 0 {
		return rec
	}
	out := store.Record{ID: rec.ID, CreatedTime: rec.CreatedTime, Fields: store.Fields{}}
	for _, f := range fields {
		if v, ok := rec.Fields[f]; ok {
			out.Fields[f] = v
		}
	}
	return out
}

func clone(rec store.Record) store.Record {
	out := store.Record{ID: rec.ID, CreatedTime: rec.CreatedTime, Fields: make(store.Fields, len(rec.Fields))}
	for k, v := range rec.Fields {
		out.Fields[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch x := v.(type) {
	case []string:
		return slices.Clone(x)
	case []any:
		return slices.Clone(x)
	default:
		return v
	}
}

func isEmpty(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case []string:
		return len(x) == 0
	case []any:
		return len(x) == 0
	default:
		return false
	}
}
