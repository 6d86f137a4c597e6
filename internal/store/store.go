package store

import (
	"context"
	"errors"
	"fmt"
)

type SortDirection string

const (
	Asc  SortDirection = "asc"
	Desc SortDirection = "desc"
)

type Sort struct {
	Field     string
	Direction SortDirection
}

// Query selects records of one table. A nil Filter matches every record.
type Query struct {
	Filter   Expr
	Fields   []string
	Sort     []Sort
	PageSize int
	Offset   string
}

type Page struct {
	Records []Record
	// Offset is non-empty when more records follow.
	Offset string
}

// RecordStore is the external tabular store. Update merges the given fields
// into existing records and leaves the others untouched.
type RecordStore interface {
	List(ctx context.Context, table string, q Query) (Page, error)
	Get(ctx context.Context, table, id string) (Record, error)
	Create(ctx context.Context, table string, records []Record) ([]Record, error)
	Update(ctx context.Context, table string, records []Record) ([]Record, error)
	Delete(ctx context.Context, table string, ids []string) error
}

var ErrNotFound = errors.New("record not found")

// UnknownFieldError reports a write that named a field the table lacks.
type UnknownFieldError struct {
	Table string
	Field string
}

func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf("unknown field name %q in table %q", e.Field, e.Table)
}

func IsUnknownField(err error) bool {
	var ufe *UnknownFieldError
	return errors.As(err, &ufe)
}

// ListAll follows offsets until the store reports no more pages.
func ListAll(ctx context.Context, s RecordStore, table string, q Query) ([]Record, error) {
	var all []Record
	for {
		page, err := s.List(ctx, table, q)
		if err != nil {
			return nil, err
		}
		all = append(all, page.Records...)
		if page.Offset == "" {
			return all, nil
		}
		q.Offset = page.Offset
	}
}

// First returns the first record matching q, or ErrNotFound.
func First(ctx context.Context, s RecordStore, table string, q Query) (Record, error) {
	q.PageSize = 1
	page, err := s.List(ctx, table, q)
	if err != nil {
		return Record{}, err
	}
	if len(page.Records) == 0 {
		return Record{}, ErrNotFound
	}
	return page.Records[0], nil
}
