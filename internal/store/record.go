// Package store describes the external tabular record store: records as
// attribute maps, a filter expression tree and the four record operations.
package store

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

type Record struct {
	ID          string `json:"id,omitempty"`
	CreatedTime string `json:"createdTime,omitempty"`
	Fields      Fields `json:"fields"`
}

// Fields is the attribute map of a record, keyed by field name.
type Fields map[string]any

func (f Fields) String(name string) string {
	return valueString(f[name])
}

// StringList reads link, lookup and multi-select fields. A scalar becomes a
// one-element list; empty values become nil.
func (f Fields) StringList(name string) []string {
	switch v := f[name].(type) {
	case nil:
		return nil
	case []string:
		out := make([]string, 0, len(v))
		for _, s := range v {
			if s != "" {
				out = append(out, s)
			}
		}
		return out
	case []any:
		out := make([]string, 0, len(v))
		for _, x := range v {
			if s := valueString(x); s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		if s := valueString(v); s != "" {
			return []string{s}
		}
		return nil
	}
}

// First returns the first element of a list field or the scalar itself.
func (f Fields) First(name string) string {
	if l := f.StringList(name); len(l) > 0 {
		return l[0]
	}
	return ""
}

func (f Fields) Int(name string) int {
	switch v := f[name].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(math.Round(v))
	case string:
		n, _ := strconv.Atoi(strings.TrimSpace(v))
		return n
	default:
		return 0
	}
}

func (f Fields) Bool(name string) bool {
	switch v := f[name].(type) {
	case bool:
		return v
	case string:
		b, _ := strconv.ParseBool(v)
		return b
	case float64:
		return v != 0
	case int:
		return v != 0
	default:
		return false
	}
}

func (f Fields) Decimal(name string) decimal.Decimal {
	switch v := f[name].(type) {
	case float64:
		return decimal.NewFromFloat(v)
	case int:
		return decimal.NewFromInt(int64(v))
	case int64:
		return decimal.NewFromInt(v)
	case decimal.Decimal:
		return v
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(v))
		if err != nil {
			return decimal.Zero
		}
		return d
	case []any:
		if len(v) > 0 {
			return Fields{"v": v[0]}.Decimal("v")
		}
	}
	return decimal.Zero
}

// Has reports whether the field is present and non-empty.
func (f Fields) Has(name string) bool {
	switch v := f[name].(type) {
	case nil:
		return false
	case string:
		return v != ""
	case []string:
		return len(v) > 0
	case []any:
		return len(v) > 0
	default:
		return true
	}
}

func valueString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		if x {
			return "1"
		}
		return "0"
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case []string:
		return strings.Join(x, ",")
	case []any:
		parts := make([]string, 0, len(x))
		for _, p := range x {
			parts = append(parts, valueString(p))
		}
		return strings.Join(parts, ",")
	default:
		return fmt.Sprint(x)
	}
}
