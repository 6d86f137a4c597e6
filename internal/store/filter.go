package store

import (
	"slices"
	"strings"
)

// Expr is a filter predicate. Formula renders it in the store's formula
// language; Match evaluates it against a record held in memory. Both must
// agree, and every caller-supplied literal passes through quote().
type Expr interface {
	Formula() string
	Match(id string, f Fields) bool
}

// quote renders a string literal, doubling embedded single quotes.
func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// ref renders a field reference.
func ref(field string) string {
	return "{" + strings.ReplaceAll(field, "}", `\}`) + "}"
}

type eqExpr struct {
	field, value string
	negate       bool
}

// Eq matches when the field's text value equals value.
func Eq(field, value string) Expr { return eqExpr{field: field, value: value} }

// NotEq matches when the field's text value differs from value.
func NotEq(field, value string) Expr { return eqExpr{field: field, value: value, negate: true} }

func (e eqExpr) Formula() string {
	op := "="
	if e.negate {
		op = "!="
	}
	return ref(e.field) + op + quote(e.value)
}

func (e eqExpr) Match(_ string, f Fields) bool {
	return (f.String(e.field) == e.value) != e.negate
}

type dateExpr struct {
	field, date string
	onOrAfter   bool
}

// DateIs matches records whose date field falls on date (YYYY-MM-DD).
func DateIs(field, date string) Expr { return dateExpr{field: field, date: date} }

// DateOnOrAfter matches records whose date field is date or later.
func DateOnOrAfter(field, date string) Expr { return dateExpr{field: field, date: date, onOrAfter: true} }

func (e dateExpr) Formula() string {
	if e.onOrAfter {
		return "NOT(IS_BEFORE(" + ref(e.field) + ", " + quote(e.date) + "))"
	}
	return "DATETIME_FORMAT(" + ref(e.field) + ", 'YYYY-MM-DD')=" + quote(e.date)
}

func (e dateExpr) Match(_ string, f Fields) bool {
	v := f.String(e.field)
	if len(v) < len("2006-01-02") {
		return false
	}
	day := v[:10]
	if e.onOrAfter {
		return day >= e.date
	}
	return day == e.date
}

type truthyExpr struct{ field string }

// IsTrue matches checked checkbox fields.
func IsTrue(field string) Expr { return truthyExpr{field} }

func (e truthyExpr) Formula() string { return ref(e.field) + "=TRUE()" }

func (e truthyExpr) Match(_ string, f Fields) bool { return f.Bool(e.field) }

type idsExpr struct{ ids []string }

// RecordIDIn matches records whose id is one of ids. No ids matches nothing.
func RecordIDIn(ids ...string) Expr { return idsExpr{ids} }

func (e idsExpr) Formula() string {
	if len(e.ids) == 0 {
		return "FALSE()"
	}
	parts := make([]string, len(e.ids))
	for i, id := range e.ids {
		parts[i] = "RECORD_ID()=" + quote(id)
	}
	if len(parts) == 1 {
		return parts[0]
	}
	return "OR(" + strings.Join(parts, ", ") + ")"
}

func (e idsExpr) Match(id string, _ Fields) bool { return slices.Contains(e.ids, id) }

type boolExpr struct {
	op    string
	terms []Expr
}

func And(terms ...Expr) Expr { return boolExpr{"AND", terms} }

func Or(terms ...Expr) Expr { return boolExpr{"OR", terms} }

func (e boolExpr) Formula() string {
	if len(e.terms) == 1 {
		return e.terms[0].Formula()
	}
	parts := make([]string, len(e.terms))
	for i, t := range e.terms {
		parts[i] = t.Formula()
	}
	return e.op + "(" + strings.Join(parts, ", ") + ")"
}

func (e boolExpr) Match(id string, f Fields) bool {
	if e.op == "AND" {
		for _, t := range e.terms {
			if !t.Match(id, f) {
				return false
			}
		}
		return true
	}
	for _, t := range e.terms {
		if t.Match(id, f) {
			return true
		}
	}
	return false
}

type notExpr struct{ term Expr }

func Not(term Expr) Expr { return notExpr{term} }

func (e notExpr) Formula() string { return "NOT(" + e.term.Formula() + ")" }

func (e notExpr) Match(id string, f Fields) bool { return !e.term.Match(id, f) }
