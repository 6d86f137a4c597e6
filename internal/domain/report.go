package domain

// FieldOutcome is the result of one attempt to write a field.
type FieldOutcome string

const (
	FieldApplied             FieldOutcome = "applied"
	FieldSkippedUnknownField FieldOutcome = "skipped_unknown_field"
	FieldFailed              FieldOutcome = "failed"
)

type FieldWrite struct {
	Table   string       `json:"table"`
	Field   string       `json:"field"`
	Outcome FieldOutcome `json:"outcome"`
	Error   string       `json:"error,omitempty"`
}

// WriteReport lists every field write attempted while linking records.
type WriteReport struct {
	Writes []FieldWrite `json:"writes"`
}

func (r *WriteReport) Add(w FieldWrite) {
	r.Writes = append(r.Writes, w)
}

func (r *WriteReport) Merge(other WriteReport) {
	r.Writes = append(r.Writes, other.Writes...)
}

// AppliedFields returns the fields whose write succeeded, in attempt order.
func (r WriteReport) AppliedFields() []string {
	var out []string
	for _, w := range r.Writes {
		if w.Outcome == FieldApplied {
			out = append(out, w.Field)
		}
	}
	return out
}
