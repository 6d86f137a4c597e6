package domain

import (
	"strconv"
	"strings"
	"time"
)

// Window is the admission decision for one delivery date.
type Window struct {
	Allowed          bool
	Mode             WindowMode
	Reason           string
	Cutoff           time.Time
	PrivilegedCutoff *time.Time
}

// Details renders the cutoff instants for error payloads.
func (w Window) Details() map[string]any {
	d := map[string]any{"reason": w.Reason}
	if !w.Cutoff.IsZero() {
		d["cutoff"] = w.Cutoff.UTC().Format(time.RFC3339)
	}
	if w.PrivilegedCutoff != nil {
		d["privilegedCutoff"] = w.PrivilegedCutoff.UTC().Format(time.RFC3339)
	}
	return d
}

// CanOrderNow decides whether an order for deliveryDate may be placed at now.
//
// The normal cutoff is the organization's cutoff time on the day before the
// delivery date, in the organization's zone. Privileged callers past that
// point get a second chance until the privileged cutoff time on the delivery
// date itself. Both instants are resolved through the zone database, so the
// offset in force on that date applies.
func CanOrderNow(now time.Time, deliveryDate string, org Organization, privileged bool, defaultZone string) (Window, error) {
	day, err := ParseDate(deliveryDate)
	if err != nil {
		return Window{}, err
	}

	loc := resolveZone(org.TimeZone, defaultZone)

	h, m, s, ok := parseClock(org.Cutoff)
	if !ok {
		return Window{Reason: ReasonCutoffNotConfigured}, nil
	}

	w := Window{
		Cutoff: time.Date(day.Year(), day.Month(), day.Day()-1, h, m, s, 0, loc),
	}

	if ph, pm, ps, ok := parseClock(org.PrivilegedCutoff); ok {
		pc := time.Date(day.Year(), day.Month(), day.Day(), ph, pm, ps, 0, loc)
		w.PrivilegedCutoff = &pc
	}

	if !now.After(w.Cutoff) {
		w.Allowed = true
		w.Mode = WindowNormal
		return w, nil
	}

	if privileged && w.PrivilegedCutoff != nil && !now.After(*w.PrivilegedCutoff) {
		w.Allowed = true
		w.Mode = WindowPrivileged
		return w, nil
	}

	w.Reason = ReasonDeadlinePassed
	return w, nil
}

func resolveZone(name, fallback string) *time.Location {
	if name = strings.TrimSpace(name); name != "" {
		if loc, err := time.LoadLocation(name); err == nil {
			return loc
		}
	}
	if loc, err := time.LoadLocation(fallback); err == nil {
		return loc
	}
	return time.UTC
}

var clockLayouts = []string{"15:04", "15:04:05", "3:04 PM", "3:04PM", "3:04 pm"}

// parseClock accepts "18:00", "18:00:00", "6:00 PM" or a number of seconds
// since midnight (the store's duration field encoding).
func parseClock(v string) (h, m, s int, ok bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, 0, 0, false
	}

	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 || secs >= 24*3600 {
			return 0, 0, 0, false
		}
		return secs / 3600, secs % 3600 / 60, secs % 60, true
	}

	for _, layout := range clockLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t.Hour(), t.Minute(), t.Second(), true
		}
	}
	return 0, 0, 0, false
}
