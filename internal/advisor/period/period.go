// Package period resolves a requested period key (today, last7, thisMonth, …)
// into a concrete date range with a human-readable Italian label. Periods are
// immutable value objects created fresh per request; every downstream query
// of the advisor pipeline is bounded by the resolved [Start, End] pair.
package period

import (
	"errors"
	"fmt"
	"time"
)

// Period keys accepted by Resolve. Unrecognized keys fall back to KeyLast30.
const (
	KeyToday       = "today"
	KeyLast7       = "last7"
	KeyLast30      = "last30"
	KeyThisMonth   = "thisMonth"
	KeyLastMonth   = "lastMonth"
	KeyThisQuarter = "thisQuarter"
	KeyYear        = "year"
	KeyCustom      = "custom"
)

// customDateLayout is the wire format for explicit custom bounds.
const customDateLayout = "2006-01-02"

// ErrMissingCustomBounds is returned when period=custom is requested without
// both explicit bounds. The message is user-facing Italian.
var ErrMissingCustomBounds = errors.New("periodo personalizzato: specificare sia la data di inizio sia quella di fine")

// Period is a resolved date range. Invariants: Start <= End and Days >= 1,
// where Days counts calendar days inclusively.
type Period struct {
	Key   string    `json:"key"`
	Label string    `json:"label"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Days  int       `json:"days"`
}

// Resolve maps a period key to a concrete range anchored at now.
//
// Rules:
//   - today:       [00:00:00, 23:59:59] of the current day
//   - last7:       [today-6d 00:00:00, today 23:59:59]
//   - last30:      [today-29d 00:00:00, today 23:59:59] (also the default)
//   - thisMonth:   [1st of month 00:00:00, today 23:59:59]
//   - lastMonth:   [1st of previous month, last day of previous month 23:59:59]
//   - thisQuarter: [1st of current quarter 00:00:00, today 23:59:59]
//   - year:        [Jan 1st 00:00:00, today 23:59:59]
//   - custom:      explicit bounds, both required (ErrMissingCustomBounds);
//     malformed dates surface the parse error. A reversed range is
//     swapped and reset to full-day bounds.
func Resolve(key, customStart, customEnd string, now time.Time) (Period, error) {
	loc := now.Location()
	today := dayStart(now)

	var p Period
	switch key {
	case KeyToday:
		p = Period{Key: key, Label: "Oggi", Start: today, End: dayEnd(now)}
	case KeyLast7:
		p = Period{Key: key, Label: "Ultimi 7 giorni", Start: today.AddDate(0, 0, -6), End: dayEnd(now)}
	case KeyThisMonth:
		first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc)
		p = Period{Key: key, Label: "Questo mese", Start: first, End: dayEnd(now)}
	case KeyLastMonth:
		firstOfThis := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc)
		first := firstOfThis.AddDate(0, -1, 0)
		p = Period{Key: key, Label: "Mese scorso", Start: first, End: firstOfThis.Add(-time.Second)}
	case KeyThisQuarter:
		// Floor the month to the quarter boundary: 1, 4, 7, 10.
		qm := time.Month(((int(now.Month())-1)/3)*3 + 1)
		first := time.Date(now.Year(), qm, 1, 0, 0, 0, 0, loc)
		p = Period{Key: key, Label: "Questo trimestre", Start: first, End: dayEnd(now)}
	case KeyYear:
		first := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, loc)
		p = Period{Key: key, Label: "Anno corrente", Start: first, End: dayEnd(now)}
	case KeyCustom:
		return resolveCustom(customStart, customEnd, loc)
	default:
		p = Period{Key: KeyLast30, Label: "Ultimi 30 giorni", Start: today.AddDate(0, 0, -29), End: dayEnd(now)}
	}

	p.Days = daysBetween(p.Start, p.End)
	return p, nil
}

// resolveCustom parses explicit bounds and normalizes a reversed range.
func resolveCustom(startStr, endStr string, loc *time.Location) (Period, error) {
	if startStr == "" || endStr == "" {
		return Period{}, ErrMissingCustomBounds
	}
	start, err := time.ParseInLocation(customDateLayout, startStr, loc)
	if err != nil {
		return Period{}, fmt.Errorf("data di inizio non valida %q: %w", startStr, err)
	}
	end, err := time.ParseInLocation(customDateLayout, endStr, loc)
	if err != nil {
		return Period{}, fmt.Errorf("data di fine non valida %q: %w", endStr, err)
	}
	if start.After(end) {
		start, end = end, start
	}
	p := Period{
		Key:   KeyCustom,
		Label: fmt.Sprintf("Dal %s al %s", start.Format("02/01/2006"), end.Format("02/01/2006")),
		Start: dayStart(start),
		End:   dayEnd(end),
	}
	p.Days = daysBetween(p.Start, p.End)
	return p, nil
}

// dayStart returns t truncated to 00:00:00 in its location.
func dayStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// dayEnd returns t at 23:59:59 in its location.
func dayEnd(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 0, t.Location())
}

// daysBetween counts calendar days inclusively, never less than 1. The
// dates are re-anchored in UTC so a DST transition inside the range cannot
// skew the count (an elapsed-hours division would).
func daysBetween(start, end time.Time) int {
	s := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	e := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)
	d := int(e.Sub(s).Hours()/24) + 1
	if d < 1 {
		return 1
	}
	return d
}
