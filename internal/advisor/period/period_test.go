package period

import (
	"errors"
	"testing"
	"time"
)

// anchor is a mid-month reference instant: Friday 2024-03-15 10:30 local.
var anchor = time.Date(2024, time.March, 15, 10, 30, 0, 0, time.UTC)

func TestResolve_InvariantsAllKeys(t *testing.T) {
	keys := []string{KeyToday, KeyLast7, KeyLast30, KeyThisMonth, KeyLastMonth, KeyThisQuarter, KeyYear, "garbage", ""}
	for _, k := range keys {
		p, err := Resolve(k, "", "", anchor)
		if err != nil {
			t.Fatalf("Resolve(%q): %v", k, err)
		}
		if p.Start.After(p.End) {
			t.Errorf("Resolve(%q): start %v after end %v", k, p.Start, p.End)
		}
		if p.Days < 1 {
			t.Errorf("Resolve(%q): days = %d, want >= 1", k, p.Days)
		}
		if p.Label == "" {
			t.Errorf("Resolve(%q): empty label", k)
		}
	}
}

func TestResolve_Today(t *testing.T) {
	p, err := Resolve(KeyToday, "", "", anchor)
	if err != nil {
		t.Fatal(err)
	}
	wantStart := time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC)
	wantEnd := time.Date(2024, time.March, 15, 23, 59, 59, 0, time.UTC)
	if !p.Start.Equal(wantStart) || !p.End.Equal(wantEnd) {
		t.Fatalf("got [%v, %v], want [%v, %v]", p.Start, p.End, wantStart, wantEnd)
	}
	if p.Days != 1 {
		t.Fatalf("days = %d, want 1", p.Days)
	}
}

func TestResolve_Last7Days(t *testing.T) {
	p, _ := Resolve(KeyLast7, "", "", anchor)
	if got := p.Start; !got.Equal(time.Date(2024, time.March, 9, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("start = %v", got)
	}
	if p.Days != 7 {
		t.Fatalf("days = %d, want 7", p.Days)
	}
	if p.Label != "Ultimi 7 giorni" {
		t.Fatalf("label = %q", p.Label)
	}
}

func TestResolve_DefaultIsLast30(t *testing.T) {
	p, _ := Resolve("", "", "", anchor)
	if p.Key != KeyLast30 || p.Days != 30 {
		t.Fatalf("key = %q days = %d, want last30/30", p.Key, p.Days)
	}
}

func TestResolve_ThisMonthStartsOnFirst(t *testing.T) {
	p, _ := Resolve(KeyThisMonth, "", "", anchor)
	if p.Start.Day() != 1 {
		t.Fatalf("start day = %d, want 1", p.Start.Day())
	}
	if p.Days != 15 {
		t.Fatalf("days = %d, want 15", p.Days)
	}
}

func TestResolve_LastMonthEndOfMonth(t *testing.T) {
	cases := []struct {
		now     time.Time
		wantEnd time.Time
	}{
		// Feb 2024 is a leap February.
		{time.Date(2024, time.March, 15, 12, 0, 0, 0, time.UTC), time.Date(2024, time.February, 29, 23, 59, 59, 0, time.UTC)},
		{time.Date(2023, time.March, 1, 0, 0, 0, 0, time.UTC), time.Date(2023, time.February, 28, 23, 59, 59, 0, time.UTC)},
		{time.Date(2024, time.May, 10, 0, 0, 0, 0, time.UTC), time.Date(2024, time.April, 30, 23, 59, 59, 0, time.UTC)},
		{time.Date(2024, time.January, 2, 0, 0, 0, 0, time.UTC), time.Date(2023, time.December, 31, 23, 59, 59, 0, time.UTC)},
	}
	for _, c := range cases {
		p, _ := Resolve(KeyLastMonth, "", "", c.now)
		if !p.End.Equal(c.wantEnd) {
			t.Errorf("now=%v: end = %v, want %v", c.now, p.End, c.wantEnd)
		}
		if p.Start.Day() != 1 {
			t.Errorf("now=%v: start day = %d, want 1", c.now, p.Start.Day())
		}
	}
}

func TestResolve_ThisQuarterBoundaries(t *testing.T) {
	cases := []struct {
		month     time.Month
		wantStart time.Month
	}{
		{time.January, time.January},
		{time.March, time.January},
		{time.April, time.April},
		{time.August, time.July},
		{time.December, time.October},
	}
	for _, c := range cases {
		now := time.Date(2024, c.month, 20, 9, 0, 0, 0, time.UTC)
		p, _ := Resolve(KeyThisQuarter, "", "", now)
		if p.Start.Month() != c.wantStart || p.Start.Day() != 1 {
			t.Errorf("month %v: quarter start = %v, want 1 %v", c.month, p.Start, c.wantStart)
		}
	}
}

func TestResolve_DaysAcrossDSTFallBack(t *testing.T) {
	rome, err := time.LoadLocation("Europe/Rome")
	if err != nil {
		t.Fatalf("load tz: %v", err)
	}

	// 2026-10-25 is the fall-back Sunday in Europe/Rome: the local day lasts
	// 25 hours, so an elapsed-hours count would overshoot.
	transition := time.Date(2026, time.October, 25, 12, 0, 0, 0, rome)
	p, err := Resolve(KeyToday, "", "", transition)
	if err != nil {
		t.Fatal(err)
	}
	if p.Days != 1 {
		t.Fatalf("today across fall-back: days = %d, want 1", p.Days)
	}

	after := time.Date(2026, time.November, 10, 9, 0, 0, 0, rome)
	p, err = Resolve(KeyLast30, "", "", after)
	if err != nil {
		t.Fatal(err)
	}
	if p.Days != 30 {
		t.Fatalf("last30 spanning fall-back: days = %d, want 30", p.Days)
	}
}

func TestResolve_CustomRequiresBothBounds(t *testing.T) {
	for _, c := range [][2]string{{"", ""}, {"2024-01-01", ""}, {"", "2024-01-31"}} {
		_, err := Resolve(KeyCustom, c[0], c[1], anchor)
		if !errors.Is(err, ErrMissingCustomBounds) {
			t.Errorf("bounds %q/%q: err = %v, want ErrMissingCustomBounds", c[0], c[1], err)
		}
	}
}

func TestResolve_CustomInvalidDate(t *testing.T) {
	if _, err := Resolve(KeyCustom, "01-01-2024", "2024-01-31", anchor); err == nil {
		t.Fatal("expected parse error for malformed start date")
	}
}

func TestResolve_CustomSwapsReversedRange(t *testing.T) {
	p, err := Resolve(KeyCustom, "2024-02-10", "2024-02-01", anchor)
	if err != nil {
		t.Fatal(err)
	}
	if p.Start.After(p.End) {
		t.Fatalf("range not swapped: [%v, %v]", p.Start, p.End)
	}
	if p.Start.Hour() != 0 || p.End.Hour() != 23 {
		t.Fatalf("full-day bounds not applied: [%v, %v]", p.Start, p.End)
	}
	if p.Days != 10 {
		t.Fatalf("days = %d, want 10", p.Days)
	}
}
