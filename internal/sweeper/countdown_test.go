package sweeper

import (
	"testing"
	"time"
)

func TestCountdownHalfway(t *testing.T) {
	sale := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	now := time.Date(2026, 1, 8, 0, 0, 0, 0, time.UTC)

	view := Countdown(sale, 14, now)
	if view.DaysSinceSale != 7 || view.DaysRemaining != 7 || view.ProgressPercentage != 50 {
		t.Fatalf("unexpected countdown %+v", view)
	}
	if !view.EstimatedPaymentDate.Equal(time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected payment date %s", view.EstimatedPaymentDate)
	}
}

func TestCountdownEdges(t *testing.T) {
	sale := time.Date(2026, 3, 1, 18, 30, 0, 0, time.UTC)
	cases := []struct {
		name      string
		hold      int
		now       time.Time
		since     int
		remaining int
		progress  int
	}{
		{name: "sale moment", hold: 14, now: sale, since: 0, remaining: 14, progress: 0},
		{name: "partial day floors", hold: 14, now: sale.Add(47 * time.Hour), since: 1, remaining: 13, progress: 7},
		{name: "rounds half up", hold: 8, now: sale.Add(24 * time.Hour), since: 1, remaining: 7, progress: 13},
		{name: "exactly eligible", hold: 14, now: sale.Add(14 * 24 * time.Hour), since: 14, remaining: 0, progress: 100},
		{name: "long overdue", hold: 14, now: sale.Add(40 * 24 * time.Hour), since: 40, remaining: 0, progress: 100},
		{name: "future sale", hold: 14, now: sale.Add(-3 * time.Hour), since: 0, remaining: 14, progress: 0},
		{name: "zero hold", hold: 0, now: sale, since: 0, remaining: 0, progress: 100},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			view := Countdown(sale, tc.hold, tc.now)
			if view.DaysSinceSale != tc.since || view.DaysRemaining != tc.remaining || view.ProgressPercentage != tc.progress {
				t.Fatalf("got %+v", view)
			}
		})
	}
}

func TestCountdownProgressIsMonotonic(t *testing.T) {
	sale := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for _, hold := range []int{1, 3, 7, 14, 30} {
		last := -1
		for h := 0; h <= (hold+5)*24; h += 5 {
			view := Countdown(sale, hold, sale.Add(time.Duration(h)*time.Hour))
			if view.ProgressPercentage < last {
				t.Fatalf("hold=%d: progress dropped from %d to %d at hour %d", hold, last, view.ProgressPercentage, h)
			}
			if view.ProgressPercentage > 100 {
				t.Fatalf("hold=%d: progress %d above cap", hold, view.ProgressPercentage)
			}
			last = view.ProgressPercentage
		}
		if last != 100 {
			t.Fatalf("hold=%d: expected progress to reach 100, got %d", hold, last)
		}
	}
}
