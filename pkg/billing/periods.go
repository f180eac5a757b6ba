package billing

import "time"

// Billing periods use fixed 30-day slices rather than calendar months,
// so a yearly plan is exactly twelve contiguous slices (360 days).
const (
	PeriodDays       = 30
	YearlyCycleCount = 12
)

// Period is one quota-enforcement window, [Start, End)
type Period struct {
	Start        time.Time
	End          time.Time
	YearlySlice  bool // one 30-day slice of a year-long plan
	MonthlyCycle int  // 1-based slice index, 0 for monthly plans
}

// PeriodLength returns the total coverage added by one purchase of the
// given interval
func PeriodLength(interval Interval) time.Duration {
	if interval == IntervalYear {
		return YearlyCycleCount * PeriodDays * 24 * time.Hour
	}
	return PeriodDays * 24 * time.Hour
}

// ComputePeriods slices the span starting at start into quota
// enforcement periods: one 30-day period for a monthly interval,
// twelve contiguous 30-day slices for a yearly one. It is pure and
// deterministic; callers validate the interval upstream.
func ComputePeriods(start time.Time, interval Interval) []Period {
	slice := PeriodDays * 24 * time.Hour

	if interval == IntervalYear {
		periods := make([]Period, 0, YearlyCycleCount)
		for i := 0; i < YearlyCycleCount; i++ {
			periods = append(periods, Period{
				Start:        start.Add(time.Duration(i) * slice),
				End:          start.Add(time.Duration(i+1) * slice),
				YearlySlice:  true,
				MonthlyCycle: i + 1,
			})
		}
		return periods
	}

	return []Period{{Start: start, End: start.Add(slice)}}
}
