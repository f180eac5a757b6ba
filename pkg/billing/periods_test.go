package billing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPeriodLength(t *testing.T) {
	assert.Equal(t, 30*24*time.Hour, PeriodLength(IntervalMonth))
	assert.Equal(t, 360*24*time.Hour, PeriodLength(IntervalYear))
}

func TestComputePeriods_Month(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	periods := ComputePeriods(start, IntervalMonth)
	require.Len(t, periods, 1)

	assert.Equal(t, start, periods[0].Start)
	assert.Equal(t, start.Add(30*24*time.Hour), periods[0].End)
	assert.False(t, periods[0].YearlySlice)
	assert.Equal(t, 0, periods[0].MonthlyCycle)
}

func TestComputePeriods_Year(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	periods := ComputePeriods(start, IntervalYear)
	require.Len(t, periods, 12)

	for i, period := range periods {
		assert.True(t, period.YearlySlice)
		assert.Equal(t, i+1, period.MonthlyCycle)
		assert.Equal(t, 30*24*time.Hour, period.End.Sub(period.Start))
	}

	// Slices are contiguous: each starts exactly where the previous ends
	for i := 1; i < len(periods); i++ {
		assert.Equal(t, periods[i-1].End, periods[i].Start)
	}

	assert.Equal(t, start, periods[0].Start)
	assert.Equal(t, start.Add(PeriodLength(IntervalYear)), periods[11].End)
}

func TestComputePeriods_MidDayStart(t *testing.T) {
	// Periods are anchored to the purchase instant, not midnight
	start := time.Date(2024, 3, 15, 13, 45, 30, 0, time.UTC)

	periods := ComputePeriods(start, IntervalMonth)
	require.Len(t, periods, 1)
	assert.Equal(t, start, periods[0].Start)
	assert.Equal(t, start.Add(30*24*time.Hour), periods[0].End)
}
