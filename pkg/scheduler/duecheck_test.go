package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chartops/chart-engine/pkg/apperrors"
	"github.com/chartops/chart-engine/pkg/models"
)

func timePtr(t time.Time) *time.Time { return &t }

func TestIsDue_NilScheduleNeverDue(t *testing.T) {
	due, err := IsDue(nil, nil, time.Now())
	require.NoError(t, err)
	assert.False(t, due)
}

func TestIsDue_NoPriorRunIsAlwaysDue(t *testing.T) {
	schedule := &models.Schedule{
		Frequency:       models.FrequencyEveryXHours,
		FrequencyNumber: 6,
	}

	due, err := IsDue(schedule, nil, time.Now())
	require.NoError(t, err)
	assert.True(t, due)
}

func TestIsDue_NoPriorRunStillValidates(t *testing.T) {
	schedule := &models.Schedule{Frequency: models.FrequencyWeekly} // no day of week

	_, err := IsDue(schedule, nil, time.Now())
	assert.ErrorIs(t, err, apperrors.ErrInvalidSchedule)
}

func TestIsDue_EveryXMinutes(t *testing.T) {
	schedule := &models.Schedule{
		Frequency:       models.FrequencyEveryXMinutes,
		FrequencyNumber: 30,
	}
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

	due, err := IsDue(schedule, timePtr(now.Add(-29*time.Minute)), now)
	require.NoError(t, err)
	assert.False(t, due)

	due, err = IsDue(schedule, timePtr(now.Add(-31*time.Minute)), now)
	require.NoError(t, err)
	assert.True(t, due)
}

func TestIsDue_EveryXDays(t *testing.T) {
	schedule := &models.Schedule{
		Frequency:       models.FrequencyEveryXDays,
		FrequencyNumber: 2,
	}
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

	due, err := IsDue(schedule, timePtr(now.Add(-47*time.Hour)), now)
	require.NoError(t, err)
	assert.False(t, due)

	due, err = IsDue(schedule, timePtr(now.Add(-49*time.Hour)), now)
	require.NoError(t, err)
	assert.True(t, due)
}

func TestIsDue_EveryXWithoutNumberIsInvalid(t *testing.T) {
	schedule := &models.Schedule{Frequency: models.FrequencyEveryXMinutes}

	_, err := IsDue(schedule, timePtr(time.Now().Add(-time.Hour)), time.Now())
	assert.ErrorIs(t, err, apperrors.ErrInvalidSchedule)
}

func TestIsDue_Daily(t *testing.T) {
	schedule := &models.Schedule{
		Frequency: models.FrequencyDaily,
		Time:      &models.TimeOfDay{Hour: 9, Minute: 0},
	}

	// 10:00, last run yesterday: today's 09:00 passed without a run.
	now := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)
	due, err := IsDue(schedule, timePtr(now.Add(-24*time.Hour)), now)
	require.NoError(t, err)
	assert.True(t, due)

	// 10:00, already ran at 09:05 today.
	due, err = IsDue(schedule, timePtr(time.Date(2026, 8, 28, 9, 5, 0, 0, time.UTC)), now)
	require.NoError(t, err)
	assert.False(t, due)

	// 08:00, ran yesterday at 09:05: today's time not reached yet.
	now = time.Date(2026, 8, 28, 8, 0, 0, 0, time.UTC)
	due, err = IsDue(schedule, timePtr(time.Date(2026, 8, 27, 9, 5, 0, 0, time.UTC)), now)
	require.NoError(t, err)
	assert.False(t, due)
}

func TestIsDue_DailyHonorsTimezone(t *testing.T) {
	schedule := &models.Schedule{
		Timezone:  "America/New_York",
		Frequency: models.FrequencyDaily,
		Time:      &models.TimeOfDay{Hour: 9, Minute: 0},
	}

	// 14:00 UTC on 2026-08-28 is 10:00 in New York (EDT): past the local
	// 09:00 slot, which is 13:00 UTC.
	now := time.Date(2026, 8, 28, 14, 0, 0, 0, time.UTC)
	due, err := IsDue(schedule, timePtr(time.Date(2026, 8, 28, 2, 0, 0, 0, time.UTC)), now)
	require.NoError(t, err)
	assert.True(t, due)

	// A run at 13:30 UTC covers today's local slot.
	due, err = IsDue(schedule, timePtr(time.Date(2026, 8, 28, 13, 30, 0, 0, time.UTC)), now)
	require.NoError(t, err)
	assert.False(t, due)
}

func TestIsDue_Weekly(t *testing.T) {
	schedule := &models.Schedule{
		Frequency: models.FrequencyWeekly,
		DayOfWeek: "Monday",
		Time:      &models.TimeOfDay{Hour: 8, Minute: 0},
	}

	// 2026-08-28 is a Friday; the most recent Monday 08:00 was 08-24.
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

	due, err := IsDue(schedule, timePtr(time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)), now)
	require.NoError(t, err)
	assert.True(t, due)

	due, err = IsDue(schedule, timePtr(time.Date(2026, 8, 24, 9, 0, 0, 0, time.UTC)), now)
	require.NoError(t, err)
	assert.False(t, due)
}

func TestIsDue_WeeklyCaseInsensitiveDay(t *testing.T) {
	schedule := &models.Schedule{
		Frequency: models.FrequencyWeekly,
		DayOfWeek: "monday",
	}

	_, err := IsDue(schedule, timePtr(time.Now().Add(-time.Hour)), time.Now())
	assert.NoError(t, err)
}

func TestIsDue_WeeklyWithoutDayIsInvalid(t *testing.T) {
	schedule := &models.Schedule{Frequency: models.FrequencyWeekly}

	_, err := IsDue(schedule, timePtr(time.Now()), time.Now())
	assert.ErrorIs(t, err, apperrors.ErrInvalidSchedule)
}

func TestIsDue_UnknownFrequencyIsInvalid(t *testing.T) {
	schedule := &models.Schedule{Frequency: "fortnightly"}

	_, err := IsDue(schedule, timePtr(time.Now()), time.Now())
	assert.ErrorIs(t, err, apperrors.ErrInvalidSchedule)
}

func TestIsDue_BadTimezoneIsInvalid(t *testing.T) {
	schedule := &models.Schedule{
		Timezone:        "Mars/Olympus_Mons",
		Frequency:       models.FrequencyEveryXHours,
		FrequencyNumber: 1,
	}

	_, err := IsDue(schedule, timePtr(time.Now()), time.Now())
	assert.ErrorIs(t, err, apperrors.ErrInvalidSchedule)
}

func TestChartDue(t *testing.T) {
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		chart models.Chart
		want  bool
	}{
		{"zero interval never due", models.Chart{AutoUpdate: 0}, false},
		{"no prior run is due", models.Chart{AutoUpdate: 3600}, true},
		{"interval elapsed", models.Chart{AutoUpdate: 3600, LastAutoUpdate: timePtr(now.Add(-2 * time.Hour))}, true},
		{"interval not elapsed", models.Chart{AutoUpdate: 3600, LastAutoUpdate: timePtr(now.Add(-30 * time.Minute))}, false},
		{"boundary is due", models.Chart{AutoUpdate: 3600, LastAutoUpdate: timePtr(now.Add(-time.Hour))}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ChartDue(&tt.chart, now))
		})
	}
}
