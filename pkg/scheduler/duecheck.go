package scheduler

import (
	"fmt"
	"strings"
	"time"

	"github.com/chartops/chart-engine/pkg/apperrors"
	"github.com/chartops/chart-engine/pkg/models"
)

// IsDue reports whether a dashboard schedule should fire at now, given the
// last time it fired. A schedule that has never fired is always due. The
// check is evaluated in the schedule's timezone; an empty timezone means UTC.
//
// Malformed schedules (unknown frequency, weekly without a day, every_x with
// a non-positive count, bad timezone) return ErrInvalidSchedule so callers
// can log and skip them rather than fire at a wrong time.
func IsDue(schedule *models.Schedule, lastRun *time.Time, now time.Time) (bool, error) {
	if schedule == nil {
		return false, nil
	}

	loc, err := scheduleLocation(schedule)
	if err != nil {
		return false, err
	}
	now = now.In(loc)

	if lastRun == nil {
		// Still validate, so a broken schedule never fires even once.
		if err := validateSchedule(schedule); err != nil {
			return false, err
		}
		return true, nil
	}
	last := lastRun.In(loc)

	switch schedule.Frequency {
	case models.FrequencyEveryXMinutes:
		return elapsedDue(schedule, last, now, time.Minute)
	case models.FrequencyEveryXHours:
		return elapsedDue(schedule, last, now, time.Hour)
	case models.FrequencyEveryXDays:
		return elapsedDue(schedule, last, now, 24*time.Hour)
	case models.FrequencyDaily:
		occurrence := lastDailyOccurrence(schedule, now)
		return last.Before(occurrence), nil
	case models.FrequencyWeekly:
		weekday, err := parseWeekday(schedule.DayOfWeek)
		if err != nil {
			return false, err
		}
		occurrence := lastWeeklyOccurrence(schedule, weekday, now)
		return last.Before(occurrence), nil
	default:
		return false, fmt.Errorf("%w: unknown frequency %q", apperrors.ErrInvalidSchedule, schedule.Frequency)
	}
}

// scheduleLocation loads the schedule's timezone, defaulting to UTC.
func scheduleLocation(schedule *models.Schedule) (*time.Location, error) {
	if schedule.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(schedule.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: timezone %q", apperrors.ErrInvalidSchedule, schedule.Timezone)
	}
	return loc, nil
}

func validateSchedule(schedule *models.Schedule) error {
	switch schedule.Frequency {
	case models.FrequencyEveryXMinutes, models.FrequencyEveryXHours, models.FrequencyEveryXDays:
		if schedule.FrequencyNumber <= 0 {
			return fmt.Errorf("%w: frequency number must be positive", apperrors.ErrInvalidSchedule)
		}
		return nil
	case models.FrequencyDaily:
		return nil
	case models.FrequencyWeekly:
		_, err := parseWeekday(schedule.DayOfWeek)
		return err
	default:
		return fmt.Errorf("%w: unknown frequency %q", apperrors.ErrInvalidSchedule, schedule.Frequency)
	}
}

// elapsedDue handles the every_x_* cadences: due once the interval has fully
// elapsed since the last run.
func elapsedDue(schedule *models.Schedule, last, now time.Time, unit time.Duration) (bool, error) {
	if schedule.FrequencyNumber <= 0 {
		return false, fmt.Errorf("%w: frequency number must be positive", apperrors.ErrInvalidSchedule)
	}
	interval := time.Duration(schedule.FrequencyNumber) * unit
	return now.Sub(last) >= interval, nil
}

// lastDailyOccurrence returns the most recent occurrence of the schedule's
// time-of-day at or before now. A schedule without a time fires at midnight.
func lastDailyOccurrence(schedule *models.Schedule, now time.Time) time.Time {
	hour, minute := timeOfDay(schedule)
	occurrence := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if occurrence.After(now) {
		occurrence = occurrence.AddDate(0, 0, -1)
	}
	return occurrence
}

// lastWeeklyOccurrence returns the most recent occurrence of the schedule's
// weekday and time-of-day at or before now.
func lastWeeklyOccurrence(schedule *models.Schedule, weekday time.Weekday, now time.Time) time.Time {
	hour, minute := timeOfDay(schedule)

	daysBack := int(now.Weekday() - weekday)
	if daysBack < 0 {
		daysBack += 7
	}

	day := now.AddDate(0, 0, -daysBack)
	occurrence := time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, now.Location())
	if occurrence.After(now) {
		occurrence = occurrence.AddDate(0, 0, -7)
	}
	return occurrence
}

func timeOfDay(schedule *models.Schedule) (hour, minute int) {
	if schedule.Time == nil {
		return 0, 0
	}
	return schedule.Time.Hour, schedule.Time.Minute
}

// parseWeekday accepts English weekday names, case-insensitive.
func parseWeekday(name string) (time.Weekday, error) {
	switch strings.ToLower(name) {
	case "sunday":
		return time.Sunday, nil
	case "monday":
		return time.Monday, nil
	case "tuesday":
		return time.Tuesday, nil
	case "wednesday":
		return time.Wednesday, nil
	case "thursday":
		return time.Thursday, nil
	case "friday":
		return time.Friday, nil
	case "saturday":
		return time.Saturday, nil
	default:
		return 0, fmt.Errorf("%w: weekly schedule needs a day of week, got %q", apperrors.ErrInvalidSchedule, name)
	}
}

// ChartDue reports whether a chart's interval refresh should fire at now.
// Charts with a zero interval never fire; a chart that has never fired is
// due immediately.
func ChartDue(chart *models.Chart, now time.Time) bool {
	if chart.AutoUpdate <= 0 {
		return false
	}
	if chart.LastAutoUpdate == nil {
		return true
	}
	interval := time.Duration(chart.AutoUpdate) * time.Second
	return now.Sub(*chart.LastAutoUpdate) >= interval
}
