package models

// Frequency is the refresh cadence kind for a dashboard schedule.
type Frequency string

const (
	FrequencyDaily         Frequency = "daily"
	FrequencyWeekly        Frequency = "weekly"
	FrequencyEveryXDays    Frequency = "every_x_days"
	FrequencyEveryXHours   Frequency = "every_x_hours"
	FrequencyEveryXMinutes Frequency = "every_x_minutes"
)

// TimeOfDay is a local wall-clock time within the schedule's timezone.
type TimeOfDay struct {
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
}

// Schedule is the refresh cadence descriptor for a dashboard.
//
//   - daily: fixed local time-of-day (Time required)
//   - weekly: fixed weekday + time (DayOfWeek and Time required)
//   - every_x_*: simple elapsed-time cadence (FrequencyNumber required)
type Schedule struct {
	Timezone        string     `json:"timezone,omitempty"` // IANA name; empty means UTC
	Frequency       Frequency  `json:"frequency"`
	DayOfWeek       string     `json:"day_of_week,omitempty"` // "Monday".."Sunday"
	Time            *TimeOfDay `json:"time,omitempty"`
	FrequencyNumber int        `json:"frequency_number,omitempty"`
}
