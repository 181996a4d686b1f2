// internal/domain/interval/frequency.go
package interval

import "time"

// Frequency is the recurrence label stored on a schedule.
type Frequency string

const (
	Hourly       Frequency = "hourly"
	Every4Hours  Frequency = "every_4_hours"
	Every6Hours  Frequency = "every_6_hours"
	Every12Hours Frequency = "every_12_hours"
	Daily        Frequency = "daily"
	Weekly       Frequency = "weekly"
	BiWeekly     Frequency = "bi_weekly"
	Monthly      Frequency = "monthly"
	Once         Frequency = "once"
	Custom       Frequency = "custom"

	EveryMonday    Frequency = "every_monday"
	EveryTuesday   Frequency = "every_tuesday"
	EveryWednesday Frequency = "every_wednesday"
	EveryThursday  Frequency = "every_thursday"
	EveryFriday    Frequency = "every_friday"
	EverySaturday  Frequency = "every_saturday"
	EverySunday    Frequency = "every_sunday"
)

const (
	hour = time.Hour
	day  = 24 * time.Hour
	week = 7 * day
)

// Definition describes a supported frequency.
type Definition struct {
	Name     Frequency     `json:"name"`
	Interval time.Duration `json:"-"`
	Seconds  int64         `json:"interval"`
	Display  string        `json:"display"`
}

var definitions = []Definition{
	{Name: Hourly, Interval: hour, Display: "Hourly"},
	{Name: Every4Hours, Interval: 4 * hour, Display: "Every 4 Hours"},
	{Name: Every6Hours, Interval: 6 * hour, Display: "Every 6 Hours"},
	{Name: Every12Hours, Interval: 12 * hour, Display: "Every 12 Hours"},
	{Name: Daily, Interval: day, Display: "Daily"},
	{Name: Weekly, Interval: week, Display: "Weekly"},
	{Name: BiWeekly, Interval: 2 * week, Display: "Every 2 Weeks"},
	{Name: Monthly, Interval: 30 * day, Display: "Monthly"},
	{Name: Once, Interval: day, Display: "Once"},
	{Name: Custom, Interval: day, Display: "Custom"},
	{Name: EveryMonday, Interval: week, Display: "Every Monday"},
	{Name: EveryTuesday, Interval: week, Display: "Every Tuesday"},
	{Name: EveryWednesday, Interval: week, Display: "Every Wednesday"},
	{Name: EveryThursday, Interval: week, Display: "Every Thursday"},
	{Name: EveryFriday, Interval: week, Display: "Every Friday"},
	{Name: EverySaturday, Interval: week, Display: "Every Saturday"},
	{Name: EverySunday, Interval: week, Display: "Every Sunday"},
}

var byName = func() map[Frequency]Definition {
	m := make(map[Frequency]Definition, len(definitions))
	for i := range definitions {
		definitions[i].Seconds = int64(definitions[i].Interval / time.Second)
		m[definitions[i].Name] = definitions[i]
	}
	return m
}()

var weekdayFrequencies = map[Frequency]time.Weekday{
	EveryMonday:    time.Monday,
	EveryTuesday:   time.Tuesday,
	EveryWednesday: time.Wednesday,
	EveryThursday:  time.Thursday,
	EveryFriday:    time.Friday,
	EverySaturday:  time.Saturday,
	EverySunday:    time.Sunday,
}

// Definitions returns every supported frequency in display order.
func Definitions() []Definition {
	out := make([]Definition, len(definitions))
	copy(out, definitions)
	return out
}

// Valid reports whether f is a known frequency.
func Valid(f Frequency) bool {
	_, ok := byName[f]
	return ok
}

// Duration returns the nominal interval of f, or 0 when f is unknown.
func Duration(f Frequency) time.Duration {
	return byName[f].Interval
}

// Display returns the human readable label, or the raw value for unknown frequencies.
func Display(f Frequency) string {
	if d, ok := byName[f]; ok {
		return d.Display
	}
	return string(f)
}

// isCalendar reports whether stepping f depends on the calendar rather than a fixed duration.
func isCalendar(f Frequency) bool {
	if _, ok := weekdayFrequencies[f]; ok {
		return true
	}
	return f == Monthly || f == Custom
}
