// internal/domain/interval/rules.go
package interval

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	maxDayScan      = 32
	monthLookahead  = 24
	secondsInMinute = 60
)

// Rules drive the custom frequency.
type Rules struct {
	Times        []string `json:"times,omitempty"`
	SpecificTime string   `json:"specific_time,omitempty"`
	DaysOfWeek   DayList  `json:"days_of_week,omitempty"`
	DaysOfMonth  DayList  `json:"day_of_month,omitempty"`
}

// DayList accepts a single number, a list of numbers or numeric strings.
type DayList []int

func (d *DayList) UnmarshalJSON(b []byte) error {
	var single json.Number
	if err := json.Unmarshal(b, &single); err == nil {
		n, err := strconv.Atoi(single.String())
		if err != nil {
			return fmt.Errorf("invalid day %q: %w", single, err)
		}
		*d = DayList{n}
		return nil
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("day list must be a number or an array: %w", err)
	}
	out := make(DayList, 0, len(raw))
	for _, item := range raw {
		s := strings.Trim(string(item), `"`)
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			continue
		}
		out = append(out, n)
	}
	*d = out
	return nil
}

// ParseRules decodes custom rules stored as JSON. Empty input yields nil rules.
func ParseRules(raw []byte) (*Rules, error) {
	if len(strings.TrimSpace(string(raw))) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var r Rules
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("error decoding schedule rules: %w", err)
	}
	return &r, nil
}

type clock struct {
	hour, minute, second int
}

func (c clock) on(d time.Time) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), c.hour, c.minute, c.second, 0, d.Location())
}

func parseClock(s string) (clock, bool) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return clock{}, false
	}
	vals := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return clock{}, false
		}
		vals[i] = n
	}
	if vals[0] > 23 || vals[1] > 59 || vals[2] >= secondsInMinute {
		return clock{}, false
	}
	return clock{hour: vals[0], minute: vals[1], second: vals[2]}, true
}

// clocks returns the times of day a rule fires at, sorted. Without any
// configured time the clock time of from is kept. sameDay reports whether
// a later time on from's own date may be used, which only a Times list allows.
func (r *Rules) clocks(from time.Time) (out []clock, sameDay bool) {
	for _, t := range r.Times {
		if c, ok := parseClock(t); ok {
			out = append(out, c)
		}
	}
	sameDay = len(out) > 0
	if len(out) == 0 && r.SpecificTime != "" {
		if c, ok := parseClock(r.SpecificTime); ok {
			out = append(out, c)
		}
	}
	if len(out) == 0 {
		out = append(out, clock{hour: from.Hour(), minute: from.Minute(), second: from.Second()})
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		return a.hour*3600+a.minute*60+a.second < b.hour*3600+b.minute*60+b.second
	})
	return out, sameDay
}

// weekdays normalizes DaysOfWeek. Both 0-6 (Sunday=0) and ISO 1-7 are accepted.
func (r *Rules) weekdays() map[time.Weekday]bool {
	set := make(map[time.Weekday]bool)
	for _, d := range r.DaysOfWeek {
		if d == 7 {
			d = 0
		}
		if d >= 0 && d <= 6 {
			set[time.Weekday(d)] = true
		}
	}
	return set
}

func (r *Rules) monthDays() []int {
	var out []int
	seen := make(map[int]bool)
	for _, d := range r.DaysOfMonth {
		if d >= 1 && d <= 31 && !seen[d] {
			seen[d] = true
			out = append(out, d)
		}
	}
	sort.Ints(out)
	return out
}

// next returns the first occurrence strictly after from. Weekdays and month
// days must both match when both are set.
func (r *Rules) next(from time.Time) time.Time {
	if r == nil {
		return from.AddDate(0, 0, 1)
	}
	clocks, sameDay := r.clocks(from)
	allowed := r.weekdays()
	first := 1
	if sameDay {
		first = 0
	}

	if days := r.monthDays(); len(days) > 0 {
		if next, ok := r.nextMonthDay(from, days, allowed, clocks, first); ok {
			return next
		}
	}

	for offset := first; offset <= maxDayScan; offset++ {
		d := time.Date(from.Year(), from.Month(), from.Day()+offset, 0, 0, 0, 0, from.Location())
		if !r.dayAllowed(d, allowed) {
			continue
		}
		for _, c := range clocks {
			if cand := c.on(d); cand.After(from) {
				return cand
			}
		}
	}
	return from.AddDate(0, 0, 1)
}

func (r *Rules) dayAllowed(d time.Time, weekdays map[time.Weekday]bool) bool {
	if len(weekdays) > 0 && !weekdays[d.Weekday()] {
		return false
	}
	days := r.monthDays()
	if len(days) == 0 {
		return true
	}
	for _, dom := range days {
		if d.Day() == dom {
			return true
		}
	}
	return false
}

func (r *Rules) nextMonthDay(from time.Time, days []int, weekdays map[time.Weekday]bool, clocks []clock, first int) (time.Time, bool) {
	earliest := time.Date(from.Year(), from.Month(), from.Day()+first, 0, 0, 0, 0, from.Location())
	for m := 0; m <= monthLookahead; m++ {
		month := time.Date(from.Year(), from.Month()+time.Month(m), 1, 0, 0, 0, 0, from.Location())
		for _, dom := range days {
			d := time.Date(month.Year(), month.Month(), dom, 0, 0, 0, 0, from.Location())
			if d.Month() != month.Month() {
				// day 31 in a 30 day month
				continue
			}
			if d.Before(earliest) {
				continue
			}
			if len(weekdays) > 0 && !weekdays[d.Weekday()] {
				continue
			}
			for _, c := range clocks {
				if cand := c.on(d); cand.After(from) {
					return cand, true
				}
			}
		}
	}
	return time.Time{}, false
}
