// internal/domain/interval/calculator.go
package interval

import "time"

// DefaultMaxCatchUp bounds how many calendar steps a catch-up may walk.
const DefaultMaxCatchUp = 100

// Calculator computes the next run of a schedule.
type Calculator struct {
	Location   *time.Location
	MaxCatchUp int
	Now        func() time.Time
}

// Advancement is the detailed result of a catch-up.
type Advancement struct {
	Next time.Time
	// Steps is the number of intervals skipped from base.
	Steps int
	// Exhausted is set when the walk gave up and snapped to now.
	Exhausted bool
}

func NewCalculator(loc *time.Location, maxCatchUp int) *Calculator {
	if loc == nil {
		loc = time.Local
	}
	if maxCatchUp <= 0 {
		maxCatchUp = DefaultMaxCatchUp
	}
	return &Calculator{Location: loc, MaxCatchUp: maxCatchUp, Now: time.Now}
}

var defaultCalculator = NewCalculator(time.Local, DefaultMaxCatchUp)

// NextRun returns the next run of frequency f after now, keeping the phase of base.
// A nil base means now.
func NextRun(f Frequency, base *time.Time) time.Time {
	return defaultCalculator.NextRun(f, base, nil)
}

func (c *Calculator) now() time.Time {
	if c.Now != nil {
		return c.Now().In(c.location())
	}
	return time.Now().In(c.location())
}

// CurrentTime is the calculator's clock in its location.
func (c *Calculator) CurrentTime() time.Time {
	return c.now()
}

func (c *Calculator) location() *time.Location {
	if c.Location == nil {
		return time.Local
	}
	return c.Location
}

func (c *Calculator) maxCatchUp() int {
	if c.MaxCatchUp <= 0 {
		return DefaultMaxCatchUp
	}
	return c.MaxCatchUp
}

// NextRun returns a time strictly after now. A base already in the future is returned as is.
func (c *Calculator) NextRun(f Frequency, base *time.Time, rules *Rules) time.Time {
	return c.Advance(f, base, rules).Next
}

// Step returns a single occurrence of f after from, without catching up.
func (c *Calculator) Step(f Frequency, from time.Time, rules *Rules) time.Time {
	from = from.In(c.location())
	if wd, ok := weekdayFrequencies[f]; ok {
		return nextWeekday(from, wd)
	}
	switch f {
	case Monthly:
		return from.AddDate(0, 1, 0)
	case Custom:
		return rules.next(from)
	}
	d := Duration(f)
	if d <= 0 {
		d = day
	}
	return from.Add(d)
}

// Advance walks forward from base one interval at a time until the result is after now.
func (c *Calculator) Advance(f Frequency, base *time.Time, rules *Rules) Advancement {
	now := c.now()
	start := now
	if base != nil {
		start = *base
	}
	if start.After(now) {
		return Advancement{Next: start}
	}
	if !Valid(f) {
		f = Daily
	}
	start = start.In(c.location())

	if !isCalendar(f) {
		d := Duration(f)
		if d <= 0 {
			return c.fallback(f, now, rules)
		}
		missed := now.Sub(start)/d + 1
		next := start.Add(missed * d)
		if !next.After(now) {
			return c.fallback(f, now, rules)
		}
		return Advancement{Next: next, Steps: int(missed)}
	}

	if wd, ok := weekdayFrequencies[f]; ok {
		return advanceWeekday(start, now, wd)
	}

	next := start
	for i := 0; i < c.maxCatchUp(); i++ {
		stepped := c.Step(f, next, rules)
		if !stepped.After(next) {
			return c.fallback(f, now, rules)
		}
		next = stepped
		if next.After(now) {
			return Advancement{Next: next, Steps: i + 1}
		}
	}
	return c.fallback(f, now, rules)
}

// fallback snaps to one step after now. The result is after now whatever f does.
func (c *Calculator) fallback(f Frequency, now time.Time, rules *Rules) Advancement {
	next := c.Step(f, now, rules)
	if !next.After(now) {
		next = now.Add(day)
	}
	return Advancement{Next: next, Exhausted: true}
}

// advanceWeekday jumps whole calendar weeks after the first matching weekday, so the
// clock time of start holds for any gap and across DST changes.
func advanceWeekday(start, now time.Time, wd time.Weekday) Advancement {
	first := nextWeekday(start, wd)
	if first.After(now) {
		return Advancement{Next: first, Steps: 1}
	}
	weeks, next := 0, first
	for !next.After(now) {
		// Sub saturates for gaps over ~290 years
		jump := int(now.Sub(next) / week)
		if jump < 1 {
			jump = 1
		}
		weeks += jump
		next = first.AddDate(0, 0, 7*weeks)
	}
	// a DST hour can push the jump one week too far
	for weeks > 1 {
		prev := first.AddDate(0, 0, 7*(weeks-1))
		if !prev.After(now) {
			break
		}
		weeks--
		next = prev
	}
	return Advancement{Next: next, Steps: weeks + 1}
}

func nextWeekday(from time.Time, wd time.Weekday) time.Time {
	days := (int(wd) - int(from.Weekday()) + 7) % 7
	if days == 0 {
		days = 7
	}
	return time.Date(from.Year(), from.Month(), from.Day()+days,
		from.Hour(), from.Minute(), from.Second(), from.Nanosecond(), from.Location())
}
