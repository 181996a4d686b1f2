// internal/domain/interval/advanced.go
package interval

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Knetic/govaluate"
)

// Condition types understood by advanced rules.
const (
	ConditionTimeBetween      = "time_between"
	ConditionDaysOfWeek       = "days_of_week"
	ConditionExcludeMonthDays = "exclude_month_days"
	ConditionExpression       = "expression"
)

const (
	ModeAll = "all"
	ModeAny = "any"

	advancedSearchWindow = 60 * day
)

// AdvancedRules restrict when a schedule may run.
type AdvancedRules struct {
	Mode       string      `json:"mode"`
	Conditions []Condition `json:"conditions"`
}

// Condition is a single advanced rule. Only the fields of its type are set.
type Condition struct {
	Type       string   `json:"type"`
	Start      string   `json:"start,omitempty"`
	End        string   `json:"end,omitempty"`
	Weekdays   []string `json:"weekdays,omitempty"`
	MonthDays  []int    `json:"month_days,omitempty"`
	Expression string   `json:"expression,omitempty"`

	compiled *govaluate.EvaluableExpression
}

type rawCondition struct {
	Type       string            `json:"type"`
	Start      string            `json:"start"`
	End        string            `json:"end"`
	Days       []json.RawMessage `json:"days"`
	Weekdays   []string          `json:"weekdays"`
	MonthDays  []int             `json:"month_days"`
	Expression string            `json:"expression"`
}

var weekdayNames = map[string]time.Weekday{
	"sunday": time.Sunday, "monday": time.Monday, "tuesday": time.Tuesday,
	"wednesday": time.Wednesday, "thursday": time.Thursday, "friday": time.Friday,
	"saturday": time.Saturday,
}

// SanitizeAdvanced decodes advanced rules, dropping malformed conditions of known types.
// Conditions of unknown types are kept and always match. Empty input or a rule set
// without usable conditions yields nil.
func SanitizeAdvanced(raw []byte) (*AdvancedRules, error) {
	if len(strings.TrimSpace(string(raw))) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var in struct {
		Mode       string         `json:"mode"`
		Conditions []rawCondition `json:"conditions"`
	}
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, fmt.Errorf("error decoding advanced rules: %w", err)
	}

	out := &AdvancedRules{Mode: strings.ToLower(in.Mode)}
	if out.Mode != ModeAny {
		out.Mode = ModeAll
	}

	for _, rc := range in.Conditions {
		c := Condition{Type: strings.ToLower(strings.TrimSpace(rc.Type))}
		switch c.Type {
		case ConditionTimeBetween:
			if _, ok := parseClock(rc.Start); !ok {
				continue
			}
			if _, ok := parseClock(rc.End); !ok {
				continue
			}
			c.Start, c.End = rc.Start, rc.End
		case ConditionDaysOfWeek:
			names := append([]string{}, rc.Weekdays...)
			for _, d := range rc.Days {
				names = append(names, strings.Trim(string(d), `"`))
			}
			for _, n := range names {
				n = strings.ToLower(strings.TrimSpace(n))
				if _, ok := weekdayNames[n]; ok {
					c.Weekdays = append(c.Weekdays, n)
				}
			}
			if len(c.Weekdays) == 0 {
				continue
			}
		case ConditionExcludeMonthDays:
			days := append([]int{}, rc.MonthDays...)
			for _, d := range rc.Days {
				if n, err := strconv.Atoi(strings.Trim(string(d), `"`)); err == nil {
					days = append(days, n)
				}
			}
			for _, n := range days {
				if n >= 1 && n <= 31 {
					c.MonthDays = append(c.MonthDays, n)
				}
			}
			if len(c.MonthDays) == 0 {
				continue
			}
		case ConditionExpression:
			expr, err := govaluate.NewEvaluableExpression(rc.Expression)
			if err != nil {
				continue
			}
			c.Expression = rc.Expression
			c.compiled = expr
		case "":
			continue
		default:
			// unknown types are kept and always match
		}
		out.Conditions = append(out.Conditions, c)
	}

	if len(out.Conditions) == 0 {
		return nil, nil
	}
	return out, nil
}

// Matches reports whether t satisfies the rules. Nil or empty rules always match.
func (a *AdvancedRules) Matches(t time.Time) bool {
	if a == nil || len(a.Conditions) == 0 {
		return true
	}
	if a.Mode == ModeAny {
		for i := range a.Conditions {
			if a.Conditions[i].matches(t) {
				return true
			}
		}
		return false
	}
	for i := range a.Conditions {
		if !a.Conditions[i].matches(t) {
			return false
		}
	}
	return true
}

// NextMatch returns the first whole minute after from that satisfies the rules,
// searching up to 60 days ahead. Without a match it returns from plus one day.
func (a *AdvancedRules) NextMatch(from time.Time) time.Time {
	t := from.Truncate(time.Minute).Add(time.Minute)
	limit := from.Add(advancedSearchWindow)
	for !t.After(limit) {
		if a.Matches(t) {
			return t
		}
		t = t.Add(time.Minute)
	}
	return from.Add(day)
}

// Align returns from when it already matches, otherwise the next matching minute.
func (a *AdvancedRules) Align(from time.Time) time.Time {
	if a.Matches(from) {
		return from
	}
	return a.NextMatch(from)
}

func (c *Condition) matches(t time.Time) bool {
	switch c.Type {
	case ConditionTimeBetween:
		start, _ := parseClock(c.Start)
		end, _ := parseClock(c.End)
		m := t.Hour()*60 + t.Minute()
		s := start.hour*60 + start.minute
		e := end.hour*60 + end.minute
		if s == e {
			return true
		}
		if s < e {
			return m >= s && m <= e
		}
		// overnight window, e.g. 22:00-06:00
		return m >= s || m <= e
	case ConditionDaysOfWeek:
		for _, n := range c.Weekdays {
			if weekdayNames[n] == t.Weekday() {
				return true
			}
		}
		return false
	case ConditionExcludeMonthDays:
		for _, d := range c.MonthDays {
			if t.Day() == d {
				return false
			}
		}
		return true
	case ConditionExpression:
		expr := c.compiled
		if expr == nil {
			var err error
			if expr, err = govaluate.NewEvaluableExpression(c.Expression); err != nil {
				return false
			}
		}
		res, err := expr.Evaluate(map[string]interface{}{
			"hour":    float64(t.Hour()),
			"minute":  float64(t.Minute()),
			"weekday": float64(t.Weekday()),
			"day":     float64(t.Day()),
			"month":   float64(t.Month()),
		})
		if err != nil {
			return false
		}
		ok, isBool := res.(bool)
		return isBool && ok
	}
	return true
}
