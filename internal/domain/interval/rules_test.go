package interval

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRulesNext(t *testing.T) {
	// 2023-10-27 is a Friday
	data := []struct {
		name  string
		rules *Rules
		from  string
		want  string
	}{
		{"nil rules add a day", nil, "2023-10-27 10:00:00", "2023-10-28 10:00:00"},
		{"later time today", &Rules{Times: []string{"18:00", "09:00"}}, "2023-10-27 10:00:00", "2023-10-27 18:00:00"},
		{"first time tomorrow", &Rules{Times: []string{"09:00", "18:00"}}, "2023-10-27 19:00:00", "2023-10-28 09:00:00"},
		{"specific time", &Rules{SpecificTime: "07:15"}, "2023-10-27 10:00:00", "2023-10-28 07:15:00"},
		{"invalid times keep clock", &Rules{Times: []string{"25:00", "aa"}}, "2023-10-27 10:00:00", "2023-10-28 10:00:00"},
		{"iso monday", &Rules{SpecificTime: "09:00", DaysOfWeek: DayList{1}}, "2023-10-27 10:00:00", "2023-10-30 09:00:00"},
		{"sunday as seven", &Rules{SpecificTime: "09:00", DaysOfWeek: DayList{7}}, "2023-10-27 10:00:00", "2023-10-29 09:00:00"},
		{"sunday as zero", &Rules{SpecificTime: "09:00", DaysOfWeek: DayList{0}}, "2023-10-27 10:00:00", "2023-10-29 09:00:00"},
		{"specific time starts tomorrow", &Rules{SpecificTime: "12:00"}, "2023-10-27 10:00:00", "2023-10-28 12:00:00"},
		{"same weekday waits a week", &Rules{SpecificTime: "12:00", DaysOfWeek: DayList{5}}, "2023-10-27 10:00:00", "2023-11-03 12:00:00"},
		{"times allow later today on weekday", &Rules{Times: []string{"12:00"}, DaysOfWeek: DayList{5}}, "2023-10-27 10:00:00", "2023-10-27 12:00:00"},
		{"day of month this month", &Rules{SpecificTime: "08:00", DaysOfMonth: DayList{28}}, "2023-10-27 10:00:00", "2023-10-28 08:00:00"},
		{"day of month skips short months", &Rules{SpecificTime: "08:00", DaysOfMonth: DayList{31}}, "2023-11-05 10:00:00", "2023-12-31 08:00:00"},
		{"day of month list", &Rules{SpecificTime: "08:00", DaysOfMonth: DayList{20, 1}}, "2023-10-27 10:00:00", "2023-11-01 08:00:00"},
		{"day of month today needs times", &Rules{SpecificTime: "12:00", DaysOfMonth: DayList{27}}, "2023-10-27 10:00:00", "2023-11-27 12:00:00"},
		{"day of month today with times", &Rules{Times: []string{"12:00"}, DaysOfMonth: DayList{27}}, "2023-10-27 10:00:00", "2023-10-27 12:00:00"},
		{"day of month on allowed weekday", &Rules{SpecificTime: "09:00", DaysOfMonth: DayList{15}, DaysOfWeek: DayList{1}}, "2023-10-01 00:00:00", "2024-01-15 09:00:00"},
		{"leap day", &Rules{SpecificTime: "08:00", DaysOfMonth: DayList{29}}, "2023-02-01 10:00:00", "2023-03-29 08:00:00"},
	}

	for _, d := range data {
		t.Run(d.name, func(t *testing.T) {
			assert.Equal(t, at(d.want), d.rules.next(at(d.from)))
		})
	}
}

func TestParseRules(t *testing.T) {
	r, err := ParseRules([]byte(`{"times":["09:00"],"days_of_week":["1","3"],"day_of_month":15}`))
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Equal(t, []string{"09:00"}, r.Times)
	assert.Equal(t, DayList{1, 3}, r.DaysOfWeek)
	assert.Equal(t, DayList{15}, r.DaysOfMonth)

	r, err = ParseRules(nil)
	require.NoError(t, err)
	assert.Nil(t, r)

	_, err = ParseRules([]byte(`{"day_of_month":{}}`))
	assert.Error(t, err)
}

func TestRulesNextIsAlwaysAfterFrom(t *testing.T) {
	rules := &Rules{Times: []string{"00:00", "23:59"}, DaysOfWeek: DayList{2, 4}}
	from := at("2023-10-27 00:00:00")
	for i := 0; i < 50; i++ {
		next := rules.next(from)
		require.True(t, next.After(from))
		from = next
	}
	assert.Contains(t, []time.Weekday{time.Tuesday, time.Thursday}, from.Weekday())
}
