package app

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"ai_post_scheduler/internal/domain/interval"
	"ai_post_scheduler/internal/domain/schedule"
	"ai_post_scheduler/internal/domain/template"
	idb "ai_post_scheduler/internal/infra/database"
	"ai_post_scheduler/internal/infra/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestScheduleService() (*ScheduleService, *fakeSchedules, *fakeTemplates) {
	schedules := newFakeSchedules()
	templates := &fakeTemplates{templates: map[int64]*template.Template{
		1: {ID: 1, Name: "Tips", PromptTemplate: "x", IsActive: true},
		2: {ID: 2, Name: "Old", PromptTemplate: "x", IsActive: false},
	}}
	calc := interval.NewCalculator(time.UTC, 100)
	calc.Now = func() time.Time { return testNow }
	return NewScheduleService(schedules, templates, calc, logger.Discard()), schedules, templates
}

func TestScheduleServiceSaveComputesNextRun(t *testing.T) {
	svc, _, _ := newTestScheduleService()
	ctx := context.Background()

	s, err := svc.Save(ctx, SaveScheduleRequest{TemplateID: 1, Frequency: interval.Daily, Topic: "  Go  "})
	require.NoError(t, err)
	assert.NotZero(t, s.ID)
	assert.Equal(t, "Go", s.Topic)
	assert.True(t, s.IsActive)
	assert.Equal(t, testNow.Add(24*time.Hour), s.NextRun)

	start := testNow.Add(-90 * time.Minute)
	s, err = svc.Save(ctx, SaveScheduleRequest{TemplateID: 1, Frequency: interval.Hourly, StartTime: &start})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, time.March, 5, 15, 0, 0, 0, time.UTC), s.NextRun)

	explicit := testNow.Add(3 * time.Hour)
	s, err = svc.Save(ctx, SaveScheduleRequest{TemplateID: 1, Frequency: interval.Once, NextRun: &explicit})
	require.NoError(t, err)
	assert.Equal(t, explicit, s.NextRun)
}

func TestScheduleServiceSaveUpdatesExisting(t *testing.T) {
	svc, schedules, _ := newTestScheduleService()
	ctx := context.Background()

	s, err := svc.Save(ctx, SaveScheduleRequest{TemplateID: 1, Frequency: interval.Daily})
	require.NoError(t, err)
	original := s.NextRun

	inactive := false
	_, err = svc.Save(ctx, SaveScheduleRequest{ID: s.ID, TemplateID: 1, Frequency: interval.Weekly, IsActive: &inactive})
	require.NoError(t, err)

	got := schedules.get(s.ID)
	assert.Equal(t, interval.Weekly, got.Frequency)
	assert.False(t, got.IsActive)
	assert.Equal(t, original, got.NextRun)
}

func TestScheduleServiceSaveStoresSanitizedRules(t *testing.T) {
	svc, _, _ := newTestScheduleService()

	s, err := svc.Save(context.Background(), SaveScheduleRequest{
		TemplateID:    1,
		Frequency:     interval.Custom,
		Rules:         json.RawMessage(`{"times":["09:00"]}`),
		AdvancedRules: json.RawMessage(`{"conditions":[{"type":"days_of_week","days":["friday","noday"]},{"type":"bogus"}]}`),
	})
	require.NoError(t, err)

	adv, err := s.Advanced()
	require.NoError(t, err)
	require.Len(t, adv.Conditions, 2)
	assert.Equal(t, []string{"friday"}, adv.Conditions[0].Weekdays)
	assert.Equal(t, "bogus", adv.Conditions[1].Type)
	assert.Equal(t, time.Friday, s.NextRun.Weekday())
}

func TestScheduleServiceSaveRejectsInvalidInput(t *testing.T) {
	svc, _, _ := newTestScheduleService()
	ctx := context.Background()

	data := []struct {
		name string
		req  SaveScheduleRequest
		want error
	}{
		{"missing template", SaveScheduleRequest{Frequency: interval.Daily}, ErrInvalidSchedule},
		{"unknown frequency", SaveScheduleRequest{TemplateID: 1, Frequency: "fortnightly"}, ErrInvalidFrequency},
		{"inactive template", SaveScheduleRequest{TemplateID: 2, Frequency: interval.Daily}, ErrTemplateInactive},
		{"absent template", SaveScheduleRequest{TemplateID: 9, Frequency: interval.Daily}, idb.ErrTemplateNotFound},
		{"custom without rules", SaveScheduleRequest{TemplateID: 1, Frequency: interval.Custom}, ErrInvalidSchedule},
		{"bad advanced rules", SaveScheduleRequest{TemplateID: 1, Frequency: interval.Daily, AdvancedRules: json.RawMessage(`[`)}, ErrInvalidSchedule},
	}
	for _, d := range data {
		t.Run(d.name, func(t *testing.T) {
			_, err := svc.Save(ctx, d.req)
			assert.ErrorIs(t, err, d.want)
		})
	}
}

func TestScheduleServiceCloneToggleDelete(t *testing.T) {
	svc, schedules, _ := newTestScheduleService()
	ctx := context.Background()

	s, err := svc.Save(ctx, SaveScheduleRequest{TemplateID: 1, Frequency: interval.Daily, Topic: "Go"})
	require.NoError(t, err)

	dup, err := svc.Clone(ctx, s.ID)
	require.NoError(t, err)
	assert.NotEqual(t, s.ID, dup.ID)
	assert.False(t, dup.IsActive)
	assert.Equal(t, "Go", dup.Topic)

	require.NoError(t, svc.Toggle(ctx, dup.ID, true))
	assert.True(t, schedules.get(dup.ID).IsActive)

	list, err := svc.List(ctx, true)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	require.NoError(t, svc.Delete(ctx, s.ID))
	_, err = svc.Get(ctx, s.ID)
	assert.ErrorIs(t, err, idb.ErrScheduleNotFound)
}

func TestScheduleServiceUpcoming(t *testing.T) {
	svc, schedules, _ := newTestScheduleService()
	ctx := context.Background()
	for i := 1; i <= 3; i++ {
		require.NoError(t, schedules.Create(ctx, &schedule.Schedule{
			TemplateID: 1, Frequency: interval.Daily, IsActive: true,
			NextRun: testNow.Add(time.Duration(i) * time.Hour),
		}))
	}
	require.NoError(t, schedules.Create(ctx, &schedule.Schedule{TemplateID: 1, Frequency: interval.Daily, NextRun: testNow.Add(-time.Hour), IsActive: true}))

	got, err := svc.Upcoming(ctx, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, testNow.Add(time.Hour), got[0].NextRun)
}

func TestScheduleServiceUpcomingWithBareCalculator(t *testing.T) {
	schedules := newFakeSchedules()
	svc := NewScheduleService(schedules, &fakeTemplates{}, &interval.Calculator{Location: time.UTC}, logger.Discard())
	ctx := context.Background()
	require.NoError(t, schedules.Create(ctx, &schedule.Schedule{
		TemplateID: 1, Frequency: interval.Daily, IsActive: true, NextRun: time.Now().Add(time.Hour),
	}))

	got, err := svc.Upcoming(ctx, 5)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestScheduleServicePreview(t *testing.T) {
	svc, _, _ := newTestScheduleService()

	runs, err := svc.Preview(interval.EveryMonday, nil, nil, 3)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, time.Date(2024, time.March, 11, 14, 30, 0, 0, time.UTC), runs[0])
	assert.Equal(t, runs[0].AddDate(0, 0, 14), runs[2])

	runs, err = svc.Preview(interval.Once, nil, nil, 3)
	require.NoError(t, err)
	assert.Len(t, runs, 1)

	_, err = svc.Preview("fortnightly", nil, nil, 1)
	assert.ErrorIs(t, err, ErrInvalidFrequency)

	assert.Len(t, svc.Intervals(), len(interval.Definitions()))
}
