package app

import (
	"context"
	"testing"
	"time"

	"ai_post_scheduler/internal/domain/interval"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRunner struct {
	ran []int64
}

func (s *stubRunner) RunNow(_ context.Context, id int64) (*GenerateResult, error) {
	s.ran = append(s.ran, id)
	return &GenerateResult{PostID: 1}, nil
}

func TestAdminServiceRequiresAdmin(t *testing.T) {
	svc, _, _ := newTestScheduleService()
	runner := &stubRunner{}
	admin := NewAdminService(svc, runner, 100)
	ctx := context.Background()

	_, err := admin.ListSchedules(ctx, 5)
	assert.ErrorIs(t, err, ErrAdminNotAuthorized)
	_, err = admin.RunSchedule(ctx, 5, 1)
	assert.ErrorIs(t, err, ErrAdminNotAuthorized)
	_, err = admin.NextRuns(5, "daily", 1)
	assert.ErrorIs(t, err, ErrAdminNotAuthorized)
	assert.Empty(t, runner.ran)

	assert.False(t, NewAdminService(svc, runner, 0).IsAdmin(0))
}

func TestAdminServiceCommands(t *testing.T) {
	svc, _, _ := newTestScheduleService()
	runner := &stubRunner{}
	admin := NewAdminService(svc, runner, 100)
	ctx := context.Background()

	_, err := svc.Save(ctx, SaveScheduleRequest{TemplateID: 1, Frequency: interval.Daily})
	require.NoError(t, err)

	list, err := admin.ListSchedules(ctx, 100)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = admin.RunSchedule(ctx, 100, list[0].ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{list[0].ID}, runner.ran)

	runs, err := admin.NextRuns(100, "hourly", 2)
	require.NoError(t, err)
	assert.Equal(t, []time.Time{testNow.Add(time.Hour), testNow.Add(2 * time.Hour)}, runs)
}
