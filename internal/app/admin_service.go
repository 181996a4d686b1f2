package app

import (
	"context"
	"fmt"
	"time"

	"ai_post_scheduler/internal/domain/interval"
	"ai_post_scheduler/internal/domain/schedule"
)

// Custom application-level errors for admin service
var ErrAdminNotAuthorized = fmt.Errorf("performing user is not authorized as an admin")

// ScheduleRunner runs a schedule outside its timetable.
type ScheduleRunner interface {
	RunNow(ctx context.Context, scheduleID int64) (*GenerateResult, error)
}

// AdminService gates chat commands behind the configured admin ID.
type AdminService struct {
	schedules       *ScheduleService
	runner          ScheduleRunner
	adminTelegramID int64
}

func NewAdminService(schedules *ScheduleService, runner ScheduleRunner, adminID int64) *AdminService {
	return &AdminService{
		schedules:       schedules,
		runner:          runner,
		adminTelegramID: adminID,
	}
}

// IsAdmin reports whether the sender may use admin commands.
func (s *AdminService) IsAdmin(senderID int64) bool {
	return s.adminTelegramID != 0 && senderID == s.adminTelegramID
}

// ListSchedules returns every schedule, active ones included with paused ones.
func (s *AdminService) ListSchedules(ctx context.Context, performingAdminID int64) ([]*schedule.Due, error) {
	if !s.IsAdmin(performingAdminID) {
		return nil, ErrAdminNotAuthorized
	}
	return s.schedules.List(ctx, false)
}

// RunSchedule generates a post for a schedule right away.
func (s *AdminService) RunSchedule(ctx context.Context, performingAdminID int64, scheduleID int64) (*GenerateResult, error) {
	if !s.IsAdmin(performingAdminID) {
		return nil, ErrAdminNotAuthorized
	}
	return s.runner.RunNow(ctx, scheduleID)
}

// NextRuns previews the next runs of a frequency starting from now.
func (s *AdminService) NextRuns(performingAdminID int64, frequency string, count int) ([]time.Time, error) {
	if !s.IsAdmin(performingAdminID) {
		return nil, ErrAdminNotAuthorized
	}
	return s.schedules.Preview(interval.Frequency(frequency), nil, nil, count)
}
