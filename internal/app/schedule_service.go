// internal/app/schedule_service.go
package app

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"ai_post_scheduler/internal/domain/interval"
	"ai_post_scheduler/internal/domain/schedule"
	"ai_post_scheduler/internal/domain/template"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

var (
	ErrInvalidSchedule  = fmt.Errorf("invalid schedule")
	ErrInvalidFrequency = fmt.Errorf("invalid frequency")
	ErrTemplateInactive = fmt.Errorf("template is not active")
)

// SaveScheduleRequest creates a schedule when ID is zero and updates it otherwise.
// NextRun wins over StartTime; without either the next run is computed from now.
type SaveScheduleRequest struct {
	ID            int64              `json:"id"`
	TemplateID    int64              `json:"template_id" validate:"required,gt=0"`
	Frequency     interval.Frequency `json:"frequency" validate:"required"`
	Topic         string             `json:"topic" validate:"max=500"`
	StartTime     *time.Time         `json:"start_time,omitempty"`
	NextRun       *time.Time         `json:"next_run,omitempty"`
	Rules         json.RawMessage    `json:"rules,omitempty"`
	AdvancedRules json.RawMessage    `json:"advanced_rules,omitempty"`
	IsActive      *bool              `json:"is_active,omitempty"`
}

// ScheduleService holds the admin operations on schedules.
type ScheduleService struct {
	schedules  schedule.Repository
	templates  template.Repository
	calculator *interval.Calculator
	validate   *validator.Validate
	log        *logrus.Entry
}

func NewScheduleService(schedules schedule.Repository, templates template.Repository, calculator *interval.Calculator, log *logrus.Entry) *ScheduleService {
	return &ScheduleService{
		schedules:  schedules,
		templates:  templates,
		calculator: calculator,
		validate:   validator.New(),
		log:        log,
	}
}

func (s *ScheduleService) Save(ctx context.Context, req SaveScheduleRequest) (*schedule.Schedule, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSchedule, err)
	}
	if !interval.Valid(req.Frequency) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidFrequency, req.Frequency)
	}
	t, err := s.templates.GetByID(ctx, req.TemplateID)
	if err != nil {
		return nil, err
	}
	if !t.IsActive {
		return nil, ErrTemplateInactive
	}

	rules, err := interval.ParseRules(req.Rules)
	if err != nil {
		return nil, fmt.Errorf("%w: rules: %v", ErrInvalidSchedule, err)
	}
	if req.Frequency == interval.Custom && rules == nil {
		return nil, fmt.Errorf("%w: custom frequency needs rules", ErrInvalidSchedule)
	}
	adv, err := interval.SanitizeAdvanced(req.AdvancedRules)
	if err != nil {
		return nil, fmt.Errorf("%w: advanced rules: %v", ErrInvalidSchedule, err)
	}

	sch := &schedule.Schedule{IsActive: true, Status: schedule.StatusActive}
	if req.ID > 0 {
		if sch, err = s.schedules.GetByID(ctx, req.ID); err != nil {
			return nil, err
		}
	}
	sch.TemplateID = req.TemplateID
	sch.Frequency = req.Frequency
	sch.Topic = strings.TrimSpace(req.Topic)
	sch.Rules = ""
	if rules != nil {
		sch.Rules = string(req.Rules)
	}
	sch.AdvancedRules = ""
	if adv != nil {
		b, err := json.Marshal(adv)
		if err != nil {
			return nil, fmt.Errorf("error encoding advanced rules: %w", err)
		}
		sch.AdvancedRules = string(b)
	}
	if req.IsActive != nil {
		sch.IsActive = *req.IsActive
	}

	switch {
	case req.NextRun != nil:
		sch.NextRun = *req.NextRun
	case req.ID == 0 || req.StartTime != nil:
		sch.NextRun = adv.Align(s.calculator.NextRun(req.Frequency, req.StartTime, rules))
	}

	if req.ID > 0 {
		err = s.schedules.Update(ctx, sch)
	} else {
		err = s.schedules.Create(ctx, sch)
	}
	if err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{
		"schedule_id": sch.ID,
		"frequency":   sch.Frequency,
		"next_run":    sch.NextRun,
	}).Info("Schedule saved")
	return sch, nil
}

func (s *ScheduleService) Get(ctx context.Context, id int64) (*schedule.Schedule, error) {
	return s.schedules.GetByID(ctx, id)
}

func (s *ScheduleService) List(ctx context.Context, activeOnly bool) ([]*schedule.Due, error) {
	return s.schedules.ListAll(ctx, activeOnly)
}

func (s *ScheduleService) Delete(ctx context.Context, id int64) error {
	if err := s.schedules.Delete(ctx, id); err != nil {
		return err
	}
	s.log.WithField("schedule_id", id).Info("Schedule deleted")
	return nil
}

func (s *ScheduleService) Toggle(ctx context.Context, id int64, active bool) error {
	return s.schedules.SetActive(ctx, id, active)
}

// Clone copies a schedule. The copy starts paused.
func (s *ScheduleService) Clone(ctx context.Context, id int64) (*schedule.Schedule, error) {
	src, err := s.schedules.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	dup := *src
	dup.ID = 0
	dup.IsActive = false
	dup.Status = schedule.StatusActive
	dup.LastRun.Valid = false
	if err := s.schedules.Create(ctx, &dup); err != nil {
		return nil, err
	}
	return &dup, nil
}

// Upcoming lists the next active schedules to run.
func (s *ScheduleService) Upcoming(ctx context.Context, limit int) ([]*schedule.Due, error) {
	if limit <= 0 {
		limit = 5
	}
	return s.schedules.ListUpcoming(ctx, s.calculator.CurrentTime(), limit)
}

// Intervals lists every supported frequency.
func (s *ScheduleService) Intervals() []interval.Definition {
	return interval.Definitions()
}

// Preview returns the next count runs of a frequency starting after from.
func (s *ScheduleService) Preview(f interval.Frequency, from *time.Time, rawRules []byte, count int) ([]time.Time, error) {
	if !interval.Valid(f) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidFrequency, f)
	}
	rules, err := interval.ParseRules(rawRules)
	if err != nil {
		return nil, fmt.Errorf("%w: rules: %v", ErrInvalidSchedule, err)
	}
	if count <= 0 {
		count = 1
	}
	out := make([]time.Time, 0, count)
	next := s.calculator.NextRun(f, from, rules)
	out = append(out, next)
	for len(out) < count && f != interval.Once {
		next = s.calculator.Step(f, next, rules)
		out = append(out, next)
	}
	return out, nil
}
