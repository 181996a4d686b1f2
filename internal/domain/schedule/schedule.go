// internal/domain/schedule/schedule.go
package schedule

import (
	"database/sql"
	"time"

	"ai_post_scheduler/internal/domain/interval"
)

// Status is the lifecycle state of a schedule.
type Status string

const (
	StatusActive    Status = "active"
	StatusFailed    Status = "failed"
	StatusCompleted Status = "completed"
)

// Schedule runs a template on a recurring frequency.
// Rules and AdvancedRules hold raw JSON and may be empty.
type Schedule struct {
	ID            int64              `db:"id" json:"id"`
	TemplateID    int64              `db:"template_id" json:"template_id" validate:"required,gt=0"`
	Frequency     interval.Frequency `db:"frequency" json:"frequency" validate:"required"`
	Topic         string             `db:"topic" json:"topic" validate:"max=500"`
	Rules         string             `db:"rules" json:"rules,omitempty"`
	AdvancedRules string             `db:"advanced_rules" json:"advanced_rules,omitempty"`
	NextRun       time.Time          `db:"next_run" json:"next_run"`
	LastRun       sql.NullTime       `db:"last_run" json:"-"`
	IsActive      bool               `db:"is_active" json:"is_active"`
	Status        Status             `db:"status" json:"status"`
	CreatedAt     time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time          `db:"updated_at" json:"updated_at"`
}

// Due is a schedule ready to run, with the name of its template.
type Due struct {
	Schedule
	TemplateName string `db:"template_name" json:"template_name"`
}

// IsOnce reports whether the schedule is removed after its single run.
func (s *Schedule) IsOnce() bool {
	return s.Frequency == interval.Once
}

// CustomRules decodes the custom frequency rules.
func (s *Schedule) CustomRules() (*interval.Rules, error) {
	return interval.ParseRules([]byte(s.Rules))
}

// Advanced decodes the advanced rules.
func (s *Schedule) Advanced() (*interval.AdvancedRules, error) {
	return interval.SanitizeAdvanced([]byte(s.AdvancedRules))
}
