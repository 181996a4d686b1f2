package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"ai_post_scheduler/internal/domain/schedule"

	"github.com/jmoiron/sqlx"
)

var ErrScheduleNotFound = fmt.Errorf("schedule not found")

const scheduleColumns = `s.id, s.template_id, s.frequency, s.topic, s.rules, s.advanced_rules,
	s.next_run, s.last_run, s.is_active, s.status, s.created_at, s.updated_at`

type ScheduleRepository struct {
	db *sqlx.DB
}

func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

func (r *ScheduleRepository) Create(ctx context.Context, s *schedule.Schedule) error {
	now := dbTime(time.Now())
	if s.Status == "" {
		s.Status = schedule.StatusActive
	}
	query := r.db.Rebind(`INSERT INTO schedules
		(template_id, frequency, topic, rules, advanced_rules, next_run, last_run, is_active, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`)

	s.NextRun = dbTime(s.NextRun)
	s.LastRun = nullTime(s.LastRun)
	err := r.db.QueryRowxContext(ctx, query, s.TemplateID, string(s.Frequency), s.Topic, s.Rules, s.AdvancedRules,
		s.NextRun, s.LastRun, s.IsActive, string(s.Status), now, now).Scan(&s.ID)
	if err != nil {
		return fmt.Errorf("error creating schedule: %w", err)
	}
	s.CreatedAt, s.UpdatedAt = now, now
	return nil
}

func (r *ScheduleRepository) GetByID(ctx context.Context, id int64) (*schedule.Schedule, error) {
	query := r.db.Rebind(`SELECT ` + scheduleColumns + ` FROM schedules s WHERE s.id = ?`)
	s := &schedule.Schedule{}
	if err := r.db.GetContext(ctx, s, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrScheduleNotFound
		}
		return nil, fmt.Errorf("error getting schedule by ID: %w", err)
	}
	return s, nil
}

func (r *ScheduleRepository) ListAll(ctx context.Context, activeOnly bool) ([]*schedule.Due, error) {
	query := `SELECT ` + scheduleColumns + `, t.name AS template_name
		FROM schedules s JOIN templates t ON t.id = s.template_id`
	var args []interface{}
	if activeOnly {
		query += ` WHERE s.is_active = ?`
		args = append(args, true)
	}
	query += ` ORDER BY s.next_run ASC, s.id ASC`

	out := make([]*schedule.Due, 0)
	if err := r.db.SelectContext(ctx, &out, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("error listing schedules: %w", err)
	}
	return out, nil
}

func (r *ScheduleRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]*schedule.Due, error) {
	query := r.db.Rebind(`SELECT ` + scheduleColumns + `, t.name AS template_name
		FROM schedules s JOIN templates t ON t.id = s.template_id
		WHERE s.is_active = ? AND t.is_active = ? AND s.next_run <= ?
		ORDER BY s.next_run ASC, s.id ASC
		LIMIT ?`)

	out := make([]*schedule.Due, 0)
	if err := r.db.SelectContext(ctx, &out, query, true, true, dbTime(now), limit); err != nil {
		return nil, fmt.Errorf("error listing due schedules: %w", err)
	}
	return out, nil
}

func (r *ScheduleRepository) ListUpcoming(ctx context.Context, now time.Time, limit int) ([]*schedule.Due, error) {
	query := r.db.Rebind(`SELECT ` + scheduleColumns + `, t.name AS template_name
		FROM schedules s JOIN templates t ON t.id = s.template_id
		WHERE s.is_active = ? AND s.next_run > ?
		ORDER BY s.next_run ASC, s.id ASC
		LIMIT ?`)

	out := make([]*schedule.Due, 0)
	if err := r.db.SelectContext(ctx, &out, query, true, dbTime(now), limit); err != nil {
		return nil, fmt.Errorf("error listing upcoming schedules: %w", err)
	}
	return out, nil
}

func (r *ScheduleRepository) Update(ctx context.Context, s *schedule.Schedule) error {
	now := dbTime(time.Now())
	query := r.db.Rebind(`UPDATE schedules
		SET template_id = ?, frequency = ?, topic = ?, rules = ?, advanced_rules = ?,
			next_run = ?, last_run = ?, is_active = ?, status = ?, updated_at = ?
		WHERE id = ?`)

	s.NextRun = dbTime(s.NextRun)
	s.LastRun = nullTime(s.LastRun)
	res, err := r.db.ExecContext(ctx, query, s.TemplateID, string(s.Frequency), s.Topic, s.Rules, s.AdvancedRules,
		s.NextRun, s.LastRun, s.IsActive, string(s.Status), now, s.ID)
	if err != nil {
		return fmt.Errorf("error updating schedule: %w", err)
	}
	if err := expectRow(res, ErrScheduleNotFound); err != nil {
		return err
	}
	s.UpdatedAt = now
	return nil
}

func (r *ScheduleRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM schedules WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("error deleting schedule: %w", err)
	}
	return expectRow(res, ErrScheduleNotFound)
}

func (r *ScheduleRepository) SetActive(ctx context.Context, id int64, active bool) error {
	status := schedule.StatusActive
	query := r.db.Rebind(`UPDATE schedules SET is_active = ?, status = ?, updated_at = ? WHERE id = ?`)
	res, err := r.db.ExecContext(ctx, query, active, string(status), dbTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("error toggling schedule: %w", err)
	}
	return expectRow(res, ErrScheduleNotFound)
}

func (r *ScheduleRepository) UpdateLastRun(ctx context.Context, id int64, at time.Time) error {
	query := r.db.Rebind(`UPDATE schedules SET last_run = ?, updated_at = ? WHERE id = ?`)
	res, err := r.db.ExecContext(ctx, query, dbTime(at), dbTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("error updating schedule last run: %w", err)
	}
	return expectRow(res, ErrScheduleNotFound)
}

func (r *ScheduleRepository) ClaimNextRun(ctx context.Context, id int64, old, next time.Time) (bool, error) {
	query := r.db.Rebind(`UPDATE schedules SET next_run = ?, updated_at = ? WHERE id = ? AND next_run = ?`)
	res, err := r.db.ExecContext(ctx, query, dbTime(next), dbTime(time.Now()), id, dbTime(old))
	if err != nil {
		return false, fmt.Errorf("error claiming schedule: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("error claiming schedule: %w", err)
	}
	return n == 1, nil
}

func (r *ScheduleRepository) MarkFailed(ctx context.Context, id int64) error {
	query := r.db.Rebind(`UPDATE schedules SET is_active = ?, status = ?, updated_at = ? WHERE id = ?`)
	res, err := r.db.ExecContext(ctx, query, false, string(schedule.StatusFailed), dbTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("error marking schedule failed: %w", err)
	}
	return expectRow(res, ErrScheduleNotFound)
}

// expectRow maps "no rows affected" to notFound.
func expectRow(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error reading affected rows: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
