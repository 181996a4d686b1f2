package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"ai_post_scheduler/internal/domain/history"

	"github.com/jmoiron/sqlx"
)

var ErrHistoryNotFound = fmt.Errorf("history entry not found")

const historyColumns = `id, uuid, type, template_id, schedule_id, post_id, status, prompt,
	generated_title, generated_content, error_message, generation_log, created_at, completed_at`

type HistoryRepository struct {
	db *sqlx.DB
}

func NewHistoryRepository(db *sqlx.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

func (r *HistoryRepository) Create(ctx context.Context, e *history.Entry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	e.CreatedAt = dbTime(e.CreatedAt)
	query := r.db.Rebind(`INSERT INTO history
		(uuid, type, template_id, schedule_id, post_id, status, prompt, generated_title,
		 generated_content, error_message, generation_log, created_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`)
	err := r.db.QueryRowxContext(ctx, query, e.UUID, string(e.Type), e.TemplateID, e.ScheduleID, e.PostID,
		string(e.Status), e.Prompt, e.GeneratedTitle, e.GeneratedContent, e.ErrorMessage, e.GenerationLog,
		e.CreatedAt, nullTime(e.CompletedAt)).Scan(&e.ID)
	if err != nil {
		return fmt.Errorf("error creating history entry: %w", err)
	}
	return nil
}

func (r *HistoryRepository) Update(ctx context.Context, e *history.Entry) error {
	query := r.db.Rebind(`UPDATE history
		SET template_id = ?, schedule_id = ?, post_id = ?, status = ?, prompt = ?, generated_title = ?,
			generated_content = ?, error_message = ?, generation_log = ?, completed_at = ?
		WHERE id = ?`)
	res, err := r.db.ExecContext(ctx, query, e.TemplateID, e.ScheduleID, e.PostID, string(e.Status), e.Prompt,
		e.GeneratedTitle, e.GeneratedContent, e.ErrorMessage, e.GenerationLog, nullTime(e.CompletedAt), e.ID)
	if err != nil {
		return fmt.Errorf("error updating history entry: %w", err)
	}
	return expectRow(res, ErrHistoryNotFound)
}

func (r *HistoryRepository) GetByID(ctx context.Context, id int64) (*history.Entry, error) {
	return r.getOne(ctx, `id = ?`, id)
}

func (r *HistoryRepository) GetByUUID(ctx context.Context, uuid string) (*history.Entry, error) {
	return r.getOne(ctx, `uuid = ?`, uuid)
}

func (r *HistoryRepository) getOne(ctx context.Context, where string, arg interface{}) (*history.Entry, error) {
	e := &history.Entry{}
	query := r.db.Rebind(`SELECT ` + historyColumns + ` FROM history WHERE ` + where)
	if err := r.db.GetContext(ctx, e, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrHistoryNotFound
		}
		return nil, fmt.Errorf("error getting history entry: %w", err)
	}
	return e, nil
}

// List returns one page of entries, newest first.
func (r *HistoryRepository) List(ctx context.Context, f history.Filter) (*history.Page, error) {
	f = f.Normalize()

	var (
		conds []string
		args  []interface{}
	)
	if f.Status != "" {
		conds = append(conds, `status = ?`)
		args = append(args, string(f.Status))
	}
	if f.TemplateID > 0 {
		conds = append(conds, `template_id = ?`)
		args = append(args, f.TemplateID)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		like := "%" + s + "%"
		conds = append(conds, `(generated_title LIKE ? OR prompt LIKE ?)`)
		args = append(args, like, like)
	}
	where := ""
	if len(conds) > 0 {
		where = ` WHERE ` + strings.Join(conds, ` AND `)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, r.db.Rebind(`SELECT COUNT(*) FROM history`+where), args...); err != nil {
		return nil, fmt.Errorf("error counting history entries: %w", err)
	}

	items := make([]*history.Entry, 0)
	query := r.db.Rebind(`SELECT ` + historyColumns + ` FROM history` + where +
		` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`)
	pageArgs := append(append([]interface{}{}, args...), f.PerPage, (f.Page-1)*f.PerPage)
	if err := r.db.SelectContext(ctx, &items, query, pageArgs...); err != nil {
		return nil, fmt.Errorf("error listing history entries: %w", err)
	}

	return &history.Page{
		Items:   items,
		Total:   total,
		Pages:   (total + f.PerPage - 1) / f.PerPage,
		Page:    f.Page,
		PerPage: f.PerPage,
	}, nil
}

func (r *HistoryRepository) RecordActivity(ctx context.Context, a *history.Activity) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	a.CreatedAt = dbTime(a.CreatedAt)
	query := r.db.Rebind(`INSERT INTO activity (history_uuid, event_type, event_status, message, context, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id`)
	err := r.db.QueryRowxContext(ctx, query, a.HistoryUUID, string(a.EventType), string(a.EventStatus),
		a.Message, a.Context, a.CreatedAt).Scan(&a.ID)
	if err != nil {
		return fmt.Errorf("error recording activity: %w", err)
	}
	return nil
}

func (r *HistoryRepository) ListActivity(ctx context.Context, limit int) ([]*history.Activity, error) {
	if limit <= 0 {
		limit = history.DefaultPerPage
	}
	out := make([]*history.Activity, 0)
	query := r.db.Rebind(`SELECT id, history_uuid, event_type, event_status, message, context, created_at
		FROM activity ORDER BY created_at DESC, id DESC LIMIT ?`)
	if err := r.db.SelectContext(ctx, &out, query, limit); err != nil {
		return nil, fmt.Errorf("error listing activity: %w", err)
	}
	return out, nil
}
