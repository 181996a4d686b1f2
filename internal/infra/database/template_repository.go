package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"ai_post_scheduler/internal/domain/template"

	"github.com/jmoiron/sqlx"
)

var ErrTemplateNotFound = fmt.Errorf("template not found")

const templateColumns = `id, name, prompt_template, title_prompt, excerpt_prompt, image_prompt, voice_id,
	post_status, post_category, post_tags, post_author, is_active, created_at, updated_at`

type TemplateRepository struct {
	db *sqlx.DB
}

func NewTemplateRepository(db *sqlx.DB) *TemplateRepository {
	return &TemplateRepository{db: db}
}

func (r *TemplateRepository) Create(ctx context.Context, t *template.Template) error {
	now := dbTime(time.Now())
	if t.PostStatus == "" {
		t.PostStatus = template.PostStatusDraft
	}
	query := r.db.Rebind(`INSERT INTO templates
		(name, prompt_template, title_prompt, excerpt_prompt, image_prompt, voice_id,
		 post_status, post_category, post_tags, post_author, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`)

	err := r.db.QueryRowxContext(ctx, query, t.Name, t.PromptTemplate, t.TitlePrompt, t.ExcerptPrompt, t.ImagePrompt,
		t.VoiceID, t.PostStatus, t.PostCategory, t.PostTags, t.PostAuthor, t.IsActive, now, now).Scan(&t.ID)
	if err != nil {
		return fmt.Errorf("error creating template: %w", err)
	}
	t.CreatedAt, t.UpdatedAt = now, now
	return nil
}

func (r *TemplateRepository) GetByID(ctx context.Context, id int64) (*template.Template, error) {
	t := &template.Template{}
	query := r.db.Rebind(`SELECT ` + templateColumns + ` FROM templates WHERE id = ?`)
	if err := r.db.GetContext(ctx, t, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTemplateNotFound
		}
		return nil, fmt.Errorf("error getting template by ID: %w", err)
	}
	return t, nil
}

func (r *TemplateRepository) List(ctx context.Context, activeOnly bool) ([]*template.Template, error) {
	query := `SELECT ` + templateColumns + ` FROM templates`
	var args []interface{}
	if activeOnly {
		query += ` WHERE is_active = ?`
		args = append(args, true)
	}
	query += ` ORDER BY name ASC, id ASC`

	out := make([]*template.Template, 0)
	if err := r.db.SelectContext(ctx, &out, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("error listing templates: %w", err)
	}
	return out, nil
}

func (r *TemplateRepository) Update(ctx context.Context, t *template.Template) error {
	now := dbTime(time.Now())
	query := r.db.Rebind(`UPDATE templates
		SET name = ?, prompt_template = ?, title_prompt = ?, excerpt_prompt = ?, image_prompt = ?, voice_id = ?,
			post_status = ?, post_category = ?, post_tags = ?, post_author = ?, is_active = ?, updated_at = ?
		WHERE id = ?`)
	res, err := r.db.ExecContext(ctx, query, t.Name, t.PromptTemplate, t.TitlePrompt, t.ExcerptPrompt, t.ImagePrompt,
		t.VoiceID, t.PostStatus, t.PostCategory, t.PostTags, t.PostAuthor, t.IsActive, now, t.ID)
	if err != nil {
		return fmt.Errorf("error updating template: %w", err)
	}
	if err := expectRow(res, ErrTemplateNotFound); err != nil {
		return err
	}
	t.UpdatedAt = now
	return nil
}

func (r *TemplateRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM templates WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("error deleting template: %w", err)
	}
	return expectRow(res, ErrTemplateNotFound)
}
