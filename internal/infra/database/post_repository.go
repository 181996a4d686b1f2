package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"ai_post_scheduler/internal/domain/post"

	"github.com/jmoiron/sqlx"
)

var ErrPostNotFound = fmt.Errorf("post not found")

const postColumns = `id, title, slug, content, excerpt, status, category, tags, author,
	template_id, schedule_id, focus_keyword, created_at, published_at`

type PostRepository struct {
	db *sqlx.DB
}

func NewPostRepository(db *sqlx.DB) *PostRepository {
	return &PostRepository{db: db}
}

func (r *PostRepository) Create(ctx context.Context, p *post.Post) error {
	now := dbTime(time.Now())
	if p.Status == post.StatusPublish && !p.PublishedAt.Valid {
		p.PublishedAt = sql.NullTime{Time: now, Valid: true}
	}
	query := r.db.Rebind(`INSERT INTO posts
		(title, slug, content, excerpt, status, category, tags, author,
		 template_id, schedule_id, focus_keyword, created_at, published_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`)
	err := r.db.QueryRowxContext(ctx, query, p.Title, p.Slug, p.Content, p.Excerpt, string(p.Status), p.Category,
		p.Tags, p.Author, p.TemplateID, p.ScheduleID, p.FocusKeyword, now, nullTime(p.PublishedAt)).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("error creating post: %w", err)
	}
	p.CreatedAt = now
	return nil
}

func (r *PostRepository) GetByID(ctx context.Context, id int64) (*post.Post, error) {
	p := &post.Post{}
	if err := r.db.GetContext(ctx, p, r.db.Rebind(`SELECT `+postColumns+` FROM posts WHERE id = ?`), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPostNotFound
		}
		return nil, fmt.Errorf("error getting post by ID: %w", err)
	}
	return p, nil
}

// List returns the newest posts, optionally filtered by status.
func (r *PostRepository) List(ctx context.Context, status post.Status, limit int) ([]*post.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts`
	var args []interface{}
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	out := make([]*post.Post, 0)
	if err := r.db.SelectContext(ctx, &out, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("error listing posts: %w", err)
	}
	return out, nil
}

func (r *PostRepository) ResolveDraft(ctx context.Context, id int64, status post.Status, at time.Time) (bool, error) {
	var published sql.NullTime
	if status == post.StatusPublish {
		published = sql.NullTime{Time: dbTime(at), Valid: true}
	}
	query := r.db.Rebind(`UPDATE posts SET status = ?, published_at = ? WHERE id = ? AND status IN (?, ?)`)
	res, err := r.db.ExecContext(ctx, query, string(status), published, id,
		string(post.StatusDraft), string(post.StatusPending))
	if err != nil {
		return false, fmt.Errorf("error resolving post draft: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("error resolving post draft: %w", err)
	}
	return n == 1, nil
}
