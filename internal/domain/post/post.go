// internal/domain/post/post.go
package post

import (
	"context"
	"database/sql"
	"time"
)

type Status string

const (
	StatusDraft   Status = "draft"
	StatusPublish Status = "publish"
	StatusPending Status = "pending"
	StatusTrash   Status = "trash"
)

// Post is a generated article.
type Post struct {
	ID           int64         `db:"id" json:"id"`
	Title        string        `db:"title" json:"title"`
	Slug         string        `db:"slug" json:"slug"`
	Content      string        `db:"content" json:"content"`
	Excerpt      string        `db:"excerpt" json:"excerpt"`
	Status       Status        `db:"status" json:"status"`
	Category     string        `db:"category" json:"category"`
	Tags         string        `db:"tags" json:"tags"`
	Author       string        `db:"author" json:"author"`
	TemplateID   int64         `db:"template_id" json:"template_id"`
	ScheduleID   sql.NullInt64 `db:"schedule_id" json:"-"`
	FocusKeyword string        `db:"focus_keyword" json:"focus_keyword"`
	CreatedAt    time.Time     `db:"created_at" json:"created_at"`
	PublishedAt  sql.NullTime  `db:"published_at" json:"-"`
}

type Repository interface {
	Create(ctx context.Context, p *Post) error
	GetByID(ctx context.Context, id int64) (*Post, error)
	List(ctx context.Context, status Status, limit int) ([]*Post, error)
	// ResolveDraft moves a draft or pending post to status. It reports false when
	// the post was not awaiting review.
	ResolveDraft(ctx context.Context, id int64, status Status, at time.Time) (bool, error)
}
