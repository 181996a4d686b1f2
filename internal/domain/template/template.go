// internal/domain/template/template.go
package template

import (
	"database/sql"
	"strings"
	"time"
)

// PostStatus values a template may publish with.
const (
	PostStatusDraft   = "draft"
	PostStatusPublish = "publish"
	PostStatusPending = "pending"
)

// Template describes how a post is generated.
type Template struct {
	ID             int64         `db:"id" json:"id"`
	Name           string        `db:"name" json:"name" validate:"required,max=255"`
	PromptTemplate string        `db:"prompt_template" json:"prompt_template" validate:"required"`
	TitlePrompt    string        `db:"title_prompt" json:"title_prompt"`
	ExcerptPrompt  string        `db:"excerpt_prompt" json:"excerpt_prompt"`
	ImagePrompt    string        `db:"image_prompt" json:"image_prompt"`
	VoiceID        sql.NullInt64 `db:"voice_id" json:"-"`
	PostStatus     string        `db:"post_status" json:"post_status" validate:"omitempty,oneof=draft publish pending"`
	PostCategory   string        `db:"post_category" json:"post_category"`
	PostTags       string        `db:"post_tags" json:"post_tags"`
	PostAuthor     string        `db:"post_author" json:"post_author"`
	IsActive       bool          `db:"is_active" json:"is_active"`
	CreatedAt      time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time     `db:"updated_at" json:"updated_at"`
}

// Tags splits the comma separated tag list.
func (t *Template) Tags() []string {
	var out []string
	for _, tag := range strings.Split(t.PostTags, ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			out = append(out, tag)
		}
	}
	return out
}
