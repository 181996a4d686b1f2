// internal/domain/voice/voice.go
package voice

import (
	"context"
	"time"
)

// Voice carries tone instructions applied to every prompt of a template.
type Voice struct {
	ID                  int64     `db:"id" json:"id"`
	Name                string    `db:"name" json:"name" validate:"required,max=255"`
	TitlePrompt         string    `db:"title_prompt" json:"title_prompt"`
	ContentInstructions string    `db:"content_instructions" json:"content_instructions"`
	ExcerptInstructions string    `db:"excerpt_instructions" json:"excerpt_instructions"`
	IsActive            bool      `db:"is_active" json:"is_active"`
	CreatedAt           time.Time `db:"created_at" json:"created_at"`
}

type Repository interface {
	Create(ctx context.Context, v *Voice) error
	GetByID(ctx context.Context, id int64) (*Voice, error)
	List(ctx context.Context) ([]*Voice, error)
}
