package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"ai_post_scheduler/internal/domain/voice"

	"github.com/jmoiron/sqlx"
)

var ErrVoiceNotFound = fmt.Errorf("voice not found")

type VoiceRepository struct {
	db *sqlx.DB
}

func NewVoiceRepository(db *sqlx.DB) *VoiceRepository {
	return &VoiceRepository{db: db}
}

func (r *VoiceRepository) Create(ctx context.Context, v *voice.Voice) error {
	now := dbTime(time.Now())
	query := r.db.Rebind(`INSERT INTO voices
		(name, title_prompt, content_instructions, excerpt_instructions, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id`)
	err := r.db.QueryRowxContext(ctx, query, v.Name, v.TitlePrompt, v.ContentInstructions,
		v.ExcerptInstructions, v.IsActive, now).Scan(&v.ID)
	if err != nil {
		return fmt.Errorf("error creating voice: %w", err)
	}
	v.CreatedAt = now
	return nil
}

func (r *VoiceRepository) GetByID(ctx context.Context, id int64) (*voice.Voice, error) {
	v := &voice.Voice{}
	query := r.db.Rebind(`SELECT id, name, title_prompt, content_instructions, excerpt_instructions, is_active, created_at
		FROM voices WHERE id = ?`)
	if err := r.db.GetContext(ctx, v, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrVoiceNotFound
		}
		return nil, fmt.Errorf("error getting voice by ID: %w", err)
	}
	return v, nil
}

func (r *VoiceRepository) List(ctx context.Context) ([]*voice.Voice, error) {
	out := make([]*voice.Voice, 0)
	query := `SELECT id, name, title_prompt, content_instructions, excerpt_instructions, is_active, created_at
		FROM voices ORDER BY name ASC`
	if err := r.db.SelectContext(ctx, &out, query); err != nil {
		return nil, fmt.Errorf("error listing voices: %w", err)
	}
	return out, nil
}
