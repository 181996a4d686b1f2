// internal/domain/history/entry.go
package history

import (
	"database/sql"
	"time"
)

// Entry records one generation attempt.
// GenerationLog is the JSON encoded session of AI calls.
type Entry struct {
	ID               int64         `db:"id" json:"id"`
	UUID             string        `db:"uuid" json:"uuid"`
	Type             Type          `db:"type" json:"type"`
	TemplateID       sql.NullInt64 `db:"template_id" json:"-"`
	ScheduleID       sql.NullInt64 `db:"schedule_id" json:"-"`
	PostID           sql.NullInt64 `db:"post_id" json:"-"`
	Status           Status        `db:"status" json:"status"`
	Prompt           string        `db:"prompt" json:"prompt"`
	GeneratedTitle   string        `db:"generated_title" json:"generated_title"`
	GeneratedContent string        `db:"generated_content" json:"-"`
	ErrorMessage     string        `db:"error_message" json:"error_message,omitempty"`
	GenerationLog    string        `db:"generation_log" json:"-"`
	CreatedAt        time.Time     `db:"created_at" json:"created_at"`
	CompletedAt      sql.NullTime  `db:"completed_at" json:"-"`
}

// Activity is a single event in the activity feed.
type Activity struct {
	ID          int64       `db:"id" json:"id"`
	HistoryUUID string      `db:"history_uuid" json:"history_uuid,omitempty"`
	EventType   EventType   `db:"event_type" json:"event_type"`
	EventStatus EventStatus `db:"event_status" json:"event_status"`
	Message     string      `db:"message" json:"message"`
	Context     string      `db:"context" json:"context,omitempty"`
	CreatedAt   time.Time   `db:"created_at" json:"created_at"`
}

const (
	DefaultPerPage = 20
	MaxPerPage     = 100
)

// Filter selects a page of history entries.
type Filter struct {
	Page       int
	PerPage    int
	Status     Status
	TemplateID int64
	Search     string
}

// Normalize clamps paging values into range.
func (f Filter) Normalize() Filter {
	if f.Page < 1 {
		f.Page = 1
	}
	switch {
	case f.PerPage == 0:
		f.PerPage = DefaultPerPage
	case f.PerPage < 1:
		f.PerPage = 1
	case f.PerPage > MaxPerPage:
		f.PerPage = MaxPerPage
	}
	return f
}

// Page is one page of history entries.
type Page struct {
	Items   []*Entry `json:"items"`
	Total   int      `json:"total"`
	Pages   int      `json:"pages"`
	Page    int      `json:"page"`
	PerPage int      `json:"per_page"`
}
