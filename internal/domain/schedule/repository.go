package schedule

import (
	"context"
	"time"
)

// Repository defines the operations for persisting and retrieving schedules.
type Repository interface {
	Create(ctx context.Context, s *Schedule) error
	GetByID(ctx context.Context, id int64) (*Schedule, error)
	ListAll(ctx context.Context, activeOnly bool) ([]*Due, error)
	// ListDue returns active schedules whose next_run is at or before now, oldest first.
	ListDue(ctx context.Context, now time.Time, limit int) ([]*Due, error)
	ListUpcoming(ctx context.Context, now time.Time, limit int) ([]*Due, error)
	Update(ctx context.Context, s *Schedule) error
	Delete(ctx context.Context, id int64) error
	SetActive(ctx context.Context, id int64, active bool) error
	UpdateLastRun(ctx context.Context, id int64, at time.Time) error
	// ClaimNextRun moves next_run from old to next only if no one else moved it first.
	ClaimNextRun(ctx context.Context, id int64, old, next time.Time) (bool, error)
	MarkFailed(ctx context.Context, id int64) error
}
