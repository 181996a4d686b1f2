// internal/domain/history/repository.go
package history

import "context"

// Repository defines operations for history entries and the activity feed.
type Repository interface {
	Create(ctx context.Context, e *Entry) error
	Update(ctx context.Context, e *Entry) error
	GetByID(ctx context.Context, id int64) (*Entry, error)
	GetByUUID(ctx context.Context, uuid string) (*Entry, error)
	List(ctx context.Context, f Filter) (*Page, error)

	RecordActivity(ctx context.Context, a *Activity) error
	ListActivity(ctx context.Context, limit int) ([]*Activity, error)
}
