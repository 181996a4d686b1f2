package template

import "context"

// Repository defines the operations for persisting and retrieving templates.
type Repository interface {
	Create(ctx context.Context, t *Template) error
	GetByID(ctx context.Context, id int64) (*Template, error)
	List(ctx context.Context, activeOnly bool) ([]*Template, error)
	Update(ctx context.Context, t *Template) error
	Delete(ctx context.Context, id int64) error
}
