package entry

import "context"

type Repository interface {
	Insert(ctx context.Context, e Entry) error
	GetByID(ctx context.Context, id string) (Entry, bool, error)
	Delete(ctx context.Context, id string) error
	// ListRecent returns entries newest first, capped at limit (<=0 means all).
	ListRecent(ctx context.Context, limit int) ([]Entry, error)
}
