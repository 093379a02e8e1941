package accesslog

import "context"

// Repository persists result access records.
type Repository interface {
	// EnsureSchema creates the access log table if it does not exist.
	// Called once at startup; normal deployments create the table through
	// migrations and this is a no-op.
	EnsureSchema(ctx context.Context) error

	// Upsert records a view, replacing any previous record for the same
	// (item, viewer) pair.
	Upsert(ctx context.Context, rec *Record) error

	// ListByItem returns access records for an item, newest first, plus
	// the total count.
	ListByItem(ctx context.Context, itemID int64, limit, offset int) ([]*Record, int, error)
}
