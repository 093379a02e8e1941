package labresult

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrNotFound covers a missing item, an item owned by another patient, and
// an item with no stored payload. Callers cannot distinguish the three, so
// an attacker probing item ids learns nothing about other patients' data.
var ErrNotFound = errors.New("lab result not found")

// Repository loads result items for delivery.
type Repository interface {
	// FetchOwned returns the item only when it belongs to an order of the
	// given patient and carries a payload. Returns ErrNotFound otherwise.
	FetchOwned(ctx context.Context, itemID int64, patientID uuid.UUID) (*ResultItem, error)
}
