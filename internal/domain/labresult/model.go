package labresult

import (
	"time"

	"github.com/google/uuid"
)

// Lab order lifecycle statuses.
const (
	StatusPending    = "pending"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
)

// LabOrder groups the items requested for a patient in one lab visit.
type LabOrder struct {
	ID        int64     `db:"id" json:"id"`
	PatientID uuid.UUID `db:"patient_id" json:"patient_id"`
	OrderDate time.Time `db:"order_date" json:"order_date"`
	Status    string    `db:"status" json:"status"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// ResultItem is a single test within an order, joined with the owning
// order's patient for ownership checks and filename generation. Payload is
// the raw uploaded result document; ResultDate is set iff a payload exists.
type ResultItem struct {
	ID          int64      `db:"id" json:"id"`
	OrderID     int64      `db:"order_id" json:"order_id"`
	PatientID   uuid.UUID  `db:"patient_id" json:"patient_id"`
	PatientName string     `db:"patient_name" json:"patient_name"`
	TestType    string     `db:"test_type" json:"test_type"`
	Status      string     `db:"status" json:"status"`
	ResultDate  *time.Time `db:"result_date" json:"result_date,omitempty"`
	Payload     []byte     `db:"result_file" json:"-"`
	Remarks     *string    `db:"remarks" json:"remarks,omitempty"`
}
