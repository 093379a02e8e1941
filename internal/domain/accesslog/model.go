package accesslog

import (
	"time"

	"github.com/google/uuid"
)

// Record is one row of the result access log. The log keeps a single row
// per (item, viewer) pair; repeat views refresh the row in place rather
// than appending.
type Record struct {
	LogID       int64     `db:"log_id" json:"log_id"`
	ItemID      int64     `db:"lab_item_id" json:"lab_item_id"`
	PatientID   uuid.UUID `db:"patient_id" json:"patient_id"`
	PatientName string    `db:"patient_name" json:"patient_name"`
	ViewedAt    time.Time `db:"viewed_at" json:"viewed_at"`
	IPAddress   string    `db:"ip_address" json:"ip_address"`
	UserAgent   string    `db:"user_agent" json:"user_agent"`
}
