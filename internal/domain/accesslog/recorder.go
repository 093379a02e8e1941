package accesslog

import (
	"context"

	"github.com/rs/zerolog"
)

// Recorder writes access records best-effort. A failed audit write is
// logged but never surfaces to the caller: audit must not block delivery
// of a result the patient is entitled to.
type Recorder struct {
	repo   Repository
	logger zerolog.Logger
}

func NewRecorder(repo Repository, logger zerolog.Logger) *Recorder {
	return &Recorder{repo: repo, logger: logger}
}

// Record persists the access record, swallowing any storage error.
func (r *Recorder) Record(ctx context.Context, rec Record) {
	if err := r.repo.Upsert(ctx, &rec); err != nil {
		r.logger.Warn().
			Err(err).
			Int64("lab_item_id", rec.ItemID).
			Str("patient_id", rec.PatientID.String()).
			Msg("access log write failed")
		return
	}

	r.logger.Info().
		Int64("lab_item_id", rec.ItemID).
		Str("patient_id", rec.PatientID.String()).
		Str("remote_ip", rec.IPAddress).
		Msg("lab result accessed")
}

// List exposes the audit trail for staff review.
func (r *Recorder) List(ctx context.Context, itemID int64, limit, offset int) ([]*Record, int, error) {
	return r.repo.ListByItem(ctx, itemID, limit, offset)
}
