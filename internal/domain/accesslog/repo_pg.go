package accesslog

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) EnsureSchema(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS result_access_log (
    log_id BIGSERIAL PRIMARY KEY,
    lab_item_id BIGINT NOT NULL,
    patient_id UUID NOT NULL,
    patient_name TEXT NOT NULL DEFAULT '',
    viewed_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    ip_address TEXT NOT NULL DEFAULT '',
    user_agent TEXT NOT NULL DEFAULT '',
    UNIQUE (lab_item_id, patient_id)
)`)
	if err != nil {
		return fmt.Errorf("ensure result_access_log table: %w", err)
	}
	return nil
}

func (r *repoPG) Upsert(ctx context.Context, rec *Record) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO result_access_log (lab_item_id, patient_id, patient_name, ip_address, user_agent)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (lab_item_id, patient_id) DO UPDATE SET
			viewed_at = NOW(),
			patient_name = EXCLUDED.patient_name,
			ip_address = EXCLUDED.ip_address,
			user_agent = EXCLUDED.user_agent
		RETURNING log_id, viewed_at`,
		rec.ItemID, rec.PatientID, rec.PatientName, rec.IPAddress, rec.UserAgent)

	if err := row.Scan(&rec.LogID, &rec.ViewedAt); err != nil {
		return fmt.Errorf("upsert access record: %w", err)
	}
	return nil
}

const recordCols = `log_id, lab_item_id, patient_id, patient_name, viewed_at, ip_address, user_agent`

func (r *repoPG) ListByItem(ctx context.Context, itemID int64, limit, offset int) ([]*Record, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM result_access_log WHERE lab_item_id = $1`, itemID,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count access records: %w", err)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+recordCols+` FROM result_access_log
		WHERE lab_item_id = $1
		ORDER BY viewed_at DESC
		LIMIT $2 OFFSET $3`,
		itemID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("query access records: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.LogID, &rec.ItemID, &rec.PatientID, &rec.PatientName,
			&rec.ViewedAt, &rec.IPAddress, &rec.UserAgent); err != nil {
			return nil, 0, fmt.Errorf("scan access record: %w", err)
		}
		records = append(records, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate access records: %w", err)
	}

	return records, total, nil
}
