package labresult

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) FetchOwned(ctx context.Context, itemID int64, patientID uuid.UUID) (*ResultItem, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT i.id, i.order_id, o.patient_id, p.full_name,
			i.test_type, i.status, i.result_date, i.result_file, i.remarks
		FROM lab_order_item i
		JOIN lab_order o ON o.id = i.order_id
		JOIN patient p ON p.id = o.patient_id
		WHERE i.id = $1
		  AND o.patient_id = $2
		  AND i.result_file IS NOT NULL`,
		itemID, patientID)

	var item ResultItem
	err := row.Scan(&item.ID, &item.OrderID, &item.PatientID, &item.PatientName,
		&item.TestType, &item.Status, &item.ResultDate, &item.Payload, &item.Remarks)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("fetch result item %d: %w", itemID, err)
	}

	return &item, nil
}
