package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/facegate/facegate/internal/storage"
)

// FeedbackRepository provides PostgreSQL-backed feedback storage. The log
// is append-only; reads exist for offline threshold calibration.
type FeedbackRepository struct {
	pool *Pool
}

func NewFeedbackRepository(pool *Pool) *FeedbackRepository {
	return &FeedbackRepository{pool: pool}
}

func (r *FeedbackRepository) Append(ctx context.Context, rec *storage.FeedbackRecord) error {
	var metadata []byte
	if rec.Metadata != nil {
		var err error
		metadata, err = json.Marshal(rec.Metadata)
		if err != nil {
			return fmt.Errorf("marshal feedback metadata: %w", err)
		}
	}

	var correct sql.NullBool
	if rec.Correct != nil {
		correct = sql.NullBool{Bool: *rec.Correct, Valid: true}
	}

	query := `
		INSERT INTO recognition_feedback
			(id, employee_id, predicted_id, confidence, correct, action, user_agent, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.pool.Exec(ctx, query,
		rec.ID, rec.EmployeeID, rec.PredictedID, rec.Confidence,
		correct, rec.Action, rec.UserAgent, metadata, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert feedback record: %w", err)
	}
	return nil
}

// ListByEmployee returns the most recent feedback entries for one employee.
func (r *FeedbackRepository) ListByEmployee(ctx context.Context, employeeID string, limit int) ([]storage.FeedbackRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, employee_id, predicted_id, confidence, correct, action, user_agent, metadata, created_at
		FROM recognition_feedback
		WHERE employee_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, employeeID, limit)
	if err != nil {
		return nil, fmt.Errorf("query feedback records: %w", err)
	}
	defer rows.Close()

	var records []storage.FeedbackRecord
	for rows.Next() {
		var rec storage.FeedbackRecord
		var correct sql.NullBool
		var metadata []byte

		if err := rows.Scan(
			&rec.ID,
			&rec.EmployeeID,
			&rec.PredictedID,
			&rec.Confidence,
			&correct,
			&rec.Action,
			&rec.UserAgent,
			&metadata,
			&rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan feedback record: %w", err)
		}

		if correct.Valid {
			v := correct.Bool
			rec.Correct = &v
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &rec.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal feedback metadata: %w", err)
			}
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate feedback records: %w", err)
	}
	return records, nil
}

// Verify interface compliance
var _ storage.FeedbackStore = (*FeedbackRepository)(nil)
