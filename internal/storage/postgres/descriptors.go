package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/facegate/facegate/internal/storage"
	"github.com/pgvector/pgvector-go"
)

// DescriptorRepository provides PostgreSQL-backed descriptor storage using
// pgvector columns.
type DescriptorRepository struct {
	pool *Pool
}

func NewDescriptorRepository(pool *Pool) *DescriptorRepository {
	return &DescriptorRepository{pool: pool}
}

// Append inserts a descriptor and evicts the employee's oldest rows beyond
// maxPerEmployee in the same transaction, so a crash between the two cannot
// leave the gallery over the cap.
func (r *DescriptorRepository) Append(ctx context.Context, d *storage.Descriptor, maxPerEmployee int) error {
	tx, err := r.pool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	vec := pgvector.NewVector(d.Vector)
	err = tx.QueryRowContext(ctx, `
		INSERT INTO face_descriptors (employee_id, embedding, version, source_hash)
		VALUES ($1, $2::vector, $3, $4)
		RETURNING id, created_at
	`, d.EmployeeID, vec, d.Version, d.SourceHash).Scan(&d.ID, &d.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert descriptor: %w", err)
	}

	if maxPerEmployee > 0 {
		_, err = tx.ExecContext(ctx, `
			DELETE FROM face_descriptors
			WHERE employee_id = $1
			AND id NOT IN (
				SELECT id FROM face_descriptors
				WHERE employee_id = $1
				ORDER BY created_at DESC, id DESC
				LIMIT $2
			)
		`, d.EmployeeID, maxPerEmployee)
		if err != nil {
			return fmt.Errorf("evict old descriptors: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit descriptor append: %w", err)
	}
	return nil
}

func (r *DescriptorRepository) ListActive(ctx context.Context) ([]storage.Descriptor, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT d.id, d.employee_id, d.embedding, d.version, d.source_hash, d.created_at
		FROM face_descriptors d
		JOIN employees e ON e.id = d.employee_id
		WHERE e.active
		ORDER BY d.created_at, d.id
	`)
	if err != nil {
		return nil, fmt.Errorf("query active descriptors: %w", err)
	}
	defer rows.Close()

	return scanDescriptors(rows)
}

func (r *DescriptorRepository) ListByEmployee(ctx context.Context, employeeID string) ([]storage.Descriptor, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, employee_id, embedding, version, source_hash, created_at
		FROM face_descriptors
		WHERE employee_id = $1
		ORDER BY created_at, id
	`, employeeID)
	if err != nil {
		return nil, fmt.Errorf("query employee descriptors: %w", err)
	}
	defer rows.Close()

	return scanDescriptors(rows)
}

func (r *DescriptorRepository) CountByEmployee(ctx context.Context, employeeID string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM face_descriptors WHERE employee_id = $1", employeeID).
		Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count descriptors: %w", err)
	}
	return count, nil
}

func scanDescriptors(rows *sql.Rows) ([]storage.Descriptor, error) {
	var descriptors []storage.Descriptor

	for rows.Next() {
		var d storage.Descriptor
		var vec pgvector.Vector

		if err := rows.Scan(
			&d.ID,
			&d.EmployeeID,
			&vec,
			&d.Version,
			&d.SourceHash,
			&d.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan descriptor: %w", err)
		}

		d.Vector = vec.Slice()
		descriptors = append(descriptors, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate descriptors: %w", err)
	}

	return descriptors, nil
}

// Verify interface compliance
var _ storage.DescriptorStore = (*DescriptorRepository)(nil)
