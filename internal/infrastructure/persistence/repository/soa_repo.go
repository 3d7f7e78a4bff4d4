package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/payops/payment-workflow/internal/application/port"
	"github.com/payops/payment-workflow/internal/domain/entity"
	"github.com/payops/payment-workflow/pkg/database"
)

// SoaRepository implements port.SoaRepository on sqlite
type SoaRepository struct {
	db     *database.DB
	logger *zap.Logger
}

// NewSoaRepository creates a new SOA repository
func NewSoaRepository(db *database.DB, logger *zap.Logger) port.SoaRepository {
	return &SoaRepository{db: db, logger: logger}
}

// Create appends a new SOA version. The unique (request_id, version_number)
// constraint backs up the max+1 computation done in the service transaction.
func (r *SoaRepository) Create(ctx context.Context, version *entity.SOAVersion) error {
	query := `
		INSERT INTO soa_versions (
			id, request_id, version_number, document_reference,
			source, uploaded_at, uploaded_by
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecutorFrom(ctx).ExecContext(ctx, query,
		version.ID.String(),
		version.RequestID.String(),
		version.VersionNumber,
		version.DocumentReference,
		version.Source,
		version.UploadedAt,
		nullUUID(version.UploadedBy),
	)
	if err != nil {
		r.logger.Error("Failed to create SOA version",
			zap.String("request_id", version.RequestID.String()),
			zap.Int("version", version.VersionNumber),
			zap.Error(err))
		return fmt.Errorf("failed to create SOA version: %w", err)
	}
	return nil
}

// MaxVersion returns the highest version number for the request, 0 if none
func (r *SoaRepository) MaxVersion(ctx context.Context, requestID uuid.UUID) (int, error) {
	query := `SELECT COALESCE(MAX(version_number), 0) FROM soa_versions WHERE request_id = ?`

	var max int
	err := r.db.ExecutorFrom(ctx).QueryRowContext(ctx, query, requestID.String()).Scan(&max)
	if err != nil {
		return 0, fmt.Errorf("failed to get max SOA version: %w", err)
	}
	return max, nil
}

// ListByRequest returns all versions for the request, ascending
func (r *SoaRepository) ListByRequest(ctx context.Context, requestID uuid.UUID) ([]*entity.SOAVersion, error) {
	query := `
		SELECT id, request_id, version_number, document_reference, source, uploaded_at, uploaded_by
		FROM soa_versions
		WHERE request_id = ?
		ORDER BY version_number ASC
	`

	rows, err := r.db.ExecutorFrom(ctx).QueryContext(ctx, query, requestID.String())
	if err != nil {
		r.logger.Error("Failed to list SOA versions",
			zap.String("request_id", requestID.String()), zap.Error(err))
		return nil, fmt.Errorf("failed to list SOA versions: %w", err)
	}
	defer rows.Close()

	var versions []*entity.SOAVersion
	for rows.Next() {
		version, err := scanSoaVersion(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan SOA version: %w", err)
		}
		versions = append(versions, version)
	}
	return versions, rows.Err()
}

// GetByID retrieves one SOA version, (nil, nil) when unknown
func (r *SoaRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.SOAVersion, error) {
	query := `
		SELECT id, request_id, version_number, document_reference, source, uploaded_at, uploaded_by
		FROM soa_versions
		WHERE id = ?
	`

	row := r.db.ExecutorFrom(ctx).QueryRowContext(ctx, query, id.String())
	version, err := scanSoaVersion(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get SOA version: %w", err)
	}
	return version, nil
}

// Summaries computes the live summary for every request in the batch
func (r *SoaRepository) Summaries(ctx context.Context, batchID uuid.UUID) ([]*entity.SoaSummary, error) {
	query := `
		SELECT pr.id,
			COALESCE(MAX(sv.version_number), 0),
			MAX(sv.uploaded_at)
		FROM payment_requests pr
		LEFT JOIN soa_versions sv ON sv.request_id = pr.id
		WHERE pr.batch_id = ?
		GROUP BY pr.id
		ORDER BY pr.rowid ASC
	`

	rows, err := r.db.ExecutorFrom(ctx).QueryContext(ctx, query, batchID.String())
	if err != nil {
		r.logger.Error("Failed to compute SOA summaries",
			zap.String("batch_id", batchID.String()), zap.Error(err))
		return nil, fmt.Errorf("failed to compute SOA summaries: %w", err)
	}
	defer rows.Close()

	var summaries []*entity.SoaSummary
	for rows.Next() {
		var (
			summary    entity.SoaSummary
			requestID  string
			uploadedAt sql.NullTime
		)
		if err := rows.Scan(&requestID, &summary.LatestVersion, &uploadedAt); err != nil {
			return nil, fmt.Errorf("failed to scan SOA summary: %w", err)
		}
		if summary.RequestID, err = uuid.Parse(requestID); err != nil {
			return nil, err
		}
		summary.HasSoa = summary.LatestVersion > 0
		if uploadedAt.Valid {
			t := uploadedAt.Time
			summary.LatestUploadedAt = &t
		}
		summaries = append(summaries, &summary)
	}
	return summaries, rows.Err()
}

// HasGenerated reports whether the batch already has a generated SOA version
func (r *SoaRepository) HasGenerated(ctx context.Context, batchID uuid.UUID) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM soa_versions sv
			JOIN payment_requests pr ON pr.id = sv.request_id
			WHERE pr.batch_id = ? AND sv.source = ?
		)
	`

	var exists bool
	err := r.db.ExecutorFrom(ctx).QueryRowContext(ctx, query, batchID.String(), entity.SoaSourceGenerated).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check generated SOA: %w", err)
	}
	return exists, nil
}

func scanSoaVersion(scan func(dest ...interface{}) error) (*entity.SOAVersion, error) {
	var (
		version       entity.SOAVersion
		id, requestID string
		uploadedBy    sql.NullString
	)

	err := scan(&id, &requestID, &version.VersionNumber, &version.DocumentReference,
		&version.Source, &version.UploadedAt, &uploadedBy)
	if err != nil {
		return nil, err
	}

	if version.ID, err = uuid.Parse(id); err != nil {
		return nil, err
	}
	if version.RequestID, err = uuid.Parse(requestID); err != nil {
		return nil, err
	}
	if version.UploadedBy, err = parseNullUUID(uploadedBy); err != nil {
		return nil, err
	}
	return &version, nil
}

// Verify interface compliance
var _ port.SoaRepository = (*SoaRepository)(nil)
