package repo

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/magictales/server/internal/domain"
)

// GenerationRecord is one audited generation request.
type GenerationRecord struct {
	ID          string
	Endpoint    string
	Model       string
	Status      string
	LatencyMS   int64
	ArtifactURL string
	ErrorText   string
	CreatedAt   time.Time
}

// RequestRepository persists the generation audit trail.
type RequestRepository interface {
	Record(ctx context.Context, rec *GenerationRecord) error
	ListRecent(ctx context.Context, limit int) ([]GenerationRecord, error)
}

// RequestRepositoryPG implements RequestRepository backed by PostgreSQL.
type RequestRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewRequestRepository creates a new RequestRepositoryPG.
func NewRequestRepository(pool *pgxpool.Pool) *RequestRepositoryPG {
	return &RequestRepositoryPG{pool: pool}
}

// Record inserts one audit row.
func (r *RequestRepositoryPG) Record(ctx context.Context, rec *GenerationRecord) error {
	_, err := r.pool.Exec(ctx, `
INSERT INTO generation_requests (id, endpoint, model, status, latency_ms, artifact_url, error_text, created_at)
VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6, NOW());
`,
		rec.Endpoint,
		rec.Model,
		rec.Status,
		rec.LatencyMS,
		rec.ArtifactURL,
		rec.ErrorText,
	)
	return err
}

// ListRecent returns the newest audit rows, newest first.
func (r *RequestRepositoryPG) ListRecent(ctx context.Context, limit int) ([]GenerationRecord, error) {
	rows, err := r.pool.Query(ctx, `
SELECT id, endpoint, model, status, latency_ms, artifact_url, error_text, created_at
FROM generation_requests
ORDER BY created_at DESC
LIMIT $1;
`, limit)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	defer rows.Close()

	var records []GenerationRecord
	for rows.Next() {
		var rec GenerationRecord
		if err := rows.Scan(&rec.ID, &rec.Endpoint, &rec.Model, &rec.Status, &rec.LatencyMS, &rec.ArtifactURL, &rec.ErrorText, &rec.CreatedAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

var _ RequestRepository = (*RequestRepositoryPG)(nil)
