package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/senyabanana/furniture-market/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/lib/pq"
)

const requestColumns = `id, owner_id, title, description, category, region, photos, status, created_at, updated_at`

// CreateRequest сохраняет новую заявку.
func (s *PostgresStore) CreateRequest(ctx context.Context, req *models.Request) error {
	insertQuery := `INSERT INTO requests (id, owner_id, title, description, category, region, photos, status, created_at, updated_at)
                   VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := s.db.Exec(
		ctx,
		insertQuery,
		req.ID,
		req.OwnerID,
		req.Title,
		req.Description,
		req.Category,
		req.Region,
		pq.Array(req.Photos),
		req.Status,
		req.CreatedAt,
		req.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert request: %w", err)
	}
	return nil
}

// GetRequest возвращает заявку по ID.
func (s *PostgresStore) GetRequest(ctx context.Context, requestID string) (*models.Request, error) {
	query := `SELECT ` + requestColumns + ` FROM requests WHERE id = $1`
	req, err := scanRequest(s.db.QueryRow(ctx, query, requestID))
	if err != nil {
		return nil, notFound(err)
	}
	return req, nil
}

// UpdateRequestStatus меняет статус заявки.
func (s *PostgresStore) UpdateRequestStatus(ctx context.Context, requestID string, status models.RequestStatus, updatedAt time.Time) error {
	updateQuery := `UPDATE requests SET status = $1, updated_at = $2 WHERE id = $3`
	tag, err := s.db.Exec(ctx, updateQuery, status, updatedAt, requestID)
	if err != nil {
		return fmt.Errorf("update request status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListRequestsByOwner возвращает заявки клиента, новые первыми.
func (s *PostgresStore) ListRequestsByOwner(ctx context.Context, ownerID string, limit, offset int) ([]models.Request, error) {
	query := `
		SELECT ` + requestColumns + `
		FROM requests
		WHERE owner_id = $1
		ORDER BY created_at DESC, seq DESC
		LIMIT $2 OFFSET $3`
	rows, err := s.db.Query(ctx, query, ownerID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list requests by owner: %w", err)
	}
	return collectRequests(rows)
}

// ListRequestsByRegion возвращает заявки региона с указанными статусами, новые первыми.
func (s *PostgresStore) ListRequestsByRegion(ctx context.Context, region string, statuses []models.RequestStatus, limit, offset int) ([]models.Request, error) {
	statusStrings := make([]string, len(statuses))
	for i, status := range statuses {
		statusStrings[i] = string(status)
	}
	query := `
		SELECT ` + requestColumns + `
		FROM requests
		WHERE lower(region) = lower($1) AND status = ANY($2)
		ORDER BY created_at DESC, seq DESC
		LIMIT $3 OFFSET $4`
	rows, err := s.db.Query(ctx, query, region, pq.Array(statusStrings), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list requests by region: %w", err)
	}
	return collectRequests(rows)
}

func scanRequest(row pgx.Row) (*models.Request, error) {
	var req models.Request
	err := row.Scan(
		&req.ID,
		&req.OwnerID,
		&req.Title,
		&req.Description,
		&req.Category,
		&req.Region,
		&req.Photos,
		&req.Status,
		&req.CreatedAt,
		&req.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if req.Photos == nil {
		req.Photos = []string{}
	}
	return &req, nil
}

func collectRequests(rows pgx.Rows) ([]models.Request, error) {
	defer rows.Close()

	requests := []models.Request{}
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, *req)
	}
	return requests, rows.Err()
}
