package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/senyabanana/furniture-market/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const proposalColumns = `id, request_id, master_id, price::text, deadline, description, status, created_at, updated_at`

// CreateProposal сохраняет новое предложение.
func (s *PostgresStore) CreateProposal(ctx context.Context, proposal *models.Proposal) error {
	insertQuery := `INSERT INTO proposals (id, request_id, master_id, price, deadline, description, status, created_at, updated_at)
                   VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := s.db.Exec(
		ctx,
		insertQuery,
		proposal.ID,
		proposal.RequestID,
		proposal.MasterID,
		proposal.Price.String(),
		proposal.Deadline,
		proposal.Description,
		proposal.Status,
		proposal.CreatedAt,
		proposal.UpdatedAt)
	if err != nil {
		return mapWriteError(fmt.Errorf("insert proposal: %w", err))
	}
	return nil
}

// GetProposal возвращает предложение по ID.
func (s *PostgresStore) GetProposal(ctx context.Context, proposalID string) (*models.Proposal, error) {
	query := `SELECT ` + proposalColumns + ` FROM proposals WHERE id = $1`
	proposal, err := scanProposal(s.db.QueryRow(ctx, query, proposalID))
	if err != nil {
		return nil, notFound(err)
	}
	return proposal, nil
}

// UpdateProposalStatus меняет статус предложения.
func (s *PostgresStore) UpdateProposalStatus(ctx context.Context, proposalID string, status models.ProposalStatus, updatedAt time.Time) error {
	updateQuery := `UPDATE proposals SET status = $1, updated_at = $2 WHERE id = $3`
	tag, err := s.db.Exec(ctx, updateQuery, status, updatedAt, proposalID)
	if err != nil {
		return mapWriteError(fmt.Errorf("update proposal status: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListProposalsByRequest возвращает все предложения по заявке в порядке поступления.
func (s *PostgresStore) ListProposalsByRequest(ctx context.Context, requestID string) ([]models.Proposal, error) {
	query := `
		SELECT ` + proposalColumns + `
		FROM proposals
		WHERE request_id = $1
		ORDER BY created_at, seq`
	rows, err := s.db.Query(ctx, query, requestID)
	if err != nil {
		return nil, fmt.Errorf("list proposals by request: %w", err)
	}
	return collectProposals(rows)
}

// ListProposalsByMaster возвращает предложения мастера, новые первыми.
func (s *PostgresStore) ListProposalsByMaster(ctx context.Context, masterID string, limit, offset int) ([]models.Proposal, error) {
	query := `
		SELECT ` + proposalColumns + `
		FROM proposals
		WHERE master_id = $1
		ORDER BY created_at DESC, seq DESC
		LIMIT $2 OFFSET $3`
	rows, err := s.db.Query(ctx, query, masterID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list proposals by master: %w", err)
	}
	return collectProposals(rows)
}

// FindMasterProposal возвращает предложение мастера по заявке.
func (s *PostgresStore) FindMasterProposal(ctx context.Context, requestID, masterID string) (*models.Proposal, error) {
	query := `
		SELECT ` + proposalColumns + `
		FROM proposals
		WHERE request_id = $1 AND master_id = $2
		ORDER BY (status = 'withdrawn'), seq DESC
		LIMIT 1`
	proposal, err := scanProposal(s.db.QueryRow(ctx, query, requestID, masterID))
	if err != nil {
		return nil, notFound(err)
	}
	return proposal, nil
}

func scanProposal(row pgx.Row) (*models.Proposal, error) {
	var (
		proposal models.Proposal
		price    string
	)
	err := row.Scan(
		&proposal.ID,
		&proposal.RequestID,
		&proposal.MasterID,
		&price,
		&proposal.Deadline,
		&proposal.Description,
		&proposal.Status,
		&proposal.CreatedAt,
		&proposal.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	proposal.Price, err = decimal.NewFromString(price)
	if err != nil {
		return nil, fmt.Errorf("parse price %q: %w", price, err)
	}
	return &proposal, nil
}

func collectProposals(rows pgx.Rows) ([]models.Proposal, error) {
	defer rows.Close()

	proposals := []models.Proposal{}
	for rows.Next() {
		proposal, err := scanProposal(rows)
		if err != nil {
			return nil, err
		}
		proposals = append(proposals, *proposal)
	}
	return proposals, rows.Err()
}
