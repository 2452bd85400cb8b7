package repository

import (
	"context"
	"errors"
	"time"

	"github.com/senyabanana/furniture-market/internal/models"
)

var (
	// ErrNotFound возвращается, когда заявка или предложение не найдены.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateProposal - у мастера уже есть не отозванное предложение по заявке.
	ErrDuplicateProposal = errors.New("master already has an active proposal on this request")
	// ErrAlreadyAccepted - по заявке уже принято другое предложение.
	ErrAlreadyAccepted = errors.New("request already has an accepted proposal")
)

// RequestRepository - интерфейс для работы с заявками.
type RequestRepository interface {
	CreateRequest(ctx context.Context, req *models.Request) error
	GetRequest(ctx context.Context, requestID string) (*models.Request, error)
	UpdateRequestStatus(ctx context.Context, requestID string, status models.RequestStatus, updatedAt time.Time) error
	ListRequestsByOwner(ctx context.Context, ownerID string, limit, offset int) ([]models.Request, error)
	ListRequestsByRegion(ctx context.Context, region string, statuses []models.RequestStatus, limit, offset int) ([]models.Request, error)
}

// ProposalRepository - интерфейс для работы с предложениями.
type ProposalRepository interface {
	CreateProposal(ctx context.Context, proposal *models.Proposal) error
	GetProposal(ctx context.Context, proposalID string) (*models.Proposal, error)
	UpdateProposalStatus(ctx context.Context, proposalID string, status models.ProposalStatus, updatedAt time.Time) error
	ListProposalsByRequest(ctx context.Context, requestID string) ([]models.Proposal, error)
	ListProposalsByMaster(ctx context.Context, masterID string, limit, offset int) ([]models.Proposal, error)
	// FindMasterProposal возвращает предложение мастера по заявке. Не отозванное
	// предложение имеет приоритет над отозванными.
	FindMasterProposal(ctx context.Context, requestID, masterID string) (*models.Proposal, error)
}

// Store объединяет хранилища заявок и предложений.
type Store interface {
	RequestRepository
	ProposalRepository

	// WithinRequestLock выполняет fn в транзакции, удерживая блокировку заявки.
	// Все изменения внутри fn применяются вместе или не применяются вовсе.
	// Для неизвестной заявки возвращает ErrNotFound, не вызывая fn.
	WithinRequestLock(ctx context.Context, requestID string, fn func(tx Store) error) error
}
