package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/senyabanana/furniture-market/internal/events"
	"github.com/senyabanana/furniture-market/internal/guard"
	"github.com/senyabanana/furniture-market/internal/models"
	"github.com/senyabanana/furniture-market/internal/repository"

	"github.com/google/uuid"
)

type RequestService struct {
	lifecycle
}

// NewRequestService создаёт новый экземпляр RequestService.
func NewRequestService(store repository.Store, emitter events.Emitter, logger *slog.Logger) *RequestService {
	return &RequestService{lifecycle: newLifecycle(store, emitter, logger)}
}

// CreateRequest создает новую заявку в статусе pending.
func (s *RequestService) CreateRequest(ctx context.Context, actor models.Actor, input models.RequestInput) (*models.Request, error) {
	if err := validateRequestInput(&input); err != nil {
		return nil, err
	}
	if err := guard.Check(actor, guard.CreateRequest, guard.Target{}).Err(); err != nil {
		return nil, err
	}

	now := s.now()
	photos := input.Photos
	if photos == nil {
		photos = []string{}
	}
	req := &models.Request{
		ID:          uuid.NewString(),
		OwnerID:     actor.ID,
		Title:       input.Title,
		Description: input.Description,
		Category:    input.Category,
		Region:      input.Region,
		Photos:      append([]string{}, photos...),
		Status:      models.PendingRequest,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.CreateRequest(ctx, req); err != nil {
		return nil, storeError(err, "request")
	}
	return req, nil
}

// GetRequest возвращает заявку, если пользователю можно её видеть.
func (s *RequestService) GetRequest(ctx context.Context, actor models.Actor, requestID string) (*models.Request, error) {
	if err := parseID(requestID, "request"); err != nil {
		return nil, err
	}
	req, err := s.store.GetRequest(ctx, requestID)
	if err != nil {
		return nil, storeError(err, "request")
	}
	if err := guard.Check(actor, guard.ViewRequest, guard.Target{Request: req}).Err(); err != nil {
		return nil, err
	}
	return req, nil
}

// CloseRequest закрывает заявку. Закрыть можно заявку в любом статусе,
// кроме closed.
func (s *RequestService) CloseRequest(ctx context.Context, actor models.Actor, requestID string) (*models.Request, error) {
	if err := parseID(requestID, "request"); err != nil {
		return nil, err
	}

	var closed *models.Request
	err := s.store.WithinRequestLock(ctx, requestID, func(tx repository.Store) error {
		req, err := tx.GetRequest(ctx, requestID)
		if err != nil {
			return err
		}
		if err := transitionDenied(guard.Check(actor, guard.CloseRequest, guard.Target{Request: req})); err != nil {
			return err
		}
		if err := transitionRequest(ctx, tx, req, models.ClosedRequest, s.now()); err != nil {
			return err
		}
		closed = req
		return nil
	})
	if err != nil {
		return nil, storeError(err, "request")
	}

	s.emit(ctx, models.Event{
		Type:      models.RequestClosed,
		RequestID: closed.ID,
		ActorID:   actor.ID,
		Recipient: closed.OwnerID,
	})
	return closed, nil
}

// RequestHistory возвращает историю событий заявки её владельцу или администратору.
func (s *RequestService) RequestHistory(ctx context.Context, actor models.Actor, requestID string, history events.HistoryReader) ([]models.Event, error) {
	if err := parseID(requestID, "request"); err != nil {
		return nil, err
	}
	req, err := s.store.GetRequest(ctx, requestID)
	if err != nil {
		return nil, storeError(err, "request")
	}
	if err := guard.Check(actor, guard.ViewHistory, guard.Target{Request: req}).Err(); err != nil {
		return nil, err
	}
	records, err := history.RequestHistory(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("request history: %w", err)
	}
	return records, nil
}

// ListMyRequests возвращает заявки клиента, новые первыми.
func (s *RequestService) ListMyRequests(ctx context.Context, actor models.Actor, limit, offset int) ([]models.Request, error) {
	if !actor.IsClient() && !actor.IsAdmin() {
		return nil, models.NewAuthorizationError(models.WrongRole, "only clients have their own requests")
	}
	if err := validatePage(limit, offset); err != nil {
		return nil, err
	}
	requests, err := s.store.ListRequestsByOwner(ctx, actor.ID, limit, offset)
	if err != nil {
		return nil, storeError(err, "requests")
	}
	return requests, nil
}

// ListRequestsForMaster возвращает заявки региона для мастеров. По умолчанию
// показываются только заявки в статусе pending.
func (s *RequestService) ListRequestsForMaster(ctx context.Context, actor models.Actor, region, status string, limit, offset int) ([]models.Request, error) {
	if !actor.IsMaster() && !actor.IsAdmin() {
		return nil, models.NewAuthorizationError(models.WrongRole, "only masters can browse requests by region")
	}
	if region == "" {
		return nil, models.NewValidationError("region is required")
	}
	if err := validatePage(limit, offset); err != nil {
		return nil, err
	}

	statuses := []models.RequestStatus{models.PendingRequest}
	if status != "" {
		requested := models.RequestStatus(status)
		if !requested.Valid() {
			return nil, models.NewValidationError("unsupported request status: %s", status)
		}
		statuses = []models.RequestStatus{requested}
	}

	requests, err := s.store.ListRequestsByRegion(ctx, region, statuses, limit, offset)
	if err != nil {
		return nil, storeError(err, "requests")
	}
	return requests, nil
}
