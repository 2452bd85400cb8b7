package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/senyabanana/furniture-market/internal/events"
	"github.com/senyabanana/furniture-market/internal/guard"
	"github.com/senyabanana/furniture-market/internal/models"
	"github.com/senyabanana/furniture-market/internal/repository"

	"github.com/google/uuid"
)

// Допустимые переходы статусов заявки. Переход active -> active
// (очередное предложение) ничего не меняет.
var allowedRequestTransition = map[models.RequestStatus][]models.RequestStatus{
	models.PendingRequest:  {models.ActiveRequest, models.AcceptedRequest, models.ClosedRequest},
	models.ActiveRequest:   {models.ActiveRequest, models.AcceptedRequest, models.ClosedRequest},
	models.AcceptedRequest: {models.ClosedRequest},
	models.ClosedRequest:   {},
}

// Допустимые переходы статусов предложения. Все статусы, кроме pending, конечные.
var allowedProposalTransition = map[models.ProposalStatus][]models.ProposalStatus{
	models.PendingProposal:   {models.AcceptedProposal, models.RejectedProposal, models.WithdrawnProposal},
	models.AcceptedProposal:  {},
	models.RejectedProposal:  {},
	models.WithdrawnProposal: {},
}

// lifecycle - общие зависимости сервисов заявок и предложений.
type lifecycle struct {
	store   repository.Store
	emitter events.Emitter
	logger  *slog.Logger
	// Clock возвращает текущее время; подменяется в тестах.
	Clock func() time.Time
}

func newLifecycle(store repository.Store, emitter events.Emitter, logger *slog.Logger) lifecycle {
	if emitter == nil {
		emitter = events.Multi{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return lifecycle{store: store, emitter: emitter, logger: logger, Clock: time.Now}
}

func (l *lifecycle) now() time.Time {
	return l.Clock().UTC()
}

// transitionRequest переводит заявку в статус next по таблице переходов.
func transitionRequest(ctx context.Context, tx repository.Store, req *models.Request, next models.RequestStatus, now time.Time) error {
	if !slices.Contains(allowedRequestTransition[req.Status], next) {
		return models.NewInvalidTransitionError("request is %s and cannot become %s", req.Status, next)
	}
	if req.Status == next {
		return nil
	}
	if err := tx.UpdateRequestStatus(ctx, req.ID, next, now); err != nil {
		return err
	}
	req.Status, req.UpdatedAt = next, now
	return nil
}

// transitionProposal переводит предложение в статус next по таблице переходов.
func transitionProposal(ctx context.Context, tx repository.Store, proposal *models.Proposal, next models.ProposalStatus, now time.Time) error {
	if !slices.Contains(allowedProposalTransition[proposal.Status], next) {
		return models.NewInvalidTransitionError("proposal is %s and cannot become %s", proposal.Status, next)
	}
	if err := tx.UpdateProposalStatus(ctx, proposal.ID, next, now); err != nil {
		return err
	}
	proposal.Status, proposal.UpdatedAt = next, now
	return nil
}

// onProposalCreated: первое предложение активирует заявку.
func onProposalCreated(ctx context.Context, tx repository.Store, req *models.Request, now time.Time) error {
	return transitionRequest(ctx, tx, req, models.ActiveRequest, now)
}

// transitionDenied возвращает ошибку отказа guard. Отказ из-за конечного
// состояния означает устаревшие данные у клиента и сообщается как
// недопустимый переход.
func transitionDenied(d guard.Decision) error {
	if d.Allowed {
		return nil
	}
	if d.Reason == models.TerminalState {
		return models.NewInvalidTransitionError("%s", d.Message)
	}
	return d.Err()
}

func (l *lifecycle) emit(ctx context.Context, event models.Event) {
	event.ID = uuid.NewString()
	event.OccurredAt = l.now()
	if err := l.emitter.Emit(ctx, event); err != nil {
		l.logger.WarnContext(ctx, "failed to emit event",
			"type", event.Type,
			"request_id", event.RequestID,
			"proposal_id", event.ProposalID,
			"error", err,
		)
	}
}

// storeError переводит ошибки хранилища в ошибки API.
func storeError(err error, entity string) error {
	var errorResponse *models.ErrorResponse
	switch {
	case err == nil:
		return nil
	case errors.As(err, &errorResponse):
		return errorResponse
	case errors.Is(err, repository.ErrNotFound):
		return models.NewNotFoundError("%s not found", entity)
	case errors.Is(err, repository.ErrDuplicateProposal):
		return models.NewAuthorizationError(models.DuplicateProposal, "you already have an active proposal on this request")
	case errors.Is(err, repository.ErrAlreadyAccepted):
		return models.NewConflictError("another proposal on this request was accepted concurrently")
	}
	return fmt.Errorf("%s: %w", entity, err)
}

// parseID проверяет формат идентификатора. Неверный формат считается
// несуществующей записью.
func parseID(id, entity string) error {
	if _, err := uuid.Parse(id); err != nil {
		return models.NewNotFoundError("%s not found", entity)
	}
	return nil
}
