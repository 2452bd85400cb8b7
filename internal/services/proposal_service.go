package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/senyabanana/furniture-market/internal/events"
	"github.com/senyabanana/furniture-market/internal/guard"
	"github.com/senyabanana/furniture-market/internal/models"
	"github.com/senyabanana/furniture-market/internal/repository"

	"github.com/google/uuid"
)

type ProposalService struct {
	lifecycle
	limits Limits
}

// NewProposalService создает новый экземпляр ProposalService.
func NewProposalService(store repository.Store, emitter events.Emitter, logger *slog.Logger, limits Limits) *ProposalService {
	return &ProposalService{lifecycle: newLifecycle(store, emitter, logger), limits: limits}
}

// SubmitProposal проверяет и сохраняет предложение мастера. Первое
// предложение переводит заявку в active.
func (s *ProposalService) SubmitProposal(ctx context.Context, actor models.Actor, requestID string, input models.ProposalInput) (*models.Proposal, error) {
	if err := parseID(requestID, "request"); err != nil {
		return nil, err
	}
	now := s.now()
	if err := validateProposalInput(&input, now, s.limits); err != nil {
		return nil, err
	}

	var (
		created *models.Proposal
		ownerID string
	)
	err := s.store.WithinRequestLock(ctx, requestID, func(tx repository.Store) error {
		req, err := tx.GetRequest(ctx, requestID)
		if err != nil {
			return err
		}
		existing, err := findMasterProposal(ctx, tx, requestID, actor)
		if err != nil {
			return err
		}
		decision := guard.Check(actor, guard.CreateProposal, guard.Target{Request: req, ActorProposal: existing})
		if err := decision.Err(); err != nil {
			return err
		}

		proposal := &models.Proposal{
			ID:          uuid.NewString(),
			RequestID:   req.ID,
			MasterID:    actor.ID,
			Price:       input.Price,
			Deadline:    input.Deadline.UTC(),
			Description: input.Description,
			Status:      models.PendingProposal,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := tx.CreateProposal(ctx, proposal); err != nil {
			return err
		}
		if err := onProposalCreated(ctx, tx, req, now); err != nil {
			return err
		}
		created, ownerID = proposal, req.OwnerID
		return nil
	})
	if err != nil {
		return nil, storeError(err, "request")
	}

	s.emit(ctx, models.Event{
		Type:       models.ProposalCreated,
		RequestID:  created.RequestID,
		ProposalID: created.ID,
		ActorID:    actor.ID,
		Recipient:  ownerID,
	})
	return created, nil
}

// AcceptProposal принимает предложение. Заявка и предложение переходят в
// accepted в одной транзакции под блокировкой заявки, поэтому из двух
// конкурентных принятий успешно только одно.
func (s *ProposalService) AcceptProposal(ctx context.Context, actor models.Actor, proposalID string) (*models.Proposal, error) {
	accepted, err := s.decide(ctx, actor, proposalID, guard.AcceptProposal, func(ctx context.Context, tx repository.Store, req *models.Request, proposal *models.Proposal) error {
		now := s.now()
		if err := transitionRequest(ctx, tx, req, models.AcceptedRequest, now); err != nil {
			return err
		}
		return transitionProposal(ctx, tx, proposal, models.AcceptedProposal, now)
	})
	if err != nil {
		return nil, err
	}

	s.emit(ctx, models.Event{
		Type:       models.ProposalAccepted,
		RequestID:  accepted.RequestID,
		ProposalID: accepted.ID,
		ActorID:    actor.ID,
		Recipient:  accepted.MasterID,
	})
	return accepted, nil
}

// RejectProposal отклоняет предложение. Статус заявки не меняется.
func (s *ProposalService) RejectProposal(ctx context.Context, actor models.Actor, proposalID string) (*models.Proposal, error) {
	rejected, err := s.decide(ctx, actor, proposalID, guard.RejectProposal, func(ctx context.Context, tx repository.Store, _ *models.Request, proposal *models.Proposal) error {
		return transitionProposal(ctx, tx, proposal, models.RejectedProposal, s.now())
	})
	if err != nil {
		return nil, err
	}

	s.emit(ctx, models.Event{
		Type:       models.ProposalRejected,
		RequestID:  rejected.RequestID,
		ProposalID: rejected.ID,
		ActorID:    actor.ID,
		Recipient:  rejected.MasterID,
	})
	return rejected, nil
}

// WithdrawProposal отзывает предложение автором, пока по нему нет решения.
func (s *ProposalService) WithdrawProposal(ctx context.Context, actor models.Actor, proposalID string) (*models.Proposal, error) {
	var ownerID string
	withdrawn, err := s.decide(ctx, actor, proposalID, guard.WithdrawProposal, func(ctx context.Context, tx repository.Store, req *models.Request, proposal *models.Proposal) error {
		ownerID = req.OwnerID
		return transitionProposal(ctx, tx, proposal, models.WithdrawnProposal, s.now())
	})
	if err != nil {
		return nil, err
	}

	s.emit(ctx, models.Event{
		Type:       models.ProposalWithdrawn,
		RequestID:  withdrawn.RequestID,
		ProposalID: withdrawn.ID,
		ActorID:    actor.ID,
		Recipient:  ownerID,
	})
	return withdrawn, nil
}

type decisionFunc func(ctx context.Context, tx repository.Store, req *models.Request, proposal *models.Proposal) error

// decide перечитывает заявку и предложение под блокировкой, проверяет
// действие через guard и применяет apply.
func (s *ProposalService) decide(ctx context.Context, actor models.Actor, proposalID string, action guard.Action, apply decisionFunc) (*models.Proposal, error) {
	if err := parseID(proposalID, "proposal"); err != nil {
		return nil, err
	}
	proposal, err := s.store.GetProposal(ctx, proposalID)
	if err != nil {
		return nil, storeError(err, "proposal")
	}

	var result *models.Proposal
	err = s.store.WithinRequestLock(ctx, proposal.RequestID, func(tx repository.Store) error {
		req, err := tx.GetRequest(ctx, proposal.RequestID)
		if err != nil {
			return err
		}
		current, err := tx.GetProposal(ctx, proposalID)
		if err != nil {
			return err
		}
		decision := guard.Check(actor, action, guard.Target{Request: req, Proposal: current})
		if err := transitionDenied(decision); err != nil {
			return err
		}
		if err := apply(ctx, tx, req, current); err != nil {
			return err
		}
		result = current
		return nil
	})
	if err != nil {
		return nil, storeError(err, "proposal")
	}
	return result, nil
}

// ListProposals возвращает предложения по заявке в порядке поступления.
// Мастер видит только свои предложения.
func (s *ProposalService) ListProposals(ctx context.Context, actor models.Actor, requestID string) ([]models.Proposal, error) {
	if err := parseID(requestID, "request"); err != nil {
		return nil, err
	}
	req, err := s.store.GetRequest(ctx, requestID)
	if err != nil {
		return nil, storeError(err, "request")
	}
	existing, err := findMasterProposal(ctx, s.store, requestID, actor)
	if err != nil {
		return nil, storeError(err, "proposal")
	}
	decision := guard.Check(actor, guard.ViewProposals, guard.Target{Request: req, ActorProposal: existing})
	if err := decision.Err(); err != nil {
		return nil, err
	}

	proposals, err := s.store.ListProposalsByRequest(ctx, requestID)
	if err != nil {
		return nil, storeError(err, "proposals")
	}
	if !decision.OwnOnly {
		return proposals, nil
	}
	own := []models.Proposal{}
	for _, proposal := range proposals {
		if proposal.MasterID == actor.ID {
			own = append(own, proposal)
		}
	}
	return own, nil
}

// ListMyProposals возвращает предложения мастера, новые первыми.
func (s *ProposalService) ListMyProposals(ctx context.Context, actor models.Actor, limit, offset int) ([]models.Proposal, error) {
	if !actor.IsMaster() {
		return nil, models.NewAuthorizationError(models.WrongRole, "only masters have proposals")
	}
	if err := validatePage(limit, offset); err != nil {
		return nil, err
	}
	proposals, err := s.store.ListProposalsByMaster(ctx, actor.ID, limit, offset)
	if err != nil {
		return nil, storeError(err, "proposals")
	}
	return proposals, nil
}

// findMasterProposal возвращает предложение мастера по заявке или nil.
func findMasterProposal(ctx context.Context, repo repository.ProposalRepository, requestID string, actor models.Actor) (*models.Proposal, error) {
	if !actor.IsMaster() {
		return nil, nil
	}
	proposal, err := repo.FindMasterProposal(ctx, requestID, actor.ID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	return proposal, err
}
