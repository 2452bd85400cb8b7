package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/senyabanana/furniture-market/internal/models"
	"github.com/senyabanana/furniture-market/internal/services"
	"github.com/senyabanana/furniture-market/internal/utils"

	"github.com/go-chi/chi/v5"
)

// ProposalHandler - структура для обработки HTTP-запросов по предложениям.
type ProposalHandler struct {
	handler
	Service *services.ProposalService
}

// NewProposalHandler создает новый экземпляр ProposalHandler.
func NewProposalHandler(service *services.ProposalService, logger *slog.Logger, timeout time.Duration) *ProposalHandler {
	return &ProposalHandler{
		handler: handler{Logger: logger, Timeout: timeout},
		Service: service,
	}
}

// SubmitProposal обрабатывает запросы для создания предложения по заявке.
func (h *ProposalHandler) SubmitProposal(w http.ResponseWriter, r *http.Request) {
	ctx, cancel, actor, ok := h.begin(w, r)
	if !ok {
		return
	}
	defer cancel()

	var input models.ProposalInput
	if err := decode(w, r, &input); err != nil {
		h.fail(w, r, "submit proposal", err)
		return
	}

	proposal, err := h.Service.SubmitProposal(ctx, actor, chi.URLParam(r, "requestId"), input)
	if err != nil {
		h.fail(w, r, "submit proposal", err)
		return
	}
	utils.SendJSON(w, http.StatusCreated, proposal)
}

// GetRequestProposals обрабатывает запросы для получения предложений по заявке.
func (h *ProposalHandler) GetRequestProposals(w http.ResponseWriter, r *http.Request) {
	ctx, cancel, actor, ok := h.begin(w, r)
	if !ok {
		return
	}
	defer cancel()

	proposals, err := h.Service.ListProposals(ctx, actor, chi.URLParam(r, "requestId"))
	if err != nil {
		h.fail(w, r, "list proposals", err)
		return
	}
	utils.SendJSON(w, http.StatusOK, proposals)
}

// GetMyProposals обрабатывает запросы мастера на его предложения.
func (h *ProposalHandler) GetMyProposals(w http.ResponseWriter, r *http.Request) {
	ctx, cancel, actor, ok := h.begin(w, r)
	if !ok {
		return
	}
	defer cancel()

	limit, offset, err := utils.ParseLimitOffset(r.URL.Query().Get("limit"), r.URL.Query().Get("offset"))
	if err != nil {
		h.fail(w, r, "list my proposals", models.NewValidationError("%v", err))
		return
	}

	proposals, err := h.Service.ListMyProposals(ctx, actor, limit, offset)
	if err != nil {
		h.fail(w, r, "list my proposals", err)
		return
	}
	utils.SendJSON(w, http.StatusOK, proposals)
}

type proposalAction func(ctx context.Context, actor models.Actor, proposalID string) (*models.Proposal, error)

// AcceptProposal обрабатывает принятие предложения клиентом.
func (h *ProposalHandler) AcceptProposal(w http.ResponseWriter, r *http.Request) {
	h.changeStatus(w, r, "accept proposal", h.Service.AcceptProposal)
}

// RejectProposal обрабатывает отклонение предложения клиентом.
func (h *ProposalHandler) RejectProposal(w http.ResponseWriter, r *http.Request) {
	h.changeStatus(w, r, "reject proposal", h.Service.RejectProposal)
}

// WithdrawProposal обрабатывает отзыв предложения мастером.
func (h *ProposalHandler) WithdrawProposal(w http.ResponseWriter, r *http.Request) {
	h.changeStatus(w, r, "withdraw proposal", h.Service.WithdrawProposal)
}

func (h *ProposalHandler) changeStatus(w http.ResponseWriter, r *http.Request, op string, action proposalAction) {
	ctx, cancel, actor, ok := h.begin(w, r)
	if !ok {
		return
	}
	defer cancel()

	proposal, err := action(ctx, actor, chi.URLParam(r, "proposalId"))
	if err != nil {
		h.fail(w, r, op, err)
		return
	}
	utils.SendJSON(w, http.StatusOK, proposal)
}
