package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/senyabanana/furniture-market/internal/events"
	"github.com/senyabanana/furniture-market/internal/models"
	"github.com/senyabanana/furniture-market/internal/services"
	"github.com/senyabanana/furniture-market/internal/utils"

	"github.com/go-chi/chi/v5"
)

// RequestHandler - структура для обработки HTTP-запросов по заявкам.
type RequestHandler struct {
	handler
	Service *services.RequestService
	// History не nil, если настроена история событий.
	History events.HistoryReader
}

// NewRequestHandler создает новый экземпляр RequestHandler.
func NewRequestHandler(service *services.RequestService, history events.HistoryReader, logger *slog.Logger, timeout time.Duration) *RequestHandler {
	return &RequestHandler{
		handler: handler{Logger: logger, Timeout: timeout},
		Service: service,
		History: history,
	}
}

// CreateRequest обрабатывает запросы для создания заявки.
func (h *RequestHandler) CreateRequest(w http.ResponseWriter, r *http.Request) {
	ctx, cancel, actor, ok := h.begin(w, r)
	if !ok {
		return
	}
	defer cancel()

	var input models.RequestInput
	if err := decode(w, r, &input); err != nil {
		h.fail(w, r, "create request", err)
		return
	}

	req, err := h.Service.CreateRequest(ctx, actor, input)
	if err != nil {
		h.fail(w, r, "create request", err)
		return
	}
	utils.SendJSON(w, http.StatusCreated, req)
}

// GetMyRequests обрабатывает запросы для получения заявок клиента.
func (h *RequestHandler) GetMyRequests(w http.ResponseWriter, r *http.Request) {
	ctx, cancel, actor, ok := h.begin(w, r)
	if !ok {
		return
	}
	defer cancel()

	limit, offset, err := utils.ParseLimitOffset(r.URL.Query().Get("limit"), r.URL.Query().Get("offset"))
	if err != nil {
		h.fail(w, r, "list my requests", models.NewValidationError("%v", err))
		return
	}

	requests, err := h.Service.ListMyRequests(ctx, actor, limit, offset)
	if err != nil {
		h.fail(w, r, "list my requests", err)
		return
	}
	utils.SendJSON(w, http.StatusOK, requests)
}

// GetRequest обрабатывает запросы для получения заявки.
func (h *RequestHandler) GetRequest(w http.ResponseWriter, r *http.Request) {
	ctx, cancel, actor, ok := h.begin(w, r)
	if !ok {
		return
	}
	defer cancel()

	req, err := h.Service.GetRequest(ctx, actor, chi.URLParam(r, "requestId"))
	if err != nil {
		h.fail(w, r, "get request", err)
		return
	}
	utils.SendJSON(w, http.StatusOK, req)
}

// CloseRequest обрабатывает запросы для закрытия заявки.
func (h *RequestHandler) CloseRequest(w http.ResponseWriter, r *http.Request) {
	ctx, cancel, actor, ok := h.begin(w, r)
	if !ok {
		return
	}
	defer cancel()

	req, err := h.Service.CloseRequest(ctx, actor, chi.URLParam(r, "requestId"))
	if err != nil {
		h.fail(w, r, "close request", err)
		return
	}
	utils.SendJSON(w, http.StatusOK, req)
}

// GetRegionRequests обрабатывает запросы мастеров на просмотр заявок региона.
func (h *RequestHandler) GetRegionRequests(w http.ResponseWriter, r *http.Request) {
	ctx, cancel, actor, ok := h.begin(w, r)
	if !ok {
		return
	}
	defer cancel()

	query := r.URL.Query()
	limit, offset, err := utils.ParseLimitOffset(query.Get("limit"), query.Get("offset"))
	if err != nil {
		h.fail(w, r, "list region requests", models.NewValidationError("%v", err))
		return
	}

	requests, err := h.Service.ListRequestsForMaster(ctx, actor, chi.URLParam(r, "region"), query.Get("status"), limit, offset)
	if err != nil {
		h.fail(w, r, "list region requests", err)
		return
	}
	utils.SendJSON(w, http.StatusOK, requests)
}

// GetRequestHistory обрабатывает запросы на историю событий заявки.
func (h *RequestHandler) GetRequestHistory(w http.ResponseWriter, r *http.Request) {
	ctx, cancel, actor, ok := h.begin(w, r)
	if !ok {
		return
	}
	defer cancel()

	history, err := h.Service.RequestHistory(ctx, actor, chi.URLParam(r, "requestId"), h.History)
	if err != nil {
		h.fail(w, r, "request history", err)
		return
	}
	utils.SendJSON(w, http.StatusOK, history)
}
