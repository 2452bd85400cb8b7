package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/senyabanana/furniture-market/internal/middleware"
	"github.com/senyabanana/furniture-market/internal/models"
	"github.com/senyabanana/furniture-market/internal/utils"
)

const maxBodyBytes = 1 << 20

// handler - общие зависимости обработчиков.
type handler struct {
	Logger  *slog.Logger
	Timeout time.Duration
}

// begin возвращает пользователя и контекст с таймаутом обработчика.
func (h *handler) begin(w http.ResponseWriter, r *http.Request) (context.Context, context.CancelFunc, models.Actor, bool) {
	actor, ok := middleware.ActorFrom(r.Context())
	if !ok {
		utils.SendError(w, models.NewUnauthenticatedError("missing token"))
		return nil, nil, models.Actor{}, false
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	return ctx, cancel, actor, true
}

// fail логирует ошибку сервиса и отправляет её клиенту.
func (h *handler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	var errorResponse *models.ErrorResponse
	if errors.As(err, &errorResponse) {
		h.Logger.InfoContext(r.Context(), op+" failed",
			"code", errorResponse.Code,
			"reason", errorResponse.Reason,
			"message", errorResponse.Message,
		)
	} else {
		h.Logger.ErrorContext(r.Context(), op+" failed", "error", err)
	}
	utils.SendError(w, err)
}

// decode читает JSON-тело запроса.
func decode(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return models.NewValidationError("invalid request body: %v", err)
	}
	return nil
}
