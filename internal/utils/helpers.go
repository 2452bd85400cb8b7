package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/senyabanana/furniture-market/internal/models"
)

// SendJSON отправляет ответ в формате JSON.
func SendJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// SendErrorResponse отправляет ошибку в формате JSON
func SendErrorResponse(w http.ResponseWriter, errorResponse *models.ErrorResponse) {
	SendJSON(w, errorResponse.StatusCode, errorResponse)
}

// SendError отправляет ошибку сервиса. Ошибки, не описанные моделью,
// отдаются клиенту как внутренние без подробностей.
func SendError(w http.ResponseWriter, err error) {
	var errorResponse *models.ErrorResponse
	if errors.As(err, &errorResponse) {
		SendErrorResponse(w, errorResponse)
		return
	}
	SendErrorResponse(w, models.NewErrorResponse(http.StatusInternalServerError, models.CodeInternal, "internal server error"))
}

// ParseLimitOffset обрабатывает limit и offset
func ParseLimitOffset(limitStr, offsetStr string) (int, int, error) {
	var limit, offset int
	var err error

	if limitStr != "" {
		limit, err = strconv.Atoi(limitStr)
		if err != nil || limit <= 0 || limit > 50 {
			return 0, 0, fmt.Errorf("invalid limit parameter, must be a positive integer [0:50]")
		}
	} else {
		limit = 5
	}

	if offsetStr != "" {
		offset, err = strconv.Atoi(offsetStr)
		if err != nil || offset < 0 {
			return 0, 0, fmt.Errorf("invalid offset parameter, must be a non-negative integer")
		}
	} else {
		offset = 0
	}

	return limit, offset, nil
}
