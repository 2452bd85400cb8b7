package models

import (
	"fmt"
	"net/http"
)

type (
	ErrorCode  string // Класс ошибки, стабильный для клиентов API
	DenyReason string // Причина отказа в доступе
)

const (
	CodeValidation        ErrorCode = "validation_error"
	CodeAuthorization     ErrorCode = "authorization_error"
	CodeUnauthenticated   ErrorCode = "unauthenticated"
	CodeNotFound          ErrorCode = "not_found"
	CodeInvalidTransition ErrorCode = "invalid_transition"
	CodeConflict          ErrorCode = "conflict"
	CodeInternal          ErrorCode = "internal_error"

	NotOwner          DenyReason = "not_owner"
	WrongRole         DenyReason = "wrong_role"
	TerminalState     DenyReason = "terminal_state"
	DuplicateProposal DenyReason = "duplicate_proposal"
)

// ErrorResponse описывает ошибку с кодом и сообщением.
type ErrorResponse struct {
	StatusCode int        `json:"-"`
	Code       ErrorCode  `json:"code"`
	Reason     DenyReason `json:"reason,omitempty"`
	Message    string     `json:"message"`
}

// NewErrorResponse создает новую ошибку с кодом и сообщением.
func NewErrorResponse(statusCode int, code ErrorCode, message string) *ErrorResponse {
	return &ErrorResponse{
		StatusCode: statusCode,
		Code:       code,
		Message:    message}
}

// Реализация метода Error() для удовлетворения интерфейса error.
func (e *ErrorResponse) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s (%s): %s", e.Code, e.Reason, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewValidationError(format string, args ...any) *ErrorResponse {
	return NewErrorResponse(http.StatusBadRequest, CodeValidation, fmt.Sprintf(format, args...))
}

// NewAuthorizationError создает ошибку доступа с конкретной причиной отказа.
func NewAuthorizationError(reason DenyReason, message string) *ErrorResponse {
	e := NewErrorResponse(http.StatusForbidden, CodeAuthorization, message)
	e.Reason = reason
	return e
}

func NewNotFoundError(format string, args ...any) *ErrorResponse {
	return NewErrorResponse(http.StatusNotFound, CodeNotFound, fmt.Sprintf(format, args...))
}

// NewInvalidTransitionError сообщает о недопустимом переходе статуса.
// Обычно это значит, что у клиента устаревшие данные.
func NewInvalidTransitionError(format string, args ...any) *ErrorResponse {
	e := NewErrorResponse(http.StatusConflict, CodeInvalidTransition, fmt.Sprintf(format, args...))
	e.Reason = TerminalState
	return e
}

// NewConflictError возвращается проигравшему в гонке за принятие предложения.
func NewConflictError(format string, args ...any) *ErrorResponse {
	return NewErrorResponse(http.StatusConflict, CodeConflict, fmt.Sprintf(format, args...))
}

func NewUnauthenticatedError(message string) *ErrorResponse {
	return NewErrorResponse(http.StatusUnauthorized, CodeUnauthenticated, message)
}
