package services

import (
	"bytes"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/senyabanana/furniture-market/internal/models"

	"github.com/shopspring/decimal"
)

// Limits - ограничения на поля заявок и предложений.
type Limits struct {
	ProposalDescriptionMin int
	ProposalDescriptionMax int
}

// DefaultLimits совпадают с формами создания заявки и предложения.
var DefaultLimits = Limits{
	ProposalDescriptionMin: 10,
	ProposalDescriptionMax: 1000,
}

var maxPrice = decimal.New(1, 12)

type lengthRule struct {
	field    string
	value    string
	min, max int
}

func checkLengths(rules ...lengthRule) error {
	for _, rule := range rules {
		n := utf8.RuneCountInString(strings.TrimSpace(rule.value))
		if n < rule.min || n > rule.max {
			return models.NewValidationError("%s must be between %d and %d characters", rule.field, rule.min, rule.max)
		}
	}
	return nil
}

// validateRequestInput проверяет заявку и нормализует её поля.
func validateRequestInput(input *models.RequestInput) error {
	if present(input.Price) || present(input.Deadline) {
		return models.NewValidationError("price and deadline are proposed by masters and cannot be set on a request")
	}

	err := checkLengths(
		lengthRule{"title", input.Title, 3, 100},
		lengthRule{"description", input.Description, 10, 1000},
		lengthRule{"category", input.Category, 2, 50},
		lengthRule{"region", input.Region, 2, 100},
	)
	if err != nil {
		return err
	}
	input.Title = strings.TrimSpace(input.Title)
	input.Description = strings.TrimSpace(input.Description)
	input.Category = strings.TrimSpace(input.Category)
	input.Region = strings.TrimSpace(input.Region)

	if len(input.Photos) > models.MaxRequestPhotos {
		return models.NewValidationError("a request can have at most %d photos", models.MaxRequestPhotos)
	}
	for i, photo := range input.Photos {
		u, err := url.Parse(photo)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return models.NewValidationError("photos[%d] must be an absolute http(s) URL", i)
		}
	}
	return nil
}

// validateProposalInput проверяет цену, срок и описание предложения.
func validateProposalInput(input *models.ProposalInput, now time.Time, limits Limits) error {
	if !input.Price.IsPositive() {
		return models.NewValidationError("price must be greater than zero")
	}
	if !input.Price.Equal(input.Price.Round(2)) {
		return models.NewValidationError("price must have at most 2 decimal places")
	}
	if input.Price.GreaterThanOrEqual(maxPrice) {
		return models.NewValidationError("price is too large")
	}
	if input.Deadline.IsZero() || !input.Deadline.After(now) {
		return models.NewValidationError("deadline must be in the future")
	}
	if err := checkLengths(lengthRule{"description", input.Description, limits.ProposalDescriptionMin, limits.ProposalDescriptionMax}); err != nil {
		return err
	}
	input.Description = strings.TrimSpace(input.Description)
	return nil
}

// present сообщает, было ли поле передано в JSON, в том числе как null.
func present(raw []byte) bool {
	return len(bytes.TrimSpace(raw)) > 0
}

// validatePage проверяет параметры постраничной выдачи.
func validatePage(limit, offset int) error {
	if limit <= 0 {
		return models.NewValidationError("limit must be a positive integer")
	}
	if offset < 0 {
		return models.NewValidationError("offset must be a non-negative integer")
	}
	return nil
}
