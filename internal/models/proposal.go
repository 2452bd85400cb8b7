package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type ProposalStatus string // Статус предложения мастера

const (
	PendingProposal   ProposalStatus = "pending"   // Ожидает решения клиента
	AcceptedProposal  ProposalStatus = "accepted"  // Принято клиентом
	RejectedProposal  ProposalStatus = "rejected"  // Отклонено клиентом
	WithdrawnProposal ProposalStatus = "withdrawn" // Отозвано мастером
)

// Proposal представляет предложение мастера по заявке.
type Proposal struct {
	ID          string          `json:"id"`
	RequestID   string          `json:"requestId"`
	MasterID    string          `json:"masterId"`
	Price       decimal.Decimal `json:"price"`
	Deadline    time.Time       `json:"deadline"`
	Description string          `json:"description"`
	Status      ProposalStatus  `json:"status"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// ProposalInput представляет тело запроса на создание предложения.
type ProposalInput struct {
	Price       decimal.Decimal `json:"price"`
	Deadline    time.Time       `json:"deadline"`
	Description string          `json:"description"`
}

// IsTerminal сообщает, что предложение больше не меняет статус.
func (s ProposalStatus) IsTerminal() bool {
	return s != PendingProposal
}
