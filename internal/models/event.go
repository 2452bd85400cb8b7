package models

import "time"

type EventType string // Тип доменного события

const (
	ProposalCreated   EventType = "proposal_created"
	ProposalAccepted  EventType = "proposal_accepted"
	ProposalRejected  EventType = "proposal_rejected"
	ProposalWithdrawn EventType = "proposal_withdrawn"
	RequestClosed     EventType = "request_closed"
)

// Event описывает изменение заявки или предложения, о котором нужно сообщить
// подсистеме уведомлений и чата.
type Event struct {
	ID         string    `json:"id" bson:"_id"`
	Type       EventType `json:"type" bson:"type"`
	RequestID  string    `json:"requestId" bson:"request_id"`
	ProposalID string    `json:"proposalId,omitempty" bson:"proposal_id,omitempty"`
	ActorID    string    `json:"actorId" bson:"actor_id"`
	// Recipient - пользователь, которому адресовано уведомление.
	Recipient  string    `json:"recipient,omitempty" bson:"recipient,omitempty"`
	OccurredAt time.Time `json:"occurredAt" bson:"occurred_at"`
}
