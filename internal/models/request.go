package models

import (
	"encoding/json"
	"time"
)

type RequestStatus string // Статус заявки

const (
	PendingRequest  RequestStatus = "pending"  // Заявка создана, предложений ещё нет
	ActiveRequest   RequestStatus = "active"   // Есть хотя бы одно предложение
	AcceptedRequest RequestStatus = "accepted" // Клиент принял предложение
	ClosedRequest   RequestStatus = "closed"   // Заявка закрыта
)

// MaxRequestPhotos - максимальное число фотографий в заявке.
const MaxRequestPhotos = 10

// Request представляет заявку клиента. Цена и срок в заявке не указываются,
// их предлагает мастер.
type Request struct {
	ID          string        `json:"id"`
	OwnerID     string        `json:"ownerId"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Category    string        `json:"category"`
	Region      string        `json:"region"`
	Photos      []string      `json:"photos"`
	Status      RequestStatus `json:"status"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

// RequestInput представляет тело запроса на создание заявки.
// Price и Deadline принимаются только для того, чтобы отклонить такой запрос.
type RequestInput struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Region      string          `json:"region"`
	Photos      []string        `json:"photos"`
	Price       json.RawMessage `json:"price,omitempty"`
	Deadline    json.RawMessage `json:"deadline,omitempty"`
}

// IsTerminal сообщает, принимает ли заявка ещё предложения.
func (s RequestStatus) IsTerminal() bool {
	return s == AcceptedRequest || s == ClosedRequest
}

func (s RequestStatus) Valid() bool {
	switch s {
	case PendingRequest, ActiveRequest, AcceptedRequest, ClosedRequest:
		return true
	}
	return false
}
