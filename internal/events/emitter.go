// Package events доставляет доменные события заявок и предложений внешним
// подсистемам (уведомления, чат, история статусов). Сервисы гарантируют только
// попытку отправки: ошибки доставки логируются и не откатывают изменения.
package events

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/senyabanana/furniture-market/internal/models"
)

// Emitter отправляет доменное событие.
type Emitter interface {
	Emit(ctx context.Context, event models.Event) error
}

// HistoryReader читает историю событий заявки.
type HistoryReader interface {
	RequestHistory(ctx context.Context, requestID string) ([]models.Event, error)
}

// Multi рассылает событие всем получателям и собирает их ошибки.
type Multi []Emitter

func (m Multi) Emit(ctx context.Context, event models.Event) error {
	var errs []error
	for _, emitter := range m {
		if err := emitter.Emit(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogEmitter пишет события в лог.
type LogEmitter struct {
	Logger *slog.Logger
}

func (e LogEmitter) Emit(ctx context.Context, event models.Event) error {
	e.Logger.InfoContext(ctx, "domain event",
		"type", event.Type,
		"event_id", event.ID,
		"request_id", event.RequestID,
		"proposal_id", event.ProposalID,
		"actor_id", event.ActorID,
		"recipient", event.Recipient,
	)
	return nil
}

// Recorder запоминает события в памяти.
type Recorder struct {
	mu     sync.Mutex
	events []models.Event
}

func (r *Recorder) Emit(_ context.Context, event models.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

// Events возвращает копию записанных событий.
func (r *Recorder) Events() []models.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.Event(nil), r.events...)
}

// Types возвращает типы записанных событий по порядку.
func (r *Recorder) Types() []models.EventType {
	events := r.Events()
	types := make([]models.EventType, len(events))
	for i, event := range events {
		types[i] = event.Type
	}
	return types
}
