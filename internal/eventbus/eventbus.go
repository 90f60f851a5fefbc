// Package eventbus доставляет уведомления об изменениях документа внешним
// наблюдателям: логу, метрикам, другим процессам через NATS JetStream.
package eventbus

import (
	"context"
	"errors"
	"slices"
	"time"
)

// ErrClosed публикация в закрытую шину
var ErrClosed = errors.New("eventbus: closed")

// Envelope контейнер события
type Envelope struct {
	ID            string            `json:"id"`
	Timestamp     time.Time         `json:"ts"`
	Source        string            `json:"source"`
	EventType     string            `json:"type"` // tiles.region, tiles.cleared…
	Version       int               `json:"v"`
	CorrelationID string            `json:"correlation_id,omitempty"` // id документа
	Priority      int               `json:"priority"`                 // 0..9, ниже 5 отбрасывается при переполнении
	Payload       []byte            `json:"payload"`
	Metadata      map[string]string `json:"meta,omitempty"`
}

// Filter ограничивает подписку типами и источниками; пустой список: любые
type Filter struct {
	Types   []string
	Sources []string
}

func (f Filter) match(ev *Envelope) bool {
	return (len(f.Types) == 0 || slices.Contains(f.Types, ev.EventType)) &&
		(len(f.Sources) == 0 || slices.Contains(f.Sources, ev.Source))
}

// Subscription возвращается при подписке
type Subscription interface {
	Unsubscribe()
}

// Handler потребитель событий
type Handler func(ctx context.Context, ev *Envelope)

// Stats счётчики шины
type Stats struct {
	Published uint64
	Consumed  uint64
	Dropped   uint64
	InFlight  int
}

// EventBus шина событий документа. Publish не должен надолго блокировать
// поток ввода редактора.
type EventBus interface {
	Publish(ctx context.Context, ev *Envelope) error
	Subscribe(ctx context.Context, f Filter, h Handler) (Subscription, error)
	Metrics() Stats
	Close() error
}
